package imageresolver_test

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/asmavensocial/installation-dashbaord/internal/drivelink"
	"github.com/asmavensocial/installation-dashbaord/internal/imageresolver"
	"github.com/asmavensocial/installation-dashbaord/internal/survey"
)

// testRecords builds n records, each with one viewer share link and three
// blank slots.
func testRecords(n int) []survey.Record {
	records := make([]survey.Record, n)
	for i := range records {
		records[i] = survey.Record{
			StoreName:       fmt.Sprintf("Store %03d", i),
			StoreFrontImage: fmt.Sprintf("https://drive.google.com/file/d/FRONT%03d/view", i),
		}
	}
	return records
}

func TestPreloader_ResolvesWindow(t *testing.T) {
	t.Parallel()

	fetcher := &countingFetcher{}
	cache := imageresolver.NewCache(fetcher, nil, false)
	pre := imageresolver.NewPreloader(cache, drivelink.New(1000), 5, 2)
	records := testRecords(12)

	pre.PreloadWindow(context.Background(), records, 0)

	// One non-blank slot per record, five records in the window.
	assert.EqualValues(t, 5, fetcher.fetchCount())
	assert.Equal(t, 5, cache.Len())

	// The first record's image is now a cache hit.
	url, ok := drivelink.New(1000).Normalize(records[0].StoreFrontImage)
	require.True(t, ok)
	img := cache.Resolve(context.Background(), url)
	assert.True(t, img.Available())
	assert.EqualValues(t, 5, fetcher.fetchCount())
}

func TestPreloader_IdempotentPerWindow(t *testing.T) {
	t.Parallel()

	fetcher := &countingFetcher{}
	cache := imageresolver.NewCache(fetcher, nil, false)
	pre := imageresolver.NewPreloader(cache, drivelink.New(1000), 5, 2)
	records := testRecords(12)

	pre.PreloadWindow(context.Background(), records, 0)
	pre.PreloadWindow(context.Background(), records, 0)
	pre.PreloadWindow(context.Background(), records, 0)

	assert.EqualValues(t, 5, fetcher.fetchCount(), "repeat preloads of a window must be no-ops")
}

func TestPreloader_SeparateWindows(t *testing.T) {
	t.Parallel()

	fetcher := &countingFetcher{}
	cache := imageresolver.NewCache(fetcher, nil, false)
	pre := imageresolver.NewPreloader(cache, drivelink.New(1000), 5, 2)
	records := testRecords(12)

	pre.PreloadWindow(context.Background(), records, 0)
	pre.PreloadWindow(context.Background(), records, 5)
	pre.PreloadWindow(context.Background(), records, 10) // short final window

	assert.EqualValues(t, 12, fetcher.fetchCount())
}

func TestPreloader_BlankSlotsSkipped(t *testing.T) {
	t.Parallel()

	fetcher := &countingFetcher{}
	cache := imageresolver.NewCache(fetcher, nil, false)
	pre := imageresolver.NewPreloader(cache, drivelink.New(1000), 5, 1)

	records := []survey.Record{
		{StoreName: "No images at all"},
		{StoreName: "Whitespace only", StoreFrontImage: "   "},
	}

	pre.PreloadWindow(context.Background(), records, 0)

	assert.EqualValues(t, 0, fetcher.fetchCount())
	assert.Equal(t, 0, cache.Len())
}

func TestPreloader_OutOfRangeStart(t *testing.T) {
	t.Parallel()

	fetcher := &countingFetcher{}
	cache := imageresolver.NewCache(fetcher, nil, false)
	pre := imageresolver.NewPreloader(cache, drivelink.New(1000), 5, 1)
	records := testRecords(3)

	pre.PreloadWindow(context.Background(), records, -1)
	pre.PreloadWindow(context.Background(), records, 3)
	pre.PreloadWindow(context.Background(), records, 99)

	assert.EqualValues(t, 0, fetcher.fetchCount())
}

func TestPreloader_WindowStart(t *testing.T) {
	t.Parallel()

	pre := imageresolver.NewPreloader(
		imageresolver.NewCache(&countingFetcher{}, nil, false),
		drivelink.New(1000), 5, 1)

	assert.Equal(t, 0, pre.WindowStart(0))
	assert.Equal(t, 0, pre.WindowStart(4))
	assert.Equal(t, 5, pre.WindowStart(5))
	assert.Equal(t, 10, pre.WindowStart(12))
	assert.Equal(t, 0, pre.WindowStart(-3))
}

func TestPreloader_CancelledWindowRetried(t *testing.T) {
	t.Parallel()

	fetcher := &countingFetcher{block: make(chan struct{})}
	cache := imageresolver.NewCache(fetcher, nil, false)
	pre := imageresolver.NewPreloader(cache, drivelink.New(1000), 5, 2)
	records := testRecords(5)

	ctx, cancel := context.WithCancel(context.Background())
	finished := make(chan struct{})
	go func() {
		pre.PreloadWindow(ctx, records, 0)
		close(finished)
	}()
	cancel()
	<-finished

	// Nothing from the aborted window may be cached as a negative.
	assert.Equal(t, 0, cache.Len())

	// The window was unmarked, so the next preload does the real work.
	close(fetcher.block)
	pre.PreloadWindow(context.Background(), records, 0)
	assert.Equal(t, 5, cache.Len())

	url, ok := drivelink.New(1000).Normalize(records[0].StoreFrontImage)
	require.True(t, ok)
	img := cache.Resolve(context.Background(), url)
	assert.True(t, img.Available())
}

func TestPreloader_SharedURLsAcrossRecords(t *testing.T) {
	t.Parallel()

	fetcher := &countingFetcher{}
	cache := imageresolver.NewCache(fetcher, nil, false)
	pre := imageresolver.NewPreloader(cache, drivelink.New(1000), 5, 4)

	// Different raw shapes of the same file collapse onto one canonical URL.
	records := []survey.Record{
		{StoreFrontImage: "https://drive.google.com/file/d/SAME01/view"},
		{StoreFrontImage: "https://drive.google.com/open?id=SAME01"},
		{StoreFrontImage: "https://lh3.googleusercontent.com/d/SAME01=w1000"},
	}

	pre.PreloadWindow(context.Background(), records, 0)

	assert.EqualValues(t, 1, fetcher.fetchCount(),
		"raw variants normalizing to one canonical URL must fetch once")
	assert.Equal(t, 1, cache.Len())
}
