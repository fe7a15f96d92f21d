package imageresolver

import (
	"context"
	"log/slog"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/asmavensocial/installation-dashbaord/internal/drivelink"
	"github.com/asmavensocial/installation-dashbaord/internal/logging"
	"github.com/asmavensocial/installation-dashbaord/internal/survey"
)

// Preloader resolves the images of a bounded look-ahead window of records so
// per-record navigation in the viewer does not incur sequential round-trips.
// Each window is processed at most once per session; the Cache makes repeat
// resolutions of already-seen URLs free.
type Preloader struct {
	cache       *Cache
	normalizer  *drivelink.Normalizer
	windowSize  int
	concurrency int
	logger      *slog.Logger

	mu   sync.Mutex
	done map[int]struct{} // window ids already processed this session
}

// NewPreloader creates a preloader over the given cache and normalizer.
// windowSize must be positive; concurrency below 1 means sequential fetches.
func NewPreloader(cache *Cache, normalizer *drivelink.Normalizer, windowSize, concurrency int) *Preloader {
	if windowSize < 1 {
		windowSize = 1
	}
	if concurrency < 1 {
		concurrency = 1
	}
	logger := logging.ForService("imageresolver.preloader")
	if logger == nil {
		logger = slog.Default().With("service", "imageresolver.preloader")
	}
	return &Preloader{
		cache:       cache,
		normalizer:  normalizer,
		windowSize:  windowSize,
		concurrency: concurrency,
		logger:      logger,
		done:        make(map[int]struct{}),
	}
}

// WindowStart returns the start index of the window containing index.
func (p *Preloader) WindowStart(index int) int {
	if index < 0 {
		return 0
	}
	return (index / p.windowSize) * p.windowSize
}

// PreloadWindow resolves every image slot of records[start : start+windowSize).
// Idempotent per window: a window already processed this session is skipped
// entirely. Blocks until the window's fetches finish.
func (p *Preloader) PreloadWindow(ctx context.Context, records []survey.Record, start int) {
	if start < 0 || start >= len(records) {
		return
	}

	id := start / p.windowSize
	p.mu.Lock()
	if _, processed := p.done[id]; processed {
		p.mu.Unlock()
		return
	}
	p.done[id] = struct{}{}
	p.mu.Unlock()

	end := start + p.windowSize
	if end > len(records) {
		end = len(records)
	}

	// Fan out within the window; the cache's single-flight keying keeps
	// fetches at-most-once per URL even with overlapping slots.
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(p.concurrency)

	queued := 0
	for i := start; i < end; i++ {
		for _, slot := range records[i].ImageSlots() {
			url, ok := p.normalizer.Normalize(slot.Raw)
			if !ok {
				continue
			}
			queued++
			g.Go(func() error {
				p.cache.Resolve(gctx, url)
				return nil
			})
		}
	}
	_ = g.Wait() // workers never return errors; failures become negative cache entries

	// A window cut short by cancellation did not get its one real attempt;
	// unmark it so a later request preloads it properly. Cancelled fetches
	// are not cached, so the retry is a full one.
	if ctx.Err() != nil {
		p.mu.Lock()
		delete(p.done, id)
		p.mu.Unlock()
		p.logger.Debug("Preload window cancelled", "window", id, "start", start)
		return
	}

	if p.cache.metrics != nil {
		p.cache.metrics.IncrementPreloads()
	}
	p.logger.Debug("Preload window processed",
		"window", id,
		"start", start,
		"end", end,
		"urls_queued", queued)
}

// PreloadAround preloads the window containing index. Convenience for the
// viewer's navigation handler.
func (p *Preloader) PreloadAround(ctx context.Context, records []survey.Record, index int) {
	p.PreloadWindow(ctx, records, p.WindowStart(index))
}
