package httpcontroller_test

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/asmavensocial/installation-dashbaord/internal/conf"
	"github.com/asmavensocial/installation-dashbaord/internal/drivelink"
	"github.com/asmavensocial/installation-dashbaord/internal/httpcontroller"
	"github.com/asmavensocial/installation-dashbaord/internal/imageresolver"
	"github.com/asmavensocial/installation-dashbaord/internal/survey"
)

// stubFetcher serves a fixed payload for every URL except those listed in
// failing, and counts total fetch attempts.
type stubFetcher struct {
	calls   int64
	failing map[string]bool
}

func (f *stubFetcher) Fetch(_ context.Context, url string) (imageresolver.StoreImage, error) {
	atomic.AddInt64(&f.calls, 1)
	if f.failing[url] {
		return imageresolver.StoreImage{}, fmt.Errorf("fetch %s: boom", url)
	}
	return imageresolver.StoreImage{
		ContentType: "image/jpeg",
		Payload:     []byte("jpeg-bytes"),
		Encoded:     "anBlZy1ieXRlcw==",
	}, nil
}

func (f *stubFetcher) fetchCount() int64 { return atomic.LoadInt64(&f.calls) }

func dashboardFixture() []survey.Record {
	return []survey.Record{
		{
			StoreName: "Sharma Electronics", Zone: "North", State: "Delhi",
			City: "New Delhi", Channel: "GT", Deployed: "YES",
			StoreFrontImage:  "https://drive.google.com/file/d/FRONT1/view",
			DeploymentImage1: "https://drive.google.com/open?id=DEP1",
		},
		{
			StoreName: "Patel Stores", Zone: "West", State: "Maharashtra",
			City: "Pune", Channel: "MT", Deployed: "NO",
			Reason: "Shutter closed",
		},
		{
			StoreName: "Rao Traders", Zone: "South", State: "Karnataka",
			City: "Bengaluru", Channel: "GT", Deployed: "yes",
			StoreFrontImage: "https://drive.google.com/file/d/BROKEN1/view",
		},
	}
}

func newTestServer(t *testing.T, records []survey.Record, fetcher imageresolver.Fetcher) *httpcontroller.Server {
	t.Helper()

	normalizer := drivelink.New(1000)
	cache := imageresolver.NewCache(fetcher, nil, false)
	preloader := imageresolver.NewPreloader(cache, normalizer, 5, 2)
	settings := &conf.Settings{}
	settings.Dashboard.Host = "127.0.0.1"
	settings.Dashboard.Port = 0

	return httpcontroller.New(settings, records, cache, preloader, normalizer, nil)
}

func doJSON(t *testing.T, s *httpcontroller.Server, target string, out any) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, target, nil)
	rec := httptest.NewRecorder()
	s.Echo.ServeHTTP(rec, req)
	if out != nil && rec.Code == http.StatusOK {
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), out))
	}
	return rec
}

func TestHandleSummary(t *testing.T) {
	t.Parallel()

	s := newTestServer(t, dashboardFixture(), &stubFetcher{})

	var body struct {
		TotalStores int `json:"total_stores"`
		Deployed    int `json:"deployed"`
		NotDeployed int `json:"not_deployed"`
		Stores      []struct {
			StoreName string `json:"store_name"`
			Reason    string `json:"reason"`
		} `json:"not_deployed_stores"`
	}

	rec := doJSON(t, s, "/api/v1/summary", &body)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, 3, body.TotalStores)
	assert.Equal(t, 2, body.Deployed)
	assert.Equal(t, 1, body.NotDeployed)
	require.Len(t, body.Stores, 1)
	assert.Equal(t, "Patel Stores", body.Stores[0].StoreName)
	assert.Equal(t, "Shutter closed", body.Stores[0].Reason)
}

func TestHandleSummary_Filtered(t *testing.T) {
	t.Parallel()

	s := newTestServer(t, dashboardFixture(), &stubFetcher{})

	var body struct {
		TotalStores int `json:"total_stores"`
		Deployed    int `json:"deployed"`
	}
	rec := doJSON(t, s, "/api/v1/summary?zone=North&zone=South", &body)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, 2, body.TotalStores)
	assert.Equal(t, 2, body.Deployed)
}

func TestHandleRecords(t *testing.T) {
	t.Parallel()

	s := newTestServer(t, dashboardFixture(), &stubFetcher{})

	var body struct {
		Total   int `json:"total"`
		Records []struct {
			Index     int    `json:"index"`
			StoreName string `json:"store_name"`
		} `json:"records"`
	}
	rec := doJSON(t, s, "/api/v1/records?channel=GT", &body)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, 2, body.Total)
	require.Len(t, body.Records, 2)
	assert.Equal(t, "Sharma Electronics", body.Records[0].StoreName)
	assert.Equal(t, "Rao Traders", body.Records[1].StoreName)

	// The index addresses the source order, not the filtered order, so a
	// filtered client can still reach the record-images endpoint.
	assert.Equal(t, 0, body.Records[0].Index)
	assert.Equal(t, 2, body.Records[1].Index)
}

func TestHandleRecords_IndexAddressesImages(t *testing.T) {
	t.Parallel()

	s := newTestServer(t, dashboardFixture(), &stubFetcher{})

	var listing struct {
		Records []struct {
			Index     int    `json:"index"`
			StoreName string `json:"store_name"`
		} `json:"records"`
	}
	rec := doJSON(t, s, "/api/v1/records?zone=South", &listing)
	require.Equal(t, http.StatusOK, rec.Code)
	require.Len(t, listing.Records, 1)

	var images httpcontroller.RecordImagesResponse
	rec = doJSON(t, s, fmt.Sprintf("/api/v1/records/%d/images", listing.Records[0].Index), &images)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, listing.Records[0].StoreName, images.StoreName)
	assert.Equal(t, "Rao Traders", images.StoreName)
}

func TestHandleFilters(t *testing.T) {
	t.Parallel()

	s := newTestServer(t, dashboardFixture(), &stubFetcher{})

	var body struct {
		Zones    []string `json:"zones"`
		States   []string `json:"states"`
		Cities   []string `json:"cities"`
		Channels []string `json:"channels"`
	}
	rec := doJSON(t, s, "/api/v1/filters", &body)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, []string{"North", "South", "West"}, body.Zones)
	assert.Equal(t, []string{"GT", "MT"}, body.Channels)
}

func TestHandleRecordImages(t *testing.T) {
	t.Parallel()

	fetcher := &stubFetcher{failing: map[string]bool{
		"https://lh3.googleusercontent.com/d/BROKEN1=w1000": true,
	}}
	s := newTestServer(t, dashboardFixture(), fetcher)

	var body httpcontroller.RecordImagesResponse
	rec := doJSON(t, s, "/api/v1/records/0/images", &body)
	require.Equal(t, http.StatusOK, rec.Code)

	assert.Equal(t, 0, body.Index)
	assert.Equal(t, "Sharma Electronics", body.StoreName)
	require.Len(t, body.Images, 4)

	front := body.Images[0]
	assert.Equal(t, survey.SlotStoreFront, front.Label)
	assert.Equal(t, httpcontroller.SlotStatusOK, front.Status)
	assert.Equal(t, "image/jpeg", front.ContentType)
	assert.NotEmpty(t, front.Encoded)
	assert.True(t, strings.HasPrefix(front.DataURI, "data:image/jpeg;base64,"))

	assert.Equal(t, httpcontroller.SlotStatusOK, body.Images[1].Status)
	assert.Equal(t, httpcontroller.SlotStatusNoImage, body.Images[2].Status)
	assert.Empty(t, body.Images[2].Encoded)
	assert.Equal(t, httpcontroller.SlotStatusNoImage, body.Images[3].Status)
}

func TestHandleRecordImages_BrokenLink(t *testing.T) {
	t.Parallel()

	fetcher := &stubFetcher{failing: map[string]bool{
		"https://lh3.googleusercontent.com/d/BROKEN1=w1000": true,
	}}
	s := newTestServer(t, dashboardFixture(), fetcher)

	var body httpcontroller.RecordImagesResponse
	rec := doJSON(t, s, "/api/v1/records/2/images", &body)
	require.Equal(t, http.StatusOK, rec.Code)

	assert.Equal(t, httpcontroller.SlotStatusUnavailable, body.Images[0].Status)
	assert.Empty(t, body.Images[0].Encoded)
}

func TestHandleRecordImages_PreloadsWindow(t *testing.T) {
	t.Parallel()

	fetcher := &stubFetcher{}
	s := newTestServer(t, dashboardFixture(), fetcher)

	doJSON(t, s, "/api/v1/records/0/images", nil)
	// All three records share one five-record window: three distinct URLs.
	assert.EqualValues(t, 3, fetcher.fetchCount())

	// Navigating within the window answers entirely from cache.
	doJSON(t, s, "/api/v1/records/1/images", nil)
	doJSON(t, s, "/api/v1/records/2/images", nil)
	assert.EqualValues(t, 3, fetcher.fetchCount())
}

func TestHandleRecordImages_BadIndex(t *testing.T) {
	t.Parallel()

	s := newTestServer(t, dashboardFixture(), &stubFetcher{})

	rec := doJSON(t, s, "/api/v1/records/nope/images", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = doJSON(t, s, "/api/v1/records/99/images", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = doJSON(t, s, "/api/v1/records/-1/images", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestHealthz(t *testing.T) {
	t.Parallel()

	s := newTestServer(t, dashboardFixture(), &stubFetcher{})
	rec := doJSON(t, s, "/healthz", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
}
