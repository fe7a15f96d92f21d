// Package imageresolver turns canonical image URLs into displayable payloads:
// it fetches them over HTTP, memoizes the results for the life of the process,
// and preloads a look-ahead window of records so the interactive viewer does
// not stall on navigation.
package imageresolver

import (
	"context"
	"log/slog"
	"time"

	gocache "github.com/patrickmn/go-cache"
	"golang.org/x/sync/singleflight"

	"github.com/asmavensocial/installation-dashbaord/internal/logging"
	"github.com/asmavensocial/installation-dashbaord/internal/observability/metrics"
)

// StoreImage is the terminal result of resolving one canonical URL. A failed
// fetch produces an entry with no payload; both outcomes are cached and never
// mutated after creation.
type StoreImage struct {
	URL         string    `json:"url"`
	ContentType string    `json:"content_type"`
	Payload     []byte    `json:"-"`
	Encoded     string    `json:"encoded"` // base64 of Payload, ready to embed
	CachedAt    time.Time `json:"cached_at"`
}

// Available reports whether a displayable payload exists. False means the
// display layer should render its "not accessible" indicator.
func (img *StoreImage) Available() bool {
	return img.Encoded != ""
}

// DataURI returns the payload as an embeddable data: URI, or empty when the
// fetch failed.
func (img *StoreImage) DataURI() string {
	if !img.Available() {
		return ""
	}
	return "data:" + img.ContentType + ";base64," + img.Encoded
}

// Fetcher retrieves a single canonical URL. Implementations must treat broken
// links as a normal outcome and return an error rather than panicking.
type Fetcher interface {
	Fetch(ctx context.Context, url string) (StoreImage, error)
}

// Cache memoizes Fetcher results keyed by canonical URL. Entries are
// write-once and live for the process's session lifetime; failures are cached
// too, so a broken link costs exactly one attempt per session. Safe for
// concurrent use: concurrent resolves of the same URL collapse into a single
// fetch.
type Cache struct {
	fetcher Fetcher
	data    *gocache.Cache
	group   singleflight.Group
	metrics *metrics.ImageResolverMetrics
	logger  *slog.Logger
	debug   bool
}

// NewCache creates a session-scoped resolution cache around the given fetcher.
// metrics may be nil.
func NewCache(fetcher Fetcher, m *metrics.ImageResolverMetrics, debug bool) *Cache {
	logger := logging.ForService("imageresolver.cache")
	if logger == nil {
		logger = slog.Default().With("service", "imageresolver.cache")
	}
	return &Cache{
		fetcher: fetcher,
		data:    gocache.New(gocache.NoExpiration, 0),
		metrics: m,
		logger:  logger,
		debug:   debug,
	}
}

// Resolve returns the cached image for url, invoking the fetcher at most once
// per URL per process lifetime. Negative results are returned as-is without
// any network activity.
func (c *Cache) Resolve(ctx context.Context, url string) StoreImage {
	if cached, found := c.data.Get(url); found {
		if c.metrics != nil {
			c.metrics.IncrementCacheHits()
		}
		return cached.(StoreImage)
	}

	if c.metrics != nil {
		c.metrics.IncrementCacheMisses()
	}

	// Collapse concurrent resolves of the same URL into one fetch.
	v, _, _ := c.group.Do(url, func() (any, error) {
		// A previous flight may have stored the entry between our lookup
		// and joining the group.
		if cached, found := c.data.Get(url); found {
			return cached.(StoreImage), nil
		}
		img := c.fetchOnce(ctx, url)
		// A fetch aborted by the caller's cancellation never ran to
		// completion; leave the key unresolved so a later request gets a
		// real attempt. Only completed fetches are terminal.
		if !img.Available() && ctx.Err() != nil {
			return img, nil
		}
		c.data.Set(url, img, gocache.NoExpiration)
		if c.metrics != nil {
			c.metrics.SetCacheEntries(float64(c.data.ItemCount()))
		}
		return img, nil
	})
	return v.(StoreImage)
}

// fetchOnce performs the single fetch attempt for a URL, converting any
// failure into a terminal negative result.
func (c *Cache) fetchOnce(ctx context.Context, url string) StoreImage {
	start := time.Now()
	if c.metrics != nil {
		c.metrics.IncrementFetches()
	}

	img, err := c.fetcher.Fetch(ctx, url)
	duration := time.Since(start)

	if err != nil {
		if ctx.Err() != nil {
			c.logger.Debug("Image fetch aborted by caller",
				"url", url,
				"duration_ms", duration.Milliseconds(),
				"error", err)
			return StoreImage{URL: url, CachedAt: time.Now()}
		}
		if c.metrics != nil {
			c.metrics.IncrementFetchFailures()
		}
		// Expected for expired or mis-shared links; cache the negative
		// result so the link is not retried this session.
		c.logger.Warn("Image fetch failed, caching negative result",
			"url", url,
			"duration_ms", duration.Milliseconds(),
			"error", err)
		return StoreImage{URL: url, CachedAt: time.Now()}
	}

	if c.metrics != nil {
		c.metrics.ObserveFetchDuration(duration.Seconds())
	}
	if c.debug {
		c.logger.Debug("Image fetched and cached",
			"url", url,
			"content_type", img.ContentType,
			"bytes", len(img.Payload),
			"duration_ms", duration.Milliseconds())
	}

	img.URL = url
	img.CachedAt = time.Now()
	return img
}

// Peek reports whether url already has a cached entry, without fetching.
func (c *Cache) Peek(url string) (StoreImage, bool) {
	cached, found := c.data.Get(url)
	if !found {
		return StoreImage{}, false
	}
	return cached.(StoreImage), true
}

// Len returns the number of cached entries, including negative results.
func (c *Cache) Len() int {
	return c.data.ItemCount()
}
