package imageresolver

import (
	"context"
	"encoding/base64"
	"io"
	"log/slog"
	"mime"
	"net/http"
	"time"

	"github.com/google/uuid"
	"golang.org/x/time/rate"

	"github.com/asmavensocial/installation-dashbaord/internal/conf"
	"github.com/asmavensocial/installation-dashbaord/internal/errors"
	"github.com/asmavensocial/installation-dashbaord/internal/httpclient"
	"github.com/asmavensocial/installation-dashbaord/internal/logging"
)

const (
	// defaultFetchTimeout is the single consistent timeout used for every
	// image request when none is configured.
	defaultFetchTimeout = 6 * time.Second

	// defaultContentType is assumed when the server omits the header; the
	// thumbnail service serves JPEG unless asked otherwise.
	defaultContentType = "image/jpeg"

	defaultMaxBodySize = int64(20 * 1024 * 1024)
)

// ErrImageUnavailable marks a fetch that completed but did not yield an image
// (non-200 status). Callers can test for it with errors.Is.
var ErrImageUnavailable = errors.NewStd("image unavailable")

// HTTPFetcher retrieves images over HTTP with a bounded timeout and a
// politeness rate limit against the image host. A single attempt is made per
// call; retry avoidance is the Cache's job.
type HTTPFetcher struct {
	client  *httpclient.Client
	limiter *rate.Limiter
	timeout time.Duration
	maxBody int64
	logger  *slog.Logger
	debug   bool
}

// NewHTTPFetcher builds a fetcher from the fetch settings. A nil settings
// pointer yields a fetcher with defaults.
func NewHTTPFetcher(settings *conf.FetchSettings, debug bool) *HTTPFetcher {
	timeout := defaultFetchTimeout
	maxBody := defaultMaxBodySize
	userAgent := ""
	limit := rate.Inf
	burst := 1

	if settings != nil {
		if settings.Timeout > 0 {
			timeout = settings.Timeout
		}
		if settings.MaxBodySize > 0 {
			maxBody = settings.MaxBodySize
		}
		userAgent = settings.UserAgent
		if settings.RateLimit > 0 {
			limit = rate.Limit(settings.RateLimit)
		}
		if settings.Burst > 0 {
			burst = settings.Burst
		}
	}

	logger := logging.ForService("imageresolver.fetcher")
	if logger == nil {
		logger = slog.Default().With("service", "imageresolver.fetcher")
	}

	return &HTTPFetcher{
		client: httpclient.New(&httpclient.Config{
			DefaultTimeout: timeout,
			UserAgent:      userAgent,
		}),
		limiter: rate.NewLimiter(limit, burst),
		timeout: timeout,
		maxBody: maxBody,
		logger:  logger,
		debug:   debug,
	}
}

// Fetch issues a single GET for url. On 200 it returns the payload with its
// base64 transport encoding and content type; any other outcome is an error
// the caller converts into a negative cache entry.
func (f *HTTPFetcher) Fetch(ctx context.Context, url string) (StoreImage, error) {
	reqID := uuid.New().String()[:8]

	if err := f.limiter.Wait(ctx); err != nil {
		return StoreImage{}, errors.New(err).
			Component("imageresolver").
			Category(errors.CategoryTimeout).
			Context("url", url).
			Context("request_id", reqID).
			Build()
	}

	reqCtx, cancel := context.WithTimeout(ctx, f.timeout)
	defer cancel()

	if f.debug {
		f.logger.Debug("Fetching image", "url", url, "request_id", reqID, "timeout", f.timeout)
	}

	resp, err := f.client.Get(reqCtx, url)
	if err != nil {
		return StoreImage{}, errors.New(err).
			Component("imageresolver").
			Category(errors.CategoryNetwork).
			Context("url", url).
			Context("request_id", reqID).
			Build()
	}
	defer func() {
		if closeErr := resp.Body.Close(); closeErr != nil {
			f.logger.Debug("Failed to close response body", "url", url, "error", closeErr)
		}
	}()

	if resp.StatusCode != http.StatusOK {
		return StoreImage{}, errors.New(ErrImageUnavailable).
			Component("imageresolver").
			Category(errors.CategoryImageFetch).
			Context("url", url).
			Context("request_id", reqID).
			Context("status_code", resp.StatusCode).
			Build()
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, f.maxBody+1))
	if err != nil {
		return StoreImage{}, errors.New(err).
			Component("imageresolver").
			Category(errors.CategoryNetwork).
			Context("url", url).
			Context("request_id", reqID).
			Build()
	}
	if int64(len(body)) > f.maxBody {
		return StoreImage{}, errors.Newf("image payload exceeds %d bytes", f.maxBody).
			Component("imageresolver").
			Category(errors.CategoryImageFetch).
			Context("url", url).
			Context("request_id", reqID).
			Build()
	}

	return StoreImage{
		URL:         url,
		ContentType: contentTypeOf(resp.Header.Get("Content-Type")),
		Payload:     body,
		Encoded:     base64.StdEncoding.EncodeToString(body),
	}, nil
}

// Close releases idle connections held by the underlying client.
func (f *HTTPFetcher) Close() {
	f.client.Close()
}

// contentTypeOf strips media type parameters and falls back to the default
// image type when the header is absent or unparseable.
func contentTypeOf(header string) string {
	if header == "" {
		return defaultContentType
	}
	mediaType, _, err := mime.ParseMediaType(header)
	if err != nil {
		return defaultContentType
	}
	return mediaType
}
