package imageresolver

import (
	"context"
	"encoding/base64"
	"net/http"
	"testing"
	"time"

	"github.com/jarcoal/httpmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/asmavensocial/installation-dashbaord/internal/conf"
	"github.com/asmavensocial/installation-dashbaord/internal/errors"
)

const testImageURL = "https://lh3.googleusercontent.com/d/ABC123=w1000"

func newMockedFetcher(t *testing.T) *HTTPFetcher {
	t.Helper()
	f := NewHTTPFetcher(&conf.FetchSettings{Timeout: 2 * time.Second}, false)
	httpmock.ActivateNonDefault(f.client.StdClient())
	t.Cleanup(httpmock.DeactivateAndReset)
	t.Cleanup(f.Close)
	return f
}

func TestHTTPFetcher_Success(t *testing.T) {
	f := newMockedFetcher(t)

	payload := []byte{0xFF, 0xD8, 0xFF, 0xE0, 0x00, 0x10} // JPEG SOI marker
	httpmock.RegisterResponder(http.MethodGet, testImageURL,
		func(req *http.Request) (*http.Response, error) {
			resp := httpmock.NewBytesResponse(http.StatusOK, payload)
			resp.Header.Set("Content-Type", "image/jpeg")
			return resp, nil
		})

	img, err := f.Fetch(context.Background(), testImageURL)

	require.NoError(t, err)
	assert.True(t, img.Available())
	assert.Equal(t, "image/jpeg", img.ContentType)
	assert.Equal(t, payload, img.Payload)
	assert.Equal(t, base64.StdEncoding.EncodeToString(payload), img.Encoded)
}

func TestHTTPFetcher_DefaultContentType(t *testing.T) {
	f := newMockedFetcher(t)

	httpmock.RegisterResponder(http.MethodGet, testImageURL,
		httpmock.NewBytesResponder(http.StatusOK, []byte("img")))

	img, err := f.Fetch(context.Background(), testImageURL)

	require.NoError(t, err)
	assert.Equal(t, "image/jpeg", img.ContentType)
}

func TestHTTPFetcher_ContentTypeParameters(t *testing.T) {
	f := newMockedFetcher(t)

	httpmock.RegisterResponder(http.MethodGet, testImageURL,
		func(req *http.Request) (*http.Response, error) {
			resp := httpmock.NewBytesResponse(http.StatusOK, []byte("img"))
			resp.Header.Set("Content-Type", "image/png; charset=binary")
			return resp, nil
		})

	img, err := f.Fetch(context.Background(), testImageURL)

	require.NoError(t, err)
	assert.Equal(t, "image/png", img.ContentType)
}

func TestHTTPFetcher_HTTPErrorStatuses(t *testing.T) {
	f := newMockedFetcher(t)

	for _, status := range []int{
		http.StatusForbidden,
		http.StatusNotFound,
		http.StatusTooManyRequests,
		http.StatusInternalServerError,
	} {
		httpmock.Reset()
		httpmock.RegisterResponder(http.MethodGet, testImageURL,
			httpmock.NewStringResponder(status, "nope"))

		img, err := f.Fetch(context.Background(), testImageURL)

		require.Error(t, err, "status %d", status)
		assert.True(t, errors.Is(err, ErrImageUnavailable), "status %d", status)
		assert.False(t, img.Available())
	}
}

func TestHTTPFetcher_TransportError(t *testing.T) {
	f := newMockedFetcher(t)

	httpmock.RegisterResponder(http.MethodGet, testImageURL,
		httpmock.NewErrorResponder(errors.NewStd("connection refused")))

	img, err := f.Fetch(context.Background(), testImageURL)

	require.Error(t, err)
	assert.False(t, errors.Is(err, ErrImageUnavailable))
	assert.False(t, img.Available())
}

func TestHTTPFetcher_PayloadTooLarge(t *testing.T) {
	f := NewHTTPFetcher(&conf.FetchSettings{
		Timeout:     2 * time.Second,
		MaxBodySize: 8,
	}, false)
	httpmock.ActivateNonDefault(f.client.StdClient())
	t.Cleanup(httpmock.DeactivateAndReset)
	t.Cleanup(f.Close)

	httpmock.RegisterResponder(http.MethodGet, testImageURL,
		httpmock.NewBytesResponder(http.StatusOK, make([]byte, 64)))

	_, err := f.Fetch(context.Background(), testImageURL)

	require.Error(t, err)
	assert.Contains(t, err.Error(), "exceeds")
}

func TestHTTPFetcher_CancelledContext(t *testing.T) {
	f := newMockedFetcher(t)

	httpmock.RegisterResponder(http.MethodGet, testImageURL,
		httpmock.NewStringResponder(http.StatusOK, "img"))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := f.Fetch(ctx, testImageURL)
	require.Error(t, err)
}

func TestContentTypeOf(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "image/jpeg", contentTypeOf(""))
	assert.Equal(t, "image/jpeg", contentTypeOf(";;;"))
	assert.Equal(t, "image/png", contentTypeOf("image/png"))
	assert.Equal(t, "image/webp", contentTypeOf("image/webp; q=0.8"))
}
