package category

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	oerrors "github.com/ickyicky/folder-observer/internal/errors"
)

// maxBodyBytes bounds how much of a lookup page is read.
const maxBodyBytes = 2 << 20

// Fetcher retrieves the document describing an extension.
type Fetcher interface {
	Fetch(ctx context.Context, url string) ([]byte, error)
}

// FetcherFunc adapts a function to the Fetcher interface.
type FetcherFunc func(ctx context.Context, url string) ([]byte, error)

// Fetch calls f.
func (f FetcherFunc) Fetch(ctx context.Context, url string) ([]byte, error) {
	return f(ctx, url)
}

// HTTPFetcher performs plain GET requests.
type HTTPFetcher struct {
	client    *http.Client
	userAgent string
}

// NewHTTPFetcher creates a fetcher whose requests time out after timeout.
func NewHTTPFetcher(timeout time.Duration) *HTTPFetcher {
	return &HTTPFetcher{
		client:    &http.Client{Timeout: timeout},
		userAgent: "folder-observer",
	}
}

// Fetch returns the response body of GET url.
// Transport failures and non-2xx responses are lookup errors.
func (f *HTTPFetcher) Fetch(ctx context.Context, url string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, oerrors.New(oerrors.ErrCodeLookupTransport, "create lookup request", err)
	}
	req.Header.Set("User-Agent", f.userAgent)

	resp, err := f.client.Do(req)
	if err != nil {
		return nil, oerrors.New(oerrors.ErrCodeLookupTransport, "lookup request failed", err).
			WithDetail("url", url)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, maxBodyBytes))
		lerr := oerrors.New(oerrors.ErrCodeLookupStatus,
			fmt.Sprintf("lookup returned status %d", resp.StatusCode), nil).
			WithDetail("url", url)
		lerr.Retryable = resp.StatusCode >= 500 || resp.StatusCode == http.StatusTooManyRequests
		return nil, lerr
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return nil, oerrors.New(oerrors.ErrCodeLookupTransport, "read lookup response", err).
			WithDetail("url", url)
	}
	return body, nil
}
