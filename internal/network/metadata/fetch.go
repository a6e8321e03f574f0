// internal/network/metadata/fetch.go
package metadata

import (
	"context"
	"fmt"
	"time"

	apperrors "beacon-network/internal/common/errors"
	commonhttp "beacon-network/internal/common/http"
)

// Fetcher loads one metadata document. A non-2xx status is returned together with an error.
type Fetcher interface {
	Fetch(ctx context.Context, url string) (body []byte, status int, err error)
}

// HTTPFetcher fetches documents with the shared outbound client.
type HTTPFetcher struct {
	client  *commonhttp.Client
	timeout time.Duration
}

func NewHTTPFetcher(client *commonhttp.Client, timeout time.Duration) *HTTPFetcher {
	return &HTTPFetcher{client: client, timeout: timeout}
}

func (f *HTTPFetcher) Fetch(ctx context.Context, url string) ([]byte, int, error) {
	ctx, cancel := context.WithTimeout(ctx, f.timeout)
	defer cancel()

	resp, err := f.client.GetJSON(ctx, url, nil)
	if err != nil {
		return nil, 0, apperrors.NewMetadataFetchFailedError(url, err)
	}
	if resp.StatusCode >= 300 {
		return nil, resp.StatusCode, apperrors.NewMetadataFetchFailedError(url,
			fmt.Errorf("unexpected status %d", resp.StatusCode))
	}
	return resp.Body, resp.StatusCode, nil
}
