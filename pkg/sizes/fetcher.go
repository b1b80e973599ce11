package sizes

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
)

// ErrNoEndpoint is returned when no size service is configured.
var ErrNoEndpoint = errors.New("size source endpoint not configured")

// HTTPFetcher asks a size service for the sizes offered on a product page.
// The service answers GET {endpoint}?url={page} with {"sizes": [...]}.
type HTTPFetcher struct {
	endpoint string
	client   *http.Client
}

// NewHTTPFetcher returns a fetcher for endpoint. A nil client uses
// http.DefaultClient; timeouts come from the request context.
func NewHTTPFetcher(endpoint string, client *http.Client) *HTTPFetcher {
	if client == nil {
		client = http.DefaultClient
	}
	return &HTTPFetcher{endpoint: endpoint, client: client}
}

type sizesResponse struct {
	Sizes []string `json:"sizes"`
	Error string   `json:"error,omitempty"`
}

// FetchSizes implements Fetcher.
func (f *HTTPFetcher) FetchSizes(ctx context.Context, page string) ([]string, error) {
	if f.endpoint == "" {
		return nil, ErrNoEndpoint
	}
	if page == "" {
		return nil, errors.New("empty source url")
	}
	u, err := url.Parse(f.endpoint)
	if err != nil {
		return nil, fmt.Errorf("parse endpoint: %w", err)
	}
	q := u.Query()
	q.Set("url", page)
	u.RawQuery = q.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return nil, err
	}
	resp, err := f.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return nil, fmt.Errorf("read sizes: %w", err)
	}
	var out sizesResponse
	if err := json.Unmarshal(body, &out); err != nil {
		return nil, fmt.Errorf("decode sizes (status %d): %w", resp.StatusCode, err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("size source returned %d: %s", resp.StatusCode, out.Error)
	}
	if out.Sizes == nil {
		out.Sizes = []string{}
	}
	return out.Sizes, nil
}
