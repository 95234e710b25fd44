package resolver

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"beacon/pkg/models"
)

// Fetcher retrieves the full id-to-slug map in one shot.
type Fetcher interface {
	FetchSlugMap(ctx context.Context) (models.SlugMap, error)
}

type HTTPFetcher struct {
	url    string
	client *http.Client
}

func NewHTTPFetcher(url string, client *http.Client) *HTTPFetcher {
	if client == nil {
		client = http.DefaultClient
	}
	return &HTTPFetcher{
		url:    url,
		client: client,
	}
}

func (f *HTTPFetcher) FetchSlugMap(ctx context.Context) (models.SlugMap, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, f.url, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	resp, err := f.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("slug map request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("slug map endpoint returned status: %d", resp.StatusCode)
	}

	var slugs models.SlugMap
	if err := json.NewDecoder(resp.Body).Decode(&slugs); err != nil {
		return nil, fmt.Errorf("failed to decode slug map: %w", err)
	}

	return slugs, nil
}
