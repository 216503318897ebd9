package repositories

import (
	"context"
	"fmt"
	"net/http"
	"time"
)

// PageFetcher loads the server-rendered results page that hosts the page components.
type PageFetcher interface {
	Fetch(ctx context.Context, url string) (*http.Response, error)
}

type HTTPPageFetcher struct {
	client *http.Client
}

func NewPageFetcher(timeout time.Duration) PageFetcher {
	return &HTTPPageFetcher{
		client: &http.Client{
			Timeout: timeout,
		},
	}
}

func (pf *HTTPPageFetcher) Fetch(ctx context.Context, url string) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to build request for %s: %w", url, err)
	}
	req.Header.Set("Accept", "text/html")

	resp, err := pf.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch URL %s: %w", url, err)
	}
	return resp, nil
}
