package repository

import (
	"context"
	"time"
)

// FetchResult is a fully rendered page.
type FetchResult struct {
	URL            string
	HTML           string
	HTTPStatusCode int
	Duration       time.Duration
}

// PageFetcher defines the contract for the rendering page fetcher.
type PageFetcher interface {
	// Fetch renders a URL and returns its final HTML, or one of
	// ErrCrawlTimeout, ErrNavigationFailed, ErrContentRestricted.
	Fetch(ctx context.Context, url string) (*FetchResult, error)
}
