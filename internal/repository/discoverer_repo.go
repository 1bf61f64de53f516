package repository

import "context"

// LinkDiscoverer finds the same-host links of a single page.
type LinkDiscoverer interface {
	// Discover never fails: on any error it returns an empty list and logs the cause.
	Discover(ctx context.Context, baseURL string) []string
}
