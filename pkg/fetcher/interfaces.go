package fetcher

import "context"

// MarketsClient performs the HTTP request for a single page
type MarketsClient interface {
	Fetch(ctx context.Context, url string) ([]byte, error)
}
