package entrel

import "context"

// Fetcher retrieves page HTML from URLs.
type Fetcher interface {
	// Fetch retrieves the URL and returns the response body.
	// Non-success responses return an EUNAVAILABLE error.
	// The context controls timeout and cancellation.
	Fetch(ctx context.Context, url string) (html string, err error)

	// Close releases resources held by the fetcher.
	Close() error
}

// HostLimiter provides per-host rate limiting for outbound fetches.
type HostLimiter interface {
	// Wait blocks until the rate limit allows a request to the host.
	// Returns an error if the context is canceled.
	Wait(ctx context.Context, host string) error
}
