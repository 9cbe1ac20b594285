// Package rod fetches JavaScript-rendered pages with headless Chrome.
package rod

import (
	"context"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/fwojciec/entrel"
	"github.com/go-rod/rod/lib/proto"
)

// DefaultFetchTimeout bounds navigation and rendering of a single page.
const DefaultFetchTimeout = 30 * time.Second

// Ensure Fetcher implements entrel.Fetcher at compile time.
var _ entrel.Fetcher = (*Fetcher)(nil)

// Fetcher retrieves rendered HTML from URLs using Chrome browser automation.
// The browser is recycled periodically by a BrowserManager.
// Fetcher is safe for concurrent use by multiple goroutines.
type Fetcher struct {
	manager *BrowserManager
	timeout time.Duration
	closed  atomic.Bool
}

// Option configures a Fetcher.
type Option func(*fetcherConfig)

type fetcherConfig struct {
	timeout  time.Duration
	maxPages int64
	binPath  string
	logger   *slog.Logger
}

// WithFetchTimeout sets the per-page timeout.
func WithFetchTimeout(d time.Duration) Option {
	return func(c *fetcherConfig) {
		c.timeout = d
	}
}

// WithRecycleAfter sets how many pages the browser opens before it is
// replaced with a fresh instance. Zero or less disables replacement.
func WithRecycleAfter(pages int64) Option {
	return func(c *fetcherConfig) {
		c.maxPages = pages
	}
}

// WithBrowserBin sets the Chrome or Chromium executable to launch. An empty
// path keeps the launcher's lookup.
func WithBrowserBin(path string) Option {
	return func(c *fetcherConfig) {
		c.binPath = path
	}
}

// WithLogger sets the logger used for browser lifecycle events.
func WithLogger(logger *slog.Logger) Option {
	return func(c *fetcherConfig) {
		c.logger = logger
	}
}

// NewFetcher creates a new Fetcher that launches a headless Chrome browser.
// Close must be called when the Fetcher is no longer needed.
//
// Returns an error if Chrome/Chromium cannot be found or launched.
func NewFetcher(opts ...Option) (*Fetcher, error) {
	cfg := &fetcherConfig{
		timeout:  DefaultFetchTimeout,
		maxPages: DefaultMaxPages,
	}
	for _, opt := range opts {
		opt(cfg)
	}

	managerOpts := []ManagerOption{WithMaxPages(cfg.maxPages), WithManagerBrowserBin(cfg.binPath)}
	if cfg.logger != nil {
		managerOpts = append(managerOpts, WithManagerLogger(cfg.logger))
	}
	manager, err := NewBrowserManager(managerOpts...)
	if err != nil {
		return nil, err
	}

	return &Fetcher{manager: manager, timeout: cfg.timeout}, nil
}

// Fetch navigates to the URL and returns the rendered HTML.
// Navigation failures return EUNAVAILABLE; context errors are returned as is.
func (f *Fetcher) Fetch(ctx context.Context, url string) (string, error) {
	if f.closed.Load() {
		return "", entrel.Errorf(entrel.EINVALID, "fetcher is closed")
	}
	if url == "" {
		return "", entrel.Errorf(entrel.EINVALID, "URL required")
	}
	if err := ctx.Err(); err != nil {
		return "", err
	}

	ctx, cancel := context.WithTimeout(ctx, f.timeout)
	defer cancel()

	browser, release, err := f.manager.Browser()
	if err != nil {
		return "", err
	}
	defer release()

	page, err := browser.Page(proto.TargetCreateTarget{})
	if err != nil {
		return "", entrel.Errorf(entrel.EUNAVAILABLE, "open page: %v", err)
	}
	defer page.Close()

	page = page.Context(ctx)

	if err := page.Navigate(url); err != nil {
		return "", f.fetchError(ctx, url, err)
	}
	if err := page.WaitLoad(); err != nil {
		return "", f.fetchError(ctx, url, err)
	}

	html, err := page.HTML()
	if err != nil {
		return "", f.fetchError(ctx, url, err)
	}
	return html, nil
}

func (f *Fetcher) fetchError(ctx context.Context, url string, err error) error {
	if ctx.Err() != nil {
		return ctx.Err()
	}
	return entrel.Errorf(entrel.EUNAVAILABLE, "render %s: %v", url, err)
}

// Close releases browser resources. Close is safe to call multiple times.
func (f *Fetcher) Close() error {
	if !f.closed.CompareAndSwap(false, true) {
		return nil
	}
	return f.manager.Close()
}

// LauncherPID returns the process ID of the browser launcher.
func (f *Fetcher) LauncherPID() int {
	return f.manager.LauncherPID()
}
