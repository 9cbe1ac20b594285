package rod

import (
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"

	"github.com/fwojciec/entrel"
	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/launcher"
)

// DefaultMaxPages is the number of pages rendered before the browser is
// replaced.
const DefaultMaxPages = 75

// BrowserManager owns a headless Chrome instance and replaces it after a
// fixed number of opened pages. Chrome's resident memory grows with every
// page and never returns to its baseline, which matters for a long-running
// server.
//
// A replaced browser keeps serving the pages already opened in it and shuts
// down when the last of them is released.
//
// BrowserManager is safe for concurrent use.
type BrowserManager struct {
	maxPages int64
	binPath  string
	logger   *slog.Logger
	launch   func() (*generation, error)

	mu      sync.Mutex
	current *generation
	retired map[*generation]struct{}

	recycles atomic.Int64
	closed   atomic.Bool
}

// generation is one launched browser and the pages opened in it.
type generation struct {
	browser  *rod.Browser
	pid      int
	stop     func() error
	opened   int64
	inflight int
}

// ManagerOption configures a BrowserManager.
type ManagerOption func(*BrowserManager)

// WithMaxPages sets how many pages are opened before the browser is
// replaced. Zero or less disables replacement.
func WithMaxPages(n int64) ManagerOption {
	return func(bm *BrowserManager) {
		bm.maxPages = n
	}
}

// WithManagerBrowserBin sets the Chrome or Chromium executable. By default
// the launcher looks for a local install and downloads one if none is found.
func WithManagerBrowserBin(path string) ManagerOption {
	return func(bm *BrowserManager) {
		bm.binPath = path
	}
}

// WithManagerLogger sets the logger used to report browser replacement.
func WithManagerLogger(logger *slog.Logger) ManagerOption {
	return func(bm *BrowserManager) {
		bm.logger = logger
	}
}

// NewBrowserManager launches a headless browser.
// Close must be called when the BrowserManager is no longer needed.
func NewBrowserManager(opts ...ManagerOption) (*BrowserManager, error) {
	bm := &BrowserManager{
		maxPages: DefaultMaxPages,
		logger:   slog.New(slog.DiscardHandler),
		retired:  make(map[*generation]struct{}),
	}
	for _, opt := range opts {
		opt(bm)
	}
	if bm.launch == nil {
		bm.launch = bm.launchChrome
	}

	gen, err := bm.launch()
	if err != nil {
		return nil, err
	}
	bm.current = gen

	return bm, nil
}

// Browser returns the browser to open the next page in, replacing it first
// if it has opened its share of pages. The returned release func must be
// called once the page is closed; a replaced browser stays up until every
// page opened in it has been released.
func (bm *BrowserManager) Browser() (*rod.Browser, func(), error) {
	if bm.closed.Load() {
		return nil, nil, entrel.Errorf(entrel.EINVALID, "browser is closed")
	}

	bm.mu.Lock()
	defer bm.mu.Unlock()

	if bm.current == nil {
		return nil, nil, entrel.Errorf(entrel.EINVALID, "browser is closed")
	}
	if bm.maxPages > 0 && bm.current.opened >= bm.maxPages {
		bm.recycle()
	}

	gen := bm.current
	gen.opened++
	gen.inflight++

	var once sync.Once
	release := func() {
		once.Do(func() { bm.release(gen) })
	}
	return gen.browser, release, nil
}

// Recycles returns how many times the browser has been replaced.
func (bm *BrowserManager) Recycles() int64 {
	return bm.recycles.Load()
}

// Close shuts down the current browser and any replaced browser still
// serving pages. Close is safe to call multiple times.
func (bm *BrowserManager) Close() error {
	if !bm.closed.CompareAndSwap(false, true) {
		return nil
	}

	bm.mu.Lock()
	defer bm.mu.Unlock()

	var err error
	if bm.current != nil {
		err = bm.current.shutdown()
		bm.current = nil
	}
	for gen := range bm.retired {
		if cerr := gen.shutdown(); cerr != nil && err == nil {
			err = cerr
		}
		delete(bm.retired, gen)
	}
	return err
}

// LauncherPID returns the process ID of the current browser launcher, or 0
// once closed.
func (bm *BrowserManager) LauncherPID() int {
	bm.mu.Lock()
	defer bm.mu.Unlock()
	if bm.current == nil {
		return 0
	}
	return bm.current.pid
}

func (bm *BrowserManager) launchChrome() (*generation, error) {
	lnchr := launcher.New().
		Set("disable-background-timer-throttling").
		Set("disable-backgrounding-occluded-windows").
		Set("disable-renderer-backgrounding").
		Set("disable-dev-shm-usage").
		Set("disable-hang-monitor").
		Leakless(true).
		Headless(true)
	if bm.binPath != "" {
		lnchr = lnchr.Bin(bm.binPath)
	}

	u, err := lnchr.Launch()
	if err != nil {
		return nil, entrel.Errorf(entrel.EUNAVAILABLE, "launch browser: %v", err)
	}

	browser := rod.New().ControlURL(u)
	if err := browser.Connect(); err != nil {
		lnchr.Kill()
		return nil, entrel.Errorf(entrel.EUNAVAILABLE, "connect to browser: %v", err)
	}
	stop := func() error {
		err := browser.Close()
		lnchr.Kill()
		return err
	}
	return &generation{browser: browser, pid: lnchr.PID(), stop: stop}, nil
}

// recycle swaps in a fresh browser. The current one stays in service if the
// replacement fails to start. Must be called with mu held.
func (bm *BrowserManager) recycle() {
	gen, err := bm.launch()
	if err != nil {
		bm.logger.Warn("browser recycle failed, keeping current browser", "pages", bm.current.opened, "error", err)
		return
	}

	old := bm.current
	bm.current = gen
	bm.recycles.Add(1)
	bm.logger.Debug("browser recycled", "pages", old.opened, "inflight", old.inflight)

	if old.inflight > 0 {
		bm.retired[old] = struct{}{}
		return
	}
	if err := old.shutdown(); err != nil {
		bm.logger.Debug("closing recycled browser", "error", err)
	}
}

// release records that a page opened in gen has been closed and shuts gen
// down if it was replaced and this was its last page.
func (bm *BrowserManager) release(gen *generation) {
	bm.mu.Lock()
	defer bm.mu.Unlock()

	gen.inflight--
	if _, ok := bm.retired[gen]; !ok || gen.inflight > 0 {
		return
	}
	delete(bm.retired, gen)
	if err := gen.shutdown(); err != nil {
		bm.logger.Debug("closing recycled browser", "error", err)
	}
}

func (g *generation) shutdown() error {
	if err := g.stop(); err != nil {
		return fmt.Errorf("close browser: %w", err)
	}
	return nil
}
