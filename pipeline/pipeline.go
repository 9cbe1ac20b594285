// Package pipeline runs the fetch, normalize, truncate, extract sequence for
// a single URL.
package pipeline

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/url"
	"strings"
	"time"

	"github.com/cespare/xxhash/v2"
	"github.com/fwojciec/entrel"
)

// Ensure Analyzer implements entrel.Analyzer at compile time.
var _ entrel.Analyzer = (*Analyzer)(nil)

// Analyzer extracts entities and relationships from one web page.
//
// By default a page that cannot be fetched is analyzed as empty text, so
// the model still runs and the result is an empty extraction. With Strict
// set, fetch failures and a missing URL are returned as errors instead.
type Analyzer struct {
	Fetcher   entrel.Fetcher
	Converter entrel.Converter
	Tokenizer entrel.Tokenizer
	Extractor entrel.Extractor

	// ContentExtractor, if set, narrows the page to its main content
	// before conversion. The full page is used when it finds nothing.
	ContentExtractor entrel.ContentExtractor

	// Analyses, if set, records every completed analysis. Recording
	// failures are logged and do not fail the analysis.
	Analyses entrel.AnalysisService

	// Limiter, if set, throttles fetches per host.
	Limiter entrel.HostLimiter

	// RetryDelays are the waits between fetch attempts. Nil means a single
	// attempt.
	RetryDelays []time.Duration

	// TokenBudget caps the tokens of page text sent to the model. Zero
	// means the default context window minus the reserved tokens.
	TokenBudget int

	// Provider and Model describe the extractor in recorded analyses.
	Provider string
	Model    string

	Strict bool
	Logger *slog.Logger

	// Now returns the current time. Defaults to time.Now.
	Now func() time.Time
}

// Analyze runs the pipeline for rawURL.
func (a *Analyzer) Analyze(ctx context.Context, rawURL string) (*entrel.Analysis, error) {
	logger := a.logger()

	html, fetchErr := a.fetch(ctx, rawURL)
	if fetchErr != nil {
		if a.Strict || ctx.Err() != nil {
			return nil, fetchErr
		}
		logger.Warn("fetch failed, continuing with empty content", "url", rawURL, "err", fetchErr)
		html = ""
	}

	html = a.mainContent(html, logger)

	text, err := a.Converter.Convert(html)
	if err != nil {
		return nil, fmt.Errorf("convert: %w", err)
	}

	tr, err := entrel.Truncate(ctx, a.Tokenizer, text, a.budget())
	if err != nil {
		return nil, fmt.Errorf("truncate: %w", err)
	}
	if tr.Truncated {
		logger.Info("truncated page text", "url", rawURL, "tokens", tr.Tokens)
	}

	extraction, err := a.Extractor.Extract(ctx, tr.Text)
	if err != nil {
		return nil, fmt.Errorf("extract: %w", err)
	}

	analysis := &entrel.Analysis{
		SourceURL:   rawURL,
		Provider:    a.Provider,
		Model:       a.Model,
		Extraction:  extraction,
		Tokens:      tr.Tokens,
		Truncated:   tr.Truncated,
		ContentHash: ComputeHash(tr.Text),
		CreatedAt:   a.now().UTC(),
	}
	if fetchErr != nil {
		analysis.FetchError = entrel.ErrorMessage(fetchErr)
	}

	if a.Analyses != nil && analysis.SourceURL != "" {
		if err := a.Analyses.CreateAnalysis(ctx, analysis); err != nil {
			logger.Warn("record analysis", "url", rawURL, "err", err)
		}
	}

	return analysis, nil
}

// fetch retrieves the page, honoring the host limiter and retry delays.
func (a *Analyzer) fetch(ctx context.Context, rawURL string) (string, error) {
	if rawURL == "" {
		return "", entrel.Errorf(entrel.EINVALID, "url parameter required")
	}

	u, err := url.Parse(rawURL)
	if err != nil || u.Host == "" || (u.Scheme != "http" && u.Scheme != "https") {
		return "", entrel.Errorf(entrel.EINVALID, "invalid url %q", rawURL)
	}

	if a.Limiter != nil {
		if err := a.Limiter.Wait(ctx, u.Host); err != nil {
			return "", err
		}
	}

	return FetchWithRetry(ctx, rawURL, a.Fetcher.Fetch, a.RetryDelays, a.logger())
}

// mainContent returns the main content of html when a content extractor is
// configured and finds some, otherwise html unchanged.
func (a *Analyzer) mainContent(html string, logger *slog.Logger) string {
	if a.ContentExtractor == nil || strings.TrimSpace(html) == "" {
		return html
	}

	result, err := a.ContentExtractor.Extract(html)
	if err != nil {
		logger.Debug("main content extraction failed, using full page", "err", err)
		return html
	}
	if strings.TrimSpace(result.ContentHTML) == "" {
		logger.Debug("no main content found, using full page")
		return html
	}
	return result.ContentHTML
}

func (a *Analyzer) budget() int {
	if a.TokenBudget > 0 {
		return a.TokenBudget
	}
	return entrel.TokenBudget(entrel.DefaultContextWindow, entrel.DefaultReservedTokens)
}

func (a *Analyzer) logger() *slog.Logger {
	if a.Logger != nil {
		return a.Logger
	}
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func (a *Analyzer) now() time.Time {
	if a.Now != nil {
		return a.Now()
	}
	return time.Now()
}

// ComputeHash returns the xxhash of content as a hex string.
func ComputeHash(content string) string {
	return fmt.Sprintf("%x", xxhash.Sum64String(content))
}
