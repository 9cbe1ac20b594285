package slog

import (
	"context"
	"log/slog"
	"time"

	"github.com/fwojciec/entrel"
)

// Ensure LoggingAnalyzer implements entrel.Analyzer.
var _ entrel.Analyzer = (*LoggingAnalyzer)(nil)

// LoggingAnalyzer wraps an Analyzer with logging.
type LoggingAnalyzer struct {
	next   entrel.Analyzer
	logger *slog.Logger
}

// NewLoggingAnalyzer creates a new LoggingAnalyzer.
func NewLoggingAnalyzer(next entrel.Analyzer, logger *slog.Logger) *LoggingAnalyzer {
	return &LoggingAnalyzer{next: next, logger: logger}
}

// Analyze delegates to the wrapped analyzer and logs the outcome.
func (a *LoggingAnalyzer) Analyze(ctx context.Context, url string) (analysis *entrel.Analysis, err error) {
	defer func(begin time.Time) {
		attrs := []any{"url", url, "duration", time.Since(begin), "err", err}
		if analysis != nil {
			attrs = append(attrs, "tokens", analysis.Tokens, "truncated", analysis.Truncated)
		}
		a.logger.Info("analyze", attrs...)
	}(time.Now())
	return a.next.Analyze(ctx, url)
}
