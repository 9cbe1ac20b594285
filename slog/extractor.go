package slog

import (
	"context"
	"log/slog"
	"time"

	"github.com/fwojciec/entrel"
)

// Ensure LoggingExtractor implements entrel.Extractor.
var _ entrel.Extractor = (*LoggingExtractor)(nil)

// LoggingExtractor wraps an Extractor with logging. Consistency problems in
// the model output are logged as warnings; the extraction is returned
// unchanged.
type LoggingExtractor struct {
	next   entrel.Extractor
	logger *slog.Logger
}

// NewLoggingExtractor creates a new LoggingExtractor.
func NewLoggingExtractor(next entrel.Extractor, logger *slog.Logger) *LoggingExtractor {
	return &LoggingExtractor{next: next, logger: logger}
}

// Extract delegates to the wrapped extractor and logs the result.
func (e *LoggingExtractor) Extract(ctx context.Context, text string) (x *entrel.Extraction, err error) {
	defer func(begin time.Time) {
		var entities, relationships int
		if x != nil {
			entities, relationships = len(x.Entities), len(x.Relationships)
		}
		e.logger.Info("extract",
			"chars", len(text),
			"entities", entities,
			"relationships", relationships,
			"duration", time.Since(begin),
			"err", err,
		)
		for _, problem := range x.Inspect() {
			e.logger.Warn("extraction problem", "problem", problem)
		}
	}(time.Now())
	return e.next.Extract(ctx, text)
}
