package mock

import (
	"context"

	"github.com/fwojciec/entrel"
)

var _ entrel.Extractor = (*Extractor)(nil)

// Extractor is a mock implementation of entrel.Extractor.
type Extractor struct {
	ExtractFn func(ctx context.Context, text string) (*entrel.Extraction, error)
}

func (e *Extractor) Extract(ctx context.Context, text string) (*entrel.Extraction, error) {
	return e.ExtractFn(ctx, text)
}

var _ entrel.ContentExtractor = (*ContentExtractor)(nil)

// ContentExtractor is a mock implementation of entrel.ContentExtractor.
type ContentExtractor struct {
	ExtractFn func(html string) (*entrel.ContentResult, error)
}

func (e *ContentExtractor) Extract(html string) (*entrel.ContentResult, error) {
	return e.ExtractFn(html)
}
