// Package readability isolates the main article of a page using go-readability.
package readability

import (
	"strings"

	"github.com/fwojciec/entrel"
	"github.com/go-shiori/go-readability"
)

// Ensure Extractor implements entrel.ContentExtractor at compile time.
var _ entrel.ContentExtractor = (*Extractor)(nil)

// Extractor wraps go-readability to strip boilerplate around the main content.
type Extractor struct{}

// NewExtractor creates a new Extractor.
func NewExtractor() *Extractor {
	return &Extractor{}
}

// Extract returns the main content of rawHTML as HTML.
func (e *Extractor) Extract(rawHTML string) (*entrel.ContentResult, error) {
	if strings.TrimSpace(rawHTML) == "" {
		return nil, entrel.Errorf(entrel.EINVALID, "empty HTML input")
	}

	article, err := readability.FromReader(strings.NewReader(rawHTML), nil)
	if err != nil {
		return nil, entrel.Errorf(entrel.ENOTFOUND, "no main content: %v", err)
	}

	return &entrel.ContentResult{
		Title:       article.Title,
		ContentHTML: article.Content,
	}, nil
}
