// Package trafilatura isolates the main article of a page using go-trafilatura.
package trafilatura

import (
	"bytes"
	"strings"

	"github.com/fwojciec/entrel"
	"github.com/markusmobius/go-trafilatura"
	"golang.org/x/net/html"
)

// Ensure Extractor implements entrel.ContentExtractor at compile time.
var _ entrel.ContentExtractor = (*Extractor)(nil)

// Extractor wraps go-trafilatura to strip boilerplate around the main content.
type Extractor struct {
	// Fallback enables the readability and dom-distiller fallbacks bundled
	// with go-trafilatura.
	Fallback bool
}

// NewExtractor creates a new Extractor with fallback extraction enabled.
func NewExtractor() *Extractor {
	return &Extractor{Fallback: true}
}

// Extract returns the main content of rawHTML as HTML.
func (e *Extractor) Extract(rawHTML string) (*entrel.ContentResult, error) {
	if strings.TrimSpace(rawHTML) == "" {
		return nil, entrel.Errorf(entrel.EINVALID, "empty HTML input")
	}

	result, err := trafilatura.Extract(strings.NewReader(rawHTML), trafilatura.Options{
		EnableFallback: e.Fallback,
		IncludeLinks:   true,
	})
	if err != nil {
		return nil, entrel.Errorf(entrel.ENOTFOUND, "no main content: %v", err)
	}

	var contentHTML string
	if result.ContentNode != nil {
		if contentHTML, err = renderNode(result.ContentNode); err != nil {
			return nil, err
		}
	}

	return &entrel.ContentResult{
		Title:       result.Metadata.Title,
		ContentHTML: contentHTML,
	}, nil
}

func renderNode(n *html.Node) (string, error) {
	var buf bytes.Buffer
	if err := html.Render(&buf, n); err != nil {
		return "", err
	}
	return buf.String(), nil
}
