// Package htmltomarkdown renders pages as Markdown for models that benefit
// from document structure such as headings, tables, and code fences.
package htmltomarkdown

import (
	"strings"

	"github.com/JohannesKaufmann/html-to-markdown/v2/converter"
	"github.com/JohannesKaufmann/html-to-markdown/v2/plugin/base"
	"github.com/JohannesKaufmann/html-to-markdown/v2/plugin/commonmark"
	"github.com/JohannesKaufmann/html-to-markdown/v2/plugin/table"
	"github.com/fwojciec/entrel"
)

// Ensure Converter implements entrel.Converter at compile time.
var _ entrel.Converter = (*Converter)(nil)

// mediaTags carry no text a model can use and are dropped unless images are
// kept.
var mediaTags = []string{"img", "picture", "video", "audio"}

// controlTags never carry page prose.
var controlTags = []string{"svg", "canvas", "iframe", "noscript", "template", "form", "button", "input", "select", "textarea"}

// Converter renders HTML as Markdown with html-to-markdown.
type Converter struct {
	conv *converter.Converter
}

// Option configures a Converter.
type Option func(*options)

type options struct {
	keepImages bool
}

// WithImages keeps images as Markdown image links.
func WithImages() Option {
	return func(o *options) {
		o.keepImages = true
	}
}

// NewConverter creates a new Converter.
func NewConverter(opts ...Option) *Converter {
	var o options
	for _, opt := range opts {
		opt(&o)
	}

	conv := converter.NewConverter(
		converter.WithPlugins(
			base.NewBasePlugin(),
			commonmark.NewCommonmarkPlugin(),
			table.NewTablePlugin(),
		),
	)
	for _, tag := range controlTags {
		conv.Register.TagType(tag, converter.TagTypeRemove, converter.PriorityStandard)
	}
	if !o.keepImages {
		for _, tag := range mediaTags {
			conv.Register.TagType(tag, converter.TagTypeRemove, converter.PriorityStandard)
		}
	}

	return &Converter{conv: conv}
}

// Convert transforms HTML content into Markdown. Markdown is never wrapped,
// so long paragraphs stay on one line. Empty input yields empty output.
func (c *Converter) Convert(html string) (string, error) {
	if strings.TrimSpace(html) == "" {
		return "", nil
	}

	result, err := c.conv.ConvertString(html)
	if err != nil {
		return "", entrel.Errorf(entrel.EINVALID, "failed to convert HTML: %v", err)
	}

	return strings.TrimSpace(result), nil
}
