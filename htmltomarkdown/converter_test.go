package htmltomarkdown_test

import (
	"strings"
	"testing"

	"github.com/fwojciec/entrel"
	"github.com/fwojciec/entrel/htmltomarkdown"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Ensure Converter implements entrel.Converter at compile time.
var _ entrel.Converter = (*htmltomarkdown.Converter)(nil)

func TestConverter_Convert(t *testing.T) {
	t.Parallel()

	t.Run("converts entity page", func(t *testing.T) {
		t.Parallel()

		conv := htmltomarkdown.NewConverter()
		md, err := conv.Convert(`<p>Alice works at Acme Corp.</p>`)

		require.NoError(t, err)
		assert.Equal(t, "Alice works at Acme Corp.", md)
	})

	t.Run("keeps heading structure", func(t *testing.T) {
		t.Parallel()

		conv := htmltomarkdown.NewConverter()
		md, err := conv.Convert(`<h1>Leadership</h1><h2>Board</h2><p>Jane Roe chairs the board.</p>`)

		require.NoError(t, err)
		assert.Contains(t, md, "# Leadership")
		assert.Contains(t, md, "## Board")
		assert.Contains(t, md, "Jane Roe chairs the board.")
	})

	t.Run("keeps links", func(t *testing.T) {
		t.Parallel()

		conv := htmltomarkdown.NewConverter()
		md, err := conv.Convert(`<p>See <a href="https://acme.example">Acme</a>.</p>`)

		require.NoError(t, err)
		assert.Contains(t, md, "[Acme](https://acme.example)")
	})

	t.Run("converts tables", func(t *testing.T) {
		t.Parallel()

		conv := htmltomarkdown.NewConverter()
		md, err := conv.Convert(`<table>
<thead><tr><th>Name</th><th>Role</th></tr></thead>
<tbody><tr><td>Alice</td><td>Engineer</td></tr></tbody>
</table>`)

		require.NoError(t, err)
		// Table cells may have padding for alignment, so check for content
		assert.Contains(t, md, "Alice")
		assert.Contains(t, md, "Engineer")
		assert.Contains(t, md, "|")
		assert.Contains(t, md, "---")
	})

	t.Run("does not wrap long paragraphs", func(t *testing.T) {
		t.Parallel()

		conv := htmltomarkdown.NewConverter()
		md, err := conv.Convert("<p>" + strings.Repeat("word ", 200) + "</p>")

		require.NoError(t, err)
		assert.NotContains(t, md, "\n")
	})

	t.Run("drops images by default", func(t *testing.T) {
		t.Parallel()

		conv := htmltomarkdown.NewConverter()
		md, err := conv.Convert(`<p><img src="https://acme.example/roe.jpg" alt="Jane Roe portrait">Jane Roe, CEO</p>`)

		require.NoError(t, err)
		assert.Equal(t, "Jane Roe, CEO", md)
	})

	t.Run("keeps images when requested", func(t *testing.T) {
		t.Parallel()

		conv := htmltomarkdown.NewConverter(htmltomarkdown.WithImages())
		md, err := conv.Convert(`<p><img src="https://acme.example/roe.jpg" alt="Jane Roe portrait"></p>`)

		require.NoError(t, err)
		assert.Contains(t, md, "![Jane Roe portrait](https://acme.example/roe.jpg)")
	})

	t.Run("drops forms and inline graphics", func(t *testing.T) {
		t.Parallel()

		conv := htmltomarkdown.NewConverter()
		md, err := conv.Convert(`<form><label>Email</label><input name="q"><button>Subscribe</button></form>
<svg><text>logo</text></svg>
<p>Acme Corp acquired Globex.</p>`)

		require.NoError(t, err)
		assert.Equal(t, "Acme Corp acquired Globex.", md)
	})

	t.Run("returns empty output for empty input", func(t *testing.T) {
		t.Parallel()

		conv := htmltomarkdown.NewConverter()
		md, err := conv.Convert("  ")

		require.NoError(t, err)
		assert.Empty(t, md)
	})
}
