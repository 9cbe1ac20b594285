package readability_test

import (
	"testing"

	"github.com/fwojciec/entrel"
	"github.com/fwojciec/entrel/readability"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const profilePage = `<!DOCTYPE html>
<html>
<head><title>Jane Roe | People</title></head>
<body>
<nav><a href="/home">Home Nav Link</a><a href="/about">About Nav Link</a></nav>
<aside class="sidebar"><p>Sidebar navigation content</p></aside>
<article>
<h1>Jane Roe</h1>
<p>Jane Roe is the chief executive officer of Acme Corp, a position she has held since early this year.</p>
<p>Before joining Acme Corp she spent a decade at Globex Industries, first as an analyst and later as head of European operations.</p>
<h2>Board memberships</h2>
<ul>
<li>Initech Foundation</li>
<li>Umbrella Health Trust</li>
</ul>
</article>
<footer><p>Footer copyright text 2024</p></footer>
</body>
</html>`

func TestExtractor_RejectsEmptyInput(t *testing.T) {
	t.Parallel()

	ext := readability.NewExtractor()
	_, err := ext.Extract("")

	require.Error(t, err)
	assert.Equal(t, entrel.EINVALID, entrel.ErrorCode(err))
}

func TestExtractor_ExtractsTitle(t *testing.T) {
	t.Parallel()

	ext := readability.NewExtractor()
	result, err := ext.Extract(profilePage)

	require.NoError(t, err)
	assert.Contains(t, result.Title, "Jane Roe")
}

func TestExtractor_KeepsArticleContent(t *testing.T) {
	t.Parallel()

	ext := readability.NewExtractor()
	result, err := ext.Extract(profilePage)

	require.NoError(t, err)
	assert.Contains(t, result.ContentHTML, "chief executive officer of Acme Corp")
	assert.Contains(t, result.ContentHTML, "Board memberships")
	assert.Contains(t, result.ContentHTML, "<li")
}

func TestExtractor_RemovesBoilerplate(t *testing.T) {
	t.Parallel()

	ext := readability.NewExtractor()
	result, err := ext.Extract(profilePage)

	require.NoError(t, err)
	assert.NotContains(t, result.ContentHTML, "Home Nav Link")
	assert.NotContains(t, result.ContentHTML, "Sidebar navigation content")
	assert.NotContains(t, result.ContentHTML, "Footer copyright text")
}
