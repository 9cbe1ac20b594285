// Package goquery converts HTML pages to plain text using goquery.
package goquery

import (
	"strconv"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/fwojciec/entrel"
	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

// Ensure Converter implements entrel.Converter at compile time.
var _ entrel.Converter = (*Converter)(nil)

// skipSelector matches elements whose content never reaches the text output.
const skipSelector = "head, script, style, noscript, template, svg, iframe, object, canvas"

// Converter renders HTML as plain text with line wrapping disabled.
//
// Block elements start on a new line and paragraphs are separated by a
// blank line. Headings are upper-cased, list items are bulleted or
// numbered, table cells are tab-separated, and links to absolute URLs are
// followed by the URL in brackets.
type Converter struct{}

// NewConverter creates a new Converter.
func NewConverter() *Converter {
	return &Converter{}
}

// Convert transforms HTML content into plain text.
func (c *Converter) Convert(rawHTML string) (string, error) {
	if strings.TrimSpace(rawHTML) == "" {
		return "", nil
	}

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(rawHTML))
	if err != nil {
		return "", entrel.Errorf(entrel.EINVALID, "failed to parse HTML: %v", err)
	}
	doc.Find(skipSelector).Remove()

	w := &textWriter{}
	for _, n := range doc.Nodes {
		w.walk(n, walkState{})
	}
	return w.String(), nil
}

// walkState carries inherited formatting through the tree.
type walkState struct {
	pre   bool
	upper bool
	depth int
}

// textWriter accumulates text, collapsing whitespace and deferring line
// breaks until the next visible text so output never starts or ends with
// blank lines.
type textWriter struct {
	sb      strings.Builder
	breaks  int
	space   bool
	glued   bool
	started bool
}

func (w *textWriter) String() string {
	return w.sb.String()
}

// block requests at least n line breaks before the next text.
func (w *textWriter) block(n int) {
	if n > w.breaks {
		w.breaks = n
	}
	w.space = false
}

// lineBreak adds one line break, so consecutive <br> tags stack.
func (w *textWriter) lineBreak() {
	if w.started {
		w.breaks++
	}
	w.space = false
}

// flush writes pending separators ahead of new text.
func (w *textWriter) flush(leadingSpace bool) {
	glued := w.glued
	w.glued = false
	if !w.started {
		return
	}
	if w.breaks > 0 {
		w.sb.WriteString(strings.Repeat("\n", w.breaks))
	} else if !glued && (w.space || leadingSpace) {
		w.sb.WriteByte(' ')
	}
}

// text writes an inline run with whitespace collapsed.
func (w *textWriter) text(s string) {
	fields := strings.Fields(s)
	if len(fields) == 0 {
		if s != "" && w.started && w.breaks == 0 {
			w.space = true
		}
		return
	}

	w.flush(isSpace(s[0]))
	w.sb.WriteString(strings.Join(fields, " "))
	w.breaks = 0
	w.started = true
	w.space = isSpace(s[len(s)-1])
}

// literal writes s verbatim after pending separators.
func (w *textWriter) literal(s string) {
	if s == "" {
		return
	}
	w.flush(false)
	w.sb.WriteString(s)
	w.breaks = 0
	w.started = true
	w.space = false
}

// prefix writes a marker that the following text attaches to directly.
func (w *textWriter) prefix(s string) {
	w.literal(s)
	w.glued = true
}

// separator writes s between two pieces of text on the same line.
func (w *textWriter) separator(s string) {
	if w.started && w.breaks == 0 {
		w.sb.WriteString(s)
		w.space = false
		w.glued = true
	}
}

func (w *textWriter) walk(n *html.Node, st walkState) {
	switch n.Type {
	case html.DocumentNode:
		w.children(n, st)
	case html.TextNode:
		switch {
		case st.pre:
			w.literal(n.Data)
		case st.upper:
			w.text(strings.ToUpper(n.Data))
		default:
			w.text(n.Data)
		}
	case html.ElementNode:
		w.element(n, st)
	}
}

func (w *textWriter) children(n *html.Node, st walkState) {
	for child := n.FirstChild; child != nil; child = child.NextSibling {
		w.walk(child, st)
	}
}

func (w *textWriter) element(n *html.Node, st walkState) {
	switch n.DataAtom {
	case atom.Br:
		w.lineBreak()
	case atom.H1, atom.H2, atom.H3, atom.H4, atom.H5, atom.H6:
		w.block(2)
		st.upper = true
		w.children(n, st)
		w.block(2)
	case atom.P, atom.Blockquote, atom.Table, atom.Hr:
		w.block(2)
		w.children(n, st)
		w.block(2)
	case atom.Pre:
		w.block(2)
		st.pre = true
		w.children(n, st)
		w.block(2)
	case atom.Ul, atom.Ol:
		w.block(1)
		w.list(n, st)
		w.block(1)
	case atom.Tr:
		w.block(1)
		w.children(n, st)
		w.block(1)
	case atom.Td, atom.Th:
		w.separator("\t")
		w.children(n, st)
	case atom.A:
		w.children(n, st)
		w.link(n)
	case atom.Div, atom.Section, atom.Article, atom.Header, atom.Footer, atom.Nav,
		atom.Main, atom.Aside, atom.Dl, atom.Dt, atom.Dd, atom.Li, atom.Form,
		atom.Fieldset, atom.Figure, atom.Figcaption, atom.Address, atom.Details,
		atom.Summary, atom.Caption, atom.Tbody, atom.Thead, atom.Tfoot:
		w.block(1)
		w.children(n, st)
		w.block(1)
	default:
		w.children(n, st)
	}
}

// list renders direct <li> children with bullets or ordinal numbers.
func (w *textWriter) list(n *html.Node, st walkState) {
	ordered := n.DataAtom == atom.Ol
	indent := strings.Repeat("  ", st.depth)
	st.depth++

	index := 1
	if start, ok := attr(n, "start"); ok {
		if v, err := strconv.Atoi(start); err == nil {
			index = v
		}
	}

	for child := n.FirstChild; child != nil; child = child.NextSibling {
		if child.Type != html.ElementNode || child.DataAtom != atom.Li {
			w.walk(child, st)
			continue
		}

		w.block(1)
		if ordered {
			w.prefix(indent + " " + strconv.Itoa(index) + ". ")
			index++
		} else {
			w.prefix(indent + " * ")
		}
		w.children(child, st)
		w.block(1)
	}
}

// link appends the target of an absolute link when it adds information.
func (w *textWriter) link(n *html.Node) {
	href, ok := attr(n, "href")
	if !ok {
		return
	}
	href = strings.TrimSpace(href)
	if !strings.HasPrefix(href, "http://") && !strings.HasPrefix(href, "https://") {
		return
	}
	if strings.TrimSpace(nodeText(n)) == href {
		return
	}
	w.text(" [" + href + "]")
}

func attr(n *html.Node, key string) (string, bool) {
	for _, a := range n.Attr {
		if a.Key == key {
			return a.Val, true
		}
	}
	return "", false
}

func nodeText(n *html.Node) string {
	var sb strings.Builder
	var collect func(*html.Node)
	collect = func(n *html.Node) {
		if n.Type == html.TextNode {
			sb.WriteString(n.Data)
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			collect(c)
		}
	}
	collect(n)
	return sb.String()
}

func isSpace(b byte) bool {
	return b == ' ' || b == '\t' || b == '\n' || b == '\r' || b == '\f'
}
