package static

import (
	"bytes"
	"regexp"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

var wsRun = regexp.MustCompile(`\s+`)

// blockText renders sel roughly the way a browser's innerText does: text
// nodes collapse their whitespace, block elements start new lines, and
// paragraphs and headings are separated by a blank line.
func blockText(sel *goquery.Selection) string {
	var w textWriter
	for _, n := range sel.Nodes {
		w.walk(n, false)
	}
	return string(w.buf)
}

type textWriter struct {
	buf []byte
}

func (w *textWriter) walk(n *html.Node, pre bool) {
	switch n.Type {
	case html.TextNode:
		if pre {
			w.buf = append(w.buf, n.Data...)
		} else {
			w.buf = append(w.buf, wsRun.ReplaceAllString(n.Data, " ")...)
		}
		return
	case html.CommentNode, html.DoctypeNode:
		return
	case html.ElementNode:
		switch n.DataAtom {
		case atom.Script, atom.Style, atom.Noscript, atom.Template, atom.Head:
			return
		case atom.Br:
			w.buf = append(w.buf, '\n')
			return
		case atom.Pre:
			pre = true
		}
	}

	gap := separation(n)
	w.lineBreak(gap)
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		w.walk(c, pre)
	}
	w.lineBreak(gap)
}

// separation returns how many newlines set n apart from its neighbours.
func separation(n *html.Node) int {
	if n.Type != html.ElementNode {
		return 0
	}
	switch n.DataAtom {
	case atom.P, atom.H1, atom.H2, atom.H3, atom.H4, atom.H5, atom.H6:
		return 2
	case atom.Div, atom.Section, atom.Article, atom.Main, atom.Ul, atom.Ol, atom.Li,
		atom.Dl, atom.Dt, atom.Dd, atom.Table, atom.Tr, atom.Blockquote, atom.Pre,
		atom.Figure, atom.Figcaption, atom.Details, atom.Summary, atom.Hr,
		atom.Header, atom.Footer, atom.Aside, atom.Nav, atom.Form, atom.Fieldset:
		return 1
	}
	return 0
}

// lineBreak ends the current line and pads up to want newlines.
func (w *textWriter) lineBreak(want int) {
	if want == 0 || len(w.buf) == 0 {
		return
	}
	w.buf = bytes.TrimRight(w.buf, " ")
	have := len(w.buf) - len(bytes.TrimRight(w.buf, "\n"))
	for ; have < want; have++ {
		w.buf = append(w.buf, '\n')
	}
}
