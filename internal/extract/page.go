package extract

import (
	"strings"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

// Page is one HTML document prepared for the strategies. The DOM is
// parsed once and shared.
type Page struct {
	// Raw is the page source.
	Raw string

	doc  *goquery.Document
	text *string
}

// NewPage parses raw. A page whose DOM cannot be built still serves the
// raw-text strategies.
func NewPage(raw string) *Page {
	p := &Page{Raw: raw}
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(raw))
	if err == nil {
		p.doc = doc
	}
	return p
}

// Document returns the parsed DOM, or nil.
func (p *Page) Document() *goquery.Document {
	return p.doc
}

// VisibleText returns the text a reader would see: text nodes outside
// script, style, noscript and template elements, separated by spaces.
// It falls back to the raw page when there is no DOM.
func (p *Page) VisibleText() string {
	if p.text != nil {
		return *p.text
	}
	text := p.Raw
	if p.doc != nil {
		var b strings.Builder
		for _, n := range p.doc.Nodes {
			writeVisibleText(&b, n)
		}
		text = b.String()
	}
	p.text = &text
	return text
}

func writeVisibleText(b *strings.Builder, n *html.Node) {
	switch n.Type {
	case html.TextNode:
		b.WriteString(strings.ReplaceAll(n.Data, "\xc2\xa0", " "))
		b.WriteByte(' ')
		return
	case html.CommentNode:
		return
	case html.ElementNode:
		switch n.DataAtom {
		case atom.Script, atom.Style, atom.Noscript, atom.Template:
			return
		}
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		writeVisibleText(b, c)
	}
}
