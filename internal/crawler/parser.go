package crawler

import (
	"io"
	"net/url"
	"strings"

	"golang.org/x/net/html"
)

// Link is an anchor found on a page.
type Link struct {
	// URL is the absolute http or https URL the anchor points to.
	URL string

	// Text is the anchor's text content with whitespace collapsed.
	Text string
}

// ParseResult contains the parts of a page the frontier cares about.
type ParseResult struct {
	// Title is the page title from the <title> tag.
	Title string

	// Links holds the http and https anchors in document order.
	Links []Link

	// Mailto holds the raw href of every mailto anchor.
	Mailto []string
}

// Parser extracts anchors from HTML content.
type Parser struct {
	// baseURL is the URL of the page being parsed, used for resolving relative URLs.
	baseURL *url.URL
}

// NewParser creates a new HTML parser with the given base URL.
// The base URL is used to resolve relative links.
func NewParser(baseURL string) (*Parser, error) {
	u, err := url.Parse(baseURL)
	if err != nil {
		return nil, err
	}
	return &Parser{baseURL: u}, nil
}

// Parse parses HTML content and extracts its title and anchors.
func (p *Parser) Parse(content io.Reader) (*ParseResult, error) {
	doc, err := html.Parse(content)
	if err != nil {
		return nil, err
	}

	result := &ParseResult{
		Links:  make([]Link, 0),
		Mailto: make([]string, 0),
	}

	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.ElementNode {
			p.processElement(n, result)
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(doc)

	return result, nil
}

// processElement handles HTML element nodes.
func (p *Parser) processElement(n *html.Node, result *ParseResult) {
	switch n.Data {
	case "title":
		if result.Title == "" && n.FirstChild != nil && n.FirstChild.Type == html.TextNode {
			result.Title = strings.TrimSpace(n.FirstChild.Data)
		}

	case "a", "area":
		href := strings.TrimSpace(getAttr(n, "href"))
		if href == "" {
			return
		}
		if hasScheme(href, "mailto") {
			result.Mailto = append(result.Mailto, href)
			return
		}
		if resolved := p.resolveURL(href); resolved != "" {
			result.Links = append(result.Links, Link{URL: resolved, Text: nodeText(n)})
		}
	}
}

// resolveURL resolves href against the base URL. Non-navigational
// schemes and anything that does not end up as http or https resolve to
// the empty string.
func (p *Parser) resolveURL(href string) string {
	if href == "" || strings.HasPrefix(href, "#") {
		return ""
	}
	for _, scheme := range []string{"javascript", "tel", "data", "sms", "ftp"} {
		if hasScheme(href, scheme) {
			return ""
		}
	}

	u, err := url.Parse(href)
	if err != nil {
		return ""
	}

	resolved := p.baseURL.ResolveReference(u)
	if resolved.Scheme != "http" && resolved.Scheme != "https" {
		return ""
	}
	return resolved.String()
}

// hasScheme reports whether href starts with scheme followed by a colon,
// ignoring case.
func hasScheme(href, scheme string) bool {
	return len(href) > len(scheme) && href[len(scheme)] == ':' && strings.EqualFold(href[:len(scheme)], scheme)
}

// nodeText returns the collapsed text content below n.
func nodeText(n *html.Node) string {
	var sb strings.Builder
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.TextNode {
			sb.WriteString(n.Data)
			sb.WriteByte(' ')
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(n)
	return strings.Join(strings.Fields(sb.String()), " ")
}

// getAttr retrieves an attribute value from an HTML node.
func getAttr(n *html.Node, key string) string {
	for _, attr := range n.Attr {
		if attr.Key == key {
			return attr.Val
		}
	}
	return ""
}
