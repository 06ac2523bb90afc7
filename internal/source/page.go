package source

import (
	"context"
	"net/url"
	"os"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/nao1215/contactscan/internal/model"
)

// Fetcher retrieves a listing page. *fetch.Session satisfies it.
type Fetcher interface {
	Fetch(ctx context.Context, rawURL string) model.FetchResult
}

// FieldStrategy extracts one field from a business scope. page is the
// page URL and may be nil.
type FieldStrategy func(scope *goquery.Selection, page *url.URL) (string, bool)

// FieldChain tries strategies in order; the first non-empty result wins.
type FieldChain []FieldStrategy

// Resolve returns the first result of the chain, or "".
func (c FieldChain) Resolve(scope *goquery.Selection, page *url.URL) string {
	for _, strategy := range c {
		if v, ok := strategy(scope, page); ok && v != "" {
			return v
		}
	}
	return ""
}

// Field chains used by PageSource.
var (
	NameChain = FieldChain{
		attrOrText("[itemprop='name']", "content", acceptName),
		metaContent("meta[property='og:title']", acceptName),
		attrOrText("h1", "", acceptName),
		attrOrText("[class*='fontHeadlineLarge'], [class*='fontTitleLarge']", "", acceptName),
		placeSlug,
	}
	WebsiteChain = FieldChain{
		link("a[data-item-id='authority']"),
		link("[itemprop='url']"),
		websiteLabelLink,
	}
	PhoneChain = FieldChain{
		telLink,
		attrOrText("[itemprop='telephone']", "content", acceptAny),
		dataItemPhone,
	}
	AddressChain = FieldChain{
		attrOrText("[data-item-id='address']", "", acceptAny),
		attrOrText("[itemprop='address']", "", acceptAny),
		attrOrText("address", "", acceptAny),
	}
)

// businessScopes are microdata blocks describing one business each.
const businessScopes = "[itemtype*='schema.org/LocalBusiness'], [itemtype*='schema.org/Organization']"

// PageSource extracts businesses from saved listing or profile pages.
// Pages are URLs fetched through the session, or local HTML files.
type PageSource struct {
	pages   []string
	fetcher Fetcher
	opts    options
}

// NewPageSource returns a source for pages. fetcher may be nil when every
// page is a local file.
func NewPageSource(fetcher Fetcher, pages []string, opts ...Option) *PageSource {
	return &PageSource{pages: pages, fetcher: fetcher, opts: newOptions(opts)}
}

// Search returns records from every page that match query.
func (s *PageSource) Search(ctx context.Context, query string) []model.BusinessRecord {
	var records []model.BusinessRecord
	for _, page := range s.pages {
		if ctx.Err() != nil {
			break
		}
		doc, pageURL, ok := s.load(ctx, page)
		if !ok {
			continue
		}
		for _, r := range ExtractBusinesses(doc, pageURL) {
			if MatchesQuery(r, query) {
				records = append(records, r)
			}
		}
	}
	return records
}

func (s *PageSource) load(ctx context.Context, page string) (*goquery.Document, *url.URL, bool) {
	if path, local := localPath(page); local {
		f, err := os.Open(path)
		if err != nil {
			s.opts.logger.Warn("failed to open listing page", "path", path, "error", err)
			return nil, nil, false
		}
		defer f.Close()
		doc, err := goquery.NewDocumentFromReader(f)
		if err != nil {
			s.opts.logger.Warn("failed to parse listing page", "path", path, "error", err)
			return nil, nil, false
		}
		return doc, canonicalURL(doc, nil), true
	}

	if s.fetcher == nil {
		s.opts.logger.Warn("no fetcher for remote listing page", "url", page)
		return nil, nil, false
	}
	result := s.fetcher.Fetch(ctx, page)
	if !result.OK() || !result.HasBody() {
		s.opts.logger.Warn("failed to fetch listing page", "url", page, "status", result.Status)
		return nil, nil, false
	}
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(result.Body))
	if err != nil {
		s.opts.logger.Warn("failed to parse listing page", "url", page, "error", err)
		return nil, nil, false
	}
	base, _ := url.Parse(result.BaseURL())
	return doc, canonicalURL(doc, base), true
}

// localPath reports whether page names a file rather than a web URL.
func localPath(page string) (string, bool) {
	if strings.HasPrefix(page, "file://") {
		return strings.TrimPrefix(page, "file://"), true
	}
	lower := strings.ToLower(page)
	if strings.HasPrefix(lower, "http://") || strings.HasPrefix(lower, "https://") {
		return "", false
	}
	if _, err := os.Stat(page); err == nil {
		return page, true
	}
	return "", false
}

// canonicalURL prefers the page's declared URL over the fetched one.
func canonicalURL(doc *goquery.Document, fetched *url.URL) *url.URL {
	for _, sel := range []string{"link[rel='canonical']", "meta[property='og:url']"} {
		node := doc.Find(sel).First()
		raw, ok := node.Attr("href")
		if !ok {
			raw, ok = node.Attr("content")
		}
		if !ok || strings.TrimSpace(raw) == "" {
			continue
		}
		u, err := url.Parse(strings.TrimSpace(raw))
		if err != nil {
			continue
		}
		if fetched != nil {
			u = fetched.ResolveReference(u)
		}
		if u.IsAbs() {
			return u
		}
	}
	return fetched
}

// ExtractBusinesses returns one record per microdata business block, or a
// single record for the whole page when it has none. Blocks without a
// name or website are dropped.
func ExtractBusinesses(doc *goquery.Document, page *url.URL) []model.BusinessRecord {
	scopes := doc.Find(businessScopes)
	if scopes.Length() == 0 {
		scopes = doc.Selection
	}

	var records []model.BusinessRecord
	scopes.Each(func(_ int, scope *goquery.Selection) {
		r := model.BusinessRecord{
			Website: WebsiteChain.Resolve(scope, page),
			Phone:   PhoneChain.Resolve(scope, page),
			Address: AddressChain.Resolve(scope, page),
		}
		r.Name = NameChain.Resolve(scope, page)
		if r.Name == "" && r.Website != "" {
			r.Name = NameFromWebsite(r.Website)
		}
		if r.Name == "" {
			return
		}
		records = append(records, r)
	})
	return records
}

// ignoredNames are listing chrome that headings often contain.
var ignoredNames = map[string]bool{
	"results":   true,
	"sponsored": true,
}

func acceptName(s string) bool {
	s = strings.TrimSpace(strings.TrimSuffix(s, " - Google Maps"))
	return len(s) > 3 && !ignoredNames[strings.ToLower(s)]
}

func acceptAny(s string) bool { return s != "" }

func attrOrText(selector, attr string, accept func(string) bool) FieldStrategy {
	return func(scope *goquery.Selection, _ *url.URL) (string, bool) {
		var found string
		scope.Find(selector).EachWithBreak(func(_ int, s *goquery.Selection) bool {
			v := ""
			if attr != "" {
				v, _ = s.Attr(attr)
			}
			if strings.TrimSpace(v) == "" {
				v = s.Text()
			}
			v = collapseSpace(v)
			if accept(v) {
				found = v
				return false
			}
			return true
		})
		return cleanName(found), found != ""
	}
}

func metaContent(selector string, accept func(string) bool) FieldStrategy {
	return func(scope *goquery.Selection, _ *url.URL) (string, bool) {
		v, _ := scope.Find(selector).First().Attr("content")
		v = collapseSpace(v)
		if !accept(v) {
			return "", false
		}
		return cleanName(v), true
	}
}

// cleanName drops the title suffix of saved map pages.
func cleanName(s string) string {
	return strings.TrimSpace(strings.TrimSuffix(s, " - Google Maps"))
}

// placeSlug reads the name from a /maps/place/<name>/ URL.
func placeSlug(_ *goquery.Selection, page *url.URL) (string, bool) {
	if page == nil {
		return "", false
	}
	_, rest, found := strings.Cut(page.EscapedPath(), "/maps/place/")
	if !found {
		return "", false
	}
	slug, _, _ := strings.Cut(rest, "/")
	name, err := url.PathUnescape(strings.ReplaceAll(slug, "+", " "))
	if err != nil {
		return "", false
	}
	name = cases.Title(language.English).String(collapseSpace(name))
	if !acceptName(name) {
		return "", false
	}
	return name, true
}

// resolveWebsite returns an absolute http(s) URL that does not point back
// at the map service.
func resolveWebsite(raw string, page *url.URL) (string, bool) {
	u, err := url.Parse(strings.TrimSpace(raw))
	if err != nil || raw == "" {
		return "", false
	}
	if page != nil {
		u = page.ResolveReference(u)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return "", false
	}
	host := strings.ToLower(u.Hostname())
	if host == "" || strings.Contains(host, "google.") {
		return "", false
	}
	return u.String(), true
}

func link(selector string) FieldStrategy {
	return func(scope *goquery.Selection, page *url.URL) (string, bool) {
		var found string
		scope.Find(selector).EachWithBreak(func(_ int, s *goquery.Selection) bool {
			raw, ok := s.Attr("href")
			if !ok {
				raw, ok = s.Attr("content")
			}
			if !ok {
				return true
			}
			if v, ok := resolveWebsite(raw, page); ok {
				found = v
				return false
			}
			return true
		})
		return found, found != ""
	}
}

// websiteLabelLink finds an anchor labelled or titled as the website.
func websiteLabelLink(scope *goquery.Selection, page *url.URL) (string, bool) {
	var found string
	scope.Find("a[href]").EachWithBreak(func(_ int, s *goquery.Selection) bool {
		label, _ := s.Attr("aria-label")
		if !strings.Contains(strings.ToLower(label+" "+s.Text()), "website") {
			return true
		}
		href, _ := s.Attr("href")
		if v, ok := resolveWebsite(href, page); ok {
			found = v
			return false
		}
		return true
	})
	return found, found != ""
}

func telLink(scope *goquery.Selection, _ *url.URL) (string, bool) {
	href, ok := scope.Find("a[href^='tel:']").First().Attr("href")
	if !ok {
		return "", false
	}
	phone, err := url.PathUnescape(strings.TrimPrefix(href, "tel:"))
	if err != nil {
		phone = strings.TrimPrefix(href, "tel:")
	}
	phone = collapseSpace(phone)
	return phone, phone != ""
}

// dataItemPhone reads [data-item-id^='phone'], whose id looks like
// "phone:tel:+923001234567" and whose text is the formatted number.
func dataItemPhone(scope *goquery.Selection, _ *url.URL) (string, bool) {
	node := scope.Find("[data-item-id^='phone']").First()
	if node.Length() == 0 {
		return "", false
	}
	if text := collapseSpace(node.Text()); text != "" {
		return text, true
	}
	id, _ := node.Attr("data-item-id")
	id = strings.TrimPrefix(id, "phone:")
	id = strings.TrimPrefix(id, "tel:")
	return id, id != ""
}
