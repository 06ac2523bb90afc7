package extract

import (
	"html"
	"net/url"
	"regexp"
	"strconv"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/nao1215/contactscan/internal/model"
)

// Strategy recovers candidates of one encoding from a page.
type Strategy interface {
	// Pattern names the encoding the strategy decodes.
	Pattern() model.SourcePattern

	// Extract returns candidates in page order. Validation and
	// deduplication are left to the Decoder.
	Extract(page *Page) []model.EmailCandidate
}

// DefaultStrategies returns the full chain in decoding order.
func DefaultStrategies() []Strategy {
	return []Strategy{
		PlainStrategy{},
		TokenStrategy{},
		EntityStrategy{},
		EscapeStrategy{},
		DataAttributeStrategy{},
		JSConcatStrategy{},
		MailtoStrategy{},
	}
}

const (
	atToken  = `\s*(?:\[at\]|\(at\)|\{at\}|\[@\]|\[a\]|\(a\))\s*|\s+(?:at|a)\s+`
	dotToken = `\s*(?:\[dot\]|\(dot\)|\{dot\}|\[\.\]|\[d\]|\(d\))\s*|\s+(?:dot|d)\s+`
)

var (
	plainRe = regexp.MustCompile(`[A-Za-z0-9._%+\-]+@[A-Za-z0-9.\-]+\.[A-Za-z]{2,}`)

	// tokenRe captures local part, at-sign (token or literal) and a
	// domain of at least two labels. Dots in both the local part and the
	// domain may be literal or dot tokens.
	tokenRe = regexp.MustCompile(`(?i)([A-Za-z0-9_%+\-]+(?:(?:` + dotToken + `|\.)[A-Za-z0-9_%+\-]+)*)(` + atToken + `|\s*@\s*)` +
		`([A-Za-z0-9\-]+(?:(?:` + dotToken + `|\.)[A-Za-z0-9\-]+)+)`)
	atTokenRe  = regexp.MustCompile(`(?i)` + atToken)
	dotTokenRe = regexp.MustCompile(`(?i)` + dotToken)

	entityRunRe = regexp.MustCompile(`(?:[A-Za-z0-9._%+\-]+|\s*&#(?:[0-9]{1,7}|[xX][0-9a-fA-F]{1,6});\s*)+`)

	escapeRunRe = regexp.MustCompile(`(?:[A-Za-z0-9._%+\-]+|\s*(?:[\\]u[0-9a-fA-F]{4}|[\\]x[0-9a-fA-F]{2})\s*)+`)
	escapeSeqRe = regexp.MustCompile(`[\\]u[0-9a-fA-F]{4}|[\\]x[0-9a-fA-F]{2}`)

	concatRe  = regexp.MustCompile(`(?:'[^'\n]*'|"[^"\n]*")(?:\s*\+\s*(?:'[^'\n]*'|"[^"\n]*"))+`)
	literalRe = regexp.MustCompile(`'([^'\n]*)'|"([^"\n]*)"`)

	mailtoRawRe = regexp.MustCompile(`(?i)mailto:([^"'<>\s]+)`)

	whitespaceRe = regexp.MustCompile(`\s+`)
)

// PlainStrategy matches literal addresses in the raw page.
type PlainStrategy struct{}

// Pattern implements Strategy.
func (PlainStrategy) Pattern() model.SourcePattern { return model.PatternPlain }

// Extract implements Strategy.
func (PlainStrategy) Extract(page *Page) []model.EmailCandidate {
	var out []model.EmailCandidate
	for _, m := range plainRe.FindAllString(page.Raw, -1) {
		out = append(out, model.EmailCandidate{Raw: m, Decoded: m, Source: model.PatternPlain})
	}
	return out
}

// TokenStrategy decodes [at]/(dot) style obfuscation in the visible text.
// Matches without any token are left to PlainStrategy.
type TokenStrategy struct{}

// Pattern implements Strategy.
func (TokenStrategy) Pattern() model.SourcePattern { return model.PatternAtToken }

// Extract implements Strategy.
func (TokenStrategy) Extract(page *Page) []model.EmailCandidate {
	var out []model.EmailCandidate
	for _, m := range tokenRe.FindAllStringSubmatch(page.VisibleText(), -1) {
		local, at, domain := m[1], m[2], m[3]

		atObfuscated := strings.TrimSpace(at) != "@"
		dotObfuscated := dotTokenRe.MatchString(local) || dotTokenRe.MatchString(domain)
		if !atObfuscated && !dotObfuscated {
			continue
		}

		decoded := stripSpace(dotTokenRe.ReplaceAllString(local, ".") + "@" + dotTokenRe.ReplaceAllString(domain, "."))
		source := model.PatternDotToken
		if atObfuscated {
			source = model.PatternAtToken
		}
		out = append(out, model.EmailCandidate{Raw: strings.TrimSpace(m[0]), Decoded: decoded, Source: source})
	}
	return out
}

// EntityStrategy decodes numeric HTML character references such as &#64;
// and &#x2e; in the raw page.
type EntityStrategy struct{}

// Pattern implements Strategy.
func (EntityStrategy) Pattern() model.SourcePattern { return model.PatternHTMLEntity }

// Extract implements Strategy.
func (EntityStrategy) Extract(page *Page) []model.EmailCandidate {
	var out []model.EmailCandidate
	for _, run := range entityRunRe.FindAllString(page.Raw, -1) {
		if !strings.Contains(run, "&#") {
			continue
		}
		decoded := stripSpace(html.UnescapeString(run))
		out = append(out, candidatesIn(strings.TrimSpace(run), decoded, model.PatternHTMLEntity)...)
	}
	return out
}

// EscapeStrategy decodes JavaScript and CSS style escapes (the
// backslash-u and backslash-x forms) in the raw page.
type EscapeStrategy struct{}

// Pattern implements Strategy.
func (EscapeStrategy) Pattern() model.SourcePattern { return model.PatternUnicodeEscape }

// Extract implements Strategy.
func (EscapeStrategy) Extract(page *Page) []model.EmailCandidate {
	var out []model.EmailCandidate
	for _, run := range escapeRunRe.FindAllString(page.Raw, -1) {
		if !strings.Contains(run, `\`) {
			continue
		}
		decoded := stripSpace(escapeSeqRe.ReplaceAllStringFunc(run, decodeEscape))
		out = append(out, candidatesIn(strings.TrimSpace(run), decoded, model.PatternUnicodeEscape)...)
	}
	return out
}

func decodeEscape(seq string) string {
	v, err := strconv.ParseUint(seq[2:], 16, 32)
	if err != nil {
		return seq
	}
	return string(rune(v))
}

// DataAttributeStrategy reads addresses split or obfuscated in data-*
// attributes.
type DataAttributeStrategy struct{}

// Pattern implements Strategy.
func (DataAttributeStrategy) Pattern() model.SourcePattern { return model.PatternDataAttribute }

// Extract implements Strategy.
func (DataAttributeStrategy) Extract(page *Page) []model.EmailCandidate {
	doc := page.Document()
	if doc == nil {
		return nil
	}

	var out []model.EmailCandidate
	selector := "[data-email], [data-mail], [data-user], [data-domain], [data-contact], [data-address]"
	doc.Find(selector).Each(func(_ int, s *goquery.Selection) {
		user := strings.TrimSpace(s.AttrOr("data-user", ""))
		domain := strings.TrimSpace(s.AttrOr("data-domain", ""))
		if user != "" && domain != "" {
			raw := user + "@" + domain
			out = append(out, model.EmailCandidate{Raw: raw, Decoded: stripSpace(raw), Source: model.PatternDataAttribute})
		}

		for _, name := range []string{"data-email", "data-mail", "data-contact", "data-address"} {
			value := strings.TrimSpace(s.AttrOr(name, ""))
			if value == "" {
				continue
			}
			decoded := trimMailto(DecodeTokens(value))
			out = append(out, model.EmailCandidate{Raw: value, Decoded: decoded, Source: model.PatternDataAttribute})
			break
		}
	})
	return out
}

// JSConcatStrategy joins chains of quoted literals such as
// 'info' + '@' + 'example.com' in script elements.
type JSConcatStrategy struct{}

// Pattern implements Strategy.
func (JSConcatStrategy) Pattern() model.SourcePattern { return model.PatternJSConcat }

// Extract implements Strategy.
func (JSConcatStrategy) Extract(page *Page) []model.EmailCandidate {
	doc := page.Document()
	if doc == nil {
		return nil
	}

	var out []model.EmailCandidate
	doc.Find("script").Each(func(_ int, s *goquery.Selection) {
		script := s.Text()
		if !strings.Contains(script, "+") {
			return
		}
		for _, chain := range concatRe.FindAllString(script, -1) {
			var joined strings.Builder
			for _, lit := range literalRe.FindAllStringSubmatch(chain, -1) {
				joined.WriteString(lit[1])
				joined.WriteString(lit[2])
			}
			decoded := trimMailto(stripSpace(joined.String()))
			if !strings.Contains(decoded, "@") {
				continue
			}
			out = append(out, candidatesIn(chain, decoded, model.PatternJSConcat)...)
		}
	})
	return out
}

// MailtoStrategy reads mailto: link targets.
type MailtoStrategy struct{}

// Pattern implements Strategy.
func (MailtoStrategy) Pattern() model.SourcePattern { return model.PatternMailto }

// Extract implements Strategy.
func (MailtoStrategy) Extract(page *Page) []model.EmailCandidate {
	var hrefs []string
	if doc := page.Document(); doc != nil {
		doc.Find("a[href], area[href]").Each(func(_ int, s *goquery.Selection) {
			hrefs = append(hrefs, s.AttrOr("href", ""))
		})
	} else {
		for _, m := range mailtoRawRe.FindAllString(page.Raw, -1) {
			hrefs = append(hrefs, m)
		}
	}

	var out []model.EmailCandidate
	for _, href := range hrefs {
		for _, addr := range ParseMailto(href) {
			out = append(out, model.EmailCandidate{Raw: href, Decoded: addr, Source: model.PatternMailto})
		}
	}
	return out
}

// IsMailto reports whether href uses the mailto scheme.
func IsMailto(href string) bool {
	href = strings.TrimSpace(href)
	return len(href) >= len("mailto:") && strings.EqualFold(href[:len("mailto:")], "mailto:")
}

// ParseMailto returns the addresses of a mailto: href: scheme removed,
// query string stripped, percent-decoded and split on commas. Non-mailto
// hrefs yield nil.
func ParseMailto(href string) []string {
	href = strings.TrimSpace(href)
	if !IsMailto(href) {
		return nil
	}
	target, _, _ := strings.Cut(href[len("mailto:"):], "?")
	if unescaped, err := url.PathUnescape(target); err == nil {
		target = unescaped
	}

	var out []string
	for _, part := range strings.Split(target, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

// DecodeTokens replaces at and dot tokens with their characters and drops
// whitespace, e.g. "info [at] example (dot) com" becomes
// "info@example.com".
func DecodeTokens(s string) string {
	s = atTokenRe.ReplaceAllString(s, "@")
	s = dotTokenRe.ReplaceAllString(s, ".")
	return stripSpace(s)
}

// candidatesIn returns every plain address inside a decoded run.
func candidatesIn(raw, decoded string, source model.SourcePattern) []model.EmailCandidate {
	var out []model.EmailCandidate
	for _, m := range plainRe.FindAllString(decoded, -1) {
		out = append(out, model.EmailCandidate{Raw: raw, Decoded: m, Source: source})
	}
	return out
}

func trimMailto(s string) string {
	if IsMailto(s) {
		return s[len("mailto:"):]
	}
	return s
}

func stripSpace(s string) string {
	return whitespaceRe.ReplaceAllString(s, "")
}
