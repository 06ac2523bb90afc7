package extract

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/nao1215/contactscan/internal/config"
	"github.com/nao1215/contactscan/internal/model"
)

// assetSuffixes are domain endings that mark file names such as
// "logo@2x.png" rather than addresses.
var assetSuffixes = []string{
	".png", ".jpg", ".jpeg", ".gif", ".svg", ".webp", ".ico", ".css", ".js",
}

// Option configures a Decoder.
type Option func(*decoderOptions)

type decoderOptions struct {
	pattern    string
	strategies []Strategy
}

// WithPattern sets the validation pattern applied to decoded addresses.
func WithPattern(pattern string) Option {
	return func(o *decoderOptions) {
		o.pattern = pattern
	}
}

// WithStrategies replaces the default strategy chain.
func WithStrategies(strategies ...Strategy) Option {
	return func(o *decoderOptions) {
		o.strategies = strategies
	}
}

// Decoder extracts email candidates from pages. It is stateless after
// construction and safe for concurrent use.
type Decoder struct {
	strategies []Strategy
	pattern    *regexp.Regexp
}

// NewDecoder creates a Decoder with the default strategies and the
// default validation pattern unless overridden.
func NewDecoder(opts ...Option) (*Decoder, error) {
	o := decoderOptions{
		pattern:    config.DefaultEmailPattern,
		strategies: DefaultStrategies(),
	}
	for _, opt := range opts {
		opt(&o)
	}

	pattern, err := regexp.Compile(o.pattern)
	if err != nil {
		return nil, fmt.Errorf("compile email pattern: %w", err)
	}
	return &Decoder{strategies: o.strategies, pattern: pattern}, nil
}

// Extract returns the valid candidates found in page, in strategy order
// and first occurrence within each strategy. Case-insensitive duplicates
// keep the first form seen.
func (d *Decoder) Extract(page string) []model.EmailCandidate {
	return d.ExtractPage(NewPage(page))
}

// ExtractPage is Extract for an already prepared page.
func (d *Decoder) ExtractPage(page *Page) []model.EmailCandidate {
	var out []model.EmailCandidate
	seen := make(map[string]struct{})

	for _, strategy := range d.strategies {
		for _, c := range strategy.Extract(page) {
			c.Decoded = strings.TrimSpace(c.Decoded)
			if !d.Valid(c.Decoded) {
				continue
			}
			key := c.Key()
			if _, ok := seen[key]; ok {
				continue
			}
			seen[key] = struct{}{}
			out = append(out, c)
		}
	}
	return out
}

// Valid reports whether address has an email shape, matches the
// validation pattern and is not an asset file name.
func (d *Decoder) Valid(address string) bool {
	if !model.HasEmailShape(address) || !d.pattern.MatchString(address) {
		return false
	}
	domain := strings.ToLower(model.DomainPart(address))
	for _, suffix := range assetSuffixes {
		if strings.HasSuffix(domain, suffix) {
			return false
		}
	}
	return true
}

// Addresses returns the decoded strings of candidates.
func Addresses(candidates []model.EmailCandidate) []string {
	out := make([]string, len(candidates))
	for i, c := range candidates {
		out[i] = c.Decoded
	}
	return out
}
