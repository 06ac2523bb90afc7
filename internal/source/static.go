package source

import (
	"context"
	"net/url"
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/nao1215/contactscan/internal/model"
)

// StaticSource yields one record per website given on the command line.
type StaticSource struct {
	websites []string
	opts     options
}

// NewStaticSource returns a source for the given websites.
func NewStaticSource(websites []string, opts ...Option) *StaticSource {
	return &StaticSource{websites: websites, opts: newOptions(opts)}
}

// Search ignores the query. Blank entries are skipped and the record
// name is derived from the domain.
func (s *StaticSource) Search(_ context.Context, _ string) []model.BusinessRecord {
	records := make([]model.BusinessRecord, 0, len(s.websites))
	for _, w := range s.websites {
		w = strings.TrimSpace(w)
		if w == "" {
			continue
		}
		name := NameFromWebsite(w)
		if name == "" {
			s.opts.logger.Warn("skipping website without a host", "website", w)
			continue
		}
		records = append(records, model.BusinessRecord{Name: name, Website: w})
	}
	return records
}

// NameFromWebsite turns "https://www.acme-labs.pk" into "Acme-Labs".
func NameFromWebsite(website string) string {
	u, err := url.Parse(model.EnsureScheme(website))
	if err != nil {
		return ""
	}
	labels := strings.Split(strings.ToLower(u.Hostname()), ".")
	if len(labels) > 1 && labels[0] == "www" {
		labels = labels[1:]
	}
	if labels[0] == "" {
		return ""
	}
	return cases.Title(language.English).String(labels[0])
}
