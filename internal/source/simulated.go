package source

import (
	"context"
	"fmt"
	"net/url"
	"strings"

	"github.com/nao1215/contactscan/internal/model"
)

// DefaultSimulatedCount is the number of records a SimulatedSource yields
// when no count is set.
const DefaultSimulatedCount = 5

// simulatedDomains are the rotating domains of generated records.
var simulatedDomains = []string{
	"example.com",
	"testcompany.pk",
	"softwarehouse.com.pk",
	"techfirm.pk",
	"devshop.io",
}

// SimulatedSource generates deterministic records for dry runs.
type SimulatedSource struct {
	count int
	opts  options
}

// NewSimulatedSource returns a source yielding count records.
func NewSimulatedSource(count int, opts ...Option) *SimulatedSource {
	if count <= 0 {
		count = DefaultSimulatedCount
	}
	return &SimulatedSource{count: count, opts: newOptions(opts)}
}

// Search ignores the query apart from logging it.
func (s *SimulatedSource) Search(_ context.Context, query string) []model.BusinessRecord {
	s.opts.logger.Info("generating simulated businesses", "query", query, "count", s.count)

	records := make([]model.BusinessRecord, 0, s.count)
	for i := 1; i <= s.count; i++ {
		domain := simulatedDomains[i%len(simulatedDomains)]
		records = append(records, model.BusinessRecord{
			Name:    fmt.Sprintf("Test Software House %d", i),
			Website: "https://www." + domain,
			Phone:   fmt.Sprintf("+92 300 555%04d", i),
		})
	}
	return records
}

// SimulatedCrawler stands in for a crawler during dry runs. It never
// touches the network.
type SimulatedCrawler struct{}

// Crawl returns info@ for every simulated domain and contact@ as well for
// every other domain in the rotation. Unknown websites yield nothing.
func (SimulatedCrawler) Crawl(_ context.Context, website string) []model.EmailAddress {
	u, err := url.Parse(model.EnsureScheme(website))
	if err != nil {
		return nil
	}
	domain := strings.TrimPrefix(strings.ToLower(u.Hostname()), "www.")
	for i, d := range simulatedDomains {
		if d != domain {
			continue
		}
		emails := []model.EmailAddress{{Address: "info@" + d, IsBusinessLike: true}}
		if i%2 == 0 {
			emails = append(emails, model.EmailAddress{Address: "contact@" + d, IsBusinessLike: true})
		}
		return emails
	}
	return nil
}
