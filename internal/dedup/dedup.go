// Package dedup decides whether a business record duplicates one already
// collected in the current run.
package dedup

import (
	"log/slog"
	"strings"
	"sync"

	"github.com/nao1215/contactscan/internal/model"
)

const (
	// NameThreshold is the name similarity above which the address is
	// compared.
	NameThreshold = 0.8

	// AddressThreshold is the address similarity above which two
	// similarly named records are duplicates.
	AddressThreshold = 0.7

	// CloseThreshold is the address similarity from which similarly named
	// but distinct records are logged.
	CloseThreshold = 0.5
)

var phoneNoise = strings.NewReplacer(" ", "", "-", "", "(", "", ")", "")

// Option configures a Deduplicator.
type Option func(*Deduplicator)

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(d *Deduplicator) {
		d.logger = logger
	}
}

// Deduplicator matches records on website, phone and name plus address.
// The first signal that matches wins.
//
// Design decision: name similarity alone never merges records because:
//  1. Branches of one chain share a name but not an address
//  2. Listing names vary in suffixes like "Pvt Ltd"
//  3. Close pairs are logged at debug level for tuning instead
type Deduplicator struct {
	logger *slog.Logger
}

// New creates a Deduplicator.
func New(opts ...Option) *Deduplicator {
	d := &Deduplicator{}
	for _, opt := range opts {
		opt(d)
	}
	if d.logger == nil {
		d.logger = slog.Default()
	}
	return d
}

// IsDuplicate reports whether candidate duplicates any record in
// existing. Each existing record is checked in order: equal websites,
// then equal phones, then similar names with similar addresses.
func (d *Deduplicator) IsDuplicate(candidate model.BusinessRecord, existing []model.BusinessRecord) bool {
	name := strings.ToLower(candidate.Name)
	website := strings.ToLower(strings.TrimSpace(candidate.Website))
	phone := normalizePhone(candidate.Phone)
	address := strings.ToLower(candidate.Address)

	for _, other := range existing {
		otherWebsite := strings.ToLower(strings.TrimSpace(other.Website))
		if website != "" && website == otherWebsite {
			d.logger.Info("duplicate business by website", "name", candidate.Name, "existing", other.Name, "website", website)
			return true
		}

		otherPhone := normalizePhone(other.Phone)
		if phone != "" && phone == otherPhone {
			d.logger.Info("duplicate business by phone", "name", candidate.Name, "existing", other.Name, "phone", phone)
			return true
		}

		nameSim := Similarity(name, strings.ToLower(other.Name))
		if nameSim <= NameThreshold {
			continue
		}
		otherAddress := strings.ToLower(other.Address)
		if address == "" || otherAddress == "" {
			continue
		}

		addrSim := Similarity(address, otherAddress)
		switch {
		case addrSim > AddressThreshold:
			d.logger.Info("duplicate business by name and address",
				"name", candidate.Name,
				"existing", other.Name,
				"name_similarity", nameSim,
				"address_similarity", addrSim,
			)
			return true
		case addrSim >= CloseThreshold:
			d.logger.Debug("close but distinct businesses",
				"name", candidate.Name,
				"existing", other.Name,
				"name_similarity", nameSim,
				"address_similarity", addrSim,
			)
		}
	}
	return false
}

func normalizePhone(phone string) string {
	return phoneNoise.Replace(strings.TrimSpace(phone))
}

// Collector accumulates the unique records of a run.
type Collector struct {
	dedup *Deduplicator

	mu      sync.Mutex
	records []model.BusinessRecord
}

// NewCollector creates an empty Collector.
func NewCollector(d *Deduplicator) *Collector {
	if d == nil {
		d = New()
	}
	return &Collector{dedup: d}
}

// Add appends record unless it duplicates one already collected. It
// reports whether the record was added.
func (c *Collector) Add(record model.BusinessRecord) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.dedup.IsDuplicate(record, c.records) {
		return false
	}
	c.records = append(c.records, record)
	return true
}

// Records returns a copy of the collected records in insertion order.
func (c *Collector) Records() []model.BusinessRecord {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]model.BusinessRecord(nil), c.records...)
}

// Len returns the number of collected records.
func (c *Collector) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.records)
}
