package export

import (
	"io"
	"time"

	"github.com/nao1215/contactscan/internal/model"
)

// Report is the exported result of one run.
type Report struct {
	Query       string
	GeneratedAt time.Time
	Businesses  []model.BusinessRecord
}

// NewReport returns a report stamped with the current time.
func NewReport(query string, businesses []model.BusinessRecord) *Report {
	return &Report{Query: query, GeneratedAt: time.Now(), Businesses: businesses}
}

// EmailCount returns the number of attached addresses.
func (r *Report) EmailCount() int {
	n := 0
	for i := range r.Businesses {
		n += len(r.Businesses[i].Emails)
	}
	return n
}

// BusinessEmailCount returns the number of business-like addresses.
func (r *Report) BusinessEmailCount() int {
	n := 0
	for i := range r.Businesses {
		n += r.Businesses[i].BusinessEmailCount()
	}
	return n
}

// SkippedCount returns the number of records that were not crawled.
func (r *Report) SkippedCount() int {
	n := 0
	for _, b := range r.Businesses {
		if b.Skipped {
			n++
		}
	}
	return n
}

// WithEmailsCount returns the number of records with at least one address.
func (r *Report) WithEmailsCount() int {
	n := 0
	for _, b := range r.Businesses {
		if len(b.Emails) > 0 {
			n++
		}
	}
	return n
}

// Writer renders a report.
type Writer interface {
	// Write outputs the report and returns the number of bytes written.
	Write(report *Report) (int, error)
}

// MultiWriter writes to multiple Writers in order and stops on the first
// error.
type MultiWriter struct {
	writers []Writer
}

// NewMultiWriter creates a Writer that writes to all provided Writers.
func NewMultiWriter(writers ...Writer) *MultiWriter {
	return &MultiWriter{writers: writers}
}

// Write outputs the report to all configured Writers.
func (m *MultiWriter) Write(report *Report) (int, error) {
	var total int
	for _, w := range m.writers {
		n, err := w.Write(report)
		total += n
		if err != nil {
			return total, err
		}
	}
	return total, nil
}

type baseWriter struct {
	output io.Writer
}

func newBaseWriter(output io.Writer) baseWriter {
	return baseWriter{output: output}
}
