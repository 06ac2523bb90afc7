package export

import (
	"bytes"
	"encoding/csv"
	"io"
	"strconv"
)

// CSVHeader is the column order of CSV exports.
var CSVHeader = []string{"name", "website", "phone", "address", "emails", "skipped"}

// CSVWriter outputs one row per business. Emails share one cell, joined
// with model.EmailSeparator.
type CSVWriter struct {
	baseWriter
}

// NewCSVWriter creates a CSVWriter that outputs to the given writer.
func NewCSVWriter(output io.Writer) *CSVWriter {
	return &CSVWriter{baseWriter: newBaseWriter(output)}
}

// Write outputs the header and the rows.
func (w *CSVWriter) Write(report *Report) (int, error) {
	var buf bytes.Buffer
	cw := csv.NewWriter(&buf)

	if err := cw.Write(CSVHeader); err != nil {
		return 0, err
	}
	for _, b := range report.Businesses {
		row := []string{b.Name, b.Website, b.Phone, b.Address, b.JoinedEmails(), strconv.FormatBool(b.Skipped)}
		if err := cw.Write(row); err != nil {
			return 0, err
		}
	}
	cw.Flush()
	if err := cw.Error(); err != nil {
		return 0, err
	}
	return w.output.Write(buf.Bytes())
}
