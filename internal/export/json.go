package export

import (
	"encoding/json"
	"io"

	"github.com/nao1215/contactscan/internal/model"
)

// JSONWriter outputs the businesses as an indented JSON array.
type JSONWriter struct {
	baseWriter
	indentString string
}

// JSONWriterOption configures a JSONWriter.
type JSONWriterOption func(*JSONWriter)

// WithIndent sets the indentation string. The default is four spaces.
func WithIndent(indent string) JSONWriterOption {
	return func(w *JSONWriter) {
		w.indentString = indent
	}
}

// NewJSONWriter creates a JSONWriter that outputs to the given writer.
func NewJSONWriter(output io.Writer, opts ...JSONWriterOption) *JSONWriter {
	w := &JSONWriter{
		baseWriter:   newBaseWriter(output),
		indentString: "    ",
	}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

// Write outputs the businesses. Missing email lists are written as [].
func (w *JSONWriter) Write(report *Report) (int, error) {
	businesses := make([]model.BusinessRecord, len(report.Businesses))
	for i, b := range report.Businesses {
		if b.Emails == nil {
			b.Emails = []model.EmailAddress{}
		}
		businesses[i] = b
	}

	data, err := json.MarshalIndent(businesses, "", w.indentString)
	if err != nil {
		return 0, err
	}
	data = append(data, '\n')
	return w.output.Write(data)
}
