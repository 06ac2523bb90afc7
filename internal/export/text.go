package export

import (
	"fmt"
	"io"
	"strings"
)

// TextWriter outputs a human-readable report for terminals.
type TextWriter struct {
	baseWriter

	// verbose marks each address as business or personal.
	verbose bool
}

// TextWriterOption configures a TextWriter.
type TextWriterOption func(*TextWriter)

// WithVerbose enables per-address classification in the output.
func WithVerbose(verbose bool) TextWriterOption {
	return func(w *TextWriter) {
		w.verbose = verbose
	}
}

// NewTextWriter creates a TextWriter that outputs to the given writer.
func NewTextWriter(output io.Writer, opts ...TextWriterOption) *TextWriter {
	w := &TextWriter{baseWriter: newBaseWriter(output)}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

// Write outputs the report.
func (w *TextWriter) Write(report *Report) (int, error) {
	var sb strings.Builder

	sb.WriteString(strings.Repeat("=", 70))
	sb.WriteString("\n")
	sb.WriteString("                         CONTACT REPORT\n")
	sb.WriteString(strings.Repeat("=", 70))
	sb.WriteString("\n\n")

	if report.Query != "" {
		fmt.Fprintf(&sb, "Query:       %s\n", report.Query)
	}
	fmt.Fprintf(&sb, "Generated:   %s\n", report.GeneratedAt.Format("2006-01-02 15:04:05 MST"))
	fmt.Fprintf(&sb, "Businesses:  %d (%d with emails, %d skipped)\n",
		len(report.Businesses), report.WithEmailsCount(), report.SkippedCount())
	fmt.Fprintf(&sb, "Emails:      %d (%d business-like)\n\n", report.EmailCount(), report.BusinessEmailCount())

	sb.WriteString(strings.Repeat("-", 70))
	sb.WriteString("\n")

	for i, b := range report.Businesses {
		website := b.Website
		if website == "" {
			website = "None"
		}
		fmt.Fprintf(&sb, "%d. %s - Website: %s - Emails: %d\n", i+1, b.Name, website, len(b.Emails))
		if b.Phone != "" {
			fmt.Fprintf(&sb, "   Phone:   %s\n", b.Phone)
		}
		if b.Address != "" {
			fmt.Fprintf(&sb, "   Address: %s\n", b.Address)
		}
		if b.Skipped {
			sb.WriteString("   [skipped]\n")
		}
		for _, e := range b.Emails {
			if w.verbose {
				kind := "personal"
				if e.IsBusinessLike {
					kind = "business"
				}
				fmt.Fprintf(&sb, "   [+] %s (%s)\n", e.Address, kind)
				continue
			}
			fmt.Fprintf(&sb, "   [+] %s\n", e.Address)
		}
	}

	sb.WriteString(strings.Repeat("=", 70))
	sb.WriteString("\n")

	return w.output.Write([]byte(sb.String()))
}
