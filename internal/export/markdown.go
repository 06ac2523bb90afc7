package export

import (
	"io"
	"strconv"
	"strings"

	"github.com/nao1215/markdown"
	"github.com/nao1215/markdown/mermaid/piechart"
)

// MarkdownWriter outputs a summary and a business table in Markdown.
type MarkdownWriter struct {
	baseWriter
}

// NewMarkdownWriter creates a MarkdownWriter that outputs to the given writer.
func NewMarkdownWriter(output io.Writer) *MarkdownWriter {
	return &MarkdownWriter{baseWriter: newBaseWriter(output)}
}

// Write outputs the report in Markdown format.
func (w *MarkdownWriter) Write(report *Report) (int, error) {
	md := markdown.NewMarkdown(w.output)

	w.writeHeader(md, report)
	w.writeSummary(md, report)
	w.writeBusinesses(md, report)
	w.writeFooter(md)

	return len(md.String()), md.Build()
}

func (w *MarkdownWriter) writeHeader(md *markdown.Markdown, report *Report) {
	md.H1("Contact Report")
	md.PlainText("")

	query := report.Query
	if query == "" {
		query = "-"
	}
	md.Table(markdown.TableSet{
		Header: []string{"Property", "Value"},
		Rows: [][]string{
			{"Query", escapeCell(query)},
			{"Generated", report.GeneratedAt.Format("2006-01-02 15:04:05 MST")},
			{"Businesses", strconv.Itoa(len(report.Businesses))},
			{"With Emails", strconv.Itoa(report.WithEmailsCount())},
			{"Skipped", strconv.Itoa(report.SkippedCount())},
		},
	})
	md.PlainText("")
}

func (w *MarkdownWriter) writeSummary(md *markdown.Markdown, report *Report) {
	md.H2("Email Summary")
	md.PlainText("")

	total := report.EmailCount()
	business := report.BusinessEmailCount()
	md.Table(markdown.TableSet{
		Header: []string{"Kind", "Count"},
		Rows: [][]string{
			{"Business", strconv.Itoa(business)},
			{"Personal", strconv.Itoa(total - business)},
			{"**Total**", "**" + strconv.Itoa(total) + "**"},
		},
	})
	md.PlainText("")

	if total > 0 {
		chart := piechart.NewPieChart(
			io.Discard,
			piechart.WithTitle("Email Kinds"),
			piechart.WithShowData(true),
		)
		if business > 0 {
			chart.LabelAndIntValue("Business", uint64(business)) //nolint:gosec // counts are non-negative
		}
		if total-business > 0 {
			chart.LabelAndIntValue("Personal", uint64(total-business)) //nolint:gosec // counts are non-negative
		}
		md.CodeBlocks(markdown.SyntaxHighlightMermaid, chart.String())
		md.PlainText("")
	}

	switch {
	case len(report.Businesses) == 0:
		md.Warningf("No businesses were found for this run.")
	case total == 0:
		md.Note("No email addresses were found.")
	default:
		md.Tip(strconv.Itoa(report.WithEmailsCount()) + " of " + strconv.Itoa(len(report.Businesses)) +
			" businesses published at least one email address.")
	}
	md.PlainText("")
}

func (w *MarkdownWriter) writeBusinesses(md *markdown.Markdown, report *Report) {
	md.H2("Businesses")
	md.PlainText("")

	if len(report.Businesses) == 0 {
		md.PlainText("No businesses.")
		md.PlainText("")
		return
	}

	rows := make([][]string, len(report.Businesses))
	for i, b := range report.Businesses {
		status := "crawled"
		switch {
		case b.Skipped:
			status = "skipped"
		case !b.HasWebsite():
			status = "no website"
		}
		rows[i] = []string{
			strconv.Itoa(i + 1),
			escapeCell(b.Name),
			orDash(b.Website),
			orDash(escapeCell(b.Phone)),
			orDash(escapeCell(b.JoinedEmails())),
			status,
		}
	}
	md.Table(markdown.TableSet{
		Header: []string{"#", "Name", "Website", "Phone", "Emails", "Status"},
		Rows:   rows,
	})
	md.PlainText("")
}

func (w *MarkdownWriter) writeFooter(md *markdown.Markdown) {
	md.HorizontalRule()
	md.PlainText("")
	md.PlainTextf("*Report generated by contactscan*")
}

func orDash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}

// escapeCell keeps pipes from splitting table cells.
func escapeCell(s string) string {
	return strings.ReplaceAll(s, "|", `\|`)
}
