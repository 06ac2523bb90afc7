// Package export writes crawl results.
//
// Writers render a Report (the businesses of one run plus its query) as
// an indented JSON array, CSV, a Markdown table or plain text. Save
// places one file per format in the output directory, named after the
// prefix, a digest of the query and the run time.
package export
