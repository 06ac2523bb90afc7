package export

import (
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"golang.org/x/crypto/sha3"

	"github.com/nao1215/contactscan/internal/config"
)

// ErrUnknownFormat is returned for format names no writer handles.
var ErrUnknownFormat = errors.New("unknown export format")

// TimestampLayout formats the run time in exported file names.
const TimestampLayout = "2006-01-02_15-04-05"

// Formats expands an output format setting. "all" yields every format.
func Formats(format string) ([]string, error) {
	switch format {
	case config.OutputFormatJSON, config.OutputFormatCSV, config.OutputFormatMarkdown, config.OutputFormatText:
		return []string{format}, nil
	case config.OutputFormatAll, "":
		return []string{
			config.OutputFormatJSON,
			config.OutputFormatCSV,
			config.OutputFormatMarkdown,
			config.OutputFormatText,
		}, nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownFormat, format)
	}
}

// Extension returns the file extension of a format, without the dot.
func Extension(format string) string {
	switch format {
	case config.OutputFormatMarkdown:
		return "md"
	case config.OutputFormatText:
		return "txt"
	default:
		return format
	}
}

// NewWriter returns the writer for format.
func NewWriter(format string, output io.Writer) (Writer, error) {
	switch format {
	case config.OutputFormatJSON:
		return NewJSONWriter(output), nil
	case config.OutputFormatCSV:
		return NewCSVWriter(output), nil
	case config.OutputFormatMarkdown:
		return NewMarkdownWriter(output), nil
	case config.OutputFormatText:
		return NewTextWriter(output), nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownFormat, format)
	}
}

// QueryDigest returns the first 8 hex digits of the SHA3-256 of query.
func QueryDigest(query string) string {
	sum := sha3.Sum256([]byte(query))
	return hex.EncodeToString(sum[:])[:8]
}

// FileName returns "<prefix>_<digest>_<timestamp>.<ext>". The digest part
// is omitted for an empty query.
func FileName(prefix, query string, at time.Time, format string) string {
	if prefix == "" {
		prefix = config.DefaultOutputPrefix
	}
	parts := []string{prefix}
	if strings.TrimSpace(query) != "" {
		parts = append(parts, QueryDigest(query))
	}
	parts = append(parts, at.Format(TimestampLayout))
	return strings.Join(parts, "_") + "." + Extension(format)
}

// Save writes one file per format into dir and returns their paths.
func Save(dir, prefix string, report *Report, formats []string) ([]string, error) {
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return nil, fmt.Errorf("failed to create output directory: %w", err)
	}

	paths := make([]string, 0, len(formats))
	for _, format := range formats {
		path := filepath.Join(dir, FileName(prefix, report.Query, report.GeneratedAt, format))
		if err := SaveFile(path, format, report); err != nil {
			return paths, err
		}
		paths = append(paths, path)
	}
	return paths, nil
}

// SaveFile writes the report in one format to path.
func SaveFile(path, format string, report *Report) (err error) {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o750); err != nil {
			return fmt.Errorf("failed to create output directory: %w", err)
		}
	}

	f, err := os.Create(filepath.Clean(path))
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", path, err)
	}
	defer func() {
		if cerr := f.Close(); cerr != nil && err == nil {
			err = cerr
		}
	}()

	w, err := NewWriter(format, f)
	if err != nil {
		return err
	}
	if _, err := w.Write(report); err != nil {
		return fmt.Errorf("failed to write %s: %w", path, err)
	}
	return nil
}
