package source

import (
	"context"
	"encoding/csv"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/nao1215/contactscan/internal/model"
)

// ErrUnsupportedFormat is returned for listing files that are not YAML,
// JSON or CSV.
var ErrUnsupportedFormat = errors.New("unsupported listing file format")

// ErrMissingNameColumn is returned for CSV listings without a name column.
var ErrMissingNameColumn = errors.New("listing CSV has no name column")

// listingEntry is one business in a listing file. phone_number is
// accepted as an alias of phone.
type listingEntry struct {
	Name        string `json:"name" yaml:"name"`
	Website     string `json:"website" yaml:"website"`
	Phone       string `json:"phone" yaml:"phone"`
	PhoneNumber string `json:"phone_number" yaml:"phone_number"`
	Address     string `json:"address" yaml:"address"`
}

func (e listingEntry) record() model.BusinessRecord {
	phone := e.Phone
	if phone == "" {
		phone = e.PhoneNumber
	}
	return model.BusinessRecord{
		Name:    strings.TrimSpace(e.Name),
		Website: strings.TrimSpace(e.Website),
		Phone:   strings.TrimSpace(phone),
		Address: collapseSpace(e.Address),
	}
}

// FileSource reads businesses from a YAML, JSON or CSV listing file.
type FileSource struct {
	path string
	opts options
}

// NewFileSource returns a source backed by the listing file at path.
func NewFileSource(path string, opts ...Option) *FileSource {
	return &FileSource{path: path, opts: newOptions(opts)}
}

// Search returns the records matching query. Read or parse failures are
// logged and yield an empty slice.
func (s *FileSource) Search(_ context.Context, query string) []model.BusinessRecord {
	records, err := s.Load()
	if err != nil {
		s.opts.logger.Warn("failed to read listing file", "path", s.path, "error", err)
		return []model.BusinessRecord{}
	}

	matched := make([]model.BusinessRecord, 0, len(records))
	for _, r := range records {
		if MatchesQuery(r, query) {
			matched = append(matched, r)
		}
	}
	s.opts.logger.Debug("listing file loaded", "path", s.path, "records", len(records), "matched", len(matched))
	return matched
}

// Load parses the whole file. Entries without a name are dropped.
func (s *FileSource) Load() ([]model.BusinessRecord, error) {
	f, err := os.Open(s.path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	var entries []listingEntry
	switch ext := strings.ToLower(filepath.Ext(s.path)); ext {
	case ".yaml", ".yml":
		if err := yaml.NewDecoder(f).Decode(&entries); err != nil && !errors.Is(err, io.EOF) {
			return nil, fmt.Errorf("failed to parse %s: %w", s.path, err)
		}
	case ".json":
		if err := json.NewDecoder(f).Decode(&entries); err != nil {
			return nil, fmt.Errorf("failed to parse %s: %w", s.path, err)
		}
	case ".csv":
		entries, err = readCSV(f)
		if err != nil {
			return nil, fmt.Errorf("failed to parse %s: %w", s.path, err)
		}
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedFormat, ext)
	}

	records := make([]model.BusinessRecord, 0, len(entries))
	for _, e := range entries {
		r := e.record()
		if r.Name == "" {
			continue
		}
		records = append(records, r)
	}
	return records, nil
}

// readCSV maps columns by their case-insensitive header names.
func readCSV(r io.Reader) ([]listingEntry, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1
	reader.TrimLeadingSpace = true

	header, err := reader.Read()
	if errors.Is(err, io.EOF) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	columns := make(map[string]int, len(header))
	for i, h := range header {
		columns[strings.ToLower(strings.TrimSpace(h))] = i
	}
	if _, ok := columns["name"]; !ok {
		return nil, ErrMissingNameColumn
	}
	cell := func(row []string, names ...string) string {
		for _, name := range names {
			if i, ok := columns[name]; ok && i < len(row) {
				return row[i]
			}
		}
		return ""
	}

	var entries []listingEntry
	for {
		row, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, err
		}
		entries = append(entries, listingEntry{
			Name:    cell(row, "name"),
			Website: cell(row, "website", "url"),
			Phone:   cell(row, "phone", "phone_number"),
			Address: cell(row, "address"),
		})
	}
	return entries, nil
}
