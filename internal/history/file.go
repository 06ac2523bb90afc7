package history

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
)

// FileBackend keeps the history as a flat JSON list of sites, rewritten
// in full after every addition.
type FileBackend struct {
	path string

	mu     sync.Mutex
	sites  []string
	loaded bool
}

// NewFileBackend returns a backend for the JSON file at path.
func NewFileBackend(path string) *FileBackend {
	return &FileBackend{path: path}
}

// Path returns the history file path.
func (b *FileBackend) Path() string {
	return b.path
}

// LoadCrawledSites reads the file. A missing file returns an error
// wrapping fs.ErrNotExist.
func (b *FileBackend) LoadCrawledSites(_ context.Context) ([]string, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	sites, err := b.read()
	if err != nil {
		return nil, err
	}
	b.sites = sites
	b.loaded = true
	return append([]string(nil), sites...), nil
}

// AddCrawledSite appends site and rewrites the file atomically.
func (b *FileBackend) AddCrawledSite(_ context.Context, site string) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if !b.loaded {
		// An unreadable file is replaced rather than blocking new entries.
		b.sites, _ = b.read()
		b.loaded = true
	}
	for _, s := range b.sites {
		if s == site {
			return nil
		}
	}

	sites := append(append([]string(nil), b.sites...), site)
	if err := b.write(sites); err != nil {
		return err
	}
	b.sites = sites
	return nil
}

func (b *FileBackend) read() ([]string, error) {
	data, err := os.ReadFile(b.path)
	if err != nil {
		return nil, err
	}
	var sites []string
	if err := json.Unmarshal(data, &sites); err != nil {
		return nil, fmt.Errorf("parse %s: %w", b.path, err)
	}
	return sites, nil
}

func (b *FileBackend) write(sites []string) error {
	data, err := json.MarshalIndent(sites, "", "    ")
	if err != nil {
		return fmt.Errorf("encode history: %w", err)
	}

	dir := filepath.Dir(b.path)
	if err := os.MkdirAll(dir, 0750); err != nil {
		return fmt.Errorf("create history directory: %w", err)
	}

	tmp, err := os.CreateTemp(dir, filepath.Base(b.path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	tmpName := tmp.Name()
	defer func() {
		_ = os.Remove(tmpName)
	}()

	if _, err := tmp.Write(append(data, '\n')); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("write history: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close history: %w", err)
	}
	if err := os.Rename(tmpName, b.path); err != nil {
		return fmt.Errorf("replace history: %w", err)
	}
	return nil
}
