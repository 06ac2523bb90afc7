package history

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
)

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// memBackend is an in-memory Backend that can be told to fail.
type memBackend struct {
	mu       sync.Mutex
	sites    []string
	loadErr  error
	writeErr error
	writes   int
}

func (m *memBackend) LoadCrawledSites(context.Context) ([]string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.loadErr != nil {
		return nil, m.loadErr
	}
	return append([]string(nil), m.sites...), nil
}

func (m *memBackend) AddCrawledSite(_ context.Context, site string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.writes++
	if m.writeErr != nil {
		return m.writeErr
	}
	m.sites = append(m.sites, site)
	return nil
}

func TestHistory(t *testing.T) {
	t.Parallel()

	t.Run("loads and normalizes stored sites", func(t *testing.T) {
		t.Parallel()

		backend := &memBackend{sites: []string{"https://Firm.pk/", "devshop.io", "https://firm.pk"}}
		h := Load(t.Context(), backend, WithLogger(quietLogger()))

		if h.Len() != 2 {
			t.Fatalf("expected 2 sites, got %v", h.Sites())
		}
		for _, site := range []string{"firm.pk", "HTTPS://FIRM.PK/#top", "https://devshop.io/"} {
			if !h.Contains(site) {
				t.Errorf("expected %q to be known", site)
			}
		}
		if h.Contains("https://other.pk") {
			t.Error("unexpected site")
		}
	})

	t.Run("load failure starts empty", func(t *testing.T) {
		t.Parallel()

		h := Load(t.Context(), &memBackend{loadErr: errors.New("disk on fire")}, WithLogger(quietLogger()))
		if h.Len() != 0 {
			t.Errorf("expected empty history, got %v", h.Sites())
		}
	})

	t.Run("add persists once per site", func(t *testing.T) {
		t.Parallel()

		backend := &memBackend{}
		h := Load(t.Context(), backend, WithLogger(quietLogger()))

		for _, site := range []string{"https://firm.pk", "firm.pk/", "https://devshop.io", ""} {
			if err := h.Add(t.Context(), site); err != nil {
				t.Fatalf("Add(%q) error = %v", site, err)
			}
		}
		if backend.writes != 2 {
			t.Errorf("expected 2 writes, got %d", backend.writes)
		}
		if fmt.Sprint(h.Sites()) != "[https://firm.pk https://devshop.io]" {
			t.Errorf("unexpected sites %v", h.Sites())
		}
	})

	t.Run("write failure keeps the site in memory", func(t *testing.T) {
		t.Parallel()

		h := Load(t.Context(), &memBackend{writeErr: errors.New("read-only")}, WithLogger(quietLogger()))

		err := h.Add(t.Context(), "https://firm.pk")
		if !errors.Is(err, ErrPersistence) {
			t.Fatalf("expected ErrPersistence, got %v", err)
		}
		if !h.Contains("https://firm.pk") {
			t.Error("site should stay in memory")
		}
	})

	t.Run("nil backend is memory only", func(t *testing.T) {
		t.Parallel()

		h := Load(t.Context(), nil, WithLogger(quietLogger()))
		if err := h.Add(t.Context(), "https://firm.pk"); err != nil {
			t.Fatalf("Add() error = %v", err)
		}
		if !h.Contains("firm.pk") {
			t.Error("expected site to be known")
		}
	})

	t.Run("concurrent adds and reads", func(t *testing.T) {
		t.Parallel()

		backend := &memBackend{}
		h := Load(t.Context(), backend, WithLogger(quietLogger()))

		var wg sync.WaitGroup
		for i := range 50 {
			wg.Add(1)
			go func() {
				defer wg.Done()
				site := fmt.Sprintf("https://site%d.pk", i%10)
				_ = h.Add(context.Background(), site)
				_ = h.Contains(site)
			}()
		}
		wg.Wait()

		if h.Len() != 10 || backend.writes != 10 {
			t.Errorf("expected 10 sites and writes, got %d and %d", h.Len(), backend.writes)
		}
	})
}

func TestFileBackend(t *testing.T) {
	t.Parallel()

	t.Run("round trip through the file", func(t *testing.T) {
		t.Parallel()

		path := filepath.Join(t.TempDir(), "data", "scraped_websites_history.json")
		h := Load(t.Context(), NewFileBackend(path), WithLogger(quietLogger()))
		if h.Len() != 0 {
			t.Fatalf("expected empty history, got %v", h.Sites())
		}

		for _, site := range []string{"https://firm.pk", "https://devshop.io"} {
			if err := h.Add(t.Context(), site); err != nil {
				t.Fatalf("Add() error = %v", err)
			}
		}

		data, err := os.ReadFile(path)
		if err != nil {
			t.Fatalf("read history: %v", err)
		}
		want := "[\n    \"https://firm.pk\",\n    \"https://devshop.io\"\n]\n"
		if string(data) != want {
			t.Errorf("unexpected file contents:\n%s", data)
		}

		reloaded := Load(t.Context(), NewFileBackend(path), WithLogger(quietLogger()))
		if !reloaded.Contains("firm.pk") || reloaded.Len() != 2 {
			t.Errorf("unexpected reloaded history %v", reloaded.Sites())
		}

		entries, err := os.ReadDir(filepath.Dir(path))
		if err != nil {
			t.Fatalf("read dir: %v", err)
		}
		for _, e := range entries {
			if strings.HasSuffix(e.Name(), ".tmp") {
				t.Errorf("temp file left behind: %s", e.Name())
			}
		}
	})

	t.Run("missing file", func(t *testing.T) {
		t.Parallel()

		_, err := NewFileBackend(filepath.Join(t.TempDir(), "none.json")).LoadCrawledSites(t.Context())
		if !errors.Is(err, os.ErrNotExist) {
			t.Errorf("expected not-exist error, got %v", err)
		}
	})

	t.Run("corrupt file is replaced on the next add", func(t *testing.T) {
		t.Parallel()

		path := filepath.Join(t.TempDir(), "history.json")
		if err := os.WriteFile(path, []byte("{not json"), 0600); err != nil {
			t.Fatalf("write: %v", err)
		}

		b := NewFileBackend(path)
		h := Load(t.Context(), b, WithLogger(quietLogger()))
		if h.Len() != 0 {
			t.Fatalf("expected empty history, got %v", h.Sites())
		}
		if err := h.Add(t.Context(), "https://firm.pk"); err != nil {
			t.Fatalf("Add() error = %v", err)
		}

		sites, err := NewFileBackend(path).LoadCrawledSites(t.Context())
		if err != nil || fmt.Sprint(sites) != "[https://firm.pk]" {
			t.Errorf("unexpected sites %v (err %v)", sites, err)
		}
	})
}
