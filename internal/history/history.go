// Package history remembers which business websites were already crawled,
// across runs.
package history

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"sync"

	"github.com/nao1215/contactscan/internal/model"
)

// ErrPersistence wraps failures to load or store the crawl history.
var ErrPersistence = errors.New("crawl history persistence failed")

// Backend stores crawled sites. Implementations must be safe for use by
// one History at a time; History serializes writes.
type Backend interface {
	// LoadCrawledSites returns every stored site in insertion order.
	LoadCrawledSites(ctx context.Context) ([]string, error)

	// AddCrawledSite stores one site. Storing a site twice is not an error.
	AddCrawledSite(ctx context.Context, site string) error
}

// Option configures a History.
type Option func(*History)

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(h *History) {
		h.logger = logger
	}
}

// History is the in-memory set of crawled sites backed by a Backend.
// Reads may run concurrently; additions are serialized.
type History struct {
	backend Backend
	logger  *slog.Logger

	mu    sync.RWMutex
	sites map[string]struct{}
	order []string
}

// Load reads the history from backend. A missing or unreadable history
// yields an empty one; the failure is logged, never returned.
func Load(ctx context.Context, backend Backend, opts ...Option) *History {
	h := &History{
		backend: backend,
		sites:   make(map[string]struct{}),
	}
	for _, opt := range opts {
		opt(h)
	}
	if h.logger == nil {
		h.logger = slog.Default()
	}
	if backend == nil {
		return h
	}

	sites, err := backend.LoadCrawledSites(ctx)
	switch {
	case errors.Is(err, fs.ErrNotExist):
		h.logger.Debug("no crawl history yet")
	case err != nil:
		h.logger.Warn("failed to load crawl history, starting empty", "error", err)
	default:
		for _, s := range sites {
			h.remember(model.SiteKey(s))
		}
		h.logger.Debug("loaded crawl history", "sites", len(h.order))
	}
	return h
}

// Contains reports whether website was crawled before.
func (h *History) Contains(website string) bool {
	key := model.SiteKey(website)
	h.mu.RLock()
	defer h.mu.RUnlock()
	_, ok := h.sites[key]
	return ok
}

// Add records website and persists it. The site stays in memory even
// when the backend fails; the failure is returned wrapped in
// ErrPersistence.
func (h *History) Add(ctx context.Context, website string) error {
	key := model.SiteKey(website)
	if key == "" {
		return nil
	}

	h.mu.Lock()
	defer h.mu.Unlock()

	if !h.remember(key) || h.backend == nil {
		return nil
	}
	if err := h.backend.AddCrawledSite(ctx, key); err != nil {
		h.logger.Warn("failed to persist crawl history", "site", key, "error", err)
		return fmt.Errorf("%w: %w", ErrPersistence, err)
	}
	h.logger.Debug("updated crawl history", "site", key, "sites", len(h.order))
	return nil
}

// Sites returns the known sites in insertion order.
func (h *History) Sites() []string {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return append([]string(nil), h.order...)
}

// Len returns the number of known sites.
func (h *History) Len() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.order)
}

// remember adds key to the set and reports whether it was new. Callers
// hold the write lock, except during Load.
func (h *History) remember(key string) bool {
	if key == "" {
		return false
	}
	if _, ok := h.sites[key]; ok {
		return false
	}
	h.sites[key] = struct{}{}
	h.order = append(h.order, key)
	return true
}
