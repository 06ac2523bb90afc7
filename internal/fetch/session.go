package fetch

import (
	"context"
	"fmt"
	"sync"

	"github.com/nao1215/contactscan/internal/model"
)

// Session fetches the pages of one website. It owns the visited set, so
// a normalized URL reaches the network at most once per session.
type Session struct {
	policy *Policy

	mu      sync.Mutex
	visited map[string]struct{}
}

// Fetch retrieves rawURL under the policy. It never returns an error;
// failures are classified in the result.
func (s *Session) Fetch(ctx context.Context, rawURL string) model.FetchResult {
	key, err := model.NormalizeURL(rawURL)
	if err != nil {
		return model.FetchResult{
			URL:    rawURL,
			Status: model.StatusNetworkError,
			Err:    fmt.Errorf("invalid URL %q: %w", rawURL, err),
		}
	}
	if !s.markVisited(key) {
		return model.FetchResult{URL: key, Status: model.StatusSkippedDuplicate}
	}
	return s.policy.fetch(ctx, key)
}

// Visited reports whether rawURL was already fetched in this session.
func (s *Session) Visited(rawURL string) bool {
	key, err := model.NormalizeURL(rawURL)
	if err != nil {
		return false
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.visited[key]
	return ok
}

func (s *Session) markVisited(key string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.visited[key]; ok {
		return false
	}
	s.visited[key] = struct{}{}
	return true
}
