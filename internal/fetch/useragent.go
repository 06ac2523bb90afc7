package fetch

import (
	"math/rand/v2"
	"strings"

	"github.com/nao1215/contactscan/internal/config"
)

// UserAgentPool rotates request identities.
type UserAgentPool struct {
	agents []string
}

// NewUserAgentPool creates a pool from agents, dropping blank entries.
func NewUserAgentPool(agents []string) *UserAgentPool {
	pool := &UserAgentPool{agents: make([]string, 0, len(agents))}
	for _, a := range agents {
		if a = strings.TrimSpace(a); a != "" {
			pool.agents = append(pool.agents, a)
		}
	}
	return pool
}

// Pick returns a random user agent, or config.DefaultUserAgent when the
// pool is empty.
func (p *UserAgentPool) Pick() string {
	if p == nil || len(p.agents) == 0 {
		return config.DefaultUserAgent
	}
	return p.agents[rand.IntN(len(p.agents))] //nolint:gosec // rotation, not security
}

// Len returns the number of usable agents.
func (p *UserAgentPool) Len() int {
	if p == nil {
		return 0
	}
	return len(p.agents)
}
