// Package verify checks that email domains can receive mail.
package verify

import (
	"context"
	"errors"
	"log/slog"
	"net"
	"strings"
	"sync"
	"time"

	"github.com/miekg/dns"

	"github.com/nao1215/contactscan/internal/config"
	"github.com/nao1215/contactscan/internal/model"
)

// resolvConf is read when no DNS servers are configured.
const resolvConf = "/etc/resolv.conf"

// fallbackServers are used when resolv.conf cannot be read.
var fallbackServers = []string{"8.8.8.8:53", "1.1.1.1:53"}

// errNoAnswer means every server failed to answer.
var errNoAnswer = errors.New("no dns server answered")

// Option configures an MXVerifier.
type Option func(*MXVerifier)

// WithTimeout bounds a single DNS exchange.
func WithTimeout(d time.Duration) Option {
	return func(v *MXVerifier) {
		if d > 0 {
			v.client.Timeout = d
		}
	}
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(v *MXVerifier) {
		v.logger = logger
	}
}

// MXVerifier drops addresses whose domain has neither an MX record nor
// an address record to fall back on. Lookup failures fail open.
type MXVerifier struct {
	servers []string
	client  *dns.Client
	logger  *slog.Logger

	mu    sync.Mutex
	cache map[string]bool
}

// NewMXVerifier creates a verifier that queries servers ("host:port").
// An empty list uses the system resolvers.
func NewMXVerifier(servers []string, opts ...Option) *MXVerifier {
	v := &MXVerifier{
		client: &dns.Client{Timeout: config.DefaultDNSTimeout},
		cache:  make(map[string]bool),
	}
	for _, opt := range opts {
		opt(v)
	}
	if v.logger == nil {
		v.logger = slog.Default()
	}

	for _, s := range servers {
		if s = strings.TrimSpace(s); s != "" {
			v.servers = append(v.servers, withPort(s))
		}
	}
	if len(v.servers) == 0 {
		v.servers = systemServers()
	}
	return v
}

// Filter returns the addresses whose domain can receive mail, in order.
func (v *MXVerifier) Filter(ctx context.Context, emails []model.EmailAddress) []model.EmailAddress {
	out := make([]model.EmailAddress, 0, len(emails))
	for _, e := range emails {
		if v.CanReceiveMail(ctx, model.DomainPart(e.Address)) {
			out = append(out, e)
			continue
		}
		v.logger.Debug("dropping address without mail exchanger", "email", e.Address)
	}
	return out
}

// CanReceiveMail reports whether domain publishes an MX record, or an A
// or AAAA record usable as an implicit exchanger. Results are cached.
func (v *MXVerifier) CanReceiveMail(ctx context.Context, domain string) bool {
	domain = strings.ToLower(strings.TrimSuffix(strings.TrimSpace(domain), "."))
	if domain == "" {
		return false
	}

	v.mu.Lock()
	ok, cached := v.cache[domain]
	v.mu.Unlock()
	if cached {
		return ok
	}

	ok, err := v.lookup(ctx, domain)
	if err != nil {
		v.logger.Warn("mx lookup failed, accepting domain", "domain", domain, "error", err)
		return true
	}

	v.mu.Lock()
	v.cache[domain] = ok
	v.mu.Unlock()
	return ok
}

func (v *MXVerifier) lookup(ctx context.Context, domain string) (bool, error) {
	resp, err := v.query(ctx, domain, dns.TypeMX)
	if err != nil {
		return false, err
	}
	switch resp.Rcode {
	case dns.RcodeNameError:
		return false, nil
	case dns.RcodeSuccess:
	default:
		return false, errors.New(dns.RcodeToString[resp.Rcode])
	}
	if hasType(resp, dns.TypeMX) {
		return true, nil
	}

	for _, qtype := range []uint16{dns.TypeA, dns.TypeAAAA} {
		resp, err := v.query(ctx, domain, qtype)
		if err != nil {
			return false, err
		}
		if resp.Rcode == dns.RcodeSuccess && hasType(resp, qtype) {
			return true, nil
		}
	}
	return false, nil
}

func (v *MXVerifier) query(ctx context.Context, domain string, qtype uint16) (*dns.Msg, error) {
	msg := new(dns.Msg)
	msg.SetQuestion(dns.Fqdn(domain), qtype)
	msg.RecursionDesired = true

	err := errNoAnswer
	for _, server := range v.servers {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		var resp *dns.Msg
		resp, _, err = v.client.ExchangeContext(ctx, msg, server)
		if err == nil && resp != nil {
			return resp, nil
		}
	}
	return nil, err
}

func hasType(resp *dns.Msg, qtype uint16) bool {
	for _, rr := range resp.Answer {
		if rr.Header().Rrtype == qtype {
			return true
		}
	}
	return false
}

func systemServers() []string {
	cfg, err := dns.ClientConfigFromFile(resolvConf)
	if err != nil || len(cfg.Servers) == 0 {
		return append([]string(nil), fallbackServers...)
	}
	servers := make([]string, 0, len(cfg.Servers))
	for _, s := range cfg.Servers {
		servers = append(servers, net.JoinHostPort(s, cfg.Port))
	}
	return servers
}

func withPort(server string) string {
	if _, _, err := net.SplitHostPort(server); err == nil {
		return server
	}
	return net.JoinHostPort(strings.Trim(server, "[]"), "53")
}
