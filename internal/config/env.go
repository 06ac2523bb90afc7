package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// EnvPrefix starts every environment variable read by ApplyEnv.
const EnvPrefix = "CONTACTSCAN_"

// ErrInvalidEnv wraps malformed environment values.
var ErrInvalidEnv = errors.New("invalid environment value")

// LoadDotEnv loads the given .env files into the process environment
// without overriding variables that are already set. Missing files are
// ignored.
func LoadDotEnv(paths ...string) error {
	if len(paths) == 0 {
		paths = []string{".env"}
	}
	for _, path := range paths {
		if _, err := os.Stat(path); err != nil {
			continue
		}
		if err := godotenv.Load(path); err != nil {
			return fmt.Errorf("failed to load %s: %w", path, err)
		}
	}
	return nil
}

// ApplyEnv overlays CONTACTSCAN_* variables onto c. lookup is usually
// os.LookupEnv; tests pass a map-backed function.
//
// Recognized variables: PROXY, POSTGRES_DSN, HISTORY_BACKEND, HISTORY_FILE,
// DATA_DIR, MAX_RETRIES, TIMEOUT, WEBSITE_MIN_DELAY, WEBSITE_MAX_DELAY,
// LISTING_MIN_DELAY, LISTING_MAX_DELAY, USER_AGENTS ("|" separated) and
// DNS_SERVERS ("," separated).
func (c *Config) ApplyEnv(lookup func(string) (string, bool)) error {
	if lookup == nil {
		lookup = os.LookupEnv
	}
	get := func(name string) (string, bool) {
		v, ok := lookup(EnvPrefix + name)
		v = strings.TrimSpace(v)
		return v, ok && v != ""
	}

	if v, ok := get("PROXY"); ok {
		c.ProxyURL = v
	}
	if v, ok := get("POSTGRES_DSN"); ok {
		c.PostgresDSN = v
	}
	if v, ok := get("HISTORY_BACKEND"); ok {
		c.HistoryBackend = strings.ToLower(v)
	}
	if v, ok := get("HISTORY_FILE"); ok {
		c.HistoryFile = v
	}
	if v, ok := get("DATA_DIR"); ok {
		c.DBDir = v
	}
	if v, ok := get("USER_AGENTS"); ok {
		c.UserAgents = splitNonEmpty(v, "|")
	}
	if v, ok := get("DNS_SERVERS"); ok {
		c.DNSServers = splitNonEmpty(v, ",")
	}

	if v, ok := get("MAX_RETRIES"); ok {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("%w: %sMAX_RETRIES=%q", ErrInvalidEnv, EnvPrefix, v)
		}
		c.MaxRetries = n
	}

	durations := []struct {
		name string
		dst  *time.Duration
	}{
		{"TIMEOUT", &c.Timeout},
		{"WEBSITE_MIN_DELAY", &c.WebsiteDelayMin},
		{"WEBSITE_MAX_DELAY", &c.WebsiteDelayMax},
		{"LISTING_MIN_DELAY", &c.ListingDelayMin},
		{"LISTING_MAX_DELAY", &c.ListingDelayMax},
	}
	for _, d := range durations {
		v, ok := get(d.name)
		if !ok {
			continue
		}
		var parsed Duration
		if err := parsed.UnmarshalText([]byte(v)); err != nil {
			return fmt.Errorf("%w: %s%s: %w", ErrInvalidEnv, EnvPrefix, d.name, err)
		}
		*d.dst = parsed.Duration
	}

	return nil
}

func splitNonEmpty(s, sep string) []string {
	parts := strings.Split(s, sep)
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
