package config

import (
	"errors"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"
)

// DefaultConfigFile is the default configuration file name.
const DefaultConfigFile = ".contactscan"

// ErrConfigNotFound is returned when the configuration file does not exist.
var ErrConfigNotFound = errors.New("configuration file not found")

// DelayWindow is a min/max pair in the configuration file.
type DelayWindow struct {
	Min *Duration `yaml:"min,omitempty"`
	Max *Duration `yaml:"max,omitempty"`
}

// DelaysSection configures politeness delays.
type DelaysSection struct {
	Listing DelayWindow `yaml:"listing,omitempty"`
	Website DelayWindow `yaml:"website,omitempty"`
}

// FetchSection configures the fetch policy.
type FetchSection struct {
	Timeout           *Duration `yaml:"timeout,omitempty"`
	RobotsTimeout     *Duration `yaml:"robotsTimeout,omitempty"`
	MaxRetries        *int      `yaml:"maxRetries,omitempty"`
	RetryBaseDelay    *Duration `yaml:"retryBaseDelay,omitempty"`
	MaxBodySize       *int64    `yaml:"maxBodySize,omitempty"`
	UserAgents        []string  `yaml:"userAgents,omitempty"`
	RequestsPerMinute *int      `yaml:"requestsPerMinute,omitempty"`
	Proxy             string    `yaml:"proxy,omitempty"`
	RespectRobots     *bool     `yaml:"respectRobots,omitempty"`
}

// EmailSection configures decoding and classification.
type EmailSection struct {
	BusinessPrefixes []string `yaml:"businessPrefixes,omitempty"`
	Pattern          string   `yaml:"pattern,omitempty"`
}

// FrontierSection configures which pages a session visits.
type FrontierSection struct {
	ContactKeywords   []string `yaml:"contactKeywords,omitempty"`
	SecondaryKeywords []string `yaml:"secondaryKeywords,omitempty"`
	MaxContactPages   *int     `yaml:"maxContactPages,omitempty"`
	MaxSecondaryPages *int     `yaml:"maxSecondaryPages,omitempty"`
	SameSiteOnly      *bool    `yaml:"sameSiteOnly,omitempty"`
}

// PolicySection holds the recall-over-precision switches.
type PolicySection struct {
	KeepAllWhenNoBusiness      *bool `yaml:"keepAllWhenNoBusiness,omitempty"`
	ContactPagesOverrideRobots *bool `yaml:"contactPagesOverrideRobots,omitempty"`
	TLSFallback                *bool `yaml:"tlsFallback,omitempty"`
}

// CrawlSection configures run-level behavior.
type CrawlSection struct {
	BatchSize     *int  `yaml:"batchSize,omitempty"`
	MaxBusinesses *int  `yaml:"maxBusinesses,omitempty"`
	SkipScraped   *bool `yaml:"skipScraped,omitempty"`
}

// HistorySection configures crawl history storage.
type HistorySection struct {
	Backend     string `yaml:"backend,omitempty"`
	File        string `yaml:"file,omitempty"`
	DBDir       string `yaml:"dbDir,omitempty"`
	PostgresDSN string `yaml:"postgresDSN,omitempty"`
}

// OutputSection configures result export.
type OutputSection struct {
	Format string `yaml:"format,omitempty"`
	Prefix string `yaml:"prefix,omitempty"`
	Dir    string `yaml:"dir,omitempty"`
}

// VerifySection configures MX verification.
type VerifySection struct {
	MX         *bool     `yaml:"mx,omitempty"`
	DNSServers []string  `yaml:"dnsServers,omitempty"`
	Timeout    *Duration `yaml:"timeout,omitempty"`
}

// File represents the structure of the .contactscan configuration file.
// Every field is optional; absent values keep the current configuration.
type File struct {
	Delays   DelaysSection   `yaml:"delays,omitempty"`
	Fetch    FetchSection    `yaml:"fetch,omitempty"`
	Email    EmailSection    `yaml:"email,omitempty"`
	Frontier FrontierSection `yaml:"frontier,omitempty"`
	Policy   PolicySection   `yaml:"policy,omitempty"`
	Crawl    CrawlSection    `yaml:"crawl,omitempty"`
	History  HistorySection  `yaml:"history,omitempty"`
	Output   OutputSection   `yaml:"output,omitempty"`
	Verify   VerifySection   `yaml:"verify,omitempty"`

	// Sites maps host names to their site-specific configurations.
	Sites map[string]SiteConfig `yaml:"sites,omitempty"`

	// Defaults applies to every site unless overridden in Sites.
	Defaults SiteConfig `yaml:"defaults,omitempty"`
}

// LoadConfigFile loads a YAML configuration file.
// If the file does not exist, it returns ErrConfigNotFound.
func LoadConfigFile(path string) (*File, error) {
	data, err := os.ReadFile(path) //nolint:gosec // User-provided config path is intentional
	if err != nil {
		if os.IsNotExist(err) {
			return nil, ErrConfigNotFound
		}
		return nil, err
	}

	var cf File
	if err := yaml.Unmarshal(data, &cf); err != nil {
		return nil, err
	}

	if cf.Sites == nil {
		cf.Sites = make(map[string]SiteConfig)
	}

	return &cf, nil
}

// FindConfigFile searches for the configuration file in the following order:
// 1. If configPath is specified, use it directly
// 2. Look for .contactscan in the current directory
// 3. Look for .contactscan in the user's home directory
// 4. Look for config.yaml in the XDG config directory
//
// Returns the path to the configuration file if found, or empty string if not found.
func FindConfigFile(configPath string) string {
	if configPath != "" {
		if _, err := os.Stat(configPath); err == nil {
			return configPath
		}
		return ""
	}

	candidates := make([]string, 0, 3)
	if cwd, err := os.Getwd(); err == nil {
		candidates = append(candidates, filepath.Join(cwd, DefaultConfigFile))
	}
	if home, err := os.UserHomeDir(); err == nil {
		candidates = append(candidates, filepath.Join(home, DefaultConfigFile))
	}
	candidates = append(candidates, filepath.Join(XDGConfigDir(), "config.yaml"))

	for _, candidate := range candidates {
		if _, err := os.Stat(candidate); err == nil {
			return candidate
		}
	}
	return ""
}

// ApplyFile overlays the values present in f onto c and keeps f for
// per-site lookups.
func (c *Config) ApplyFile(f *File) {
	if f == nil {
		return
	}
	c.SiteConfigs = f

	setDuration(&c.ListingDelayMin, f.Delays.Listing.Min)
	setDuration(&c.ListingDelayMax, f.Delays.Listing.Max)
	setDuration(&c.WebsiteDelayMin, f.Delays.Website.Min)
	setDuration(&c.WebsiteDelayMax, f.Delays.Website.Max)

	setDuration(&c.Timeout, f.Fetch.Timeout)
	setDuration(&c.RobotsTimeout, f.Fetch.RobotsTimeout)
	setDuration(&c.RetryBaseDelay, f.Fetch.RetryBaseDelay)
	setInt(&c.MaxRetries, f.Fetch.MaxRetries)
	setInt(&c.RequestsPerMinute, f.Fetch.RequestsPerMinute)
	setBool(&c.RespectRobots, f.Fetch.RespectRobots)
	if f.Fetch.MaxBodySize != nil {
		c.MaxBodySize = *f.Fetch.MaxBodySize
	}
	if len(f.Fetch.UserAgents) > 0 {
		c.UserAgents = f.Fetch.UserAgents
	}
	if f.Fetch.Proxy != "" {
		c.ProxyURL = f.Fetch.Proxy
	}

	if len(f.Email.BusinessPrefixes) > 0 {
		c.BusinessPrefixes = f.Email.BusinessPrefixes
	}
	if f.Email.Pattern != "" {
		c.EmailPattern = f.Email.Pattern
	}

	if len(f.Frontier.ContactKeywords) > 0 {
		c.ContactKeywords = f.Frontier.ContactKeywords
	}
	if len(f.Frontier.SecondaryKeywords) > 0 {
		c.SecondaryKeywords = f.Frontier.SecondaryKeywords
	}
	setInt(&c.MaxContactPages, f.Frontier.MaxContactPages)
	setInt(&c.MaxSecondaryPages, f.Frontier.MaxSecondaryPages)
	setBool(&c.SameSiteOnly, f.Frontier.SameSiteOnly)

	setBool(&c.KeepAllWhenNoBusiness, f.Policy.KeepAllWhenNoBusiness)
	setBool(&c.ContactPagesOverrideRobots, f.Policy.ContactPagesOverrideRobots)
	setBool(&c.TLSFallback, f.Policy.TLSFallback)

	setInt(&c.BatchSize, f.Crawl.BatchSize)
	setInt(&c.MaxBusinesses, f.Crawl.MaxBusinesses)
	setBool(&c.SkipScraped, f.Crawl.SkipScraped)

	setString(&c.HistoryBackend, f.History.Backend)
	setString(&c.HistoryFile, f.History.File)
	setString(&c.DBDir, f.History.DBDir)
	setString(&c.PostgresDSN, f.History.PostgresDSN)

	setString(&c.OutputFormat, f.Output.Format)
	setString(&c.OutputPrefix, f.Output.Prefix)
	setString(&c.OutputDir, f.Output.Dir)

	setBool(&c.VerifyMX, f.Verify.MX)
	setDuration(&c.DNSTimeout, f.Verify.Timeout)
	if len(f.Verify.DNSServers) > 0 {
		c.DNSServers = f.Verify.DNSServers
	}
}

// SiteConfig returns the merged per-site configuration for host.
func (c *Config) SiteConfig(host string) SiteConfig {
	if c.SiteConfigs == nil {
		return SiteConfig{}
	}
	return c.SiteConfigs.GetSiteConfig(host)
}

func setDuration(dst *time.Duration, src *Duration) {
	if src != nil {
		*dst = src.Duration
	}
}

func setInt(dst *int, src *int) {
	if src != nil {
		*dst = *src
	}
}

func setBool(dst *bool, src *bool) {
	if src != nil {
		*dst = *src
	}
}

func setString(dst *string, src string) {
	if src != "" {
		*dst = src
	}
}
