package config

import (
	"path/filepath"
	"regexp"
	"time"

	"github.com/adrg/xdg"
)

// Default configuration values.
const (
	// AppName is the application name used for XDG directory paths.
	AppName = "contactscan"

	// DefaultListingDelayMin and DefaultListingDelayMax bound the random
	// pause between requests to a listing source. Listing sources throttle
	// aggressively, so the window is wide.
	DefaultListingDelayMin = 10 * time.Second
	DefaultListingDelayMax = 30 * time.Second

	// DefaultWebsiteDelayMin and DefaultWebsiteDelayMax bound the random
	// pause before each request to a business website.
	DefaultWebsiteDelayMin = 2 * time.Second
	DefaultWebsiteDelayMax = 5 * time.Second

	// DefaultMaxRetries is the number of attempts made for one fetch.
	DefaultMaxRetries = 3

	// DefaultRetryBaseDelay is the first backoff pause; it doubles after
	// every failed attempt.
	DefaultRetryBaseDelay = 2 * time.Second

	// DefaultTimeout bounds a single HTTP request including the body read.
	DefaultTimeout = 15 * time.Second

	// DefaultRobotsTimeout bounds a robots.txt request.
	DefaultRobotsTimeout = 10 * time.Second

	// DefaultMaxBodySize limits the response body size to read.
	DefaultMaxBodySize = 5 * 1024 * 1024 // 5MB

	// DefaultMaxContactPages is the number of contact/about pages visited
	// per website.
	DefaultMaxContactPages = 5

	// DefaultMaxSecondaryPages is the number of email/enquiry pages visited
	// per website.
	DefaultMaxSecondaryPages = 3

	// DefaultBatchSize runs one crawl session at a time.
	DefaultBatchSize = 1

	// DefaultMaxBusinesses caps how many records a source may yield.
	DefaultMaxBusinesses = 20

	// DefaultDNSTimeout bounds one MX lookup.
	DefaultDNSTimeout = 5 * time.Second

	// DefaultUserAgent is used whenever the user-agent pool cannot supply
	// a value.
	DefaultUserAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/91.0.4472.124 Safari/537.36"

	// DefaultEmailPattern validates the shape of a decoded address.
	DefaultEmailPattern = `^[A-Za-z0-9._%+\-]+@[A-Za-z0-9.\-]+\.[A-Za-z]{2,}$`

	// DefaultHistoryFile is the JSON history file name inside the data
	// directory.
	DefaultHistoryFile = "scraped_websites_history.json"

	// DefaultOutputPrefix starts every exported file name.
	DefaultOutputPrefix = "contacts"
)

// History backends.
const (
	HistoryBackendJSON     = "json"
	HistoryBackendSQLite   = "sqlite"
	HistoryBackendPostgres = "postgres"
)

// Output formats.
const (
	OutputFormatJSON     = "json"
	OutputFormatCSV      = "csv"
	OutputFormatMarkdown = "markdown"
	OutputFormatText     = "text"
	OutputFormatAll      = "all"
)

// DefaultUserAgents is the identity pool rotated across requests.
var DefaultUserAgents = []string{
	DefaultUserAgent,
	"Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/605.1.15 (KHTML, like Gecko) Version/17.4 Safari/605.1.15",
	"Mozilla/5.0 (X11; Linux x86_64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/124.0.0.0 Safari/537.36",
	"Mozilla/5.0 (Windows NT 10.0; Win64; x64; rv:125.0) Gecko/20100101 Firefox/125.0",
	"Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/124.0.0.0 Safari/537.36 Edg/124.0.0.0",
}

// DefaultBusinessPrefixes are local-part prefixes of role mailboxes.
var DefaultBusinessPrefixes = []string{
	"info", "contact", "hello", "support", "sales", "business", "admin",
	"office", "help", "service", "inquiry", "enquiry", "team", "marketing",
	"hr", "jobs", "careers", "feedback", "webmaster",
}

// DefaultContactKeywords mark links worth following as contact pages when
// they appear in the link text or URL path.
var DefaultContactKeywords = []string{
	"contact", "contact-us", "contact us", "about", "about-us", "about us",
	"team", "company", "support", "help", "info", "reach-us", "reach us",
	"get-in-touch", "get in touch",
}

// DefaultSecondaryKeywords mark URLs that hint at a contact mechanism.
var DefaultSecondaryKeywords = []string{
	"email", "mail", "enquiry", "inquiry", "support",
}

// Config holds all configuration options for contactscan.
// It is populated from defaults, the configuration file, the environment
// and CLI flags, in that order, and passed down explicitly.
type Config struct {
	// ListingDelayMin and ListingDelayMax bound the politeness delay used
	// when fetching listing pages.
	ListingDelayMin time.Duration
	ListingDelayMax time.Duration

	// WebsiteDelayMin and WebsiteDelayMax bound the politeness delay used
	// when crawling business websites.
	WebsiteDelayMin time.Duration
	WebsiteDelayMax time.Duration

	// MaxRetries is the number of attempts per fetch.
	MaxRetries int

	// RetryBaseDelay is the first backoff pause between attempts.
	RetryBaseDelay time.Duration

	// Timeout bounds each HTTP request.
	Timeout time.Duration

	// RobotsTimeout bounds each robots.txt request.
	RobotsTimeout time.Duration

	// MaxBodySize is the maximum response body size in bytes.
	MaxBodySize int64

	// UserAgents is the rotation pool. An empty pool means DefaultUserAgent.
	UserAgents []string

	// RequestsPerMinute enables a per-host token bucket when positive.
	RequestsPerMinute int

	// ProxyURL routes all requests through an http, https or socks5 proxy.
	ProxyURL string

	// RespectRobots enables robots.txt checks.
	RespectRobots bool

	// ContactPagesOverrideRobots fetches robots-disallowed contact, about
	// and team pages anyway, flagging them contact-only.
	ContactPagesOverrideRobots bool

	// TLSFallback retries once without certificate verification after a
	// verification failure.
	TLSFallback bool

	// IgnoreSSLErrors disables certificate verification for every request.
	IgnoreSSLErrors bool

	// BusinessPrefixes are the role-mailbox prefixes used by the classifier.
	BusinessPrefixes []string

	// EmailPattern validates decoded addresses.
	EmailPattern string

	// KeepAllWhenNoBusiness returns every address of a page when none of
	// them is business-like.
	KeepAllWhenNoBusiness bool

	// ContactKeywords and SecondaryKeywords drive frontier expansion.
	ContactKeywords   []string
	SecondaryKeywords []string

	// MaxContactPages and MaxSecondaryPages cap frontier expansion.
	MaxContactPages   int
	MaxSecondaryPages int

	// SameSiteOnly restricts frontier targets to the seed's registrable
	// domain.
	SameSiteOnly bool

	// VerifyMX drops addresses whose domain has no mail exchanger.
	VerifyMX bool

	// DNSServers are the resolvers used for MX checks ("host:port").
	// Empty means the system resolv.conf servers.
	DNSServers []string

	// DNSTimeout bounds one DNS exchange.
	DNSTimeout time.Duration

	// BatchSize is the number of crawl sessions run concurrently.
	BatchSize int

	// MaxBusinesses caps the records taken from a source. Zero means no cap.
	MaxBusinesses int

	// SkipScraped skips websites already present in the crawl history.
	SkipScraped bool

	// HistoryBackend selects json, sqlite or postgres history storage.
	HistoryBackend string

	// HistoryFile is the JSON history path.
	HistoryFile string

	// DBDir holds the SQLite database.
	DBDir string

	// PostgresDSN is the lib/pq connection string for the postgres backend.
	PostgresDSN string

	// OutputFormat is json, csv, markdown, text or all.
	OutputFormat string

	// OutputPrefix starts generated export file names.
	OutputPrefix string

	// OutputDir receives generated export files.
	OutputDir string

	// OutputFile writes a single-format export to this path instead of a
	// generated name.
	OutputFile string

	// Verbose enables debug logging.
	Verbose bool

	// LogJSON switches log output to JSON.
	LogJSON bool

	// ConfigFilePath is the explicit configuration file, if any.
	ConfigFilePath string

	// SiteConfigs holds per-host overrides loaded from the config file.
	SiteConfigs *File

	// Query is the search query handed to the business source.
	Query string

	// Simulate uses generated business records instead of a real source.
	Simulate bool

	// SourceFile is a YAML, JSON or CSV listing of businesses.
	SourceFile string

	// ListingPages are saved listing pages to extract businesses from.
	ListingPages []string

	// Sites are websites given directly on the command line.
	Sites []string
}

// NewConfig creates a new Config with default values.
func NewConfig() *Config {
	return &Config{
		ListingDelayMin:            DefaultListingDelayMin,
		ListingDelayMax:            DefaultListingDelayMax,
		WebsiteDelayMin:            DefaultWebsiteDelayMin,
		WebsiteDelayMax:            DefaultWebsiteDelayMax,
		MaxRetries:                 DefaultMaxRetries,
		RetryBaseDelay:             DefaultRetryBaseDelay,
		Timeout:                    DefaultTimeout,
		RobotsTimeout:              DefaultRobotsTimeout,
		MaxBodySize:                DefaultMaxBodySize,
		UserAgents:                 append([]string(nil), DefaultUserAgents...),
		RespectRobots:              true,
		ContactPagesOverrideRobots: true,
		TLSFallback:                true,
		BusinessPrefixes:           append([]string(nil), DefaultBusinessPrefixes...),
		EmailPattern:               DefaultEmailPattern,
		KeepAllWhenNoBusiness:      true,
		ContactKeywords:            append([]string(nil), DefaultContactKeywords...),
		SecondaryKeywords:          append([]string(nil), DefaultSecondaryKeywords...),
		MaxContactPages:            DefaultMaxContactPages,
		MaxSecondaryPages:          DefaultMaxSecondaryPages,
		DNSTimeout:                 DefaultDNSTimeout,
		BatchSize:                  DefaultBatchSize,
		MaxBusinesses:              DefaultMaxBusinesses,
		HistoryBackend:             HistoryBackendJSON,
		HistoryFile:                filepath.Join(XDGDataDir(), DefaultHistoryFile),
		DBDir:                      XDGDataDir(),
		OutputFormat:               OutputFormatAll,
		OutputPrefix:               DefaultOutputPrefix,
		OutputDir:                  filepath.Join(XDGDataDir(), "exports"),
	}
}

// XDGDataDir returns the XDG data directory for contactscan.
// On Linux: ~/.local/share/contactscan
// On macOS: ~/Library/Application Support/contactscan
// On Windows: %LOCALAPPDATA%\contactscan
func XDGDataDir() string {
	return filepath.Join(xdg.DataHome, AppName)
}

// XDGConfigDir returns the XDG config directory for contactscan.
func XDGConfigDir() string {
	return filepath.Join(xdg.ConfigHome, AppName)
}

// HasInput reports whether any business source was configured.
func (c *Config) HasInput() bool {
	return c.Simulate || c.Query != "" || c.SourceFile != "" ||
		len(c.ListingPages) > 0 || len(c.Sites) > 0
}

// Validate checks if the configuration is valid and returns the first
// problem found.
func (c *Config) Validate() error {
	if !c.HasInput() {
		return ErrNoInput
	}
	if c.ListingDelayMin < 0 || c.ListingDelayMax < c.ListingDelayMin {
		return ErrInvalidListingDelay
	}
	if c.WebsiteDelayMin < 0 || c.WebsiteDelayMax < c.WebsiteDelayMin {
		return ErrInvalidWebsiteDelay
	}
	if c.MaxRetries <= 0 {
		return ErrInvalidMaxRetries
	}
	if c.RetryBaseDelay < 0 {
		return ErrInvalidRetryDelay
	}
	if c.Timeout <= 0 {
		return ErrInvalidTimeout
	}
	if c.MaxBodySize < 0 {
		return ErrInvalidMaxBodySize
	}
	if c.BatchSize <= 0 {
		return ErrInvalidBatchSize
	}
	if c.MaxBusinesses < 0 {
		return ErrInvalidMaxBusinesses
	}
	if c.MaxContactPages < 0 || c.MaxSecondaryPages < 0 {
		return ErrInvalidPageBudget
	}
	if _, err := regexp.Compile(c.EmailPattern); err != nil {
		return ErrInvalidEmailPattern
	}

	switch c.HistoryBackend {
	case HistoryBackendJSON, HistoryBackendSQLite:
	case HistoryBackendPostgres:
		if c.PostgresDSN == "" {
			return ErrMissingPostgresDSN
		}
	default:
		return ErrInvalidHistoryBackend
	}

	switch c.OutputFormat {
	case OutputFormatJSON, OutputFormatCSV, OutputFormatMarkdown, OutputFormatText:
	case OutputFormatAll:
		if c.OutputFile != "" {
			return ErrOutputFileWithAll
		}
	default:
		return ErrInvalidOutputFormat
	}

	return nil
}
