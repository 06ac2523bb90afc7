package config

import "errors"

// Configuration validation errors returned by Config.Validate.
// They are sentinels so callers can test them with errors.Is.
var (
	// ErrNoInput is returned when no business source is configured.
	ErrNoInput = errors.New("no input specified: provide a query, --site, --source-file, --listing-page or --simulate")

	// ErrInvalidListingDelay is returned when the listing delay window is
	// negative or inverted.
	ErrInvalidListingDelay = errors.New("invalid listing delay: min must be non-negative and not greater than max")

	// ErrInvalidWebsiteDelay is returned when the website delay window is
	// negative or inverted.
	ErrInvalidWebsiteDelay = errors.New("invalid website delay: min must be non-negative and not greater than max")

	// ErrInvalidMaxRetries is returned when fewer than one attempt is allowed.
	ErrInvalidMaxRetries = errors.New("invalid max retries: must be positive")

	// ErrInvalidRetryDelay is returned when the backoff base is negative.
	ErrInvalidRetryDelay = errors.New("invalid retry delay: must be non-negative")

	// ErrInvalidTimeout is returned when the timeout is not positive.
	ErrInvalidTimeout = errors.New("invalid timeout: must be positive")

	// ErrInvalidMaxBodySize is returned when the max body size is negative.
	ErrInvalidMaxBodySize = errors.New("invalid max body size: must be non-negative")

	// ErrInvalidBatchSize is returned when the batch size is not positive.
	ErrInvalidBatchSize = errors.New("invalid batch size: must be positive")

	// ErrInvalidMaxBusinesses is returned when the business cap is negative.
	ErrInvalidMaxBusinesses = errors.New("invalid max businesses: must be non-negative")

	// ErrInvalidPageBudget is returned when a frontier cap is negative.
	ErrInvalidPageBudget = errors.New("invalid page budget: contact and secondary page caps must be non-negative")

	// ErrInvalidEmailPattern is returned when the validation pattern does
	// not compile.
	ErrInvalidEmailPattern = errors.New("invalid email pattern: must be a valid regular expression")

	// ErrInvalidHistoryBackend is returned for unknown history backends.
	ErrInvalidHistoryBackend = errors.New("invalid history backend: must be json, sqlite or postgres")

	// ErrMissingPostgresDSN is returned when the postgres backend has no DSN.
	ErrMissingPostgresDSN = errors.New("postgres history backend requires a DSN (--postgres-dsn or CONTACTSCAN_POSTGRES_DSN)")

	// ErrInvalidOutputFormat is returned for unknown export formats.
	ErrInvalidOutputFormat = errors.New("invalid output format: must be json, csv, markdown, text or all")

	// ErrOutputFileWithAll is returned when a single output file is
	// requested together with every format.
	ErrOutputFileWithAll = errors.New("conflicting output options: --output needs a single --output-format")
)
