// Package config provides configuration management for contactscan.
//
// Values are layered: NewConfig defaults, then the YAML configuration file
// (.contactscan), then a .env file and CONTACTSCAN_* environment variables,
// then CLI flags. Validate reports the first invalid value as a sentinel
// error.
package config
