// Package config loads, normalizes, and validates TripFarm configuration data.
//
// It supplies repository defaults, reads TOML files, loads an optional .env
// file, and honours environment fallbacks such as PORT, EMAIL_USER and
// SMTP2GO_PASS. Mail transport profiles fill in host, port and TLS policy so
// switching providers is a configuration change.
//
// Always obtain settings through this package so the server, the mail
// transport and the CLI agree on limits and credentials.
package config
