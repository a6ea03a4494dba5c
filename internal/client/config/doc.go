// Package config loads runtime configuration for the dabooks client.
//
// Sources & precedence
//
//  1. Built-in defaults (see (*Config).LoadDefaults).
//  2. An optional .env file and DABOOKS_* environment variables.
//  3. Optional JSON file selected via flags: -c or -config.
//  4. Command-line flags, which override earlier values.
//
// Supported flags
//
//	-a string   base URL of the API
//	-e string   environment (development|production)
//	-t int      request timeout (seconds)
//	-s string   local state file
//	-l string   log level
//	-m string   metrics listen address
//
// # JSON schema
//
// Intervals can be strings like "15s" or integer nanoseconds:
//
//	{
//	  "environment": "production",
//	  "request_timeout": "15s",
//	  "expiry_check_interval": "1m",
//	  "search_debounce": "300ms",
//	  "page_size": 10,
//	  "state_file": "dabooks.db"
//	}
//
// When api_url is not set anywhere, ResolvedAPIURL picks the URL of the
// selected environment.
package config
