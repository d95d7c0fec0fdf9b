// Package config loads runtime configuration for drawctl.
//
// Sources & precedence
//
//  1. Built-in defaults (see (*Config).LoadDefaults).
//  2. Optional JSON file (see parseJson) selected via -c or -config.
//  3. Command-line flags registered by BindFlags, which override earlier values.
//
// Flags
//
//	-a, --server string      base URL of the drawkeeper HTTP API
//	-t, --token string       bearer token
//	-i, --interval duration  status poll interval while watching
//	    --timeout duration   per-request timeout
//	    --history string     directory of the local watch history
//
// # JSON schema
//
// Durations are timex.Duration, so "5s" and integer nanoseconds both work:
//
//	{
//	  "server_url": "http://127.0.0.1:8080",
//	  "token": "eyJ...",
//	  "poll_interval": "5s",
//	  "request_timeout": "5m",
//	  "history_dir": ".drawctl"
//	}
package config
