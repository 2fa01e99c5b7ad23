// Package config loads matdeck's settings.
//
// # Resolution Order
//
//  1. Built-in defaults (Default)
//  2. TOML file: the explicit path, or ~/.config/matdeck/config.toml
//  3. A .env file in the working directory, merged into the environment
//     without overriding variables that are already set
//  4. MATDECK_* environment variables
//
// A missing config file is not an error. Blank strings fall back to their
// defaults and paths starting with ~ are expanded. The merged result is
// checked with go-playground/validator so a typo fails at startup instead of
// producing odd behavior later.
//
// # Fields
//
//	api_url               service root, default http://127.0.0.1:5000
//	static_url            prefix for relative asset URLs, default api_url
//	placeholder_url       display-only thumbnail base
//	timeout_seconds       per-request timeout, default 120
//	max_upload_mb         upload size limit, default 500
//	batch_workers         concurrent requests in batch operations, default 4
//	requests_per_second   client-side pacing, 0 disables, default 10
//	thumbnail_resolution  default render size, default 256
//	poll_seconds          console reload period, 0 disables, default 5
//	log_file              default ~/.local/state/matdeck/matdeck.log
//	log_level             debug, info, warn or error
package config
