// Package app is the composition root for matdeck.
//
// # Overview
//
// Bootstrap turns a config path into a ready Env: configuration, the zap
// logger, the token file, the satapi client, the normalizer, the asset cache
// and the actions service on top of them. Every cobra subcommand starts from
// Bootstrap; the console starts from Run, which also launches the poller.
//
// # Wiring
//
//	┌──────────────┐
//	│ Bootstrap()  │
//	└──────┬───────┘
//	       ├─────> config.Load()         TOML + .env + MATDECK_* overrides
//	       ├─────> logging.New()         JSON log file (+ stderr with --verbose)
//	       ├─────> prefs.NewTokenFile()  bearer token, re-read per request
//	       ├─────> satapi.NewClient()    HTTP adapter, rate limited
//	       ├─────> asset.NewNormalizer() URL base + placeholder
//	       ├─────> state.NewStore()      the asset cache
//	       └─────> actions.New()         also the cache's Fetcher
//
// # Polling
//
// StartPoller reloads the cache every poll_seconds. Each failed load doubles
// the delay until maxBackoff; the first success drops back to the base
// interval. The cache keeps its previous collection on failure, so the
// console keeps showing the last good data with an offline banner.
//
// # Errors
//
// Run fails only when configuration, logging or the client cannot be built.
// A backend that is down at startup is not fatal: the initial load error is
// logged and the header shows it until a poll succeeds.
package app
