// Package config loads, normalizes, and validates quizgen configuration data.
//
// It supplies repository defaults, expands user paths (including tilde
// shortcuts), reads TOML files, and honours environment fallbacks such as
// NOTEBOOKLM_CREDENTIALS and QUIZGEN_API_TOKEN. The Config type centralizes
// every knob the CLI and the HTTP API need, so the NotebookLM client, the job
// ledger, and the logger are all wired from one pass.
//
// Always obtain settings through this package so downstream code receives
// sanitized paths, a canonical locale, and clear validation errors.
package config
