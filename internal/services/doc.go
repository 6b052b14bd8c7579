// Package services defines shared utilities consumed by the NotebookLM client,
// the job ledger, and the HTTP API.
//
// Key responsibilities:
//   - Context helpers that stamp job IDs and correlation identifiers for
//     logging.
//   - Structured error markers plus the Wrap helper so callers can classify
//     failures (transport, authentication, protocol) with errors.Is.
//
// Service clients live in subpackages such as services/notebooklm.
package services
