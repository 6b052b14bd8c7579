// Package api serves the quiz generation HTTP surface and defines its wire
// types.
//
// # Routes
//
// POST /api/notebooklm/generate creates a scratch notebook, uploads the text as
// a source, requests a quiz, and records a job. It answers immediately with the
// ids needed to poll.
//
// GET /api/notebooklm/poll reports {"status":"pending"} until the quiz can be
// extracted, then {"status":"completed","quiz":[...]}. Completed quizzes are
// cached in the job ledger, so repeat polls never reach NotebookLM.
//
// GET /api/jobs lists recent jobs and GET /api/status summarises the session
// and ledger.
//
// # Design Notes
//
// DTOs use camelCase JSON tags for browser consumers. Errors are always
// {"error": message}; validation failures map to 400, everything else to 500.
// When an API token is configured every route requires
// "Authorization: Bearer <token>".
package api
