// Package main hosts the quizgen CLI entrypoint and command graph.
//
// The Cobra command tree drives the NotebookLM client directly for one-shot
// work (generate, poll, notebooks, session) and hosts the HTTP API through
// `quizgen serve`. Configuration resolution, logger construction, and client
// wiring live in commandContext so subcommands only express user-facing
// behaviour.
//
// Output is a table when stdout is a terminal and JSON otherwise; --json
// forces JSON. Logs always go to stderr and the log file so stdout stays
// parseable.
package main
