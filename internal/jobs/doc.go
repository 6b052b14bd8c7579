// Package jobs records quiz generation requests in SQLite.
//
// Each job ties a generate call to the notebook, source, and artifact ids the
// remote service handed back, so a later poll can be answered from the ledger
// once the quiz has been extracted. Completed quizzes are cached as JSON and
// served without another round trip.
//
// The database is disposable. Schema changes bump schemaVersion in schema.go;
// operators delete jobs.db to adopt the new layout.
package jobs
