package jobs

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"

	"quizgen/internal/config"
	"quizgen/internal/quiz"
)

// Store manages job persistence backed by SQLite.
type Store struct {
	db   *sql.DB
	path string
	now  func() time.Time
}

// Open creates or connects to the jobs database under the configured state dir.
func Open(cfg *config.Config) (*Store, error) {
	if err := cfg.EnsureDirectories(); err != nil {
		return nil, fmt.Errorf("ensure directories: %w", err)
	}
	return OpenPath(cfg.JobsDBPath())
}

// OpenPath opens the jobs database at an explicit location.
func OpenPath(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}

	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA foreign_keys = ON",
		"PRAGMA busy_timeout = 5000",
	}
	for _, pragma := range pragmas {
		if _, execErr := db.Exec(pragma); execErr != nil {
			_ = db.Close()
			return nil, fmt.Errorf("apply pragma %q: %w", pragma, execErr)
		}
	}

	store := &Store{db: db, path: dbPath, now: func() time.Time { return time.Now().UTC() }}
	if err := store.initSchema(context.Background()); err != nil {
		_ = db.Close()
		return nil, err
	}
	return store, nil
}

// Close closes the underlying database connection.
func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

// Path returns the database file location.
func (s *Store) Path() string {
	return s.path
}

// Create records a new pending job. An empty ID is filled with a random UUID.
func (s *Store) Create(ctx context.Context, job Job) (*Job, error) {
	if strings.TrimSpace(job.NotebookID) == "" {
		return nil, errors.New("create job: notebook id is required")
	}
	if job.ID == "" {
		job.ID = uuid.NewString()
	}
	now := s.now()
	job.Status = StatusPending
	job.CreatedAt = now
	job.UpdatedAt = now
	job.Questions = nil
	job.CompletedAt = nil

	timestamp := now.Format(timeLayout)
	if _, err := s.execWithRetry(ctx,
		`INSERT INTO jobs (
            id, title, notebook_id, source_id, artifact_id, status, created_at, updated_at
        ) VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		job.ID, job.Title, job.NotebookID, job.SourceID, job.ArtifactID, job.Status, timestamp, timestamp,
	); err != nil {
		return nil, fmt.Errorf("insert job: %w", err)
	}
	return &job, nil
}

// Get fetches a job by id. A missing job yields (nil, nil).
func (s *Store) Get(ctx context.Context, id string) (*Job, error) {
	row := s.db.QueryRowContext(ensureContext(ctx), `SELECT `+jobColumns+` FROM jobs WHERE id = ?`, id)
	job, err := scanJob(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get job: %w", err)
	}
	return job, nil
}

// FindByArtifact returns the newest job for a notebook/artifact pair, or
// (nil, nil) when none was recorded.
func (s *Store) FindByArtifact(ctx context.Context, notebookID, artifactID string) (*Job, error) {
	row := s.db.QueryRowContext(ensureContext(ctx),
		`SELECT `+jobColumns+` FROM jobs WHERE notebook_id = ? AND artifact_id = ? ORDER BY created_at DESC LIMIT 1`,
		notebookID, artifactID,
	)
	job, err := scanJob(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("find job by artifact: %w", err)
	}
	return job, nil
}

// RecordPoll bumps the poll counter for a job. A failed job goes back to
// pending: the remote artifact outlives a rejected poll.
func (s *Store) RecordPoll(ctx context.Context, id string) error {
	res, err := s.execWithRetry(ctx,
		`UPDATE jobs SET poll_count = poll_count + 1, updated_at = ?,
            status = CASE WHEN status = ? THEN ? ELSE status END,
            error_message = CASE WHEN status = ? THEN '' ELSE error_message END,
            completed_at = CASE WHEN status = ? THEN NULL ELSE completed_at END
         WHERE id = ?`,
		s.now().Format(timeLayout),
		StatusFailed, StatusPending,
		StatusFailed,
		StatusFailed,
		id,
	)
	if err != nil {
		return fmt.Errorf("record poll: %w", err)
	}
	return requireRow(res, id)
}

// Complete caches the extracted quiz and marks the job completed.
func (s *Store) Complete(ctx context.Context, id string, questions []quiz.Question) error {
	if questions == nil {
		questions = []quiz.Question{}
	}
	encoded, err := json.Marshal(questions)
	if err != nil {
		return fmt.Errorf("encode quiz: %w", err)
	}
	timestamp := s.now().Format(timeLayout)
	res, err := s.execWithRetry(ctx,
		`UPDATE jobs SET status = ?, quiz_json = ?, question_count = ?,
            error_message = '', updated_at = ?, completed_at = ? WHERE id = ?`,
		StatusCompleted, string(encoded), len(questions), timestamp, timestamp, id,
	)
	if err != nil {
		return fmt.Errorf("complete job: %w", err)
	}
	return requireRow(res, id)
}

// Fail marks the job failed with the given reason.
func (s *Store) Fail(ctx context.Context, id, reason string) error {
	timestamp := s.now().Format(timeLayout)
	res, err := s.execWithRetry(ctx,
		`UPDATE jobs SET status = ?, error_message = ?, updated_at = ?, completed_at = ? WHERE id = ?`,
		StatusFailed, strings.TrimSpace(reason), timestamp, timestamp, id,
	)
	if err != nil {
		return fmt.Errorf("fail job: %w", err)
	}
	return requireRow(res, id)
}

// List returns jobs newest first, optionally filtered by status. A limit <= 0
// returns every row.
func (s *Store) List(ctx context.Context, limit int, statuses ...Status) ([]*Job, error) {
	query := `SELECT ` + jobColumns + ` FROM jobs`
	args := make([]any, 0, len(statuses)+1)
	if len(statuses) > 0 {
		placeholders := make([]string, len(statuses))
		for i, status := range statuses {
			placeholders[i] = "?"
			args = append(args, status)
		}
		query += ` WHERE status IN (` + strings.Join(placeholders, ",") + `)`
	}
	query += ` ORDER BY created_at DESC, id`
	if limit > 0 {
		query += ` LIMIT ?`
		args = append(args, limit)
	}

	rows, err := s.db.QueryContext(ensureContext(ctx), query, args...)
	if err != nil {
		return nil, fmt.Errorf("list jobs: %w", err)
	}
	defer rows.Close()

	var out []*Job
	for rows.Next() {
		job, err := scanJob(rows)
		if err != nil {
			return nil, fmt.Errorf("scan job: %w", err)
		}
		out = append(out, job)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate jobs: %w", err)
	}
	return out, nil
}

// DeleteByNotebook removes every job that references a notebook and returns
// how many rows went away.
func (s *Store) DeleteByNotebook(ctx context.Context, notebookID string) (int64, error) {
	res, err := s.execWithRetry(ctx, `DELETE FROM jobs WHERE notebook_id = ?`, notebookID)
	if err != nil {
		return 0, fmt.Errorf("delete jobs: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("rows affected: %w", err)
	}
	return n, nil
}

// Stats counts jobs per status.
func (s *Store) Stats(ctx context.Context) (Stats, error) {
	rows, err := s.db.QueryContext(ensureContext(ctx), `SELECT status, COUNT(*) FROM jobs GROUP BY status`)
	if err != nil {
		return Stats{}, fmt.Errorf("job stats: %w", err)
	}
	defer rows.Close()

	var stats Stats
	for rows.Next() {
		var (
			status string
			count  int
		)
		if err := rows.Scan(&status, &count); err != nil {
			return Stats{}, fmt.Errorf("scan stats: %w", err)
		}
		stats.Total += count
		switch Status(status) {
		case StatusPending:
			stats.Pending = count
		case StatusCompleted:
			stats.Completed = count
		case StatusFailed:
			stats.Failed = count
		}
	}
	if err := rows.Err(); err != nil {
		return Stats{}, fmt.Errorf("iterate stats: %w", err)
	}
	return stats, nil
}

// ErrJobNotFound is returned by updates that match no row.
var ErrJobNotFound = errors.New("job not found")

func requireRow(res sql.Result, id string) error {
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("%w: %s", ErrJobNotFound, id)
	}
	return nil
}
