package jobs_test

import (
	"context"
	"database/sql"
	"errors"
	"path/filepath"
	"testing"

	"quizgen/internal/jobs"
	"quizgen/internal/quiz"
	"quizgen/internal/testsupport"
)

func TestOpenCreatesSchema(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenJobs(t, cfg)

	if store.Path() != filepath.Join(cfg.Paths.StateDir, "jobs.db") {
		t.Fatalf("unexpected db path %q", store.Path())
	}

	ctx := context.Background()
	job, err := store.Create(ctx, jobs.Job{Title: "Biology", NotebookID: "nb_1", SourceID: "src_1", ArtifactID: "art_1"})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if job.ID == "" {
		t.Fatal("expected generated job id")
	}
	if job.Status != jobs.StatusPending {
		t.Fatalf("expected pending status, got %s", job.Status)
	}

	fetched, err := store.Get(ctx, job.ID)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if fetched == nil {
		t.Fatal("expected job to be found")
	}
	if fetched.Title != "Biology" || fetched.NotebookID != "nb_1" || fetched.SourceID != "src_1" || fetched.ArtifactID != "art_1" {
		t.Fatalf("unexpected job %+v", fetched)
	}
	if fetched.CreatedAt.IsZero() || fetched.CompletedAt != nil {
		t.Fatalf("unexpected timestamps %+v", fetched)
	}
}

func TestOpenRejectsForeignSchemaVersion(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "jobs.db")
	raw, err := sql.Open("sqlite", dbPath)
	if err != nil {
		t.Fatalf("open raw db: %v", err)
	}
	if _, err := raw.Exec("PRAGMA user_version = 42"); err != nil {
		t.Fatalf("stamp version: %v", err)
	}
	if err := raw.Close(); err != nil {
		t.Fatalf("close raw db: %v", err)
	}

	store, err := jobs.OpenPath(dbPath)
	if err == nil {
		_ = store.Close()
		t.Fatal("expected schema mismatch error")
	}
	if !errors.Is(err, jobs.ErrSchemaMismatch) {
		t.Fatalf("expected ErrSchemaMismatch, got %v", err)
	}
}

func TestReopenKeepsRows(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store, err := jobs.Open(cfg)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	job := testsupport.NewJob(t, store, "nb_1", "art_1")
	if err := store.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	reopened := testsupport.MustOpenJobs(t, cfg)
	fetched, err := reopened.Get(context.Background(), job.ID)
	if err != nil {
		t.Fatalf("Get after reopen: %v", err)
	}
	if fetched == nil || fetched.ID != job.ID {
		t.Fatalf("expected job to survive reopen, got %+v", fetched)
	}
}

func TestCreateRequiresNotebook(t *testing.T) {
	store := testsupport.MustOpenJobs(t, testsupport.NewConfig(t))
	if _, err := store.Create(context.Background(), jobs.Job{Title: "x"}); err == nil {
		t.Fatal("expected error for missing notebook id")
	}
}

func TestGetMissingReturnsNil(t *testing.T) {
	store := testsupport.MustOpenJobs(t, testsupport.NewConfig(t))
	job, err := store.Get(context.Background(), "missing")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if job != nil {
		t.Fatalf("expected nil job, got %+v", job)
	}
}

func TestCompleteCachesQuiz(t *testing.T) {
	store := testsupport.MustOpenJobs(t, testsupport.NewConfig(t))
	ctx := context.Background()
	job := testsupport.NewJob(t, store, "nb_1", "art_1")

	questions := []quiz.Question{{
		Question: "Q1?",
		Options: []quiz.Option{
			{Text: "A", IsCorrect: true},
			{Text: "B"},
		},
	}}
	if err := store.RecordPoll(ctx, job.ID); err != nil {
		t.Fatalf("RecordPoll: %v", err)
	}
	if err := store.Complete(ctx, job.ID, questions); err != nil {
		t.Fatalf("Complete: %v", err)
	}

	found, err := store.FindByArtifact(ctx, "nb_1", "art_1")
	if err != nil {
		t.Fatalf("FindByArtifact: %v", err)
	}
	if found == nil || found.ID != job.ID {
		t.Fatalf("expected job %s, got %+v", job.ID, found)
	}
	if found.Status != jobs.StatusCompleted || !found.IsTerminal() {
		t.Fatalf("expected completed job, got %s", found.Status)
	}
	if found.QuestionCount != 1 || found.PollCount != 1 || found.CompletedAt == nil {
		t.Fatalf("unexpected job metadata %+v", found)
	}
	if len(found.Questions) != 1 || found.Questions[0].Question != "Q1?" || !found.Questions[0].Options[0].IsCorrect {
		t.Fatalf("unexpected cached quiz %+v", found.Questions)
	}
}

func TestFailRecordsReason(t *testing.T) {
	store := testsupport.MustOpenJobs(t, testsupport.NewConfig(t))
	ctx := context.Background()
	job := testsupport.NewJob(t, store, "nb_1", "art_1")

	if err := store.Fail(ctx, job.ID, "  chat fallback failed  "); err != nil {
		t.Fatalf("Fail: %v", err)
	}
	fetched, err := store.Get(ctx, job.ID)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if fetched.Status != jobs.StatusFailed || fetched.Error != "chat fallback failed" {
		t.Fatalf("unexpected failed job %+v", fetched)
	}
}

func TestRecordPollReopensFailedJob(t *testing.T) {
	store := testsupport.MustOpenJobs(t, testsupport.NewConfig(t))
	ctx := context.Background()
	job := testsupport.NewJob(t, store, "nb_1", "art_1")

	if err := store.Fail(ctx, job.ID, "session rejected"); err != nil {
		t.Fatalf("Fail: %v", err)
	}
	if err := store.RecordPoll(ctx, job.ID); err != nil {
		t.Fatalf("RecordPoll: %v", err)
	}
	fetched, err := store.Get(ctx, job.ID)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if fetched.Status != jobs.StatusPending || fetched.Error != "" || fetched.CompletedAt != nil || fetched.PollCount != 1 {
		t.Fatalf("expected reopened pending job, got %+v", fetched)
	}
}

func TestUpdatesOnMissingJob(t *testing.T) {
	store := testsupport.MustOpenJobs(t, testsupport.NewConfig(t))
	ctx := context.Background()

	if err := store.Complete(ctx, "missing", nil); !errors.Is(err, jobs.ErrJobNotFound) {
		t.Fatalf("expected ErrJobNotFound from Complete, got %v", err)
	}
	if err := store.Fail(ctx, "missing", "x"); !errors.Is(err, jobs.ErrJobNotFound) {
		t.Fatalf("expected ErrJobNotFound from Fail, got %v", err)
	}
	if err := store.RecordPoll(ctx, "missing"); !errors.Is(err, jobs.ErrJobNotFound) {
		t.Fatalf("expected ErrJobNotFound from RecordPoll, got %v", err)
	}
}

func TestListFiltersAndLimits(t *testing.T) {
	store := testsupport.MustOpenJobs(t, testsupport.NewConfig(t))
	ctx := context.Background()

	first := testsupport.NewJob(t, store, "nb_1", "art_1")
	second := testsupport.NewJob(t, store, "nb_2", "art_2")
	third := testsupport.NewJob(t, store, "nb_3", "art_3")
	if err := store.Fail(ctx, second.ID, "boom"); err != nil {
		t.Fatalf("Fail: %v", err)
	}

	all, err := store.List(ctx, 0)
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(all) != 3 {
		t.Fatalf("expected 3 jobs, got %d", len(all))
	}

	pending, err := store.List(ctx, 0, jobs.StatusPending)
	if err != nil {
		t.Fatalf("List pending: %v", err)
	}
	if len(pending) != 2 {
		t.Fatalf("expected 2 pending jobs, got %d", len(pending))
	}
	for _, job := range pending {
		if job.ID != first.ID && job.ID != third.ID {
			t.Fatalf("unexpected pending job %s", job.ID)
		}
	}

	limited, err := store.List(ctx, 1)
	if err != nil {
		t.Fatalf("List limited: %v", err)
	}
	if len(limited) != 1 {
		t.Fatalf("expected 1 job, got %d", len(limited))
	}

	stats, err := store.Stats(ctx)
	if err != nil {
		t.Fatalf("Stats: %v", err)
	}
	if stats.Total != 3 || stats.Pending != 2 || stats.Failed != 1 || stats.Completed != 0 {
		t.Fatalf("unexpected stats %+v", stats)
	}
}

func TestDeleteByNotebook(t *testing.T) {
	store := testsupport.MustOpenJobs(t, testsupport.NewConfig(t))
	ctx := context.Background()

	testsupport.NewJob(t, store, "nb_1", "art_1")
	testsupport.NewJob(t, store, "nb_1", "art_2")
	keep := testsupport.NewJob(t, store, "nb_2", "art_3")

	removed, err := store.DeleteByNotebook(ctx, "nb_1")
	if err != nil {
		t.Fatalf("DeleteByNotebook: %v", err)
	}
	if removed != 2 {
		t.Fatalf("expected 2 rows removed, got %d", removed)
	}
	remaining, err := store.List(ctx, 0)
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(remaining) != 1 || remaining[0].ID != keep.ID {
		t.Fatalf("unexpected remaining jobs %+v", remaining)
	}
}
