package api

import (
	"sort"

	"quizgen/internal/jobs"
	"quizgen/internal/services/notebooklm/session"
)

// FromJob converts a ledger row to its API representation.
func FromJob(job *jobs.Job) Job {
	if job == nil {
		return Job{}
	}
	dto := Job{
		ID:            job.ID,
		Title:         job.Title,
		NotebookID:    job.NotebookID,
		SourceID:      job.SourceID,
		ArtifactID:    job.ArtifactID,
		Status:        string(job.Status),
		QuestionCount: job.QuestionCount,
		PollCount:     job.PollCount,
		ErrorMessage:  job.Error,
	}
	if !job.CreatedAt.IsZero() {
		dto.CreatedAt = job.CreatedAt.UTC().Format(dateTimeFormat)
	}
	if !job.UpdatedAt.IsZero() {
		dto.UpdatedAt = job.UpdatedAt.UTC().Format(dateTimeFormat)
	}
	if job.CompletedAt != nil {
		dto.CompletedAt = job.CompletedAt.UTC().Format(dateTimeFormat)
	}
	return dto
}

// FromJobs converts a slice of ledger rows, skipping nil entries.
func FromJobs(list []*jobs.Job) []Job {
	out := make([]Job, 0, len(list))
	for _, job := range list {
		if job == nil {
			continue
		}
		out = append(out, FromJob(job))
	}
	return out
}

// FromStats flattens ledger counts keyed by status string.
func FromStats(stats jobs.Stats) map[string]int {
	return map[string]int{
		string(jobs.StatusPending):   stats.Pending,
		string(jobs.StatusCompleted): stats.Completed,
		string(jobs.StatusFailed):    stats.Failed,
	}
}

// FromSession reports which credentials are present. Values are never copied.
func FromSession(baseURL string, snap session.Session) SessionStatus {
	names := make([]string, 0, len(snap.Cookies))
	for name := range snap.Cookies {
		names = append(names, name)
	}
	sort.Strings(names)
	return SessionStatus{
		BaseURL:      baseURL,
		CookieCount:  len(names),
		CookieNames:  names,
		HasCSRFToken: snap.CSRFToken != "",
		HasSessionID: snap.SessionID != "",
	}
}
