package jobs

import (
	"time"

	"quizgen/internal/quiz"
)

// Status is the lifecycle state of a job.
type Status string

const (
	StatusPending   Status = "pending"
	StatusCompleted Status = "completed"
	StatusFailed    Status = "failed"
)

// Valid reports whether s is one of the known statuses.
func (s Status) Valid() bool {
	switch s {
	case StatusPending, StatusCompleted, StatusFailed:
		return true
	}
	return false
}

// Job is one generate request and whatever is known about its outcome.
type Job struct {
	ID            string          `json:"id"`
	Title         string          `json:"title"`
	NotebookID    string          `json:"notebookId"`
	SourceID      string          `json:"sourceId,omitempty"`
	ArtifactID    string          `json:"artifactId,omitempty"`
	Status        Status          `json:"status"`
	Questions     []quiz.Question `json:"questions,omitempty"`
	QuestionCount int             `json:"questionCount"`
	Error         string          `json:"error,omitempty"`
	PollCount     int             `json:"pollCount"`
	CreatedAt     time.Time       `json:"createdAt"`
	UpdatedAt     time.Time       `json:"updatedAt"`
	CompletedAt   *time.Time      `json:"completedAt,omitempty"`
}

// IsTerminal reports whether the job will not change again.
func (j *Job) IsTerminal() bool {
	return j != nil && (j.Status == StatusCompleted || j.Status == StatusFailed)
}

// Stats summarises the ledger by status.
type Stats struct {
	Total     int `json:"total"`
	Pending   int `json:"pending"`
	Completed int `json:"completed"`
	Failed    int `json:"failed"`
}
