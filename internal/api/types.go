package api

import "quizgen/internal/quiz"

// dateTimeFormat is used for RFC3339 timestamps in API payloads.
const dateTimeFormat = "2006-01-02T15:04:05.000Z07:00"

// GenerateRequest is the body accepted by the generate route.
type GenerateRequest struct {
	Text  string `json:"text"`
	Title string `json:"title"`
}

// GenerateResponse carries the ids a caller needs to poll for the quiz.
type GenerateResponse struct {
	JobID      string `json:"jobId,omitempty"`
	NotebookID string `json:"notebookId"`
	SourceID   string `json:"sourceId"`
	ArtifactID string `json:"artifactId"`
	Status     string `json:"status"`
}

// PollResponse reports whether the quiz is ready.
type PollResponse struct {
	Status string          `json:"status"`
	Quiz   []quiz.Question `json:"quiz,omitempty"`
}

// Job is the transport form of a ledger row.
type Job struct {
	ID            string `json:"id"`
	Title         string `json:"title"`
	NotebookID    string `json:"notebookId"`
	SourceID      string `json:"sourceId,omitempty"`
	ArtifactID    string `json:"artifactId,omitempty"`
	Status        string `json:"status"`
	QuestionCount int    `json:"questionCount"`
	PollCount     int    `json:"pollCount"`
	ErrorMessage  string `json:"errorMessage,omitempty"`
	CreatedAt     string `json:"createdAt,omitempty"`
	UpdatedAt     string `json:"updatedAt,omitempty"`
	CompletedAt   string `json:"completedAt,omitempty"`
}

// JobListResponse wraps a job listing.
type JobListResponse struct {
	Items []Job `json:"items"`
}

// SessionStatus summarises the credentials in use without exposing them.
type SessionStatus struct {
	BaseURL      string   `json:"baseUrl"`
	CookieCount  int      `json:"cookieCount"`
	CookieNames  []string `json:"cookieNames,omitempty"`
	HasCSRFToken bool     `json:"hasCsrfToken"`
	HasSessionID bool     `json:"hasSessionId"`
}

// Status is the payload of the status route.
type Status struct {
	Session   SessionStatus  `json:"session"`
	JobStats  map[string]int `json:"jobStats"`
	JobsTotal int            `json:"jobsTotal"`
}

// ErrorResponse is the body of every non-2xx reply.
type ErrorResponse struct {
	Error string `json:"error"`
}
