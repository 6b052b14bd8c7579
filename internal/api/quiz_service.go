package api

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"
	"unicode/utf8"

	"golang.org/x/text/unicode/norm"

	"quizgen/internal/jobs"
	"quizgen/internal/logging"
	"quizgen/internal/quiz"
	"quizgen/internal/services"
	"quizgen/internal/services/notebooklm/session"
)

const (
	statusPending   = "pending"
	statusCompleted = "completed"

	defaultTitle   = "Untitled"
	maxTitleRunes  = 120
	titleTimestamp = "2006-01-02 15:04"
)

// Notebooks is the slice of the NotebookLM client the quiz flow drives.
type Notebooks interface {
	CreateNotebook(ctx context.Context, title string) (string, error)
	AddTextSource(ctx context.Context, notebookID, text, title string) (string, error)
	CreateQuiz(ctx context.Context, notebookID string, sourceIDs []string) (string, error)
	PollStudio(ctx context.Context, notebookID, artifactID string, knownSourceIDs ...string) ([]quiz.Question, error)
}

// JobLedger abstracts job persistence for the quiz flow.
type JobLedger interface {
	Create(ctx context.Context, job jobs.Job) (*jobs.Job, error)
	FindByArtifact(ctx context.Context, notebookID, artifactID string) (*jobs.Job, error)
	RecordPoll(ctx context.Context, id string) error
	Complete(ctx context.Context, id string, questions []quiz.Question) error
	Fail(ctx context.Context, id, reason string) error
	List(ctx context.Context, limit int, statuses ...jobs.Status) ([]*jobs.Job, error)
	Stats(ctx context.Context) (jobs.Stats, error)
}

// SessionReporter exposes read-only session state for the status route.
type SessionReporter interface {
	Snapshot() session.Session
	BaseURL() string
}

// QuizService runs generate and poll on behalf of HTTP and CLI callers.
type QuizService struct {
	notebooks   Notebooks
	ledger      JobLedger
	session     SessionReporter
	titlePrefix string
	logger      *slog.Logger
	now         func() time.Time
}

// ServiceOption customises a QuizService.
type ServiceOption func(*QuizService)

// WithLedger records jobs and caches completed quizzes.
func WithLedger(ledger JobLedger) ServiceOption {
	return func(s *QuizService) {
		s.ledger = ledger
	}
}

// WithSessionReporter enables the session block of Status.
func WithSessionReporter(reporter SessionReporter) ServiceOption {
	return func(s *QuizService) {
		s.session = reporter
	}
}

// WithTitlePrefix sets the notebook title prefix.
func WithTitlePrefix(prefix string) ServiceOption {
	return func(s *QuizService) {
		if trimmed := strings.TrimSpace(prefix); trimmed != "" {
			s.titlePrefix = trimmed
		}
	}
}

// WithServiceLogger attaches a logger.
func WithServiceLogger(logger *slog.Logger) ServiceOption {
	return func(s *QuizService) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// WithClock overrides the time source used for notebook titles.
func WithClock(now func() time.Time) ServiceOption {
	return func(s *QuizService) {
		if now != nil {
			s.now = now
		}
	}
}

// NewQuizService constructs a QuizService around the NotebookLM client.
func NewQuizService(notebooks Notebooks, opts ...ServiceOption) *QuizService {
	svc := &QuizService{
		notebooks:   notebooks,
		titlePrefix: "Gen Quiz",
		logger:      logging.NewNop(),
		now:         time.Now,
	}
	for _, opt := range opts {
		opt(svc)
	}
	svc.logger = logging.NewComponentLogger(svc.logger, "quiz-service")
	return svc
}

// Generate creates a notebook, adds the text as its only source, and starts
// quiz generation. It does not wait for the quiz.
func (s *QuizService) Generate(ctx context.Context, req GenerateRequest) (GenerateResponse, error) {
	text := norm.NFC.String(strings.TrimSpace(req.Text))
	if text == "" {
		return GenerateResponse{}, services.Wrap(services.ErrValidation, "api", "generate", "text is required", nil)
	}
	sourceTitle := cleanTitle(req.Title)
	notebookTitle := NotebookTitle(s.titlePrefix, sourceTitle, s.now())
	logger := logging.WithContext(ctx, s.logger)

	notebookID, err := s.notebooks.CreateNotebook(ctx, notebookTitle)
	if err != nil {
		return GenerateResponse{}, err
	}

	sourceID, err := s.notebooks.AddTextSource(ctx, notebookID, text, sourceTitle)
	if err != nil {
		return GenerateResponse{}, err
	}
	artifactID, err := s.notebooks.CreateQuiz(ctx, notebookID, []string{sourceID})
	if err != nil {
		return GenerateResponse{}, err
	}
	logger.Info("generate accepted",
		logging.String(logging.FieldEventType, "generate_accepted"),
		logging.String(logging.FieldNotebookID, notebookID),
		logging.String(logging.FieldArtifactID, artifactID),
		logging.Int("text_runes", utf8.RuneCountInString(text)),
	)

	resp := GenerateResponse{
		NotebookID: notebookID,
		SourceID:   sourceID,
		ArtifactID: artifactID,
		Status:     statusPending,
	}
	if s.ledger != nil {
		job, err := s.ledger.Create(ctx, jobs.Job{
			Title:      notebookTitle,
			NotebookID: notebookID,
			SourceID:   sourceID,
			ArtifactID: artifactID,
		})
		if err != nil {
			// The remote work already started; the caller can still poll by id.
			logging.WarnWithContext(logger, "job ledger write failed", "job_record_failed",
				"check state_dir permissions", logging.Error(err))
		} else {
			resp.JobID = job.ID
		}
	}
	return resp, nil
}

// Poll checks whether the quiz for an artifact is ready.
func (s *QuizService) Poll(ctx context.Context, notebookID, artifactID string) (PollResponse, error) {
	notebookID = strings.TrimSpace(notebookID)
	artifactID = strings.TrimSpace(artifactID)
	if notebookID == "" || artifactID == "" {
		return PollResponse{}, services.Wrap(services.ErrValidation, "api", "poll", "missing parameters", nil)
	}
	logger := logging.WithContext(ctx, s.logger).With(
		logging.String(logging.FieldNotebookID, notebookID),
		logging.String(logging.FieldArtifactID, artifactID),
	)

	job := s.lookupJob(ctx, logger, notebookID, artifactID)
	if job != nil {
		ctx = services.WithJobID(ctx, job.ID)
		logger = logger.With(logging.String(logging.FieldJobID, job.ID))
		if job.Status == jobs.StatusCompleted {
			logger.Debug("serving cached quiz")
			return PollResponse{Status: statusCompleted, Quiz: job.Questions}, nil
		}
	}

	var known []string
	if job != nil && job.SourceID != "" {
		known = append(known, job.SourceID)
	}
	questions, err := s.notebooks.PollStudio(ctx, notebookID, artifactID, known...)
	if job != nil {
		if recErr := s.ledger.RecordPoll(ctx, job.ID); recErr != nil {
			logger.Warn("record poll failed", logging.Error(recErr))
		}
	}
	if err != nil {
		if job != nil && rejectedPoll(err) {
			if failErr := s.ledger.Fail(ctx, job.ID, err.Error()); failErr != nil {
				logger.Warn("record job failure failed", logging.Error(failErr))
			}
		}
		return PollResponse{}, err
	}
	if questions == nil {
		return PollResponse{Status: statusPending}, nil
	}

	if job != nil {
		if err := s.ledger.Complete(ctx, job.ID, questions); err != nil {
			logger.Warn("cache quiz failed", logging.Error(err))
		}
	}
	logger.Info("quiz ready",
		logging.String(logging.FieldEventType, "quiz_ready"),
		logging.Int("question_count", len(questions)),
	)
	return PollResponse{Status: statusCompleted, Quiz: questions}, nil
}

// rejectedPoll reports errors that retrying the same poll will not fix:
// the service refused the session or answered with an unusable payload.
// Transport errors leave the job pending.
func rejectedPoll(err error) bool {
	return errors.Is(err, services.ErrAuthentication) || errors.Is(err, services.ErrProtocol)
}

func (s *QuizService) lookupJob(ctx context.Context, logger *slog.Logger, notebookID, artifactID string) *jobs.Job {
	if s.ledger == nil {
		return nil
	}
	job, err := s.ledger.FindByArtifact(ctx, notebookID, artifactID)
	if err != nil {
		logger.Warn("job lookup failed", logging.Error(err))
		return nil
	}
	return job
}

// Jobs lists recent jobs, newest first.
func (s *QuizService) Jobs(ctx context.Context, limit int, statuses ...jobs.Status) ([]Job, error) {
	if s.ledger == nil {
		return []Job{}, nil
	}
	for _, status := range statuses {
		if !status.Valid() {
			return nil, services.Wrap(services.ErrValidation, "api", "jobs", fmt.Sprintf("unknown status %q", status), nil)
		}
	}
	list, err := s.ledger.List(ctx, limit, statuses...)
	if err != nil {
		return nil, err
	}
	return FromJobs(list), nil
}

// Status summarises the session and the job ledger.
func (s *QuizService) Status(ctx context.Context) (Status, error) {
	var out Status
	if s.session != nil {
		out.Session = FromSession(s.session.BaseURL(), s.session.Snapshot())
	}
	if s.ledger == nil {
		out.JobStats = map[string]int{}
		return out, nil
	}
	stats, err := s.ledger.Stats(ctx)
	if err != nil {
		return Status{}, err
	}
	out.JobStats = FromStats(stats)
	out.JobsTotal = stats.Total
	return out, nil
}

// NotebookTitle builds "<prefix> - <title> - <timestamp>".
func NotebookTitle(prefix, title string, now time.Time) string {
	return fmt.Sprintf("%s - %s - %s", prefix, cleanTitle(title), now.Format(titleTimestamp))
}

func cleanTitle(title string) string {
	title = strings.Join(strings.Fields(norm.NFC.String(title)), " ")
	if title == "" {
		return defaultTitle
	}
	if utf8.RuneCountInString(title) > maxTitleRunes {
		runes := []rune(title)
		title = strings.TrimSpace(string(runes[:maxTitleRunes]))
	}
	return title
}
