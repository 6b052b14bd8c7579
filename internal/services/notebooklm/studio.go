package notebooklm

import (
	"context"

	"quizgen/internal/logging"
	"quizgen/internal/quiz"
	"quizgen/internal/services"
	"quizgen/internal/services/notebooklm/batchexecute"
)

const (
	artifactKindQuiz      = 4
	rawStatusCompleted    = 3
	suggestedArtifactsOff = `NOT artifact.status = "ARTIFACT_STATUS_SUGGESTED"`
)

// ArtifactStatus is the lifecycle state of a studio artifact.
type ArtifactStatus int

const (
	// StatusPending means generation has not visibly started.
	StatusPending ArtifactStatus = iota
	// StatusInProgress covers any reported code other than completed.
	StatusInProgress
	// StatusCompleted means the payload is ready to parse.
	StatusCompleted
)

func (s ArtifactStatus) String() string {
	switch s {
	case StatusInProgress:
		return "in_progress"
	case StatusCompleted:
		return "completed"
	default:
		return "pending"
	}
}

func artifactStatus(raw any) ArtifactStatus {
	code, ok := raw.(float64)
	switch {
	case !ok || code == 0:
		return StatusPending
	case code == rawStatusCompleted:
		return StatusCompleted
	default:
		return StatusInProgress
	}
}

// Artifact is one studio output listed for a notebook.
type Artifact struct {
	ID        string
	Title     string
	Kind      int
	Status    ArtifactStatus
	SourceIDs []string
	Payload   any
}

func parseArtifact(raw any) (Artifact, bool) {
	id := stringAt(raw, 0)
	if id == "" {
		return Artifact{}, false
	}
	kind, _ := at(raw, 2).(float64)
	artifact := Artifact{
		ID:      id,
		Title:   stringAt(raw, 1),
		Kind:    int(kind),
		Status:  artifactStatus(at(raw, 4)),
		Payload: at(raw, 9),
	}
	if sources, ok := at(raw, 3).([]any); ok {
		for _, src := range sources {
			if sid := stringAt(src, 0, 0, 0); sid != "" {
				artifact.SourceIDs = append(artifact.SourceIDs, sid)
			} else if sid := firstString(src); sid != "" {
				artifact.SourceIDs = append(artifact.SourceIDs, sid)
			}
		}
	}
	return artifact, true
}

func sourceRefs(sourceIDs []string) []any {
	refs := make([]any, 0, len(sourceIDs))
	for _, sid := range sourceIDs {
		refs = append(refs, []any{[]any{sid}})
	}
	return refs
}

// CreateQuiz asks the studio to generate a quiz from sourceIDs and returns the
// artifact id. Generation continues server-side; use PollStudio to collect it.
func (c *Client) CreateQuiz(ctx context.Context, notebookID string, sourceIDs []string) (string, error) {
	if notebookID == "" {
		return "", services.Wrap(services.ErrValidation, "notebooklm", "create quiz", "notebook id is required", nil)
	}
	options := []any{nil, []any{2, nil, nil, nil, nil, nil, nil, []any{c.questionCount, c.difficulty}}}
	request := []any{nil, nil, artifactKindQuiz, sourceRefs(sourceIDs), nil, nil, nil, nil, nil, options}
	params := []any{[]any{2}, notebookID, request}

	result, err := c.call(ctx, batchexecute.RPCCreateArtifact, notebookPath(notebookID), params)
	if err != nil {
		return "", err
	}
	id := stringAt(result.Value, 0, 0)
	if id == "" {
		id = stringAt(result.Value, 0)
	}
	if id == "" {
		return "", services.Wrap(services.ErrProtocol, "notebooklm", "create quiz", "artifact id missing from response", nil)
	}
	c.logger.Info("quiz generation requested",
		logging.String(logging.FieldEventType, "quiz_requested"),
		logging.String(logging.FieldNotebookID, notebookID),
		logging.String(logging.FieldArtifactID, id),
		logging.Int("sources", len(sourceIDs)),
		logging.Int("question_count", c.questionCount),
	)
	return id, nil
}

// ListArtifacts returns the studio artifacts of a notebook. ok=false means the
// response did not contain a usable list.
func (c *Client) ListArtifacts(ctx context.Context, notebookID string) ([]Artifact, bool, error) {
	params := []any{[]any{2}, notebookID, suggestedArtifactsOff}
	result, err := c.call(ctx, batchexecute.RPCListArtifacts, notebookPath(notebookID), params)
	if err != nil {
		return nil, false, err
	}
	list, ok := at(result.Value, 0).([]any)
	if !result.Found || !ok {
		return nil, false, nil
	}
	artifacts := make([]Artifact, 0, len(list))
	for _, raw := range list {
		if artifact, ok := parseArtifact(raw); ok {
			artifacts = append(artifacts, artifact)
		}
	}
	return artifacts, true, nil
}

// PollStudio checks on a quiz artifact. It returns nil, nil while generation
// is still running. When the artifact is missing or its payload cannot be
// parsed, the chat fallback produces the quiz instead; knownSourceIDs seed
// that fallback when the artifact does not list its sources.
func (c *Client) PollStudio(ctx context.Context, notebookID, artifactID string, knownSourceIDs ...string) ([]quiz.Question, error) {
	logger := logging.WithContext(ctx, c.logger).With(
		logging.String(logging.FieldNotebookID, notebookID),
		logging.String(logging.FieldArtifactID, artifactID),
	)

	artifacts, ok, err := c.ListArtifacts(ctx, notebookID)
	if err != nil {
		return nil, err
	}
	if !ok {
		logger.Info("artifact list missing; falling back to chat",
			logging.String(logging.FieldEventType, "poll_list_invalid"),
		)
		return c.chatFallback(ctx, notebookID, knownSourceIDs)
	}

	var artifact *Artifact
	for i := range artifacts {
		if artifacts[i].ID == artifactID {
			artifact = &artifacts[i]
			break
		}
	}
	if artifact == nil {
		logger.Info("artifact not listed; falling back to chat",
			logging.String(logging.FieldEventType, "poll_artifact_missing"),
			logging.Int("artifacts", len(artifacts)),
		)
		return c.chatFallback(ctx, notebookID, knownSourceIDs)
	}

	if artifact.Status != StatusCompleted {
		logger.Debug("artifact still generating",
			logging.String(logging.FieldEventType, "poll_pending"),
			logging.String("status", artifact.Status.String()),
		)
		return nil, nil
	}

	questions, strategy, ok := quiz.Extract(artifact.Payload)
	if ok {
		logger.Info("quiz extracted from studio artifact",
			logging.String(logging.FieldEventType, "quiz_extracted"),
			logging.String("strategy", strategy),
			logging.Int("questions", len(questions)),
		)
		return questions, nil
	}

	logger.Info("studio payload inconclusive; falling back to chat",
		logging.String(logging.FieldEventType, "extract_inconclusive"),
	)
	sourceIDs := artifact.SourceIDs
	if len(sourceIDs) == 0 {
		sourceIDs = knownSourceIDs
	}
	return c.chatFallback(ctx, notebookID, sourceIDs)
}

func (c *Client) chatFallback(ctx context.Context, notebookID string, sourceIDs []string) ([]quiz.Question, error) {
	if len(sourceIDs) == 0 {
		sources, err := c.GetNotebookSources(ctx, notebookID)
		if err != nil {
			logging.WarnWithContext(c.logger, "source lookup for chat fallback failed",
				"chat_sources_unavailable", "chat will run against all notebook sources",
				logging.String(logging.FieldNotebookID, notebookID),
				logging.Error(err),
			)
		}
		for _, src := range sources {
			sourceIDs = append(sourceIDs, src.ID)
		}
	}
	return c.fallback.GenerateQuizChat(ctx, notebookID, sourceIDs)
}
