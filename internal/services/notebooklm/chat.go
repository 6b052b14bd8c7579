package notebooklm

import (
	"context"

	"quizgen/internal/logging"
	"quizgen/internal/quiz"
	"quizgen/internal/services"
	"quizgen/internal/services/notebooklm/batchexecute"
)

const chatRPCName = "GenerateFreeFormStreamed"

// Ask sends a free-form question to the notebook chat, restricted to
// sourceIDs, and returns the longest answer text in the streamed reply.
func (c *Client) Ask(ctx context.Context, notebookID, prompt string, sourceIDs []string) (string, error) {
	if notebookID == "" {
		return "", services.Wrap(services.ErrValidation, "notebooklm", "chat", "notebook id is required", nil)
	}
	params := []any{sourceRefs(sourceIDs), prompt, nil, []any{2, nil, []any{1}}, c.newChatID()}

	frames, err := c.exchange(ctx, exchangePlan{
		name: chatRPCName,
		url: func(reqID int64, sessionID string) string {
			return c.urls.ChatURL(reqID, sessionID)
		},
		body: func(token string) (string, error) {
			return batchexecute.EncodeChatBody(params, token)
		},
		authFailed: batchexecute.HasAuthFailure,
	})
	if err != nil {
		return "", err
	}
	return batchexecute.ExtractChatAnswer(frames), nil
}

// GenerateQuizChat asks the notebook chat for a quiz in JSON form. It returns
// nil, nil when the reply holds no parseable quiz.
func (c *Client) GenerateQuizChat(ctx context.Context, notebookID string, sourceIDs []string) ([]quiz.Question, error) {
	logger := logging.WithContext(ctx, c.logger).With(logging.String(logging.FieldNotebookID, notebookID))

	answer, err := c.Ask(ctx, notebookID, quiz.ChatPrompt(c.chatQuestionCount, c.chatLanguage), sourceIDs)
	if err != nil {
		return nil, err
	}
	questions, ok := quiz.ParseChatReply(answer)
	if !ok {
		logging.WarnWithContext(logger, "chat reply held no parseable quiz",
			"chat_quiz_unparsed", "poll again later",
			logging.Int("answer_chars", len([]rune(answer))),
		)
		return nil, nil
	}
	logger.Info("quiz generated through chat",
		logging.String(logging.FieldEventType, "quiz_chat_generated"),
		logging.Int("questions", len(questions)),
		logging.Int("sources", len(sourceIDs)),
	)
	return questions, nil
}
