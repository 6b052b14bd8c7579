package notebooklm

import (
	"context"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"

	"quizgen/internal/logging"
	"quizgen/internal/quiz"
	"quizgen/internal/services/notebooklm/batchexecute"
	"quizgen/internal/services/notebooklm/session"
)

const (
	defaultBuildLabel        = "boq_labs-tailwind-frontend_20260129.10_p0"
	defaultLocale            = "en"
	defaultTimeout           = 60 * time.Second
	defaultQuestionCount     = 5
	defaultDifficulty        = 2
	defaultChatLanguage      = "Vietnamese"
	defaultChatQuestionCount = 5
)

// HTTPDoer abstracts http.Client.Do for testing.
type HTTPDoer = session.HTTPDoer

// ChatFallback regenerates a quiz through free-form chat when studio output
// cannot be used. A nil slice with a nil error means no quiz yet.
type ChatFallback interface {
	GenerateQuizChat(ctx context.Context, notebookID string, sourceIDs []string) ([]quiz.Question, error)
}

// Client talks to NotebookLM on behalf of one session.
type Client struct {
	store   *session.Store
	http    HTTPDoer
	urls    batchexecute.URLBuilder
	timeout time.Duration
	logger  *slog.Logger

	questionCount     int
	difficulty        int
	chatQuestionCount int
	chatLanguage      string

	fallback  ChatFallback
	newChatID func() string
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient overrides the HTTP client used for RPC exchanges.
func WithHTTPClient(client HTTPDoer) Option {
	return func(c *Client) {
		if client != nil {
			c.http = client
		}
	}
}

// WithBuildLabel overrides the bl query parameter.
func WithBuildLabel(label string) Option {
	return func(c *Client) {
		if strings.TrimSpace(label) != "" {
			c.urls.BuildLabel = strings.TrimSpace(label)
		}
	}
}

// WithLocale overrides the hl query parameter.
func WithLocale(locale string) Option {
	return func(c *Client) {
		if strings.TrimSpace(locale) != "" {
			c.urls.Locale = strings.TrimSpace(locale)
		}
	}
}

// WithTimeout bounds each HTTP attempt.
func WithTimeout(timeout time.Duration) Option {
	return func(c *Client) {
		if timeout > 0 {
			c.timeout = timeout
		}
	}
}

// WithLogger attaches a logger.
func WithLogger(logger *slog.Logger) Option {
	return func(c *Client) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// WithQuizOptions sets the studio question count and difficulty (1-3).
func WithQuizOptions(count, difficulty int) Option {
	return func(c *Client) {
		if count > 0 {
			c.questionCount = count
		}
		if difficulty > 0 {
			c.difficulty = difficulty
		}
	}
}

// WithChatOptions sets the question count and language requested from chat.
func WithChatOptions(count int, language string) Option {
	return func(c *Client) {
		if count > 0 {
			c.chatQuestionCount = count
		}
		if strings.TrimSpace(language) != "" {
			c.chatLanguage = strings.TrimSpace(language)
		}
	}
}

// WithChatFallback replaces the chat fallback used by PollStudio.
func WithChatFallback(fallback ChatFallback) Option {
	return func(c *Client) {
		if fallback != nil {
			c.fallback = fallback
		}
	}
}

// New builds a Client bound to store.
func New(store *session.Store, opts ...Option) *Client {
	c := &Client{
		store: store,
		http:  &http.Client{},
		urls: batchexecute.URLBuilder{
			BaseURL:    store.BaseURL(),
			BuildLabel: defaultBuildLabel,
			Locale:     defaultLocale,
		},
		timeout:           defaultTimeout,
		logger:            logging.NewNop(),
		questionCount:     defaultQuestionCount,
		difficulty:        defaultDifficulty,
		chatQuestionCount: defaultChatQuestionCount,
		chatLanguage:      defaultChatLanguage,
		newChatID:         func() string { return "chat-" + uuid.NewString() },
	}
	for _, opt := range opts {
		if opt != nil {
			opt(c)
		}
	}
	c.logger = logging.NewComponentLogger(c.logger, "notebooklm")
	if c.fallback == nil {
		c.fallback = c
	}
	return c
}

// Session exposes the underlying session store.
func (c *Client) Session() *session.Store {
	return c.store
}

func (c *Client) applyHeaders(req *http.Request) {
	base := c.store.BaseURL()
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded;charset=UTF-8")
	req.Header.Set("Origin", base)
	req.Header.Set("Referer", base+"/")
	req.Header.Set("X-Same-Domain", "1")
	req.Header.Set("X-Goog-AuthUser", "0")
	req.Header.Set("User-Agent", c.store.UserAgent())
	if cookie := c.store.CookieHeader(); cookie != "" {
		req.Header.Set("Cookie", cookie)
	}
}
