package session

import (
	"log/slog"
	"math/rand/v2"
	"net/http"
	"sort"
	"strings"
	"sync"
	"time"

	"quizgen/internal/logging"
)

const (
	requestIDStride = 100000
	requestIDMin    = 100000
	requestIDMax    = 999999

	defaultRefreshTimeout = 30 * time.Second

	defaultBaseURL   = "https://notebooklm.google.com"
	defaultUserAgent = "Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/121.0.0.0 Safari/537.36"
)

// HTTPDoer abstracts http.Client.Do for testing.
type HTTPDoer interface {
	Do(*http.Request) (*http.Response, error)
}

// Session is a point-in-time copy of the authentication material.
type Session struct {
	Cookies   map[string]string
	CSRFToken string
	SessionID string
}

// Store owns the mutable session shared by every exchange.
type Store struct {
	mu        sync.Mutex
	cookies   map[string]string
	csrfToken string
	sessionID string
	nextReqID int64

	baseURL   string
	userAgent string
	client    HTTPDoer
	logger    *slog.Logger
}

// Option configures a Store.
type Option func(*Store)

// WithHTTPClient overrides the HTTP client used by Refresh.
func WithHTTPClient(client HTTPDoer) Option {
	return func(s *Store) {
		if client != nil {
			s.client = client
		}
	}
}

// WithBaseURL overrides the landing page fetched by Refresh.
func WithBaseURL(baseURL string) Option {
	return func(s *Store) {
		if trimmed := strings.TrimRight(strings.TrimSpace(baseURL), "/"); trimmed != "" {
			s.baseURL = trimmed
		}
	}
}

// WithUserAgent overrides the browser user agent sent by Refresh.
func WithUserAgent(userAgent string) Option {
	return func(s *Store) {
		if strings.TrimSpace(userAgent) != "" {
			s.userAgent = userAgent
		}
	}
}

// WithLogger attaches a logger.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Store) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// WithRequestCounter fixes the first request id instead of drawing a random one.
func WithRequestCounter(start int64) Option {
	return func(s *Store) {
		s.nextReqID = start
	}
}

// NewStore builds a Store seeded from bundle.
func NewStore(bundle Bundle, opts ...Option) *Store {
	s := &Store{
		cookies:   make(map[string]string, len(bundle.Cookies)),
		csrfToken: bundle.CSRFToken,
		sessionID: bundle.SessionID,
		nextReqID: int64(requestIDMin + rand.IntN(requestIDMax-requestIDMin+1)),
		baseURL:   defaultBaseURL,
		userAgent: defaultUserAgent,
		client:    &http.Client{Timeout: defaultRefreshTimeout},
		logger:    logging.NewNop(),
	}
	for name, value := range bundle.Cookies {
		s.cookies[name] = value
	}
	for _, opt := range opts {
		if opt != nil {
			opt(s)
		}
	}
	s.logger = logging.NewComponentLogger(s.logger, "notebooklm-session")
	return s
}

// Load reads the credential bundle at path and builds a Store. A missing
// bundle yields an empty session; calls made with it fail authentication and
// go through recovery.
func Load(path string, opts ...Option) (*Store, error) {
	probe := NewStore(Bundle{}, opts...)
	bundle, exists, err := ReadBundle(path, probe.baseURL)
	if err != nil {
		return nil, err
	}
	store := NewStore(bundle, opts...)
	if !exists {
		logging.WarnWithContext(store.logger, "credential bundle not found; starting with an empty session",
			"credentials_missing", "run the NotebookLM login tool to create the bundle",
			logging.String("path", path),
		)
	} else {
		store.logger.Debug("credential bundle loaded",
			logging.String("path", path),
			logging.Int("cookies", len(bundle.Cookies)),
			logging.Bool("has_token", bundle.CSRFToken != ""),
		)
	}
	return store, nil
}

// NextRequestID returns the current counter value then advances it.
func (s *Store) NextRequestID() int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	id := s.nextReqID
	s.nextReqID += requestIDStride
	return id
}

// ApplySetCookies merges Set-Cookie directives from a response and returns
// how many were applied. The last value written for a name wins. Clearing
// directives (empty value, Max-Age<=0 or an Expires in the past) are
// skipped so they never replace a working cookie.
func (s *Store) ApplySetCookies(header http.Header) int {
	if header == nil {
		return 0
	}
	cookies := (&http.Response{Header: header}).Cookies()
	if len(cookies) == 0 {
		return 0
	}
	now := time.Now()
	s.mu.Lock()
	defer s.mu.Unlock()
	applied := 0
	for _, c := range cookies {
		if clearsCookie(c, now) {
			continue
		}
		s.cookies[c.Name] = c.Value
		applied++
	}
	return applied
}

func clearsCookie(c *http.Cookie, now time.Time) bool {
	if c.Value == "" || c.MaxAge < 0 {
		return true
	}
	return !c.Expires.IsZero() && c.Expires.Before(now)
}

// SetCSRFToken replaces the anti-forgery token.
func (s *Store) SetCSRFToken(token string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.csrfToken = token
}

// CSRFToken returns the current anti-forgery token.
func (s *Store) CSRFToken() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.csrfToken
}

// SessionID returns the current session id.
func (s *Store) SessionID() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.sessionID
}

// CookieHeader renders the cookie map as a Cookie header value, sorted by name.
func (s *Store) CookieHeader() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	names := make([]string, 0, len(s.cookies))
	for name := range s.cookies {
		names = append(names, name)
	}
	sort.Strings(names)
	parts := make([]string, 0, len(names))
	for _, name := range names {
		parts = append(parts, name+"="+s.cookies[name])
	}
	return strings.Join(parts, "; ")
}

// Snapshot returns a copy of the current session material.
func (s *Store) Snapshot() Session {
	s.mu.Lock()
	defer s.mu.Unlock()
	cookies := make(map[string]string, len(s.cookies))
	for name, value := range s.cookies {
		cookies[name] = value
	}
	return Session{Cookies: cookies, CSRFToken: s.csrfToken, SessionID: s.sessionID}
}

// BaseURL returns the service origin the store authenticates against.
func (s *Store) BaseURL() string {
	return s.baseURL
}

// UserAgent returns the browser user agent presented to the service.
func (s *Store) UserAgent() string {
	return s.userAgent
}
