package session

import (
	"context"
	"fmt"
	"html"
	"io"
	"net/http"
	"regexp"
	"strings"

	"quizgen/internal/logging"
	"quizgen/internal/services"
)

const maxLandingPageBytes = 8 << 20

var (
	csrfTokenPattern = regexp.MustCompile(`"SNlM0e":"([^"]+)"`)
	sessionIDPattern = regexp.MustCompile(`"FdrFJe":"([^"]+)"`)
	titlePattern     = regexp.MustCompile(`(?is)<title[^>]*>(.*?)</title>`)
)

// Refresh fetches the landing page with the current cookies and scrapes a
// fresh anti-forgery token and session id from it. It reports whether either
// value was found. Finding neither is not an error; the page title is logged
// so a login redirect can be recognised.
func (s *Store) Refresh(ctx context.Context) (bool, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.baseURL+"/", nil)
	if err != nil {
		return false, services.Wrap(services.ErrTransport, "session", "refresh", "build request", err)
	}
	req.Header.Set("Accept", "text/html,application/xhtml+xml")
	req.Header.Set("User-Agent", s.userAgent)
	if cookie := s.CookieHeader(); cookie != "" {
		req.Header.Set("Cookie", cookie)
	}

	resp, err := s.client.Do(req)
	if err != nil {
		return false, services.Wrap(services.ErrTransport, "session", "refresh", "fetch landing page", err)
	}
	defer resp.Body.Close()
	s.ApplySetCookies(resp.Header)

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxLandingPageBytes))
	if err != nil {
		return false, services.Wrap(services.ErrTransport, "session", "refresh", "read landing page", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return false, services.Wrap(services.ErrAuthentication, "session", "refresh",
			fmt.Sprintf("landing page returned %d", resp.StatusCode), nil)
	}

	page := string(body)
	token := firstMatch(csrfTokenPattern, page)
	sessionID := firstMatch(sessionIDPattern, page)

	if token == "" && sessionID == "" {
		logging.WarnWithContext(s.logger, "session refresh found no tokens",
			"session_refresh_empty", "credentials are likely expired; log in again and re-export the bundle",
			logging.String("page_title", pageTitle(page)),
		)
		return false, nil
	}

	s.mu.Lock()
	if token != "" {
		s.csrfToken = token
	}
	if sessionID != "" {
		s.sessionID = sessionID
	}
	s.mu.Unlock()

	s.logger.Info("session refreshed",
		logging.String(logging.FieldEventType, "session_refreshed"),
		logging.Bool("token_updated", token != ""),
		logging.Bool("session_id_updated", sessionID != ""),
	)
	return true, nil
}

func firstMatch(pattern *regexp.Regexp, text string) string {
	match := pattern.FindStringSubmatch(text)
	if len(match) < 2 {
		return ""
	}
	return match[1]
}

func pageTitle(page string) string {
	title := firstMatch(titlePattern, page)
	if title == "" {
		return "(no title)"
	}
	return strings.TrimSpace(html.UnescapeString(title))
}
