package notebooklm

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"
	"unicode/utf8"

	"quizgen/internal/logging"
	"quizgen/internal/services"
	"quizgen/internal/services/notebooklm/batchexecute"
)

const (
	// maxAttempts caps one logical operation at the original send plus one
	// recovery retry.
	maxAttempts      = 2
	maxResponseBytes = 32 << 20
	previewLimit     = 500
)

// ExchangeError describes a terminal RPC failure.
type ExchangeError struct {
	RPCID       string
	Status      int
	Preview     string
	AuthFailure bool
}

func (e *ExchangeError) Error() string {
	reason := fmt.Sprintf("status %d", e.Status)
	if e.AuthFailure {
		reason += ", session rejected"
	}
	if e.Preview == "" {
		return fmt.Sprintf("notebooklm %s failed (%s)", e.RPCID, reason)
	}
	return fmt.Sprintf("notebooklm %s failed (%s): %s", e.RPCID, reason, e.Preview)
}

// exchangePlan describes one logical operation. url and body are rebuilt on
// every attempt so retries pick up refreshed session material.
type exchangePlan struct {
	name       string
	url        func(reqID int64, sessionID string) string
	body       func(token string) (string, error)
	authFailed func(frames []any) bool
}

type recovery int

const (
	recoverNone recovery = iota
	recoverTokenRepair
	recoverRefresh
)

// call runs a batchexecute RPC and returns its decoded result. A result with
// Found=false is returned as-is; callers decide whether absence is an error.
func (c *Client) call(ctx context.Context, rpcID, sourcePath string, params any) (batchexecute.Result, error) {
	rpc := batchexecute.Call{ID: rpcID, Params: params}
	frames, err := c.exchange(ctx, exchangePlan{
		name: rpcID,
		url: func(reqID int64, sessionID string) string {
			return c.urls.BatchURL(rpcID, sourcePath, reqID, sessionID)
		},
		body: func(token string) (string, error) {
			return batchexecute.EncodeBody(rpc, token)
		},
		authFailed: func(frames []any) bool {
			return batchexecute.ExtractResult(frames, rpcID).AuthFailure
		},
	})
	if err != nil {
		return batchexecute.Result{}, err
	}
	return batchexecute.ExtractResult(frames, rpcID), nil
}

// exchange performs the bounded send/recover/retry loop and returns the
// decoded frames of the successful attempt.
func (c *Client) exchange(ctx context.Context, plan exchangePlan) ([]any, error) {
	logger := logging.WithContext(ctx, c.logger).With(logging.String(logging.FieldRPCID, plan.name))

	var lastErr *ExchangeError
	for attempt := 0; attempt < maxAttempts; attempt++ {
		status, raw, err := c.send(ctx, plan)
		if err != nil {
			return nil, err
		}
		frames := batchexecute.ParseFrames(raw)

		ok := status >= 200 && status < 300
		authFailed := ok && plan.authFailed(frames)
		if ok && !authFailed {
			logger.Debug("rpc exchange succeeded",
				logging.String(logging.FieldEventType, "rpc_ok"),
				logging.Int("attempt", attempt+1),
				logging.Int("status", status),
				logging.Int("frames", len(frames)),
			)
			return frames, nil
		}

		lastErr = &ExchangeError{
			RPCID:       plan.name,
			Status:      status,
			Preview:     preview(raw),
			AuthFailure: authFailed || status == http.StatusUnauthorized || status == http.StatusForbidden,
		}

		action := c.classify(status, authFailed, frames)
		if action == recoverNone || attempt == maxAttempts-1 {
			break
		}
		c.applyRecovery(ctx, action, frames, status, logger)
	}

	marker := services.ErrProtocol
	if lastErr.AuthFailure {
		marker = services.ErrAuthentication
	}
	logger.Error("rpc exchange failed",
		logging.String(logging.FieldEventType, "rpc_failed"),
		logging.Int("status", lastErr.Status),
		logging.Bool("auth_failure", lastErr.AuthFailure),
		logging.String(logging.FieldErrorHint, errorHint(lastErr)),
	)
	return nil, services.Wrap(marker, "notebooklm", plan.name, "exchange failed", lastErr)
}

func (c *Client) classify(status int, authFailed bool, frames []any) recovery {
	switch {
	case authFailed, status == http.StatusUnauthorized, status == http.StatusForbidden:
		return recoverRefresh
	case status == http.StatusBadRequest:
		if _, ok := batchexecute.FindCSRFRepair(frames); ok {
			return recoverTokenRepair
		}
	}
	return recoverNone
}

// refresh fetches fresh tokens under the same deadline as an RPC exchange.
func (c *Client) refresh(ctx context.Context) (bool, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()
	return c.store.Refresh(ctx)
}

func (c *Client) applyRecovery(ctx context.Context, action recovery, frames []any, status int, logger *slog.Logger) {
	switch action {
	case recoverTokenRepair:
		token, _ := batchexecute.FindCSRFRepair(frames)
		c.store.SetCSRFToken(token)
		logger.Info("anti-forgery token repaired from response",
			logging.String(logging.FieldEventType, "csrf_repaired"),
			logging.Int("status", status),
		)
	case recoverRefresh:
		logger.Info("session rejected; refreshing before retry",
			logging.String(logging.FieldEventType, "auth_refresh"),
			logging.Int("status", status),
		)
		if _, err := c.refresh(ctx); err != nil {
			logging.WarnWithContext(logger, "session refresh failed; retrying with current session",
				"auth_refresh_failed", "check network access and credential bundle",
				logging.Error(err),
			)
		}
	}
}

// send performs one HTTP attempt under the per-exchange timeout.
func (c *Client) send(ctx context.Context, plan exchangePlan) (int, string, error) {
	body, err := plan.body(c.store.CSRFToken())
	if err != nil {
		return 0, "", services.Wrap(services.ErrValidation, "notebooklm", plan.name, "encode request", err)
	}
	target := plan.url(c.store.NextRequestID(), c.store.SessionID())

	attemptCtx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(attemptCtx, http.MethodPost, target, strings.NewReader(body))
	if err != nil {
		return 0, "", services.Wrap(services.ErrTransport, "notebooklm", plan.name, "build request", err)
	}
	c.applyHeaders(req)

	started := time.Now()
	resp, err := c.http.Do(req)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) && ctx.Err() == nil {
			return 0, "", services.Wrap(services.ErrTransport, "notebooklm", plan.name,
				fmt.Sprintf("timed out after %s", c.timeout), err)
		}
		return 0, "", services.Wrap(services.ErrTransport, "notebooklm", plan.name, "request failed", err)
	}
	defer resp.Body.Close()
	c.store.ApplySetCookies(resp.Header)

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return 0, "", services.Wrap(services.ErrTransport, "notebooklm", plan.name, "read response", err)
	}
	c.logger.Debug("rpc response received",
		logging.String(logging.FieldRPCID, plan.name),
		logging.Int("status", resp.StatusCode),
		logging.Int("bytes", len(data)),
		logging.Duration("elapsed", time.Since(started)),
	)
	return resp.StatusCode, string(data), nil
}

func preview(raw string) string {
	raw = strings.TrimSpace(raw)
	if len(raw) <= previewLimit {
		return raw
	}
	cut := previewLimit
	for cut > 0 && !utf8.RuneStart(raw[cut]) {
		cut--
	}
	return raw[:cut] + "..."
}

func errorHint(err *ExchangeError) string {
	switch {
	case err.AuthFailure:
		return "credentials expired; log in to NotebookLM again and re-export the bundle"
	case err.Status == http.StatusBadRequest:
		return "request rejected; the build label may be out of date"
	default:
		return "service returned an unexpected response"
	}
}
