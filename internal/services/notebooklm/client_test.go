package notebooklm_test

import (
	"context"
	"errors"
	"net/http"
	"reflect"
	"strings"
	"testing"
	"time"

	"quizgen/internal/quiz"
	"quizgen/internal/services"
	"quizgen/internal/services/notebooklm"
	"quizgen/internal/services/notebooklm/batchexecute"
	"quizgen/internal/services/notebooklm/session"
)

var completedPayload = []any{
	"quiz-title",
	[]any{2, nil, 5},
	[]any{
		[]any{"What does the document describe?", []any{[]any{"A protocol", 1}, []any{"A recipe", 0}}},
		[]any{"Which step comes first?", []any{[]any{"Poll", false}, []any{"Create notebook", true}}},
	},
}

func TestEndToEndScenario(t *testing.T) {
	fake := newFakeService(t)
	fake.respond(batchexecute.RPCCreateNotebook, []any{"Demo", nil, "nb_1"})
	fake.respond(batchexecute.RPCAddSource, []any{[]any{[]any{[]any{"src_1"}, "Doc"}}})
	fake.respond(batchexecute.RPCCreateArtifact, []any{[]any{"art_1", "Quiz", 4}})
	fake.handle(batchexecute.RPCListArtifacts, func(call int, _ rpcRequest) (int, string) {
		status, payload := 1, any(nil)
		if call > 1 {
			status, payload = 3, completedPayload
		}
		list := []any{artifactTuple("other", 3, nil, nil), artifactTuple("art_1", status, []string{"src_1"}, payload)}
		return http.StatusOK, rpcResponse(t, batchexecute.RPCListArtifacts, []any{list})
	})

	double := &chatDouble{}
	client := fake.client(notebooklm.WithChatFallback(double))
	ctx := context.Background()

	nb, err := client.CreateNotebook(ctx, "Demo")
	if err != nil || nb != "nb_1" {
		t.Fatalf("CreateNotebook = %q, %v", nb, err)
	}
	src, err := client.AddTextSource(ctx, nb, "Lorem ipsum...", "Doc")
	if err != nil || src != "src_1" {
		t.Fatalf("AddTextSource = %q, %v", src, err)
	}
	art, err := client.CreateQuiz(ctx, nb, []string{src})
	if err != nil || art != "art_1" {
		t.Fatalf("CreateQuiz = %q, %v", art, err)
	}

	pending, err := client.PollStudio(ctx, nb, art)
	if err != nil {
		t.Fatalf("first PollStudio: %v", err)
	}
	if pending != nil {
		t.Fatalf("expected pending nil result, got %#v", pending)
	}

	questions, err := client.PollStudio(ctx, nb, art)
	if err != nil {
		t.Fatalf("second PollStudio: %v", err)
	}
	want := []quiz.Question{
		{Question: "What does the document describe?", Options: []quiz.Option{{Text: "A protocol", IsCorrect: true}, {Text: "A recipe"}}},
		{Question: "Which step comes first?", Options: []quiz.Option{{Text: "Poll"}, {Text: "Create notebook", IsCorrect: true}}},
	}
	if !reflect.DeepEqual(questions, want) {
		t.Fatalf("questions mismatch:\n got %#v\nwant %#v", questions, want)
	}
	if double.calls != 0 {
		t.Fatalf("chat fallback should not run, got %d calls", double.calls)
	}

	requests := fake.received()
	if len(requests) != 5 {
		t.Fatalf("expected 5 rpc requests, got %d", len(requests))
	}
	for i, req := range requests {
		if req.Token != "initial-token" || req.SessionID != "initial-sid" {
			t.Fatalf("request %d missing session material: %+v", i, req)
		}
		if req.Header.Get("Cookie") != "SID=cookie" || req.Header.Get("X-Same-Domain") != "1" {
			t.Fatalf("request %d missing headers: %v", i, req.Header)
		}
		if !strings.HasPrefix(req.Header.Get("Content-Type"), "application/x-www-form-urlencoded") {
			t.Fatalf("request %d content type %q", i, req.Header.Get("Content-Type"))
		}
		if i > 0 && req.ReqID <= requests[i-1].ReqID {
			t.Fatalf("request ids not increasing: %d then %d", requests[i-1].ReqID, req.ReqID)
		}
	}
	if requests[1].SourcePath != "/notebook/nb_1" {
		t.Fatalf("unexpected source path %q", requests[1].SourcePath)
	}

	wantAdd := []any{
		[]any{[]any{nil, []any{"Doc", "Lorem ipsum..."}, nil, 2.0, nil, nil, nil, nil, nil, nil, 1.0}},
		"nb_1",
		[]any{2.0},
		[]any{1.0, nil, nil, nil, nil, nil, nil, nil, nil, nil, []any{1.0}},
	}
	if !reflect.DeepEqual(requests[1].Params, wantAdd) {
		t.Fatalf("add source params mismatch:\n got %#v\nwant %#v", requests[1].Params, wantAdd)
	}
	wantQuiz := []any{
		[]any{2.0},
		"nb_1",
		[]any{nil, nil, 4.0, []any{[]any{[]any{"src_1"}}}, nil, nil, nil, nil, nil,
			[]any{nil, []any{2.0, nil, nil, nil, nil, nil, nil, []any{5.0, 2.0}}}},
	}
	if !reflect.DeepEqual(requests[2].Params, wantQuiz) {
		t.Fatalf("create quiz params mismatch:\n got %#v\nwant %#v", requests[2].Params, wantQuiz)
	}
}

func TestAuthStatusRecoveredWithOneRefresh(t *testing.T) {
	fake := newFakeService(t)
	fake.handle(batchexecute.RPCCreateNotebook, func(call int, _ rpcRequest) (int, string) {
		if call == 1 {
			return http.StatusUnauthorized, "unauthorized"
		}
		return http.StatusOK, rpcResponse(t, batchexecute.RPCCreateNotebook, []any{"t", nil, "nb_9"})
	})

	id, err := fake.client().CreateNotebook(context.Background(), "t")
	if err != nil {
		t.Fatalf("CreateNotebook: %v", err)
	}
	if id != "nb_9" {
		t.Fatalf("unexpected id %q", id)
	}
	if got := fake.calls(batchexecute.RPCCreateNotebook); got != 2 {
		t.Fatalf("expected 2 rpc calls, got %d", got)
	}
	if got := fake.refreshCount(); got != 1 {
		t.Fatalf("expected 1 refresh, got %d", got)
	}
	retry := fake.received()[1]
	if retry.Token != "fresh-token" || retry.SessionID != "fresh-sid" {
		t.Fatalf("retry did not use refreshed session: %+v", retry)
	}
}

func TestEmbeddedAuthSentinelRecoveredWithOneRefresh(t *testing.T) {
	fake := newFakeService(t)
	fake.handle(batchexecute.RPCCreateArtifact, func(call int, _ rpcRequest) (int, string) {
		if call == 1 {
			return http.StatusOK, authSentinelResponse(t, batchexecute.RPCCreateArtifact)
		}
		return http.StatusOK, rpcResponse(t, batchexecute.RPCCreateArtifact, []any{"art_bare"})
	})

	id, err := fake.client().CreateQuiz(context.Background(), "nb_1", []string{"src_1"})
	if err != nil {
		t.Fatalf("CreateQuiz: %v", err)
	}
	if id != "art_bare" {
		t.Fatalf("unexpected artifact id %q", id)
	}
	if fake.calls(batchexecute.RPCCreateArtifact) != 2 || fake.refreshCount() != 1 {
		t.Fatalf("expected 2 calls and 1 refresh, got %d and %d", fake.calls(batchexecute.RPCCreateArtifact), fake.refreshCount())
	}
}

func TestPersistentAuthFailureStopsAfterTwoAttempts(t *testing.T) {
	fake := newFakeService(t)
	fake.handle(batchexecute.RPCAddSource, func(int, rpcRequest) (int, string) {
		return http.StatusForbidden, strings.Repeat("denied ", 200)
	})

	_, err := fake.client().AddTextSource(context.Background(), "nb_1", "text", "title")
	if err == nil {
		t.Fatal("expected error")
	}
	if !errors.Is(err, services.ErrAuthentication) {
		t.Fatalf("expected authentication marker, got %v", err)
	}
	var exErr *notebooklm.ExchangeError
	if !errors.As(err, &exErr) {
		t.Fatalf("expected ExchangeError, got %T", err)
	}
	if exErr.Status != http.StatusForbidden || !exErr.AuthFailure {
		t.Fatalf("unexpected exchange error %+v", exErr)
	}
	if len(exErr.Preview) > 503 || !strings.HasSuffix(exErr.Preview, "...") {
		t.Fatalf("expected bounded preview, got %d bytes", len(exErr.Preview))
	}
	if got := fake.calls(batchexecute.RPCAddSource); got != 2 {
		t.Fatalf("expected exactly 2 attempts, got %d", got)
	}
	if got := fake.refreshCount(); got != 1 {
		t.Fatalf("expected exactly 1 refresh, got %d", got)
	}
}

func TestPersistentSentinelStopsAfterTwoAttempts(t *testing.T) {
	fake := newFakeService(t)
	fake.setLanding("<html><title>Sign in</title></html>")
	fake.handle(batchexecute.RPCCreateNotebook, func(int, rpcRequest) (int, string) {
		return http.StatusOK, authSentinelResponse(t, batchexecute.RPCCreateNotebook)
	})

	_, err := fake.client().CreateNotebook(context.Background(), "t")
	if !errors.Is(err, services.ErrAuthentication) {
		t.Fatalf("expected authentication error, got %v", err)
	}
	if got := fake.calls(batchexecute.RPCCreateNotebook); got != 2 {
		t.Fatalf("expected exactly 2 attempts, got %d", got)
	}
}

func TestBadRequestRepairsTokenWithoutRefresh(t *testing.T) {
	fake := newFakeService(t)
	fake.handle(batchexecute.RPCDeleteNotebook, func(call int, req rpcRequest) (int, string) {
		if call == 1 {
			return http.StatusBadRequest, ")]}'\n" + `[["er",null,null,null,null,400],["xsrf","repaired-token"]]` + "\n"
		}
		if req.Token != "repaired-token" {
			return http.StatusBadRequest, "still stale"
		}
		return http.StatusOK, rpcResponse(t, batchexecute.RPCDeleteNotebook, []any{})
	})

	client := fake.client()
	if err := client.DeleteNotebook(context.Background(), "nb_1"); err != nil {
		t.Fatalf("DeleteNotebook: %v", err)
	}
	if fake.calls(batchexecute.RPCDeleteNotebook) != 2 {
		t.Fatalf("expected 2 calls, got %d", fake.calls(batchexecute.RPCDeleteNotebook))
	}
	if fake.refreshCount() != 0 {
		t.Fatalf("token repair must not refresh, got %d refreshes", fake.refreshCount())
	}
	if client.Session().CSRFToken() != "repaired-token" {
		t.Fatalf("expected repaired token in session, got %q", client.Session().CSRFToken())
	}
}

func TestBadRequestWithoutRepairIsTerminal(t *testing.T) {
	fake := newFakeService(t)
	fake.handle(batchexecute.RPCListNotebooks, func(int, rpcRequest) (int, string) {
		return http.StatusBadRequest, ")]}'\n[[\"er\",null,null,null,null,400]]\n"
	})

	_, err := fake.client().ListNotebooks(context.Background())
	if !errors.Is(err, services.ErrProtocol) {
		t.Fatalf("expected protocol error, got %v", err)
	}
	var exErr *notebooklm.ExchangeError
	if !errors.As(err, &exErr) || exErr.Status != http.StatusBadRequest || exErr.AuthFailure {
		t.Fatalf("unexpected exchange error %+v", exErr)
	}
	if fake.calls(batchexecute.RPCListNotebooks) != 1 || fake.refreshCount() != 0 {
		t.Fatal("bad request without repair must not retry")
	}
}

type failingDoer struct{ calls int }

func (d *failingDoer) Do(*http.Request) (*http.Response, error) {
	d.calls++
	return nil, errors.New("dial tcp: connection refused")
}

func TestTransportErrorIsNotRetried(t *testing.T) {
	doer := &failingDoer{}
	store := session.NewStore(session.Bundle{}, session.WithHTTPClient(doer))
	client := notebooklm.New(store, notebooklm.WithHTTPClient(doer))

	_, err := client.CreateNotebook(context.Background(), "t")
	if !errors.Is(err, services.ErrTransport) {
		t.Fatalf("expected transport error, got %v", err)
	}
	if doer.calls != 1 {
		t.Fatalf("expected a single attempt, got %d", doer.calls)
	}
}

func TestExchangeTimeout(t *testing.T) {
	fake := newFakeService(t)
	fake.handle(batchexecute.RPCListNotebooks, func(int, rpcRequest) (int, string) {
		time.Sleep(300 * time.Millisecond)
		return http.StatusOK, rpcResponse(t, batchexecute.RPCListNotebooks, []any{[]any{}})
	})

	client := fake.client(notebooklm.WithTimeout(50 * time.Millisecond))
	started := time.Now()
	_, err := client.ListNotebooks(context.Background())
	if !errors.Is(err, services.ErrTransport) {
		t.Fatalf("expected transport error on timeout, got %v", err)
	}
	if !strings.Contains(err.Error(), "timed out") {
		t.Fatalf("expected timeout message, got %v", err)
	}
	if time.Since(started) > 250*time.Millisecond {
		t.Fatalf("timeout not enforced, took %s", time.Since(started))
	}
}

func TestRefreshDuringRecoveryHonoursTimeout(t *testing.T) {
	fake := newFakeService(t)
	fake.handle(batchexecute.RPCListNotebooks, func(int, rpcRequest) (int, string) {
		return http.StatusUnauthorized, ""
	})
	fake.stallLanding(5 * time.Second)

	client := fake.client(notebooklm.WithTimeout(200 * time.Millisecond))
	started := time.Now()
	_, err := client.ListNotebooks(context.Background())
	if !errors.Is(err, services.ErrAuthentication) {
		t.Fatalf("expected authentication error, got %v", err)
	}
	if elapsed := time.Since(started); elapsed > 2*time.Second {
		t.Fatalf("refresh not bounded by exchange timeout, took %s", elapsed)
	}
	if got := fake.calls(batchexecute.RPCListNotebooks); got != 2 {
		t.Fatalf("expected retry after failed refresh, got %d calls", got)
	}
}

func TestRefreshSessionHonoursTimeout(t *testing.T) {
	fake := newFakeService(t)
	fake.stallLanding(5 * time.Second)

	client := fake.client(notebooklm.WithTimeout(100 * time.Millisecond))
	started := time.Now()
	if _, err := client.RefreshSession(context.Background()); !errors.Is(err, services.ErrTransport) {
		t.Fatalf("expected transport error, got %v", err)
	}
	if elapsed := time.Since(started); elapsed > 2*time.Second {
		t.Fatalf("refresh not bounded, took %s", elapsed)
	}
}

func TestCreateNotebookMissingIDIsProtocolError(t *testing.T) {
	fake := newFakeService(t)
	fake.respond(batchexecute.RPCCreateNotebook, []any{"only title"})

	_, err := fake.client().CreateNotebook(context.Background(), "t")
	if !errors.Is(err, services.ErrProtocol) {
		t.Fatalf("expected protocol error, got %v", err)
	}
}

func TestCreateNotebookNestedID(t *testing.T) {
	fake := newFakeService(t)
	fake.respond(batchexecute.RPCCreateNotebook, []any{[]any{"t", nil, "nb_nested"}})

	id, err := fake.client().CreateNotebook(context.Background(), "t")
	if err != nil || id != "nb_nested" {
		t.Fatalf("CreateNotebook = %q, %v", id, err)
	}
}

func TestListNotebooksAndSources(t *testing.T) {
	fake := newFakeService(t)
	fake.respond(batchexecute.RPCListNotebooks, []any{[]any{
		[]any{"First", []any{[]any{"s"}, []any{"t"}}, "nb_a"},
		[]any{"Broken"},
		[]any{"Second", nil, "nb_b"},
	}})
	fake.respond(batchexecute.RPCGetNotebook, []any{[]any{
		"First",
		[]any{
			[]any{[]any{"src_a"}, "Doc A"},
			[]any{[]any{[]any{"src_b"}}, "Doc B"},
			[]any{nil},
		},
		"nb_a",
	}})

	client := fake.client()
	notebooks, err := client.ListNotebooks(context.Background())
	if err != nil {
		t.Fatalf("ListNotebooks: %v", err)
	}
	wantNotebooks := []notebooklm.Notebook{{ID: "nb_a", Title: "First", SourceCount: 2}, {ID: "nb_b", Title: "Second"}}
	if !reflect.DeepEqual(notebooks, wantNotebooks) {
		t.Fatalf("notebooks mismatch: %#v", notebooks)
	}

	sources, err := client.GetNotebookSources(context.Background(), "nb_a")
	if err != nil {
		t.Fatalf("GetNotebookSources: %v", err)
	}
	wantSources := []notebooklm.Source{{ID: "src_a", NotebookID: "nb_a", Title: "Doc A"}, {ID: "src_b", NotebookID: "nb_a", Title: "Doc B"}}
	if !reflect.DeepEqual(sources, wantSources) {
		t.Fatalf("sources mismatch: %#v", sources)
	}
}

func TestValidationErrors(t *testing.T) {
	client := newFakeService(t).client()
	ctx := context.Background()
	if _, err := client.AddTextSource(ctx, "", "text", "t"); !errors.Is(err, services.ErrValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
	if _, err := client.CreateQuiz(ctx, "", nil); !errors.Is(err, services.ErrValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
	if err := client.DeleteNotebook(ctx, ""); !errors.Is(err, services.ErrValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
}
