package notebooklm_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"sync"
	"testing"
	"time"

	"quizgen/internal/quiz"
	"quizgen/internal/services/notebooklm"
	"quizgen/internal/services/notebooklm/batchexecute"
	"quizgen/internal/services/notebooklm/session"
)

// rpcRequest is one decoded batchexecute call received by the fake service.
type rpcRequest struct {
	RPCID      string
	Params     any
	Token      string
	ReqID      int64
	SessionID  string
	SourcePath string
	Header     http.Header
}

type rpcHandler func(call int, req rpcRequest) (status int, body string)

// fakeService emulates the NotebookLM endpoints the client touches.
type fakeService struct {
	t   *testing.T
	srv *httptest.Server

	mu         sync.Mutex
	handlers   map[string]rpcHandler
	requests   []rpcRequest
	perRPC     map[string]int
	refreshes  int
	landing    string
	stall      time.Duration
	chat       func(params []any) string
	chatCalls  int
	chatParams []any
}

func newFakeService(t *testing.T) *fakeService {
	t.Helper()
	f := &fakeService{
		t:        t,
		handlers: map[string]rpcHandler{},
		perRPC:   map[string]int{},
		landing:  `<html><head><title>NotebookLM</title></head><script>{"SNlM0e":"fresh-token","FdrFJe":"fresh-sid"}</script></html>`,
	}
	mux := http.NewServeMux()
	mux.HandleFunc("/", f.serveLanding)
	mux.HandleFunc(batchexecute.BatchPath, f.serveBatch)
	mux.HandleFunc(batchexecute.ChatPath, f.serveChat)
	f.srv = httptest.NewServer(mux)
	t.Cleanup(f.srv.Close)
	return f
}

func (f *fakeService) handle(rpcID string, handler rpcHandler) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.handlers[rpcID] = handler
}

func (f *fakeService) respond(rpcID string, payload any) {
	f.handle(rpcID, func(int, rpcRequest) (int, string) {
		return http.StatusOK, rpcResponse(f.t, rpcID, payload)
	})
}

func (f *fakeService) setLanding(page string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.landing = page
}

// stallLanding delays the landing page until d passes or the client gives up.
func (f *fakeService) stallLanding(d time.Duration) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.stall = d
}

func (f *fakeService) onChat(reply func(params []any) string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.chat = reply
}

func (f *fakeService) calls(rpcID string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.perRPC[rpcID]
}

func (f *fakeService) refreshCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.refreshes
}

func (f *fakeService) lastChat() (int, []any) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.chatCalls, f.chatParams
}

func (f *fakeService) received() []rpcRequest {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]rpcRequest(nil), f.requests...)
}

func (f *fakeService) store(bundle session.Bundle) *session.Store {
	return session.NewStore(bundle,
		session.WithBaseURL(f.srv.URL),
		session.WithHTTPClient(f.srv.Client()),
		session.WithRequestCounter(100000),
	)
}

func (f *fakeService) client(opts ...notebooklm.Option) *notebooklm.Client {
	store := f.store(session.Bundle{Cookies: map[string]string{"SID": "cookie"}, CSRFToken: "initial-token", SessionID: "initial-sid"})
	base := []notebooklm.Option{notebooklm.WithHTTPClient(f.srv.Client()), notebooklm.WithTimeout(5 * time.Second)}
	return notebooklm.New(store, append(base, opts...)...)
}

func (f *fakeService) serveLanding(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/" || r.Method != http.MethodGet {
		http.NotFound(w, r)
		return
	}
	f.mu.Lock()
	f.refreshes++
	page := f.landing
	stall := f.stall
	f.mu.Unlock()
	if stall > 0 {
		select {
		case <-time.After(stall):
		case <-r.Context().Done():
			return
		}
	}
	_, _ = w.Write([]byte(page))
}

func (f *fakeService) serveBatch(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		f.t.Errorf("parse form: %v", err)
		w.WriteHeader(http.StatusBadRequest)
		return
	}
	var envelope [][][]any
	if err := json.Unmarshal([]byte(r.PostForm.Get("f.req")), &envelope); err != nil || len(envelope) != 1 || len(envelope[0]) != 1 || len(envelope[0][0]) != 4 {
		f.t.Errorf("bad envelope %q: %v", r.PostForm.Get("f.req"), err)
		w.WriteHeader(http.StatusBadRequest)
		return
	}
	rpcID, _ := envelope[0][0][0].(string)
	paramsJSON, _ := envelope[0][0][1].(string)
	var params any
	if err := json.Unmarshal([]byte(paramsJSON), &params); err != nil {
		f.t.Errorf("bad params %q: %v", paramsJSON, err)
	}
	if got := r.URL.Query().Get("rpcids"); got != rpcID {
		f.t.Errorf("rpcids %q does not match envelope id %q", got, rpcID)
	}
	reqID, _ := strconv.ParseInt(r.URL.Query().Get("_reqid"), 10, 64)

	req := rpcRequest{
		RPCID:      rpcID,
		Params:     params,
		Token:      r.PostForm.Get("at"),
		ReqID:      reqID,
		SessionID:  r.URL.Query().Get("f.sid"),
		SourcePath: r.URL.Query().Get("source-path"),
		Header:     r.Header.Clone(),
	}

	f.mu.Lock()
	f.requests = append(f.requests, req)
	f.perRPC[rpcID]++
	call := f.perRPC[rpcID]
	handler := f.handlers[rpcID]
	f.mu.Unlock()

	if handler == nil {
		f.t.Errorf("unexpected rpc %s", rpcID)
		w.WriteHeader(http.StatusNotFound)
		return
	}
	status, body := handler(call, req)
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_, _ = w.Write([]byte(body))
}

func (f *fakeService) serveChat(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		f.t.Errorf("parse chat form: %v", err)
		return
	}
	var outer []any
	if err := json.Unmarshal([]byte(r.PostForm.Get("f.req")), &outer); err != nil || len(outer) != 2 || outer[0] != nil {
		f.t.Errorf("bad chat envelope %q: %v", r.PostForm.Get("f.req"), err)
		return
	}
	inner, _ := outer[1].(string)
	var params []any
	if err := json.Unmarshal([]byte(inner), &params); err != nil {
		f.t.Errorf("bad chat params %q: %v", inner, err)
		return
	}

	f.mu.Lock()
	f.chatCalls++
	f.chatParams = params
	reply := f.chat
	f.mu.Unlock()
	if reply == nil {
		f.t.Error("unexpected chat request")
		return
	}
	_, _ = w.Write([]byte(reply(params)))
}

func mustJSON(t *testing.T, v any) string {
	t.Helper()
	data, err := json.Marshal(v)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	return string(data)
}

// rpcResponse frames payload the way batchexecute does, with unrelated noise.
func rpcResponse(t *testing.T, rpcID string, payload any) string {
	t.Helper()
	chunk := mustJSON(t, []any{
		[]any{"wrb.fr", rpcID, mustJSON(t, payload), nil, nil, nil, "generic"},
		[]any{"di", 42},
		[]any{"af.httprm", 41, "-1234", 7},
	})
	return ")]}'\n\n" + strconv.Itoa(len(chunk)) + "\n" + chunk + "\n" + `[["e",4,null,null,123]]` + "\n"
}

func authSentinelResponse(t *testing.T, rpcID string) string {
	t.Helper()
	chunk := mustJSON(t, []any{[]any{"wrb.fr", rpcID, nil, nil, nil, []any{16}, "generic"}})
	return ")]}'\n\n" + strconv.Itoa(len(chunk)) + "\n" + chunk + "\n"
}

// chatResponse streams answer growing over several chunks.
func chatResponse(t *testing.T, answer string) string {
	t.Helper()
	var b strings.Builder
	b.WriteString(")]}'\n")
	for _, cut := range []int{len(answer) / 3, len(answer)} {
		chunk := mustJSON(t, []any{[]any{"wrb.fr", nil, mustJSON(t, []any{[]any{answer[:cut], nil, []any{"conv", "msg"}}})}})
		b.WriteString(strconv.Itoa(len(chunk)))
		b.WriteByte('\n')
		b.WriteString(chunk)
		b.WriteByte('\n')
	}
	return b.String()
}

// artifactTuple mirrors the gArtLc layout [id, title, kind, sources, status, ..., payload@9].
func artifactTuple(id string, status int, sourceIDs []string, payload any) []any {
	sources := make([]any, 0, len(sourceIDs))
	for _, sid := range sourceIDs {
		sources = append(sources, []any{[]any{[]any{sid}}})
	}
	return []any{id, "Quiz", 4, sources, status, nil, nil, nil, nil, payload}
}

// chatDouble records fallback invocations.
type chatDouble struct {
	mu        sync.Mutex
	calls     int
	notebook  string
	sourceIDs []string
	result    []quiz.Question
}

func (d *chatDouble) GenerateQuizChat(_ context.Context, notebookID string, sourceIDs []string) ([]quiz.Question, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.calls++
	d.notebook = notebookID
	d.sourceIDs = append([]string(nil), sourceIDs...)
	return d.result, nil
}
