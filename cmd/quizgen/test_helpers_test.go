package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
	"testing"

	"quizgen/internal/services/notebooklm/batchexecute"
)

type cliTestEnv struct {
	configPath string
	stateDir   string
	notebook   *fakeNotebookLM
}

// fakeNotebookLM answers the handful of RPCs the CLI drives.
type fakeNotebookLM struct {
	t   *testing.T
	srv *httptest.Server

	mu       sync.Mutex
	perRPC   map[string]int
	payloads map[string]func(call int) any
}

func newFakeNotebookLM(t *testing.T) *fakeNotebookLM {
	t.Helper()
	f := &fakeNotebookLM{t: t, perRPC: map[string]int{}, payloads: map[string]func(int) any{}}
	mux := http.NewServeMux()
	mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`<html><script>{"SNlM0e":"fresh-token","FdrFJe":"fresh-sid"}</script></html>`))
	})
	mux.HandleFunc(batchexecute.BatchPath, f.serveBatch)
	f.srv = httptest.NewServer(mux)
	t.Cleanup(f.srv.Close)
	return f
}

func (f *fakeNotebookLM) respond(rpcID string, payload func(call int) any) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.payloads[rpcID] = payload
}

func (f *fakeNotebookLM) calls(rpcID string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.perRPC[rpcID]
}

func (f *fakeNotebookLM) serveBatch(w http.ResponseWriter, r *http.Request) {
	rpcID := r.URL.Query().Get("rpcids")
	f.mu.Lock()
	f.perRPC[rpcID]++
	call := f.perRPC[rpcID]
	payload := f.payloads[rpcID]
	f.mu.Unlock()
	if payload == nil {
		f.t.Errorf("unexpected rpc %s", rpcID)
		w.WriteHeader(http.StatusNotFound)
		return
	}
	inner, err := json.Marshal(payload(call))
	if err != nil {
		f.t.Errorf("marshal payload: %v", err)
		return
	}
	chunk, _ := json.Marshal([]any{[]any{"wrb.fr", rpcID, string(inner), nil, nil, nil, "generic"}})
	_, _ = w.Write([]byte(")]}'\n\n" + strconv.Itoa(len(chunk)) + "\n" + string(chunk) + "\n"))
}

// standardQuizFlow scripts nb_1/src_1/art_1 with the quiz ready on the second list.
func (f *fakeNotebookLM) standardQuizFlow() {
	f.respond(batchexecute.RPCCreateNotebook, func(int) any { return []any{"title", nil, "nb_1"} })
	f.respond(batchexecute.RPCAddSource, func(int) any { return []any{[]any{[]any{[]any{"src_1"}}}} })
	f.respond(batchexecute.RPCCreateArtifact, func(int) any { return []any{[]any{"art_1"}} })
	f.respond(batchexecute.RPCListArtifacts, func(call int) any {
		status, payload := any(1), any(nil)
		if call > 1 {
			status = 3
			payload = []any{
				"quiz",
				[]any{2},
				[]any{
					[]any{"Q1?", []any{[]any{"A", 1}, []any{"B", 0}}},
					[]any{"Q2?", []any{[]any{"C", 0}, []any{"D", 1}}},
				},
			}
		}
		sources := []any{[]any{[]any{[]any{"src_1"}}}}
		return []any{[]any{[]any{"art_1", "Quiz", 4, sources, status, nil, nil, nil, nil, payload}}}
	})
}

func setupCLITestEnv(t *testing.T) *cliTestEnv {
	t.Helper()

	base := t.TempDir()
	homeDir := filepath.Join(base, "home")
	if err := os.MkdirAll(homeDir, 0o755); err != nil {
		t.Fatalf("mkdir home: %v", err)
	}
	t.Setenv("HOME", homeDir)
	t.Setenv("NOTEBOOKLM_CREDENTIALS", "")
	t.Setenv("QUIZGEN_API_TOKEN", "")

	fake := newFakeNotebookLM(t)
	stateDir := filepath.Join(base, "state")
	credentials := filepath.Join(base, "auth.json")
	bundle := `{"cookies":{"SID":"cookie","HSID":"other"},"csrf_token":"tok","session_id":"sid"}`
	if err := os.WriteFile(credentials, []byte(bundle), 0o600); err != nil {
		t.Fatalf("write credentials: %v", err)
	}

	configPath := filepath.Join(homeDir, ".config", "quizgen", "config.toml")
	if err := os.MkdirAll(filepath.Dir(configPath), 0o755); err != nil {
		t.Fatalf("mkdir config dir: %v", err)
	}
	content := fmt.Sprintf(
		"[paths]\nstate_dir = %q\ncredentials_path = %q\napi_bind = \"127.0.0.1:0\"\n\n[notebooklm]\nbase_url = %q\nrequest_timeout_seconds = 5\n\n[logging]\nlevel = \"error\"\n",
		stateDir, credentials, fake.srv.URL,
	)
	if err := os.WriteFile(configPath, []byte(content), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}

	return &cliTestEnv{configPath: configPath, stateDir: stateDir, notebook: fake}
}

func runCLI(t *testing.T, args []string, configPath, stdin string) (string, string, error) {
	t.Helper()
	cmd := newRootCommand()
	var stdout, stderr bytes.Buffer
	cmd.SetOut(&stdout)
	cmd.SetErr(&stderr)
	cmd.SetIn(strings.NewReader(stdin))
	var flags []string
	if configPath != "" {
		flags = append(flags, "--config", configPath)
	}
	cmd.SetArgs(append(flags, args...))
	err := cmd.Execute()
	return stdout.String(), stderr.String(), err
}

func requireContains(t *testing.T, output, substr string) {
	t.Helper()
	if !strings.Contains(output, substr) {
		t.Fatalf("expected %q to contain %q", output, substr)
	}
}

func decodeJSON(t *testing.T, output string, target any) {
	t.Helper()
	if err := json.Unmarshal([]byte(output), target); err != nil {
		t.Fatalf("decode %q: %v", output, err)
	}
}
