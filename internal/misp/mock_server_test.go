package misp

import (
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
)

// recordedRequest is one request seen by the mock MISP server.
type recordedRequest struct {
	Method string
	Path   string
	Header http.Header
	Body   []byte
}

func (r recordedRequest) JSON(t *testing.T) map[string]interface{} {
	t.Helper()
	var m map[string]interface{}
	if err := json.Unmarshal(r.Body, &m); err != nil {
		t.Fatalf("request body to %s is not JSON: %v (%q)", r.Path, err, string(r.Body))
	}
	return m
}

// mockMISP is an httptest server that records requests and answers from a
// per-path handler table.
type mockMISP struct {
	*httptest.Server

	mu       sync.Mutex
	requests []recordedRequest
	handlers map[string]http.HandlerFunc
}

func newMockMISP(t *testing.T) *mockMISP {
	t.Helper()
	m := &mockMISP{handlers: make(map[string]http.HandlerFunc)}
	m.Server = httptest.NewServer(http.HandlerFunc(m.serve))
	t.Cleanup(m.Close)
	return m
}

func (m *mockMISP) handle(path string, h http.HandlerFunc) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.handlers[path] = h
}

func (m *mockMISP) serve(w http.ResponseWriter, r *http.Request) {
	body, _ := io.ReadAll(r.Body)
	m.mu.Lock()
	m.requests = append(m.requests, recordedRequest{
		Method: r.Method,
		Path:   r.URL.EscapedPath(),
		Header: r.Header.Clone(),
		Body:   body,
	})
	h, ok := m.handlers[r.URL.EscapedPath()]
	m.mu.Unlock()

	if !ok {
		writeJSON(w, http.StatusOK, map[string]interface{}{"saved": true})
		return
	}
	h(w, r)
}

func (m *mockMISP) recorded() []recordedRequest {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]recordedRequest, len(m.requests))
	copy(out, m.requests)
	return out
}

func (m *mockMISP) calls() []string {
	var out []string
	for _, r := range m.recorded() {
		out = append(out, r.Method+" "+r.Path)
	}
	return out
}

func (m *mockMISP) count(path string) int {
	n := 0
	for _, r := range m.recorded() {
		if r.Path == path {
			n++
		}
	}
	return n
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func respond(status int, v interface{}) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, status, v)
	}
}

func respondRaw(status int, body string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		_, _ = io.WriteString(w, body)
	}
}
