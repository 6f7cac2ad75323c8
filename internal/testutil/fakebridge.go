package testutil

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
)

// FakeBridge is a minimal stand-in for the bridge HTTP surface,
// routing requests by "METHOD path" to a registered handler. Tests
// register only the routes a scenario exercises; anything else 404s.
type FakeBridge struct {
	Server *httptest.Server

	mu       sync.Mutex
	routes   map[string]http.HandlerFunc
	requests []*http.Request
}

// NewFakeBridge starts a FakeBridge listening on an ephemeral local port.
func NewFakeBridge() *FakeBridge {
	fb := &FakeBridge{routes: make(map[string]http.HandlerFunc)}
	fb.Server = httptest.NewServer(http.HandlerFunc(fb.dispatch))
	return fb
}

// Close shuts down the underlying test server.
func (fb *FakeBridge) Close() {
	fb.Server.Close()
}

// URL returns the base URI a bridge.Client should be constructed with.
func (fb *FakeBridge) URL() string {
	return fb.Server.URL
}

// Handle registers handler for method and path (the exact request path,
// not a pattern).
func (fb *FakeBridge) Handle(method, path string, handler http.HandlerFunc) {
	fb.mu.Lock()
	defer fb.mu.Unlock()
	fb.routes[method+" "+path] = handler
}

// HandleJSON registers a route that always replies with status and the
// JSON encoding of body.
func (fb *FakeBridge) HandleJSON(method, path string, status int, body interface{}) {
	fb.Handle(method, path, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		_ = json.NewEncoder(w).Encode(body)
	})
}

// Requests returns every request received so far, in order.
func (fb *FakeBridge) Requests() []*http.Request {
	fb.mu.Lock()
	defer fb.mu.Unlock()
	return append([]*http.Request(nil), fb.requests...)
}

func (fb *FakeBridge) dispatch(w http.ResponseWriter, r *http.Request) {
	fb.mu.Lock()
	fb.requests = append(fb.requests, r)
	handler, ok := fb.routes[r.Method+" "+r.URL.Path]
	fb.mu.Unlock()
	if !ok {
		http.Error(w, `{"error":"not found"}`, http.StatusNotFound)
		return
	}
	handler(w, r)
}
