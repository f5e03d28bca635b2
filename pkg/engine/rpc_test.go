package engine

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
)

type rpcRequest struct {
	ID     json.RawMessage   `json:"id"`
	Method string            `json:"method"`
	Params []json.RawMessage `json:"params"`
}

type rpcFailure struct {
	Code    int
	Message string
}

// fakeNode is a scripted JSON-RPC endpoint standing in for florestad.
type fakeNode struct {
	mu       sync.Mutex
	handlers map[string]func(params []json.RawMessage) (any, *rpcFailure)
	calls    []string
	server   *httptest.Server
}

func newFakeNode(t *testing.T) *fakeNode {
	t.Helper()
	f := &fakeNode{handlers: make(map[string]func([]json.RawMessage) (any, *rpcFailure))}
	f.server = httptest.NewServer(http.HandlerFunc(f.serve))
	t.Cleanup(f.server.Close)
	return f
}

func (f *fakeNode) addr() string {
	return strings.TrimPrefix(f.server.URL, "http://")
}

func (f *fakeNode) handle(method string, fn func(params []json.RawMessage) (any, *rpcFailure)) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.handlers[method] = fn
}

func (f *fakeNode) result(method string, v any) {
	f.handle(method, func([]json.RawMessage) (any, *rpcFailure) { return v, nil })
}

func (f *fakeNode) called(method string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	n := 0
	for _, c := range f.calls {
		if c == method {
			n++
		}
	}
	return n
}

func (f *fakeNode) serve(w http.ResponseWriter, r *http.Request) {
	var req rpcRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	f.mu.Lock()
	f.calls = append(f.calls, req.Method)
	h, ok := f.handlers[req.Method]
	f.mu.Unlock()

	resp := map[string]any{"jsonrpc": "2.0", "id": req.ID}
	if !ok {
		resp["error"] = map[string]any{"code": -32601, "message": "method not found"}
	} else if res, fail := h(req.Params); fail != nil {
		resp["error"] = map[string]any{"code": fail.Code, "message": fail.Message}
	} else {
		resp["result"] = res
	}
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(resp)
}

func chainInfo(height, validated uint32, ibd bool, best string) map[string]any {
	return map[string]any{
		"best_block":  best,
		"height":      height,
		"validated":   validated,
		"ibd":         ibd,
		"leaf_count":  42,
		"root_hashes": []string{strings.Repeat("ab", 32), strings.Repeat("01", 32)},
	}
}
