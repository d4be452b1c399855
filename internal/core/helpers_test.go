package core

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/manunited/headcoach/internal/provider"
	"github.com/manunited/headcoach/internal/store"
)

func newTestStore(t *testing.T) *store.SQLiteStore {
	t.Helper()
	s, err := store.NewSQLiteStore(filepath.Join(t.TempDir(), "test.db"), zap.NewNop())
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s
}

// stubProvider records every request it sees and answers with a canned
// completion (or an error status) per requested model.
type stubProvider struct {
	mu       sync.Mutex
	requests []stubRequest

	content     string
	model       string
	failPrimary bool
}

type stubRequest struct {
	Model    string             `json:"model"`
	Messages []provider.Message `json:"messages"`
}

func (p *stubProvider) handler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req stubRequest
		_ = json.NewDecoder(r.Body).Decode(&req)
		p.mu.Lock()
		p.requests = append(p.requests, req)
		failThis := p.failPrimary && req.Model == "primary"
		content, model := p.content, p.model
		p.mu.Unlock()

		if failThis {
			w.WriteHeader(http.StatusInternalServerError)
			w.Write([]byte(`{"error":{"message":"primary unavailable"}}`))
			return
		}
		if model == "" {
			model = req.Model
		}
		resp := map[string]any{
			"model": model,
			"choices": []map[string]any{
				{"message": map[string]string{"role": "assistant", "content": content}},
			},
		}
		_ = json.NewEncoder(w).Encode(resp)
	})
}

func (p *stubProvider) calls() []stubRequest {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]stubRequest, len(p.requests))
	copy(out, p.requests)
	return out
}

func (p *stubProvider) callCount() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.requests)
}

func newStubClient(t *testing.T, stub *stubProvider) *provider.Client {
	t.Helper()
	srv := httptest.NewServer(stub.handler())
	t.Cleanup(srv.Close)
	return provider.NewClient(provider.Config{
		BaseURL:       srv.URL,
		APIKey:        "test-key",
		Model:         "primary",
		FallbackModel: "fallback",
		Timeout:       5 * time.Second,
	}, zap.NewNop())
}
