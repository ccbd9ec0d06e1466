package ai

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// claudeServer fakes the Messages endpoint. reply receives the decoded
// request body and writes the response.
type claudeServer struct {
	mu     sync.Mutex
	models []string
	bodies []map[string]any
}

func (s *claudeServer) start(t *testing.T, reply func(w http.ResponseWriter, model string)) *httptest.Server {
	t.Helper()
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v1/messages" {
			http.NotFound(w, r)
			return
		}
		assert.Equal(t, "test-key", r.Header.Get("X-Api-Key"))

		var body map[string]any
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		model, _ := body["model"].(string)

		s.mu.Lock()
		s.models = append(s.models, model)
		s.bodies = append(s.bodies, body)
		s.mu.Unlock()

		w.Header().Set("Content-Type", "application/json")
		reply(w, model)
	}))
	t.Cleanup(server.Close)
	return server
}

func claudeMessage(model, stopReason string, content ...map[string]any) map[string]any {
	if content == nil {
		content = []map[string]any{}
	}
	return map[string]any{
		"id":          "msg_01",
		"type":        "message",
		"role":        "assistant",
		"model":       model,
		"content":     content,
		"stop_reason": stopReason,
		"usage":       map[string]any{"input_tokens": 210, "output_tokens": 64},
	}
}

func newTestClaude(t *testing.T, server *httptest.Server, models ...string) Provider {
	t.Helper()
	p, err := NewClaudeProvider(ClaudeConfig{APIKey: "test-key", BaseURL: server.URL}, AdapterOptions{
		Models:      models,
		Temperature: 1.5,
	})
	require.NoError(t, err)
	return p
}

func TestClaude_Success(t *testing.T) {
	srv := &claudeServer{}
	server := srv.start(t, func(w http.ResponseWriter, model string) {
		_ = json.NewEncoder(w).Encode(claudeMessage(model, "end_turn",
			map[string]any{"type": "thinking", "thinking": "weighing skills", "signature": "sig"},
			map[string]any{"type": "text", "text": `{"candidate": "Jane"}`},
		))
	})
	p := newTestClaude(t, server, "claude-sonnet-4-20250514")

	resp := p.Complete(context.Background(), cvRequest())

	require.True(t, resp.Success, resp.Error)
	assert.Equal(t, ProviderClaude, resp.Provider)
	assert.Equal(t, "claude-sonnet-4-20250514", resp.Model)
	assert.Equal(t, map[string]any{"candidate": "Jane"}, resp.Data)
	assert.Equal(t, 210, resp.InputTokens)
	assert.Equal(t, 64, resp.OutputTokens)

	require.Len(t, srv.bodies, 1)
	assert.InDelta(t, 1.0, srv.bodies[0]["temperature"], 1e-9, "temperature capped for Claude")
	assert.EqualValues(t, 8192, srv.bodies[0]["max_tokens"])
}

func TestClaude_NotFoundAdvancesModel(t *testing.T) {
	srv := &claudeServer{}
	server := srv.start(t, func(w http.ResponseWriter, model string) {
		if model == "claude-retired" {
			w.WriteHeader(http.StatusNotFound)
			_, _ = w.Write([]byte(`{"type":"error","error":{"type":"not_found_error","message":"model: claude-retired"}}`))
			return
		}
		_ = json.NewEncoder(w).Encode(claudeMessage(model, "end_turn",
			map[string]any{"type": "text", "text": "A concise summary."},
		))
	})
	p := newTestClaude(t, server, "claude-retired", "claude-3-5-haiku-20241022")

	resp := p.Complete(context.Background(), Request{PromptType: PromptSummary, Template: "Summarize the role"})

	require.True(t, resp.Success, resp.Error)
	assert.Equal(t, "claude-3-5-haiku-20241022", resp.Model)
	assert.Equal(t, "A concise summary.", resp.RawText)
	assert.Equal(t, []string{"claude-retired", "claude-3-5-haiku-20241022"}, srv.models)

	// The retired model is not tried again on the next request.
	resp = p.Complete(context.Background(), Request{PromptType: PromptSummary, Template: "Summarize again"})
	require.True(t, resp.Success, resp.Error)
	assert.Equal(t, "claude-3-5-haiku-20241022", srv.models[len(srv.models)-1])
	assert.Len(t, srv.models, 3)
}

func TestClaude_RefusalTriesNextModel(t *testing.T) {
	srv := &claudeServer{}
	server := srv.start(t, func(w http.ResponseWriter, model string) {
		if model == "claude-a" {
			_ = json.NewEncoder(w).Encode(claudeMessage(model, "refusal"))
			return
		}
		_ = json.NewEncoder(w).Encode(claudeMessage(model, "end_turn",
			map[string]any{"type": "text", "text": `{"ok": true}`},
		))
	})
	p := newTestClaude(t, server, "claude-a", "claude-b")

	resp := p.Complete(context.Background(), cvRequest())

	require.True(t, resp.Success, resp.Error)
	assert.Equal(t, "claude-b", resp.Model)
}

func TestClaude_ServerErrorFails(t *testing.T) {
	srv := &claudeServer{}
	server := srv.start(t, func(w http.ResponseWriter, model string) {
		w.WriteHeader(http.StatusInternalServerError)
		_, _ = w.Write([]byte(`{"type":"error","error":{"type":"api_error","message":"internal"}}`))
	})
	p := newTestClaude(t, server, "claude-a", "claude-b")

	resp := p.Complete(context.Background(), cvRequest())

	assert.False(t, resp.Success)
	assert.Contains(t, resp.Error, "anthropic API call failed")
	assert.Equal(t, []string{"claude-a"}, srv.models)
}

func TestNewClaudeProvider_RequiresKey(t *testing.T) {
	_, err := NewClaudeProvider(ClaudeConfig{}, AdapterOptions{})
	assert.Error(t, err)
}
