package classifier

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOpenAIAnalyze(t *testing.T) {
	assert := assert.New(t)

	var got openAIRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal("/v1/chat/completions", r.URL.Path)
		assert.Equal("Bearer test-key", r.Header.Get("Authorization"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		w.Header().Set("Content-Type", "application/json")
		_, _ = io.WriteString(w, `{"choices":[{"message":{"role":"assistant","content":"{\"isTarget\":true,\"isIssue\":false,\"hasSpamUrl\":false}"}}]}`)
	}))
	defer srv.Close()

	cfg := DefaultConfig()
	cfg.APIKey = "test-key"
	cfg.APIURL = srv.URL + "/v1/"
	cfg.RPS = 0
	g, err := New(context.Background(), cfg, slog.Default())
	require.NoError(t, err)

	c, err := g.Analyze(context.Background(), "I like sky follower bridge")
	require.NoError(t, err)
	assert.True(c.IsTarget)

	assert.Equal("gpt-4o-mini", got.Model)
	assert.Equal("json_object", got.ResponseFormat.Type)
	require.Len(t, got.Messages, 1)
	assert.Equal("user", got.Messages[0].Role)
}

func TestOpenAIErrors(t *testing.T) {
	status := http.StatusBadRequest
	body := `{"error":{"message":"bad"}}`
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(status)
		_, _ = io.WriteString(w, body)
	}))
	defer srv.Close()

	p := NewOpenAI(Config{APIKey: "k", APIURL: srv.URL}, slog.Default())
	_, err := p.completeJSON(context.Background(), "hi", kindAnalysis)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "400")

	status = http.StatusOK
	body = `{"choices":[]}`
	_, err = p.completeJSON(context.Background(), "hi", kindAnalysis)
	assert.Error(t, err)
}
