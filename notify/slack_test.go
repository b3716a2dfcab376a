package notify

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

	"github.com/sky-follower-bridge/bridgewatch/watch"
)

func TestSlackConfigValidate(t *testing.T) {
	assert := assert.New(t)
	assert.ErrorIs(SlackConfig{}.Validate(), ErrNoCredentials)
	assert.ErrorIs(SlackConfig{BotToken: "xoxb"}.Validate(), ErrNoCredentials)
	assert.NoError(SlackConfig{BotToken: "xoxb", ChannelID: "C1"}.Validate())
	assert.NoError(SlackConfig{WebhookURL: "https://hooks.example"}.Validate())
}

func TestSlackWebhook(t *testing.T) {
	assert := assert.New(t)

	var got slackBody
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		_, _ = io.WriteString(w, "ok")
	}))
	defer srv.Close()

	n, err := NewSlackNotifier(SlackConfig{WebhookURL: srv.URL}, slog.Default())
	require.NoError(t, err)

	err = n.Notify(context.Background(), watch.Message{Text: "🚨 check this", CodeBlock: `{"uri":"x"}`, Urgency: watch.UrgencyHigh})
	require.NoError(t, err)
	assert.Equal("<!channel>\n🚨 check this\n```{\"uri\":\"x\"}```", got.Text)
	assert.Empty(got.Blocks)

	err = n.Notify(context.Background(), watch.Message{Text: "👍 Liked post."})
	require.NoError(t, err)
	assert.Equal("👍 Liked post.", got.Text)
}

func TestSlackWebhookRejected(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusForbidden)
		_, _ = io.WriteString(w, "invalid_token")
	}))
	defer srv.Close()

	n, err := NewSlackNotifier(SlackConfig{WebhookURL: srv.URL}, slog.Default())
	require.NoError(t, err)
	assert.Error(t, n.Notify(context.Background(), watch.Message{Text: "hi"}))
}

func TestSlackPostMessage(t *testing.T) {
	assert := assert.New(t)

	var got slackBody
	reply := `{"ok":true}`
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal("/chat.postMessage", r.URL.Path)
		assert.Equal("Bearer xoxb-test", r.Header.Get("Authorization"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		w.Header().Set("Content-Type", "application/json")
		_, _ = io.WriteString(w, reply)
	}))
	defer srv.Close()

	n, err := NewSlackNotifier(SlackConfig{BotToken: "xoxb-test", ChannelID: "C123", APIURL: srv.URL}, slog.Default())
	require.NoError(t, err)

	err = n.Notify(context.Background(), watch.Message{Text: "Translation (Japanese):", CodeBlock: "こんにちは"})
	require.NoError(t, err)
	assert.Equal("C123", got.Channel)
	require.Len(t, got.Blocks, 3)
	assert.Equal("section", got.Blocks[0].Type)
	assert.Equal("Translation (Japanese):", got.Blocks[0].Text.Text)
	assert.Equal("```こんにちは```", got.Blocks[1].Text.Text)
	assert.Equal("divider", got.Blocks[2].Type)

	reply = `{"ok":false,"error":"channel_not_found"}`
	err = n.Notify(context.Background(), watch.Message{Text: "hi"})
	require.Error(t, err)
	assert.Contains(err.Error(), "channel_not_found")
}
