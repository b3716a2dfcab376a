package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/sky-follower-bridge/bridgewatch/util"
	"github.com/sky-follower-bridge/bridgewatch/watch"
)

var ErrNoCredentials = errors.New("slack notifier needs a webhook URL, or a bot token and channel")

const slackAPIURL = "https://slack.com/api"

type SlackConfig struct {
	WebhookURL string
	BotToken   string
	ChannelID  string
	// APIURL overrides the Web API base URL.
	APIURL string
}

func (c SlackConfig) Validate() error {
	if c.WebhookURL != "" {
		return nil
	}
	if c.BotToken != "" && c.ChannelID != "" {
		return nil
	}
	return ErrNoCredentials
}

// SlackNotifier posts messages to a Slack channel, either through an incoming
// webhook or chat.postMessage with a bot token. The webhook wins if both are set.
type SlackNotifier struct {
	Config SlackConfig
	Client *http.Client
	Logger *slog.Logger
}

var _ watch.Notifier = (*SlackNotifier)(nil)

func NewSlackNotifier(cfg SlackConfig, logger *slog.Logger) (*SlackNotifier, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if cfg.APIURL == "" {
		cfg.APIURL = slackAPIURL
	}
	return &SlackNotifier{
		Config: cfg,
		Client: util.RobustHTTPClient(logger),
		Logger: logger.With("component", "slack"),
	}, nil
}

type slackText struct {
	Type string `json:"type"`
	Text string `json:"text"`
}

type slackBlock struct {
	Type string     `json:"type"`
	Text *slackText `json:"text,omitempty"`
}

type slackBody struct {
	Channel string       `json:"channel,omitempty"`
	Text    string       `json:"text"`
	Blocks  []slackBlock `json:"blocks,omitempty"`
}

// render returns the plain-text form of msg, which is what webhooks receive and
// what chat.postMessage uses as notification fallback.
func render(msg watch.Message) string {
	text := msg.Text
	if msg.Urgency == watch.UrgencyHigh {
		text = "<!channel>\n" + text
	}
	if msg.CodeBlock != "" {
		text += "\n```" + msg.CodeBlock + "```"
	}
	return text
}

func blocks(msg watch.Message) []slackBlock {
	text := msg.Text
	if msg.Urgency == watch.UrgencyHigh {
		text = "<!channel>\n" + text
	}
	out := []slackBlock{{Type: "section", Text: &slackText{Type: "mrkdwn", Text: text}}}
	if msg.CodeBlock != "" {
		out = append(out, slackBlock{Type: "section", Text: &slackText{Type: "mrkdwn", Text: "```" + msg.CodeBlock + "```"}})
	}
	return append(out, slackBlock{Type: "divider"})
}

func (n *SlackNotifier) Notify(ctx context.Context, msg watch.Message) error {
	if n.Config.WebhookURL != "" {
		return n.sendWebhook(ctx, msg)
	}
	return n.postMessage(ctx, msg)
}

// Sends a simple slack message to a channel via "incoming webhook".
func (n *SlackNotifier) sendWebhook(ctx context.Context, msg watch.Message) error {
	body, err := json.Marshal(slackBody{Text: render(msg)})
	if err != nil {
		return err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, n.Config.WebhookURL, bytes.NewBuffer(body))
	if err != nil {
		return err
	}
	req.Header.Add("Content-Type", "application/json")
	resp, err := n.Client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	buf := new(bytes.Buffer)
	buf.ReadFrom(resp.Body)
	if resp.StatusCode != 200 || buf.String() != "ok" {
		return fmt.Errorf("failed slack webhook POST request. status=%d", resp.StatusCode)
	}
	return nil
}

type slackAPIResponse struct {
	OK    bool   `json:"ok"`
	Error string `json:"error"`
}

func (n *SlackNotifier) postMessage(ctx context.Context, msg watch.Message) error {
	body, err := json.Marshal(slackBody{
		Channel: n.Config.ChannelID,
		Text:    render(msg),
		Blocks:  blocks(msg),
	})
	if err != nil {
		return err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, n.Config.APIURL+"/chat.postMessage", bytes.NewBuffer(body))
	if err != nil {
		return err
	}
	req.Header.Add("Content-Type", "application/json; charset=utf-8")
	req.Header.Add("Authorization", "Bearer "+n.Config.BotToken)
	resp, err := n.Client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != 200 {
		return fmt.Errorf("failed slack chat.postMessage request. status=%d", resp.StatusCode)
	}
	var out slackAPIResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return fmt.Errorf("decoding slack response: %w", err)
	}
	if !out.OK {
		return fmt.Errorf("slack chat.postMessage: %s", out.Error)
	}
	return nil
}
