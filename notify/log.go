package notify

import (
	"context"
	"log/slog"

	"github.com/sky-follower-bridge/bridgewatch/watch"
)

// LogNotifier writes messages to the log instead of a chat channel.
type LogNotifier struct {
	Logger *slog.Logger
}

var _ watch.Notifier = (*LogNotifier)(nil)

func (n *LogNotifier) Notify(ctx context.Context, msg watch.Message) error {
	level := slog.LevelInfo
	if msg.Urgency == watch.UrgencyHigh {
		level = slog.LevelWarn
	}
	n.Logger.Log(ctx, level, "notification", "text", msg.Text, "code", msg.CodeBlock)
	return nil
}
