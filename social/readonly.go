package social

import (
	"context"
	"log/slog"

	lexutil "github.com/bluesky-social/indigo/lex/util"

	"github.com/sky-follower-bridge/bridgewatch/watch"
)

// ReadOnly wraps a SocialClient so that reads go through and writes are only logged.
type ReadOnly struct {
	watch.SocialClient
	Logger *slog.Logger
}

func (r *ReadOnly) Like(ctx context.Context, post *watch.Post) error {
	r.Logger.Info("readonly: would like post", "uri", post.URI)
	return nil
}

func (r *ReadOnly) UploadImage(ctx context.Context, url string) (*lexutil.LexBlob, error) {
	r.Logger.Info("readonly: would upload image", "url", url)
	return nil, nil
}

func (r *ReadOnly) ReplyWithQuoteAndLink(ctx context.Context, post *watch.Post, text string, link watch.ExternalLink, quote watch.QuoteRef) error {
	r.Logger.Info("readonly: would reply to post", "uri", post.URI, "quote", quote.URI, "link", link.URL)
	return nil
}
