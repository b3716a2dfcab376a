package social

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"

	comatproto "github.com/bluesky-social/indigo/api/atproto"
	appbsky "github.com/bluesky-social/indigo/api/bsky"
	"github.com/bluesky-social/indigo/atproto/syntax"
	lexutil "github.com/bluesky-social/indigo/lex/util"
	"github.com/rivo/uniseg"

	"github.com/sky-follower-bridge/bridgewatch/watch"
)

const (
	// max size of a blob accepted for an external link thumbnail
	maxThumbBytes = 1_000_000
	// post text limit, counted in grapheme clusters
	maxPostGraphemes = 300
)

func graphemeLen(s string) int {
	n := 0
	gr := uniseg.NewGraphemes(s)
	for gr.Next() {
		n++
	}
	return n
}

func (c *Client) getThread(ctx context.Context, uri string, depth int) (*appbsky.FeedDefs_ThreadViewPost, error) {
	params := map[string]any{
		"uri":          uri,
		"depth":        depth,
		"parentHeight": 0,
	}
	var resp appbsky.FeedGetPostThread_Output
	if err := c.API.Get(ctx, syntax.NSID("app.bsky.feed.getPostThread"), params, &resp); err != nil {
		return nil, fmt.Errorf("fetching thread %s: %w", uri, err)
	}
	if resp.Thread == nil || resp.Thread.FeedDefs_ThreadViewPost == nil || resp.Thread.FeedDefs_ThreadViewPost.Post == nil {
		return nil, fmt.Errorf("thread not available: %s", uri)
	}
	return resp.Thread.FeedDefs_ThreadViewPost, nil
}

// HasRepliedAlready reports whether this account has a direct reply to the post.
// Posts with no replies are answered without a network call.
func (c *Client) HasRepliedAlready(ctx context.Context, post *watch.Post) (bool, error) {
	if post.ReplyCount == 0 {
		return false, nil
	}
	thread, err := c.getThread(ctx, post.URI, 1)
	if err != nil {
		return false, err
	}
	for _, r := range thread.Replies {
		if r == nil || r.FeedDefs_ThreadViewPost == nil || r.FeedDefs_ThreadViewPost.Post == nil {
			continue
		}
		author := r.FeedDefs_ThreadViewPost.Post.Author
		if author != nil && author.Did == c.DID.String() {
			return true, nil
		}
	}
	return false, nil
}

// replyRefs returns the strong refs for replying to post: the thread root, and
// the post itself as parent.
func (c *Client) replyRefs(ctx context.Context, post *watch.Post) (*appbsky.FeedPost_ReplyRef, error) {
	thread, err := c.getThread(ctx, post.URI, 0)
	if err != nil {
		return nil, err
	}
	parent := &comatproto.RepoStrongRef{Uri: thread.Post.Uri, Cid: thread.Post.Cid}
	root := parent
	if thread.Post.Record != nil {
		if rec, ok := thread.Post.Record.Val.(*appbsky.FeedPost); ok && rec.Reply != nil && rec.Reply.Root != nil {
			root = rec.Reply.Root
		}
	}
	return &appbsky.FeedPost_ReplyRef{Root: root, Parent: parent}, nil
}

// ReplyWithQuoteAndLink posts a threaded reply which quotes another post and
// carries an external link card.
func (c *Client) ReplyWithQuoteAndLink(ctx context.Context, post *watch.Post, text string, link watch.ExternalLink, quote watch.QuoteRef) error {
	if n := graphemeLen(text); n > maxPostGraphemes {
		return fmt.Errorf("reply text too long: %d graphemes (max %d)", n, maxPostGraphemes)
	}
	reply, err := c.replyRefs(ctx, post)
	if err != nil {
		return err
	}
	rec := appbsky.FeedPost{
		LexiconTypeID: postCollection,
		Text:          text,
		Facets:        LinkFacets(text),
		CreatedAt:     syntax.DatetimeNow().String(),
		Reply:         reply,
		Embed: &appbsky.FeedPost_Embed{
			EmbedRecordWithMedia: &appbsky.EmbedRecordWithMedia{
				LexiconTypeID: "app.bsky.embed.recordWithMedia",
				Record: &appbsky.EmbedRecord{
					LexiconTypeID: "app.bsky.embed.record",
					Record:        &comatproto.RepoStrongRef{Uri: quote.URI, Cid: quote.CID},
				},
				Media: &appbsky.EmbedRecordWithMedia_Media{
					EmbedExternal: &appbsky.EmbedExternal{
						LexiconTypeID: "app.bsky.embed.external",
						External: &appbsky.EmbedExternal_External{
							Uri:         link.URL,
							Title:       link.Title,
							Description: link.Description,
							Thumb:       link.Thumb,
						},
					},
				},
			},
		},
	}
	resp, err := c.createRecord(ctx, postCollection, &rec)
	if err != nil {
		return fmt.Errorf("creating reply record: %w", err)
	}
	c.Logger.Info("posted reply", "parent", post.URI, "reply", resp.Uri)
	return nil
}

// UploadImage fetches an image from the web and uploads it as a blob. Blobs are
// cached by URL for the lifetime of the client.
func (c *Client) UploadImage(ctx context.Context, url string) (*lexutil.LexBlob, error) {
	if blob, ok := c.blobs.Get(url); ok {
		return blob, nil
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}
	resp, err := c.HTTP.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetching image: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("fetching image: status=%d", resp.StatusCode)
	}
	data, err := io.ReadAll(io.LimitReader(resp.Body, maxThumbBytes+1))
	if err != nil {
		return nil, fmt.Errorf("reading image: %w", err)
	}
	if len(data) > maxThumbBytes {
		return nil, fmt.Errorf("image too large for thumbnail (over %d bytes)", maxThumbBytes)
	}

	mimeType := resp.Header.Get("Content-Type")
	if mimeType == "" || mimeType == "application/octet-stream" {
		mimeType = "image/jpeg"
	}

	var out comatproto.RepoUploadBlob_Output
	if err := c.API.LexDo(ctx, lexutil.Procedure, mimeType, "com.atproto.repo.uploadBlob", nil, bytes.NewReader(data), &out); err != nil {
		return nil, fmt.Errorf("uploading blob: %w", err)
	}
	if out.Blob == nil {
		return nil, fmt.Errorf("upload response missing blob")
	}
	c.blobs.Add(url, out.Blob)
	c.Logger.Debug("uploaded image", "url", url, "size", len(data), "mimeType", mimeType)
	return out.Blob, nil
}
