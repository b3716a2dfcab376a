package social

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/araddon/dateparse"
	"github.com/bluesky-social/indigo/api/agnostic"
	comatproto "github.com/bluesky-social/indigo/api/atproto"
	appbsky "github.com/bluesky-social/indigo/api/bsky"
	"github.com/bluesky-social/indigo/atproto/atclient"
	"github.com/bluesky-social/indigo/atproto/syntax"
	lexutil "github.com/bluesky-social/indigo/lex/util"
	"github.com/carlmjohnson/versioninfo"
	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/sky-follower-bridge/bridgewatch/util"
	"github.com/sky-follower-bridge/bridgewatch/watch"
)

const (
	likeCollection = "app.bsky.feed.like"
	postCollection = "app.bsky.feed.post"
)

type Config struct {
	// Host is the PDS (or entryway) URL used for login and all API calls.
	Host       string
	Identifier string
	Password   string
	// SearchLimit is the page size for post search.
	SearchLimit int
	// SearchPages is the maximum number of search pages followed per query.
	SearchPages int
	// LikePageSize is the page size used when listing the account's likes.
	LikePageSize int
}

func DefaultConfig() Config {
	return Config{
		Host:         "https://bsky.social",
		SearchLimit:  100,
		SearchPages:  1,
		LikePageSize: 100,
	}
}

// Client implements watch.SocialClient on top of an authenticated atproto API client.
type Client struct {
	Logger *slog.Logger
	API    *atclient.APIClient
	// HTTP is used for fetching images from the open web.
	HTTP   *http.Client
	DID    syntax.DID
	Config Config

	blobs *lru.Cache[string, *lexutil.LexBlob]
}

var _ watch.SocialClient = (*Client)(nil)

// Login creates a password session for the configured account.
func Login(ctx context.Context, logger *slog.Logger, cfg Config) (*Client, error) {
	if cfg.Identifier == "" || cfg.Password == "" {
		return nil, fmt.Errorf("social login requires an identifier and password")
	}
	api, err := atclient.LoginWithPasswordHost(ctx, cfg.Host, cfg.Identifier, cfg.Password, "", nil)
	if err != nil {
		return nil, fmt.Errorf("login failed for %s: %w", cfg.Identifier, err)
	}
	if api.AccountDID == nil {
		return nil, fmt.Errorf("login response did not include account DID")
	}
	logger.Info("logged in", "did", api.AccountDID.String(), "host", cfg.Host)
	return NewClient(logger, api, *api.AccountDID, cfg)
}

// NewClient wraps an already-authenticated API client.
func NewClient(logger *slog.Logger, api *atclient.APIClient, did syntax.DID, cfg Config) (*Client, error) {
	blobs, err := lru.New[string, *lexutil.LexBlob](16)
	if err != nil {
		return nil, err
	}
	httpc := util.RobustHTTPClient(logger)
	api.Client = httpc
	if api.Headers == nil {
		api.Headers = make(http.Header)
	}
	api.Headers.Set("User-Agent", fmt.Sprintf("bridgewatch/%s", versioninfo.Short()))
	return &Client{
		Logger: logger.With("component", "social"),
		API:    api,
		HTTP:   httpc,
		DID:    did,
		Config: cfg,
		blobs:  blobs,
	}, nil
}

func (c *Client) SelfDID() string {
	return c.DID.String()
}

// SearchPosts returns the latest posts matching query created after since.
func (c *Client) SearchPosts(ctx context.Context, query string, since time.Time) ([]*watch.Post, error) {
	var out []*watch.Post
	cursor := ""
	pages := max(c.Config.SearchPages, 1)
	for i := 0; i < pages; i++ {
		params := map[string]any{
			"q":     query,
			"limit": c.Config.SearchLimit,
			"sort":  "latest",
			"since": since.UTC().Format(syntax.AtprotoDatetimeLayout),
		}
		if cursor != "" {
			params["cursor"] = cursor
		}
		var resp appbsky.FeedSearchPosts_Output
		if err := c.API.Get(ctx, syntax.NSID("app.bsky.feed.searchPosts"), params, &resp); err != nil {
			return nil, fmt.Errorf("searching posts for %q: %w", query, err)
		}
		for _, pv := range resp.Posts {
			p, err := postFromView(pv)
			if err != nil {
				c.Logger.Warn("skipping unusable search result", "query", query, "err", err)
				continue
			}
			out = append(out, p)
		}
		if resp.Cursor == nil || *resp.Cursor == "" || len(resp.Posts) == 0 {
			break
		}
		cursor = *resp.Cursor
	}
	return out, nil
}

// parseCreatedAt tries the strict atproto datetime format, then a lenient parse.
func parseCreatedAt(s string) time.Time {
	if t, err := syntax.ParseDatetimeTime(s); err == nil {
		return t
	}
	if t, err := dateparse.ParseAny(s); err == nil {
		return t
	}
	return time.Time{}
}

func postFromView(pv *appbsky.FeedDefs_PostView) (*watch.Post, error) {
	if pv == nil || pv.Uri == "" || pv.Cid == "" || pv.Author == nil || pv.Author.Did == "" {
		return nil, fmt.Errorf("post view missing identity fields")
	}
	p := &watch.Post{
		URI:          pv.Uri,
		CID:          pv.Cid,
		AuthorDID:    pv.Author.Did,
		AuthorHandle: pv.Author.Handle,
	}
	if pv.ReplyCount != nil {
		p.ReplyCount = *pv.ReplyCount
	}
	if pv.Record != nil {
		if rec, ok := pv.Record.Val.(*appbsky.FeedPost); ok {
			p.Text = rec.Text
			p.CreatedAt = parseCreatedAt(rec.CreatedAt)
		}
	}
	if p.CreatedAt.IsZero() {
		if t, err := syntax.ParseDatetimeTime(pv.IndexedAt); err == nil {
			p.CreatedAt = t
		}
	}
	return p, nil
}

type likeValue struct {
	Subject *comatproto.RepoStrongRef `json:"subject"`
}

// ListOwnLikes returns one page of the account's like records, newest first.
// Records which can't be parsed come back as empty LikeRecords.
func (c *Client) ListOwnLikes(ctx context.Context, cursor string) ([]watch.LikeRecord, string, error) {
	resp, err := agnostic.RepoListRecords(ctx, c.API, likeCollection, cursor, int64(c.Config.LikePageSize), c.DID.String(), false)
	if err != nil {
		return nil, "", fmt.Errorf("listing like records: %w", err)
	}
	out := make([]watch.LikeRecord, 0, len(resp.Records))
	for _, rec := range resp.Records {
		if rec == nil || rec.Value == nil {
			out = append(out, watch.LikeRecord{})
			continue
		}
		var val likeValue
		if err := json.Unmarshal(*rec.Value, &val); err != nil || val.Subject == nil {
			c.Logger.Debug("malformed like record", "uri", rec.Uri, "err", err)
			out = append(out, watch.LikeRecord{})
			continue
		}
		out = append(out, watch.LikeRecord{SubjectURI: val.Subject.Uri, SubjectCID: val.Subject.Cid})
	}
	next := ""
	if resp.Cursor != nil {
		next = *resp.Cursor
	}
	return out, next, nil
}

func (c *Client) Like(ctx context.Context, post *watch.Post) error {
	like := appbsky.FeedLike{
		LexiconTypeID: likeCollection,
		CreatedAt:     syntax.DatetimeNow().String(),
		Subject: &comatproto.RepoStrongRef{
			Uri: post.URI,
			Cid: post.CID,
		},
	}
	resp, err := c.createRecord(ctx, likeCollection, &like)
	if err != nil {
		return fmt.Errorf("creating like record: %w", err)
	}
	c.Logger.Debug("liked post", "uri", post.URI, "like", resp.Uri)
	return nil
}

// createRecord writes a record to the account's repo. The record must carry its
// $type.
func (c *Client) createRecord(ctx context.Context, collection string, record any) (*comatproto.RepoCreateRecord_Output, error) {
	input := map[string]any{
		"repo":       c.DID.String(),
		"collection": collection,
		"record":     record,
	}
	var out comatproto.RepoCreateRecord_Output
	if err := c.API.Post(ctx, syntax.NSID("com.atproto.repo.createRecord"), input, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// PostURL returns the web app link for a post, using the author handle when known.
func (c *Client) PostURL(post *watch.Post) string {
	return PostURL(post)
}

func PostURL(post *watch.Post) string {
	author := post.AuthorHandle
	if author == "" || author == "handle.invalid" {
		author = post.AuthorDID
	}
	return fmt.Sprintf("https://bsky.app/profile/%s/post/%s", author, post.RecordKey())
}
