package watch

import (
	"context"
	"errors"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCollectDedupesAcrossQueries(t *testing.T) {
	assert := assert.New(t)

	shared := &Post{URI: "at://did:plc:a/app.bsky.feed.post/1", CID: "cid1", AuthorDID: "did:plc:a"}
	sharedAgain := &Post{URI: "at://did:plc:a/app.bsky.feed.post/1", CID: "cid1", AuthorDID: "did:plc:a"}
	other := &Post{URI: "at://did:plc:b/app.bsky.feed.post/2", CID: "cid0", AuthorDID: "did:plc:b"}

	social := NewMockSocial(&CallLog{})
	social.Results["sky follower bridge"] = []*Post{shared}
	social.Results["'skybridge'"] = []*Post{sharedAgain, other}

	c := Collector{
		Logger:   slog.Default(),
		Searcher: social,
		Queries:  []string{"sky follower bridge", "'skybridge'", "'nothing'"},
	}
	posts, err := c.Collect(context.Background(), time.Now().Add(-DefaultSearchSkew))
	require.NoError(t, err)
	require.Len(t, posts, 2)

	// stable order: content-id, then uri
	assert.Equal("cid0", posts[0].CID)
	assert.Equal("cid1", posts[1].CID)
}

func TestCollectToleratesFailedQuery(t *testing.T) {
	social := NewMockSocial(&CallLog{})
	social.Results["a"] = []*Post{{URI: "at://did:plc:a/app.bsky.feed.post/1", CID: "cid1"}}
	social.SearchErrs["b"] = errors.New("rate limited")

	c := Collector{Logger: slog.Default(), Searcher: social, Queries: []string{"a", "b"}}
	posts, err := c.Collect(context.Background(), time.Now())
	require.NoError(t, err)
	assert.Len(t, posts, 1)
}

func TestCollectFailsWhenEveryQueryFails(t *testing.T) {
	social := NewMockSocial(&CallLog{})
	social.SearchErrs["a"] = errors.New("boom")
	social.SearchErrs["b"] = errors.New("boom")

	c := Collector{Logger: slog.Default(), Searcher: social, Queries: []string{"a", "b"}}
	_, err := c.Collect(context.Background(), time.Now())
	assert.True(t, errors.Is(err, ErrAllQueriesFailed))
}

func TestCollectNoQueries(t *testing.T) {
	c := Collector{Logger: slog.Default(), Searcher: NewMockSocial(&CallLog{})}
	posts, err := c.Collect(context.Background(), time.Now())
	assert.NoError(t, err)
	assert.Empty(t, posts)
}
