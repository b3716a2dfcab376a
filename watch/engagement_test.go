package watch

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func likeRecords(n int) []LikeRecord {
	out := make([]LikeRecord, n)
	for i := range out {
		out[i] = LikeRecord{
			SubjectURI: fmt.Sprintf("at://did:plc:author/app.bsky.feed.post/%d", i),
			SubjectCID: fmt.Sprintf("bafycid%d", i),
		}
	}
	return out
}

func TestSeedStopsAtFloor(t *testing.T) {
	assert := assert.New(t)
	ctx := context.Background()

	social := NewMockSocial(&CallLog{})
	social.Likes = likeRecords(1000)
	tr := NewEngagementTracker(slog.Default(), social, 300)

	n, err := tr.Seed(ctx)
	require.NoError(t, err)
	assert.Equal(300, n)
	assert.Equal(3, social.pagesServed)

	assert.True(tr.HasEngaged(&Post{URI: "at://did:plc:author/app.bsky.feed.post/299", CID: "bafycid299"}))
	assert.False(tr.HasEngaged(&Post{URI: "at://did:plc:author/app.bsky.feed.post/300", CID: "bafycid300"}))
}

func TestSeedExhaustedHistory(t *testing.T) {
	assert := assert.New(t)
	ctx := context.Background()

	social := NewMockSocial(&CallLog{})
	social.Likes = likeRecords(150)
	tr := NewEngagementTracker(slog.Default(), social, 300)

	n, err := tr.Seed(ctx)
	require.NoError(t, err)
	assert.Equal(150, n)
	assert.Equal(2, social.pagesServed)
}

func TestSeedEmptyHistory(t *testing.T) {
	social := NewMockSocial(&CallLog{})
	tr := NewEngagementTracker(slog.Default(), social, 300)

	n, err := tr.Seed(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 0, n)
}

func TestSeedDropsMalformedRecords(t *testing.T) {
	assert := assert.New(t)

	social := NewMockSocial(&CallLog{})
	social.Likes = []LikeRecord{
		{SubjectURI: "at://did:plc:a/app.bsky.feed.post/1", SubjectCID: "cid1"},
		{SubjectURI: "", SubjectCID: "cid2"},
		{SubjectURI: "at://did:plc:a/app.bsky.feed.post/3", SubjectCID: ""},
		{SubjectURI: "at://did:plc:a/app.bsky.feed.post/4", SubjectCID: "cid4"},
		// duplicate likes collapse to one key
		{SubjectURI: "at://did:plc:a/app.bsky.feed.post/4", SubjectCID: "cid4"},
	}
	tr := NewEngagementTracker(slog.Default(), social, 300)

	n, err := tr.Seed(context.Background())
	require.NoError(t, err)
	assert.Equal(2, n)
}

func TestSeedErrorBeforeProgressIsFatal(t *testing.T) {
	social := NewMockSocial(&CallLog{})
	social.Likes = likeRecords(500)
	// fail on the first page
	social.LikesErrAfter = 1
	social.pagesServed = 1

	tr := NewEngagementTracker(slog.Default(), social, 300)
	_, err := tr.Seed(context.Background())
	assert.True(t, errors.Is(err, ErrSeedFailed))
	assert.Equal(t, 0, tr.Len())
}

func TestSeedErrorAfterProgressKeepsPartialSet(t *testing.T) {
	assert := assert.New(t)

	social := NewMockSocial(&CallLog{})
	social.Likes = likeRecords(500)
	social.LikesErrAfter = 2
	tr := NewEngagementTracker(slog.Default(), social, 300)

	n, err := tr.Seed(context.Background())
	require.NoError(t, err)
	assert.Equal(200, n)
	assert.True(tr.HasEngaged(&Post{URI: "at://did:plc:author/app.bsky.feed.post/0", CID: "bafycid0"}))
}

func TestRecordEngagementIsMonotone(t *testing.T) {
	assert := assert.New(t)

	tr := NewEngagementTracker(slog.Default(), NewMockSocial(&CallLog{}), 300)
	p := &Post{URI: "at://did:plc:a/app.bsky.feed.post/1", CID: "cid1"}
	assert.False(tr.HasEngaged(p))
	tr.RecordEngagement(p)
	assert.True(tr.HasEngaged(p))
	tr.RecordEngagement(p)
	assert.True(tr.HasEngaged(p))
	assert.Equal(1, tr.Len())

	// same locator with a different content-id is a different target
	assert.False(tr.HasEngaged(&Post{URI: p.URI, CID: "cid2"}))
}

func TestKeyOf(t *testing.T) {
	assert.Equal(t, EngagementKey("cid1-at://did:plc:a/app.bsky.feed.post/1"), KeyOf("cid1", "at://did:plc:a/app.bsky.feed.post/1"))
	p := Post{URI: "at://did:plc:a/app.bsky.feed.post/3lcicsmfskc2b", CID: "cid1"}
	assert.Equal(t, "3lcicsmfskc2b", p.RecordKey())
}
