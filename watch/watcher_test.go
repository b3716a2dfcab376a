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

func watcherFixture() (*Watcher, *MockSocial, *MockClassifier, *MockNotifier, *CallLog) {
	log := &CallLog{}
	social := NewMockSocial(log)
	cls := NewMockClassifier(log)
	notifier := &MockNotifier{Log: log}
	cfg := DefaultConfig()
	cfg.Queries = []string{"q1", "q2"}
	w := &Watcher{
		Logger:     slog.Default(),
		Social:     social,
		Classifier: cls,
		Notifier:   notifier,
		Config:     cfg,
		Now: func() time.Time {
			return time.Date(2024, 12, 1, 12, 0, 0, 0, time.UTC)
		},
	}
	return w, social, cls, notifier, log
}

func TestWatcherRun(t *testing.T) {
	assert := assert.New(t)
	ctx := context.Background()
	w, social, cls, notifier, log := watcherFixture()

	liked := testPost("liked", "already liked sky follower bridge post")
	social.Likes = []LikeRecord{{SubjectURI: liked.URI, SubjectCID: liked.CID}}

	good := testPost("good", "love the new sky-follower-bridge extension!")
	spam := testPost("spam", "install from skyfollowerbridge.com")
	self := testPost("self", "posted by the bot")
	self.AuthorDID = social.DID
	off := testPost("off", "golden gate bridge")
	social.Results["q1"] = []*Post{good, spam, liked}
	social.Results["q2"] = []*Post{good, self, off}

	cls.Classifications[good.Text] = Classification{IsTarget: true}
	cls.Classifications[spam.Text] = Classification{IsTarget: true, HasSpamURL: true}

	summary, err := w.Run(ctx)
	require.NoError(t, err)
	assert.Equal(time.Date(2024, 12, 1, 11, 25, 0, 0, time.UTC), summary.Since)
	assert.Equal(1, summary.SeededKeys)
	assert.Equal(5, summary.Candidates)
	assert.Equal(2, summary.Counts[OutcomeSkipped])
	assert.Equal(1, summary.Counts[OutcomeNotTarget])
	assert.Equal(1, summary.Counts[OutcomeLikedAcknowledged])
	assert.Equal(1, summary.Counts[OutcomeLikedSpam])
	assert.Equal(2, summary.Liked())

	assert.Equal(2, log.Count("like"))
	assert.Equal(1, log.Count("reply"))
	assert.Len(notifier.WithPrefix("Run complete"), 1)
}

func TestWatcherOverlappingRunsDoNotDoubleLike(t *testing.T) {
	ctx := context.Background()
	w, social, cls, _, log := watcherFixture()

	post := testPost("1", "love the new sky-follower-bridge extension!")
	social.Results["q1"] = []*Post{post}
	cls.Classifications[post.Text] = Classification{IsTarget: true}

	_, err := w.Run(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, log.Count("like"))

	// the like history now includes the first run's like
	social.Likes = append(social.Likes, LikeRecord{SubjectURI: post.URI, SubjectCID: post.CID})
	social.Results["q2"] = []*Post{post}

	summary, err := w.Run(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, log.Count("like"))
	assert.Equal(t, 1, summary.Counts[OutcomeSkipped])
}

func TestWatcherSeedFailureIsFatal(t *testing.T) {
	w, social, _, notifier, _ := watcherFixture()
	social.LikesErrAfter = 1
	social.pagesServed = 1

	_, err := w.Run(context.Background())
	assert.True(t, errors.Is(err, ErrSeedFailed))
	assert.Empty(t, notifier.Messages)
}

func TestWatcherCollectionFailureIsFatal(t *testing.T) {
	w, social, _, _, log := watcherFixture()
	social.SearchErrs["q1"] = errors.New("down")
	social.SearchErrs["q2"] = errors.New("down")

	_, err := w.Run(context.Background())
	assert.True(t, errors.Is(err, ErrAllQueriesFailed))
	assert.Empty(t, log.Calls)
}

func TestWatcherNoSummaryWithoutLikes(t *testing.T) {
	w, social, _, notifier, _ := watcherFixture()
	social.Results["q1"] = []*Post{testPost("1", "unrelated")}

	summary, err := w.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, summary.Counts[OutcomeNotTarget])
	assert.Empty(t, notifier.Messages)
}
