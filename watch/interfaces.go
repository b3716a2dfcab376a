package watch

import (
	"context"
	"time"

	lexutil "github.com/bluesky-social/indigo/lex/util"
)

// LikeRecord is the subject of one of the account's own like records. Either
// field may be empty when the stored record was malformed.
type LikeRecord struct {
	SubjectURI string
	SubjectCID string
}

// LikeHistory pages backwards through the account's own likes. An empty
// nextCursor means the history is exhausted.
type LikeHistory interface {
	ListOwnLikes(ctx context.Context, cursor string) (records []LikeRecord, nextCursor string, err error)
}

// ExternalLink is the link card embedded in a corrective reply.
type ExternalLink struct {
	URL         string
	Title       string
	Description string
	Thumb       *lexutil.LexBlob
}

// QuoteRef is a strong reference to the post quoted in a corrective reply.
type QuoteRef struct {
	URI string
	CID string
}

// SocialClient is the subset of the social network API the watcher uses.
type SocialClient interface {
	LikeHistory

	// SelfDID is the DID of the logged-in account.
	SelfDID() string
	SearchPosts(ctx context.Context, query string, since time.Time) ([]*Post, error)
	HasRepliedAlready(ctx context.Context, post *Post) (bool, error)
	Like(ctx context.Context, post *Post) error
	UploadImage(ctx context.Context, url string) (*lexutil.LexBlob, error)
	ReplyWithQuoteAndLink(ctx context.Context, post *Post, text string, link ExternalLink, quote QuoteRef) error
	PostURL(post *Post) string
}

// Classification is the structured output of the language model for one post.
// All three fields are always resolved; a classifier which can't produce them
// returns an error instead.
type Classification struct {
	IsTarget   bool `json:"isTarget"`
	IsIssue    bool `json:"isIssue"`
	HasSpamURL bool `json:"hasSpamUrl"`
}

type Translation struct {
	TranslatedText string `json:"translatedText"`
}

// Classifier is the language-model gateway. Implementations are stateless per call.
type Classifier interface {
	Analyze(ctx context.Context, text string) (*Classification, error)
	Translate(ctx context.Context, text string) (*Translation, error)
}

type Urgency int

const (
	UrgencyLow Urgency = iota
	UrgencyHigh
)

// Message is a human-readable notification for the operations channel.
type Message struct {
	Text      string
	CodeBlock string
	Urgency   Urgency
}

// Notifier delivers messages to the operations channel. Failures are reported
// to the caller but never change control flow.
type Notifier interface {
	Notify(ctx context.Context, msg Message) error
}
