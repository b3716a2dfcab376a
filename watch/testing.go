package watch

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	lexutil "github.com/bluesky-social/indigo/lex/util"
)

// Call is one recorded side effect or query on a mock collaborator.
type Call struct {
	Method string
	Arg    string
}

// CallLog is shared between mocks so tests can assert ordering across them.
type CallLog struct {
	Calls []Call
}

func (l *CallLog) add(method, arg string) {
	l.Calls = append(l.Calls, Call{Method: method, Arg: arg})
}

// Methods returns the recorded method names, optionally filtered to those for arg.
func (l *CallLog) Methods(arg string) []string {
	var out []string
	for _, c := range l.Calls {
		if arg == "" || c.Arg == arg {
			out = append(out, c.Method)
		}
	}
	return out
}

func (l *CallLog) Count(method string) int {
	n := 0
	for _, c := range l.Calls {
		if c.Method == method {
			n++
		}
	}
	return n
}

// MockSocial is an in-memory SocialClient. Intentionally exported, for use in other packages.
type MockSocial struct {
	Log     *CallLog
	DID     string
	Likes   []LikeRecord
	PageLen int
	// LikesErrAfter fails ListOwnLikes once this many pages were served (0 disables).
	LikesErrAfter int
	Results       map[string][]*Post
	SearchErrs    map[string]error
	LikeErrs      map[string]error
	ReplyErr      error
	UploadErr     error
	RepliedURIs   map[string]bool

	pagesServed int
}

func NewMockSocial(log *CallLog) *MockSocial {
	return &MockSocial{
		Log:         log,
		DID:         "did:plc:selfbot",
		PageLen:     100,
		Results:     make(map[string][]*Post),
		SearchErrs:  make(map[string]error),
		LikeErrs:    make(map[string]error),
		RepliedURIs: make(map[string]bool),
	}
}

func (m *MockSocial) SelfDID() string {
	return m.DID
}

func (m *MockSocial) ListOwnLikes(ctx context.Context, cursor string) ([]LikeRecord, string, error) {
	if m.LikesErrAfter > 0 && m.pagesServed >= m.LikesErrAfter {
		return nil, "", fmt.Errorf("mock like history unavailable")
	}
	m.pagesServed++
	start := 0
	if cursor != "" {
		if _, err := fmt.Sscanf(cursor, "%d", &start); err != nil {
			return nil, "", err
		}
	}
	end := start + m.PageLen
	if end >= len(m.Likes) {
		return m.Likes[min(start, len(m.Likes)):], "", nil
	}
	return m.Likes[start:end], fmt.Sprintf("%d", end), nil
}

func (m *MockSocial) SearchPosts(ctx context.Context, query string, since time.Time) ([]*Post, error) {
	if err := m.SearchErrs[query]; err != nil {
		return nil, err
	}
	return m.Results[query], nil
}

func (m *MockSocial) HasRepliedAlready(ctx context.Context, post *Post) (bool, error) {
	m.Log.add("hasReplied", post.URI)
	if post.ReplyCount == 0 {
		return false, nil
	}
	return m.RepliedURIs[post.URI], nil
}

func (m *MockSocial) Like(ctx context.Context, post *Post) error {
	if err := m.LikeErrs[post.URI]; err != nil {
		return err
	}
	m.Log.add("like", post.URI)
	return nil
}

func (m *MockSocial) UploadImage(ctx context.Context, url string) (*lexutil.LexBlob, error) {
	if m.UploadErr != nil {
		return nil, m.UploadErr
	}
	m.Log.add("upload", url)
	return &lexutil.LexBlob{MimeType: "image/png", Size: 1234}, nil
}

func (m *MockSocial) ReplyWithQuoteAndLink(ctx context.Context, post *Post, text string, link ExternalLink, quote QuoteRef) error {
	if m.ReplyErr != nil {
		return m.ReplyErr
	}
	m.Log.add("reply", post.URI)
	m.Log.add("reply-quote", quote.URI)
	m.Log.add("reply-link", link.URL)
	return nil
}

func (m *MockSocial) PostURL(post *Post) string {
	return "https://bsky.app/profile/" + post.AuthorDID + "/post/" + post.RecordKey()
}

// MockClassifier answers Analyze by matching text; unknown text is not a target.
type MockClassifier struct {
	Log             *CallLog
	Classifications map[string]Classification
	AnalyzeErrs     map[string]error
	TranslateErr    error
}

func NewMockClassifier(log *CallLog) *MockClassifier {
	return &MockClassifier{
		Log:             log,
		Classifications: make(map[string]Classification),
		AnalyzeErrs:     make(map[string]error),
	}
}

func (m *MockClassifier) Analyze(ctx context.Context, text string) (*Classification, error) {
	m.Log.add("analyze", text)
	if err := m.AnalyzeErrs[text]; err != nil {
		return nil, err
	}
	c := m.Classifications[text]
	return &c, nil
}

func (m *MockClassifier) Translate(ctx context.Context, text string) (*Translation, error) {
	m.Log.add("translate", text)
	if m.TranslateErr != nil {
		return nil, m.TranslateErr
	}
	return &Translation{TranslatedText: "[ja] " + text}, nil
}

type MockNotifier struct {
	Log      *CallLog
	Messages []Message
	Err      error
}

func (m *MockNotifier) Notify(ctx context.Context, msg Message) error {
	m.Log.add("notify", msg.Text)
	m.Messages = append(m.Messages, msg)
	return m.Err
}

// Urgent returns the messages sent with high urgency.
func (m *MockNotifier) Urgent() []Message {
	var out []Message
	for _, msg := range m.Messages {
		if msg.Urgency == UrgencyHigh {
			out = append(out, msg)
		}
	}
	return out
}

// WithPrefix returns the messages whose text starts with prefix.
func (m *MockNotifier) WithPrefix(prefix string) []Message {
	var out []Message
	for _, msg := range m.Messages {
		if strings.HasPrefix(msg.Text, prefix) {
			out = append(out, msg)
		}
	}
	return out
}

// PipelineTestFixture wires a Pipeline to fresh mocks sharing one CallLog.
func PipelineTestFixture() (*Pipeline, *MockSocial, *MockClassifier, *MockNotifier, *CallLog) {
	log := &CallLog{}
	social := NewMockSocial(log)
	cls := NewMockClassifier(log)
	notifier := &MockNotifier{Log: log}
	p := &Pipeline{
		Logger:       slog.Default(),
		Social:       social,
		Classifier:   cls,
		Notifier:     notifier,
		Tracker:      NewEngagementTracker(slog.Default(), social, DefaultSeedFloor),
		Reference:    DefaultReference,
		CheckReplies: true,
		Language:     "Japanese",
	}
	return p, social, cls, notifier, log
}
