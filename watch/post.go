package watch

import (
	"strings"
	"time"
)

// Post is an immutable snapshot of a post found by search. It is produced by the
// collector and only read by the pipeline.
type Post struct {
	URI          string    `json:"uri"`
	CID          string    `json:"cid"`
	AuthorDID    string    `json:"authorDid"`
	AuthorHandle string    `json:"authorHandle,omitempty"`
	Text         string    `json:"text"`
	ReplyCount   int64     `json:"replyCount"`
	CreatedAt    time.Time `json:"createdAt"`
}

// EngagementKey identifies an engagement target. Posts with the same key are the
// same target, no matter which search query found them.
type EngagementKey string

// KeyOf derives the key for a content-id and locator pair: "<cid>-<uri>".
func KeyOf(cid, uri string) EngagementKey {
	return EngagementKey(cid + "-" + uri)
}

func (p *Post) Key() EngagementKey {
	return KeyOf(p.CID, p.URI)
}

// RecordKey returns the last path segment of the post AT-URI.
func (p *Post) RecordKey() string {
	idx := strings.LastIndex(p.URI, "/")
	if idx < 0 {
		return p.URI
	}
	return p.URI[idx+1:]
}
