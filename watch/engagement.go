package watch

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
)

// DefaultSeedFloor is the number of distinct liked posts loaded before a run starts.
const DefaultSeedFloor = 300

var ErrSeedFailed = errors.New("engagement history could not be loaded")

// EngagementTracker owns the set of posts already liked by the account during
// one run. The set only grows; it is rebuilt from the like history on every run.
//
// Not safe for concurrent use.
type EngagementTracker struct {
	Logger *slog.Logger
	// Floor is the number of distinct keys after which seeding stops.
	Floor int

	history LikeHistory
	seen    map[EngagementKey]struct{}
}

func NewEngagementTracker(logger *slog.Logger, history LikeHistory, floor int) *EngagementTracker {
	if floor <= 0 {
		floor = DefaultSeedFloor
	}
	return &EngagementTracker{
		Logger:  logger,
		Floor:   floor,
		history: history,
		seen:    make(map[EngagementKey]struct{}),
	}
}

// Seed pages backwards through the like history until Floor distinct keys are
// collected or the history is exhausted. Records missing a subject uri or cid
// are dropped.
//
// An error on the very first page returns ErrSeedFailed. An error after some
// progress is logged and the partial set is kept.
func (t *EngagementTracker) Seed(ctx context.Context) (int, error) {
	cursor := ""
	pages := 0
	dropped := 0
	for len(t.seen) < t.Floor {
		records, next, err := t.history.ListOwnLikes(ctx, cursor)
		if err != nil {
			if pages == 0 {
				return 0, fmt.Errorf("%w: %w", ErrSeedFailed, err)
			}
			t.Logger.Warn("like history seeding stopped early", "err", err, "pages", pages, "keys", len(t.seen))
			break
		}
		pages++
		for _, rec := range records {
			if rec.SubjectURI == "" || rec.SubjectCID == "" {
				dropped++
				continue
			}
			t.seen[KeyOf(rec.SubjectCID, rec.SubjectURI)] = struct{}{}
		}
		if next == "" || next == cursor {
			break
		}
		cursor = next
	}
	seededLikes.Set(float64(len(t.seen)))
	t.Logger.Info("seeded engagement set", "keys", len(t.seen), "pages", pages, "dropped", dropped)
	return len(t.seen), nil
}

// HasEngaged reports whether the post was already liked.
func (t *EngagementTracker) HasEngaged(post *Post) bool {
	_, ok := t.seen[post.Key()]
	return ok
}

// RecordEngagement marks the post as liked. Only call after a like succeeded.
func (t *EngagementTracker) RecordEngagement(post *Post) {
	t.seen[post.Key()] = struct{}{}
}

func (t *EngagementTracker) Len() int {
	return len(t.seen)
}
