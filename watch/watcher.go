package watch

import (
	"context"
	"fmt"
	"log/slog"
	"time"
)

type Config struct {
	Queries []string
	// SearchSkew is how far before the run start the search window begins.
	SearchSkew time.Duration
	// SeedFloor is the number of distinct likes loaded from history.
	SeedFloor    int
	Reference    Reference
	CheckReplies bool
	Language     string
	// NotifySummary sends a summary message at the end of runs which liked something.
	NotifySummary bool
}

func DefaultConfig() Config {
	return Config{
		Queries:       DefaultQueries,
		SearchSkew:    DefaultSearchSkew,
		SeedFloor:     DefaultSeedFloor,
		Reference:     DefaultReference,
		CheckReplies:  true,
		Language:      "Japanese",
		NotifySummary: true,
	}
}

// Watcher runs one scheduled pass: seed the engagement set, collect candidates,
// and process them one at a time.
type Watcher struct {
	Logger     *slog.Logger
	Social     SocialClient
	Classifier Classifier
	Notifier   Notifier
	Config     Config
	// Now is overridable for tests.
	Now func() time.Time
}

type RunSummary struct {
	Since      time.Time
	SeededKeys int
	Candidates int
	Counts     map[Outcome]int
	Results    []Result
}

// Liked is the number of posts liked during the run.
func (s *RunSummary) Liked() int {
	return s.Counts[OutcomeLikedSpam] + s.Counts[OutcomeLikedIssue] + s.Counts[OutcomeLikedAcknowledged] + s.likedThenFailed()
}

func (s *RunSummary) likedThenFailed() int {
	n := 0
	for _, r := range s.Results {
		if r.Outcome == OutcomeFailed && r.Liked {
			n++
		}
	}
	return n
}

// Run executes a full pass. Only seeding with no progress at all, or a
// collection where every query failed, return an error; per-post failures are
// reported in the summary.
func (w *Watcher) Run(ctx context.Context) (*RunSummary, error) {
	ctx, span := tracer.Start(ctx, "Run")
	defer span.End()

	now := time.Now
	if w.Now != nil {
		now = w.Now
	}
	since := now().Add(-w.Config.SearchSkew)
	summary := &RunSummary{
		Since:  since,
		Counts: make(map[Outcome]int),
	}

	tracker := NewEngagementTracker(w.Logger.With("component", "tracker"), w.Social, w.Config.SeedFloor)
	seeded, err := tracker.Seed(ctx)
	if err != nil {
		return nil, err
	}
	summary.SeededKeys = seeded

	collector := Collector{
		Logger:   w.Logger.With("component", "collector"),
		Searcher: w.Social,
		Queries:  w.Config.Queries,
	}
	posts, err := collector.Collect(ctx, since)
	if err != nil {
		return nil, fmt.Errorf("collecting candidates: %w", err)
	}
	summary.Candidates = len(posts)
	w.Logger.Info("collected candidates", "count", len(posts), "since", since.Format(time.RFC3339))

	pipeline := Pipeline{
		Logger:       w.Logger.With("component", "pipeline"),
		Social:       w.Social,
		Classifier:   w.Classifier,
		Notifier:     w.Notifier,
		Tracker:      tracker,
		Reference:    w.Config.Reference,
		CheckReplies: w.Config.CheckReplies,
		Language:     w.Config.Language,
	}
	for _, post := range posts {
		if ctx.Err() != nil {
			return summary, ctx.Err()
		}
		res := pipeline.ProcessPost(ctx, post)
		summary.Counts[res.Outcome]++
		summary.Results = append(summary.Results, res)
	}

	w.Logger.Info("run complete",
		"candidates", summary.Candidates,
		"skipped", summary.Counts[OutcomeSkipped],
		"notTarget", summary.Counts[OutcomeNotTarget],
		"liked", summary.Liked(),
		"failed", summary.Counts[OutcomeFailed],
	)
	if w.Config.NotifySummary && summary.Liked() > 0 {
		if err := w.Notifier.Notify(ctx, summaryMessage(summary)); err != nil {
			notifyErrors.Inc()
			w.Logger.Warn("summary notification failed", "err", err)
		}
	}
	return summary, nil
}
