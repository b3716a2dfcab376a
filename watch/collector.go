package watch

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"golang.org/x/sync/errgroup"
)

// DefaultSearchSkew is subtracted from the run start time to get the search
// cutoff. With a 30 minute schedule this leaves 5 minutes of overlap between runs.
const DefaultSearchSkew = 35 * time.Minute

var ErrAllQueriesFailed = errors.New("every search query failed")

// Searcher is the part of SocialClient the collector needs.
type Searcher interface {
	SearchPosts(ctx context.Context, query string, since time.Time) ([]*Post, error)
}

// Collector runs all search queries concurrently and merges the results.
//
// A query which fails contributes zero posts; the failure is logged and counted.
// Collection only fails when every query failed.
type Collector struct {
	Logger   *slog.Logger
	Searcher Searcher
	Queries  []string
}

// Collect returns the distinct posts matched by any query since the cutoff,
// ordered by CID and then URI.
func (c *Collector) Collect(ctx context.Context, since time.Time) ([]*Post, error) {
	ctx, span := tracer.Start(ctx, "Collect")
	defer span.End()
	span.SetAttributes(attribute.Int("queries", len(c.Queries)))

	if len(c.Queries) == 0 {
		return nil, nil
	}

	results := make([][]*Post, len(c.Queries))
	errs := make([]error, len(c.Queries))
	var g errgroup.Group
	for i, q := range c.Queries {
		g.Go(func() error {
			posts, err := c.Searcher.SearchPosts(ctx, q, since)
			if err != nil {
				errs[i] = err
				return nil
			}
			results[i] = posts
			return nil
		})
	}
	_ = g.Wait()

	failed := 0
	merged := make(map[EngagementKey]*Post)
	for i, q := range c.Queries {
		if errs[i] != nil {
			failed++
			searchQueries.WithLabelValues("error").Inc()
			c.Logger.Warn("search query failed", "query", q, "err", errs[i])
			continue
		}
		searchQueries.WithLabelValues("ok").Inc()
		c.Logger.Debug("search query complete", "query", q, "posts", len(results[i]))
		for _, p := range results[i] {
			if p == nil {
				continue
			}
			k := p.Key()
			if _, ok := merged[k]; !ok {
				merged[k] = p
			}
		}
	}
	if failed == len(c.Queries) {
		return nil, fmt.Errorf("%w (%d queries): %w", ErrAllQueriesFailed, failed, errors.Join(errs...))
	}

	out := make([]*Post, 0, len(merged))
	for _, p := range merged {
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].CID != out[j].CID {
			return out[i].CID < out[j].CID
		}
		return out[i].URI < out[j].URI
	})
	candidatesCollected.Add(float64(len(out)))
	span.SetAttributes(attribute.Int("candidates", len(out)), attribute.Int("failedQueries", failed))
	return out, nil
}
