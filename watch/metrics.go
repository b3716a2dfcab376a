package watch

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"go.opentelemetry.io/otel"
)

var tracer = otel.Tracer("bridgewatch")

var seededLikes = promauto.NewGauge(prometheus.GaugeOpts{
	Name: "bridgewatch_seeded_likes",
	Help: "Number of distinct liked posts loaded from history at start of run",
})

var searchQueries = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "bridgewatch_search_queries",
	Help: "Number of search queries issued, by status",
}, []string{"status"})

var candidatesCollected = promauto.NewCounter(prometheus.CounterOpts{
	Name: "bridgewatch_candidates_collected",
	Help: "Number of distinct candidate posts after fan-out merge",
})

var postsProcessed = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "bridgewatch_posts_processed",
	Help: "Number of candidate posts processed, by outcome",
}, []string{"outcome"})

var classifyDuration = promauto.NewHistogram(prometheus.HistogramOpts{
	Name: "bridgewatch_classify_duration_sec",
	Help: "Duration of post classification calls",
})

var notifyErrors = promauto.NewCounter(prometheus.CounterOpts{
	Name: "bridgewatch_notify_errors",
	Help: "Number of notifications which failed delivery",
})
