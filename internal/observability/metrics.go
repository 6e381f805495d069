package observability

import (
	"context"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"threadline/internal/store"
)

var (
	// CommentsCreated counts new comments by kind (comment, reply).
	CommentsCreated = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "threadline_comments_created_total",
		Help: "Total number of comments and replies created",
	}, []string{"kind"})

	// Reactions counts like/dislike actions and whether they matched a comment.
	Reactions = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "threadline_reactions_total",
		Help: "Total number of like/dislike actions",
	}, []string{"reaction", "matched"})

	StoreLatency = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "threadline_store_latency_seconds",
		Help:    "Record store load/save latency in seconds",
		Buckets: prometheus.DefBuckets,
	}, []string{"operation"})

	StoreErrors = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "threadline_store_errors_total",
		Help: "Total number of record store errors by operation",
	}, []string{"operation"})

	StoredComments = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "threadline_stored_comments",
		Help: "Number of records in the last loaded or saved set",
	})
)

// InstrumentedStore records latency and errors of the wrapped store.
type InstrumentedStore struct {
	store.RecordStore
}

func Instrument(s store.RecordStore) *InstrumentedStore {
	return &InstrumentedStore{RecordStore: s}
}

func (s *InstrumentedStore) LoadAll(ctx context.Context) ([]store.Comment, error) {
	defer track("load")()
	comments, err := s.RecordStore.LoadAll(ctx)
	if err != nil {
		StoreErrors.WithLabelValues("load").Inc()
		return nil, err
	}
	StoredComments.Set(float64(len(comments)))
	return comments, nil
}

func (s *InstrumentedStore) SaveAll(ctx context.Context, comments []store.Comment) error {
	defer track("save")()
	if err := s.RecordStore.SaveAll(ctx, comments); err != nil {
		StoreErrors.WithLabelValues("save").Inc()
		return err
	}
	StoredComments.Set(float64(len(comments)))
	return nil
}

func track(operation string) func() {
	start := time.Now()
	return func() {
		StoreLatency.WithLabelValues(operation).Observe(time.Since(start).Seconds())
	}
}
