package search

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"sync/atomic"
	"time"

	meili "github.com/meilisearch/meilisearch-go"
)

const idxComments = "threadline_comments"

var _ Searcher = (*Meili)(nil)

// Meili implements Searcher on Meilisearch.
type Meili struct {
	client  meili.ServiceManager
	logger  *slog.Logger
	healthy atomic.Bool
	done    chan struct{}
}

// NewMeili creates a Meilisearch client and configures the comment index.
// An unreachable server is not an error: the client reports unhealthy and
// a background loop keeps probing.
func NewMeili(url, apiKey string, logger *slog.Logger) *Meili {
	if logger == nil {
		logger = slog.Default()
	}
	client := meili.New(url, meili.WithAPIKey(apiKey))

	m := &Meili{
		client: client,
		logger: logger,
		done:   make(chan struct{}),
	}

	if _, err := client.Health(); err != nil {
		logger.Warn("search: meilisearch unavailable", "url", url, "error", err)
		m.healthy.Store(false)
	} else {
		m.healthy.Store(true)
		m.configureIndex()
	}

	go m.healthLoop()
	return m
}

func (m *Meili) configureIndex() {
	if _, err := m.client.CreateIndex(&meili.IndexConfig{
		Uid:        idxComments,
		PrimaryKey: "id",
	}); err != nil {
		m.logger.Debug("search: create index (may already exist)", "index", idxComments, "error", err)
	}

	index := m.client.Index(idxComments)
	filterable := []interface{}{"parentId", "author"}
	if _, err := index.UpdateFilterableAttributes(&filterable); err != nil {
		m.logger.Warn("search: update filterable attrs", "index", idxComments, "error", err)
	}
	searchable := []string{"text", "author"}
	if _, err := index.UpdateSearchableAttributes(&searchable); err != nil {
		m.logger.Warn("search: update searchable attrs", "index", idxComments, "error", err)
	}
	sortable := []string{"timestamp"}
	if _, err := index.UpdateSortableAttributes(&sortable); err != nil {
		m.logger.Warn("search: update sortable attrs", "index", idxComments, "error", err)
	}
}

func (m *Meili) healthLoop() {
	ticker := time.NewTicker(10 * time.Second)
	defer ticker.Stop()
	for {
		select {
		case <-m.done:
			return
		case <-ticker.C:
			_, err := m.client.Health()
			wasHealthy := m.healthy.Load()
			m.healthy.Store(err == nil)
			if err == nil && !wasHealthy {
				m.logger.Info("search: meilisearch recovered, reconfiguring index")
				m.configureIndex()
			}
		}
	}
}

// Close stops the background health monitor.
func (m *Meili) Close() {
	close(m.done)
}

// Healthy reports whether Meilisearch is reachable.
func (m *Meili) Healthy() bool {
	return m.healthy.Load()
}

func (m *Meili) Search(q Query) ([]Result, int, error) {
	if !m.healthy.Load() {
		return nil, 0, fmt.Errorf("meilisearch unhealthy")
	}

	resp, err := m.client.MultiSearch(&meili.MultiSearchRequest{
		Queries: []*meili.SearchRequest{{
			IndexUID: idxComments,
			Query:    q.Text,
			Limit:    int64(normalizeLimit(q.Limit)),
			Offset:   int64(max(q.Offset, 0)),
			Sort:     []string{"timestamp:desc"},
		}},
	})
	if err != nil {
		m.healthy.Store(false)
		return nil, 0, fmt.Errorf("meilisearch multi-search: %w", err)
	}

	var results []Result
	total := 0
	for _, sr := range resp.Results {
		total += int(sr.EstimatedTotalHits)
		for _, hit := range sr.Hits {
			results = append(results, hitToResult(hit))
		}
	}
	return results, total, nil
}

func hitToResult(hit meili.Hit) Result {
	r := Result{
		ID:        decodeString(hit, "id"),
		Author:    decodeString(hit, "author"),
		CreatedAt: decodeInt(hit, "timestamp"),
	}
	text := decodeString(hit, "text")
	r.Snippet = snippet(text, "")
	if parent := decodeString(hit, "parentId"); parent != "" {
		r.ParentID = &parent
	}
	return r
}

func decodeString(hit meili.Hit, key string) string {
	raw, ok := hit[key]
	if !ok {
		return ""
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return s
	}
	return ""
}

func decodeInt(hit meili.Hit, key string) int64 {
	raw, ok := hit[key]
	if !ok {
		return 0
	}
	var n int64
	if err := json.Unmarshal(raw, &n); err == nil {
		return n
	}
	return 0
}

// IndexComment adds or updates a comment in the search index.
func (m *Meili) IndexComment(record CommentRecord) error {
	_, err := m.client.Index(idxComments).AddDocuments([]CommentRecord{record}, nil)
	return err
}

// IndexComments bulk-indexes comments.
func (m *Meili) IndexComments(records []CommentRecord) error {
	if len(records) == 0 {
		return nil
	}
	_, err := m.client.Index(idxComments).AddDocuments(records, nil)
	return err
}
