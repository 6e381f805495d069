package search

import (
	"context"
	"log/slog"

	"threadline/internal/store"
)

// Loader returns the current flat record set.
type Loader func(ctx context.Context) ([]store.Comment, error)

// Service is the facade that tries the engine first and falls back to an
// in-memory match over the record set.
type Service struct {
	engine Searcher
	load   Loader
	logger *slog.Logger
}

// NewService creates a search service. engine may be nil when no search
// server is configured.
func NewService(engine Searcher, load Loader, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{engine: engine, load: load, logger: logger}
}

func (s *Service) Search(ctx context.Context, q Query) Response {
	if s.engine != nil && s.engine.Healthy() {
		results, total, err := s.engine.Search(q)
		if err == nil {
			return Response{Results: nonNil(results), Total: total, Query: q.Text}
		}
		s.logger.Warn("search: engine error, falling back to memory", "error", err)
	}

	comments, err := s.load(ctx)
	if err != nil {
		s.logger.Error("search: load comments", "error", err)
		return Response{Results: []Result{}, Total: 0, Query: q.Text}
	}
	results, total := matchComments(comments, q)
	return Response{Results: nonNil(results), Total: total, Query: q.Text}
}

// IndexComment indexes a comment in the background.
func (s *Service) IndexComment(c store.Comment) {
	if s.engine == nil || !s.engine.Healthy() {
		return
	}
	record := recordFromComment(c)
	go func() {
		if err := s.engine.IndexComment(record); err != nil {
			s.logger.Warn("search: index comment", "id", record.ID, "error", err)
		}
	}()
}

// ReindexAll pushes the whole record set to the engine.
func (s *Service) ReindexAll(ctx context.Context) {
	if s.engine == nil || !s.engine.Healthy() {
		return
	}
	comments, err := s.load(ctx)
	if err != nil {
		s.logger.Error("search: reindex load failed", "error", err)
		return
	}
	records := make([]CommentRecord, 0, len(comments))
	for _, c := range comments {
		if c.ID == "" {
			continue
		}
		records = append(records, recordFromComment(c))
	}
	if err := s.engine.IndexComments(records); err != nil {
		s.logger.Warn("search: reindex comments", "error", err)
	}
}

func nonNil(r []Result) []Result {
	if r == nil {
		return []Result{}
	}
	return r
}
