package app

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/render"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"threadline/internal/comments"
	"threadline/internal/search"
	"threadline/internal/store"
)

type commentService interface {
	Tree(context.Context, comments.SortMode) ([]comments.Node, error)
	AddComment(ctx context.Context, author, text string, parentID *string) (store.Comment, error)
	Like(context.Context, string) (bool, error)
	Dislike(context.Context, string) (bool, error)
}

type searcher interface {
	Search(context.Context, search.Query) search.Response
}

type pinger interface {
	Ping(context.Context) error
}

type HTTPServer struct {
	comments commentService
	search   searcher
	store    pinger
	author   string
	logger   *slog.Logger
	now      func() time.Time
}

// NewHTTPServer wires the page, JSON API and probe routes. search may be
// nil, in which case /api/search answers 503.
func NewHTTPServer(commentSvc commentService, searchSvc searcher, recordStore pinger, author string, logger *slog.Logger) *HTTPServer {
	if logger == nil {
		logger = slog.Default()
	}
	return &HTTPServer{
		comments: commentSvc,
		search:   searchSvc,
		store:    recordStore,
		author:   author,
		logger:   logger,
		now:      time.Now,
	}
}

func (s *HTTPServer) Handler() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RealIP)
	r.Use(s.withMiddleware)
	r.Use(middleware.Recoverer)

	r.Get("/", s.handlePage)
	r.Post("/", s.handleSubmit)
	r.Handle("/static/*", http.StripPrefix("/static/", staticHandler()))

	r.Get("/api/health", s.handleHealth)
	r.Get("/api/ready", s.handleReady)
	r.Get("/api/comments", s.handleListComments)
	r.Post("/api/comments", s.handleCreateComment)
	r.Post("/api/comments/{id}/{reaction}", s.handleReact)
	r.Get("/api/search", s.handleSearch)
	r.Handle("/metrics", promhttp.Handler())

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		writeError(w, r, http.StatusNotFound, "NOT_FOUND", "Not found", nil)
	})
	return r
}

func (s *HTTPServer) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, r, http.StatusOK, map[string]any{"ok": true})
}

func (s *HTTPServer) handleReady(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	status := "ready"
	statusCode := http.StatusOK
	checks := map[string]any{
		"store": map[string]any{"status": "ok"},
	}

	if err := s.store.Ping(ctx); err != nil {
		status = "not_ready"
		statusCode = http.StatusServiceUnavailable
		checks["store"] = map[string]any{
			"status": "error",
			"error":  err.Error(),
		}
	}

	writeJSON(w, r, statusCode, map[string]any{
		"ok":     status == "ready",
		"status": status,
		"checks": checks,
	})
}

func (s *HTTPServer) handleListComments(w http.ResponseWriter, r *http.Request) {
	mode := comments.ParseSortMode(r.URL.Query().Get("sort"))
	nodes, err := s.comments.Tree(r.Context(), mode)
	if err != nil {
		s.fail(w, r, "list comments", err)
		return
	}
	total := 0
	comments.Walk(nodes, func(comments.Node) { total++ })
	writeJSON(w, r, http.StatusOK, map[string]any{
		"comments": nodes,
		"sort":     mode,
		"total":    total,
	})
}

func (s *HTTPServer) handleCreateComment(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Text     string  `json:"text"`
		ParentID *string `json:"parentId"`
	}
	if err := decodeBody(r, &body); err != nil {
		writeError(w, r, http.StatusBadRequest, "INVALID_BODY", err.Error(), nil)
		return
	}
	if strings.TrimSpace(body.Text) == "" {
		writeError(w, r, http.StatusUnprocessableEntity, "VALIDATION_ERROR", "text is required", nil)
		return
	}

	comment, err := s.comments.AddComment(r.Context(), s.author, body.Text, body.ParentID)
	if err != nil {
		s.fail(w, r, "create comment", err)
		return
	}
	writeJSON(w, r, http.StatusCreated, map[string]any{"comment": comment})
}

func (s *HTTPServer) handleReact(w http.ResponseWriter, r *http.Request) {
	commentID := chi.URLParam(r, "id")
	matched, err := s.react(r.Context(), chi.URLParam(r, "reaction"), commentID)
	if err != nil {
		s.fail(w, r, "react", err)
		return
	}
	writeJSON(w, r, http.StatusOK, map[string]any{"ok": true, "matched": matched})
}

var errUnknownReaction = domainError(http.StatusNotFound, "NOT_FOUND", "Unknown reaction", nil)

func (s *HTTPServer) react(ctx context.Context, reaction, commentID string) (bool, error) {
	if strings.TrimSpace(commentID) == "" {
		return false, validationError("comment id is required")
	}
	switch reaction {
	case "like":
		return s.comments.Like(ctx, commentID)
	case "dislike":
		return s.comments.Dislike(ctx, commentID)
	default:
		return false, errUnknownReaction
	}
}

func (s *HTTPServer) handleSearch(w http.ResponseWriter, r *http.Request) {
	if s.search == nil {
		writeError(w, r, http.StatusServiceUnavailable, "SEARCH_UNAVAILABLE", "Search not configured", nil)
		return
	}
	q := strings.TrimSpace(r.URL.Query().Get("q"))
	limit, ok := intParam(w, r, "limit")
	if !ok {
		return
	}
	offset, ok := intParam(w, r, "offset")
	if !ok {
		return
	}
	writeJSON(w, r, http.StatusOK, s.search.Search(r.Context(), search.Query{Text: q, Limit: limit, Offset: offset}))
}

func intParam(w http.ResponseWriter, r *http.Request, name string) (int, bool) {
	raw := strings.TrimSpace(r.URL.Query().Get(name))
	if raw == "" {
		return 0, true
	}
	parsed, err := strconv.Atoi(raw)
	if err != nil {
		writeError(w, r, http.StatusUnprocessableEntity, "VALIDATION_ERROR", fmt.Sprintf("%s must be an integer", name), nil)
		return 0, false
	}
	return parsed, true
}

// fail maps err onto a JSON error response; server errors are logged.
func (s *HTTPServer) fail(w http.ResponseWriter, r *http.Request, op string, err error) {
	status, code, message, details := mapError(err)
	if status >= http.StatusInternalServerError {
		s.logger.Error(op+" failed", "error", err, "request_id", requestID(r.Context()))
	}
	writeError(w, r, status, code, message, details)
}

func (s *HTTPServer) withMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		reqID := r.Header.Get("X-Request-ID")
		if reqID == "" {
			reqID = uuid.NewString()
		}
		ctx := context.WithValue(r.Context(), requestIDKey{}, reqID)
		r = r.WithContext(ctx)

		started := time.Now()
		writer := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		writer.Header().Set("X-Request-ID", reqID)
		writer.Header().Set("Cache-Control", "no-store")

		next.ServeHTTP(writer, r)

		s.logger.Info("request",
			"request_id", reqID,
			"method", r.Method,
			"path", r.URL.Path,
			"status", writer.status,
			"duration_ms", time.Since(started).Milliseconds(),
		)
	})
}

type requestIDKey struct{}

func requestID(ctx context.Context) string {
	id, _ := ctx.Value(requestIDKey{}).(string)
	return id
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(status int) {
	r.status = status
	r.ResponseWriter.WriteHeader(status)
}

func writeJSON(w http.ResponseWriter, r *http.Request, status int, payload any) {
	render.Status(r, status)
	render.JSON(w, r, payload)
}

func writeError(w http.ResponseWriter, r *http.Request, status int, code, message string, details any) {
	response := map[string]any{
		"code":  code,
		"error": message,
	}
	if details != nil {
		response["details"] = details
	}
	writeJSON(w, r, status, response)
}

func decodeBody(r *http.Request, target any) error {
	if r.Body == nil {
		return nil
	}
	defer r.Body.Close()
	decoder := json.NewDecoder(r.Body)
	if err := decoder.Decode(target); err != nil {
		if errors.Is(err, io.EOF) {
			return nil
		}
		return errors.New("invalid JSON body")
	}
	return nil
}
