package app

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"threadline/internal/comments"
	"threadline/internal/search"
	"threadline/internal/store"
)

// fakeRecordStore keeps records in memory; the func fields override
// individual calls.
type fakeRecordStore struct {
	mu      sync.Mutex
	records []store.Comment
	saves   int
	saveFn  func(context.Context, []store.Comment) error
	pingFn  func(context.Context) error
}

func (f *fakeRecordStore) LoadAll(context.Context) ([]store.Comment, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]store.Comment, len(f.records))
	copy(out, f.records)
	return out, nil
}

func (f *fakeRecordStore) SaveAll(ctx context.Context, records []store.Comment) error {
	if f.saveFn != nil {
		if err := f.saveFn(ctx, records); err != nil {
			return err
		}
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.records = append([]store.Comment(nil), records...)
	f.saves++
	return nil
}

func (f *fakeRecordStore) Ping(ctx context.Context) error {
	if f.pingFn != nil {
		return f.pingFn(ctx)
	}
	return nil
}

func (f *fakeRecordStore) Close() error { return nil }

func (f *fakeRecordStore) snapshot() []store.Comment {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]store.Comment(nil), f.records...)
}

type fakeSearcher struct {
	lastQuery search.Query
	response  search.Response
}

func (f *fakeSearcher) Search(_ context.Context, q search.Query) search.Response {
	f.lastQuery = q
	return f.response
}

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newTestServer(fs *fakeRecordStore, searchSvc searcher) *HTTPServer {
	repo := comments.NewRepository(fs, quietLogger())
	return NewHTTPServer(repo, searchSvc, fs, "Guest", quietLogger())
}

func ptr(s string) *string { return &s }

func serve(t *testing.T, server *HTTPServer, req *http.Request) *httptest.ResponseRecorder {
	t.Helper()
	rr := httptest.NewRecorder()
	server.Handler().ServeHTTP(rr, req)
	return rr
}

func decodeJSON(t *testing.T, rr *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var response map[string]any
	if err := json.Unmarshal(rr.Body.Bytes(), &response); err != nil {
		t.Fatalf("failed to parse response %q: %v", rr.Body.String(), err)
	}
	return response
}

func TestHealthEndpoint(t *testing.T) {
	server := newTestServer(&fakeRecordStore{}, nil)

	rr := serve(t, server, httptest.NewRequest(http.MethodGet, "/api/health", nil))
	if rr.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", rr.Code)
	}
	if ok := decodeJSON(t, rr)["ok"]; ok != true {
		t.Errorf("expected ok=true, got %v", ok)
	}
	if rr.Header().Get("X-Request-ID") == "" {
		t.Error("expected X-Request-ID header")
	}
}

func TestHealthEndpointKeepsRequestID(t *testing.T) {
	server := newTestServer(&fakeRecordStore{}, nil)

	req := httptest.NewRequest(http.MethodGet, "/api/health", nil)
	req.Header.Set("X-Request-ID", "req-42")
	rr := serve(t, server, req)
	if got := rr.Header().Get("X-Request-ID"); got != "req-42" {
		t.Errorf("expected request id to be echoed, got %q", got)
	}
}

func TestReadyEndpoint_Success(t *testing.T) {
	server := newTestServer(&fakeRecordStore{}, nil)

	rr := serve(t, server, httptest.NewRequest(http.MethodGet, "/api/ready", nil))
	if rr.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", rr.Code)
	}
	response := decodeJSON(t, rr)
	if response["status"] != "ready" {
		t.Errorf("expected status=ready, got %v", response["status"])
	}
}

func TestReadyEndpoint_StoreDown(t *testing.T) {
	fs := &fakeRecordStore{
		pingFn: func(context.Context) error { return errors.New("connection refused") },
	}
	server := newTestServer(fs, nil)

	rr := serve(t, server, httptest.NewRequest(http.MethodGet, "/api/ready", nil))
	if rr.Code != http.StatusServiceUnavailable {
		t.Fatalf("expected status 503, got %d", rr.Code)
	}
	response := decodeJSON(t, rr)
	if response["status"] != "not_ready" {
		t.Errorf("expected status=not_ready, got %v", response["status"])
	}
	checks := response["checks"].(map[string]any)
	storeCheck := checks["store"].(map[string]any)
	if storeCheck["error"] != "connection refused" {
		t.Errorf("expected store error in checks, got %v", storeCheck)
	}
}

func TestCreateCommentAPI(t *testing.T) {
	fs := &fakeRecordStore{}
	server := newTestServer(fs, nil)

	req := httptest.NewRequest(http.MethodPost, "/api/comments", strings.NewReader(`{"text":"  hello  "}`))
	rr := serve(t, server, req)
	if rr.Code != http.StatusCreated {
		t.Fatalf("expected status 201, got %d: %s", rr.Code, rr.Body.String())
	}

	records := fs.snapshot()
	if len(records) != 1 {
		t.Fatalf("expected 1 stored comment, got %d", len(records))
	}
	if records[0].Text != "hello" || records[0].Author != "Guest" || records[0].ParentID != nil {
		t.Errorf("unexpected stored comment %+v", records[0])
	}
}

func TestCreateCommentAPIValidation(t *testing.T) {
	cases := []struct {
		name   string
		body   string
		status int
	}{
		{name: "blank text", body: `{"text":"   "}`, status: http.StatusUnprocessableEntity},
		{name: "blank parent", body: `{"text":"hi","parentId":" "}`, status: http.StatusUnprocessableEntity},
		{name: "bad json", body: `{`, status: http.StatusBadRequest},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			fs := &fakeRecordStore{}
			server := newTestServer(fs, nil)

			rr := serve(t, server, httptest.NewRequest(http.MethodPost, "/api/comments", strings.NewReader(tc.body)))
			if rr.Code != tc.status {
				t.Fatalf("expected status %d, got %d", tc.status, rr.Code)
			}
			if fs.saves != 0 {
				t.Errorf("expected no writes, got %d", fs.saves)
			}
		})
	}
}

func TestCreateCommentAPIWriteFailure(t *testing.T) {
	fs := &fakeRecordStore{
		saveFn: func(context.Context, []store.Comment) error { return errors.New("disk full") },
	}
	server := newTestServer(fs, nil)

	rr := serve(t, server, httptest.NewRequest(http.MethodPost, "/api/comments", strings.NewReader(`{"text":"hi"}`)))
	if rr.Code != http.StatusInternalServerError {
		t.Fatalf("expected status 500, got %d", rr.Code)
	}
	if code := decodeJSON(t, rr)["code"]; code != "SERVER_ERROR" {
		t.Errorf("expected SERVER_ERROR, got %v", code)
	}
}

func TestListCommentsAPI(t *testing.T) {
	fs := &fakeRecordStore{records: []store.Comment{
		{ID: "a", Author: "Guest", Text: "A", CreatedAt: 100},
		{ID: "b", Author: "Guest", Text: "B", CreatedAt: 200, ParentID: ptr("a")},
		{ID: "c", Author: "Guest", Text: "C", CreatedAt: 300},
	}}
	server := newTestServer(fs, nil)

	rr := serve(t, server, httptest.NewRequest(http.MethodGet, "/api/comments?sort=oldest", nil))
	if rr.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", rr.Code)
	}

	var response struct {
		Comments []comments.Node `json:"comments"`
		Sort     string          `json:"sort"`
		Total    int             `json:"total"`
	}
	if err := json.Unmarshal(rr.Body.Bytes(), &response); err != nil {
		t.Fatalf("failed to parse response: %v", err)
	}
	if response.Sort != "oldest" || response.Total != 3 {
		t.Errorf("unexpected sort/total: %q/%d", response.Sort, response.Total)
	}
	if len(response.Comments) != 2 || response.Comments[0].ID != "a" || response.Comments[1].ID != "c" {
		t.Fatalf("unexpected top-level order: %+v", response.Comments)
	}
	if response.Comments[0].ReplyCount != 1 || response.Comments[0].Replies[0].ID != "b" {
		t.Errorf("expected reply b under a, got %+v", response.Comments[0])
	}
}

func TestReactAPI(t *testing.T) {
	fs := &fakeRecordStore{records: []store.Comment{{ID: "a", Text: "A"}}}
	server := newTestServer(fs, nil)

	rr := serve(t, server, httptest.NewRequest(http.MethodPost, "/api/comments/a/like", nil))
	if rr.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", rr.Code)
	}
	if matched := decodeJSON(t, rr)["matched"]; matched != true {
		t.Errorf("expected matched=true, got %v", matched)
	}

	rr = serve(t, server, httptest.NewRequest(http.MethodPost, "/api/comments/missing/dislike", nil))
	if rr.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", rr.Code)
	}
	if matched := decodeJSON(t, rr)["matched"]; matched != false {
		t.Errorf("expected matched=false, got %v", matched)
	}

	rr = serve(t, server, httptest.NewRequest(http.MethodPost, "/api/comments/a/love", nil))
	if rr.Code != http.StatusNotFound {
		t.Fatalf("expected status 404, got %d", rr.Code)
	}

	got := fs.snapshot()[0]
	if got.Likes != 1 || got.Dislikes != 0 {
		t.Errorf("expected likes=1 dislikes=0, got %d/%d", got.Likes, got.Dislikes)
	}
}

func TestSearchAPI(t *testing.T) {
	searchSvc := &fakeSearcher{response: search.Response{
		Results: []search.Result{{ID: "a", Snippet: "hello"}},
		Total:   1,
	}}
	server := newTestServer(&fakeRecordStore{}, searchSvc)

	rr := serve(t, server, httptest.NewRequest(http.MethodGet, "/api/search?q=hello&limit=5&offset=2", nil))
	if rr.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", rr.Code)
	}
	want := search.Query{Text: "hello", Limit: 5, Offset: 2}
	if searchSvc.lastQuery != want {
		t.Errorf("expected query %+v, got %+v", want, searchSvc.lastQuery)
	}
}

func TestSearchAPIRejectsBadLimit(t *testing.T) {
	server := newTestServer(&fakeRecordStore{}, &fakeSearcher{})

	rr := serve(t, server, httptest.NewRequest(http.MethodGet, "/api/search?q=x&limit=ten", nil))
	if rr.Code != http.StatusUnprocessableEntity {
		t.Fatalf("expected status 422, got %d", rr.Code)
	}
}

func TestSearchAPIUnavailable(t *testing.T) {
	server := newTestServer(&fakeRecordStore{}, nil)

	rr := serve(t, server, httptest.NewRequest(http.MethodGet, "/api/search?q=x", nil))
	if rr.Code != http.StatusServiceUnavailable {
		t.Fatalf("expected status 503, got %d", rr.Code)
	}
}

func TestUnknownRouteReturnsJSON404(t *testing.T) {
	server := newTestServer(&fakeRecordStore{}, nil)

	rr := serve(t, server, httptest.NewRequest(http.MethodGet, "/api/nope", nil))
	if rr.Code != http.StatusNotFound {
		t.Fatalf("expected status 404, got %d", rr.Code)
	}
	if code := decodeJSON(t, rr)["code"]; code != "NOT_FOUND" {
		t.Errorf("expected NOT_FOUND, got %v", code)
	}
}
