package search

import "threadline/internal/store"

// Result is a single search hit returned to the caller.
type Result struct {
	ID        string  `json:"id"`
	Author    string  `json:"author"`
	Snippet   string  `json:"snippet"`
	CreatedAt int64   `json:"timestamp"`
	ParentID  *string `json:"parentId,omitempty"`
}

// Query describes a search request.
type Query struct {
	Text   string
	Limit  int
	Offset int
}

// Response is the envelope returned by the search endpoint.
type Response struct {
	Results []Result `json:"results"`
	Total   int      `json:"total"`
	Query   string   `json:"query"`
}

// Searcher is a full-text engine holding an index of comments.
type Searcher interface {
	Search(q Query) ([]Result, int, error)
	Healthy() bool
	IndexComment(record CommentRecord) error
	IndexComments(records []CommentRecord) error
}

// CommentRecord is the data we index for a comment.
type CommentRecord struct {
	ID        string `json:"id"`
	Author    string `json:"author"`
	Text      string `json:"text"`
	CreatedAt int64  `json:"timestamp"`
	ParentID  string `json:"parentId"`
}

func recordFromComment(c store.Comment) CommentRecord {
	record := CommentRecord{
		ID:        c.ID,
		Author:    c.Author,
		Text:      c.Text,
		CreatedAt: c.CreatedAt,
	}
	if c.ParentID != nil {
		record.ParentID = *c.ParentID
	}
	return record
}

const defaultLimit = 20

func normalizeLimit(limit int) int {
	if limit <= 0 {
		return defaultLimit
	}
	return min(limit, 100)
}
