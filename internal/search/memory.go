package search

import (
	"sort"
	"strings"
	"unicode/utf8"

	"threadline/internal/store"
)

const snippetRunes = 120

// matchComments is the fallback used when Meilisearch is not configured or
// unhealthy: a case-insensitive substring match over the loaded set,
// newest first.
func matchComments(comments []store.Comment, q Query) ([]Result, int) {
	needle := strings.ToLower(strings.TrimSpace(q.Text))
	if needle == "" {
		return []Result{}, 0
	}

	var matches []store.Comment
	for _, c := range comments {
		if strings.Contains(strings.ToLower(c.Text), needle) || strings.Contains(strings.ToLower(c.Author), needle) {
			matches = append(matches, c)
		}
	}
	sort.SliceStable(matches, func(i, j int) bool {
		return matches[i].CreatedAt > matches[j].CreatedAt
	})

	total := len(matches)
	start := min(max(q.Offset, 0), total)
	end := min(start+normalizeLimit(q.Limit), total)

	results := make([]Result, 0, end-start)
	for _, c := range matches[start:end] {
		results = append(results, Result{
			ID:        c.ID,
			Author:    c.Author,
			Snippet:   snippet(c.Text, needle),
			CreatedAt: c.CreatedAt,
			ParentID:  c.ParentID,
		})
	}
	return results, total
}

// snippet cuts text down to a window around the first match.
func snippet(text, needle string) string {
	if utf8.RuneCountInString(text) <= snippetRunes {
		return text
	}
	runes := []rune(text)
	at := 0
	if byteIdx := strings.Index(strings.ToLower(text), needle); byteIdx > 0 {
		at = utf8.RuneCountInString(strings.ToLower(text)[:byteIdx])
	}
	start := max(at-snippetRunes/3, 0)
	end := min(start+snippetRunes, len(runes))

	out := string(runes[start:end])
	if start > 0 {
		out = "…" + out
	}
	if end < len(runes) {
		out += "…"
	}
	return out
}
