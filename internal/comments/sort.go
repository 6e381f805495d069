package comments

import (
	"sort"
	"strings"
)

type SortMode string

const (
	SortNewest    SortMode = "newest"
	SortOldest    SortMode = "oldest"
	SortMostLiked SortMode = "most_liked"
	// SortAll is accepted from the filter bar and orders like SortNewest.
	SortAll SortMode = "all"
)

// ParseSortMode maps a query value onto a mode. Unknown and empty values
// become SortNewest.
func ParseSortMode(raw string) SortMode {
	switch mode := SortMode(strings.ToLower(strings.TrimSpace(raw))); mode {
	case SortNewest, SortOldest, SortMostLiked, SortAll:
		return mode
	default:
		return SortNewest
	}
}

// SortTopLevel orders root nodes in place. Replies are not touched; they
// stay newest first whatever the mode. Every mode is stable.
func SortTopLevel(nodes []Node, mode SortMode) {
	var less func(a, b Node) bool
	switch mode {
	case SortOldest:
		less = func(a, b Node) bool { return a.CreatedAt < b.CreatedAt }
	case SortMostLiked:
		less = func(a, b Node) bool { return a.Likes > b.Likes }
	default:
		less = func(a, b Node) bool { return a.CreatedAt > b.CreatedAt }
	}
	sort.SliceStable(nodes, func(i, j int) bool {
		return less(nodes[i], nodes[j])
	})
}
