package comments

import (
	"sort"

	"threadline/internal/store"
)

// Node is a comment with its materialised replies. Nodes are rebuilt for
// every render and never persisted.
type Node struct {
	store.Comment
	Replies    []Node `json:"replies,omitempty"`
	ReplyCount int    `json:"reply_count"`
	// Depth is the nesting level relative to the BuildTree call, 0 for the
	// returned siblings.
	Depth int `json:"depth"`
}

// BuildTree groups flat records under parentID (nil selects top-level
// comments). Returned siblings keep input order; replies at every level are
// ordered newest first. Records whose parent is missing are dropped, and
// each record is emitted at most once, so duplicate ids or parent cycles in
// a damaged store cannot recurse forever.
func BuildTree(flat []store.Comment, parentID *string) []Node {
	idx := indexByParent(flat)
	visited := make([]bool, len(flat))

	selected := idx.roots
	if parentID != nil {
		selected = idx.children[*parentID]
	}
	return idx.build(selected, 0, visited)
}

type parentIndex struct {
	flat     []store.Comment
	roots    []int
	children map[string][]int
}

func indexByParent(flat []store.Comment) parentIndex {
	idx := parentIndex{
		flat:     flat,
		children: make(map[string][]int),
	}
	for i, item := range flat {
		if item.IsTopLevel() {
			idx.roots = append(idx.roots, i)
			continue
		}
		idx.children[*item.ParentID] = append(idx.children[*item.ParentID], i)
	}
	return idx
}

func (idx parentIndex) build(positions []int, depth int, visited []bool) []Node {
	nodes := make([]Node, 0, len(positions))
	for _, pos := range positions {
		if visited[pos] {
			continue
		}
		visited[pos] = true

		node := Node{Comment: idx.flat[pos], Depth: depth}
		replies := idx.build(idx.children[node.ID], depth+1, visited)
		if len(replies) > 0 {
			sortNewestFirst(replies)
			node.Replies = replies
			node.ReplyCount = len(replies)
		}
		nodes = append(nodes, node)
	}
	return nodes
}

func sortNewestFirst(nodes []Node) {
	sort.SliceStable(nodes, func(i, j int) bool {
		return nodes[i].CreatedAt > nodes[j].CreatedAt
	})
}

// Walk visits every node depth first, parents before their replies.
func Walk(nodes []Node, fn func(Node)) {
	for _, node := range nodes {
		fn(node)
		Walk(node.Replies, fn)
	}
}
