package store

import "time"

// Comment is one flat record as persisted. ParentID is nil for top-level
// comments.
type Comment struct {
	ID        string  `json:"id"`
	Author    string  `json:"username"`
	Text      string  `json:"text"`
	CreatedAt int64   `json:"timestamp"`
	Likes     int     `json:"likes"`
	Dislikes  int     `json:"dislikes"`
	ParentID  *string `json:"parent_id"`
}

func (c Comment) IsTopLevel() bool {
	return c.ParentID == nil
}

// Created returns the creation timestamp as a time.Time.
func (c Comment) Created() time.Time {
	return time.Unix(c.CreatedAt, 0)
}

type CommitInfo struct {
	Hash      string
	Message   string
	Author    string
	CreatedAt time.Time
}
