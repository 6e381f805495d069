// Package comments implements the comment repository and the flat list to
// tree conversion used for every render.
package comments

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"threadline/internal/observability"
	"threadline/internal/store"
	"threadline/internal/util"
)

var (
	ErrEmptyText     = errors.New("comment text is empty")
	ErrMissingParent = errors.New("reply parent id is empty")
)

// Indexer receives every newly created comment, e.g. for search.
type Indexer interface {
	IndexComment(store.Comment)
}

// Repository runs each mutation as one load, modify, save cycle over the
// whole record set. Mutations are serialised by mu so two requests in this
// process cannot overwrite each other's changes.
type Repository struct {
	store   store.RecordStore
	logger  *slog.Logger
	indexer Indexer
	now     func() time.Time
	newID   func() string
	mu      sync.Mutex
}

func NewRepository(recordStore store.RecordStore, logger *slog.Logger) *Repository {
	if logger == nil {
		logger = slog.Default()
	}
	return &Repository{
		store:  recordStore,
		logger: logger,
		now:    time.Now,
		newID:  util.NewID,
	}
}

func (r *Repository) SetIndexer(indexer Indexer) {
	r.indexer = indexer
}

// List returns the flat record set in stored order.
func (r *Repository) List(ctx context.Context) ([]store.Comment, error) {
	comments, err := r.store.LoadAll(ctx)
	if err != nil {
		return nil, fmt.Errorf("load comments: %w", err)
	}
	return comments, nil
}

// Tree loads the record set and returns the top-level nodes in mode order.
func (r *Repository) Tree(ctx context.Context, mode SortMode) ([]Node, error) {
	flat, err := r.List(ctx)
	if err != nil {
		return nil, err
	}
	nodes := BuildTree(flat, nil)
	SortTopLevel(nodes, mode)
	return nodes, nil
}

// AddComment appends a new comment, or a reply when parentID is non-nil.
// The parent is not required to exist.
func (r *Repository) AddComment(ctx context.Context, author, text string, parentID *string) (store.Comment, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return store.Comment{}, ErrEmptyText
	}

	comment := store.Comment{
		ID:     r.newID(),
		Author: author,
		Text:   text,
	}
	kind := "comment"
	if parentID != nil {
		parent := strings.TrimSpace(*parentID)
		if parent == "" {
			return store.Comment{}, ErrMissingParent
		}
		comment.ParentID = &parent
		kind = "reply"
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	all, err := r.store.LoadAll(ctx)
	if err != nil {
		return store.Comment{}, fmt.Errorf("load comments: %w", err)
	}
	comment.CreatedAt = r.now().Unix()
	all = append(all, comment)
	if err := r.store.SaveAll(ctx, all); err != nil {
		return store.Comment{}, fmt.Errorf("save comments: %w", err)
	}

	observability.CommentsCreated.WithLabelValues(kind).Inc()
	r.logger.Info("comment created", "id", comment.ID, "kind", kind)
	if r.indexer != nil {
		r.indexer.IndexComment(comment)
	}
	return comment, nil
}

// Like increments the likes of the first comment with the given id. An
// unknown id is not an error: the unchanged set is saved and false returned.
func (r *Repository) Like(ctx context.Context, commentID string) (bool, error) {
	return r.react(ctx, commentID, "like", func(c *store.Comment) { c.Likes++ })
}

// Dislike is Like for the dislike counter.
func (r *Repository) Dislike(ctx context.Context, commentID string) (bool, error) {
	return r.react(ctx, commentID, "dislike", func(c *store.Comment) { c.Dislikes++ })
}

func (r *Repository) react(ctx context.Context, commentID, reaction string, apply func(*store.Comment)) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	all, err := r.store.LoadAll(ctx)
	if err != nil {
		return false, fmt.Errorf("load comments: %w", err)
	}

	matched := false
	for i := range all {
		if all[i].ID == commentID {
			apply(&all[i])
			matched = true
			break
		}
	}

	if err := r.store.SaveAll(ctx, all); err != nil {
		return false, fmt.Errorf("save comments: %w", err)
	}

	observability.Reactions.WithLabelValues(reaction, fmt.Sprint(matched)).Inc()
	if !matched {
		r.logger.Warn("reaction on unknown comment ignored", "reaction", reaction, "id", commentID)
	}
	return matched, nil
}
