// Package store holds the flat comment record set and its backends.
package store

import "context"

// RecordStore persists the whole record set. There is no append or patch:
// every SaveAll replaces what was stored before.
type RecordStore interface {
	LoadAll(ctx context.Context) ([]Comment, error)
	SaveAll(ctx context.Context, comments []Comment) error
	Ping(ctx context.Context) error
	Close() error
}
