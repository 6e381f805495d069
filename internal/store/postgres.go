package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5/pgconn"
)

const undefinedTable = "42P01"

// PostgresStore keeps the record set in the comments table. The position
// column preserves insertion order across full rewrites.
type PostgresStore struct {
	db *sql.DB
}

func NewPostgresStore(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

func (s *PostgresStore) LoadAll(ctx context.Context) ([]Comment, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, author, body, created_at, likes, dislikes, parent_id
		FROM comments
		ORDER BY position
	`)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == undefinedTable {
			return []Comment{}, nil
		}
		return nil, fmt.Errorf("query comments: %w", err)
	}
	defer rows.Close()

	comments := make([]Comment, 0)
	for rows.Next() {
		var (
			item     Comment
			parentID sql.NullString
		)
		if err := rows.Scan(&item.ID, &item.Author, &item.Text, &item.CreatedAt, &item.Likes, &item.Dislikes, &parentID); err != nil {
			return nil, fmt.Errorf("scan comment: %w", err)
		}
		if parentID.Valid && parentID.String != "" {
			parent := parentID.String
			item.ParentID = &parent
		}
		comments = append(comments, item)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate comments: %w", err)
	}
	return comments, nil
}

func (s *PostgresStore) SaveAll(ctx context.Context, comments []Comment) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin save tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx, `DELETE FROM comments`); err != nil {
		return fmt.Errorf("clear comments: %w", err)
	}

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO comments (position, id, author, body, created_at, likes, dislikes, parent_id)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`)
	if err != nil {
		return fmt.Errorf("prepare insert comment: %w", err)
	}
	defer stmt.Close()

	for i, item := range comments {
		var parentID sql.NullString
		if item.ParentID != nil {
			parentID = sql.NullString{String: *item.ParentID, Valid: true}
		}
		if _, err := stmt.ExecContext(ctx, i, item.ID, item.Author, item.Text, item.CreatedAt, item.Likes, item.Dislikes, parentID); err != nil {
			return fmt.Errorf("insert comment %s: %w", item.ID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit save tx: %w", err)
	}
	return nil
}

func (s *PostgresStore) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

func (s *PostgresStore) Close() error {
	return s.db.Close()
}
