package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"threadline/internal/comments"
	"threadline/internal/config"
	"threadline/internal/gitrepo"
	"threadline/internal/store"
)

func treeCmd() *cobra.Command {
	var (
		sortKey string
		format  string
	)

	cmd := &cobra.Command{
		Use:   "tree",
		Short: "Print the comment tree",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := config.Load()
			ctx := commandContext(cmd)

			backend, err := openStore(ctx, cfg, false)
			if err != nil {
				return err
			}
			defer backend.Close()

			repo := comments.NewRepository(backend, newLogger(cfg))
			nodes, err := repo.Tree(ctx, comments.ParseSortMode(sortKey))
			if err != nil {
				return err
			}
			return writeTree(cmd.OutOrStdout(), nodes, format)
		},
	}
	cmd.Flags().StringVar(&sortKey, "sort", "newest", "Top-level order (newest, oldest, most_liked, all)")
	cmd.Flags().StringVar(&format, "format", "json", "Output format (json, yaml)")
	return cmd
}

type treeEntry struct {
	ID       string      `json:"id" yaml:"id"`
	Author   string      `json:"username" yaml:"username"`
	Text     string      `json:"text" yaml:"text"`
	Created  int64       `json:"timestamp" yaml:"timestamp"`
	Likes    int         `json:"likes" yaml:"likes"`
	Dislikes int         `json:"dislikes" yaml:"dislikes"`
	Replies  []treeEntry `json:"replies,omitempty" yaml:"replies,omitempty"`
}

func toEntries(nodes []comments.Node) []treeEntry {
	entries := make([]treeEntry, 0, len(nodes))
	for _, node := range nodes {
		entries = append(entries, treeEntry{
			ID:       node.ID,
			Author:   node.Author,
			Text:     node.Text,
			Created:  node.CreatedAt,
			Likes:    node.Likes,
			Dislikes: node.Dislikes,
			Replies:  toEntries(node.Replies),
		})
	}
	return entries
}

func writeTree(w io.Writer, nodes []comments.Node, format string) error {
	entries := toEntries(nodes)
	switch format {
	case "yaml":
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(entries); err != nil {
			return fmt.Errorf("encode yaml: %w", err)
		}
		return enc.Close()
	case "json":
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		enc.SetEscapeHTML(false)
		return enc.Encode(entries)
	default:
		return fmt.Errorf("unknown format %q", format)
	}
}

func migrateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Apply database migrations (postgres backend)",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := config.Load()
			ctx := commandContext(cmd)

			db, err := store.Open(ctx, cfg.DatabaseURL)
			if err != nil {
				return fmt.Errorf("database connection failed: %w", err)
			}
			defer db.Close()

			if err := store.ApplyMigrations(ctx, db, os.DirFS(cfg.MigrationsDir)); err != nil {
				return fmt.Errorf("migrations failed: %w", err)
			}
			fmt.Fprintln(cmd.OutOrStdout(), "migrations applied")
			return nil
		},
	}
}

func historyCmd() *cobra.Command {
	var limit int

	cmd := &cobra.Command{
		Use:   "history",
		Short: "List saved versions of the comment set (git backend)",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := config.Load()
			repo, err := gitrepo.New(cfg.GitDir, cfg.Author)
			if err != nil {
				return err
			}
			defer repo.Close()

			commits, err := repo.History(limit)
			if err != nil {
				return err
			}
			return writeHistory(cmd.OutOrStdout(), commits)
		},
	}
	cmd.Flags().IntVar(&limit, "limit", 20, "Number of versions to list")
	return cmd
}

func writeHistory(w io.Writer, commits []store.CommitInfo) error {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	for _, c := range commits {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n", shortHash(c.Hash), c.CreatedAt.UTC().Format("2006-01-02 15:04:05"), c.Author, c.Message)
	}
	return tw.Flush()
}

func shortHash(hash string) string {
	if len(hash) > 8 {
		return hash[:8]
	}
	return hash
}

func commandContext(cmd *cobra.Command) context.Context {
	if ctx := cmd.Context(); ctx != nil {
		return ctx
	}
	return context.Background()
}
