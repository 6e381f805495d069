// Package gitrepo stores the comment record set in a git repository, one
// commit per save, so every past state of the set can be inspected and
// restored by hand.
package gitrepo

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"
	"time"

	"threadline/internal/store"

	git "github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing"
	"github.com/go-git/go-git/v5/plumbing/object"
)

const (
	recordsFile = "comments.json"
	branchName  = "main"
)

type Service struct {
	dir    string
	author string
	mu     sync.Mutex
}

// New opens the repository at dir, initialising it on first use.
func New(dir, author string) (*Service, error) {
	if author == "" {
		author = "threadline"
	}
	s := &Service{dir: dir, author: author}
	if err := s.ensureRepo(); err != nil {
		return nil, err
	}
	return s, nil
}

func (s *Service) ensureRepo() error {
	if _, err := os.Stat(filepath.Join(s.dir, ".git")); err == nil {
		return nil
	} else if !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("stat repo path: %w", err)
	}

	if err := os.MkdirAll(s.dir, 0o755); err != nil {
		return fmt.Errorf("create repo dir: %w", err)
	}
	repo, err := git.PlainInit(s.dir, false)
	if err != nil {
		return fmt.Errorf("init repo: %w", err)
	}
	head := plumbing.NewSymbolicReference(plumbing.HEAD, plumbing.NewBranchReferenceName(branchName))
	if err := repo.Storer.SetReference(head); err != nil {
		return fmt.Errorf("set HEAD to %s: %w", branchName, err)
	}
	return nil
}

func (s *Service) LoadAll(ctx context.Context) ([]store.Comment, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	repo, err := git.PlainOpen(s.dir)
	if err != nil {
		return nil, fmt.Errorf("open repo: %w", err)
	}
	commitObj, err := headCommit(repo)
	if errors.Is(err, plumbing.ErrReferenceNotFound) {
		return []store.Comment{}, nil
	}
	if err != nil {
		return nil, err
	}
	return readRecordsFromCommit(commitObj)
}

// SaveAll commits the encoded set. Saving a set identical to HEAD creates
// no commit.
func (s *Service) SaveAll(ctx context.Context, comments []store.Comment) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	repo, err := git.PlainOpen(s.dir)
	if err != nil {
		return fmt.Errorf("open repo: %w", err)
	}
	worktree, err := repo.Worktree()
	if err != nil {
		return fmt.Errorf("open worktree: %w", err)
	}

	payload, err := store.EncodeRecords(comments)
	if err != nil {
		return err
	}
	if err := os.WriteFile(filepath.Join(worktree.Filesystem.Root(), recordsFile), payload, 0o644); err != nil {
		return fmt.Errorf("write %s: %w", recordsFile, err)
	}
	if _, err := worktree.Add(recordsFile); err != nil {
		return fmt.Errorf("git add %s: %w", recordsFile, err)
	}

	_, err = worktree.Commit(fmt.Sprintf("Save %d comments", len(comments)), &git.CommitOptions{
		Author: &object.Signature{
			Name:  s.author,
			Email: fmt.Sprintf("%s@threadline.local", sanitizeEmail(s.author)),
			When:  time.Now(),
		},
	})
	if errors.Is(err, git.ErrEmptyCommit) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("commit comments: %w", err)
	}
	return nil
}

// History lists the most recent saves, newest first. limit <= 0 means all.
func (s *Service) History(limit int) ([]store.CommitInfo, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	repo, err := git.PlainOpen(s.dir)
	if err != nil {
		return nil, fmt.Errorf("open repo: %w", err)
	}
	ref, err := repo.Reference(plumbing.NewBranchReferenceName(branchName), true)
	if errors.Is(err, plumbing.ErrReferenceNotFound) {
		return []store.CommitInfo{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("resolve branch %s: %w", branchName, err)
	}

	iter, err := repo.Log(&git.LogOptions{From: ref.Hash()})
	if err != nil {
		return nil, fmt.Errorf("read log: %w", err)
	}
	defer iter.Close()

	items := make([]store.CommitInfo, 0)
	err = iter.ForEach(func(commitObj *object.Commit) error {
		items = append(items, toCommitInfo(commitObj))
		if limit > 0 && len(items) >= limit {
			return io.EOF
		}
		return nil
	})
	if err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("iterate log: %w", err)
	}
	return items, nil
}

// LoadAt returns the record set as it was at the given commit.
func (s *Service) LoadAt(hash string) ([]store.Comment, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	repo, err := git.PlainOpen(s.dir)
	if err != nil {
		return nil, fmt.Errorf("open repo: %w", err)
	}
	resolved, err := repo.ResolveRevision(plumbing.Revision(hash))
	if err != nil {
		return nil, fmt.Errorf("resolve hash %s: %w", hash, err)
	}
	commitObj, err := repo.CommitObject(*resolved)
	if err != nil {
		return nil, fmt.Errorf("read commit %s: %w", hash, err)
	}
	return readRecordsFromCommit(commitObj)
}

func (s *Service) Ping(ctx context.Context) error {
	if _, err := git.PlainOpen(s.dir); err != nil {
		return fmt.Errorf("open repo: %w", err)
	}
	return nil
}

func (s *Service) Close() error {
	return nil
}

func headCommit(repo *git.Repository) (*object.Commit, error) {
	ref, err := repo.Reference(plumbing.NewBranchReferenceName(branchName), true)
	if err != nil {
		return nil, err
	}
	commitObj, err := repo.CommitObject(ref.Hash())
	if err != nil {
		return nil, fmt.Errorf("load commit object: %w", err)
	}
	return commitObj, nil
}

func readRecordsFromCommit(commitObj *object.Commit) ([]store.Comment, error) {
	file, err := commitObj.File(recordsFile)
	if errors.Is(err, object.ErrFileNotFound) {
		return []store.Comment{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("load %s from commit: %w", recordsFile, err)
	}
	contents, err := file.Contents()
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", recordsFile, err)
	}
	return store.DecodeRecords([]byte(contents)), nil
}

func toCommitInfo(commitObj *object.Commit) store.CommitInfo {
	return store.CommitInfo{
		Hash:      commitObj.Hash.String()[:7],
		Message:   commitObj.Message,
		Author:    commitObj.Author.Name,
		CreatedAt: commitObj.Author.When,
	}
}

func sanitizeEmail(input string) string {
	out := make([]rune, 0, len(input))
	for _, r := range input {
		if (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z') || (r >= '0' && r <= '9') {
			out = append(out, r)
			continue
		}
		if r == ' ' || r == '-' || r == '_' {
			out = append(out, '.')
		}
	}
	if len(out) == 0 {
		return "user"
	}
	return string(out)
}
