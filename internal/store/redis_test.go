package store

import (
	"context"
	"testing"

	"github.com/alicebob/miniredis/v2"
)

func setupTestRedis(t *testing.T) (*RedisStore, *miniredis.Miniredis) {
	s := miniredis.RunT(t)
	store, err := NewRedisStore("redis://"+s.Addr(), "")
	if err != nil {
		t.Fatalf("failed to create redis store: %v", err)
	}
	return store, s
}

func TestNewRedisStore(t *testing.T) {
	store, s := setupTestRedis(t)
	defer store.Close()
	defer s.Close()

	if err := store.Ping(context.Background()); err != nil {
		t.Errorf("Ping failed: %v", err)
	}
}

func TestNewRedisStoreBadURL(t *testing.T) {
	if _, err := NewRedisStore("not a url", ""); err == nil {
		t.Fatal("expected error for invalid redis url")
	}
}

func TestRedisLoadMissingKey(t *testing.T) {
	store, s := setupTestRedis(t)
	defer store.Close()
	defer s.Close()

	comments, err := store.LoadAll(context.Background())
	if err != nil {
		t.Fatalf("LoadAll failed: %v", err)
	}
	if len(comments) != 0 {
		t.Fatalf("expected empty set, got %d", len(comments))
	}
}

func TestRedisSaveAndLoad(t *testing.T) {
	store, s := setupTestRedis(t)
	defer store.Close()
	defer s.Close()

	ctx := context.Background()
	parent := "a"
	err := store.SaveAll(ctx, []Comment{
		{ID: "a", Author: "Guest", Text: "top", CreatedAt: 100, Likes: 2},
		{ID: "c", Author: "Guest", Text: "reply", CreatedAt: 150, ParentID: &parent},
	})
	if err != nil {
		t.Fatalf("SaveAll failed: %v", err)
	}

	if !s.Exists(defaultRedisKey) {
		t.Fatalf("expected key %s to exist", defaultRedisKey)
	}
	if ttl := s.TTL(defaultRedisKey); ttl != 0 {
		t.Fatalf("expected no expiry, got %v", ttl)
	}

	comments, err := store.LoadAll(ctx)
	if err != nil {
		t.Fatalf("LoadAll failed: %v", err)
	}
	if len(comments) != 2 {
		t.Fatalf("expected 2 comments, got %d", len(comments))
	}
	if comments[0].Likes != 2 || comments[1].ParentID == nil || *comments[1].ParentID != "a" {
		t.Fatalf("unexpected comments: %+v", comments)
	}
}

func TestRedisCorruptValueIsEmpty(t *testing.T) {
	store, s := setupTestRedis(t)
	defer store.Close()
	defer s.Close()

	if err := s.Set(defaultRedisKey, "garbage"); err != nil {
		t.Fatalf("seed corrupt value: %v", err)
	}
	comments, err := store.LoadAll(context.Background())
	if err != nil {
		t.Fatalf("LoadAll failed: %v", err)
	}
	if len(comments) != 0 {
		t.Fatalf("expected corrupt value to read as empty, got %d", len(comments))
	}
}

func TestRedisCustomKey(t *testing.T) {
	s := miniredis.RunT(t)
	store, err := NewRedisStore("redis://"+s.Addr(), "widget:1")
	if err != nil {
		t.Fatalf("NewRedisStore failed: %v", err)
	}
	defer store.Close()

	if err := store.SaveAll(context.Background(), []Comment{{ID: "x"}}); err != nil {
		t.Fatalf("SaveAll failed: %v", err)
	}
	if !s.Exists("widget:1") {
		t.Fatal("expected custom key to be written")
	}
}
