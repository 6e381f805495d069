package store

import (
	"strings"
	"testing"
)

func TestDecodeRecordsDefaultsMissingFields(t *testing.T) {
	payload := []byte(`[
		{"id": "a", "username": "Guest", "text": "hi", "timestamp": 100},
		{"id": "b", "text": "reply", "timestamp": 150, "parent_id": "a", "likes": 3}
	]`)

	comments := DecodeRecords(payload)
	if len(comments) != 2 {
		t.Fatalf("expected 2 comments, got %d", len(comments))
	}
	if comments[0].ParentID != nil {
		t.Fatalf("expected nil parent, got %q", *comments[0].ParentID)
	}
	if comments[0].Likes != 0 || comments[0].Dislikes != 0 {
		t.Fatalf("expected zero counters, got %+v", comments[0])
	}
	if comments[1].ParentID == nil || *comments[1].ParentID != "a" {
		t.Fatalf("expected parent a, got %+v", comments[1].ParentID)
	}
	if comments[1].Likes != 3 {
		t.Fatalf("expected 3 likes, got %d", comments[1].Likes)
	}
}

func TestDecodeRecordsToleratesMalformedInput(t *testing.T) {
	cases := map[string]string{
		"empty":      "",
		"whitespace": "   \n",
		"garbage":    "not json at all",
		"object":     `{"id": "a"}`,
		"truncated":  `[{"id": "a", "text": "hi"`,
	}
	for name, payload := range cases {
		t.Run(name, func(t *testing.T) {
			comments := DecodeRecords([]byte(payload))
			if comments == nil {
				t.Fatal("expected non-nil empty slice")
			}
			if len(comments) != 0 {
				t.Fatalf("expected no comments, got %d", len(comments))
			}
		})
	}
}

func TestDecodeRecordsCoercesFieldTypes(t *testing.T) {
	payload := []byte(`[
		{"id": 42, "text": "numeric id", "timestamp": "oops", "likes": -4, "dislikes": 2.0, "parent_id": null},
		{"id": "c", "text": "empty parent", "timestamp": 5, "parent_id": ""},
		null
	]`)

	comments := DecodeRecords(payload)
	if len(comments) != 2 {
		t.Fatalf("expected 2 comments, got %d", len(comments))
	}
	first := comments[0]
	if first.ID != "42" {
		t.Fatalf("expected numeric id kept as 42, got %q", first.ID)
	}
	if first.CreatedAt != 0 {
		t.Fatalf("expected bad timestamp to default to 0, got %d", first.CreatedAt)
	}
	if first.Likes != 0 {
		t.Fatalf("expected negative likes clamped to 0, got %d", first.Likes)
	}
	if first.Dislikes != 2 {
		t.Fatalf("expected 2 dislikes, got %d", first.Dislikes)
	}
	if comments[1].ParentID != nil {
		t.Fatal("expected empty parent_id to mean top-level")
	}
}

func TestEncodeRecordsIsIndentedAndStable(t *testing.T) {
	parent := "a"
	payload, err := EncodeRecords([]Comment{
		{ID: "a", Author: "Guest", Text: "line one\nline <two>", CreatedAt: 100},
		{ID: "b", Author: "Guest", Text: "reply", CreatedAt: 150, Likes: 1, ParentID: &parent},
	})
	if err != nil {
		t.Fatalf("EncodeRecords() error = %v", err)
	}
	text := string(payload)
	for _, want := range []string{`"id": "a"`, `"username": "Guest"`, `"parent_id": null`, `"parent_id": "a"`, "\n    {"} {
		if !strings.Contains(text, want) {
			t.Fatalf("encoded payload missing %q:\n%s", want, text)
		}
	}

	decoded := DecodeRecords(payload)
	if len(decoded) != 2 || decoded[0].Text != "line one\nline <two>" {
		t.Fatalf("round trip changed records: %+v", decoded)
	}
}

func TestEncodeRecordsNilIsEmptyArray(t *testing.T) {
	payload, err := EncodeRecords(nil)
	if err != nil {
		t.Fatalf("EncodeRecords() error = %v", err)
	}
	if strings.TrimSpace(string(payload)) != "[]" {
		t.Fatalf("expected [], got %q", payload)
	}
}
