package store

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// EncodeRecords renders the record set as an indented JSON array so the
// backing file or object stays readable by hand.
func EncodeRecords(comments []Comment) ([]byte, error) {
	if comments == nil {
		comments = []Comment{}
	}
	var buf bytes.Buffer
	encoder := json.NewEncoder(&buf)
	encoder.SetEscapeHTML(false)
	encoder.SetIndent("", "    ")
	if err := encoder.Encode(comments); err != nil {
		return nil, fmt.Errorf("marshal comments: %w", err)
	}
	return buf.Bytes(), nil
}

// DecodeRecords never fails. A payload that is not a JSON array yields an
// empty set, and fields that are missing or of the wrong type fall back to
// their zero value.
func DecodeRecords(payload []byte) []Comment {
	payload = bytes.TrimSpace(payload)
	if len(payload) == 0 {
		return []Comment{}
	}

	var raw []map[string]json.RawMessage
	if err := json.Unmarshal(payload, &raw); err != nil {
		return []Comment{}
	}

	comments := make([]Comment, 0, len(raw))
	for _, fields := range raw {
		if fields == nil {
			continue
		}
		comments = append(comments, decodeRecord(fields))
	}
	return comments
}

func decodeRecord(fields map[string]json.RawMessage) Comment {
	comment := Comment{
		ID:        decodeString(fields["id"]),
		Author:    decodeString(fields["username"]),
		Text:      decodeString(fields["text"]),
		CreatedAt: decodeInt(fields["timestamp"]),
		Likes:     int(max(decodeInt(fields["likes"]), 0)),
		Dislikes:  int(max(decodeInt(fields["dislikes"]), 0)),
	}
	if parent := decodeString(fields["parent_id"]); parent != "" {
		comment.ParentID = &parent
	}
	return comment
}

func decodeString(raw json.RawMessage) string {
	if len(raw) == 0 {
		return ""
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return s
	}
	// Numeric ids written by older tooling are kept verbatim.
	var n json.Number
	if err := json.Unmarshal(raw, &n); err == nil {
		return n.String()
	}
	return ""
}

func decodeInt(raw json.RawMessage) int64 {
	if len(raw) == 0 {
		return 0
	}
	var n json.Number
	if err := json.Unmarshal(raw, &n); err != nil {
		return 0
	}
	if v, err := n.Int64(); err == nil {
		return v
	}
	if f, err := n.Float64(); err == nil {
		return int64(f)
	}
	return 0
}
