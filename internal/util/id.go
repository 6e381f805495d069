package util

import "github.com/rs/xid"

// NewID returns a globally unique, time-ordered identifier (20 chars,
// base32hex). Ids sort by creation second.
func NewID() string {
	return xid.New().String()
}
