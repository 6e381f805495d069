package comments

import (
	"time"

	"github.com/dustin/go-humanize"
)

const (
	indentStep = 40
	maxIndent  = 160
	// collapseAbove is the top-level reply count above which replies start
	// hidden behind a "See Replies" toggle.
	collapseAbove = 3
)

// Indent returns the left margin in pixels for a nesting level. Anything
// deeper than four levels renders at the same offset.
func Indent(level int) int {
	if level <= 0 {
		return 0
	}
	return min(level*indentStep, maxIndent)
}

// CollapseReplies reports whether a reply group starts hidden. Only
// top-level comments collapse; nested groups are always expanded.
func CollapseReplies(level, replyCount int) bool {
	return level == 0 && replyCount > collapseAbove
}

// RelativeTime renders createdAt as "3 hours ago". Anything newer than a
// second, including timestamps in the future, reads "1 second ago".
func RelativeTime(createdAt, now time.Time) string {
	if now.Sub(createdAt) < time.Second {
		createdAt = now.Add(-time.Second)
	}
	return humanize.RelTime(createdAt, now, "ago", "from now")
}
