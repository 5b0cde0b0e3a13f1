// Package metadata derives the bookkeeping fields of a new article: its
// sequential identifier, its URL slug, and its publication date.
package metadata

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"
)

// IDWidth is the fixed width of article identifiers.
const IDWidth = 3

var (
	nonSlugChars = regexp.MustCompile(`[^\w\s-]`)
	slugRuns     = regexp.MustCompile(`[\s_-]+`)
)

// NextID returns the identifier following maxID, zero-padded to IDWidth.
// An empty or unparseable maxID yields the first identifier ("001").
func NextID(maxID string) string {
	max := 0
	if maxID != "" {
		if n, err := strconv.Atoi(maxID); err == nil && n > 0 {
			max = n
		}
	}
	return fmt.Sprintf("%0*d", IDWidth, max+1)
}

// Slug converts a title into a lowercase URL-safe slug: characters outside
// word characters, whitespace and hyphens are dropped, runs of whitespace,
// underscores and hyphens collapse to a single hyphen, and leading or
// trailing hyphens are trimmed. The transform is deterministic so it can be
// reused for slug collision detection.
func Slug(title string) string {
	slug := strings.ToLower(strings.TrimSpace(title))
	slug = nonSlugChars.ReplaceAllString(slug, "")
	slug = slugRuns.ReplaceAllString(slug, "-")
	return strings.Trim(slug, "-")
}

// Today returns the current date in YYYY-MM-DD form. Articles carry the
// processing date, never a date taken from the transcript.
func Today() string {
	return time.Now().Format("2006-01-02")
}
