// Package sqlblock finds SQL statements embedded in assistant replies.
//
// A statement is the body of a fenced code block whose info string is exactly
// the tag "sql" (case-sensitive):
//
//	```sql
//	SELECT * FROM partners
//	```
//
// Only the first tagged block is considered. Its content is returned with the
// tag and surrounding whitespace removed; no syntax validation is performed.
package sqlblock

import (
	"strings"
	"unicode"
)

const (
	// Fence delimits code blocks in markdown replies.
	Fence = "```"
	// Tag is the info string that marks a block as SQL.
	Tag = "sql"
)

// Extract returns the statement in the first sql-tagged fenced block of text.
// ok is false when text has no fence, no block carries the tag, or the first
// tagged block is empty.
func Extract(text string) (statement string, ok bool) {
	for _, body := range taggedBlocks(text) {
		if body == "" {
			return "", false
		}
		return body, true
	}
	return "", false
}

// ExtractAll returns the non-empty statements of every sql-tagged block in
// reply order. Callers that execute statements must use Extract.
func ExtractAll(text string) []string {
	var out []string
	for _, body := range taggedBlocks(text) {
		if body != "" {
			out = append(out, body)
		}
	}
	return out
}

// taggedBlocks returns the trimmed bodies of sql-tagged blocks. Segments at odd
// indices of the split lie inside fences; an unterminated final block is kept.
func taggedBlocks(text string) []string {
	if !strings.Contains(text, Fence) {
		return nil
	}
	segments := strings.Split(text, Fence)
	var bodies []string
	for i := 1; i < len(segments); i += 2 {
		body, ok := stripTag(segments[i])
		if !ok {
			continue
		}
		bodies = append(bodies, body)
	}
	return bodies
}

// stripTag removes a leading "sql" info string. The tag must be followed by
// whitespace or end the segment, so "sqlite" or "SQL" do not match.
func stripTag(segment string) (string, bool) {
	rest, found := strings.CutPrefix(segment, Tag)
	if !found {
		return "", false
	}
	if rest != "" && !unicode.IsSpace(rune(rest[0])) {
		return "", false
	}
	return strings.TrimSpace(rest), true
}
