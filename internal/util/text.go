package util

import "strings"

// previewLimit is the maximum number of characters of a comment
// excerpt carried inside a notification payload.
const previewLimit = 30

// CommentPreview shortens comment content for notification payloads.
// Content longer than the limit is cut and suffixed with an ellipsis.
// The cut is made on rune boundaries so multi-byte content stays
// valid UTF-8.
func CommentPreview(content string) string {
	runes := []rune(content)
	if len(runes) <= previewLimit {
		return content
	}
	return string(runes[:previewLimit]) + "..."
}

// NormalizeHashtags lowercases hashtags, strips a leading '#', and
// drops empties and duplicates while preserving first-seen order.
func NormalizeHashtags(tags []string) []string {
	seen := make(map[string]bool)
	var out []string
	for _, tag := range tags {
		tag = strings.ToLower(strings.TrimSpace(strings.TrimPrefix(tag, "#")))
		if tag == "" || seen[tag] {
			continue
		}
		seen[tag] = true
		out = append(out, tag)
	}
	return out
}
