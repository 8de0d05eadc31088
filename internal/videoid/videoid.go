// Package videoid extracts the canonical 11 character video identifier from
// loosely formatted references: a bare id, a watch/embed/shorts URL, or a
// youtu.be short link.
package videoid

import (
	"net/url"
	"strings"
)

// Extract returns the video id in the given reference and whether one could
// be determined. It never does network access and never panics on malformed
// input.
func Extract(reference string) (string, bool) {
	reference = strings.TrimSpace(reference)
	if reference == "" {
		return "", false
	}

	if IsID(reference) {
		return reference, true
	}

	parsed, err := url.Parse(reference)
	if err != nil {
		return "", false
	}

	switch parsed.Hostname() {
	case "www.youtube.com", "youtube.com":
		if parsed.Path == "/watch" {
			if v := parsed.Query().Get("v"); v != "" {
				return v, true
			}
			return "", false
		}

		for _, prefix := range []string{"/embed/", "/shorts/"} {
			id, ok := strings.CutPrefix(parsed.Path, prefix)
			if !ok {
				continue
			}
			// The id runs up to the next path or query delimiter.
			if i := strings.IndexAny(id, "/?#&"); i >= 0 {
				id = id[:i]
			}
			if id != "" {
				return id, true
			}
		}
	case "youtu.be":
		if id := strings.TrimLeft(parsed.Path, "/"); id != "" {
			return id, true
		}
	}

	return "", false
}

// IsID reports whether value is already an identifier: exactly 11 characters
// of [A-Za-z0-9_-].
func IsID(value string) bool {
	if len(value) != 11 {
		return false
	}

	for i := 0; i < len(value); i++ {
		c := value[i]
		switch {
		case c >= 'a' && c <= 'z':
		case c >= 'A' && c <= 'Z':
		case c >= '0' && c <= '9':
		case c == '-' || c == '_':
		default:
			return false
		}
	}

	return true
}
