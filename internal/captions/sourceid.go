package captions

import (
	"regexp"
	"strings"
)

// Ordered by how often each URL shape shows up in submissions. The first
// match wins.
var sourceIDPatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?:youtube\.com/watch\?(?:[^&\s]*&)*v=)([0-9A-Za-z_-]{11})`),
	regexp.MustCompile(`(?:youtu\.be/)([0-9A-Za-z_-]{11})`),
	regexp.MustCompile(`(?:youtube\.com/embed/)([0-9A-Za-z_-]{11})`),
	regexp.MustCompile(`(?:youtube\.com/shorts/)([0-9A-Za-z_-]{11})`),
}

// ExtractSourceID pulls the 11-character video identifier out of a watch,
// short, embed, or shorts URL. A bare identifier passes through unchanged.
func ExtractSourceID(ref string) (string, bool) {
	ref = strings.TrimSpace(ref)
	if ref == "" {
		return "", false
	}
	for _, pattern := range sourceIDPatterns {
		if match := pattern.FindStringSubmatch(ref); match != nil {
			return match[1], true
		}
	}
	if bareSourceID.MatchString(ref) {
		return ref, true
	}
	return "", false
}

var bareSourceID = regexp.MustCompile(`^[0-9A-Za-z_-]{11}$`)

// CleanShareURL strips tracking parameters (si, feature, t) that share links
// carry, leaving a canonical reference for downstream tools.
func CleanShareURL(ref string) string {
	id, ok := ExtractSourceID(ref)
	if !ok {
		return ref
	}
	if strings.Contains(ref, "youtu.be/") || strings.Contains(ref, "/shorts/") || strings.Contains(ref, "/embed/") || strings.Contains(ref, "watch?") {
		return "https://www.youtube.com/watch?v=" + id
	}
	return ref
}
