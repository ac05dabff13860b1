package captions

import (
	"strings"

	"recast/internal/store"
)

// snippetsPerParagraph is how many consecutive cues fold into one paragraph.
const snippetsPerParagraph = 5

// GroupSnippets folds raw caption cues into paragraph segments. Each
// paragraph starts where its first cue starts and spans through the end of
// its last cue, so the grouping is deterministic for a given input.
func GroupSnippets(snippets []Snippet) []store.Segment {
	if len(snippets) == 0 {
		return nil
	}

	segments := make([]store.Segment, 0, (len(snippets)+snippetsPerParagraph-1)/snippetsPerParagraph)
	for offset := 0; offset < len(snippets); offset += snippetsPerParagraph {
		end := offset + snippetsPerParagraph
		if end > len(snippets) {
			end = len(snippets)
		}
		group := snippets[offset:end]

		parts := make([]string, 0, len(group))
		for _, snippet := range group {
			parts = append(parts, snippet.Text)
		}
		last := group[len(group)-1]
		segments = append(segments, store.Segment{
			Start:    group[0].Start,
			Duration: last.Start + last.Duration - group[0].Start,
			Text:     strings.Join(parts, " "),
		})
	}
	return segments
}

// JoinSegments renders segments into the flat transcript text. The
// concatenation round-trips with the per-segment text.
func JoinSegments(segments []store.Segment) string {
	parts := make([]string, 0, len(segments))
	for _, segment := range segments {
		parts = append(parts, segment.Text)
	}
	return strings.Join(parts, "\n\n")
}
