package captions

import (
	"golang.org/x/text/language"
)

// SelectTrack picks the caption track to fetch. Manual tracks in the
// preferred-language order win over generated ones; within each class the
// earlier preferred language wins.
func SelectTrack(tracks []Track, preferred []string) (Track, bool) {
	var manual, generated []Track
	for _, track := range tracks {
		if track.Generated {
			generated = append(generated, track)
		} else {
			manual = append(manual, track)
		}
	}
	if track, ok := matchLanguage(manual, preferred); ok {
		return track, true
	}
	if track, ok := matchLanguage(generated, preferred); ok {
		return track, true
	}
	return Track{}, false
}

func matchLanguage(tracks []Track, preferred []string) (Track, bool) {
	if len(tracks) == 0 {
		return Track{}, false
	}

	tags := make([]language.Tag, 0, len(tracks))
	candidates := make([]Track, 0, len(tracks))
	for _, track := range tracks {
		tag, err := language.Parse(track.Language)
		if err != nil {
			continue
		}
		tags = append(tags, tag)
		candidates = append(candidates, track)
	}
	if len(tags) == 0 {
		return Track{}, false
	}

	matcher := language.NewMatcher(tags)
	for _, want := range preferred {
		wantTag, err := language.Parse(want)
		if err != nil {
			continue
		}
		_, index, confidence := matcher.Match(wantTag)
		if confidence >= language.High {
			return candidates[index], true
		}
	}
	return Track{}, false
}
