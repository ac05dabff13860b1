package captions

import (
	"context"
	"errors"
	"log/slog"

	"recast/internal/logging"
	"recast/internal/store"
)

// TrackSource lists and fetches caption tracks. *Client implements it; tests
// substitute doubles.
type TrackSource interface {
	ListTracks(ctx context.Context, sourceID string) ([]Track, error)
	FetchTrack(ctx context.Context, sourceID string, track Track) ([]Snippet, error)
}

// TitleSource resolves display titles. *metadata.Client implements it.
type TitleSource interface {
	Title(ctx context.Context, sourceID string) (string, error)
}

// Result is a transcript obtained on the direct-caption path.
type Result struct {
	SourceID  string
	Title     string
	Language  string
	Generated bool
	FullText  string
	Segments  []store.Segment
	Method    store.TranscriptMethod
}

// Acquirer drives the direct-caption path end to end: source-id extraction,
// track selection, fetch, paragraph grouping, and title lookup.
type Acquirer struct {
	tracks    TrackSource
	titles    TitleSource
	preferred []string
	logger    *slog.Logger
}

// NewAcquirer builds an acquirer. A nil logger disables logging.
func NewAcquirer(tracks TrackSource, titles TitleSource, preferred []string, logger *slog.Logger) *Acquirer {
	if logger == nil {
		logger = logging.NewNop()
	}
	if len(preferred) == 0 {
		preferred = []string{"fr", "en"}
	}
	return &Acquirer{
		tracks:    tracks,
		titles:    titles,
		preferred: preferred,
		logger:    logger,
	}
}

// Acquire attempts the direct-caption path for a video reference. Absent or
// unreachable captions return (nil, nil): the caller falls back to download
// plus speech-to-text, so nothing on this path is a hard failure.
func (a *Acquirer) Acquire(ctx context.Context, ref string) (*Result, error) {
	sourceID, ok := ExtractSourceID(ref)
	if !ok {
		a.logger.Debug("no caption source id in reference", logging.String("ref", ref))
		return nil, nil
	}
	log := a.logger.With(logging.String(logging.FieldVideoID, sourceID))

	tracks, err := a.tracks.ListTracks(ctx, sourceID)
	if err != nil {
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			return nil, err
		}
		log.Info("caption listing unavailable, falling back", logging.Error(err))
		return nil, nil
	}

	track, ok := SelectTrack(tracks, a.preferred)
	if !ok {
		log.Info("no caption track in preferred languages, falling back",
			logging.Int("tracks", len(tracks)))
		return nil, nil
	}

	snippets, err := a.tracks.FetchTrack(ctx, sourceID, track)
	if err != nil {
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			return nil, err
		}
		log.Info("caption fetch failed, falling back",
			logging.String("language", track.Language),
			logging.Error(err))
		return nil, nil
	}

	segments := GroupSnippets(snippets)
	result := &Result{
		SourceID:  sourceID,
		Title:     a.resolveTitle(ctx, sourceID, log),
		Language:  track.Language,
		Generated: track.Generated,
		FullText:  JoinSegments(segments),
		Segments:  segments,
		Method:    store.MethodDirectCaption,
	}
	log.Info("captions acquired",
		logging.String("language", result.Language),
		logging.Bool("generated", result.Generated),
		logging.Int("segments", len(result.Segments)))
	return result, nil
}

// resolveTitle never returns an empty title. Lookup failures degrade to a
// synthetic placeholder.
func (a *Acquirer) resolveTitle(ctx context.Context, sourceID string, log *slog.Logger) string {
	if a.titles != nil {
		title, err := a.titles.Title(ctx, sourceID)
		if err == nil && title != "" {
			return title
		}
		if err != nil {
			log.Debug("title lookup failed", logging.Error(err))
		}
	}
	return "Video " + sourceID
}
