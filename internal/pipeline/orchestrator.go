package pipeline

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"path/filepath"

	"recast/internal/captions"
	"recast/internal/generate"
	"recast/internal/logging"
	"recast/internal/mediafetch"
	"recast/internal/services"
	"recast/internal/services/assemblyai"
	"recast/internal/store"
)

// TranscriptAcquirer is the direct-caption path. A (nil, nil) return means
// "no captions, fall back".
type TranscriptAcquirer interface {
	Acquire(ctx context.Context, ref string) (*captions.Result, error)
}

// AudioFetcher downloads source audio for the fallback path.
type AudioFetcher interface {
	Fetch(ctx context.Context, ref string) (*mediafetch.Download, error)
}

// SpeechTranscriber converts downloaded audio to text.
type SpeechTranscriber interface {
	Transcribe(ctx context.Context, path string) (*assemblyai.Transcription, error)
}

// ContentGenerator fans a transcript out to every content format.
type ContentGenerator interface {
	GenerateAll(ctx context.Context, transcript, title string) []generate.Result
}

// Orchestrator runs one claimed job through the full state machine:
// transcript acquisition, persistence, and content fan-out.
type Orchestrator struct {
	store       *store.Store
	acquirer    TranscriptAcquirer
	fetcher     AudioFetcher
	transcriber SpeechTranscriber
	generator   ContentGenerator
	logger      *slog.Logger

	apiRetry Policy
	dbRetry  Policy
}

// NewOrchestrator wires the pipeline steps together.
func NewOrchestrator(
	st *store.Store,
	acquirer TranscriptAcquirer,
	fetcher AudioFetcher,
	transcriber SpeechTranscriber,
	generator ContentGenerator,
	logger *slog.Logger,
) *Orchestrator {
	if logger == nil {
		logger = logging.NewNop()
	}
	return &Orchestrator{
		store:       st,
		acquirer:    acquirer,
		fetcher:     fetcher,
		transcriber: transcriber,
		generator:   generator,
		logger:      logger,
		apiRetry:    APIPolicy(),
		dbRetry:     DBPolicy(),
	}
}

// Run processes one claimed job to a terminal state. The returned error is
// the terminal failure; the caller records FAILED states.
func (o *Orchestrator) Run(ctx context.Context, job *store.ProcessingJob, video *store.VideoSource) error {
	ctx = services.WithVideoID(ctx, video.ID)
	ctx = services.WithJobID(ctx, job.ID)
	log := logging.WithContext(ctx, o.logger)

	ref := video.SourceURL
	if ref == "" {
		ref = video.SourcePath
	}

	ctx = services.WithStage(ctx, "transcript")
	transcript, title, err := o.acquireTranscript(ctx, job, ref, log)
	if err != nil {
		return err
	}

	if err := o.dbRetry.Do(ctx, "persist transcript", func(ctx context.Context) error {
		_, err := o.store.ReplaceTranscript(ctx, transcript)
		return err
	}); err != nil {
		return err
	}
	if err := o.dbRetry.Do(ctx, "persist title", func(ctx context.Context) error {
		return o.store.SetVideoTitle(ctx, video.ID, title)
	}); err != nil {
		return err
	}

	ctx = services.WithStage(ctx, "generate")
	results := o.generator.GenerateAll(ctx, transcript.FullText, title)
	assets := make([]store.ContentAsset, 0, len(results))
	for _, result := range results {
		if result.Err != nil {
			log.Warn("format generation failed, continuing with the rest",
				logging.String("format", string(result.Kind)),
				logging.Error(result.Err))
			continue
		}
		assets = append(assets, store.ContentAsset{Kind: result.Kind, Content: result.Content})
	}
	if len(assets) == 0 {
		return services.Wrap(services.ErrExternalTool, "generate", "fanout", "every content format failed", firstErr(results))
	}

	if err := o.dbRetry.Do(ctx, "persist assets", func(ctx context.Context) error {
		_, err := o.store.ReplaceAssets(ctx, job.ID, assets)
		return err
	}); err != nil {
		return err
	}

	if err := o.dbRetry.Do(ctx, "mark completed", func(ctx context.Context) error {
		if err := o.store.SetJobStatus(ctx, job.ID, store.JobCompleted, ""); err != nil {
			return err
		}
		return o.store.SetVideoStatus(ctx, video.ID, store.VideoCompleted, "")
	}); err != nil {
		return err
	}

	log.Info("job completed",
		logging.String("method", string(transcript.Method)),
		logging.Int("assets", len(assets)))
	return nil
}

// acquireTranscript tries direct captions first and falls back to download
// plus speech-to-text. The fallback's audio file is removed whatever the
// outcome.
func (o *Orchestrator) acquireTranscript(ctx context.Context, job *store.ProcessingJob, ref string, log *slog.Logger) (*store.Transcript, string, error) {
	direct, err := o.acquirer.Acquire(ctx, ref)
	if err != nil {
		return nil, "", err
	}
	if direct != nil {
		return &store.Transcript{
			JobID:    job.ID,
			FullText: direct.FullText,
			Segments: direct.Segments,
			Language: direct.Language,
			Method:   store.MethodDirectCaption,
		}, direct.Title, nil
	}

	log.Info("no direct captions, downloading audio for speech-to-text")

	var download *mediafetch.Download
	if err := o.apiRetry.Do(ctx, "fetch audio", func(ctx context.Context) error {
		var fetchErr error
		download, fetchErr = o.fetcher.Fetch(ctx, ref)
		return fetchErr
	}); err != nil {
		return nil, "", err
	}
	defer func() {
		if removeErr := os.Remove(download.AudioPath); removeErr != nil && !errors.Is(removeErr, os.ErrNotExist) {
			log.Warn("temp audio cleanup failed",
				logging.String("path", download.AudioPath),
				logging.Error(removeErr))
		}
		// Best effort: drop the per-fetch directory too if it is now empty.
		_ = os.Remove(filepath.Dir(download.AudioPath))
	}()

	var transcription *assemblyai.Transcription
	if err := o.apiRetry.Do(ctx, "transcribe audio", func(ctx context.Context) error {
		var transcribeErr error
		transcription, transcribeErr = o.transcriber.Transcribe(ctx, download.AudioPath)
		return transcribeErr
	}); err != nil {
		return nil, "", err
	}

	title := download.Title
	if title == "" {
		title = "Video " + download.SourceID
	}
	return &store.Transcript{
		JobID:    job.ID,
		FullText: transcription.Text,
		Summary:  transcription.Summary,
		Chapters: transcription.Chapters,
		Language: transcription.Language,
		Method:   store.MethodSpeechToText,
	}, title, nil
}

func firstErr(results []generate.Result) error {
	for _, result := range results {
		if result.Err != nil {
			return result.Err
		}
	}
	return nil
}
