// Package generate turns a transcript into the configured set of content
// formats by fanning out one LLM call per format.
package generate

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"recast/internal/logging"
	"recast/internal/services"
	"recast/internal/store"
)

// TextCompleter produces text for a prompt. *gemini.Client implements it.
type TextCompleter interface {
	Complete(ctx context.Context, prompt string) (string, error)
}

// Result is the outcome of one generator. Err is set when that format
// failed; failures never affect sibling formats.
type Result struct {
	Kind    store.AssetKind
	Content string
	Err     error
}

// FanOut runs the per-format generators.
type FanOut struct {
	completer TextCompleter
	logger    *slog.Logger
}

// NewFanOut builds a fan-out over the given completer.
func NewFanOut(completer TextCompleter, logger *slog.Logger) *FanOut {
	if logger == nil {
		logger = logging.NewNop()
	}
	return &FanOut{completer: completer, logger: logger}
}

// Generate produces content for a single format. Used for targeted asset
// regeneration.
func (f *FanOut) Generate(ctx context.Context, kind store.AssetKind, transcript, title string) (string, error) {
	format, ok := formats[kind]
	if !ok {
		return "", services.Wrap(services.ErrValidation, "generate", string(kind), "unknown content format", nil)
	}
	prompt := fmt.Sprintf(format.promptTemplate, title, truncateTranscript(transcript, format.transcriptCap))
	content, err := f.completer.Complete(ctx, prompt)
	if err != nil {
		return "", fmt.Errorf("generate %s: %w", kind, err)
	}
	return content, nil
}

// GenerateAll runs every generator concurrently and returns one Result per
// format in the canonical kind order.
func (f *FanOut) GenerateAll(ctx context.Context, transcript, title string) []Result {
	kinds := store.AllAssetKinds()
	results := make([]Result, len(kinds))

	var wg sync.WaitGroup
	for i, kind := range kinds {
		wg.Add(1)
		go func(i int, kind store.AssetKind) {
			defer wg.Done()
			content, err := f.Generate(ctx, kind, transcript, title)
			results[i] = Result{Kind: kind, Content: content, Err: err}
			if err != nil {
				f.logger.Warn("content generation failed",
					logging.String("format", string(kind)),
					logging.Error(err))
			}
		}(i, kind)
	}
	wg.Wait()
	return results
}
