// Package mediafetch downloads source audio with yt-dlp when the direct
// caption path comes up empty. Strategies impersonating different player
// clients are probed in order until one can see the video, then the winning
// strategy performs the real download.
package mediafetch

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"time"

	"recast/internal/captions"
	"recast/internal/config"
	"recast/internal/logging"
	"recast/internal/proxy"
	"recast/internal/services"
)

const (
	defaultProbeTimeout    = 60 * time.Second
	defaultDownloadTimeout = 300 * time.Second

	browserUserAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/124.0.0.0 Safari/537.36"
)

// Download is the outcome of a successful fetch.
type Download struct {
	AudioPath string
	Title     string
	SourceID  string
}

// CommandRunner executes an external command and returns its stdout.
type CommandRunner func(ctx context.Context, name string, args ...string) ([]byte, error)

func runCommand(ctx context.Context, name string, args ...string) ([]byte, error) {
	cmd := exec.CommandContext(ctx, name, args...) //nolint:gosec
	var stderr strings.Builder
	cmd.Stderr = &stderr
	output, err := cmd.Output()
	if err != nil {
		detail := strings.TrimSpace(stderr.String())
		if detail != "" {
			return output, fmt.Errorf("%w: %s", err, detail)
		}
		return output, err
	}
	return output, nil
}

type strategy struct {
	name         string
	playerClient string
	useCookies   bool
}

var strategies = []strategy{
	{name: "default", useCookies: true},
	{name: "android", playerClient: "android"},
	{name: "ios", playerClient: "ios"},
}

// Fetcher probes and downloads audio through yt-dlp.
type Fetcher struct {
	cfg     config.MediaFetch
	workDir string
	proxies proxy.Source
	logger  *slog.Logger
	runner  CommandRunner
}

// NewFetcher builds a fetcher. Downloads land in per-fetch temp directories
// under workDir.
func NewFetcher(cfg config.MediaFetch, workDir string, proxies proxy.Source, logger *slog.Logger) *Fetcher {
	if logger == nil {
		logger = logging.NewNop()
	}
	return &Fetcher{
		cfg:     cfg,
		workDir: workDir,
		proxies: proxies,
		logger:  logger,
		runner:  runCommand,
	}
}

// WithRunner overrides command execution (useful for tests).
func (f *Fetcher) WithRunner(runner CommandRunner) {
	if runner != nil {
		f.runner = runner
	}
}

// Fetch resolves a working strategy for the reference and downloads its
// audio as mp3. The probe only extracts metadata; the actual download runs
// once with the winning strategy.
func (f *Fetcher) Fetch(ctx context.Context, ref string) (*Download, error) {
	sourceID, ok := captions.ExtractSourceID(ref)
	if !ok {
		return nil, services.Wrap(services.ErrValidation, "fetch", "probe", fmt.Sprintf("unrecognized video reference %q", ref), nil)
	}
	target := captions.CleanShareURL(ref)
	log := f.logger.With(logging.String(logging.FieldVideoID, sourceID))

	winner, title, err := f.probe(ctx, target, log)
	if err != nil {
		return nil, err
	}

	audioPath, err := f.download(ctx, target, sourceID, winner, log)
	if err != nil {
		return nil, err
	}
	return &Download{
		AudioPath: audioPath,
		Title:     title,
		SourceID:  sourceID,
	}, nil
}

// probe tries each strategy with a metadata-only extraction until one can
// parse the video. All strategies failing wraps the last observed error.
func (f *Fetcher) probe(ctx context.Context, target string, log *slog.Logger) (strategy, string, error) {
	var lastErr error
	for _, s := range strategies {
		if err := ctx.Err(); err != nil {
			return strategy{}, "", err
		}

		args := f.commonArgs(s)
		args = append(args, "--dump-json", "--skip-download", target)

		probeCtx, cancel := context.WithTimeout(ctx, f.probeTimeout())
		output, err := f.runner(probeCtx, f.binary(), args...)
		cancel()
		if err != nil {
			if errors.Is(probeCtx.Err(), context.DeadlineExceeded) {
				err = services.Wrap(services.ErrTimeout, "fetch", "probe", fmt.Sprintf("strategy %s timed out", s.name), err)
			}
			log.Debug("fetch strategy probe failed",
				logging.String("strategy", s.name),
				logging.Error(err))
			lastErr = err
			continue
		}

		var metadata struct {
			Title string `json:"title"`
		}
		if err := json.Unmarshal(output, &metadata); err != nil {
			lastErr = fmt.Errorf("parse probe metadata: %w", err)
			continue
		}
		log.Info("fetch strategy selected", logging.String("strategy", s.name))
		return s, metadata.Title, nil
	}
	if lastErr == nil {
		lastErr = errors.New("no strategies configured")
	}
	return strategy{}, "", services.Wrap(services.ErrExternalTool, "fetch", "probe", "no accessible strategy", lastErr)
}

// download pulls bestaudio as mp3 into a fresh temp directory.
func (f *Fetcher) download(ctx context.Context, target, sourceID string, s strategy, log *slog.Logger) (string, error) {
	dir, err := os.MkdirTemp(f.workDir, "fetch-")
	if err != nil {
		return "", fmt.Errorf("create download dir: %w", err)
	}
	outputTemplate := filepath.Join(dir, "%(id)s.%(ext)s")

	args := f.commonArgs(s)
	args = append(args,
		"-f", "bestaudio",
		"-x",
		"--audio-format", "mp3",
		"--output", outputTemplate,
		target,
	)

	downloadCtx, cancel := context.WithTimeout(ctx, f.downloadTimeout())
	defer cancel()
	if _, err := f.runner(downloadCtx, f.binary(), args...); err != nil {
		os.RemoveAll(dir)
		if errors.Is(downloadCtx.Err(), context.DeadlineExceeded) {
			return "", services.Wrap(services.ErrTimeout, "fetch", "download", "audio download timed out", err)
		}
		return "", services.Wrap(services.ErrExternalTool, "fetch", "download", "audio download failed", err)
	}

	audioPath := filepath.Join(dir, sourceID+".mp3")
	if _, err := os.Stat(audioPath); err != nil {
		// Fall back to whatever single file landed in the directory.
		entries, globErr := filepath.Glob(filepath.Join(dir, "*.mp3"))
		if globErr != nil || len(entries) == 0 {
			os.RemoveAll(dir)
			return "", services.Wrap(services.ErrExternalTool, "fetch", "download", "downloaded audio missing", err)
		}
		audioPath = entries[0]
	}
	log.Info("audio downloaded",
		logging.String("strategy", s.name),
		logging.String("path", audioPath))
	return audioPath, nil
}

// commonArgs renders the per-attempt flags: browser headers, a freshly
// picked proxy identity, and the strategy's player client.
func (f *Fetcher) commonArgs(s strategy) []string {
	args := []string{
		"--no-playlist",
		"--no-warnings",
		"--user-agent", browserUserAgent,
		"--add-header", "Referer:https://www.youtube.com/",
		"--add-header", "Accept-Language:en-US,en;q=0.9",
	}
	if f.proxies != nil {
		if endpoint, ok := f.proxies.Pick(); ok {
			args = append(args, "--proxy", endpoint.URL().String())
		}
	}
	if s.playerClient != "" {
		args = append(args, "--extractor-args", "youtube:player_client="+s.playerClient)
	}
	if s.useCookies && f.cfg.CookiesPath != "" {
		args = append(args, "--cookies", f.cfg.CookiesPath)
	}
	return args
}

func (f *Fetcher) binary() string {
	if f.cfg.Binary != "" {
		return f.cfg.Binary
	}
	return "yt-dlp"
}

func (f *Fetcher) probeTimeout() time.Duration {
	if f.cfg.ProbeTimeout > 0 {
		return time.Duration(f.cfg.ProbeTimeout) * time.Second
	}
	return defaultProbeTimeout
}

func (f *Fetcher) downloadTimeout() time.Duration {
	if f.cfg.DownloadTimeout > 0 {
		return time.Duration(f.cfg.DownloadTimeout) * time.Second
	}
	return defaultDownloadTimeout
}
