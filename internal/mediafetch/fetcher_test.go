package mediafetch_test

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"recast/internal/config"
	"recast/internal/mediafetch"
	"recast/internal/proxy"
	"recast/internal/services"
	"recast/internal/testsupport"
)

type call struct {
	args []string
}

func argsContain(args []string, value string) bool {
	for _, arg := range args {
		if arg == value {
			return true
		}
	}
	return false
}

func playerClient(args []string) string {
	for i, arg := range args {
		if arg == "--extractor-args" && i+1 < len(args) {
			return strings.TrimPrefix(args[i+1], "youtube:player_client=")
		}
	}
	return ""
}

func TestFetchFallsThroughStrategies(t *testing.T) {
	workDir := t.TempDir()
	fetcher := mediafetch.NewFetcher(config.MediaFetch{Binary: "yt-dlp"}, workDir, nil, nil)

	var calls []call
	fetcher.WithRunner(func(ctx context.Context, name string, args ...string) ([]byte, error) {
		calls = append(calls, call{args: args})
		if argsContain(args, "--dump-json") {
			// default (no player client) and android are blocked; ios can see it.
			if playerClient(args) != "ios" {
				return nil, errors.New("HTTP Error 403: Forbidden")
			}
			return []byte(`{"title":"A Video"}`), nil
		}
		// download call: create the expected mp3.
		for _, arg := range args {
			if strings.HasSuffix(arg, "%(id)s.%(ext)s") {
				path := strings.Replace(arg, "%(id)s.%(ext)s", "dQw4w9WgXcQ.mp3", 1)
				if err := os.WriteFile(path, []byte("mp3"), 0o644); err != nil {
					t.Fatalf("write fake mp3: %v", err)
				}
			}
		}
		return nil, nil
	})

	download, err := fetcher.Fetch(context.Background(), "https://youtu.be/dQw4w9WgXcQ")
	if err != nil {
		t.Fatalf("Fetch failed: %v", err)
	}
	if download.Title != "A Video" || download.SourceID != "dQw4w9WgXcQ" {
		t.Fatalf("unexpected download: %#v", download)
	}
	if _, err := os.Stat(download.AudioPath); err != nil {
		t.Fatalf("expected audio file on disk: %v", err)
	}
	if filepath.Ext(download.AudioPath) != ".mp3" {
		t.Fatalf("expected mp3, got %s", download.AudioPath)
	}

	// Three probes (default, android, ios) then one download with ios.
	if len(calls) != 4 {
		t.Fatalf("expected 4 invocations, got %d", len(calls))
	}
	if playerClient(calls[0].args) != "" || playerClient(calls[1].args) != "android" || playerClient(calls[2].args) != "ios" {
		t.Fatal("strategies probed out of order")
	}
	if playerClient(calls[3].args) != "ios" || !argsContain(calls[3].args, "bestaudio") {
		t.Fatalf("download did not reuse winning strategy: %v", calls[3].args)
	}
}

func TestFetchAllStrategiesBlocked(t *testing.T) {
	fetcher := mediafetch.NewFetcher(config.MediaFetch{}, t.TempDir(), nil, nil)
	fetcher.WithRunner(func(ctx context.Context, name string, args ...string) ([]byte, error) {
		return nil, errors.New("HTTP Error 403: Forbidden")
	})

	_, err := fetcher.Fetch(context.Background(), "https://youtu.be/dQw4w9WgXcQ")
	if err == nil {
		t.Fatal("expected error when every strategy is blocked")
	}
	if !strings.Contains(err.Error(), "no accessible strategy") {
		t.Fatalf("expected no-accessible-strategy error, got %v", err)
	}
	if !strings.Contains(err.Error(), "403") {
		t.Fatalf("expected last observed error in chain, got %v", err)
	}
}

func TestFetchRejectsUnrecognizedReference(t *testing.T) {
	fetcher := mediafetch.NewFetcher(config.MediaFetch{}, t.TempDir(), nil, nil)
	_, err := fetcher.Fetch(context.Background(), "https://example.com/not-a-video")
	if err == nil {
		t.Fatal("expected validation error")
	}
	if services.IsRetryable(err) {
		t.Fatalf("validation errors must not be retryable: %v", err)
	}
}

func TestFetchResolvesBinaryFromPath(t *testing.T) {
	cfg := testsupport.NewConfig(t,
		testsupport.WithProxies(config.Proxy{Username: "u", Password: "p", Host: "proxy.example.com", Port: 8080}),
		testsupport.WithStubbedBinaries(),
	)
	if err := cfg.EnsureDirectories(); err != nil {
		t.Fatalf("ensure directories: %v", err)
	}

	pool := proxy.NewPool(cfg.Proxies, 1)
	fetcher := mediafetch.NewFetcher(cfg.MediaFetch, cfg.Paths.WorkDir, pool, nil)

	// The stub exits 0 without emitting probe JSON, so every strategy fails
	// after the binary itself runs fine.
	_, err := fetcher.Fetch(context.Background(), "https://youtu.be/dQw4w9WgXcQ")
	if err == nil {
		t.Fatal("expected probe parse failure from stub output")
	}
	if strings.Contains(err.Error(), "executable file not found") {
		t.Fatalf("expected stub binary to be found on PATH, got %v", err)
	}
	if !strings.Contains(err.Error(), "no accessible strategy") {
		t.Fatalf("expected strategy exhaustion, got %v", err)
	}
}

func TestFetchPassesProxyAndHeaders(t *testing.T) {
	pool := proxy.NewPool([]config.Proxy{
		{Username: "u", Password: "p", Host: "proxy.example.com", Port: 8080},
	}, 1)
	fetcher := mediafetch.NewFetcher(config.MediaFetch{CookiesPath: "/tmp/cookies.txt"}, t.TempDir(), pool, nil)

	var probeArgs []string
	fetcher.WithRunner(func(ctx context.Context, name string, args ...string) ([]byte, error) {
		if argsContain(args, "--dump-json") && probeArgs == nil {
			probeArgs = args
		}
		return nil, errors.New("blocked")
	})

	fetcher.Fetch(context.Background(), "https://youtu.be/dQw4w9WgXcQ")

	if !argsContain(probeArgs, "--proxy") {
		t.Fatalf("expected --proxy flag, got %v", probeArgs)
	}
	if !argsContain(probeArgs, "http://u:p@proxy.example.com:8080") {
		t.Fatalf("expected proxy url, got %v", probeArgs)
	}
	if !argsContain(probeArgs, "--user-agent") {
		t.Fatal("expected browser user agent")
	}
	if !argsContain(probeArgs, "--cookies") {
		t.Fatal("expected cookies on the default strategy")
	}
}
