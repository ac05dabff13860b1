package assemblyai_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"recast/internal/config"
	"recast/internal/services"
	"recast/internal/services/assemblyai"
)

func writeAudioFile(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "audio.mp3")
	if err := os.WriteFile(path, []byte("fake audio"), 0o644); err != nil {
		t.Fatalf("write audio file: %v", err)
	}
	return path
}

func TestTranscribePollsUntilCompleted(t *testing.T) {
	var polls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") != "key" {
			t.Errorf("missing authorization header")
		}
		switch {
		case r.Method == http.MethodPost && r.URL.Path == "/upload":
			w.Write([]byte(`{"upload_url":"https://cdn.example.com/audio"}`))
		case r.Method == http.MethodPost && r.URL.Path == "/transcript":
			w.Write([]byte(`{"id":"t-1","status":"queued"}`))
		case r.Method == http.MethodGet && strings.HasPrefix(r.URL.Path, "/transcript/"):
			if polls.Add(1) < 3 {
				w.Write([]byte(`{"id":"t-1","status":"processing"}`))
				return
			}
			w.Write([]byte(`{
                "id":"t-1","status":"completed","text":"spoken words",
                "summary":"- a summary","language_code":"en",
                "chapters":[{"headline":"Intro","start":0,"end":1200}]
            }`))
		default:
			http.NotFound(w, r)
		}
	}))
	defer server.Close()

	client := assemblyai.NewClient(
		config.Transcription{APIKey: "key", BaseURL: server.URL},
		assemblyai.WithPollInterval(time.Millisecond),
	)

	result, err := client.Transcribe(context.Background(), writeAudioFile(t))
	if err != nil {
		t.Fatalf("Transcribe failed: %v", err)
	}
	if result.Text != "spoken words" || result.Summary != "- a summary" || result.Language != "en" {
		t.Fatalf("unexpected transcription: %#v", result)
	}
	if len(result.Chapters) != 1 || result.Chapters[0].Headline != "Intro" {
		t.Fatalf("unexpected chapters: %#v", result.Chapters)
	}
	if polls.Load() < 3 {
		t.Fatalf("expected at least 3 polls, got %d", polls.Load())
	}
}

func TestTranscribeErrorStatusIsHardFailure(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch {
		case r.URL.Path == "/upload":
			w.Write([]byte(`{"upload_url":"https://cdn.example.com/audio"}`))
		case r.URL.Path == "/transcript":
			w.Write([]byte(`{"id":"t-2","status":"queued"}`))
		default:
			w.Write([]byte(`{"id":"t-2","status":"error","error":"audio too noisy"}`))
		}
	}))
	defer server.Close()

	client := assemblyai.NewClient(
		config.Transcription{APIKey: "key", BaseURL: server.URL},
		assemblyai.WithPollInterval(time.Millisecond),
	)

	_, err := client.Transcribe(context.Background(), writeAudioFile(t))
	if err == nil {
		t.Fatal("expected hard failure for error status")
	}
	if !strings.Contains(err.Error(), "audio too noisy") {
		t.Fatalf("expected service error text, got %v", err)
	}
	if services.IsRetryable(err) {
		t.Fatalf("error-status failure must not be retryable: %v", err)
	}
}

func TestTranscribeHonorsCancellation(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch {
		case r.URL.Path == "/upload":
			w.Write([]byte(`{"upload_url":"https://cdn.example.com/audio"}`))
		case r.URL.Path == "/transcript":
			w.Write([]byte(`{"id":"t-3","status":"queued"}`))
		default:
			w.Write([]byte(`{"id":"t-3","status":"processing"}`))
		}
	}))
	defer server.Close()

	client := assemblyai.NewClient(
		config.Transcription{APIKey: "key", BaseURL: server.URL},
		assemblyai.WithPollInterval(time.Hour),
	)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() {
		_, err := client.Transcribe(ctx, writeAudioFile(t))
		done <- err
	}()

	time.Sleep(50 * time.Millisecond)
	cancel()

	select {
	case err := <-done:
		if err == nil {
			t.Fatal("expected cancellation error")
		}
	case <-time.After(5 * time.Second):
		t.Fatal("Transcribe did not return after cancellation")
	}
}

func TestTranscribeRequiresAPIKey(t *testing.T) {
	client := assemblyai.NewClient(config.Transcription{BaseURL: "https://api.example.com"})
	_, err := client.Transcribe(context.Background(), "/nonexistent")
	if err == nil || services.IsRetryable(err) {
		t.Fatalf("expected non-retryable configuration error, got %v", err)
	}
}
