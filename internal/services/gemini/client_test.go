package gemini_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"recast/internal/config"
	"recast/internal/services/gemini"
)

func TestCompleteReturnsCandidateText(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !strings.Contains(r.URL.Path, "models/test-model:generateContent") {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		if r.URL.Query().Get("key") != "key" {
			t.Errorf("missing api key")
		}
		w.Write([]byte(`{"candidates":[{"content":{"parts":[{"text":"generated "},{"text":"text"}]}}]}`))
	}))
	defer server.Close()

	client := gemini.NewClient(config.Generation{
		APIKey:  "key",
		BaseURL: server.URL,
		Model:   "test-model",
	})

	text, err := client.Complete(context.Background(), "write something")
	if err != nil {
		t.Fatalf("Complete failed: %v", err)
	}
	if text != "generated text" {
		t.Fatalf("unexpected text %q", text)
	}
}

func TestCompleteRetriesOnServerError(t *testing.T) {
	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) < 3 {
			http.Error(w, "overloaded", http.StatusServiceUnavailable)
			return
		}
		w.Write([]byte(`{"candidates":[{"content":{"parts":[{"text":"ok"}]}}]}`))
	}))
	defer server.Close()

	var slept []time.Duration
	client := gemini.NewClient(
		config.Generation{APIKey: "key", BaseURL: server.URL, Model: "m"},
		gemini.WithRetryBackoff(time.Second, time.Minute),
		gemini.WithSleeper(func(d time.Duration) { slept = append(slept, d) }),
	)

	text, err := client.Complete(context.Background(), "prompt")
	if err != nil {
		t.Fatalf("Complete failed: %v", err)
	}
	if text != "ok" {
		t.Fatalf("unexpected text %q", text)
	}
	if len(slept) != 2 || slept[0] != time.Second || slept[1] != 2*time.Second {
		t.Fatalf("unexpected backoff sequence %v", slept)
	}
}

func TestCompleteHonorsRetryAfter(t *testing.T) {
	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) == 1 {
			w.Header().Set("Retry-After", "7")
			http.Error(w, "rate limited", http.StatusTooManyRequests)
			return
		}
		w.Write([]byte(`{"candidates":[{"content":{"parts":[{"text":"ok"}]}}]}`))
	}))
	defer server.Close()

	var slept []time.Duration
	client := gemini.NewClient(
		config.Generation{APIKey: "key", BaseURL: server.URL, Model: "m"},
		gemini.WithSleeper(func(d time.Duration) { slept = append(slept, d) }),
	)

	if _, err := client.Complete(context.Background(), "prompt"); err != nil {
		t.Fatalf("Complete failed: %v", err)
	}
	if len(slept) != 1 || slept[0] != 7*time.Second {
		t.Fatalf("expected a single 7s sleep, got %v", slept)
	}
}

func TestCompleteDoesNotRetryClientErrors(t *testing.T) {
	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		http.Error(w, "bad request", http.StatusBadRequest)
	}))
	defer server.Close()

	client := gemini.NewClient(
		config.Generation{APIKey: "key", BaseURL: server.URL, Model: "m"},
		gemini.WithSleeper(func(time.Duration) {}),
	)

	if _, err := client.Complete(context.Background(), "prompt"); err == nil {
		t.Fatal("expected error for http 400")
	}
	if calls.Load() != 1 {
		t.Fatalf("expected exactly one attempt, got %d", calls.Load())
	}
}

func TestCompleteRequiresPromptAndKey(t *testing.T) {
	client := gemini.NewClient(config.Generation{BaseURL: "https://example.com", Model: "m", APIKey: "key"})
	if _, err := client.Complete(context.Background(), "  "); err == nil {
		t.Fatal("expected error for empty prompt")
	}
	client = gemini.NewClient(config.Generation{BaseURL: "https://example.com", Model: "m"})
	if _, err := client.Complete(context.Background(), "prompt"); err == nil {
		t.Fatal("expected error for missing api key")
	}
}
