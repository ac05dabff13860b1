package services_test

import (
	"context"
	"errors"
	"strings"
	"testing"

	"recast/internal/services"
)

func TestWrapIncludesContext(t *testing.T) {
	base := errors.New("boom")
	err := services.Wrap(services.ErrExternalTool, "fetch", "probe", "no accessible strategy", base)
	if err == nil {
		t.Fatal("expected error")
	}
	if !errors.Is(err, services.ErrExternalTool) {
		t.Fatalf("expected marker to be retained, got %v", err)
	}
	if !errors.Is(err, base) {
		t.Fatalf("expected wrapped error to contain base error, got %v", err)
	}
	msg := err.Error()
	for _, fragment := range []string{"fetch", "probe", "no accessible strategy"} {
		if !strings.Contains(msg, fragment) {
			t.Fatalf("expected %q in error string %q", fragment, msg)
		}
	}
}

func TestWrapDefaultsMarker(t *testing.T) {
	err := services.Wrap(nil, "transcribe", "poll", "stalled", nil)
	if !errors.Is(err, services.ErrTransient) {
		t.Fatalf("expected nil marker to default to transient, got %v", err)
	}
}

func TestIsRetryableClassification(t *testing.T) {
	cases := []struct {
		name string
		err  error
		want bool
	}{
		{"nil", nil, false},
		{"canceled", context.Canceled, false},
		{"deadline", context.DeadlineExceeded, true},
		{"validation", services.Wrap(services.ErrValidation, "submit", "parse", "bad ref", nil), false},
		{"configuration", services.Wrap(services.ErrConfiguration, "generate", "client", "missing key", nil), false},
		{"not found", services.Wrap(services.ErrNotFound, "quota", "user", "unknown", nil), false},
		{"transient", services.Wrap(services.ErrTransient, "captions", "list", "flaky", nil), true},
		{"timeout", services.Wrap(services.ErrTimeout, "fetch", "download", "too slow", nil), true},
		{"rate limited message", errors.New("upstream said 429 too many requests"), true},
		{"plain", errors.New("nothing recognizable"), false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := services.IsRetryable(tc.err); got != tc.want {
				t.Fatalf("IsRetryable(%v) = %v, want %v", tc.err, got, tc.want)
			}
		})
	}
}
