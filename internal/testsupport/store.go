package testsupport

import (
	"context"
	"testing"

	"recast/internal/config"
	"recast/internal/store"
)

// MustOpenStore opens a store.Store for tests and registers cleanup.
func MustOpenStore(t testing.TB, cfg *config.Config) *store.Store {
	t.Helper()

	st, err := store.Open(cfg)
	if err != nil {
		t.Fatalf("store.Open: %v", err)
	}
	t.Cleanup(func() {
		st.Close()
	})
	return st
}

// NewSubmission creates a video and job pair for tests using the provided
// store.
func NewSubmission(t testing.TB, st *store.Store, workspaceID, sourceURL string) (*store.VideoSource, *store.ProcessingJob) {
	t.Helper()

	video, job, err := st.CreateSubmission(context.Background(), workspaceID, sourceURL, "")
	if err != nil {
		t.Fatalf("store.CreateSubmission: %v", err)
	}
	return video, job
}

// NewUser creates a user on the given plan for tests.
func NewUser(t testing.TB, st *store.Store, email, plan string) *store.User {
	t.Helper()

	user, err := st.CreateUser(context.Background(), email, plan)
	if err != nil {
		t.Fatalf("store.CreateUser: %v", err)
	}
	return user
}
