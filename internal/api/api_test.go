package api_test

import (
	"context"
	"errors"
	"testing"

	"recast/internal/api"
	"recast/internal/config"
	"recast/internal/quota"
	"recast/internal/services"
	"recast/internal/store"
	"recast/internal/testsupport"
)

type fakeSingleGenerator struct {
	content string
	err     error
	calls   int
}

func (f *fakeSingleGenerator) Generate(ctx context.Context, kind store.AssetKind, transcript, title string) (string, error) {
	f.calls++
	if f.err != nil {
		return "", f.err
	}
	return f.content, nil
}

func newService(t *testing.T) (*api.Service, *store.Store, *fakeSingleGenerator) {
	t.Helper()
	cfg := testsupport.NewConfig(t)
	st := testsupport.MustOpenStore(t, cfg)
	guard := quota.NewGuard(st, config.Quota{FreeLimit: 2, ProLimit: -1, EnterpriseLimit: -1})
	generator := &fakeSingleGenerator{content: "regenerated"}
	return api.NewService(st, guard, generator, nil), st, generator
}

func TestSubmitJobEnqueuesAndCountsUsage(t *testing.T) {
	service, st, _ := newService(t)
	ctx := context.Background()
	user := testsupport.NewUser(t, st, "u@example.com", store.PlanFree)

	result, err := service.SubmitJob(ctx, "https://youtu.be/dQw4w9WgXcQ?si=junk", "workspace-1", user.ID)
	if err != nil {
		t.Fatalf("SubmitJob failed: %v", err)
	}
	if result.VideoID == "" || result.JobID == "" {
		t.Fatalf("expected ids, got %#v", result)
	}

	video, err := st.GetVideo(ctx, result.VideoID)
	if err != nil || video == nil {
		t.Fatalf("GetVideo: %v %#v", err, video)
	}
	if video.Status != store.VideoPending {
		t.Fatalf("expected PENDING, got %s", video.Status)
	}
	if video.SourceURL != "https://www.youtube.com/watch?v=dQw4w9WgXcQ" {
		t.Fatalf("expected cleaned url, got %q", video.SourceURL)
	}

	decision, err := service.CheckQuota(ctx, user.ID)
	if err != nil {
		t.Fatalf("CheckQuota failed: %v", err)
	}
	if decision.Processed != 1 {
		t.Fatalf("expected one consumed slot, got %d", decision.Processed)
	}
}

func TestSubmitJobQuotaRejectionCreatesNoState(t *testing.T) {
	service, st, _ := newService(t)
	ctx := context.Background()
	user := testsupport.NewUser(t, st, "u@example.com", store.PlanFree)

	for i := 0; i < 2; i++ {
		if _, err := service.SubmitJob(ctx, "https://youtu.be/dQw4w9WgXcQ", "workspace-1", user.ID); err != nil {
			t.Fatalf("SubmitJob %d failed: %v", i, err)
		}
	}

	_, err := service.SubmitJob(ctx, "https://youtu.be/dQw4w9WgXcQ", "workspace-1", user.ID)
	if !errors.Is(err, api.ErrQuotaExceeded) {
		t.Fatalf("expected ErrQuotaExceeded, got %v", err)
	}

	videos, err := st.ListVideos(ctx)
	if err != nil {
		t.Fatalf("ListVideos failed: %v", err)
	}
	if len(videos) != 2 {
		t.Fatalf("rejected submission must create no video, got %d", len(videos))
	}
}

type admitFailGuard struct {
	*quota.Guard
	admitErr error
}

func (g *admitFailGuard) Admit(ctx context.Context, userID string) error {
	return g.admitErr
}

func TestSubmitJobRollsBackWhenAdmitFails(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	st := testsupport.MustOpenStore(t, cfg)
	guard := quota.NewGuard(st, config.Quota{FreeLimit: 2, ProLimit: -1, EnterpriseLimit: -1})
	service := api.NewService(st, &admitFailGuard{Guard: guard, admitErr: errors.New("usage update failed")}, &fakeSingleGenerator{}, nil)

	ctx := context.Background()
	user := testsupport.NewUser(t, st, "u@example.com", store.PlanFree)

	if _, err := service.SubmitJob(ctx, "https://youtu.be/dQw4w9WgXcQ", "workspace-1", user.ID); err == nil {
		t.Fatal("expected admit failure to surface")
	}

	videos, err := st.ListVideos(ctx)
	if err != nil {
		t.Fatalf("ListVideos failed: %v", err)
	}
	if len(videos) != 0 {
		t.Fatalf("failed admission must leave no video behind, got %d", len(videos))
	}
	jobs, err := st.ListJobs(ctx)
	if err != nil {
		t.Fatalf("ListJobs failed: %v", err)
	}
	if len(jobs) != 0 {
		t.Fatalf("failed admission must leave no job behind, got %d", len(jobs))
	}
}

func TestSubmitJobValidation(t *testing.T) {
	service, st, _ := newService(t)
	ctx := context.Background()
	user := testsupport.NewUser(t, st, "u@example.com", store.PlanFree)

	cases := []struct {
		name                     string
		ref, workspaceID, userID string
	}{
		{"empty ref", "", "w", user.ID},
		{"empty workspace", "https://youtu.be/dQw4w9WgXcQ", "", user.ID},
		{"empty user", "https://youtu.be/dQw4w9WgXcQ", "w", ""},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := service.SubmitJob(ctx, tc.ref, tc.workspaceID, tc.userID)
			if !errors.Is(err, services.ErrValidation) {
				t.Fatalf("expected validation error, got %v", err)
			}
		})
	}

	if _, err := service.SubmitJob(ctx, "https://youtu.be/dQw4w9WgXcQ", "w", "unknown-user"); !errors.Is(err, services.ErrNotFound) {
		t.Fatalf("expected not-found for unknown user, got %v", err)
	}
}

func TestRegenerateAssetTouchesOnlyTarget(t *testing.T) {
	service, st, generator := newService(t)
	ctx := context.Background()

	_, job := testsupport.NewSubmission(t, st, "workspace-1", "https://youtu.be/dQw4w9WgXcQ")
	if _, err := st.ReplaceTranscript(ctx, &store.Transcript{
		JobID:    job.ID,
		FullText: "the transcript",
		Method:   store.MethodDirectCaption,
	}); err != nil {
		t.Fatalf("ReplaceTranscript failed: %v", err)
	}
	assets, err := st.ReplaceAssets(ctx, job.ID, []store.ContentAsset{
		{Kind: store.AssetBlogPost, Content: "blog v1"},
		{Kind: store.AssetVideoSummary, Content: "summary v1"},
	})
	if err != nil {
		t.Fatalf("ReplaceAssets failed: %v", err)
	}

	var target, sibling *store.ContentAsset
	for _, asset := range assets {
		if asset.Kind == store.AssetBlogPost {
			target = asset
		} else {
			sibling = asset
		}
	}

	regenerated, err := service.RegenerateAsset(ctx, target.ID)
	if err != nil {
		t.Fatalf("RegenerateAsset failed: %v", err)
	}
	if regenerated.Content != "regenerated" || regenerated.ID != target.ID {
		t.Fatalf("unexpected regenerated asset: %#v", regenerated)
	}
	if generator.calls != 1 {
		t.Fatalf("expected exactly one generator call, got %d", generator.calls)
	}

	untouched, _ := st.GetAsset(ctx, sibling.ID)
	if untouched.Content != "summary v1" {
		t.Fatalf("sibling asset modified: %#v", untouched)
	}
}

func TestRegenerateAssetNotFound(t *testing.T) {
	service, _, _ := newService(t)
	if _, err := service.RegenerateAsset(context.Background(), "missing"); !errors.Is(err, services.ErrNotFound) {
		t.Fatalf("expected not-found, got %v", err)
	}
}

func TestGetJobStatusNotFound(t *testing.T) {
	service, _, _ := newService(t)
	if _, err := service.GetJobStatus(context.Background(), "missing"); !errors.Is(err, services.ErrNotFound) {
		t.Fatalf("expected not-found, got %v", err)
	}
}
