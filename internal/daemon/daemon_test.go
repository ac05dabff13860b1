package daemon_test

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"strings"
	"testing"
	"time"

	"recast/internal/api"
	"recast/internal/captions"
	"recast/internal/config"
	"recast/internal/daemon"
	"recast/internal/generate"
	"recast/internal/pipeline"
	"recast/internal/quota"
	"recast/internal/store"
	"recast/internal/testsupport"
)

const testToken = "test-token"

type stubAcquirer struct{}

func (stubAcquirer) Acquire(ctx context.Context, ref string) (*captions.Result, error) {
	id, _ := captions.ExtractSourceID(ref)
	text := "caption transcript"
	return &captions.Result{
		SourceID: id,
		Title:    "Caption Title",
		Language: "en",
		FullText: text,
		Segments: []store.Segment{{Start: 0, Duration: 4, Text: text}},
		Method:   store.MethodDirectCaption,
	}, nil
}

type stubGenerator struct{}

func (stubGenerator) GenerateAll(ctx context.Context, transcript, title string) []generate.Result {
	kinds := store.AllAssetKinds()
	results := make([]generate.Result, 0, len(kinds))
	for _, kind := range kinds {
		results = append(results, generate.Result{Kind: kind, Content: "generated " + string(kind)})
	}
	return results
}

func (stubGenerator) Generate(ctx context.Context, kind store.AssetKind, transcript, title string) (string, error) {
	return "regenerated " + string(kind), nil
}

func newTestDaemon(t *testing.T, mutate func(*config.Config)) (*daemon.Daemon, *store.Store, *config.Config) {
	t.Helper()

	cfg := testsupport.NewConfig(t)
	cfg.Paths.APIToken = testToken
	cfg.Workflow.Workers = 1
	cfg.Workflow.QueuePollInterval = 1
	if mutate != nil {
		mutate(cfg)
	}

	st := testsupport.MustOpenStore(t, cfg)
	generator := stubGenerator{}
	orchestrator := pipeline.NewOrchestrator(st, stubAcquirer{}, nil, nil, generator, nil)
	manager := pipeline.NewManager(cfg, st, orchestrator, nil)
	guard := quota.NewGuard(st, cfg.Quota)
	service := api.NewService(st, guard, generator, nil)

	d, err := daemon.New(cfg, st, service, manager, nil)
	if err != nil {
		t.Fatalf("daemon.New: %v", err)
	}
	return d, st, cfg
}

func startDaemon(t *testing.T, d *daemon.Daemon) string {
	t.Helper()

	if err := d.Start(context.Background()); err != nil {
		t.Fatalf("daemon.Start: %v", err)
	}
	t.Cleanup(d.Stop)
	addr := d.Addr()
	if addr == "" {
		t.Fatal("expected API server to be listening")
	}
	return "http://" + addr
}

func doRequest(t *testing.T, method, url string, body any, authorized bool) (*http.Response, []byte) {
	t.Helper()

	var reader *bytes.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("marshal request body: %v", err)
		}
		reader = bytes.NewReader(payload)
	} else {
		reader = bytes.NewReader(nil)
	}

	req, err := http.NewRequest(method, url, reader)
	if err != nil {
		t.Fatalf("build request: %v", err)
	}
	if authorized {
		req.Header.Set("Authorization", "Bearer "+testToken)
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("%s %s: %v", method, url, err)
	}
	defer resp.Body.Close()

	var buf bytes.Buffer
	if _, err := buf.ReadFrom(resp.Body); err != nil {
		t.Fatalf("read response body: %v", err)
	}
	return resp, buf.Bytes()
}

func TestDaemonRejectsSecondInstance(t *testing.T) {
	first, st, cfg := newTestDaemon(t, nil)
	_ = startDaemon(t, first)

	generator := stubGenerator{}
	orchestrator := pipeline.NewOrchestrator(st, stubAcquirer{}, nil, nil, generator, nil)
	manager := pipeline.NewManager(cfg, st, orchestrator, nil)
	service := api.NewService(st, quota.NewGuard(st, cfg.Quota), generator, nil)
	second, err := daemon.New(cfg, st, service, manager, nil)
	if err != nil {
		t.Fatalf("daemon.New: %v", err)
	}

	err = second.Start(context.Background())
	if err == nil {
		second.Stop()
		t.Fatal("expected second instance start to fail")
	}
	if !strings.Contains(err.Error(), "already running") {
		t.Fatalf("unexpected start error: %v", err)
	}
}

func TestAPIRequiresBearerToken(t *testing.T) {
	d, _, _ := newTestDaemon(t, nil)
	base := startDaemon(t, d)

	resp, _ := doRequest(t, http.MethodGet, base+"/api/status", nil, false)
	if resp.StatusCode != http.StatusUnauthorized {
		t.Fatalf("expected 401 without token, got %d", resp.StatusCode)
	}

	resp, _ = doRequest(t, http.MethodGet, base+"/api/status", nil, true)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200 with token, got %d", resp.StatusCode)
	}
}

func TestAPISubmitAndJobLifecycle(t *testing.T) {
	d, st, _ := newTestDaemon(t, nil)
	base := startDaemon(t, d)

	user := testsupport.NewUser(t, st, "creator@example.com", "PRO")

	resp, body := doRequest(t, http.MethodPost, base+"/api/videos", map[string]string{
		"source_ref":   "https://youtu.be/dQw4w9WgXcQ",
		"workspace_id": "workspace-1",
		"user_id":      user.ID,
	}, true)
	if resp.StatusCode != http.StatusAccepted {
		t.Fatalf("expected 202, got %d: %s", resp.StatusCode, body)
	}
	var result api.SubmitResult
	if err := json.Unmarshal(body, &result); err != nil {
		t.Fatalf("decode submit response: %v", err)
	}
	if result.VideoID == "" || result.JobID == "" {
		t.Fatalf("expected identifiers in response, got %s", body)
	}

	waitForJobStatus(t, st, result.JobID, store.JobCompleted)

	resp, body = doRequest(t, http.MethodGet, base+"/api/jobs/"+result.JobID, nil, true)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", resp.StatusCode, body)
	}
	var payload struct {
		Job struct {
			Status store.JobStatus `json:"status"`
		} `json:"job"`
		Assets []*store.ContentAsset `json:"assets"`
	}
	if err := json.Unmarshal(body, &payload); err != nil {
		t.Fatalf("decode job response: %v", err)
	}
	if payload.Job.Status != store.JobCompleted {
		t.Fatalf("expected COMPLETED job, got %s", payload.Job.Status)
	}
	if len(payload.Assets) != len(store.AllAssetKinds()) {
		t.Fatalf("expected %d assets, got %d", len(store.AllAssetKinds()), len(payload.Assets))
	}

	resp, body = doRequest(t, http.MethodPost, base+"/api/assets/"+payload.Assets[0].ID+"/regenerate", nil, true)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200 on regenerate, got %d: %s", resp.StatusCode, body)
	}
	if !strings.Contains(string(body), "regenerated") {
		t.Fatalf("expected regenerated content in response, got %s", body)
	}
}

func TestAPIErrorStatusMapping(t *testing.T) {
	d, st, _ := newTestDaemon(t, func(cfg *config.Config) {
		cfg.Quota.FreeLimit = 1
	})
	base := startDaemon(t, d)

	user := testsupport.NewUser(t, st, "limited@example.com", "FREE")

	submit := func(ref string) (*http.Response, []byte) {
		return doRequest(t, http.MethodPost, base+"/api/videos", map[string]string{
			"source_ref":   ref,
			"workspace_id": "workspace-1",
			"user_id":      user.ID,
		}, true)
	}

	resp, body := submit("https://youtu.be/dQw4w9WgXcQ")
	if resp.StatusCode != http.StatusAccepted {
		t.Fatalf("expected first submission accepted, got %d: %s", resp.StatusCode, body)
	}

	resp, body = submit("https://youtu.be/aaaaaaaaaaa")
	if resp.StatusCode != http.StatusTooManyRequests {
		t.Fatalf("expected 429 once quota is spent, got %d: %s", resp.StatusCode, body)
	}

	resp, _ = doRequest(t, http.MethodPost, base+"/api/videos", map[string]string{
		"source_ref":   "https://youtu.be/bbbbbbbbbbb",
		"workspace_id": "workspace-1",
		"user_id":      "no-such-user",
	}, true)
	if resp.StatusCode != http.StatusNotFound {
		t.Fatalf("expected 404 for unknown user, got %d", resp.StatusCode)
	}

	resp, _ = doRequest(t, http.MethodPost, base+"/api/videos", map[string]string{
		"source_ref":   "https://youtu.be/ccccccccccc",
		"workspace_id": "",
		"user_id":      user.ID,
	}, true)
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("expected 400 for missing workspace, got %d", resp.StatusCode)
	}

	resp, _ = doRequest(t, http.MethodGet, base+"/api/jobs/missing-job", nil, true)
	if resp.StatusCode != http.StatusNotFound {
		t.Fatalf("expected 404 for unknown job, got %d", resp.StatusCode)
	}

	resp, body = doRequest(t, http.MethodGet, base+"/api/quota/"+user.ID, nil, true)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200 for quota check, got %d", resp.StatusCode)
	}
	var decision quota.Decision
	if err := json.Unmarshal(body, &decision); err != nil {
		t.Fatalf("decode quota response: %v", err)
	}
	if decision.Allowed {
		t.Fatal("expected quota to report exhausted")
	}
}

func waitForJobStatus(t *testing.T, st *store.Store, jobID string, want store.JobStatus) {
	t.Helper()

	deadline := time.Now().Add(10 * time.Second)
	for time.Now().Before(deadline) {
		job, err := st.GetJob(context.Background(), jobID)
		if err != nil {
			t.Fatalf("store.GetJob: %v", err)
		}
		if job != nil && job.Status == want {
			return
		}
		time.Sleep(25 * time.Millisecond)
	}
	t.Fatalf("job %s never reached %s", jobID, want)
}
