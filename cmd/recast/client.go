package main

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"syscall"
	"time"

	"recast/internal/api"
	"recast/internal/config"
	"recast/internal/daemon"
	"recast/internal/quota"
	"recast/internal/store"
)

// daemonClient talks to a running daemon over its HTTP API.
type daemonClient struct {
	baseURL string
	token   string
	http    *http.Client
}

func newDaemonClient(cfg *config.Config) *daemonClient {
	return &daemonClient{
		baseURL: "http://" + cfg.Paths.APIBind,
		token:   cfg.Paths.APIToken,
		http:    &http.Client{Timeout: 30 * time.Second},
	}
}

type jobView struct {
	Job        *store.ProcessingJob  `json:"job"`
	Assets     []*store.ContentAsset `json:"assets"`
	Transcript *store.Transcript     `json:"transcript"`
}

func (c *daemonClient) Submit(ctx context.Context, sourceRef, workspaceID, userID string) (api.SubmitResult, error) {
	var result api.SubmitResult
	err := c.do(ctx, http.MethodPost, "/api/videos", map[string]string{
		"source_ref":   sourceRef,
		"workspace_id": workspaceID,
		"user_id":      userID,
	}, &result)
	return result, err
}

func (c *daemonClient) ListVideos(ctx context.Context, status string) ([]*store.VideoSource, error) {
	path := "/api/videos"
	if status != "" {
		path += "?status=" + status
	}
	var payload struct {
		Videos []*store.VideoSource `json:"videos"`
	}
	if err := c.do(ctx, http.MethodGet, path, nil, &payload); err != nil {
		return nil, err
	}
	return payload.Videos, nil
}

func (c *daemonClient) ShowJob(ctx context.Context, jobID string) (jobView, error) {
	var view jobView
	err := c.do(ctx, http.MethodGet, "/api/jobs/"+jobID, nil, &view)
	return view, err
}

func (c *daemonClient) RetryFailed(ctx context.Context, ids []string) (int64, error) {
	var payload struct {
		Retried int64 `json:"retried"`
	}
	err := c.do(ctx, http.MethodPost, "/api/videos/retry", map[string][]string{"ids": ids}, &payload)
	return payload.Retried, err
}

func (c *daemonClient) Quota(ctx context.Context, userID string) (quota.Decision, error) {
	var decision quota.Decision
	err := c.do(ctx, http.MethodGet, "/api/quota/"+userID, nil, &decision)
	return decision, err
}

func (c *daemonClient) Regenerate(ctx context.Context, assetID string) (*store.ContentAsset, error) {
	var payload struct {
		Asset *store.ContentAsset `json:"asset"`
	}
	err := c.do(ctx, http.MethodPost, "/api/assets/"+assetID+"/regenerate", nil, &payload)
	return payload.Asset, err
}

func (c *daemonClient) Status(ctx context.Context) (daemon.Status, error) {
	var status daemon.Status
	err := c.do(ctx, http.MethodGet, "/api/status", nil, &status)
	return status, err
}

func (c *daemonClient) do(ctx context.Context, method, path string, body, out any) error {
	var reader io.Reader
	if body != nil {
		encoded, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("encode request: %w", err)
		}
		reader = bytes.NewReader(encoded)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		if errors.Is(err, syscall.ECONNREFUSED) {
			return fmt.Errorf("connect to daemon at %s: connection refused; start it with `recast daemon`", c.baseURL)
		}
		return fmt.Errorf("connect to daemon: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		return decodeAPIError(resp)
	}
	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

func decodeAPIError(resp *http.Response) error {
	var payload struct {
		Error string `json:"error"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil || payload.Error == "" {
		return fmt.Errorf("daemon returned %s", resp.Status)
	}
	return errors.New(payload.Error)
}
