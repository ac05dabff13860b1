// Package assemblyai wraps the AssemblyAI transcription API: audio upload,
// transcript submission, and cooperative polling until a terminal status.
package assemblyai

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"time"

	"recast/internal/config"
	"recast/internal/services"
	"recast/internal/store"
)

const (
	defaultHTTPTimeout  = 30 * time.Second
	defaultPollInterval = 5 * time.Second
)

// Transcription is the terminal payload for a completed transcript.
type Transcription struct {
	ID       string
	Text     string
	Summary  string
	Chapters []store.Chapter
	Language string
}

// Client talks to the AssemblyAI v2 API.
type Client struct {
	baseURL      string
	apiKey       string
	httpClient   *http.Client
	pollInterval time.Duration
}

// Option customizes the client.
type Option func(*Client)

// WithHTTPClient overrides the default HTTP client.
func WithHTTPClient(client *http.Client) Option {
	return func(c *Client) {
		if client != nil {
			c.httpClient = client
		}
	}
}

// WithPollInterval overrides the poll cadence (useful for tests).
func WithPollInterval(interval time.Duration) Option {
	return func(c *Client) {
		if interval > 0 {
			c.pollInterval = interval
		}
	}
}

// NewClient constructs a transcription client from configuration.
func NewClient(cfg config.Transcription, opts ...Option) *Client {
	timeout := defaultHTTPTimeout
	if cfg.RequestTimeout > 0 {
		timeout = time.Duration(cfg.RequestTimeout) * time.Second
	}
	interval := defaultPollInterval
	if cfg.PollInterval > 0 {
		interval = time.Duration(cfg.PollInterval) * time.Second
	}
	client := &Client{
		baseURL:      strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/"),
		apiKey:       strings.TrimSpace(cfg.APIKey),
		httpClient:   &http.Client{Timeout: timeout},
		pollInterval: interval,
	}
	for _, opt := range opts {
		opt(client)
	}
	return client
}

// Upload streams a local audio file to the upload endpoint and returns the
// temporary audio URL.
func (c *Client) Upload(ctx context.Context, path string) (string, error) {
	file, err := os.Open(path)
	if err != nil {
		return "", services.Wrap(services.ErrValidation, "transcribe", "upload", "open audio file", err)
	}
	defer file.Close()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/upload", file)
	if err != nil {
		return "", fmt.Errorf("assemblyai upload: new request: %w", err)
	}
	req.Header.Set("Authorization", c.apiKey)
	req.Header.Set("Content-Type", "application/octet-stream")

	body, err := c.do(req, "upload")
	if err != nil {
		return "", err
	}
	var payload struct {
		UploadURL string `json:"upload_url"`
	}
	if err := json.Unmarshal(body, &payload); err != nil {
		return "", fmt.Errorf("assemblyai upload: decode response: %w", err)
	}
	if payload.UploadURL == "" {
		return "", errors.New("assemblyai upload: empty upload_url")
	}
	return payload.UploadURL, nil
}

// Submit creates a transcript for an uploaded audio URL with summarization
// and auto chapters enabled.
func (c *Client) Submit(ctx context.Context, audioURL string) (string, error) {
	payload := map[string]any{
		"audio_url":          audioURL,
		"summarization":      true,
		"summary_model":      "informative",
		"summary_type":       "bullets",
		"auto_chapters":      true,
		"language_detection": true,
	}
	encoded, err := json.Marshal(payload)
	if err != nil {
		return "", fmt.Errorf("assemblyai submit: encode body: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/transcript", bytes.NewReader(encoded))
	if err != nil {
		return "", fmt.Errorf("assemblyai submit: new request: %w", err)
	}
	req.Header.Set("Authorization", c.apiKey)
	req.Header.Set("Content-Type", "application/json")

	body, err := c.do(req, "submit")
	if err != nil {
		return "", err
	}
	var response TranscriptStatus
	if err := json.Unmarshal(body, &response); err != nil {
		return "", fmt.Errorf("assemblyai submit: decode response: %w", err)
	}
	if response.ID == "" {
		return "", errors.New("assemblyai submit: empty transcript id")
	}
	return response.ID, nil
}

// Poll fetches the current state of a transcript.
func (c *Client) Poll(ctx context.Context, id string) (*TranscriptStatus, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/transcript/"+id, nil)
	if err != nil {
		return nil, fmt.Errorf("assemblyai poll: new request: %w", err)
	}
	req.Header.Set("Authorization", c.apiKey)

	body, err := c.do(req, "poll")
	if err != nil {
		return nil, err
	}
	var response TranscriptStatus
	if err := json.Unmarshal(body, &response); err != nil {
		return nil, fmt.Errorf("assemblyai poll: decode response: %w", err)
	}
	return &response, nil
}

// Transcribe runs the full upload, submit, poll cycle for a local audio
// file. Polling honors ctx so daemon shutdown interrupts the wait. A service
// "error" status is a hard failure carrying the service's error text.
func (c *Client) Transcribe(ctx context.Context, path string) (*Transcription, error) {
	if c.apiKey == "" {
		return nil, services.Wrap(services.ErrConfiguration, "transcribe", "transcribe", "api key required", nil)
	}

	audioURL, err := c.Upload(ctx, path)
	if err != nil {
		return nil, err
	}
	id, err := c.Submit(ctx, audioURL)
	if err != nil {
		return nil, err
	}

	for {
		response, err := c.Poll(ctx, id)
		if err != nil {
			return nil, err
		}
		switch response.Status {
		case "completed":
			return response.transcription(), nil
		case "error":
			return nil, services.Wrap(services.ErrExternalTool, "transcribe", "poll",
				fmt.Sprintf("transcription failed: %s", response.Error), nil)
		}
		if err := services.SleepWithContext(ctx, c.pollInterval); err != nil {
			return nil, err
		}
	}
}

// TranscriptStatus is the wire payload for a transcript record.
type TranscriptStatus struct {
	ID           string `json:"id"`
	Status       string `json:"status"`
	Text         string `json:"text"`
	Summary      string `json:"summary"`
	LanguageCode string `json:"language_code"`
	Error        string `json:"error"`
	Chapters     []struct {
		Headline string `json:"headline"`
		Start    int    `json:"start"`
		End      int    `json:"end"`
	} `json:"chapters"`
}

func (r *TranscriptStatus) transcription() *Transcription {
	out := &Transcription{
		ID:       r.ID,
		Text:     r.Text,
		Summary:  r.Summary,
		Language: r.LanguageCode,
	}
	for _, chapter := range r.Chapters {
		out.Chapters = append(out.Chapters, store.Chapter{
			Headline: chapter.Headline,
			Start:    chapter.Start,
			End:      chapter.End,
		})
	}
	return out
}

func (c *Client) do(req *http.Request, op string) ([]byte, error) {
	resp, err := c.httpClient.Do(req)
	if err != nil {
		var marker error = services.ErrTransient
		if errors.Is(err, context.DeadlineExceeded) {
			marker = services.ErrTimeout
		}
		return nil, services.Wrap(marker, "transcribe", op, "http error", err)
	}
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, services.Wrap(services.ErrTransient, "transcribe", op, "read body", err)
	}
	if resp.StatusCode >= http.StatusMultipleChoices {
		marker := services.ErrExternalTool
		if resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= http.StatusInternalServerError {
			marker = services.ErrTransient
		}
		return nil, services.Wrap(marker, "transcribe", op,
			fmt.Sprintf("http %d: %s", resp.StatusCode, strings.TrimSpace(string(body))), nil)
	}
	return body, nil
}
