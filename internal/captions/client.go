package captions

import (
	"context"
	"encoding/xml"
	"errors"
	"fmt"
	"html"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"recast/internal/config"
	"recast/internal/proxy"
)

const (
	defaultHTTPTimeout = 15 * time.Second
	defaultBurst       = 1
)

// ErrNoCaptions marks the expected "this video has no usable caption track"
// outcome. Callers fall back to download plus speech-to-text.
var ErrNoCaptions = errors.New("no caption track available")

// Track describes one caption track advertised for a video.
type Track struct {
	Language  string
	Name      string
	Generated bool
}

// Snippet is one raw caption cue before paragraph grouping.
type Snippet struct {
	Start    float64
	Duration float64
	Text     string
}

// Client fetches caption track lists and track content. Every request goes
// through a freshly picked proxy endpoint and is paced by a shared limiter.
type Client struct {
	baseURL    string
	httpClient *http.Client
	proxies    proxy.Source
	limiter    *rate.Limiter
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

// NewClient constructs a caption client from configuration. A nil proxy
// source means direct connections.
func NewClient(cfg config.Captions, proxies proxy.Source, opts ...Option) *Client {
	timeout := defaultHTTPTimeout
	if cfg.RequestTimeout > 0 {
		timeout = time.Duration(cfg.RequestTimeout) * time.Second
	}
	limit := rate.Inf
	if cfg.RequestsPerMinute > 0 {
		limit = rate.Limit(float64(cfg.RequestsPerMinute) / 60.0)
	}
	client := &Client{
		baseURL:    strings.TrimSpace(cfg.BaseURL),
		httpClient: &http.Client{Timeout: timeout},
		proxies:    proxies,
		limiter:    rate.NewLimiter(limit, defaultBurst),
	}
	for _, opt := range opts {
		opt(client)
	}
	return client
}

// ListTracks returns the caption tracks advertised for a video. An empty
// advertisement is reported as ErrNoCaptions.
func (c *Client) ListTracks(ctx context.Context, sourceID string) ([]Track, error) {
	query := url.Values{}
	query.Set("type", "list")
	query.Set("v", sourceID)
	body, err := c.get(ctx, query)
	if err != nil {
		return nil, err
	}

	var list struct {
		Tracks []struct {
			LangCode string `xml:"lang_code,attr"`
			Name     string `xml:"name,attr"`
			Kind     string `xml:"kind,attr"`
		} `xml:"track"`
	}
	if err := xml.Unmarshal(body, &list); err != nil {
		return nil, fmt.Errorf("captions list: decode response: %w", err)
	}
	if len(list.Tracks) == 0 {
		return nil, ErrNoCaptions
	}

	tracks := make([]Track, 0, len(list.Tracks))
	for _, t := range list.Tracks {
		tracks = append(tracks, Track{
			Language:  strings.ToLower(strings.TrimSpace(t.LangCode)),
			Name:      t.Name,
			Generated: t.Kind == "asr",
		})
	}
	return tracks, nil
}

// FetchTrack downloads one caption track and returns its ordered snippets.
func (c *Client) FetchTrack(ctx context.Context, sourceID string, track Track) ([]Snippet, error) {
	query := url.Values{}
	query.Set("v", sourceID)
	query.Set("lang", track.Language)
	if track.Name != "" {
		query.Set("name", track.Name)
	}
	if track.Generated {
		query.Set("kind", "asr")
	}
	body, err := c.get(ctx, query)
	if err != nil {
		return nil, err
	}

	var transcript struct {
		Texts []struct {
			Start    float64 `xml:"start,attr"`
			Duration float64 `xml:"dur,attr"`
			Value    string  `xml:",chardata"`
		} `xml:"text"`
	}
	if err := xml.Unmarshal(body, &transcript); err != nil {
		return nil, fmt.Errorf("captions fetch: decode response: %w", err)
	}
	if len(transcript.Texts) == 0 {
		return nil, ErrNoCaptions
	}

	snippets := make([]Snippet, 0, len(transcript.Texts))
	for _, t := range transcript.Texts {
		text := strings.TrimSpace(html.UnescapeString(t.Value))
		if text == "" {
			continue
		}
		snippets = append(snippets, Snippet{
			Start:    t.Start,
			Duration: t.Duration,
			Text:     text,
		})
	}
	if len(snippets) == 0 {
		return nil, ErrNoCaptions
	}
	return snippets, nil
}

func (c *Client) get(ctx context.Context, query url.Values) ([]byte, error) {
	if c.baseURL == "" {
		return nil, errors.New("captions: base url required")
	}
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, err
	}

	endpoint := c.baseURL + "?" + query.Encode()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("captions request: new request: %w", err)
	}

	resp, err := c.clientForAttempt().Do(req)
	if err != nil {
		return nil, fmt.Errorf("captions request: http error: %w", err)
	}
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("captions request: read body: %w", err)
	}
	if resp.StatusCode == http.StatusNotFound {
		return nil, ErrNoCaptions
	}
	if resp.StatusCode >= http.StatusMultipleChoices {
		return nil, fmt.Errorf("captions request: http %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}
	return body, nil
}

// clientForAttempt picks a fresh proxy identity per request so repeated
// probes rotate exit addresses.
func (c *Client) clientForAttempt() *http.Client {
	if c.proxies == nil {
		return c.httpClient
	}
	endpoint, ok := c.proxies.Pick()
	if !ok {
		return c.httpClient
	}
	transport := http.DefaultTransport.(*http.Transport).Clone()
	transport.Proxy = http.ProxyURL(endpoint.URL())
	return &http.Client{
		Timeout:   c.httpClient.Timeout,
		Transport: transport,
	}
}
