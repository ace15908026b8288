// Package pexels wraps the Pexels stock video search API and clip fetching.
package pexels

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"
)

const (
	defaultBaseURL         = "https://api.pexels.com"
	defaultSearchTimeout   = 20 * time.Second
	defaultDownloadTimeout = 2 * time.Minute
	maxPerPage             = 15
)

// Clip is one searchable footage candidate.
type Clip struct {
	ID int64
	// URL is the direct media link of the first available rendition.
	URL string
	// DurationSeconds is the advertised source duration. It is a hint only;
	// the pipeline measures real durations after normalization.
	DurationSeconds float64
}

// Client wraps the Pexels video search endpoint and clip downloads.
type Client struct {
	apiKey         string
	baseURL        string
	searchClient   *http.Client
	downloadClient *http.Client
}

// Option customizes the client.
type Option func(*Client)

// WithBaseURL overrides the default API base (useful for tests/mocks).
func WithBaseURL(base string) Option {
	return func(c *Client) {
		base = strings.TrimSpace(base)
		if base != "" {
			c.baseURL = strings.TrimRight(base, "/")
		}
	}
}

// WithSearchTimeout bounds search requests.
func WithSearchTimeout(timeout time.Duration) Option {
	return func(c *Client) {
		if timeout > 0 {
			c.searchClient = &http.Client{Timeout: timeout}
		}
	}
}

// WithDownloadTimeout bounds individual clip downloads.
func WithDownloadTimeout(timeout time.Duration) Option {
	return func(c *Client) {
		if timeout > 0 {
			c.downloadClient = &http.Client{Timeout: timeout}
		}
	}
}

// NewClient constructs a Pexels API client.
func NewClient(apiKey string, opts ...Option) *Client {
	client := &Client{
		apiKey:         strings.TrimSpace(apiKey),
		baseURL:        defaultBaseURL,
		searchClient:   &http.Client{Timeout: defaultSearchTimeout},
		downloadClient: &http.Client{Timeout: defaultDownloadTimeout},
	}
	for _, opt := range opts {
		opt(client)
	}
	return client
}

type searchResponse struct {
	Videos []struct {
		ID         int64   `json:"id"`
		Duration   float64 `json:"duration"`
		VideoFiles []struct {
			Link string `json:"link"`
		} `json:"video_files"`
	} `json:"videos"`
}

// Search returns up to count clip candidates for the query, in provider order.
// An empty result set is an error; the caller decides whether that fails the
// surrounding stage.
func (c *Client) Search(ctx context.Context, query string, count int) ([]Clip, error) {
	if strings.TrimSpace(query) == "" {
		return nil, errors.New("pexels search: query required")
	}
	if c.apiKey == "" {
		return nil, errors.New("pexels search: api key required")
	}
	if count <= 0 {
		count = 1
	}

	perPage := count
	if perPage > maxPerPage {
		perPage = maxPerPage
	}
	endpoint := fmt.Sprintf("%s/videos/search?query=%s&per_page=%s",
		c.baseURL, url.QueryEscape(query), strconv.Itoa(perPage))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("pexels search: build request: %w", err)
	}
	req.Header.Set("Authorization", c.apiKey)

	resp, err := c.searchClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("pexels search: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 2048))
		return nil, fmt.Errorf("pexels search: provider returned %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}

	var payload searchResponse
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return nil, fmt.Errorf("pexels search: decode response: %w", err)
	}

	clips := make([]Clip, 0, count)
	for _, video := range payload.Videos {
		if len(clips) == count {
			break
		}
		if len(video.VideoFiles) == 0 {
			continue
		}
		link := strings.TrimSpace(video.VideoFiles[0].Link)
		if link == "" {
			continue
		}
		clips = append(clips, Clip{ID: video.ID, URL: link, DurationSeconds: video.Duration})
	}
	if len(clips) == 0 {
		return nil, fmt.Errorf("pexels search: no usable videos for query %q", query)
	}
	return clips, nil
}

// FetchClip streams the clip at mediaURL to dest. The download is bounded by
// the client's download timeout; partial files are removed on failure.
func (c *Client) FetchClip(ctx context.Context, mediaURL, dest string) error {
	if strings.TrimSpace(mediaURL) == "" {
		return errors.New("pexels fetch: media url required")
	}
	if err := os.MkdirAll(filepath.Dir(dest), 0o755); err != nil {
		return fmt.Errorf("pexels fetch: ensure dest dir: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, mediaURL, nil)
	if err != nil {
		return fmt.Errorf("pexels fetch: build request: %w", err)
	}

	resp, err := c.downloadClient.Do(req)
	if err != nil {
		return fmt.Errorf("pexels fetch: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("pexels fetch: unexpected status %d", resp.StatusCode)
	}

	file, err := os.Create(dest)
	if err != nil {
		return fmt.Errorf("pexels fetch: create file: %w", err)
	}
	if _, err := io.Copy(file, resp.Body); err != nil {
		_ = file.Close()
		_ = os.Remove(dest)
		return fmt.Errorf("pexels fetch: stream clip: %w", err)
	}
	if err := file.Close(); err != nil {
		_ = os.Remove(dest)
		return fmt.Errorf("pexels fetch: close file: %w", err)
	}
	return nil
}
