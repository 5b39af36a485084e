// Package video retrieves video metadata and transcripts for the video
// investigation branch. Failures degrade to empty fields; nothing here
// returns an error to the orchestrator.
package video

import (
	"context"
	"encoding/json"
	"encoding/xml"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"veritas/internal/logging"
)

// Metadata is what the video branch gathers about one URL.
type Metadata struct {
	Title       string
	Description string
	Transcript  string
}

// preferredLanguages are tried in order before falling back to the
// auto-generated track.
var preferredLanguages = []string{"en", "en-US"}

// videoHosts are domains we can pull transcripts from.
var videoHosts = []string{"youtube", "youtu.be"}

// socialHosts are domains classified as video/social but without
// transcript support.
var socialHosts = []string{"instagram", "tiktok"}

// Config configures the video client.
type Config struct {
	OEmbedBaseURL    string
	TimedTextBaseURL string
	TranscriptLimit  int
	Timeout          time.Duration
}

// DefaultConfig returns sensible defaults.
func DefaultConfig() Config {
	return Config{
		OEmbedBaseURL:    "https://www.youtube.com/oembed",
		TimedTextBaseURL: "https://www.youtube.com/api/timedtext",
		TranscriptLimit:  2000,
		Timeout:          10 * time.Second,
	}
}

// Client fetches video metadata and transcripts. Safe for concurrent use.
type Client struct {
	oembedBaseURL    string
	timedTextBaseURL string
	transcriptLimit  int
	httpClient       *http.Client
}

// NewClient creates a video client.
func NewClient(config Config) *Client {
	if config.OEmbedBaseURL == "" {
		config.OEmbedBaseURL = DefaultConfig().OEmbedBaseURL
	}
	if config.TimedTextBaseURL == "" {
		config.TimedTextBaseURL = DefaultConfig().TimedTextBaseURL
	}
	if config.TranscriptLimit <= 0 {
		config.TranscriptLimit = 2000
	}
	if config.Timeout <= 0 {
		config.Timeout = 10 * time.Second
	}
	return &Client{
		oembedBaseURL:    config.OEmbedBaseURL,
		timedTextBaseURL: config.TimedTextBaseURL,
		transcriptLimit:  config.TranscriptLimit,
		httpClient:       &http.Client{Timeout: config.Timeout},
	}
}

// IsVideoOrSocial reports whether the URL points at a known video or
// social-media host.
func IsVideoOrSocial(rawURL string) bool {
	lower := strings.ToLower(rawURL)
	for _, host := range videoHosts {
		if strings.Contains(lower, host) {
			return true
		}
	}
	for _, host := range socialHosts {
		if strings.Contains(lower, host) {
			return true
		}
	}
	return false
}

// IsVideoHost reports whether the URL points at a host we can pull
// transcripts from.
func IsVideoHost(rawURL string) bool {
	lower := strings.ToLower(rawURL)
	for _, host := range videoHosts {
		if strings.Contains(lower, host) {
			return true
		}
	}
	return false
}

// VideoID extracts the video identifier out of the URL shapes YouTube
// serves: watch?v=, shorts/, and youtu.be/ links.
func VideoID(rawURL string) (string, bool) {
	cut := func(s, after string) (string, bool) {
		idx := strings.Index(s, after)
		if idx == -1 {
			return "", false
		}
		id := s[idx+len(after):]
		if end := strings.IndexAny(id, "?&/"); end != -1 {
			id = id[:end]
		}
		if id == "" {
			return "", false
		}
		return id, true
	}

	if id, ok := cut(rawURL, "v="); ok {
		return id, true
	}
	if id, ok := cut(rawURL, "shorts/"); ok {
		return id, true
	}
	if id, ok := cut(rawURL, "youtu.be/"); ok {
		return id, true
	}
	return "", false
}

// Extract gathers title, description, and (for video hosts) a transcript.
// Every field degrades to empty on provider failure.
func (c *Client) Extract(ctx context.Context, rawURL string) Metadata {
	log := logging.Get(logging.CategoryVideo)
	var meta Metadata

	if IsVideoHost(rawURL) {
		title, author, err := c.fetchOEmbed(ctx, rawURL)
		if err != nil {
			log.Debugw("oembed fetch failed", "url", rawURL, "err", err)
		} else {
			meta.Title = title
			if author != "" {
				meta.Description = "Author: " + author
			}
		}

		if id, ok := VideoID(rawURL); ok {
			transcript, err := c.fetchTranscript(ctx, id)
			if err != nil {
				log.Debugw("transcript fetch failed", "video_id", id, "err", err)
			} else {
				meta.Transcript = truncate(transcript, c.transcriptLimit)
			}
		}
	}

	return meta
}

type oembedResponse struct {
	Title      string `json:"title"`
	AuthorName string `json:"author_name"`
}

func (c *Client) fetchOEmbed(ctx context.Context, videoURL string) (title, author string, err error) {
	u := c.oembedBaseURL + "?url=" + url.QueryEscape(videoURL) + "&format=json"
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return "", "", fmt.Errorf("failed to create request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", "", fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", "", fmt.Errorf("HTTP %d", resp.StatusCode)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, 64*1024))
	if err != nil {
		return "", "", fmt.Errorf("failed to read response: %w", err)
	}

	var parsed oembedResponse
	if err := json.Unmarshal(body, &parsed); err != nil {
		return "", "", fmt.Errorf("failed to parse response: %w", err)
	}
	return parsed.Title, parsed.AuthorName, nil
}

// fetchTranscript tries the preferred-language transcripts first, then the
// auto-generated track for the same languages.
func (c *Client) fetchTranscript(ctx context.Context, videoID string) (string, error) {
	var lastErr error
	for _, generated := range []bool{false, true} {
		for _, lang := range preferredLanguages {
			text, err := c.fetchTimedText(ctx, videoID, lang, generated)
			if err != nil {
				lastErr = err
				continue
			}
			if text != "" {
				return text, nil
			}
		}
	}
	if lastErr == nil {
		lastErr = fmt.Errorf("no transcript track for %s", videoID)
	}
	return "", lastErr
}

type timedText struct {
	XMLName xml.Name `xml:"transcript"`
	Lines   []struct {
		Text string `xml:",chardata"`
	} `xml:"text"`
}

func (c *Client) fetchTimedText(ctx context.Context, videoID, lang string, generated bool) (string, error) {
	u := c.timedTextBaseURL + "?v=" + url.QueryEscape(videoID) + "&lang=" + url.QueryEscape(lang)
	if generated {
		u += "&kind=asr"
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return "", fmt.Errorf("failed to create request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("HTTP %d", resp.StatusCode)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return "", fmt.Errorf("failed to read response: %w", err)
	}
	if len(body) == 0 {
		return "", nil
	}

	var parsed timedText
	if err := xml.Unmarshal(body, &parsed); err != nil {
		return "", fmt.Errorf("failed to parse transcript: %w", err)
	}

	parts := make([]string, 0, len(parsed.Lines))
	for _, line := range parsed.Lines {
		if t := strings.TrimSpace(line.Text); t != "" {
			parts = append(parts, t)
		}
	}
	return strings.Join(parts, " "), nil
}

func truncate(s string, limit int) string {
	if len(s) <= limit {
		return s
	}
	return s[:limit]
}
