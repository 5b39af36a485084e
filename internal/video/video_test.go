package video

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestVideoID(t *testing.T) {
	tests := []struct {
		name string
		url  string
		want string
		ok   bool
	}{
		{"watch URL", "https://www.youtube.com/watch?v=dQw4w9WgXcQ", "dQw4w9WgXcQ", true},
		{"watch URL with params", "https://www.youtube.com/watch?v=dQw4w9WgXcQ&t=10s", "dQw4w9WgXcQ", true},
		{"shorts URL", "https://www.youtube.com/shorts/abc123?feature=share", "abc123", true},
		{"short link", "https://youtu.be/xyz789?t=5", "xyz789", true},
		{"no ID", "https://www.youtube.com/", "", false},
		{"not youtube", "https://example.com/video", "", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			id, ok := VideoID(tt.url)
			assert.Equal(t, tt.ok, ok)
			assert.Equal(t, tt.want, id)
		})
	}
}

func TestIsVideoOrSocial(t *testing.T) {
	assert.True(t, IsVideoOrSocial("https://www.YouTube.com/watch?v=a"))
	assert.True(t, IsVideoOrSocial("https://youtu.be/a"))
	assert.True(t, IsVideoOrSocial("https://www.instagram.com/reel/a"))
	assert.True(t, IsVideoOrSocial("https://www.tiktok.com/@user/video/1"))
	assert.False(t, IsVideoOrSocial("https://example.com/cat.jpg"))
}

func TestIsVideoHost(t *testing.T) {
	assert.True(t, IsVideoHost("https://youtube.com/watch?v=a"))
	assert.False(t, IsVideoHost("https://tiktok.com/@user/video/1"))
}

func newTestClient(oembed, timedtext string) *Client {
	cfg := DefaultConfig()
	cfg.OEmbedBaseURL = oembed
	cfg.TimedTextBaseURL = timedtext
	cfg.Timeout = 2 * time.Second
	return NewClient(cfg)
}

func TestExtract_MetadataAndTranscript(t *testing.T) {
	oembed := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Contains(t, r.URL.Query().Get("url"), "watch?v=abc")
		_, _ = w.Write([]byte(`{"title": "Mayor resigns over scandal", "author_name": "City News"}`))
	}))
	defer oembed.Close()

	timedtext := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "abc", r.URL.Query().Get("v"))
		if r.URL.Query().Get("lang") != "en" || r.URL.Query().Get("kind") != "" {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		_, _ = w.Write([]byte(`<transcript><text start="0">the mayor announced</text><text start="2">his resignation today</text></transcript>`))
	}))
	defer timedtext.Close()

	c := newTestClient(oembed.URL, timedtext.URL)
	meta := c.Extract(context.Background(), "https://www.youtube.com/watch?v=abc")

	assert.Equal(t, "Mayor resigns over scandal", meta.Title)
	assert.Equal(t, "Author: City News", meta.Description)
	assert.Equal(t, "the mayor announced his resignation today", meta.Transcript)
}

func TestExtract_GeneratedTranscriptFallback(t *testing.T) {
	oembed := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"title": "Clip", "author_name": "Someone"}`))
	}))
	defer oembed.Close()

	timedtext := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("kind") != "asr" {
			// Manual tracks do not exist for this video.
			_, _ = w.Write([]byte(``))
			return
		}
		_, _ = w.Write([]byte(`<transcript><text>auto generated words</text></transcript>`))
	}))
	defer timedtext.Close()

	c := newTestClient(oembed.URL, timedtext.URL)
	meta := c.Extract(context.Background(), "https://youtu.be/abc")
	assert.Equal(t, "auto generated words", meta.Transcript)
}

func TestExtract_TranscriptTruncated(t *testing.T) {
	long := strings.Repeat("w", 5000)

	oembed := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"title": "Clip", "author_name": "Someone"}`))
	}))
	defer oembed.Close()

	timedtext := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`<transcript><text>` + long + `</text></transcript>`))
	}))
	defer timedtext.Close()

	c := newTestClient(oembed.URL, timedtext.URL)
	meta := c.Extract(context.Background(), "https://youtu.be/abc")
	assert.Len(t, meta.Transcript, 2000)
}

func TestExtract_ProvidersDown(t *testing.T) {
	down := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer down.Close()

	c := newTestClient(down.URL, down.URL)
	meta := c.Extract(context.Background(), "https://youtu.be/abc")
	assert.Equal(t, Metadata{}, meta)
}

func TestExtract_SocialURLNoTranscript(t *testing.T) {
	c := newTestClient("http://127.0.0.1:0", "http://127.0.0.1:0")
	meta := c.Extract(context.Background(), "https://www.tiktok.com/@user/video/1")
	assert.Equal(t, Metadata{}, meta)
}
