// Package inference wraps the Gemini API behind the narrow completion
// interface the agent steps need. The client is stateless apart from
// request pacing and is safe for concurrent use across sessions.
package inference

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"google.golang.org/genai"

	"veritas/internal/logging"
)

// Client is the completion interface consumed by the agent steps.
type Client interface {
	// Complete sends a text prompt and returns the model's reply.
	Complete(ctx context.Context, prompt string) (string, error)
	// CompleteWithImage sends a prompt alongside image bytes.
	CompleteWithImage(ctx context.Context, prompt string, image []byte, mimeType string) (string, error)
}

// GeminiConfig holds configuration for the Gemini client.
type GeminiConfig struct {
	APIKey  string
	Model   string
	Timeout time.Duration
}

// DefaultGeminiConfig returns sensible defaults.
func DefaultGeminiConfig(apiKey string) GeminiConfig {
	return GeminiConfig{
		APIKey:  apiKey,
		Model:   "gemini-1.5-flash",
		Timeout: 60 * time.Second,
	}
}

// GeminiClient implements Client on the Google GenAI SDK.
type GeminiClient struct {
	client  *genai.Client
	model   string
	timeout time.Duration

	mu          sync.Mutex
	lastRequest time.Time
}

// NewGeminiClient creates a Gemini-backed inference client.
func NewGeminiClient(ctx context.Context, config GeminiConfig) (*GeminiClient, error) {
	if config.APIKey == "" {
		return nil, fmt.Errorf("gemini: API key not configured")
	}

	model := strings.TrimSpace(config.Model)
	if model == "" {
		model = "gemini-1.5-flash"
	}
	timeout := config.Timeout
	if timeout <= 0 {
		timeout = 60 * time.Second
	}

	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  config.APIKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("gemini: failed to create client: %w", err)
	}

	return &GeminiClient{
		client:  client,
		model:   model,
		timeout: timeout,
	}, nil
}

// Model returns the configured model name.
func (c *GeminiClient) Model() string {
	return c.model
}

// Complete sends a text prompt and returns the completion.
func (c *GeminiClient) Complete(ctx context.Context, prompt string) (string, error) {
	contents := []*genai.Content{
		genai.NewContentFromText(prompt, genai.RoleUser),
	}
	return c.generate(ctx, contents)
}

// CompleteWithImage sends a prompt with inline image bytes.
func (c *GeminiClient) CompleteWithImage(ctx context.Context, prompt string, image []byte, mimeType string) (string, error) {
	if len(image) == 0 {
		return c.Complete(ctx, prompt)
	}
	if mimeType == "" {
		mimeType = "image/jpeg"
	}

	parts := []*genai.Part{
		genai.NewPartFromText(prompt),
		genai.NewPartFromBytes(image, mimeType),
	}
	contents := []*genai.Content{
		genai.NewContentFromParts(parts, genai.RoleUser),
	}
	return c.generate(ctx, contents)
}

func (c *GeminiClient) generate(ctx context.Context, contents []*genai.Content) (string, error) {
	// Pace requests so concurrent sessions do not burst the API.
	c.mu.Lock()
	elapsed := time.Since(c.lastRequest)
	if elapsed < 200*time.Millisecond {
		time.Sleep(200*time.Millisecond - elapsed)
	}
	c.lastRequest = time.Now()
	c.mu.Unlock()

	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	start := time.Now()
	resp, err := c.client.Models.GenerateContent(ctx, c.model, contents, &genai.GenerateContentConfig{
		Temperature: genai.Ptr[float32](0.1),
	})
	if err != nil {
		return "", fmt.Errorf("gemini: generate failed: %w", err)
	}

	text := strings.TrimSpace(resp.Text())
	if text == "" {
		return "", fmt.Errorf("gemini: no completion returned")
	}

	logging.Get(logging.CategoryInference).Debugw("completion",
		"model", c.model, "elapsed", time.Since(start), "chars", len(text))
	return text, nil
}
