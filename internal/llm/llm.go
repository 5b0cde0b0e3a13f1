// Package llm wraps the Gemini SDK behind the single completion call the
// transformation pipeline needs.
package llm

import (
	"context"
	"fmt"

	"google.golang.org/genai"

	"castpress/internal/config"
)

// Client represents a client for interacting with the language model.
type Client struct {
	cfg     config.Gemini
	gClient *genai.Client
}

// NewClient creates a new language model client. The API key must already be
// resolved by the configuration layer; a missing key is a startup error, not
// something to degrade around.
func NewClient(ctx context.Context, cfg config.Gemini) (*Client, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("gemini API key is required: set GEMINI_API_KEY")
	}

	gClient, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  cfg.APIKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create Gemini client: %w", err)
	}

	return &Client{cfg: cfg, gClient: gClient}, nil
}

// Complete sends one prompt and returns the model's text response. A JSON
// response is requested so that downstream parsing usually sees a bare
// object rather than prose or fenced markdown.
func (c *Client) Complete(ctx context.Context, prompt string) (string, error) {
	if c.cfg.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.cfg.Timeout)
		defer cancel()
	}

	contents := []*genai.Content{{
		Parts: []*genai.Part{{Text: prompt}},
		Role:  "user",
	}}

	genCfg := &genai.GenerateContentConfig{
		Temperature:      genai.Ptr(c.cfg.Temperature),
		MaxOutputTokens:  c.cfg.MaxTokens,
		ResponseMIMEType: "application/json",
	}

	resp, err := c.gClient.Models.GenerateContent(ctx, c.cfg.Model, contents, genCfg)
	if err != nil {
		return "", fmt.Errorf("failed to generate content: %w", err)
	}

	text := resp.Text()
	if text == "" {
		return "", fmt.Errorf("empty response from model")
	}
	return text, nil
}

// Model returns the configured model identifier, for logging.
func (c *Client) Model() string {
	return c.cfg.Model
}
