// Package generation sends grounded prompts to an OpenAI-compatible chat
// endpoint. Ollama serves one at /v1, which is the default.
package generation

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	goopenai "github.com/sashabaranov/go-openai"
)

const (
	DefaultBaseURL = "http://localhost:11434/v1"
	DefaultModel   = "llama3"
)

// Config configures the chat client.
type Config struct {
	BaseURL string
	APIKey  string
	Timeout time.Duration
}

// Client implements domain.Generator.
type Client struct {
	client *goopenai.Client
}

// NewClient creates a chat client. An empty API key is accepted for local servers.
func NewClient(cfg Config) *Client {
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultBaseURL
	}
	t := cfg.Timeout
	if t == 0 {
		t = 120 * time.Second
	}
	oc := goopenai.DefaultConfig(cfg.APIKey)
	oc.BaseURL = cfg.BaseURL
	oc.HTTPClient = &http.Client{Timeout: t}
	return &Client{client: goopenai.NewClientWithConfig(oc)}
}

// Generate sends one system and one user message and returns the first choice.
func (c *Client) Generate(ctx context.Context, model, system, prompt string) (string, error) {
	if strings.TrimSpace(model) == "" {
		model = DefaultModel
	}
	resp, err := c.client.CreateChatCompletion(ctx, goopenai.ChatCompletionRequest{
		Model: model,
		Messages: []goopenai.ChatCompletionMessage{
			{Role: goopenai.ChatMessageRoleSystem, Content: system},
			{Role: goopenai.ChatMessageRoleUser, Content: prompt},
		},
	})
	if err != nil {
		return "", fmt.Errorf("chat completion with %s: %w", model, err)
	}
	if len(resp.Choices) == 0 {
		return "", errors.New("no completion choices returned")
	}
	return resp.Choices[0].Message.Content, nil
}

// SystemPrompt returns the system instruction for producing documentType.
func SystemPrompt(documentType string) string {
	return fmt.Sprintf("You are an expert content creator specializing in generating %[1]s tailored to the user's needs. "+
		"Your task is to produce a compelling, well-structured, and high-quality %[1]s based on the provided details. "+
		"Ensure the content is engaging, informative, and aligned with the desired objective.", documentType)
}
