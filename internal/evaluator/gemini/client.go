// Package gemini implements the screening evaluator on the Gemini API.
package gemini

import (
	"context"
	_ "embed"
	"errors"
	"fmt"
	"strings"

	"google.golang.org/genai"
)

const defaultModel = "gemini-flash-latest"

//go:embed prompt.md
var promptTemplate string

// Client wraps the Google GenAI client behind the Evaluator interface.
type Client struct {
	client    *genai.Client
	modelName string
}

// NewClient creates a Gemini-backed evaluator. The API key is required; the
// model name falls back to a default when empty.
func NewClient(ctx context.Context, apiKey, model string) (*Client, error) {
	apiKey = strings.TrimSpace(apiKey)
	if apiKey == "" {
		return nil, errors.New("gemini api key is required")
	}

	cfg := &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	}

	client, err := genai.NewClient(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("create genai client: %w", err)
	}

	if model = strings.TrimSpace(model); model == "" {
		model = defaultModel
	}

	return &Client{client: client, modelName: model}, nil
}

// Generate sends one screening turn to Gemini and returns the raw text of
// the first candidate. No streaming, no server-side session state.
func (c *Client) Generate(ctx context.Context, vacancyText, resumeText, transcriptText string) (string, error) {
	if c == nil || c.client == nil {
		return "", errors.New("gemini evaluator is not initialized")
	}

	prompt := buildPrompt(vacancyText, resumeText, transcriptText)

	resp, err := c.client.Models.GenerateContent(ctx, c.modelName, genai.Text(prompt), nil)
	if err != nil {
		return "", fmt.Errorf("generate content: %w", err)
	}

	output := collectText(resp)
	if output == "" {
		return "", errors.New("gemini api returned empty response")
	}
	return output, nil
}

// Model returns the configured model name.
func (c *Client) Model() string {
	if c == nil {
		return ""
	}
	return c.modelName
}

func buildPrompt(vacancyText, resumeText, transcriptText string) string {
	prompt := strings.ReplaceAll(promptTemplate, "{{VACANCY}}", vacancyText)
	prompt = strings.ReplaceAll(prompt, "{{RESUME}}", resumeText)
	prompt = strings.ReplaceAll(prompt, "{{HISTORY}}", transcriptText)
	return prompt
}

// collectText concatenates the textual parts of every candidate, skipping
// empty fragments.
func collectText(resp *genai.GenerateContentResponse) string {
	if resp == nil {
		return ""
	}

	var builder strings.Builder
	for _, candidate := range resp.Candidates {
		if candidate == nil || candidate.Content == nil {
			continue
		}
		for _, part := range candidate.Content.Parts {
			if part == nil {
				continue
			}
			text := strings.TrimSpace(part.Text)
			if text == "" {
				continue
			}
			if builder.Len() > 0 {
				builder.WriteString("\n")
			}
			builder.WriteString(text)
		}
	}

	return strings.TrimSpace(builder.String())
}
