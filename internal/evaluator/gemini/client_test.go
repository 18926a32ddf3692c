package gemini

import (
	"context"
	"strings"
	"testing"

	"google.golang.org/genai"
)

func TestNewClientRequiresAPIKey(t *testing.T) {
	if _, err := NewClient(context.Background(), "   ", ""); err == nil {
		t.Fatal("expected error for blank api key")
	}
}

func TestBuildPromptSubstitutesAllPlaceholders(t *testing.T) {
	prompt := buildPrompt("VACANCY-TEXT", "RESUME-TEXT", "No history yet.")

	for _, want := range []string{"VACANCY-TEXT", "RESUME-TEXT", "No history yet."} {
		if !strings.Contains(prompt, want) {
			t.Errorf("prompt missing %q", want)
		}
	}
	for _, leftover := range []string{"{{VACANCY}}", "{{RESUME}}", "{{HISTORY}}"} {
		if strings.Contains(prompt, leftover) {
			t.Errorf("prompt still contains placeholder %q", leftover)
		}
	}
}

func TestCollectTextJoinsCandidateParts(t *testing.T) {
	resp := &genai.GenerateContentResponse{
		Candidates: []*genai.Candidate{
			{
				Content: &genai.Content{
					Parts: []*genai.Part{
						{Text: "  What languages do you speak?  "},
						{Text: ""},
						{Text: "And which is strongest?"},
					},
				},
			},
			nil,
		},
	}

	got := collectText(resp)
	want := "What languages do you speak?\nAnd which is strongest?"
	if got != want {
		t.Errorf("collectText = %q, want %q", got, want)
	}
}

func TestCollectTextEmptyResponse(t *testing.T) {
	if got := collectText(nil); got != "" {
		t.Errorf("expected empty string for nil response, got %q", got)
	}
	if got := collectText(&genai.GenerateContentResponse{}); got != "" {
		t.Errorf("expected empty string for empty response, got %q", got)
	}
}

func TestClientModelDefault(t *testing.T) {
	c := &Client{modelName: defaultModel}
	if c.Model() != defaultModel {
		t.Errorf("Model() = %q, want %q", c.Model(), defaultModel)
	}
}
