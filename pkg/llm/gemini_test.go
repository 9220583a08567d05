package llm

import (
	"context"
	"testing"

	"github.com/google/generative-ai-go/genai"
)

func TestGeminiModelName(t *testing.T) {
	c := &GeminiClient{model: "gemini-1.5-flash"}
	tests := []struct {
		name  string
		model string
		want  string
	}{
		{"default", "", "gemini-1.5-flash"},
		{"gemini model", "gemini-1.5-pro", "gemini-1.5-pro"},
		{"resource name", "models/gemini-1.5-pro", "gemini-1.5-pro"},
		{"openai model", "gpt-4o-mini", "gemini-1.5-flash"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := c.modelName(Request{Purpose: "chat_deep", Model: tt.model}); got != tt.want {
				t.Errorf("modelName(%q) = %q, want %q", tt.model, got, tt.want)
			}
		})
	}
}

func TestNewGeminiClientRequiresKey(t *testing.T) {
	if _, err := NewGeminiClient(context.Background(), "", ""); err == nil {
		t.Fatal("NewGeminiClient() without a key should fail")
	}
}

func TestGeminiResponseText(t *testing.T) {
	resp := &genai.GenerateContentResponse{Candidates: []*genai.Candidate{{
		Content: &genai.Content{Parts: []genai.Part{genai.Text("Viewers "), genai.Text("loved it.")}},
	}}}
	if got := responseText(resp); got != "Viewers loved it." {
		t.Errorf("responseText() = %q", got)
	}
	if got := responseText(&genai.GenerateContentResponse{}); got != "" {
		t.Errorf("responseText() without candidates = %q, want empty", got)
	}
	if got := responseText(nil); got != "" {
		t.Errorf("responseText(nil) = %q, want empty", got)
	}
}
