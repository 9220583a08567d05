package llm

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/generative-ai-go/genai"
	log "github.com/sirupsen/logrus"
	"google.golang.org/api/iterator"
	"google.golang.org/api/option"

	"github.com/sentivibe/sentivibe-api/pkg/apperr"
)

// GeminiClient serves completions from Google's Gemini models.
type GeminiClient struct {
	client *genai.Client
	model  string
}

// NewGeminiClient creates a Gemini client. model defaults to gemini-1.5-flash.
func NewGeminiClient(ctx context.Context, apiKey, model string, opts ...option.ClientOption) (*GeminiClient, error) {
	if apiKey == "" {
		return nil, errors.New("Gemini API key not configured")
	}
	if model == "" {
		model = "gemini-1.5-flash"
	}

	opts = append([]option.ClientOption{option.WithAPIKey(apiKey)}, opts...)
	client, err := genai.NewClient(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create Gemini client: %w", err)
	}

	log.Infof("Gemini client initialized (model=%s)", model)
	return &GeminiClient{client: client, model: model}, nil
}

// session prepares a chat session whose history is every message but the
// last; the last message is what gets sent.
func (c *GeminiClient) session(req Request) (*genai.ChatSession, genai.Part, error) {
	if len(req.Messages) == 0 {
		return nil, nil, errors.New("gemini request has no messages")
	}

	model := c.client.GenerativeModel(c.modelName(req))
	if req.System != "" {
		model.SystemInstruction = &genai.Content{Parts: []genai.Part{genai.Text(req.System)}}
	}
	if req.JSON {
		model.ResponseMIMEType = "application/json"
	}
	if req.MaxTokens > 0 {
		model.SetMaxOutputTokens(int32(req.MaxTokens))
	}
	if req.Temperature > 0 {
		model.SetTemperature(req.Temperature)
	}

	cs := model.StartChat()
	last := len(req.Messages) - 1
	for _, m := range req.Messages[:last] {
		role := "user"
		if m.Role == RoleAssistant {
			role = "model"
		}
		cs.History = append(cs.History, &genai.Content{Role: role, Parts: []genai.Part{genai.Text(m.Content)}})
	}
	return cs, genai.Text(req.Messages[last].Content), nil
}

// modelName picks the model for req. Requests naming a non-Gemini model
// fall back to the client default.
func (c *GeminiClient) modelName(req Request) string {
	name := strings.TrimPrefix(req.Model, "models/")
	switch {
	case name == "":
		return c.model
	case !strings.HasPrefix(name, "gemini-"):
		log.Warnf("Gemini: %s requested non-Gemini model %q, using %s", req.Purpose, req.Model, c.model)
		return c.model
	}
	return name
}

func (c *GeminiClient) Complete(ctx context.Context, req Request) (string, error) {
	cs, prompt, err := c.session(req)
	if err != nil {
		return "", err
	}

	resp, err := cs.SendMessage(ctx, prompt)
	if err != nil {
		log.Errorf("Gemini: %s generation failed: %v", req.Purpose, err)
		return "", apperr.Upstream("LLM", err.Error(), err)
	}

	text := responseText(resp)
	if text == "" {
		log.Warnf("Gemini: %s returned no candidates or content", req.Purpose)
		return "", apperr.Upstream("LLM", nil, ErrEmptyResponse)
	}
	return text, nil
}

func (c *GeminiClient) Stream(ctx context.Context, req Request, onDelta func(string) error) error {
	cs, prompt, err := c.session(req)
	if err != nil {
		return err
	}

	iter := cs.SendMessageStream(ctx, prompt)
	for {
		resp, err := iter.Next()
		if errors.Is(err, iterator.Done) {
			return nil
		}
		if err != nil {
			log.Errorf("Gemini: %s stream failed: %v", req.Purpose, err)
			return apperr.Upstream("LLM", err.Error(), err)
		}
		if text := responseText(resp); text != "" {
			if err := onDelta(text); err != nil {
				return err
			}
		}
	}
}

// Close releases the underlying connection.
func (c *GeminiClient) Close() error {
	log.Info("Closing Gemini client.")
	return c.client.Close()
}

func responseText(resp *genai.GenerateContentResponse) string {
	if resp == nil || len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil {
		return ""
	}
	var b strings.Builder
	for _, part := range resp.Candidates[0].Content.Parts {
		if text, ok := part.(genai.Text); ok {
			b.WriteString(string(text))
		}
	}
	return b.String()
}
