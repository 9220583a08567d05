package llm

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	openai "github.com/sashabaranov/go-openai"
	log "github.com/sirupsen/logrus"

	"github.com/sentivibe/sentivibe-api/pkg/apperr"
)

type OpenAIConfig struct {
	APIKey  string
	BaseURL string // empty for api.openai.com
	Model   string
	Timeout time.Duration
}

// OpenAIClient talks to any OpenAI-compatible chat completion endpoint.
type OpenAIClient struct {
	client *openai.Client
	model  string
}

func NewOpenAIClient(cfg OpenAIConfig) (*OpenAIClient, error) {
	if cfg.APIKey == "" {
		return nil, errors.New("LLM API key not configured")
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 90 * time.Second
	}

	config := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		config.BaseURL = cfg.BaseURL
	}
	config.HTTPClient = &http.Client{Timeout: cfg.Timeout}

	log.Infof("OpenAI-compatible client initialized (model=%s, timeout=%s)", cfg.Model, cfg.Timeout)
	return &OpenAIClient{client: openai.NewClientWithConfig(config), model: cfg.Model}, nil
}

func (c *OpenAIClient) buildRequest(req Request) openai.ChatCompletionRequest {
	model := req.Model
	if model == "" {
		model = c.model
	}

	messages := make([]openai.ChatCompletionMessage, 0, len(req.Messages)+1)
	if req.System != "" {
		messages = append(messages, openai.ChatCompletionMessage{Role: openai.ChatMessageRoleSystem, Content: req.System})
	}
	for _, m := range req.Messages {
		role := openai.ChatMessageRoleUser
		if m.Role == RoleAssistant {
			role = openai.ChatMessageRoleAssistant
		}
		messages = append(messages, openai.ChatCompletionMessage{Role: role, Content: m.Content})
	}

	out := openai.ChatCompletionRequest{
		Model:       model,
		Messages:    messages,
		MaxTokens:   req.MaxTokens,
		Temperature: req.Temperature,
	}
	if req.JSON {
		out.ResponseFormat = &openai.ChatCompletionResponseFormat{
			Type: openai.ChatCompletionResponseFormatTypeJSONObject,
		}
	}
	return out
}

func (c *OpenAIClient) Complete(ctx context.Context, req Request) (string, error) {
	resp, err := c.client.CreateChatCompletion(ctx, c.buildRequest(req))
	if err != nil {
		log.Errorf("LLM: %s completion failed: %v", req.Purpose, err)
		return "", upstreamError(err)
	}
	if len(resp.Choices) == 0 || resp.Choices[0].Message.Content == "" {
		return "", apperr.Upstream("LLM", nil, ErrEmptyResponse)
	}

	log.Debugf("LLM: %s completion finished (reason=%s, tokens=%d)", req.Purpose, resp.Choices[0].FinishReason, resp.Usage.TotalTokens)
	return resp.Choices[0].Message.Content, nil
}

func (c *OpenAIClient) Stream(ctx context.Context, req Request, onDelta func(string) error) error {
	stream, err := c.client.CreateChatCompletionStream(ctx, c.buildRequest(req))
	if err != nil {
		log.Errorf("LLM: %s stream failed to start: %v", req.Purpose, err)
		return upstreamError(err)
	}
	defer stream.Close()

	for {
		chunk, err := stream.Recv()
		if errors.Is(err, io.EOF) {
			return nil
		}
		if err != nil {
			return upstreamError(err)
		}
		if len(chunk.Choices) == 0 || chunk.Choices[0].Delta.Content == "" {
			continue
		}
		if err := onDelta(chunk.Choices[0].Delta.Content); err != nil {
			return err
		}
	}
}

// upstreamError attaches the provider's error body for diagnostics.
func upstreamError(err error) error {
	var apiErr *openai.APIError
	if errors.As(err, &apiErr) {
		return apperr.Upstream("LLM", map[string]interface{}{
			"status":  apiErr.HTTPStatusCode,
			"type":    apiErr.Type,
			"message": apiErr.Message,
		}, err)
	}
	var reqErr *openai.RequestError
	if errors.As(err, &reqErr) {
		return apperr.Upstream("LLM", map[string]interface{}{
			"status": reqErr.HTTPStatusCode,
			"body":   string(reqErr.Body),
		}, err)
	}
	return apperr.Upstream("LLM", fmt.Sprint(err), err)
}
