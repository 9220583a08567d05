// Package llm wraps the chat completion backends used for analysis, comparison
// and chat.
package llm

import (
	"context"
	"errors"

	"github.com/sentivibe/sentivibe-api/pkg/metrics"
)

const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// Request is a provider-neutral completion request.
type Request struct {
	// Purpose labels the call in metrics and logs, e.g. "analysis".
	Purpose     string
	Model       string // empty uses the client default
	System      string
	Messages    []Message
	JSON        bool // ask for a JSON object response
	MaxTokens   int
	Temperature float32
}

// Client is a chat completion backend.
type Client interface {
	Complete(ctx context.Context, req Request) (string, error)
	// Stream calls onDelta for each text fragment as it arrives.
	Stream(ctx context.Context, req Request, onDelta func(string) error) error
}

var ErrEmptyResponse = errors.New("LLM returned no content")

// UserPrompt builds a single-turn request.
func UserPrompt(purpose, system, prompt string) Request {
	return Request{
		Purpose:  purpose,
		System:   system,
		Messages: []Message{{Role: RoleUser, Content: prompt}},
	}
}

type instrumented struct {
	next Client
}

// WithMetrics counts calls by purpose and outcome.
func WithMetrics(c Client) Client {
	return &instrumented{next: c}
}

func (i *instrumented) Complete(ctx context.Context, req Request) (string, error) {
	out, err := i.next.Complete(ctx, req)
	metrics.LLMCalls.WithLabelValues(purposeLabel(req), metrics.Outcome(err)).Inc()
	return out, err
}

func (i *instrumented) Stream(ctx context.Context, req Request, onDelta func(string) error) error {
	err := i.next.Stream(ctx, req, onDelta)
	metrics.LLMCalls.WithLabelValues(purposeLabel(req), metrics.Outcome(err)).Inc()
	return err
}

func purposeLabel(req Request) string {
	if req.Purpose == "" {
		return "unknown"
	}
	return req.Purpose
}
