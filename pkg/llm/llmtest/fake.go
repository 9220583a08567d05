// Package llmtest provides a scripted llm.Client for tests.
package llmtest

import (
	"context"
	"strings"
	"sync"

	"github.com/sentivibe/sentivibe-api/pkg/llm"
)

// Fake answers every request with Respond and records the calls.
type Fake struct {
	Respond func(req llm.Request) (string, error)

	mu    sync.Mutex
	calls []llm.Request
}

func (f *Fake) Complete(ctx context.Context, req llm.Request) (string, error) {
	f.mu.Lock()
	f.calls = append(f.calls, req)
	f.mu.Unlock()
	if f.Respond == nil {
		return "", nil
	}
	return f.Respond(req)
}

// Stream delivers the Complete response in word-sized chunks.
func (f *Fake) Stream(ctx context.Context, req llm.Request, onDelta func(string) error) error {
	out, err := f.Complete(ctx, req)
	if err != nil {
		return err
	}
	for _, word := range strings.SplitAfter(out, " ") {
		if word == "" {
			continue
		}
		if err := onDelta(word); err != nil {
			return err
		}
	}
	return nil
}

func (f *Fake) Calls() []llm.Request {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]llm.Request(nil), f.calls...)
}

// CallsFor returns the recorded calls with the given purpose.
func (f *Fake) CallsFor(purpose string) []llm.Request {
	var out []llm.Request
	for _, c := range f.Calls() {
		if c.Purpose == purpose {
			out = append(out, c)
		}
	}
	return out
}
