package llm

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/sentivibe/sentivibe-api/pkg/apperr"
)

var ErrMalformedJSON = errors.New("LLM response is not valid JSON")

// Result is the outcome of decoding a structured response: either OK with a
// Value, or not OK with the reason in Err.
type Result[T any] struct {
	Value T
	OK    bool
	Err   error
}

// CleanJSON strips markdown code fences and any prose around the outermost
// JSON object or array.
func CleanJSON(raw string) string {
	s := strings.TrimSpace(raw)
	if strings.HasPrefix(s, "```") {
		s = strings.TrimPrefix(s, "```json")
		s = strings.TrimPrefix(s, "```JSON")
		s = strings.TrimPrefix(s, "```")
		s = strings.TrimSuffix(strings.TrimSpace(s), "```")
		s = strings.TrimSpace(s)
	}

	start := strings.IndexAny(s, "{[")
	if start < 0 {
		return s
	}
	closer := byte('}')
	if s[start] == '[' {
		closer = ']'
	}
	end := strings.LastIndexByte(s, closer)
	if end < start {
		return s
	}
	return s[start : end+1]
}

// DecodeJSON decodes a model response into T. Unknown fields are tolerated;
// anything that is not a single JSON value of the right shape is malformed.
func DecodeJSON[T any](raw string) Result[T] {
	var v T
	cleaned := CleanJSON(raw)
	if cleaned == "" {
		return Result[T]{Err: fmt.Errorf("%w: empty response", ErrMalformedJSON)}
	}

	dec := json.NewDecoder(bytes.NewReader([]byte(cleaned)))
	if err := dec.Decode(&v); err != nil {
		return Result[T]{Err: fmt.Errorf("%w: %v", ErrMalformedJSON, err)}
	}
	if dec.More() {
		return Result[T]{Err: fmt.Errorf("%w: trailing data after JSON value", ErrMalformedJSON)}
	}
	return Result[T]{Value: v, OK: true}
}

// Unwrap returns the value, or a parse error suitable for handlers.
func (r Result[T]) Unwrap(what string) (T, error) {
	if !r.OK {
		return r.Value, apperr.Parse(fmt.Sprintf("failed to parse %s from AI response", what), r.Err)
	}
	return r.Value, nil
}
