package llm

import (
	"errors"
	"testing"

	"github.com/sentivibe/sentivibe-api/pkg/apperr"
)

type sample struct {
	Summary string   `json:"summary"`
	Themes  []string `json:"themes"`
}

func TestCleanJSON(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"plain", `{"a":1}`, `{"a":1}`},
		{"json fence", "```json\n{\"a\":1}\n```", `{"a":1}`},
		{"bare fence", "```\n{\"a\":1}\n```", `{"a":1}`},
		{"prose around", "Here you go:\n{\"a\":1}\nHope this helps!", `{"a":1}`},
		{"array", "```json\n[1,2]\n```", `[1,2]`},
		{"no json", "sorry, I can't", "sorry, I can't"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := CleanJSON(tt.in); got != tt.want {
				t.Errorf("CleanJSON() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestDecodeJSON(t *testing.T) {
	res := DecodeJSON[sample]("```json\n{\"summary\":\"good\",\"themes\":[\"music\"],\"extra\":true}\n```")
	if !res.OK || res.Err != nil {
		t.Fatalf("DecodeJSON() = %+v", res)
	}
	if res.Value.Summary != "good" || len(res.Value.Themes) != 1 {
		t.Errorf("Value = %+v", res.Value)
	}
}

func TestDecodeJSONMalformed(t *testing.T) {
	for _, raw := range []string{"", "not json", `{"summary": 12}`, `{"summary":"a"`} {
		res := DecodeJSON[sample](raw)
		if res.OK {
			t.Errorf("DecodeJSON(%q) OK, want malformed", raw)
			continue
		}
		if !errors.Is(res.Err, ErrMalformedJSON) {
			t.Errorf("DecodeJSON(%q) error = %v, want ErrMalformedJSON", raw, res.Err)
		}
		if _, err := res.Unwrap("analysis"); !apperr.IsKind(err, apperr.KindParse) {
			t.Errorf("Unwrap() error = %v, want parse kind", err)
		}
	}
}
