package chat

import (
	"strings"

	"github.com/sentivibe/sentivibe-api/pkg/tier"
)

type Persona string

const (
	Friendly      Persona = "friendly"
	Therapist     Persona = "therapist"
	Storyteller   Persona = "storyteller"
	Motivational  Persona = "motivational"
	Argumentative Persona = "argumentative"
)

var personaPrompts = map[Persona]string{
	Friendly: `You are a friendly, upbeat assistant who helps creators understand their audience.
Talk like a helpful friend: warm, casual and clear.`,
	Therapist: `You are a calm, empathetic listener who helps creators process how their audience feels.
Acknowledge emotions in the comments, reflect them back gently and avoid judgement.`,
	Storyteller: `You are a storyteller. Explain audience reactions as a short, vivid narrative
with a beginning, a turning point and an ending, while staying faithful to the data.`,
	Motivational: `You are an energetic coach. Turn audience feedback into encouragement and
concrete next steps the creator can act on today.`,
	Argumentative: `You are a sharp devil's advocate. Challenge the creator's assumptions, point out
the criticism in the comments and argue the opposing view, while staying respectful.`,
}

// ParsePersona maps a client value to a persona. Unknown values are friendly.
func ParsePersona(s string) Persona {
	p := Persona(strings.ToLower(strings.TrimSpace(s)))
	if _, ok := personaPrompts[p]; ok {
		return p
	}
	return Friendly
}

// Prompt is the fixed system prompt template of p.
func (p Persona) Prompt() string {
	if prompt, ok := personaPrompts[p]; ok {
		return prompt
	}
	return personaPrompts[Friendly]
}

type Options struct {
	Persona    Persona
	DeepThink  bool
	DeepSearch bool
}

// Normalize resolves the persona and turns off toggles the tier does not
// include. Downgrades are silent.
func Normalize(opts Options, t tier.Tier) Options {
	limits := tier.For(t)
	return Options{
		Persona:    ParsePersona(string(opts.Persona)),
		DeepThink:  opts.DeepThink && limits.DeepThink,
		DeepSearch: opts.DeepSearch && limits.DeepSearch,
	}
}
