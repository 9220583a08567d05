package sentiment

import "fmt"

type Distribution struct {
	Positive int     `json:"positive"`
	Neutral  int     `json:"neutral"`
	Negative int     `json:"negative"`
	Average  float64 `json:"average"`
}

func (d Distribution) Total() int {
	return d.Positive + d.Neutral + d.Negative
}

// Add counts one scored comment.
func (d *Distribution) Add(score float64) {
	n := float64(d.Total())
	d.Average = (d.Average*n + score) / (n + 1)
	switch Label(score) {
	case Positive:
		d.Positive++
	case Negative:
		d.Negative++
	default:
		d.Neutral++
	}
}

// Scored is a comment text with its compound score.
type Scored struct {
	Text  string
	Score float64
}

// ScoreAll scores every text and returns the per-text scores with their
// distribution.
func ScoreAll(texts []string) ([]Scored, Distribution) {
	var d Distribution
	out := make([]Scored, 0, len(texts))
	for _, t := range texts {
		score, _ := Score(t)
		d.Add(score)
		out = append(out, Scored{Text: t, Score: score})
	}
	return out, d
}

// Hint describes the distribution in one line for a prompt.
func (d Distribution) Hint() string {
	total := d.Total()
	if total == 0 {
		return "No comments were scored."
	}
	pct := func(n int) float64 { return float64(n) * 100 / float64(total) }
	return fmt.Sprintf("Lexicon pre-scoring of %d comments: %.0f%% positive, %.0f%% neutral, %.0f%% negative (mean compound %.2f).",
		total, pct(d.Positive), pct(d.Neutral), pct(d.Negative), d.Average)
}
