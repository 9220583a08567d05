package sentiment

import (
	"math"
	"strings"
	"testing"
)

func TestPlainText(t *testing.T) {
	in := "**Loved** this [video](https://example.com/x)! See https://spam.example too"
	got := PlainText(in)
	if strings.Contains(got, "http") || strings.Contains(got, "<") || strings.Contains(got, "*") {
		t.Errorf("PlainText() = %q still has markup or links", got)
	}
	if !strings.Contains(got, "Loved this video") {
		t.Errorf("PlainText() = %q, want words kept", got)
	}
}

func TestScoreLabels(t *testing.T) {
	tests := []struct {
		text string
		want string
	}{
		{"I absolutely love this, it is wonderful and amazing!", Positive},
		{"This is terrible, I hate it. Worst video ever.", Negative},
		{"The video is twelve minutes long.", Neutral},
	}
	for _, tt := range tests {
		score, label := Score(tt.text)
		if label != tt.want {
			t.Errorf("Score(%q) = %.2f %s, want %s", tt.text, score, label, tt.want)
		}
	}
}

func TestLabelThresholds(t *testing.T) {
	cases := map[float64]string{0.2: Positive, 0.19: Neutral, -0.19: Neutral, -0.2: Negative, 0: Neutral}
	for score, want := range cases {
		if got := Label(score); got != want {
			t.Errorf("Label(%v) = %s, want %s", score, got, want)
		}
	}
}

func TestDistribution(t *testing.T) {
	var d Distribution
	for _, s := range []float64{0.8, -0.6, 0.1, 0.5} {
		d.Add(s)
	}
	if d.Positive != 2 || d.Negative != 1 || d.Neutral != 1 || d.Total() != 4 {
		t.Errorf("Distribution = %+v", d)
	}
	if math.Abs(d.Average-0.2) > 1e-9 {
		t.Errorf("Average = %v, want 0.2", d.Average)
	}
	if !strings.Contains(d.Hint(), "50% positive") {
		t.Errorf("Hint() = %q", d.Hint())
	}
	if (Distribution{}).Hint() != "No comments were scored." {
		t.Error("empty Hint() mismatch")
	}
}

func TestScoreAll(t *testing.T) {
	scored, d := ScoreAll([]string{"great", "awful", "ok"})
	if len(scored) != 3 || d.Total() != 3 {
		t.Fatalf("ScoreAll() = %d scored, total %d", len(scored), d.Total())
	}
	if scored[0].Score <= 0 || scored[1].Score >= 0 {
		t.Errorf("scores = %+v", scored)
	}
}
