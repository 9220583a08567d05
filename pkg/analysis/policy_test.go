package analysis

import (
	"testing"
	"time"

	"github.com/sentivibe/sentivibe-api/pkg/apperr"
	"github.com/sentivibe/sentivibe-api/pkg/db"
	"github.com/sentivibe/sentivibe-api/pkg/tier"
)

func strPtr(s string) *string { return &s }

func TestNeedsRefresh(t *testing.T) {
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	at := func(age time.Duration) *db.Analysis {
		return &db.Analysis{LastReanalyzedAt: now.Add(-age)}
	}

	tests := []struct {
		name     string
		existing *db.Analysis
		force    bool
		want     bool
	}{
		{"no record", nil, false, true},
		{"fresh", at(24 * time.Hour), false, false},
		{"exactly at threshold", at(StalenessThreshold), false, false},
		{"just past threshold", at(StalenessThreshold + time.Second), false, true},
		{"fresh but forced", at(time.Minute), true, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := NeedsRefresh(tt.existing, tt.force, now); got != tt.want {
				t.Errorf("NeedsRefresh() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestMergeQuestions(t *testing.T) {
	stored := []db.CustomQA{
		{Question: "What do people like?", WordCount: 100, Answer: strPtr("The music.")},
		{Question: "Any complaints?", WordCount: 100, Answer: strPtr("Audio levels.")},
	}
	incoming := []db.CustomQA{
		{Question: "  what do PEOPLE like? ", WordCount: 200, Answer: strPtr("Mostly the soundtrack.")},
		{Question: "Is it funny?", WordCount: 50, Answer: strPtr("Somewhat.")},
		{Question: "Failed question", WordCount: 50},
	}

	got := MergeQuestions(stored, incoming)
	if len(got) != 3 {
		t.Fatalf("MergeQuestions() len = %d, want 3: %+v", len(got), got)
	}
	if *got[0].Answer != "Mostly the soundtrack." || got[0].WordCount != 200 {
		t.Errorf("matching entry not replaced in place: %+v", got[0])
	}
	if got[1].Question != "Any complaints?" {
		t.Errorf("unmentioned stored entry not kept: %+v", got[1])
	}
	if got[2].Question != "Is it funny?" {
		t.Errorf("new entry not appended: %+v", got[2])
	}
	for _, qa := range got {
		if qa.Answer == nil {
			t.Errorf("unanswered entry persisted: %+v", qa)
		}
	}

	if len(stored) != 2 || *stored[0].Answer != "The music." {
		t.Error("MergeQuestions() mutated its input")
	}
}

func TestMergeQuestionsEmpty(t *testing.T) {
	if got := MergeQuestions(nil, nil); got == nil || len(got) != 0 {
		t.Errorf("MergeQuestions(nil, nil) = %#v, want empty non-nil", got)
	}
}

func TestUnanswered(t *testing.T) {
	stored := []db.CustomQA{{Question: "Old?", Answer: strPtr("yes")}}
	got := Unanswered(stored, []db.CustomQA{{Question: "old?"}, {Question: "New?"}})
	if len(got) != 1 || got[0].Question != "New?" {
		t.Errorf("Unanswered() = %+v", got)
	}
}

func TestNormalizeQuestions(t *testing.T) {
	limits := tier.For(tier.Free)

	got, err := NormalizeQuestions([]db.CustomQA{
		{Question: "  First?  ", WordCount: 5000, Answer: strPtr("client supplied")},
		{Question: ""},
		{Question: "first?"},
		{Question: "Second?"},
	}, limits)
	if err != nil {
		t.Fatalf("NormalizeQuestions() error = %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("got %d questions, want 2: %+v", len(got), got)
	}
	if got[0].Question != "First?" || got[0].WordCount != limits.MaxAnswerWords || got[0].Answer != nil {
		t.Errorf("first = %+v", got[0])
	}
	if got[1].WordCount != DefaultAnswerWords {
		t.Errorf("default word count = %d", got[1].WordCount)
	}

	tooMany := make([]db.CustomQA, 0, limits.QuestionsPerRequest+1)
	for i := 0; i <= limits.QuestionsPerRequest; i++ {
		tooMany = append(tooMany, db.CustomQA{Question: string(rune('a'+i)) + "?"})
	}
	if _, err := NormalizeQuestions(tooMany, limits); !apperr.IsKind(err, apperr.KindValidation) {
		t.Errorf("too many questions error = %v, want validation", err)
	}
}
