package analysis

import (
	"strings"
	"time"

	"github.com/sentivibe/sentivibe-api/pkg/apperr"
	"github.com/sentivibe/sentivibe-api/pkg/db"
	"github.com/sentivibe/sentivibe-api/pkg/tier"
)

const (
	// StalenessThreshold is how long a stored analysis is served before a
	// request triggers a fresh one.
	StalenessThreshold = 30 * 24 * time.Hour
	// MinComments is the fewest fetched comments an analysis accepts.
	MinComments = 50

	DefaultAnswerWords = 150
	MaxQuestionLength  = 500
)

// NeedsRefresh reports whether a full analysis must run instead of serving
// existing.
func NeedsRefresh(existing *db.Analysis, force bool, now time.Time) bool {
	if existing == nil || force {
		return true
	}
	return now.Sub(existing.LastReanalyzedAt) > StalenessThreshold
}

// QuestionKey normalizes question text for matching: case and whitespace
// differences do not make a new question.
func QuestionKey(q string) string {
	return strings.ToLower(strings.Join(strings.Fields(q), " "))
}

// MergeQuestions folds freshly answered questions into the stored set.
//
// Entries are matched by QuestionKey. An incoming entry with an answer
// replaces the stored entry with the same key in place; an answered entry
// with a new key is appended in request order. Stored entries the request
// does not mention are kept. Incoming entries without an answer are dropped,
// so a failed AI call never reaches storage.
func MergeQuestions(stored, incoming []db.CustomQA) []db.CustomQA {
	merged := make([]db.CustomQA, 0, len(stored)+len(incoming))
	index := make(map[string]int, len(stored)+len(incoming))
	for _, qa := range stored {
		key := QuestionKey(qa.Question)
		if i, ok := index[key]; ok {
			merged[i] = qa
			continue
		}
		index[key] = len(merged)
		merged = append(merged, qa)
	}

	for _, qa := range incoming {
		if qa.Answer == nil {
			continue
		}
		key := QuestionKey(qa.Question)
		if i, ok := index[key]; ok {
			merged[i] = qa
			continue
		}
		index[key] = len(merged)
		merged = append(merged, qa)
	}
	return merged
}

// Unanswered returns the questions in requested that stored has no answer for.
func Unanswered(stored, requested []db.CustomQA) []db.CustomQA {
	answered := make(map[string]bool, len(stored))
	for _, qa := range stored {
		if qa.Answer != nil {
			answered[QuestionKey(qa.Question)] = true
		}
	}
	var out []db.CustomQA
	for _, qa := range requested {
		if !answered[QuestionKey(qa.Question)] {
			out = append(out, qa)
		}
	}
	return out
}

// NormalizeQuestions trims and de-duplicates the requested questions, clamps
// word counts to the tier's maximum and enforces the per-request count.
// Answers supplied by the client are discarded.
func NormalizeQuestions(in []db.CustomQA, limits tier.Limits) ([]db.CustomQA, error) {
	seen := make(map[string]bool, len(in))
	out := make([]db.CustomQA, 0, len(in))
	for _, qa := range in {
		q := strings.TrimSpace(qa.Question)
		if q == "" {
			continue
		}
		if len(q) > MaxQuestionLength {
			return nil, apperr.Validationf("Questions must be at most %d characters", MaxQuestionLength)
		}
		key := QuestionKey(q)
		if seen[key] {
			continue
		}
		seen[key] = true

		words := qa.WordCount
		if words <= 0 {
			words = DefaultAnswerWords
		}
		if limits.MaxAnswerWords > 0 && words > limits.MaxAnswerWords {
			words = limits.MaxAnswerWords
		}
		out = append(out, db.CustomQA{Question: q, WordCount: words})
	}

	if limits.QuestionsPerRequest >= 0 && len(out) > limits.QuestionsPerRequest {
		return nil, apperr.Validationf("Your plan allows up to %d custom questions per request", limits.QuestionsPerRequest)
	}
	return out, nil
}
