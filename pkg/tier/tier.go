// Package tier holds the static per-tier limits and the ceiling check that
// every gated action goes through.
package tier

import (
	"fmt"

	"github.com/sentivibe/sentivibe-api/pkg/apperr"
)

type Tier string

const (
	Anonymous Tier = "anonymous"
	Free      Tier = "free"
	Paid      Tier = "paid"
)

type Action string

const (
	ActionAnalysis    Action = "analysis"
	ActionComparison  Action = "comparison"
	ActionCopilot     Action = "copilot"
	ActionPDFDownload Action = "pdf_download"
	ActionChatMessage Action = "chat_message"
)

// Unlimited marks a ceiling that is never reached.
const Unlimited = -1

type Limits struct {
	AnalysesPerDay     int
	ComparisonsPerDay  int
	CopilotPerDay      int
	PDFDownloadsPerDay int

	ChatMessagesPerSession int
	ChatResponseWords      int

	QuestionsPerRequest int
	MaxAnswerWords      int

	Watermark  bool
	DeepThink  bool
	DeepSearch bool
}

var table = map[Tier]Limits{
	Anonymous: {
		AnalysesPerDay:         1,
		ComparisonsPerDay:      1,
		CopilotPerDay:          3,
		PDFDownloadsPerDay:     0,
		ChatMessagesPerSession: 3,
		ChatResponseWords:      150,
		QuestionsPerRequest:    1,
		MaxAnswerWords:         200,
		Watermark:              true,
	},
	Free: {
		AnalysesPerDay:         1,
		ComparisonsPerDay:      1,
		CopilotPerDay:          5,
		PDFDownloadsPerDay:     1,
		ChatMessagesPerSession: 10,
		ChatResponseWords:      250,
		QuestionsPerRequest:    3,
		MaxAnswerWords:         300,
		Watermark:              true,
	},
	Paid: {
		AnalysesPerDay:         50,
		ComparisonsPerDay:      20,
		CopilotPerDay:          100,
		PDFDownloadsPerDay:     Unlimited,
		ChatMessagesPerSession: 100,
		ChatResponseWords:      1000,
		QuestionsPerRequest:    10,
		MaxAnswerWords:         1000,
		DeepThink:              true,
		DeepSearch:             true,
	},
}

// For returns the limits of t. Unknown tiers get the anonymous limits.
func For(t Tier) Limits {
	if l, ok := table[t]; ok {
		return l
	}
	return table[Anonymous]
}

// Ceiling returns the limit that applies to action for t.
func Ceiling(t Tier, action Action) int {
	l := For(t)
	switch action {
	case ActionAnalysis:
		return l.AnalysesPerDay
	case ActionComparison:
		return l.ComparisonsPerDay
	case ActionCopilot:
		return l.CopilotPerDay
	case ActionPDFDownload:
		return l.PDFDownloadsPerDay
	case ActionChatMessage:
		return l.ChatMessagesPerSession
	default:
		return 0
	}
}

var codes = map[Action]string{
	ActionAnalysis:    "ANALYSIS_LIMIT_EXCEEDED",
	ActionComparison:  "COMPARISON_LIMIT_EXCEEDED",
	ActionCopilot:     "COPILOT_LIMIT_EXCEEDED",
	ActionPDFDownload: "PDF_DOWNLOAD_LIMIT_EXCEEDED",
	ActionChatMessage: "CHAT_LIMIT_EXCEEDED",
}

var labels = map[Action]string{
	ActionAnalysis:    "Analysis",
	ActionComparison:  "Comparison",
	ActionCopilot:     "Copilot",
	ActionPDFDownload: "PDF download",
	ActionChatMessage: "Chat message",
}

// Code is the machine-readable quota error code for action.
func Code(action Action) string {
	return codes[action]
}

// Check allows the action iff used is below the ceiling. A denial is a
// quota error naming the ceiling and the tier.
func Check(t Tier, action Action, used int) error {
	limit := Ceiling(t, action)
	if limit == Unlimited || used < limit {
		return nil
	}

	period := "per day"
	if action == ActionChatMessage {
		period = "per chat session"
	}
	msg := fmt.Sprintf("%s limit reached: your %s plan allows %d %s. %s",
		labels[action], t, limit, period, upgradeHint(t))

	return apperr.Quota(msg, codes[action], apperr.QuotaDetails{
		Action: string(action),
		Tier:   string(t),
		Limit:  limit,
		Used:   used,
	})
}

// CheckSession applies the chat ceiling to the number of user messages
// already sent in the session, including the one being sent.
func CheckSession(t Tier, userMessages int) error {
	return Check(t, ActionChatMessage, userMessages-1)
}

// Remaining is how many more times action is allowed, or Unlimited.
func Remaining(t Tier, action Action, used int) int {
	limit := Ceiling(t, action)
	if limit == Unlimited {
		return Unlimited
	}
	if used >= limit {
		return 0
	}
	return limit - used
}

func upgradeHint(t Tier) string {
	switch t {
	case Anonymous:
		return "Sign in for more, or upgrade to Pro for higher limits."
	case Free:
		return "Upgrade to Pro for higher limits."
	default:
		return "Please try again tomorrow."
	}
}
