package copilot

import (
	"fmt"
	"strings"

	"github.com/sentivibe/sentivibe-api/pkg/tier"
)

const recommendSystemPrompt = `You are the SentiVibe library copilot. You help users find existing video analyses in the SentiVibe library and suggest new topics worth analyzing.

Respond with a single JSON object and nothing else:
{
  "reply": string,
  "recommendations": [{"video_id": string, "title": string, "reason": string}],
  "new_topics": [string]
}

Rules:
- Only recommend videos from the library list, using their exact video_id.
- Recommend at most %d videos, best match first. Recommend none if nothing fits.
- "new_topics" suggests up to 3 searches for videos that are not in the library yet.
- The reply is one or two friendly sentences.`

const discoverSystemPrompt = `You help YouTube creators and researchers discover topics worth analyzing with SentiVibe.

Respond with a single JSON object and nothing else:
{
  "reply": string,
  "topics": [string],
  "queries": [string]
}

"topics" lists 3 to 6 trending or relevant topics, "queries" lists YouTube search queries to find videos for them. Use the web results when provided.`

const docsSystemPrompt = `You are the SentiVibe documentation assistant. Answer questions about the product using only the documentation below. If the answer is not covered, say so and suggest contacting support.

Respond with a single JSON object and nothing else: {"answer": string}

# SentiVibe documentation

SentiVibe analyzes the comments of a YouTube video and reports audience sentiment, emotional tones, key themes and a written summary.

## Analyzing a video
Paste a youtube.com or youtu.be link. Videos need at least 50 comments. A stored analysis is reused for 30 days; after that, or when you ask for a fresh analysis, the comments are fetched again. You can add custom questions with a requested answer length.

## Comparing videos
Compare two videos, or between 2 and 10 videos at once. Each video is analyzed first, then SentiVibe writes a structured comparison and a narrative report. If any video cannot be analyzed, the comparison is not created.

## Chat
Chat about an analysis or a comparison with one of five personas: friendly, therapist, storyteller, motivational or argumentative. Pro users can turn on Deep Think (a stronger model) and Deep Search (web results).

## Copilot
The library copilot recommends existing analyses and suggests new topics.

## Plans and limits
%s
Daily limits reset on a rolling 24 hour window. Anonymous limits apply per network address.

## Billing
Pro is billed through Paddle. Cancelling returns the account to the free plan at the end of the billing period.`

// planTable renders the tier limits for the docs prompt.
func planTable() string {
	var b strings.Builder
	for _, t := range []tier.Tier{tier.Anonymous, tier.Free, tier.Paid} {
		l := tier.For(t)
		fmt.Fprintf(&b, "- %s: %s analyses/day, %s comparisons/day, %s copilot queries/day, %s PDF downloads/day, %d chat messages per session (replies up to %d words), %d custom questions per request",
			planName(t), count(l.AnalysesPerDay), count(l.ComparisonsPerDay), count(l.CopilotPerDay), count(l.PDFDownloadsPerDay),
			l.ChatMessagesPerSession, l.ChatResponseWords, l.QuestionsPerRequest)
		if l.Watermark {
			b.WriteString(", watermarked PDFs")
		}
		if l.DeepThink {
			b.WriteString(", Deep Think and Deep Search")
		}
		b.WriteString("\n")
	}
	return b.String()
}

func planName(t tier.Tier) string {
	switch t {
	case tier.Paid:
		return "Pro"
	case tier.Free:
		return "Free (signed in)"
	}
	return "Anonymous"
}

func count(n int) string {
	if n == tier.Unlimited {
		return "unlimited"
	}
	return fmt.Sprint(n)
}
