package analysis

import (
	"fmt"
	"strings"

	"github.com/sentivibe/sentivibe-api/pkg/db"
	"github.com/sentivibe/sentivibe-api/pkg/sentiment"
	"github.com/sentivibe/sentivibe-api/pkg/youtube"
)

const (
	promptComments    = 200
	maxCommentChars   = 500
	contextComments   = 60
	maxDescriptionLen = 1500
)

const analysisSystemPrompt = `You are an audience research analyst. You read YouTube comments and report how viewers feel about a video.

Respond with a single JSON object and nothing else, using exactly this shape:
{
  "sentiment": {
    "overall": "positive" | "negative" | "neutral" | "mixed",
    "score": number between -1 and 1,
    "positive": percentage of positive comments (0-100),
    "neutral": percentage of neutral comments (0-100),
    "negative": percentage of negative comments (0-100)
  },
  "emotional_tones": [{"tone": string, "intensity": number between 0 and 1, "description": string}],
  "key_themes": [{"theme": string, "description": string, "sentiment": "positive" | "negative" | "neutral" | "mixed"}],
  "summary": string
}

Rules:
- List 3 to 6 emotional tones and 3 to 8 key themes, strongest first.
- The summary is 2 to 4 paragraphs of plain prose written like a short blog report for the video's creator.
- Ground every claim in the comments. Do not invent facts about the video.
- The percentages must add up to 100.`

const answerSystemPrompt = `You answer questions about how an audience reacted to a YouTube video.
Use only the analysis and comments provided. If they do not contain the answer, say so briefly.
Write plain prose, no headings, in about %d words.`

func buildAnalysisPrompt(meta *youtube.VideoMetadata, comments []youtube.Comment, dist sentiment.Distribution) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Video title: %s\n", meta.Title)
	fmt.Fprintf(&b, "Channel: %s\n", meta.ChannelTitle)
	if len(meta.Tags) > 0 {
		fmt.Fprintf(&b, "Tags: %s\n", strings.Join(meta.Tags, ", "))
	}
	if meta.Description != "" {
		fmt.Fprintf(&b, "Description: %s\n", truncate(meta.Description, maxDescriptionLen))
	}
	fmt.Fprintf(&b, "\n%s\n", dist.Hint())

	n := len(comments)
	if n > promptComments {
		n = promptComments
	}
	fmt.Fprintf(&b, "\nTop %d of %d fetched comments (most relevant first, like counts in brackets):\n", n, len(comments))
	for i := 0; i < n; i++ {
		c := comments[i]
		fmt.Fprintf(&b, "- [%d] %s\n", c.LikeCount, truncate(oneLine(c.Text), maxCommentChars))
	}
	return b.String()
}

// Describe renders a stored analysis as prompt context for follow-up
// questions, comparisons and chat.
func Describe(a *db.Analysis, withComments bool) string {
	var b strings.Builder
	ai := a.Analysis.V
	fmt.Fprintf(&b, "Video: %s (by %s, id %s)\n", a.Title, a.ChannelTitle, a.VideoID)
	fmt.Fprintf(&b, "Overall sentiment: %s (score %.2f; %.0f%% positive, %.0f%% neutral, %.0f%% negative)\n",
		ai.Sentiment.Overall, ai.Sentiment.Score, ai.Sentiment.Positive, ai.Sentiment.Neutral, ai.Sentiment.Negative)

	if len(ai.EmotionalTones) > 0 {
		tones := make([]string, 0, len(ai.EmotionalTones))
		for _, t := range ai.EmotionalTones {
			tones = append(tones, fmt.Sprintf("%s (%.1f)", t.Tone, t.Intensity))
		}
		fmt.Fprintf(&b, "Emotional tones: %s\n", strings.Join(tones, ", "))
	}
	if len(ai.KeyThemes) > 0 {
		b.WriteString("Key themes:\n")
		for _, t := range ai.KeyThemes {
			fmt.Fprintf(&b, "- %s: %s\n", t.Theme, t.Description)
		}
	}
	if ai.Summary != "" {
		fmt.Fprintf(&b, "Summary: %s\n", ai.Summary)
	}

	if withComments && len(ai.Comments) > 0 {
		n := len(ai.Comments)
		if n > contextComments {
			n = contextComments
		}
		fmt.Fprintf(&b, "Sample comments (%d of %d):\n", n, ai.CommentCount)
		for _, c := range ai.Comments[:n] {
			fmt.Fprintf(&b, "- %s\n", truncate(oneLine(c.Text), maxCommentChars))
		}
	}
	return b.String()
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n]) + "..."
}

func oneLine(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
