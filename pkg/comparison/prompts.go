package comparison

import (
	"fmt"
	"strings"

	"github.com/sentivibe/sentivibe-api/pkg/analysis"
	"github.com/sentivibe/sentivibe-api/pkg/db"
)

const comparisonSystemPrompt = `You compare how audiences reacted to several YouTube videos, using the sentiment analyses provided.

Respond with a single JSON object and nothing else, using exactly this shape:
{
  "summary": string,
  "sentiment_comparison": string,
  "common_themes": [string],
  "divergent_themes": [{"theme": string, "description": string}],
  "audience_insights": [string],
  "recommendations": [string],
  "videos": [{"video_id": string, "title": string, "sentiment": string, "highlights": [string]}]
}

Rules:
- Include one entry in "videos" per video, in the order given, using the video ids provided.
- Recommendations are concrete suggestions for the creators.
- Ground every statement in the analyses. Do not invent facts.`

const narrativeSystemPrompt = `You write short comparative reports about audience reactions to YouTube videos.
Write 3 to 5 paragraphs of plain prose for the creators, contrasting how viewers responded to each video and what drove the difference.
No headings, no lists, no JSON.`

// describeVideos renders every video as numbered prompt context.
func describeVideos(videos []*db.Analysis, withComments bool) string {
	var b strings.Builder
	for i, v := range videos {
		fmt.Fprintf(&b, "### Video %d\n%s\n", i+1, analysis.Describe(v, withComments))
	}
	return b.String()
}

// comparisonBackground is the context for custom comparative questions.
func comparisonBackground(videos []*db.Analysis, data db.ComparativeData) string {
	var b strings.Builder
	b.WriteString(describeVideos(videos, len(videos) <= 3))
	if data.Summary != "" {
		fmt.Fprintf(&b, "\nComparison summary: %s\n", data.Summary)
	}
	if data.SentimentComparison != "" {
		fmt.Fprintf(&b, "Sentiment comparison: %s\n", data.SentimentComparison)
	}
	return b.String()
}

func defaultTitle(videos []*db.Analysis) string {
	titles := make([]string, 0, len(videos))
	for _, v := range videos {
		titles = append(titles, v.Title)
	}
	title := strings.Join(titles, " vs ")
	if r := []rune(title); len(r) > 200 {
		title = string(r[:197]) + "..."
	}
	return title
}
