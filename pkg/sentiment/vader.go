// Package sentiment scores comment text locally with VADER before any LLM
// call. The distribution is stored with the comment snapshot and handed to
// the model as a calibration hint.
package sentiment

import (
	"regexp"
	"strings"

	"github.com/jonreiter/govader"
	"github.com/russross/blackfriday/v2"
)

const (
	Positive = "positive"
	Neutral  = "neutral"
	Negative = "negative"

	threshold = 0.20
)

var (
	analyzer = govader.NewSentimentIntensityAnalyzer()

	linkPattern = regexp.MustCompile(`\[(.*?)\]\((https?:\/\/[^\s\)]+)\)`)
	urlPattern  = regexp.MustCompile(`https?://\S+|www\.\S+`)
	tagPattern  = regexp.MustCompile(`<[^>]*>`)
)

func RemoveLinks(input string) string {
	input = linkPattern.ReplaceAllString(input, "$1")
	return urlPattern.ReplaceAllString(input, "")
}

// PlainText renders markdown and drops markup and links, leaving words only.
func PlainText(input string) string {
	input = RemoveLinks(input)
	html := blackfriday.Run([]byte(input), blackfriday.WithNoExtensions())
	text := tagPattern.ReplaceAllString(string(html), " ")
	return strings.Join(strings.Fields(text), " ")
}

// Score returns the VADER compound score in [-1, 1] and its label.
func Score(text string) (float64, string) {
	score := analyzer.PolarityScores(PlainText(text)).Compound
	return score, Label(score)
}

func Label(score float64) string {
	switch {
	case score >= threshold:
		return Positive
	case score <= -threshold:
		return Negative
	default:
		return Neutral
	}
}
