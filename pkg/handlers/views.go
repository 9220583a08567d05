package handlers

import (
	"time"

	"github.com/google/uuid"

	"github.com/sentivibe/sentivibe-api/pkg/db"
	"github.com/sentivibe/sentivibe-api/pkg/youtube"
)

type analysisView struct {
	ID               uuid.UUID      `json:"id"`
	VideoID          string         `json:"video_id"`
	VideoURL         string         `json:"video_url"`
	Title            string         `json:"title"`
	Description      string         `json:"description,omitempty"`
	ThumbnailURL     string         `json:"thumbnail_url"`
	Tags             []string       `json:"tags"`
	ChannelTitle     string         `json:"channel_title"`
	Analysis         *db.AIAnalysis `json:"analysis,omitempty"`
	Sentiment        string         `json:"sentiment"`
	CustomQA         []db.CustomQA  `json:"custom_qa"`
	LastReanalyzedAt time.Time      `json:"last_reanalyzed_at"`
	CreatedAt        time.Time      `json:"created_at"`
}

// newAnalysisView renders a record. Library listings leave out the full
// analysis and comment snapshot.
func newAnalysisView(a *db.Analysis, full bool) analysisView {
	v := analysisView{
		ID:               a.ID,
		VideoID:          a.VideoID,
		VideoURL:         youtube.WatchURL(a.VideoID),
		Title:            a.Title,
		ThumbnailURL:     a.ThumbnailURL,
		Tags:             a.Tags,
		ChannelTitle:     a.ChannelTitle,
		Sentiment:        a.Analysis.V.Sentiment.Overall,
		CustomQA:         a.CustomQA.V,
		LastReanalyzedAt: a.LastReanalyzedAt,
		CreatedAt:        a.CreatedAt,
	}
	if full {
		ai := a.Analysis.V
		v.Description = a.Description
		v.Analysis = &ai
	}
	if v.Tags == nil {
		v.Tags = []string{}
	}
	if v.CustomQA == nil {
		v.CustomQA = []db.CustomQA{}
	}
	return v
}

func newAnalysisViews(records []*db.Analysis, full bool) []analysisView {
	out := make([]analysisView, 0, len(records))
	for _, a := range records {
		out = append(out, newAnalysisView(a, full))
	}
	return out
}

type comparisonView struct {
	ID             uuid.UUID          `json:"id"`
	Title          string             `json:"title,omitempty"`
	ComparisonData db.ComparativeData `json:"comparison_data"`
	CustomQA       []db.CustomQA      `json:"custom_qa"`
	Videos         []analysisView     `json:"videos"`
	CreatedAt      time.Time          `json:"created_at"`
	UpdatedAt      time.Time          `json:"updated_at"`
}

func newComparisonView(c *db.Comparison, videos []*db.Analysis) comparisonView {
	return comparisonView{
		ID:             c.ID,
		ComparisonData: c.ComparisonData.V,
		CustomQA:       nonNilQA(c.CustomQA.V),
		Videos:         newAnalysisViews(videos, false),
		CreatedAt:      c.CreatedAt,
		UpdatedAt:      c.UpdatedAt,
	}
}

func newMultiComparisonView(mc *db.MultiComparison, videos []*db.Analysis) comparisonView {
	return comparisonView{
		ID:             mc.ID,
		Title:          mc.Title,
		ComparisonData: mc.ComparisonData.V,
		CustomQA:       nonNilQA(mc.CustomQA.V),
		Videos:         newAnalysisViews(videos, false),
		CreatedAt:      mc.CreatedAt,
		UpdatedAt:      mc.UpdatedAt,
	}
}

func nonNilQA(qa []db.CustomQA) []db.CustomQA {
	if qa == nil {
		return []db.CustomQA{}
	}
	return qa
}
