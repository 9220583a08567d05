package db

import (
	"database/sql"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"
)

type User struct {
	ID           uuid.UUID `db:"id"`
	Username     string    `db:"username"`
	Email        string    `db:"email"`
	PasswordHash string    `db:"password_hash"`
	CreatedAt    time.Time `db:"created_at"`
	UpdatedAt    time.Time `db:"updated_at"`
}

// CustomQA is a user-supplied question with the requested answer length.
// Answer stays nil until an AI call has answered it.
type CustomQA struct {
	Question  string  `json:"question"`
	WordCount int     `json:"word_count"`
	Answer    *string `json:"answer,omitempty"`
}

type Sentiment struct {
	Overall  string  `json:"overall"` // positive, negative, neutral or mixed
	Score    float64 `json:"score"`   // -1..1
	Positive float64 `json:"positive"`
	Neutral  float64 `json:"neutral"`
	Negative float64 `json:"negative"`
}

type EmotionalTone struct {
	Tone        string  `json:"tone"`
	Intensity   float64 `json:"intensity"`
	Description string  `json:"description,omitempty"`
}

type KeyTheme struct {
	Theme       string `json:"theme"`
	Description string `json:"description"`
	Sentiment   string `json:"sentiment,omitempty"`
}

// CommentSnapshot is one fetched comment as it looked when the video was analyzed.
type CommentSnapshot struct {
	Author      string  `json:"author"`
	Text        string  `json:"text"`
	LikeCount   int64   `json:"like_count"`
	PublishedAt string  `json:"published_at,omitempty"`
	Score       float64 `json:"score"`
}

// LocalSentiment is the lexicon-based distribution computed before the LLM call.
type LocalSentiment struct {
	Positive int     `json:"positive"`
	Neutral  int     `json:"neutral"`
	Negative int     `json:"negative"`
	Average  float64 `json:"average"`
}

// AIAnalysis is the structured result stored in analyses.analysis.
type AIAnalysis struct {
	Sentiment      Sentiment         `json:"sentiment"`
	EmotionalTones []EmotionalTone   `json:"emotional_tones"`
	KeyThemes      []KeyTheme        `json:"key_themes"`
	Summary        string            `json:"summary"`
	LocalSentiment LocalSentiment    `json:"local_sentiment"`
	CommentCount   int               `json:"comment_count"`
	Comments       []CommentSnapshot `json:"comments"`
}

type Analysis struct {
	ID               uuid.UUID         `db:"id"`
	VideoID          string            `db:"video_id"`
	Title            string            `db:"title"`
	Description      string            `db:"description"`
	ThumbnailURL     string            `db:"thumbnail_url"`
	Tags             pq.StringArray    `db:"tags"`
	ChannelTitle     string            `db:"channel_title"`
	Analysis         JSONB[AIAnalysis] `db:"analysis"`
	CustomQA         JSONB[[]CustomQA] `db:"custom_qa"`
	UserID           uuid.NullUUID     `db:"user_id"`
	LastReanalyzedAt time.Time         `db:"last_reanalyzed_at"`
	CreatedAt        time.Time         `db:"created_at"`
	UpdatedAt        time.Time         `db:"updated_at"`
}

type DivergentTheme struct {
	Theme       string `json:"theme"`
	Description string `json:"description"`
}

type VideoHighlight struct {
	VideoID    string   `json:"video_id"`
	Title      string   `json:"title"`
	Sentiment  string   `json:"sentiment"`
	Highlights []string `json:"highlights"`
}

// ComparativeData is the structured result of a pairwise or N-way comparison.
type ComparativeData struct {
	Summary             string           `json:"summary"`
	SentimentComparison string           `json:"sentiment_comparison"`
	CommonThemes        []string         `json:"common_themes"`
	DivergentThemes     []DivergentTheme `json:"divergent_themes"`
	AudienceInsights    []string         `json:"audience_insights"`
	Recommendations     []string         `json:"recommendations"`
	Videos              []VideoHighlight `json:"videos"`
	Narrative           string           `json:"narrative"`
}

type Comparison struct {
	ID             uuid.UUID              `db:"id"`
	VideoAID       uuid.UUID              `db:"video_a_id"`
	VideoBID       uuid.UUID              `db:"video_b_id"`
	ComparisonData JSONB[ComparativeData] `db:"comparison_data"`
	CustomQA       JSONB[[]CustomQA]      `db:"custom_qa"`
	UserID         uuid.NullUUID          `db:"user_id"`
	CreatedAt      time.Time              `db:"created_at"`
	UpdatedAt      time.Time              `db:"updated_at"`
}

type MultiComparison struct {
	ID             uuid.UUID              `db:"id"`
	Title          string                 `db:"title"`
	ComparisonData JSONB[ComparativeData] `db:"comparison_data"`
	CustomQA       JSONB[[]CustomQA]      `db:"custom_qa"`
	UserID         uuid.NullUUID          `db:"user_id"`
	CreatedAt      time.Time              `db:"created_at"`
	UpdatedAt      time.Time              `db:"updated_at"`
}

// MultiComparisonVideo is a row of the multi_comparison_videos junction table.
type MultiComparisonVideo struct {
	MultiComparisonID uuid.UUID `db:"multi_comparison_id"`
	AnalysisID        uuid.UUID `db:"analysis_id"`
	Position          int       `db:"position"`
}

const (
	PlanFree = "free"
	PlanPro  = "pro"

	StatusActive    = "active"
	StatusTrialing  = "trialing"
	StatusPastDue   = "past_due"
	StatusPaused    = "paused"
	StatusCancelled = "cancelled"
)

// Subscription mirrors the payment provider's view of a user's plan.
type Subscription struct {
	ID                     uuid.UUID      `db:"id"`
	UserID                 uuid.UUID      `db:"user_id"`
	Status                 string         `db:"status"`
	PlanID                 string         `db:"plan_id"`
	ProviderSubscriptionID sql.NullString `db:"provider_subscription_id"`
	ProviderCustomerID     sql.NullString `db:"provider_customer_id"`
	CurrentPeriodEnd       sql.NullTime   `db:"current_period_end"`
	CreatedAt              time.Time      `db:"created_at"`
	UpdatedAt              time.Time      `db:"updated_at"`
}

// IsPaid reports whether the subscription grants the paid tier.
func (s *Subscription) IsPaid() bool {
	if s == nil || s.PlanID == PlanFree || s.PlanID == "" {
		return false
	}
	return s.Status == StatusActive || s.Status == StatusTrialing
}

// AnonymousUsage holds rolling daily counters for a client IP.
type AnonymousUsage struct {
	IPAddress        string    `db:"ip_address"`
	AnalysesCount    int       `db:"analyses_count"`
	ComparisonsCount int       `db:"comparisons_count"`
	CopilotCount     int       `db:"copilot_count"`
	WindowStartedAt  time.Time `db:"window_started_at"`
	UpdatedAt        time.Time `db:"updated_at"`
}

// UserDailyUsage holds explicit per-user counters for actions that do not
// create rows of their own.
type UserDailyUsage struct {
	UserID            uuid.UUID `db:"user_id"`
	CopilotCount      int       `db:"copilot_count"`
	PDFDownloadsCount int       `db:"pdf_downloads_count"`
	WindowStartedAt   time.Time `db:"window_started_at"`
	UpdatedAt         time.Time `db:"updated_at"`
}
