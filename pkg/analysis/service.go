// Package analysis runs the single-video pipeline: decide whether a stored
// analysis can be served, otherwise fetch comments, score them and ask the
// LLM for structured sentiment, then answer any custom questions.
package analysis

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"

	"github.com/sentivibe/sentivibe-api/pkg/apperr"
	"github.com/sentivibe/sentivibe-api/pkg/db"
	"github.com/sentivibe/sentivibe-api/pkg/llm"
	"github.com/sentivibe/sentivibe-api/pkg/metrics"
	"github.com/sentivibe/sentivibe-api/pkg/sentiment"
	"github.com/sentivibe/sentivibe-api/pkg/tier"
	"github.com/sentivibe/sentivibe-api/pkg/youtube"
)

type Store interface {
	FindAnalysisByVideoID(ctx context.Context, videoID string) (*db.Analysis, error)
	UpsertAnalysis(ctx context.Context, analysis *db.Analysis) (*db.Analysis, error)
	UpdateAnalysisCustomQA(ctx context.Context, id uuid.UUID, qa []db.CustomQA) error
}

type Service struct {
	store       Store
	videos      youtube.Source
	llm         llm.Client
	now         func() time.Time
	MaxComments int
}

func NewService(store Store, videos youtube.Source, client llm.Client) *Service {
	return &Service{
		store:       store,
		videos:      videos,
		llm:         client,
		now:         time.Now,
		MaxComments: youtube.DefaultMaxComments,
	}
}

type AnalyzeRequest struct {
	Link           string
	ForceReanalyze bool
	Questions      []db.CustomQA
	Owner          uuid.NullUUID
	Limits         tier.Limits
	// Authorize runs right before a full analysis. Serving a stored analysis
	// does not call it.
	Authorize func(ctx context.Context) error
}

type Outcome struct {
	Record *db.Analysis
	// Refreshed is true when a full analysis ran.
	Refreshed bool
	// Unanswered lists questions whose AI call failed; they were not saved.
	Unanswered []string
}

// aiAnalysis is the JSON shape requested from the model.
type aiAnalysis struct {
	Sentiment      db.Sentiment       `json:"sentiment"`
	EmotionalTones []db.EmotionalTone `json:"emotional_tones"`
	KeyThemes      []db.KeyTheme      `json:"key_themes"`
	Summary        string             `json:"summary"`
}

// Analyze serves or refreshes the analysis of the linked video.
func (s *Service) Analyze(ctx context.Context, req AnalyzeRequest) (*Outcome, error) {
	videoID, err := youtube.ExtractVideoID(req.Link)
	if err != nil {
		return nil, apperr.Validation("Invalid YouTube link. Paste a youtube.com or youtu.be video URL.")
	}

	questions, err := NormalizeQuestions(req.Questions, req.Limits)
	if err != nil {
		return nil, err
	}

	existing, err := s.store.FindAnalysisByVideoID(ctx, videoID)
	if err != nil {
		return nil, apperr.Internal("failed to load analysis", err)
	}

	now := s.now()
	if !NeedsRefresh(existing, req.ForceReanalyze, now) {
		log.Debugf("AnalyzeVideo: serving stored analysis for %s", videoID)
		metrics.Analyses.WithLabelValues("cached").Inc()
		return s.answerStored(ctx, existing, questions)
	}

	if req.Authorize != nil {
		if err := req.Authorize(ctx); err != nil {
			return nil, err
		}
	}

	record, unanswered, err := s.fullAnalysis(ctx, videoID, existing, questions, req.Owner, now)
	if err != nil {
		if apperr.IsKind(err, apperr.KindValidation) {
			metrics.Analyses.WithLabelValues("rejected").Inc()
		}
		return nil, err
	}
	metrics.Analyses.WithLabelValues("refreshed").Inc()
	return &Outcome{Record: record, Refreshed: true, Unanswered: unanswered}, nil
}

// answerStored answers questions the stored record has no answer for, using
// its comment snapshot. No comments are fetched.
func (s *Service) answerStored(ctx context.Context, existing *db.Analysis, questions []db.CustomQA) (*Outcome, error) {
	pending := Unanswered(existing.CustomQA.V, questions)
	if len(pending) == 0 {
		return &Outcome{Record: existing}, nil
	}

	answered, unanswered := s.AnswerQuestions(ctx, Describe(existing, true), pending)
	merged := MergeQuestions(existing.CustomQA.V, answered)
	if len(answered) > 0 {
		if err := s.store.UpdateAnalysisCustomQA(ctx, existing.ID, merged); err != nil {
			return nil, apperr.Internal("failed to save answers", err)
		}
		existing.CustomQA = db.NewJSONB(merged)
	}
	return &Outcome{Record: existing, Unanswered: unanswered}, nil
}

func (s *Service) fullAnalysis(ctx context.Context, videoID string, existing *db.Analysis, questions []db.CustomQA, owner uuid.NullUUID, now time.Time) (*db.Analysis, []string, error) {
	// Fetch metadata first; a missing video fails before the costlier
	// comment pages are read.
	meta, err := s.videos.FetchMetadata(ctx, videoID)
	if err != nil {
		return nil, nil, videoError(err)
	}

	comments, err := s.videos.FetchComments(ctx, videoID, s.MaxComments)
	if err != nil {
		return nil, nil, videoError(err)
	}
	if len(comments) < MinComments {
		log.Infof("AnalyzeVideo: rejecting %s with %d comments", videoID, len(comments))
		return nil, nil, apperr.Validationf(
			"This video has only %d comments. At least %d comments are needed for a meaningful analysis.",
			len(comments), MinComments)
	}

	// Lexicon scores are stored with the snapshot and summarized in the prompt.
	snapshot, dist := scoreComments(comments)

	req := llm.UserPrompt("analysis", analysisSystemPrompt, buildAnalysisPrompt(meta, comments, dist))
	req.JSON = true
	raw, err := s.llm.Complete(ctx, req)
	if err != nil {
		return nil, nil, err
	}
	result, err := llm.DecodeJSON[aiAnalysis](raw).Unwrap("analysis")
	if err != nil {
		log.Errorf("AnalyzeVideo: malformed analysis JSON for %s: %v", videoID, err)
		return nil, nil, err
	}
	if result.Summary == "" {
		return nil, nil, apperr.Parse("AI analysis is missing a summary", llm.ErrMalformedJSON)
	}

	record := &db.Analysis{
		VideoID:      videoID,
		Title:        meta.Title,
		Description:  meta.Description,
		ThumbnailURL: meta.ThumbnailURL,
		Tags:         meta.Tags,
		ChannelTitle: meta.ChannelTitle,
		Analysis: db.NewJSONB(db.AIAnalysis{
			Sentiment:      result.Sentiment,
			EmotionalTones: result.EmotionalTones,
			KeyThemes:      result.KeyThemes,
			Summary:        result.Summary,
			LocalSentiment: db.LocalSentiment(dist),
			CommentCount:   len(comments),
			Comments:       snapshot,
		}),
		UserID:           owner,
		LastReanalyzedAt: now,
	}
	if record.Tags == nil {
		record.Tags = []string{} // tags column is NOT NULL
	}

	// Answers from earlier runs survive a refresh unless re-asked.
	answered, unanswered := s.AnswerQuestions(ctx, Describe(record, true), questions)
	var stored []db.CustomQA
	if existing != nil {
		stored = existing.CustomQA.V
	}
	record.CustomQA = db.NewJSONB(MergeQuestions(stored, answered))

	saved, err := s.store.UpsertAnalysis(ctx, record)
	if err != nil {
		return nil, nil, apperr.Internal("failed to save analysis", err)
	}
	log.Infof("AnalyzeVideo: analyzed %s (%d comments, %d questions answered)", videoID, len(comments), len(answered))
	return saved, unanswered, nil
}

// AnswerQuestions asks the LLM each question against background, in order.
// Questions whose call fails are returned by text in unanswered and left out
// of answered.
func (s *Service) AnswerQuestions(ctx context.Context, background string, questions []db.CustomQA) (answered []db.CustomQA, unanswered []string) {
	for _, qa := range questions {
		req := llm.UserPrompt("custom_question",
			fmt.Sprintf(answerSystemPrompt, qa.WordCount),
			background+"\nQuestion: "+qa.Question)
		req.MaxTokens = qa.WordCount * 2

		answer, err := s.llm.Complete(ctx, req)
		if err != nil || answer == "" {
			log.Warnf("AnalyzeVideo: failed to answer custom question: %v", err)
			unanswered = append(unanswered, qa.Question)
			continue
		}
		qa.Answer = &answer
		answered = append(answered, qa)
	}
	return answered, unanswered
}

func scoreComments(comments []youtube.Comment) ([]db.CommentSnapshot, sentiment.Distribution) {
	texts := make([]string, len(comments))
	for i, c := range comments {
		texts[i] = c.Text
	}
	scored, dist := sentiment.ScoreAll(texts)

	snapshot := make([]db.CommentSnapshot, len(comments))
	for i, c := range comments {
		snapshot[i] = db.CommentSnapshot{
			Author:      c.Author,
			Text:        c.Text,
			LikeCount:   c.LikeCount,
			PublishedAt: c.PublishedAt,
			Score:       scored[i].Score,
		}
	}
	return snapshot, dist
}

// videoError classifies YouTube failures for the caller.
func videoError(err error) error {
	switch {
	case errors.Is(err, youtube.ErrVideoNotFound):
		return apperr.NotFound("Video not found. Check that the link points to a public video.")
	case errors.Is(err, youtube.ErrCommentsDisabled):
		return apperr.Validation("Comments are disabled for this video, so it cannot be analyzed.")
	case errors.Is(err, youtube.ErrQuotaExceeded):
		return apperr.Upstream("YouTube", "quota exceeded", err)
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return err
	}
	return apperr.Upstream("YouTube", err.Error(), err)
}
