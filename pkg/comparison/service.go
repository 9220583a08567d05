// Package comparison compares audience reactions across videos. Every video
// is resolved through the analysis pipeline, one at a time, before any
// comparative AI call runs.
package comparison

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"

	"github.com/sentivibe/sentivibe-api/pkg/analysis"
	"github.com/sentivibe/sentivibe-api/pkg/apperr"
	"github.com/sentivibe/sentivibe-api/pkg/db"
	"github.com/sentivibe/sentivibe-api/pkg/llm"
	"github.com/sentivibe/sentivibe-api/pkg/tier"
	"github.com/sentivibe/sentivibe-api/pkg/youtube"
)

const (
	MinVideos = 2
	MaxVideos = 10
)

type Store interface {
	FindAnalysisByVideoID(ctx context.Context, videoID string) (*db.Analysis, error)
	FindComparisonByPair(ctx context.Context, a, b uuid.UUID) (*db.Comparison, error)
	SaveComparison(ctx context.Context, comparison *db.Comparison) (*db.Comparison, error)
	UpdateComparisonCustomQA(ctx context.Context, id uuid.UUID, qa []db.CustomQA) error
	CreateMultiComparison(ctx context.Context, mc *db.MultiComparison, analysisIDs []uuid.UUID) (*db.MultiComparison, error)
}

// Analyzer resolves single videos. *analysis.Service implements it.
type Analyzer interface {
	Analyze(ctx context.Context, req analysis.AnalyzeRequest) (*analysis.Outcome, error)
	AnswerQuestions(ctx context.Context, background string, questions []db.CustomQA) ([]db.CustomQA, []string)
}

type Service struct {
	store    Store
	analyzer Analyzer
	llm      llm.Client
	now      func() time.Time
}

func NewService(store Store, analyzer Analyzer, client llm.Client) *Service {
	return &Service{store: store, analyzer: analyzer, llm: client, now: time.Now}
}

type CompareRequest struct {
	LinkA     string
	LinkB     string
	Questions []db.CustomQA
	Force     bool
	Owner     uuid.NullUUID
	Limits    tier.Limits
	// Authorize runs before a new comparison is generated. Reusing a stored
	// comparison does not call it.
	Authorize func(ctx context.Context) error
}

type Result struct {
	Comparison *db.Comparison
	Videos     []*db.Analysis
	// Generated is true when the comparative AI calls ran.
	Generated  bool
	Unanswered []string
}

type MultiCompareRequest struct {
	Links     []string
	Title     string
	Questions []db.CustomQA
	Owner     uuid.NullUUID
	Limits    tier.Limits
	Authorize func(ctx context.Context) error
}

type MultiResult struct {
	Comparison *db.MultiComparison
	Videos     []*db.Analysis
	Unanswered []string
}

// Compare returns the pairwise comparison of two videos, reusing the stored
// one while it is fresh.
func (s *Service) Compare(ctx context.Context, req CompareRequest) (*Result, error) {
	ids, err := videoIDs([]string{req.LinkA, req.LinkB})
	if err != nil {
		return nil, err
	}
	questions, err := analysis.NormalizeQuestions(req.Questions, req.Limits)
	if err != nil {
		return nil, err
	}

	// A stored pair is served as-is, answering only new questions.
	if !req.Force {
		if res, err := s.reuse(ctx, ids, questions); err != nil || res != nil {
			return res, err
		}
	}

	if req.Authorize != nil {
		if err := req.Authorize(ctx); err != nil {
			return nil, err
		}
	}

	// Missing or stale member analyses are run first, unowned and uncharged.
	videos, err := s.resolve(ctx, ids, req.Limits)
	if err != nil {
		return nil, err
	}

	data, err := s.generate(ctx, videos)
	if err != nil {
		return nil, err
	}

	existing, err := s.store.FindComparisonByPair(ctx, videos[0].ID, videos[1].ID)
	if err != nil {
		return nil, apperr.Internal("failed to load comparison", err)
	}
	comparison := &db.Comparison{
		VideoAID:       videos[0].ID,
		VideoBID:       videos[1].ID,
		ComparisonData: db.NewJSONB(*data),
		UserID:         req.Owner,
	}
	var stored []db.CustomQA
	if existing != nil {
		// Keep the stored column order so the upsert hits the same row.
		comparison.VideoAID, comparison.VideoBID = existing.VideoAID, existing.VideoBID
		stored = existing.CustomQA.V
	}

	answered, unanswered := s.analyzer.AnswerQuestions(ctx, comparisonBackground(videos, *data), questions)
	comparison.CustomQA = db.NewJSONB(analysis.MergeQuestions(stored, answered))

	saved, err := s.store.SaveComparison(ctx, comparison)
	if err != nil {
		return nil, apperr.Internal("failed to save comparison", err)
	}
	log.Infof("CompareVideos: compared %s and %s", ids[0], ids[1])
	return &Result{Comparison: saved, Videos: videos, Generated: true, Unanswered: unanswered}, nil
}

// reuse serves a fresh stored comparison when both videos are already in the
// library. It returns nil when a new comparison is needed.
func (s *Service) reuse(ctx context.Context, ids []string, questions []db.CustomQA) (*Result, error) {
	videos := make([]*db.Analysis, 0, len(ids))
	for _, id := range ids {
		a, err := s.store.FindAnalysisByVideoID(ctx, id)
		if err != nil {
			return nil, apperr.Internal("failed to load analysis", err)
		}
		if a == nil || analysis.NeedsRefresh(a, false, s.now()) {
			return nil, nil
		}
		videos = append(videos, a)
	}

	existing, err := s.store.FindComparisonByPair(ctx, videos[0].ID, videos[1].ID)
	if err != nil {
		return nil, apperr.Internal("failed to load comparison", err)
	}
	if existing == nil || s.now().Sub(existing.UpdatedAt) > analysis.StalenessThreshold {
		return nil, nil
	}

	res := &Result{Comparison: existing, Videos: videos}
	pending := analysis.Unanswered(existing.CustomQA.V, questions)
	if len(pending) == 0 {
		return res, nil
	}
	answered, unanswered := s.analyzer.AnswerQuestions(ctx, comparisonBackground(videos, existing.ComparisonData.V), pending)
	res.Unanswered = unanswered
	if len(answered) > 0 {
		merged := analysis.MergeQuestions(existing.CustomQA.V, answered)
		if err := s.store.UpdateComparisonCustomQA(ctx, existing.ID, merged); err != nil {
			return nil, apperr.Internal("failed to save answers", err)
		}
		existing.CustomQA = db.NewJSONB(merged)
	}
	return res, nil
}

// CompareMany creates a new N-way comparison. Links are validated before any
// external call, and a failure on any video aborts without writing the
// comparison.
func (s *Service) CompareMany(ctx context.Context, req MultiCompareRequest) (*MultiResult, error) {
	ids, err := videoIDs(req.Links)
	if err != nil {
		return nil, err
	}
	questions, err := analysis.NormalizeQuestions(req.Questions, req.Limits)
	if err != nil {
		return nil, err
	}

	if req.Authorize != nil {
		if err := req.Authorize(ctx); err != nil {
			return nil, err
		}
	}

	videos, err := s.resolve(ctx, ids, req.Limits)
	if err != nil {
		return nil, err
	}

	data, err := s.generate(ctx, videos)
	if err != nil {
		return nil, err
	}
	answered, unanswered := s.analyzer.AnswerQuestions(ctx, comparisonBackground(videos, *data), questions)

	title := strings.TrimSpace(req.Title)
	if title == "" {
		title = defaultTitle(videos)
	}
	mc := &db.MultiComparison{
		Title:          title,
		ComparisonData: db.NewJSONB(*data),
		CustomQA:       db.NewJSONB(analysis.MergeQuestions(nil, answered)),
		UserID:         req.Owner,
	}
	analysisIDs := make([]uuid.UUID, 0, len(videos))
	for _, v := range videos {
		analysisIDs = append(analysisIDs, v.ID)
	}

	saved, err := s.store.CreateMultiComparison(ctx, mc, analysisIDs)
	if err != nil {
		return nil, apperr.Internal("failed to save comparison", err)
	}
	log.Infof("CompareMultipleVideos: compared %d videos as %s", len(videos), saved.ID.String())
	return &MultiResult{Comparison: saved, Videos: videos, Unanswered: unanswered}, nil
}

// resolve runs each video through the analysis pipeline in order. The first
// failure aborts the rest.
func (s *Service) resolve(ctx context.Context, ids []string, limits tier.Limits) ([]*db.Analysis, error) {
	videos := make([]*db.Analysis, 0, len(ids))
	for i, id := range ids {
		out, err := s.analyzer.Analyze(ctx, analysis.AnalyzeRequest{
			Link:   youtube.WatchURL(id),
			Limits: limits,
		})
		if err != nil {
			log.Warnf("CompareVideos: video %d (%s) failed: %v", i+1, id, err)
			return nil, videoFailure(i+1, id, err)
		}
		videos = append(videos, out.Record)
	}
	return videos, nil
}

// generate runs the structured comparison call and the narrative call.
func (s *Service) generate(ctx context.Context, videos []*db.Analysis) (*db.ComparativeData, error) {
	prompt := describeVideos(videos, false)

	req := llm.UserPrompt("comparison", comparisonSystemPrompt, prompt)
	req.JSON = true
	raw, err := s.llm.Complete(ctx, req)
	if err != nil {
		return nil, err
	}
	data, err := llm.DecodeJSON[db.ComparativeData](raw).Unwrap("comparison")
	if err != nil {
		log.Errorf("CompareVideos: malformed comparison JSON: %v", err)
		return nil, err
	}
	if data.Summary == "" {
		return nil, apperr.Parse("AI comparison is missing a summary", llm.ErrMalformedJSON)
	}

	narrative, err := s.llm.Complete(ctx, llm.UserPrompt("comparison_narrative", narrativeSystemPrompt, prompt))
	if err != nil {
		return nil, err
	}
	data.Narrative = strings.TrimSpace(narrative)

	if data.CommonThemes == nil {
		data.CommonThemes = []string{}
	}
	return &data, nil
}

// videoIDs validates the links: every one must parse, and there must be
// MinVideos..MaxVideos distinct videos.
func videoIDs(links []string) ([]string, error) {
	if len(links) < MinVideos {
		return nil, apperr.Validationf("At least %d video links are required", MinVideos)
	}
	if len(links) > MaxVideos {
		return nil, apperr.Validationf("At most %d videos can be compared at once", MaxVideos)
	}

	seen := make(map[string]bool, len(links))
	ids := make([]string, 0, len(links))
	for i, link := range links {
		id, err := youtube.ExtractVideoID(link)
		if err != nil {
			return nil, apperr.Validationf("Video %d: invalid YouTube link", i+1)
		}
		if seen[id] {
			return nil, apperr.Validationf("Video %d is a duplicate. Each video can only be compared once.", i+1)
		}
		seen[id] = true
		ids = append(ids, id)
	}
	return ids, nil
}

// videoFailure prefixes the failing video's position while keeping the kind
// of the original error.
func videoFailure(pos int, id string, err error) error {
	appErr, ok := apperr.As(err)
	if !ok {
		return err
	}
	return &apperr.Error{
		Kind:    appErr.Kind,
		Message: fmt.Sprintf("Video %d (%s): %s", pos, id, appErr.Message),
		Code:    appErr.Code,
		Details: appErr.Details,
		Err:     err,
	}
}
