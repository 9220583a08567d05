package handlers

import (
	"context"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	log "github.com/sirupsen/logrus"

	"github.com/sentivibe/sentivibe-api/pkg/analysis"
	"github.com/sentivibe/sentivibe-api/pkg/apperr"
	"github.com/sentivibe/sentivibe-api/pkg/db"
	"github.com/sentivibe/sentivibe-api/pkg/tier"
	"github.com/sentivibe/sentivibe-api/pkg/usage"
	"github.com/sentivibe/sentivibe-api/pkg/utils"
	"github.com/sentivibe/sentivibe-api/pkg/youtube"
)

const (
	defaultPageSize = 20
	maxPageSize     = 100
)

type AnalyzeVideoRequest struct {
	VideoLink       string        `json:"video_link" binding:"required"`
	ForceReanalyze  bool          `json:"force_reanalyze"`
	CustomQuestions []db.CustomQA `json:"custom_questions"`
}

type analyzeResponse struct {
	analysisView
	Cached     bool     `json:"cached"`
	Unanswered []string `json:"unanswered_questions,omitempty"`
}

// AnalyzeVideo serves the library copy of a video's analysis, or runs a
// full analysis when none exists, it is stale or a refresh is forced.
func (h *Handlers) AnalyzeVideo(c *gin.Context) {
	var req AnalyzeVideoRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.ResponseWithError(c, http.StatusBadRequest, "Invalid request body", err.Error())
		return
	}

	caller, err := h.caller(c)
	if err != nil {
		utils.ResponseWithAppError(c, err)
		return
	}

	ctx := c.Request.Context()
	out, err := h.Analysis.Analyze(ctx, analysis.AnalyzeRequest{
		Link:           req.VideoLink,
		ForceReanalyze: req.ForceReanalyze,
		Questions:      req.CustomQuestions,
		Owner:          caller.Owner(),
		Limits:         caller.Limits(),
		// Quota is checked only once a full analysis is certain to run.
		Authorize: func(ctx context.Context) error {
			return h.Gate.Check(ctx, caller, tier.ActionAnalysis)
		},
	})
	if err != nil {
		utils.ResponseWithAppError(c, err)
		return
	}

	// Only a fresh analysis spends quota and changes the library.
	if out.Refreshed {
		h.record(ctx, caller, tier.ActionAnalysis)
		h.Copilot.InvalidateLibrary(ctx)
	}

	message := "Analysis complete"
	if !out.Refreshed {
		message = "Analysis loaded from library"
	}
	utils.ResponseWithSuccess(c, http.StatusOK, message, analyzeResponse{
		analysisView: newAnalysisView(out.Record, true),
		Cached:       !out.Refreshed,
		Unanswered:   out.Unanswered,
	})
}

// ListAnalyses returns the public library, newest first.
func (h *Handlers) ListAnalyses(c *gin.Context) {
	// Out-of-range paging falls back to defaults instead of failing.
	limit := queryInt(c, "limit", defaultPageSize)
	if limit <= 0 || limit > maxPageSize {
		limit = defaultPageSize
	}
	offset := queryInt(c, "offset", 0)
	if offset < 0 {
		offset = 0
	}

	records, err := h.Store.ListAnalyses(c.Request.Context(), limit, offset)
	if err != nil {
		utils.ResponseWithAppError(c, apperr.Internal("failed to list analyses", err))
		return
	}
	views := make([]analysisView, 0, len(records))
	for i := range records {
		views = append(views, newAnalysisView(&records[i], false))
	}
	utils.ResponseWithSuccess(c, http.StatusOK, "Library loaded", gin.H{
		"analyses": views,
		"limit":    limit,
		"offset":   offset,
	})
}

// GetAnalysis returns the full report for a video ID or link.
func (h *Handlers) GetAnalysis(c *gin.Context) {
	videoID, err := youtube.ExtractVideoID(c.Param("videoId")) // accepts a bare ID or any link form
	if err != nil {
		utils.ResponseWithError(c, http.StatusBadRequest, "Invalid video ID", nil)
		return
	}
	record, err := h.Store.FindAnalysisByVideoID(c.Request.Context(), videoID)
	if err != nil {
		utils.ResponseWithAppError(c, apperr.Internal("failed to load analysis", err))
		return
	}
	if record == nil {
		utils.ResponseWithError(c, http.StatusNotFound, "Analysis not found", nil)
		return
	}
	utils.ResponseWithSuccess(c, http.StatusOK, "Analysis loaded", newAnalysisView(record, true))
}

// record counts a completed action. The action already happened, so a
// failure is logged rather than returned.
func (h *Handlers) record(ctx context.Context, caller usage.Caller, action tier.Action) {
	if err := h.Gate.Record(ctx, caller, action); err != nil {
		log.Errorf("Usage: failed to record %s: %v", action, err)
	}
}

func queryInt(c *gin.Context, key string, fallback int) int {
	v, err := strconv.Atoi(c.Query(key))
	if err != nil {
		return fallback
	}
	return v
}
