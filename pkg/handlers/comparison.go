package handlers

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/sentivibe/sentivibe-api/pkg/apperr"
	"github.com/sentivibe/sentivibe-api/pkg/comparison"
	"github.com/sentivibe/sentivibe-api/pkg/db"
	"github.com/sentivibe/sentivibe-api/pkg/tier"
	"github.com/sentivibe/sentivibe-api/pkg/utils"
)

// CompareVideosRequest names two videos; their analyses are reused or run
// as needed.
type CompareVideosRequest struct {
	VideoLinkA      string        `json:"video_link_a" binding:"required"`
	VideoLinkB      string        `json:"video_link_b" binding:"required"`
	ForceRefresh    bool          `json:"force_refresh"` // regenerate even when a stored pair exists
	CustomQuestions []db.CustomQA `json:"custom_questions"`
}

type CompareMultipleVideosRequest struct {
	VideoLinks      []string      `json:"video_links" binding:"required"` // count is bounded per tier by the service
	Title           string        `json:"title" binding:"max=200"`
	CustomQuestions []db.CustomQA `json:"custom_questions"`
}

type compareResponse struct {
	comparisonView
	Cached     bool     `json:"cached"`
	Unanswered []string `json:"unanswered_questions,omitempty"`
}

// CompareVideos returns the stored comparison of a pair in either order, or
// generates one.
func (h *Handlers) CompareVideos(c *gin.Context) {
	var req CompareVideosRequest
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
	res, err := h.Comparison.Compare(ctx, comparison.CompareRequest{
		LinkA:     req.VideoLinkA,
		LinkB:     req.VideoLinkB,
		Questions: req.CustomQuestions,
		Force:     req.ForceRefresh,
		Owner:     caller.Owner(),
		Limits:    caller.Limits(),
		Authorize: func(ctx context.Context) error {
			return h.Gate.Check(ctx, caller, tier.ActionComparison)
		},
	})
	if err != nil {
		utils.ResponseWithAppError(c, err)
		return
	}
	// Answering new questions on a stored pair is free.
	if res.Generated {
		h.record(ctx, caller, tier.ActionComparison)
		h.Copilot.InvalidateLibrary(ctx)
	}

	utils.ResponseWithSuccess(c, http.StatusOK, "Comparison complete", compareResponse{
		comparisonView: newComparisonView(res.Comparison, res.Videos),
		Cached:         !res.Generated,
		Unanswered:     res.Unanswered,
	})
}

// CompareMultipleVideos always creates a new group comparison.
func (h *Handlers) CompareMultipleVideos(c *gin.Context) {
	var req CompareMultipleVideosRequest
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
	res, err := h.Comparison.CompareMany(ctx, comparison.MultiCompareRequest{
		Links:     req.VideoLinks,
		Title:     req.Title,
		Questions: req.CustomQuestions,
		Owner:     caller.Owner(),
		Limits:    caller.Limits(),
		Authorize: func(ctx context.Context) error {
			return h.Gate.Check(ctx, caller, tier.ActionComparison)
		},
	})
	if err != nil {
		utils.ResponseWithAppError(c, err)
		return
	}
	// Group comparisons are never reused, so every success is charged.
	h.record(ctx, caller, tier.ActionComparison)
	h.Copilot.InvalidateLibrary(ctx)

	utils.ResponseWithSuccess(c, http.StatusCreated, "Comparison complete", compareResponse{
		comparisonView: newMultiComparisonView(res.Comparison, res.Videos),
		Unanswered:     res.Unanswered,
	})
}

func (h *Handlers) GetComparison(c *gin.Context) {
	id, ok := uuidParam(c, "id")
	if !ok {
		return
	}
	ctx := c.Request.Context()
	cmp, err := h.Store.FindComparisonByID(ctx, id)
	if err != nil {
		utils.ResponseWithAppError(c, apperr.Internal("failed to load comparison", err))
		return
	}
	if cmp == nil {
		utils.ResponseWithError(c, http.StatusNotFound, "Comparison not found", nil)
		return
	}

	// Skip analyses that have since disappeared rather than failing the view.
	videos := make([]*db.Analysis, 0, 2)
	for _, vid := range []uuid.UUID{cmp.VideoAID, cmp.VideoBID} {
		a, err := h.Store.FindAnalysisByID(ctx, vid)
		if err != nil {
			utils.ResponseWithAppError(c, apperr.Internal("failed to load analysis", err))
			return
		}
		if a != nil {
			videos = append(videos, a)
		}
	}
	utils.ResponseWithSuccess(c, http.StatusOK, "Comparison loaded", newComparisonView(cmp, videos))
}

func (h *Handlers) GetMultiComparison(c *gin.Context) {
	id, ok := uuidParam(c, "id")
	if !ok {
		return
	}
	ctx := c.Request.Context()
	mc, err := h.Store.FindMultiComparisonByID(ctx, id)
	if err != nil {
		utils.ResponseWithAppError(c, apperr.Internal("failed to load comparison", err))
		return
	}
	if mc == nil {
		utils.ResponseWithError(c, http.StatusNotFound, "Comparison not found", nil)
		return
	}

	records, err := h.Store.ListMultiComparisonVideos(ctx, id) // in submission order
	if err != nil {
		utils.ResponseWithAppError(c, apperr.Internal("failed to load comparison videos", err))
		return
	}
	videos := make([]*db.Analysis, 0, len(records))
	for i := range records {
		videos = append(videos, &records[i])
	}
	utils.ResponseWithSuccess(c, http.StatusOK, "Comparison loaded", newMultiComparisonView(mc, videos))
}

func uuidParam(c *gin.Context, name string) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param(name))
	if err != nil {
		utils.ResponseWithError(c, http.StatusBadRequest, "Invalid ID", nil)
		return uuid.Nil, false
	}
	return id, true
}
