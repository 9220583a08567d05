package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/sentivibe/sentivibe-api/pkg/tier"
	"github.com/sentivibe/sentivibe-api/pkg/utils"
)

type IncrementUsageRequest struct {
	Action string `json:"action" binding:"required,oneof=pdf_download copilot"`
}

// AnonymousUsage reports the counters of the calling IP, ignoring any token.
func (h *Handlers) AnonymousUsage(c *gin.Context) {
	summary, err := h.Gate.AnonymousSnapshot(c.Request.Context(), c.ClientIP())
	if err != nil {
		utils.ResponseWithAppError(c, err)
		return
	}
	utils.ResponseWithSuccess(c, http.StatusOK, "Usage loaded", summary)
}

// UsageSummary reports the authenticated caller's usage.
func (h *Handlers) UsageSummary(c *gin.Context) {
	caller, err := h.caller(c)
	if err != nil {
		utils.ResponseWithAppError(c, err)
		return
	}
	summary, err := h.Gate.Summarize(c.Request.Context(), caller)
	if err != nil {
		utils.ResponseWithAppError(c, err)
		return
	}
	utils.ResponseWithSuccess(c, http.StatusOK, "Usage loaded", summary)
}

// IncrementUsage checks and counts an action performed by the client, such
// as a PDF export.
func (h *Handlers) IncrementUsage(c *gin.Context) {
	var req IncrementUsageRequest
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
	action := tier.Action(req.Action)
	if err := h.Gate.Check(ctx, caller, action); err != nil {
		utils.ResponseWithAppError(c, err)
		return
	}
	// Unlike server-side actions, the export has not happened yet, so a
	// failed record is an error.
	if err := h.Gate.Record(ctx, caller, action); err != nil {
		utils.ResponseWithError(c, http.StatusInternalServerError, "Failed to record usage", nil)
		return
	}

	summary, err := h.Gate.Summarize(ctx, caller)
	if err != nil {
		utils.ResponseWithAppError(c, err)
		return
	}
	utils.ResponseWithSuccess(c, http.StatusOK, "Usage recorded", gin.H{
		"watermark": caller.Limits().Watermark, // the client stamps free-tier exports
		"usage":     summary,
	})
}
