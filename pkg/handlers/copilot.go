package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/sentivibe/sentivibe-api/pkg/chat"
	"github.com/sentivibe/sentivibe-api/pkg/llm"
	"github.com/sentivibe/sentivibe-api/pkg/tier"
	"github.com/sentivibe/sentivibe-api/pkg/utils"
)

type CopilotRequest struct {
	Query      string `json:"query" binding:"required"`
	DeepSearch bool   `json:"deep_search"` // ignored below the paid tier
}

type DocsRequest struct {
	Question string        `json:"question" binding:"required"`
	History  []llm.Message `json:"history"` // earlier turns, oldest first
}

// CopilotRecommend suggests library videos for a free-text request.
func (h *Handlers) CopilotRecommend(c *gin.Context) {
	var req CopilotRequest
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
	if err := h.Gate.Check(ctx, caller, tier.ActionCopilot); err != nil {
		utils.ResponseWithAppError(c, err)
		return
	}

	resp, err := h.Copilot.Recommend(ctx, req.Query, caller.Tier)
	if err != nil {
		utils.ResponseWithAppError(c, err)
		return
	}
	// Failed queries are not charged.
	h.record(ctx, caller, tier.ActionCopilot)
	utils.ResponseWithSuccess(c, http.StatusOK, "Recommendations ready", resp)
}

func (h *Handlers) CopilotDiscover(c *gin.Context) {
	var req CopilotRequest
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
	if err := h.Gate.Check(ctx, caller, tier.ActionCopilot); err != nil {
		utils.ResponseWithAppError(c, err)
		return
	}

	// Deep search follows the same tier rule as chat.
	opts := chat.Normalize(chat.Options{DeepSearch: req.DeepSearch}, caller.Tier)
	resp, err := h.Copilot.Discover(ctx, req.Query, opts.DeepSearch)
	if err != nil {
		utils.ResponseWithAppError(c, err)
		return
	}
	h.record(ctx, caller, tier.ActionCopilot)
	utils.ResponseWithSuccess(c, http.StatusOK, "Topics ready", resp)
}

// DocsAssistant answers product questions. It is free and unmetered.
func (h *Handlers) DocsAssistant(c *gin.Context) {
	var req DocsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.ResponseWithError(c, http.StatusBadRequest, "Invalid request body", err.Error())
		return
	}
	resp, err := h.Copilot.AskDocs(c.Request.Context(), req.Question, req.History)
	if err != nil {
		utils.ResponseWithAppError(c, err)
		return
	}
	utils.ResponseWithSuccess(c, http.StatusOK, "Answer ready", resp)
}
