package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	log "github.com/sirupsen/logrus"

	"github.com/sentivibe/sentivibe-api/pkg/chat"
	"github.com/sentivibe/sentivibe-api/pkg/llm"
	"github.com/sentivibe/sentivibe-api/pkg/utils"
)

type ChatRequest struct {
	VideoID      string        `json:"video_id"`
	ComparisonID string        `json:"comparison_id"`
	Messages     []llm.Message `json:"messages" binding:"required,min=1"`
	Persona      string        `json:"persona"`
	DeepThink    bool          `json:"deep_think"`
	DeepSearch   bool          `json:"deep_search"`
}

func (h *Handlers) ChatVideo(c *gin.Context) {
	h.chat(c, chat.SubjectVideo)
}

func (h *Handlers) ChatComparison(c *gin.Context) {
	h.chat(c, chat.SubjectComparison)
}

func (h *Handlers) ChatMultiComparison(c *gin.Context) {
	h.chat(c, chat.SubjectMultiComparison)
}

// chat streams the reply as plain text. Errors raised before the first
// fragment use the JSON envelope; later errors end the stream.
func (h *Handlers) chat(c *gin.Context, subject chat.Subject) {
	var req ChatRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.ResponseWithError(c, http.StatusBadRequest, "Invalid request body", err.Error())
		return
	}

	caller, err := h.caller(c)
	if err != nil {
		utils.ResponseWithAppError(c, err)
		return
	}

	target := req.VideoID
	if subject != chat.SubjectVideo {
		target = req.ComparisonID
	}

	started := false
	err = h.Chat.Stream(c.Request.Context(), chat.Request{
		Subject:  subject,
		Target:   target,
		Messages: req.Messages,
		Options: chat.Options{
			Persona:    chat.ParsePersona(req.Persona),
			DeepThink:  req.DeepThink,
			DeepSearch: req.DeepSearch,
		},
		Tier:   caller.Tier,
		Caller: caller.Key(),
	}, func(delta string) error {
		if !started {
			c.Header("Content-Type", "text/plain; charset=utf-8")
			c.Header("Cache-Control", "no-cache")
			c.Header("X-Accel-Buffering", "no")
			c.Status(http.StatusOK)
			started = true
		}
		if _, err := c.Writer.WriteString(delta); err != nil {
			return err
		}
		c.Writer.Flush()
		return nil
	})
	if err == nil {
		return
	}
	if !started {
		utils.ResponseWithAppError(c, err)
		return
	}
	log.Warnf("Chat: stream ended early: %v", err)
}
