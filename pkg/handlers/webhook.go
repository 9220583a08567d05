package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	log "github.com/sirupsen/logrus"

	"github.com/sentivibe/sentivibe-api/pkg/apperr"
	"github.com/sentivibe/sentivibe-api/pkg/billing"
	"github.com/sentivibe/sentivibe-api/pkg/utils"
)

const maxWebhookBody = 1 << 20

// PaddleWebhook verifies and applies a subscription notification.
func (h *Handlers) PaddleWebhook(c *gin.Context) {
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, maxWebhookBody)
	body, err := c.GetRawData()
	if err != nil {
		utils.ResponseWithError(c, http.StatusBadRequest, "Invalid request body", nil)
		return
	}

	err = billing.VerifySignature(h.Config.PaddleWebhookSecret, c.GetHeader("Paddle-Signature"), body, h.now(), billing.SignatureTolerance)
	if err != nil {
		log.Warn("PaddleWebhook: rejected webhook with invalid signature")
		utils.ResponseWithAppError(c, apperr.Unauthorized("Invalid signature"))
		return
	}

	event, err := billing.ParseEvent(body)
	if err != nil {
		utils.ResponseWithAppError(c, err)
		return
	}
	if err := h.Billing.Handle(c.Request.Context(), event); err != nil {
		utils.ResponseWithAppError(c, err)
		return
	}
	utils.ResponseWithSuccess(c, http.StatusOK, "Webhook processed", nil)
}
