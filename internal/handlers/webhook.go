package handlers

import (
	"context"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
	"naxovate-backend/internal/models"
)

// Stripe never sends more than 64KB per event.
const maxWebhookBody = 65536

type WebhookProcessor interface {
	HandleWebhook(ctx context.Context, payload []byte, signature string) error
}

type WebhookHandler struct {
	billing WebhookProcessor
	log     logrus.FieldLogger
}

func NewWebhookHandler(billing WebhookProcessor, log logrus.FieldLogger) *WebhookHandler {
	return &WebhookHandler{billing: billing, log: log}
}

// HandleStripeWebhook godoc
// @Summary     Stripe webhook endpoint
// @Description Receives checkout and subscription lifecycle events from Stripe. Requests are authenticated with the Stripe-Signature header.
// @Tags        webhooks
// @Accept      json
// @Produce     json
// @Param       Stripe-Signature header string true "Stripe signature header"
// @Success     200 {object} map[string]bool "received"
// @Failure     400 {object} models.ErrorResponse
// @Failure     500 {object} models.ErrorResponse
// @Router      /webhooks/stripe [post]
func (h *WebhookHandler) HandleStripeWebhook(c *gin.Context) {
	signature := c.GetHeader("Stripe-Signature")
	if signature == "" {
		c.JSON(http.StatusBadRequest, models.ErrorResponse{Error: "missing stripe signature"})
		return
	}

	body, err := io.ReadAll(io.LimitReader(c.Request.Body, maxWebhookBody))
	if err != nil {
		c.JSON(http.StatusBadRequest, models.ErrorResponse{
			Error:   "failed to read request body",
			Message: err.Error(),
		})
		return
	}

	if err := h.billing.HandleWebhook(c.Request.Context(), body, signature); err != nil {
		respondError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"received": true})
}
