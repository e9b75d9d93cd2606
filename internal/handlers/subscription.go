package handlers

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
	"naxovate-backend/internal/models"
	"naxovate-backend/internal/plans"
	"naxovate-backend/internal/services"
)

type SubscriptionReader interface {
	Subscription(ctx context.Context, id services.Identity) (*models.SubscriptionResponse, error)
}

type BillingService interface {
	Plans() []plans.Plan
	Checkout(ctx context.Context, id services.Identity, planKey string) (*models.CheckoutResponse, error)
	Cancel(ctx context.Context, id services.Identity) (*models.SubscriptionResponse, error)
}

type SubscriptionHandler struct {
	accounts SubscriptionReader
	billing  BillingService
	log      logrus.FieldLogger
}

func NewSubscriptionHandler(accounts SubscriptionReader, billing BillingService, log logrus.FieldLogger) *SubscriptionHandler {
	return &SubscriptionHandler{accounts: accounts, billing: billing, log: log}
}

// GetSubscription godoc
// @Summary     Get the caller's subscription
// @Description Returns plan, usage counters and remaining generations for the current billing period
// @Tags        subscription
// @Produce     json
// @Security    Bearer
// @Success     200 {object} models.SubscriptionResponse
// @Failure     401 {object} models.ErrorResponse
// @Failure     500 {object} models.ErrorResponse
// @Router      /subscription [get]
func (h *SubscriptionHandler) GetSubscription(c *gin.Context) {
	id, ok := identity(c)
	if !ok {
		return
	}

	resp, err := h.accounts.Subscription(c.Request.Context(), id)
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

// ListPlans godoc
// @Summary     List paid plans
// @Description Returns the purchasable plans with their monthly image limits and prices
// @Tags        subscription
// @Produce     json
// @Security    Bearer
// @Success     200 {object} map[string][]plans.Plan
// @Router      /subscription/plans [get]
func (h *SubscriptionHandler) ListPlans(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"plans": h.billing.Plans()})
}

// Checkout godoc
// @Summary     Start a Stripe checkout
// @Description Creates a Stripe Checkout session for a paid plan and returns its redirect URL
// @Tags        subscription
// @Accept      json
// @Produce     json
// @Security    Bearer
// @Param       request body models.CheckoutRequest true "Plan to buy"
// @Success     200 {object} models.CheckoutResponse
// @Failure     400 {object} models.ErrorResponse
// @Failure     401 {object} models.ErrorResponse
// @Failure     502 {object} models.ErrorResponse
// @Failure     503 {object} models.ErrorResponse
// @Router      /subscription/checkout [post]
func (h *SubscriptionHandler) Checkout(c *gin.Context) {
	id, ok := identity(c)
	if !ok {
		return
	}

	var req models.CheckoutRequest
	if !bindJSON(c, &req) {
		return
	}

	resp, err := h.billing.Checkout(c.Request.Context(), id, req.Plan)
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

// Cancel godoc
// @Summary     Cancel the subscription
// @Description Cancels the premium subscription at the end of the current billing period
// @Tags        subscription
// @Produce     json
// @Security    Bearer
// @Success     200 {object} models.SubscriptionResponse
// @Failure     400 {object} models.ErrorResponse
// @Failure     401 {object} models.ErrorResponse
// @Failure     502 {object} models.ErrorResponse
// @Router      /subscription/cancel [post]
func (h *SubscriptionHandler) Cancel(c *gin.Context) {
	id, ok := identity(c)
	if !ok {
		return
	}

	resp, err := h.billing.Cancel(c.Request.Context(), id)
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}
