package handlers

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"naxovate-backend/internal/models"
	"naxovate-backend/internal/realtime"
)

type AdminService interface {
	Stats(ctx context.Context) (*models.Stats, error)
	Users(ctx context.Context) (*models.UserListResponse, error)
	SetPlan(ctx context.Context, userID uuid.UUID, planKey string) (*models.Subscription, error)
	DeleteUser(ctx context.Context, actor, userID uuid.UUID) error
	LockUser(ctx context.Context, actor, userID uuid.UUID, locked bool) error
	FeatureFlags(ctx context.Context) (*models.FeatureFlagListResponse, error)
	SetFeatureFlag(ctx context.Context, feature string, enabled bool) (*models.FeatureFlag, error)
}

type TicketStatusUpdater interface {
	UpdateStatus(ctx context.Context, ticketID uuid.UUID, status string) (*models.SupportTicket, error)
}

// AdminHandler serves the admin console. Routes are mounted behind
// middleware.RequireAdmin.
type AdminHandler struct {
	admin   AdminService
	tickets TicketStatusUpdater
	stream  EventStreamer
	log     logrus.FieldLogger
}

func NewAdminHandler(admin AdminService, tickets TicketStatusUpdater, stream EventStreamer, log logrus.FieldLogger) *AdminHandler {
	return &AdminHandler{admin: admin, tickets: tickets, stream: stream, log: log}
}

// Stats godoc
// @Summary     Dashboard statistics
// @Description Returns user, image and ticket counts plus estimated monthly revenue
// @Tags        admin
// @Produce     json
// @Security    Bearer
// @Success     200 {object} models.Stats
// @Failure     403 {object} models.ErrorResponse
// @Router      /admin/stats [get]
func (h *AdminHandler) Stats(c *gin.Context) {
	stats, err := h.admin.Stats(c.Request.Context())
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, stats)
}

// ListUsers godoc
// @Summary     List users
// @Tags        admin
// @Produce     json
// @Security    Bearer
// @Success     200 {object} models.UserListResponse
// @Failure     403 {object} models.ErrorResponse
// @Router      /admin/users [get]
func (h *AdminHandler) ListUsers(c *gin.Context) {
	users, err := h.admin.Users(c.Request.Context())
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, users)
}

// SetPlan godoc
// @Summary     Change a user's plan
// @Description Moves the user to the given plan and starts a fresh billing period
// @Tags        admin
// @Accept      json
// @Produce     json
// @Security    Bearer
// @Param       user_id path string true "User ID (UUID)"
// @Param       request body models.SetPlanRequest true "Plan"
// @Success     200 {object} models.Subscription
// @Failure     400 {object} models.ErrorResponse
// @Failure     404 {object} models.ErrorResponse
// @Router      /admin/users/{user_id}/subscription [put]
func (h *AdminHandler) SetPlan(c *gin.Context) {
	userID, ok := pathUUID(c, "user_id", "user id")
	if !ok {
		return
	}

	var req models.SetPlanRequest
	if !bindJSON(c, &req) {
		return
	}

	sub, err := h.admin.SetPlan(c.Request.Context(), userID, req.Plan)
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, sub)
}

// DeleteUser godoc
// @Summary     Delete a user
// @Description Deletes the user's stored images and profile. Admins cannot delete themselves.
// @Tags        admin
// @Produce     json
// @Security    Bearer
// @Param       user_id path string true "User ID (UUID)"
// @Success     204
// @Failure     400 {object} models.ErrorResponse
// @Failure     404 {object} models.ErrorResponse
// @Router      /admin/users/{user_id} [delete]
func (h *AdminHandler) DeleteUser(c *gin.Context) {
	actor, ok := identity(c)
	if !ok {
		return
	}
	userID, ok := pathUUID(c, "user_id", "user id")
	if !ok {
		return
	}

	if err := h.admin.DeleteUser(c.Request.Context(), actor.UserID, userID); err != nil {
		respondError(c, h.log, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// LockUser godoc
// @Summary     Lock or unlock a user
// @Tags        admin
// @Accept      json
// @Produce     json
// @Security    Bearer
// @Param       user_id path string true "User ID (UUID)"
// @Param       request body models.LockUserRequest true "Lock state"
// @Success     200 {object} map[string]bool "locked"
// @Failure     400 {object} models.ErrorResponse
// @Failure     404 {object} models.ErrorResponse
// @Router      /admin/users/{user_id}/lock [post]
func (h *AdminHandler) LockUser(c *gin.Context) {
	actor, ok := identity(c)
	if !ok {
		return
	}
	userID, ok := pathUUID(c, "user_id", "user id")
	if !ok {
		return
	}

	var req models.LockUserRequest
	if !bindJSON(c, &req) {
		return
	}

	if err := h.admin.LockUser(c.Request.Context(), actor.UserID, userID, req.Locked); err != nil {
		respondError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"locked": req.Locked})
}

// UpdateTicket godoc
// @Summary     Change a ticket's status
// @Tags        admin
// @Accept      json
// @Produce     json
// @Security    Bearer
// @Param       ticket_id path string true "Ticket ID (UUID)"
// @Param       request body models.UpdateTicketRequest true "Status"
// @Success     200 {object} models.SupportTicket
// @Failure     400 {object} models.ErrorResponse
// @Failure     404 {object} models.ErrorResponse
// @Router      /admin/tickets/{ticket_id} [patch]
func (h *AdminHandler) UpdateTicket(c *gin.Context) {
	ticketID, ok := pathUUID(c, "ticket_id", "ticket id")
	if !ok {
		return
	}

	var req models.UpdateTicketRequest
	if !bindJSON(c, &req) {
		return
	}

	ticket, err := h.tickets.UpdateStatus(c.Request.Context(), ticketID, req.Status)
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, ticket)
}

// ListFeatureFlags godoc
// @Summary     List feature flags
// @Tags        admin
// @Produce     json
// @Security    Bearer
// @Success     200 {object} models.FeatureFlagListResponse
// @Failure     503 {object} models.ErrorResponse
// @Router      /admin/feature-flags [get]
func (h *AdminHandler) ListFeatureFlags(c *gin.Context) {
	flags, err := h.admin.FeatureFlags(c.Request.Context())
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, flags)
}

// SetFeatureFlag godoc
// @Summary     Toggle a feature flag
// @Tags        admin
// @Accept      json
// @Produce     json
// @Security    Bearer
// @Param       feature path string true "Feature name"
// @Param       request body models.FeatureFlagRequest true "Flag state"
// @Success     200 {object} models.FeatureFlag
// @Failure     400 {object} models.ErrorResponse
// @Failure     503 {object} models.ErrorResponse
// @Router      /admin/feature-flags/{feature} [put]
func (h *AdminHandler) SetFeatureFlag(c *gin.Context) {
	var req models.FeatureFlagRequest
	if !bindJSON(c, &req) {
		return
	}

	flag, err := h.admin.SetFeatureFlag(c.Request.Context(), c.Param("feature"), *req.Enabled)
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, flag)
}

// Events godoc
// @Summary     Stream admin events
// @Description Upgrades to a websocket carrying user, image, subscription and ticket change events
// @Tags        admin
// @Security    Bearer
// @Success     101
// @Router      /admin/events [get]
func (h *AdminHandler) Events(c *gin.Context) {
	h.stream.Serve(c.Writer, c.Request, realtime.TopicAdmin, h.log)
}
