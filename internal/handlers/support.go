package handlers

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"naxovate-backend/internal/models"
	"naxovate-backend/internal/realtime"
	"naxovate-backend/internal/services"
)

type SupportService interface {
	CreateTicket(ctx context.Context, id services.Identity, req models.CreateTicketRequest) (*models.TicketResponse, error)
	ListTickets(ctx context.Context, id services.Identity) (*models.TicketListResponse, error)
	Authorize(ctx context.Context, id services.Identity, ticketID uuid.UUID) error
	Messages(ctx context.Context, id services.Identity, ticketID uuid.UUID) (*models.MessageListResponse, error)
	Reply(ctx context.Context, id services.Identity, ticketID uuid.UUID, text string) (*models.SupportMessage, error)
}

// EventStreamer upgrades a request to a websocket carrying topic events.
type EventStreamer interface {
	Serve(w http.ResponseWriter, r *http.Request, topic string, log logrus.FieldLogger)
}

type SupportHandler struct {
	support SupportService
	stream  EventStreamer
	log     logrus.FieldLogger
}

func NewSupportHandler(support SupportService, stream EventStreamer, log logrus.FieldLogger) *SupportHandler {
	return &SupportHandler{support: support, stream: stream, log: log}
}

// CreateTicket godoc
// @Summary     Open a support ticket
// @Tags        support
// @Accept      json
// @Produce     json
// @Security    Bearer
// @Param       request body models.CreateTicketRequest true "Ticket"
// @Success     201 {object} models.TicketResponse
// @Failure     400 {object} models.ErrorResponse
// @Failure     401 {object} models.ErrorResponse
// @Router      /support/tickets [post]
func (h *SupportHandler) CreateTicket(c *gin.Context) {
	id, ok := identity(c)
	if !ok {
		return
	}

	var req models.CreateTicketRequest
	if !bindJSON(c, &req) {
		return
	}

	resp, err := h.support.CreateTicket(c.Request.Context(), id, req)
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	c.JSON(http.StatusCreated, resp)
}

// ListTickets godoc
// @Summary     List support tickets
// @Description Returns the caller's tickets. Admins see every ticket.
// @Tags        support
// @Produce     json
// @Security    Bearer
// @Success     200 {object} models.TicketListResponse
// @Failure     401 {object} models.ErrorResponse
// @Router      /support/tickets [get]
func (h *SupportHandler) ListTickets(c *gin.Context) {
	id, ok := identity(c)
	if !ok {
		return
	}

	resp, err := h.support.ListTickets(c.Request.Context(), id)
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

// ListMessages godoc
// @Summary     List ticket messages
// @Tags        support
// @Produce     json
// @Security    Bearer
// @Param       ticket_id path string true "Ticket ID (UUID)"
// @Success     200 {object} models.MessageListResponse
// @Failure     400 {object} models.ErrorResponse
// @Failure     404 {object} models.ErrorResponse
// @Router      /support/tickets/{ticket_id}/messages [get]
func (h *SupportHandler) ListMessages(c *gin.Context) {
	id, ok := identity(c)
	if !ok {
		return
	}
	ticketID, ok := pathUUID(c, "ticket_id", "ticket id")
	if !ok {
		return
	}

	resp, err := h.support.Messages(c.Request.Context(), id, ticketID)
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

// Reply godoc
// @Summary     Reply to a ticket
// @Description Adds a message to the ticket. An admin reply moves an open ticket to in_progress.
// @Tags        support
// @Accept      json
// @Produce     json
// @Security    Bearer
// @Param       ticket_id path string true "Ticket ID (UUID)"
// @Param       request body models.ReplyRequest true "Message"
// @Success     201 {object} models.SupportMessage
// @Failure     400 {object} models.ErrorResponse
// @Failure     404 {object} models.ErrorResponse
// @Router      /support/tickets/{ticket_id}/messages [post]
func (h *SupportHandler) Reply(c *gin.Context) {
	id, ok := identity(c)
	if !ok {
		return
	}
	ticketID, ok := pathUUID(c, "ticket_id", "ticket id")
	if !ok {
		return
	}

	var req models.ReplyRequest
	if !bindJSON(c, &req) {
		return
	}

	msg, err := h.support.Reply(c.Request.Context(), id, ticketID, req.Message)
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	c.JSON(http.StatusCreated, msg)
}

// Stream godoc
// @Summary     Stream ticket updates
// @Description Upgrades to a websocket that receives new messages and status changes for the ticket. Browsers pass the JWT as the access_token query parameter.
// @Tags        support
// @Security    Bearer
// @Param       ticket_id path string true "Ticket ID (UUID)"
// @Success     101
// @Failure     404 {object} models.ErrorResponse
// @Router      /support/tickets/{ticket_id}/stream [get]
func (h *SupportHandler) Stream(c *gin.Context) {
	id, ok := identity(c)
	if !ok {
		return
	}
	ticketID, ok := pathUUID(c, "ticket_id", "ticket id")
	if !ok {
		return
	}

	if err := h.support.Authorize(c.Request.Context(), id, ticketID); err != nil {
		respondError(c, h.log, err)
		return
	}

	h.stream.Serve(c.Writer, c.Request, realtime.TicketTopic(ticketID), h.log.WithField("ticket_id", ticketID))
}
