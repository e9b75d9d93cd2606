package handlers_test

import (
	"context"
	"net/http"
	"testing"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"naxovate-backend/internal/handlers"
	"naxovate-backend/internal/models"
	"naxovate-backend/internal/realtime"
	"naxovate-backend/internal/services"
)

type fakeSupport struct {
	authErr   error
	lastReply string
	status    string
}

func (f *fakeSupport) CreateTicket(_ context.Context, id services.Identity, req models.CreateTicketRequest) (*models.TicketResponse, error) {
	if len(req.Subject) > 200 {
		return nil, services.ErrInvalidInput
	}
	t := models.SupportTicket{ID: uuid.New(), UserID: id.UserID, Subject: req.Subject, Status: "open", Priority: "medium"}
	return &models.TicketResponse{
		Ticket:   t,
		Messages: []models.SupportMessage{{ID: uuid.New(), TicketID: t.ID, SenderID: id.UserID, Message: req.Message}},
	}, nil
}

func (f *fakeSupport) ListTickets(_ context.Context, id services.Identity) (*models.TicketListResponse, error) {
	return &models.TicketListResponse{Tickets: []models.SupportTicket{{ID: uuid.New(), UserID: id.UserID}}}, nil
}

func (f *fakeSupport) Authorize(_ context.Context, _ services.Identity, _ uuid.UUID) error {
	return f.authErr
}

func (f *fakeSupport) Messages(_ context.Context, _ services.Identity, ticketID uuid.UUID) (*models.MessageListResponse, error) {
	if f.authErr != nil {
		return nil, f.authErr
	}
	return &models.MessageListResponse{Messages: []models.SupportMessage{{TicketID: ticketID, Message: "hello"}}}, nil
}

func (f *fakeSupport) Reply(_ context.Context, id services.Identity, ticketID uuid.UUID, text string) (*models.SupportMessage, error) {
	f.lastReply = text
	return &models.SupportMessage{ID: uuid.New(), TicketID: ticketID, SenderID: id.UserID, Message: text}, nil
}

func (f *fakeSupport) UpdateStatus(_ context.Context, ticketID uuid.UUID, status string) (*models.SupportTicket, error) {
	if !models.ValidTicketStatus(status) {
		return nil, services.ErrInvalidInput
	}
	f.status = status
	return &models.SupportTicket{ID: ticketID, Status: status}, nil
}

type fakeStreamer struct{ topic string }

func (f *fakeStreamer) Serve(w http.ResponseWriter, _ *http.Request, topic string, _ logrus.FieldLogger) {
	f.topic = topic
	w.WriteHeader(http.StatusOK)
}

func supportRouter(svc *fakeSupport, stream *fakeStreamer) http.Handler {
	h := handlers.NewSupportHandler(svc, stream, quietLog())
	router := newRouter()
	router.Use(asUser(userID, "jane@example.com"))
	router.POST("/support/tickets", h.CreateTicket)
	router.GET("/support/tickets", h.ListTickets)
	router.GET("/support/tickets/:ticket_id/messages", h.ListMessages)
	router.POST("/support/tickets/:ticket_id/messages", h.Reply)
	router.GET("/support/tickets/:ticket_id/stream", h.Stream)
	return router
}

func TestCreateTicket(t *testing.T) {
	w := doJSON(t, supportRouter(&fakeSupport{}, &fakeStreamer{}), http.MethodPost, "/support/tickets",
		models.CreateTicketRequest{Subject: "Billing question", Message: "Was I charged twice?"})

	require.Equal(t, http.StatusCreated, w.Code)
	var resp models.TicketResponse
	decode(t, w, &resp)
	assert.Equal(t, "Billing question", resp.Ticket.Subject)
	assert.Len(t, resp.Messages, 1)
}

func TestCreateTicket_MissingFields(t *testing.T) {
	w := doJSON(t, supportRouter(&fakeSupport{}, &fakeStreamer{}), http.MethodPost, "/support/tickets",
		map[string]string{"subject": "no message"})

	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestListTicketsAndMessages(t *testing.T) {
	router := supportRouter(&fakeSupport{}, &fakeStreamer{})

	w := doJSON(t, router, http.MethodGet, "/support/tickets", nil)
	assert.Equal(t, http.StatusOK, w.Code)

	w = doJSON(t, router, http.MethodGet, "/support/tickets/"+uuid.NewString()+"/messages", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "hello")
}

func TestReply(t *testing.T) {
	svc := &fakeSupport{}
	w := doJSON(t, supportRouter(svc, &fakeStreamer{}), http.MethodPost,
		"/support/tickets/"+uuid.NewString()+"/messages", models.ReplyRequest{Message: "Any update?"})

	assert.Equal(t, http.StatusCreated, w.Code)
	assert.Equal(t, "Any update?", svc.lastReply)
}

func TestStream_SubscribesToTicketTopic(t *testing.T) {
	stream := &fakeStreamer{}
	ticketID := uuid.New()

	w := doJSON(t, supportRouter(&fakeSupport{}, stream), http.MethodGet, "/support/tickets/"+ticketID.String()+"/stream", nil)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, realtime.TicketTopic(ticketID), stream.topic)
}

func TestStream_ForeignTicket(t *testing.T) {
	stream := &fakeStreamer{}

	w := doJSON(t, supportRouter(&fakeSupport{authErr: services.ErrNotFound}, stream), http.MethodGet,
		"/support/tickets/"+uuid.NewString()+"/stream", nil)

	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Empty(t, stream.topic)
}
