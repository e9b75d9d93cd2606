package services

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"naxovate-backend/internal/models"
	"naxovate-backend/internal/realtime"
)

const (
	maxSubjectLength = 200
	maxMessageLength = 5000
)

type SupportService struct {
	accounts *ProfileService
	tickets  SupportStore
	events   realtime.Publisher
	log      logrus.FieldLogger
}

func NewSupportService(accounts *ProfileService, tickets SupportStore, events realtime.Publisher, log logrus.FieldLogger) *SupportService {
	return &SupportService{
		accounts: accounts,
		tickets:  tickets,
		events:   events,
		log:      log,
	}
}

func (s *SupportService) publish(ticketID uuid.UUID, event string, payload interface{}) {
	s.events.Publish(realtime.TicketTopic(ticketID), event, payload)
	s.events.Publish(realtime.TopicAdmin, event, payload)
}

func (s *SupportService) CreateTicket(ctx context.Context, id Identity, req models.CreateTicketRequest) (*models.TicketResponse, error) {
	subject := strings.TrimSpace(req.Subject)
	message := strings.TrimSpace(req.Message)
	priority := strings.ToLower(strings.TrimSpace(req.Priority))
	if priority == "" {
		priority = models.PriorityMedium
	}

	switch {
	case subject == "":
		return nil, invalid("subject is required")
	case len(subject) > maxSubjectLength:
		return nil, invalid("subject must be at most %d characters", maxSubjectLength)
	case message == "":
		return nil, invalid("message is required")
	case len(message) > maxMessageLength:
		return nil, invalid("message must be at most %d characters", maxMessageLength)
	case !models.ValidTicketPriority(priority):
		return nil, invalid("unknown priority %q", req.Priority)
	}

	acct, err := s.accounts.ActiveAccount(ctx, id)
	if err != nil {
		return nil, err
	}

	ticket, first, err := s.tickets.CreateTicket(ctx, acct.Profile.ID, subject, priority, message)
	if err != nil {
		return nil, err
	}

	s.log.WithFields(logrus.Fields{
		"user_id":   acct.Profile.ID,
		"ticket_id": ticket.ID,
		"priority":  priority,
	}).Info("support ticket created")
	s.publish(ticket.ID, realtime.EventTicketCreated, ticket)

	return &models.TicketResponse{Ticket: *ticket, Messages: []models.SupportMessage{*first}}, nil
}

// ListTickets returns every ticket for admins and the caller's own otherwise.
func (s *SupportService) ListTickets(ctx context.Context, id Identity) (*models.TicketListResponse, error) {
	acct, err := s.accounts.Account(ctx, id)
	if err != nil {
		return nil, err
	}

	var filter *uuid.UUID
	if !acct.Profile.IsAdmin {
		filter = &acct.Profile.ID
	}
	tickets, err := s.tickets.ListTickets(ctx, filter)
	if err != nil {
		return nil, err
	}
	return &models.TicketListResponse{Tickets: tickets}, nil
}

// ticket loads a ticket visible to the caller. Other users' tickets look
// missing rather than forbidden.
func (s *SupportService) ticket(ctx context.Context, id Identity, ticketID uuid.UUID) (*Account, *models.SupportTicket, error) {
	acct, err := s.accounts.Account(ctx, id)
	if err != nil {
		return nil, nil, err
	}
	ticket, err := s.tickets.GetTicket(ctx, ticketID)
	if err != nil {
		return nil, nil, repoErr(err, "ticket")
	}
	if ticket.UserID != acct.Profile.ID && !acct.Profile.IsAdmin {
		return nil, nil, fmt.Errorf("ticket: %w", ErrNotFound)
	}
	return acct, ticket, nil
}

// Authorize reports whether the caller may follow a ticket's live updates.
func (s *SupportService) Authorize(ctx context.Context, id Identity, ticketID uuid.UUID) error {
	_, _, err := s.ticket(ctx, id, ticketID)
	return err
}

func (s *SupportService) Messages(ctx context.Context, id Identity, ticketID uuid.UUID) (*models.MessageListResponse, error) {
	if _, _, err := s.ticket(ctx, id, ticketID); err != nil {
		return nil, err
	}
	msgs, err := s.tickets.ListMessages(ctx, ticketID)
	if err != nil {
		return nil, err
	}
	return &models.MessageListResponse{Messages: msgs}, nil
}

// Reply appends a message. An admin answering an open ticket moves it to
// in_progress; users cannot reply once a ticket is closed.
func (s *SupportService) Reply(ctx context.Context, id Identity, ticketID uuid.UUID, text string) (*models.SupportMessage, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil, invalid("message is required")
	}
	if len(text) > maxMessageLength {
		return nil, invalid("message must be at most %d characters", maxMessageLength)
	}

	acct, ticket, err := s.ticket(ctx, id, ticketID)
	if err != nil {
		return nil, err
	}
	if acct.Profile.IsLocked {
		return nil, fmt.Errorf("%w: account is locked", ErrForbidden)
	}

	isAdmin := acct.Profile.IsAdmin
	if ticket.Status == models.TicketClosed && !isAdmin {
		return nil, invalid("ticket is closed")
	}

	status := ""
	if isAdmin && ticket.Status == models.TicketOpen {
		status = models.TicketInProgress
	}

	msg, updated, err := s.tickets.AddMessage(ctx, ticketID, acct.Profile.ID, text, isAdmin, status)
	if err != nil {
		return nil, repoErr(err, "ticket")
	}

	s.publish(ticketID, realtime.EventMessageCreated, msg)
	if updated != nil && updated.Status != ticket.Status {
		s.publish(ticketID, realtime.EventTicketUpdated, updated)
	}
	return msg, nil
}

// UpdateStatus is admin only; the route is guarded by RequireAdmin.
func (s *SupportService) UpdateStatus(ctx context.Context, ticketID uuid.UUID, status string) (*models.SupportTicket, error) {
	status = strings.ToLower(strings.TrimSpace(status))
	if !models.ValidTicketStatus(status) {
		return nil, invalid("unknown status %q", status)
	}

	ticket, err := s.tickets.UpdateTicketStatus(ctx, ticketID, status)
	if err != nil {
		return nil, repoErr(err, "ticket")
	}

	s.log.WithFields(logrus.Fields{
		"ticket_id": ticketID,
		"status":    status,
	}).Info("ticket status updated")
	s.publish(ticketID, realtime.EventTicketUpdated, ticket)
	return ticket, nil
}
