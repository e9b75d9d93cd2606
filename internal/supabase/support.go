package supabase

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"naxovate-backend/internal/models"
)

const (
	ticketColumns  = `id, user_id, subject, status, priority, created_at, updated_at`
	messageColumns = `id, ticket_id, sender_id, message, is_admin_reply, created_at`
)

// CreateTicket stores a ticket together with its opening message.
func (d *DatabaseClient) CreateTicket(ctx context.Context, userID uuid.UUID, subject, priority, message string) (*models.SupportTicket, *models.SupportMessage, error) {
	var (
		ticket models.SupportTicket
		msg    models.SupportMessage
	)
	err := d.withTx(ctx, func(tx *sqlx.Tx) error {
		if err := tx.GetContext(ctx, &ticket, `
			INSERT INTO support_tickets (user_id, subject, status, priority)
			VALUES ($1, $2, 'open', $3)
			RETURNING `+ticketColumns,
			userID, subject, priority); err != nil {
			return fmt.Errorf("failed to create ticket: %w", err)
		}
		if err := tx.GetContext(ctx, &msg, `
			INSERT INTO support_messages (ticket_id, sender_id, message, is_admin_reply)
			VALUES ($1, $2, $3, FALSE)
			RETURNING `+messageColumns,
			ticket.ID, userID, message); err != nil {
			return fmt.Errorf("failed to create ticket message: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, nil, err
	}
	return &ticket, &msg, nil
}

func (d *DatabaseClient) GetTicket(ctx context.Context, ticketID uuid.UUID) (*models.SupportTicket, error) {
	var t models.SupportTicket
	err := d.db.GetContext(ctx, &t, `SELECT `+ticketColumns+` FROM support_tickets WHERE id = $1`, ticketID)
	if err != nil {
		return nil, fmt.Errorf("failed to get ticket: %w", translate(err))
	}
	return &t, nil
}

// ListTickets returns the tickets of one user, or of everyone when userID is nil.
func (d *DatabaseClient) ListTickets(ctx context.Context, userID *uuid.UUID) ([]models.SupportTicket, error) {
	tickets := []models.SupportTicket{}
	var err error
	if userID == nil {
		err = d.db.SelectContext(ctx, &tickets,
			`SELECT `+ticketColumns+` FROM support_tickets ORDER BY updated_at DESC`)
	} else {
		err = d.db.SelectContext(ctx, &tickets,
			`SELECT `+ticketColumns+` FROM support_tickets WHERE user_id = $1 ORDER BY updated_at DESC`,
			*userID)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to list tickets: %w", err)
	}
	return tickets, nil
}

func (d *DatabaseClient) ListMessages(ctx context.Context, ticketID uuid.UUID) ([]models.SupportMessage, error) {
	messages := []models.SupportMessage{}
	err := d.db.SelectContext(ctx, &messages, `
		SELECT `+messageColumns+`
		FROM support_messages
		WHERE ticket_id = $1
		ORDER BY created_at ASC
	`, ticketID)
	if err != nil {
		return nil, fmt.Errorf("failed to list messages: %w", err)
	}
	return messages, nil
}

// AddMessage appends a message and touches the ticket. When status is not
// empty the ticket moves to it in the same transaction.
func (d *DatabaseClient) AddMessage(ctx context.Context, ticketID, senderID uuid.UUID, message string, isAdminReply bool, status string) (*models.SupportMessage, *models.SupportTicket, error) {
	var (
		msg    models.SupportMessage
		ticket models.SupportTicket
	)
	err := d.withTx(ctx, func(tx *sqlx.Tx) error {
		if err := tx.GetContext(ctx, &msg, `
			INSERT INTO support_messages (ticket_id, sender_id, message, is_admin_reply)
			VALUES ($1, $2, $3, $4)
			RETURNING `+messageColumns,
			ticketID, senderID, message, isAdminReply); err != nil {
			return fmt.Errorf("failed to add message: %w", translate(err))
		}
		if err := tx.GetContext(ctx, &ticket, `
			UPDATE support_tickets
			SET status = COALESCE(NULLIF($2, ''), status), updated_at = NOW()
			WHERE id = $1
			RETURNING `+ticketColumns,
			ticketID, status); err != nil {
			return fmt.Errorf("failed to touch ticket: %w", translate(err))
		}
		return nil
	})
	if err != nil {
		return nil, nil, err
	}
	return &msg, &ticket, nil
}

func (d *DatabaseClient) UpdateTicketStatus(ctx context.Context, ticketID uuid.UUID, status string) (*models.SupportTicket, error) {
	var t models.SupportTicket
	err := d.db.GetContext(ctx, &t, `
		UPDATE support_tickets SET status = $2 WHERE id = $1
		RETURNING `+ticketColumns,
		ticketID, status)
	if err != nil {
		return nil, fmt.Errorf("failed to update ticket: %w", translate(err))
	}
	return &t, nil
}
