package models

import (
	"time"

	"github.com/google/uuid"
)

const (
	TicketOpen       = "open"
	TicketInProgress = "in_progress"
	TicketClosed     = "closed"

	PriorityLow    = "low"
	PriorityMedium = "medium"
	PriorityHigh   = "high"
	PriorityUrgent = "urgent"
)

func ValidTicketStatus(s string) bool {
	switch s {
	case TicketOpen, TicketInProgress, TicketClosed:
		return true
	}
	return false
}

func ValidTicketPriority(p string) bool {
	switch p {
	case PriorityLow, PriorityMedium, PriorityHigh, PriorityUrgent:
		return true
	}
	return false
}

type SupportTicket struct {
	ID        uuid.UUID `db:"id" json:"id"`
	UserID    uuid.UUID `db:"user_id" json:"user_id"`
	Subject   string    `db:"subject" json:"subject"`
	Status    string    `db:"status" json:"status"`
	Priority  string    `db:"priority" json:"priority"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
	UpdatedAt time.Time `db:"updated_at" json:"updated_at"`
}

// SupportMessage rows are append-only.
type SupportMessage struct {
	ID           uuid.UUID `db:"id" json:"id"`
	TicketID     uuid.UUID `db:"ticket_id" json:"ticket_id"`
	SenderID     uuid.UUID `db:"sender_id" json:"sender_id"`
	Message      string    `db:"message" json:"message"`
	IsAdminReply bool      `db:"is_admin_reply" json:"is_admin_reply"`
	CreatedAt    time.Time `db:"created_at" json:"created_at"`
}
