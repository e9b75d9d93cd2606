package models

import (
	"time"

	"github.com/google/uuid"
)

const (
	SubscriptionActive   = "active"
	SubscriptionCanceled = "canceled"
	SubscriptionPastDue  = "past_due"
	SubscriptionTrialing = "trialing"
)

type Subscription struct {
	ID                   uuid.UUID  `db:"id" json:"id"`
	UserID               uuid.UUID  `db:"user_id" json:"user_id"`
	Plan                 string     `db:"plan" json:"plan"`
	PlanKey              string     `db:"plan_key" json:"plan_key"`
	Status               string     `db:"status" json:"status"`
	ImagesGenerated      int        `db:"images_generated" json:"images_generated"`
	StorageUsed          int64      `db:"storage_used" json:"storage_used"`
	ImageLimit           int        `db:"image_limit" json:"image_limit"`
	CurrentPeriodStart   *time.Time `db:"current_period_start" json:"current_period_start,omitempty"`
	CurrentPeriodEnd     *time.Time `db:"current_period_end" json:"current_period_end,omitempty"`
	CancelAtPeriodEnd    bool       `db:"cancel_at_period_end" json:"cancel_at_period_end"`
	StripeCustomerID     *string    `db:"stripe_customer_id" json:"-"`
	StripeSubscriptionID *string    `db:"stripe_subscription_id" json:"-"`
	CreatedAt            time.Time  `db:"created_at" json:"created_at"`
	UpdatedAt            time.Time  `db:"updated_at" json:"updated_at"`
}

// PlanChange describes a new billing period for a subscription. Counters are
// reset whenever one is applied.
type PlanChange struct {
	Plan                 string
	PlanKey              string
	Status               string
	ImageLimit           int
	PeriodStart          *time.Time
	PeriodEnd            *time.Time
	StripeCustomerID     *string
	StripeSubscriptionID *string
}
