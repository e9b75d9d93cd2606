// Package billing talks to Stripe: hosted checkout, cancellation and
// webhook verification.
package billing

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/stripe/stripe-go/v79"
	"github.com/stripe/stripe-go/v79/client"
	"github.com/stripe/stripe-go/v79/webhook"
)

const (
	EventCheckoutCompleted    = "checkout.session.completed"
	EventSubscriptionUpdated  = "customer.subscription.updated"
	EventSubscriptionDeleted  = "customer.subscription.deleted"
	metadataUserID            = "user_id"
	metadataPlanKey           = "plan_key"
	checkoutSessionIDTemplate = "{CHECKOUT_SESSION_ID}"
)

var (
	ErrInvalidSignature = errors.New("invalid webhook signature")
	ErrNotConfigured    = errors.New("stripe is not configured")
)

type CheckoutParams struct {
	UserID  string
	Email   string
	PlanKey string
	PriceID string
	BaseURL string
}

type CheckoutSession struct {
	ID  string
	URL string
}

// SubscriptionState is the part of a Stripe subscription mirrored into the
// subscriptions table.
type SubscriptionState struct {
	ID                string
	CustomerID        string
	Status            string
	PriceID           string
	UserID            string
	PlanKey           string
	PeriodStart       time.Time
	PeriodEnd         time.Time
	CancelAtPeriodEnd bool
}

type CheckoutCompleted struct {
	SessionID      string
	UserID         string
	PlanKey        string
	CustomerID     string
	SubscriptionID string
}

// Event is a verified webhook event. Exactly one of Checkout and
// Subscription is set for the handled event types.
type Event struct {
	ID           string
	Type         string
	Checkout     *CheckoutCompleted
	Subscription *SubscriptionState
}

type StripeGateway struct {
	api           *client.API
	webhookSecret string
}

func NewStripeGateway(secretKey, webhookSecret string) (*StripeGateway, error) {
	if secretKey == "" {
		return nil, ErrNotConfigured
	}
	sc := &client.API{}
	sc.Init(secretKey, nil)
	return &StripeGateway{api: sc, webhookSecret: webhookSecret}, nil
}

func (g *StripeGateway) CreateCheckoutSession(ctx context.Context, p CheckoutParams) (*CheckoutSession, error) {
	base := strings.TrimSuffix(p.BaseURL, "/")
	params := &stripe.CheckoutSessionParams{
		Mode:               stripe.String(string(stripe.CheckoutSessionModeSubscription)),
		PaymentMethodTypes: stripe.StringSlice([]string{"card"}),
		LineItems: []*stripe.CheckoutSessionLineItemParams{
			{Price: stripe.String(p.PriceID), Quantity: stripe.Int64(1)},
		},
		SuccessURL:        stripe.String(base + "/subscription/success?session_id=" + checkoutSessionIDTemplate),
		CancelURL:         stripe.String(base + "/subscription/cancel"),
		ClientReferenceID: stripe.String(p.UserID),
		SubscriptionData: &stripe.CheckoutSessionSubscriptionDataParams{
			Metadata: map[string]string{
				metadataUserID:  p.UserID,
				metadataPlanKey: p.PlanKey,
			},
		},
	}
	if p.Email != "" {
		params.CustomerEmail = stripe.String(p.Email)
	}
	params.Context = ctx
	params.AddMetadata(metadataUserID, p.UserID)
	params.AddMetadata(metadataPlanKey, p.PlanKey)

	s, err := g.api.CheckoutSessions.New(params)
	if err != nil {
		return nil, fmt.Errorf("failed to create checkout session: %w", err)
	}
	return &CheckoutSession{ID: s.ID, URL: s.URL}, nil
}

func (g *StripeGateway) CancelAtPeriodEnd(ctx context.Context, subscriptionID string) (*SubscriptionState, error) {
	params := &stripe.SubscriptionParams{CancelAtPeriodEnd: stripe.Bool(true)}
	params.Context = ctx

	sub, err := g.api.Subscriptions.Update(subscriptionID, params)
	if err != nil {
		return nil, fmt.Errorf("failed to cancel subscription: %w", err)
	}
	return subscriptionState(sub), nil
}

func (g *StripeGateway) GetSubscription(ctx context.Context, subscriptionID string) (*SubscriptionState, error) {
	params := &stripe.SubscriptionParams{}
	params.Context = ctx

	sub, err := g.api.Subscriptions.Get(subscriptionID, params)
	if err != nil {
		return nil, fmt.Errorf("failed to get subscription: %w", err)
	}
	return subscriptionState(sub), nil
}

func (g *StripeGateway) ParseEvent(payload []byte, signature string) (*Event, error) {
	return ParseEvent(payload, signature, g.webhookSecret)
}

// ParseEvent verifies the Stripe-Signature header and decodes the event
// types the subscription flow cares about.
func ParseEvent(payload []byte, signature, secret string) (*Event, error) {
	if secret == "" {
		return nil, ErrNotConfigured
	}
	evt, err := webhook.ConstructEventWithOptions(payload, signature, secret, webhook.ConstructEventOptions{
		IgnoreAPIVersionMismatch: true,
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidSignature, err)
	}

	out := &Event{ID: evt.ID, Type: string(evt.Type)}
	if evt.Data == nil {
		return out, nil
	}

	switch out.Type {
	case EventCheckoutCompleted:
		var s stripe.CheckoutSession
		if err := json.Unmarshal(evt.Data.Raw, &s); err != nil {
			return nil, fmt.Errorf("failed to decode checkout session: %w", err)
		}
		out.Checkout = &CheckoutCompleted{
			SessionID: s.ID,
			UserID:    firstNonEmpty(s.Metadata[metadataUserID], s.ClientReferenceID),
			PlanKey:   s.Metadata[metadataPlanKey],
		}
		if s.Customer != nil {
			out.Checkout.CustomerID = s.Customer.ID
		}
		if s.Subscription != nil {
			out.Checkout.SubscriptionID = s.Subscription.ID
		}
	case EventSubscriptionUpdated, EventSubscriptionDeleted:
		var sub stripe.Subscription
		if err := json.Unmarshal(evt.Data.Raw, &sub); err != nil {
			return nil, fmt.Errorf("failed to decode subscription: %w", err)
		}
		out.Subscription = subscriptionState(&sub)
	}
	return out, nil
}

func subscriptionState(sub *stripe.Subscription) *SubscriptionState {
	st := &SubscriptionState{
		ID:                sub.ID,
		Status:            string(sub.Status),
		CancelAtPeriodEnd: sub.CancelAtPeriodEnd,
		UserID:            sub.Metadata[metadataUserID],
		PlanKey:           sub.Metadata[metadataPlanKey],
	}
	if sub.CurrentPeriodStart > 0 {
		st.PeriodStart = time.Unix(sub.CurrentPeriodStart, 0).UTC()
	}
	if sub.CurrentPeriodEnd > 0 {
		st.PeriodEnd = time.Unix(sub.CurrentPeriodEnd, 0).UTC()
	}
	if sub.Customer != nil {
		st.CustomerID = sub.Customer.ID
	}
	if sub.Items != nil {
		for _, item := range sub.Items.Data {
			if item != nil && item.Price != nil {
				st.PriceID = item.Price.ID
				break
			}
		}
	}
	return st
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
