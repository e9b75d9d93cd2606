package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"naxovate-backend/internal/billing"
	"naxovate-backend/internal/metrics"
	"naxovate-backend/internal/models"
	"naxovate-backend/internal/plans"
	"naxovate-backend/internal/realtime"
	"naxovate-backend/internal/supabase"
)

// BillingService proxies the subscription flow to Stripe and mirrors the
// processor state into the subscriptions table.
type BillingService struct {
	accounts *ProfileService
	subs     SubscriptionStore
	gateway  PaymentGateway
	catalog  *plans.Catalog
	baseURL  string
	events   realtime.Publisher
	log      logrus.FieldLogger
	now      func() time.Time
}

// NewBillingService accepts a nil gateway; every Stripe operation then
// fails with ErrNotConfigured.
func NewBillingService(
	accounts *ProfileService,
	subs SubscriptionStore,
	gateway PaymentGateway,
	catalog *plans.Catalog,
	publicBaseURL string,
	events realtime.Publisher,
	log logrus.FieldLogger,
) *BillingService {
	return &BillingService{
		accounts: accounts,
		subs:     subs,
		gateway:  gateway,
		catalog:  catalog,
		baseURL:  strings.TrimSuffix(publicBaseURL, "/"),
		events:   events,
		log:      log,
		now:      time.Now,
	}
}

func (s *BillingService) Plans() []plans.Plan {
	return s.catalog.Paid()
}

func (s *BillingService) Checkout(ctx context.Context, id Identity, planKey string) (*models.CheckoutResponse, error) {
	plan, ok := s.catalog.Get(strings.ToLower(strings.TrimSpace(planKey)))
	if !ok || !plan.IsPaid() {
		return nil, invalid("unknown plan %q", planKey)
	}
	if plan.StripePriceID == "" {
		return nil, invalid("plan %q cannot be purchased", plan.Key)
	}
	if s.gateway == nil {
		return nil, ErrNotConfigured
	}

	acct, err := s.accounts.ActiveAccount(ctx, id)
	if err != nil {
		return nil, err
	}

	session, err := s.gateway.CreateCheckoutSession(ctx, billing.CheckoutParams{
		UserID:  acct.Profile.ID.String(),
		Email:   acct.Profile.Email,
		PlanKey: plan.Key,
		PriceID: plan.StripePriceID,
		BaseURL: s.baseURL,
	})
	if err != nil {
		s.log.WithError(err).WithField("user_id", acct.Profile.ID).Error("checkout session failed")
		return nil, fmt.Errorf("%w: %v", ErrUpstream, err)
	}

	s.log.WithFields(logrus.Fields{
		"user_id":    acct.Profile.ID,
		"plan":       plan.Key,
		"session_id": session.ID,
	}).Info("checkout session created")
	return &models.CheckoutResponse{SessionID: session.ID, URL: session.URL}, nil
}

// Cancel stops renewal at the end of the current period. Plans granted by
// an admin have no Stripe subscription and are only flagged locally.
func (s *BillingService) Cancel(ctx context.Context, id Identity) (*models.SubscriptionResponse, error) {
	acct, err := s.accounts.Account(ctx, id)
	if err != nil {
		return nil, err
	}
	sub := acct.Subscription
	if sub == nil || sub.Plan != plans.TierPremium || sub.Status == models.SubscriptionCanceled {
		return nil, invalid("no active subscription to cancel")
	}

	if sub.StripeSubscriptionID != nil && *sub.StripeSubscriptionID != "" {
		if s.gateway == nil {
			return nil, ErrNotConfigured
		}
		if _, err := s.gateway.CancelAtPeriodEnd(ctx, *sub.StripeSubscriptionID); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrUpstream, err)
		}
	}

	if err := s.subs.SetCancelAtPeriodEnd(ctx, acct.Profile.ID, true); err != nil {
		return nil, repoErr(err, "subscription")
	}
	sub.CancelAtPeriodEnd = true

	s.log.WithField("user_id", acct.Profile.ID).Info("subscription set to cancel at period end")
	s.events.Publish(realtime.TopicAdmin, realtime.EventSubscriptionSaved, sub)

	resp := acct.Entitlement.Response(sub)
	return &resp, nil
}

// HandleWebhook verifies and applies a Stripe event. Event types outside the
// subscription flow are acknowledged without effect.
func (s *BillingService) HandleWebhook(ctx context.Context, payload []byte, signature string) error {
	if s.gateway == nil {
		return ErrNotConfigured
	}

	evt, err := s.gateway.ParseEvent(payload, signature)
	if err != nil {
		metrics.RecordWebhookEvent("", false)
		if errors.Is(err, billing.ErrNotConfigured) {
			return ErrNotConfigured
		}
		return fmt.Errorf("%w: %v", ErrInvalidInput, err)
	}

	logger := s.log.WithFields(logrus.Fields{
		"event_id":   evt.ID,
		"event_type": evt.Type,
	})

	switch {
	case evt.Checkout != nil:
		err = s.checkoutCompleted(ctx, evt.Checkout)
	case evt.Subscription != nil && evt.Type == billing.EventSubscriptionDeleted:
		err = s.subscriptionDeleted(ctx, evt.Subscription)
	case evt.Subscription != nil:
		err = s.subscriptionUpdated(ctx, evt.Subscription)
	default:
		logger.Debug("ignoring webhook event")
	}

	metrics.RecordWebhookEvent(evt.Type, err == nil)
	if err != nil {
		logger.WithError(err).Error("failed to apply webhook event")
		return err
	}
	logger.Info("webhook event applied")
	return nil
}

func (s *BillingService) checkoutCompleted(ctx context.Context, c *billing.CheckoutCompleted) error {
	userID, err := uuid.Parse(c.UserID)
	if err != nil {
		return invalid("checkout session %s has no valid user reference", c.SessionID)
	}

	var state *billing.SubscriptionState
	if c.SubscriptionID != "" {
		state, err = s.gateway.GetSubscription(ctx, c.SubscriptionID)
		if err != nil {
			s.log.WithError(err).WithField("subscription_id", c.SubscriptionID).Warn("could not load subscription period")
			state = nil
		}
	}

	plan, ok := s.catalog.Get(c.PlanKey)
	if (!ok || !plan.IsPaid()) && state != nil {
		plan, ok = s.catalog.ByPriceID(state.PriceID)
	}
	if !ok || !plan.IsPaid() {
		return invalid("checkout session %s references no paid plan", c.SessionID)
	}

	start := s.now().UTC()
	end := start.Add(plan.Period())
	status := models.SubscriptionActive
	if state != nil {
		if !state.PeriodStart.IsZero() {
			start = state.PeriodStart
		}
		if !state.PeriodEnd.IsZero() {
			end = state.PeriodEnd
		}
		status = subscriptionStatus(state.Status)
	}

	sub, err := s.subs.ApplyPlan(ctx, userID, models.PlanChange{
		Plan:                 plans.TierPremium,
		PlanKey:              plan.Key,
		Status:               status,
		ImageLimit:           plan.ImageLimit,
		PeriodStart:          &start,
		PeriodEnd:            &end,
		StripeCustomerID:     optional(c.CustomerID),
		StripeSubscriptionID: optional(c.SubscriptionID),
	})
	if err != nil {
		return repoErr(err, "subscription")
	}

	s.log.WithFields(logrus.Fields{
		"user_id": userID,
		"plan":    plan.Key,
	}).Info("subscription activated")
	s.events.Publish(realtime.TopicAdmin, realtime.EventSubscriptionSaved, sub)
	return nil
}

func (s *BillingService) subscriptionUpdated(ctx context.Context, st *billing.SubscriptionState) error {
	row, err := s.subs.GetSubscriptionByStripeID(ctx, st.ID)
	if errors.Is(err, supabase.ErrNotFound) {
		// The checkout event has not been applied yet; it carries the full state.
		s.log.WithField("subscription_id", st.ID).Warn("update for unknown subscription")
		return nil
	}
	if err != nil {
		return err
	}

	// A price change is a plan switch and starts a fresh allowance.
	if plan, ok := s.catalog.ByPriceID(st.PriceID); ok && plan.Key != row.PlanKey {
		start, end := st.PeriodStart, st.PeriodEnd
		sub, err := s.subs.ApplyPlan(ctx, row.UserID, models.PlanChange{
			Plan:                 plans.TierPremium,
			PlanKey:              plan.Key,
			Status:               subscriptionStatus(st.Status),
			ImageLimit:           plan.ImageLimit,
			PeriodStart:          timePtr(start),
			PeriodEnd:            timePtr(end),
			StripeSubscriptionID: optional(st.ID),
		})
		if err != nil {
			return repoErr(err, "subscription")
		}
		if st.CancelAtPeriodEnd {
			if err := s.subs.SetCancelAtPeriodEnd(ctx, row.UserID, true); err != nil {
				return repoErr(err, "subscription")
			}
			sub.CancelAtPeriodEnd = true
		}
		s.events.Publish(realtime.TopicAdmin, realtime.EventSubscriptionSaved, sub)
		return nil
	}

	sub, err := s.subs.SyncStripeSubscription(ctx, st.ID, subscriptionStatus(st.Status),
		timePtr(st.PeriodStart), timePtr(st.PeriodEnd), st.CancelAtPeriodEnd)
	if err != nil {
		return repoErr(err, "subscription")
	}
	s.events.Publish(realtime.TopicAdmin, realtime.EventSubscriptionSaved, sub)
	return nil
}

func (s *BillingService) subscriptionDeleted(ctx context.Context, st *billing.SubscriptionState) error {
	row, err := s.subs.GetSubscriptionByStripeID(ctx, st.ID)
	if errors.Is(err, supabase.ErrNotFound) {
		s.log.WithField("subscription_id", st.ID).Warn("delete for unknown subscription")
		return nil
	}
	if err != nil {
		return err
	}

	if err := s.subs.DowngradeToFree(ctx, row.UserID); err != nil {
		return repoErr(err, "subscription")
	}
	s.log.WithField("user_id", row.UserID).Info("subscription ended, downgraded to free")
	s.events.Publish(realtime.TopicAdmin, realtime.EventSubscriptionSaved, map[string]interface{}{
		"user_id": row.UserID,
		"plan":    plans.KeyFree,
		"status":  models.SubscriptionCanceled,
	})
	return nil
}

// subscriptionStatus folds Stripe's statuses onto the ones entitlements
// understand. Anything unpaid counts as past due.
func subscriptionStatus(stripeStatus string) string {
	switch stripeStatus {
	case models.SubscriptionActive, models.SubscriptionTrialing, models.SubscriptionCanceled:
		return stripeStatus
	case "":
		return models.SubscriptionActive
	default:
		return models.SubscriptionPastDue
	}
}

func optional(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

func timePtr(t time.Time) *time.Time {
	if t.IsZero() {
		return nil
	}
	return &t
}
