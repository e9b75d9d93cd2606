package supabase

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"naxovate-backend/internal/models"
)

const subscriptionColumns = `id, user_id, plan, plan_key, status, images_generated, storage_used, image_limit,
	current_period_start, current_period_end, cancel_at_period_end,
	stripe_customer_id, stripe_subscription_id, created_at, updated_at`

func (d *DatabaseClient) GetSubscription(ctx context.Context, userID uuid.UUID) (*models.Subscription, error) {
	var s models.Subscription
	err := d.db.GetContext(ctx, &s, `SELECT `+subscriptionColumns+` FROM subscriptions WHERE user_id = $1`, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to get subscription: %w", translate(err))
	}
	return &s, nil
}

func (d *DatabaseClient) GetSubscriptionByStripeID(ctx context.Context, stripeSubscriptionID string) (*models.Subscription, error) {
	var s models.Subscription
	err := d.db.GetContext(ctx, &s,
		`SELECT `+subscriptionColumns+` FROM subscriptions WHERE stripe_subscription_id = $1`,
		stripeSubscriptionID)
	if err != nil {
		return nil, fmt.Errorf("failed to get subscription: %w", translate(err))
	}
	return &s, nil
}

// ReserveGenerations atomically takes n credits from the current period. The
// update only matches an active premium row with enough room left, so two
// concurrent requests can never overspend the limit.
func (d *DatabaseClient) ReserveGenerations(ctx context.Context, userID uuid.UUID, n int, now time.Time) (*models.Subscription, error) {
	var s models.Subscription
	err := d.db.GetContext(ctx, &s, `
		UPDATE subscriptions
		SET images_generated = images_generated + $2
		WHERE user_id = $1
		  AND plan = 'premium'
		  AND status IN ('active', 'trialing')
		  AND (current_period_end IS NULL OR current_period_end > $3)
		  AND images_generated + $2 <= image_limit
		RETURNING `+subscriptionColumns,
		userID, n, now)
	if err != nil {
		if errors.Is(translate(err), ErrNotFound) {
			return nil, ErrLimitReached
		}
		return nil, fmt.Errorf("failed to reserve generations: %w", err)
	}
	return &s, nil
}

// ReleaseGenerations gives back previously reserved credits.
func (d *DatabaseClient) ReleaseGenerations(ctx context.Context, userID uuid.UUID, n int) error {
	_, err := d.db.ExecContext(ctx, `
		UPDATE subscriptions
		SET images_generated = GREATEST(images_generated - $2, 0)
		WHERE user_id = $1
	`, userID, n)
	if err != nil {
		return fmt.Errorf("failed to release generations: %w", err)
	}
	return nil
}

// AddStorage accounts bytes against the user's quota, refusing to exceed limit.
func (d *DatabaseClient) AddStorage(ctx context.Context, userID uuid.UUID, bytes, limit int64) error {
	res, err := d.db.ExecContext(ctx, `
		UPDATE subscriptions
		SET storage_used = storage_used + $2
		WHERE user_id = $1 AND storage_used + $2 <= $3
	`, userID, bytes, limit)
	if err != nil {
		return fmt.Errorf("failed to add storage: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to add storage: %w", err)
	}
	if n == 0 {
		return ErrLimitReached
	}
	return nil
}

func (d *DatabaseClient) ReleaseStorage(ctx context.Context, userID uuid.UUID, bytes int64) error {
	_, err := d.db.ExecContext(ctx, `
		UPDATE subscriptions
		SET storage_used = GREATEST(storage_used - $2, 0)
		WHERE user_id = $1
	`, userID, bytes)
	if err != nil {
		return fmt.Errorf("failed to release storage: %w", err)
	}
	return nil
}

// ApplyPlan starts a new billing period for the user, creating the row when
// needed. The generation counter is reset; stored bytes are kept.
func (d *DatabaseClient) ApplyPlan(ctx context.Context, userID uuid.UUID, change models.PlanChange) (*models.Subscription, error) {
	var s models.Subscription
	err := d.db.GetContext(ctx, &s, `
		INSERT INTO subscriptions (user_id, plan, plan_key, status, image_limit, images_generated,
			current_period_start, current_period_end, cancel_at_period_end,
			stripe_customer_id, stripe_subscription_id)
		VALUES ($1, $2, $3, $4, $5, 0, $6, $7, FALSE, $8, $9)
		ON CONFLICT (user_id) DO UPDATE SET
			plan = EXCLUDED.plan,
			plan_key = EXCLUDED.plan_key,
			status = EXCLUDED.status,
			image_limit = EXCLUDED.image_limit,
			images_generated = 0,
			current_period_start = EXCLUDED.current_period_start,
			current_period_end = EXCLUDED.current_period_end,
			cancel_at_period_end = FALSE,
			stripe_customer_id = COALESCE(EXCLUDED.stripe_customer_id, subscriptions.stripe_customer_id),
			stripe_subscription_id = COALESCE(EXCLUDED.stripe_subscription_id, subscriptions.stripe_subscription_id)
		RETURNING `+subscriptionColumns,
		userID, change.Plan, change.PlanKey, change.Status, change.ImageLimit,
		change.PeriodStart, change.PeriodEnd, change.StripeCustomerID, change.StripeSubscriptionID)
	if err != nil {
		return nil, fmt.Errorf("failed to apply plan: %w", translate(err))
	}
	return &s, nil
}

// SyncStripeSubscription mirrors a processor-side subscription update. A new
// period start means the subscription renewed, which resets the counter.
func (d *DatabaseClient) SyncStripeSubscription(ctx context.Context, stripeSubscriptionID, status string, periodStart, periodEnd *time.Time, cancelAtPeriodEnd bool) (*models.Subscription, error) {
	var s models.Subscription
	err := d.db.GetContext(ctx, &s, `
		UPDATE subscriptions
		SET status = $2,
		    images_generated = CASE
		        WHEN current_period_start IS DISTINCT FROM $3 THEN 0
		        ELSE images_generated
		    END,
		    current_period_start = $3,
		    current_period_end = $4,
		    cancel_at_period_end = $5
		WHERE stripe_subscription_id = $1
		RETURNING `+subscriptionColumns,
		stripeSubscriptionID, status, periodStart, periodEnd, cancelAtPeriodEnd)
	if err != nil {
		return nil, fmt.Errorf("failed to sync subscription: %w", translate(err))
	}
	return &s, nil
}

func (d *DatabaseClient) SetCancelAtPeriodEnd(ctx context.Context, userID uuid.UUID, cancel bool) error {
	res, err := d.db.ExecContext(ctx,
		`UPDATE subscriptions SET cancel_at_period_end = $2 WHERE user_id = $1`,
		userID, cancel)
	if err != nil {
		return fmt.Errorf("failed to update subscription: %w", err)
	}
	return requireRow(res, "update subscription")
}

// DowngradeToFree moves the user back to the free plan.
func (d *DatabaseClient) DowngradeToFree(ctx context.Context, userID uuid.UUID) error {
	res, err := d.db.ExecContext(ctx, `
		UPDATE subscriptions
		SET plan = 'free', plan_key = 'free', status = 'canceled', image_limit = 0,
		    cancel_at_period_end = FALSE, stripe_subscription_id = NULL
		WHERE user_id = $1
	`, userID)
	if err != nil {
		return fmt.Errorf("failed to downgrade subscription: %w", err)
	}
	return requireRow(res, "downgrade subscription")
}

// RolloverExpired closes out subscriptions whose period has ended. Those set
// to cancel drop to free; the rest are marked past_due until the processor
// reports a renewal.
func (d *DatabaseClient) RolloverExpired(ctx context.Context, now time.Time) (downgraded, pastDue int64, err error) {
	res, err := d.db.ExecContext(ctx, `
		UPDATE subscriptions
		SET plan = 'free', plan_key = 'free', status = 'canceled', image_limit = 0,
		    cancel_at_period_end = FALSE, stripe_subscription_id = NULL
		WHERE plan = 'premium' AND cancel_at_period_end AND current_period_end <= $1
	`, now)
	if err != nil {
		return 0, 0, fmt.Errorf("failed to downgrade expired subscriptions: %w", err)
	}
	if downgraded, err = res.RowsAffected(); err != nil {
		return 0, 0, err
	}

	res, err = d.db.ExecContext(ctx, `
		UPDATE subscriptions
		SET status = 'past_due'
		WHERE plan = 'premium' AND status = 'active' AND current_period_end <= $1
	`, now)
	if err != nil {
		return downgraded, 0, fmt.Errorf("failed to mark past due subscriptions: %w", err)
	}
	if pastDue, err = res.RowsAffected(); err != nil {
		return downgraded, 0, err
	}
	return downgraded, pastDue, nil
}

// ActivePremiumLimits returns the image limit of every active premium
// subscription, used for the revenue estimate.
func (d *DatabaseClient) ActivePremiumLimits(ctx context.Context) ([]int, error) {
	limits := []int{}
	err := d.db.SelectContext(ctx, &limits,
		`SELECT image_limit FROM subscriptions WHERE plan = 'premium' AND status = 'active'`)
	if err != nil {
		return nil, fmt.Errorf("failed to list premium subscriptions: %w", err)
	}
	return limits, nil
}
