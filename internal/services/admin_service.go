package services

import (
	"context"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"naxovate-backend/internal/models"
	"naxovate-backend/internal/plans"
	"naxovate-backend/internal/realtime"
)

var featurePattern = regexp.MustCompile(`^[a-z0-9_.-]{1,64}$`)

type AdminService struct {
	profiles ProfileStore
	subs     SubscriptionStore
	images   ImageStore
	store    ObjectStore
	flags    FeatureFlagStore
	catalog  *plans.Catalog
	events   realtime.Publisher
	log      logrus.FieldLogger
	now      func() time.Time
}

// NewAdminService accepts a nil flag store when PostgREST is not configured.
func NewAdminService(
	profiles ProfileStore,
	subs SubscriptionStore,
	images ImageStore,
	store ObjectStore,
	flags FeatureFlagStore,
	catalog *plans.Catalog,
	events realtime.Publisher,
	log logrus.FieldLogger,
) *AdminService {
	return &AdminService{
		profiles: profiles,
		subs:     subs,
		images:   images,
		store:    store,
		flags:    flags,
		catalog:  catalog,
		events:   events,
		log:      log,
		now:      time.Now,
	}
}

// Stats summarizes the dashboard. Revenue is estimated from the catalog
// price of every active premium subscription.
func (s *AdminService) Stats(ctx context.Context) (*models.Stats, error) {
	stats, err := s.profiles.Stats(ctx)
	if err != nil {
		return nil, err
	}

	limits, err := s.subs.ActivePremiumLimits(ctx)
	if err != nil {
		return nil, err
	}
	for _, limit := range limits {
		stats.MonthlyRevenueCents += s.catalog.MonthlyRevenue(limit)
	}
	return stats, nil
}

func (s *AdminService) Users(ctx context.Context) (*models.UserListResponse, error) {
	users, err := s.profiles.ListUsers(ctx)
	if err != nil {
		return nil, err
	}
	return &models.UserListResponse{Users: users}, nil
}

// SetPlan grants a plan without going through Stripe. The free plan is
// stored as canceled with no allowance; paid plans start a new period.
func (s *AdminService) SetPlan(ctx context.Context, userID uuid.UUID, planKey string) (*models.Subscription, error) {
	plan, ok := s.catalog.Get(strings.ToLower(strings.TrimSpace(planKey)))
	if !ok {
		return nil, invalid("unknown plan %q", planKey)
	}
	if _, err := s.profiles.GetProfile(ctx, userID); err != nil {
		return nil, repoErr(err, "user")
	}

	change := models.PlanChange{
		Plan:    plan.Tier,
		PlanKey: plan.Key,
		Status:  models.SubscriptionCanceled,
	}
	if plan.IsPaid() {
		start := s.now().UTC()
		end := start.Add(plan.Period())
		change.Status = models.SubscriptionActive
		change.ImageLimit = plan.ImageLimit
		change.PeriodStart = &start
		change.PeriodEnd = &end
	}

	sub, err := s.subs.ApplyPlan(ctx, userID, change)
	if err != nil {
		return nil, repoErr(err, "subscription")
	}

	s.log.WithFields(logrus.Fields{
		"user_id": userID,
		"plan":    plan.Key,
	}).Info("plan set by admin")
	s.events.Publish(realtime.TopicAdmin, realtime.EventSubscriptionSaved, sub)
	return sub, nil
}

// DeleteUser removes the user's stored images and then the profile; the
// database cascades to everything else the user owns.
func (s *AdminService) DeleteUser(ctx context.Context, actor, userID uuid.UUID) error {
	if actor == userID {
		return invalid("admins cannot delete their own account")
	}
	profile, err := s.profiles.GetProfile(ctx, userID)
	if err != nil {
		return repoErr(err, "user")
	}
	return s.purger().purge(ctx, profile, actor)
}

func (s *AdminService) purger() userPurger {
	return userPurger{profiles: s.profiles, images: s.images, store: s.store, events: s.events, log: s.log}
}

func (s *AdminService) LockUser(ctx context.Context, actor, userID uuid.UUID, locked bool) error {
	if actor == userID {
		return invalid("admins cannot lock their own account")
	}
	if err := s.profiles.SetProfileLocked(ctx, userID, locked); err != nil {
		return repoErr(err, "user")
	}

	s.log.WithFields(logrus.Fields{
		"user_id": userID,
		"locked":  locked,
	}).Info("user lock changed")
	s.events.Publish(realtime.TopicAdmin, realtime.EventUserUpdated, map[string]interface{}{
		"id":        userID,
		"is_locked": locked,
	})
	return nil
}

func (s *AdminService) FeatureFlags(ctx context.Context) (*models.FeatureFlagListResponse, error) {
	if s.flags == nil {
		return nil, ErrNotConfigured
	}
	flags, err := s.flags.ListFeatureFlags(ctx)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUpstream, err)
	}
	return &models.FeatureFlagListResponse{Flags: flags}, nil
}

func (s *AdminService) SetFeatureFlag(ctx context.Context, feature string, enabled bool) (*models.FeatureFlag, error) {
	if !featurePattern.MatchString(feature) {
		return nil, invalid("invalid feature name %q", feature)
	}
	if s.flags == nil {
		return nil, ErrNotConfigured
	}
	flag, err := s.flags.SetFeatureFlag(ctx, feature, enabled)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUpstream, err)
	}
	s.log.WithFields(logrus.Fields{
		"feature": feature,
		"enabled": enabled,
	}).Info("feature flag updated")
	return flag, nil
}
