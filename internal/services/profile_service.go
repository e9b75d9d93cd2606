package services

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"regexp"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
	"naxovate-backend/internal/models"
	"naxovate-backend/internal/plans"
	"naxovate-backend/internal/quota"
	"naxovate-backend/internal/realtime"
	"naxovate-backend/internal/supabase"
)

var usernamePattern = regexp.MustCompile(`^[a-zA-Z0-9_]{3,40}$`)

const (
	maxNameLength    = 100
	maxBioLength     = 500
	maxWebsiteLength = 200
)

// Account is a profile with its subscription and what it entitles.
type Account struct {
	Profile      *models.Profile
	Subscription *models.Subscription
	Entitlement  quota.Entitlement
}

type ProfileService struct {
	profiles   ProfileStore
	subs       SubscriptionStore
	catalog    *plans.Catalog
	adminEmail string
	events     realtime.Publisher
	log        logrus.FieldLogger
	now        func() time.Time
}

func NewProfileService(
	profiles ProfileStore,
	subs SubscriptionStore,
	catalog *plans.Catalog,
	adminEmail string,
	events realtime.Publisher,
	log logrus.FieldLogger,
) *ProfileService {
	return &ProfileService{
		profiles:   profiles,
		subs:       subs,
		catalog:    catalog,
		adminEmail: strings.ToLower(strings.TrimSpace(adminEmail)),
		events:     events,
		log:        log,
		now:        time.Now,
	}
}

// Ensure returns the caller's profile, creating it together with the free
// subscription on first sign-in.
func (s *ProfileService) Ensure(ctx context.Context, id Identity) (*models.Profile, error) {
	profile, err := s.profiles.GetProfile(ctx, id.UserID)
	if err == nil {
		return profile, nil
	}
	if !errors.Is(err, supabase.ErrNotFound) {
		return nil, err
	}

	email := strings.ToLower(id.Email)
	prefix := emailPrefix(email)
	candidate := &models.Profile{
		ID:       id.UserID,
		Name:     displayName(id.Metadata, prefix),
		Username: fmt.Sprintf("%s_%s", prefix, id.UserID.String()[:8]),
		Email:    email,
		IsAdmin:  s.adminEmail != "" && email == s.adminEmail,
	}

	profile, created, err := s.profiles.EnsureProfile(ctx, candidate)
	if err != nil {
		return nil, repoErr(err, "create profile")
	}
	if created {
		s.log.WithFields(logrus.Fields{
			"user_id":  profile.ID,
			"is_admin": profile.IsAdmin,
		}).Info("profile created")
		s.events.Publish(realtime.TopicAdmin, realtime.EventUserCreated, profile)
	}
	return profile, nil
}

// Account loads the caller's profile and entitlement.
func (s *ProfileService) Account(ctx context.Context, id Identity) (*Account, error) {
	profile, err := s.Ensure(ctx, id)
	if err != nil {
		return nil, err
	}

	sub, err := s.subs.GetSubscription(ctx, profile.ID)
	switch {
	case errors.Is(err, supabase.ErrNotFound):
		sub = nil
	case err != nil:
		return nil, err
	}

	return &Account{
		Profile:      profile,
		Subscription: sub,
		Entitlement:  quota.Resolve(sub, s.catalog, profile.IsAdmin, s.now()),
	}, nil
}

// ActiveAccount is Account but rejects locked users.
func (s *ProfileService) ActiveAccount(ctx context.Context, id Identity) (*Account, error) {
	acct, err := s.Account(ctx, id)
	if err != nil {
		return nil, err
	}
	if acct.Profile.IsLocked {
		return nil, fmt.Errorf("%w: account is locked", ErrForbidden)
	}
	return acct, nil
}

func (s *ProfileService) Get(ctx context.Context, id Identity) (*models.ProfileResponse, error) {
	acct, err := s.Account(ctx, id)
	if err != nil {
		return nil, err
	}
	return &models.ProfileResponse{
		Profile:      *acct.Profile,
		Subscription: acct.Entitlement.Response(acct.Subscription),
	}, nil
}

func (s *ProfileService) Subscription(ctx context.Context, id Identity) (*models.SubscriptionResponse, error) {
	acct, err := s.Account(ctx, id)
	if err != nil {
		return nil, err
	}
	resp := acct.Entitlement.Response(acct.Subscription)
	return &resp, nil
}

func (s *ProfileService) Update(ctx context.Context, id Identity, req models.UpdateProfileRequest) (*models.Profile, error) {
	update := models.ProfileUpdate{
		Name:     strings.TrimSpace(req.Name),
		Username: strings.TrimSpace(req.Username),
		Bio:      trimmed(req.Bio),
		Website:  trimmed(req.Website),
	}

	if update.Name == "" && update.Username == "" && update.Bio == nil && update.Website == nil {
		return nil, invalid("nothing to update")
	}
	if len(update.Name) > maxNameLength {
		return nil, invalid("name must be at most %d characters", maxNameLength)
	}
	if update.Username != "" && !usernamePattern.MatchString(update.Username) {
		return nil, invalid("username must be 3-40 letters, digits or underscores")
	}
	if update.Bio != nil && len(*update.Bio) > maxBioLength {
		return nil, invalid("bio must be at most %d characters", maxBioLength)
	}
	if update.Website != nil && *update.Website != "" {
		if err := validateWebsite(*update.Website); err != nil {
			return nil, err
		}
	}

	if _, err := s.Ensure(ctx, id); err != nil {
		return nil, err
	}

	profile, err := s.profiles.UpdateProfile(ctx, id.UserID, update)
	if err != nil {
		if errors.Is(err, supabase.ErrConflict) {
			return nil, fmt.Errorf("username %q is taken: %w", update.Username, ErrConflict)
		}
		return nil, repoErr(err, "update profile")
	}

	s.events.Publish(realtime.TopicAdmin, realtime.EventUserUpdated, profile)
	return profile, nil
}

func trimmed(v *string) *string {
	if v == nil {
		return nil
	}
	t := strings.TrimSpace(*v)
	return &t
}

func validateWebsite(raw string) error {
	if len(raw) > maxWebsiteLength {
		return invalid("website must be at most %d characters", maxWebsiteLength)
	}
	u, err := url.Parse(raw)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return invalid("website must be an http or https URL")
	}
	return nil
}

func emailPrefix(email string) string {
	prefix := email
	if i := strings.IndexByte(email, '@'); i >= 0 {
		prefix = email[:i]
	}
	prefix = strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9', r == '_':
			return r
		case r >= 'A' && r <= 'Z':
			return r + ('a' - 'A')
		}
		return '_'
	}, prefix)
	if prefix == "" {
		prefix = "user"
	}
	return prefix
}

func displayName(meta map[string]interface{}, fallback string) string {
	for _, key := range []string{"full_name", "name"} {
		if v, ok := meta[key].(string); ok && strings.TrimSpace(v) != "" {
			return strings.TrimSpace(v)
		}
	}
	return fallback
}
