package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"naxovate-backend/internal/editor"
	"naxovate-backend/internal/imagegen"
	"naxovate-backend/internal/metrics"
	"naxovate-backend/internal/models"
	"naxovate-backend/internal/realtime"
	"naxovate-backend/internal/supabase"
)

// MaxPhotoBytes caps a single avatar or cover upload.
const MaxPhotoBytes = 5 << 20

// PhotoPath is where a user's avatar or cover photo lives in the bucket.
func PhotoPath(userID uuid.UUID, kind, fileName string) string {
	return "users/" + userID.String() + "/" + kind + "/" + fileName
}

// AccountService covers the self-service parts of an account that touch
// storage: profile photos and deleting the account.
type AccountService struct {
	accounts *ProfileService
	profiles ProfileStore
	subs     SubscriptionStore
	images   ImageStore
	store    ObjectStore
	gateway  PaymentGateway
	events   realtime.Publisher
	log      logrus.FieldLogger
	now      func() time.Time
}

// NewAccountService accepts a nil gateway when billing is not configured.
func NewAccountService(
	accounts *ProfileService,
	profiles ProfileStore,
	subs SubscriptionStore,
	images ImageStore,
	store ObjectStore,
	gateway PaymentGateway,
	events realtime.Publisher,
	log logrus.FieldLogger,
) *AccountService {
	return &AccountService{
		accounts: accounts,
		profiles: profiles,
		subs:     subs,
		images:   images,
		store:    store,
		gateway:  gateway,
		events:   events,
		log:      log,
		now:      time.Now,
	}
}

// UploadPhoto stores a new avatar or cover photo and replaces the previous
// one. The photo counts against the storage allowance like any image.
func (s *AccountService) UploadPhoto(ctx context.Context, id Identity, kind string, data []byte) (*models.Profile, error) {
	if kind != models.PhotoAvatar && kind != models.PhotoCover {
		return nil, invalid("unknown photo kind %q", kind)
	}
	if len(data) == 0 {
		return nil, invalid("photo is empty")
	}
	if len(data) > MaxPhotoBytes {
		return nil, invalid("photo must be at most %d MiB", MaxPhotoBytes>>20)
	}
	_, format, err := editor.Decode(data)
	if err != nil {
		return nil, invalid("photo must be a jpeg or png image: %v", err)
	}

	acct, err := s.accounts.ActiveAccount(ctx, id)
	if err != nil {
		return nil, err
	}

	userID := acct.Profile.ID
	previous := acct.Profile.Photo(kind)
	size := int64(len(data))
	if !acct.Entitlement.CanUpload(size) {
		metrics.RecordQuotaRejection("storage")
		return nil, ErrStorageExceeded
	}
	if err := s.subs.AddStorage(ctx, userID, size, acct.Entitlement.StorageLimit); err != nil {
		if errors.Is(err, supabase.ErrLimitReached) {
			metrics.RecordQuotaRejection("storage")
			return nil, ErrStorageExceeded
		}
		return nil, err
	}

	objectPath := PhotoPath(userID, kind, imagegen.FileName(kind, format, s.now()))
	publicURL, err := s.store.Upload(ctx, objectPath, data, imagegen.ContentType(format))
	if err != nil {
		s.releaseStorage(ctx, userID, size)
		return nil, fmt.Errorf("failed to store %s: %w", kind, err)
	}

	profile, err := s.profiles.SetProfilePhoto(ctx, userID, models.ProfilePhoto{
		Kind: kind, URL: publicURL, Path: objectPath, Bytes: size,
	})
	if err != nil {
		cleanupCtx := context.WithoutCancel(ctx)
		if derr := s.store.Delete(cleanupCtx, objectPath); derr != nil {
			s.log.WithError(derr).WithField("path", objectPath).Warn("failed to remove orphaned upload")
		}
		s.releaseStorage(cleanupCtx, userID, size)
		return nil, repoErr(err, "profile")
	}

	if previous != nil && previous.Path != objectPath {
		if err := s.store.Delete(ctx, previous.Path); err != nil {
			s.log.WithError(err).WithField("path", previous.Path).Warn("failed to remove replaced photo")
		}
		s.releaseStorage(ctx, userID, previous.Bytes)
	}

	s.log.WithFields(logrus.Fields{
		"user_id": userID,
		"kind":    kind,
		"bytes":   size,
	}).Info("profile photo updated")
	s.events.Publish(realtime.TopicAdmin, realtime.EventUserUpdated, profile)
	return profile, nil
}

// Delete removes the caller's account after they repeat its email. A paid
// subscription is set to cancel first so the user is not billed again.
func (s *AccountService) Delete(ctx context.Context, id Identity, confirmEmail string) error {
	profile, err := s.profiles.GetProfile(ctx, id.UserID)
	if err != nil {
		return repoErr(err, "profile")
	}
	if !strings.EqualFold(strings.TrimSpace(confirmEmail), profile.Email) {
		return invalid("confirmation does not match the account email")
	}

	if err := s.stopBilling(ctx, profile.ID); err != nil {
		return err
	}

	purger := userPurger{profiles: s.profiles, images: s.images, store: s.store, events: s.events, log: s.log}
	return purger.purge(ctx, profile, profile.ID)
}

func (s *AccountService) stopBilling(ctx context.Context, userID uuid.UUID) error {
	sub, err := s.subs.GetSubscription(ctx, userID)
	if errors.Is(err, supabase.ErrNotFound) {
		return nil
	}
	if err != nil {
		return err
	}
	if sub.StripeSubscriptionID == nil || sub.CancelAtPeriodEnd || sub.Status == models.SubscriptionCanceled {
		return nil
	}
	if s.gateway == nil {
		s.log.WithField("user_id", userID).Warn("billing not configured, stripe subscription left running")
		return nil
	}
	if _, err := s.gateway.CancelAtPeriodEnd(ctx, *sub.StripeSubscriptionID); err != nil {
		return fmt.Errorf("%w: cancel subscription: %v", ErrUpstream, err)
	}
	return nil
}

func (s *AccountService) releaseStorage(ctx context.Context, userID uuid.UUID, size int64) {
	if err := s.subs.ReleaseStorage(ctx, userID, size); err != nil {
		s.log.WithError(err).WithField("user_id", userID).Warn("failed to release storage")
	}
}

// userPurger removes a user's stored objects and then the profile, which
// cascades to the subscription, images and tickets.
type userPurger struct {
	profiles ProfileStore
	images   ImageStore
	store    ObjectStore
	events   realtime.Publisher
	log      logrus.FieldLogger
}

func (p userPurger) purge(ctx context.Context, profile *models.Profile, actor uuid.UUID) error {
	paths, err := p.images.ListImagePaths(ctx, profile.ID)
	if err != nil {
		return err
	}
	for _, kind := range []string{models.PhotoAvatar, models.PhotoCover} {
		if photo := profile.Photo(kind); photo != nil {
			paths = append(paths, photo.Path)
		}
	}
	if len(paths) > 0 {
		if err := p.store.Delete(ctx, paths...); err != nil {
			p.log.WithError(err).WithField("user_id", profile.ID).Warn("failed to remove stored objects")
		}
	}

	if err := p.profiles.DeleteProfile(ctx, profile.ID); err != nil {
		return repoErr(err, "user")
	}

	p.log.WithFields(logrus.Fields{
		"user_id": profile.ID,
		"actor":   actor,
		"objects": len(paths),
	}).Info("user deleted")
	p.events.Publish(realtime.TopicAdmin, realtime.EventUserDeleted, map[string]interface{}{"id": profile.ID})
	return nil
}
