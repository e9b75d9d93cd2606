package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"
	"naxovate-backend/internal/branding"
	"naxovate-backend/internal/imagegen"
	"naxovate-backend/internal/metrics"
	"naxovate-backend/internal/models"
	"naxovate-backend/internal/plans"
	"naxovate-backend/internal/quota"
	"naxovate-backend/internal/realtime"
	"naxovate-backend/internal/supabase"
)

type GenerationService struct {
	accounts  *ProfileService
	subs      SubscriptionStore
	images    ImageStore
	store     ObjectStore
	generator imagegen.Generator
	catalog   *plans.Catalog
	urls      *branding.URLs
	events    realtime.Publisher
	timeout   time.Duration
	log       logrus.FieldLogger
	now       func() time.Time
}

func NewGenerationService(
	accounts *ProfileService,
	subs SubscriptionStore,
	images ImageStore,
	store ObjectStore,
	generator imagegen.Generator,
	catalog *plans.Catalog,
	urls *branding.URLs,
	events realtime.Publisher,
	timeout time.Duration,
	log logrus.FieldLogger,
) *GenerationService {
	if timeout <= 0 {
		timeout = 2 * time.Minute
	}
	return &GenerationService{
		accounts:  accounts,
		subs:      subs,
		images:    images,
		store:     store,
		generator: generator,
		catalog:   catalog,
		urls:      urls,
		events:    events,
		timeout:   timeout,
		log:       log,
		now:       time.Now,
	}
}

func (s *GenerationService) Options() imagegen.Options {
	return imagegen.Catalog()
}

// Generate runs one generation for the caller. A credit is reserved before
// the provider is called and handed back if anything after that fails.
func (s *GenerationService) Generate(ctx context.Context, id Identity, in models.GenerateRequest) (*models.GenerateResponse, error) {
	req, err := imagegen.NewRequest(in)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidInput, err)
	}

	acct, err := s.accounts.ActiveAccount(ctx, id)
	if err != nil {
		return nil, err
	}
	ent := acct.Entitlement
	userID := acct.Profile.ID

	logger := s.log.WithFields(logrus.Fields{
		"user_id":  userID,
		"model":    req.Model,
		"provider": s.generator.Name(),
	})

	var (
		charged      bool
		storageAdded int64
		uploaded     string
	)
	rollback := func(cause error) error {
		cleanupCtx := context.WithoutCancel(ctx)
		if uploaded != "" {
			if err := s.store.Delete(cleanupCtx, uploaded); err != nil {
				logger.WithError(err).WithField("path", uploaded).Warn("failed to remove orphaned upload")
			}
		}
		if storageAdded > 0 {
			if err := s.subs.ReleaseStorage(cleanupCtx, userID, storageAdded); err != nil {
				logger.WithError(err).Warn("failed to release storage")
			}
		}
		if charged {
			if err := s.subs.ReleaseGenerations(cleanupCtx, userID, 1); err != nil {
				logger.WithError(err).Error("failed to refund generation credit")
			}
		}
		return cause
	}

	if !acct.Profile.IsAdmin {
		if !ent.IsPremium() || !ent.Active {
			metrics.RecordQuotaRejection("plan")
			return nil, ErrPlanRequired
		}
		sub, err := s.subs.ReserveGenerations(ctx, userID, 1, s.now())
		if err != nil {
			if errors.Is(err, supabase.ErrLimitReached) {
				metrics.RecordQuotaRejection("credits")
				return nil, ErrQuotaExceeded
			}
			return nil, fmt.Errorf("failed to reserve credit: %w", err)
		}
		charged = true
		ent = quota.Resolve(sub, s.catalog, false, s.now())
	}

	genCtx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	start := time.Now()
	result, err := s.generator.Generate(genCtx, req)
	metrics.RecordGeneration(s.generator.Name(), time.Since(start), err == nil)
	if err != nil {
		logger.WithError(err).Error("image generation failed")
		return nil, rollback(fmt.Errorf("%w: %v", ErrUpstream, err))
	}

	size := int64(len(result.Data))
	if err := s.subs.AddStorage(ctx, userID, size, ent.StorageLimit); err != nil {
		if errors.Is(err, supabase.ErrLimitReached) {
			metrics.RecordQuotaRejection("storage")
			return nil, rollback(ErrStorageExceeded)
		}
		return nil, rollback(err)
	}
	storageAdded = size

	fileName := imagegen.FileName(req.Style, result.Format, s.now())
	path := StoragePath(userID, fileName)
	publicURL, err := s.store.Upload(ctx, path, result.Data, result.ContentType)
	if err != nil {
		return nil, rollback(fmt.Errorf("failed to store image: %w", err))
	}
	uploaded = path

	img, err := s.images.InsertImage(ctx, &models.GeneratedImage{
		UserID:      userID,
		URL:         publicURL,
		StoragePath: path,
		FileName:    fileName,
		Prompt:      req.Prompt,
		Style:       req.Style,
		Model:       req.Model,
		AspectRatio: req.AspectRatio,
		ContentType: result.ContentType,
		SizeBytes:   size,
	})
	if err != nil {
		return nil, rollback(fmt.Errorf("failed to save image: %w", err))
	}

	logger.WithFields(logrus.Fields{
		"image_id": img.ID,
		"bytes":    size,
	}).Info("image generated")
	s.events.Publish(realtime.TopicAdmin, realtime.EventImageGenerated, img)

	return &models.GenerateResponse{
		Image:                renderImage(s.urls, img),
		RemainingGenerations: ent.RemainingGenerations(),
	}, nil
}
