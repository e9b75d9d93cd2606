package services

import (
	"context"
	"errors"
	"fmt"
	"path"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"naxovate-backend/internal/branding"
	"naxovate-backend/internal/editor"
	"naxovate-backend/internal/imagegen"
	"naxovate-backend/internal/metrics"
	"naxovate-backend/internal/models"
	"naxovate-backend/internal/realtime"
	"naxovate-backend/internal/supabase"
)

type GalleryService struct {
	accounts *ProfileService
	subs     SubscriptionStore
	images   ImageStore
	store    ObjectStore
	urls     *branding.URLs
	events   realtime.Publisher
	log      logrus.FieldLogger
	now      func() time.Time
}

func NewGalleryService(
	accounts *ProfileService,
	subs SubscriptionStore,
	images ImageStore,
	store ObjectStore,
	urls *branding.URLs,
	events realtime.Publisher,
	log logrus.FieldLogger,
) *GalleryService {
	return &GalleryService{
		accounts: accounts,
		subs:     subs,
		images:   images,
		store:    store,
		urls:     urls,
		events:   events,
		log:      log,
		now:      time.Now,
	}
}

func renderImage(urls *branding.URLs, img *models.GeneratedImage) models.ImageResponse {
	return models.ImageResponse{
		GeneratedImage: *img,
		DisplayURL:     urls.DisplayURL(img.URL),
		ShareURL:       urls.ShareableURL(img.URL),
		DownloadURL:    urls.DownloadURL(img.URL),
	}
}

// List returns the caller's images, newest first.
func (s *GalleryService) List(ctx context.Context, id Identity) (*models.ImageListResponse, error) {
	images, err := s.images.ListImages(ctx, id.UserID)
	if err != nil {
		return nil, err
	}

	resp := &models.ImageListResponse{Images: make([]models.ImageResponse, 0, len(images))}
	for i := range images {
		resp.Images = append(resp.Images, renderImage(s.urls, &images[i]))
	}
	return resp, nil
}

// owned loads an image the caller may act on. Admins may act on any image.
func (s *GalleryService) owned(ctx context.Context, id Identity, imageID uuid.UUID) (*Account, *models.GeneratedImage, error) {
	acct, err := s.accounts.Account(ctx, id)
	if err != nil {
		return nil, nil, err
	}

	img, err := s.images.GetImage(ctx, imageID)
	if err != nil {
		return nil, nil, repoErr(err, "image")
	}
	if img.UserID != acct.Profile.ID && !acct.Profile.IsAdmin {
		return nil, nil, fmt.Errorf("image: %w", ErrNotFound)
	}
	return acct, img, nil
}

func (s *GalleryService) Get(ctx context.Context, id Identity, imageID uuid.UUID) (*models.ImageResponse, error) {
	_, img, err := s.owned(ctx, id, imageID)
	if err != nil {
		return nil, err
	}
	resp := renderImage(s.urls, img)
	return &resp, nil
}

// Delete removes the stored object and the row, then gives the bytes back
// to the owner's storage quota.
func (s *GalleryService) Delete(ctx context.Context, id Identity, imageID uuid.UUID) error {
	_, img, err := s.owned(ctx, id, imageID)
	if err != nil {
		return err
	}

	if err := s.store.Delete(ctx, img.StoragePath); err != nil {
		return fmt.Errorf("failed to delete stored image: %w", err)
	}
	if err := s.images.DeleteImage(ctx, img.ID); err != nil {
		return repoErr(err, "image")
	}
	if err := s.subs.ReleaseStorage(ctx, img.UserID, img.SizeBytes); err != nil {
		s.log.WithError(err).WithField("image_id", img.ID).Warn("failed to release storage")
	}

	s.log.WithFields(logrus.Fields{
		"user_id":  img.UserID,
		"image_id": img.ID,
	}).Info("image deleted")
	s.events.Publish(realtime.TopicAdmin, realtime.EventImageDeleted, img)
	return nil
}

// Edit applies the adjustments to a stored image and saves the result as a
// new image pointing back at the original.
func (s *GalleryService) Edit(ctx context.Context, id Identity, imageID uuid.UUID, adj editor.Adjustments) (*models.ImageResponse, error) {
	if err := adj.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidInput, err)
	}

	acct, original, err := s.owned(ctx, id, imageID)
	if err != nil {
		return nil, err
	}
	if acct.Profile.IsLocked {
		return nil, fmt.Errorf("%w: account is locked", ErrForbidden)
	}

	src, err := s.store.Download(ctx, original.StoragePath)
	if err != nil {
		return nil, fmt.Errorf("failed to load original image: %w", err)
	}

	data, format, err := editor.Process(src, adj)
	if err != nil {
		if errors.Is(err, editor.ErrInvalidAdjustment) {
			return nil, fmt.Errorf("%w: %v", ErrInvalidInput, err)
		}
		return nil, invalid("image cannot be edited: %v", err)
	}

	userID := acct.Profile.ID
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

	style := original.Style
	if style == "" {
		style = "edited"
	}
	fileName := imagegen.FileName(style, format, s.now())
	objectPath := StoragePath(userID, fileName)
	contentType := imagegen.ContentType(format)

	publicURL, err := s.store.Upload(ctx, objectPath, data, contentType)
	if err != nil {
		s.releaseStorage(ctx, userID, size)
		return nil, fmt.Errorf("failed to store edited image: %w", err)
	}

	parentID := original.ID
	img, err := s.images.InsertImage(ctx, &models.GeneratedImage{
		UserID:      userID,
		URL:         publicURL,
		StoragePath: objectPath,
		FileName:    fileName,
		Prompt:      original.Prompt,
		Style:       original.Style,
		Model:       original.Model,
		AspectRatio: original.AspectRatio,
		ContentType: contentType,
		SizeBytes:   size,
		ParentID:    &parentID,
	})
	if err != nil {
		cleanupCtx := context.WithoutCancel(ctx)
		if derr := s.store.Delete(cleanupCtx, objectPath); derr != nil {
			s.log.WithError(derr).WithField("path", objectPath).Warn("failed to remove orphaned upload")
		}
		s.releaseStorage(cleanupCtx, userID, size)
		return nil, fmt.Errorf("failed to save edited image: %w", err)
	}

	s.events.Publish(realtime.TopicAdmin, realtime.EventImageGenerated, img)
	resp := renderImage(s.urls, img)
	return &resp, nil
}

func (s *GalleryService) releaseStorage(ctx context.Context, userID uuid.UUID, size int64) {
	if err := s.subs.ReleaseStorage(ctx, userID, size); err != nil {
		s.log.WithError(err).WithField("user_id", userID).Warn("failed to release storage")
	}
}

// PublicImage is an image resolved from a branded link.
type PublicImage struct {
	Image *models.GeneratedImage
	Data  []byte
}

// Resolve looks up an image by the file name carried in a branded URL.
func (s *GalleryService) Resolve(ctx context.Context, fileName string) (*PublicImage, error) {
	fileName = path.Base(strings.TrimSpace(fileName))
	if fileName == "" || fileName == "." || fileName == "/" {
		return nil, invalid("id is required")
	}

	img, err := s.images.GetImageByFileName(ctx, fileName)
	if err != nil {
		return nil, repoErr(err, "image")
	}

	data, err := s.store.Download(ctx, img.StoragePath)
	if err != nil {
		return nil, fmt.Errorf("failed to load image: %w", err)
	}
	return &PublicImage{Image: img, Data: data}, nil
}
