package services

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/sirupsen/logrus"
	"naxovate-backend/internal/models"
	"naxovate-backend/internal/social"
)

type ShareService struct {
	accounts  *ProfileService
	publisher SocialPublisher
	log       logrus.FieldLogger
}

func NewShareService(accounts *ProfileService, publisher SocialPublisher, log logrus.FieldLogger) *ShareService {
	return &ShareService{accounts: accounts, publisher: publisher, log: log}
}

// Share posts an image to the caller's Facebook page or Instagram account
// using the access token the browser obtained.
func (s *ShareService) Share(ctx context.Context, id Identity, req models.ShareRequest) (*models.ShareResponse, error) {
	platform := strings.ToLower(strings.TrimSpace(req.Platform))

	acct, err := s.accounts.ActiveAccount(ctx, id)
	if err != nil {
		return nil, err
	}

	postID, err := s.publisher.Share(ctx, social.ShareRequest{
		Platform:    platform,
		ImageURL:    strings.TrimSpace(req.ImageURL),
		Caption:     req.Caption,
		AccessToken: req.AccessToken,
	})
	if err != nil {
		if errors.Is(err, social.ErrInvalidShare) {
			return nil, fmt.Errorf("%w: %v", ErrInvalidInput, err)
		}
		s.log.WithError(err).WithFields(logrus.Fields{
			"user_id":  acct.Profile.ID,
			"platform": platform,
		}).Warn("social share failed")
		return nil, fmt.Errorf("%w: %v", ErrUpstream, err)
	}

	s.log.WithFields(logrus.Fields{
		"user_id":  acct.Profile.ID,
		"platform": platform,
		"post_id":  postID,
	}).Info("image shared")
	return &models.ShareResponse{Platform: platform, PostID: postID}, nil
}
