package services

import (
	"context"
	"time"

	"github.com/google/uuid"
	"naxovate-backend/internal/billing"
	"naxovate-backend/internal/models"
	"naxovate-backend/internal/social"
)

// The interfaces below are satisfied by supabase.DatabaseClient,
// supabase.Client, the object stores and the external API clients.

type ProfileStore interface {
	GetProfile(ctx context.Context, userID uuid.UUID) (*models.Profile, error)
	EnsureProfile(ctx context.Context, p *models.Profile) (*models.Profile, bool, error)
	UpdateProfile(ctx context.Context, userID uuid.UUID, u models.ProfileUpdate) (*models.Profile, error)
	SetProfilePhoto(ctx context.Context, userID uuid.UUID, photo models.ProfilePhoto) (*models.Profile, error)
	SetProfileLocked(ctx context.Context, userID uuid.UUID, locked bool) error
	DeleteProfile(ctx context.Context, userID uuid.UUID) error
	ListUsers(ctx context.Context) ([]models.UserSummary, error)
	Stats(ctx context.Context) (*models.Stats, error)
}

type SubscriptionStore interface {
	GetSubscription(ctx context.Context, userID uuid.UUID) (*models.Subscription, error)
	GetSubscriptionByStripeID(ctx context.Context, stripeSubscriptionID string) (*models.Subscription, error)
	ReserveGenerations(ctx context.Context, userID uuid.UUID, n int, now time.Time) (*models.Subscription, error)
	ReleaseGenerations(ctx context.Context, userID uuid.UUID, n int) error
	AddStorage(ctx context.Context, userID uuid.UUID, bytes, limit int64) error
	ReleaseStorage(ctx context.Context, userID uuid.UUID, bytes int64) error
	ApplyPlan(ctx context.Context, userID uuid.UUID, change models.PlanChange) (*models.Subscription, error)
	SyncStripeSubscription(ctx context.Context, stripeSubscriptionID, status string, periodStart, periodEnd *time.Time, cancelAtPeriodEnd bool) (*models.Subscription, error)
	SetCancelAtPeriodEnd(ctx context.Context, userID uuid.UUID, cancel bool) error
	DowngradeToFree(ctx context.Context, userID uuid.UUID) error
	ActivePremiumLimits(ctx context.Context) ([]int, error)
}

type ImageStore interface {
	InsertImage(ctx context.Context, img *models.GeneratedImage) (*models.GeneratedImage, error)
	GetImage(ctx context.Context, imageID uuid.UUID) (*models.GeneratedImage, error)
	GetImageByFileName(ctx context.Context, fileName string) (*models.GeneratedImage, error)
	ListImages(ctx context.Context, userID uuid.UUID) ([]models.GeneratedImage, error)
	DeleteImage(ctx context.Context, imageID uuid.UUID) error
	ListImagePaths(ctx context.Context, userID uuid.UUID) ([]string, error)
}

type SupportStore interface {
	CreateTicket(ctx context.Context, userID uuid.UUID, subject, priority, message string) (*models.SupportTicket, *models.SupportMessage, error)
	GetTicket(ctx context.Context, ticketID uuid.UUID) (*models.SupportTicket, error)
	ListTickets(ctx context.Context, userID *uuid.UUID) ([]models.SupportTicket, error)
	ListMessages(ctx context.Context, ticketID uuid.UUID) ([]models.SupportMessage, error)
	AddMessage(ctx context.Context, ticketID, senderID uuid.UUID, message string, isAdminReply bool, status string) (*models.SupportMessage, *models.SupportTicket, error)
	UpdateTicketStatus(ctx context.Context, ticketID uuid.UUID, status string) (*models.SupportTicket, error)
}

type FeatureFlagStore interface {
	ListFeatureFlags(ctx context.Context) ([]models.FeatureFlag, error)
	SetFeatureFlag(ctx context.Context, feature string, enabled bool) (*models.FeatureFlag, error)
}

// ObjectStore is the Supabase bucket or an S3 compatible bucket.
type ObjectStore interface {
	Upload(ctx context.Context, path string, data []byte, contentType string) (string, error)
	Download(ctx context.Context, path string) ([]byte, error)
	Delete(ctx context.Context, paths ...string) error
}

type PaymentGateway interface {
	CreateCheckoutSession(ctx context.Context, p billing.CheckoutParams) (*billing.CheckoutSession, error)
	CancelAtPeriodEnd(ctx context.Context, subscriptionID string) (*billing.SubscriptionState, error)
	GetSubscription(ctx context.Context, subscriptionID string) (*billing.SubscriptionState, error)
	ParseEvent(payload []byte, signature string) (*billing.Event, error)
}

type SocialPublisher interface {
	Share(ctx context.Context, req social.ShareRequest) (string, error)
}

// Identity is the authenticated caller as described by the access token.
type Identity struct {
	UserID   uuid.UUID
	Email    string
	Metadata map[string]interface{}
}

// StoragePath is where a user's generated image lives in the bucket.
func StoragePath(userID uuid.UUID, fileName string) string {
	return "users/" + userID.String() + "/generated/" + fileName
}
