package middleware

import (
	"context"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"naxovate-backend/internal/models"
	"naxovate-backend/internal/supabase"
)

const ProfileKey = "profile"

// EnsureProfileFunc returns the caller's profile, creating it when this is
// the first request the backend has seen from them.
type EnsureProfileFunc func(ctx context.Context, userID uuid.UUID, email string, metadata map[string]interface{}) (*models.Profile, error)

// RequireAdmin lets the request through only for unlocked admin profiles.
// The profile is ensured first so the configured admin email is promoted
// even when an admin route is its first request. Must run after
// AuthMiddleware.
func RequireAdmin(ensure EnsureProfileFunc, log logrus.FieldLogger) gin.HandlerFunc {
	return func(c *gin.Context) {
		userID, err := uuid.Parse(c.GetString(UserIDKey))
		if err != nil {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid user id"})
			c.Abort()
			return
		}

		meta, _ := c.Get(UserMetadataKey)
		metadata, _ := meta.(map[string]interface{})
		profile, err := ensure(c.Request.Context(), userID, c.GetString(EmailKey), metadata)
		if err != nil {
			if errors.Is(err, supabase.ErrNotFound) {
				c.JSON(http.StatusForbidden, gin.H{"error": "forbidden", "message": "profile not found"})
				c.Abort()
				return
			}
			log.WithError(err).WithField("user_id", userID).Error("admin check failed")
			c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
			c.Abort()
			return
		}

		if profile.IsLocked || !profile.IsAdmin {
			c.JSON(http.StatusForbidden, gin.H{"error": "forbidden", "message": "admin access required"})
			c.Abort()
			return
		}

		c.Set(ProfileKey, profile)
		c.Next()
	}
}
