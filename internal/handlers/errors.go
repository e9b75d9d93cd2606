package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"naxovate-backend/internal/middleware"
	"naxovate-backend/internal/models"
	"naxovate-backend/internal/services"
)

// identity builds the caller identity from the claims AuthMiddleware stored.
// It writes the error response itself when the claims are unusable.
func identity(c *gin.Context) (services.Identity, bool) {
	userIDStr, exists := c.Get(middleware.UserIDKey)
	if !exists {
		c.JSON(http.StatusUnauthorized, models.ErrorResponse{Error: "user id not found"})
		return services.Identity{}, false
	}

	userID, err := uuid.Parse(userIDStr.(string))
	if err != nil {
		c.JSON(http.StatusBadRequest, models.ErrorResponse{Error: "invalid user id"})
		return services.Identity{}, false
	}

	id := services.Identity{UserID: userID, Email: c.GetString(middleware.EmailKey)}
	if meta, ok := c.Get(middleware.UserMetadataKey); ok {
		id.Metadata, _ = meta.(map[string]interface{})
	}
	return id, true
}

func pathUUID(c *gin.Context, param, label string) (uuid.UUID, bool) {
	v, err := uuid.Parse(c.Param(param))
	if err != nil {
		c.JSON(http.StatusBadRequest, models.ErrorResponse{Error: "invalid " + label})
		return uuid.Nil, false
	}
	return v, true
}

func bindJSON(c *gin.Context, dst interface{}) bool {
	if err := c.ShouldBindJSON(dst); err != nil {
		c.JSON(http.StatusBadRequest, models.ErrorResponse{
			Error:   "invalid request body",
			Message: err.Error(),
		})
		return false
	}
	return true
}

func errorStatus(err error) (int, string) {
	switch {
	case errors.Is(err, services.ErrInvalidInput):
		return http.StatusBadRequest, "invalid request"
	case errors.Is(err, services.ErrForbidden):
		return http.StatusForbidden, "forbidden"
	case errors.Is(err, services.ErrNotFound):
		return http.StatusNotFound, "not found"
	case errors.Is(err, services.ErrConflict):
		return http.StatusConflict, "conflict"
	case errors.Is(err, services.ErrPlanRequired):
		return http.StatusPaymentRequired, "premium subscription required"
	case errors.Is(err, services.ErrQuotaExceeded):
		return http.StatusTooManyRequests, "generation limit reached"
	case errors.Is(err, services.ErrStorageExceeded):
		return http.StatusRequestEntityTooLarge, "storage limit reached"
	case errors.Is(err, services.ErrUpstream):
		return http.StatusBadGateway, "upstream service failed"
	case errors.Is(err, services.ErrNotConfigured):
		return http.StatusServiceUnavailable, "service not configured"
	default:
		return http.StatusInternalServerError, "internal error"
	}
}

// respondError maps service errors onto status codes. Internal errors are
// logged and their detail is kept out of the response.
func respondError(c *gin.Context, log logrus.FieldLogger, err error) {
	status, label := errorStatus(err)
	if status == http.StatusInternalServerError {
		log.WithError(err).WithFields(logrus.Fields{
			"method": c.Request.Method,
			"path":   c.FullPath(),
		}).Error("request failed")
		c.JSON(status, models.ErrorResponse{Error: label})
		return
	}
	c.JSON(status, models.ErrorResponse{Error: label, Message: err.Error()})
}
