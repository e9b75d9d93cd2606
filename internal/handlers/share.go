package handlers

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
	"naxovate-backend/internal/models"
	"naxovate-backend/internal/services"
)

type ShareService interface {
	Share(ctx context.Context, id services.Identity, req models.ShareRequest) (*models.ShareResponse, error)
}

type ShareHandler struct {
	shares ShareService
	log    logrus.FieldLogger
}

func NewShareHandler(shares ShareService, log logrus.FieldLogger) *ShareHandler {
	return &ShareHandler{shares: shares, log: log}
}

// Share godoc
// @Summary     Share an image to social media
// @Description Posts an image to the caller's Facebook page or Instagram business account using a Graph API access token
// @Tags        share
// @Accept      json
// @Produce     json
// @Security    Bearer
// @Param       request body models.ShareRequest true "Share request"
// @Success     200 {object} models.ShareResponse
// @Failure     400 {object} models.ErrorResponse
// @Failure     401 {object} models.ErrorResponse
// @Failure     502 {object} models.ErrorResponse
// @Router      /share [post]
func (h *ShareHandler) Share(c *gin.Context) {
	id, ok := identity(c)
	if !ok {
		return
	}

	var req models.ShareRequest
	if !bindJSON(c, &req) {
		return
	}

	resp, err := h.shares.Share(c.Request.Context(), id, req)
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}
