package handlers

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
	"naxovate-backend/internal/branding"
	"naxovate-backend/internal/services"
)

type ImageResolver interface {
	Resolve(ctx context.Context, fileName string) (*services.PublicImage, error)
}

// PublicImageHandler serves the branded /api/image, /api/download and
// /api/share links. No authentication: the file name is the capability.
type PublicImageHandler struct {
	images ImageResolver
	log    logrus.FieldLogger
	now    func() time.Time
}

func NewPublicImageHandler(images ImageResolver, log logrus.FieldLogger) *PublicImageHandler {
	return &PublicImageHandler{images: images, log: log, now: time.Now}
}

// Image godoc
// @Summary     Display a generated image
// @Tags        public
// @Produce     image/jpeg,image/png,image/webp
// @Param       id query string true "Image file name"
// @Success     200 {file} binary
// @Failure     400 {object} models.ErrorResponse
// @Failure     404 {object} models.ErrorResponse
// @Router      /api/image [get]
func (h *PublicImageHandler) Image(c *gin.Context) {
	h.serve(c, false)
}

// Share godoc
// @Summary     Shareable image link
// @Description Serves the image inline so link previews on social platforms can render it
// @Tags        public
// @Produce     image/jpeg,image/png,image/webp
// @Param       id query string true "Image file name"
// @Success     200 {file} binary
// @Failure     404 {object} models.ErrorResponse
// @Router      /api/share [get]
func (h *PublicImageHandler) Share(c *gin.Context) {
	h.serve(c, false)
}

// Download godoc
// @Summary     Download a generated image
// @Tags        public
// @Produce     application/octet-stream
// @Param       id query string true "Image file name"
// @Success     200 {file} binary
// @Failure     404 {object} models.ErrorResponse
// @Router      /api/download [get]
func (h *PublicImageHandler) Download(c *gin.Context) {
	h.serve(c, true)
}

func (h *PublicImageHandler) serve(c *gin.Context, attachment bool) {
	img, err := h.images.Resolve(c.Request.Context(), c.Query("id"))
	if err != nil {
		respondError(c, h.log, err)
		return
	}

	contentType := img.Image.ContentType
	if contentType == "" {
		contentType = http.DetectContentType(img.Data)
	}

	c.Header("Cache-Control", "public, max-age=86400")
	if attachment {
		name := branding.DownloadFileName(img.Image.FileName, h.now())
		c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", name))
	}
	c.Data(http.StatusOK, contentType, img.Data)
}
