package handlers

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"naxovate-backend/internal/editor"
	"naxovate-backend/internal/imagegen"
	"naxovate-backend/internal/models"
	"naxovate-backend/internal/services"
)

type GenerationService interface {
	Options() imagegen.Options
	Generate(ctx context.Context, id services.Identity, req models.GenerateRequest) (*models.GenerateResponse, error)
}

type GalleryService interface {
	List(ctx context.Context, id services.Identity) (*models.ImageListResponse, error)
	Get(ctx context.Context, id services.Identity, imageID uuid.UUID) (*models.ImageResponse, error)
	Delete(ctx context.Context, id services.Identity, imageID uuid.UUID) error
	Edit(ctx context.Context, id services.Identity, imageID uuid.UUID, adj editor.Adjustments) (*models.ImageResponse, error)
}

type ImagesHandler struct {
	generator GenerationService
	gallery   GalleryService
	log       logrus.FieldLogger
}

func NewImagesHandler(generator GenerationService, gallery GalleryService, log logrus.FieldLogger) *ImagesHandler {
	return &ImagesHandler{generator: generator, gallery: gallery, log: log}
}

// GenerateOptions godoc
// @Summary     List generation options
// @Description Returns the supported models, style presets, aspect ratios and output formats
// @Tags        images
// @Produce     json
// @Security    Bearer
// @Success     200 {object} imagegen.Options
// @Router      /generate/options [get]
func (h *ImagesHandler) GenerateOptions(c *gin.Context) {
	c.JSON(http.StatusOK, h.generator.Options())
}

// Generate godoc
// @Summary     Generate an image
// @Description Generates an image from a prompt, stores it and consumes one credit. Requires an active premium plan.
// @Tags        images
// @Accept      json
// @Produce     json
// @Security    Bearer
// @Param       request body models.GenerateRequest true "Generation parameters"
// @Success     201 {object} models.GenerateResponse
// @Failure     400 {object} models.ErrorResponse
// @Failure     401 {object} models.ErrorResponse
// @Failure     402 {object} models.ErrorResponse
// @Failure     403 {object} models.ErrorResponse
// @Failure     413 {object} models.ErrorResponse
// @Failure     429 {object} models.ErrorResponse
// @Failure     502 {object} models.ErrorResponse
// @Router      /images/generate [post]
func (h *ImagesHandler) Generate(c *gin.Context) {
	id, ok := identity(c)
	if !ok {
		return
	}

	var req models.GenerateRequest
	if !bindJSON(c, &req) {
		return
	}

	resp, err := h.generator.Generate(c.Request.Context(), id, req)
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	c.JSON(http.StatusCreated, resp)
}

// ListImages godoc
// @Summary     List generated images
// @Description Returns the caller's images, newest first, with branded display, share and download URLs
// @Tags        images
// @Produce     json
// @Security    Bearer
// @Success     200 {object} models.ImageListResponse
// @Failure     401 {object} models.ErrorResponse
// @Failure     500 {object} models.ErrorResponse
// @Router      /images [get]
func (h *ImagesHandler) ListImages(c *gin.Context) {
	id, ok := identity(c)
	if !ok {
		return
	}

	resp, err := h.gallery.List(c.Request.Context(), id)
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

// GetImage godoc
// @Summary     Get an image
// @Tags        images
// @Produce     json
// @Security    Bearer
// @Param       image_id path string true "Image ID (UUID)"
// @Success     200 {object} models.ImageResponse
// @Failure     400 {object} models.ErrorResponse
// @Failure     404 {object} models.ErrorResponse
// @Router      /images/{image_id} [get]
func (h *ImagesHandler) GetImage(c *gin.Context) {
	id, ok := identity(c)
	if !ok {
		return
	}
	imageID, ok := pathUUID(c, "image_id", "image id")
	if !ok {
		return
	}

	resp, err := h.gallery.Get(c.Request.Context(), id, imageID)
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

// DeleteImage godoc
// @Summary     Delete an image
// @Description Removes the image from storage and the gallery and frees its storage quota
// @Tags        images
// @Produce     json
// @Security    Bearer
// @Param       image_id path string true "Image ID (UUID)"
// @Success     204
// @Failure     400 {object} models.ErrorResponse
// @Failure     404 {object} models.ErrorResponse
// @Router      /images/{image_id} [delete]
func (h *ImagesHandler) DeleteImage(c *gin.Context) {
	id, ok := identity(c)
	if !ok {
		return
	}
	imageID, ok := pathUUID(c, "image_id", "image id")
	if !ok {
		return
	}

	if err := h.gallery.Delete(c.Request.Context(), id, imageID); err != nil {
		respondError(c, h.log, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// EditImage godoc
// @Summary     Save an edited copy
// @Description Applies filter adjustments to an image and stores the result as a new gallery image. Omitted sliders keep their neutral value.
// @Tags        images
// @Accept      json
// @Produce     json
// @Security    Bearer
// @Param       image_id path string true "Image ID (UUID)"
// @Param       request body editor.Adjustments true "Filter adjustments"
// @Success     201 {object} models.ImageResponse
// @Failure     400 {object} models.ErrorResponse
// @Failure     403 {object} models.ErrorResponse
// @Failure     404 {object} models.ErrorResponse
// @Failure     413 {object} models.ErrorResponse
// @Router      /images/{image_id}/edit [post]
func (h *ImagesHandler) EditImage(c *gin.Context) {
	id, ok := identity(c)
	if !ok {
		return
	}
	imageID, ok := pathUUID(c, "image_id", "image id")
	if !ok {
		return
	}

	adj := editor.Identity()
	if !bindJSON(c, &adj) {
		return
	}

	resp, err := h.gallery.Edit(c.Request.Context(), id, imageID, adj)
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	c.JSON(http.StatusCreated, resp)
}
