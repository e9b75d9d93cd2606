package handlers

import (
	"context"
	"errors"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
	"naxovate-backend/internal/models"
	"naxovate-backend/internal/services"
)

type ProfileService interface {
	Get(ctx context.Context, id services.Identity) (*models.ProfileResponse, error)
	Update(ctx context.Context, id services.Identity, req models.UpdateProfileRequest) (*models.Profile, error)
}

type AccountService interface {
	UploadPhoto(ctx context.Context, id services.Identity, kind string, data []byte) (*models.Profile, error)
	Delete(ctx context.Context, id services.Identity, confirmEmail string) error
}

type ProfileHandler struct {
	profiles ProfileService
	accounts AccountService
	log      logrus.FieldLogger
}

func NewProfileHandler(profiles ProfileService, accounts AccountService, log logrus.FieldLogger) *ProfileHandler {
	return &ProfileHandler{profiles: profiles, accounts: accounts, log: log}
}

// GetProfile godoc
// @Summary     Get the caller's profile
// @Description Returns the profile and subscription of the authenticated user, creating both on first sign-in
// @Tags        profile
// @Produce     json
// @Security    Bearer
// @Success     200 {object} models.ProfileResponse
// @Failure     401 {object} models.ErrorResponse
// @Failure     403 {object} models.ErrorResponse
// @Failure     500 {object} models.ErrorResponse
// @Router      /profile [get]
func (h *ProfileHandler) GetProfile(c *gin.Context) {
	id, ok := identity(c)
	if !ok {
		return
	}

	resp, err := h.profiles.Get(c.Request.Context(), id)
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

// UpdateProfile godoc
// @Summary     Update the caller's profile
// @Description Changes the display name, username, bio and website. Usernames are unique; an empty bio or website clears it.
// @Tags        profile
// @Accept      json
// @Produce     json
// @Security    Bearer
// @Param       request body models.UpdateProfileRequest true "Profile fields"
// @Success     200 {object} models.Profile
// @Failure     400 {object} models.ErrorResponse
// @Failure     401 {object} models.ErrorResponse
// @Failure     409 {object} models.ErrorResponse
// @Router      /profile [put]
func (h *ProfileHandler) UpdateProfile(c *gin.Context) {
	id, ok := identity(c)
	if !ok {
		return
	}

	var req models.UpdateProfileRequest
	if !bindJSON(c, &req) {
		return
	}

	profile, err := h.profiles.Update(c.Request.Context(), id, req)
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, profile)
}

// UploadAvatar godoc
// @Summary     Upload the caller's avatar
// @Description Stores a jpeg or png avatar of at most 5 MiB and replaces the previous one. Counts against the storage allowance.
// @Tags        profile
// @Accept      multipart/form-data
// @Produce     json
// @Security    Bearer
// @Param       file formData file true "Avatar image"
// @Success     200 {object} models.Profile
// @Failure     400 {object} models.ErrorResponse
// @Failure     401 {object} models.ErrorResponse
// @Failure     403 {object} models.ErrorResponse
// @Failure     413 {object} models.ErrorResponse
// @Router      /profile/avatar [post]
func (h *ProfileHandler) UploadAvatar(c *gin.Context) {
	h.uploadPhoto(c, models.PhotoAvatar)
}

// UploadCover godoc
// @Summary     Upload the caller's cover photo
// @Description Stores a jpeg or png cover photo of at most 5 MiB and replaces the previous one. Counts against the storage allowance.
// @Tags        profile
// @Accept      multipart/form-data
// @Produce     json
// @Security    Bearer
// @Param       file formData file true "Cover image"
// @Success     200 {object} models.Profile
// @Failure     400 {object} models.ErrorResponse
// @Failure     401 {object} models.ErrorResponse
// @Failure     403 {object} models.ErrorResponse
// @Failure     413 {object} models.ErrorResponse
// @Router      /profile/cover [post]
func (h *ProfileHandler) UploadCover(c *gin.Context) {
	h.uploadPhoto(c, models.PhotoCover)
}

func (h *ProfileHandler) uploadPhoto(c *gin.Context, kind string) {
	id, ok := identity(c)
	if !ok {
		return
	}

	// Leave room for the multipart envelope around the file.
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, services.MaxPhotoBytes+64<<10)
	header, err := c.FormFile("file")
	var tooLarge *http.MaxBytesError
	if errors.As(err, &tooLarge) {
		c.JSON(http.StatusBadRequest, models.ErrorResponse{Error: "photo too large", Message: "max 5 MiB"})
		return
	}
	if err != nil {
		c.JSON(http.StatusBadRequest, models.ErrorResponse{
			Error:   "no photo uploaded",
			Message: "send the image in a multipart field named \"file\" (max 5 MiB)",
		})
		return
	}
	if header.Size > services.MaxPhotoBytes {
		c.JSON(http.StatusBadRequest, models.ErrorResponse{Error: "photo too large", Message: "max 5 MiB"})
		return
	}

	f, err := header.Open()
	if err != nil {
		c.JSON(http.StatusBadRequest, models.ErrorResponse{Error: "failed to read photo", Message: err.Error()})
		return
	}
	defer f.Close()

	data, err := io.ReadAll(io.LimitReader(f, services.MaxPhotoBytes+1))
	if err != nil {
		c.JSON(http.StatusBadRequest, models.ErrorResponse{Error: "failed to read photo", Message: err.Error()})
		return
	}

	profile, err := h.accounts.UploadPhoto(c.Request.Context(), id, kind, data)
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, profile)
}

// DeleteAccount godoc
// @Summary     Delete the caller's account
// @Description Permanently removes the account, its images, photos and tickets. The body must repeat the account email. A paid subscription is set to cancel first.
// @Tags        profile
// @Accept      json
// @Security    Bearer
// @Param       request body models.DeleteAccountRequest true "Confirmation"
// @Success     204
// @Failure     400 {object} models.ErrorResponse
// @Failure     401 {object} models.ErrorResponse
// @Failure     404 {object} models.ErrorResponse
// @Failure     502 {object} models.ErrorResponse
// @Router      /profile [delete]
func (h *ProfileHandler) DeleteAccount(c *gin.Context) {
	id, ok := identity(c)
	if !ok {
		return
	}

	var req models.DeleteAccountRequest
	if !bindJSON(c, &req) {
		return
	}

	if err := h.accounts.Delete(c.Request.Context(), id, req.ConfirmEmail); err != nil {
		respondError(c, h.log, err)
		return
	}
	c.Status(http.StatusNoContent)
}
