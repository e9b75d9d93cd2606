package handlers_test

import (
	"context"
	"net/http"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"naxovate-backend/internal/editor"
	"naxovate-backend/internal/handlers"
	"naxovate-backend/internal/imagegen"
	"naxovate-backend/internal/models"
	"naxovate-backend/internal/services"
)

type fakeGeneration struct {
	err     error
	lastReq models.GenerateRequest
}

func (f *fakeGeneration) Options() imagegen.Options { return imagegen.Catalog() }

func (f *fakeGeneration) Generate(_ context.Context, id services.Identity, req models.GenerateRequest) (*models.GenerateResponse, error) {
	f.lastReq = req
	if f.err != nil {
		return nil, f.err
	}
	return &models.GenerateResponse{
		Image: models.ImageResponse{
			GeneratedImage: models.GeneratedImage{ID: uuid.New(), UserID: id.UserID, Prompt: req.Prompt},
			DisplayURL:     "https://naxovate.app/api/image?id=cinematic-1.jpeg",
		},
		RemainingGenerations: 9,
	}, nil
}

type fakeGallery struct {
	err       error
	deleted   uuid.UUID
	editedAdj editor.Adjustments
}

func (f *fakeGallery) List(_ context.Context, id services.Identity) (*models.ImageListResponse, error) {
	if f.err != nil {
		return nil, f.err
	}
	return &models.ImageListResponse{Images: []models.ImageResponse{
		{GeneratedImage: models.GeneratedImage{ID: uuid.New(), UserID: id.UserID}},
	}}, nil
}

func (f *fakeGallery) Get(_ context.Context, id services.Identity, imageID uuid.UUID) (*models.ImageResponse, error) {
	if f.err != nil {
		return nil, f.err
	}
	return &models.ImageResponse{GeneratedImage: models.GeneratedImage{ID: imageID, UserID: id.UserID}}, nil
}

func (f *fakeGallery) Delete(_ context.Context, _ services.Identity, imageID uuid.UUID) error {
	f.deleted = imageID
	return f.err
}

func (f *fakeGallery) Edit(_ context.Context, id services.Identity, imageID uuid.UUID, adj editor.Adjustments) (*models.ImageResponse, error) {
	f.editedAdj = adj
	if f.err != nil {
		return nil, f.err
	}
	parent := imageID
	return &models.ImageResponse{GeneratedImage: models.GeneratedImage{ID: uuid.New(), UserID: id.UserID, ParentID: &parent}}, nil
}

func imagesRouter(gen *fakeGeneration, gallery *fakeGallery) http.Handler {
	h := handlers.NewImagesHandler(gen, gallery, quietLog())
	router := newRouter()
	router.Use(asUser(userID, "jane@example.com"))
	router.GET("/generate/options", h.GenerateOptions)
	router.POST("/images/generate", h.Generate)
	router.GET("/images", h.ListImages)
	router.GET("/images/:image_id", h.GetImage)
	router.DELETE("/images/:image_id", h.DeleteImage)
	router.POST("/images/:image_id/edit", h.EditImage)
	return router
}

func TestGenerateOptions(t *testing.T) {
	w := doJSON(t, imagesRouter(&fakeGeneration{}, &fakeGallery{}), http.MethodGet, "/generate/options", nil)

	assert.Equal(t, http.StatusOK, w.Code)
	var opts imagegen.Options
	decode(t, w, &opts)
	assert.NotEmpty(t, opts.Models)
	assert.NotEmpty(t, opts.AspectRatios)
}

func TestGenerate_Created(t *testing.T) {
	gen := &fakeGeneration{}
	w := doJSON(t, imagesRouter(gen, &fakeGallery{}), http.MethodPost, "/images/generate", models.GenerateRequest{
		Prompt:      "a lighthouse at dusk",
		AspectRatio: "16:9",
	})

	require.Equal(t, http.StatusCreated, w.Code)
	assert.Equal(t, "16:9", gen.lastReq.AspectRatio)

	var resp models.GenerateResponse
	decode(t, w, &resp)
	assert.Equal(t, 9, resp.RemainingGenerations)
	assert.Equal(t, "a lighthouse at dusk", resp.Image.Prompt)
}

func TestGenerate_QuotaAndPlanErrors(t *testing.T) {
	w := doJSON(t, imagesRouter(&fakeGeneration{err: services.ErrQuotaExceeded}, &fakeGallery{}),
		http.MethodPost, "/images/generate", models.GenerateRequest{Prompt: "x"})
	assert.Equal(t, http.StatusTooManyRequests, w.Code)

	w = doJSON(t, imagesRouter(&fakeGeneration{err: services.ErrPlanRequired}, &fakeGallery{}),
		http.MethodPost, "/images/generate", models.GenerateRequest{Prompt: "x"})
	assert.Equal(t, http.StatusPaymentRequired, w.Code)
}

func TestListAndGetImages(t *testing.T) {
	router := imagesRouter(&fakeGeneration{}, &fakeGallery{})

	w := doJSON(t, router, http.MethodGet, "/images", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	var list models.ImageListResponse
	decode(t, w, &list)
	assert.Len(t, list.Images, 1)

	imageID := uuid.New()
	w = doJSON(t, router, http.MethodGet, "/images/"+imageID.String(), nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), imageID.String())
}

func TestGetImage_InvalidID(t *testing.T) {
	w := doJSON(t, imagesRouter(&fakeGeneration{}, &fakeGallery{}), http.MethodGet, "/images/not-a-uuid", nil)

	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), "invalid image id")
}

func TestDeleteImage(t *testing.T) {
	gallery := &fakeGallery{}
	imageID := uuid.New()

	w := doJSON(t, imagesRouter(&fakeGeneration{}, gallery), http.MethodDelete, "/images/"+imageID.String(), nil)

	assert.Equal(t, http.StatusNoContent, w.Code)
	assert.Equal(t, imageID, gallery.deleted)
}

func TestDeleteImage_NotOwned(t *testing.T) {
	gallery := &fakeGallery{err: services.ErrNotFound}

	w := doJSON(t, imagesRouter(&fakeGeneration{}, gallery), http.MethodDelete, "/images/"+uuid.NewString(), nil)

	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestEditImage_OmittedSlidersStayNeutral(t *testing.T) {
	gallery := &fakeGallery{}

	w := doJSON(t, imagesRouter(&fakeGeneration{}, gallery), http.MethodPost,
		"/images/"+uuid.NewString()+"/edit", map[string]interface{}{"rotation": 90, "sepia": 40})

	require.Equal(t, http.StatusCreated, w.Code)
	assert.Equal(t, 100.0, gallery.editedAdj.Brightness)
	assert.Equal(t, 100.0, gallery.editedAdj.Contrast)
	assert.Equal(t, 100.0, gallery.editedAdj.Saturation)
	assert.Equal(t, 90.0, gallery.editedAdj.Rotation)
	assert.Equal(t, 40.0, gallery.editedAdj.Sepia)
}
