package handlers_test

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"mime/multipart"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"naxovate-backend/internal/handlers"
	"naxovate-backend/internal/models"
	"naxovate-backend/internal/services"
)

type fakeProfiles struct {
	err     error
	lastID  services.Identity
	lastReq models.UpdateProfileRequest
}

func (f *fakeProfiles) Get(_ context.Context, id services.Identity) (*models.ProfileResponse, error) {
	f.lastID = id
	if f.err != nil {
		return nil, f.err
	}
	return &models.ProfileResponse{
		Profile:      models.Profile{ID: id.UserID, Email: id.Email, Username: "test_7b0f1c5e"},
		Subscription: models.SubscriptionResponse{PlanKey: "free", Tier: "free"},
	}, nil
}

func (f *fakeProfiles) Update(_ context.Context, id services.Identity, req models.UpdateProfileRequest) (*models.Profile, error) {
	f.lastReq = req
	if f.err != nil {
		return nil, f.err
	}
	return &models.Profile{ID: id.UserID, Name: req.Name, Username: req.Username}, nil
}

type fakeAccounts struct {
	err       error
	kind      string
	data      []byte
	confirmed string
	deleted   bool
}

func (f *fakeAccounts) UploadPhoto(_ context.Context, id services.Identity, kind string, data []byte) (*models.Profile, error) {
	f.kind, f.data = kind, data
	if f.err != nil {
		return nil, f.err
	}
	url := "https://cdn.example.com/" + kind + ".png"
	p := &models.Profile{ID: id.UserID}
	if kind == models.PhotoAvatar {
		p.AvatarURL = &url
	} else {
		p.CoverPhotoURL = &url
	}
	return p, nil
}

func (f *fakeAccounts) Delete(_ context.Context, _ services.Identity, confirmEmail string) error {
	f.confirmed = confirmEmail
	if f.err != nil {
		return f.err
	}
	f.deleted = true
	return nil
}

func multipartPhoto(t *testing.T, path, field string, data []byte) *http.Request {
	t.Helper()
	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	part, err := mw.CreateFormFile(field, "photo.png")
	require.NoError(t, err)
	_, err = part.Write(data)
	require.NoError(t, err)
	require.NoError(t, mw.Close())

	req, err := http.NewRequest(http.MethodPost, path, &body)
	require.NoError(t, err)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	return req
}

func photoRouter(accounts *fakeAccounts) http.Handler {
	h := handlers.NewProfileHandler(&fakeProfiles{}, accounts, quietLog())
	router := newRouter()
	router.Use(asUser(userID, "jane@example.com"))
	router.POST("/profile/avatar", h.UploadAvatar)
	router.POST("/profile/cover", h.UploadCover)
	router.DELETE("/profile", h.DeleteAccount)
	return router
}

func TestGetProfile_RequiresUser(t *testing.T) {
	router := newRouter()
	router.GET("/profile", handlers.NewProfileHandler(&fakeProfiles{}, &fakeAccounts{}, quietLog()).GetProfile)

	w := doJSON(t, router, http.MethodGet, "/profile", nil)

	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Contains(t, w.Body.String(), "user id not found")
}

func TestGetProfile_PassesIdentity(t *testing.T) {
	svc := &fakeProfiles{}
	router := newRouter()
	router.Use(asUser(userID, "jane@example.com"))
	router.GET("/profile", handlers.NewProfileHandler(svc, &fakeAccounts{}, quietLog()).GetProfile)

	w := doJSON(t, router, http.MethodGet, "/profile", nil)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, userID, svc.lastID.UserID)
	assert.Equal(t, "jane@example.com", svc.lastID.Email)
	assert.Equal(t, "Test User", svc.lastID.Metadata["full_name"])

	var resp models.ProfileResponse
	decode(t, w, &resp)
	assert.Equal(t, "test_7b0f1c5e", resp.Profile.Username)
	assert.Equal(t, "free", resp.Subscription.PlanKey)
}

func TestUpdateProfile(t *testing.T) {
	svc := &fakeProfiles{}
	router := newRouter()
	router.Use(asUser(userID, "jane@example.com"))
	router.PUT("/profile", handlers.NewProfileHandler(svc, &fakeAccounts{}, quietLog()).UpdateProfile)

	w := doJSON(t, router, http.MethodPut, "/profile", models.UpdateProfileRequest{Name: "Jane", Username: "jane_doe"})

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "jane_doe", svc.lastReq.Username)
}

func TestUpdateProfile_MalformedBody(t *testing.T) {
	router := newRouter()
	router.Use(asUser(userID, "jane@example.com"))
	router.PUT("/profile", handlers.NewProfileHandler(&fakeProfiles{}, &fakeAccounts{}, quietLog()).UpdateProfile)

	w := doJSON(t, router, http.MethodPut, "/profile", "{not json")

	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), "invalid request body")
}

func TestServiceErrorsMapToStatus(t *testing.T) {
	cases := []struct {
		err    error
		status int
	}{
		{fmt.Errorf("%w: username taken", services.ErrConflict), http.StatusConflict},
		{fmt.Errorf("%w: bad username", services.ErrInvalidInput), http.StatusBadRequest},
		{fmt.Errorf("%w: account is locked", services.ErrForbidden), http.StatusForbidden},
		{services.ErrNotFound, http.StatusNotFound},
		{services.ErrPlanRequired, http.StatusPaymentRequired},
		{services.ErrQuotaExceeded, http.StatusTooManyRequests},
		{services.ErrStorageExceeded, http.StatusRequestEntityTooLarge},
		{services.ErrUpstream, http.StatusBadGateway},
		{services.ErrNotConfigured, http.StatusServiceUnavailable},
		{errors.New("pq: connection reset"), http.StatusInternalServerError},
	}

	for _, tc := range cases {
		t.Run(tc.err.Error(), func(t *testing.T) {
			router := newRouter()
			router.Use(asUser(userID, "jane@example.com"))
			router.GET("/profile", handlers.NewProfileHandler(&fakeProfiles{err: tc.err}, &fakeAccounts{}, quietLog()).GetProfile)

			w := doJSON(t, router, http.MethodGet, "/profile", nil)
			assert.Equal(t, tc.status, w.Code)
		})
	}
}

func TestInternalErrorDetailIsHidden(t *testing.T) {
	router := newRouter()
	router.Use(asUser(userID, "jane@example.com"))
	router.GET("/profile", handlers.NewProfileHandler(&fakeProfiles{err: errors.New("pq: password authentication failed")}, &fakeAccounts{}, quietLog()).GetProfile)

	w := doJSON(t, router, http.MethodGet, "/profile", nil)

	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.NotContains(t, w.Body.String(), "password")
}

func TestUploadAvatar(t *testing.T) {
	accounts := &fakeAccounts{}
	w := doRequest(photoRouter(accounts), multipartPhoto(t, "/profile/avatar", "file", []byte("png-bytes")))

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, models.PhotoAvatar, accounts.kind)
	assert.Equal(t, []byte("png-bytes"), accounts.data)

	var p models.Profile
	decode(t, w, &p)
	require.NotNil(t, p.AvatarURL)
	assert.Contains(t, *p.AvatarURL, "avatar")
}

func TestUploadCover(t *testing.T) {
	accounts := &fakeAccounts{}
	w := doRequest(photoRouter(accounts), multipartPhoto(t, "/profile/cover", "file", []byte("png-bytes")))

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, models.PhotoCover, accounts.kind)
}

func TestUploadPhoto_MissingFile(t *testing.T) {
	accounts := &fakeAccounts{}
	w := doRequest(photoRouter(accounts), multipartPhoto(t, "/profile/avatar", "image", []byte("png-bytes")))

	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), "no photo uploaded")
	assert.Empty(t, accounts.kind)
}

func TestUploadPhoto_TooLarge(t *testing.T) {
	accounts := &fakeAccounts{}
	big := make([]byte, services.MaxPhotoBytes+1)
	w := doRequest(photoRouter(accounts), multipartPhoto(t, "/profile/avatar", "file", big))

	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), "photo too large")
	assert.Empty(t, accounts.kind)
}

func TestUploadPhoto_StorageFull(t *testing.T) {
	accounts := &fakeAccounts{err: services.ErrStorageExceeded}
	w := doRequest(photoRouter(accounts), multipartPhoto(t, "/profile/avatar", "file", []byte("png-bytes")))

	assert.Equal(t, http.StatusRequestEntityTooLarge, w.Code)
}

func TestDeleteAccount(t *testing.T) {
	accounts := &fakeAccounts{}
	w := doJSON(t, photoRouter(accounts), http.MethodDelete, "/profile", models.DeleteAccountRequest{ConfirmEmail: "jane@example.com"})

	assert.Equal(t, http.StatusNoContent, w.Code)
	assert.True(t, accounts.deleted)
	assert.Equal(t, "jane@example.com", accounts.confirmed)
}

func TestDeleteAccount_RequiresConfirmation(t *testing.T) {
	accounts := &fakeAccounts{}
	w := doJSON(t, photoRouter(accounts), http.MethodDelete, "/profile", map[string]string{})

	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.False(t, accounts.deleted)
}

func TestDeleteAccount_WrongEmail(t *testing.T) {
	accounts := &fakeAccounts{err: fmt.Errorf("%w: confirmation does not match the account email", services.ErrInvalidInput)}
	w := doJSON(t, photoRouter(accounts), http.MethodDelete, "/profile", models.DeleteAccountRequest{ConfirmEmail: "nope@example.com"})

	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), "confirmation does not match")
}
