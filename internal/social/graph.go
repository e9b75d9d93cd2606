// Package social posts generated images to Facebook and Instagram through
// the Graph API on behalf of the user.
package social

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/tidwall/gjson"
)

const (
	PlatformFacebook  = "facebook"
	PlatformInstagram = "instagram"
)

var ErrInvalidShare = errors.New("invalid share request")

// GraphError is an error object returned by the Graph API.
type GraphError struct {
	StatusCode int
	Message    string
	Code       int64
}

func (e *GraphError) Error() string {
	return fmt.Sprintf("graph api error (status %d, code %d): %s", e.StatusCode, e.Code, e.Message)
}

type ShareRequest struct {
	Platform    string
	ImageURL    string
	Caption     string
	AccessToken string
}

type GraphClient struct {
	baseURL    string
	httpClient *http.Client
}

func NewGraphClient(baseURL string) *GraphClient {
	return &GraphClient{
		baseURL: strings.TrimSuffix(baseURL, "/"),
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
	}
}

// Share publishes the image and returns the id of the created post.
func (c *GraphClient) Share(ctx context.Context, req ShareRequest) (string, error) {
	if req.Platform == "" || req.ImageURL == "" || req.AccessToken == "" {
		return "", fmt.Errorf("%w: missing required parameters", ErrInvalidShare)
	}

	switch req.Platform {
	case PlatformFacebook:
		return c.shareToFacebook(ctx, req)
	case PlatformInstagram:
		return c.shareToInstagram(ctx, req)
	default:
		return "", fmt.Errorf("%w: invalid platform %q", ErrInvalidShare, req.Platform)
	}
}

func (c *GraphClient) shareToFacebook(ctx context.Context, req ShareRequest) (string, error) {
	params := url.Values{}
	params.Set("url", req.ImageURL)
	params.Set("caption", req.Caption)
	params.Set("access_token", req.AccessToken)

	res, err := c.post(ctx, "/me/photos", params)
	if err != nil {
		return "", err
	}
	if id := res.Get("post_id").String(); id != "" {
		return id, nil
	}
	return res.Get("id").String(), nil
}

func (c *GraphClient) shareToInstagram(ctx context.Context, req ShareRequest) (string, error) {
	params := url.Values{}
	params.Set("image_url", req.ImageURL)
	params.Set("caption", req.Caption)
	params.Set("access_token", req.AccessToken)

	container, err := c.post(ctx, "/me/media", params)
	if err != nil {
		return "", fmt.Errorf("failed to create media container: %w", err)
	}
	creationID := container.Get("id").String()
	if creationID == "" {
		return "", errors.New("graph api returned no media container id")
	}

	publish := url.Values{}
	publish.Set("creation_id", creationID)
	publish.Set("access_token", req.AccessToken)

	res, err := c.post(ctx, "/me/media_publish", publish)
	if err != nil {
		return "", fmt.Errorf("failed to publish media: %w", err)
	}
	return res.Get("id").String(), nil
}

// post sends params as a form body. The access token must never be part of
// the URL, which transport errors echo back.
func (c *GraphClient) post(ctx context.Context, path string, params url.Values) (gjson.Result, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, strings.NewReader(params.Encode()))
	if err != nil {
		return gjson.Result{}, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return gjson.Result{}, fmt.Errorf("failed to execute request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return gjson.Result{}, fmt.Errorf("failed to read response body: %w", err)
	}

	if !gjson.ValidBytes(body) {
		return gjson.Result{}, fmt.Errorf("graph api returned invalid json (status %d)", resp.StatusCode)
	}
	res := gjson.ParseBytes(body)

	if e := res.Get("error"); e.Exists() || resp.StatusCode >= 400 {
		msg := e.Get("message").String()
		if msg == "" {
			msg = http.StatusText(resp.StatusCode)
		}
		return gjson.Result{}, &GraphError{StatusCode: resp.StatusCode, Message: msg, Code: e.Get("code").Int()}
	}
	return res, nil
}
