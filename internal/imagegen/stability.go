package imagegen

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"strconv"
	"strings"
	"time"
)

const (
	ProviderStability = "stability"

	generatePath    = "/v2beta/stable-image/generate/sd3"
	maxErrorBodyLen = 512
	maxImageBytes   = 25 << 20
)

// StabilityClient calls the Stable Diffusion 3.5 generate endpoint.
type StabilityClient struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
	backoffs   []time.Duration
	maxRetries int
	maxBytes   int64
}

func NewStabilityClient(baseURL, apiKey string, timeout time.Duration) *StabilityClient {
	if timeout <= 0 {
		timeout = 90 * time.Second
	}
	return &StabilityClient{
		baseURL: strings.TrimSuffix(baseURL, "/"),
		apiKey:  apiKey,
		httpClient: &http.Client{
			Timeout: timeout,
		},
		backoffs:   []time.Duration{1 * time.Second, 2 * time.Second, 4 * time.Second},
		maxRetries: 3,
		maxBytes:   maxImageBytes,
	}
}

// WithBackoffs overrides the retry schedule.
func (c *StabilityClient) WithBackoffs(backoffs ...time.Duration) *StabilityClient {
	c.backoffs = backoffs
	return c
}

func (c *StabilityClient) Name() string {
	return ProviderStability
}

// APIError is a non-2xx answer from the provider.
type APIError struct {
	StatusCode int
	Body       string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("image generation failed: status %d, body: %s", e.StatusCode, e.Body)
}

// Temporary reports whether retrying may succeed.
func (e *APIError) Temporary() bool {
	return e.StatusCode == http.StatusTooManyRequests || e.StatusCode >= 500
}

func (c *StabilityClient) Generate(ctx context.Context, req Request) (*Result, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}

	var result *Result
	err := c.RetryWithBackoff(ctx, func() error {
		var err error
		result, err = c.generateOnce(ctx, req)
		return err
	}, c.maxRetries)
	if err != nil {
		return nil, err
	}
	return result, nil
}

func (c *StabilityClient) generateOnce(ctx context.Context, req Request) (*Result, error) {
	body, contentType, err := encodeForm(req)
	if err != nil {
		return nil, permanent(fmt.Errorf("failed to encode request: %w", err))
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+generatePath, body)
	if err != nil {
		return nil, permanent(fmt.Errorf("failed to create request: %w", err))
	}
	httpReq.Header.Set("Authorization", "Bearer "+c.apiKey)
	httpReq.Header.Set("Accept", "image/*")
	httpReq.Header.Set("Content-Type", contentType)

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("failed to execute request: %w", err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, c.maxBytes+1))
	if err != nil {
		return nil, fmt.Errorf("failed to read response body: %w", err)
	}
	if int64(len(data)) > c.maxBytes {
		return nil, permanent(fmt.Errorf("image exceeds %d bytes", c.maxBytes))
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		apiErr := &APIError{StatusCode: resp.StatusCode, Body: truncate(string(data), maxErrorBodyLen)}
		if apiErr.Temporary() {
			return nil, apiErr
		}
		return nil, permanent(apiErr)
	}

	if len(data) == 0 {
		return nil, permanent(errors.New("no image data received from API"))
	}

	ct := resp.Header.Get("Content-Type")
	if !strings.HasPrefix(ct, "image/") {
		ct = ContentType(req.OutputFormat)
	}

	return &Result{
		Data:        data,
		ContentType: ct,
		Format:      req.OutputFormat,
		Provider:    ProviderStability,
	}, nil
}

func encodeForm(req Request) (*bytes.Buffer, string, error) {
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)

	fields := [][2]string{
		{"prompt", req.Prompt},
		{"aspect_ratio", req.AspectRatio},
		{"output_format", req.OutputFormat},
		{"cfg_scale", strconv.FormatFloat(req.CfgScale, 'f', -1, 64)},
		{"negative_prompt", req.NegativePrompt},
		{"model", req.Model},
	}
	if req.Style != "" {
		fields = append(fields, [2]string{"style_preset", req.Style})
	}
	if req.Seed != nil {
		fields = append(fields, [2]string{"seed", strconv.FormatInt(*req.Seed, 10)})
	}

	for _, f := range fields {
		if err := w.WriteField(f[0], f[1]); err != nil {
			return nil, "", err
		}
	}
	if err := w.Close(); err != nil {
		return nil, "", err
	}
	return &buf, w.FormDataContentType(), nil
}

type permanentError struct{ err error }

func (p *permanentError) Error() string { return p.err.Error() }
func (p *permanentError) Unwrap() error { return p.err }

func permanent(err error) error { return &permanentError{err: err} }

// RetryWithBackoff executes fn with exponential backoff. Errors marked
// permanent and context cancellation stop the loop early.
func (c *StabilityClient) RetryWithBackoff(ctx context.Context, fn func() error, maxRetries int) error {
	var lastErr error
	for i := 0; i < maxRetries; i++ {
		err := fn()
		if err == nil {
			return nil
		}

		var p *permanentError
		if errors.As(err, &p) {
			return p.err
		}

		lastErr = err
		if i == maxRetries-1 {
			break
		}
		if i < len(c.backoffs) {
			select {
			case <-ctx.Done():
				return fmt.Errorf("retry aborted: %w", ctx.Err())
			case <-time.After(c.backoffs[i]):
			}
		}
	}

	return fmt.Errorf("failed after %d retries: %w", maxRetries, lastErr)
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
