package imagegen

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"naxovate-backend/internal/models"
)

// ErrInvalidRequest wraps every validation failure.
var ErrInvalidRequest = errors.New("invalid generation request")

type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

func (e *ValidationError) Unwrap() error {
	return ErrInvalidRequest
}

// Request is a fully defaulted and validated generation request.
type Request struct {
	Prompt         string  `json:"prompt,omitempty"`
	Style          string  `json:"style,omitempty"`
	Model          string  `json:"model"`
	AspectRatio    string  `json:"aspect_ratio"`
	OutputFormat   string  `json:"output_format"`
	CfgScale       float64 `json:"cfg_scale"`
	NegativePrompt string  `json:"negative_prompt"`
	Seed           *int64  `json:"seed,omitempty"`
}

type Result struct {
	Data        []byte
	ContentType string
	Format      string
	Provider    string
}

// Generator produces one image per call.
type Generator interface {
	Name() string
	Generate(ctx context.Context, req Request) (*Result, error)
}

// NewRequest applies defaults to a client request and validates it.
func NewRequest(in models.GenerateRequest) (Request, error) {
	req := Request{
		Prompt:         strings.TrimSpace(in.Prompt),
		Style:          strings.TrimSpace(in.Style),
		Model:          in.Model,
		AspectRatio:    in.AspectRatio,
		OutputFormat:   strings.ToLower(in.OutputFormat),
		CfgScale:       DefaultCfgScale,
		NegativePrompt: DefaultNegativePrompt,
		Seed:           in.Seed,
	}
	if req.Model == "" {
		req.Model = DefaultModel
	}
	if req.AspectRatio == "" {
		req.AspectRatio = DefaultAspectRatio
	}
	if req.OutputFormat == "" {
		req.OutputFormat = DefaultOutputFormat
	}
	if in.CfgScale != nil {
		req.CfgScale = *in.CfgScale
	}
	if in.NegativePrompt != nil && strings.TrimSpace(*in.NegativePrompt) != "" {
		req.NegativePrompt = strings.TrimSpace(*in.NegativePrompt)
	}

	if err := req.Validate(); err != nil {
		return Request{}, err
	}
	return req, nil
}

func (r Request) Validate() error {
	if r.Prompt == "" {
		return &ValidationError{Field: "prompt", Message: "please enter a prompt"}
	}
	if len(r.Prompt) > MaxPromptLength {
		return &ValidationError{Field: "prompt", Message: fmt.Sprintf("must be at most %d characters", MaxPromptLength)}
	}
	if !validAspectRatio(r.AspectRatio) {
		return &ValidationError{Field: "aspect_ratio", Message: fmt.Sprintf("unsupported aspect ratio %q", r.AspectRatio)}
	}
	if !validModel(r.Model) {
		return &ValidationError{Field: "model", Message: fmt.Sprintf("unsupported model %q", r.Model)}
	}
	if r.Style != "" && !validStyle(r.Style) {
		return &ValidationError{Field: "style", Message: fmt.Sprintf("unsupported style preset %q", r.Style)}
	}
	if !validFormat(r.OutputFormat) {
		return &ValidationError{Field: "output_format", Message: fmt.Sprintf("unsupported output format %q", r.OutputFormat)}
	}
	if r.CfgScale < MinCfgScale || r.CfgScale > MaxCfgScale {
		return &ValidationError{Field: "cfg_scale", Message: fmt.Sprintf("must be between %.0f and %.0f", MinCfgScale, MaxCfgScale)}
	}
	if r.Seed != nil && (*r.Seed < 0 || *r.Seed > 4294967294) {
		return &ValidationError{Field: "seed", Message: "must be between 0 and 4294967294"}
	}
	return nil
}
