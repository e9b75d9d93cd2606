// Package editor applies the photo editor's adjustments to stored images.
package editor

import (
	"bytes"
	"errors"
	"fmt"
	"image"
	"image/color"
	"image/jpeg"
	"image/png"
	"math"

	"github.com/disintegration/gift"
)

const (
	MaxImageWidth  = 4096
	MaxImageHeight = 4096
	JPEGQuality    = 90

	MaxPercent    = 200
	MaxBlurRadius = 20
	MaxHue        = 180
	MaxRotation   = 360
)

var ErrInvalidAdjustment = errors.New("invalid adjustment")

type FilterError struct {
	FilterName string
	Message    string
}

func (e FilterError) Error() string {
	return fmt.Sprintf("filter '%s': %s", e.FilterName, e.Message)
}

func (e FilterError) Unwrap() error {
	return ErrInvalidAdjustment
}

// Adjustments mirrors the editor sliders. Percentages use 100 as identity.
type Adjustments struct {
	Brightness float64 `json:"brightness"`
	Contrast   float64 `json:"contrast"`
	Saturation float64 `json:"saturation"`
	Blur       float64 `json:"blur"`
	Sepia      float64 `json:"sepia"`
	Grayscale  float64 `json:"grayscale"`
	Hue        float64 `json:"hue"`
	Rotation   float64 `json:"rotation"`
	FlipX      bool    `json:"flip_x"`
	FlipY      bool    `json:"flip_y"`
	// Format of the edited copy: jpeg or png. Empty keeps jpeg.
	Format string `json:"format,omitempty"`
}

func Identity() Adjustments {
	return Adjustments{Brightness: 100, Contrast: 100, Saturation: 100}
}

func (a Adjustments) Validate() error {
	checks := []struct {
		name     string
		value    float64
		min, max float64
	}{
		{"brightness", a.Brightness, 0, MaxPercent},
		{"contrast", a.Contrast, 0, MaxPercent},
		{"saturation", a.Saturation, 0, MaxPercent},
		{"blur", a.Blur, 0, MaxBlurRadius},
		{"sepia", a.Sepia, 0, 100},
		{"grayscale", a.Grayscale, 0, 100},
		{"hue", a.Hue, -MaxHue, MaxHue},
		{"rotation", a.Rotation, -MaxRotation, MaxRotation},
	}
	for _, c := range checks {
		if math.IsNaN(c.value) || c.value < c.min || c.value > c.max {
			return FilterError{c.name, fmt.Sprintf("must be between %.0f and %.0f", c.min, c.max)}
		}
	}
	switch a.Format {
	case "", "jpeg", "png":
	default:
		return FilterError{"format", fmt.Sprintf("unsupported output format %q", a.Format)}
	}
	return nil
}

func (a Adjustments) IsIdentity() bool {
	return len(a.Filters()) == 0
}

// Filters builds the pipeline in its fixed order: rotate, flip, brightness,
// contrast, saturation, blur, sepia, grayscale, hue. Identity values add
// nothing.
func (a Adjustments) Filters() []gift.Filter {
	var filters []gift.Filter

	if f := rotation(a.Rotation, a.padColor()); f != nil {
		filters = append(filters, f)
	}
	if a.FlipX {
		filters = append(filters, gift.FlipHorizontal())
	}
	if a.FlipY {
		filters = append(filters, gift.FlipVertical())
	}
	if a.Brightness != 100 {
		filters = append(filters, gift.Brightness(float32(a.Brightness-100)))
	}
	if a.Contrast != 100 {
		filters = append(filters, gift.Contrast(float32(a.Contrast-100)))
	}
	if a.Saturation != 100 {
		filters = append(filters, gift.Saturation(float32(a.Saturation-100)))
	}
	if a.Blur > 0 {
		filters = append(filters, gift.GaussianBlur(float32(a.Blur)))
	}
	if a.Sepia > 0 {
		filters = append(filters, gift.Sepia(float32(a.Sepia)))
	}
	if a.Grayscale >= 100 {
		filters = append(filters, gift.Grayscale())
	} else if a.Grayscale > 0 {
		filters = append(filters, gift.Saturation(float32(-a.Grayscale)))
	}
	if a.Hue != 0 {
		filters = append(filters, gift.Hue(float32(a.Hue)))
	}

	return filters
}

// padColor fills the corners a free rotation uncovers. Jpeg has no alpha,
// so transparent corners would come out black.
func (a Adjustments) padColor() color.Color {
	if a.Format == "png" {
		return color.Transparent
	}
	return color.White
}

// rotation maps a clockwise angle onto gift's counter-clockwise filters.
func rotation(deg float64, pad color.Color) gift.Filter {
	norm := math.Mod(deg, 360)
	if norm < 0 {
		norm += 360
	}
	switch norm {
	case 0:
		return nil
	case 90:
		return gift.Rotate270()
	case 180:
		return gift.Rotate180()
	case 270:
		return gift.Rotate90()
	}
	return gift.Rotate(float32(-norm), pad, gift.CubicInterpolation)
}

// Decode reads a jpeg or png image and enforces the size limit.
func Decode(data []byte) (image.Image, string, error) {
	cfg, format, err := image.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		return nil, "", fmt.Errorf("failed to decode image: %w", err)
	}
	if cfg.Width > MaxImageWidth || cfg.Height > MaxImageHeight {
		return nil, "", fmt.Errorf("image too large (max %dx%d)", MaxImageWidth, MaxImageHeight)
	}

	img, format, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, "", fmt.Errorf("failed to decode image: %w", err)
	}
	return img, format, nil
}

func Apply(src image.Image, a Adjustments) image.Image {
	g := gift.New(a.Filters()...)
	dst := image.NewRGBA(g.Bounds(src.Bounds()))
	g.Draw(dst, src)
	return dst
}

// Encode serializes the result. Anything other than png is written as jpeg.
func Encode(img image.Image, format string) ([]byte, string, error) {
	var buf bytes.Buffer
	switch format {
	case "png":
		if err := png.Encode(&buf, img); err != nil {
			return nil, "", fmt.Errorf("failed to encode image: %w", err)
		}
		return buf.Bytes(), "png", nil
	default:
		if err := jpeg.Encode(&buf, img, &jpeg.Options{Quality: JPEGQuality}); err != nil {
			return nil, "", fmt.Errorf("failed to encode image: %w", err)
		}
		return buf.Bytes(), "jpeg", nil
	}
}

// Process decodes, adjusts and re-encodes in one step.
func Process(data []byte, a Adjustments) ([]byte, string, error) {
	if err := a.Validate(); err != nil {
		return nil, "", err
	}
	src, _, err := Decode(data)
	if err != nil {
		return nil, "", err
	}
	return Encode(Apply(src, a), a.Format)
}
