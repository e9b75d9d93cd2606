package editor_test

import (
	"bytes"
	"image"
	"image/color"
	"image/png"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"naxovate-backend/internal/editor"
)

func testPNG(t *testing.T, w, h int) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.Set(x, y, color.RGBA{R: 200, G: 40, B: 40, A: 255})
		}
	}
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	return buf.Bytes()
}

func TestIdentityAddsNoFilters(t *testing.T) {
	a := editor.Identity()
	assert.True(t, a.IsIdentity())
	assert.NoError(t, a.Validate())
}

func TestFilters_Order(t *testing.T) {
	a := editor.Identity()
	a.Rotation = 90
	a.FlipX = true
	a.Brightness = 120
	a.Blur = 2
	a.Hue = 30

	assert.Len(t, a.Filters(), 5)
}

func TestValidate_Ranges(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*editor.Adjustments)
	}{
		{"brightness", func(a *editor.Adjustments) { a.Brightness = 201 }},
		{"contrast", func(a *editor.Adjustments) { a.Contrast = -1 }},
		{"blur", func(a *editor.Adjustments) { a.Blur = 25 }},
		{"sepia", func(a *editor.Adjustments) { a.Sepia = 101 }},
		{"hue", func(a *editor.Adjustments) { a.Hue = -181 }},
		{"rotation", func(a *editor.Adjustments) { a.Rotation = 720 }},
		{"format", func(a *editor.Adjustments) { a.Format = "gif" }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			a := editor.Identity()
			tt.mutate(&a)
			err := a.Validate()
			require.Error(t, err)
			assert.ErrorIs(t, err, editor.ErrInvalidAdjustment)
			assert.Contains(t, err.Error(), tt.name)
		})
	}
}

func TestProcess_RotateSwapsDimensions(t *testing.T) {
	a := editor.Identity()
	a.Rotation = 90
	a.Format = "png"

	out, format, err := editor.Process(testPNG(t, 40, 20), a)
	require.NoError(t, err)
	assert.Equal(t, "png", format)

	img, _, err := image.Decode(bytes.NewReader(out))
	require.NoError(t, err)
	assert.Equal(t, 20, img.Bounds().Dx())
	assert.Equal(t, 40, img.Bounds().Dy())
}

func TestProcess_GrayscaleRemovesColor(t *testing.T) {
	a := editor.Identity()
	a.Grayscale = 100
	a.Format = "png"

	out, _, err := editor.Process(testPNG(t, 4, 4), a)
	require.NoError(t, err)

	img, _, err := image.Decode(bytes.NewReader(out))
	require.NoError(t, err)
	r, g, b, _ := img.At(1, 1).RGBA()
	assert.Equal(t, r, g)
	assert.Equal(t, g, b)
}

func TestProcess_DefaultsToJPEG(t *testing.T) {
	out, format, err := editor.Process(testPNG(t, 8, 8), editor.Identity())
	require.NoError(t, err)
	assert.Equal(t, "jpeg", format)

	_, decoded, err := image.Decode(bytes.NewReader(out))
	require.NoError(t, err)
	assert.Equal(t, "jpeg", decoded)
}

func TestProcess_FreeRotationPadsJPEGWithWhite(t *testing.T) {
	a := editor.Identity()
	a.Rotation = 45

	out, format, err := editor.Process(testPNG(t, 80, 80), a)
	require.NoError(t, err)
	assert.Equal(t, "jpeg", format)

	img, _, err := image.Decode(bytes.NewReader(out))
	require.NoError(t, err)
	r, g, b, _ := img.At(img.Bounds().Min.X, img.Bounds().Min.Y).RGBA()
	assert.Greater(t, r>>8, uint32(230))
	assert.Greater(t, g>>8, uint32(230))
	assert.Greater(t, b>>8, uint32(230))
}

func TestProcess_FreeRotationKeepsPNGCornersTransparent(t *testing.T) {
	a := editor.Identity()
	a.Rotation = 45
	a.Format = "png"

	out, _, err := editor.Process(testPNG(t, 40, 40), a)
	require.NoError(t, err)

	img, _, err := image.Decode(bytes.NewReader(out))
	require.NoError(t, err)
	_, _, _, alpha := img.At(img.Bounds().Min.X, img.Bounds().Min.Y).RGBA()
	assert.Zero(t, alpha)
}

func TestDecode_RejectsGarbage(t *testing.T) {
	_, _, err := editor.Decode([]byte("not an image"))
	assert.Error(t, err)
}

func TestDecode_RejectsOversized(t *testing.T) {
	_, _, err := editor.Decode(testPNG(t, editor.MaxImageWidth+1, 1))
	assert.Error(t, err)
}
