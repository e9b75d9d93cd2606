package imagegen

import (
	"crypto/rand"
	"fmt"
	"math/big"
	"strings"
	"time"
)

type AspectRatio struct {
	Value  string `json:"value"`
	Width  int    `json:"width"`
	Height int    `json:"height"`
}

type Model struct {
	Value   string  `json:"value"`
	Label   string  `json:"label"`
	Credits float64 `json:"credits"`
}

type StylePreset struct {
	Value string `json:"value"`
	Label string `json:"label"`
}

// Options is the set of choices the generator form offers.
type Options struct {
	AspectRatios  []AspectRatio `json:"aspect_ratios"`
	Models        []Model       `json:"models"`
	StylePresets  []StylePreset `json:"style_presets"`
	OutputFormats []string      `json:"output_formats"`
	Defaults      Request       `json:"defaults"`
}

const (
	DefaultAspectRatio    = "1:1"
	DefaultModel          = "sd3.5-large-turbo"
	DefaultOutputFormat   = "jpeg"
	DefaultCfgScale       = 7.5
	DefaultNegativePrompt = "blurry, low quality, distorted, ugly, bad anatomy"

	MinCfgScale     = 1.0
	MaxCfgScale     = 10.0
	MaxPromptLength = 10000
)

var aspectRatios = []AspectRatio{
	{"1:1", 1024, 1024},
	{"16:9", 1344, 768},
	{"9:16", 768, 1344},
	{"21:9", 1536, 640},
	{"9:21", 640, 1536},
	{"2:3", 896, 1344},
	{"3:2", 1344, 896},
	{"4:5", 1024, 1280},
	{"5:4", 1280, 1024},
}

var modelList = []Model{
	{"sd3.5-large", "SD 3.5 Large (Highest Quality)", 6.5},
	{"sd3.5-large-turbo", "SD 3.5 Large Turbo (Fast & High Quality)", 4},
	{"sd3.5-medium", "SD 3.5 Medium (Balanced)", 3.5},
	{"sd3.5-flash", "SD 3.5 Flash (Fastest)", 2.5},
}

var stylePresets = []StylePreset{
	{"3d-model", "3D Model"},
	{"analog-film", "Analog Film"},
	{"anime", "Anime"},
	{"cinematic", "Cinematic"},
	{"comic-book", "Comic Book"},
	{"digital-art", "Digital Art"},
	{"enhance", "Enhance"},
	{"fantasy-art", "Fantasy Art"},
	{"isometric", "Isometric"},
	{"line-art", "Line Art"},
	{"low-poly", "Low Poly"},
	{"modeling-compound", "Modeling Compound"},
	{"neon-punk", "Neon Punk"},
	{"origami", "Origami"},
	{"photographic", "Photographic"},
	{"pixel-art", "Pixel Art"},
	{"tile-texture", "Tile Texture"},
}

var outputFormats = []string{"jpeg", "png", "webp"}

func Catalog() Options {
	return Options{
		AspectRatios:  append([]AspectRatio(nil), aspectRatios...),
		Models:        append([]Model(nil), modelList...),
		StylePresets:  append([]StylePreset(nil), stylePresets...),
		OutputFormats: append([]string(nil), outputFormats...),
		Defaults: Request{
			AspectRatio:    DefaultAspectRatio,
			Model:          DefaultModel,
			OutputFormat:   DefaultOutputFormat,
			CfgScale:       DefaultCfgScale,
			NegativePrompt: DefaultNegativePrompt,
		},
	}
}

// Dimensions returns the pixel size for a ratio, falling back to 1024x1024.
func Dimensions(ratio string) (int, int) {
	for _, r := range aspectRatios {
		if r.Value == ratio {
			return r.Width, r.Height
		}
	}
	return 1024, 1024
}

// CreditsPerImage is the provider-side cost of one image. Unknown models cost 4.
func CreditsPerImage(model string) float64 {
	for _, m := range modelList {
		if m.Value == model {
			return m.Credits
		}
	}
	return 4
}

func validAspectRatio(v string) bool {
	for _, r := range aspectRatios {
		if r.Value == v {
			return true
		}
	}
	return false
}

func validModel(v string) bool {
	for _, m := range modelList {
		if m.Value == v {
			return true
		}
	}
	return false
}

func validStyle(v string) bool {
	for _, s := range stylePresets {
		if s.Value == v {
			return true
		}
	}
	return false
}

func validFormat(v string) bool {
	for _, f := range outputFormats {
		if f == v {
			return true
		}
	}
	return false
}

// FileName builds the stored object name, for example
// naxovate-anime-2026-03-01T12-00-00-000Z-k3j9x2.jpeg.
func FileName(style, format string, now time.Time) string {
	if style == "" {
		style = "default"
	}
	ts := now.UTC().Format("2006-01-02T15:04:05.000Z")
	ts = strings.NewReplacer(":", "-", ".", "-").Replace(ts)
	return fmt.Sprintf("naxovate-%s-%s-%s.%s", style, ts, randomID(6), format)
}

const idAlphabet = "abcdefghijklmnopqrstuvwxyz0123456789"

func randomID(n int) string {
	b := make([]byte, n)
	max := big.NewInt(int64(len(idAlphabet)))
	for i := range b {
		v, err := rand.Int(rand.Reader, max)
		if err != nil {
			b[i] = idAlphabet[i%len(idAlphabet)]
			continue
		}
		b[i] = idAlphabet[v.Int64()]
	}
	return string(b)
}

func ContentType(format string) string {
	return "image/" + format
}
