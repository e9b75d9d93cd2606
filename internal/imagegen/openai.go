package imagegen

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"strings"

	openai "github.com/sashabaranov/go-openai"
)

const ProviderOpenAI = "openai"

type imageAPI interface {
	CreateImage(ctx context.Context, request openai.ImageRequest) (openai.ImageResponse, error)
}

// OpenAIGenerator is the alternative provider. Style presets and the negative
// prompt are folded into the prompt text since the API has no such fields.
type OpenAIGenerator struct {
	client imageAPI
	model  string
}

func NewOpenAIGenerator(apiKey string) *OpenAIGenerator {
	return newOpenAIGenerator(openai.NewClient(apiKey))
}

func newOpenAIGenerator(client imageAPI) *OpenAIGenerator {
	return &OpenAIGenerator{client: client, model: openai.CreateImageModelDallE3}
}

func (g *OpenAIGenerator) Name() string {
	return ProviderOpenAI
}

func (g *OpenAIGenerator) Generate(ctx context.Context, req Request) (*Result, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}

	resp, err := g.client.CreateImage(ctx, openai.ImageRequest{
		Prompt:         openAIPrompt(req),
		Model:          g.model,
		N:              1,
		Size:           openAISize(req.AspectRatio),
		ResponseFormat: openai.CreateImageResponseFormatB64JSON,
	})
	if err != nil {
		return nil, fmt.Errorf("image generation failed: %w", err)
	}
	if len(resp.Data) == 0 || resp.Data[0].B64JSON == "" {
		return nil, errors.New("no image data received from API")
	}

	data, err := base64.StdEncoding.DecodeString(resp.Data[0].B64JSON)
	if err != nil {
		return nil, fmt.Errorf("failed to decode image: %w", err)
	}

	return &Result{
		Data:        data,
		ContentType: ContentType("png"),
		Format:      "png",
		Provider:    ProviderOpenAI,
	}, nil
}

func openAIPrompt(req Request) string {
	var b strings.Builder
	b.WriteString(req.Prompt)
	if req.Style != "" {
		b.WriteString(". Style: ")
		b.WriteString(strings.ReplaceAll(req.Style, "-", " "))
	}
	if req.NegativePrompt != "" {
		b.WriteString(". Avoid: ")
		b.WriteString(req.NegativePrompt)
	}
	return b.String()
}

func openAISize(ratio string) string {
	w, h := Dimensions(ratio)
	switch {
	case w > h:
		return openai.CreateImageSize1792x1024
	case h > w:
		return openai.CreateImageSize1024x1792
	default:
		return openai.CreateImageSize1024x1024
	}
}
