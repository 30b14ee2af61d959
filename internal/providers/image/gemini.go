package image

import (
	"context"
	"strings"

	"receptionist/internal/domain"
	"receptionist/internal/infra"
	"receptionist/internal/providers/genai"
)

const (
	defaultModel     = "gemini-3-pro-image-preview"
	defaultImageSize = "1K"
)

type ContentGenerator interface {
	GenerateContent(ctx context.Context, req genai.ContentRequest) (*genai.ContentResponse, error)
}

// GeminiGenerator produces one image per call through generateContent and
// returns the first inline image part.
type GeminiGenerator struct {
	client ContentGenerator
	model  string
	size   string
	logger *infra.Logger
}

func NewGeminiGenerator(client ContentGenerator, model, size string, logger *infra.Logger) *GeminiGenerator {
	model = strings.TrimSpace(model)
	if model == "" {
		model = defaultModel
	}
	size = strings.TrimSpace(size)
	if size == "" {
		size = defaultImageSize
	}
	if logger == nil {
		logger = infra.DiscardLogger()
	}
	return &GeminiGenerator{client: client, model: model, size: size, logger: logger}
}

func (g *GeminiGenerator) Generate(ctx context.Context, req GenerateRequest) (Asset, error) {
	if strings.TrimSpace(req.Prompt) == "" {
		return Asset{}, domain.InvalidRequestf("prompt is required")
	}
	ratio := req.AspectRatio
	if ratio == "" {
		ratio = domain.AspectSquare
	}

	resp, err := g.client.GenerateContent(ctx, genai.ContentRequest{
		Model:            g.model,
		Contents:         []genai.Content{{Role: "user", Parts: []genai.Part{{Text: req.Prompt}}}},
		ImageAspectRatio: string(ratio),
		ImageSize:        g.size,
	})
	if err != nil {
		return Asset{}, err
	}
	blob := resp.FirstInline()
	if blob == nil {
		return Asset{}, domain.NewJobError(domain.ErrEmptyResult, "generate image", "no image generated", nil)
	}
	mime := blob.MIMEType
	if mime == "" {
		mime = "image/png"
	}

	g.logger.Debug().
		Str("model", g.model).
		Str("aspect_ratio", string(ratio)).
		Int("bytes", len(blob.Data)).
		Msg("image: generated")

	return Asset{Data: blob.Data, MIMEType: mime, AspectRatio: ratio}, nil
}

var _ Generator = (*GeminiGenerator)(nil)
