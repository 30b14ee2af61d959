package image

import (
	"context"
	"strings"

	"receptionist/internal/domain"
)

// GenerateRequest describes a text-to-image request.
type GenerateRequest struct {
	Prompt      string
	AspectRatio domain.AspectRatio
}

// NewGenerateRequest validates the prompt and aspect ratio. An empty ratio
// selects 1:1.
func NewGenerateRequest(prompt, aspect string) (GenerateRequest, error) {
	prompt = strings.TrimSpace(prompt)
	if prompt == "" {
		return GenerateRequest{}, domain.InvalidRequestf("prompt is required")
	}
	ratio, err := domain.ParseImageAspect(aspect)
	if err != nil {
		return GenerateRequest{}, err
	}
	return GenerateRequest{Prompt: prompt, AspectRatio: ratio}, nil
}

// Asset is a generated image held in memory.
type Asset struct {
	Data        []byte
	MIMEType    string
	AspectRatio domain.AspectRatio
}

// DataURL renders the image for direct use in an <img> tag.
func (a Asset) DataURL() string {
	return domain.MediaResult{Data: a.Data, MIMEType: a.MIMEType}.DataURL()
}

// Generator is the contract implemented by image providers.
type Generator interface {
	Generate(ctx context.Context, req GenerateRequest) (Asset, error)
}
