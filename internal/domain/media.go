package domain

import (
	"encoding/base64"
	"strings"
)

// DefaultVideoPrompt is sent when the caller leaves the prompt blank.
const DefaultVideoPrompt = "Animate this image"

// ReferenceImage is the conditioning image for a video job.
type ReferenceImage struct {
	Data     []byte
	MIMEType string
}

// GenerationRequest describes one image-to-video job. Build it with
// NewGenerationRequest and pass it by value; nothing mutates it afterwards.
type GenerationRequest struct {
	Prompt      string
	Image       ReferenceImage
	AspectRatio AspectRatio
}

// NewGenerationRequest normalizes the aspect ratio and copies the image bytes
// so later changes to the caller's buffer cannot leak into the request.
func NewGenerationRequest(prompt string, image ReferenceImage, aspect string) GenerationRequest {
	data := make([]byte, len(image.Data))
	copy(data, image.Data)
	return GenerationRequest{
		Prompt: strings.TrimSpace(prompt),
		Image: ReferenceImage{
			Data:     data,
			MIMEType: strings.TrimSpace(image.MIMEType),
		},
		AspectRatio: NormalizeVideoAspect(aspect),
	}
}

// EffectivePrompt returns the prompt sent to the provider.
func (r GenerationRequest) EffectivePrompt() string {
	if r.Prompt == "" {
		return DefaultVideoPrompt
	}
	return r.Prompt
}

// Validate checks the invariants required before submission.
func (r GenerationRequest) Validate() error {
	if len(r.Image.Data) == 0 {
		return InvalidRequestf("reference image is empty")
	}
	if r.Image.MIMEType == "" {
		return InvalidRequestf("reference image mime type is required")
	}
	if !r.AspectRatio.IsVideoAspect() {
		return InvalidRequestf("aspect ratio %q is not supported for video", r.AspectRatio)
	}
	return nil
}

// MediaResult locates one generated artifact. Either URI or Data is set.
type MediaResult struct {
	URI      string
	Data     []byte
	MIMEType string
}

// IsInline reports whether the artifact bytes are already in hand.
func (m MediaResult) IsInline() bool {
	return len(m.Data) > 0
}

// DataURL renders inline bytes as a data: URL.
func (m MediaResult) DataURL() string {
	if !m.IsInline() {
		return ""
	}
	mime := m.MIMEType
	if mime == "" {
		mime = "application/octet-stream"
	}
	return "data:" + mime + ";base64," + base64.StdEncoding.EncodeToString(m.Data)
}
