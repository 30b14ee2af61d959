package genai

import (
	"context"
	"encoding/base64"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"receptionist/internal/domain"
)

// Blob is binary content with its MIME type.
type Blob struct {
	MIMEType string
	Data     []byte
}

// Part is one piece of a message: text or inline bytes.
type Part struct {
	Text       string
	InlineData *Blob
}

// Content is a single turn of a conversation.
type Content struct {
	Role  string
	Parts []Part
}

// ContentRequest is the input to GenerateContent.
type ContentRequest struct {
	Model             string
	Contents          []Content
	SystemInstruction string
	ThinkingBudget    int
	ImageAspectRatio  string
	ImageSize         string
}

// ContentResponse holds the first candidate's parts. Text joins every
// non-thought text part.
type ContentResponse struct {
	Text         string
	Parts        []Part
	FinishReason string
}

type geminiContent struct {
	Role  string       `json:"role,omitempty"`
	Parts []geminiPart `json:"parts"`
}

type geminiPart struct {
	Text       string            `json:"text,omitempty"`
	Thought    bool              `json:"thought,omitempty"`
	InlineData *geminiInlineData `json:"inlineData,omitempty"`
}

type geminiInlineData struct {
	MimeType string `json:"mimeType,omitempty"`
	Data     string `json:"data,omitempty"`
}

type geminiThinkingConfig struct {
	ThinkingBudget int `json:"thinkingBudget"`
}

type geminiImageConfig struct {
	AspectRatio string `json:"aspectRatio,omitempty"`
	ImageSize   string `json:"imageSize,omitempty"`
}

type geminiGenerationConfig struct {
	ThinkingConfig     *geminiThinkingConfig `json:"thinkingConfig,omitempty"`
	ImageConfig        *geminiImageConfig    `json:"imageConfig,omitempty"`
	ResponseModalities []string              `json:"responseModalities,omitempty"`
}

type geminiGenerateContentRequest struct {
	Contents          []geminiContent         `json:"contents"`
	SystemInstruction *geminiContent          `json:"systemInstruction,omitempty"`
	GenerationConfig  *geminiGenerationConfig `json:"generationConfig,omitempty"`
}

type geminiCandidate struct {
	Content      geminiContent `json:"content"`
	FinishReason string        `json:"finishReason,omitempty"`
}

type geminiGenerateContentResponse struct {
	Candidates     []geminiCandidate `json:"candidates"`
	PromptFeedback *struct {
		BlockReason string `json:"blockReason,omitempty"`
	} `json:"promptFeedback,omitempty"`
}

// GenerateContent calls models/{model}:generateContent.
func (c *Client) GenerateContent(ctx context.Context, req ContentRequest) (*ContentResponse, error) {
	model := strings.TrimSpace(req.Model)
	if model == "" {
		return nil, domain.InvalidRequestf("model is required")
	}
	if len(req.Contents) == 0 {
		return nil, domain.InvalidRequestf("contents are required")
	}

	payload := geminiGenerateContentRequest{Contents: encodeContents(req.Contents)}
	if sys := strings.TrimSpace(req.SystemInstruction); sys != "" {
		payload.SystemInstruction = &geminiContent{Parts: []geminiPart{{Text: sys}}}
	}
	var cfg geminiGenerationConfig
	if req.ThinkingBudget > 0 {
		cfg.ThinkingConfig = &geminiThinkingConfig{ThinkingBudget: req.ThinkingBudget}
	}
	if req.ImageAspectRatio != "" || req.ImageSize != "" {
		cfg.ImageConfig = &geminiImageConfig{AspectRatio: req.ImageAspectRatio, ImageSize: req.ImageSize}
		cfg.ResponseModalities = []string{"TEXT", "IMAGE"}
	}
	if cfg.ThinkingConfig != nil || cfg.ImageConfig != nil {
		payload.GenerationConfig = &cfg
	}

	var response geminiGenerateContentResponse
	path := fmt.Sprintf("models/%s:generateContent", url.PathEscape(model))
	if err := c.invoke(ctx, "generate content", http.MethodPost, path, payload, &response); err != nil {
		return nil, err
	}

	if len(response.Candidates) == 0 {
		reason := ""
		if response.PromptFeedback != nil {
			reason = response.PromptFeedback.BlockReason
		}
		return nil, domain.NewJobError(domain.ErrEmptyResult, "generate content", firstNonEmpty(reason, "no candidates returned"), nil)
	}

	out, err := decodeCandidate(response.Candidates[0])
	if err != nil {
		return nil, err
	}

	c.logger.Debug().
		Str("model", model).
		Int("parts", len(out.Parts)).
		Str("finish_reason", out.FinishReason).
		Msg("genai: generated content")

	return out, nil
}

func encodeContents(contents []Content) []geminiContent {
	out := make([]geminiContent, 0, len(contents))
	for _, content := range contents {
		role := content.Role
		if role == "" {
			role = "user"
		}
		gc := geminiContent{Role: role}
		for _, part := range content.Parts {
			gp := geminiPart{Text: part.Text}
			if part.InlineData != nil {
				gp.InlineData = &geminiInlineData{
					MimeType: part.InlineData.MIMEType,
					Data:     base64.StdEncoding.EncodeToString(part.InlineData.Data),
				}
			}
			gc.Parts = append(gc.Parts, gp)
		}
		out = append(out, gc)
	}
	return out
}

func decodeCandidate(candidate geminiCandidate) (*ContentResponse, error) {
	out := &ContentResponse{FinishReason: candidate.FinishReason}
	var texts []string
	for _, part := range candidate.Content.Parts {
		if part.Thought {
			continue
		}
		if part.InlineData != nil && part.InlineData.Data != "" {
			data, err := base64.StdEncoding.DecodeString(part.InlineData.Data)
			if err != nil {
				return nil, domain.NewJobError(domain.ErrProvider, "generate content", "undecodable inline data", err)
			}
			out.Parts = append(out.Parts, Part{InlineData: &Blob{MIMEType: part.InlineData.MimeType, Data: data}})
			continue
		}
		if part.Text != "" {
			texts = append(texts, part.Text)
			out.Parts = append(out.Parts, Part{Text: part.Text})
		}
	}
	out.Text = strings.TrimSpace(strings.Join(texts, ""))
	return out, nil
}

// FirstInline returns the first inline blob of the response, if any.
func (r *ContentResponse) FirstInline() *Blob {
	if r == nil {
		return nil
	}
	for _, part := range r.Parts {
		if part.InlineData != nil && len(part.InlineData.Data) > 0 {
			return part.InlineData
		}
	}
	return nil
}
