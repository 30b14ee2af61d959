package analysis

import (
	"context"
	"strings"

	"receptionist/internal/domain"
	"receptionist/internal/infra"
	"receptionist/internal/providers/genai"
)

const (
	DefaultPrompt = "Describe this media in detail."

	defaultModel = "gemini-3-pro-preview"
)

// Media is one uploaded image or video.
type Media struct {
	Data     []byte
	MIMEType string
}

type ContentGenerator interface {
	GenerateContent(ctx context.Context, req genai.ContentRequest) (*genai.ContentResponse, error)
}

// Analyzer sends a single media file and a question to a multimodal model.
type Analyzer struct {
	client ContentGenerator
	model  string
	logger *infra.Logger
}

func NewAnalyzer(client ContentGenerator, model string, logger *infra.Logger) *Analyzer {
	model = strings.TrimSpace(model)
	if model == "" {
		model = defaultModel
	}
	if logger == nil {
		logger = infra.DiscardLogger()
	}
	return &Analyzer{client: client, model: model, logger: logger}
}

func (a *Analyzer) Analyze(ctx context.Context, media Media, prompt string) (string, error) {
	if len(media.Data) == 0 {
		return "", domain.InvalidRequestf("media file is empty")
	}
	mime := strings.ToLower(strings.TrimSpace(media.MIMEType))
	if !strings.HasPrefix(mime, "image/") && !strings.HasPrefix(mime, "video/") {
		return "", domain.InvalidRequestf("unsupported media type %q", media.MIMEType)
	}
	prompt = strings.TrimSpace(prompt)
	if prompt == "" {
		prompt = DefaultPrompt
	}

	resp, err := a.client.GenerateContent(ctx, genai.ContentRequest{
		Model: a.model,
		Contents: []genai.Content{{
			Role: "user",
			Parts: []genai.Part{
				{InlineData: &genai.Blob{MIMEType: mime, Data: media.Data}},
				{Text: prompt},
			},
		}},
	})
	if err != nil {
		return "", err
	}
	if resp.Text == "" {
		return "", domain.NewJobError(domain.ErrEmptyResult, "analyze", "model returned no text", nil)
	}
	a.logger.Debug().Str("model", a.model).Str("mime_type", mime).Int("bytes", len(media.Data)).Msg("analysis: done")
	return resp.Text, nil
}
