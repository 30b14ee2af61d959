package video

import (
	"context"
	"errors"
	"strings"

	"receptionist/internal/domain"
	"receptionist/internal/providers/genai"
)

const (
	defaultVeoModel      = "veo-3.1-fast-generate-preview"
	defaultVeoResolution = "720p"
	videoMIMEType        = "video/mp4"
)

// VeoOptions selects the model and output resolution.
type VeoOptions struct {
	Model      string
	Resolution string
}

// VeoBackend adapts the Gemini long-running operation API to Backend. It
// always asks for a single video.
type VeoBackend struct {
	client     *genai.Client
	model      string
	resolution string
}

func NewVeoBackend(client *genai.Client, opts VeoOptions) *VeoBackend {
	model := strings.TrimSpace(opts.Model)
	if model == "" {
		model = defaultVeoModel
	}
	resolution := strings.TrimSpace(opts.Resolution)
	if resolution == "" {
		resolution = defaultVeoResolution
	}
	return &VeoBackend{client: client, model: model, resolution: resolution}
}

// Model returns the configured model identifier.
func (v *VeoBackend) Model() string {
	return v.model
}

func (v *VeoBackend) Submit(ctx context.Context, req domain.GenerationRequest) (Snapshot, error) {
	op, err := v.client.SubmitVideoJob(ctx, genai.VideoJobRequest{
		Model:          v.model,
		Prompt:         req.EffectivePrompt(),
		Image:          genai.Blob{MIMEType: req.Image.MIMEType, Data: req.Image.Data},
		AspectRatio:    string(req.AspectRatio),
		Resolution:     v.resolution,
		NumberOfVideos: 1,
	})
	if err != nil {
		return Snapshot{}, apiError("submit", domain.ErrSubmission, err)
	}
	return snapshotFromOperation(op), nil
}

func (v *VeoBackend) Poll(ctx context.Context, h Handle) (Snapshot, error) {
	op, err := v.client.GetOperation(ctx, h.ref)
	if err != nil {
		return Snapshot{}, apiError("poll", domain.ErrProvider, err)
	}
	return snapshotFromOperation(op), nil
}

func (v *VeoBackend) Fetch(ctx context.Context, result domain.MediaResult) ([]byte, string, error) {
	data, mime, err := v.client.Download(ctx, result.URI)
	if err != nil {
		return nil, "", apiError("fetch", domain.ErrProvider, err)
	}
	if mime == "" || strings.HasPrefix(mime, "application/octet-stream") {
		mime = videoMIMEType
	}
	return data, mime, nil
}

func snapshotFromOperation(op *genai.Operation) Snapshot {
	snap := Snapshot{Handle: Handle{ref: op.Name}}
	switch {
	case op.Failed():
		snap.Status = StatusFailed
		snap.Message = op.ErrorMessage
		if snap.Message == "" {
			snap.Message = "operation failed"
		}
	case op.Done:
		snap.Status = StatusDone
		for _, uri := range op.VideoURIs {
			snap.Artifacts = append(snap.Artifacts, domain.MediaResult{URI: uri, MIMEType: videoMIMEType})
		}
	default:
		snap.Status = StatusPending
	}
	return snap
}

// apiError gives HTTP-level rejections the kind of the phase they happened in.
func apiError(op string, kind, err error) error {
	var apiErr *genai.APIError
	if errors.As(err, &apiErr) {
		return domain.NewJobError(kind, op, apiErr.Message, apiErr)
	}
	return err
}

var _ Backend = (*VeoBackend)(nil)
