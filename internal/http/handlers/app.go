package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"receptionist/internal/domain"
	"receptionist/internal/infra"
	"receptionist/internal/middleware"
	"receptionist/internal/providers/analysis"
	"receptionist/internal/providers/chat"
	"receptionist/internal/providers/image"
	"receptionist/internal/providers/video"
	"receptionist/internal/storage"
)

// ChatService answers one chat turn.
type ChatService interface {
	Reply(ctx context.Context, req chat.Request) (chat.Reply, error)
}

// MediaAnalyzer describes or answers questions about one uploaded file.
type MediaAnalyzer interface {
	Analyze(ctx context.Context, media analysis.Media, prompt string) (string, error)
}

// App holds the dependencies shared by all handlers.
type App struct {
	Logger         *infra.Logger
	Assistant      ChatService
	Analyzer       MediaAnalyzer
	Images         image.Generator
	Videos         video.Generator
	Store          *storage.FileStore
	StorageBaseURL string
	MaxUploadBytes int64
	VideoTimeout   time.Duration
	Now            func() time.Time
}

func (a *App) json(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

func (a *App) error(w http.ResponseWriter, code int, errCode, message string) {
	a.json(w, code, map[string]any{
		"error": map[string]string{
			"code":    errCode,
			"message": message,
		},
	})
}

// fail maps a provider or validation error onto an HTTP response.
func (a *App) fail(w http.ResponseWriter, r *http.Request, op string, err error) {
	logger := a.logger()
	if errors.Is(err, context.Canceled) && r.Context().Err() != nil {
		logger.Info().Str("request_id", middleware.RequestIDFromContext(r.Context())).Str("op", op).Msg("client went away")
		return
	}

	status, code := classify(err)
	event := logger.Warn()
	if status >= http.StatusInternalServerError && status != http.StatusBadGateway && status != http.StatusGatewayTimeout {
		event = logger.Error()
	}
	event.Err(err).
		Str("request_id", middleware.RequestIDFromContext(r.Context())).
		Str("op", op).
		Int("status", status).
		Msg("request failed")

	message := err.Error()
	if status == http.StatusInternalServerError {
		message = "internal error"
	}
	var jobErr *domain.JobError
	if errors.As(err, &jobErr) && jobErr.Message != "" {
		message = jobErr.Message
	}
	a.error(w, status, code, message)
}

func classify(err error) (int, string) {
	switch {
	case errors.Is(err, domain.ErrInvalidRequest):
		return http.StatusBadRequest, "invalid_request"
	case errors.Is(err, domain.ErrMissingAPIKey):
		return http.StatusServiceUnavailable, "provider_unconfigured"
	case errors.Is(err, domain.ErrSubmission):
		return http.StatusBadGateway, "submission_rejected"
	case errors.Is(err, domain.ErrProvider):
		return http.StatusBadGateway, "provider_error"
	case errors.Is(err, domain.ErrEmptyResult):
		return http.StatusBadGateway, "empty_result"
	case errors.Is(err, domain.ErrTimeout):
		return http.StatusGatewayTimeout, "timeout"
	case errors.Is(err, domain.ErrNetwork):
		return http.StatusGatewayTimeout, "network_error"
	}
	return http.StatusInternalServerError, "internal"
}

func (a *App) logger() *infra.Logger {
	if a.Logger == nil {
		return infra.DiscardLogger()
	}
	return a.Logger
}

func (a *App) now() time.Time {
	if a.Now != nil {
		return a.Now()
	}
	return time.Now()
}

// publicURL joins the storage base URL and a storage key.
func (a *App) publicURL(key string) string {
	base := strings.TrimRight(a.StorageBaseURL, "/")
	if base == "" {
		base = "/static"
	}
	return base + "/" + strings.TrimLeft(key, "/")
}
