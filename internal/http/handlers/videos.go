package handlers

import (
	"errors"
	"net/http"
	"time"

	"receptionist/internal/domain"
	"receptionist/internal/middleware"
	"receptionist/internal/storage"
)

// videoDeadlineSlack covers submission, download and storage around the
// polling window.
const videoDeadlineSlack = 2 * time.Minute

// GenerateVideo animates an uploaded image. The request blocks until the job
// resolves; the artifact is downloaded with the server credential and served
// from local storage.
func (a *App) GenerateVideo(w http.ResponseWriter, r *http.Request) {
	a.extendWriteDeadline(w, r)

	if err := a.parseMultipart(w, r); err != nil {
		a.fail(w, r, "video", err)
		return
	}
	img, err := a.readUpload(r, "image")
	if err != nil {
		a.fail(w, r, "video", err)
		return
	}

	req := domain.NewGenerationRequest(
		r.FormValue("prompt"),
		domain.ReferenceImage{Data: img.Data, MIMEType: img.MIMEType},
		r.FormValue("aspect_ratio"),
	)
	ctx := r.Context()
	result, err := a.Videos.Generate(ctx, req)
	if err != nil {
		a.fail(w, r, "video", err)
		return
	}
	data, mime, err := a.Videos.Fetch(ctx, result)
	if err != nil {
		a.fail(w, r, "video", err)
		return
	}
	key, err := a.Store.Write(ctx, storage.NewKey("videos", mime, a.now()), data)
	if err != nil {
		a.fail(w, r, "video", err)
		return
	}

	a.logger().Info().
		Str("request_id", middleware.RequestIDFromContext(ctx)).
		Str("key", key).
		Int("bytes", len(data)).
		Str("aspect_ratio", string(req.AspectRatio)).
		Msg("video stored")

	a.json(w, http.StatusOK, mediaResponse{
		URL:         a.publicURL(key),
		MIMEType:    mime,
		AspectRatio: string(req.AspectRatio),
	})
}

// extendWriteDeadline lifts the server-wide write timeout for this request so
// a long poll does not get cut off mid-response. Without a video timeout the
// deadline is cleared.
func (a *App) extendWriteDeadline(w http.ResponseWriter, r *http.Request) {
	var deadline time.Time
	if a.VideoTimeout > 0 {
		deadline = time.Now().Add(a.VideoTimeout + videoDeadlineSlack)
	}
	rc := http.NewResponseController(w)
	if err := rc.SetWriteDeadline(deadline); err != nil && !errors.Is(err, http.ErrNotSupported) {
		a.logger().Warn().Err(err).Str("request_id", middleware.RequestIDFromContext(r.Context())).Msg("extend write deadline")
	}
}
