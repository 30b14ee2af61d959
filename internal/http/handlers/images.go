package handlers

import (
	"encoding/json"
	"net/http"

	"receptionist/internal/providers/image"
)

type imageRequest struct {
	Prompt      string `json:"prompt"`
	AspectRatio string `json:"aspect_ratio"`
}

type mediaResponse struct {
	URL         string `json:"url"`
	MIMEType    string `json:"mime_type"`
	AspectRatio string `json:"aspect_ratio"`
}

func (a *App) GenerateImage(w http.ResponseWriter, r *http.Request) {
	var body imageRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxJSONBody)).Decode(&body); err != nil {
		a.error(w, http.StatusBadRequest, "invalid_request", "invalid payload")
		return
	}
	req, err := image.NewGenerateRequest(body.Prompt, body.AspectRatio)
	if err != nil {
		a.fail(w, r, "image", err)
		return
	}

	asset, err := a.Images.Generate(r.Context(), req)
	if err != nil {
		a.fail(w, r, "image", err)
		return
	}
	a.json(w, http.StatusOK, mediaResponse{
		URL:         asset.DataURL(),
		MIMEType:    asset.MIMEType,
		AspectRatio: string(asset.AspectRatio),
	})
}
