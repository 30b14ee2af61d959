package handlers

import (
	"net/http"

	"receptionist/internal/providers/analysis"
)

func (a *App) AnalyzeMedia(w http.ResponseWriter, r *http.Request) {
	if err := a.parseMultipart(w, r); err != nil {
		a.fail(w, r, "analysis", err)
		return
	}
	file, err := a.readUpload(r, "file")
	if err != nil {
		a.fail(w, r, "analysis", err)
		return
	}

	text, err := a.Analyzer.Analyze(r.Context(), analysis.Media{Data: file.Data, MIMEType: file.MIMEType}, r.FormValue("prompt"))
	if err != nil {
		a.fail(w, r, "analysis", err)
		return
	}
	a.json(w, http.StatusOK, map[string]string{"text": text})
}
