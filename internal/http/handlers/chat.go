package handlers

import (
	"encoding/json"
	"net/http"

	"receptionist/internal/middleware"
	"receptionist/internal/providers/chat"
)

type chatTurn struct {
	Role string `json:"role"`
	Text string `json:"text"`
}

type chatRequest struct {
	Message string     `json:"message"`
	Mode    string     `json:"mode"`
	History []chatTurn `json:"history"`
}

type chatResponse struct {
	Text  string `json:"text"`
	Mode  string `json:"mode"`
	Model string `json:"model"`
}

func (a *App) Chat(w http.ResponseWriter, r *http.Request) {
	var req chatRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxJSONBody)).Decode(&req); err != nil {
		a.error(w, http.StatusBadRequest, "invalid_request", "invalid payload")
		return
	}
	mode, err := chat.ParseMode(req.Mode)
	if err != nil {
		a.fail(w, r, "chat", err)
		return
	}
	history := make([]chat.Turn, 0, len(req.History))
	for _, turn := range req.History {
		history = append(history, chat.Turn{Role: turn.Role, Text: turn.Text})
	}

	reply, err := a.Assistant.Reply(r.Context(), chat.Request{
		Message: req.Message,
		Mode:    mode,
		History: history,
		Locale:  middleware.LocaleFromContext(r.Context()),
	})
	if err != nil {
		a.fail(w, r, "chat", err)
		return
	}
	a.json(w, http.StatusOK, chatResponse{Text: reply.Text, Mode: string(reply.Mode), Model: reply.Model})
}
