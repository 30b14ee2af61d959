package chat

import (
	"context"
	"errors"
	"strings"

	"golang.org/x/text/language"
	"golang.org/x/text/language/display"

	"receptionist/internal/domain"
	"receptionist/internal/infra"
	"receptionist/internal/providers/genai"
)

const (
	SystemInstruction = "You are Clara, an intelligent AI receptionist for Sai Vidya Institute of Technology. You are professional, helpful, and concise."
	FallbackReply     = "I couldn't generate a response."

	defaultFastModel      = "gemini-flash-lite-latest"
	defaultThinkingModel  = "gemini-3-pro-preview"
	defaultThinkingBudget = 32768
	maxHistoryTurns       = 40
)

// Mode selects the model used for a reply.
type Mode string

const (
	ModeFast     Mode = "fast"
	ModeThinking Mode = "thinking"
)

// ParseMode accepts "fast", "thinking" or an empty string (fast).
func ParseMode(raw string) (Mode, error) {
	switch Mode(strings.ToLower(strings.TrimSpace(raw))) {
	case "", ModeFast:
		return ModeFast, nil
	case ModeThinking:
		return ModeThinking, nil
	}
	return "", domain.InvalidRequestf("unknown chat mode %q", raw)
}

// Turn is one earlier message of the conversation. Role is "user" or
// "model"; "assistant" is accepted as an alias for "model".
type Turn struct {
	Role string
	Text string
}

type Request struct {
	Message string
	Mode    Mode
	History []Turn
	Locale  string
}

type Reply struct {
	Text  string
	Mode  Mode
	Model string
}

// ContentGenerator is the slice of the Gemini client the assistant needs.
type ContentGenerator interface {
	GenerateContent(ctx context.Context, req genai.ContentRequest) (*genai.ContentResponse, error)
}

type Options struct {
	FastModel      string
	ThinkingModel  string
	ThinkingBudget int
	Logger         *infra.Logger
}

// Assistant answers visitor questions as Clara.
type Assistant struct {
	client         ContentGenerator
	fastModel      string
	thinkingModel  string
	thinkingBudget int
	logger         *infra.Logger
}

func NewAssistant(client ContentGenerator, opts Options) *Assistant {
	a := &Assistant{
		client:         client,
		fastModel:      strings.TrimSpace(opts.FastModel),
		thinkingModel:  strings.TrimSpace(opts.ThinkingModel),
		thinkingBudget: opts.ThinkingBudget,
		logger:         opts.Logger,
	}
	if a.fastModel == "" {
		a.fastModel = defaultFastModel
	}
	if a.thinkingModel == "" {
		a.thinkingModel = defaultThinkingModel
	}
	if a.thinkingBudget <= 0 {
		a.thinkingBudget = defaultThinkingBudget
	}
	if a.logger == nil {
		a.logger = infra.DiscardLogger()
	}
	return a
}

func (a *Assistant) Reply(ctx context.Context, req Request) (Reply, error) {
	message := strings.TrimSpace(req.Message)
	if message == "" {
		return Reply{}, domain.InvalidRequestf("message is required")
	}
	mode := req.Mode
	if mode == "" {
		mode = ModeFast
	}

	contents, err := historyContents(req.History)
	if err != nil {
		return Reply{}, err
	}
	contents = append(contents, genai.Content{Role: "user", Parts: []genai.Part{{Text: message}}})

	creq := genai.ContentRequest{
		Model:             a.fastModel,
		Contents:          contents,
		SystemInstruction: systemInstruction(req.Locale),
	}
	if mode == ModeThinking {
		creq.Model = a.thinkingModel
		creq.ThinkingBudget = a.thinkingBudget
	}

	resp, err := a.client.GenerateContent(ctx, creq)
	switch {
	case errors.Is(err, domain.ErrEmptyResult):
		// Blocked prompts come back without candidates.
		a.logger.Warn().Err(err).Str("model", creq.Model).Msg("chat: no candidates")
		return Reply{Text: FallbackReply, Mode: mode, Model: creq.Model}, nil
	case err != nil:
		return Reply{}, err
	}
	text := resp.Text
	if text == "" {
		a.logger.Warn().Str("model", creq.Model).Str("finish_reason", resp.FinishReason).Msg("chat: empty reply")
		text = FallbackReply
	}
	return Reply{Text: text, Mode: mode, Model: creq.Model}, nil
}

func historyContents(history []Turn) ([]genai.Content, error) {
	if len(history) > maxHistoryTurns {
		history = history[len(history)-maxHistoryTurns:]
	}
	out := make([]genai.Content, 0, len(history)+1)
	for i, turn := range history {
		text := strings.TrimSpace(turn.Text)
		if text == "" {
			continue
		}
		var role string
		switch strings.ToLower(strings.TrimSpace(turn.Role)) {
		case "user":
			role = "user"
		case "model", "assistant":
			role = "model"
		default:
			return nil, domain.InvalidRequestf("history[%d]: unknown role %q", i, turn.Role)
		}
		out = append(out, genai.Content{Role: role, Parts: []genai.Part{{Text: text}}})
	}
	return out, nil
}

// systemInstruction appends a reply-language hint for non-English locales.
func systemInstruction(locale string) string {
	tag, err := language.Parse(strings.TrimSpace(locale))
	if err != nil {
		return SystemInstruction
	}
	base, _ := tag.Base()
	if base.String() == "en" || base.String() == "und" {
		return SystemInstruction
	}
	name := display.English.Languages().Name(base)
	if name == "" {
		return SystemInstruction
	}
	return SystemInstruction + " Reply in " + name + " unless the visitor writes in another language."
}
