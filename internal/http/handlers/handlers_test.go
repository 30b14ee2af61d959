package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/textproto"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"receptionist/internal/domain"
	"receptionist/internal/middleware"
	"receptionist/internal/providers/analysis"
	"receptionist/internal/providers/chat"
	"receptionist/internal/providers/image"
	"receptionist/internal/storage"
)

type fakeChat struct {
	got   chat.Request
	reply chat.Reply
	err   error
}

func (f *fakeChat) Reply(ctx context.Context, req chat.Request) (chat.Reply, error) {
	f.got = req
	return f.reply, f.err
}

type fakeAnalyzer struct {
	media  analysis.Media
	prompt string
	text   string
	err    error
}

func (f *fakeAnalyzer) Analyze(ctx context.Context, media analysis.Media, prompt string) (string, error) {
	f.media, f.prompt = media, prompt
	return f.text, f.err
}

type fakeImages struct {
	got   image.GenerateRequest
	asset image.Asset
	err   error
}

func (f *fakeImages) Generate(ctx context.Context, req image.GenerateRequest) (image.Asset, error) {
	f.got = req
	return f.asset, f.err
}

type fakeVideos struct {
	got      domain.GenerationRequest
	result   domain.MediaResult
	err      error
	data     []byte
	fetchErr error
}

func (f *fakeVideos) Generate(ctx context.Context, req domain.GenerationRequest) (domain.MediaResult, error) {
	f.got = req
	return f.result, f.err
}

func (f *fakeVideos) Fetch(ctx context.Context, result domain.MediaResult) ([]byte, string, error) {
	return f.data, result.MIMEType, f.fetchErr
}

func newTestApp(t *testing.T) *App {
	t.Helper()
	store, err := storage.NewFileStore(t.TempDir())
	require.NoError(t, err)
	return &App{
		Assistant:      &fakeChat{},
		Analyzer:       &fakeAnalyzer{},
		Images:         &fakeImages{},
		Videos:         &fakeVideos{},
		Store:          store,
		StorageBaseURL: "/static",
		MaxUploadBytes: 1 << 20,
		VideoTimeout:   time.Minute,
		Now:            func() time.Time { return time.Date(2026, 10, 17, 0, 0, 0, 0, time.UTC) },
	}
}

func decodeError(t *testing.T, rec *httptest.ResponseRecorder) (string, string) {
	t.Helper()
	var body struct {
		Error struct {
			Code    string `json:"code"`
			Message string `json:"message"`
		} `json:"error"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	return body.Error.Code, body.Error.Message
}

func multipartBody(t *testing.T, field, filename, contentType string, data []byte, values map[string]string) (*bytes.Buffer, string) {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	if field != "" {
		h := textproto.MIMEHeader{}
		h.Set("Content-Disposition", `form-data; name="`+field+`"; filename="`+filename+`"`)
		if contentType != "" {
			h.Set("Content-Type", contentType)
		}
		part, err := mw.CreatePart(h)
		require.NoError(t, err)
		_, err = part.Write(data)
		require.NoError(t, err)
	}
	for k, v := range values {
		require.NoError(t, mw.WriteField(k, v))
	}
	require.NoError(t, mw.Close())
	return &buf, mw.FormDataContentType()
}

func TestHealth(t *testing.T) {
	app := newTestApp(t)
	rec := httptest.NewRecorder()
	app.Health(rec, httptest.NewRequest(http.MethodGet, "/v1/healthz", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"ok"}`, rec.Body.String())
}

func TestChat(t *testing.T) {
	app := newTestApp(t)
	svc := &fakeChat{reply: chat.Reply{Text: "Welcome!", Mode: chat.ModeThinking, Model: "gemini-3-pro-preview"}}
	app.Assistant = svc

	req := httptest.NewRequest(http.MethodPost, "/v1/chat", strings.NewReader(`{"message":"hi","mode":"thinking","history":[{"role":"user","text":"a"},{"role":"model","text":"b"}]}`))
	req = req.WithContext(context.WithValue(req.Context(), middleware.LocaleKey, "kn"))
	rec := httptest.NewRecorder()
	app.Chat(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"text":"Welcome!","mode":"thinking","model":"gemini-3-pro-preview"}`, rec.Body.String())
	assert.Equal(t, chat.ModeThinking, svc.got.Mode)
	assert.Equal(t, "kn", svc.got.Locale)
	assert.Len(t, svc.got.History, 2)
}

func TestChatErrors(t *testing.T) {
	tests := []struct {
		name   string
		body   string
		err    error
		status int
		code   string
	}{
		{name: "bad json", body: `{`, status: http.StatusBadRequest, code: "invalid_request"},
		{name: "bad mode", body: `{"message":"x","mode":"slow"}`, status: http.StatusBadRequest, code: "invalid_request"},
		{name: "missing key", body: `{"message":"x"}`, err: domain.ErrMissingAPIKey, status: http.StatusServiceUnavailable, code: "provider_unconfigured"},
		{name: "network", body: `{"message":"x"}`, err: domain.NewJobError(domain.ErrNetwork, "generate content", "", errors.New("reset")), status: http.StatusGatewayTimeout, code: "network_error"},
		{name: "unexpected", body: `{"message":"x"}`, err: errors.New("boom"), status: http.StatusInternalServerError, code: "internal"},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			app := newTestApp(t)
			app.Assistant = &fakeChat{err: tc.err}
			rec := httptest.NewRecorder()
			app.Chat(rec, httptest.NewRequest(http.MethodPost, "/v1/chat", strings.NewReader(tc.body)))
			assert.Equal(t, tc.status, rec.Code)
			code, _ := decodeError(t, rec)
			assert.Equal(t, tc.code, code)
		})
	}
}

func TestAnalyzeMedia(t *testing.T) {
	app := newTestApp(t)
	analyzer := &fakeAnalyzer{text: "A lecture hall."}
	app.Analyzer = analyzer

	body, ct := multipartBody(t, "file", "hall.png", "", []byte("\x89PNG\r\n\x1a\n0000"), map[string]string{"prompt": "What is this?"})
	req := httptest.NewRequest(http.MethodPost, "/v1/analysis", body)
	req.Header.Set("Content-Type", ct)
	rec := httptest.NewRecorder()
	app.AnalyzeMedia(rec, req)

	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.JSONEq(t, `{"text":"A lecture hall."}`, rec.Body.String())
	assert.Equal(t, "image/png", analyzer.media.MIMEType)
	assert.Equal(t, "What is this?", analyzer.prompt)
}

func TestAnalyzeMediaMissingFile(t *testing.T) {
	app := newTestApp(t)
	body, ct := multipartBody(t, "", "", "", nil, map[string]string{"prompt": "x"})
	req := httptest.NewRequest(http.MethodPost, "/v1/analysis", body)
	req.Header.Set("Content-Type", ct)
	rec := httptest.NewRecorder()
	app.AnalyzeMedia(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	_, msg := decodeError(t, rec)
	assert.Contains(t, msg, "file file is required")
}

func TestAnalyzeMediaTooLarge(t *testing.T) {
	app := newTestApp(t)
	app.MaxUploadBytes = 16
	body, ct := multipartBody(t, "file", "a.png", "image/png", bytes.Repeat([]byte{1}, 64), nil)
	req := httptest.NewRequest(http.MethodPost, "/v1/analysis", body)
	req.Header.Set("Content-Type", ct)
	rec := httptest.NewRecorder()
	app.AnalyzeMedia(rec, req)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestGenerateImage(t *testing.T) {
	app := newTestApp(t)
	images := &fakeImages{asset: image.Asset{Data: []byte("png"), MIMEType: "image/png", AspectRatio: domain.AspectWide}}
	app.Images = images

	rec := httptest.NewRecorder()
	app.GenerateImage(rec, httptest.NewRequest(http.MethodPost, "/v1/images", strings.NewReader(`{"prompt":"campus","aspect_ratio":"16:9"}`)))

	require.Equal(t, http.StatusOK, rec.Code)
	var resp mediaResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "data:image/png;base64,cG5n", resp.URL)
	assert.Equal(t, "16:9", resp.AspectRatio)
	assert.Equal(t, domain.AspectWide, images.got.AspectRatio)
}

func TestGenerateImageErrors(t *testing.T) {
	app := newTestApp(t)
	rec := httptest.NewRecorder()
	app.GenerateImage(rec, httptest.NewRequest(http.MethodPost, "/v1/images", strings.NewReader(`{"prompt":"x","aspect_ratio":"2:1"}`)))
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	app.Images = &fakeImages{err: domain.NewJobError(domain.ErrEmptyResult, "generate image", "no image generated", nil)}
	rec = httptest.NewRecorder()
	app.GenerateImage(rec, httptest.NewRequest(http.MethodPost, "/v1/images", strings.NewReader(`{"prompt":"x"}`)))
	assert.Equal(t, http.StatusBadGateway, rec.Code)
	code, msg := decodeError(t, rec)
	assert.Equal(t, "empty_result", code)
	assert.Equal(t, "no image generated", msg)
}

func TestGenerateVideoStoresArtifact(t *testing.T) {
	app := newTestApp(t)
	videos := &fakeVideos{
		result: domain.MediaResult{URI: "https://files/x", MIMEType: "video/mp4"},
		data:   []byte("mp4-bytes"),
	}
	app.Videos = videos

	body, ct := multipartBody(t, "image", "front.jpg", "image/jpeg", []byte{0xff, 0xd8, 0xff}, map[string]string{"aspect_ratio": "4:3"})
	req := httptest.NewRequest(http.MethodPost, "/v1/videos", body)
	req.Header.Set("Content-Type", ct)
	rec := httptest.NewRecorder()
	app.GenerateVideo(rec, req)

	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var resp mediaResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.True(t, strings.HasPrefix(resp.URL, "/static/videos/2026/10/"), resp.URL)
	assert.True(t, strings.HasSuffix(resp.URL, ".mp4"), resp.URL)
	assert.Equal(t, "16:9", resp.AspectRatio)
	assert.NotContains(t, resp.URL, "files/x")

	assert.Equal(t, domain.AspectWide, videos.got.AspectRatio)
	assert.Equal(t, "image/jpeg", videos.got.Image.MIMEType)
	assert.Equal(t, domain.DefaultVideoPrompt, videos.got.EffectivePrompt())

	stored, err := app.Store.Read(context.Background(), strings.TrimPrefix(resp.URL, "/static/"))
	require.NoError(t, err)
	assert.Equal(t, []byte("mp4-bytes"), stored)
}

func TestGenerateVideoErrorMapping(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		fetchErr error
		status   int
		code     string
	}{
		{name: "submission", err: domain.NewJobError(domain.ErrSubmission, "submit", "quota exhausted", nil), status: http.StatusBadGateway, code: "submission_rejected"},
		{name: "provider", err: domain.NewJobError(domain.ErrProvider, "poll", "blocked", nil), status: http.StatusBadGateway, code: "provider_error"},
		{name: "empty", err: domain.NewJobError(domain.ErrEmptyResult, "poll", "none", nil), status: http.StatusBadGateway, code: "empty_result"},
		{name: "timeout", err: domain.NewJobError(domain.ErrTimeout, "await", "gave up", nil), status: http.StatusGatewayTimeout, code: "timeout"},
		{name: "fetch", fetchErr: domain.NewJobError(domain.ErrProvider, "fetch", "forbidden", nil), status: http.StatusBadGateway, code: "provider_error"},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			app := newTestApp(t)
			app.Videos = &fakeVideos{err: tc.err, fetchErr: tc.fetchErr, result: domain.MediaResult{URI: "u", MIMEType: "video/mp4"}}
			body, ct := multipartBody(t, "image", "a.png", "image/png", []byte{1, 2, 3}, nil)
			req := httptest.NewRequest(http.MethodPost, "/v1/videos", body)
			req.Header.Set("Content-Type", ct)
			rec := httptest.NewRecorder()
			app.GenerateVideo(rec, req)
			assert.Equal(t, tc.status, rec.Code)
			code, _ := decodeError(t, rec)
			assert.Equal(t, tc.code, code)
		})
	}
}

func TestGenerateVideoClientGone(t *testing.T) {
	app := newTestApp(t)
	app.Videos = &fakeVideos{err: context.Canceled}
	body, ct := multipartBody(t, "image", "a.png", "image/png", []byte{1}, nil)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	req := httptest.NewRequest(http.MethodPost, "/v1/videos", body).WithContext(ctx)
	req.Header.Set("Content-Type", ct)
	rec := httptest.NewRecorder()
	app.GenerateVideo(rec, req)
	assert.Empty(t, rec.Body.String())
}
