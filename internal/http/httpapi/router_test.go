package httpapi

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"receptionist/internal/http/handlers"
	"receptionist/internal/providers/chat"
)

type echoChat struct{}

func (echoChat) Reply(ctx context.Context, req chat.Request) (chat.Reply, error) {
	return chat.Reply{Text: req.Locale + ":" + req.Message, Mode: req.Mode, Model: "m"}, nil
}

func newTestServer(t *testing.T, opts Options) *httptest.Server {
	t.Helper()
	opts.Logger = zerolog.New(io.Discard)
	srv := httptest.NewServer(NewRouter(&handlers.App{Assistant: echoChat{}}, opts))
	t.Cleanup(srv.Close)
	return srv
}

func TestRouterHealthAndRequestID(t *testing.T) {
	srv := newTestServer(t, Options{})
	resp, err := http.Get(srv.URL + "/v1/healthz")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.NotEmpty(t, resp.Header.Get("X-Request-ID"))
}

func TestRouterChatUsesLocale(t *testing.T) {
	srv := newTestServer(t, Options{DefaultLocale: "en"})
	req, err := http.NewRequest(http.MethodPost, srv.URL+"/v1/chat", strings.NewReader(`{"message":"namaskara"}`))
	require.NoError(t, err)
	req.Header.Set("Accept-Language", "kn-IN,en;q=0.5")
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	body, _ := io.ReadAll(resp.Body)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, string(body), `"text":"kn:namaskara"`)
}

func TestRouterRateLimitsGenerationRoutes(t *testing.T) {
	srv := newTestServer(t, Options{RateLimitPerMin: 1})
	post := func() int {
		resp, err := http.Post(srv.URL+"/v1/chat", "application/json", strings.NewReader(`{"message":"x"}`))
		require.NoError(t, err)
		resp.Body.Close()
		return resp.StatusCode
	}
	assert.Equal(t, http.StatusOK, post())
	assert.Equal(t, http.StatusTooManyRequests, post())

	resp, err := http.Get(srv.URL + "/v1/healthz")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestRouterServesStoredArtifacts(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(dir, "videos"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "videos", "a.mp4"), []byte("mp4"), 0o644))
	srv := newTestServer(t, Options{StaticPath: "/static/", StaticDir: dir})

	resp, err := http.Get(srv.URL + "/static/videos/a.mp4")
	require.NoError(t, err)
	body, _ := io.ReadAll(resp.Body)
	resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "mp4", string(body))

	resp, err = http.Get(srv.URL + "/static/videos/")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestStaticPrefix(t *testing.T) {
	assert.Equal(t, "/static", staticPrefix("/static/"))
	assert.Equal(t, "", staticPrefix("https://cdn.example.com/media"))
	assert.Equal(t, "", staticPrefix(""))
}
