package video

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"receptionist/internal/domain"
	"receptionist/internal/providers/genai"
)

func newVeoBackend(t *testing.T, handler http.HandlerFunc) (*VeoBackend, *httptest.Server) {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	client, err := genai.NewClient(genai.Options{APIKey: "test-key", BaseURL: srv.URL + "/v1beta", HTTPClient: srv.Client()})
	require.NoError(t, err)
	return NewVeoBackend(client, VeoOptions{}), srv
}

func TestVeoEndToEnd(t *testing.T) {
	var polls atomic.Int32
	var srvURL string
	backend, srv := newVeoBackend(t, func(w http.ResponseWriter, r *http.Request) {
		switch {
		case strings.HasSuffix(r.URL.Path, ":predictLongRunning"):
			var body map[string]any
			require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
			params := body["parameters"].(map[string]any)
			assert.Equal(t, "16:9", params["aspectRatio"])
			assert.Equal(t, "720p", params["resolution"])
			instance := body["instances"].([]any)[0].(map[string]any)
			assert.Equal(t, domain.DefaultVideoPrompt, instance["prompt"])
			_, _ = io.WriteString(w, `{"name":"models/veo-3.1-fast-generate-preview/operations/op-9"}`)
		case strings.HasSuffix(r.URL.Path, "/operations/op-9"):
			if polls.Add(1) < 3 {
				_, _ = io.WriteString(w, `{"name":"models/veo-3.1-fast-generate-preview/operations/op-9","done":false}`)
				return
			}
			_, _ = io.WriteString(w, `{"name":"models/veo-3.1-fast-generate-preview/operations/op-9","done":true,
				"response":{"generateVideoResponse":{"generatedSamples":[{"video":{"uri":"`+srvURL+`/v1beta/files/vid:download?alt=media"}}]}}}`)
		case strings.HasSuffix(r.URL.Path, "/files/vid:download"):
			assert.Equal(t, "test-key", r.URL.Query().Get("key"))
			w.Header().Set("Content-Type", "application/octet-stream")
			_, _ = w.Write([]byte("mp4"))
		default:
			http.NotFound(w, r)
		}
	})
	srvURL = srv.URL

	client := NewJobClient(backend, Options{Clock: newFakeClock()})
	result, err := client.Generate(context.Background(), validRequest("4:3"))
	require.NoError(t, err)
	assert.EqualValues(t, 3, polls.Load())
	assert.Equal(t, "video/mp4", result.MIMEType)

	data, mime, err := client.Fetch(context.Background(), result)
	require.NoError(t, err)
	assert.Equal(t, []byte("mp4"), data)
	assert.Equal(t, "video/mp4", mime)
}

func TestVeoSubmitRejection(t *testing.T) {
	backend, _ := newVeoBackend(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		_, _ = io.WriteString(w, `{"error":{"code":400,"message":"image too large","status":"INVALID_ARGUMENT"}}`)
	})
	client := NewJobClient(backend, Options{Clock: newFakeClock()})

	_, err := client.Generate(context.Background(), validRequest("9:16"))
	require.ErrorIs(t, err, domain.ErrSubmission)

	var jobErr *domain.JobError
	require.ErrorAs(t, err, &jobErr)
	assert.Equal(t, "image too large", jobErr.Message)
	var apiErr *genai.APIError
	assert.ErrorAs(t, err, &apiErr)
}

func TestVeoPollStatusError(t *testing.T) {
	backend, _ := newVeoBackend(t, func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodPost {
			_, _ = io.WriteString(w, `{"name":"models/veo/operations/op-1"}`)
			return
		}
		w.WriteHeader(http.StatusInternalServerError)
		_, _ = io.WriteString(w, `{"error":{"code":500,"message":"backend unavailable"}}`)
	})
	client := NewJobClient(backend, Options{Clock: newFakeClock()})

	_, err := client.Generate(context.Background(), validRequest("16:9"))
	require.ErrorIs(t, err, domain.ErrProvider)
	assert.Contains(t, err.Error(), "backend unavailable")
}

func TestVeoOperationError(t *testing.T) {
	var polls atomic.Int32
	backend, _ := newVeoBackend(t, func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodPost {
			_, _ = io.WriteString(w, `{"name":"models/veo/operations/op-1"}`)
			return
		}
		polls.Add(1)
		_, _ = io.WriteString(w, `{"name":"models/veo/operations/op-1","done":true,"error":{"code":3,"message":"person generation blocked"}}`)
	})
	client := NewJobClient(backend, Options{Clock: newFakeClock()})

	_, err := client.Generate(context.Background(), validRequest("16:9"))
	require.ErrorIs(t, err, domain.ErrProvider)
	assert.Contains(t, err.Error(), "person generation blocked")
	assert.EqualValues(t, 1, polls.Load())
}

func TestVeoDoneWithoutSamples(t *testing.T) {
	backend, _ := newVeoBackend(t, func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodPost {
			_, _ = io.WriteString(w, `{"name":"models/veo/operations/op-1"}`)
			return
		}
		_, _ = io.WriteString(w, `{"name":"models/veo/operations/op-1","done":true,"response":{"generateVideoResponse":{}}}`)
	})
	client := NewJobClient(backend, Options{Clock: newFakeClock()})

	_, err := client.Generate(context.Background(), validRequest("16:9"))
	assert.ErrorIs(t, err, domain.ErrEmptyResult)
}

func TestVeoDoneOnSubmit(t *testing.T) {
	var polls atomic.Int32
	backend, _ := newVeoBackend(t, func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			polls.Add(1)
			http.NotFound(w, r)
			return
		}
		_, _ = io.WriteString(w, `{"done":true,"response":{"generateVideoResponse":{"generatedSamples":[{"video":{"uri":"https://example.com/v.mp4"}}]}}}`)
	})
	client := NewJobClient(backend, Options{Clock: newFakeClock()})

	result, err := client.Generate(context.Background(), validRequest("16:9"))
	require.NoError(t, err)
	assert.Equal(t, "https://example.com/v.mp4", result.URI)
	assert.Zero(t, polls.Load())
}

func TestVeoTimeoutWithWallClock(t *testing.T) {
	backend, _ := newVeoBackend(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = io.WriteString(w, `{"name":"models/veo/operations/op-1","done":false}`)
	})
	client := NewJobClient(backend, Options{PollInterval: 10 * time.Millisecond, Timeout: 35 * time.Millisecond})

	start := time.Now()
	_, err := client.Generate(context.Background(), validRequest("16:9"))
	require.ErrorIs(t, err, domain.ErrTimeout)
	assert.Less(t, time.Since(start), 2*time.Second)
}

func TestNewVeoBackendDefaults(t *testing.T) {
	client, err := genai.NewClient(genai.Options{APIKey: "k"})
	require.NoError(t, err)
	backend := NewVeoBackend(client, VeoOptions{Model: "  "})
	assert.Equal(t, "veo-3.1-fast-generate-preview", backend.Model())
	assert.Equal(t, "720p", backend.resolution)
}
