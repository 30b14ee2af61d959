package genai

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"receptionist/internal/domain"
	"receptionist/internal/infra"
)

const defaultBaseURL = "https://generativelanguage.googleapis.com/v1beta"

// Options controls how the Gemini client is configured.
type Options struct {
	APIKey     string
	BaseURL    string
	HTTPClient *http.Client
	Logger     *infra.Logger
}

// Client is a thin REST facade over the Gemini API. It holds no per-call
// state and is safe for concurrent use.
type Client struct {
	apiKey     string
	baseURL    string
	httpClient *http.Client
	logger     *infra.Logger
}

// APIError is a non-2xx answer from the API.
type APIError struct {
	StatusCode int
	Status     string
	Message    string
}

func (e *APIError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("gemini status %d", e.StatusCode)
	}
	if e.Status != "" {
		return fmt.Sprintf("gemini status %d (%s): %s", e.StatusCode, e.Status, e.Message)
	}
	return fmt.Sprintf("gemini status %d: %s", e.StatusCode, e.Message)
}

type errorResponse struct {
	Error struct {
		Code    int    `json:"code,omitempty"`
		Message string `json:"message,omitempty"`
		Status  string `json:"status,omitempty"`
	} `json:"error"`
}

// NewClient constructs a Gemini client. Callers may provide a nil HTTP client;
// one with a generous timeout is created.
func NewClient(opts Options) (*Client, error) {
	client := opts.HTTPClient
	if client == nil {
		client = &http.Client{Timeout: 120 * time.Second}
	}

	baseURL := strings.TrimRight(strings.TrimSpace(opts.BaseURL), "/")
	if baseURL == "" {
		baseURL = defaultBaseURL
	}
	if _, err := url.Parse(baseURL); err != nil {
		return nil, fmt.Errorf("genai: invalid base url: %w", err)
	}

	logger := opts.Logger
	if logger == nil {
		logger = infra.DiscardLogger()
	}

	return &Client{
		apiKey:     strings.TrimSpace(opts.APIKey),
		baseURL:    baseURL,
		httpClient: client,
		logger:     logger,
	}, nil
}

// HasCredentials reports whether the client can perform remote calls.
func (c *Client) HasCredentials() bool {
	return c.apiKey != ""
}

// invoke sends payload (nil for GET) to path and decodes the JSON answer
// into out. Transport failures come back as domain.ErrNetwork; HTTP errors as
// *APIError.
func (c *Client) invoke(ctx context.Context, op, method, path string, payload, out any) error {
	if !c.HasCredentials() {
		return domain.ErrMissingAPIKey
	}

	var body io.Reader
	if payload != nil {
		raw, err := json.Marshal(payload)
		if err != nil {
			return fmt.Errorf("genai: marshal %s request: %w", op, err)
		}
		body = bytes.NewReader(raw)
	}

	endpoint := c.baseURL + "/" + strings.TrimLeft(path, "/")
	req, err := http.NewRequestWithContext(ctx, method, endpoint, body)
	if err != nil {
		return fmt.Errorf("genai: create %s request: %w", op, err)
	}
	req.Header.Set("x-goog-api-key", c.apiKey)
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return transportError(ctx, op, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= http.StatusBadRequest {
		return decodeAPIError(resp)
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}
		return domain.NewJobError(domain.ErrProvider, op, "malformed response", err)
	}
	return nil
}

// Download fetches a generated file. The API key travels as the key query
// parameter because file URIs are not reachable without it.
func (c *Client) Download(ctx context.Context, uri string) ([]byte, string, error) {
	if !c.HasCredentials() {
		return nil, "", domain.ErrMissingAPIKey
	}
	target := strings.TrimSpace(uri)
	if !strings.HasPrefix(target, "http://") && !strings.HasPrefix(target, "https://") {
		target = c.baseURL + "/" + strings.TrimLeft(target, "/")
	}
	parsed, err := url.Parse(target)
	if err != nil {
		return nil, "", domain.InvalidRequestf("invalid artifact uri %q", uri)
	}
	q := parsed.Query()
	q.Set("key", c.apiKey)
	parsed.RawQuery = q.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, parsed.String(), nil)
	if err != nil {
		return nil, "", fmt.Errorf("genai: create download request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		// url.Error embeds the request URL, which carries the key.
		var urlErr *url.Error
		if errors.As(err, &urlErr) {
			q.Set("key", "REDACTED")
			parsed.RawQuery = q.Encode()
			urlErr.URL = parsed.String()
		}
		return nil, "", transportError(ctx, "download", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= http.StatusBadRequest {
		return nil, "", decodeAPIError(resp)
	}

	blob, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, "", transportError(ctx, "download", err)
	}

	c.logger.Debug().
		Int("bytes", len(blob)).
		Str("content_type", resp.Header.Get("Content-Type")).
		Msg("genai: downloaded artifact")

	return blob, resp.Header.Get("Content-Type"), nil
}

func transportError(ctx context.Context, op string, err error) error {
	if ctxErr := ctx.Err(); ctxErr != nil {
		return ctxErr
	}
	return domain.NewJobError(domain.ErrNetwork, op, "", err)
}

func decodeAPIError(resp *http.Response) error {
	apiErr := &APIError{StatusCode: resp.StatusCode}
	data, _ := io.ReadAll(io.LimitReader(resp.Body, 64<<10))
	var decoded errorResponse
	if err := json.Unmarshal(data, &decoded); err == nil && decoded.Error.Message != "" {
		apiErr.Message = decoded.Error.Message
		apiErr.Status = decoded.Error.Status
		return apiErr
	}
	apiErr.Message = strings.TrimSpace(string(data))
	return apiErr
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if strings.TrimSpace(v) != "" {
			return v
		}
	}
	return ""
}
