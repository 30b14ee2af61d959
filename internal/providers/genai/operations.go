package genai

import (
	"context"
	"encoding/base64"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"receptionist/internal/domain"
)

// VideoJobRequest is the input to SubmitVideoJob.
type VideoJobRequest struct {
	Model          string
	Prompt         string
	Image          Blob
	AspectRatio    string
	Resolution     string
	NumberOfVideos int
}

// Operation is the state of a long-running operation as last reported.
type Operation struct {
	Name         string
	Done         bool
	ErrorCode    int
	ErrorMessage string
	VideoURIs    []string
}

// Failed reports whether the operation carries an error payload.
func (o *Operation) Failed() bool {
	return o != nil && (o.ErrorMessage != "" || o.ErrorCode != 0)
}

type predictInstance struct {
	Prompt string        `json:"prompt"`
	Image  *predictImage `json:"image,omitempty"`
}

type predictImage struct {
	BytesBase64Encoded string `json:"bytesBase64Encoded"`
	MimeType           string `json:"mimeType"`
}

type predictParameters struct {
	AspectRatio string `json:"aspectRatio,omitempty"`
	Resolution  string `json:"resolution,omitempty"`
	SampleCount int    `json:"sampleCount,omitempty"`
}

type predictLongRunningRequest struct {
	Instances  []predictInstance `json:"instances"`
	Parameters predictParameters `json:"parameters"`
}

type operationResponse struct {
	Name  string `json:"name"`
	Done  bool   `json:"done"`
	Error *struct {
		Code    int    `json:"code"`
		Message string `json:"message"`
	} `json:"error,omitempty"`
	Response *struct {
		GenerateVideoResponse struct {
			GeneratedSamples []struct {
				Video struct {
					URI string `json:"uri"`
				} `json:"video"`
			} `json:"generatedSamples"`
		} `json:"generateVideoResponse"`
	} `json:"response,omitempty"`
}

// SubmitVideoJob starts a video generation and returns the new operation.
func (c *Client) SubmitVideoJob(ctx context.Context, req VideoJobRequest) (*Operation, error) {
	model := strings.TrimSpace(req.Model)
	if model == "" {
		return nil, domain.InvalidRequestf("model is required")
	}
	count := req.NumberOfVideos
	if count <= 0 {
		count = 1
	}
	instance := predictInstance{Prompt: req.Prompt}
	if len(req.Image.Data) > 0 {
		instance.Image = &predictImage{
			BytesBase64Encoded: base64.StdEncoding.EncodeToString(req.Image.Data),
			MimeType:           req.Image.MIMEType,
		}
	}
	payload := predictLongRunningRequest{
		Instances: []predictInstance{instance},
		Parameters: predictParameters{
			AspectRatio: req.AspectRatio,
			Resolution:  req.Resolution,
			SampleCount: count,
		},
	}

	var resp operationResponse
	path := fmt.Sprintf("models/%s:predictLongRunning", url.PathEscape(model))
	if err := c.invoke(ctx, "submit", http.MethodPost, path, payload, &resp); err != nil {
		return nil, err
	}
	if resp.Name == "" && !resp.Done {
		return nil, domain.NewJobError(domain.ErrSubmission, "submit", "operation name missing from response", nil)
	}

	c.logger.Debug().
		Str("model", model).
		Str("operation", resp.Name).
		Str("aspect_ratio", req.AspectRatio).
		Msg("genai: video operation started")

	return resp.toOperation(), nil
}

// GetOperation re-reads a long-running operation by name.
func (c *Client) GetOperation(ctx context.Context, name string) (*Operation, error) {
	name = strings.Trim(strings.TrimSpace(name), "/")
	if name == "" || strings.Contains(name, "..") || strings.ContainsAny(name, "?#") {
		return nil, domain.InvalidRequestf("invalid operation name %q", name)
	}
	var resp operationResponse
	if err := c.invoke(ctx, "poll", http.MethodGet, name, nil, &resp); err != nil {
		return nil, err
	}
	op := resp.toOperation()
	if op.Name == "" {
		op.Name = name
	}
	return op, nil
}

func (r operationResponse) toOperation() *Operation {
	op := &Operation{Name: r.Name, Done: r.Done}
	if r.Error != nil {
		op.ErrorCode = r.Error.Code
		op.ErrorMessage = r.Error.Message
	}
	if r.Response != nil {
		for _, sample := range r.Response.GenerateVideoResponse.GeneratedSamples {
			if uri := strings.TrimSpace(sample.Video.URI); uri != "" {
				op.VideoURIs = append(op.VideoURIs, uri)
			}
		}
	}
	return op
}
