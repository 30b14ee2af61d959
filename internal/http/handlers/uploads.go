package handlers

import (
	"errors"
	"io"
	"mime/multipart"
	"net/http"
	"strings"

	"receptionist/internal/domain"
)

const (
	maxJSONBody     = 1 << 20
	multipartMemory = 8 << 20
)

// upload is one file read from a multipart form.
type upload struct {
	Data     []byte
	MIMEType string
	Filename string
}

// parseMultipart bounds the body to the configured upload size.
func (a *App) parseMultipart(w http.ResponseWriter, r *http.Request) error {
	limit := a.MaxUploadBytes
	if limit <= 0 {
		limit = 20 << 20
	}
	r.Body = http.MaxBytesReader(w, r.Body, limit+(1<<20))
	if err := r.ParseMultipartForm(multipartMemory); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			return domain.InvalidRequestf("upload exceeds %d bytes", limit)
		}
		return domain.InvalidRequestf("invalid multipart form")
	}
	return nil
}

// readUpload reads field from an already parsed multipart form. The declared
// content type wins; otherwise the bytes are sniffed.
func (a *App) readUpload(r *http.Request, field string) (upload, error) {
	file, header, err := r.FormFile(field)
	if err != nil {
		if errors.Is(err, http.ErrMissingFile) {
			return upload{}, domain.InvalidRequestf("%s file is required", field)
		}
		return upload{}, domain.InvalidRequestf("invalid %s file", field)
	}
	defer file.Close()

	data, err := readAll(file, a.MaxUploadBytes)
	if err != nil {
		return upload{}, err
	}
	if len(data) == 0 {
		return upload{}, domain.InvalidRequestf("%s file is empty", field)
	}
	return upload{Data: data, MIMEType: detectMIME(header, data), Filename: header.Filename}, nil
}

func readAll(file multipart.File, limit int64) ([]byte, error) {
	if limit <= 0 {
		return io.ReadAll(file)
	}
	data, err := io.ReadAll(io.LimitReader(file, limit+1))
	if err != nil {
		return nil, domain.InvalidRequestf("read upload: %v", err)
	}
	if int64(len(data)) > limit {
		return nil, domain.InvalidRequestf("upload exceeds %d bytes", limit)
	}
	return data, nil
}

func detectMIME(header *multipart.FileHeader, data []byte) string {
	declared := strings.TrimSpace(strings.SplitN(header.Header.Get("Content-Type"), ";", 2)[0])
	if declared != "" && declared != "application/octet-stream" {
		return strings.ToLower(declared)
	}
	return strings.SplitN(http.DetectContentType(data), ";", 2)[0]
}
