package httputil

import (
	"encoding/json"
	"errors"
	"fmt"
	"mime/multipart"
	"net/http"

	"knowledgestack/internal/config"
	"knowledgestack/internal/domain/services"
)

// ParseJSON decodes JSON from the request body into the given destination.
// It limits the request body size to prevent abuse and provides clear error messages.
func ParseJSON(w http.ResponseWriter, r *http.Request, dest interface{}) error {
	// Section bodies are the largest payloads
	r.Body = http.MaxBytesReader(w, r.Body, 2*config.MaxSectionBodyLength)

	if err := json.NewDecoder(r.Body).Decode(dest); err != nil {
		return fmt.Errorf("invalid JSON: %w", err)
	}

	return nil
}

// ParseUpload reads the multipart field into an Upload. The caller must
// call the returned close function once the upload has been consumed.
func ParseUpload(w http.ResponseWriter, r *http.Request, field string) (*services.Upload, func(), error) {
	// Room for the multipart envelope around a maximum-size file
	r.Body = http.MaxBytesReader(w, r.Body, config.MaxUploadSize+1<<20)

	file, header, err := r.FormFile(field)
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			return nil, nil, fmt.Errorf("file exceeds %d MiB", config.MaxUploadSize>>20)
		}
		if errors.Is(err, http.ErrMissingFile) {
			return nil, nil, fmt.Errorf("multipart field %q is required", field)
		}
		return nil, nil, fmt.Errorf("invalid multipart form: %w", err)
	}

	upload := &services.Upload{
		Filename:    header.Filename,
		ContentType: header.Header.Get("Content-Type"),
		Size:        header.Size,
		Body:        file,
	}
	return upload, func() { closeFile(file) }, nil
}

func closeFile(f multipart.File) {
	_ = f.Close()
}
