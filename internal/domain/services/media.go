package services

import (
	"context"
	"io"
)

// Upload is a file received from a multipart form
type Upload struct {
	Filename    string
	ContentType string
	Size        int64
	Body        io.Reader
}

// MediaStore stores uploaded images under org-scoped object keys
type MediaStore interface {
	// Put validates upload as an image and stores it, returning its key
	Put(ctx context.Context, orgID, category string, upload *Upload) (string, error)

	// Remove deletes an object; missing objects are not an error
	Remove(ctx context.Context, key string) error

	// PublicURL returns the URL clients fetch key from
	PublicURL(key string) string
}
