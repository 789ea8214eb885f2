package storage

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"

	"knowledgestack/internal/config"
	"knowledgestack/internal/domain"
	"knowledgestack/internal/domain/services"

	"github.com/google/uuid"
	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
)

// imageTypes maps sniffed content types to stored extensions
var imageTypes = map[string]string{
	"image/png":  ".png",
	"image/jpeg": ".jpg",
	"image/gif":  ".gif",
	"image/webp": ".webp",
}

// MinioStore keeps uploaded images in a single bucket
type MinioStore struct {
	client    *minio.Client
	bucket    string
	publicURL string
	logger    *slog.Logger
}

var _ services.MediaStore = (*MinioStore)(nil)

// NewMinioStore connects to the object store and creates the bucket if it
// does not exist yet.
func NewMinioStore(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*MinioStore, error) {
	client, err := minio.New(cfg.MinioEndpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.MinioAccessKey, cfg.MinioSecretKey, ""),
		Secure: cfg.MinioUseSSL,
	})
	if err != nil {
		return nil, fmt.Errorf("create minio client: %w", err)
	}

	exists, err := client.BucketExists(ctx, cfg.MinioBucket)
	if err != nil {
		return nil, fmt.Errorf("check bucket %s: %w", cfg.MinioBucket, err)
	}
	if !exists {
		if err := client.MakeBucket(ctx, cfg.MinioBucket, minio.MakeBucketOptions{}); err != nil {
			return nil, fmt.Errorf("create bucket %s: %w", cfg.MinioBucket, err)
		}
		logger.Info("media bucket created", "bucket", cfg.MinioBucket)
	}

	return &MinioStore{
		client:    client,
		bucket:    cfg.MinioBucket,
		publicURL: cfg.MediaPublicURL,
		logger:    logger,
	}, nil
}

// Put validates the upload as an image and stores it under
// org/category/<uuid><ext>.
func (s *MinioStore) Put(ctx context.Context, orgID, category string, upload *services.Upload) (string, error) {
	data, err := readUpload(upload)
	if err != nil {
		return "", err
	}

	contentType, ext, err := detectImage(data)
	if err != nil {
		return "", err
	}

	key := objectKey(orgID, category, ext)
	_, err = s.client.PutObject(ctx, s.bucket, key, bytes.NewReader(data), int64(len(data)), minio.PutObjectOptions{
		ContentType: contentType,
	})
	if err != nil {
		return "", fmt.Errorf("store %s: %w", key, err)
	}

	s.logger.Debug("media stored", "key", key, "size", len(data))
	return key, nil
}

// Remove deletes an object; missing objects are ignored
func (s *MinioStore) Remove(ctx context.Context, key string) error {
	if key == "" {
		return nil
	}
	err := s.client.RemoveObject(ctx, s.bucket, key, minio.RemoveObjectOptions{})
	if err != nil && minio.ToErrorResponse(err).Code != "NoSuchKey" {
		return fmt.Errorf("remove %s: %w", key, err)
	}
	return nil
}

// PublicURL returns the URL clients fetch key from
func (s *MinioStore) PublicURL(key string) string {
	return publicURL(s.publicURL, key)
}

// readUpload buffers at most MaxUploadSize+1 bytes so oversize files are
// rejected without reading them fully.
func readUpload(upload *services.Upload) ([]byte, error) {
	if upload == nil || upload.Body == nil {
		return nil, fmt.Errorf("%w: no file uploaded", domain.ErrValidation)
	}
	if upload.Size > config.MaxUploadSize {
		return nil, tooLarge()
	}

	data, err := io.ReadAll(io.LimitReader(upload.Body, config.MaxUploadSize+1))
	if err != nil {
		return nil, fmt.Errorf("read upload: %w", err)
	}
	if len(data) > config.MaxUploadSize {
		return nil, tooLarge()
	}
	if len(data) == 0 {
		return nil, fmt.Errorf("%w: uploaded file is empty", domain.ErrValidation)
	}
	return data, nil
}

func tooLarge() error {
	return fmt.Errorf("%w: file exceeds %d MiB", domain.ErrValidation, config.MaxUploadSize>>20)
}

// detectImage sniffs the content rather than trusting the client's type
func detectImage(data []byte) (contentType, ext string, err error) {
	contentType = http.DetectContentType(data)
	ext, ok := imageTypes[contentType]
	if !ok {
		return "", "", fmt.Errorf("%w: only PNG, JPEG, GIF and WebP images are accepted (got %s)", domain.ErrValidation, contentType)
	}
	return contentType, ext, nil
}

func objectKey(orgID, category, ext string) string {
	return fmt.Sprintf("%s/%s/%s%s", orgID, category, uuid.NewString(), ext)
}

func publicURL(base, key string) string {
	if key == "" {
		return ""
	}
	return strings.TrimRight(base, "/") + "/" + key
}
