package app

import (
	"context"
	"fmt"

	"knowledgestack/internal/domain"
	"knowledgestack/internal/domain/services"
)

// noMedia stands in for object storage in tools that never upload
type noMedia struct{}

func (noMedia) Put(context.Context, string, string, *services.Upload) (string, error) {
	return "", fmt.Errorf("%w: media storage is not configured", domain.ErrValidation)
}

func (noMedia) Remove(context.Context, string) error { return nil }

func (noMedia) PublicURL(string) string { return "" }
