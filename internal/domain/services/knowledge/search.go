package knowledge

import (
	"context"

	"knowledgestack/internal/domain/models"
	kb "knowledgestack/internal/domain/models/knowledge"
)

// SearchService runs the unified search
type SearchService interface {
	// Search returns hits across documents, collections, departments and
	// tags. Documents hidden from actor are dropped.
	Search(ctx context.Context, actor *models.Actor, query string, kinds []kb.SearchResultKind) ([]kb.SearchResult, error)
}

// SearchIndexer receives change notifications after a mutation commits.
// Implementations must not block the caller or surface index errors.
type SearchIndexer interface {
	Changed(orgID string, kind kb.SearchResultKind, id string)
	Removed(orgID string, kind kb.SearchResultKind, id string)
}

// NoopIndexer discards every notification
type NoopIndexer struct{}

func (NoopIndexer) Changed(string, kb.SearchResultKind, string) {}
func (NoopIndexer) Removed(string, kb.SearchResultKind, string) {}
