package knowledge

import (
	"context"

	models "knowledgestack/internal/domain/models/knowledge"
)

// SearchRepository runs case-insensitive substring matches in the database.
// It is the fallback when no external search index is available.
type SearchRepository interface {
	Search(ctx context.Context, opts *models.SearchOptions) (*models.SearchHits, error)

	// LoadIndexRecords reads every searchable entity of an org for reindexing.
	// Document hits carry their full text as SnippetSource.
	LoadIndexRecords(ctx context.Context, orgID string) (*models.SearchHits, error)

	// LoadIndexRecord reads one entity the same way. The result is empty if
	// the entity no longer exists.
	LoadIndexRecord(ctx context.Context, orgID string, kind models.SearchResultKind, id string) (*models.SearchHits, error)
}
