package search

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"knowledgestack/internal/domain"
	"knowledgestack/internal/domain/models"
	kb "knowledgestack/internal/domain/models/knowledge"
	kbRepo "knowledgestack/internal/domain/repositories/knowledge"
	kbSvc "knowledgestack/internal/domain/services/knowledge"
	kbService "knowledgestack/internal/service/knowledge"
)

const indexTimeout = 30 * time.Second

// Service tries Meilisearch first and falls back to Postgres. It also
// receives change notifications and pushes them to the index.
type Service struct {
	meili  *Meili
	repo   kbRepo.SearchRepository
	logger *slog.Logger
}

var (
	_ kbSvc.SearchService = (*Service)(nil)
	_ kbSvc.SearchIndexer = (*Service)(nil)
)

// NewService creates the search facade. meili may be nil when Meilisearch
// is not configured.
func NewService(meili *Meili, repo kbRepo.SearchRepository, logger *slog.Logger) *Service {
	return &Service{meili: meili, repo: repo, logger: logger}
}

// Search returns hits across the requested kinds. Restricted documents and
// collections the actor cannot see are dropped.
func (s *Service) Search(ctx context.Context, actor *models.Actor, query string, kinds []kb.SearchResultKind) ([]kb.SearchResult, error) {
	if actor == nil {
		return nil, domain.ErrUnauthorized
	}

	opts := &kb.SearchOptions{Query: query, OrgID: actor.OrgID, Kinds: kinds}
	opts.ApplyDefaults()
	if err := opts.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrValidation, err)
	}

	hits, err := s.find(ctx, opts)
	if err != nil {
		return nil, err
	}

	return buildResults(actor, opts.Query, hits), nil
}

func (s *Service) find(ctx context.Context, opts *kb.SearchOptions) (*kb.SearchHits, error) {
	if s.meili != nil && s.meili.Healthy() {
		hits, err := s.meili.Search(opts)
		if err == nil {
			return hits, nil
		}
		s.logger.Warn("meilisearch error, falling back to postgres", "error", err)
	}

	hits, err := s.repo.Search(ctx, opts)
	if err != nil {
		return nil, fmt.Errorf("search: %w", err)
	}
	return hits, nil
}

// buildResults filters hidden entities and renders snippets in kind order
func buildResults(actor *models.Actor, q string, hits *kb.SearchHits) []kb.SearchResult {
	results := []kb.SearchResult{}

	for _, d := range hits.Documents {
		if !visible(actor, d.Visibility()) {
			continue
		}
		results = append(results, kb.SearchResult{
			Kind:    kb.ResultDocument,
			ID:      d.ID,
			Title:   d.Title,
			Snippet: Snippet(d.SnippetSource, q, SnippetWidth),
		})
	}

	for _, c := range hits.Collections {
		if !visible(actor, c.Visibility()) {
			continue
		}
		results = append(results, kb.SearchResult{
			Kind:    kb.ResultCollection,
			ID:      c.ID,
			Slug:    c.Slug,
			Title:   c.Name,
			Snippet: Snippet(c.Description, q, SnippetWidth),
		})
	}

	for _, d := range hits.Departments {
		results = append(results, kb.SearchResult{
			Kind:    kb.ResultDepartment,
			ID:      d.ID,
			Slug:    d.Slug,
			Title:   d.Name,
			Snippet: Snippet(d.Slug, q, SnippetWidth),
		})
	}

	for _, t := range hits.Tags {
		results = append(results, kb.SearchResult{
			Kind:    kb.ResultTag,
			ID:      t.ID,
			Slug:    t.Slug,
			Title:   t.Name,
			Snippet: Snippet(t.Description, q, SnippetWidth),
		})
	}

	return results
}

func visible(actor *models.Actor, v kb.Visibility) bool {
	return actor.IsAdmin() || kbService.IsVisibleTo(v, actor.DepartmentIDs)
}

func (s *Service) indexing() bool {
	return s.meili != nil && s.meili.Healthy()
}

// Changed reloads the entity and pushes it to the index in the background
func (s *Service) Changed(orgID string, kind kb.SearchResultKind, id string) {
	if !s.indexing() {
		return
	}
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), indexTimeout)
		defer cancel()

		hits, err := s.repo.LoadIndexRecord(ctx, orgID, kind, id)
		if err != nil {
			s.logger.Warn("load search record", "kind", kind, "id", id, "error", err)
			return
		}
		recs := newRecords(orgID, hits)
		if recs.empty() {
			err = s.meili.Delete(kind, id)
		} else {
			err = s.meili.Upsert(recs)
		}
		if err != nil {
			s.logger.Warn("update search index", "kind", kind, "id", id, "error", err)
		}
	}()
}

// Removed drops the entity from the index in the background
func (s *Service) Removed(orgID string, kind kb.SearchResultKind, id string) {
	if !s.indexing() {
		return
	}
	go func() {
		if err := s.meili.Delete(kind, id); err != nil {
			s.logger.Warn("remove from search index", "kind", kind, "id", id, "error", err)
		}
	}()
}

// Reindex rebuilds every index entry of an org from Postgres
func (s *Service) Reindex(ctx context.Context, orgID string) (int, error) {
	if s.meili == nil {
		return 0, fmt.Errorf("search index is not configured")
	}
	if !s.meili.Healthy() {
		return 0, fmt.Errorf("meilisearch unhealthy")
	}

	hits, err := s.repo.LoadIndexRecords(ctx, orgID)
	if err != nil {
		return 0, fmt.Errorf("load search records: %w", err)
	}
	recs := newRecords(orgID, hits)

	if err := s.meili.ClearOrg(orgID); err != nil {
		return 0, err
	}
	if err := s.meili.Upsert(recs); err != nil {
		return 0, err
	}

	count := len(recs.documents) + len(recs.collections) + len(recs.departments) + len(recs.tags)
	s.logger.Info("search index rebuilt", "org_id", orgID, "records", count)
	return count, nil
}
