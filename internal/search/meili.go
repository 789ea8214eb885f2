package search

import (
	"fmt"
	"log/slog"
	"sync/atomic"
	"time"

	kb "knowledgestack/internal/domain/models/knowledge"

	meili "github.com/meilisearch/meilisearch-go"
)

const (
	idxDocuments   = "ks_documents"
	idxCollections = "ks_collections"
	idxDepartments = "ks_departments"
	idxTags        = "ks_tags"
)

var indexes = []struct {
	uid        string
	kind       kb.SearchResultKind
	limit      int64
	searchable []string
}{
	{idxDocuments, kb.ResultDocument, kb.MaxDocumentResults, []string{"title", "body"}},
	{idxCollections, kb.ResultCollection, kb.MaxCollectionResults, []string{"name", "description"}},
	{idxDepartments, kb.ResultDepartment, kb.MaxDepartmentResults, []string{"name", "slug"}},
	{idxTags, kb.ResultTag, kb.MaxTagResults, []string{"name", "description"}},
}

func indexFor(kind kb.SearchResultKind) string {
	for _, idx := range indexes {
		if idx.kind == kind {
			return idx.uid
		}
	}
	return ""
}

// Meili searches and indexes through Meilisearch. A background loop
// tracks reachability so callers can fall back to Postgres.
type Meili struct {
	client  meili.ServiceManager
	logger  *slog.Logger
	healthy atomic.Bool
	done    chan struct{}
}

// NewMeili creates a client and configures indexes. An unreachable server
// is logged and retried by the health loop.
func NewMeili(url, apiKey string, logger *slog.Logger) *Meili {
	m := &Meili{
		client: meili.New(url, meili.WithAPIKey(apiKey)),
		logger: logger,
		done:   make(chan struct{}),
	}

	if _, err := m.client.Health(); err != nil {
		logger.Warn("meilisearch unavailable", "url", url, "error", err)
	} else {
		m.healthy.Store(true)
		m.configureIndexes()
	}

	go m.healthLoop()
	return m
}

func (m *Meili) configureIndexes() {
	for _, idx := range indexes {
		if _, err := m.client.CreateIndex(&meili.IndexConfig{
			Uid:        idx.uid,
			PrimaryKey: "id",
		}); err != nil {
			m.logger.Debug("create index", "index", idx.uid, "error", err)
		}

		index := m.client.Index(idx.uid)
		filterable := []interface{}{"orgId"}
		if _, err := index.UpdateFilterableAttributes(&filterable); err != nil {
			m.logger.Warn("update filterable attributes", "index", idx.uid, "error", err)
		}
		searchable := idx.searchable
		if _, err := index.UpdateSearchableAttributes(&searchable); err != nil {
			m.logger.Warn("update searchable attributes", "index", idx.uid, "error", err)
		}
	}
}

func (m *Meili) healthLoop() {
	ticker := time.NewTicker(10 * time.Second)
	defer ticker.Stop()
	for {
		select {
		case <-m.done:
			return
		case <-ticker.C:
			_, err := m.client.Health()
			wasHealthy := m.healthy.Load()
			m.healthy.Store(err == nil)
			if err == nil && !wasHealthy {
				m.logger.Info("meilisearch recovered, reconfiguring indexes")
				m.configureIndexes()
			}
		}
	}
}

// Close stops the health loop
func (m *Meili) Close() {
	close(m.done)
}

// Healthy reports whether Meilisearch is reachable
func (m *Meili) Healthy() bool {
	return m.healthy.Load()
}

// Search runs one query per requested kind, scoped to the org
func (m *Meili) Search(opts *kb.SearchOptions) (*kb.SearchHits, error) {
	if !m.healthy.Load() {
		return nil, fmt.Errorf("meilisearch unhealthy")
	}

	var queries []*meili.SearchRequest
	for _, idx := range indexes {
		if !opts.Includes(idx.kind) {
			continue
		}
		queries = append(queries, &meili.SearchRequest{
			IndexUID: idx.uid,
			Query:    opts.Query,
			Limit:    idx.limit,
			Filter:   fmt.Sprintf("orgId = %q", opts.OrgID),
		})
	}

	hits := &kb.SearchHits{}
	if len(queries) == 0 {
		return hits, nil
	}

	resp, err := m.client.MultiSearch(&meili.MultiSearchRequest{Queries: queries})
	if err != nil {
		m.healthy.Store(false)
		return nil, fmt.Errorf("meilisearch multi-search: %w", err)
	}

	for _, sr := range resp.Results {
		for _, hit := range sr.Hits {
			if err := appendHit(hits, sr.IndexUID, hit, opts.Query); err != nil {
				return nil, fmt.Errorf("decode %s hit: %w", sr.IndexUID, err)
			}
		}
	}
	return hits, nil
}

func appendHit(hits *kb.SearchHits, uid string, hit meili.Hit, q string) error {
	switch uid {
	case idxDocuments:
		var rec documentRecord
		if err := decodeHit(hit, &rec); err != nil {
			return err
		}
		hits.Documents = append(hits.Documents, rec.documentHit(q))
	case idxCollections:
		var rec collectionRecord
		if err := decodeHit(hit, &rec); err != nil {
			return err
		}
		hits.Collections = append(hits.Collections, rec.collection())
	case idxDepartments:
		var rec departmentRecord
		if err := decodeHit(hit, &rec); err != nil {
			return err
		}
		hits.Departments = append(hits.Departments, rec.department())
	case idxTags:
		var rec tagRecord
		if err := decodeHit(hit, &rec); err != nil {
			return err
		}
		hits.Tags = append(hits.Tags, rec.tag())
	}
	return nil
}

// Upsert adds or replaces the records in their indexes
func (m *Meili) Upsert(recs *records) error {
	add := func(uid string, docs any, n int) error {
		if n == 0 {
			return nil
		}
		if _, err := m.client.Index(uid).AddDocuments(docs, nil); err != nil {
			return fmt.Errorf("index %s: %w", uid, err)
		}
		return nil
	}

	if err := add(idxDocuments, recs.documents, len(recs.documents)); err != nil {
		return err
	}
	if err := add(idxCollections, recs.collections, len(recs.collections)); err != nil {
		return err
	}
	if err := add(idxDepartments, recs.departments, len(recs.departments)); err != nil {
		return err
	}
	return add(idxTags, recs.tags, len(recs.tags))
}

// Delete removes one entity from its index
func (m *Meili) Delete(kind kb.SearchResultKind, id string) error {
	uid := indexFor(kind)
	if uid == "" {
		return fmt.Errorf("no index for %q", kind)
	}
	_, err := m.client.Index(uid).DeleteDocument(id, nil)
	return err
}

// ClearOrg removes every record of an org from all indexes
func (m *Meili) ClearOrg(orgID string) error {
	filter := fmt.Sprintf("orgId = %q", orgID)
	for _, idx := range indexes {
		if _, err := m.client.Index(idx.uid).DeleteDocumentsByFilter(filter, nil); err != nil {
			return fmt.Errorf("clear %s: %w", idx.uid, err)
		}
	}
	return nil
}
