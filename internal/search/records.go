package search

import (
	"encoding/json"

	kb "knowledgestack/internal/domain/models/knowledge"

	meili "github.com/meilisearch/meilisearch-go"
)

type documentRecord struct {
	ID            string   `json:"id"`
	OrgID         string   `json:"orgId"`
	Title         string   `json:"title"`
	Body          string   `json:"body"`
	Everyone      bool     `json:"everyone"`
	DepartmentIDs []string `json:"departmentIds"`
}

type collectionRecord struct {
	ID            string   `json:"id"`
	OrgID         string   `json:"orgId"`
	Slug          string   `json:"slug"`
	Name          string   `json:"name"`
	Description   string   `json:"description"`
	Everyone      bool     `json:"everyone"`
	DepartmentIDs []string `json:"departmentIds"`
}

type departmentRecord struct {
	ID    string `json:"id"`
	OrgID string `json:"orgId"`
	Slug  string `json:"slug"`
	Name  string `json:"name"`
}

type tagRecord struct {
	ID          string `json:"id"`
	OrgID       string `json:"orgId"`
	Slug        string `json:"slug"`
	Name        string `json:"name"`
	Description string `json:"description"`
}

// records converts loaded entities into index records
type records struct {
	documents   []documentRecord
	collections []collectionRecord
	departments []departmentRecord
	tags        []tagRecord
}

func newRecords(orgID string, hits *kb.SearchHits) *records {
	r := &records{}
	for _, d := range hits.Documents {
		r.documents = append(r.documents, documentRecord{
			ID:            d.ID,
			OrgID:         orgID,
			Title:         d.Title,
			Body:          d.SnippetSource,
			Everyone:      d.Everyone,
			DepartmentIDs: nonNil(d.DepartmentIDs),
		})
	}
	for _, c := range hits.Collections {
		r.collections = append(r.collections, collectionRecord{
			ID:            c.ID,
			OrgID:         orgID,
			Slug:          c.Slug,
			Name:          c.Name,
			Description:   c.Description,
			Everyone:      c.Everyone,
			DepartmentIDs: nonNil(c.DepartmentIDs),
		})
	}
	for _, d := range hits.Departments {
		r.departments = append(r.departments, departmentRecord{
			ID:    d.ID,
			OrgID: orgID,
			Slug:  d.Slug,
			Name:  d.Name,
		})
	}
	for _, t := range hits.Tags {
		r.tags = append(r.tags, tagRecord{
			ID:          t.ID,
			OrgID:       orgID,
			Slug:        t.Slug,
			Name:        t.Name,
			Description: t.Description,
		})
	}
	return r
}

func (r *records) empty() bool {
	return len(r.documents) == 0 && len(r.collections) == 0 && len(r.departments) == 0 && len(r.tags) == 0
}

// decodeHit unmarshals a raw hit into one of the record types
func decodeHit(hit meili.Hit, v any) error {
	raw, err := json.Marshal(hit)
	if err != nil {
		return err
	}
	return json.Unmarshal(raw, v)
}

// documentHit rebuilds a hit; the body becomes the snippet source only
// when it actually contains the query.
func (d documentRecord) documentHit(q string) kb.DocumentHit {
	source := d.Title
	if containsFold(d.Body, q) {
		source = d.Body
	}
	return kb.DocumentHit{
		ID:            d.ID,
		Title:         d.Title,
		Everyone:      d.Everyone,
		DepartmentIDs: nonNil(d.DepartmentIDs),
		SnippetSource: source,
	}
}

func (c collectionRecord) collection() kb.Collection {
	return kb.Collection{
		ID:            c.ID,
		OrgID:         c.OrgID,
		Name:          c.Name,
		Slug:          c.Slug,
		Description:   c.Description,
		Everyone:      c.Everyone,
		DepartmentIDs: nonNil(c.DepartmentIDs),
	}
}

func (d departmentRecord) department() kb.Department {
	return kb.Department{ID: d.ID, OrgID: d.OrgID, Name: d.Name, Slug: d.Slug}
}

func (t tagRecord) tag() kb.Tag {
	return kb.Tag{ID: t.ID, OrgID: t.OrgID, Name: t.Name, Slug: t.Slug, Description: t.Description}
}

func nonNil(ids []string) []string {
	if ids == nil {
		return []string{}
	}
	return ids
}
