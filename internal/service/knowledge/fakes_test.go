package knowledge

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sort"
	"strings"
	"sync"
	"time"

	"knowledgestack/internal/domain"
	"knowledgestack/internal/domain/models"
	kbModels "knowledgestack/internal/domain/models/knowledge"
	"knowledgestack/internal/domain/repositories"
	"knowledgestack/internal/domain/services"
	"knowledgestack/internal/service/auth"

	"github.com/google/uuid"
)

// ============================================================================
// In-memory store
// ============================================================================

// memDB backs every fake repository. memTx snapshots it on begin and
// restores the snapshot when the transaction function fails.
type memDB struct {
	mu sync.Mutex

	departments     map[string]kbModels.Department
	deptMembers     map[string]map[string]bool
	collections     map[string]kbModels.Collection
	collectionDepts map[string][]string
	collectionDocs  map[string][]string
	documents       map[string]kbModels.Document
	documentDepts   map[string][]string
	sections        map[string]kbModels.Section
	links           map[string]kbModels.ResourceLink
	versions        []kbModels.DocumentVersion
	tags            map[string]kbModels.Tag
	attachments     map[kbModels.TagOwner]map[string]bool
	tiles           map[string]kbModels.Tile

	// fail maps an operation name ("tags.Create", "tags.Attach", ...) to
	// the error it returns
	fail map[string]error
}

func newMemDB() *memDB {
	return &memDB{
		departments:     map[string]kbModels.Department{},
		deptMembers:     map[string]map[string]bool{},
		collections:     map[string]kbModels.Collection{},
		collectionDepts: map[string][]string{},
		collectionDocs:  map[string][]string{},
		documents:       map[string]kbModels.Document{},
		documentDepts:   map[string][]string{},
		sections:        map[string]kbModels.Section{},
		links:           map[string]kbModels.ResourceLink{},
		tags:            map[string]kbModels.Tag{},
		attachments:     map[kbModels.TagOwner]map[string]bool{},
		tiles:           map[string]kbModels.Tile{},
		fail:            map[string]error{},
	}
}

func (db *memDB) failing(op string) error {
	return db.fail[op]
}

func cloneMap[K comparable, V any](m map[K]V) map[K]V {
	out := make(map[K]V, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}

func cloneNested[K comparable](m map[K]map[string]bool) map[K]map[string]bool {
	out := make(map[K]map[string]bool, len(m))
	for k, inner := range m {
		out[k] = cloneMap(inner)
	}
	return out
}

// snapshot copies all tables. Stored slices are never modified in place,
// so sharing their backing arrays is safe.
func (db *memDB) snapshot() *memDB {
	db.mu.Lock()
	defer db.mu.Unlock()
	return &memDB{
		departments:     cloneMap(db.departments),
		deptMembers:     cloneNested(db.deptMembers),
		collections:     cloneMap(db.collections),
		collectionDepts: cloneMap(db.collectionDepts),
		collectionDocs:  cloneMap(db.collectionDocs),
		documents:       cloneMap(db.documents),
		documentDepts:   cloneMap(db.documentDepts),
		sections:        cloneMap(db.sections),
		links:           cloneMap(db.links),
		versions:        append([]kbModels.DocumentVersion(nil), db.versions...),
		tags:            cloneMap(db.tags),
		attachments:     cloneNested(db.attachments),
		tiles:           cloneMap(db.tiles),
	}
}

func (db *memDB) restore(s *memDB) {
	db.mu.Lock()
	defer db.mu.Unlock()
	db.departments = s.departments
	db.deptMembers = s.deptMembers
	db.collections = s.collections
	db.collectionDepts = s.collectionDepts
	db.collectionDocs = s.collectionDocs
	db.documents = s.documents
	db.documentDepts = s.documentDepts
	db.sections = s.sections
	db.links = s.links
	db.versions = s.versions
	db.tags = s.tags
	db.attachments = s.attachments
	db.tiles = s.tiles
}

func notFound(kind, id string) error {
	return fmt.Errorf("%s %s: %w", kind, id, domain.ErrNotFound)
}

func without(ids []string, id string) []string {
	out := make([]string, 0, len(ids))
	for _, v := range ids {
		if v != id {
			out = append(out, v)
		}
	}
	return out
}

// ============================================================================
// Transactions
// ============================================================================

type memTxKey struct{}

type memTx struct {
	db      *memDB
	commits int
	aborts  int
}

func (m *memTx) ExecTx(ctx context.Context, fn repositories.TxFn) error {
	if ctx.Value(memTxKey{}) != nil {
		return fn(ctx)
	}
	snap := m.db.snapshot()
	if err := fn(context.WithValue(ctx, memTxKey{}, true)); err != nil {
		m.db.restore(snap)
		m.aborts++
		return err
	}
	m.commits++
	return nil
}

// ============================================================================
// Departments
// ============================================================================

type memDepartments struct{ db *memDB }

func (r *memDepartments) Create(ctx context.Context, d *kbModels.Department) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	for _, existing := range r.db.departments {
		if existing.OrgID == d.OrgID && existing.Slug == d.Slug {
			return &domain.ConflictError{Message: "department exists", ResourceType: "department", ResourceID: existing.ID}
		}
	}
	d.ID = uuid.NewString()
	r.db.departments[d.ID] = *d
	return nil
}

func (r *memDepartments) GetByID(ctx context.Context, id, orgID string) (*kbModels.Department, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	d, ok := r.db.departments[id]
	if !ok || d.OrgID != orgID {
		return nil, notFound("department", id)
	}
	return &d, nil
}

func (r *memDepartments) GetBySlug(ctx context.Context, orgID, slug string) (*kbModels.Department, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	for _, d := range r.db.departments {
		if d.OrgID == orgID && d.Slug == slug {
			return &d, nil
		}
	}
	return nil, notFound("department", slug)
}

func (r *memDepartments) List(ctx context.Context, orgID string) ([]kbModels.Department, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	var out []kbModels.Department
	for _, d := range r.db.departments {
		if d.OrgID == orgID {
			out = append(out, d)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

func (r *memDepartments) ListByIDs(ctx context.Context, orgID string, ids []string) ([]kbModels.Department, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	var out []kbModels.Department
	for _, id := range ids {
		if d, ok := r.db.departments[id]; ok && d.OrgID == orgID {
			out = append(out, d)
		}
	}
	return out, nil
}

func (r *memDepartments) Update(ctx context.Context, d *kbModels.Department) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	if _, ok := r.db.departments[d.ID]; !ok {
		return notFound("department", d.ID)
	}
	r.db.departments[d.ID] = *d
	return nil
}

func (r *memDepartments) AddMember(ctx context.Context, departmentID, userID string) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	if r.db.deptMembers[departmentID] == nil {
		r.db.deptMembers[departmentID] = map[string]bool{}
	}
	r.db.deptMembers[departmentID][userID] = true
	return nil
}

func (r *memDepartments) RemoveMember(ctx context.Context, departmentID, userID string) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	delete(r.db.deptMembers[departmentID], userID)
	return nil
}

func (r *memDepartments) ListIDsForUser(ctx context.Context, orgID, userID string) ([]string, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	var out []string
	for deptID, members := range r.db.deptMembers {
		if members[userID] && r.db.departments[deptID].OrgID == orgID {
			out = append(out, deptID)
		}
	}
	sort.Strings(out)
	return out, nil
}

// ============================================================================
// Collections
// ============================================================================

type memCollections struct{ db *memDB }

func (r *memCollections) load(c kbModels.Collection) kbModels.Collection {
	c.DepartmentIDs = append([]string{}, r.db.collectionDepts[c.ID]...)
	return c
}

func (r *memCollections) Create(ctx context.Context, c *kbModels.Collection) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	for _, existing := range r.db.collections {
		if existing.OrgID == c.OrgID && existing.Slug == c.Slug {
			return &domain.ConflictError{Message: "collection exists", ResourceType: "collection", ResourceID: existing.ID}
		}
	}
	c.ID = uuid.NewString()
	stored := *c
	stored.DepartmentIDs = nil
	r.db.collections[c.ID] = stored
	return nil
}

func (r *memCollections) GetByID(ctx context.Context, id, orgID string) (*kbModels.Collection, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	c, ok := r.db.collections[id]
	if !ok || c.OrgID != orgID {
		return nil, notFound("collection", id)
	}
	c = r.load(c)
	return &c, nil
}

func (r *memCollections) GetBySlug(ctx context.Context, orgID, slug string) (*kbModels.Collection, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	for _, c := range r.db.collections {
		if c.OrgID == orgID && c.Slug == slug {
			c = r.load(c)
			return &c, nil
		}
	}
	return nil, notFound("collection", slug)
}

func (r *memCollections) sorted(match func(kbModels.Collection) bool) []kbModels.Collection {
	var out []kbModels.Collection
	for _, c := range r.db.collections {
		if match(c) {
			out = append(out, r.load(c))
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Position != out[j].Position {
			return out[i].Position < out[j].Position
		}
		return out[i].Name < out[j].Name
	})
	return out
}

func (r *memCollections) List(ctx context.Context, orgID string) ([]kbModels.Collection, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	return r.sorted(func(c kbModels.Collection) bool { return c.OrgID == orgID }), nil
}

func (r *memCollections) ListByIDs(ctx context.Context, orgID string, ids []string) ([]kbModels.Collection, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	var out []kbModels.Collection
	for _, id := range ids {
		if c, ok := r.db.collections[id]; ok && c.OrgID == orgID {
			out = append(out, r.load(c))
		}
	}
	return out, nil
}

func (r *memCollections) ListChildren(ctx context.Context, orgID string, parentID *string) ([]kbModels.Collection, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	return r.sorted(func(c kbModels.Collection) bool {
		if c.OrgID != orgID {
			return false
		}
		if parentID == nil {
			return c.ParentID == nil
		}
		return c.ParentID != nil && *c.ParentID == *parentID
	}), nil
}

func (r *memCollections) Update(ctx context.Context, c *kbModels.Collection) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	if _, ok := r.db.collections[c.ID]; !ok {
		return notFound("collection", c.ID)
	}
	stored := *c
	stored.DepartmentIDs = nil
	stored.Tags, stored.DocumentIDs, stored.SubcollectionIDs = nil, nil, nil
	r.db.collections[c.ID] = stored
	return nil
}

func (r *memCollections) Delete(ctx context.Context, id, orgID string) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	if c, ok := r.db.collections[id]; !ok || c.OrgID != orgID {
		return notFound("collection", id)
	}
	delete(r.db.collections, id)
	delete(r.db.collectionDepts, id)
	delete(r.db.collectionDocs, id)
	delete(r.db.attachments, kbModels.CollectionOwner(id))
	return nil
}

func (r *memCollections) SetDepartments(ctx context.Context, collectionID string, departmentIDs []string) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	r.db.collectionDepts[collectionID] = append([]string{}, departmentIDs...)
	return nil
}

func (r *memCollections) AddDocument(ctx context.Context, collectionID, documentID string) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	if err := r.db.failing("collections.AddDocument"); err != nil {
		return err
	}
	if containsID(r.db.collectionDocs[collectionID], documentID) {
		return nil
	}
	ids := append([]string{}, r.db.collectionDocs[collectionID]...)
	r.db.collectionDocs[collectionID] = append(ids, documentID)
	return nil
}

func (r *memCollections) RemoveDocument(ctx context.Context, collectionID, documentID string) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	r.db.collectionDocs[collectionID] = without(r.db.collectionDocs[collectionID], documentID)
	return nil
}

func (r *memCollections) ListDocumentIDs(ctx context.Context, collectionID string) ([]string, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	return append([]string{}, r.db.collectionDocs[collectionID]...), nil
}

func (r *memCollections) ListIDsForDocument(ctx context.Context, documentID string) ([]string, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	var out []string
	for colID, docIDs := range r.db.collectionDocs {
		if containsID(docIDs, documentID) {
			out = append(out, colID)
		}
	}
	sort.Strings(out)
	return out, nil
}

// ============================================================================
// Documents, sections, links, versions
// ============================================================================

type memDocuments struct{ db *memDB }

func (r *memDocuments) load(d kbModels.Document) kbModels.Document {
	d.DepartmentIDs = append([]string{}, r.db.documentDepts[d.ID]...)
	d.CollectionIDs = []string{}
	for colID, docIDs := range r.db.collectionDocs {
		if containsID(docIDs, d.ID) {
			d.CollectionIDs = append(d.CollectionIDs, colID)
		}
	}
	sort.Strings(d.CollectionIDs)
	return d
}

func (r *memDocuments) Create(ctx context.Context, d *kbModels.Document) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	d.ID = uuid.NewString()
	stored := *d
	stored.DepartmentIDs, stored.CollectionIDs = nil, nil
	r.db.documents[d.ID] = stored
	return nil
}

func (r *memDocuments) GetByID(ctx context.Context, id, orgID string) (*kbModels.Document, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	d, ok := r.db.documents[id]
	if !ok || d.OrgID != orgID {
		return nil, notFound("document", id)
	}
	d = r.load(d)
	return &d, nil
}

func (r *memDocuments) List(ctx context.Context, orgID string, filter kbModels.DocumentFilter) ([]kbModels.Document, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	var out []kbModels.Document
	for _, d := range r.db.documents {
		if d.OrgID != orgID {
			continue
		}
		d = r.load(d)
		if filter.Status != "" && d.Status != filter.Status {
			continue
		}
		if filter.DepartmentID != "" && !containsID(d.DepartmentIDs, filter.DepartmentID) {
			continue
		}
		if filter.CollectionID != "" && !containsID(d.CollectionIDs, filter.CollectionID) {
			continue
		}
		if filter.CreatedBy != "" && (d.CreatedBy == nil || *d.CreatedBy != filter.CreatedBy) {
			continue
		}
		out = append(out, d)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Title < out[j].Title })
	return out, nil
}

func (r *memDocuments) ListByIDs(ctx context.Context, orgID string, ids []string) ([]kbModels.Document, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	var out []kbModels.Document
	for _, id := range ids {
		if d, ok := r.db.documents[id]; ok && d.OrgID == orgID {
			out = append(out, r.load(d))
		}
	}
	return out, nil
}

func (r *memDocuments) Update(ctx context.Context, d *kbModels.Document) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	if err := r.db.failing("documents.Update"); err != nil {
		return err
	}
	if _, ok := r.db.documents[d.ID]; !ok {
		return notFound("document", d.ID)
	}
	stored := *d
	stored.DepartmentIDs, stored.CollectionIDs = nil, nil
	stored.Tags, stored.Sections, stored.Links = nil, nil, nil
	r.db.documents[d.ID] = stored
	return nil
}

func (r *memDocuments) Delete(ctx context.Context, id, orgID string) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	if d, ok := r.db.documents[id]; !ok || d.OrgID != orgID {
		return notFound("document", id)
	}
	delete(r.db.documents, id)
	delete(r.db.documentDepts, id)
	delete(r.db.attachments, kbModels.DocumentOwner(id))
	for sid, s := range r.db.sections {
		if s.DocumentID == id {
			delete(r.db.sections, sid)
		}
	}
	for lid, l := range r.db.links {
		if l.DocumentID == id {
			delete(r.db.links, lid)
		}
	}
	return nil
}

func (r *memDocuments) SetDepartments(ctx context.Context, documentID string, departmentIDs []string) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	r.db.documentDepts[documentID] = append([]string{}, departmentIDs...)
	return nil
}

func (r *memDocuments) Touch(ctx context.Context, documentID string) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	d, ok := r.db.documents[documentID]
	if !ok {
		return notFound("document", documentID)
	}
	d.UpdatedAt = time.Now()
	r.db.documents[documentID] = d
	return nil
}

type memSections struct{ db *memDB }

func (r *memSections) Create(ctx context.Context, s *kbModels.Section) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	s.ID = uuid.NewString()
	r.db.sections[s.ID] = *s
	return nil
}

func (r *memSections) GetByID(ctx context.Context, id, documentID string) (*kbModels.Section, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	s, ok := r.db.sections[id]
	if !ok || s.DocumentID != documentID {
		return nil, notFound("section", id)
	}
	return &s, nil
}

func (r *memSections) ListByDocument(ctx context.Context, documentID string) ([]kbModels.Section, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	var out []kbModels.Section
	for _, s := range r.db.sections {
		if s.DocumentID == documentID {
			out = append(out, s)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Order != out[j].Order {
			return out[i].Order < out[j].Order
		}
		return out[i].ID < out[j].ID
	})
	return out, nil
}

func (r *memSections) Update(ctx context.Context, s *kbModels.Section) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	if _, ok := r.db.sections[s.ID]; !ok {
		return notFound("section", s.ID)
	}
	stored := *s
	stored.ImageURL = nil
	r.db.sections[s.ID] = stored
	return nil
}

func (r *memSections) Delete(ctx context.Context, id, documentID string) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	if s, ok := r.db.sections[id]; !ok || s.DocumentID != documentID {
		return notFound("section", id)
	}
	delete(r.db.sections, id)
	return nil
}

func (r *memSections) SetOrder(ctx context.Context, documentID string, orderedIDs []string) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	for i, id := range orderedIDs {
		s, ok := r.db.sections[id]
		if !ok || s.DocumentID != documentID {
			continue
		}
		s.Order = i
		r.db.sections[id] = s
	}
	return nil
}

type memLinks struct{ db *memDB }

func (r *memLinks) Create(ctx context.Context, l *kbModels.ResourceLink) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	l.ID = uuid.NewString()
	r.db.links[l.ID] = *l
	return nil
}

func (r *memLinks) GetByID(ctx context.Context, id, documentID string) (*kbModels.ResourceLink, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	l, ok := r.db.links[id]
	if !ok || l.DocumentID != documentID {
		return nil, notFound("link", id)
	}
	return &l, nil
}

func (r *memLinks) ListByDocument(ctx context.Context, documentID string) ([]kbModels.ResourceLink, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	var out []kbModels.ResourceLink
	for _, l := range r.db.links {
		if l.DocumentID == documentID {
			out = append(out, l)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Order != out[j].Order {
			return out[i].Order < out[j].Order
		}
		return out[i].ID < out[j].ID
	})
	return out, nil
}

func (r *memLinks) Update(ctx context.Context, l *kbModels.ResourceLink) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	if _, ok := r.db.links[l.ID]; !ok {
		return notFound("link", l.ID)
	}
	r.db.links[l.ID] = *l
	return nil
}

func (r *memLinks) Delete(ctx context.Context, id, documentID string) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	if l, ok := r.db.links[id]; !ok || l.DocumentID != documentID {
		return notFound("link", id)
	}
	delete(r.db.links, id)
	return nil
}

func (r *memLinks) SetOrder(ctx context.Context, documentID string, orderedIDs []string) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	for i, id := range orderedIDs {
		l, ok := r.db.links[id]
		if !ok || l.DocumentID != documentID {
			continue
		}
		l.Order = i
		r.db.links[id] = l
	}
	return nil
}

type memVersions struct{ db *memDB }

func (r *memVersions) Create(ctx context.Context, v *kbModels.DocumentVersion) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	v.ID = uuid.NewString()
	r.db.versions = append(r.db.versions, *v)
	return nil
}

func (r *memVersions) ListByDocument(ctx context.Context, documentID string) ([]kbModels.DocumentVersion, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	var out []kbModels.DocumentVersion
	for i := len(r.db.versions) - 1; i >= 0; i-- {
		if r.db.versions[i].DocumentID == documentID {
			out = append(out, r.db.versions[i])
		}
	}
	return out, nil
}

// ============================================================================
// Tags
// ============================================================================

type memTags struct{ db *memDB }

func (r *memTags) Create(ctx context.Context, t *kbModels.Tag) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	if err := r.db.failing("tags.Create"); err != nil {
		return err
	}
	if t.IsStructural() {
		for _, existing := range r.db.tags {
			if existing.OrgID == t.OrgID && existing.TargetKind() == t.TargetKind() &&
				kbModels.TargetID(existing.Target) == kbModels.TargetID(t.Target) {
				return &domain.ConflictError{Message: "structural tag exists", ResourceType: "tag", ResourceID: existing.ID}
			}
		}
	}
	t.ID = uuid.NewString()
	r.db.tags[t.ID] = *t
	return nil
}

func (r *memTags) GetByID(ctx context.Context, id, orgID string) (*kbModels.Tag, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	t, ok := r.db.tags[id]
	if !ok || t.OrgID != orgID {
		return nil, notFound("tag", id)
	}
	return &t, nil
}

func sortTags(tags []kbModels.Tag) {
	sort.Slice(tags, func(i, j int) bool {
		if tags[i].Name != tags[j].Name {
			return tags[i].Name < tags[j].Name
		}
		return tags[i].ID < tags[j].ID
	})
}

func (r *memTags) List(ctx context.Context, orgID string, kind kbModels.TargetKind) ([]kbModels.Tag, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	var out []kbModels.Tag
	for _, t := range r.db.tags {
		if t.OrgID == orgID && (kind == "" || t.TargetKind() == kind) {
			out = append(out, t)
		}
	}
	sortTags(out)
	return out, nil
}

func (r *memTags) ListByIDs(ctx context.Context, orgID string, ids []string) ([]kbModels.Tag, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	var out []kbModels.Tag
	for _, id := range ids {
		if t, ok := r.db.tags[id]; ok && t.OrgID == orgID {
			out = append(out, t)
		}
	}
	return out, nil
}

func (r *memTags) FindByTarget(ctx context.Context, orgID string, target kbModels.TagTarget) (*kbModels.Tag, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	for _, t := range r.db.tags {
		if t.OrgID == orgID && t.TargetKind() == target.Kind() && kbModels.TargetID(t.Target) == kbModels.TargetID(target) {
			return &t, nil
		}
	}
	return nil, notFound("tag", string(target.Kind())+":"+kbModels.TargetID(target))
}

func (r *memTags) Update(ctx context.Context, t *kbModels.Tag) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	if err := r.db.failing("tags.Update"); err != nil {
		return err
	}
	if _, ok := r.db.tags[t.ID]; !ok {
		return notFound("tag", t.ID)
	}
	r.db.tags[t.ID] = *t
	return nil
}

func (r *memTags) Delete(ctx context.Context, id, orgID string) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	if t, ok := r.db.tags[id]; !ok || t.OrgID != orgID {
		return notFound("tag", id)
	}
	delete(r.db.tags, id)
	for _, set := range r.db.attachments {
		delete(set, id)
	}
	return nil
}

func (r *memTags) ListAttached(ctx context.Context, owner kbModels.TagOwner) ([]kbModels.Tag, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	out := []kbModels.Tag{}
	for id := range r.db.attachments[owner] {
		if t, ok := r.db.tags[id]; ok {
			out = append(out, t)
		}
	}
	sortTags(out)
	return out, nil
}

func (r *memTags) Attach(ctx context.Context, owner kbModels.TagOwner, tagID string) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	if err := r.db.failing("tags.Attach"); err != nil {
		return err
	}
	if r.db.attachments[owner] == nil {
		r.db.attachments[owner] = map[string]bool{}
	}
	r.db.attachments[owner][tagID] = true
	return nil
}

func (r *memTags) Detach(ctx context.Context, owner kbModels.TagOwner, tagID string) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	if err := r.db.failing("tags.Detach"); err != nil {
		return err
	}
	delete(r.db.attachments[owner], tagID)
	return nil
}

func (r *memTags) DetachEverywhere(ctx context.Context, tagID string) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	for _, set := range r.db.attachments {
		delete(set, tagID)
	}
	return nil
}

// ============================================================================
// Tiles
// ============================================================================

type memTiles struct{ db *memDB }

func (r *memTiles) resolve(t kbModels.Tile) kbModels.Tile {
	t.DepartmentSlug, t.CollectionSlug = nil, nil
	if t.DepartmentID != nil {
		if d, ok := r.db.departments[*t.DepartmentID]; ok {
			slug := d.Slug
			t.DepartmentSlug = &slug
		}
	}
	if t.CollectionID != nil {
		if c, ok := r.db.collections[*t.CollectionID]; ok {
			slug := c.Slug
			t.CollectionSlug = &slug
		}
	}
	if t.DocumentID != nil {
		if _, ok := r.db.documents[*t.DocumentID]; !ok {
			t.DocumentID = nil
		}
	}
	return t
}

func (r *memTiles) Create(ctx context.Context, t *kbModels.Tile) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	t.ID = uuid.NewString()
	r.db.tiles[t.ID] = *t
	return nil
}

func (r *memTiles) GetByID(ctx context.Context, id, orgID string) (*kbModels.Tile, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	t, ok := r.db.tiles[id]
	if !ok || t.OrgID != orgID {
		return nil, notFound("tile", id)
	}
	t = r.resolve(t)
	return &t, nil
}

func (r *memTiles) List(ctx context.Context, orgID string, activeOnly bool) ([]kbModels.Tile, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	var out []kbModels.Tile
	for _, t := range r.db.tiles {
		if t.OrgID == orgID && (!activeOnly || t.IsActive) {
			out = append(out, r.resolve(t))
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Order != out[j].Order {
			return out[i].Order < out[j].Order
		}
		return out[i].ID < out[j].ID
	})
	return out, nil
}

func (r *memTiles) Update(ctx context.Context, t *kbModels.Tile) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	if _, ok := r.db.tiles[t.ID]; !ok {
		return notFound("tile", t.ID)
	}
	r.db.tiles[t.ID] = *t
	return nil
}

func (r *memTiles) Delete(ctx context.Context, id, orgID string) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	delete(r.db.tiles, id)
	return nil
}

// ============================================================================
// Collaborators
// ============================================================================

type memMembers struct {
	roles map[string]models.Role // user id -> role in testOrg
}

func (m *memMembers) Get(ctx context.Context, orgID, userID string) (*models.Membership, error) {
	role, ok := m.roles[userID]
	if !ok || orgID != testOrg {
		return nil, notFound("membership", userID)
	}
	return &models.Membership{UserID: userID, OrgID: orgID, Role: role}, nil
}

func (m *memMembers) Upsert(ctx context.Context, membership *models.Membership) error {
	m.roles[membership.UserID] = membership.Role
	return nil
}

type memProfiles struct{ db *memDB }

func (p *memProfiles) Get(ctx context.Context, orgID, userID string) (*models.Profile, error) {
	return &models.Profile{OrgID: orgID, UserID: userID}, nil
}

func (p *memProfiles) Upsert(ctx context.Context, profile *models.Profile) error { return nil }

func (p *memProfiles) ListByDepartment(ctx context.Context, orgID, departmentID string) ([]models.Profile, error) {
	p.db.mu.Lock()
	defer p.db.mu.Unlock()
	var out []models.Profile
	for userID := range p.db.deptMembers[departmentID] {
		out = append(out, models.Profile{OrgID: orgID, UserID: userID, DepartmentIDs: []string{departmentID}})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].UserID < out[j].UserID })
	return out, nil
}

// memMedia records stored keys instead of uploading
type memMedia struct {
	objects map[string]string
	removed []string
}

func (m *memMedia) Put(ctx context.Context, orgID, category string, upload *services.Upload) (string, error) {
	if !strings.HasPrefix(upload.ContentType, "image/") {
		return "", &domain.ValidationError{Message: "only images can be uploaded"}
	}
	data, err := io.ReadAll(upload.Body)
	if err != nil {
		return "", err
	}
	key := fmt.Sprintf("%s/%s/%s", orgID, category, uuid.NewString())
	m.objects[key] = string(data)
	return key, nil
}

func (m *memMedia) Remove(ctx context.Context, key string) error {
	delete(m.objects, key)
	m.removed = append(m.removed, key)
	return nil
}

func (m *memMedia) PublicURL(key string) string { return "https://media.test/" + key }

// recordingIndexer remembers notifications
type recordingIndexer struct {
	mu      sync.Mutex
	changed []string
	removed []string
}

func (r *recordingIndexer) Changed(orgID string, kind kbModels.SearchResultKind, id string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.changed = append(r.changed, string(kind)+":"+id)
}

func (r *recordingIndexer) Removed(orgID string, kind kbModels.SearchResultKind, id string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.removed = append(r.removed, string(kind)+":"+id)
}

// ============================================================================
// Fixture
// ============================================================================

const testOrg = "org-1"

var errStoreDown = errors.New("store unavailable")

type fixture struct {
	db      *memDB
	tx      *memTx
	media   *memMedia
	indexer *recordingIndexer

	departments *memDepartments
	collections *memCollections
	documents   *memDocuments
	tags        *memTags
	tiles       *memTiles

	tagSync     *TagSynchronizer
	deptSvc     *departmentService
	colSvc      *collectionService
	docSvc      *documentService
	tagSvc      *tagService
	tileSvc     *tileService
	admin       *models.Actor
	editor      *models.Actor
	viewer      *models.Actor
	logger      *slog.Logger
	memberships *memMembers
}

func newFixture() *fixture {
	db := newMemDB()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	f := &fixture{
		db:          db,
		tx:          &memTx{db: db},
		media:       &memMedia{objects: map[string]string{}},
		indexer:     &recordingIndexer{},
		departments: &memDepartments{db: db},
		collections: &memCollections{db: db},
		documents:   &memDocuments{db: db},
		tags:        &memTags{db: db},
		tiles:       &memTiles{db: db},
		logger:      logger,
		memberships: &memMembers{roles: map[string]models.Role{
			"admin-1":  models.RoleAdmin,
			"editor-1": models.RoleEditor,
			"viewer-1": models.RoleViewer,
		}},
		admin:  &models.Actor{UserID: "admin-1", OrgID: testOrg, Role: models.RoleAdmin},
		editor: &models.Actor{UserID: "editor-1", OrgID: testOrg, Role: models.RoleEditor},
		viewer: &models.Actor{UserID: "viewer-1", OrgID: testOrg, Role: models.RoleViewer},
	}

	authorizer := auth.NewRoleAuthorizer()
	f.tagSync = NewTagSynchronizer(f.tags, f.departments, f.collections, logger)

	f.deptSvc = NewDepartmentService(f.departments, f.documents, f.collections, &memProfiles{db: db},
		f.memberships, f.tx, f.tagSync, authorizer, f.indexer, logger).(*departmentService)
	f.colSvc = NewCollectionService(f.collections, f.documents, f.departments, f.tags, &memVersions{db: db},
		f.tx, f.tagSync, authorizer, f.indexer, logger).(*collectionService)
	f.docSvc = NewDocumentService(DocumentRepos{
		Documents:   f.documents,
		Sections:    &memSections{db: db},
		Links:       &memLinks{db: db},
		Versions:    &memVersions{db: db},
		Tags:        f.tags,
		Collections: f.collections,
		Departments: f.departments,
	}, f.tx, f.tagSync, f.media, authorizer, f.indexer, logger).(*documentService)
	f.tagSvc = NewTagService(f.tags, f.documents, f.tx, authorizer, f.indexer, logger).(*tagService)
	f.tileSvc = NewTileService(f.tiles, f.documents, f.departments, f.collections, authorizer, logger).(*tileService)

	return f
}

// attachedIDs returns the ids of tags attached to owner, sorted
func (f *fixture) attachedIDs(owner kbModels.TagOwner) []string {
	tags, _ := f.tags.ListAttached(context.Background(), owner)
	ids := tagIDs(tags)
	sort.Strings(ids)
	return ids
}

func (f *fixture) structuralTag(target kbModels.TagTarget) *kbModels.Tag {
	tag, err := f.tags.FindByTarget(context.Background(), testOrg, target)
	if err != nil {
		return nil
	}
	return tag
}
