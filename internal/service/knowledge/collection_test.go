package knowledge

import (
	"context"
	"errors"
	"reflect"
	"testing"

	"knowledgestack/internal/domain"
	kbModels "knowledgestack/internal/domain/models/knowledge"
	kbSvc "knowledgestack/internal/domain/services/knowledge"
)

func mustCollection(t *testing.T, f *fixture, req *kbSvc.CreateCollectionRequest) *kbModels.Collection {
	t.Helper()
	col, err := f.colSvc.CreateCollection(context.Background(), f.admin, req)
	if err != nil {
		t.Fatalf("CreateCollection(%q) error = %v", req.Name, err)
	}
	return col
}

func TestCreateCollection(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	eng := mustDepartment(t, f, "Engineering")

	parent := mustCollection(t, f, &kbSvc.CreateCollectionRequest{Name: "Handbooks"})
	child := mustCollection(t, f, &kbSvc.CreateCollectionRequest{
		Name:          "Engineering Handbook",
		ParentID:      &parent.ID,
		Everyone:      boolPtr(false),
		DepartmentIDs: []string{eng.ID},
	})

	if child.ParentID == nil || *child.ParentID != parent.ID {
		t.Errorf("ParentID = %v, want %s", child.ParentID, parent.ID)
	}
	if child.Slug != "engineering-handbook" {
		t.Errorf("Slug = %q, want engineering-handbook", child.Slug)
	}

	colTag := f.structuralTag(kbModels.CollectionTarget{CollectionID: child.ID})
	if colTag == nil {
		t.Fatal("collection tag not created")
	}
	engTag := f.structuralTag(kbModels.DepartmentTarget{DepartmentID: eng.ID})
	if !reflect.DeepEqual(tagIDs(child.Tags), []string{engTag.ID}) {
		t.Errorf("collection tags = %v, want department tag %s", tagIDs(child.Tags), engTag.ID)
	}

	detail, err := f.colSvc.GetCollection(ctx, f.admin, parent.Slug)
	if err != nil {
		t.Fatalf("GetCollection() error = %v", err)
	}
	if !reflect.DeepEqual(detail.SubcollectionIDs, []string{child.ID}) {
		t.Errorf("SubcollectionIDs = %v, want [%s]", detail.SubcollectionIDs, child.ID)
	}
}

func TestCreateCollection_RestrictedWithoutDepartments(t *testing.T) {
	f := newFixture()

	_, err := f.colSvc.CreateCollection(context.Background(), f.admin, &kbSvc.CreateCollectionRequest{
		Name:     "Private",
		Everyone: boolPtr(false),
	})

	var visErr *domain.VisibilityError
	if !errors.As(err, &visErr) {
		t.Fatalf("CreateCollection() error = %v, want *domain.VisibilityError", err)
	}
	if len(f.db.collections) != 0 || len(f.db.tags) != 0 {
		t.Error("collection or tag stored despite rejected create")
	}
}

func TestUpdateCollection_Hierarchy(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	c1 := mustCollection(t, f, &kbSvc.CreateCollectionRequest{Name: "C1"})
	c2 := mustCollection(t, f, &kbSvc.CreateCollectionRequest{Name: "C2", ParentID: &c1.ID})

	tests := []struct {
		name     string
		parentID string
		kind     domain.ErrorKind
	}{
		{"own parent", c1.ID, domain.KindSelfNesting},
		{"child as parent", c2.ID, domain.KindCycle},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			parentID := tt.parentID
			_, err := f.colSvc.UpdateCollection(ctx, f.admin, c1.Slug, &kbSvc.UpdateCollectionRequest{
				ParentID:  &parentID,
				SetParent: true,
			})

			var hErr *domain.HierarchyError
			if !errors.As(err, &hErr) || hErr.Kind() != tt.kind {
				t.Fatalf("UpdateCollection() error = %v, want %s", err, tt.kind)
			}
			stored, _ := f.collections.GetByID(ctx, c1.ID, testOrg)
			if stored.ParentID != nil {
				t.Errorf("C1 parent = %v, want nil", *stored.ParentID)
			}
		})
	}

	// Moving C2 back to root is fine
	updated, err := f.colSvc.UpdateCollection(ctx, f.admin, c2.Slug, &kbSvc.UpdateCollectionRequest{SetParent: true})
	if err != nil {
		t.Fatalf("UpdateCollection(root) error = %v", err)
	}
	if updated.ParentID != nil {
		t.Errorf("C2 parent = %v, want nil", *updated.ParentID)
	}
}

func TestUpdateCollection_RenameKeepsTag(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	col := mustCollection(t, f, &kbSvc.CreateCollectionRequest{Name: "Guides"})
	before := f.structuralTag(kbModels.CollectionTarget{CollectionID: col.ID})

	name, slug := "Field Guides", "field-guides"
	if _, err := f.colSvc.UpdateCollection(ctx, f.admin, col.Slug, &kbSvc.UpdateCollectionRequest{Name: &name, Slug: &slug}); err != nil {
		t.Fatalf("UpdateCollection() error = %v", err)
	}

	after := f.structuralTag(kbModels.CollectionTarget{CollectionID: col.ID})
	if after.ID != before.ID {
		t.Errorf("tag id changed from %s to %s", before.ID, after.ID)
	}
	if after.Name != name || after.Slug != slug {
		t.Errorf("tag = %q/%q, want %q/%q", after.Name, after.Slug, name, slug)
	}
}

// Collection membership drives the document's collection tag.
func TestCollectionMembershipTags(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	doc := mustDocument(t, f, "D1")
	c3 := mustCollection(t, f, &kbSvc.CreateCollectionRequest{Name: "C3"})
	c3Tag := f.structuralTag(kbModels.CollectionTarget{CollectionID: c3.ID})

	detail, err := f.colSvc.AddDocument(ctx, f.admin, c3.Slug, doc.ID)
	if err != nil {
		t.Fatalf("AddDocument() error = %v", err)
	}
	if !reflect.DeepEqual(detail.DocumentIDs, []string{doc.ID}) {
		t.Errorf("DocumentIDs = %v, want [%s]", detail.DocumentIDs, doc.ID)
	}
	if !containsID(f.attachedIDs(kbModels.DocumentOwner(doc.ID)), c3Tag.ID) {
		t.Fatal("document did not gain the collection tag")
	}

	// Adding twice is a no-op
	if _, err := f.colSvc.AddDocument(ctx, f.admin, c3.Slug, doc.ID); err != nil {
		t.Fatalf("second AddDocument() error = %v", err)
	}
	if ids, _ := f.collections.ListDocumentIDs(ctx, c3.ID); len(ids) != 1 {
		t.Errorf("DocumentIDs after re-add = %v, want one entry", ids)
	}

	if _, err := f.colSvc.RemoveDocument(ctx, f.admin, c3.Slug, doc.ID); err != nil {
		t.Fatalf("RemoveDocument() error = %v", err)
	}
	if containsID(f.attachedIDs(kbModels.DocumentOwner(doc.ID)), c3Tag.ID) {
		t.Error("document kept the collection tag after removal")
	}
	if f.structuralTag(kbModels.CollectionTarget{CollectionID: c3.ID}) == nil {
		t.Error("collection tag deleted when a document left")
	}

	versions, _ := f.docSvc.ListVersions(ctx, f.admin, doc.ID)
	if len(versions) != 4 {
		t.Errorf("versions = %d, want 4 (create, add, add, remove)", len(versions))
	}
}

func TestAddDocument_TagFailureRollsBackEdge(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	doc := mustDocument(t, f, "D1")
	col := mustCollection(t, f, &kbSvc.CreateCollectionRequest{Name: "Ops"})

	f.db.fail["tags.Attach"] = errStoreDown
	_, err := f.colSvc.AddDocument(ctx, f.admin, col.Slug, doc.ID)
	delete(f.db.fail, "tags.Attach")

	if !errors.As(err, new(*domain.TagSyncError)) {
		t.Fatalf("AddDocument() error = %v, want *domain.TagSyncError", err)
	}
	if ids, _ := f.collections.ListDocumentIDs(ctx, col.ID); len(ids) != 0 {
		t.Errorf("membership edge survived rollback: %v", ids)
	}
}

func TestSubcollections(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	parent := mustCollection(t, f, &kbSvc.CreateCollectionRequest{Name: "Parent"})
	child := mustCollection(t, f, &kbSvc.CreateCollectionRequest{Name: "Child"})
	other := mustCollection(t, f, &kbSvc.CreateCollectionRequest{Name: "Other"})

	detail, err := f.colSvc.AddSubcollection(ctx, f.admin, parent.Slug, child.ID)
	if err != nil {
		t.Fatalf("AddSubcollection() error = %v", err)
	}
	if !reflect.DeepEqual(detail.SubcollectionIDs, []string{child.ID}) {
		t.Errorf("SubcollectionIDs = %v, want [%s]", detail.SubcollectionIDs, child.ID)
	}

	if _, err := f.colSvc.AddSubcollection(ctx, f.admin, child.Slug, parent.ID); !errors.As(err, new(*domain.HierarchyError)) {
		t.Errorf("AddSubcollection(cycle) error = %v, want *domain.HierarchyError", err)
	}

	if _, err := f.colSvc.RemoveSubcollection(ctx, f.admin, parent.Slug, other.ID); !errors.Is(err, domain.ErrNotFound) {
		t.Errorf("RemoveSubcollection(non-child) error = %v, want ErrNotFound", err)
	}

	detail, err = f.colSvc.RemoveSubcollection(ctx, f.admin, parent.Slug, child.ID)
	if err != nil {
		t.Fatalf("RemoveSubcollection() error = %v", err)
	}
	if len(detail.SubcollectionIDs) != 0 {
		t.Errorf("SubcollectionIDs = %v, want none", detail.SubcollectionIDs)
	}
}

func TestDeleteCollection(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	parent := mustCollection(t, f, &kbSvc.CreateCollectionRequest{Name: "Parent"})
	child := mustCollection(t, f, &kbSvc.CreateCollectionRequest{Name: "Child", ParentID: &parent.ID})
	doc := mustDocument(t, f, "D1")
	if _, err := f.colSvc.AddDocument(ctx, f.admin, parent.Slug, doc.ID); err != nil {
		t.Fatal(err)
	}
	parentTag := f.structuralTag(kbModels.CollectionTarget{CollectionID: parent.ID})

	if err := f.colSvc.DeleteCollection(ctx, f.admin, parent.Slug); err != nil {
		t.Fatalf("DeleteCollection() error = %v", err)
	}

	movedChild, err := f.collections.GetByID(ctx, child.ID, testOrg)
	if err != nil {
		t.Fatalf("child deleted with parent: %v", err)
	}
	if movedChild.ParentID != nil {
		t.Errorf("child parent = %v, want root", *movedChild.ParentID)
	}
	if _, err := f.documents.GetByID(ctx, doc.ID, testOrg); err != nil {
		t.Errorf("member document deleted with collection: %v", err)
	}
	if containsID(f.attachedIDs(kbModels.DocumentOwner(doc.ID)), parentTag.ID) {
		t.Error("document kept the deleted collection's tag")
	}
	if _, err := f.tags.GetByID(ctx, parentTag.ID, testOrg); !errors.Is(err, domain.ErrNotFound) {
		t.Errorf("collection tag still exists: %v", err)
	}
	if !containsID(f.indexer.removed, "collection:"+parent.ID) {
		t.Error("search index not told about the deletion")
	}
}

func TestCandidates(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	eng := mustDepartment(t, f, "Engineering")
	sales := mustDepartment(t, f, "Sales")

	root := mustCollection(t, f, &kbSvc.CreateCollectionRequest{Name: "Root"})
	target := mustCollection(t, f, &kbSvc.CreateCollectionRequest{
		Name: "Target", ParentID: &root.ID, Everyone: boolPtr(false), DepartmentIDs: []string{eng.ID},
	})
	child := mustCollection(t, f, &kbSvc.CreateCollectionRequest{Name: "Child", ParentID: &target.ID})
	publicCol := mustCollection(t, f, &kbSvc.CreateCollectionRequest{Name: "Public"})
	salesCol := mustCollection(t, f, &kbSvc.CreateCollectionRequest{
		Name: "Sales Only", Everyone: boolPtr(false), DepartmentIDs: []string{sales.ID},
	})

	createDoc := func(title string, everyone bool, depts ...string) *kbModels.Document {
		doc, err := f.docSvc.CreateDocument(ctx, f.admin, &kbSvc.CreateDocumentRequest{
			Title: title, Everyone: boolPtr(everyone), DepartmentIDs: depts,
		})
		if err != nil {
			t.Fatalf("CreateDocument(%q) error = %v", title, err)
		}
		return doc
	}
	publicDoc := createDoc("Public", true)
	engDoc := createDoc("Eng", false, eng.ID)
	salesDoc := createDoc("Sales", false, sales.ID)
	member := createDoc("Member", true)
	if _, err := f.colSvc.AddDocument(ctx, f.admin, target.Slug, member.ID); err != nil {
		t.Fatal(err)
	}

	got, err := f.colSvc.Candidates(ctx, f.admin, target.Slug)
	if err != nil {
		t.Fatalf("Candidates() error = %v", err)
	}

	var docIDs, colIDs []string
	for _, d := range got.Documents {
		docIDs = append(docIDs, d.ID)
	}
	for _, c := range got.Collections {
		colIDs = append(colIDs, c.ID)
	}

	if !sameSet(docIDs, []string{publicDoc.ID, engDoc.ID}) {
		t.Errorf("document candidates = %v, want public and eng only", docIDs)
	}
	if containsID(docIDs, salesDoc.ID) || containsID(docIDs, member.ID) {
		t.Error("ineligible or member document offered")
	}
	if !reflect.DeepEqual(colIDs, []string{publicCol.ID}) {
		t.Errorf("collection candidates = %v, want [%s]", colIDs, publicCol.ID)
	}
	for _, excluded := range []string{root.ID, target.ID, child.ID, salesCol.ID} {
		if containsID(colIDs, excluded) {
			t.Errorf("collection %s offered as candidate", excluded)
		}
	}
}

func TestAncestors(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	a := mustCollection(t, f, &kbSvc.CreateCollectionRequest{Name: "A"})
	b := mustCollection(t, f, &kbSvc.CreateCollectionRequest{Name: "B", ParentID: &a.ID})
	c := mustCollection(t, f, &kbSvc.CreateCollectionRequest{Name: "C", ParentID: &b.ID})

	chain, err := f.colSvc.Ancestors(ctx, f.viewer, c.Slug)
	if err != nil {
		t.Fatalf("Ancestors() error = %v", err)
	}
	var slugs []string
	for _, col := range chain {
		slugs = append(slugs, col.Slug)
	}
	if !reflect.DeepEqual(slugs, []string{"a", "b"}) {
		t.Errorf("Ancestors() = %v, want [a b]", slugs)
	}

	chain, err = f.colSvc.Ancestors(ctx, f.viewer, a.Slug)
	if err != nil || chain == nil || len(chain) != 0 {
		t.Errorf("Ancestors(root) = %v, %v; want empty non-nil", chain, err)
	}
}

func TestRestrictedCollectionHiddenFromOutsiders(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	eng := mustDepartment(t, f, "Engineering")
	col := mustCollection(t, f, &kbSvc.CreateCollectionRequest{
		Name: "Secret", Everyone: boolPtr(false), DepartmentIDs: []string{eng.ID},
	})

	if _, err := f.colSvc.GetCollection(ctx, f.viewer, col.Slug); !errors.Is(err, domain.ErrNotFound) {
		t.Errorf("GetCollection(outsider) error = %v, want ErrNotFound", err)
	}
	list, _ := f.colSvc.ListCollections(ctx, f.viewer)
	if len(list) != 0 {
		t.Errorf("ListCollections(outsider) = %d, want 0", len(list))
	}
	list, _ = f.colSvc.ListCollections(ctx, f.admin)
	if len(list) != 1 {
		t.Errorf("ListCollections(admin) = %d, want 1", len(list))
	}
}

func TestMembershipWritesHideRestrictedItems(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	eng := mustDepartment(t, f, "Engineering")
	open := mustCollection(t, f, &kbSvc.CreateCollectionRequest{Name: "Open"})
	secret := mustCollection(t, f, &kbSvc.CreateCollectionRequest{
		Name: "Secret", Everyone: boolPtr(false), DepartmentIDs: []string{eng.ID},
	})
	doc, err := f.docSvc.CreateDocument(ctx, f.admin, &kbSvc.CreateDocumentRequest{
		Title: "Incident review", Everyone: boolPtr(false), DepartmentIDs: []string{eng.ID},
	})
	if err != nil {
		t.Fatal(err)
	}
	versions := len(f.db.versions)

	// editor-1 belongs to no department
	if _, err := f.colSvc.AddDocument(ctx, f.editor, open.Slug, doc.ID); !errors.Is(err, domain.ErrNotFound) {
		t.Errorf("AddDocument(hidden document) error = %v, want ErrNotFound", err)
	}
	if ids, _ := f.collections.ListDocumentIDs(ctx, open.ID); len(ids) != 0 {
		t.Errorf("collection documents = %v, want none", ids)
	}
	if len(f.db.versions) != versions {
		t.Error("version recorded for a rejected add")
	}
	if _, err := f.colSvc.AddSubcollection(ctx, f.editor, open.Slug, secret.ID); !errors.Is(err, domain.ErrNotFound) {
		t.Errorf("AddSubcollection(hidden child) error = %v, want ErrNotFound", err)
	}
	if stored, _ := f.collections.GetByID(ctx, secret.ID, testOrg); stored.ParentID != nil {
		t.Errorf("hidden child moved under %s", *stored.ParentID)
	}

	if _, err := f.colSvc.AddDocument(ctx, f.admin, open.Slug, doc.ID); err != nil {
		t.Fatal(err)
	}
	if _, err := f.colSvc.AddSubcollection(ctx, f.admin, open.Slug, secret.ID); err != nil {
		t.Fatal(err)
	}

	if _, err := f.colSvc.RemoveDocument(ctx, f.editor, open.Slug, doc.ID); !errors.Is(err, domain.ErrNotFound) {
		t.Errorf("RemoveDocument(hidden document) error = %v, want ErrNotFound", err)
	}
	if ids, _ := f.collections.ListDocumentIDs(ctx, open.ID); !reflect.DeepEqual(ids, []string{doc.ID}) {
		t.Errorf("collection documents = %v, want [%s]", ids, doc.ID)
	}
	if _, err := f.colSvc.RemoveSubcollection(ctx, f.editor, open.Slug, secret.ID); !errors.Is(err, domain.ErrNotFound) {
		t.Errorf("RemoveSubcollection(hidden child) error = %v, want ErrNotFound", err)
	}
	if stored, _ := f.collections.GetByID(ctx, secret.ID, testOrg); stored.ParentID == nil || *stored.ParentID != open.ID {
		t.Error("hidden child moved out of its parent")
	}
}

func TestUpdateCollection_ParentCheckedBeforeVisibility(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	col := mustCollection(t, f, &kbSvc.CreateCollectionRequest{Name: "Guides"})

	self := col.ID
	none := []string{}
	_, err := f.colSvc.UpdateCollection(ctx, f.admin, col.Slug, &kbSvc.UpdateCollectionRequest{
		ParentID:      &self,
		SetParent:     true,
		Everyone:      boolPtr(false),
		DepartmentIDs: &none,
	})

	var hErr *domain.HierarchyError
	if !errors.As(err, &hErr) || hErr.Kind() != domain.KindSelfNesting {
		t.Fatalf("UpdateCollection() error = %v, want self_nesting", err)
	}
	stored, _ := f.collections.GetByID(ctx, col.ID, testOrg)
	if !stored.Everyone || stored.ParentID != nil {
		t.Errorf("stored collection changed: everyone=%v parent=%v", stored.Everyone, stored.ParentID)
	}

	// Without a parent change the visibility error still surfaces
	_, err = f.colSvc.UpdateCollection(ctx, f.admin, col.Slug, &kbSvc.UpdateCollectionRequest{
		Everyone:      boolPtr(false),
		DepartmentIDs: &none,
	})
	var visErr *domain.VisibilityError
	if !errors.As(err, &visErr) {
		t.Errorf("UpdateCollection() error = %v, want *domain.VisibilityError", err)
	}
}
