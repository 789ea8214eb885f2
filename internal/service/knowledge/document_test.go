package knowledge

import (
	"context"
	"errors"
	"reflect"
	"strings"
	"testing"

	"knowledgestack/internal/domain"
	kbModels "knowledgestack/internal/domain/models/knowledge"
	"knowledgestack/internal/domain/services"
	kbSvc "knowledgestack/internal/domain/services/knowledge"
)

func boolPtr(b bool) *bool { return &b }

func TestCreateDocument_Defaults(t *testing.T) {
	f := newFixture()

	doc, err := f.docSvc.CreateDocument(context.Background(), f.editor, &kbSvc.CreateDocumentRequest{
		Title: "  Getting Started  ",
		Sections: []kbSvc.SectionInput{
			{Header: "Intro", BodyMD: "Welcome to the team"},
			{Header: "Setup", BodyMD: "Install the tools"},
		},
		Links: []kbSvc.LinkInput{{Title: "Wiki", URL: "https://wiki.example.com"}},
	})
	if err != nil {
		t.Fatalf("CreateDocument() error = %v", err)
	}

	if doc.Title != "Getting Started" || doc.Slug != "getting-started" {
		t.Errorf("title/slug = %q/%q, want Getting Started/getting-started", doc.Title, doc.Slug)
	}
	if doc.Status != kbModels.StatusDraft {
		t.Errorf("Status = %q, want draft", doc.Status)
	}
	if !doc.Everyone {
		t.Error("Everyone = false, want true")
	}
	if len(doc.Sections) != 2 || doc.Sections[0].Header != "Intro" || doc.Sections[1].Order != 1 {
		t.Errorf("Sections = %+v, want Intro then Setup", doc.Sections)
	}
	if len(doc.Links) != 1 {
		t.Errorf("Links = %d, want 1", len(doc.Links))
	}
	if doc.WordCount != 7 {
		t.Errorf("WordCount = %d, want 7", doc.WordCount)
	}

	versions, _ := f.docSvc.ListVersions(context.Background(), f.editor, doc.ID)
	if len(versions) != 1 {
		t.Errorf("versions = %d, want 1", len(versions))
	}
}

func TestCreateDocument_Validation(t *testing.T) {
	tests := []struct {
		name string
		req  *kbSvc.CreateDocumentRequest
	}{
		{"missing title", &kbSvc.CreateDocumentRequest{}},
		{"bad status", &kbSvc.CreateDocumentRequest{Title: "x", Status: strPtr("deleted")}},
		{"bad link url", &kbSvc.CreateDocumentRequest{Title: "x", Links: []kbSvc.LinkInput{{Title: "l", URL: "not a url"}}}},
		{"unknown department", &kbSvc.CreateDocumentRequest{Title: "x", DepartmentIDs: []string{"missing"}}},
		{"restricted without departments", &kbSvc.CreateDocumentRequest{Title: "x", Everyone: boolPtr(false)}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture()
			_, err := f.docSvc.CreateDocument(context.Background(), f.admin, tt.req)
			if !errors.Is(err, domain.ErrValidation) {
				t.Fatalf("CreateDocument() error = %v, want validation error", err)
			}
			if len(f.db.documents) != 0 {
				t.Error("document stored despite validation failure")
			}
		})
	}
}

func TestCreateDocument_ViewerForbidden(t *testing.T) {
	f := newFixture()
	_, err := f.docSvc.CreateDocument(context.Background(), f.viewer, &kbSvc.CreateDocumentRequest{Title: "x"})
	if !errors.Is(err, domain.ErrForbidden) {
		t.Errorf("CreateDocument() error = %v, want ErrForbidden", err)
	}
}

// Walks a document from public to restricted the way an editor would.
func TestDocumentVisibilityLifecycle(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	eng := mustDepartment(t, f, "Engineering")

	// Public with no departments saves fine
	doc := mustDocument(t, f, "D1")
	if !doc.Everyone {
		t.Fatal("new document not visible to everyone")
	}

	// Restricting with no departments is rejected and nothing changes
	_, err := f.docSvc.UpdateDocument(ctx, f.admin, doc.ID, &kbSvc.UpdateDocumentRequest{
		Everyone:      boolPtr(false),
		DepartmentIDs: &[]string{},
	})
	var visErr *domain.VisibilityError
	if !errors.As(err, &visErr) {
		t.Fatalf("UpdateDocument() error = %v, want *domain.VisibilityError", err)
	}
	stored, _ := f.documents.GetByID(ctx, doc.ID, testOrg)
	if !stored.Everyone {
		t.Error("stored document lost everyone=true after rejected update")
	}

	// Adding a department then restricting succeeds and carries its tag
	if _, err := f.docSvc.UpdateDocument(ctx, f.admin, doc.ID, &kbSvc.UpdateDocumentRequest{DepartmentIDs: &[]string{eng.ID}}); err != nil {
		t.Fatalf("UpdateDocument(departments) error = %v", err)
	}
	updated, err := f.docSvc.UpdateDocument(ctx, f.admin, doc.ID, &kbSvc.UpdateDocumentRequest{Everyone: boolPtr(false)})
	if err != nil {
		t.Fatalf("UpdateDocument(everyone=false) error = %v", err)
	}
	engTag := f.structuralTag(kbModels.DepartmentTarget{DepartmentID: eng.ID})
	if !containsID(tagIDs(updated.Tags), engTag.ID) {
		t.Errorf("document tags %v missing department tag %s", tagIDs(updated.Tags), engTag.ID)
	}

	// Restricted documents are hidden from viewers outside the department
	if _, err := f.docSvc.GetDocument(ctx, f.viewer, doc.ID); !errors.Is(err, domain.ErrNotFound) {
		t.Errorf("GetDocument(outsider) error = %v, want ErrNotFound", err)
	}
	insider := *f.viewer
	insider.DepartmentIDs = []string{eng.ID}
	if _, err := f.docSvc.GetDocument(ctx, &insider, doc.ID); err != nil {
		t.Errorf("GetDocument(insider) error = %v", err)
	}
	list, _ := f.docSvc.ListDocuments(ctx, f.viewer, &kbSvc.ListDocumentsRequest{})
	if len(list) != 0 {
		t.Errorf("ListDocuments(outsider) = %d documents, want 0", len(list))
	}
}

func TestUpdateDocument_ClearingDepartmentsOfRestrictedDocument(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	eng := mustDepartment(t, f, "Engineering")
	doc, err := f.docSvc.CreateDocument(ctx, f.admin, &kbSvc.CreateDocumentRequest{
		Title:         "Secret",
		Everyone:      boolPtr(false),
		DepartmentIDs: []string{eng.ID},
	})
	if err != nil {
		t.Fatalf("CreateDocument() error = %v", err)
	}

	_, err = f.docSvc.UpdateDocument(ctx, f.admin, doc.ID, &kbSvc.UpdateDocumentRequest{DepartmentIDs: &[]string{}})
	if !errors.As(err, new(*domain.VisibilityError)) {
		t.Fatalf("UpdateDocument() error = %v, want *domain.VisibilityError", err)
	}
	stored, _ := f.documents.GetByID(ctx, doc.ID, testOrg)
	if !reflect.DeepEqual(stored.DepartmentIDs, []string{eng.ID}) {
		t.Errorf("departments = %v, want [%s]", stored.DepartmentIDs, eng.ID)
	}
}

func TestSetTags(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	eng := mustDepartment(t, f, "Engineering")
	ops := mustDepartment(t, f, "Operations")
	doc := mustDocument(t, f, "Runbook")

	manual, _ := f.tagSvc.CreateTag(ctx, f.admin, &kbSvc.CreateTagRequest{Name: "Onboarding"})
	engTag := f.structuralTag(kbModels.DepartmentTarget{DepartmentID: eng.ID})
	opsTag := f.structuralTag(kbModels.DepartmentTarget{DepartmentID: ops.ID})

	col, err := f.colSvc.CreateCollection(ctx, f.admin, &kbSvc.CreateCollectionRequest{Name: "Guides"})
	if err != nil {
		t.Fatalf("CreateCollection() error = %v", err)
	}
	colTag := f.structuralTag(kbModels.CollectionTarget{CollectionID: col.ID})

	updated, err := f.docSvc.SetTags(ctx, f.admin, doc.ID, &kbSvc.SetTagsRequest{
		TagIDs: []string{engTag.ID, opsTag.ID, manual.ID, colTag.ID},
	})
	if err != nil {
		t.Fatalf("SetTags() error = %v", err)
	}

	if !sameSet(updated.DepartmentIDs, []string{eng.ID, ops.ID}) {
		t.Errorf("DepartmentIDs = %v, want eng and ops", updated.DepartmentIDs)
	}
	got := tagIDs(updated.Tags)
	if !sameSet(got, []string{engTag.ID, opsTag.ID, manual.ID}) {
		t.Errorf("tags = %v, want eng, ops and manual only", got)
	}
	if containsID(updated.CollectionIDs, col.ID) {
		t.Error("collection tag in SetTags changed collection membership")
	}

	// Dropping a department tag removes the department
	updated, err = f.docSvc.SetTags(ctx, f.admin, doc.ID, &kbSvc.SetTagsRequest{TagIDs: []string{engTag.ID}})
	if err != nil {
		t.Fatalf("SetTags() error = %v", err)
	}
	if !reflect.DeepEqual(updated.DepartmentIDs, []string{eng.ID}) {
		t.Errorf("DepartmentIDs = %v, want [%s]", updated.DepartmentIDs, eng.ID)
	}
	if !sameSet(tagIDs(updated.Tags), []string{engTag.ID}) {
		t.Errorf("tags = %v, want only %s", tagIDs(updated.Tags), engTag.ID)
	}
}

func TestSetTags_UnknownTag(t *testing.T) {
	f := newFixture()
	doc := mustDocument(t, f, "Runbook")
	_, err := f.docSvc.SetTags(context.Background(), f.admin, doc.ID, &kbSvc.SetTagsRequest{TagIDs: []string{"nope"}})
	if !errors.Is(err, domain.ErrValidation) {
		t.Errorf("SetTags() error = %v, want validation error", err)
	}
}

func TestDetachTag_StructuralRejected(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	eng := mustDepartment(t, f, "Engineering")
	doc := mustDocument(t, f, "Runbook")
	if _, err := f.docSvc.UpdateDocument(ctx, f.admin, doc.ID, &kbSvc.UpdateDocumentRequest{DepartmentIDs: &[]string{eng.ID}}); err != nil {
		t.Fatal(err)
	}
	engTag := f.structuralTag(kbModels.DepartmentTarget{DepartmentID: eng.ID})

	_, err := f.docSvc.DetachTag(ctx, f.admin, doc.ID, engTag.ID)
	var immErr *domain.ImmutableTagError
	if !errors.As(err, &immErr) {
		t.Fatalf("DetachTag() error = %v, want *domain.ImmutableTagError", err)
	}
	if !containsID(f.attachedIDs(kbModels.DocumentOwner(doc.ID)), engTag.ID) {
		t.Error("structural tag detached despite error")
	}

	manual, _ := f.tagSvc.CreateTag(ctx, f.admin, &kbSvc.CreateTagRequest{Name: "Draft review"})
	_ = f.tags.Attach(ctx, kbModels.DocumentOwner(doc.ID), manual.ID)
	updated, err := f.docSvc.DetachTag(ctx, f.admin, doc.ID, manual.ID)
	if err != nil {
		t.Fatalf("DetachTag(manual) error = %v", err)
	}
	if containsID(tagIDs(updated.Tags), manual.ID) {
		t.Error("manual tag still attached")
	}
}

func TestSetCollections(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	doc := mustDocument(t, f, "Runbook")
	c1, _ := f.colSvc.CreateCollection(ctx, f.admin, &kbSvc.CreateCollectionRequest{Name: "Ops"})
	c2, _ := f.colSvc.CreateCollection(ctx, f.admin, &kbSvc.CreateCollectionRequest{Name: "Guides"})
	t1 := f.structuralTag(kbModels.CollectionTarget{CollectionID: c1.ID})
	t2 := f.structuralTag(kbModels.CollectionTarget{CollectionID: c2.ID})

	updated, err := f.docSvc.SetCollections(ctx, f.admin, doc.ID, &kbSvc.SetCollectionsRequest{CollectionIDs: []string{c1.ID, c2.ID}})
	if err != nil {
		t.Fatalf("SetCollections() error = %v", err)
	}
	if !sameSet(updated.CollectionIDs, []string{c1.ID, c2.ID}) {
		t.Errorf("CollectionIDs = %v, want both", updated.CollectionIDs)
	}
	if !sameSet(tagIDs(updated.Tags), []string{t1.ID, t2.ID}) {
		t.Errorf("tags = %v, want both collection tags", tagIDs(updated.Tags))
	}

	updated, err = f.docSvc.SetCollections(ctx, f.admin, doc.ID, &kbSvc.SetCollectionsRequest{CollectionIDs: []string{c2.ID}})
	if err != nil {
		t.Fatalf("SetCollections() error = %v", err)
	}
	if !reflect.DeepEqual(updated.CollectionIDs, []string{c2.ID}) {
		t.Errorf("CollectionIDs = %v, want [%s]", updated.CollectionIDs, c2.ID)
	}
	if !reflect.DeepEqual(tagIDs(updated.Tags), []string{t2.ID}) {
		t.Errorf("tags = %v, want [%s]", tagIDs(updated.Tags), t2.ID)
	}
	if f.structuralTag(kbModels.CollectionTarget{CollectionID: c1.ID}) == nil {
		t.Error("leaving a collection deleted its tag")
	}
}

func TestSetCollections_HiddenCollections(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	eng := mustDepartment(t, f, "Engineering")
	doc := mustDocument(t, f, "Runbook")
	open, _ := f.colSvc.CreateCollection(ctx, f.admin, &kbSvc.CreateCollectionRequest{Name: "Ops"})
	other, _ := f.colSvc.CreateCollection(ctx, f.admin, &kbSvc.CreateCollectionRequest{Name: "Guides"})
	secret, _ := f.colSvc.CreateCollection(ctx, f.admin, &kbSvc.CreateCollectionRequest{
		Name: "Secret", Everyone: boolPtr(false), DepartmentIDs: []string{eng.ID},
	})

	if _, err := f.docSvc.SetCollections(ctx, f.editor, doc.ID, &kbSvc.SetCollectionsRequest{CollectionIDs: []string{secret.ID}}); !errors.Is(err, domain.ErrValidation) {
		t.Errorf("SetCollections(hidden collection) error = %v, want ErrValidation", err)
	}

	if _, err := f.docSvc.SetCollections(ctx, f.admin, doc.ID, &kbSvc.SetCollectionsRequest{CollectionIDs: []string{open.ID, secret.ID}}); err != nil {
		t.Fatal(err)
	}
	if _, err := f.docSvc.SetCollections(ctx, f.editor, doc.ID, &kbSvc.SetCollectionsRequest{CollectionIDs: []string{other.ID}}); err != nil {
		t.Fatalf("SetCollections(editor) error = %v", err)
	}

	got, _ := f.collections.ListIDsForDocument(ctx, doc.ID)
	if !sameSet(got, []string{other.ID, secret.ID}) {
		t.Errorf("collections = %v, want Guides and the untouched Secret", got)
	}
	secretTag := f.structuralTag(kbModels.CollectionTarget{CollectionID: secret.ID})
	if !containsID(f.attachedIDs(kbModels.DocumentOwner(doc.ID)), secretTag.ID) {
		t.Error("hidden collection's tag was detached")
	}
}

func TestReorderIDs(t *testing.T) {
	tests := []struct {
		name      string
		existing  []string
		requested []string
		want      []string
	}{
		{"full reorder", []string{"a", "b", "c"}, []string{"c", "a", "b"}, []string{"c", "a", "b"}},
		{"partial keeps the rest in place", []string{"a", "b", "c", "d"}, []string{"d", "b"}, []string{"d", "b", "a", "c"}},
		{"unknown and duplicate ids ignored", []string{"a", "b"}, []string{"x", "b", "b"}, []string{"b", "a"}},
		{"empty request", []string{"a", "b"}, nil, []string{"a", "b"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ReorderIDs(tt.existing, tt.requested); !reflect.DeepEqual(got, tt.want) {
				t.Errorf("ReorderIDs() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestSections_ReorderAndDelete(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	doc, err := f.docSvc.CreateDocument(ctx, f.admin, &kbSvc.CreateDocumentRequest{
		Title: "Handbook",
		Sections: []kbSvc.SectionInput{
			{Header: "One"}, {Header: "Two"}, {Header: "Three"},
		},
	})
	if err != nil {
		t.Fatalf("CreateDocument() error = %v", err)
	}
	one, two, three := doc.Sections[0].ID, doc.Sections[1].ID, doc.Sections[2].ID

	sections, err := f.docSvc.ReorderSections(ctx, f.admin, doc.ID, &kbSvc.ReorderSectionsRequest{SectionIDs: []string{three, one}})
	if err != nil {
		t.Fatalf("ReorderSections() error = %v", err)
	}
	if got := sectionIDs(sections); !reflect.DeepEqual(got, []string{three, one, two}) {
		t.Errorf("order = %v, want [three one two]", got)
	}

	if err := f.docSvc.DeleteSection(ctx, f.admin, doc.ID, one); err != nil {
		t.Fatalf("DeleteSection() error = %v", err)
	}
	loaded, _ := f.docSvc.GetDocument(ctx, f.admin, doc.ID)
	for i, s := range loaded.Sections {
		if s.Order != i {
			t.Errorf("section %s order = %d, want %d", s.Header, s.Order, i)
		}
	}
	if len(loaded.Sections) != 2 {
		t.Errorf("sections = %d, want 2", len(loaded.Sections))
	}
}

func TestUploadSectionImage(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	doc, _ := f.docSvc.CreateDocument(ctx, f.admin, &kbSvc.CreateDocumentRequest{
		Title:    "Diagrams",
		Sections: []kbSvc.SectionInput{{Header: "Topology"}},
	})
	sectionID := doc.Sections[0].ID

	upload := func(contentType string) (*kbModels.Section, error) {
		return f.docSvc.UploadSectionImage(ctx, f.admin, doc.ID, sectionID, &services.Upload{
			Filename:    "diagram.png",
			ContentType: contentType,
			Size:        4,
			Body:        strings.NewReader("data"),
		})
	}

	first, err := upload("image/png")
	if err != nil {
		t.Fatalf("UploadSectionImage() error = %v", err)
	}
	if first.ImageURL == nil || !strings.HasPrefix(*first.ImageURL, "https://media.test/") {
		t.Fatalf("ImageURL = %v, want media URL", first.ImageURL)
	}

	if _, err := upload("image/png"); err != nil {
		t.Fatalf("second UploadSectionImage() error = %v", err)
	}
	if len(f.media.objects) != 1 || len(f.media.removed) != 1 {
		t.Errorf("objects = %d, removed = %d; want the old image replaced", len(f.media.objects), len(f.media.removed))
	}

	if _, err := upload("application/pdf"); !errors.Is(err, domain.ErrValidation) {
		t.Errorf("UploadSectionImage(pdf) error = %v, want validation error", err)
	}
}

func TestDeleteDocument_ReleasesCollections(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	doc := mustDocument(t, f, "Runbook")
	col, _ := f.colSvc.CreateCollection(ctx, f.admin, &kbSvc.CreateCollectionRequest{Name: "Ops"})
	if _, err := f.colSvc.AddDocument(ctx, f.admin, col.Slug, doc.ID); err != nil {
		t.Fatal(err)
	}

	if err := f.docSvc.DeleteDocument(ctx, f.admin, doc.ID); err != nil {
		t.Fatalf("DeleteDocument() error = %v", err)
	}
	ids, _ := f.collections.ListDocumentIDs(ctx, col.ID)
	if len(ids) != 0 {
		t.Errorf("collection still lists %v", ids)
	}
	if _, err := f.docSvc.GetDocument(ctx, f.admin, doc.ID); !errors.Is(err, domain.ErrNotFound) {
		t.Errorf("GetDocument() after delete error = %v, want ErrNotFound", err)
	}
}
