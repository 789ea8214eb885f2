package knowledge

import (
	"context"
	"errors"
	"testing"

	"knowledgestack/internal/domain"
	kbSvc "knowledgestack/internal/domain/services/knowledge"
)

func TestCreateDepartment(t *testing.T) {
	f := newFixture()
	ctx := context.Background()

	dept, err := f.deptSvc.CreateDepartment(ctx, f.editor, &kbSvc.CreateDepartmentRequest{Name: " Customer Success "})
	if err != nil {
		t.Fatalf("CreateDepartment() error = %v", err)
	}
	if dept.Name != "Customer Success" || dept.Slug != "customer-success" {
		t.Errorf("department = %q/%q, want Customer Success/customer-success", dept.Name, dept.Slug)
	}

	_, err = f.deptSvc.CreateDepartment(ctx, f.editor, &kbSvc.CreateDepartmentRequest{Name: "Customer Success"})
	if !errors.Is(err, domain.ErrConflict) {
		t.Errorf("duplicate CreateDepartment() error = %v, want ErrConflict", err)
	}
	if len(f.db.tags) != 1 {
		t.Errorf("tags = %d, want 1 after rejected duplicate", len(f.db.tags))
	}

	bad := "Not A Slug"
	if _, err := f.deptSvc.CreateDepartment(ctx, f.editor, &kbSvc.CreateDepartmentRequest{Name: "Ops", Slug: &bad}); !errors.Is(err, domain.ErrValidation) {
		t.Errorf("CreateDepartment(bad slug) error = %v, want validation error", err)
	}
	if _, err := f.deptSvc.CreateDepartment(ctx, f.viewer, &kbSvc.CreateDepartmentRequest{Name: "Ops"}); !errors.Is(err, domain.ErrForbidden) {
		t.Errorf("CreateDepartment(viewer) error = %v, want ErrForbidden", err)
	}
}

func TestChangeMember(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	eng := mustDepartment(t, f, "Engineering")

	members, err := f.deptSvc.ChangeMember(ctx, f.admin, eng.Slug, &kbSvc.ChangeMemberRequest{Action: kbSvc.MemberAdd, UserID: "viewer-1"})
	if err != nil {
		t.Fatalf("ChangeMember(add) error = %v", err)
	}
	if len(members) != 1 || members[0].UserID != "viewer-1" {
		t.Errorf("members = %+v, want viewer-1", members)
	}

	ids, _ := f.departments.ListIDsForUser(ctx, testOrg, "viewer-1")
	if len(ids) != 1 || ids[0] != eng.ID {
		t.Errorf("ListIDsForUser() = %v, want [%s]", ids, eng.ID)
	}

	if _, err := f.deptSvc.ChangeMember(ctx, f.admin, eng.Slug, &kbSvc.ChangeMemberRequest{Action: kbSvc.MemberAdd, UserID: "stranger"}); !errors.Is(err, domain.ErrValidation) {
		t.Errorf("ChangeMember(non-member) error = %v, want validation error", err)
	}
	if _, err := f.deptSvc.ChangeMember(ctx, f.admin, eng.Slug, &kbSvc.ChangeMemberRequest{Action: "promote", UserID: "viewer-1"}); !errors.Is(err, domain.ErrValidation) {
		t.Errorf("ChangeMember(bad action) error = %v, want validation error", err)
	}

	members, err = f.deptSvc.ChangeMember(ctx, f.admin, eng.Slug, &kbSvc.ChangeMemberRequest{Action: kbSvc.MemberRemove, UserID: "viewer-1"})
	if err != nil {
		t.Fatalf("ChangeMember(remove) error = %v", err)
	}
	if len(members) != 0 {
		t.Errorf("members = %+v, want none", members)
	}
}

func TestDepartmentListings_RespectVisibility(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	eng := mustDepartment(t, f, "Engineering")

	if _, err := f.docSvc.CreateDocument(ctx, f.admin, &kbSvc.CreateDocumentRequest{
		Title: "Private", Everyone: boolPtr(false), DepartmentIDs: []string{eng.ID},
	}); err != nil {
		t.Fatal(err)
	}
	if _, err := f.docSvc.CreateDocument(ctx, f.admin, &kbSvc.CreateDocumentRequest{
		Title: "Shared", DepartmentIDs: []string{eng.ID},
	}); err != nil {
		t.Fatal(err)
	}

	docs, err := f.deptSvc.ListDocuments(ctx, f.viewer, eng.Slug)
	if err != nil {
		t.Fatalf("ListDocuments() error = %v", err)
	}
	if len(docs) != 1 || docs[0].Title != "Shared" {
		t.Errorf("ListDocuments(outsider) = %v, want only Shared", docs)
	}

	docs, _ = f.deptSvc.ListDocuments(ctx, f.admin, eng.Slug)
	if len(docs) != 2 {
		t.Errorf("ListDocuments(admin) = %d, want 2", len(docs))
	}
}
