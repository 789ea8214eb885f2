package knowledge

import (
	"context"
	"errors"
	"testing"

	"knowledgestack/internal/domain"
	kbModels "knowledgestack/internal/domain/models/knowledge"
	kbSvc "knowledgestack/internal/domain/services/knowledge"
)

func TestTileView(t *testing.T) {
	docID, deptSlug, colSlug := "doc-1", "engineering", "guides"

	tests := []struct {
		name    string
		tile    kbModels.Tile
		visible map[string]bool
		wantOK  bool
		check   func(t *testing.T, v kbModels.TileView)
	}{
		{
			name:    "visible document",
			tile:    kbModels.Tile{Kind: kbModels.TileDocument, DocumentID: &docID},
			visible: map[string]bool{docID: true},
			wantOK:  true,
			check: func(t *testing.T, v kbModels.TileView) {
				if v.DocumentID != docID {
					t.Errorf("DocumentID = %q, want %q", v.DocumentID, docID)
				}
			},
		},
		{
			name:   "hidden document",
			tile:   kbModels.Tile{Kind: kbModels.TileDocument, DocumentID: &docID},
			wantOK: false,
		},
		{
			name:   "deleted document",
			tile:   kbModels.Tile{Kind: kbModels.TileDocument},
			wantOK: false,
		},
		{
			name:   "department",
			tile:   kbModels.Tile{Kind: kbModels.TileDepartment, DepartmentSlug: &deptSlug},
			wantOK: true,
			check: func(t *testing.T, v kbModels.TileView) {
				if v.DepartmentSlug != deptSlug {
					t.Errorf("DepartmentSlug = %q, want %q", v.DepartmentSlug, deptSlug)
				}
			},
		},
		{
			name:   "collection",
			tile:   kbModels.Tile{Kind: kbModels.TileCollection, CollectionSlug: &colSlug},
			wantOK: true,
		},
		{
			name:   "url reported as external",
			tile:   kbModels.Tile{Kind: kbModels.TileURL, Href: "https://status.example.com"},
			wantOK: true,
			check: func(t *testing.T, v kbModels.TileView) {
				if v.Kind != kbModels.TileExternal || v.Href != "https://status.example.com" {
					t.Errorf("view = %+v, want external with href", v)
				}
			},
		},
		{
			name:   "url without href",
			tile:   kbModels.Tile{Kind: kbModels.TileURL},
			wantOK: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			view, ok := tileView(tt.tile, tt.visible)
			if ok != tt.wantOK {
				t.Fatalf("tileView() ok = %v, want %v", ok, tt.wantOK)
			}
			if ok && tt.check != nil {
				tt.check(t, view)
			}
		})
	}
}

func TestTileService(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	eng := mustDepartment(t, f, "Engineering")
	secret, err := f.docSvc.CreateDocument(ctx, f.admin, &kbSvc.CreateDocumentRequest{
		Title: "Secret", Everyone: boolPtr(false), DepartmentIDs: []string{eng.ID},
	})
	if err != nil {
		t.Fatal(err)
	}

	create := func(req *kbSvc.TileRequest) *kbModels.Tile {
		t.Helper()
		tile, err := f.tileSvc.CreateTile(ctx, f.admin, req)
		if err != nil {
			t.Fatalf("CreateTile(%q) error = %v", req.Title, err)
		}
		return tile
	}
	create(&kbSvc.TileRequest{Title: "Engineering", Kind: "department", Order: 0, DepartmentID: &eng.ID})
	create(&kbSvc.TileRequest{Title: "Secret doc", Kind: "document", Order: 1, DocumentID: &secret.ID})
	create(&kbSvc.TileRequest{Title: "Status", Kind: "url", Order: 2, Href: "https://status.example.com"})
	create(&kbSvc.TileRequest{Title: "Hidden", Kind: "url", Order: 3, Href: "https://old.example.com", IsActive: boolPtr(false)})

	views, err := f.tileSvc.ListActive(ctx, f.viewer)
	if err != nil {
		t.Fatalf("ListActive() error = %v", err)
	}
	var titles []string
	for _, v := range views {
		titles = append(titles, v.Title)
	}
	if len(titles) != 2 || titles[0] != "Engineering" || titles[1] != "Status" {
		t.Errorf("ListActive(viewer) = %v, want [Engineering Status]", titles)
	}

	views, _ = f.tileSvc.ListActive(ctx, f.admin)
	if len(views) != 3 {
		t.Errorf("ListActive(admin) = %d tiles, want 3", len(views))
	}

	all, err := f.tileSvc.ListAll(ctx, f.admin)
	if err != nil || len(all) != 4 {
		t.Errorf("ListAll() = %d, %v; want 4", len(all), err)
	}
	if _, err := f.tileSvc.ListAll(ctx, f.viewer); !errors.Is(err, domain.ErrForbidden) {
		t.Errorf("ListAll(viewer) error = %v, want ErrForbidden", err)
	}
}

func TestCreateTile_Validation(t *testing.T) {
	f := newFixture()
	missing := "missing"

	tests := []struct {
		name string
		req  *kbSvc.TileRequest
	}{
		{"no title", &kbSvc.TileRequest{Kind: "url", Href: "https://example.com"}},
		{"bad kind", &kbSvc.TileRequest{Title: "x", Kind: "external"}},
		{"document without id", &kbSvc.TileRequest{Title: "x", Kind: "document"}},
		{"unknown department", &kbSvc.TileRequest{Title: "x", Kind: "department", DepartmentID: &missing}},
		{"url without href", &kbSvc.TileRequest{Title: "x", Kind: "url"}},
		{"negative order", &kbSvc.TileRequest{Title: "x", Kind: "url", Href: "https://example.com", Order: -1}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := f.tileSvc.CreateTile(context.Background(), f.admin, tt.req); !errors.Is(err, domain.ErrValidation) {
				t.Errorf("CreateTile() error = %v, want validation error", err)
			}
		})
	}
}
