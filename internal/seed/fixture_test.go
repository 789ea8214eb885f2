package seed

import (
	"strings"
	"testing"
)

func TestLoad_BuiltinFixture(t *testing.T) {
	f, err := Load(DefaultFixture)
	if err != nil {
		t.Fatalf("Load(%q): %v", DefaultFixture, err)
	}
	if f.Organization.Slug != "acme" {
		t.Errorf("org slug = %q, want acme", f.Organization.Slug)
	}
	if len(f.Documents) == 0 || len(f.Tiles) == 0 {
		t.Errorf("demo fixture should carry documents and tiles")
	}
}

func TestLoad_MissingFile(t *testing.T) {
	if _, err := Load("does-not-exist.yaml"); err == nil {
		t.Fatal("expected an error for a missing fixture")
	}
}

func TestParse_Validation(t *testing.T) {
	const base = `
organization: {name: Test, slug: test}
users:
  - {username: root, email: root@test.dev, password: secret-pass, role: admin}
departments:
  - {name: Ops, slug: ops}
`
	tests := []struct {
		name    string
		extra   string
		wantErr string
	}{
		{
			name: "valid",
			extra: `
collections:
  - {name: A, slug: a}
  - {name: B, slug: b, parent: a, everyone: false, departments: [ops]}
documents:
  - {key: d1, title: Doc, collections: [b], departments: [ops]}
tags:
  - {name: T, slug: t, target: document, ref: d1}
tiles:
  - {title: Ops, kind: department, ref: ops}
  - {title: Site, kind: url, href: "https://example.com"}
`,
		},
		{
			name:    "parent listed later",
			extra:   "collections:\n  - {name: B, slug: b, parent: a}\n  - {name: A, slug: a}\n",
			wantErr: "parent a must be listed before it",
		},
		{
			name:    "unknown department",
			extra:   "documents:\n  - {key: d1, title: Doc, departments: [sales]}\n",
			wantErr: "unknown department sales",
		},
		{
			name:    "unknown tag",
			extra:   "documents:\n  - {key: d1, title: Doc, tags: [missing]}\n",
			wantErr: "unknown tag missing",
		},
		{
			name:    "duplicate document key",
			extra:   "documents:\n  - {key: d1, title: One}\n  - {key: d1, title: Two}\n",
			wantErr: "duplicate document key d1",
		},
		{
			name:    "tag targets unknown document",
			extra:   "tags:\n  - {name: T, slug: t, target: document, ref: nope}\n",
			wantErr: "targets unknown document nope",
		},
		{
			name:    "tile references unknown collection",
			extra:   "tiles:\n  - {title: X, kind: collection, ref: nope}\n",
			wantErr: "unknown collection nope",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse([]byte(base + tt.extra))
			if tt.wantErr == "" {
				if err != nil {
					t.Fatalf("unexpected error: %v", err)
				}
				return
			}
			if err == nil || !strings.Contains(err.Error(), tt.wantErr) {
				t.Fatalf("error = %v, want it to contain %q", err, tt.wantErr)
			}
		})
	}
}

func TestParse_RequiresAdmin(t *testing.T) {
	_, err := Parse([]byte(`
organization: {name: Test}
users:
  - {username: v, email: v@test.dev, password: secret-pass, role: viewer}
`))
	if err == nil || !strings.Contains(err.Error(), "admin") {
		t.Fatalf("error = %v, want admin requirement", err)
	}
}

func TestParse_UnknownRole(t *testing.T) {
	_, err := Parse([]byte(`
organization: {name: Test}
users:
  - {username: v, email: v@test.dev, password: secret-pass, role: owner}
`))
	if err == nil || !strings.Contains(err.Error(), "unknown role") {
		t.Fatalf("error = %v, want unknown role", err)
	}
}
