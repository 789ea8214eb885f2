// Package seed loads YAML fixtures into an organization through the
// regular services, so structural tags and versions come out the same as
// in normal operation.
package seed

import (
	"embed"
	"fmt"
	"os"

	"knowledgestack/internal/domain/models"
	kb "knowledgestack/internal/domain/models/knowledge"

	"gopkg.in/yaml.v3"
)

//go:embed fixtures/*.yaml
var builtin embed.FS

// DefaultFixture names the fixture used when none is given
const DefaultFixture = "demo"

// Fixture describes one organization and its content. Entities refer to
// each other by slug (departments, collections, tags), by username (users)
// or by key (documents).
type Fixture struct {
	Organization OrgFixture          `yaml:"organization"`
	Users        []UserFixture       `yaml:"users"`
	Departments  []DepartmentFixture `yaml:"departments"`
	Collections  []CollectionFixture `yaml:"collections"`
	Documents    []DocumentFixture   `yaml:"documents"`
	Tags         []TagFixture        `yaml:"tags"`
	Tiles        []TileFixture       `yaml:"tiles"`
}

type OrgFixture struct {
	Name         string `yaml:"name"`
	Slug         string `yaml:"slug"`
	BrandPrimary string `yaml:"brand_primary"`
}

type UserFixture struct {
	Username    string      `yaml:"username"`
	Email       string      `yaml:"email"`
	DisplayName string      `yaml:"display_name"`
	Password    string      `yaml:"password"`
	Role        models.Role `yaml:"role"`
	Departments []string    `yaml:"departments"`
}

type DepartmentFixture struct {
	Name        string `yaml:"name"`
	Slug        string `yaml:"slug"`
	Description string `yaml:"description"`
}

// CollectionFixture nests under Parent, which must be listed earlier
type CollectionFixture struct {
	Name        string   `yaml:"name"`
	Slug        string   `yaml:"slug"`
	Description string   `yaml:"description"`
	Parent      string   `yaml:"parent"`
	Everyone    *bool    `yaml:"everyone"`
	Departments []string `yaml:"departments"`
}

type SectionFixture struct {
	Header string `yaml:"header"`
	Body   string `yaml:"body"`
}

type LinkFixture struct {
	Title string `yaml:"title"`
	URL   string `yaml:"url"`
	Note  string `yaml:"note"`
}

type DocumentFixture struct {
	Key         string           `yaml:"key"`
	Title       string           `yaml:"title"`
	Status      string           `yaml:"status"`
	Everyone    *bool            `yaml:"everyone"`
	Departments []string         `yaml:"departments"`
	Collections []string         `yaml:"collections"`
	Tags        []string         `yaml:"tags"`
	Sections    []SectionFixture `yaml:"sections"`
	Links       []LinkFixture    `yaml:"links"`
}

// TagFixture is a manual tag. Ref names the target document key for
// document targets; URL is used for external targets.
type TagFixture struct {
	Name        string        `yaml:"name"`
	Slug        string        `yaml:"slug"`
	Description string        `yaml:"description"`
	Target      kb.TargetKind `yaml:"target"`
	Ref         string        `yaml:"ref"`
	URL         string        `yaml:"url"`
}

type TileFixture struct {
	Title       string      `yaml:"title"`
	Kind        kb.TileKind `yaml:"kind"`
	Order       int         `yaml:"order"`
	Ref         string      `yaml:"ref"`
	Href        string      `yaml:"href"`
	Description string      `yaml:"description"`
	Icon        string      `yaml:"icon"`
}

// Load reads a fixture from path, or a built-in fixture when path names one
func Load(path string) (*Fixture, error) {
	data, err := builtin.ReadFile("fixtures/" + path + ".yaml")
	if err != nil {
		data, err = os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read fixture %s: %w", path, err)
		}
	}
	return Parse(data)
}

// Parse decodes a fixture and checks its references
func Parse(data []byte) (*Fixture, error) {
	var f Fixture
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("parse fixture: %w", err)
	}
	if err := f.Validate(); err != nil {
		return nil, err
	}
	return &f, nil
}

// Validate checks that every reference resolves within the fixture and
// that collections only nest under collections listed before them.
func (f *Fixture) Validate() error {
	if f.Organization.Name == "" {
		return fmt.Errorf("fixture: organization name is required")
	}

	departments := make(map[string]bool)
	for _, d := range f.Departments {
		if d.Slug == "" {
			return fmt.Errorf("fixture: department %q needs a slug", d.Name)
		}
		departments[d.Slug] = true
	}

	hasAdmin := false
	for _, u := range f.Users {
		if !u.Role.IsValid() {
			return fmt.Errorf("fixture: user %s has unknown role %q", u.Username, u.Role)
		}
		if u.Role == models.RoleAdmin {
			hasAdmin = true
		}
		if err := known("user "+u.Username, "department", u.Departments, departments); err != nil {
			return err
		}
	}
	if !hasAdmin {
		return fmt.Errorf("fixture: at least one admin user is required")
	}

	collections := make(map[string]bool)
	for _, c := range f.Collections {
		if c.Slug == "" {
			return fmt.Errorf("fixture: collection %q needs a slug", c.Name)
		}
		if c.Parent != "" && !collections[c.Parent] {
			return fmt.Errorf("fixture: collection %s: parent %s must be listed before it", c.Slug, c.Parent)
		}
		if err := known("collection "+c.Slug, "department", c.Departments, departments); err != nil {
			return err
		}
		collections[c.Slug] = true
	}

	tags := make(map[string]bool)
	for _, t := range f.Tags {
		if t.Slug == "" {
			return fmt.Errorf("fixture: tag %q needs a slug", t.Name)
		}
		tags[t.Slug] = true
	}

	documents := make(map[string]bool)
	for _, d := range f.Documents {
		if d.Key == "" {
			return fmt.Errorf("fixture: document %q needs a key", d.Title)
		}
		if documents[d.Key] {
			return fmt.Errorf("fixture: duplicate document key %s", d.Key)
		}
		documents[d.Key] = true
		if err := known("document "+d.Key, "department", d.Departments, departments); err != nil {
			return err
		}
		if err := known("document "+d.Key, "collection", d.Collections, collections); err != nil {
			return err
		}
		if err := known("document "+d.Key, "tag", d.Tags, tags); err != nil {
			return err
		}
	}

	for _, t := range f.Tags {
		if t.Target == kb.TargetDocument && !documents[t.Ref] {
			return fmt.Errorf("fixture: tag %s targets unknown document %s", t.Slug, t.Ref)
		}
	}

	for _, t := range f.Tiles {
		var refs map[string]bool
		switch t.Kind {
		case kb.TileDocument:
			refs = documents
		case kb.TileDepartment:
			refs = departments
		case kb.TileCollection:
			refs = collections
		default:
			continue
		}
		if !refs[t.Ref] {
			return fmt.Errorf("fixture: tile %q references unknown %s %s", t.Title, t.Kind, t.Ref)
		}
	}

	return nil
}

func known(owner, kind string, refs []string, set map[string]bool) error {
	for _, ref := range refs {
		if !set[ref] {
			return fmt.Errorf("fixture: %s references unknown %s %s", owner, kind, ref)
		}
	}
	return nil
}
