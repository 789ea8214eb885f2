package seed

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"knowledgestack/internal/domain"
	"knowledgestack/internal/domain/models"
	kb "knowledgestack/internal/domain/models/knowledge"
	"knowledgestack/internal/domain/services"
	kbSvc "knowledgestack/internal/domain/services/knowledge"
	kbService "knowledgestack/internal/service/knowledge"
)

// Seeder applies fixtures through the service layer
type Seeder struct {
	orgs      services.OrgService
	knowledge *kbService.Services
	logger    *slog.Logger
}

// NewSeeder creates a new seeder
func NewSeeder(orgs services.OrgService, knowledge *kbService.Services, logger *slog.Logger) *Seeder {
	return &Seeder{
		orgs:      orgs,
		knowledge: knowledge,
		logger:    logger,
	}
}

// Result counts what a fixture produced
type Result struct {
	Org         *models.Organization
	Users       int
	Departments int
	Collections int
	Documents   int
	Tags        int
	Tiles       int
}

// refs maps fixture references to stored ids
type refs struct {
	users       map[string]string
	departments map[string]string
	collections map[string]string
	documents   map[string]string
	tags        map[string]string
}

// Apply creates the fixture's organization and everything in it. The
// organization must not exist yet; users that already exist are reused
// and keep their password.
func (s *Seeder) Apply(ctx context.Context, f *Fixture) (*Result, error) {
	org, err := s.createOrg(ctx, &f.Organization)
	if err != nil {
		return nil, err
	}
	res := &Result{Org: org}
	ids := refs{
		users:       make(map[string]string),
		departments: make(map[string]string),
		collections: make(map[string]string),
		documents:   make(map[string]string),
		tags:        make(map[string]string),
	}

	var actor *models.Actor
	for _, u := range f.Users {
		userID, err := s.ensureUser(ctx, org, &u)
		if err != nil {
			return nil, err
		}
		ids.users[u.Username] = userID
		if actor == nil && u.Role == models.RoleAdmin {
			actor = &models.Actor{UserID: userID, OrgID: org.ID, Role: models.RoleAdmin}
		}
		res.Users++
	}
	if actor == nil {
		return nil, fmt.Errorf("fixture has no admin user")
	}

	for _, d := range f.Departments {
		slug := d.Slug
		dept, err := s.knowledge.Departments.CreateDepartment(ctx, actor, &kbSvc.CreateDepartmentRequest{
			Name:        d.Name,
			Slug:        &slug,
			Description: d.Description,
		})
		if err != nil {
			return nil, fmt.Errorf("create department %s: %w", d.Slug, err)
		}
		ids.departments[d.Slug] = dept.ID
		res.Departments++
	}

	for _, u := range f.Users {
		for _, slug := range u.Departments {
			if _, err := s.knowledge.Departments.ChangeMember(ctx, actor, slug, &kbSvc.ChangeMemberRequest{
				Action: kbSvc.MemberAdd,
				UserID: ids.users[u.Username],
			}); err != nil {
				return nil, fmt.Errorf("add %s to %s: %w", u.Username, slug, err)
			}
		}
	}

	for i, c := range f.Collections {
		slug := c.Slug
		req := &kbSvc.CreateCollectionRequest{
			Name:          c.Name,
			Slug:          &slug,
			Description:   c.Description,
			Position:      i,
			Everyone:      c.Everyone,
			DepartmentIDs: lookup(ids.departments, c.Departments),
		}
		if c.Parent != "" {
			parentID := ids.collections[c.Parent]
			req.ParentID = &parentID
		}
		collection, err := s.knowledge.Collections.CreateCollection(ctx, actor, req)
		if err != nil {
			return nil, fmt.Errorf("create collection %s: %w", c.Slug, err)
		}
		ids.collections[c.Slug] = collection.ID
		res.Collections++
	}

	for _, d := range f.Documents {
		req := &kbSvc.CreateDocumentRequest{
			Title:         d.Title,
			Everyone:      d.Everyone,
			DepartmentIDs: lookup(ids.departments, d.Departments),
		}
		if d.Status != "" {
			status := d.Status
			req.Status = &status
		}
		for _, sec := range d.Sections {
			req.Sections = append(req.Sections, kbSvc.SectionInput{Header: sec.Header, BodyMD: sec.Body})
		}
		for _, link := range d.Links {
			req.Links = append(req.Links, kbSvc.LinkInput{Title: link.Title, URL: link.URL, Note: link.Note})
		}

		doc, err := s.knowledge.Documents.CreateDocument(ctx, actor, req)
		if err != nil {
			return nil, fmt.Errorf("create document %s: %w", d.Key, err)
		}
		ids.documents[d.Key] = doc.ID

		if len(d.Collections) > 0 {
			if _, err := s.knowledge.Documents.SetCollections(ctx, actor, doc.ID, &kbSvc.SetCollectionsRequest{
				CollectionIDs: lookup(ids.collections, d.Collections),
			}); err != nil {
				return nil, fmt.Errorf("place document %s: %w", d.Key, err)
			}
		}
		res.Documents++
	}

	for _, t := range f.Tags {
		slug := t.Slug
		req := &kbSvc.CreateTagRequest{
			Name:        t.Name,
			Slug:        &slug,
			Description: t.Description,
		}
		switch t.Target {
		case kb.TargetDocument:
			req.Target = &kbSvc.TagTargetInput{Kind: string(t.Target), TargetID: ids.documents[t.Ref]}
		case kb.TargetExternal:
			req.Target = &kbSvc.TagTargetInput{Kind: string(t.Target), LinkURL: t.URL}
		}
		tag, err := s.knowledge.Tags.CreateTag(ctx, actor, req)
		if err != nil {
			return nil, fmt.Errorf("create tag %s: %w", t.Slug, err)
		}
		ids.tags[t.Slug] = tag.ID
		res.Tags++
	}

	if err := s.tagDocuments(ctx, actor, f, &ids); err != nil {
		return nil, err
	}

	for _, t := range f.Tiles {
		req := &kbSvc.TileRequest{
			Title:       t.Title,
			Kind:        string(t.Kind),
			Order:       t.Order,
			Href:        t.Href,
			Description: t.Description,
			Icon:        t.Icon,
		}
		switch t.Kind {
		case kb.TileDocument:
			req.DocumentID = ptr(ids.documents[t.Ref])
		case kb.TileDepartment:
			req.DepartmentID = ptr(ids.departments[t.Ref])
		case kb.TileCollection:
			req.CollectionID = ptr(ids.collections[t.Ref])
		}
		if _, err := s.knowledge.Tiles.CreateTile(ctx, actor, req); err != nil {
			return nil, fmt.Errorf("create tile %q: %w", t.Title, err)
		}
		res.Tiles++
	}

	s.logger.Info("fixture applied",
		"org", org.Slug,
		"users", res.Users,
		"departments", res.Departments,
		"collections", res.Collections,
		"documents", res.Documents,
		"tags", res.Tags,
		"tiles", res.Tiles,
	)
	return res, nil
}

// tagDocuments attaches manual tags. SetTags replaces department tags too,
// so each document's department tags are passed along unchanged.
func (s *Seeder) tagDocuments(ctx context.Context, actor *models.Actor, f *Fixture, ids *refs) error {
	departmentTags := make(map[string]string)
	tags, err := s.knowledge.Tags.ListTags(ctx, actor, string(kb.TargetDepartment))
	if err != nil {
		return fmt.Errorf("list department tags: %w", err)
	}
	for _, tag := range tags {
		departmentTags[kb.TargetID(tag.Target)] = tag.ID
	}

	for _, d := range f.Documents {
		if len(d.Tags) == 0 {
			continue
		}
		tagIDs := lookup(ids.tags, d.Tags)
		for _, slug := range d.Departments {
			tagIDs = append(tagIDs, departmentTags[ids.departments[slug]])
		}
		if _, err := s.knowledge.Documents.SetTags(ctx, actor, ids.documents[d.Key], &kbSvc.SetTagsRequest{TagIDs: tagIDs}); err != nil {
			return fmt.Errorf("tag document %s: %w", d.Key, err)
		}
	}
	return nil
}

func (s *Seeder) createOrg(ctx context.Context, o *OrgFixture) (*models.Organization, error) {
	if o.Slug != "" {
		_, err := s.orgs.GetOrganizationBySlug(ctx, o.Slug)
		if err == nil {
			return nil, fmt.Errorf("organization %s already exists; clear data before seeding it again", o.Slug)
		}
		if !errors.Is(err, domain.ErrNotFound) {
			return nil, fmt.Errorf("look up organization %s: %w", o.Slug, err)
		}
	}

	req := &services.CreateOrganizationRequest{Name: o.Name, BrandPrimary: o.BrandPrimary}
	if o.Slug != "" {
		slug := o.Slug
		req.Slug = &slug
	}
	org, err := s.orgs.CreateOrganization(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("create organization: %w", err)
	}
	return org, nil
}

func (s *Seeder) ensureUser(ctx context.Context, org *models.Organization, u *UserFixture) (string, error) {
	_, err := s.orgs.CreateUser(ctx, &services.CreateUserRequest{
		Username:    u.Username,
		Email:       u.Email,
		DisplayName: u.DisplayName,
		Password:    u.Password,
	})
	if err != nil && !errors.Is(err, domain.ErrConflict) {
		return "", fmt.Errorf("create user %s: %w", u.Username, err)
	}

	membership, err := s.orgs.GrantRole(ctx, org.Slug, u.Username, u.Role)
	if err != nil {
		return "", fmt.Errorf("grant %s to %s: %w", u.Role, u.Username, err)
	}
	return membership.UserID, nil
}

func lookup(ids map[string]string, refs []string) []string {
	out := make([]string, 0, len(refs))
	for _, ref := range refs {
		out = append(out, ids[ref])
	}
	return out
}

func ptr(s string) *string {
	return &s
}
