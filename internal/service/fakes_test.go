package service

import (
	"bytes"
	"context"
	"io"
	"log/slog"
	"strings"
	"testing"

	"knowledgestack/internal/domain"
	"knowledgestack/internal/domain/models"
	kbModels "knowledgestack/internal/domain/models/knowledge"
	"knowledgestack/internal/domain/services"

	"github.com/google/uuid"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

type memOrgs struct {
	orgs map[string]*models.Organization
}

func (m *memOrgs) Create(ctx context.Context, org *models.Organization) error {
	for _, o := range m.orgs {
		if o.Slug == org.Slug {
			return &domain.ConflictError{Message: "organization already exists", ResourceType: "organization", ResourceID: o.ID}
		}
	}
	org.ID = uuid.NewString()
	m.orgs[org.ID] = org
	return nil
}

func (m *memOrgs) GetByID(ctx context.Context, id string) (*models.Organization, error) {
	if o, ok := m.orgs[id]; ok {
		return o, nil
	}
	return nil, domain.ErrNotFound
}

func (m *memOrgs) GetBySlug(ctx context.Context, slug string) (*models.Organization, error) {
	for _, o := range m.orgs {
		if o.Slug == slug {
			return o, nil
		}
	}
	return nil, domain.ErrNotFound
}

func (m *memOrgs) List(ctx context.Context) ([]models.Organization, error) {
	var out []models.Organization
	for _, o := range m.orgs {
		out = append(out, *o)
	}
	return out, nil
}

type memUsers struct {
	users map[string]*models.User
}

func (m *memUsers) Create(ctx context.Context, user *models.User) error {
	for _, u := range m.users {
		if strings.EqualFold(u.Username, user.Username) || strings.EqualFold(u.Email, user.Email) {
			return &domain.ConflictError{Message: "user already exists", ResourceType: "user", ResourceID: u.ID}
		}
	}
	user.ID = uuid.NewString()
	m.users[user.ID] = user
	return nil
}

func (m *memUsers) GetByID(ctx context.Context, id string) (*models.User, error) {
	if u, ok := m.users[id]; ok {
		return u, nil
	}
	return nil, domain.ErrNotFound
}

func (m *memUsers) GetByLogin(ctx context.Context, login string) (*models.User, error) {
	for _, u := range m.users {
		if strings.EqualFold(u.Username, login) || strings.EqualFold(u.Email, login) {
			return u, nil
		}
	}
	return nil, domain.ErrNotFound
}

type memMemberships struct {
	byKey map[string]*models.Membership
}

func (m *memMemberships) Get(ctx context.Context, orgID, userID string) (*models.Membership, error) {
	if mb, ok := m.byKey[orgID+"/"+userID]; ok {
		return mb, nil
	}
	return nil, domain.ErrNotFound
}

func (m *memMemberships) Upsert(ctx context.Context, membership *models.Membership) error {
	m.byKey[membership.OrgID+"/"+membership.UserID] = membership
	return nil
}

// memDepartments only answers membership lookups
type memDepartments struct {
	memberOf map[string][]string // user id -> department ids
}

func (m *memDepartments) Create(context.Context, *kbModels.Department) error { return nil }
func (m *memDepartments) GetByID(context.Context, string, string) (*kbModels.Department, error) {
	return nil, domain.ErrNotFound
}
func (m *memDepartments) GetBySlug(context.Context, string, string) (*kbModels.Department, error) {
	return nil, domain.ErrNotFound
}
func (m *memDepartments) List(context.Context, string) ([]kbModels.Department, error) {
	return nil, nil
}
func (m *memDepartments) ListByIDs(context.Context, string, []string) ([]kbModels.Department, error) {
	return nil, nil
}
func (m *memDepartments) Update(context.Context, *kbModels.Department) error { return nil }
func (m *memDepartments) AddMember(context.Context, string, string) error    { return nil }
func (m *memDepartments) RemoveMember(context.Context, string, string) error { return nil }
func (m *memDepartments) ListIDsForUser(ctx context.Context, orgID, userID string) ([]string, error) {
	return m.memberOf[userID], nil
}

type memThemes struct {
	themes  map[string]*models.UserTheme
	upserts int
}

func (m *memThemes) GetByUserID(ctx context.Context, userID string) (*models.UserTheme, error) {
	return m.themes[userID], nil
}

func (m *memThemes) Upsert(ctx context.Context, theme *models.UserTheme) error {
	m.upserts++
	m.themes[theme.UserID] = theme
	return nil
}

type memProfiles struct {
	profiles map[string]*models.Profile
	failNext error
}

func (m *memProfiles) Get(ctx context.Context, orgID, userID string) (*models.Profile, error) {
	if p, ok := m.profiles[orgID+"/"+userID]; ok {
		cp := *p
		return &cp, nil
	}
	return &models.Profile{OrgID: orgID, UserID: userID}, nil
}

func (m *memProfiles) Upsert(ctx context.Context, profile *models.Profile) error {
	if m.failNext != nil {
		err := m.failNext
		m.failNext = nil
		return err
	}
	cp := *profile
	m.profiles[profile.OrgID+"/"+profile.UserID] = &cp
	return nil
}

func (m *memProfiles) ListByDepartment(ctx context.Context, orgID, departmentID string) ([]models.Profile, error) {
	return nil, nil
}

type memMedia struct {
	objects map[string][]byte
	removed []string
}

func (m *memMedia) Put(ctx context.Context, orgID, category string, upload *services.Upload) (string, error) {
	if !strings.HasPrefix(upload.ContentType, "image/") {
		return "", &domain.ValidationError{Message: "only image uploads are allowed"}
	}
	var buf bytes.Buffer
	if _, err := io.Copy(&buf, upload.Body); err != nil {
		return "", err
	}
	key := orgID + "/" + category + "/" + uuid.NewString()
	m.objects[key] = buf.Bytes()
	return key, nil
}

func (m *memMedia) Remove(ctx context.Context, key string) error {
	delete(m.objects, key)
	m.removed = append(m.removed, key)
	return nil
}

func (m *memMedia) PublicURL(key string) string {
	return "https://media.test/" + key
}

type allowAll struct{}

func (allowAll) CanRead(actor *models.Actor) error {
	if actor == nil {
		return domain.ErrUnauthorized
	}
	return nil
}
func (allowAll) CanWrite(actor *models.Actor) error { return allowAll{}.CanRead(actor) }
func (allowAll) CanAdmin(actor *models.Actor) error { return allowAll{}.CanRead(actor) }

func imageUpload(t *testing.T, contentType string) *services.Upload {
	t.Helper()
	return &services.Upload{
		Filename:    "picture",
		ContentType: contentType,
		Size:        4,
		Body:        strings.NewReader("\x89PNG"),
	}
}
