package auth

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"strings"
	"testing"
	"time"

	tokens "knowledgestack/internal/auth"
	"knowledgestack/internal/domain"
	"knowledgestack/internal/domain/models"
	"knowledgestack/internal/domain/services"
	kbModels "knowledgestack/internal/domain/models/knowledge"
	"knowledgestack/internal/session"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
)

type fakeUsers struct {
	users map[string]*models.User
}

func (f *fakeUsers) Create(ctx context.Context, user *models.User) error {
	f.users[user.ID] = user
	return nil
}

func (f *fakeUsers) GetByID(ctx context.Context, id string) (*models.User, error) {
	if u, ok := f.users[id]; ok {
		return u, nil
	}
	return nil, domain.ErrNotFound
}

func (f *fakeUsers) GetByLogin(ctx context.Context, login string) (*models.User, error) {
	for _, u := range f.users {
		if strings.EqualFold(u.Username, login) || strings.EqualFold(u.Email, login) {
			return u, nil
		}
	}
	return nil, domain.ErrNotFound
}

type fakeOrgs struct{}

func (fakeOrgs) Create(ctx context.Context, org *models.Organization) error { return nil }
func (fakeOrgs) GetByID(ctx context.Context, id string) (*models.Organization, error) {
	return &models.Organization{ID: id, Slug: "acme", Name: "Acme"}, nil
}
func (fakeOrgs) GetBySlug(ctx context.Context, slug string) (*models.Organization, error) {
	return nil, domain.ErrNotFound
}
func (fakeOrgs) List(ctx context.Context) ([]models.Organization, error) { return nil, nil }

type noDepartments struct{}

func (noDepartments) Create(context.Context, *kbModels.Department) error { return nil }
func (noDepartments) GetByID(context.Context, string, string) (*kbModels.Department, error) {
	return nil, domain.ErrNotFound
}
func (noDepartments) GetBySlug(context.Context, string, string) (*kbModels.Department, error) {
	return nil, domain.ErrNotFound
}
func (noDepartments) List(context.Context, string) ([]kbModels.Department, error) { return nil, nil }
func (noDepartments) ListByIDs(context.Context, string, []string) ([]kbModels.Department, error) {
	return nil, nil
}
func (noDepartments) Update(context.Context, *kbModels.Department) error       { return nil }
func (noDepartments) AddMember(context.Context, string, string) error          { return nil }
func (noDepartments) RemoveMember(context.Context, string, string) error       { return nil }
func (noDepartments) ListIDsForUser(context.Context, string, string) ([]string, error) {
	return nil, nil
}

func newTestAuthService(t *testing.T) services.AuthService {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	hash, err := HashPassword("correct horse")
	if err != nil {
		t.Fatal(err)
	}
	users := &fakeUsers{users: map[string]*models.User{
		"user-1": {ID: "user-1", Username: "ada", Email: "ada@example.com", PasswordHash: hash},
	}}

	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	issuer, err := tokens.NewTokenService("secret", 15*time.Minute, logger)
	if err != nil {
		t.Fatal(err)
	}

	return NewAuthService(users, fakeOrgs{}, noDepartments{}, session.NewRedisStoreWithClient(client, logger),
		issuer, 24*time.Hour, logger)
}

func TestLogin(t *testing.T) {
	svc := newTestAuthService(t)
	ctx := context.Background()

	tests := []struct {
		name     string
		login    string
		password string
		wantErr  error
	}{
		{"username", "ada", "correct horse", nil},
		{"email any case", "ADA@example.com", "correct horse", nil},
		{"wrong password", "ada", "battery staple", domain.ErrUnauthorized},
		{"unknown user", "grace", "correct horse", domain.ErrUnauthorized},
		{"missing password", "ada", "", domain.ErrValidation},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sess, err := svc.Login(ctx, &services.LoginRequest{Login: tt.login, Password: tt.password})
			if tt.wantErr != nil {
				if !errors.Is(err, tt.wantErr) {
					t.Errorf("Login() error = %v, want %v", err, tt.wantErr)
				}
				return
			}
			if err != nil {
				t.Fatalf("Login() error = %v", err)
			}
			if sess.UserID != "user-1" || sess.AccessToken == "" || sess.RefreshToken == "" {
				t.Errorf("session = %+v, want tokens for user-1", sess)
			}
		})
	}
}

func TestRefresh_RotatesToken(t *testing.T) {
	svc := newTestAuthService(t)
	ctx := context.Background()

	first, err := svc.Login(ctx, &services.LoginRequest{Login: "ada", Password: "correct horse"})
	if err != nil {
		t.Fatal(err)
	}

	second, err := svc.Refresh(ctx, first.RefreshToken)
	if err != nil {
		t.Fatalf("Refresh() error = %v", err)
	}
	if second.RefreshToken == first.RefreshToken {
		t.Error("Refresh() reused the refresh token")
	}

	if _, err := svc.Refresh(ctx, first.RefreshToken); !errors.Is(err, domain.ErrUnauthorized) {
		t.Errorf("Refresh(old token) error = %v, want ErrUnauthorized", err)
	}

	if err := svc.Logout(ctx, second.RefreshToken); err != nil {
		t.Fatalf("Logout() error = %v", err)
	}
	if _, err := svc.Refresh(ctx, second.RefreshToken); !errors.Is(err, domain.ErrUnauthorized) {
		t.Errorf("Refresh(after logout) error = %v, want ErrUnauthorized", err)
	}
}

func TestMe(t *testing.T) {
	svc := newTestAuthService(t)

	me, err := svc.Me(context.Background(), &models.Actor{UserID: "user-1", OrgID: "org-1", Role: models.RoleEditor})
	if err != nil {
		t.Fatalf("Me() error = %v", err)
	}
	if me.User.Username != "ada" || me.Org == nil || me.Org.Slug != "acme" || me.Role != models.RoleEditor {
		t.Errorf("Me() = %+v", me)
	}
	if me.DepartmentIDs == nil {
		t.Error("DepartmentIDs = nil, want empty slice")
	}

	if _, err := svc.Me(context.Background(), nil); !errors.Is(err, domain.ErrUnauthorized) {
		t.Errorf("Me(nil) error = %v, want ErrUnauthorized", err)
	}
}
