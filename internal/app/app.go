// Package app assembles the repositories and services shared by the server,
// the seeder and the admin CLI.
package app

import (
	"log/slog"

	"knowledgestack/internal/domain/repositories"
	kbRepo "knowledgestack/internal/domain/repositories/knowledge"
	"knowledgestack/internal/domain/services"
	"knowledgestack/internal/repository/postgres"
	pgKnowledge "knowledgestack/internal/repository/postgres/knowledge"
	"knowledgestack/internal/search"
	"knowledgestack/internal/service"
	authSvc "knowledgestack/internal/service/auth"
	kbService "knowledgestack/internal/service/knowledge"

	"github.com/jackc/pgx/v5/pgxpool"
)

// App holds the wired service graph
type App struct {
	Users       repositories.UserRepository
	Orgs        repositories.OrganizationRepository
	Departments kbRepo.DepartmentRepository
	TxManager   repositories.TransactionManager
	Authorizer  services.ResourceAuthorizer

	OrgService services.OrgService
	Profiles   services.ProfileService
	Themes     services.UserThemeService
	Knowledge  *kbService.Services
	Search     *search.Service
}

// Options carries the optional collaborators. A nil Meili leaves search on
// the Postgres fallback; a nil Media rejects uploads.
type Options struct {
	Meili *search.Meili
	Media services.MediaStore
}

// New wires every repository and service over pool
func New(pool *pgxpool.Pool, tables *postgres.TableNames, opts Options, logger *slog.Logger) *App {
	repoConfig := &postgres.RepositoryConfig{
		Pool:   pool,
		Tables: tables,
		Logger: logger,
	}

	orgRepo := postgres.NewOrganizationRepository(repoConfig)
	membershipRepo := postgres.NewMembershipRepository(repoConfig)
	userRepo := postgres.NewUserRepository(repoConfig)
	profileRepo := postgres.NewProfileRepository(repoConfig)
	themeRepo := postgres.NewUserThemeRepository(repoConfig)
	txManager := postgres.NewTransactionManager(pool, logger)

	repos := kbService.Repositories{
		Departments: pgKnowledge.NewDepartmentRepository(repoConfig),
		Collections: pgKnowledge.NewCollectionRepository(repoConfig),
		Documents:   pgKnowledge.NewDocumentRepository(repoConfig),
		Sections:    pgKnowledge.NewSectionRepository(repoConfig),
		Links:       pgKnowledge.NewLinkRepository(repoConfig),
		Versions:    pgKnowledge.NewVersionRepository(repoConfig),
		Tags:        pgKnowledge.NewTagRepository(repoConfig),
		Tiles:       pgKnowledge.NewTileRepository(repoConfig),
		Profiles:    profileRepo,
		Memberships: membershipRepo,
	}

	media := opts.Media
	if media == nil {
		media = noMedia{}
	}

	authorizer := authSvc.NewRoleAuthorizer()
	searchService := search.NewService(opts.Meili, pgKnowledge.NewSearchRepository(repoConfig), logger)

	return &App{
		Users:       userRepo,
		Orgs:        orgRepo,
		Departments: repos.Departments,
		TxManager:   txManager,
		Authorizer:  authorizer,
		OrgService:  service.NewOrgService(orgRepo, userRepo, membershipRepo, repos.Departments, logger),
		Profiles:    service.NewProfileService(profileRepo, userRepo, repos.Departments, media, authorizer, logger),
		Themes:      service.NewUserThemeService(themeRepo, logger),
		Knowledge:   kbService.SetupServices(repos, txManager, media, authorizer, searchService, logger),
		Search:      searchService,
	}
}
