package knowledge

import (
	"log/slog"

	"knowledgestack/internal/domain/repositories"
	kbRepo "knowledgestack/internal/domain/repositories/knowledge"
	"knowledgestack/internal/domain/services"
	kbSvc "knowledgestack/internal/domain/services/knowledge"
)

// Repositories groups every store the knowledge services read or write
type Repositories struct {
	Departments kbRepo.DepartmentRepository
	Collections kbRepo.CollectionRepository
	Documents   kbRepo.DocumentRepository
	Sections    kbRepo.SectionRepository
	Links       kbRepo.LinkRepository
	Versions    kbRepo.VersionRepository
	Tags        kbRepo.TagRepository
	Tiles       kbRepo.TileRepository
	Profiles    repositories.ProfileRepository
	Memberships repositories.MembershipRepository
}

// Services holds all knowledge services
type Services struct {
	Departments kbSvc.DepartmentService
	Collections kbSvc.CollectionService
	Documents   kbSvc.DocumentService
	Tags        kbSvc.TagService
	Tiles       kbSvc.TileService
	TagSync     *TagSynchronizer
}

// SetupServices wires the knowledge services around one shared tag
// synchronizer. A nil indexer disables search notifications.
func SetupServices(
	repos Repositories,
	txManager repositories.TransactionManager,
	media services.MediaStore,
	authorizer services.ResourceAuthorizer,
	indexer kbSvc.SearchIndexer,
	logger *slog.Logger,
) *Services {
	if indexer == nil {
		indexer = kbSvc.NoopIndexer{}
	}

	tagSync := NewTagSynchronizer(repos.Tags, repos.Departments, repos.Collections, logger)

	documentRepos := DocumentRepos{
		Documents:   repos.Documents,
		Sections:    repos.Sections,
		Links:       repos.Links,
		Versions:    repos.Versions,
		Tags:        repos.Tags,
		Collections: repos.Collections,
		Departments: repos.Departments,
	}

	return &Services{
		Departments: NewDepartmentService(
			repos.Departments, repos.Documents, repos.Collections,
			repos.Profiles, repos.Memberships,
			txManager, tagSync, authorizer, indexer, logger,
		),
		Collections: NewCollectionService(
			repos.Collections, repos.Documents, repos.Departments, repos.Tags, repos.Versions,
			txManager, tagSync, authorizer, indexer, logger,
		),
		Documents: NewDocumentService(documentRepos, txManager, tagSync, media, authorizer, indexer, logger),
		Tags:      NewTagService(repos.Tags, repos.Documents, txManager, authorizer, indexer, logger),
		Tiles:     NewTileService(repos.Tiles, repos.Documents, repos.Departments, repos.Collections, authorizer, logger),
		TagSync:   tagSync,
	}
}
