package knowledge

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"knowledgestack/internal/config"
	"knowledgestack/internal/domain"
	"knowledgestack/internal/domain/models"
	kbModels "knowledgestack/internal/domain/models/knowledge"
	"knowledgestack/internal/domain/repositories"
	kbRepo "knowledgestack/internal/domain/repositories/knowledge"
	"knowledgestack/internal/domain/services"
	kbSvc "knowledgestack/internal/domain/services/knowledge"

	validation "github.com/go-ozzo/ozzo-validation/v4"
)

// collectionService implements the CollectionService interface
type collectionService struct {
	collectionRepo kbRepo.CollectionRepository
	documentRepo   kbRepo.DocumentRepository
	departmentRepo kbRepo.DepartmentRepository
	tagRepo        kbRepo.TagRepository
	txManager      repositories.TransactionManager
	hierarchy      *HierarchyManager
	tagSync        *TagSynchronizer
	versions       *versionRecorder
	authorizer     services.ResourceAuthorizer
	indexer        kbSvc.SearchIndexer
	logger         *slog.Logger
}

// NewCollectionService creates a new collection service
func NewCollectionService(
	collectionRepo kbRepo.CollectionRepository,
	documentRepo kbRepo.DocumentRepository,
	departmentRepo kbRepo.DepartmentRepository,
	tagRepo kbRepo.TagRepository,
	versionRepo kbRepo.VersionRepository,
	txManager repositories.TransactionManager,
	tagSync *TagSynchronizer,
	authorizer services.ResourceAuthorizer,
	indexer kbSvc.SearchIndexer,
	logger *slog.Logger,
) kbSvc.CollectionService {
	return &collectionService{
		collectionRepo: collectionRepo,
		documentRepo:   documentRepo,
		departmentRepo: departmentRepo,
		tagRepo:        tagRepo,
		txManager:      txManager,
		hierarchy:      NewHierarchyManager(collectionRepo),
		tagSync:        tagSync,
		versions: &versionRecorder{
			documentRepo:   documentRepo,
			collectionRepo: collectionRepo,
			tagRepo:        tagRepo,
			versionRepo:    versionRepo,
		},
		authorizer: authorizer,
		indexer:    indexer,
		logger:     logger,
	}
}

// CreateCollection creates a collection, placing it under its parent and
// creating its structural tag in the same transaction.
func (s *collectionService) CreateCollection(ctx context.Context, actor *models.Actor, req *kbSvc.CreateCollectionRequest) (*kbModels.Collection, error) {
	if err := s.authorizer.CanWrite(actor); err != nil {
		return nil, err
	}
	if err := validation.ValidateStruct(req,
		validation.Field(&req.Name, validation.Required, validation.Length(1, config.MaxNameLength)),
		validation.Field(&req.Description, validation.Length(0, config.MaxDescriptionLength)),
		validation.Field(&req.Position, validation.Min(0)),
	); err != nil {
		return nil, validationErr(err)
	}

	name := strings.TrimSpace(req.Name)
	slug, err := resolveSlug(req.Slug, name)
	if err != nil {
		return nil, err
	}

	everyone := true
	if req.Everyone != nil {
		everyone = *req.Everyone
	}
	departmentIDs, err := requireDepartments(ctx, s.departmentRepo, actor.OrgID, req.DepartmentIDs)
	if err != nil {
		return nil, err
	}

	now := time.Now()
	col := &kbModels.Collection{
		OrgID:         actor.OrgID,
		Name:          name,
		Slug:          slug,
		Description:   strings.TrimSpace(req.Description),
		Position:      req.Position,
		Everyone:      everyone,
		DepartmentIDs: departmentIDs,
		CreatedAt:     now,
		UpdatedAt:     now,
	}

	err = s.txManager.ExecTx(ctx, func(txCtx context.Context) error {
		if err := s.hierarchy.SetParent(txCtx, col, req.ParentID); err != nil {
			return err
		}
		if err := ValidateVisibility("collection", "", col.Visibility()); err != nil {
			return err
		}
		if err := s.collectionRepo.Create(txCtx, col); err != nil {
			return err
		}
		if err := s.collectionRepo.SetDepartments(txCtx, col.ID, departmentIDs); err != nil {
			return err
		}
		if _, err := s.tagSync.EnsureCollectionTag(txCtx, col); err != nil {
			return err
		}
		_, err := s.tagSync.SyncDepartmentTags(txCtx, col.OrgID, kbModels.CollectionOwner(col.ID), departmentIDs)
		return err
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("collection created",
		"id", col.ID,
		"slug", col.Slug,
		"parent_id", col.ParentID,
		"org_id", col.OrgID,
	)
	s.indexer.Changed(col.OrgID, kbModels.ResultCollection, col.ID)

	return s.loadDetail(ctx, col)
}

func (s *collectionService) ListCollections(ctx context.Context, actor *models.Actor) ([]kbModels.Collection, error) {
	if err := s.authorizer.CanRead(actor); err != nil {
		return nil, err
	}
	cols, err := s.collectionRepo.List(ctx, actor.OrgID)
	if err != nil {
		return nil, err
	}
	return visibleCollections(actor, cols), nil
}

func (s *collectionService) GetCollection(ctx context.Context, actor *models.Actor, slug string) (*kbModels.Collection, error) {
	col, err := s.getVisible(ctx, actor, slug)
	if err != nil {
		return nil, err
	}
	return s.loadDetail(ctx, col)
}

// UpdateCollection applies a partial update. A parent change is checked by
// the hierarchy manager before visibility, both before anything is written.
func (s *collectionService) UpdateCollection(ctx context.Context, actor *models.Actor, slug string, req *kbSvc.UpdateCollectionRequest) (*kbModels.Collection, error) {
	if err := s.authorizer.CanWrite(actor); err != nil {
		return nil, err
	}
	if err := validation.ValidateStruct(req,
		validation.Field(&req.Name, validation.NilOrNotEmpty, validation.Length(1, config.MaxNameLength)),
		validation.Field(&req.Description, validation.Length(0, config.MaxDescriptionLength)),
		validation.Field(&req.Position, validation.Min(0)),
	); err != nil {
		return nil, validationErr(err)
	}

	col, err := s.getVisible(ctx, actor, slug)
	if err != nil {
		return nil, err
	}
	previousParent := col.ParentID

	renamed := false
	if req.Name != nil {
		name := strings.TrimSpace(*req.Name)
		renamed = renamed || name != col.Name
		col.Name = name
	}
	if req.Slug != nil {
		newSlug, err := resolveSlug(req.Slug, col.Name)
		if err != nil {
			return nil, err
		}
		renamed = renamed || newSlug != col.Slug
		col.Slug = newSlug
	}
	if req.Description != nil {
		col.Description = strings.TrimSpace(*req.Description)
	}
	if req.Position != nil {
		col.Position = *req.Position
	}

	visibilityChanged := false
	if req.Everyone != nil && *req.Everyone != col.Everyone {
		col.Everyone = *req.Everyone
		visibilityChanged = true
	}
	departmentsChanged := false
	if req.DepartmentIDs != nil {
		ids, err := requireDepartments(ctx, s.departmentRepo, actor.OrgID, *req.DepartmentIDs)
		if err != nil {
			return nil, err
		}
		departmentsChanged = !sameSet(ids, col.DepartmentIDs)
		col.DepartmentIDs = ids
	}
	col.UpdatedAt = time.Now()

	err = s.txManager.ExecTx(ctx, func(txCtx context.Context) error {
		if req.SetParent {
			if err := s.hierarchy.SetParent(txCtx, col, req.ParentID); err != nil {
				return err
			}
		}
		if visibilityChanged || departmentsChanged {
			if err := ValidateVisibility("collection", col.ID, col.Visibility()); err != nil {
				return err
			}
		}
		if err := s.collectionRepo.Update(txCtx, col); err != nil {
			return err
		}
		if departmentsChanged {
			if err := s.collectionRepo.SetDepartments(txCtx, col.ID, col.DepartmentIDs); err != nil {
				return err
			}
			if _, err := s.tagSync.SyncDepartmentTags(txCtx, col.OrgID, kbModels.CollectionOwner(col.ID), col.DepartmentIDs); err != nil {
				return err
			}
		}
		if renamed {
			if _, err := s.tagSync.EnsureCollectionTag(txCtx, col); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	if req.SetParent && !sameParent(previousParent, col.ParentID) {
		s.logger.Info("collection moved",
			"id", col.ID,
			"parent_id", col.ParentID,
		)
	}
	s.logger.Info("collection updated",
		"id", col.ID,
		"slug", col.Slug,
	)
	s.indexer.Changed(col.OrgID, kbModels.ResultCollection, col.ID)

	return s.loadDetail(ctx, col)
}

// DeleteCollection moves the collection's children to root, drops its
// document memberships and deletes its structural tag.
func (s *collectionService) DeleteCollection(ctx context.Context, actor *models.Actor, slug string) error {
	if err := s.authorizer.CanWrite(actor); err != nil {
		return err
	}
	col, err := s.getVisible(ctx, actor, slug)
	if err != nil {
		return err
	}

	var documentIDs []string
	err = s.txManager.ExecTx(ctx, func(txCtx context.Context) error {
		children, err := s.collectionRepo.ListChildren(txCtx, col.OrgID, &col.ID)
		if err != nil {
			return err
		}
		for i := range children {
			child := &children[i]
			if err := s.hierarchy.SetParent(txCtx, child, nil); err != nil {
				return err
			}
			if err := s.collectionRepo.Update(txCtx, child); err != nil {
				return err
			}
		}

		documentIDs, err = s.collectionRepo.ListDocumentIDs(txCtx, col.ID)
		if err != nil {
			return err
		}
		for _, docID := range documentIDs {
			if err := s.collectionRepo.RemoveDocument(txCtx, col.ID, docID); err != nil {
				return err
			}
		}

		if err := s.tagSync.RemoveCollectionTag(txCtx, col); err != nil {
			return err
		}
		return s.collectionRepo.Delete(txCtx, col.ID, col.OrgID)
	})
	if err != nil {
		return err
	}

	s.logger.Info("collection deleted",
		"id", col.ID,
		"slug", col.Slug,
		"documents_released", len(documentIDs),
	)
	s.indexer.Removed(col.OrgID, kbModels.ResultCollection, col.ID)
	for _, docID := range documentIDs {
		s.indexer.Changed(col.OrgID, kbModels.ResultDocument, docID)
	}

	return nil
}

// AddSubcollection re-parents childID under the collection
func (s *collectionService) AddSubcollection(ctx context.Context, actor *models.Actor, slug, childID string) (*kbModels.Collection, error) {
	if err := s.authorizer.CanWrite(actor); err != nil {
		return nil, err
	}
	parent, err := s.getVisible(ctx, actor, slug)
	if err != nil {
		return nil, err
	}
	child, err := s.visibleByID(ctx, actor, childID)
	if err != nil {
		return nil, err
	}

	err = s.txManager.ExecTx(ctx, func(txCtx context.Context) error {
		if err := s.hierarchy.SetParent(txCtx, child, &parent.ID); err != nil {
			return err
		}
		child.UpdatedAt = time.Now()
		return s.collectionRepo.Update(txCtx, child)
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("collection moved",
		"id", child.ID,
		"parent_id", parent.ID,
	)

	return s.loadDetail(ctx, parent)
}

// RemoveSubcollection moves a direct child of the collection to root
func (s *collectionService) RemoveSubcollection(ctx context.Context, actor *models.Actor, slug, childID string) (*kbModels.Collection, error) {
	if err := s.authorizer.CanWrite(actor); err != nil {
		return nil, err
	}
	parent, err := s.getVisible(ctx, actor, slug)
	if err != nil {
		return nil, err
	}
	child, err := s.visibleByID(ctx, actor, childID)
	if err != nil {
		return nil, err
	}
	if child.ParentID == nil || *child.ParentID != parent.ID {
		return nil, fmt.Errorf("collection %s is not a subcollection of %s: %w", childID, parent.Slug, domain.ErrNotFound)
	}

	err = s.txManager.ExecTx(ctx, func(txCtx context.Context) error {
		if err := s.hierarchy.SetParent(txCtx, child, nil); err != nil {
			return err
		}
		child.UpdatedAt = time.Now()
		return s.collectionRepo.Update(txCtx, child)
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("collection moved",
		"id", child.ID,
		"parent_id", nil,
	)

	return s.loadDetail(ctx, parent)
}

// AddDocument adds a document to the collection and attaches the
// collection's structural tag to it.
func (s *collectionService) AddDocument(ctx context.Context, actor *models.Actor, slug, documentID string) (*kbModels.Collection, error) {
	if err := s.authorizer.CanWrite(actor); err != nil {
		return nil, err
	}
	col, err := s.getVisible(ctx, actor, slug)
	if err != nil {
		return nil, err
	}
	doc, err := s.visibleDocument(ctx, actor, documentID)
	if err != nil {
		return nil, err
	}

	err = s.txManager.ExecTx(ctx, func(txCtx context.Context) error {
		if err := s.collectionRepo.AddDocument(txCtx, col.ID, doc.ID); err != nil {
			return err
		}
		if err := s.tagSync.AttachCollectionTag(txCtx, col, doc.ID); err != nil {
			return err
		}
		return s.versions.record(txCtx, doc, actor.UserID)
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("document added to collection",
		"collection_id", col.ID,
		"document_id", doc.ID,
	)
	s.indexer.Changed(col.OrgID, kbModels.ResultDocument, doc.ID)

	return s.loadDetail(ctx, col)
}

// RemoveDocument removes a document from the collection and detaches the
// collection's tag from it. The tag itself is kept.
func (s *collectionService) RemoveDocument(ctx context.Context, actor *models.Actor, slug, documentID string) (*kbModels.Collection, error) {
	if err := s.authorizer.CanWrite(actor); err != nil {
		return nil, err
	}
	col, err := s.getVisible(ctx, actor, slug)
	if err != nil {
		return nil, err
	}
	doc, err := s.visibleDocument(ctx, actor, documentID)
	if err != nil {
		return nil, err
	}

	err = s.txManager.ExecTx(ctx, func(txCtx context.Context) error {
		if err := s.collectionRepo.RemoveDocument(txCtx, col.ID, doc.ID); err != nil {
			return err
		}
		if err := s.tagSync.DetachCollectionTag(txCtx, col, doc.ID); err != nil {
			return err
		}
		return s.versions.record(txCtx, doc, actor.UserID)
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("document removed from collection",
		"collection_id", col.ID,
		"document_id", doc.ID,
	)
	s.indexer.Changed(col.OrgID, kbModels.ResultDocument, doc.ID)

	return s.loadDetail(ctx, col)
}

func (s *collectionService) ListDocuments(ctx context.Context, actor *models.Actor, slug string) ([]kbModels.Document, error) {
	col, err := s.getVisible(ctx, actor, slug)
	if err != nil {
		return nil, err
	}
	ids, err := s.collectionRepo.ListDocumentIDs(ctx, col.ID)
	if err != nil {
		return nil, err
	}
	docs, err := s.documentRepo.ListByIDs(ctx, actor.OrgID, ids)
	if err != nil {
		return nil, err
	}
	return visibleDocuments(actor, docs), nil
}

// Candidates lists what the "add to collection" picker may offer:
// documents not yet in the collection, and collections that could become
// its children without a cycle. Both are filtered by IsEligible.
func (s *collectionService) Candidates(ctx context.Context, actor *models.Actor, slug string) (*kbModels.CollectionCandidates, error) {
	col, err := s.getVisible(ctx, actor, slug)
	if err != nil {
		return nil, err
	}
	target := col.Visibility()

	memberIDs, err := s.collectionRepo.ListDocumentIDs(ctx, col.ID)
	if err != nil {
		return nil, err
	}
	docs, err := s.documentRepo.List(ctx, actor.OrgID, kbModels.DocumentFilter{})
	if err != nil {
		return nil, err
	}

	candidates := &kbModels.CollectionCandidates{
		Documents:   make([]kbModels.Document, 0),
		Collections: make([]kbModels.Collection, 0),
	}
	for _, doc := range visibleDocuments(actor, docs) {
		if containsID(memberIDs, doc.ID) || !IsEligible(doc.Visibility(), target) {
			continue
		}
		candidates.Documents = append(candidates.Documents, doc)
	}

	ancestors, err := s.hierarchy.ListAncestors(ctx, col)
	if err != nil {
		return nil, err
	}
	excluded := map[string]bool{col.ID: true}
	for _, a := range ancestors {
		excluded[a.ID] = true
	}

	cols, err := s.collectionRepo.List(ctx, actor.OrgID)
	if err != nil {
		return nil, err
	}
	for _, c := range visibleCollections(actor, cols) {
		if excluded[c.ID] || (c.ParentID != nil && *c.ParentID == col.ID) {
			continue
		}
		if !IsEligible(c.Visibility(), target) {
			continue
		}
		candidates.Collections = append(candidates.Collections, c)
	}

	return candidates, nil
}

func (s *collectionService) Ancestors(ctx context.Context, actor *models.Actor, slug string) ([]kbModels.Collection, error) {
	col, err := s.getVisible(ctx, actor, slug)
	if err != nil {
		return nil, err
	}
	ancestors, err := s.hierarchy.ListAncestors(ctx, col)
	if err != nil {
		return nil, err
	}
	if ancestors == nil {
		ancestors = []kbModels.Collection{}
	}
	return ancestors, nil
}

// getVisible loads a collection by slug, reporting hidden ones as missing
func (s *collectionService) getVisible(ctx context.Context, actor *models.Actor, slug string) (*kbModels.Collection, error) {
	if err := s.authorizer.CanRead(actor); err != nil {
		return nil, err
	}
	col, err := s.collectionRepo.GetBySlug(ctx, actor.OrgID, slug)
	if err != nil {
		return nil, err
	}
	if !canView(actor, col.Visibility()) {
		return nil, notFoundIfHidden("collection", slug)
	}
	return col, nil
}

// visibleByID loads a collection referenced by id, hiding restricted ones
// the actor cannot see
func (s *collectionService) visibleByID(ctx context.Context, actor *models.Actor, id string) (*kbModels.Collection, error) {
	col, err := s.collectionRepo.GetByID(ctx, id, actor.OrgID)
	if err != nil {
		return nil, err
	}
	if !canView(actor, col.Visibility()) {
		return nil, notFoundIfHidden("collection", id)
	}
	return col, nil
}

func (s *collectionService) visibleDocument(ctx context.Context, actor *models.Actor, id string) (*kbModels.Document, error) {
	doc, err := s.documentRepo.GetByID(ctx, id, actor.OrgID)
	if err != nil {
		return nil, err
	}
	if !canView(actor, doc.Visibility()) {
		return nil, notFoundIfHidden("document", id)
	}
	return doc, nil
}

// loadDetail fills in tags, document ids and subcollection ids
func (s *collectionService) loadDetail(ctx context.Context, col *kbModels.Collection) (*kbModels.Collection, error) {
	fresh, err := s.collectionRepo.GetByID(ctx, col.ID, col.OrgID)
	if err != nil {
		return nil, err
	}

	fresh.Tags, err = s.tagRepo.ListAttached(ctx, kbModels.CollectionOwner(fresh.ID))
	if err != nil {
		return nil, err
	}
	fresh.DocumentIDs, err = s.collectionRepo.ListDocumentIDs(ctx, fresh.ID)
	if err != nil {
		return nil, err
	}
	children, err := s.collectionRepo.ListChildren(ctx, fresh.OrgID, &fresh.ID)
	if err != nil {
		return nil, err
	}
	fresh.SubcollectionIDs = make([]string, 0, len(children))
	for _, child := range children {
		fresh.SubcollectionIDs = append(fresh.SubcollectionIDs, child.ID)
	}

	return fresh, nil
}

func sameParent(a, b *string) bool {
	if a == nil || b == nil {
		return a == b
	}
	return *a == *b
}
