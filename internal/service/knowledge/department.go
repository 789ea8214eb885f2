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

// departmentService implements the DepartmentService interface
type departmentService struct {
	departmentRepo kbRepo.DepartmentRepository
	documentRepo   kbRepo.DocumentRepository
	collectionRepo kbRepo.CollectionRepository
	profileRepo    repositories.ProfileRepository
	membershipRepo repositories.MembershipRepository
	txManager      repositories.TransactionManager
	tagSync        *TagSynchronizer
	authorizer     services.ResourceAuthorizer
	indexer        kbSvc.SearchIndexer
	logger         *slog.Logger
}

// NewDepartmentService creates a new department service
func NewDepartmentService(
	departmentRepo kbRepo.DepartmentRepository,
	documentRepo kbRepo.DocumentRepository,
	collectionRepo kbRepo.CollectionRepository,
	profileRepo repositories.ProfileRepository,
	membershipRepo repositories.MembershipRepository,
	txManager repositories.TransactionManager,
	tagSync *TagSynchronizer,
	authorizer services.ResourceAuthorizer,
	indexer kbSvc.SearchIndexer,
	logger *slog.Logger,
) kbSvc.DepartmentService {
	return &departmentService{
		departmentRepo: departmentRepo,
		documentRepo:   documentRepo,
		collectionRepo: collectionRepo,
		profileRepo:    profileRepo,
		membershipRepo: membershipRepo,
		txManager:      txManager,
		tagSync:        tagSync,
		authorizer:     authorizer,
		indexer:        indexer,
		logger:         logger,
	}
}

// CreateDepartment creates a department and its structural tag together,
// so the tag is available to tag pickers before any document uses it.
func (s *departmentService) CreateDepartment(ctx context.Context, actor *models.Actor, req *kbSvc.CreateDepartmentRequest) (*kbModels.Department, error) {
	if err := s.authorizer.CanWrite(actor); err != nil {
		return nil, err
	}
	if err := validation.ValidateStruct(req,
		validation.Field(&req.Name, validation.Required, validation.Length(1, config.MaxNameLength)),
		validation.Field(&req.Description, validation.Length(0, config.MaxDescriptionLength)),
	); err != nil {
		return nil, validationErr(err)
	}

	name := strings.TrimSpace(req.Name)
	slug, err := resolveSlug(req.Slug, name)
	if err != nil {
		return nil, err
	}

	now := time.Now()
	dept := &kbModels.Department{
		OrgID:       actor.OrgID,
		Name:        name,
		Slug:        slug,
		Description: strings.TrimSpace(req.Description),
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	var tag *kbModels.Tag
	err = s.txManager.ExecTx(ctx, func(txCtx context.Context) error {
		if err := s.departmentRepo.Create(txCtx, dept); err != nil {
			return err
		}
		tag, err = s.tagSync.EnsureDepartmentTag(txCtx, dept)
		return err
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("department created",
		"id", dept.ID,
		"slug", dept.Slug,
		"org_id", dept.OrgID,
	)
	s.indexer.Changed(dept.OrgID, kbModels.ResultDepartment, dept.ID)
	s.indexer.Changed(dept.OrgID, kbModels.ResultTag, tag.ID)

	return dept, nil
}

func (s *departmentService) ListDepartments(ctx context.Context, actor *models.Actor) ([]kbModels.Department, error) {
	if err := s.authorizer.CanRead(actor); err != nil {
		return nil, err
	}
	return s.departmentRepo.List(ctx, actor.OrgID)
}

func (s *departmentService) GetDepartment(ctx context.Context, actor *models.Actor, slug string) (*kbModels.Department, error) {
	if err := s.authorizer.CanRead(actor); err != nil {
		return nil, err
	}
	return s.departmentRepo.GetBySlug(ctx, actor.OrgID, slug)
}

// UpdateDepartment renames a department. Its structural tag keeps its id
// and follows the new name.
func (s *departmentService) UpdateDepartment(ctx context.Context, actor *models.Actor, slug string, req *kbSvc.UpdateDepartmentRequest) (*kbModels.Department, error) {
	if err := s.authorizer.CanWrite(actor); err != nil {
		return nil, err
	}
	if err := validation.ValidateStruct(req,
		validation.Field(&req.Name, validation.NilOrNotEmpty, validation.Length(1, config.MaxNameLength)),
		validation.Field(&req.Description, validation.Length(0, config.MaxDescriptionLength)),
	); err != nil {
		return nil, validationErr(err)
	}

	dept, err := s.departmentRepo.GetBySlug(ctx, actor.OrgID, slug)
	if err != nil {
		return nil, err
	}

	if req.Name != nil {
		dept.Name = strings.TrimSpace(*req.Name)
	}
	if req.Description != nil {
		dept.Description = strings.TrimSpace(*req.Description)
	}
	dept.UpdatedAt = time.Now()

	var tag *kbModels.Tag
	err = s.txManager.ExecTx(ctx, func(txCtx context.Context) error {
		if err := s.departmentRepo.Update(txCtx, dept); err != nil {
			return err
		}
		tag, err = s.tagSync.EnsureDepartmentTag(txCtx, dept)
		return err
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("department updated",
		"id", dept.ID,
		"slug", dept.Slug,
	)
	s.indexer.Changed(dept.OrgID, kbModels.ResultDepartment, dept.ID)
	s.indexer.Changed(dept.OrgID, kbModels.ResultTag, tag.ID)

	return dept, nil
}

func (s *departmentService) ListMembers(ctx context.Context, actor *models.Actor, slug string) ([]models.Profile, error) {
	if err := s.authorizer.CanRead(actor); err != nil {
		return nil, err
	}
	dept, err := s.departmentRepo.GetBySlug(ctx, actor.OrgID, slug)
	if err != nil {
		return nil, err
	}
	return s.profileRepo.ListByDepartment(ctx, actor.OrgID, dept.ID)
}

// ChangeMember adds or removes an org member from the department
func (s *departmentService) ChangeMember(ctx context.Context, actor *models.Actor, slug string, req *kbSvc.ChangeMemberRequest) ([]models.Profile, error) {
	if err := s.authorizer.CanWrite(actor); err != nil {
		return nil, err
	}
	if err := validation.ValidateStruct(req,
		validation.Field(&req.Action, validation.Required, validation.In(kbSvc.MemberAdd, kbSvc.MemberRemove)),
		validation.Field(&req.UserID, validation.Required),
	); err != nil {
		return nil, validationErr(err)
	}

	dept, err := s.departmentRepo.GetBySlug(ctx, actor.OrgID, slug)
	if err != nil {
		return nil, err
	}

	if _, err := s.membershipRepo.Get(ctx, actor.OrgID, req.UserID); err != nil {
		if isNotFound(err) {
			return nil, &domain.ValidationError{Message: fmt.Sprintf("user %s is not a member of this organization", req.UserID)}
		}
		return nil, err
	}

	switch req.Action {
	case kbSvc.MemberAdd:
		err = s.departmentRepo.AddMember(ctx, dept.ID, req.UserID)
	case kbSvc.MemberRemove:
		err = s.departmentRepo.RemoveMember(ctx, dept.ID, req.UserID)
	}
	if err != nil {
		return nil, err
	}

	s.logger.Info("department membership changed",
		"department_id", dept.ID,
		"user_id", req.UserID,
		"action", req.Action,
	)

	return s.profileRepo.ListByDepartment(ctx, actor.OrgID, dept.ID)
}

func (s *departmentService) ListDocuments(ctx context.Context, actor *models.Actor, slug string) ([]kbModels.Document, error) {
	if err := s.authorizer.CanRead(actor); err != nil {
		return nil, err
	}
	dept, err := s.departmentRepo.GetBySlug(ctx, actor.OrgID, slug)
	if err != nil {
		return nil, err
	}

	docs, err := s.documentRepo.List(ctx, actor.OrgID, kbModels.DocumentFilter{DepartmentID: dept.ID})
	if err != nil {
		return nil, err
	}
	return visibleDocuments(actor, docs), nil
}

func (s *departmentService) ListCollections(ctx context.Context, actor *models.Actor, slug string) ([]kbModels.Collection, error) {
	if err := s.authorizer.CanRead(actor); err != nil {
		return nil, err
	}
	dept, err := s.departmentRepo.GetBySlug(ctx, actor.OrgID, slug)
	if err != nil {
		return nil, err
	}

	all, err := s.collectionRepo.List(ctx, actor.OrgID)
	if err != nil {
		return nil, err
	}
	cols := make([]kbModels.Collection, 0)
	for _, col := range all {
		if containsID(col.DepartmentIDs, dept.ID) && canView(actor, col.Visibility()) {
			cols = append(cols, col)
		}
	}
	return cols, nil
}

func visibleDocuments(actor *models.Actor, docs []kbModels.Document) []kbModels.Document {
	visible := make([]kbModels.Document, 0, len(docs))
	for _, doc := range docs {
		if canView(actor, doc.Visibility()) {
			visible = append(visible, doc)
		}
	}
	return visible
}

func visibleCollections(actor *models.Actor, cols []kbModels.Collection) []kbModels.Collection {
	visible := make([]kbModels.Collection, 0, len(cols))
	for _, col := range cols {
		if canView(actor, col.Visibility()) {
			visible = append(visible, col)
		}
	}
	return visible
}
