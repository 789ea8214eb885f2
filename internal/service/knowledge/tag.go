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
	"github.com/go-ozzo/ozzo-validation/v4/is"
)

// tagService implements the TagService interface for manual tags.
// Structural tags are only touched by the TagSynchronizer.
type tagService struct {
	tagRepo      kbRepo.TagRepository
	documentRepo kbRepo.DocumentRepository
	txManager    repositories.TransactionManager
	authorizer   services.ResourceAuthorizer
	indexer      kbSvc.SearchIndexer
	logger       *slog.Logger
}

// NewTagService creates a new tag service
func NewTagService(
	tagRepo kbRepo.TagRepository,
	documentRepo kbRepo.DocumentRepository,
	txManager repositories.TransactionManager,
	authorizer services.ResourceAuthorizer,
	indexer kbSvc.SearchIndexer,
	logger *slog.Logger,
) kbSvc.TagService {
	return &tagService{
		tagRepo:      tagRepo,
		documentRepo: documentRepo,
		txManager:    txManager,
		authorizer:   authorizer,
		indexer:      indexer,
		logger:       logger,
	}
}

func (s *tagService) CreateTag(ctx context.Context, actor *models.Actor, req *kbSvc.CreateTagRequest) (*kbModels.Tag, error) {
	if err := s.authorizer.CanWrite(actor); err != nil {
		return nil, err
	}
	if err := validation.ValidateStruct(req,
		validation.Field(&req.Name, validation.Required, validation.Length(1, config.MaxNameLength)),
		validation.Field(&req.Description, validation.Length(0, config.MaxDescriptionLength)),
	); err != nil {
		return nil, validationErr(err)
	}

	target, err := s.resolveTarget(ctx, actor.OrgID, req.Target)
	if err != nil {
		return nil, err
	}
	name := strings.TrimSpace(req.Name)
	slug, err := resolveSlug(req.Slug, name)
	if err != nil {
		return nil, err
	}

	tag := &kbModels.Tag{
		OrgID:       actor.OrgID,
		Name:        name,
		Slug:        slug,
		Description: strings.TrimSpace(req.Description),
		Target:      target,
		CreatedAt:   time.Now(),
	}
	if err := s.tagRepo.Create(ctx, tag); err != nil {
		return nil, err
	}

	s.logger.Info("tag created",
		"id", tag.ID,
		"target_kind", tag.TargetKind(),
		"org_id", tag.OrgID,
	)
	s.indexer.Changed(tag.OrgID, kbModels.ResultTag, tag.ID)

	return tag, nil
}

func (s *tagService) GetTag(ctx context.Context, actor *models.Actor, id string) (*kbModels.Tag, error) {
	if err := s.authorizer.CanRead(actor); err != nil {
		return nil, err
	}
	return s.tagRepo.GetByID(ctx, id, actor.OrgID)
}

func (s *tagService) ListTags(ctx context.Context, actor *models.Actor, kind string) ([]kbModels.Tag, error) {
	if err := s.authorizer.CanRead(actor); err != nil {
		return nil, err
	}
	targetKind := kbModels.TargetKind(kind)
	switch targetKind {
	case "", kbModels.TargetDepartment, kbModels.TargetCollection, kbModels.TargetDocument, kbModels.TargetExternal, kbModels.TargetNone:
	default:
		return nil, &domain.ValidationError{Message: fmt.Sprintf("invalid tag kind %q", kind)}
	}
	return s.tagRepo.List(ctx, actor.OrgID, targetKind)
}

// UpdateTag edits a manual tag. Structural tags fail with ImmutableTagError.
func (s *tagService) UpdateTag(ctx context.Context, actor *models.Actor, id string, req *kbSvc.UpdateTagRequest) (*kbModels.Tag, error) {
	if err := s.authorizer.CanWrite(actor); err != nil {
		return nil, err
	}
	if err := validation.ValidateStruct(req,
		validation.Field(&req.Name, validation.NilOrNotEmpty, validation.Length(1, config.MaxNameLength)),
		validation.Field(&req.Description, validation.Length(0, config.MaxDescriptionLength)),
	); err != nil {
		return nil, validationErr(err)
	}

	tag, err := s.tagRepo.GetByID(ctx, id, actor.OrgID)
	if err != nil {
		return nil, err
	}
	if err := CheckTagMutable(tag); err != nil {
		return nil, err
	}

	if req.Name != nil {
		tag.Name = strings.TrimSpace(*req.Name)
	}
	if req.Description != nil {
		tag.Description = strings.TrimSpace(*req.Description)
	}
	if req.Target != nil {
		target, err := s.resolveTarget(ctx, actor.OrgID, req.Target)
		if err != nil {
			return nil, err
		}
		tag.Target = target
	}

	if err := s.tagRepo.Update(ctx, tag); err != nil {
		return nil, err
	}

	s.logger.Info("tag updated",
		"id", tag.ID,
		"target_kind", tag.TargetKind(),
	)
	s.indexer.Changed(tag.OrgID, kbModels.ResultTag, tag.ID)

	return tag, nil
}

// DeleteTag detaches a manual tag everywhere and deletes it. Structural
// tags fail with ImmutableTagError.
func (s *tagService) DeleteTag(ctx context.Context, actor *models.Actor, id string) error {
	if err := s.authorizer.CanWrite(actor); err != nil {
		return err
	}
	tag, err := s.tagRepo.GetByID(ctx, id, actor.OrgID)
	if err != nil {
		return err
	}
	if err := CheckTagMutable(tag); err != nil {
		return err
	}

	err = s.txManager.ExecTx(ctx, func(txCtx context.Context) error {
		if err := s.tagRepo.DetachEverywhere(txCtx, tag.ID); err != nil {
			return err
		}
		return s.tagRepo.Delete(txCtx, tag.ID, tag.OrgID)
	})
	if err != nil {
		return err
	}

	s.logger.Info("tag deleted",
		"id", tag.ID,
		"org_id", tag.OrgID,
	)
	s.indexer.Removed(tag.OrgID, kbModels.ResultTag, tag.ID)

	return nil
}

// resolveTarget builds a manual tag target. Department and collection
// targets are reserved for structural tags.
func (s *tagService) resolveTarget(ctx context.Context, orgID string, in *kbSvc.TagTargetInput) (kbModels.TagTarget, error) {
	if in == nil {
		return kbModels.NoTarget{}, nil
	}

	kind := kbModels.TargetKind(in.Kind)
	switch kind {
	case kbModels.TargetDepartment, kbModels.TargetCollection:
		return nil, &domain.ValidationError{Message: fmt.Sprintf("%s tags are managed automatically and cannot be created or retargeted by hand", kind)}
	case kbModels.TargetDocument:
		if _, err := s.documentRepo.GetByID(ctx, in.TargetID, orgID); err != nil {
			if isNotFound(err) {
				return nil, &domain.ValidationError{Message: fmt.Sprintf("unknown document %s", in.TargetID)}
			}
			return nil, err
		}
	case kbModels.TargetExternal:
		if err := validation.Validate(in.LinkURL, validation.Required, validation.Length(1, config.MaxURLLength), is.URL); err != nil {
			return nil, validationErr(fmt.Errorf("link_url: %v", err))
		}
	}

	target, err := kbModels.NewTagTarget(kind, strings.TrimSpace(in.TargetID), strings.TrimSpace(in.LinkURL))
	if err != nil {
		return nil, &domain.ValidationError{Message: err.Error()}
	}
	return target, nil
}
