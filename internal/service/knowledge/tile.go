package knowledge

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"knowledgestack/internal/config"
	"knowledgestack/internal/domain"
	"knowledgestack/internal/domain/models"
	kbModels "knowledgestack/internal/domain/models/knowledge"
	kbRepo "knowledgestack/internal/domain/repositories/knowledge"
	"knowledgestack/internal/domain/services"
	kbSvc "knowledgestack/internal/domain/services/knowledge"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/go-ozzo/ozzo-validation/v4/is"
)

// tileService implements the TileService interface
type tileService struct {
	tileRepo       kbRepo.TileRepository
	documentRepo   kbRepo.DocumentRepository
	departmentRepo kbRepo.DepartmentRepository
	collectionRepo kbRepo.CollectionRepository
	authorizer     services.ResourceAuthorizer
	logger         *slog.Logger
}

// NewTileService creates a new tile service
func NewTileService(
	tileRepo kbRepo.TileRepository,
	documentRepo kbRepo.DocumentRepository,
	departmentRepo kbRepo.DepartmentRepository,
	collectionRepo kbRepo.CollectionRepository,
	authorizer services.ResourceAuthorizer,
	logger *slog.Logger,
) kbSvc.TileService {
	return &tileService{
		tileRepo:       tileRepo,
		documentRepo:   documentRepo,
		departmentRepo: departmentRepo,
		collectionRepo: collectionRepo,
		authorizer:     authorizer,
		logger:         logger,
	}
}

// ListActive returns active tiles in (order, id) order. Tiles whose target
// is gone, and document tiles the actor cannot see, are skipped.
func (s *tileService) ListActive(ctx context.Context, actor *models.Actor) ([]kbModels.TileView, error) {
	if err := s.authorizer.CanRead(actor); err != nil {
		return nil, err
	}
	tiles, err := s.tileRepo.List(ctx, actor.OrgID, true)
	if err != nil {
		return nil, err
	}

	var docIDs []string
	for _, t := range tiles {
		if t.Kind == kbModels.TileDocument && t.DocumentID != nil {
			docIDs = append(docIDs, *t.DocumentID)
		}
	}
	visibleDocs := make(map[string]bool, len(docIDs))
	if len(docIDs) > 0 {
		docs, err := s.documentRepo.ListByIDs(ctx, actor.OrgID, docIDs)
		if err != nil {
			return nil, err
		}
		for _, d := range visibleDocuments(actor, docs) {
			visibleDocs[d.ID] = true
		}
	}

	views := make([]kbModels.TileView, 0, len(tiles))
	for _, t := range tiles {
		view, ok := tileView(t, visibleDocs)
		if ok {
			views = append(views, view)
		}
	}
	return views, nil
}

// tileView maps a stored tile to its client shape. ok is false when the
// tile has nothing to point at.
func tileView(t kbModels.Tile, visibleDocs map[string]bool) (kbModels.TileView, bool) {
	view := kbModels.TileView{
		ID:          t.ID,
		Title:       t.Title,
		Kind:        t.Kind,
		Description: t.Description,
		Icon:        t.Icon,
	}
	switch t.Kind {
	case kbModels.TileDocument:
		if t.DocumentID == nil || !visibleDocs[*t.DocumentID] {
			return view, false
		}
		view.DocumentID = *t.DocumentID
	case kbModels.TileDepartment:
		if t.DepartmentSlug == nil {
			return view, false
		}
		view.DepartmentSlug = *t.DepartmentSlug
	case kbModels.TileCollection:
		if t.CollectionSlug == nil {
			return view, false
		}
		view.CollectionSlug = *t.CollectionSlug
	case kbModels.TileURL:
		if t.Href == "" {
			return view, false
		}
		view.Kind = kbModels.TileExternal
		view.Href = t.Href
	default:
		return view, false
	}
	return view, true
}

func (s *tileService) ListAll(ctx context.Context, actor *models.Actor) ([]kbModels.Tile, error) {
	if err := s.authorizer.CanWrite(actor); err != nil {
		return nil, err
	}
	return s.tileRepo.List(ctx, actor.OrgID, false)
}

func (s *tileService) CreateTile(ctx context.Context, actor *models.Actor, req *kbSvc.TileRequest) (*kbModels.Tile, error) {
	if err := s.authorizer.CanWrite(actor); err != nil {
		return nil, err
	}
	tile := &kbModels.Tile{OrgID: actor.OrgID}
	if err := s.apply(ctx, tile, req); err != nil {
		return nil, err
	}
	if err := s.tileRepo.Create(ctx, tile); err != nil {
		return nil, err
	}

	s.logger.Info("tile created",
		"id", tile.ID,
		"kind", tile.Kind,
		"org_id", tile.OrgID,
	)
	return tile, nil
}

func (s *tileService) UpdateTile(ctx context.Context, actor *models.Actor, id string, req *kbSvc.TileRequest) (*kbModels.Tile, error) {
	if err := s.authorizer.CanWrite(actor); err != nil {
		return nil, err
	}
	tile, err := s.tileRepo.GetByID(ctx, id, actor.OrgID)
	if err != nil {
		return nil, err
	}
	if err := s.apply(ctx, tile, req); err != nil {
		return nil, err
	}
	if err := s.tileRepo.Update(ctx, tile); err != nil {
		return nil, err
	}

	s.logger.Info("tile updated",
		"id", tile.ID,
		"kind", tile.Kind,
	)
	return tile, nil
}

func (s *tileService) DeleteTile(ctx context.Context, actor *models.Actor, id string) error {
	if err := s.authorizer.CanWrite(actor); err != nil {
		return err
	}
	if _, err := s.tileRepo.GetByID(ctx, id, actor.OrgID); err != nil {
		return err
	}
	if err := s.tileRepo.Delete(ctx, id, actor.OrgID); err != nil {
		return err
	}

	s.logger.Info("tile deleted", "id", id)
	return nil
}

// apply validates req and copies it onto tile. Only the target field that
// matches the kind is kept.
func (s *tileService) apply(ctx context.Context, tile *kbModels.Tile, req *kbSvc.TileRequest) error {
	if err := validation.ValidateStruct(req,
		validation.Field(&req.Title, validation.Required, validation.Length(1, config.MaxNameLength)),
		validation.Field(&req.Kind, validation.Required, validation.By(func(value interface{}) error {
			if !kbModels.TileKind(req.Kind).IsValid() {
				return fmt.Errorf("must be one of document, department, collection, url")
			}
			return nil
		})),
		validation.Field(&req.Order, validation.Min(0)),
		validation.Field(&req.Description, validation.Length(0, config.MaxDescriptionLength)),
		validation.Field(&req.Icon, validation.Length(0, config.MaxNameLength)),
	); err != nil {
		return validationErr(err)
	}

	kind := kbModels.TileKind(req.Kind)
	tile.Title = strings.TrimSpace(req.Title)
	tile.Kind = kind
	tile.Order = req.Order
	tile.IsActive = req.IsActive == nil || *req.IsActive
	tile.Description = strings.TrimSpace(req.Description)
	tile.Icon = strings.TrimSpace(req.Icon)
	tile.DocumentID, tile.DepartmentID, tile.CollectionID = nil, nil, nil
	tile.Href = ""

	missing := func(field string) error {
		return &domain.ValidationError{Message: fmt.Sprintf("%s tiles require %s", kind, field)}
	}

	switch kind {
	case kbModels.TileDocument:
		if req.DocumentID == nil {
			return missing("document_id")
		}
		if _, err := s.documentRepo.GetByID(ctx, *req.DocumentID, tile.OrgID); err != nil {
			return s.targetErr(err, "document", *req.DocumentID)
		}
		tile.DocumentID = req.DocumentID
	case kbModels.TileDepartment:
		if req.DepartmentID == nil {
			return missing("department_id")
		}
		dept, err := s.departmentRepo.GetByID(ctx, *req.DepartmentID, tile.OrgID)
		if err != nil {
			return s.targetErr(err, "department", *req.DepartmentID)
		}
		tile.DepartmentID = req.DepartmentID
		tile.DepartmentSlug = &dept.Slug
	case kbModels.TileCollection:
		if req.CollectionID == nil {
			return missing("collection_id")
		}
		col, err := s.collectionRepo.GetByID(ctx, *req.CollectionID, tile.OrgID)
		if err != nil {
			return s.targetErr(err, "collection", *req.CollectionID)
		}
		tile.CollectionID = req.CollectionID
		tile.CollectionSlug = &col.Slug
	case kbModels.TileURL:
		href := strings.TrimSpace(req.Href)
		if err := validation.Validate(href, validation.Required, validation.Length(1, config.MaxURLLength), is.URL); err != nil {
			return validationErr(fmt.Errorf("href: %v", err))
		}
		tile.Href = href
	}
	return nil
}

func (s *tileService) targetErr(err error, kind, id string) error {
	if isNotFound(err) {
		return &domain.ValidationError{Message: fmt.Sprintf("unknown %s %s", kind, id)}
	}
	return err
}
