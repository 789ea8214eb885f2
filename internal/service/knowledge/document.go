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
	"knowledgestack/internal/utils"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/go-ozzo/ozzo-validation/v4/is"
)

// DocumentRepos groups the repositories the document service needs
type DocumentRepos struct {
	Documents   kbRepo.DocumentRepository
	Sections    kbRepo.SectionRepository
	Links       kbRepo.LinkRepository
	Versions    kbRepo.VersionRepository
	Tags        kbRepo.TagRepository
	Collections kbRepo.CollectionRepository
	Departments kbRepo.DepartmentRepository
}

// documentService implements the DocumentService interface
type documentService struct {
	repos      DocumentRepos
	txManager  repositories.TransactionManager
	tagSync    *TagSynchronizer
	versions   *versionRecorder
	media      services.MediaStore
	authorizer services.ResourceAuthorizer
	indexer    kbSvc.SearchIndexer
	logger     *slog.Logger
}

// NewDocumentService creates a new document service
func NewDocumentService(
	repos DocumentRepos,
	txManager repositories.TransactionManager,
	tagSync *TagSynchronizer,
	media services.MediaStore,
	authorizer services.ResourceAuthorizer,
	indexer kbSvc.SearchIndexer,
	logger *slog.Logger,
) kbSvc.DocumentService {
	return &documentService{
		repos:     repos,
		txManager: txManager,
		tagSync:   tagSync,
		versions: &versionRecorder{
			documentRepo:   repos.Documents,
			collectionRepo: repos.Collections,
			tagRepo:        repos.Tags,
			versionRepo:    repos.Versions,
		},
		media:      media,
		authorizer: authorizer,
		indexer:    indexer,
		logger:     logger,
	}
}

// CreateDocument creates a document with its initial sections and links.
// New documents default to draft and everyone=true.
func (s *documentService) CreateDocument(ctx context.Context, actor *models.Actor, req *kbSvc.CreateDocumentRequest) (*kbModels.Document, error) {
	if err := s.authorizer.CanWrite(actor); err != nil {
		return nil, err
	}
	if err := s.validateCreateRequest(req); err != nil {
		return nil, validationErr(err)
	}

	status := kbModels.StatusDraft
	if req.Status != nil {
		status = kbModels.DocumentStatus(*req.Status)
	}
	everyone := true
	if req.Everyone != nil {
		everyone = *req.Everyone
	}
	departmentIDs, err := requireDepartments(ctx, s.repos.Departments, actor.OrgID, req.DepartmentIDs)
	if err != nil {
		return nil, err
	}

	title := strings.TrimSpace(req.Title)
	now := time.Now()
	doc := &kbModels.Document{
		OrgID:         actor.OrgID,
		Title:         title,
		Slug:          utils.Slugify(title, config.MaxSlugLength),
		Status:        status,
		Everyone:      everyone,
		DepartmentIDs: departmentIDs,
		CreatedBy:     &actor.UserID,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	if err := ValidateVisibility("document", "", doc.Visibility()); err != nil {
		return nil, err
	}

	err = s.txManager.ExecTx(ctx, func(txCtx context.Context) error {
		if err := s.repos.Documents.Create(txCtx, doc); err != nil {
			return err
		}
		if err := s.repos.Documents.SetDepartments(txCtx, doc.ID, departmentIDs); err != nil {
			return err
		}
		if _, err := s.tagSync.SyncDepartmentTags(txCtx, doc.OrgID, kbModels.DocumentOwner(doc.ID), departmentIDs); err != nil {
			return err
		}
		for i, in := range req.Sections {
			section := &kbModels.Section{
				DocumentID: doc.ID,
				Order:      i,
				Header:     strings.TrimSpace(in.Header),
				BodyMD:     in.BodyMD,
				CreatedAt:  now,
			}
			if err := s.repos.Sections.Create(txCtx, section); err != nil {
				return err
			}
		}
		for i, in := range req.Links {
			link := &kbModels.ResourceLink{
				DocumentID: doc.ID,
				Order:      i,
				Title:      strings.TrimSpace(in.Title),
				URL:        strings.TrimSpace(in.URL),
				Note:       in.Note,
			}
			if err := s.repos.Links.Create(txCtx, link); err != nil {
				return err
			}
		}
		return s.versions.record(txCtx, doc, actor.UserID)
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("document created",
		"id", doc.ID,
		"title", doc.Title,
		"everyone", doc.Everyone,
		"departments", len(departmentIDs),
		"org_id", doc.OrgID,
	)
	s.indexer.Changed(doc.OrgID, kbModels.ResultDocument, doc.ID)

	return s.loadDetail(ctx, doc.ID, doc.OrgID)
}

func (s *documentService) GetDocument(ctx context.Context, actor *models.Actor, id string) (*kbModels.Document, error) {
	doc, err := s.getVisible(ctx, actor, id)
	if err != nil {
		return nil, err
	}
	return s.loadDetail(ctx, doc.ID, doc.OrgID)
}

// ListDocuments lists the documents visible to actor, most recent first
func (s *documentService) ListDocuments(ctx context.Context, actor *models.Actor, req *kbSvc.ListDocumentsRequest) ([]kbModels.Document, error) {
	if err := s.authorizer.CanRead(actor); err != nil {
		return nil, err
	}

	filter := kbModels.DocumentFilter{CreatedBy: req.CreatedBy}
	if req.Status != "" {
		status := kbModels.DocumentStatus(req.Status)
		if !status.IsValid() {
			return nil, &domain.ValidationError{Message: fmt.Sprintf("invalid status %q", req.Status)}
		}
		filter.Status = status
	}
	if req.DepartmentSlug != "" {
		dept, err := s.repos.Departments.GetBySlug(ctx, actor.OrgID, req.DepartmentSlug)
		if err != nil {
			return nil, err
		}
		filter.DepartmentID = dept.ID
	}

	docs, err := s.repos.Documents.List(ctx, actor.OrgID, filter)
	if err != nil {
		return nil, err
	}
	return visibleDocuments(actor, docs), nil
}

// UpdateDocument applies a partial update. A change to everyone or the
// department set is validated before the transaction starts, so a rejected
// update leaves the stored document unchanged.
func (s *documentService) UpdateDocument(ctx context.Context, actor *models.Actor, id string, req *kbSvc.UpdateDocumentRequest) (*kbModels.Document, error) {
	if err := s.authorizer.CanWrite(actor); err != nil {
		return nil, err
	}
	if err := validation.ValidateStruct(req,
		validation.Field(&req.Title, validation.NilOrNotEmpty, validation.Length(1, config.MaxNameLength)),
		validation.Field(&req.Status, validation.By(validateStatus)),
	); err != nil {
		return nil, validationErr(err)
	}

	doc, err := s.getVisible(ctx, actor, id)
	if err != nil {
		return nil, err
	}

	if req.Title != nil {
		doc.Title = strings.TrimSpace(*req.Title)
		doc.Slug = utils.Slugify(doc.Title, config.MaxSlugLength)
	}
	if req.Status != nil {
		doc.Status = kbModels.DocumentStatus(*req.Status)
	}

	visibilityChanged := false
	if req.Everyone != nil && *req.Everyone != doc.Everyone {
		doc.Everyone = *req.Everyone
		visibilityChanged = true
	}
	departmentsChanged := false
	if req.DepartmentIDs != nil {
		ids, err := requireDepartments(ctx, s.repos.Departments, actor.OrgID, *req.DepartmentIDs)
		if err != nil {
			return nil, err
		}
		departmentsChanged = !sameSet(ids, doc.DepartmentIDs)
		doc.DepartmentIDs = ids
	}
	if visibilityChanged || departmentsChanged {
		if err := ValidateVisibility("document", doc.ID, doc.Visibility()); err != nil {
			return nil, err
		}
	}

	err = s.txManager.ExecTx(ctx, func(txCtx context.Context) error {
		if err := s.repos.Documents.Update(txCtx, doc); err != nil {
			return err
		}
		if departmentsChanged {
			if err := s.repos.Documents.SetDepartments(txCtx, doc.ID, doc.DepartmentIDs); err != nil {
				return err
			}
			if _, err := s.tagSync.SyncDepartmentTags(txCtx, doc.OrgID, kbModels.DocumentOwner(doc.ID), doc.DepartmentIDs); err != nil {
				return err
			}
		}
		return s.versions.record(txCtx, doc, actor.UserID)
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("document updated",
		"id", doc.ID,
		"status", doc.Status,
		"everyone", doc.Everyone,
		"departments_changed", departmentsChanged,
	)
	s.indexer.Changed(doc.OrgID, kbModels.ResultDocument, doc.ID)

	return s.loadDetail(ctx, doc.ID, doc.OrgID)
}

// DeleteDocument removes the document from its collections and deletes it
func (s *documentService) DeleteDocument(ctx context.Context, actor *models.Actor, id string) error {
	if err := s.authorizer.CanWrite(actor); err != nil {
		return err
	}
	doc, err := s.getVisible(ctx, actor, id)
	if err != nil {
		return err
	}

	err = s.txManager.ExecTx(ctx, func(txCtx context.Context) error {
		collectionIDs, err := s.repos.Collections.ListIDsForDocument(txCtx, doc.ID)
		if err != nil {
			return err
		}
		for _, colID := range collectionIDs {
			if err := s.repos.Collections.RemoveDocument(txCtx, colID, doc.ID); err != nil {
				return err
			}
		}
		return s.repos.Documents.Delete(txCtx, doc.ID, doc.OrgID)
	})
	if err != nil {
		return err
	}

	s.logger.Info("document deleted",
		"id", doc.ID,
		"org_id", doc.OrgID,
	)
	s.indexer.Removed(doc.OrgID, kbModels.ResultDocument, doc.ID)

	return nil
}

// SetTags replaces the document's department and manual tags. Department
// tags in the list become the department set; collection tags are ignored
// because collection membership drives them.
func (s *documentService) SetTags(ctx context.Context, actor *models.Actor, id string, req *kbSvc.SetTagsRequest) (*kbModels.Document, error) {
	if err := s.authorizer.CanWrite(actor); err != nil {
		return nil, err
	}
	doc, err := s.getVisible(ctx, actor, id)
	if err != nil {
		return nil, err
	}

	ids := dedupe(req.TagIDs)
	tags, err := s.repos.Tags.ListByIDs(ctx, actor.OrgID, ids)
	if err != nil {
		return nil, err
	}
	if len(tags) != len(ids) {
		return nil, &domain.ValidationError{Message: "one or more tags do not exist"}
	}

	departmentIDs := make([]string, 0)
	manual := make(map[string]bool)
	for _, tag := range tags {
		switch t := tag.Target.(type) {
		case kbModels.DepartmentTarget:
			departmentIDs = append(departmentIDs, t.DepartmentID)
		case kbModels.CollectionTarget:
			// driven by collection membership
		default:
			manual[tag.ID] = true
		}
	}

	departmentsChanged := !sameSet(departmentIDs, doc.DepartmentIDs)
	doc.DepartmentIDs = departmentIDs
	if departmentsChanged {
		if err := ValidateVisibility("document", doc.ID, doc.Visibility()); err != nil {
			return nil, err
		}
	}

	err = s.txManager.ExecTx(ctx, func(txCtx context.Context) error {
		if departmentsChanged {
			if err := s.repos.Documents.SetDepartments(txCtx, doc.ID, departmentIDs); err != nil {
				return err
			}
			if _, err := s.tagSync.SyncDepartmentTags(txCtx, doc.OrgID, kbModels.DocumentOwner(doc.ID), departmentIDs); err != nil {
				return err
			}
		}
		if err := s.syncManualTags(txCtx, doc.ID, manual); err != nil {
			return err
		}
		return s.versions.record(txCtx, doc, actor.UserID)
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("document tags set",
		"id", doc.ID,
		"departments", len(departmentIDs),
		"manual_tags", len(manual),
	)
	s.indexer.Changed(doc.OrgID, kbModels.ResultDocument, doc.ID)

	return s.loadDetail(ctx, doc.ID, doc.OrgID)
}

// syncManualTags makes the document's non-structural tags equal wanted
func (s *documentService) syncManualTags(ctx context.Context, documentID string, wanted map[string]bool) error {
	owner := kbModels.DocumentOwner(documentID)
	current, err := s.repos.Tags.ListAttached(ctx, owner)
	if err != nil {
		return err
	}
	have := make(map[string]bool, len(current))
	for _, tag := range current {
		if tag.IsStructural() {
			continue
		}
		have[tag.ID] = true
		if !wanted[tag.ID] {
			if err := s.repos.Tags.Detach(ctx, owner, tag.ID); err != nil {
				return err
			}
		}
	}
	for id := range wanted {
		if have[id] {
			continue
		}
		if err := s.repos.Tags.Attach(ctx, owner, id); err != nil {
			return err
		}
	}
	return nil
}

// DetachTag removes one manual tag from the document
func (s *documentService) DetachTag(ctx context.Context, actor *models.Actor, id, tagID string) (*kbModels.Document, error) {
	if err := s.authorizer.CanWrite(actor); err != nil {
		return nil, err
	}
	doc, err := s.getVisible(ctx, actor, id)
	if err != nil {
		return nil, err
	}
	tag, err := s.repos.Tags.GetByID(ctx, tagID, actor.OrgID)
	if err != nil {
		return nil, err
	}
	if err := CheckTagMutable(tag); err != nil {
		return nil, err
	}

	err = s.txManager.ExecTx(ctx, func(txCtx context.Context) error {
		if err := s.repos.Tags.Detach(txCtx, kbModels.DocumentOwner(doc.ID), tag.ID); err != nil {
			return err
		}
		return s.versions.record(txCtx, doc, actor.UserID)
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("document tag detached",
		"id", doc.ID,
		"tag_id", tag.ID,
	)

	return s.loadDetail(ctx, doc.ID, doc.OrgID)
}

// SetCollections replaces the document's collection membership and syncs
// the collection tags to match.
func (s *documentService) SetCollections(ctx context.Context, actor *models.Actor, id string, req *kbSvc.SetCollectionsRequest) (*kbModels.Document, error) {
	if err := s.authorizer.CanWrite(actor); err != nil {
		return nil, err
	}
	doc, err := s.getVisible(ctx, actor, id)
	if err != nil {
		return nil, err
	}

	wanted := dedupe(req.CollectionIDs)
	cols, err := s.repos.Collections.ListByIDs(ctx, actor.OrgID, wanted)
	if err != nil {
		return nil, err
	}
	if len(cols) != len(wanted) || len(visibleCollections(actor, cols)) != len(cols) {
		return nil, &domain.ValidationError{Message: "one or more collections do not exist"}
	}

	err = s.txManager.ExecTx(ctx, func(txCtx context.Context) error {
		current, err := s.repos.Collections.ListIDsForDocument(txCtx, doc.ID)
		if err != nil {
			return err
		}
		// memberships the actor cannot see are left alone
		currentCols, err := s.repos.Collections.ListByIDs(txCtx, doc.OrgID, current)
		if err != nil {
			return err
		}
		for _, col := range currentCols {
			if !canView(actor, col.Visibility()) && !containsID(wanted, col.ID) {
				wanted = append(wanted, col.ID)
			}
		}
		for _, colID := range current {
			if !containsID(wanted, colID) {
				if err := s.repos.Collections.RemoveDocument(txCtx, colID, doc.ID); err != nil {
					return err
				}
			}
		}
		for _, colID := range wanted {
			if !containsID(current, colID) {
				if err := s.repos.Collections.AddDocument(txCtx, colID, doc.ID); err != nil {
					return err
				}
			}
		}
		if _, err := s.tagSync.SyncCollectionTags(txCtx, doc.OrgID, doc.ID, wanted); err != nil {
			return err
		}
		return s.versions.record(txCtx, doc, actor.UserID)
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("document collections set",
		"id", doc.ID,
		"collections", len(wanted),
	)
	s.indexer.Changed(doc.OrgID, kbModels.ResultDocument, doc.ID)

	return s.loadDetail(ctx, doc.ID, doc.OrgID)
}

// getVisible loads a document, reporting hidden ones as missing
func (s *documentService) getVisible(ctx context.Context, actor *models.Actor, id string) (*kbModels.Document, error) {
	if err := s.authorizer.CanRead(actor); err != nil {
		return nil, err
	}
	doc, err := s.repos.Documents.GetByID(ctx, id, actor.OrgID)
	if err != nil {
		return nil, err
	}
	if !canView(actor, doc.Visibility()) {
		return nil, notFoundIfHidden("document", id)
	}
	return doc, nil
}

// loadDetail reads the document with tags, sections, links and word count
func (s *documentService) loadDetail(ctx context.Context, id, orgID string) (*kbModels.Document, error) {
	doc, err := s.repos.Documents.GetByID(ctx, id, orgID)
	if err != nil {
		return nil, err
	}
	doc.Tags, err = s.repos.Tags.ListAttached(ctx, kbModels.DocumentOwner(id))
	if err != nil {
		return nil, err
	}
	doc.Sections, err = s.repos.Sections.ListByDocument(ctx, id)
	if err != nil {
		return nil, err
	}
	doc.Links, err = s.repos.Links.ListByDocument(ctx, id)
	if err != nil {
		return nil, err
	}

	words := 0
	for i := range doc.Sections {
		s.resolveImage(&doc.Sections[i])
		words += utils.CountWords(doc.Sections[i].BodyMD)
	}
	doc.WordCount = words

	return doc, nil
}

func (s *documentService) resolveImage(section *kbModels.Section) {
	if section.ImageKey == nil || s.media == nil {
		return
	}
	url := s.media.PublicURL(*section.ImageKey)
	section.ImageURL = &url
}

// validateCreateRequest validates a create document request
func (s *documentService) validateCreateRequest(req *kbSvc.CreateDocumentRequest) error {
	return validation.ValidateStruct(req,
		validation.Field(&req.Title, validation.Required, validation.Length(1, config.MaxNameLength)),
		validation.Field(&req.Status, validation.By(validateStatus)),
		validation.Field(&req.Sections, validation.Each(validation.By(validateSectionInput))),
		validation.Field(&req.Links, validation.Each(validation.By(validateLinkInput))),
	)
}

// validateStatus accepts nil or a known document status
func validateStatus(value interface{}) error {
	status, ok := value.(*string)
	if !ok || status == nil {
		return nil
	}
	if !kbModels.DocumentStatus(*status).IsValid() {
		return fmt.Errorf("must be one of draft, published, archived")
	}
	return nil
}

func validateSectionInput(value interface{}) error {
	in, ok := value.(kbSvc.SectionInput)
	if !ok {
		return fmt.Errorf("invalid section")
	}
	return validation.ValidateStruct(&in,
		validation.Field(&in.Header, validation.Length(0, config.MaxSectionHeaderLength)),
		validation.Field(&in.BodyMD, validation.Length(0, config.MaxSectionBodyLength)),
	)
}

func validateLinkInput(value interface{}) error {
	in, ok := value.(kbSvc.LinkInput)
	if !ok {
		return fmt.Errorf("invalid link")
	}
	return validation.ValidateStruct(&in,
		validation.Field(&in.Title, validation.Required, validation.Length(1, config.MaxNameLength)),
		validation.Field(&in.URL, validation.Required, validation.Length(1, config.MaxURLLength), is.URL),
		validation.Field(&in.Note, validation.Length(0, config.MaxLinkNoteLength)),
	)
}
