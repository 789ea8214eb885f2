package knowledge

import (
	"context"
	"fmt"
	"strings"
	"time"

	"knowledgestack/internal/config"
	"knowledgestack/internal/domain/models"
	kbModels "knowledgestack/internal/domain/models/knowledge"
	"knowledgestack/internal/domain/services"
	kbSvc "knowledgestack/internal/domain/services/knowledge"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/go-ozzo/ozzo-validation/v4/is"
)

// AddSection appends a section to the document
func (s *documentService) AddSection(ctx context.Context, actor *models.Actor, id string, req *kbSvc.SectionInput) (*kbModels.Section, error) {
	if err := s.authorizer.CanWrite(actor); err != nil {
		return nil, err
	}
	if err := validateSectionInput(*req); err != nil {
		return nil, validationErr(err)
	}
	doc, err := s.getVisible(ctx, actor, id)
	if err != nil {
		return nil, err
	}

	section := &kbModels.Section{
		DocumentID: doc.ID,
		Header:     strings.TrimSpace(req.Header),
		BodyMD:     req.BodyMD,
		CreatedAt:  time.Now(),
	}
	err = s.txManager.ExecTx(ctx, func(txCtx context.Context) error {
		existing, err := s.repos.Sections.ListByDocument(txCtx, doc.ID)
		if err != nil {
			return err
		}
		section.Order = len(existing)
		if err := s.repos.Sections.Create(txCtx, section); err != nil {
			return err
		}
		return s.repos.Documents.Touch(txCtx, doc.ID)
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("section added",
		"document_id", doc.ID,
		"section_id", section.ID,
		"order", section.Order,
	)
	s.indexer.Changed(doc.OrgID, kbModels.ResultDocument, doc.ID)

	return section, nil
}

func (s *documentService) UpdateSection(ctx context.Context, actor *models.Actor, id, sectionID string, req *kbSvc.UpdateSectionRequest) (*kbModels.Section, error) {
	if err := s.authorizer.CanWrite(actor); err != nil {
		return nil, err
	}
	if err := validation.ValidateStruct(req,
		validation.Field(&req.Header, validation.Length(0, config.MaxSectionHeaderLength)),
		validation.Field(&req.BodyMD, validation.Length(0, config.MaxSectionBodyLength)),
	); err != nil {
		return nil, validationErr(err)
	}
	doc, err := s.getVisible(ctx, actor, id)
	if err != nil {
		return nil, err
	}
	section, err := s.repos.Sections.GetByID(ctx, sectionID, doc.ID)
	if err != nil {
		return nil, err
	}

	if req.Header != nil {
		section.Header = strings.TrimSpace(*req.Header)
	}
	if req.BodyMD != nil {
		section.BodyMD = *req.BodyMD
	}

	err = s.txManager.ExecTx(ctx, func(txCtx context.Context) error {
		if err := s.repos.Sections.Update(txCtx, section); err != nil {
			return err
		}
		return s.repos.Documents.Touch(txCtx, doc.ID)
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("section updated",
		"document_id", doc.ID,
		"section_id", section.ID,
	)
	s.indexer.Changed(doc.OrgID, kbModels.ResultDocument, doc.ID)
	s.resolveImage(section)

	return section, nil
}

// DeleteSection deletes a section and closes the gap in the order
func (s *documentService) DeleteSection(ctx context.Context, actor *models.Actor, id, sectionID string) error {
	if err := s.authorizer.CanWrite(actor); err != nil {
		return err
	}
	doc, err := s.getVisible(ctx, actor, id)
	if err != nil {
		return err
	}
	section, err := s.repos.Sections.GetByID(ctx, sectionID, doc.ID)
	if err != nil {
		return err
	}

	err = s.txManager.ExecTx(ctx, func(txCtx context.Context) error {
		if err := s.repos.Sections.Delete(txCtx, section.ID, doc.ID); err != nil {
			return err
		}
		remaining, err := s.repos.Sections.ListByDocument(txCtx, doc.ID)
		if err != nil {
			return err
		}
		if err := s.repos.Sections.SetOrder(txCtx, doc.ID, sectionIDs(remaining)); err != nil {
			return err
		}
		return s.repos.Documents.Touch(txCtx, doc.ID)
	})
	if err != nil {
		return err
	}

	if section.ImageKey != nil && s.media != nil {
		if err := s.media.Remove(ctx, *section.ImageKey); err != nil {
			s.logger.Warn("failed to remove section image", "key", *section.ImageKey, "error", err)
		}
	}

	s.logger.Info("section deleted",
		"document_id", doc.ID,
		"section_id", section.ID,
	)
	s.indexer.Changed(doc.OrgID, kbModels.ResultDocument, doc.ID)

	return nil
}

// ReorderSections puts the listed sections first in the given order and
// appends the rest in their previous order. Unknown ids are ignored.
func (s *documentService) ReorderSections(ctx context.Context, actor *models.Actor, id string, req *kbSvc.ReorderSectionsRequest) ([]kbModels.Section, error) {
	if err := s.authorizer.CanWrite(actor); err != nil {
		return nil, err
	}
	doc, err := s.getVisible(ctx, actor, id)
	if err != nil {
		return nil, err
	}

	var sections []kbModels.Section
	err = s.txManager.ExecTx(ctx, func(txCtx context.Context) error {
		existing, err := s.repos.Sections.ListByDocument(txCtx, doc.ID)
		if err != nil {
			return err
		}
		if err := s.repos.Sections.SetOrder(txCtx, doc.ID, ReorderIDs(sectionIDs(existing), req.SectionIDs)); err != nil {
			return err
		}
		if err := s.versions.record(txCtx, doc, actor.UserID); err != nil {
			return err
		}
		sections, err = s.repos.Sections.ListByDocument(txCtx, doc.ID)
		return err
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("sections reordered",
		"document_id", doc.ID,
		"count", len(sections),
	)
	for i := range sections {
		s.resolveImage(&sections[i])
	}

	return sections, nil
}

// UploadSectionImage stores an image for a section, replacing and removing
// any previous one.
func (s *documentService) UploadSectionImage(ctx context.Context, actor *models.Actor, id, sectionID string, upload *services.Upload) (*kbModels.Section, error) {
	if err := s.authorizer.CanWrite(actor); err != nil {
		return nil, err
	}
	doc, err := s.getVisible(ctx, actor, id)
	if err != nil {
		return nil, err
	}
	section, err := s.repos.Sections.GetByID(ctx, sectionID, doc.ID)
	if err != nil {
		return nil, err
	}

	if s.media == nil {
		return nil, fmt.Errorf("media storage is not configured")
	}
	key, err := s.media.Put(ctx, doc.OrgID, "sections", upload)
	if err != nil {
		return nil, err
	}
	previous := section.ImageKey
	section.ImageKey = &key

	if err := s.repos.Sections.Update(ctx, section); err != nil {
		if rmErr := s.media.Remove(ctx, key); rmErr != nil {
			s.logger.Warn("failed to remove orphaned upload", "key", key, "error", rmErr)
		}
		return nil, err
	}
	if previous != nil {
		if err := s.media.Remove(ctx, *previous); err != nil {
			s.logger.Warn("failed to remove replaced section image", "key", *previous, "error", err)
		}
	}

	s.logger.Info("section image uploaded",
		"document_id", doc.ID,
		"section_id", section.ID,
		"key", key,
	)
	s.resolveImage(section)

	return section, nil
}

// AddLink appends a resource link to the document
func (s *documentService) AddLink(ctx context.Context, actor *models.Actor, id string, req *kbSvc.LinkInput) (*kbModels.ResourceLink, error) {
	if err := s.authorizer.CanWrite(actor); err != nil {
		return nil, err
	}
	if err := validateLinkInput(*req); err != nil {
		return nil, validationErr(err)
	}
	doc, err := s.getVisible(ctx, actor, id)
	if err != nil {
		return nil, err
	}

	link := &kbModels.ResourceLink{
		DocumentID: doc.ID,
		Title:      strings.TrimSpace(req.Title),
		URL:        strings.TrimSpace(req.URL),
		Note:       req.Note,
	}
	err = s.txManager.ExecTx(ctx, func(txCtx context.Context) error {
		existing, err := s.repos.Links.ListByDocument(txCtx, doc.ID)
		if err != nil {
			return err
		}
		link.Order = len(existing)
		if err := s.repos.Links.Create(txCtx, link); err != nil {
			return err
		}
		return s.repos.Documents.Touch(txCtx, doc.ID)
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("link added",
		"document_id", doc.ID,
		"link_id", link.ID,
	)
	s.indexer.Changed(doc.OrgID, kbModels.ResultDocument, doc.ID)

	return link, nil
}

func (s *documentService) UpdateLink(ctx context.Context, actor *models.Actor, id, linkID string, req *kbSvc.UpdateLinkRequest) (*kbModels.ResourceLink, error) {
	if err := s.authorizer.CanWrite(actor); err != nil {
		return nil, err
	}
	if err := validation.ValidateStruct(req,
		validation.Field(&req.Title, validation.NilOrNotEmpty, validation.Length(1, config.MaxNameLength)),
		validation.Field(&req.URL, validation.NilOrNotEmpty, validation.Length(1, config.MaxURLLength), is.URL),
		validation.Field(&req.Note, validation.Length(0, config.MaxLinkNoteLength)),
	); err != nil {
		return nil, validationErr(err)
	}
	doc, err := s.getVisible(ctx, actor, id)
	if err != nil {
		return nil, err
	}
	link, err := s.repos.Links.GetByID(ctx, linkID, doc.ID)
	if err != nil {
		return nil, err
	}

	if req.Title != nil {
		link.Title = strings.TrimSpace(*req.Title)
	}
	if req.URL != nil {
		link.URL = strings.TrimSpace(*req.URL)
	}
	if req.Note != nil {
		link.Note = *req.Note
	}

	err = s.txManager.ExecTx(ctx, func(txCtx context.Context) error {
		if err := s.repos.Links.Update(txCtx, link); err != nil {
			return err
		}
		return s.repos.Documents.Touch(txCtx, doc.ID)
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("link updated",
		"document_id", doc.ID,
		"link_id", link.ID,
	)
	s.indexer.Changed(doc.OrgID, kbModels.ResultDocument, doc.ID)

	return link, nil
}

// DeleteLink deletes a resource link and closes the gap in the order
func (s *documentService) DeleteLink(ctx context.Context, actor *models.Actor, id, linkID string) error {
	if err := s.authorizer.CanWrite(actor); err != nil {
		return err
	}
	doc, err := s.getVisible(ctx, actor, id)
	if err != nil {
		return err
	}
	if _, err := s.repos.Links.GetByID(ctx, linkID, doc.ID); err != nil {
		return err
	}

	err = s.txManager.ExecTx(ctx, func(txCtx context.Context) error {
		if err := s.repos.Links.Delete(txCtx, linkID, doc.ID); err != nil {
			return err
		}
		remaining, err := s.repos.Links.ListByDocument(txCtx, doc.ID)
		if err != nil {
			return err
		}
		ids := make([]string, 0, len(remaining))
		for _, l := range remaining {
			ids = append(ids, l.ID)
		}
		if err := s.repos.Links.SetOrder(txCtx, doc.ID, ids); err != nil {
			return err
		}
		return s.repos.Documents.Touch(txCtx, doc.ID)
	})
	if err != nil {
		return err
	}

	s.logger.Info("link deleted",
		"document_id", doc.ID,
		"link_id", linkID,
	)
	s.indexer.Changed(doc.OrgID, kbModels.ResultDocument, doc.ID)

	return nil
}

func (s *documentService) ListVersions(ctx context.Context, actor *models.Actor, id string) ([]kbModels.DocumentVersion, error) {
	doc, err := s.getVisible(ctx, actor, id)
	if err != nil {
		return nil, err
	}
	return s.repos.Versions.ListByDocument(ctx, doc.ID)
}

// ReorderIDs returns the requested ids that exist in existing, in request
// order without duplicates, followed by the remaining existing ids in
// their current order.
func ReorderIDs(existing, requested []string) []string {
	known := make(map[string]bool, len(existing))
	for _, id := range existing {
		known[id] = true
	}

	placed := make(map[string]bool, len(existing))
	ordered := make([]string, 0, len(existing))
	for _, id := range requested {
		if known[id] && !placed[id] {
			placed[id] = true
			ordered = append(ordered, id)
		}
	}
	for _, id := range existing {
		if !placed[id] {
			ordered = append(ordered, id)
		}
	}
	return ordered
}

func sectionIDs(sections []kbModels.Section) []string {
	ids := make([]string, 0, len(sections))
	for _, s := range sections {
		ids = append(ids, s.ID)
	}
	return ids
}
