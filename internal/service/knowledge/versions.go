package knowledge

import (
	"context"
	"fmt"
	"time"

	kbModels "knowledgestack/internal/domain/models/knowledge"
	kbRepo "knowledgestack/internal/domain/repositories/knowledge"
)

// versionRecorder snapshots a document's metadata and memberships. It runs
// inside the mutating transaction so the snapshot matches what committed.
type versionRecorder struct {
	documentRepo   kbRepo.DocumentRepository
	collectionRepo kbRepo.CollectionRepository
	tagRepo        kbRepo.TagRepository
	versionRepo    kbRepo.VersionRepository
}

func (v *versionRecorder) record(ctx context.Context, doc *kbModels.Document, userID string) error {
	tags, err := v.tagRepo.ListAttached(ctx, kbModels.DocumentOwner(doc.ID))
	if err != nil {
		return fmt.Errorf("snapshot tags: %w", err)
	}
	collectionIDs, err := v.collectionRepo.ListIDsForDocument(ctx, doc.ID)
	if err != nil {
		return fmt.Errorf("snapshot collections: %w", err)
	}

	version := &kbModels.DocumentVersion{
		DocumentID:    doc.ID,
		OrgID:         doc.OrgID,
		CreatedAt:     time.Now(),
		Title:         doc.Title,
		Status:        doc.Status,
		Everyone:      doc.Everyone,
		TagIDs:        tagIDs(tags),
		CollectionIDs: nonNil(collectionIDs),
		DepartmentIDs: nonNil(doc.DepartmentIDs),
	}
	if userID != "" {
		version.CreatedBy = &userID
	}

	if err := v.versionRepo.Create(ctx, version); err != nil {
		return fmt.Errorf("snapshot document: %w", err)
	}
	if err := v.documentRepo.Touch(ctx, doc.ID); err != nil {
		return fmt.Errorf("touch document: %w", err)
	}
	return nil
}

func nonNil(ids []string) []string {
	if ids == nil {
		return []string{}
	}
	return ids
}
