package knowledge

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"knowledgestack/internal/domain"
	kbModels "knowledgestack/internal/domain/models/knowledge"
	kbRepo "knowledgestack/internal/domain/repositories/knowledge"
)

// TagSynchronizer keeps structural tags in step with department and
// collection membership. Every method is meant to run inside the
// transaction that changes the membership; store failures come back as
// *domain.TagSyncError so that transaction rolls back.
type TagSynchronizer struct {
	tagRepo        kbRepo.TagRepository
	departmentRepo kbRepo.DepartmentRepository
	collectionRepo kbRepo.CollectionRepository
	logger         *slog.Logger
}

// NewTagSynchronizer creates a new tag synchronizer
func NewTagSynchronizer(
	tagRepo kbRepo.TagRepository,
	departmentRepo kbRepo.DepartmentRepository,
	collectionRepo kbRepo.CollectionRepository,
	logger *slog.Logger,
) *TagSynchronizer {
	return &TagSynchronizer{
		tagRepo:        tagRepo,
		departmentRepo: departmentRepo,
		collectionRepo: collectionRepo,
		logger:         logger,
	}
}

// ProtectStructuralTag reports whether tag may only change through
// membership sync.
func ProtectStructuralTag(tag *kbModels.Tag) bool {
	return tag != nil && tag.IsStructural()
}

// CheckTagMutable returns an ImmutableTagError for structural tags.
func CheckTagMutable(tag *kbModels.Tag) error {
	if ProtectStructuralTag(tag) {
		return &domain.ImmutableTagError{TagID: tag.ID, TargetKind: string(tag.TargetKind())}
	}
	return nil
}

// EnsureDepartmentTag returns the department's tag, creating it on first
// use and renaming it if the department was renamed.
func (s *TagSynchronizer) EnsureDepartmentTag(ctx context.Context, dept *kbModels.Department) (*kbModels.Tag, error) {
	return s.ensure(ctx, dept.OrgID, kbModels.DepartmentTarget{DepartmentID: dept.ID}, dept.Name, dept.Slug)
}

// EnsureCollectionTag returns the collection's tag, creating it on first
// use and renaming it if the collection was renamed.
func (s *TagSynchronizer) EnsureCollectionTag(ctx context.Context, col *kbModels.Collection) (*kbModels.Tag, error) {
	return s.ensure(ctx, col.OrgID, kbModels.CollectionTarget{CollectionID: col.ID}, col.Name, col.Slug)
}

func (s *TagSynchronizer) ensure(ctx context.Context, orgID string, target kbModels.TagTarget, name, slug string) (*kbModels.Tag, error) {
	tag, err := s.tagRepo.FindByTarget(ctx, orgID, target)
	switch {
	case err == nil:
		if tag.Name == name && tag.Slug == slug {
			return tag, nil
		}
		tag.Name = name
		tag.Slug = slug
		if err := s.tagRepo.Update(ctx, tag); err != nil {
			return nil, &domain.TagSyncError{Op: "rename " + string(target.Kind()) + " tag", Err: err}
		}
		return tag, nil
	case errors.Is(err, domain.ErrNotFound):
		tag = &kbModels.Tag{
			OrgID:     orgID,
			Name:      name,
			Slug:      slug,
			Target:    target,
			CreatedAt: time.Now(),
		}
		if err := s.tagRepo.Create(ctx, tag); err != nil {
			return nil, &domain.TagSyncError{Op: "create " + string(target.Kind()) + " tag", Err: err}
		}
		s.logger.Debug("structural tag created",
			"tag_id", tag.ID,
			"target_kind", target.Kind(),
			"target_id", kbModels.TargetID(target),
		)
		return tag, nil
	default:
		return nil, &domain.TagSyncError{Op: "find " + string(target.Kind()) + " tag", Err: err}
	}
}

// SyncDepartmentTags makes the department tags attached to owner match
// departmentIDs exactly and returns owner's full tag set. Tags of other
// kinds are left alone.
func (s *TagSynchronizer) SyncDepartmentTags(ctx context.Context, orgID string, owner kbModels.TagOwner, departmentIDs []string) ([]kbModels.Tag, error) {
	ids := dedupe(departmentIDs)
	depts, err := s.departmentRepo.ListByIDs(ctx, orgID, ids)
	if err != nil {
		return nil, &domain.TagSyncError{Op: "load departments", Err: err}
	}
	if len(depts) != len(ids) {
		return nil, &domain.TagSyncError{
			Op:  "load departments",
			Err: fmt.Errorf("%d of %d departments not found: %w", len(ids)-len(depts), len(ids), domain.ErrNotFound),
		}
	}

	wanted := make([]string, 0, len(depts))
	for i := range depts {
		tag, err := s.EnsureDepartmentTag(ctx, &depts[i])
		if err != nil {
			return nil, err
		}
		wanted = append(wanted, tag.ID)
	}

	return s.syncKind(ctx, owner, kbModels.TargetDepartment, wanted)
}

// SyncCollectionTags makes the collection tags on a document match the
// collections it belongs to and returns the document's full tag set.
func (s *TagSynchronizer) SyncCollectionTags(ctx context.Context, orgID, documentID string, collectionIDs []string) ([]kbModels.Tag, error) {
	ids := dedupe(collectionIDs)
	cols, err := s.collectionRepo.ListByIDs(ctx, orgID, ids)
	if err != nil {
		return nil, &domain.TagSyncError{Op: "load collections", Err: err}
	}
	if len(cols) != len(ids) {
		return nil, &domain.TagSyncError{
			Op:  "load collections",
			Err: fmt.Errorf("%d of %d collections not found: %w", len(ids)-len(cols), len(ids), domain.ErrNotFound),
		}
	}

	wanted := make([]string, 0, len(cols))
	for i := range cols {
		tag, err := s.EnsureCollectionTag(ctx, &cols[i])
		if err != nil {
			return nil, err
		}
		wanted = append(wanted, tag.ID)
	}

	return s.syncKind(ctx, kbModels.DocumentOwner(documentID), kbModels.TargetCollection, wanted)
}

// AttachCollectionTag attaches col's tag to a document that just joined it.
func (s *TagSynchronizer) AttachCollectionTag(ctx context.Context, col *kbModels.Collection, documentID string) error {
	tag, err := s.EnsureCollectionTag(ctx, col)
	if err != nil {
		return err
	}
	if err := s.tagRepo.Attach(ctx, kbModels.DocumentOwner(documentID), tag.ID); err != nil {
		return &domain.TagSyncError{Op: "attach collection tag", Err: err}
	}
	return nil
}

// DetachCollectionTag removes col's tag from a document that just left it.
func (s *TagSynchronizer) DetachCollectionTag(ctx context.Context, col *kbModels.Collection, documentID string) error {
	tag, err := s.tagRepo.FindByTarget(ctx, col.OrgID, kbModels.CollectionTarget{CollectionID: col.ID})
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil
		}
		return &domain.TagSyncError{Op: "find collection tag", Err: err}
	}
	if err := s.tagRepo.Detach(ctx, kbModels.DocumentOwner(documentID), tag.ID); err != nil {
		return &domain.TagSyncError{Op: "detach collection tag", Err: err}
	}
	return nil
}

// RemoveCollectionTag deletes the tag of a collection that is being
// deleted, detaching it everywhere first.
func (s *TagSynchronizer) RemoveCollectionTag(ctx context.Context, col *kbModels.Collection) error {
	tag, err := s.tagRepo.FindByTarget(ctx, col.OrgID, kbModels.CollectionTarget{CollectionID: col.ID})
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil
		}
		return &domain.TagSyncError{Op: "find collection tag", Err: err}
	}
	if err := s.tagRepo.DetachEverywhere(ctx, tag.ID); err != nil {
		return &domain.TagSyncError{Op: "detach collection tag", Err: err}
	}
	if err := s.tagRepo.Delete(ctx, tag.ID, col.OrgID); err != nil {
		return &domain.TagSyncError{Op: "delete collection tag", Err: err}
	}
	s.logger.Debug("collection tag removed", "tag_id", tag.ID, "collection_id", col.ID)
	return nil
}

// syncKind detaches owner's tags of kind that are not in wanted and
// attaches the missing ones. Running it twice changes nothing.
func (s *TagSynchronizer) syncKind(ctx context.Context, owner kbModels.TagOwner, kind kbModels.TargetKind, wanted []string) ([]kbModels.Tag, error) {
	current, err := s.tagRepo.ListAttached(ctx, owner)
	if err != nil {
		return nil, &domain.TagSyncError{Op: "list attached tags", Err: err}
	}

	wantSet := make(map[string]bool, len(wanted))
	for _, id := range wanted {
		wantSet[id] = true
	}
	have := make(map[string]bool, len(current))
	for _, tag := range current {
		have[tag.ID] = true
		if tag.TargetKind() == kind && !wantSet[tag.ID] {
			if err := s.tagRepo.Detach(ctx, owner, tag.ID); err != nil {
				return nil, &domain.TagSyncError{Op: "detach " + string(kind) + " tag", Err: err}
			}
		}
	}
	for _, id := range wanted {
		if have[id] {
			continue
		}
		if err := s.tagRepo.Attach(ctx, owner, id); err != nil {
			return nil, &domain.TagSyncError{Op: "attach " + string(kind) + " tag", Err: err}
		}
	}

	tags, err := s.tagRepo.ListAttached(ctx, owner)
	if err != nil {
		return nil, &domain.TagSyncError{Op: "list attached tags", Err: err}
	}
	return tags, nil
}

// dedupe drops blanks and duplicates while keeping first-seen order.
func dedupe(ids []string) []string {
	seen := make(map[string]bool, len(ids))
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		if id == "" || seen[id] {
			continue
		}
		seen[id] = true
		out = append(out, id)
	}
	return out
}
