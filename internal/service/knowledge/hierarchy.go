package knowledge

import (
	"context"
	"fmt"

	"knowledgestack/internal/domain"
	kbModels "knowledgestack/internal/domain/models/knowledge"
)

// CollectionTree is the read access the hierarchy manager needs.
type CollectionTree interface {
	GetByID(ctx context.Context, id, orgID string) (*kbModels.Collection, error)
	ListChildren(ctx context.Context, orgID string, parentID *string) ([]kbModels.Collection, error)
}

// HierarchyManager validates collection parent links.
type HierarchyManager struct {
	tree CollectionTree
}

// NewHierarchyManager creates a hierarchy manager over tree
func NewHierarchyManager(tree CollectionTree) *HierarchyManager {
	return &HierarchyManager{tree: tree}
}

// SetParent points col at newParentID (nil = root). It fails with a
// HierarchyError if the new parent is col itself or one of its descendants,
// and leaves col untouched on any error. The caller persists col.
func (h *HierarchyManager) SetParent(ctx context.Context, col *kbModels.Collection, newParentID *string) error {
	if newParentID == nil || *newParentID == "" {
		col.ParentID = nil
		return nil
	}
	parentID := *newParentID

	if col.ID != "" && parentID == col.ID {
		return &domain.HierarchyError{ErrKind: domain.KindSelfNesting, CollectionID: col.ID, ParentID: parentID}
	}

	if _, err := h.tree.GetByID(ctx, parentID, col.OrgID); err != nil {
		return fmt.Errorf("parent collection: %w", err)
	}

	// A collection being created has no descendants yet
	if col.ID != "" {
		isDescendant, err := h.hasAncestor(ctx, col.OrgID, parentID, col.ID)
		if err != nil {
			return err
		}
		if isDescendant {
			return &domain.HierarchyError{ErrKind: domain.KindCycle, CollectionID: col.ID, ParentID: parentID}
		}
	}

	col.ParentID = &parentID
	return nil
}

// hasAncestor walks parent pointers from startID and reports whether it
// reaches targetID. startID itself counts. The walk stops on a repeated id
// so a pre-existing cycle elsewhere cannot hang it.
func (h *HierarchyManager) hasAncestor(ctx context.Context, orgID, startID, targetID string) (bool, error) {
	visited := make(map[string]bool)
	current := &startID
	for current != nil {
		id := *current
		if id == targetID {
			return true, nil
		}
		if visited[id] {
			return false, nil
		}
		visited[id] = true

		node, err := h.tree.GetByID(ctx, id, orgID)
		if err != nil {
			return false, fmt.Errorf("walk ancestors of %s: %w", startID, err)
		}
		current = node.ParentID
	}
	return false, nil
}

// ListDescendants returns the ids of every collection below col, breadth
// first. col itself is never included.
func (h *HierarchyManager) ListDescendants(ctx context.Context, col *kbModels.Collection) ([]string, error) {
	visited := map[string]bool{col.ID: true}
	queue := []string{col.ID}
	var descendants []string

	for len(queue) > 0 {
		id := queue[0]
		queue = queue[1:]

		children, err := h.tree.ListChildren(ctx, col.OrgID, &id)
		if err != nil {
			return nil, fmt.Errorf("list children of %s: %w", id, err)
		}
		for _, child := range children {
			if visited[child.ID] {
				continue
			}
			visited[child.ID] = true
			descendants = append(descendants, child.ID)
			queue = append(queue, child.ID)
		}
	}

	return descendants, nil
}

// ListAncestors returns col's ancestors ordered from the root down to the
// direct parent.
func (h *HierarchyManager) ListAncestors(ctx context.Context, col *kbModels.Collection) ([]kbModels.Collection, error) {
	visited := map[string]bool{col.ID: true}
	var chain []kbModels.Collection

	for current := col.ParentID; current != nil; {
		if visited[*current] {
			break
		}
		visited[*current] = true

		node, err := h.tree.GetByID(ctx, *current, col.OrgID)
		if err != nil {
			return nil, fmt.Errorf("list ancestors of %s: %w", col.ID, err)
		}
		chain = append(chain, *node)
		current = node.ParentID
	}

	for i, j := 0, len(chain)-1; i < j; i, j = i+1, j-1 {
		chain[i], chain[j] = chain[j], chain[i]
	}
	return chain, nil
}
