package knowledge

import (
	"knowledgestack/internal/domain"
	"knowledgestack/internal/domain/models"
	kbModels "knowledgestack/internal/domain/models/knowledge"
)

// ValidateVisibility rejects a restricted entity with no departments. It
// must run on every create, and on every update touching everyone or the
// department set, before anything is written.
func ValidateVisibility(entityType, entityID string, v kbModels.Visibility) error {
	if !v.Everyone && len(v.DepartmentIDs) == 0 {
		return &domain.VisibilityError{EntityType: entityType, EntityID: entityID}
	}
	return nil
}

// IsVisibleTo reports whether a viewer belonging to viewerDepartmentIDs can
// see an entity with visibility v.
func IsVisibleTo(v kbModels.Visibility, viewerDepartmentIDs []string) bool {
	if v.Everyone {
		return true
	}
	return intersects(v.DepartmentIDs, viewerDepartmentIDs)
}

// IsEligible reports whether child may be offered as a candidate for
// parent. An empty department set on either side counts as unrestricted.
// This only filters pickers; adding an ineligible child is not rejected.
func IsEligible(child, parent kbModels.Visibility) bool {
	if parent.Everyone || child.Everyone {
		return true
	}
	if len(child.DepartmentIDs) == 0 || len(parent.DepartmentIDs) == 0 {
		return true
	}
	return intersects(child.DepartmentIDs, parent.DepartmentIDs)
}

// canView applies IsVisibleTo for the actor; admins see everything.
func canView(actor *models.Actor, v kbModels.Visibility) bool {
	if actor.IsAdmin() {
		return true
	}
	return IsVisibleTo(v, actor.DepartmentIDs)
}

func intersects(a, b []string) bool {
	if len(a) == 0 || len(b) == 0 {
		return false
	}
	set := make(map[string]struct{}, len(a))
	for _, id := range a {
		set[id] = struct{}{}
	}
	for _, id := range b {
		if _, ok := set[id]; ok {
			return true
		}
	}
	return false
}
