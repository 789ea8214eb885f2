package knowledge

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"

	"knowledgestack/internal/config"
	"knowledgestack/internal/domain"
	kbModels "knowledgestack/internal/domain/models/knowledge"
	kbRepo "knowledgestack/internal/domain/repositories/knowledge"
	"knowledgestack/internal/utils"
)

var slugPattern = regexp.MustCompile(`^[a-z0-9]+(?:-[a-z0-9]+)*$`)

// resolveSlug returns the explicit slug when given, else one derived from name
func resolveSlug(explicit *string, name string) (string, error) {
	if explicit != nil && strings.TrimSpace(*explicit) != "" {
		slug := strings.TrimSpace(*explicit)
		if len(slug) > config.MaxSlugLength || !slugPattern.MatchString(slug) {
			return "", &domain.ValidationError{Message: fmt.Sprintf("invalid slug %q: use lowercase letters, digits and single hyphens", slug)}
		}
		return slug, nil
	}
	slug := utils.Slugify(name, config.MaxSlugLength)
	if slug == "" {
		return "", &domain.ValidationError{Message: "name must contain at least one letter or digit"}
	}
	return slug, nil
}

// requireDepartments checks that every id names a department of the org
// and returns the ids deduplicated.
func requireDepartments(ctx context.Context, repo kbRepo.DepartmentRepository, orgID string, ids []string) ([]string, error) {
	ids = dedupe(ids)
	if len(ids) == 0 {
		return ids, nil
	}
	depts, err := repo.ListByIDs(ctx, orgID, ids)
	if err != nil {
		return nil, fmt.Errorf("load departments: %w", err)
	}
	if len(depts) != len(ids) {
		found := make(map[string]bool, len(depts))
		for _, d := range depts {
			found[d.ID] = true
		}
		for _, id := range ids {
			if !found[id] {
				return nil, &domain.ValidationError{Message: fmt.Sprintf("unknown department %s", id)}
			}
		}
	}
	return ids, nil
}

// validationErr wraps an ozzo validation failure as a domain validation error
func validationErr(err error) error {
	return fmt.Errorf("%w: %v", domain.ErrValidation, err)
}

// notFoundIfHidden hides restricted entities from viewers outside their
// departments.
func notFoundIfHidden(kind, id string) error {
	return fmt.Errorf("%s %s: %w", kind, id, domain.ErrNotFound)
}

func isNotFound(err error) bool {
	return errors.Is(err, domain.ErrNotFound)
}

func sameSet(a, b []string) bool {
	a, b = dedupe(a), dedupe(b)
	if len(a) != len(b) {
		return false
	}
	set := make(map[string]bool, len(a))
	for _, id := range a {
		set[id] = true
	}
	for _, id := range b {
		if !set[id] {
			return false
		}
	}
	return true
}

func containsID(ids []string, id string) bool {
	for _, v := range ids {
		if v == id {
			return true
		}
	}
	return false
}

func tagIDs(tags []kbModels.Tag) []string {
	ids := make([]string, 0, len(tags))
	for _, t := range tags {
		ids = append(ids, t.ID)
	}
	return ids
}
