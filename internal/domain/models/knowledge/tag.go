package knowledge

import (
	"encoding/json"
	"fmt"
	"time"
)

// TargetKind names the variant of a TagTarget.
type TargetKind string

const (
	TargetDepartment TargetKind = "department"
	TargetCollection TargetKind = "collection"
	TargetDocument   TargetKind = "document"
	TargetExternal   TargetKind = "external"
	TargetNone       TargetKind = "none"
)

// TagTarget is what a tag points at. It is one of DepartmentTarget,
// CollectionTarget, DocumentTarget, ExternalTarget or NoTarget.
type TagTarget interface {
	Kind() TargetKind
	isTagTarget()
}

type DepartmentTarget struct{ DepartmentID string }
type CollectionTarget struct{ CollectionID string }
type DocumentTarget struct{ DocumentID string }
type ExternalTarget struct{ URL string }
type NoTarget struct{}

func (DepartmentTarget) Kind() TargetKind { return TargetDepartment }
func (CollectionTarget) Kind() TargetKind { return TargetCollection }
func (DocumentTarget) Kind() TargetKind   { return TargetDocument }
func (ExternalTarget) Kind() TargetKind   { return TargetExternal }
func (NoTarget) Kind() TargetKind         { return TargetNone }

func (DepartmentTarget) isTagTarget() {}
func (CollectionTarget) isTagTarget() {}
func (DocumentTarget) isTagTarget()   {}
func (ExternalTarget) isTagTarget()   {}
func (NoTarget) isTagTarget()         {}

// IsStructural reports whether a target is maintained by membership sync.
// A nil target is treated as NoTarget.
func IsStructural(t TagTarget) bool {
	if t == nil {
		return false
	}
	switch t.Kind() {
	case TargetDepartment, TargetCollection:
		return true
	}
	return false
}

// TargetID returns the referenced entity id for department, collection and
// document targets, and "" otherwise.
func TargetID(t TagTarget) string {
	switch v := t.(type) {
	case DepartmentTarget:
		return v.DepartmentID
	case CollectionTarget:
		return v.CollectionID
	case DocumentTarget:
		return v.DocumentID
	}
	return ""
}

// TargetURL returns the link URL for external targets and "" otherwise.
func TargetURL(t TagTarget) string {
	if v, ok := t.(ExternalTarget); ok {
		return v.URL
	}
	return ""
}

// NewTagTarget rebuilds a target from its stored columns.
func NewTagTarget(kind TargetKind, targetID, linkURL string) (TagTarget, error) {
	switch kind {
	case TargetDepartment:
		if targetID == "" {
			return nil, fmt.Errorf("department target requires an id")
		}
		return DepartmentTarget{DepartmentID: targetID}, nil
	case TargetCollection:
		if targetID == "" {
			return nil, fmt.Errorf("collection target requires an id")
		}
		return CollectionTarget{CollectionID: targetID}, nil
	case TargetDocument:
		if targetID == "" {
			return nil, fmt.Errorf("document target requires an id")
		}
		return DocumentTarget{DocumentID: targetID}, nil
	case TargetExternal:
		if linkURL == "" {
			return nil, fmt.Errorf("external target requires a url")
		}
		return ExternalTarget{URL: linkURL}, nil
	case TargetNone, "":
		return NoTarget{}, nil
	default:
		return nil, fmt.Errorf("unknown tag target kind %q", kind)
	}
}

type Tag struct {
	ID          string    `json:"id" db:"id"`
	OrgID       string    `json:"org_id" db:"org_id"`
	Name        string    `json:"name" db:"name"`
	Slug        string    `json:"slug" db:"slug"`
	Description string    `json:"description" db:"description"`
	Target      TagTarget `json:"-"`
	CreatedAt   time.Time `json:"created_at" db:"created_at"`
}

// IsStructural reports whether the tag is managed by membership sync.
func (t *Tag) IsStructural() bool {
	return IsStructural(t.Target)
}

// TargetKind returns the kind of the tag's target.
func (t *Tag) TargetKind() TargetKind {
	if t.Target == nil {
		return TargetNone
	}
	return t.Target.Kind()
}

// MarshalJSON flattens the target into target_kind/target_id/link_url.
func (t Tag) MarshalJSON() ([]byte, error) {
	type tagAlias Tag
	var targetID *string
	if id := TargetID(t.Target); id != "" {
		targetID = &id
	}
	return json.Marshal(struct {
		tagAlias
		TargetKind TargetKind `json:"target_kind"`
		TargetID   *string    `json:"target_id"`
		LinkURL    string     `json:"link_url"`
		Structural bool       `json:"structural"`
	}{
		tagAlias:   tagAlias(t),
		TargetKind: t.TargetKind(),
		TargetID:   targetID,
		LinkURL:    TargetURL(t.Target),
		Structural: t.IsStructural(),
	})
}

// OwnerKind identifies which kind of entity a tag is attached to.
type OwnerKind string

const (
	OwnerDocument   OwnerKind = "document"
	OwnerCollection OwnerKind = "collection"
)

// TagOwner is an entity that carries tags.
type TagOwner struct {
	Kind OwnerKind
	ID   string
}

func DocumentOwner(id string) TagOwner   { return TagOwner{Kind: OwnerDocument, ID: id} }
func CollectionOwner(id string) TagOwner { return TagOwner{Kind: OwnerCollection, ID: id} }
