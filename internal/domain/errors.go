package domain

import (
	"errors"
	"fmt"
	"net/http"
)

// HTTPError defines errors that can be mapped to HTTP status codes.
type HTTPError interface {
	error
	StatusCode() int
}

// KindedError is an HTTPError that also carries a machine-readable kind,
// surfaced to API clients so they can attach the message to the right control.
type KindedError interface {
	HTTPError
	Kind() ErrorKind
}

// ErrorKind identifies a structural consistency failure.
type ErrorKind string

const (
	KindRestrictedWithNoDepartment ErrorKind = "restricted_with_no_department"
	KindSelfNesting                ErrorKind = "self_nesting"
	KindCycle                      ErrorKind = "cycle"
	KindImmutableTag               ErrorKind = "immutable_tag"
	KindTagSyncFailure             ErrorKind = "tag_sync_failure"
)

// Domain error types implementing HTTPError interface
type (
	// NotFoundError indicates a resource was not found
	NotFoundError struct {
		Message string
	}

	// ValidationError indicates invalid input
	ValidationError struct {
		Message string
	}

	// UnauthorizedError indicates authentication failure
	UnauthorizedError struct {
		Message string
	}

	// ForbiddenError indicates authorization failure
	ForbiddenError struct {
		Message string
	}
)

func (e *NotFoundError) Error() string { return e.Message }
func (e *ValidationError) Error() string { return e.Message }
func (e *UnauthorizedError) Error() string { return e.Message }
func (e *ForbiddenError) Error() string { return e.Message }

func (e *NotFoundError) StatusCode() int { return http.StatusNotFound }
func (e *ValidationError) StatusCode() int { return http.StatusBadRequest }
func (e *UnauthorizedError) StatusCode() int { return http.StatusUnauthorized }
func (e *ForbiddenError) StatusCode() int { return http.StatusForbidden }

func (e *NotFoundError) Is(target error) bool { return target == ErrNotFound }
func (e *ValidationError) Is(target error) bool { return target == ErrValidation }
func (e *UnauthorizedError) Is(target error) bool { return target == ErrUnauthorized }
func (e *ForbiddenError) Is(target error) bool { return target == ErrForbidden }

// Sentinel errors - use with errors.Is()
var (
	ErrNotFound     = errors.New("not found")
	ErrConflict     = errors.New("already exists")
	ErrValidation   = errors.New("validation failed")
	ErrUnauthorized = errors.New("unauthorized")
	ErrForbidden    = errors.New("forbidden")
)

// ConflictError represents a resource conflict with details about the existing resource
type ConflictError struct {
	Message      string // Human-readable error message
	ResourceType string // Type of resource (document, collection, tag, ...)
	ResourceID   string // ID of the existing/conflicting resource
}

func (e *ConflictError) Error() string {
	return e.Message
}

func (e *ConflictError) StatusCode() int {
	return http.StatusConflict
}

// Is allows errors.Is() to match against ErrConflict
func (e *ConflictError) Is(target error) bool {
	return target == ErrConflict
}

// VisibilityError is returned when an entity would be saved with
// everyone=false and an empty department set.
type VisibilityError struct {
	EntityType string
	EntityID   string
}

func (e *VisibilityError) Error() string {
	return fmt.Sprintf("restricted %s (everyone=false) must belong to at least one department", e.EntityType)
}

func (e *VisibilityError) StatusCode() int { return http.StatusBadRequest }
func (e *VisibilityError) Kind() ErrorKind { return KindRestrictedWithNoDepartment }

// Is allows errors.Is() to match against ErrValidation
func (e *VisibilityError) Is(target error) bool { return target == ErrValidation }

// HierarchyError is returned by collection re-parenting. Kind is either
// KindSelfNesting or KindCycle.
type HierarchyError struct {
	ErrKind      ErrorKind
	CollectionID string
	ParentID     string
}

func (e *HierarchyError) Error() string {
	if e.ErrKind == KindSelfNesting {
		return "a collection cannot be its own parent"
	}
	return fmt.Sprintf("collection %s is a descendant of %s; this nesting would create a cycle", e.ParentID, e.CollectionID)
}

func (e *HierarchyError) StatusCode() int { return http.StatusBadRequest }
func (e *HierarchyError) Kind() ErrorKind { return e.ErrKind }
func (e *HierarchyError) Is(target error) bool { return target == ErrValidation }

// ImmutableTagError is returned when a caller tries to edit, detach or
// delete a structural tag directly.
type ImmutableTagError struct {
	TagID      string
	TargetKind string
}

func (e *ImmutableTagError) Error() string {
	return fmt.Sprintf("tag %s is managed by %s membership and cannot be changed directly", e.TagID, e.TargetKind)
}

func (e *ImmutableTagError) StatusCode() int { return http.StatusConflict }
func (e *ImmutableTagError) Kind() ErrorKind { return KindImmutableTag }

// TagSyncError wraps a store failure during structural tag synchronization.
// The enclosing transaction is always rolled back when it surfaces.
type TagSyncError struct {
	Op  string
	Err error
}

func (e *TagSyncError) Error() string {
	return fmt.Sprintf("tag sync failed (%s): %v", e.Op, e.Err)
}

func (e *TagSyncError) Unwrap() error { return e.Err }
func (e *TagSyncError) StatusCode() int { return http.StatusInternalServerError }
func (e *TagSyncError) Kind() ErrorKind { return KindTagSyncFailure }
