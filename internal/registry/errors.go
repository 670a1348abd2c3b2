package registry

import (
	"fmt"

	"github.com/google/uuid"
)

// Error is the base type for every registry violation. Callers type-switch
// on the concrete error (NotFoundError, DuplicateError, OrphanError,
// ProtectedError) to decide which wire code to surface.
type Error struct {
	msg string
}

func (e *Error) Error() string { return e.msg }

// NotFoundError is returned when a name or key is absent from the registry.
type NotFoundError struct{ *Error }

func newNotFound(format string, args ...any) *NotFoundError {
	return &NotFoundError{&Error{msg: fmt.Sprintf(format, args...)}}
}

// DuplicateError is returned when registering a name that already exists.
type DuplicateError struct{ *Error }

func newDuplicate(format string, args ...any) *DuplicateError {
	return &DuplicateError{&Error{msg: fmt.Sprintf(format, args...)}}
}

// OrphanError is returned when a delete is blocked by live references.
type OrphanError struct {
	*Error
	Key        uuid.UUID
	Name       string
	UsageCount int
}

func newOrphan(key uuid.UUID, name string, usageCount int) *OrphanError {
	noun := "entity"
	if usageCount != 1 {
		noun = "entities"
	}
	return &OrphanError{
		Error: &Error{msg: fmt.Sprintf(
			"cannot delete %q — %d %s still reference it; reassign or migrate first",
			name, usageCount, noun,
		)},
		Key:        key,
		Name:       name,
		UsageCount: usageCount,
	}
}

// ProtectedError is returned when a destructive op targets a protected entry.
type ProtectedError struct{ *Error }

func newProtected(name string) *ProtectedError {
	return &ProtectedError{&Error{msg: fmt.Sprintf(
		"%q is protected and cannot be deleted; it can still be renamed", name,
	)}}
}
