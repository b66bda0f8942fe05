package record

import (
	"errors"
	"fmt"
)

var (
	// ErrNotFound is returned when a referenced entity id does not exist.
	ErrNotFound = errors.New("entity not found")

	// ErrDuplicateEntity is returned when an add violates a uniqueness rule.
	ErrDuplicateEntity = errors.New("duplicate entity")

	// ErrReferentialIntegrity is returned when a doctor deletion is refused
	// because a patient or record still references it.
	ErrReferentialIntegrity = errors.New("referential integrity violation")
)

// NotFoundError reports which entity kind and id was missing.
type NotFoundError struct {
	Kind string
	ID   string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s %q not found", e.Kind, e.ID)
}

func (e *NotFoundError) Unwrap() error { return ErrNotFound }

// DuplicateEntityError carries the id of the entity that already occupies
// the uniqueness slot, so callers can surface it inline.
type DuplicateEntityError struct {
	Kind          string
	ConflictingID string
}

func (e *DuplicateEntityError) Error() string {
	return fmt.Sprintf("duplicate %s: conflicts with %q", e.Kind, e.ConflictingID)
}

func (e *DuplicateEntityError) Unwrap() error { return ErrDuplicateEntity }

// ReferentialIntegrityError reports why a doctor could not be deleted.
type ReferentialIntegrityError struct {
	DoctorID     string
	ReferencedBy string // "patient" or "record"
}

func (e *ReferentialIntegrityError) Error() string {
	return fmt.Sprintf("doctor %q is still referenced by a %s", e.DoctorID, e.ReferencedBy)
}

func (e *ReferentialIntegrityError) Unwrap() error { return ErrReferentialIntegrity }
