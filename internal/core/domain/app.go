// Package domain contains the core registration types and the pure functions
// that turn a raw app request into a registry-safe record.
// This is part of the Functional Core - all functions are pure with no I/O.
package domain

import (
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// =============================================================================
// Errors
// =============================================================================

var (
	// ErrInvalidTitle is returned when a raw title normalizes to an empty slug.
	ErrInvalidTitle = errors.New("title must contain at least one ASCII letter or digit")

	// ErrRegistryCorruption is returned when the registry already holds
	// duplicate slugs. It is not recoverable by the caller.
	ErrRegistryCorruption = errors.New("registry corruption: duplicate slug")

	// ErrTextBoundViolation is returned when a pre-bounded field exceeds its budget.
	ErrTextBoundViolation = errors.New("text exceeds its length budget")

	// ErrInvalidSlug is returned when a stored slug is not in canonical form.
	ErrInvalidSlug = errors.New("slug must match [a-z0-9]+(-[a-z0-9]+)*")

	// ErrInvalidSequence is returned when a record carries a non-positive sequence.
	ErrInvalidSequence = errors.New("sequence must be positive")
)

// DefaultDescriptionBudget is the display budget for description fields.
const DefaultDescriptionBudget = 62

// =============================================================================
// AppRequest
// =============================================================================

// AppRequest is the raw, unvalidated input of a registration.
type AppRequest struct {
	Title       string `json:"title"`
	Description string `json:"description"`
}

// =============================================================================
// AppRecord
// =============================================================================

// AppRecord is the registered metadata of one generated app.
// Records are values: the registry owns the canonical copy and never mutates it.
type AppRecord struct {
	Slug        string    `json:"slug" yaml:"slug"`
	Title       string    `json:"title" yaml:"title"`
	Description string    `json:"description" yaml:"description"`
	Sequence    int64     `json:"sequence" yaml:"sequence"`
	ReferenceID string    `json:"id" yaml:"id,omitempty"`
	CreatedAt   time.Time `json:"created_at" yaml:"created_at,omitempty"`
}

// NewReferenceID returns a short opaque identifier for a record.
func NewReferenceID() string {
	return "app_" + uuid.New().String()[:8]
}

// ValidateRecord checks the invariants a stored record must hold.
func ValidateRecord(r AppRecord, descriptionBudget int) error {
	if err := ValidateSlug(r.Slug); err != nil {
		return fmt.Errorf("record %q: %w", r.Slug, err)
	}
	if r.Sequence <= 0 {
		return fmt.Errorf("record %q: %w", r.Slug, ErrInvalidSequence)
	}
	if err := CheckBound(r.Description, descriptionBudget); err != nil {
		return fmt.Errorf("record %q description: %w", r.Slug, err)
	}
	return nil
}

// =============================================================================
// RegistrySnapshot
// =============================================================================

// RegistrySnapshot is the view of the registry a build runs against: the
// current key set and the highest sequence ever assigned.
type RegistrySnapshot struct {
	Slugs        []string
	LastSequence int64
}

// NextSequence returns the sequence the next record receives.
func (s RegistrySnapshot) NextSequence() int64 {
	return s.LastSequence + 1
}
