package identity

import (
	"context"
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrStudentNotFound is returned when the claimed enrollment
	// reference does not resolve to an active student.
	ErrStudentNotFound = errors.New("student not found")
	// ErrNotEnrolled is returned when the student is not actively
	// enrolled in the session's class.
	ErrNotEnrolled = errors.New("student not enrolled in class")
)

// Store is the read surface the validator needs from the student and
// enrollment administration module.
type Store interface {
	// ActiveStudentID resolves an enrollment reference to the id of an
	// ACTIVE student, or "" when none matches.
	ActiveStudentID(ctx context.Context, enrollmentRef string) (string, error)
	// IsActivelyEnrolled reports whether the student holds an ACTIVE
	// membership in the class.
	IsActivelyEnrolled(ctx context.Context, studentID, classID string) (bool, error)
}

// Validator confirms a claimed identity exists, is active, and is
// enrolled in the class. Pure read, no mutation.
type Validator struct {
	store Store
}

// NewValidator creates a validator over the given store.
func NewValidator(store Store) *Validator {
	return &Validator{store: store}
}

// Validate resolves the claim to a student id or fails. Both the
// anonymous free-text path and the authenticated prefilled path go
// through here with identical rules.
func (v *Validator) Validate(ctx context.Context, enrollmentRef, classID string) (string, error) {
	enrollmentRef = strings.TrimSpace(enrollmentRef)
	if enrollmentRef == "" {
		return "", ErrStudentNotFound
	}
	studentID, err := v.store.ActiveStudentID(ctx, enrollmentRef)
	if err != nil {
		return "", fmt.Errorf("resolve student: %w", err)
	}
	if studentID == "" {
		return "", ErrStudentNotFound
	}
	enrolled, err := v.store.IsActivelyEnrolled(ctx, studentID, classID)
	if err != nil {
		return "", fmt.Errorf("check enrollment: %w", err)
	}
	if !enrolled {
		return "", ErrNotEnrolled
	}
	return studentID, nil
}
