package identity

import (
	"context"
	"database/sql"
	"errors"
)

// Repository reads student and enrollment rows from Postgres. It
// implements Store.
type Repository struct {
	db *sql.DB
}

// NewRepository creates a repo.
func NewRepository(db *sql.DB) *Repository {
	return &Repository{db: db}
}

// ActiveStudentID resolves an enrollment reference to an active student id, or "".
func (r *Repository) ActiveStudentID(ctx context.Context, enrollmentRef string) (string, error) {
	var id string
	err := r.db.QueryRowContext(ctx, `
		SELECT id FROM students
		WHERE enrollment_ref = $1 AND status = 'ACTIVE'
	`, enrollmentRef).Scan(&id)
	if errors.Is(err, sql.ErrNoRows) {
		return "", nil
	}
	return id, err
}

// IsActivelyEnrolled reports whether the student holds an active
// membership in the class.
func (r *Repository) IsActivelyEnrolled(ctx context.Context, studentID, classID string) (bool, error) {
	var exists bool
	err := r.db.QueryRowContext(ctx, `
		SELECT EXISTS (
			SELECT 1 FROM class_memberships
			WHERE student_id = $1 AND class_id = $2 AND status = 'ACTIVE'
		)
	`, studentID, classID).Scan(&exists)
	return exists, err
}
