package checkin

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
)

// Repository persists attendance records in Postgres. The unique index
// on (session_id, student_id) makes the insert itself the race-free
// decision point for the duplicate guard.
type Repository struct {
	db *sql.DB
}

// NewRepository creates a repo.
func NewRepository(db *sql.DB) *Repository {
	return &Repository{db: db}
}

// Insert writes a record. A conflict on the (session_id, student_id)
// index yields ErrAlreadyCheckedIn without writing anything; other
// failures wrap ErrPersistence and are retryable.
func (r *Repository) Insert(ctx context.Context, rec Record) (Record, error) {
	row := r.db.QueryRowContext(ctx, `
		INSERT INTO attendance_records (
			id, protocol_number, session_id, student_id,
			final_status, needs_review, review_reason,
			photo_ref, signature_ref, lat, lng, inside_geofence,
			device_digest, user_agent, source, submitted_at
		)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15,$16)
		ON CONFLICT (session_id, student_id) DO NOTHING
		RETURNING created_at
	`, rec.ID, rec.ProtocolNumber, rec.SessionID, rec.StudentID,
		rec.FinalStatus, rec.NeedsReview, rec.ReviewReason,
		rec.PhotoRef, rec.SignatureRef, rec.Lat, rec.Lng, rec.InsideGeofence,
		rec.DeviceDigest, rec.UserAgent, rec.Source, rec.SubmittedAt)
	if err := row.Scan(&rec.CreatedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Record{}, ErrAlreadyCheckedIn
		}
		return Record{}, fmt.Errorf("%w: %v", ErrPersistence, err)
	}
	return rec, nil
}

// Exists is the advisory duplicate pre-check at data entry.
func (r *Repository) Exists(ctx context.Context, sessionID, studentID string) (bool, error) {
	var exists bool
	err := r.db.QueryRowContext(ctx, `
		SELECT EXISTS (
			SELECT 1 FROM attendance_records
			WHERE session_id = $1 AND student_id = $2
		)
	`, sessionID, studentID).Scan(&exists)
	return exists, err
}

// GetRecord returns a single record by id; used by the analytics worker.
func (r *Repository) GetRecord(ctx context.Context, id string) (Record, error) {
	row := r.db.QueryRowContext(ctx, `
		SELECT id, protocol_number, session_id, student_id,
			final_status, needs_review, review_reason,
			photo_ref, signature_ref, lat, lng, inside_geofence,
			device_digest, user_agent, source, submitted_at, created_at
		FROM attendance_records WHERE id = $1
	`, id)
	var rec Record
	if err := row.Scan(&rec.ID, &rec.ProtocolNumber, &rec.SessionID, &rec.StudentID,
		&rec.FinalStatus, &rec.NeedsReview, &rec.ReviewReason,
		&rec.PhotoRef, &rec.SignatureRef, &rec.Lat, &rec.Lng, &rec.InsideGeofence,
		&rec.DeviceDigest, &rec.UserAgent, &rec.Source, &rec.SubmittedAt, &rec.CreatedAt); err != nil {
		return Record{}, err
	}
	return rec, nil
}

// CountStudentsWithDigest counts distinct students in a session whose
// records carry the given device digest. The worker uses this to spot
// one device checking in for several people.
func (r *Repository) CountStudentsWithDigest(ctx context.Context, sessionID, digest string) (int, error) {
	if digest == "" {
		return 0, nil
	}
	var n int
	err := r.db.QueryRowContext(ctx, `
		SELECT COUNT(DISTINCT student_id) FROM attendance_records
		WHERE session_id = $1 AND device_digest = $2
	`, sessionID, digest).Scan(&n)
	return n, err
}
