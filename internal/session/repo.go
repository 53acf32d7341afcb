package session

import (
	"context"
	"database/sql"
	"errors"
)

// Repository reads session and class rows from Postgres. It implements
// Store; sessions are created and closed by the administration module,
// this side only reads them.
type Repository struct {
	db *sql.DB
}

// NewRepository creates a repo.
func NewRepository(db *sql.DB) *Repository {
	return &Repository{db: db}
}

const sessionColumns = `
	s.id, s.token, s.class_id, c.code, s.entry_code_hash, s.status,
	s.geo_lat, s.geo_lng, s.geo_radius_m`

func scanSession(row *sql.Row) (*Session, error) {
	var s Session
	var lat, lng, radius sql.NullFloat64
	err := row.Scan(&s.ID, &s.Token, &s.ClassID, &s.ClassCode,
		&s.EntryCodeHash, &s.Status, &lat, &lng, &radius)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	if lat.Valid && lng.Valid {
		s.Geofence = &Geofence{Lat: lat.Float64, Lng: lng.Float64, RadiusM: radius.Float64}
	}
	return &s, nil
}

// SessionByToken returns the session carrying the public token, or nil.
func (r *Repository) SessionByToken(ctx context.Context, token string) (*Session, error) {
	row := r.db.QueryRowContext(ctx, `
		SELECT `+sessionColumns+`
		FROM sessions s JOIN classes c ON c.id = s.class_id
		WHERE s.token = $1
	`, token)
	return scanSession(row)
}

// ActiveClassIDByCode returns the id of the active class with the code, or "".
func (r *Repository) ActiveClassIDByCode(ctx context.Context, code string) (string, error) {
	var id string
	err := r.db.QueryRowContext(ctx, `
		SELECT id FROM classes WHERE code = $1 AND status = 'ACTIVE'
	`, code).Scan(&id)
	if errors.Is(err, sql.ErrNoRows) {
		return "", nil
	}
	return id, err
}

// OpenSessionByClass returns the most recently opened session for the
// class that is still open, or nil.
func (r *Repository) OpenSessionByClass(ctx context.Context, classID string) (*Session, error) {
	row := r.db.QueryRowContext(ctx, `
		SELECT `+sessionColumns+`
		FROM sessions s JOIN classes c ON c.id = s.class_id
		WHERE s.class_id = $1 AND s.status = 'OPEN'
		ORDER BY s.opened_at DESC
		LIMIT 1
	`, classID)
	return scanSession(row)
}
