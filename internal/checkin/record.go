package checkin

import (
	"context"
	"errors"
	"time"
)

// FinalStatus is the adjudicated outcome stored on a record. The
// protocol only ever writes Present or Absent; Justified is reserved for
// the external adjustment workflow.
type FinalStatus string

const (
	StatusPresent   FinalStatus = "PRESENT"
	StatusAbsent    FinalStatus = "ABSENT"
	StatusJustified FinalStatus = "JUSTIFIED"
)

var (
	// ErrAlreadyCheckedIn is returned when a record for the
	// (session, student) pair already exists. The atomic insert is the
	// decision point; concurrent attempts race on it, not on a read.
	ErrAlreadyCheckedIn = errors.New("already checked in for this session")
	// ErrPersistence marks a transient storage failure; the caller may
	// resubmit from CONFIRM without re-capturing evidence.
	ErrPersistence = errors.New("could not save attendance record")
)

// Record is the persisted, immutable outcome of a check-in. Later
// changes belong to the external audit workflow, never to this protocol.
type Record struct {
	ID             string
	ProtocolNumber string
	SessionID      string
	StudentID      string

	FinalStatus  FinalStatus
	NeedsReview  bool
	ReviewReason *string

	PhotoRef       *string
	SignatureRef   *string
	Lat            *float64
	Lng            *float64
	InsideGeofence *bool

	DeviceDigest string
	UserAgent    string
	Source       string
	SubmittedAt  time.Time
	CreatedAt    time.Time
}

// RecordStore persists attendance records. Insert must be atomic with
// respect to concurrent attempts for the same (session, student) pair:
// a unique index on the pair, with the insert itself as the
// serialization point.
type RecordStore interface {
	// Insert writes the record, failing with ErrAlreadyCheckedIn when a
	// record for the pair exists, and with an error wrapping
	// ErrPersistence on transient storage failure.
	Insert(ctx context.Context, rec Record) (Record, error)
	// Exists is the advisory pre-check used at data entry; the insert
	// remains authoritative.
	Exists(ctx context.Context, sessionID, studentID string) (bool, error)
}
