package session

// Status is the lifecycle state of a class session. Only open sessions
// accept check-ins; the other states exist for the session administration
// module, which owns all transitions.
type Status string

const (
	StatusOpen           Status = "OPEN"
	StatusClosed         Status = "CLOSED"
	StatusAuditFinalized Status = "AUDIT_FINALIZED"
	StatusLocked         Status = "LOCKED"
)

// Geofence is the circular area a trusted check-in must fall inside.
type Geofence struct {
	Lat     float64
	Lng     float64
	RadiusM float64
}

// Session is one open opportunity to check in. The entry code is held
// only as a hex-encoded SHA-256 of the normalized code, never plaintext.
type Session struct {
	ID            string
	Token         string
	ClassID       string
	ClassCode     string
	EntryCodeHash string
	Status        Status
	Geofence      *Geofence
}

// RequiresGeofence reports whether location evidence is expected.
func (s *Session) RequiresGeofence() bool {
	return s != nil && s.Geofence != nil
}
