package checkin

import (
	"strings"

	"checkin/internal/session"
)

// Source records which path supplied the identity claim.
const (
	SourceAuthenticated = "authenticated"
	SourceAnonymous     = "anonymous"
)

// Review reasons appended when an expected verification signal was
// missing, skipped, or failed. Wording is user-facing.
const (
	ReasonOutsideArea      = "outside allowed area"
	ReasonLocationSkipped  = "location unavailable/skipped"
	ReasonPhotoSkipped     = "photo skipped"
	ReasonSignatureSkipped = "signature skipped"
)

// Coordinate is a captured device location, classified against the
// session's geofence.
type Coordinate struct {
	Lat    float64
	Lng    float64
	Inside bool
}

// Attempt is the ephemeral state threaded through the capture workflow.
// It lives only in the caller's flow, accumulates as steps complete, and
// is never persisted directly; only the record built from it at
// submission is.
type Attempt struct {
	Session       *session.Session
	StudentID     string
	EnrollmentRef string
	Source        string

	Location     *Coordinate
	PhotoRef     string
	SignatureRef string

	DeviceDigest string
	UserAgent    string

	reviewReasons []string
}

// AddReviewReason appends a reason. The list is ordered and append-only.
func (a *Attempt) AddReviewReason(reason string) {
	a.reviewReasons = append(a.reviewReasons, reason)
}

// ReviewReasons returns the accumulated reasons in order.
func (a *Attempt) ReviewReasons() []string {
	return a.reviewReasons
}

// NeedsReview reports whether any verification signal was demoted.
func (a *Attempt) NeedsReview() bool {
	return len(a.reviewReasons) > 0
}

// ReviewReason flattens the reasons for persistence, or nil when clean.
func (a *Attempt) ReviewReason() *string {
	if len(a.reviewReasons) == 0 {
		return nil
	}
	joined := strings.Join(a.reviewReasons, "; ")
	return &joined
}
