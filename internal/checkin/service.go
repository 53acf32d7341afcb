package checkin

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"

	"checkin/internal/device"
	"checkin/internal/identity"
	"checkin/internal/queue"
	"checkin/internal/session"
)

// Service coordinates the check-in verification protocol: it drives the
// capture workflow, determines trust, and performs the terminal write.
type Service struct {
	sessions *session.Resolver
	students *identity.Validator
	records  RecordStore
	events   queue.Queue

	defaultRadiusM float64

	now   func() time.Time
	newID func() string
}

// NewService creates a service. events may be nil, which disables
// publishing recorded check-ins to the analytics worker. A non-positive
// defaultRadiusM falls back to DefaultGeofenceRadiusM.
func NewService(sessions *session.Resolver, students *identity.Validator, records RecordStore, events queue.Queue, defaultRadiusM float64) *Service {
	if defaultRadiusM <= 0 {
		defaultRadiusM = DefaultGeofenceRadiusM
	}
	return &Service{
		sessions:       sessions,
		students:       students,
		records:        records,
		events:         events,
		defaultRadiusM: defaultRadiusM,
		now:            time.Now,
		newID:          uuid.NewString,
	}
}

// Result is returned to the caller on a durably created record. A
// flagged record still succeeds; only the message and the review flag
// differ.
type Result struct {
	ProtocolNumber string `json:"protocol_number"`
	NeedsReview    bool   `json:"needs_review"`
}

// Requirements tells a client what the session expects before it starts
// capturing evidence, so irrelevant steps can be skipped up front.
type Requirements struct {
	SessionToken     string  `json:"session_token"`
	ClassCode        string  `json:"class_code"`
	GeofenceRequired bool    `json:"geofence_required"`
	GeofenceRadiusM  float64 `json:"geofence_radius_m,omitempty"`
}

// Requirements resolves a session by token or class code and reports
// what it requires. Errors are the resolver's.
func (s *Service) Requirements(ctx context.Context, token, classCode string) (Requirements, error) {
	var sess *session.Session
	var err error
	if token != "" {
		sess, err = s.sessions.ResolveByToken(ctx, token)
	} else {
		sess, err = s.sessions.ResolveByClassCode(ctx, classCode)
	}
	if err != nil {
		return Requirements{}, err
	}
	req := Requirements{SessionToken: sess.Token, ClassCode: sess.ClassCode}
	if sess.RequiresGeofence() {
		req.GeofenceRequired = true
		req.GeofenceRadiusM = sess.Geofence.RadiusM
		if req.GeofenceRadiusM <= 0 {
			req.GeofenceRadiusM = s.defaultRadiusM
		}
	}
	return req, nil
}

// GeoInput is a captured device coordinate.
type GeoInput struct {
	Lat float64 `json:"lat"`
	Lng float64 `json:"lng"`
}

// SubmitInput is the single submission contract exposed to clients.
type SubmitInput struct {
	SessionToken  string
	ClassCode     string
	EnrollmentRef string
	Authenticated bool
	EntryCode     string
	UserAgent     string
	Signals       device.Signals

	// Location is nil when unavailable or skipped.
	Location *GeoInput

	// An empty ref with Skipped=false means captured but storage
	// failed, which does not demote trust.
	PhotoRef         string
	PhotoSkipped     bool
	SignatureRef     string
	SignatureSkipped bool
}

// Submit runs one attempt through the whole workflow in a single shot.
// Richer clients may drive a Flow step by step instead; the semantics
// are identical.
func (s *Service) Submit(ctx context.Context, in SubmitInput) (Result, error) {
	f := s.NewFlow()

	var err error
	if in.Authenticated {
		err = f.SelectAuthenticated(in.EnrollmentRef)
	} else {
		err = f.SelectAnonymous()
	}
	if err != nil {
		return Result{}, err
	}

	if err := f.EnterData(ctx, DataEntry{
		SessionToken:  in.SessionToken,
		ClassCode:     in.ClassCode,
		EnrollmentRef: in.EnrollmentRef,
		EntryCode:     in.EntryCode,
		UserAgent:     in.UserAgent,
		Signals:       in.Signals,
	}); err != nil {
		return Result{}, err
	}

	if f.State() == StateGeoCheck {
		if in.Location != nil {
			err = f.CaptureLocation(in.Location.Lat, in.Location.Lng)
		} else {
			err = f.SkipLocation()
		}
		if err != nil {
			return Result{}, err
		}
	}

	if in.PhotoSkipped {
		err = f.SkipPhoto()
	} else {
		err = f.CapturePhoto(in.PhotoRef)
	}
	if err != nil {
		return Result{}, err
	}

	if in.SignatureSkipped {
		err = f.SkipSignature()
	} else {
		err = f.CaptureSignature(in.SignatureRef)
	}
	if err != nil {
		return Result{}, err
	}

	return f.Submit(ctx)
}

// record is the trust determination and record builder: any review
// reason demotes the status to ABSENT pending human review, a clean
// attempt is PRESENT. The insert goes through the duplicate guard.
func (s *Service) record(ctx context.Context, a *Attempt) (Result, error) {
	now := s.now().UTC()

	status := StatusPresent
	if a.NeedsReview() {
		status = StatusAbsent
	}

	protocolNumber, err := NewProtocolNumber(now)
	if err != nil {
		return Result{}, fmt.Errorf("%w: %v", ErrPersistence, err)
	}

	rec := Record{
		ID:             s.newID(),
		ProtocolNumber: protocolNumber,
		SessionID:      a.Session.ID,
		StudentID:      a.StudentID,
		FinalStatus:    status,
		NeedsReview:    a.NeedsReview(),
		ReviewReason:   a.ReviewReason(),
		DeviceDigest:   a.DeviceDigest,
		UserAgent:      a.UserAgent,
		Source:         a.Source,
		SubmittedAt:    now,
	}
	if a.PhotoRef != "" {
		rec.PhotoRef = &a.PhotoRef
	}
	if a.SignatureRef != "" {
		rec.SignatureRef = &a.SignatureRef
	}
	if a.Location != nil {
		rec.Lat = &a.Location.Lat
		rec.Lng = &a.Location.Lng
		rec.InsideGeofence = &a.Location.Inside
	}

	saved, err := s.records.Insert(ctx, rec)
	if err != nil {
		if errors.Is(err, ErrAlreadyCheckedIn) {
			duplicateRejections.Inc()
			submissionsTotal.WithLabelValues("duplicate").Inc()
		} else {
			submissionsTotal.WithLabelValues("error").Inc()
		}
		return Result{}, err
	}

	if s.events != nil {
		if err := s.events.Publish(ctx, queue.Message{Type: queue.TypeRecorded, Body: []byte(saved.ID)}); err != nil {
			log.Printf("queue publish failed for record %s: %v", saved.ID, err)
		}
	}

	if rec.NeedsReview {
		submissionsTotal.WithLabelValues("flagged").Inc()
	} else {
		submissionsTotal.WithLabelValues("present").Inc()
	}
	return Result{ProtocolNumber: protocolNumber, NeedsReview: rec.NeedsReview}, nil
}
