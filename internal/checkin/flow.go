package checkin

import (
	"context"
	"errors"

	"checkin/internal/device"
	"checkin/internal/session"
)

// State names a step of the evidence capture workflow.
type State string

const (
	StateModeSelect       State = "MODE_SELECT"
	StateDataEntry        State = "DATA_ENTRY"
	StateGeoCheck         State = "GEO_CHECK"
	StatePhotoCapture     State = "PHOTO_CAPTURE"
	StateSignatureCapture State = "SIGNATURE_CAPTURE"
	StateConfirm          State = "CONFIRM"
	StateSubmitting       State = "SUBMITTING"
	StateSuccess          State = "SUCCESS"
)

// ErrInvalidTransition is returned when a step is driven out of order.
var ErrInvalidTransition = errors.New("invalid workflow transition")

// Flow is the evidence capture orchestrator: an explicit state machine
// sequencing the validation and capture steps for one attempt. GEO_CHECK
// appears in the path only when the resolved session requires it.
// Nothing is persisted before SUBMITTING, so a flow may be abandoned at
// any non-terminal state without cleanup.
type Flow struct {
	svc     *Service
	state   State
	attempt Attempt
}

// NewFlow starts a workflow at MODE_SELECT.
func (s *Service) NewFlow() *Flow {
	return &Flow{svc: s, state: StateModeSelect}
}

// State returns the current workflow state.
func (f *Flow) State() State {
	return f.state
}

// Attempt exposes the accumulated attempt, mainly for inspection in the
// confirm step.
func (f *Flow) Attempt() *Attempt {
	return &f.attempt
}

// SelectAuthenticated enters data entry with the identity pre-filled
// from an authenticated context. Validation rules are identical to the
// anonymous path; only the prefill differs.
func (f *Flow) SelectAuthenticated(enrollmentRef string) error {
	if f.state != StateModeSelect {
		return ErrInvalidTransition
	}
	f.attempt.EnrollmentRef = enrollmentRef
	f.attempt.Source = SourceAuthenticated
	f.state = StateDataEntry
	return nil
}

// SelectAnonymous enters data entry with no prefilled identity.
func (f *Flow) SelectAnonymous() error {
	if f.state != StateModeSelect {
		return ErrInvalidTransition
	}
	f.attempt.Source = SourceAnonymous
	f.state = StateDataEntry
	return nil
}

// DataEntry is the input to the gating step of the workflow.
type DataEntry struct {
	// Exactly one of SessionToken and ClassCode locates the session.
	SessionToken string
	ClassCode    string

	// EnrollmentRef is used when no authenticated prefill is present.
	EnrollmentRef string
	EntryCode     string

	UserAgent string
	Signals   device.Signals
}

// EnterData runs the entry gate: session resolution, entry code check,
// enrollment check, and the advisory duplicate pre-check. On any failure
// the flow stays at DATA_ENTRY and the typed error is surfaced; on
// success it advances to GEO_CHECK or PHOTO_CAPTURE.
func (f *Flow) EnterData(ctx context.Context, in DataEntry) error {
	if f.state != StateDataEntry {
		return ErrInvalidTransition
	}

	var sess *session.Session
	var err error
	if in.SessionToken != "" {
		sess, err = f.svc.sessions.ResolveByToken(ctx, in.SessionToken)
	} else {
		sess, err = f.svc.sessions.ResolveByClassCode(ctx, in.ClassCode)
	}
	if err != nil {
		return err
	}

	if err := ValidateEntryCode(sess, in.EntryCode); err != nil {
		return err
	}

	ref := f.attempt.EnrollmentRef
	if ref == "" {
		ref = in.EnrollmentRef
	}
	studentID, err := f.svc.students.Validate(ctx, ref, sess.ClassID)
	if err != nil {
		return err
	}

	// Advisory pre-check so the user learns about a duplicate before
	// capturing evidence; the atomic insert at submission remains the
	// authoritative guard. A failing read here is ignored.
	if exists, err := f.svc.records.Exists(ctx, sess.ID, studentID); err == nil && exists {
		return ErrAlreadyCheckedIn
	}

	f.attempt.Session = sess
	f.attempt.StudentID = studentID
	f.attempt.EnrollmentRef = ref
	f.attempt.UserAgent = in.UserAgent
	f.attempt.DeviceDigest = in.Signals.Digest()

	if sess.RequiresGeofence() {
		f.state = StateGeoCheck
	} else {
		f.state = StatePhotoCapture
	}
	return nil
}

// CaptureLocation classifies the captured coordinate against the
// session's geofence. Outside the fence demotes trust but never blocks.
func (f *Flow) CaptureLocation(lat, lng float64) error {
	if f.state != StateGeoCheck {
		return ErrInvalidTransition
	}
	f.dropReviewReason(ReasonLocationSkipped)
	f.dropReviewReason(ReasonOutsideArea)

	inside := InsideGeofence(f.attempt.Session.Geofence, lat, lng, f.svc.defaultRadiusM)
	f.attempt.Location = &Coordinate{Lat: lat, Lng: lng, Inside: inside}
	if !inside {
		f.attempt.AddReviewReason(ReasonOutsideArea)
	}
	f.state = StatePhotoCapture
	return nil
}

// SkipLocation records that no coordinate could be obtained (permission
// denied, unsupported, timed out, or an explicit skip) and proceeds.
func (f *Flow) SkipLocation() error {
	if f.state != StateGeoCheck {
		return ErrInvalidTransition
	}
	f.dropReviewReason(ReasonLocationSkipped)
	f.dropReviewReason(ReasonOutsideArea)
	f.attempt.Location = nil
	f.attempt.AddReviewReason(ReasonLocationSkipped)
	f.state = StatePhotoCapture
	return nil
}

// CapturePhoto records the stored photo reference. An empty ref means
// the capture succeeded but evidence storage failed; that leaves the
// field empty without demoting trust.
func (f *Flow) CapturePhoto(storageRef string) error {
	if f.state != StatePhotoCapture {
		return ErrInvalidTransition
	}
	f.dropReviewReason(ReasonPhotoSkipped)
	f.attempt.PhotoRef = storageRef
	f.state = StateSignatureCapture
	return nil
}

// SkipPhoto records an explicit skip and proceeds.
func (f *Flow) SkipPhoto() error {
	if f.state != StatePhotoCapture {
		return ErrInvalidTransition
	}
	f.dropReviewReason(ReasonPhotoSkipped)
	f.attempt.PhotoRef = ""
	f.attempt.AddReviewReason(ReasonPhotoSkipped)
	f.state = StateSignatureCapture
	return nil
}

// CaptureSignature records the stored signature reference.
func (f *Flow) CaptureSignature(storageRef string) error {
	if f.state != StateSignatureCapture {
		return ErrInvalidTransition
	}
	f.dropReviewReason(ReasonSignatureSkipped)
	f.attempt.SignatureRef = storageRef
	f.state = StateConfirm
	return nil
}

// SkipSignature records an explicit skip and proceeds to confirm.
func (f *Flow) SkipSignature() error {
	if f.state != StateSignatureCapture {
		return ErrInvalidTransition
	}
	f.dropReviewReason(ReasonSignatureSkipped)
	f.attempt.SignatureRef = ""
	f.attempt.AddReviewReason(ReasonSignatureSkipped)
	f.state = StateConfirm
	return nil
}

// Submit performs the terminal write. A transient persistence failure
// returns the flow to CONFIRM so the user can retry without re-capturing
// evidence; ErrAlreadyCheckedIn means a concurrent attempt won the
// insert and this attempt is dead.
func (f *Flow) Submit(ctx context.Context) (Result, error) {
	if f.state != StateConfirm {
		return Result{}, ErrInvalidTransition
	}
	f.state = StateSubmitting
	res, err := f.svc.record(ctx, &f.attempt)
	if err != nil {
		f.state = StateConfirm
		return Result{}, err
	}
	f.state = StateSuccess
	return res, nil
}

// Back rewinds to the predecessor state. Terminal and in-flight states
// cannot be left.
func (f *Flow) Back() error {
	switch f.state {
	case StateDataEntry:
		f.state = StateModeSelect
	case StateGeoCheck:
		f.state = StateDataEntry
	case StatePhotoCapture:
		if f.attempt.Session.RequiresGeofence() {
			f.state = StateGeoCheck
		} else {
			f.state = StateDataEntry
		}
	case StateSignatureCapture:
		f.state = StatePhotoCapture
	case StateConfirm:
		f.state = StateSignatureCapture
	default:
		return ErrInvalidTransition
	}
	return nil
}

// dropReviewReason removes a step's earlier reason so that redoing the
// step after backward navigation supersedes its previous outcome.
func (f *Flow) dropReviewReason(reason string) {
	reasons := f.attempt.reviewReasons[:0]
	for _, r := range f.attempt.reviewReasons {
		if r != reason {
			reasons = append(reasons, r)
		}
	}
	f.attempt.reviewReasons = reasons
}
