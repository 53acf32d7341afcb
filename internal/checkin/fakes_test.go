package checkin

import (
	"context"
	"fmt"
	"sync"

	"checkin/internal/identity"
	"checkin/internal/session"
)

// Test fixture: class MATH101 with a plain session, class PHY201 with a
// geofenced session at the origin, and one closed session.
const (
	tokPlain      = "tok-plain"
	tokGeo        = "tok-geo"
	tokGeoDefault = "tok-geo-default"
	tokClosed     = "tok-closed"
)

func fixtureSessions() *fakeSessionStore {
	plain := &session.Session{
		ID: "sess-plain", Token: tokPlain, ClassID: "class-1", ClassCode: "MATH101",
		EntryCodeHash: HashEntryCode("ABC123"), Status: session.StatusOpen,
	}
	geo := &session.Session{
		ID: "sess-geo", Token: tokGeo, ClassID: "class-2", ClassCode: "PHY201",
		EntryCodeHash: HashEntryCode("XYZ789"), Status: session.StatusOpen,
		Geofence: &session.Geofence{Lat: 0, Lng: 0, RadiusM: 100},
	}
	// Geofencing required but no radius configured on the session.
	geoDefault := &session.Session{
		ID: "sess-geo-default", Token: tokGeoDefault, ClassID: "class-3", ClassCode: "CHEM301",
		EntryCodeHash: HashEntryCode("QRS456"), Status: session.StatusOpen,
		Geofence: &session.Geofence{Lat: 0, Lng: 0},
	}
	closed := &session.Session{
		ID: "sess-closed", Token: tokClosed, ClassID: "class-1", ClassCode: "MATH101",
		EntryCodeHash: HashEntryCode("ABC123"), Status: session.StatusClosed,
	}
	return &fakeSessionStore{
		byToken: map[string]*session.Session{
			tokPlain: plain, tokGeo: geo, tokGeoDefault: geoDefault, tokClosed: closed,
		},
		classes: map[string]string{"MATH101": "class-1", "PHY201": "class-2", "CHEM301": "class-3"},
		open:    map[string]*session.Session{"class-1": plain, "class-2": geo, "class-3": geoDefault},
	}
}

type fakeSessionStore struct {
	byToken map[string]*session.Session
	classes map[string]string
	open    map[string]*session.Session
}

func (f *fakeSessionStore) SessionByToken(_ context.Context, token string) (*session.Session, error) {
	return f.byToken[token], nil
}

func (f *fakeSessionStore) ActiveClassIDByCode(_ context.Context, code string) (string, error) {
	return f.classes[code], nil
}

func (f *fakeSessionStore) OpenSessionByClass(_ context.Context, classID string) (*session.Session, error) {
	return f.open[classID], nil
}

func fixtureStudents() *fakeIdentityStore {
	return &fakeIdentityStore{
		students: map[string]string{"S001": "stu-1", "S002": "stu-2", "S003": "stu-3"},
		enrolled: map[string]bool{
			"stu-1|class-1": true, "stu-1|class-2": true, "stu-1|class-3": true,
			"stu-2|class-1": true, "stu-2|class-2": true,
			// stu-3 is active but enrolled nowhere.
		},
	}
}

type fakeIdentityStore struct {
	students map[string]string
	enrolled map[string]bool
}

func (f *fakeIdentityStore) ActiveStudentID(_ context.Context, ref string) (string, error) {
	return f.students[ref], nil
}

func (f *fakeIdentityStore) IsActivelyEnrolled(_ context.Context, studentID, classID string) (bool, error) {
	return f.enrolled[studentID+"|"+classID], nil
}

// memRecordStore mimics the unique-index behavior of the Postgres repo:
// Insert under a lock is the serialization point.
type memRecordStore struct {
	mu      sync.Mutex
	byPair  map[string]Record
	inserts int
	exists  int

	// failNext makes the next Insert fail transiently.
	failNext bool
	// blindExists forces the advisory pre-check to miss, so concurrent
	// attempts race on the insert itself.
	blindExists bool
}

func newMemRecordStore() *memRecordStore {
	return &memRecordStore{byPair: map[string]Record{}}
}

func (m *memRecordStore) Insert(_ context.Context, rec Record) (Record, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.inserts++
	if m.failNext {
		m.failNext = false
		return Record{}, fmt.Errorf("%w: connection reset", ErrPersistence)
	}
	key := rec.SessionID + "|" + rec.StudentID
	if _, dup := m.byPair[key]; dup {
		return Record{}, ErrAlreadyCheckedIn
	}
	m.byPair[key] = rec
	return rec, nil
}

func (m *memRecordStore) Exists(_ context.Context, sessionID, studentID string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.exists++
	if m.blindExists {
		return false, nil
	}
	_, ok := m.byPair[sessionID+"|"+studentID]
	return ok, nil
}

func (m *memRecordStore) record(sessionID, studentID string) (Record, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	rec, ok := m.byPair[sessionID+"|"+studentID]
	return rec, ok
}

func newTestService(records RecordStore) *Service {
	return newTestServiceWithRadius(records, 0)
}

func newTestServiceWithRadius(records RecordStore, defaultRadiusM float64) *Service {
	return NewService(
		session.NewResolver(fixtureSessions()),
		identity.NewValidator(fixtureStudents()),
		records,
		nil,
		defaultRadiusM,
	)
}
