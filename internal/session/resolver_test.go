package session

import (
	"context"
	"errors"
	"testing"
)

type fakeStore struct {
	byToken map[string]*Session
	classes map[string]string
	open    map[string]*Session
}

func (f *fakeStore) SessionByToken(_ context.Context, token string) (*Session, error) {
	return f.byToken[token], nil
}

func (f *fakeStore) ActiveClassIDByCode(_ context.Context, code string) (string, error) {
	return f.classes[code], nil
}

func (f *fakeStore) OpenSessionByClass(_ context.Context, classID string) (*Session, error) {
	return f.open[classID], nil
}

func newFakeResolver() *Resolver {
	open := &Session{ID: "s1", Token: "tok1", ClassID: "c1", Status: StatusOpen}
	closed := &Session{ID: "s2", Token: "tok2", ClassID: "c1", Status: StatusClosed}
	locked := &Session{ID: "s3", Token: "tok3", ClassID: "c2", Status: StatusLocked}
	return NewResolver(&fakeStore{
		byToken: map[string]*Session{"tok1": open, "tok2": closed, "tok3": locked},
		classes: map[string]string{"MATH101": "c1", "IDLE100": "c9"},
		open:    map[string]*Session{"c1": open},
	})
}

func TestResolveByToken(t *testing.T) {
	r := newFakeResolver()
	ctx := context.Background()

	s, err := r.ResolveByToken(ctx, " tok1 ")
	if err != nil {
		t.Fatalf("resolve open session: %v", err)
	}
	if s.ID != "s1" {
		t.Fatalf("expected s1, got %s", s.ID)
	}

	for _, token := range []string{"", "missing", "tok2", "tok3"} {
		if _, err := r.ResolveByToken(ctx, token); !errors.Is(err, ErrSessionNotFound) {
			t.Fatalf("token %q: expected ErrSessionNotFound, got %v", token, err)
		}
	}
}

func TestResolveByClassCode(t *testing.T) {
	r := newFakeResolver()
	ctx := context.Background()

	s, err := r.ResolveByClassCode(ctx, "MATH101")
	if err != nil {
		t.Fatalf("resolve by class code: %v", err)
	}
	if s.ID != "s1" {
		t.Fatalf("expected s1, got %s", s.ID)
	}

	if _, err := r.ResolveByClassCode(ctx, "NOPE42"); !errors.Is(err, ErrClassNotFound) {
		t.Fatalf("expected ErrClassNotFound, got %v", err)
	}
	if _, err := r.ResolveByClassCode(ctx, ""); !errors.Is(err, ErrClassNotFound) {
		t.Fatalf("blank code: expected ErrClassNotFound, got %v", err)
	}
	if _, err := r.ResolveByClassCode(ctx, "IDLE100"); !errors.Is(err, ErrNoOpenSession) {
		t.Fatalf("expected ErrNoOpenSession, got %v", err)
	}
}
