package identity

import (
	"context"
	"errors"
	"testing"
)

type fakeStore struct {
	students map[string]string
	enrolled map[string]bool
}

func (f *fakeStore) ActiveStudentID(_ context.Context, ref string) (string, error) {
	return f.students[ref], nil
}

func (f *fakeStore) IsActivelyEnrolled(_ context.Context, studentID, classID string) (bool, error) {
	return f.enrolled[studentID+"|"+classID], nil
}

func TestValidate(t *testing.T) {
	v := NewValidator(&fakeStore{
		students: map[string]string{"S001": "stu-1", "S002": "stu-2"},
		enrolled: map[string]bool{"stu-1|c1": true},
	})
	ctx := context.Background()

	tests := []struct {
		name    string
		ref     string
		classID string
		wantID  string
		wantErr error
	}{
		{"enrolled student", "S001", "c1", "stu-1", nil},
		{"whitespace trimmed", "  S001  ", "c1", "stu-1", nil},
		{"unknown student", "S999", "c1", "", ErrStudentNotFound},
		{"blank claim", "   ", "c1", "", ErrStudentNotFound},
		{"active but not enrolled", "S002", "c1", "", ErrNotEnrolled},
		{"enrolled elsewhere", "S001", "c2", "", ErrNotEnrolled},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			id, err := v.Validate(ctx, tt.ref, tt.classID)
			if tt.wantErr != nil {
				if !errors.Is(err, tt.wantErr) {
					t.Fatalf("expected %v, got %v", tt.wantErr, err)
				}
				return
			}
			if err != nil {
				t.Fatalf("validate: %v", err)
			}
			if id != tt.wantID {
				t.Fatalf("expected %s, got %s", tt.wantID, id)
			}
		})
	}
}
