package domain

import (
	"errors"
	"testing"
)

func TestResolveUserModel(t *testing.T) {
	tests := []struct {
		raw     string
		want    UserModel
		wantErr bool
	}{
		{raw: "student", want: UserModelStudent},
		{raw: " Student ", want: UserModelStudent},
		{raw: "teacher", want: UserModelProfile},
		{raw: "EXPERT", want: UserModelProfile},
		{raw: "profile", want: UserModelProfile},
		{raw: "admin", wantErr: true},
		{raw: "", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.raw, func(t *testing.T) {
			got, err := ResolveUserModel(tt.raw)
			if tt.wantErr {
				if !errors.Is(err, ErrInvalidUserType) {
					t.Fatalf("expected ErrInvalidUserType, got %v", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got != tt.want {
				t.Fatalf("expected %s, got %s", tt.want, got)
			}
		})
	}
}

func TestNewUserRef(t *testing.T) {
	ref, err := NewUserRef(" 64f1c2 ", "teacher")
	if err != nil {
		t.Fatalf("NewUserRef returned error: %v", err)
	}
	if ref.ID != "64f1c2" || ref.Model != UserModelProfile {
		t.Fatalf("unexpected ref: %+v", ref)
	}
	if ref.String() != "Profile:64f1c2" {
		t.Fatalf("unexpected string form: %s", ref.String())
	}

	if _, err := NewUserRef("", "student"); err == nil {
		t.Fatalf("expected error for empty id")
	}
	if _, err := NewUserRef("64f1c2", "guest"); !errors.Is(err, ErrInvalidUserType) {
		t.Fatalf("expected ErrInvalidUserType, got %v", err)
	}

	student := UserRef{ID: "64f1c2", Model: UserModelStudent}
	if student.Equal(ref) {
		t.Fatalf("expected the same id under different models to be distinct users")
	}
}
