package domain

import (
	"errors"
	"strings"
)

// UserModel is the discriminator that tells which user collection an id belongs to.
// Students and every kind of profile (teacher, expert) live in separate stores upstream,
// so a bare user id is ambiguous without it.
type UserModel string

const (
	UserModelStudent UserModel = "Student"
	UserModelProfile UserModel = "Profile"
)

var ErrInvalidUserType = errors.New("invalid user type")

// ResolveUserModel maps a caller-supplied role string to its discriminator.
// It is the only place in the service that knows the mapping.
func ResolveUserModel(raw string) (UserModel, error) {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "student":
		return UserModelStudent, nil
	case "teacher", "expert", "profile":
		return UserModelProfile, nil
	default:
		return "", ErrInvalidUserType
	}
}

// UserRef identifies a user across the two upstream user collections.
type UserRef struct {
	ID    string    `json:"userId"`
	Model UserModel `json:"userType"`
}

// NewUserRef validates the id and resolves the role string in one step.
func NewUserRef(id, rawType string) (UserRef, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return UserRef{}, errors.New("user id is required")
	}
	model, err := ResolveUserModel(rawType)
	if err != nil {
		return UserRef{}, err
	}
	return UserRef{ID: id, Model: model}, nil
}

func (r UserRef) IsZero() bool {
	return r.ID == "" && r.Model == ""
}

func (r UserRef) Equal(other UserRef) bool {
	return r.ID == other.ID && r.Model == other.Model
}

func (r UserRef) String() string {
	return string(r.Model) + ":" + r.ID
}

// UserContact is the read-only slice of the upstream user directory used to address emails.
type UserContact struct {
	User  UserRef `json:"user"`
	Email string  `json:"email"`
	Name  string  `json:"name"`
}
