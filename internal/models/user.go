package models

import (
	"encoding/json"
	"strings"
)

// Role represents user role in the portal.
type Role string

const (
	RoleAdmin       Role = "ADMIN"
	RoleOrganizer   Role = "ORGANIZER"
	RoleParticipant Role = "PARTICIPANT"
)

// ParseRole normalizes s to a known role. Casing and surrounding spaces are ignored.
func ParseRole(s string) (Role, bool) {
	r := Role(strings.ToUpper(strings.TrimSpace(s)))
	return r, r.Valid()
}

// Valid reports whether r is one of the known roles.
func (r Role) Valid() bool {
	switch r {
	case RoleAdmin, RoleOrganizer, RoleParticipant:
		return true
	}
	return false
}

// DisplayName returns the title-cased role shown to users ("Admin", "Organizer", "Participant").
func (r Role) DisplayName() string {
	switch r {
	case RoleAdmin:
		return "Admin"
	case RoleOrganizer:
		return "Organizer"
	case RoleParticipant:
		return "Participant"
	}
	return string(r)
}

// UnmarshalJSON accepts any casing. Unknown values are kept upper-cased so Valid reports false.
func (r *Role) UnmarshalJSON(b []byte) error {
	var s string
	if err := json.Unmarshal(b, &s); err != nil {
		return err
	}
	*r = Role(strings.ToUpper(strings.TrimSpace(s)))
	return nil
}

// User represents a portal account as reported by the backend.
type User struct {
	ID            ID     `json:"id,omitempty"`
	Username      string `json:"username"`
	Email         string `json:"email"`
	Role          Role   `json:"role"`
	ContactNumber string `json:"contactNumber,omitempty"`
}

// CachedUser is a registeredUsers entry in the fallback cache.
type CachedUser struct {
	User
	PasswordHash string `json:"passwordHash"`
}
