package domain

import "time"

// SessionUser is the identity projection returned with a fresh session.
type SessionUser struct {
	ID               string `json:"id"`
	PhoneNumber      string `json:"phone_number"`
	Authenticated    bool   `json:"authenticated"`
	ProfileCompleted bool   `json:"profile_completed"`
}

// Session is the result of a successful code verification.
type Session struct {
	Token     string      `json:"sessionToken"`
	TokenID   string      `json:"-"`
	IssuedAt  time.Time   `json:"issued_at"`
	ExpiresAt time.Time   `json:"expires_at"`
	User      SessionUser `json:"user"`
}
