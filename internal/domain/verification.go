package domain

import "time"

// PendingCode is the single live one-time code for a phone number.
// Only the bcrypt hash of the code is stored.
type PendingCode struct {
	Phone     string    `json:"phone"`
	CodeHash  string    `json:"code_hash"`
	ExpiresAt time.Time `json:"expires_at"`
	CreatedAt time.Time `json:"created_at"`
}

// Expired reports whether the code is past its expiry at now.
func (p *PendingCode) Expired(now time.Time) bool {
	return now.After(p.ExpiresAt)
}

// PendingCodeView is the debug projection of a PendingCode. It never carries the code.
type PendingCodeView struct {
	Phone   string    `json:"phone"`
	Expires time.Time `json:"expires"`
}
