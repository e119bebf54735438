package models

import "time"

// OTP defines the one-time passcode record based on the 'otps' table.
// Only the hash of the code is stored, never the plaintext.
type OTP struct {
	ID         string    `json:"id" db:"id"`
	Identifier string    `json:"identifier" db:"identifier"` // Mobile number or email
	CodeHash   string    `json:"-" db:"code_hash"`
	ExpiresAt  time.Time `json:"expiresAt" db:"expires_at"`
	Attempts   int       `json:"attempts" db:"attempts"`
	Used       bool      `json:"used" db:"used"`
	CreatedAt  time.Time `json:"createdAt" db:"created_at"`
}

// Expired reports whether the code is past its expiry at the given instant.
func (o *OTP) Expired(now time.Time) bool {
	return now.After(o.ExpiresAt)
}
