package models

import "time"

// BlockedIdentifier defines a temporary deny-list entry based on the
// 'blocked_identifiers' table. Blocking an already-blocked identifier
// extends the expiry and bumps the attempt counter instead of adding a row.
type BlockedIdentifier struct {
	ID         string    `json:"id" db:"id"`
	Identifier string    `json:"identifier" db:"identifier"`
	Reason     string    `json:"reason" db:"reason"`
	Attempts   int       `json:"attempts" db:"attempts"`
	ExpiresAt  time.Time `json:"expiresAt" db:"expires_at"`
	CreatedAt  time.Time `json:"createdAt" db:"created_at"`
	UpdatedAt  time.Time `json:"updatedAt" db:"updated_at"`
}

// IsActive reports whether the block is still in force.
func (b *BlockedIdentifier) IsActive(now time.Time) bool {
	return now.Before(b.ExpiresAt)
}
