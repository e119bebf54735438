package models

import "time"

// AuthSession defines the server-side session record based on the 'auth_sessions' table.
// The token is self-contained, but the session row is authoritative for the
// active school/child context so a switch takes effect without reissuing the token.
type AuthSession struct {
	ID              string     `json:"id" db:"id"` // Matches the token's jti claim
	UserID          string     `json:"userId" db:"user_id"`
	Role            RoleType   `json:"role" db:"role"`
	ActiveSchoolID  string     `json:"activeSchoolId" db:"active_school_id"`
	ActiveStudentID *string    `json:"activeStudentId,omitempty" db:"active_student_id"` // Parents only
	ClientIP        string     `json:"clientIp" db:"client_ip"`
	UserAgent       string     `json:"userAgent" db:"user_agent"`
	ExpiresAt       time.Time  `json:"expiresAt" db:"expires_at"`
	RevokedAt       *time.Time `json:"revokedAt,omitempty" db:"revoked_at"`
	CreatedAt       time.Time  `json:"createdAt" db:"created_at"`
	UpdatedAt       time.Time  `json:"updatedAt" db:"updated_at"`
}

// Live reports whether the session is usable at the given instant.
func (s *AuthSession) Live(now time.Time) bool {
	return s.RevokedAt == nil && now.Before(s.ExpiresAt)
}
