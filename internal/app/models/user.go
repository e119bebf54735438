package models

import (
	"time"
)

// User defines the identity record based on the 'users' table.
// A user exists once across all schools; school membership lives in UserSchool.
type User struct {
	ID           string     `json:"id" db:"id" example:"user-1"`
	Name         string     `json:"name" db:"name" example:"Asha Verma"`
	Mobile       *string    `json:"mobile,omitempty" db:"mobile" example:"9876543210"` // At least one of mobile/email is set
	Email        *string    `json:"email,omitempty" db:"email" example:"asha@example.com"`
	PasswordHash *string    `json:"-" db:"password_hash"` // Optional; OTP-only accounts have none
	IsActive     bool       `json:"isActive" db:"is_active" example:"true"`
	CreatedAt    time.Time  `json:"createdAt" db:"created_at"`
	UpdatedAt    time.Time  `json:"updatedAt" db:"updated_at"`
	LastLoginAt  *time.Time `json:"lastLoginAt,omitempty" db:"last_login_at"`
}

// UserSchool binds a user to a school with a role, based on the 'user_schools' table.
// At most one row exists per (user, school) pair.
type UserSchool struct {
	ID         string    `json:"id" db:"id"`
	UserID     string    `json:"userId" db:"user_id"`
	SchoolID   string    `json:"schoolId" db:"school_id"`
	Role       RoleType  `json:"role" db:"role"`
	IsActive   bool      `json:"isActive" db:"is_active"`
	EnrolledAt time.Time `json:"enrolledAt" db:"enrolled_at"`
	School     *School   `json:"school,omitempty"` // Relation, no db tag
}
