package models

import "time"

// School defines the tenant record based on the 'schools' table
type School struct {
	ID        string       `json:"id" db:"id" example:"school-1"`
	Name      string       `json:"name" db:"name" example:"Green Valley Public School"`
	Code      string       `json:"code" db:"code" example:"GVPS"`
	Status    SchoolStatus `json:"status" db:"status" example:"ACTIVE"`
	CreatedAt time.Time    `json:"createdAt" db:"created_at"`
	UpdatedAt time.Time    `json:"updatedAt" db:"updated_at"`
}

// Accepting reports whether the school accepts logins.
func (s *School) Accepting() bool {
	return s.Status == SchoolActive
}
