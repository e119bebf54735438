package dto

import "time"

// CredentialType identifies which credential the login request carries
type CredentialType string

const (
	CredentialOTP      CredentialType = "otp"
	CredentialPassword CredentialType = "password"
)

// Credentials carries the secret presented at login
type Credentials struct {
	Type  CredentialType `json:"type" binding:"required,oneof=otp password"`
	Value string         `json:"value" binding:"required"`
}

// LoginRequest represents a login attempt against one school
type LoginRequest struct {
	Identifier  string      `json:"identifier" binding:"required"` // Mobile number or email
	SchoolID    string      `json:"schoolId" binding:"required"`
	Credentials Credentials `json:"credentials" binding:"required"`
}

// UserInfo represents the authenticated user in login responses
type UserInfo struct {
	ID     string `json:"id"`
	Name   string `json:"name"`
	Role   string `json:"role"`
	Mobile string `json:"mobile,omitempty"`
	Email  string `json:"email,omitempty"`
}

// SchoolOption is one selectable school in a multi-school response
type SchoolOption struct {
	ID     string `json:"id"`
	Name   string `json:"name"`
	Role   string `json:"role"`
	Status string `json:"status"`
}

// ChildOption is one selectable child in a parent login response
type ChildOption struct {
	StudentID string `json:"studentId"`
	Name      string `json:"name"`
	ClassName string `json:"className,omitempty"`
}

// LoginResponse represents a successful authentication
type LoginResponse struct {
	Success                 bool           `json:"success"`
	User                    UserInfo       `json:"user"`
	Token                   string         `json:"token"`
	ExpiresAt               time.Time      `json:"expiresAt"`
	RedirectURL             string         `json:"redirectUrl,omitempty"` // Only when no further selection is needed
	RequiresSchoolSelection bool           `json:"requiresSchoolSelection,omitempty"`
	AvailableSchools        []SchoolOption `json:"availableSchools,omitempty"`
	RequiresChildSelection  bool           `json:"requiresChildSelection,omitempty"`
	AvailableChildren       []ChildOption  `json:"availableChildren,omitempty"`
}

// GenerateOTPRequest asks for a new one-time code
type GenerateOTPRequest struct {
	Identifier string `json:"identifier" binding:"required"`
}

// GenerateOTPResponse reports when the freshly issued code expires
type GenerateOTPResponse struct {
	ExpiresAt time.Time `json:"expiresAt"`
	Message   string    `json:"message"`
}

// VerifyOTPRequest verifies a previously issued code
type VerifyOTPRequest struct {
	Identifier string `json:"identifier" binding:"required"`
	Code       string `json:"code" binding:"required,len=6,numeric"`
}

// VerifyOTPResponse reports verification outcome
type VerifyOTPResponse struct {
	Verified bool `json:"verified"`
}

// MeResponse describes the caller's active session context
type MeResponse struct {
	User            UserInfo  `json:"user"`
	ActiveSchoolID  string    `json:"activeSchoolId"`
	ActiveStudentID string    `json:"activeStudentId,omitempty"`
	ExpiresAt       time.Time `json:"expiresAt"`
}
