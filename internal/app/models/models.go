package models

// RoleType defines the user role type within a school
type RoleType string

const (
	RoleStudent RoleType = "STUDENT"
	RoleTeacher RoleType = "TEACHER"
	RoleParent  RoleType = "PARENT"
	RoleAdmin   RoleType = "ADMIN"
)

// Valid reports whether the role is one of the closed set of roles.
func (r RoleType) Valid() bool {
	switch r {
	case RoleStudent, RoleTeacher, RoleParent, RoleAdmin:
		return true
	}
	return false
}

// DashboardURL returns the post-login redirect target for the role.
func (r RoleType) DashboardURL() string {
	switch r {
	case RoleStudent:
		return "/student/dashboard"
	case RoleTeacher:
		return "/teacher/dashboard"
	case RoleParent:
		return "/parent/dashboard"
	case RoleAdmin:
		return "/admin/dashboard"
	}
	return "/"
}

// SchoolStatus defines the lifecycle state of a school tenant
type SchoolStatus string

const (
	SchoolActive    SchoolStatus = "ACTIVE"
	SchoolInactive  SchoolStatus = "INACTIVE"
	SchoolSuspended SchoolStatus = "SUSPENDED"
)

// AuditAction defines the set of security-relevant actions recorded in the audit log
type AuditAction string

const (
	AuditLoginSuccess     AuditAction = "LOGIN_SUCCESS"
	AuditLoginFailed      AuditAction = "LOGIN_FAILED"
	AuditLoginError       AuditAction = "LOGIN_ERROR"
	AuditLogout           AuditAction = "LOGOUT"
	AuditContextSwitch    AuditAction = "CONTEXT_SWITCH"
	AuditIdentifierBlock  AuditAction = "IDENTIFIER_BLOCKED"
	AuditIdentifierUnlock AuditAction = "IDENTIFIER_UNBLOCKED"
	AuditOTPGenerated     AuditAction = "OTP_GENERATED"
)
