package dto

// SwitchContextRequest changes the active school or child of a session.
// Exactly one of the two fields may be set per call.
type SwitchContextRequest struct {
	NewSchoolID  string `json:"newSchoolId,omitempty"`
	NewStudentID string `json:"newStudentId,omitempty"`
}

// ActiveContext is the school/child pair a session is currently scoped to
type ActiveContext struct {
	SchoolID  string `json:"schoolId"`
	StudentID string `json:"studentId,omitempty"`
}

// SwitchContextResponse reports the context after a successful switch
type SwitchContextResponse struct {
	Success     bool          `json:"success"`
	NewContext  ActiveContext `json:"newContext"`
	RedirectURL string        `json:"redirectUrl"`
}
