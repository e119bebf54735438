package dto

import "time"

// UnblockRequest lifts a block from an identifier
type UnblockRequest struct {
	Identifier string `json:"identifier" binding:"required"`
}

// UnblockResponse reports whether a block was actually removed
type UnblockResponse struct {
	Unblocked bool `json:"unblocked"`
}

// AuditEntry is one audit log row in list responses
type AuditEntry struct {
	ID        string    `json:"id"`
	Action    string    `json:"action"`
	ActorID   string    `json:"actorId,omitempty"`
	SchoolID  string    `json:"schoolId,omitempty"`
	Resource  string    `json:"resource"`
	Payload   string    `json:"payload"`
	ClientIP  string    `json:"clientIp"`
	UserAgent string    `json:"userAgent"`
	CreatedAt time.Time `json:"createdAt"`
}

// AuditListResponse is a page of audit entries
type AuditListResponse struct {
	Entries []AuditEntry `json:"entries"`
	Total   int          `json:"total"`
	Page    int          `json:"page"`
	Size    int          `json:"size"`
}
