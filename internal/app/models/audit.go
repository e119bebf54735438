package models

import "time"

// AuditLog defines the append-only audit record based on the 'audit_logs' table
type AuditLog struct {
	ID        string      `json:"id" db:"id"`
	Action    AuditAction `json:"action" db:"action"`
	ActorID   *string     `json:"actorId,omitempty" db:"actor_id"` // Nil for failed lookups
	SchoolID  *string     `json:"schoolId,omitempty" db:"school_id"`
	Resource  string      `json:"resource" db:"resource"` // e.g. the identifier being acted on
	Payload   string      `json:"payload" db:"payload"`   // Serialized change detail, JSON
	ClientIP  string      `json:"clientIp" db:"client_ip"`
	UserAgent string      `json:"userAgent" db:"user_agent"`
	CreatedAt time.Time   `json:"createdAt" db:"created_at"`
}
