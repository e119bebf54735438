package repositories

import (
	"github.com/jackc/pgx/v5/pgxpool"
)

// Repositories holds all the repository instances
type Repositories struct {
	UserRepository    *UserRepository
	SchoolRepository  *SchoolRepository
	StudentRepository *StudentRepository
	OTPRepository     *OTPRepository
	SessionRepository *SessionRepository
	BlockRepository   *BlockRepository
	AuditRepository   *AuditRepository
}

// NewRepositories initializes all repositories
func NewRepositories(db *pgxpool.Pool) *Repositories {
	return &Repositories{
		UserRepository:    NewUserRepository(db),
		SchoolRepository:  NewSchoolRepository(db),
		StudentRepository: NewStudentRepository(db),
		OTPRepository:     NewOTPRepository(db),
		SessionRepository: NewSessionRepository(db),
		BlockRepository:   NewBlockRepository(db),
		AuditRepository:   NewAuditRepository(db),
	}
}
