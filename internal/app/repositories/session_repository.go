package repositories

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/Masterminds/squirrel"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/paathshala/backend/internal/app/models"
	"github.com/paathshala/backend/internal/pkg/apperrors"
	"github.com/paathshala/backend/internal/pkg/logger"
)

// ISessionRepository defines the interface for authenticated session persistence
type ISessionRepository interface {
	Create(ctx context.Context, session *models.AuthSession) error
	GetByID(ctx context.Context, id string) (*models.AuthSession, error)
	UpdateContext(ctx context.Context, id, schoolID string, studentID *string) error
	Revoke(ctx context.Context, id string) error
	RevokeAllForUser(ctx context.Context, userID string) error
	DeleteExpired(ctx context.Context) (int64, error)
}

// SessionRepository handles session database operations
type SessionRepository struct {
	db *pgxpool.Pool
	sb squirrel.StatementBuilderType
}

// NewSessionRepository creates a new SessionRepository
func NewSessionRepository(db *pgxpool.Pool) *SessionRepository {
	return &SessionRepository{
		db: db,
		sb: squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar),
	}
}

// Create records a new session row
func (r *SessionRepository) Create(ctx context.Context, session *models.AuthSession) error {
	now := time.Now()
	sql, args, err := r.sb.Insert("auth_sessions").
		Columns("id", "user_id", "role", "active_school_id", "active_student_id",
			"client_ip", "user_agent", "expires_at", "created_at", "updated_at").
		Values(session.ID, session.UserID, session.Role, session.ActiveSchoolID, session.ActiveStudentID,
			session.ClientIP, session.UserAgent, session.ExpiresAt, now, now).
		ToSql()

	if err != nil {
		logger.Error().Err(err).Msg("Error building create session SQL")
		return fmt.Errorf("failed to build create session query: %w", err)
	}

	_, err = r.db.Exec(ctx, sql, args...)
	if err != nil {
		logger.Error().Err(err).Str("sessionID", session.ID).Str("userID", session.UserID).Msg("Error executing create session query")
		return fmt.Errorf("error creating session: %w", err)
	}

	session.CreatedAt = now
	session.UpdatedAt = now

	return nil
}

// GetByID retrieves a session row by its identifier
func (r *SessionRepository) GetByID(ctx context.Context, id string) (*models.AuthSession, error) {
	sql, args, err := r.sb.Select("id", "user_id", "role", "active_school_id", "active_student_id",
		"client_ip", "user_agent", "expires_at", "revoked_at", "created_at", "updated_at").
		From("auth_sessions").
		Where(squirrel.Eq{"id": id}).
		Limit(1).
		ToSql()

	if err != nil {
		logger.Error().Err(err).Msg("Error building get session SQL")
		return nil, fmt.Errorf("failed to build get session query: %w", err)
	}

	session := &models.AuthSession{}
	err = r.db.QueryRow(ctx, sql, args...).Scan(
		&session.ID, &session.UserID, &session.Role, &session.ActiveSchoolID, &session.ActiveStudentID,
		&session.ClientIP, &session.UserAgent, &session.ExpiresAt, &session.RevokedAt,
		&session.CreatedAt, &session.UpdatedAt)

	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.ErrSessionNotFound
		}
		logger.Error().Err(err).Str("sessionID", id).Msg("Error scanning session row")
		return nil, fmt.Errorf("error retrieving session: %w", err)
	}

	return session, nil
}

// UpdateContext changes the active school and student of a session
func (r *SessionRepository) UpdateContext(ctx context.Context, id, schoolID string, studentID *string) error {
	sql, args, err := r.sb.Update("auth_sessions").
		Set("active_school_id", schoolID).
		Set("active_student_id", studentID).
		Set("updated_at", time.Now()).
		Where(squirrel.Eq{"id": id}).
		Where(squirrel.Eq{"revoked_at": nil}).
		ToSql()

	if err != nil {
		logger.Error().Err(err).Msg("Error building update session context SQL")
		return fmt.Errorf("failed to build update session context query: %w", err)
	}

	cmdTag, err := r.db.Exec(ctx, sql, args...)
	if err != nil {
		logger.Error().Err(err).Str("sessionID", id).Msg("Error executing update session context query")
		return fmt.Errorf("error updating session context: %w", err)
	}

	if cmdTag.RowsAffected() == 0 {
		return apperrors.ErrSessionNotFound
	}

	return nil
}

// Revoke marks a session as ended
func (r *SessionRepository) Revoke(ctx context.Context, id string) error {
	sql, args, err := r.sb.Update("auth_sessions").
		Set("revoked_at", time.Now()).
		Set("updated_at", time.Now()).
		Where(squirrel.Eq{"id": id, "revoked_at": nil}).
		ToSql()

	if err != nil {
		logger.Error().Err(err).Msg("Error building revoke session SQL")
		return fmt.Errorf("failed to build revoke session query: %w", err)
	}

	cmdTag, err := r.db.Exec(ctx, sql, args...)
	if err != nil {
		logger.Error().Err(err).Str("sessionID", id).Msg("Error executing revoke session query")
		return fmt.Errorf("error revoking session: %w", err)
	}

	if cmdTag.RowsAffected() == 0 {
		return apperrors.ErrSessionNotFound
	}

	return nil
}

// RevokeAllForUser ends every live session belonging to a user
func (r *SessionRepository) RevokeAllForUser(ctx context.Context, userID string) error {
	sql, args, err := r.sb.Update("auth_sessions").
		Set("revoked_at", time.Now()).
		Set("updated_at", time.Now()).
		Where(squirrel.Eq{"user_id": userID, "revoked_at": nil}).
		ToSql()

	if err != nil {
		logger.Error().Err(err).Str("userID", userID).Msg("Error building revoke user sessions SQL")
		return fmt.Errorf("failed to build revoke user sessions query: %w", err)
	}

	_, err = r.db.Exec(ctx, sql, args...)
	if err != nil {
		// Fine if the user had no live sessions
		logger.Error().Err(err).Str("userID", userID).Msg("Error executing revoke user sessions query")
		return fmt.Errorf("error revoking user sessions: %w", err)
	}

	return nil
}

// DeleteExpired removes expired sessions and revoked sessions older than 30 days
func (r *SessionRepository) DeleteExpired(ctx context.Context) (int64, error) {
	thirtyDaysAgo := time.Now().Add(-30 * 24 * time.Hour)
	now := time.Now()

	sql, args, err := r.sb.Delete("auth_sessions").
		Where(squirrel.Or{
			squirrel.Lt{"expires_at": now},
			squirrel.And{
				squirrel.NotEq{"revoked_at": nil},
				squirrel.Lt{"updated_at": thirtyDaysAgo},
			},
		}).
		ToSql()

	if err != nil {
		logger.Error().Err(err).Msg("Error building cleanup sessions SQL")
		return 0, fmt.Errorf("failed to build cleanup sessions query: %w", err)
	}

	cmdTag, err := r.db.Exec(ctx, sql, args...)
	if err != nil {
		logger.Error().Err(err).Msg("Error executing cleanup sessions query")
		return 0, fmt.Errorf("error cleaning up sessions: %w", err)
	}

	deletedCount := cmdTag.RowsAffected()
	logger.Info().Int64("deletedCount", deletedCount).Msg("Cleaned up expired/old revoked sessions")

	return deletedCount, nil
}
