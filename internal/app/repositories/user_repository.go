package repositories

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/paathshala/backend/internal/app/models"
	"github.com/paathshala/backend/internal/pkg/apperrors"
	"github.com/paathshala/backend/internal/pkg/dberrors"
)

// IUserRepository defines the interface for user-related database operations
type IUserRepository interface {
	// Identity
	GetActiveByIdentifier(ctx context.Context, identifier string) (*models.User, error)
	GetByID(ctx context.Context, id string) (*models.User, error)
	Create(ctx context.Context, user *models.User) error
	UpdateLastLogin(ctx context.Context, userID string) error

	// School membership
	GetUserSchools(ctx context.Context, userID string) ([]*models.UserSchool, error)
	HasActiveEnrollment(ctx context.Context, userID, schoolID string) (bool, error)
}

// UserRepository handles user and enrollment database operations
type UserRepository struct {
	db *pgxpool.Pool
}

// NewUserRepository creates a new UserRepository
func NewUserRepository(db *pgxpool.Pool) *UserRepository {
	return &UserRepository{
		db: db,
	}
}

// GetActiveByIdentifier retrieves an active user by mobile number or email.
// Inactive accounts surface the same ErrUserNotFound as missing accounts.
func (r *UserRepository) GetActiveByIdentifier(ctx context.Context, identifier string) (*models.User, error) {
	user := &models.User{}
	err := r.db.QueryRow(ctx, `
		SELECT id, name, mobile, email, password_hash, is_active, created_at, updated_at, last_login_at
		FROM users
		WHERE (mobile = $1 OR email = $1) AND is_active = TRUE`,
		identifier).Scan(
		&user.ID, &user.Name, &user.Mobile, &user.Email, &user.PasswordHash,
		&user.IsActive, &user.CreatedAt, &user.UpdatedAt, &user.LastLoginAt)

	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.ErrUserNotFound
		}
		return nil, fmt.Errorf("error retrieving user by identifier: %w", err)
	}

	return user, nil
}

// GetByID retrieves a user by ID
func (r *UserRepository) GetByID(ctx context.Context, id string) (*models.User, error) {
	user := &models.User{}
	err := r.db.QueryRow(ctx, `
		SELECT id, name, mobile, email, password_hash, is_active, created_at, updated_at, last_login_at
		FROM users
		WHERE id = $1`,
		id).Scan(
		&user.ID, &user.Name, &user.Mobile, &user.Email, &user.PasswordHash,
		&user.IsActive, &user.CreatedAt, &user.UpdatedAt, &user.LastLoginAt)

	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.ErrUserNotFound
		}
		return nil, fmt.Errorf("error retrieving user: %w", err)
	}

	return user, nil
}

// Create creates a new user
func (r *UserRepository) Create(ctx context.Context, user *models.User) error {
	if user.ID == "" {
		user.ID = uuid.New().String()
	}

	_, err := r.db.Exec(ctx, `
		INSERT INTO users (id, name, mobile, email, password_hash, is_active)
		VALUES ($1, $2, $3, $4, $5, $6)`,
		user.ID, user.Name, user.Mobile, user.Email, user.PasswordHash, user.IsActive)

	if err != nil {
		if dberrors.IsDuplicateConstraintError(err, "users_mobile_key") ||
			dberrors.IsDuplicateConstraintError(err, "users_email_key") {
			return apperrors.ErrIdentifierTaken
		}
		return fmt.Errorf("error creating user: %w", err)
	}

	return nil
}

// UpdateLastLogin updates the last login time
func (r *UserRepository) UpdateLastLogin(ctx context.Context, userID string) error {
	now := time.Now()
	_, err := r.db.Exec(ctx, `
		UPDATE users
		SET last_login_at = $1
		WHERE id = $2`,
		now, userID)

	if err != nil {
		return fmt.Errorf("failed to update last login time: %w", err)
	}

	return nil
}

// GetUserSchools retrieves all active school memberships for a user, with the
// school joined in, most recent enrollment first. The ordering is a business
// rule: when a single school must be picked by default the most recently
// enrolled one wins.
func (r *UserRepository) GetUserSchools(ctx context.Context, userID string) ([]*models.UserSchool, error) {
	rows, err := r.db.Query(ctx, `
		SELECT us.id, us.user_id, us.school_id, us.role, us.is_active, us.enrolled_at,
		       s.id, s.name, s.code, s.status, s.created_at, s.updated_at
		FROM user_schools us
		JOIN schools s ON s.id = us.school_id
		WHERE us.user_id = $1 AND us.is_active = TRUE
		ORDER BY us.enrolled_at DESC, us.id DESC`,
		userID)
	if err != nil {
		return nil, fmt.Errorf("error retrieving user schools: %w", err)
	}
	defer rows.Close()

	var memberships []*models.UserSchool
	for rows.Next() {
		us := &models.UserSchool{School: &models.School{}}
		if err := rows.Scan(
			&us.ID, &us.UserID, &us.SchoolID, &us.Role, &us.IsActive, &us.EnrolledAt,
			&us.School.ID, &us.School.Name, &us.School.Code, &us.School.Status,
			&us.School.CreatedAt, &us.School.UpdatedAt); err != nil {
			return nil, fmt.Errorf("error scanning user school row: %w", err)
		}
		memberships = append(memberships, us)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating user school rows: %w", err)
	}

	return memberships, nil
}

// HasActiveEnrollment checks whether a user has an active membership in a school
func (r *UserRepository) HasActiveEnrollment(ctx context.Context, userID, schoolID string) (bool, error) {
	var exists bool
	err := r.db.QueryRow(ctx, `
		SELECT EXISTS(
			SELECT 1 FROM user_schools
			WHERE user_id = $1 AND school_id = $2 AND is_active = TRUE)`,
		userID, schoolID).Scan(&exists)

	if err != nil {
		return false, fmt.Errorf("error checking enrollment: %w", err)
	}

	return exists, nil
}
