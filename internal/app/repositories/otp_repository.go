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
)

// IOTPRepository defines the interface for one-time passcode persistence
type IOTPRepository interface {
	Create(ctx context.Context, identifier, codeHash string, expiresAt time.Time) (*models.OTP, error)
	GetLive(ctx context.Context, identifier string) (*models.OTP, error)
	IncrementAttempts(ctx context.Context, id string) (int, error)
	MarkUsed(ctx context.Context, id string) error
	DeleteExpired(ctx context.Context, before time.Time) (int64, error)
}

// OTPRepository handles one-time passcode database operations
type OTPRepository struct {
	db *pgxpool.Pool
}

// NewOTPRepository creates a new OTPRepository
func NewOTPRepository(db *pgxpool.Pool) *OTPRepository {
	return &OTPRepository{
		db: db,
	}
}

// Create stores a freshly generated code hash and supersedes any prior live
// code for the identifier, so exactly one code is ever verifiable.
func (r *OTPRepository) Create(ctx context.Context, identifier, codeHash string, expiresAt time.Time) (*models.OTP, error) {
	tx, err := r.db.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to begin otp transaction: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	// Supersede earlier codes
	if _, err := tx.Exec(ctx, `
		UPDATE otps
		SET used = TRUE
		WHERE identifier = $1 AND used = FALSE`,
		identifier); err != nil {
		return nil, fmt.Errorf("error superseding previous otps: %w", err)
	}

	record := &models.OTP{
		ID:         uuid.New().String(),
		Identifier: identifier,
		CodeHash:   codeHash,
		ExpiresAt:  expiresAt,
	}

	err = tx.QueryRow(ctx, `
		INSERT INTO otps (id, identifier, code_hash, expires_at, attempts, used)
		VALUES ($1, $2, $3, $4, 0, FALSE)
		RETURNING created_at`,
		record.ID, record.Identifier, record.CodeHash, record.ExpiresAt).Scan(&record.CreatedAt)
	if err != nil {
		return nil, fmt.Errorf("error creating otp: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("failed to commit otp transaction: %w", err)
	}

	return record, nil
}

// GetLive retrieves the single unconsumed code for an identifier, nil when none exists
func (r *OTPRepository) GetLive(ctx context.Context, identifier string) (*models.OTP, error) {
	record := &models.OTP{}
	err := r.db.QueryRow(ctx, `
		SELECT id, identifier, code_hash, expires_at, attempts, used, created_at
		FROM otps
		WHERE identifier = $1 AND used = FALSE
		ORDER BY created_at DESC
		LIMIT 1`,
		identifier).Scan(
		&record.ID, &record.Identifier, &record.CodeHash, &record.ExpiresAt,
		&record.Attempts, &record.Used, &record.CreatedAt)

	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("error retrieving live otp: %w", err)
	}

	return record, nil
}

// IncrementAttempts bumps the attempt counter and returns the new value
func (r *OTPRepository) IncrementAttempts(ctx context.Context, id string) (int, error) {
	var attempts int
	err := r.db.QueryRow(ctx, `
		UPDATE otps
		SET attempts = attempts + 1
		WHERE id = $1
		RETURNING attempts`,
		id).Scan(&attempts)

	if err != nil {
		return 0, fmt.Errorf("error incrementing otp attempts: %w", err)
	}

	return attempts, nil
}

// MarkUsed consumes the code so it can never verify again
func (r *OTPRepository) MarkUsed(ctx context.Context, id string) error {
	_, err := r.db.Exec(ctx, `
		UPDATE otps
		SET used = TRUE
		WHERE id = $1`,
		id)

	if err != nil {
		return fmt.Errorf("error marking otp used: %w", err)
	}

	return nil
}

// DeleteExpired removes codes whose expiry is before the given instant
func (r *OTPRepository) DeleteExpired(ctx context.Context, before time.Time) (int64, error) {
	cmdTag, err := r.db.Exec(ctx, `
		DELETE FROM otps
		WHERE expires_at < $1`,
		before)

	if err != nil {
		return 0, fmt.Errorf("error deleting expired otps: %w", err)
	}

	return cmdTag.RowsAffected(), nil
}
