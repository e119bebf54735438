package repositories

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/paathshala/backend/internal/pkg/logger"
	"github.com/paathshala/backend/internal/pkg/ratelimit"
)

// BlockRepository persists identifier blocks. It implements ratelimit.BlockStore
// so blocks survive process restarts while counters live in the limiter store.
type BlockRepository struct {
	db *pgxpool.Pool
}

// NewBlockRepository creates a new BlockRepository
func NewBlockRepository(db *pgxpool.Pool) *BlockRepository {
	return &BlockRepository{
		db: db,
	}
}

// Upsert creates a block for the identifier or extends an existing one.
// A re-block while already blocked bumps the attempt counter and pushes
// the expiry out; a fresh block after an expired one starts over.
func (r *BlockRepository) Upsert(ctx context.Context, identifier, reason string, expiresAt time.Time) (*ratelimit.BlockInfo, error) {
	now := time.Now()
	info := &ratelimit.BlockInfo{}

	err := r.db.QueryRow(ctx, `
		INSERT INTO blocked_identifiers (id, identifier, reason, attempts, expires_at, created_at, updated_at)
		VALUES ($1, $2, $3, 1, $4, $5, $5)
		ON CONFLICT (identifier) DO UPDATE SET
			reason     = EXCLUDED.reason,
			attempts   = CASE WHEN blocked_identifiers.expires_at > EXCLUDED.updated_at
			                  THEN blocked_identifiers.attempts + 1 ELSE 1 END,
			expires_at = EXCLUDED.expires_at,
			updated_at = EXCLUDED.updated_at
		RETURNING identifier, reason, attempts, expires_at`,
		uuid.New().String(), identifier, reason, expiresAt, now).Scan(
		&info.Identifier, &info.Reason, &info.Attempts, &info.ExpiresAt)

	if err != nil {
		logger.Error().Err(err).Str("identifier", identifier).Msg("Error upserting identifier block")
		return nil, fmt.Errorf("error upserting block: %w", err)
	}

	info.IsActive = info.ExpiresAt.After(now)

	return info, nil
}

// Get returns the block recorded for an identifier, nil when none exists
func (r *BlockRepository) Get(ctx context.Context, identifier string) (*ratelimit.BlockInfo, error) {
	info := &ratelimit.BlockInfo{}
	err := r.db.QueryRow(ctx, `
		SELECT identifier, reason, attempts, expires_at
		FROM blocked_identifiers
		WHERE identifier = $1`,
		identifier).Scan(&info.Identifier, &info.Reason, &info.Attempts, &info.ExpiresAt)

	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		logger.Error().Err(err).Str("identifier", identifier).Msg("Error retrieving identifier block")
		return nil, fmt.Errorf("error retrieving block: %w", err)
	}

	info.IsActive = info.ExpiresAt.After(time.Now())

	return info, nil
}

// Delete removes the block for an identifier, reporting whether one existed
func (r *BlockRepository) Delete(ctx context.Context, identifier string) (bool, error) {
	cmdTag, err := r.db.Exec(ctx, `
		DELETE FROM blocked_identifiers
		WHERE identifier = $1`,
		identifier)

	if err != nil {
		logger.Error().Err(err).Str("identifier", identifier).Msg("Error deleting identifier block")
		return false, fmt.Errorf("error deleting block: %w", err)
	}

	return cmdTag.RowsAffected() > 0, nil
}
