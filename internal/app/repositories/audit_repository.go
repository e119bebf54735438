package repositories

import (
	"context"
	"fmt"
	"time"

	"github.com/Masterminds/squirrel"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/paathshala/backend/internal/app/models"
	"github.com/paathshala/backend/internal/pkg/logger"
)

// IAuditRepository defines the interface for the append-only audit trail
type IAuditRepository interface {
	Create(ctx context.Context, entry *models.AuditLog) error
	ListBySchool(ctx context.Context, schoolID string, page, size int) ([]models.AuditLog, int64, error)
}

// AuditRepository handles audit log database operations
type AuditRepository struct {
	db *pgxpool.Pool
	sb squirrel.StatementBuilderType
}

// NewAuditRepository creates a new AuditRepository
func NewAuditRepository(db *pgxpool.Pool) *AuditRepository {
	return &AuditRepository{
		db: db,
		sb: squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar),
	}
}

// Create appends one audit entry. Rows are never updated or deleted.
func (r *AuditRepository) Create(ctx context.Context, entry *models.AuditLog) error {
	if entry.ID == "" {
		entry.ID = uuid.New().String()
	}
	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = time.Now()
	}

	sql, args, err := r.sb.Insert("audit_logs").
		Columns("id", "action", "actor_id", "school_id", "resource", "payload",
			"client_ip", "user_agent", "created_at").
		Values(entry.ID, entry.Action, entry.ActorID, entry.SchoolID, entry.Resource, entry.Payload,
			entry.ClientIP, entry.UserAgent, entry.CreatedAt).
		ToSql()

	if err != nil {
		logger.Error().Err(err).Msg("Error building create audit entry SQL")
		return fmt.Errorf("failed to build create audit query: %w", err)
	}

	_, err = r.db.Exec(ctx, sql, args...)
	if err != nil {
		logger.Error().Err(err).Str("action", string(entry.Action)).Msg("Error executing create audit query")
		return fmt.Errorf("error creating audit entry: %w", err)
	}

	return nil
}

// ListBySchool returns a page of audit entries for a school, newest first
func (r *AuditRepository) ListBySchool(ctx context.Context, schoolID string, page, size int) ([]models.AuditLog, int64, error) {
	if page < 1 {
		page = 1
	}
	if size < 1 || size > 100 {
		size = 20
	}

	countSQL, countArgs, err := r.sb.Select("COUNT(*)").
		From("audit_logs").
		Where(squirrel.Eq{"school_id": schoolID}).
		ToSql()
	if err != nil {
		return nil, 0, fmt.Errorf("failed to build count audit query: %w", err)
	}

	var total int64
	if err := r.db.QueryRow(ctx, countSQL, countArgs...).Scan(&total); err != nil {
		logger.Error().Err(err).Str("schoolID", schoolID).Msg("Error counting audit entries")
		return nil, 0, fmt.Errorf("error counting audit entries: %w", err)
	}

	sql, args, err := r.sb.Select("id", "action", "actor_id", "school_id", "resource", "payload",
		"client_ip", "user_agent", "created_at").
		From("audit_logs").
		Where(squirrel.Eq{"school_id": schoolID}).
		OrderBy("created_at DESC").
		Limit(uint64(size)).
		Offset(uint64((page - 1) * size)).
		ToSql()
	if err != nil {
		return nil, 0, fmt.Errorf("failed to build list audit query: %w", err)
	}

	rows, err := r.db.Query(ctx, sql, args...)
	if err != nil {
		logger.Error().Err(err).Str("schoolID", schoolID).Msg("Error listing audit entries")
		return nil, 0, fmt.Errorf("error listing audit entries: %w", err)
	}
	defer rows.Close()

	entries := make([]models.AuditLog, 0, size)
	for rows.Next() {
		var entry models.AuditLog
		if err := rows.Scan(&entry.ID, &entry.Action, &entry.ActorID, &entry.SchoolID, &entry.Resource,
			&entry.Payload, &entry.ClientIP, &entry.UserAgent, &entry.CreatedAt); err != nil {
			return nil, 0, fmt.Errorf("error scanning audit entry: %w", err)
		}
		entries = append(entries, entry)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("error iterating audit entries: %w", err)
	}

	return entries, total, nil
}
