package repositories

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/paathshala/backend/internal/app/models"
	"github.com/paathshala/backend/internal/pkg/apperrors"
	"github.com/paathshala/backend/internal/pkg/dberrors"
)

// ISchoolRepository defines the interface for school database operations
type ISchoolRepository interface {
	GetByID(ctx context.Context, id string) (*models.School, error)
	Create(ctx context.Context, school *models.School) error
	UpdateStatus(ctx context.Context, id string, status models.SchoolStatus) error
}

// SchoolRepository handles school database operations
type SchoolRepository struct {
	db *pgxpool.Pool
}

// NewSchoolRepository creates a new SchoolRepository
func NewSchoolRepository(db *pgxpool.Pool) *SchoolRepository {
	return &SchoolRepository{
		db: db,
	}
}

// GetByID retrieves a school by ID
func (r *SchoolRepository) GetByID(ctx context.Context, id string) (*models.School, error) {
	school := &models.School{}
	err := r.db.QueryRow(ctx, `
		SELECT id, name, code, status, created_at, updated_at
		FROM schools
		WHERE id = $1`,
		id).Scan(
		&school.ID, &school.Name, &school.Code, &school.Status,
		&school.CreatedAt, &school.UpdatedAt)

	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.ErrSchoolNotFound
		}
		return nil, fmt.Errorf("error retrieving school: %w", err)
	}

	return school, nil
}

// Create creates a new school
func (r *SchoolRepository) Create(ctx context.Context, school *models.School) error {
	if school.ID == "" {
		school.ID = uuid.New().String()
	}
	if school.Status == "" {
		school.Status = models.SchoolActive
	}

	_, err := r.db.Exec(ctx, `
		INSERT INTO schools (id, name, code, status)
		VALUES ($1, $2, $3, $4)`,
		school.ID, school.Name, school.Code, school.Status)

	if err != nil {
		if dberrors.IsDuplicateConstraintError(err, "schools_code_key") {
			return apperrors.ErrSchoolCodeExists
		}
		return fmt.Errorf("error creating school: %w", err)
	}

	return nil
}

// UpdateStatus changes a school's lifecycle status
func (r *SchoolRepository) UpdateStatus(ctx context.Context, id string, status models.SchoolStatus) error {
	cmdTag, err := r.db.Exec(ctx, `
		UPDATE schools
		SET status = $1, updated_at = NOW()
		WHERE id = $2`,
		status, id)

	if err != nil {
		return fmt.Errorf("error updating school status: %w", err)
	}

	if cmdTag.RowsAffected() == 0 {
		return apperrors.ErrSchoolNotFound
	}

	return nil
}
