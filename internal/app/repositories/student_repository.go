package repositories

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/paathshala/backend/internal/app/models"
	"github.com/paathshala/backend/internal/pkg/apperrors"
)

// IStudentRepository defines the interface for student and parent-link operations
type IStudentRepository interface {
	GetChildren(ctx context.Context, parentUserID, schoolID string) ([]*models.Student, error)
	IsLinkedChild(ctx context.Context, parentUserID, studentID, schoolID string) (bool, error)
	GetByID(ctx context.Context, id string) (*models.Student, error)
}

// StudentRepository handles student profile and parent-student link operations
type StudentRepository struct {
	db *pgxpool.Pool
}

// NewStudentRepository creates a new StudentRepository
func NewStudentRepository(db *pgxpool.Pool) *StudentRepository {
	return &StudentRepository{
		db: db,
	}
}

// GetChildren retrieves the students linked to a parent user within one school,
// with the student's user joined in for display names. Most recent enrollment first.
func (r *StudentRepository) GetChildren(ctx context.Context, parentUserID, schoolID string) ([]*models.Student, error) {
	rows, err := r.db.Query(ctx, `
		SELECT st.id, st.user_id, st.school_id, st.admission_number, st.class_name, st.enrolled_at,
		       u.id, u.name, u.is_active, u.created_at, u.updated_at
		FROM student_parents sp
		JOIN parents p ON p.id = sp.parent_id
		JOIN students st ON st.id = sp.student_id
		JOIN users u ON u.id = st.user_id
		WHERE p.user_id = $1 AND sp.school_id = $2
		ORDER BY st.enrolled_at DESC, st.id DESC`,
		parentUserID, schoolID)
	if err != nil {
		return nil, fmt.Errorf("error retrieving children: %w", err)
	}
	defer rows.Close()

	var students []*models.Student
	for rows.Next() {
		st := &models.Student{User: &models.User{}}
		if err := rows.Scan(
			&st.ID, &st.UserID, &st.SchoolID, &st.Admission, &st.ClassName, &st.EnrolledAt,
			&st.User.ID, &st.User.Name, &st.User.IsActive,
			&st.User.CreatedAt, &st.User.UpdatedAt); err != nil {
			return nil, fmt.Errorf("error scanning child row: %w", err)
		}
		students = append(students, st)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating child rows: %w", err)
	}

	return students, nil
}

// IsLinkedChild checks whether the student is linked to the parent user within the school
func (r *StudentRepository) IsLinkedChild(ctx context.Context, parentUserID, studentID, schoolID string) (bool, error) {
	var exists bool
	err := r.db.QueryRow(ctx, `
		SELECT EXISTS(
			SELECT 1
			FROM student_parents sp
			JOIN parents p ON p.id = sp.parent_id
			WHERE p.user_id = $1 AND sp.student_id = $2 AND sp.school_id = $3)`,
		parentUserID, studentID, schoolID).Scan(&exists)

	if err != nil {
		return false, fmt.Errorf("error checking parent-student link: %w", err)
	}

	return exists, nil
}

// GetByID retrieves a student profile by ID
func (r *StudentRepository) GetByID(ctx context.Context, id string) (*models.Student, error) {
	st := &models.Student{}
	err := r.db.QueryRow(ctx, `
		SELECT id, user_id, school_id, admission_number, class_name, enrolled_at
		FROM students
		WHERE id = $1`,
		id).Scan(&st.ID, &st.UserID, &st.SchoolID, &st.Admission, &st.ClassName, &st.EnrolledAt)

	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.ErrUserNotFound
		}
		return nil, fmt.Errorf("error retrieving student: %w", err)
	}

	return st, nil
}
