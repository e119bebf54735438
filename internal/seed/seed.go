// Package seed creates demo data for local development
package seed

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/paathshala/backend/internal/pkg/auth"
	"github.com/rs/zerolog"
)

// CreateDefaultData inserts a demo school with one user per role and a
// parent linked to two students. Every insert is idempotent so repeated
// startups leave the data unchanged.
func CreateDefaultData(ctx context.Context, dbPool *pgxpool.Pool, lgr zerolog.Logger) error {
	lgr.Info().Msg("Checking/Creating default data (demo school and users)...")

	adminHash, err := auth.HashPassword("admin-password-1")
	if err != nil {
		return fmt.Errorf("failed to hash seed admin password: %w", err)
	}

	statements := []struct {
		sql  string
		args []any
	}{
		{`INSERT INTO schools (id, name, code, status) VALUES ($1, $2, $3, 'ACTIVE')
		  ON CONFLICT (id) DO NOTHING`,
			[]any{"school-1", "Sunrise Public School", "SPS"}},

		// One user per role plus a second child for the parent
		{`INSERT INTO users (id, name, mobile) VALUES ($1, $2, $3)
		  ON CONFLICT (id) DO NOTHING`,
			[]any{"user-1", "Asha Verma", "9876543210"}},
		{`INSERT INTO users (id, name, email) VALUES ($1, $2, $3)
		  ON CONFLICT (id) DO NOTHING`,
			[]any{"user-2", "Ravi Sharma", "ravi.sharma@example.com"}},
		{`INSERT INTO users (id, name, mobile, email) VALUES ($1, $2, $3, $4)
		  ON CONFLICT (id) DO NOTHING`,
			[]any{"user-3", "Meena Verma", "9876500001", "meena.verma@example.com"}},
		{`INSERT INTO users (id, name, email, password_hash) VALUES ($1, $2, $3, $4)
		  ON CONFLICT (id) DO NOTHING`,
			[]any{"user-4", "Principal Rao", "principal@sunrise.example.com", adminHash}},
		{`INSERT INTO users (id, name, mobile) VALUES ($1, $2, $3)
		  ON CONFLICT (id) DO NOTHING`,
			[]any{"user-5", "Arjun Verma", "9876500002"}},

		{`INSERT INTO user_schools (id, user_id, school_id, role) VALUES ($1, $2, $3, $4)
		  ON CONFLICT (user_id, school_id) DO NOTHING`,
			[]any{"us-1", "user-1", "school-1", "STUDENT"}},
		{`INSERT INTO user_schools (id, user_id, school_id, role) VALUES ($1, $2, $3, $4)
		  ON CONFLICT (user_id, school_id) DO NOTHING`,
			[]any{"us-2", "user-2", "school-1", "TEACHER"}},
		{`INSERT INTO user_schools (id, user_id, school_id, role) VALUES ($1, $2, $3, $4)
		  ON CONFLICT (user_id, school_id) DO NOTHING`,
			[]any{"us-3", "user-3", "school-1", "PARENT"}},
		{`INSERT INTO user_schools (id, user_id, school_id, role) VALUES ($1, $2, $3, $4)
		  ON CONFLICT (user_id, school_id) DO NOTHING`,
			[]any{"us-4", "user-4", "school-1", "ADMIN"}},
		{`INSERT INTO user_schools (id, user_id, school_id, role) VALUES ($1, $2, $3, $4)
		  ON CONFLICT (user_id, school_id) DO NOTHING`,
			[]any{"us-5", "user-5", "school-1", "STUDENT"}},

		{`INSERT INTO students (id, user_id, school_id, admission_number, class_name) VALUES ($1, $2, $3, $4, $5)
		  ON CONFLICT (school_id, admission_number) DO NOTHING`,
			[]any{"student-1", "user-1", "school-1", "ADM-2024-001", "7A"}},
		{`INSERT INTO students (id, user_id, school_id, admission_number, class_name) VALUES ($1, $2, $3, $4, $5)
		  ON CONFLICT (school_id, admission_number) DO NOTHING`,
			[]any{"student-2", "user-5", "school-1", "ADM-2024-002", "4B"}},
		{`INSERT INTO teachers (id, user_id, school_id, subject) VALUES ($1, $2, $3, $4)
		  ON CONFLICT (user_id, school_id) DO NOTHING`,
			[]any{"teacher-1", "user-2", "school-1", "Mathematics"}},
		{`INSERT INTO parents (id, user_id, school_id) VALUES ($1, $2, $3)
		  ON CONFLICT (user_id, school_id) DO NOTHING`,
			[]any{"parent-1", "user-3", "school-1"}},
		{`INSERT INTO administrators (id, user_id, school_id, title) VALUES ($1, $2, $3, $4)
		  ON CONFLICT (user_id, school_id) DO NOTHING`,
			[]any{"admin-1", "user-4", "school-1", "Principal"}},

		{`INSERT INTO student_parents (id, student_id, parent_id, school_id) VALUES ($1, $2, $3, $4)
		  ON CONFLICT (student_id, parent_id) DO NOTHING`,
			[]any{"sp-1", "student-1", "parent-1", "school-1"}},
		{`INSERT INTO student_parents (id, student_id, parent_id, school_id) VALUES ($1, $2, $3, $4)
		  ON CONFLICT (student_id, parent_id) DO NOTHING`,
			[]any{"sp-2", "student-2", "parent-1", "school-1"}},
	}

	for _, stmt := range statements {
		if _, err := dbPool.Exec(ctx, stmt.sql, stmt.args...); err != nil {
			lgr.Error().Err(err).Msg("Error inserting seed data")
			return err
		}
	}

	lgr.Info().Msg("Default data ready")
	return nil
}
