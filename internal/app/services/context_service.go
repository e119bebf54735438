package services

import (
	"context"

	"github.com/paathshala/backend/internal/app/models"
	"github.com/paathshala/backend/internal/app/repositories"
	"github.com/paathshala/backend/internal/pkg/apperrors"
	"github.com/rs/zerolog"
)

// SchoolAccess is the resolved school context for one user.
// Memberships whose school is not accepting logins are already filtered out.
type SchoolAccess struct {
	Memberships []*models.UserSchool // Active memberships in ACTIVE schools, most recent enrollment first
	Active      *models.UserSchool   // Set when exactly one membership exists
}

// SchoolIDs returns the school ids the user may operate in.
func (a *SchoolAccess) SchoolIDs() []string {
	ids := make([]string, 0, len(a.Memberships))
	for _, m := range a.Memberships {
		ids = append(ids, m.SchoolID)
	}
	return ids
}

// NeedsSelection reports whether the client must pick a school.
func (a *SchoolAccess) NeedsSelection() bool {
	return a.Active == nil
}

// SchoolContextService resolves which schools and children a user may act in
type SchoolContextService struct {
	userRepo    repositories.IUserRepository
	studentRepo repositories.IStudentRepository
	logger      zerolog.Logger
}

// NewSchoolContextService creates a new SchoolContextService
func NewSchoolContextService(
	userRepo repositories.IUserRepository,
	studentRepo repositories.IStudentRepository,
	logger zerolog.Logger,
) *SchoolContextService {
	return &SchoolContextService{
		userRepo:    userRepo,
		studentRepo: studentRepo,
		logger:      logger,
	}
}

// ResolveAccess lists the schools a user may log into. Memberships in schools
// that are INACTIVE or SUSPENDED are dropped. No remaining membership at all
// means the user has nowhere to go and the login is refused.
func (s *SchoolContextService) ResolveAccess(ctx context.Context, userID string) (*SchoolAccess, error) {
	memberships, err := s.userRepo.GetUserSchools(ctx, userID)
	if err != nil {
		return nil, err
	}

	accepting := make([]*models.UserSchool, 0, len(memberships))
	for _, m := range memberships {
		if m.School != nil && m.School.Accepting() {
			accepting = append(accepting, m)
		}
	}

	if len(accepting) == 0 {
		return nil, apperrors.ErrUnauthorizedSchool
	}

	access := &SchoolAccess{Memberships: accepting}
	if len(accepting) == 1 {
		access.Active = accepting[0]
	}

	return access, nil
}

// MembershipIn returns the user's membership in the given school,
// ErrUnauthorizedSchool when there is none.
func (s *SchoolContextService) MembershipIn(access *SchoolAccess, schoolID string) (*models.UserSchool, error) {
	for _, m := range access.Memberships {
		if m.SchoolID == schoolID {
			return m, nil
		}
	}
	return nil, apperrors.ErrUnauthorizedSchool
}

// Children lists the students linked to a parent within one school,
// most recent enrollment first.
func (s *SchoolContextService) Children(ctx context.Context, parentUserID, schoolID string) ([]*models.Student, error) {
	return s.studentRepo.GetChildren(ctx, parentUserID, schoolID)
}

// IsLinkedChild checks whether a student is linked to the parent in the school
func (s *SchoolContextService) IsLinkedChild(ctx context.Context, parentUserID, studentID, schoolID string) (bool, error) {
	return s.studentRepo.IsLinkedChild(ctx, parentUserID, studentID, schoolID)
}
