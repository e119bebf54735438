package services

import (
	"context"
	"testing"
	"time"

	"github.com/paathshala/backend/internal/app/models"
	"github.com/paathshala/backend/internal/app/models/dto"
	"github.com/paathshala/backend/internal/pkg/apperrors"
	"github.com/paathshala/backend/internal/pkg/auth"
	"github.com/paathshala/backend/internal/pkg/otp"
	"github.com/paathshala/backend/internal/pkg/ratelimit"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type authFixture struct {
	svc      *AuthService
	otpSvc   *OTPService
	users    *fakeUserRepo
	schools  *fakeSchoolRepo
	students *fakeStudentRepo
	otps     *fakeOTPRepo
	sessions *fakeSessionRepo
	audits   *fakeAuditRepo
	notifier *captureNotifier
	store    *countingStore
	limiter  *ratelimit.Limiter
	jwt      *auth.JWTService
}

func newAuthFixture() *authFixture {
	f := &authFixture{
		users:    newFakeUserRepo(),
		schools:  newFakeSchoolRepo(),
		students: newFakeStudentRepo(),
		otps:     newFakeOTPRepo(),
		sessions: newFakeSessionRepo(),
		audits:   newFakeAuditRepo(),
	}

	f.store = newCountingStore(ratelimit.NewMemoryStore(0))
	f.limiter = ratelimit.NewLimiter(f.store, newFakeBlockStore())
	f.jwt = auth.NewJWTService(auth.JWTConfig{SecretKey: "test-secret", TokenExp: time.Hour, TokenIssuer: "test"})

	contextSvc := NewSchoolContextService(f.users, f.students, zerolog.Nop())
	f.notifier = &captureNotifier{}
	f.otpSvc = NewOTPService(f.otps, f.audits, f.limiter, f.notifier, 5*time.Minute, 3, zerolog.Nop())

	f.svc = NewAuthService(f.users, f.schools, f.sessions, f.audits, contextSvc, f.otpSvc, f.limiter, f.jwt, zerolog.Nop())
	return f
}

func (f *authFixture) addSchool(id string, status models.SchoolStatus) {
	f.schools.schools[id] = &models.School{ID: id, Name: "School " + id, Code: "C-" + id, Status: status}
}

func (f *authFixture) addUser(id, mobile string) *models.User {
	u := &models.User{ID: id, Name: "User " + id, Mobile: &mobile, IsActive: true}
	f.users.users[id] = u
	return u
}

func (f *authFixture) enroll(userID, schoolID string, role models.RoleType, enrolledAt time.Time) {
	f.users.memberships = append(f.users.memberships, &models.UserSchool{
		ID:         userID + "-" + schoolID,
		UserID:     userID,
		SchoolID:   schoolID,
		Role:       role,
		IsActive:   true,
		EnrolledAt: enrolledAt,
		School:     f.schools.schools[schoolID],
	})
}

func (f *authFixture) storeOTP(identifier, code string) {
	_, _ = f.otps.Create(context.Background(), identifier, otp.HashCode(code), time.Now().Add(5*time.Minute))
}

func otpLogin(identifier, schoolID, code string) *dto.LoginRequest {
	return &dto.LoginRequest{
		Identifier: identifier,
		SchoolID:   schoolID,
		Credentials: dto.Credentials{
			Type:  dto.CredentialOTP,
			Value: code,
		},
	}
}

var testMeta = RequestMeta{ClientIP: "10.0.0.1", UserAgent: "test-agent"}

func TestLoginWithOTPSucceeds(t *testing.T) {
	f := newAuthFixture()
	f.addSchool("school-1", models.SchoolActive)
	f.addUser("user-1", "9876543210")
	f.enroll("user-1", "school-1", models.RoleStudent, time.Now())
	f.storeOTP("9876543210", "123456")

	resp, err := f.svc.Login(context.Background(), otpLogin("9876543210", "school-1", "123456"), testMeta)
	require.NoError(t, err)

	assert.True(t, resp.Success)
	assert.Equal(t, "user-1", resp.User.ID)
	assert.Equal(t, "STUDENT", resp.User.Role)
	assert.Equal(t, "/student/dashboard", resp.RedirectURL)
	assert.False(t, resp.RequiresSchoolSelection)
	assert.False(t, resp.RequiresChildSelection)
	assert.NotEmpty(t, resp.Token)

	claims, err := f.jwt.ValidateAndExtractClaims(resp.Token)
	require.NoError(t, err)
	assert.Equal(t, "school-1", claims.SchoolID)
	assert.Equal(t, []string{"school-1"}, claims.AuthorizedSchools)

	session, err := f.sessions.GetByID(context.Background(), claims.ID)
	require.NoError(t, err)
	assert.Equal(t, "school-1", session.ActiveSchoolID)
	assert.Nil(t, session.ActiveStudentID)

	assert.Equal(t, 1, f.audits.countAction(models.AuditLoginSuccess))
	assert.NotNil(t, f.users.users["user-1"].LastLoginAt)
}

func TestLoginChecksSchoolBeforeUserLookup(t *testing.T) {
	f := newAuthFixture()
	f.addSchool("school-1", models.SchoolInactive)
	f.addUser("user-1", "9876543210")

	_, err := f.svc.Login(context.Background(), otpLogin("9876543210", "school-1", "123456"), testMeta)
	assert.ErrorIs(t, err, apperrors.ErrSchoolInactive)
	assert.Zero(t, f.users.lookups, "user must not be resolved for a dead school")
	assert.Equal(t, 1, f.audits.countAction(models.AuditLoginFailed))
}

func TestLoginSuspendedSchoolRejected(t *testing.T) {
	f := newAuthFixture()
	f.addSchool("school-1", models.SchoolSuspended)

	_, err := f.svc.Login(context.Background(), otpLogin("9876543210", "school-1", "123456"), testMeta)
	assert.ErrorIs(t, err, apperrors.ErrSchoolInactive)
}

func TestLoginUnknownSchool(t *testing.T) {
	f := newAuthFixture()

	_, err := f.svc.Login(context.Background(), otpLogin("9876543210", "school-9", "123456"), testMeta)
	assert.ErrorIs(t, err, apperrors.ErrSchoolNotFound)
}

func TestLoginUnknownOrInactiveUser(t *testing.T) {
	f := newAuthFixture()
	f.addSchool("school-1", models.SchoolActive)

	_, err := f.svc.Login(context.Background(), otpLogin("9876543210", "school-1", "123456"), testMeta)
	assert.ErrorIs(t, err, apperrors.ErrUserNotFound)

	// An inactive account answers with the same code as a missing one
	u := f.addUser("user-1", "9876543210")
	u.IsActive = false
	_, err = f.svc.Login(context.Background(), otpLogin("9876543210", "school-1", "123456"), testMeta)
	assert.ErrorIs(t, err, apperrors.ErrUserNotFound)
}

func TestLoginWrongOTPCountsOneFailure(t *testing.T) {
	f := newAuthFixture()
	f.addSchool("school-1", models.SchoolActive)
	f.addUser("user-1", "9876543210")
	f.enroll("user-1", "school-1", models.RoleStudent, time.Now())
	f.storeOTP("9876543210", "123456")

	_, err := f.svc.Login(context.Background(), otpLogin("9876543210", "school-1", "999999"), testMeta)
	assert.ErrorIs(t, err, apperrors.ErrInvalidOTP)
	assert.Equal(t, 1, f.store.incrementsFor("rl:login:"), "exactly one attempt counted")
	assert.Equal(t, 1, f.audits.countAction(models.AuditLoginFailed))

	// Exponential backoff holds off an immediate retry even with the right code
	_, err = f.svc.Login(context.Background(), otpLogin("9876543210", "school-1", "123456"), testMeta)
	assert.ErrorIs(t, err, apperrors.ErrRateLimited)
}

func TestLoginSucceedsAfterFullOTPGenerationBudget(t *testing.T) {
	f := newAuthFixture()
	f.addSchool("school-1", models.SchoolActive)
	f.addUser("user-1", "9876543210")
	f.enroll("user-1", "school-1", models.RoleStudent, time.Now())

	// Requesting every generation the window allows must not block the
	// identifier out of logging in with the code it was just sent
	for i := 0; i < ratelimit.PolicyOTPGenerate.Limit; i++ {
		_, err := f.otpSvc.Generate(context.Background(), "9876543210", "10.0.0.1", "test-agent")
		require.NoError(t, err)
	}

	blocked, err := f.limiter.IsBlocked(context.Background(), "9876543210")
	require.NoError(t, err)
	require.Nil(t, blocked)

	lastCode := f.notifier.codes[len(f.notifier.codes)-1]
	resp, err := f.svc.Login(context.Background(), otpLogin("9876543210", "school-1", lastCode), testMeta)
	require.NoError(t, err)
	assert.True(t, resp.Success)
	assert.Equal(t, "/student/dashboard", resp.RedirectURL)
}

func TestLoginBlockedIdentifierFailsFast(t *testing.T) {
	f := newAuthFixture()
	f.addSchool("school-1", models.SchoolActive)
	f.addUser("user-1", "9876543210")
	f.enroll("user-1", "school-1", models.RoleStudent, time.Now())
	f.storeOTP("9876543210", "123456")

	_, err := f.limiter.Block(context.Background(), "9876543210", "login attempt limit exceeded", 30*time.Minute)
	require.NoError(t, err)

	_, err = f.svc.Login(context.Background(), otpLogin("9876543210", "school-1", "123456"), testMeta)
	assert.ErrorIs(t, err, apperrors.ErrRateLimited)

	// Credentials were never touched, so the code is still live
	record, err := f.otps.GetLive(context.Background(), "9876543210")
	require.NoError(t, err)
	assert.Zero(t, record.Attempts)
	assert.False(t, record.Used)
}

func TestLoginPasswordPath(t *testing.T) {
	f := newAuthFixture()
	f.addSchool("school-1", models.SchoolActive)
	u := f.addUser("user-4", "9876500009")
	hash, err := auth.HashPassword("correct-horse")
	require.NoError(t, err)
	u.PasswordHash = &hash
	f.enroll("user-4", "school-1", models.RoleAdmin, time.Now())

	req := &dto.LoginRequest{
		Identifier:  "9876500009",
		SchoolID:    "school-1",
		Credentials: dto.Credentials{Type: dto.CredentialPassword, Value: "wrong-horse"},
	}
	_, err = f.svc.Login(context.Background(), req, testMeta)
	assert.ErrorIs(t, err, apperrors.ErrInvalidCredentials)

	// Clear the backoff so the retry is not held off
	_, err = f.limiter.Unblock(context.Background(), "9876500009")
	require.NoError(t, err)

	req.Credentials.Value = "correct-horse"
	resp, err := f.svc.Login(context.Background(), req, testMeta)
	require.NoError(t, err)
	assert.Equal(t, "ADMIN", resp.User.Role)
	assert.Equal(t, "/admin/dashboard", resp.RedirectURL)
}

func TestLoginWithoutPasswordOnRecord(t *testing.T) {
	f := newAuthFixture()
	f.addSchool("school-1", models.SchoolActive)
	f.addUser("user-1", "9876543210")
	f.enroll("user-1", "school-1", models.RoleStudent, time.Now())

	req := &dto.LoginRequest{
		Identifier:  "9876543210",
		SchoolID:    "school-1",
		Credentials: dto.Credentials{Type: dto.CredentialPassword, Value: "anything"},
	}
	_, err := f.svc.Login(context.Background(), req, testMeta)
	assert.ErrorIs(t, err, apperrors.ErrInvalidCredentials)
}

func TestLoginUnauthorizedSchool(t *testing.T) {
	f := newAuthFixture()
	f.addSchool("school-1", models.SchoolActive)
	f.addSchool("school-2", models.SchoolActive)
	f.addUser("user-1", "9876543210")
	f.enroll("user-1", "school-2", models.RoleStudent, time.Now())
	f.storeOTP("9876543210", "123456")

	_, err := f.svc.Login(context.Background(), otpLogin("9876543210", "school-1", "123456"), testMeta)
	assert.ErrorIs(t, err, apperrors.ErrUnauthorizedSchool)
}

func TestLoginNoSchoolsAtAll(t *testing.T) {
	f := newAuthFixture()
	f.addSchool("school-1", models.SchoolActive)
	f.addUser("user-1", "9876543210")
	f.storeOTP("9876543210", "123456")

	_, err := f.svc.Login(context.Background(), otpLogin("9876543210", "school-1", "123456"), testMeta)
	assert.ErrorIs(t, err, apperrors.ErrUnauthorizedSchool)
}

func TestLoginMultiSchoolRequiresSelection(t *testing.T) {
	f := newAuthFixture()
	f.addSchool("school-1", models.SchoolActive)
	f.addSchool("school-2", models.SchoolActive)
	f.addUser("user-2", "9876500010")
	f.enroll("user-2", "school-1", models.RoleTeacher, time.Now().Add(-time.Hour))
	f.enroll("user-2", "school-2", models.RoleTeacher, time.Now())
	f.storeOTP("9876500010", "123456")

	resp, err := f.svc.Login(context.Background(), otpLogin("9876500010", "school-1", "123456"), testMeta)
	require.NoError(t, err)

	assert.True(t, resp.RequiresSchoolSelection)
	assert.Len(t, resp.AvailableSchools, 2)
	assert.Empty(t, resp.RedirectURL, "no redirect while a selection is pending")
	assert.NotEmpty(t, resp.Token)

	claims, err := f.jwt.ValidateAndExtractClaims(resp.Token)
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"school-1", "school-2"}, claims.AuthorizedSchools)
}

func TestLoginSkipsInactiveMemberSchools(t *testing.T) {
	f := newAuthFixture()
	f.addSchool("school-1", models.SchoolActive)
	f.addSchool("school-2", models.SchoolSuspended)
	f.addUser("user-2", "9876500010")
	f.enroll("user-2", "school-1", models.RoleTeacher, time.Now())
	f.enroll("user-2", "school-2", models.RoleTeacher, time.Now())
	f.storeOTP("9876500010", "123456")

	resp, err := f.svc.Login(context.Background(), otpLogin("9876500010", "school-1", "123456"), testMeta)
	require.NoError(t, err)

	// The suspended school never shows up as a choice
	assert.False(t, resp.RequiresSchoolSelection)
	assert.Equal(t, "/teacher/dashboard", resp.RedirectURL)
}

func TestLoginParentWithOneChildAutoSelects(t *testing.T) {
	f := newAuthFixture()
	f.addSchool("school-1", models.SchoolActive)
	f.addUser("user-3", "9876500001")
	f.enroll("user-3", "school-1", models.RoleParent, time.Now())
	f.students.link("user-3", "school-1", &models.Student{ID: "student-1", SchoolID: "school-1", ClassName: "7A"})
	f.storeOTP("9876500001", "123456")

	resp, err := f.svc.Login(context.Background(), otpLogin("9876500001", "school-1", "123456"), testMeta)
	require.NoError(t, err)

	assert.False(t, resp.RequiresChildSelection)
	assert.Equal(t, "/parent/dashboard", resp.RedirectURL)

	claims, err := f.jwt.ValidateAndExtractClaims(resp.Token)
	require.NoError(t, err)
	session, err := f.sessions.GetByID(context.Background(), claims.ID)
	require.NoError(t, err)
	require.NotNil(t, session.ActiveStudentID)
	assert.Equal(t, "student-1", *session.ActiveStudentID)
}

func TestLoginParentWithTwoChildrenRequiresSelection(t *testing.T) {
	f := newAuthFixture()
	f.addSchool("school-1", models.SchoolActive)
	f.addUser("user-3", "9876500001")
	f.enroll("user-3", "school-1", models.RoleParent, time.Now())
	f.students.link("user-3", "school-1", &models.Student{ID: "student-1", SchoolID: "school-1"})
	f.students.link("user-3", "school-1", &models.Student{ID: "student-2", SchoolID: "school-1"})
	f.storeOTP("9876500001", "123456")

	resp, err := f.svc.Login(context.Background(), otpLogin("9876500001", "school-1", "123456"), testMeta)
	require.NoError(t, err)

	assert.True(t, resp.RequiresChildSelection)
	assert.Len(t, resp.AvailableChildren, 2)
	assert.Empty(t, resp.RedirectURL)

	claims, err := f.jwt.ValidateAndExtractClaims(resp.Token)
	require.NoError(t, err)
	session, err := f.sessions.GetByID(context.Background(), claims.ID)
	require.NoError(t, err)
	assert.Nil(t, session.ActiveStudentID, "no child is active until the parent picks one")
}

func TestLoginParentWithNoChildren(t *testing.T) {
	f := newAuthFixture()
	f.addSchool("school-1", models.SchoolActive)
	f.addUser("user-3", "9876500001")
	f.enroll("user-3", "school-1", models.RoleParent, time.Now())
	f.storeOTP("9876500001", "123456")

	// Unlinked parent accounts still log in
	resp, err := f.svc.Login(context.Background(), otpLogin("9876500001", "school-1", "123456"), testMeta)
	require.NoError(t, err)
	assert.False(t, resp.RequiresChildSelection)
	assert.Equal(t, "/parent/dashboard", resp.RedirectURL)
}
