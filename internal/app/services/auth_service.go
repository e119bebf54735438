package services

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/paathshala/backend/internal/app/models"
	"github.com/paathshala/backend/internal/app/models/dto"
	"github.com/paathshala/backend/internal/app/repositories"
	"github.com/paathshala/backend/internal/pkg/apperrors"
	"github.com/paathshala/backend/internal/pkg/auth"
	"github.com/paathshala/backend/internal/pkg/ratelimit"
	"github.com/rs/zerolog"
)

// RequestMeta carries per-request client details into the audit trail
type RequestMeta struct {
	ClientIP  string
	UserAgent string
}

// AuthService orchestrates login, context switching and session lifecycle
type AuthService struct {
	userRepo    repositories.IUserRepository
	schoolRepo  repositories.ISchoolRepository
	sessionRepo repositories.ISessionRepository
	auditRepo   repositories.IAuditRepository
	contextSvc  *SchoolContextService
	otpSvc      *OTPService
	limiter     *ratelimit.Limiter
	jwtService  *auth.JWTService
	logger      zerolog.Logger
}

// NewAuthService creates a new AuthService
func NewAuthService(
	userRepo repositories.IUserRepository,
	schoolRepo repositories.ISchoolRepository,
	sessionRepo repositories.ISessionRepository,
	auditRepo repositories.IAuditRepository,
	contextSvc *SchoolContextService,
	otpSvc *OTPService,
	limiter *ratelimit.Limiter,
	jwtService *auth.JWTService,
	logger zerolog.Logger,
) *AuthService {
	return &AuthService{
		userRepo:    userRepo,
		schoolRepo:  schoolRepo,
		sessionRepo: sessionRepo,
		auditRepo:   auditRepo,
		contextSvc:  contextSvc,
		otpSvc:      otpSvc,
		limiter:     limiter,
		jwtService:  jwtService,
		logger:      logger,
	}
}

// Login runs the authentication sequence for one school. The order is fixed:
// school status, then user, then rate limit, then credentials, then context.
// School status comes before user lookup so a probe against a dead school
// learns nothing about which identifiers exist. The rate check comes before
// credential verification so blocked identifiers never reach bcrypt.
func (s *AuthService) Login(ctx context.Context, req *dto.LoginRequest, meta RequestMeta) (*dto.LoginResponse, error) {
	school, err := s.schoolRepo.GetByID(ctx, req.SchoolID)
	if err != nil {
		return nil, s.failLogin(ctx, req, meta, nil, err)
	}
	if !school.Accepting() {
		return nil, s.failLogin(ctx, req, meta, nil, apperrors.ErrSchoolInactive)
	}

	user, err := s.userRepo.GetActiveByIdentifier(ctx, req.Identifier)
	if err != nil {
		return nil, s.failLogin(ctx, req, meta, nil, err)
	}

	if blocked, err := s.limiter.IsBlocked(ctx, req.Identifier); err != nil {
		return nil, s.errLogin(ctx, req, meta, user, err)
	} else if blocked != nil {
		return nil, s.failLogin(ctx, req, meta, user, apperrors.ErrRateLimited)
	}
	result, err := s.limiter.Admit(ctx, req.Identifier, ratelimit.PolicyLogin)
	if err != nil {
		return nil, s.errLogin(ctx, req, meta, user, err)
	}
	if result.Blocked {
		s.auditBlock(ctx, req.Identifier, meta)
	}
	if !result.Allowed {
		return nil, s.failLogin(ctx, req, meta, user, apperrors.ErrRateLimited)
	}

	if err := s.verifyCredentials(ctx, user, req.Identifier, &req.Credentials); err != nil {
		if rerr := s.limiter.RecordFailure(ctx, req.Identifier, ratelimit.PolicyLogin); rerr != nil {
			s.logger.Error().Err(rerr).Str("identifier", req.Identifier).Msg("Failed to record login failure")
		}
		return nil, s.failLogin(ctx, req, meta, user, err)
	}

	// A successful verification wipes the attempt window, so earlier
	// failures never push a now-authenticated user toward a block.
	if err := s.limiter.Reset(ctx, req.Identifier, ratelimit.PolicyLogin); err != nil {
		s.logger.Error().Err(err).Str("identifier", req.Identifier).Msg("Failed to reset login counters")
	}

	access, err := s.contextSvc.ResolveAccess(ctx, user.ID)
	if err != nil {
		return nil, s.failLogin(ctx, req, meta, user, err)
	}
	membership, err := s.contextSvc.MembershipIn(access, req.SchoolID)
	if err != nil {
		return nil, s.failLogin(ctx, req, meta, user, err)
	}

	resp := &dto.LoginResponse{
		Success: true,
		User: dto.UserInfo{
			ID:     user.ID,
			Name:   user.Name,
			Role:   string(membership.Role),
			Mobile: deref(user.Mobile),
			Email:  deref(user.Email),
		},
	}

	if len(access.Memberships) > 1 {
		resp.RequiresSchoolSelection = true
		resp.AvailableSchools = make([]dto.SchoolOption, 0, len(access.Memberships))
		for _, m := range access.Memberships {
			resp.AvailableSchools = append(resp.AvailableSchools, dto.SchoolOption{
				ID:     m.School.ID,
				Name:   m.School.Name,
				Role:   string(m.Role),
				Status: string(m.School.Status),
			})
		}
	}

	var activeStudentID *string
	if membership.Role == models.RoleParent {
		children, err := s.contextSvc.Children(ctx, user.ID, req.SchoolID)
		if err != nil {
			return nil, s.errLogin(ctx, req, meta, user, err)
		}
		switch {
		case len(children) == 1:
			activeStudentID = &children[0].ID
		case len(children) > 1:
			resp.RequiresChildSelection = true
			resp.AvailableChildren = make([]dto.ChildOption, 0, len(children))
			for _, c := range children {
				name := ""
				if c.User != nil {
					name = c.User.Name
				}
				resp.AvailableChildren = append(resp.AvailableChildren, dto.ChildOption{
					StudentID: c.ID,
					Name:      name,
					ClassName: c.ClassName,
				})
			}
		}
	}

	studentID := ""
	if activeStudentID != nil {
		studentID = *activeStudentID
	}
	token, err := s.jwtService.GenerateToken(user.ID, string(membership.Role), req.SchoolID, studentID, access.SchoolIDs())
	if err != nil {
		return nil, s.errLogin(ctx, req, meta, user, err)
	}

	session := &models.AuthSession{
		ID:              token.SessionID,
		UserID:          user.ID,
		Role:            membership.Role,
		ActiveSchoolID:  req.SchoolID,
		ActiveStudentID: activeStudentID,
		ClientIP:        meta.ClientIP,
		UserAgent:       meta.UserAgent,
		ExpiresAt:       token.ExpiresAt,
	}
	if err := s.sessionRepo.Create(ctx, session); err != nil {
		return nil, s.errLogin(ctx, req, meta, user, err)
	}

	if err := s.userRepo.UpdateLastLogin(ctx, user.ID); err != nil {
		s.logger.Error().Err(err).Str("userID", user.ID).Msg("Failed to update last login")
	}

	resp.Token = token.Token
	resp.ExpiresAt = token.ExpiresAt
	if !resp.RequiresSchoolSelection && !resp.RequiresChildSelection {
		resp.RedirectURL = membership.Role.DashboardURL()
	}

	s.auditLogin(ctx, models.AuditLoginSuccess, req, meta, &user.ID, map[string]any{
		"method":                  string(req.Credentials.Type),
		"role":                    string(membership.Role),
		"requiresSchoolSelection": resp.RequiresSchoolSelection,
		"requiresChildSelection":  resp.RequiresChildSelection,
	})

	s.logger.Info().
		Str("userID", user.ID).
		Str("schoolID", req.SchoolID).
		Str("role", string(membership.Role)).
		Msg("Login succeeded")

	return resp, nil
}

// verifyCredentials checks the presented secret without leaking which
// branch was taken back to the orchestrator.
func (s *AuthService) verifyCredentials(ctx context.Context, user *models.User, identifier string, creds *dto.Credentials) error {
	switch creds.Type {
	case dto.CredentialPassword:
		if user.PasswordHash == nil || !auth.CheckPassword(*user.PasswordHash, creds.Value) {
			return apperrors.ErrInvalidCredentials
		}
		return nil
	case dto.CredentialOTP:
		return s.otpSvc.Verify(ctx, identifier, creds.Value)
	}
	return apperrors.ErrInvalidCredentials
}

// SwitchContext moves a live session to another school or child.
// Exactly one of the two targets may be set; anything that is not a real
// change, including a student switch from a non-parent role, reports
// no-switch-requested rather than a distinguishable error.
func (s *AuthService) SwitchContext(ctx context.Context, claims *auth.Claims, req *dto.SwitchContextRequest, meta RequestMeta) (*dto.SwitchContextResponse, error) {
	session, err := s.sessionRepo.GetByID(ctx, claims.ID)
	if err != nil {
		return nil, err
	}
	if !session.Live(time.Now()) {
		return nil, apperrors.ErrSessionRevoked
	}

	if (req.NewSchoolID == "") == (req.NewStudentID == "") {
		return nil, apperrors.ErrNoContextSwitch
	}

	before := dto.ActiveContext{SchoolID: session.ActiveSchoolID, StudentID: deref(session.ActiveStudentID)}

	newSchoolID := session.ActiveSchoolID
	newStudentID := session.ActiveStudentID

	switch {
	case req.NewSchoolID != "":
		if req.NewSchoolID == session.ActiveSchoolID {
			return nil, apperrors.ErrNoContextSwitch
		}
		if !claims.AuthorizedFor(req.NewSchoolID) {
			return nil, apperrors.ErrPermissionDenied
		}
		school, err := s.schoolRepo.GetByID(ctx, req.NewSchoolID)
		if err != nil {
			return nil, err
		}
		if !school.Accepting() {
			return nil, apperrors.ErrSchoolInactive
		}
		newSchoolID = req.NewSchoolID
		newStudentID = nil // Child selection does not carry across schools

	case req.NewStudentID != "":
		if session.Role != models.RoleParent {
			return nil, apperrors.ErrNoContextSwitch
		}
		if session.ActiveStudentID != nil && *session.ActiveStudentID == req.NewStudentID {
			return nil, apperrors.ErrNoContextSwitch
		}
		linked, err := s.contextSvc.IsLinkedChild(ctx, session.UserID, req.NewStudentID, session.ActiveSchoolID)
		if err != nil {
			return nil, err
		}
		if !linked {
			return nil, apperrors.ErrPermissionDenied
		}
		sid := req.NewStudentID
		newStudentID = &sid
	}

	if err := s.sessionRepo.UpdateContext(ctx, session.ID, newSchoolID, newStudentID); err != nil {
		return nil, err
	}

	after := dto.ActiveContext{SchoolID: newSchoolID, StudentID: deref(newStudentID)}
	s.auditSwitch(ctx, session, meta, before, after)

	return &dto.SwitchContextResponse{
		Success:     true,
		NewContext:  after,
		RedirectURL: session.Role.DashboardURL(),
	}, nil
}

// Logout revokes the server-side session. The token itself stays valid
// until expiry, but every authenticated request reloads the session row,
// so revocation takes effect immediately.
func (s *AuthService) Logout(ctx context.Context, claims *auth.Claims, meta RequestMeta) error {
	if err := s.sessionRepo.Revoke(ctx, claims.ID); err != nil {
		if errors.Is(err, apperrors.ErrSessionNotFound) {
			return nil
		}
		return err
	}

	entry := &models.AuditLog{
		Action:    models.AuditLogout,
		ActorID:   &claims.UserID,
		SchoolID:  &claims.SchoolID,
		Resource:  claims.ID,
		Payload:   "{}",
		ClientIP:  meta.ClientIP,
		UserAgent: meta.UserAgent,
	}
	if err := s.auditRepo.Create(ctx, entry); err != nil {
		s.logger.Error().Err(err).Msg("Failed to write logout audit entry")
	}

	return nil
}

// Me reports the caller's user details and active session context
func (s *AuthService) Me(ctx context.Context, claims *auth.Claims) (*dto.MeResponse, error) {
	session, err := s.sessionRepo.GetByID(ctx, claims.ID)
	if err != nil {
		return nil, err
	}
	if !session.Live(time.Now()) {
		return nil, apperrors.ErrSessionRevoked
	}

	user, err := s.userRepo.GetByID(ctx, session.UserID)
	if err != nil {
		return nil, err
	}

	return &dto.MeResponse{
		User: dto.UserInfo{
			ID:     user.ID,
			Name:   user.Name,
			Role:   string(session.Role),
			Mobile: deref(user.Mobile),
			Email:  deref(user.Email),
		},
		ActiveSchoolID:  session.ActiveSchoolID,
		ActiveStudentID: deref(session.ActiveStudentID),
		ExpiresAt:       session.ExpiresAt,
	}, nil
}

// failLogin audits an expected login refusal and passes the error through
func (s *AuthService) failLogin(ctx context.Context, req *dto.LoginRequest, meta RequestMeta, user *models.User, cause error) error {
	var actorID *string
	if user != nil {
		actorID = &user.ID
	}
	s.auditLogin(ctx, models.AuditLoginFailed, req, meta, actorID, map[string]any{
		"method": string(req.Credentials.Type),
		"reason": cause.Error(),
	})
	return cause
}

// errLogin audits an unexpected failure (store down, token signing) separately
// from credential refusals so operators can tell abuse from outage.
func (s *AuthService) errLogin(ctx context.Context, req *dto.LoginRequest, meta RequestMeta, user *models.User, cause error) error {
	var actorID *string
	if user != nil {
		actorID = &user.ID
	}
	s.auditLogin(ctx, models.AuditLoginError, req, meta, actorID, map[string]any{
		"method": string(req.Credentials.Type),
		"reason": cause.Error(),
	})
	return cause
}

func (s *AuthService) auditLogin(ctx context.Context, action models.AuditAction, req *dto.LoginRequest, meta RequestMeta, actorID *string, payload map[string]any) {
	raw, err := json.Marshal(payload)
	if err != nil {
		raw = []byte("{}")
	}
	entry := &models.AuditLog{
		Action:    action,
		ActorID:   actorID,
		SchoolID:  &req.SchoolID,
		Resource:  req.Identifier,
		Payload:   string(raw),
		ClientIP:  meta.ClientIP,
		UserAgent: meta.UserAgent,
	}
	if err := s.auditRepo.Create(ctx, entry); err != nil {
		s.logger.Error().Err(err).Str("action", string(action)).Msg("Failed to write audit entry")
	}
}

func (s *AuthService) auditBlock(ctx context.Context, identifier string, meta RequestMeta) {
	entry := &models.AuditLog{
		Action:    models.AuditIdentifierBlock,
		Resource:  identifier,
		Payload:   `{"policy":"login"}`,
		ClientIP:  meta.ClientIP,
		UserAgent: meta.UserAgent,
	}
	if err := s.auditRepo.Create(ctx, entry); err != nil {
		s.logger.Error().Err(err).Msg("Failed to write block audit entry")
	}
}

func (s *AuthService) auditSwitch(ctx context.Context, session *models.AuthSession, meta RequestMeta, before, after dto.ActiveContext) {
	raw, err := json.Marshal(map[string]any{"before": before, "after": after})
	if err != nil {
		raw = []byte("{}")
	}
	entry := &models.AuditLog{
		Action:    models.AuditContextSwitch,
		ActorID:   &session.UserID,
		SchoolID:  &after.SchoolID,
		Resource:  session.ID,
		Payload:   string(raw),
		ClientIP:  meta.ClientIP,
		UserAgent: meta.UserAgent,
	}
	if err := s.auditRepo.Create(ctx, entry); err != nil {
		s.logger.Error().Err(err).Msg("Failed to write context switch audit entry")
	}
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
