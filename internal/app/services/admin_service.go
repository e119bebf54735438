package services

import (
	"context"

	"github.com/paathshala/backend/internal/app/models"
	"github.com/paathshala/backend/internal/app/models/dto"
	"github.com/paathshala/backend/internal/app/repositories"
	"github.com/paathshala/backend/internal/pkg/auth"
	"github.com/paathshala/backend/internal/pkg/ratelimit"
	"github.com/rs/zerolog"
)

// AdminService exposes the operational endpoints reserved for school admins
type AdminService struct {
	auditRepo repositories.IAuditRepository
	limiter   *ratelimit.Limiter
	logger    zerolog.Logger
}

// NewAdminService creates a new AdminService
func NewAdminService(
	auditRepo repositories.IAuditRepository,
	limiter *ratelimit.Limiter,
	logger zerolog.Logger,
) *AdminService {
	return &AdminService{
		auditRepo: auditRepo,
		limiter:   limiter,
		logger:    logger,
	}
}

// Unblock lifts a block from an identifier and clears its attempt counters.
// Lifting a block that does not exist succeeds and reports unblocked=false.
func (s *AdminService) Unblock(ctx context.Context, claims *auth.Claims, req *dto.UnblockRequest, meta RequestMeta) (*dto.UnblockResponse, error) {
	removed, err := s.limiter.Unblock(ctx, req.Identifier)
	if err != nil {
		return nil, err
	}

	entry := &models.AuditLog{
		Action:    models.AuditIdentifierUnlock,
		ActorID:   &claims.UserID,
		SchoolID:  &claims.SchoolID,
		Resource:  req.Identifier,
		Payload:   "{}",
		ClientIP:  meta.ClientIP,
		UserAgent: meta.UserAgent,
	}
	if err := s.auditRepo.Create(ctx, entry); err != nil {
		s.logger.Error().Err(err).Str("identifier", req.Identifier).Msg("Failed to write unblock audit entry")
	}

	s.logger.Info().
		Str("identifier", req.Identifier).
		Str("adminID", claims.UserID).
		Bool("removed", removed).
		Msg("Identifier unblocked")

	return &dto.UnblockResponse{Unblocked: removed}, nil
}

// ListAudit returns one page of the school's audit trail, newest first
func (s *AdminService) ListAudit(ctx context.Context, schoolID string, page, size int) (*dto.AuditListResponse, error) {
	entries, total, err := s.auditRepo.ListBySchool(ctx, schoolID, page, size)
	if err != nil {
		return nil, err
	}

	out := make([]dto.AuditEntry, 0, len(entries))
	for _, e := range entries {
		out = append(out, dto.AuditEntry{
			ID:        e.ID,
			Action:    string(e.Action),
			ActorID:   deref(e.ActorID),
			SchoolID:  deref(e.SchoolID),
			Resource:  e.Resource,
			Payload:   e.Payload,
			ClientIP:  e.ClientIP,
			UserAgent: e.UserAgent,
			CreatedAt: e.CreatedAt,
		})
	}

	if page < 1 {
		page = 1
	}
	if size < 1 || size > 100 {
		size = 20
	}

	return &dto.AuditListResponse{
		Entries: out,
		Total:   int(total),
		Page:    page,
		Size:    size,
	}, nil
}
