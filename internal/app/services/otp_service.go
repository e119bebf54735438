package services

import (
	"context"
	"time"

	"github.com/paathshala/backend/internal/app/models"
	"github.com/paathshala/backend/internal/app/models/dto"
	"github.com/paathshala/backend/internal/app/repositories"
	"github.com/paathshala/backend/internal/pkg/apperrors"
	"github.com/paathshala/backend/internal/pkg/notify"
	"github.com/paathshala/backend/internal/pkg/otp"
	"github.com/paathshala/backend/internal/pkg/ratelimit"
	"github.com/rs/zerolog"
)

// OTPService issues and verifies one-time passcodes
type OTPService struct {
	otpRepo     repositories.IOTPRepository
	auditRepo   repositories.IAuditRepository
	limiter     *ratelimit.Limiter
	notifier    notify.Notifier
	expiry      time.Duration
	maxAttempts int
	logger      zerolog.Logger
}

// NewOTPService creates a new OTPService
func NewOTPService(
	otpRepo repositories.IOTPRepository,
	auditRepo repositories.IAuditRepository,
	limiter *ratelimit.Limiter,
	notifier notify.Notifier,
	expiry time.Duration,
	maxAttempts int,
	logger zerolog.Logger,
) *OTPService {
	return &OTPService{
		otpRepo:     otpRepo,
		auditRepo:   auditRepo,
		limiter:     limiter,
		notifier:    notifier,
		expiry:      expiry,
		maxAttempts: maxAttempts,
		logger:      logger,
	}
}

// Generate issues a fresh code for the identifier and delivers it over
// SMS or email. Any earlier live code stops working the moment the new
// one is stored.
func (s *OTPService) Generate(ctx context.Context, identifier, clientIP, userAgent string) (*dto.GenerateOTPResponse, error) {
	if blocked, err := s.limiter.IsBlocked(ctx, identifier); err != nil {
		return nil, err
	} else if blocked != nil {
		return nil, apperrors.ErrRateLimited
	}

	result, err := s.limiter.Admit(ctx, identifier, ratelimit.PolicyOTPGenerate)
	if err != nil {
		return nil, err
	}
	if result.Blocked {
		s.audit(ctx, models.AuditIdentifierBlock, identifier, `{"policy":"otp_generate"}`, clientIP, userAgent)
	}
	if !result.Allowed {
		return nil, apperrors.ErrRateLimited
	}

	code, err := otp.GenerateCode()
	if err != nil {
		return nil, err
	}

	expiresAt := time.Now().Add(s.expiry)
	record, err := s.otpRepo.Create(ctx, identifier, otp.HashCode(code), expiresAt)
	if err != nil {
		return nil, err
	}

	if err := s.notifier.SendOTP(identifier, code, expiresAt); err != nil {
		s.logger.Error().Err(err).Str("identifier", identifier).Msg("Failed to deliver OTP")
		return nil, err
	}

	s.audit(ctx, models.AuditOTPGenerated, identifier, "{}", clientIP, userAgent)

	s.logger.Info().Str("identifier", identifier).Time("expiresAt", record.ExpiresAt).Msg("OTP generated")

	return &dto.GenerateOTPResponse{
		ExpiresAt: record.ExpiresAt,
		Message:   "A one-time code has been sent",
	}, nil
}

// Verify checks a submitted code against the live one for the identifier
// and consumes it on success. A consumed or superseded code never verifies.
func (s *OTPService) Verify(ctx context.Context, identifier, code string) error {
	record, err := s.otpRepo.GetLive(ctx, identifier)
	if err != nil {
		return err
	}
	if record == nil {
		return apperrors.ErrInvalidOTP
	}

	if record.Expired(time.Now()) {
		return apperrors.ErrOTPExpired
	}

	if record.Attempts >= s.maxAttempts {
		return apperrors.ErrOTPMaxAttempts
	}

	if !otp.VerifyCode(record.CodeHash, code) {
		attempts, err := s.otpRepo.IncrementAttempts(ctx, record.ID)
		if err != nil {
			return err
		}
		if attempts >= s.maxAttempts {
			return apperrors.ErrOTPMaxAttempts
		}
		return apperrors.ErrInvalidOTP
	}

	if err := s.otpRepo.MarkUsed(ctx, record.ID); err != nil {
		return err
	}

	return nil
}

// audit records the action best-effort, a failed write never fails the request
func (s *OTPService) audit(ctx context.Context, action models.AuditAction, identifier, payload, clientIP, userAgent string) {
	entry := &models.AuditLog{
		Action:    action,
		Resource:  identifier,
		Payload:   payload,
		ClientIP:  clientIP,
		UserAgent: userAgent,
	}
	if err := s.auditRepo.Create(ctx, entry); err != nil {
		s.logger.Error().Err(err).Str("action", string(action)).Msg("Failed to write audit entry")
	}
}
