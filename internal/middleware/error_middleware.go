package middleware

import (
	"errors"

	"github.com/gin-gonic/gin"
	"github.com/paathshala/backend/internal/app/models/dto"
	"github.com/paathshala/backend/internal/pkg/apperrors"
	"github.com/paathshala/backend/internal/pkg/logger"
	"github.com/paathshala/backend/internal/pkg/ratelimit"
)

// HandleAPIError maps service errors onto the wire error taxonomy.
// Every handler funnels errors through here so codes stay consistent.
func HandleAPIError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, apperrors.ErrSchoolNotFound):
		c.JSON(404, dto.NewErrorResponse(dto.NewErrorDetail(dto.ErrorCodeSchoolNotFound, "School not found")))
	case errors.Is(err, apperrors.ErrUserNotFound):
		c.JSON(404, dto.NewErrorResponse(dto.NewErrorDetail(dto.ErrorCodeUserNotFound, "User not found")))
	case errors.Is(err, apperrors.ErrSchoolInactive):
		c.JSON(403, dto.NewErrorResponse(dto.NewErrorDetail(dto.ErrorCodeSchoolInactive, "School is not accepting logins")))
	case errors.Is(err, apperrors.ErrUnauthorizedSchool):
		c.JSON(403, dto.NewErrorResponse(dto.NewErrorDetail(dto.ErrorCodeUnauthorizedSchool, "Not authorized for this school")))
	case errors.Is(err, apperrors.ErrPermissionDenied):
		c.JSON(403, dto.NewErrorResponse(dto.NewErrorDetail(dto.ErrorCodeUnauthorized, "Permission denied")))
	case errors.Is(err, apperrors.ErrInvalidCredentials):
		c.JSON(401, dto.NewErrorResponse(dto.NewErrorDetail(dto.ErrorCodeInvalidCredentials, "Invalid credentials")))
	case errors.Is(err, apperrors.ErrOTPExpired):
		c.JSON(401, dto.NewErrorResponse(dto.NewErrorDetail(dto.ErrorCodeOTPExpired, "The code has expired, request a new one")))
	case errors.Is(err, apperrors.ErrOTPMaxAttempts):
		c.JSON(401, dto.NewErrorResponse(dto.NewErrorDetail(dto.ErrorCodeInvalidOTP, "Too many wrong codes, request a new one")))
	case errors.Is(err, apperrors.ErrInvalidOTP):
		c.JSON(401, dto.NewErrorResponse(dto.NewErrorDetail(dto.ErrorCodeInvalidOTP, "Invalid code")))
	case errors.Is(err, apperrors.ErrRateLimited):
		c.JSON(429, dto.NewErrorResponse(dto.NewErrorDetail(dto.ErrorCodeRateLimited, "Too many attempts, try again later")))
	case errors.Is(err, apperrors.ErrNoContextSwitch):
		// A no-op signal rather than a failure
		c.JSON(200, dto.NewAPIResponse(gin.H{
			"switched": false,
			"code":     string(dto.ErrorCodeNoContextSwitch),
		}))
	case errors.Is(err, apperrors.ErrTokenExpired):
		c.JSON(401, dto.NewErrorResponse(dto.NewErrorDetail(dto.ErrorCodeUnauthorized, "Token expired")))
	case errors.Is(err, apperrors.ErrTokenInvalid):
		c.JSON(401, dto.NewErrorResponse(dto.NewErrorDetail(dto.ErrorCodeUnauthorized, "Invalid token")))
	case errors.Is(err, apperrors.ErrSessionNotFound), errors.Is(err, apperrors.ErrSessionRevoked):
		c.JSON(401, dto.NewErrorResponse(dto.NewErrorDetail(dto.ErrorCodeUnauthorized, "Session is no longer valid")))
	case errors.Is(err, apperrors.ErrValidationFailed), errors.Is(err, apperrors.ErrBadRequest):
		c.JSON(400, dto.NewErrorResponse(dto.NewErrorDetail(dto.ErrorCodeValidation, err.Error())))
	case errors.Is(err, ratelimit.ErrStoreUnavailable):
		// Fail closed: without counters no attempt can be admitted safely
		logger.Error().Err(err).Msg("Rate limit store unavailable")
		c.JSON(503, dto.NewErrorResponse(dto.NewErrorDetail(dto.ErrorCodeInternal, "Service temporarily unavailable")))
	default:
		logger.Error().Err(err).Str("path", c.FullPath()).Msg("Unhandled API error")
		c.JSON(500, dto.NewErrorResponse(dto.NewErrorDetail(dto.ErrorCodeInternal, "Internal server error")))
	}
}
