// Package controllers handles HTTP request handling
package controllers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/paathshala/backend/internal/app/models/dto"
	"github.com/paathshala/backend/internal/app/services"
	"github.com/paathshala/backend/internal/middleware"
	"github.com/rs/zerolog"
)

// AuthController handles authentication related operations
type AuthController struct {
	authService *services.AuthService
	otpService  *services.OTPService
	logger      zerolog.Logger
}

// NewAuthController creates a new AuthController
func NewAuthController(authService *services.AuthService, otpService *services.OTPService, logger zerolog.Logger) *AuthController {
	return &AuthController{
		authService: authService,
		otpService:  otpService,
		logger:      logger,
	}
}

func requestMeta(ctx *gin.Context) services.RequestMeta {
	return services.RequestMeta{
		ClientIP:  ctx.ClientIP(),
		UserAgent: ctx.Request.UserAgent(),
	}
}

// GenerateOTP issues a one-time code for an identifier
// @Summary Request a one-time code
// @Description Sends a 6-digit code to the given mobile number or email. Replaces any earlier unused code.
// @Tags auth
// @Accept json
// @Produce json
// @Param request body dto.GenerateOTPRequest true "Identifier to send the code to"
// @Success 200 {object} dto.APIResponse{data=dto.GenerateOTPResponse} "Code sent"
// @Failure 400 {object} dto.ErrorResponse "Invalid request format"
// @Failure 429 {object} dto.ErrorResponse "Too many requests for this identifier"
// @Failure 500 {object} dto.ErrorResponse "Internal server error"
// @Router /auth/otp/generate [post]
func (c *AuthController) GenerateOTP(ctx *gin.Context) {
	var req dto.GenerateOTPRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		c.logger.Warn().Err(err).Msg("Invalid OTP generation payload")
		ctx.JSON(http.StatusBadRequest, dto.NewErrorResponse(dto.HandleValidationError(err)))
		return
	}

	meta := requestMeta(ctx)
	resp, err := c.otpService.Generate(ctx.Request.Context(), req.Identifier, meta.ClientIP, meta.UserAgent)
	if err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}

	ctx.JSON(http.StatusOK, dto.NewAPIResponse(resp))
}

// VerifyOTP checks a one-time code without logging in
// @Summary Verify a one-time code
// @Description Checks the submitted code against the live one for the identifier and consumes it on success.
// @Tags auth
// @Accept json
// @Produce json
// @Param request body dto.VerifyOTPRequest true "Identifier and code"
// @Success 200 {object} dto.APIResponse{data=dto.VerifyOTPResponse} "Code verified"
// @Failure 400 {object} dto.ErrorResponse "Invalid request format"
// @Failure 401 {object} dto.ErrorResponse "Wrong, expired or exhausted code"
// @Failure 500 {object} dto.ErrorResponse "Internal server error"
// @Router /auth/otp/verify [post]
func (c *AuthController) VerifyOTP(ctx *gin.Context) {
	var req dto.VerifyOTPRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		c.logger.Warn().Err(err).Msg("Invalid OTP verification payload")
		ctx.JSON(http.StatusBadRequest, dto.NewErrorResponse(dto.HandleValidationError(err)))
		return
	}

	if err := c.otpService.Verify(ctx.Request.Context(), req.Identifier, req.Code); err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}

	ctx.JSON(http.StatusOK, dto.NewAPIResponse(dto.VerifyOTPResponse{Verified: true}))
}

// Login authenticates a user against one school
// @Summary Log in
// @Description Authenticates with a password or one-time code and returns a session token scoped to the requested school.
// @Tags auth
// @Accept json
// @Produce json
// @Param request body dto.LoginRequest true "Identifier, school and credentials"
// @Success 200 {object} dto.APIResponse{data=dto.LoginResponse} "Authenticated"
// @Failure 400 {object} dto.ErrorResponse "Invalid request format"
// @Failure 401 {object} dto.ErrorResponse "Invalid credentials"
// @Failure 403 {object} dto.ErrorResponse "School inactive or not authorized"
// @Failure 404 {object} dto.ErrorResponse "School or user not found"
// @Failure 429 {object} dto.ErrorResponse "Identifier is rate limited or blocked"
// @Failure 500 {object} dto.ErrorResponse "Internal server error"
// @Router /auth/login [post]
func (c *AuthController) Login(ctx *gin.Context) {
	var req dto.LoginRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		c.logger.Warn().Err(err).Msg("Invalid login payload")
		ctx.JSON(http.StatusBadRequest, dto.NewErrorResponse(dto.HandleValidationError(err)))
		return
	}

	resp, err := c.authService.Login(ctx.Request.Context(), &req, requestMeta(ctx))
	if err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}

	ctx.JSON(http.StatusOK, dto.NewAPIResponse(resp))
}

// SwitchContext changes the session's active school or child
// @Summary Switch active context
// @Description Moves the session to another authorized school, or for parents to another linked child. Exactly one target per call.
// @Tags auth
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body dto.SwitchContextRequest true "New school or student id"
// @Success 200 {object} dto.APIResponse{data=dto.SwitchContextResponse} "Context switched, or no switch requested"
// @Failure 401 {object} dto.ErrorResponse "Not authenticated"
// @Failure 403 {object} dto.ErrorResponse "Target not authorized"
// @Failure 500 {object} dto.ErrorResponse "Internal server error"
// @Router /auth/switch-context [post]
func (c *AuthController) SwitchContext(ctx *gin.Context) {
	claims, ok := middleware.ClaimsFrom(ctx)
	if !ok {
		ctx.JSON(http.StatusUnauthorized, dto.NewErrorResponse(
			dto.NewErrorDetail(dto.ErrorCodeUnauthorized, "Authentication required")))
		return
	}

	var req dto.SwitchContextRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		c.logger.Warn().Err(err).Msg("Invalid context switch payload")
		ctx.JSON(http.StatusBadRequest, dto.NewErrorResponse(dto.HandleValidationError(err)))
		return
	}

	resp, err := c.authService.SwitchContext(ctx.Request.Context(), claims, &req, requestMeta(ctx))
	if err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}

	ctx.JSON(http.StatusOK, dto.NewAPIResponse(resp))
}

// Logout revokes the current session
// @Summary Log out
// @Description Revokes the server-side session. The request's token stops working immediately.
// @Tags auth
// @Produce json
// @Security BearerAuth
// @Success 200 {object} dto.APIResponse "Logged out"
// @Failure 401 {object} dto.ErrorResponse "Not authenticated"
// @Failure 500 {object} dto.ErrorResponse "Internal server error"
// @Router /auth/logout [post]
func (c *AuthController) Logout(ctx *gin.Context) {
	claims, ok := middleware.ClaimsFrom(ctx)
	if !ok {
		ctx.JSON(http.StatusUnauthorized, dto.NewErrorResponse(
			dto.NewErrorDetail(dto.ErrorCodeUnauthorized, "Authentication required")))
		return
	}

	if err := c.authService.Logout(ctx.Request.Context(), claims, requestMeta(ctx)); err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}

	ctx.JSON(http.StatusOK, dto.NewAPIResponse(gin.H{"loggedOut": true}))
}

// Me returns the caller's user details and active context
// @Summary Current session
// @Description Returns the authenticated user and the session's active school and child.
// @Tags auth
// @Produce json
// @Security BearerAuth
// @Success 200 {object} dto.APIResponse{data=dto.MeResponse} "Session details"
// @Failure 401 {object} dto.ErrorResponse "Not authenticated"
// @Failure 500 {object} dto.ErrorResponse "Internal server error"
// @Router /auth/me [get]
func (c *AuthController) Me(ctx *gin.Context) {
	claims, ok := middleware.ClaimsFrom(ctx)
	if !ok {
		ctx.JSON(http.StatusUnauthorized, dto.NewErrorResponse(
			dto.NewErrorDetail(dto.ErrorCodeUnauthorized, "Authentication required")))
		return
	}

	resp, err := c.authService.Me(ctx.Request.Context(), claims)
	if err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}

	ctx.JSON(http.StatusOK, dto.NewAPIResponse(resp))
}
