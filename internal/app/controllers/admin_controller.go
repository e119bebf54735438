package controllers

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/paathshala/backend/internal/app/models/dto"
	"github.com/paathshala/backend/internal/app/services"
	"github.com/paathshala/backend/internal/middleware"
	"github.com/rs/zerolog"
)

// AdminController handles school admin operations
type AdminController struct {
	adminService *services.AdminService
	logger       zerolog.Logger
}

// NewAdminController creates a new AdminController
func NewAdminController(adminService *services.AdminService, logger zerolog.Logger) *AdminController {
	return &AdminController{
		adminService: adminService,
		logger:       logger,
	}
}

// Unblock lifts a rate-limit block from an identifier
// @Summary Unblock an identifier
// @Description Removes the block and attempt counters for a mobile number or email. ADMIN only.
// @Tags admin
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body dto.UnblockRequest true "Identifier to unblock"
// @Success 200 {object} dto.APIResponse{data=dto.UnblockResponse} "Block removed if one existed"
// @Failure 401 {object} dto.ErrorResponse "Not authenticated"
// @Failure 403 {object} dto.ErrorResponse "Caller is not an admin"
// @Failure 500 {object} dto.ErrorResponse "Internal server error"
// @Router /admin/unblock [post]
func (c *AdminController) Unblock(ctx *gin.Context) {
	claims, ok := middleware.ClaimsFrom(ctx)
	if !ok {
		ctx.JSON(http.StatusUnauthorized, dto.NewErrorResponse(
			dto.NewErrorDetail(dto.ErrorCodeUnauthorized, "Authentication required")))
		return
	}

	var req dto.UnblockRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		c.logger.Warn().Err(err).Msg("Invalid unblock payload")
		ctx.JSON(http.StatusBadRequest, dto.NewErrorResponse(dto.HandleValidationError(err)))
		return
	}

	meta := services.RequestMeta{ClientIP: ctx.ClientIP(), UserAgent: ctx.Request.UserAgent()}
	resp, err := c.adminService.Unblock(ctx.Request.Context(), claims, &req, meta)
	if err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}

	ctx.JSON(http.StatusOK, dto.NewAPIResponse(resp))
}

// ListAudit returns a page of the school's audit trail
// @Summary List audit entries
// @Description Returns audit log entries for the caller's active school, newest first. ADMIN only.
// @Tags admin
// @Produce json
// @Security BearerAuth
// @Param page query int false "Page number, starting at 1"
// @Param size query int false "Page size, max 100"
// @Success 200 {object} dto.APIResponse{data=dto.AuditListResponse} "Audit entries"
// @Failure 401 {object} dto.ErrorResponse "Not authenticated"
// @Failure 403 {object} dto.ErrorResponse "Caller is not an admin"
// @Failure 500 {object} dto.ErrorResponse "Internal server error"
// @Router /admin/audit [get]
func (c *AdminController) ListAudit(ctx *gin.Context) {
	session, ok := middleware.SessionFrom(ctx)
	if !ok {
		ctx.JSON(http.StatusUnauthorized, dto.NewErrorResponse(
			dto.NewErrorDetail(dto.ErrorCodeUnauthorized, "Authentication required")))
		return
	}

	page, _ := strconv.Atoi(ctx.DefaultQuery("page", "1"))
	size, _ := strconv.Atoi(ctx.DefaultQuery("size", "20"))

	resp, err := c.adminService.ListAudit(ctx.Request.Context(), session.ActiveSchoolID, page, size)
	if err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}

	ctx.JSON(http.StatusOK, dto.NewAPIResponse(resp))
}
