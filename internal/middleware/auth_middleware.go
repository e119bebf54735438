package middleware

import (
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/paathshala/backend/internal/app/models"
	"github.com/paathshala/backend/internal/app/models/dto"
	"github.com/paathshala/backend/internal/app/repositories"
	"github.com/paathshala/backend/internal/pkg/auth"
)

// Context keys set by JWTAuth
const (
	ContextClaims          = "claims"
	ContextSession         = "session"
	ContextUserID          = "userID"
	ContextRole            = "role"
	ContextActiveSchoolID  = "activeSchoolID"
	ContextActiveStudentID = "activeStudentID"
)

// AuthMiddleware for authentication and authorization
type AuthMiddleware struct {
	jwtService  *auth.JWTService
	sessionRepo repositories.ISessionRepository
}

// NewAuthMiddleware creates a new AuthMiddleware
func NewAuthMiddleware(jwtService *auth.JWTService, sessionRepo repositories.ISessionRepository) *AuthMiddleware {
	return &AuthMiddleware{
		jwtService:  jwtService,
		sessionRepo: sessionRepo,
	}
}

// JWTAuth validates the bearer token and loads the server-side session.
// The session row, not the token, is authoritative for the active context,
// so a context switch or logout takes effect on the very next request.
func (m *AuthMiddleware) JWTAuth() gin.HandlerFunc {
	return func(c *gin.Context) {
		authHeader := c.GetHeader("Authorization")
		if authHeader == "" {
			errorDetail := dto.NewErrorDetail(dto.ErrorCodeUnauthorized, "Authentication required").
				WithDetails("Authorization header missing")
			c.AbortWithStatusJSON(http.StatusUnauthorized, dto.NewErrorResponse(errorDetail))
			return
		}

		tokenString, err := auth.ExtractBearerToken(authHeader)
		if err != nil {
			errorDetail := dto.NewErrorDetail(dto.ErrorCodeUnauthorized, "Authentication required").
				WithDetails("Invalid token format")
			c.AbortWithStatusJSON(http.StatusUnauthorized, dto.NewErrorResponse(errorDetail))
			return
		}

		claims, err := m.jwtService.ValidateAndExtractClaims(tokenString)
		if err != nil {
			message := "Invalid token"
			if errors.Is(err, auth.ErrExpiredToken) {
				message = "Token has expired"
			}
			errorDetail := dto.NewErrorDetail(dto.ErrorCodeUnauthorized, "Authentication failed").
				WithDetails(message)
			c.AbortWithStatusJSON(http.StatusUnauthorized, dto.NewErrorResponse(errorDetail))
			return
		}

		session, err := m.sessionRepo.GetByID(c.Request.Context(), claims.ID)
		if err != nil || !session.Live(time.Now()) {
			errorDetail := dto.NewErrorDetail(dto.ErrorCodeUnauthorized, "Authentication failed").
				WithDetails("Session is no longer valid")
			c.AbortWithStatusJSON(http.StatusUnauthorized, dto.NewErrorResponse(errorDetail))
			return
		}

		c.Set(ContextClaims, claims)
		c.Set(ContextSession, session)
		c.Set(ContextUserID, session.UserID)
		c.Set(ContextRole, session.Role)
		c.Set(ContextActiveSchoolID, session.ActiveSchoolID)
		if session.ActiveStudentID != nil {
			c.Set(ContextActiveStudentID, *session.ActiveStudentID)
		}

		c.Next()
	}
}

// RoleRequired restricts a route to one role. Runs after JWTAuth.
func (m *AuthMiddleware) RoleRequired(role models.RoleType) gin.HandlerFunc {
	return func(c *gin.Context) {
		current, exists := c.Get(ContextRole)
		if !exists || current.(models.RoleType) != role {
			errorDetail := dto.NewErrorDetail(dto.ErrorCodeUnauthorized, "Permission denied").
				WithDetails("This action requires the " + string(role) + " role")
			c.AbortWithStatusJSON(http.StatusForbidden, dto.NewErrorResponse(errorDetail))
			return
		}
		c.Next()
	}
}

// ClaimsFrom returns the token claims stored by JWTAuth
func ClaimsFrom(c *gin.Context) (*auth.Claims, bool) {
	value, exists := c.Get(ContextClaims)
	if !exists {
		return nil, false
	}
	claims, ok := value.(*auth.Claims)
	return claims, ok
}

// SessionFrom returns the session row stored by JWTAuth
func SessionFrom(c *gin.Context) (*models.AuthSession, bool) {
	value, exists := c.Get(ContextSession)
	if !exists {
		return nil, false
	}
	session, ok := value.(*models.AuthSession)
	return session, ok
}
