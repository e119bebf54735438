package routes

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/paathshala/backend/internal/app/controllers"
	"github.com/paathshala/backend/internal/app/models"
	"github.com/paathshala/backend/internal/middleware"
)

// SetupRouter configures all application routes
func SetupRouter(
	router *gin.Engine,
	authController *controllers.AuthController,
	adminController *controllers.AdminController,
	authMiddleware *middleware.AuthMiddleware,
) {
	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	v1 := router.Group("/api/v1")

	// --- Public Auth routes ---
	auth := v1.Group("/auth")
	{
		auth.POST("/otp/generate", authController.GenerateOTP)
		auth.POST("/otp/verify", authController.VerifyOTP)
		auth.POST("/login", authController.Login)
	}

	// --- Authenticated routes ---
	authenticated := v1.Group("")
	authenticated.Use(authMiddleware.JWTAuth())
	{
		authenticated.POST("/auth/switch-context", authController.SwitchContext)
		authenticated.POST("/auth/logout", authController.Logout)
		authenticated.GET("/auth/me", authController.Me)

		// Admin-only routes
		admin := authenticated.Group("/admin")
		admin.Use(authMiddleware.RoleRequired(models.RoleAdmin))
		{
			admin.POST("/unblock", adminController.Unblock)
			admin.GET("/audit", adminController.ListAudit)
		}
	}
}
