package routes

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"moim/internal/handlers"
	"moim/internal/middleware"
)

func SetupRoutes(r *gin.Engine, authHandler *handlers.AuthHandler, accessSecret []byte) *gin.Engine {
	r.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	auth := r.Group("/auth")
	{
		// ---- public
		auth.POST("", authHandler.SendAuthCode)
		auth.PUT("", authHandler.VerifyAuthCode)
		auth.POST("/sign-up", authHandler.SignUp)
		auth.POST("/refresh", authHandler.Refresh)
		auth.GET("/invitation/:phoneNumber", authHandler.GetInvitation)

		// ---- protected
		protected := auth.Group("", middleware.Auth(accessSecret))
		protected.POST("/sign-out", authHandler.SignOut)
		protected.POST("/invitation", authHandler.IssueInvitation)
	}

	return r
}
