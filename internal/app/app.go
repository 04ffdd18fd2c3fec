package app

import (
	"database/sql"
	"fmt"
	"log"

	"github.com/gin-gonic/gin"
	_ "github.com/lib/pq"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"

	"moim/internal/config"
	"moim/internal/handlers"
	"moim/internal/repositories"
	"moim/internal/routes"
	"moim/internal/services"
	"moim/internal/utils"
)

func Run() {
	cfg := config.LoadConfig()

	// === DB ===
	db, err := sql.Open("postgres", cfg.Database.DSN)
	if err != nil {
		log.Fatal("failed to open database: ", err)
	}
	defer func() {
		if err := db.Close(); err != nil {
			log.Printf("failed to close database: %v", err)
		}
	}()

	// === Repos ===
	verificationRepo := repositories.NewVerificationRepository(db)
	invitationRepo := repositories.NewInvitationRepository(db)
	userRepo := repositories.NewUserRepository(db)

	// === Services ===
	smsClient := utils.NewSMSClient(cfg.SMS.APIKey, cfg.SMS.SenderID, cfg.SMS.DryRun)

	verificationService := services.NewVerificationService(verificationRepo, smsClient)
	verificationService.CodeTTL = cfg.Auth.CodeTTLDuration()
	verificationService.ResendCooldown = cfg.Auth.CooldownDuration()
	verificationService.MaxAttempts = cfg.Auth.MaxAttempts

	invitationService := services.NewInvitationService(invitationRepo)

	tokenService := services.NewTokenService(userRepo,
		[]byte(cfg.Auth.AccessSecret), []byte(cfg.Auth.RefreshSecret))
	tokenService.AccessTTL = cfg.Auth.AccessTTLDuration()
	tokenService.RefreshTTL = cfg.Auth.RefreshTTLDuration()

	authService := services.NewAuthService(verificationService, invitationService, tokenService, userRepo)
	authService.VerifiedTTL = cfg.Auth.VerifiedTTLDuration()

	// === Handlers ===
	authHandler := handlers.NewAuthHandler(authService, invitationService)

	// === Gin ===
	router := gin.Default()
	router.Use(gin.Recovery())
	router.Use(corsMiddleware())

	router.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))

	routes.SetupRoutes(router, authHandler, []byte(cfg.Auth.AccessSecret))

	// === Run ===
	listenAddr := fmt.Sprintf(":%d", cfg.Server.Port)
	log.Printf("server listening on %s", listenAddr)
	if err := router.Run(listenAddr); err != nil {
		log.Fatal("server failed: ", err)
	}
}

func corsMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Writer.Header().Set("Access-Control-Allow-Origin", "*")
		c.Writer.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
		c.Writer.Header().Set("Access-Control-Allow-Headers", "Origin, Content-Type, Authorization")
		if c.Request.Method == "OPTIONS" {
			c.AbortWithStatus(204)
			return
		}
		c.Next()
	}
}
