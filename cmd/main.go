package main

import (
	"workspace-service/internal/handler"
	"workspace-service/internal/mailer"
	"workspace-service/internal/middleware"
	"workspace-service/internal/service"
	"workspace-service/pkg/config"
	"workspace-service/pkg/database"
	"workspace-service/pkg/jwtutil"
	"workspace-service/pkg/logger"
	"workspace-service/prometheus"

	"github.com/labstack/echo/v4"
	echomiddleware "github.com/labstack/echo/v4/middleware"
	"go.uber.org/zap"
)

func main() {
	// Load configuration from .env file and environment variables
	cfg, err := config.Load()
	if err != nil {
		panic("Failed to load configuration: " + err.Error())
	}

	// Initialize logger with config
	if err := logger.InitLogger(cfg); err != nil {
		panic("Failed to initialize logger: " + err.Error())
	}
	log := logger.GetLogger()
	log.Info("Starting workspace service...", zap.String("environment", cfg.Server.Env))

	// Initialize database
	if err := database.InitDB(cfg); err != nil {
		log.Fatal("Failed to initialize database", zap.Error(err))
	}
	log.Info("Database connection established")

	// Initialize JWT utility
	jwtutil.Initialize(&cfg.JWT)
	log.Info("JWT utility initialized")

	db := database.GetDB()
	mail := mailer.New(&cfg.SMTP, log)

	verificationService := service.NewVerificationService(db, mail, log, cfg.Tokens.VerificationTTL)
	authService := service.NewAuthService(db, verificationService)
	workspaceService := service.NewWorkspaceService(db)
	invitationService := service.NewInvitationService(db, mail, log, cfg.Tokens.InvitationTTL)

	authHandler := handler.NewAuthHandler(authService)
	userHandler := handler.NewUserHandler(authService)
	workspaceHandler := handler.NewWorkspaceHandler(workspaceService)
	invitationHandler := handler.NewInvitationHandler(invitationService)
	verificationHandler := handler.NewVerificationHandler(verificationService)

	resendLimiter := middleware.NewResendVerificationLimiter()
	defer resendLimiter.Stop()

	// Initialize Echo framework
	e := echo.New()

	// Apply global middleware - order matters
	e.Use(echomiddleware.Recover())
	e.Use(echomiddleware.CORS())
	e.Use(middleware.RequestIDMiddleware)
	e.Use(logger.Middleware(log))
	e.Use(prometheus.MetricsMiddleware())

	// Public routes - no authentication required
	e.GET("/health", handler.HealthCheck)
	e.GET("/metrics", handler.MetricsHandler)

	// Authentication routes - these don't belong under /api since they're for getting access to the API
	auth := e.Group("/auth")
	auth.POST("/register", authHandler.Register)
	auth.POST("/login", authHandler.Login)
	// Public acceptance supports just-in-time account creation
	auth.POST("/invitations/accept", invitationHandler.Accept)

	// API routes - all require authentication
	api := e.Group("/api")
	api.Use(middleware.AuthMiddleware)

	// User management
	users := api.Group("/users")
	users.GET("/me", userHandler.Me)
	users.GET("", userHandler.List)
	users.GET("/:id", userHandler.Get)

	// Email verification
	api.POST("/verify-email", verificationHandler.Verify)
	api.POST("/resend-verification-email", verificationHandler.Resend, resendLimiter.Middleware())

	// Workspace management
	workspaces := api.Group("/workspaces")
	workspaces.POST("", workspaceHandler.Create)
	workspaces.GET("", workspaceHandler.List)
	workspaces.GET("/:id", workspaceHandler.Get)
	workspaces.DELETE("/:id", workspaceHandler.Delete)
	workspaces.POST("/switch", workspaceHandler.Switch)
	workspaces.DELETE("/:id/members/:user_id", workspaceHandler.RemoveMember)

	// Default profile selection
	api.POST("/profiles/default", workspaceHandler.MakeProfileDefault)

	// Invitation management; authenticated acceptance shares the handler
	invitations := api.Group("/invitations")
	invitations.POST("", invitationHandler.Create)
	invitations.GET("", invitationHandler.List)
	invitations.DELETE("/:id", invitationHandler.Revoke)
	invitations.POST("/accept", invitationHandler.Accept)

	// Start server
	port := cfg.Server.Port
	log.Info("Starting server", zap.String("port", port))
	if err := e.Start(":" + port); err != nil {
		log.Fatal("Failed to start server", zap.Error(err))
	}
}
