package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/shiftwise/auth-api/internal/config"
	"github.com/shiftwise/auth-api/internal/handlers"
	"github.com/shiftwise/auth-api/internal/logging"
	"github.com/shiftwise/auth-api/internal/middleware"
	"github.com/shiftwise/auth-api/internal/observability"
	"github.com/shiftwise/auth-api/internal/phone"
	"github.com/shiftwise/auth-api/internal/services"
	"github.com/shiftwise/auth-api/internal/storage"
	"github.com/shiftwise/auth-api/internal/token"
	"github.com/shiftwise/auth-api/internal/verify"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.uber.org/zap"
)

// @title           Shiftwise Auth API
// @version         1.0
// @description     Phone-based OTP identity verification and session lifecycle. Accounts are created with an unverified phone, verified through a one-time code, and logins are gated on verified-phone status.

// @contact.name   API Support

// @host      localhost:8080
// @BasePath  /v1

// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization

// @tag.name auth
// @tag.description Registration, verification and login operations

// @tag.name health
// @tag.description Health check operations

func main() {
	// Initialize logger first
	if err := logging.InitLogger(); err != nil {
		panic(fmt.Sprintf("failed to initialize logger: %v", err))
	}

	// Load configuration
	if err := config.LoadConfig(); err != nil {
		logging.Logger.Fatal("failed to load config", zap.Error(err))
	}

	// Initialize observability
	observability.InitTracer()
	defer observability.ShutdownTracer()

	// Initialize database connections
	config.InitMongoDB()
	config.InitRedis()

	// Set Gin mode
	if config.AppConfig.Environment == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	policy, err := phone.PolicyByName(config.AppConfig.PhonePolicy)
	if err != nil {
		logging.Logger.Fatal("invalid phone policy", zap.Error(err))
	}

	sandbox := services.Sandbox{
		Enabled: config.AppConfig.SandboxEnabled,
		Phone:   config.AppConfig.SandboxPhone,
		Code:    config.AppConfig.SandboxCode,
	}
	if sandbox.Enabled {
		logging.Logger.Warn("sandbox bypass is enabled, do not run this in production")
	}

	verifier := verify.NewHTTPClient(verify.Config{
		BaseURL:    config.AppConfig.VerifyBaseURL,
		AccountSID: config.AppConfig.VerifyAccountSID,
		AuthToken:  config.AppConfig.VerifyAuthToken,
		ServiceSID: config.AppConfig.VerifyServiceSID,
	})

	engine := services.NewAuthService(
		storage.NewAccountStore(),
		storage.NewSessionStore(),
		storage.NewAttemptLog(),
		verifier,
		policy,
		sandbox,
		config.Redis,
		config.AppConfig.ProfileCacheTTL,
		config.AppConfig.SessionTTL,
		logging.Logger.Named("engine"),
	)

	issuer := token.NewIssuer(
		config.AppConfig.JWTSecret,
		config.AppConfig.JWTIssuer,
		config.AppConfig.JWTAudience,
		config.AppConfig.JWTExpiration,
	)

	handler := handlers.NewAuthHandler(engine, issuer)

	// Create router with middleware
	router := gin.New()
	router.Use(
		gin.Recovery(),
		middleware.RequestID(),
		middleware.RequestLogger(),
		middleware.RequestTracker(),
		cors.Default(),
	)

	// Metrics endpoint
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	// API v1 routes
	v1 := router.Group("/v1")
	{
		v1.GET("/health", handlers.HealthCheck)

		auth := v1.Group("/auth")
		auth.POST("/register", handler.Register)
		auth.POST("/register/resend", handler.ResendVerification)
		auth.POST("/register/verify", handler.VerifyRegistration)
		auth.POST("/login/request", handler.RequestLogin)
		auth.POST("/login/verify", handler.Login)

		protected := auth.Group("")
		protected.Use(middleware.RequireToken(issuer))
		protected.GET("/profile", handler.Profile)
		protected.GET("/accounts", handler.Accounts)
		protected.GET("/history", handler.History)
	}

	// Swagger documentation
	router.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))

	// Create server with timeouts
	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", config.AppConfig.Port),
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Start server in a goroutine
	go func() {
		logging.Logger.Info("starting server",
			zap.Int("port", config.AppConfig.Port),
			zap.String("environment", config.AppConfig.Environment),
			zap.String("phone_policy", policy.Name()),
		)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logging.Logger.Fatal("failed to start server", zap.Error(err))
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	// Graceful shutdown
	logging.Logger.Info("shutting down server...")
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		logging.Logger.Fatal("server forced to shutdown", zap.Error(err))
	}

	logging.Logger.Info("server exited gracefully")
}
