package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"wallet_tracker/internal/config"
	"wallet_tracker/internal/handler"
	"wallet_tracker/internal/logger"
	"wallet_tracker/internal/middleware"
	"wallet_tracker/internal/repository"
	"wallet_tracker/internal/service"
	"wallet_tracker/internal/utils"

	"github.com/gin-gonic/gin"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
)

func main() {
	envErr := godotenv.Load()

	// --- Configuration ---
	appCfg, err := config.LoadAppConfig()
	if err != nil {
		boot := logger.New("info", "console")
		boot.Fatal().Err(err).Msg("failed to load app config")
	}
	log := logger.New(appCfg.LogLevel, appCfg.LogFormat)
	if envErr != nil {
		log.Debug().Msg("no .env file found, relying on environment variables")
	}

	dbCfg, err := config.LoadDBConfig()
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load DB config")
	}

	if err := os.MkdirAll(appCfg.UploadsDir, 0o755); err != nil {
		log.Fatal().Err(err).Str("dir", appCfg.UploadsDir).Msg("failed to create uploads directory")
	}

	ctx := context.Background()

	// --- Database Connection ---
	dbPool, err := config.ConnectDB(ctx, dbCfg, log)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to connect to database")
	}
	defer dbPool.Close()

	if err := config.AutoMigrate(ctx, dbPool, log); err != nil {
		log.Fatal().Err(err).Msg("failed to migrate database")
	}

	router := newRouter(appCfg, dbPool, log)

	// --- Start Server ---
	srv := &http.Server{
		Addr:              ":" + appCfg.ServerPort,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		log.Info().Str("port", appCfg.ServerPort).Str("billing_tz", appCfg.BillingLocation.String()).Msg("server starting")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal().Err(err).Msg("listen failed")
		}
	}()

	// --- Graceful Shutdown ---
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Info().Msg("shutting down server")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("server forced to shutdown")
	}
	log.Info().Msg("server exited")
}

func newRouter(appCfg *config.AppConfig, dbPool *pgxpool.Pool, log zerolog.Logger) *gin.Engine {
	jwtUtil := utils.NewJWTUtil(appCfg.JWTSecret, appCfg.JWTExpirationHours)

	// --- Repositories ---
	userRepo := repository.NewUserRepository(dbPool)
	transactionRepo := repository.NewTransactionRepository(dbPool)
	walletRepo := repository.NewWalletRepository(dbPool)

	// --- Services ---
	authService := service.NewAuthService(userRepo, jwtUtil, appCfg.InitialAdminPhone)
	walletService := service.NewWalletService(walletRepo, transactionRepo, appCfg.BillingLocation)
	transactionService := service.NewTransactionService(transactionRepo, walletRepo, walletService, appCfg.UploadsDir)

	// --- Handlers ---
	authHandler := handler.NewAuthHandler(authService)
	transactionHandler := handler.NewTransactionHandler(transactionService)
	walletHandler := handler.NewWalletHandler(walletService)

	gin.SetMode(appCfg.GinMode)
	router := gin.New()
	router.Use(gin.Recovery(), middleware.RequestLogger(log), middleware.CORS())

	jwtAuthMW := middleware.JWTAuthMiddleware(jwtUtil)
	userRoleMW := middleware.UserMiddleware()
	adminRoleMW := middleware.AdminMiddleware()

	apiGroup := router.Group("/api/v1")
	authHandler.RegisterAuthRoutes(apiGroup)
	transactionHandler.RegisterTransactionRoutes(apiGroup, jwtAuthMW, userRoleMW, adminRoleMW)
	walletHandler.RegisterWalletRoutes(apiGroup, jwtAuthMW, userRoleMW)

	router.GET("/health", func(c *gin.Context) {
		if err := dbPool.Ping(c.Request.Context()); err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{"status": "error", "db": "unhealthy"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"status": "ok", "db": "healthy"})
	})
	return router
}
