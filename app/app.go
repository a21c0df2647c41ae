// File: app/app.go
package app

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"
	"vh-recruit-api/config"
	"vh-recruit-api/db"
	"vh-recruit-api/handler"
	"vh-recruit-api/logger"
	"vh-recruit-api/notifier"
	"vh-recruit-api/repository"
	"vh-recruit-api/router"
	"vh-recruit-api/service"
)

func Run() {
	config.LoadConfig(".")
	logger.Init()
	logger.Log.Info("Logger initialized")
	logger.Log.Info("Configuration loaded successfully")

	if err := config.AppConfig.Validate(); err != nil {
		logger.Log.Fatalf("Invalid configuration: %v", err)
	}

	database, err := db.Connect()
	if err != nil {
		logger.Log.Fatalf("Error connecting to the database: %v", err)
	}
	defer database.Close()

	dbCfg := config.AppConfig.Database
	connStr := db.MigrateConnString(dbCfg.Host, dbCfg.Port, dbCfg.User, dbCfg.Password, dbCfg.Name)
	if err := db.Migrate("file://db/migrations", connStr); err != nil {
		logger.Log.Fatalf("Error running migrations: %v", err)
	}

	redisClient, err := db.ConnectRedis()
	if err != nil {
		logger.Log.Fatalf("Error connecting to redis: %v", err)
	}
	defer redisClient.Close()

	// --- Wiring All Layers Together ---
	accountRepo := repository.NewAccountRepository(database)
	otpRepo := repository.NewOTPRepository(database)
	tokenRepo := repository.NewTokenRepository(database)

	authService := service.NewAuthService()

	var otpNotifier service.Notifier = notifier.LogNotifier{}
	if config.AppConfig.IsProduction() {
		otpNotifier = notifier.NewSMTPNotifier(
			os.Getenv("SMTP_ADDR"),
			os.Getenv("SMTP_FROM"),
		)
	}
	otpService := service.NewOTPService(otpRepo, otpNotifier, config.AppConfig.OTPWindow())

	tokenService := service.NewTokenService(tokenRepo, accountRepo, config.AppConfig.RefreshTokenTTL())

	throttle := service.NewLoginThrottle(
		redisClient,
		config.AppConfig.Throttle.MaxAttempts,
		time.Duration(config.AppConfig.Throttle.WindowMinutes)*time.Minute,
	)

	sessionService := service.NewSessionService(accountRepo, authService, authService, otpService, tokenService, throttle)
	authHandler := handler.NewAuthHandler(sessionService)

	// Expired ledger entries are already invalid; clearing them at boot
	// keeps the rotation scan bounded.
	if purged, err := tokenService.PurgeExpired(); err != nil {
		logger.Log.WithError(err).Warn("Failed to purge expired refresh tokens")
	} else if purged > 0 {
		logger.Log.WithField("count", purged).Info("Purged expired refresh tokens")
	}

	r := router.NewRouter(authHandler)

	// --- Start the Server with Graceful Shutdown ---
	port := config.AppConfig.Server.Port
	srv := &http.Server{
		Addr:    ":" + port,
		Handler: r,
	}

	go func() {
		logger.Log.Infof("Server starting on port :%s", port)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Log.Fatalf("Failed to start server: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Log.Warn("Shutdown signal received. Starting graceful shutdown...")

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		logger.Log.Fatalf("Server forced to shutdown: %v", err)
	}

	logger.Log.Info("Server exited properly")
}
