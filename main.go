package main

import (
	"context"
	"database/sql"
	"os"
	"os/signal"
	"syscall"

	"golang.org/x/time/rate"

	"taskflow-be/internal/auth"
	"taskflow-be/internal/cache"
	"taskflow-be/internal/config"
	"taskflow-be/internal/controllers"
	"taskflow-be/internal/database"
	"taskflow-be/internal/hasher"
	"taskflow-be/internal/jwt"
	"taskflow-be/internal/logging"
	"taskflow-be/internal/middleware"
	"taskflow-be/internal/notifier"
	"taskflow-be/internal/repository"
	"taskflow-be/internal/server"
	"taskflow-be/internal/service"
)

func main() {
	// Load configuration
	cfg := config.Load()
	logger := logging.New(os.Stdout, cfg.LogFormat, cfg.LogLevel)

	if err := run(cfg, logger); err != nil {
		logger.Error(context.Background(), "server exited", "error", err)
		os.Exit(1)
	}
}

func run(cfg *config.Config, logger logging.Logger) error {
	if err := cfg.Validate(); err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Initialize repositories (Postgres when configured, in-memory otherwise)
	var (
		userRepo repository.UserRepository
		taskRepo repository.TaskRepository
	)
	if cfg.DatabaseURL != "" {
		db, err := openDatabase(ctx, cfg.DatabaseURL)
		if err != nil {
			return err
		}
		defer db.Close()

		userRepo = repository.NewUserRepository(db)
		taskRepo = repository.NewTaskRepository(db)
		logger.Info(ctx, "using postgres store")
	} else {
		userRepo = repository.NewMemoryUserRepository()
		taskRepo = repository.NewMemoryTaskRepository()
		logger.Warn(ctx, "DATABASE_URL not set, using in-memory store")
	}

	// Initialize Redis cache (optional - continue if Redis is unavailable)
	var cacheClient cache.Cache
	if cfg.RedisURL != "" {
		c, err := cache.NewRedisCache(ctx, cfg.RedisURL)
		if err != nil {
			logger.Warn(ctx, "failed to connect to redis, continuing without cache", "error", err)
		} else {
			cacheClient = c
			defer c.Close()
			logger.Info(ctx, "connected to redis cache")
		}
	}

	var mailer notifier.Notifier
	if cfg.SMTPServer != "" {
		mailer = notifier.NewSMTPNotifier(notifier.SMTPConfig{
			Host:     cfg.SMTPServer,
			Port:     cfg.SMTPPort,
			Username: cfg.SMTPEmail,
			Password: cfg.SMTPPassword,
		})
	} else {
		logger.Warn(ctx, "SMTP_SERVER not set, reset emails will only be logged")
		mailer = notifier.NewLogNotifier(logger)
	}

	jwtService := jwt.NewJWTService(cfg.JWTSecret, cfg.SessionTTL(), cfg.ResetTTL())
	passwordHasher := hasher.NewBcryptHasher(cfg.BcryptCost)

	// Initialize services
	authService := service.NewAuthService(userRepo, jwtService, passwordHasher, mailer, logger, cfg.FrontendURL)
	statsService := service.NewStatsService(taskRepo, cacheClient, logger)
	taskService := service.NewTaskService(taskRepo, statsService, logger)

	// Initialize rate limiters
	generalRateLimiter := middleware.NewRateLimiter("general", rate.Limit(cfg.RateLimitRPS), cfg.RateLimitBurst, logger)
	authRateLimiter := middleware.NewRateLimiter("auth", rate.Limit(cfg.RateLimitAuthRPS), cfg.RateLimitAuthBurst, logger)
	go generalRateLimiter.Run(ctx)
	go authRateLimiter.Run(ctx)

	router := server.NewRouter(server.Dependencies{
		AuthController: controllers.NewAuthController(authService, logger),
		TaskController: controllers.NewTaskController(taskService, statsService, logger),
		Gateway:        auth.NewGateway(jwtService, userRepo),
		GeneralLimiter: generalRateLimiter,
		AuthLimiter:    authRateLimiter,
		AllowedOrigins: cfg.CORSAllowedOrigins,
		Logger:         logger,
	})

	return server.Run(ctx, ":"+cfg.Port, router, logger)
}

func openDatabase(ctx context.Context, databaseURL string) (*sql.DB, error) {
	db, err := database.NewConnection(ctx, databaseURL)
	if err != nil {
		return nil, err
	}

	// Run database migrations
	if err := database.RunMigrations(ctx, db); err != nil {
		db.Close()
		return nil, err
	}
	return db, nil
}
