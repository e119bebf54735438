// Package bootstrap wires configuration, storage and services together.
package bootstrap

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	appControllers "github.com/paathshala/backend/internal/app/controllers"
	appMigrations "github.com/paathshala/backend/internal/app/migrations"
	appRepos "github.com/paathshala/backend/internal/app/repositories"
	appRoutes "github.com/paathshala/backend/internal/app/routes"
	appServices "github.com/paathshala/backend/internal/app/services"
	"github.com/paathshala/backend/internal/config"
	"github.com/paathshala/backend/internal/db"
	appMiddleware "github.com/paathshala/backend/internal/middleware"
	pkgAuth "github.com/paathshala/backend/internal/pkg/auth"
	"github.com/paathshala/backend/internal/pkg/helpers"
	"github.com/paathshala/backend/internal/pkg/logger"
	"github.com/paathshala/backend/internal/pkg/notify"
	"github.com/paathshala/backend/internal/pkg/ratelimit"
	"github.com/paathshala/backend/internal/seed"
)

// Dependencies holds all the application dependencies
type Dependencies struct {
	AuthService     *appServices.AuthService
	OTPService      *appServices.OTPService
	AdminService    *appServices.AdminService
	ContextService  *appServices.SchoolContextService
	AuthController  *appControllers.AuthController
	AdminController *appControllers.AdminController
	AuthMiddleware  *appMiddleware.AuthMiddleware
	Repos           *appRepos.Repositories
	JWTService      *pkgAuth.JWTService
	Limiter         *ratelimit.Limiter
	RedisClient     *redis.Client          // Nil when redis is unconfigured
	MemoryStore     *ratelimit.MemoryStore // Nil when redis backs the limiter
	Logger          zerolog.Logger
}

// LoadConfigAndSetupLogger loads configuration and initializes the logger.
func LoadConfigAndSetupLogger() (*config.Config, zerolog.Logger, error) {
	configPath := filepath.Join("configs", "config.yaml")
	cfg, err := config.LoadConfig(configPath)
	if err != nil {
		logger.Error().Err(err).Msg("Failed to load configuration")
		return nil, zerolog.Logger{}, err
	}

	logLevel := logger.LogLevel(strings.ToLower(cfg.Logging.Level))
	prettyLog := strings.ToLower(cfg.Logging.Format) == "text"

	logger.Configure(logger.Config{
		Level:  logLevel,
		Pretty: prettyLog,
	})

	lgr := log.Logger
	lgr.Info().Str("logLevel", string(logLevel)).Str("logFormat", cfg.Logging.Format).Msg("Logger configured")
	return cfg, lgr, nil
}

// SetupDatabase establishes the database connection, runs migrations and seeds demo data.
func SetupDatabase(cfg *config.Config, lgr zerolog.Logger) (*pgxpool.Pool, error) {
	lgr.Info().Msg("Establishing database connection...")
	database, err := db.NewPostgresDB(cfg)
	if err != nil {
		lgr.Error().Err(err).Msg("Failed to connect to database")
		return nil, err
	}
	dbPool := database.Pool

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := dbPool.Ping(ctx); err != nil {
		lgr.Error().Err(err).Msg("Failed to ping database")
		dbPool.Close()
		return nil, err
	}
	lgr.Info().Msg("Database connection successfully established.")

	lgr.Info().Msg("Running database migrations...")
	migrator := appMigrations.NewMigrator(dbPool)

	migrationsDir := "migrations"
	if _, err := os.Stat(migrationsDir); os.IsNotExist(err) {
		lgr.Error().Str("path", migrationsDir).Msg("Migrations directory not found")
		return nil, fmt.Errorf("migrations directory not found at %s: %w", migrationsDir, err)
	}

	if err := migrator.MigrateFromDirectory(migrationsDir); err != nil {
		lgr.Error().Err(err).Msg("Database migration error")
		return nil, fmt.Errorf("database migrations failed: %w", err)
	}

	lgr.Info().Msg("Database migrations successfully applied.")

	if err := seed.CreateDefaultData(context.Background(), dbPool, lgr); err != nil {
		lgr.Error().Err(err).Msg("Failed to create default data, proceeding anyway...")
	}

	return dbPool, nil
}

// BuildDependencies initializes repositories, the rate limiter, services and controllers.
func BuildDependencies(cfg *config.Config, dbPool *pgxpool.Pool, lgr zerolog.Logger) (*Dependencies, error) {
	deps := &Dependencies{Logger: lgr}

	deps.Repos = appRepos.NewRepositories(dbPool)

	// Counter store: redis when configured, otherwise single-process memory
	redisClient, err := db.NewRedisClient(cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}
	sweepInterval := helpers.ParseDuration(cfg.RateLimit.SweepInterval, 5*time.Minute)
	var counterStore ratelimit.Store
	if redisClient != nil {
		deps.RedisClient = redisClient
		counterStore = ratelimit.NewRedisStore(redisClient)
		lgr.Info().Str("addr", cfg.Redis.Addr).Msg("Rate limiter backed by redis")
	} else {
		deps.MemoryStore = ratelimit.NewMemoryStore(sweepInterval)
		counterStore = deps.MemoryStore
		lgr.Warn().Msg("Rate limiter backed by in-process memory, single instance only")
	}

	deps.Limiter = ratelimit.NewLimiter(counterStore, deps.Repos.BlockRepository)

	deps.JWTService = pkgAuth.NewJWTService(pkgAuth.JWTConfig{
		SecretKey:   cfg.JWT.Secret,
		TokenExp:    helpers.ParseDuration(cfg.JWT.TokenExpiration, 12*time.Hour),
		TokenIssuer: cfg.JWT.Issuer,
	})

	notifier := notify.NewService(notify.Config{
		SMTPHost:      cfg.Notify.SMTPHost,
		SMTPPort:      cfg.Notify.SMTPPort,
		SMTPUsername:  cfg.Notify.SMTPUsername,
		SMTPPassword:  cfg.Notify.SMTPPassword,
		FromName:      cfg.Notify.FromName,
		FromEmail:     cfg.Notify.FromEmail,
		SMSSenderID:   cfg.Notify.SMSSenderID,
		SMSWebhookURL: cfg.Notify.SMSWebhookURL,
	}, lgr)

	deps.OTPService = appServices.NewOTPService(
		deps.Repos.OTPRepository,
		deps.Repos.AuditRepository,
		deps.Limiter,
		notifier,
		helpers.ParseDuration(cfg.OTP.Expiry, 5*time.Minute),
		cfg.OTP.MaxAttempts,
		lgr,
	)

	deps.ContextService = appServices.NewSchoolContextService(
		deps.Repos.UserRepository,
		deps.Repos.StudentRepository,
		lgr,
	)

	deps.AuthService = appServices.NewAuthService(
		deps.Repos.UserRepository,
		deps.Repos.SchoolRepository,
		deps.Repos.SessionRepository,
		deps.Repos.AuditRepository,
		deps.ContextService,
		deps.OTPService,
		deps.Limiter,
		deps.JWTService,
		lgr,
	)

	deps.AdminService = appServices.NewAdminService(
		deps.Repos.AuditRepository,
		deps.Limiter,
		lgr,
	)

	deps.AuthMiddleware = appMiddleware.NewAuthMiddleware(deps.JWTService, deps.Repos.SessionRepository)

	deps.AuthController = appControllers.NewAuthController(deps.AuthService, deps.OTPService, lgr)
	deps.AdminController = appControllers.NewAdminController(deps.AdminService, lgr)

	return deps, nil
}

// SetupRouter configures the Gin engine with middleware and routes.
func SetupRouter(cfg *config.Config, deps *Dependencies, lgr zerolog.Logger) *gin.Engine {
	if strings.ToLower(cfg.Server.Mode) == "production" {
		gin.SetMode(gin.ReleaseMode)
		lgr.Info().Msg("Setting Gin mode to release")
	} else {
		gin.SetMode(gin.DebugMode)
		lgr.Info().Msg("Setting Gin mode to debug")
	}

	router := gin.Default()

	appRoutes.SetupRouter(router,
		deps.AuthController,
		deps.AdminController,
		deps.AuthMiddleware,
	)

	return router
}

// StartSessionSweep deletes expired sessions and stale codes on a timer.
// Returns a stop function.
func StartSessionSweep(deps *Dependencies, interval time.Duration) func() {
	ticker := time.NewTicker(interval)
	done := make(chan struct{})

	go func() {
		for {
			select {
			case <-ticker.C:
				ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
				if n, err := deps.Repos.SessionRepository.DeleteExpired(ctx); err != nil {
					deps.Logger.Error().Err(err).Msg("Session sweep failed")
				} else if n > 0 {
					deps.Logger.Debug().Int64("deleted", n).Msg("Session sweep completed")
				}
				if _, err := deps.Repos.OTPRepository.DeleteExpired(ctx, time.Now().Add(-24*time.Hour)); err != nil {
					deps.Logger.Error().Err(err).Msg("OTP sweep failed")
				}
				cancel()
			case <-done:
				ticker.Stop()
				return
			}
		}
	}()

	return func() { close(done) }
}
