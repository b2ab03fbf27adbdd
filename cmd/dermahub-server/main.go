package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/dermahub/dermahub/internal/config"
	"github.com/dermahub/dermahub/internal/domain/account"
	"github.com/dermahub/dermahub/internal/domain/care"
	"github.com/dermahub/dermahub/internal/domain/connection"
	"github.com/dermahub/dermahub/internal/domain/doctor"
	"github.com/dermahub/dermahub/internal/domain/post"
	"github.com/dermahub/dermahub/internal/platform/auth"
	"github.com/dermahub/dermahub/internal/platform/blobstore"
	"github.com/dermahub/dermahub/internal/platform/db"
	"github.com/dermahub/dermahub/internal/platform/middleware"
	"github.com/dermahub/dermahub/internal/platform/routes"
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "dermahub-server",
		Short: "DermaHub API Server",
	}

	rootCmd.AddCommand(serveCmd())
	rootCmd.AddCommand(migrateCmd())

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func serveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Start the DermaHub API server",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServer()
		},
	}
}

func migrateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Run database migrations",
	}

	upCmd := &cobra.Command{
		Use:   "up",
		Short: "Apply pending migrations",
		RunE: func(cmd *cobra.Command, args []string) error {
			dir, _ := cmd.Flags().GetString("dir")

			cfg, err := config.Load()
			if err != nil {
				return err
			}

			ctx := context.Background()
			pool, err := db.NewPool(ctx, cfg.DatabaseURL, cfg.DBMaxConns, cfg.DBMinConns)
			if err != nil {
				return err
			}
			defer pool.Close()

			migrator := db.NewMigrator(pool, dir)
			count, err := migrator.Up(ctx)
			if err != nil {
				return fmt.Errorf("migration failed: %w", err)
			}

			fmt.Printf("Applied %d migration(s) successfully.\n", count)
			return nil
		},
	}
	upCmd.Flags().String("dir", "./migrations", "Path to migrations directory")
	cmd.AddCommand(upCmd)

	statusCmd := &cobra.Command{
		Use:   "status",
		Short: "Show migration status",
		RunE: func(cmd *cobra.Command, args []string) error {
			dir, _ := cmd.Flags().GetString("dir")

			cfg, err := config.Load()
			if err != nil {
				return err
			}

			ctx := context.Background()
			pool, err := db.NewPool(ctx, cfg.DatabaseURL, cfg.DBMaxConns, cfg.DBMinConns)
			if err != nil {
				return err
			}
			defer pool.Close()

			migrator := db.NewMigrator(pool, dir)
			statuses, err := migrator.Status(ctx)
			if err != nil {
				return fmt.Errorf("failed to get migration status: %w", err)
			}

			fmt.Printf("%-10s %-40s %-10s %s\n", "VERSION", "NAME", "STATUS", "APPLIED AT")
			for _, s := range statuses {
				status := "pending"
				appliedAt := ""
				if s.Applied {
					status = "applied"
					if s.AppliedAt != nil {
						appliedAt = s.AppliedAt.Format("2006-01-02 15:04:05")
					}
				}
				fmt.Printf("%-10d %-40s %-10s %s\n", s.Version, s.Name, status, appliedAt)
			}
			return nil
		},
	}
	statusCmd.Flags().String("dir", "./migrations", "Path to migrations directory")
	cmd.AddCommand(statusCmd)

	return cmd
}

func runServer() error {
	// Logger
	logger := zerolog.New(os.Stdout).With().Timestamp().Logger()
	if os.Getenv("ENV") == "development" {
		logger = zerolog.New(zerolog.ConsoleWriter{Out: os.Stdout}).With().Timestamp().Logger()
	}

	// Config
	cfg, err := config.Load()
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to load config")
	}
	if err := cfg.Validate(); err != nil {
		logger.Fatal().Err(err).Msg("invalid configuration")
	}

	// Database
	ctx := context.Background()
	pool, err := db.NewPool(ctx, cfg.DatabaseURL, cfg.DBMaxConns, cfg.DBMinConns)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to connect to database")
	}
	defer pool.Close()
	logger.Info().Msg("connected to database")

	signingKey := []byte(cfg.AuthSigningKey)
	tokenIssuer := auth.NewTokenIssuer(signingKey, time.Duration(cfg.TokenTTLHours)*time.Hour)

	// Navigation tree must have no dead leaves before serving.
	navTree := routes.DefaultTree()
	if err := navTree.Validate(); err != nil {
		logger.Fatal().Err(err).Msg("invalid navigation tree")
	}

	// Echo server
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true

	// Global middleware
	e.Use(middleware.Recovery(logger))
	e.Use(middleware.RequestID())
	e.Use(middleware.Logger(logger))
	e.Use(echomw.CORSWithConfig(echomw.CORSConfig{
		AllowOrigins: cfg.CORSOrigins,
		AllowMethods: []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodPatch, http.MethodDelete},
		AllowHeaders: []string{"Authorization", "Content-Type", "X-Request-ID"},
	}))

	rateLimitCfg := middleware.RateLimitConfig{
		RequestsPerSecond: cfg.RateLimitRPS,
		BurstSize:         cfg.RateLimitBurst,
	}
	if rateLimitCfg.RequestsPerSecond <= 0 {
		rateLimitCfg = middleware.DefaultRateLimitConfig()
	}

	// Health check
	e.GET("/health", db.HealthHandler(pool))

	// Public routes: sign-up and sign-in.
	public := e.Group("/api")
	public.Use(middleware.RateLimit(rateLimitCfg))

	// Authenticated API routes.
	api := e.Group("/api")
	api.Use(middleware.RateLimit(rateLimitCfg))
	api.Use(auth.Middleware(signingKey))

	// Navigation probe: anonymous requests pass through to the guard so it
	// can answer sign_in instead of a blanket 401.
	app := e.Group("/app")
	app.Use(auth.OptionalMiddleware(signingKey))
	app.Use(routes.Middleware(navTree, "/app"))
	app.Any("/*", func(c echo.Context) error {
		return c.NoContent(http.StatusNoContent)
	})

	// -- Domain wiring --

	// Account domain
	userRepo := account.NewUserRepoPG(pool)
	friendRepo := account.NewFriendRepoPG(pool)
	accountSvc := account.NewService(userRepo, friendRepo, tokenIssuer)
	accountHandler := account.NewHandler(accountSvc)
	accountHandler.RegisterRoutes(public, api)

	// Doctor domain
	profileRepo := doctor.NewProfileRepoPG(pool)
	institutionRepo := doctor.NewInstitutionRepoPG(pool)
	linkRepo := doctor.NewLinkRepoPG(pool)
	doctorSvc := doctor.NewService(profileRepo, institutionRepo, linkRepo, accountSvc)
	doctorHandler := doctor.NewHandler(doctorSvc)
	doctorHandler.RegisterRoutes(api)

	// Connection domain: the request state machine for friendships,
	// doctor connections and doctor promotions.
	requestRepo := connection.NewRequestRepoPG(pool)
	connectionSvc := connection.NewService(
		requestRepo,
		friendRepo,
		doctorSvc,
		doctorSvc,
		accountSvc,
		connection.PgxTxRunner(pool),
	)
	connectionHandler := connection.NewHandler(connectionSvc)
	connectionHandler.RegisterRoutes(api)

	// Care domain
	treatmentRepo := care.NewTreatmentRepoPG(pool)
	questionRepo := care.NewQuestionRepoPG(pool)
	careSvc := care.NewService(treatmentRepo, questionRepo, doctorSvc)
	careHandler := care.NewHandler(careSvc)
	careHandler.RegisterRoutes(api)

	// Post domain
	postRepo := post.NewPostRepoPG(pool)
	feedbackRepo := post.NewFeedbackRepoPG(pool)
	postSvc := post.NewService(postRepo, feedbackRepo)
	postHandler := post.NewHandler(postSvc)
	postHandler.RegisterRoutes(api)

	// Blob storage for skin photos and avatars
	blobStore := blobstore.NewInMemoryBlobStore()
	blobHandler := blobstore.NewBlobHandler(blobStore)
	blobHandler.RegisterRoutes(api)

	// Navigation decision endpoint for clients rendering the route tree.
	routesHandler := routes.NewHandler(navTree)
	routesHandler.RegisterRoutes(api)

	// Start server with graceful shutdown
	go func() {
		addr := ":" + cfg.Port
		logger.Info().Str("addr", addr).Str("env", cfg.Env).Msg("starting server")
		if err := e.Start(addr); err != nil && err != http.ErrServerClosed {
			logger.Fatal().Err(err).Msg("server error")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logger.Info().Msg("shutting down")

	shutdownCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	if err := e.Shutdown(shutdownCtx); err != nil {
		logger.Error().Err(err).Msg("forced shutdown")
		return err
	}
	logger.Info().Msg("server stopped")
	return nil
}
