package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/hmprotos/dentalverify/internal/config"
	"github.com/hmprotos/dentalverify/internal/domain/verification"
	"github.com/hmprotos/dentalverify/internal/platform/auth"
	"github.com/hmprotos/dentalverify/internal/platform/db"
	"github.com/hmprotos/dentalverify/internal/platform/middleware"
	"github.com/hmprotos/dentalverify/internal/platform/pverify"
)

const version = "0.1.0"

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:          "dentalverify",
		Short:        "Dental eligibility verification API",
		SilenceUsage: true,
	}

	rootCmd.AddCommand(serveCmd())
	rootCmd.AddCommand(migrateCmd())
	rootCmd.AddCommand(officeCmd())
	rootCmd.AddCommand(flattenCmd())
	rootCmd.AddCommand(projectCmd())
	rootCmd.AddCommand(exportCmd())
	return rootCmd
}

func newLogger(cfg *config.Config) zerolog.Logger {
	if cfg != nil && cfg.IsDev() {
		return zerolog.New(zerolog.ConsoleWriter{Out: os.Stdout}).With().Timestamp().Logger()
	}
	return zerolog.New(os.Stdout).With().Timestamp().Logger()
}

func serveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Start the eligibility API server",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return runServer(ctx)
		},
	}
}

// openStore opens the configured response store. The pool is nil for the
// embedded store.
func openStore(ctx context.Context, cfg *config.Config) (verification.Repository, *pgxpool.Pool, func(), error) {
	switch cfg.StoreDriver {
	case config.StoreLevelDB:
		ldb, err := verification.OpenLevelDB(cfg.LevelDBPath)
		if err != nil {
			return nil, nil, nil, err
		}
		return verification.NewRepoLevelDB(ldb, cfg.DefaultOffice), nil, func() { _ = ldb.Close() }, nil
	default:
		pool, err := db.NewPool(ctx, cfg.DatabaseURL, cfg.DBMaxConns, cfg.DBMinConns)
		if err != nil {
			return nil, nil, nil, err
		}
		return verification.NewRepoPG(pool, cfg.DefaultOffice), pool, pool.Close, nil
	}
}

// newChecker returns the payer API client, or nil when no credentials are
// configured.
func newChecker(cfg *config.Config) verification.EligibilityChecker {
	if !cfg.UpstreamConfigured() {
		return nil
	}
	return pverify.NewClient(pverify.Config{
		BaseURL:      cfg.PVerifyBaseURL,
		ClientID:     cfg.PVerifyClientID,
		ClientSecret: cfg.PVerifyClientSecret,
		Timeout:      cfg.PVerifyTimeout,
	})
}

func newServer(cfg *config.Config, logger zerolog.Logger, store verification.Repository, pool *pgxpool.Pool, checker verification.EligibilityChecker) *echo.Echo {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true

	e.Use(
		middleware.Recovery(logger),
		middleware.RequestID(),
		middleware.Logger(logger),
		middleware.SecurityHeaders(),
		middleware.BodyLimit("1M", "10M"),
	)
	e.Use(echomw.CORSWithConfig(echomw.CORSConfig{
		AllowOrigins: cfg.CORSOrigins,
		AllowMethods: []string{http.MethodGet, http.MethodPost, http.MethodPut},
		AllowHeaders: []string{"Authorization", "Content-Type", "X-Request-ID", "X-Office-ID"},
	}))

	if cfg.AuthEnabled() {
		var signingKey []byte
		if cfg.AuthSigningKey != "" {
			signingKey = []byte(cfg.AuthSigningKey)
		}
		e.Use(auth.JWTMiddleware(auth.JWTConfig{
			Issuer:     cfg.AuthIssuer,
			Audience:   cfg.AuthAudience,
			JWKSURL:    cfg.AuthJWKSURL,
			SigningKey: signingKey,
			Skipper:    auth.AuthSkipper,
		}))
	} else {
		logger.Warn().Msg("authentication disabled, every request acts as admin")
		e.Use(auth.DevAuthMiddleware())
	}

	e.GET("/health", func(c echo.Context) error {
		return c.JSON(http.StatusOK, map[string]string{"status": "ok", "version": version})
	})
	e.GET("/health/db", db.HealthHandler(store, pool))

	apiV1 := e.Group("/api/v1")

	limits := middleware.DefaultRateLimitConfig()
	if cfg.RateLimitRPS > 0 {
		limits = middleware.RateLimitConfig{RequestsPerSecond: cfg.RateLimitRPS, BurstSize: max(cfg.RateLimitBurst, 1)}
	}
	apiV1.Use(middleware.RateLimit(limits))
	apiV1.Use(db.OfficeMiddleware(pool, cfg.DefaultOffice))

	svc := verification.NewService(store, checker, logger)
	verification.NewHandler(svc).RegisterRoutes(apiV1)

	return e
}

func runServer(ctx context.Context) error {
	cfg, err := config.Load()
	logger := newLogger(cfg)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return err
	}

	store, pool, closeStore, err := openStore(ctx, cfg)
	if err != nil {
		return fmt.Errorf("open %s store: %w", cfg.StoreDriver, err)
	}
	defer closeStore()
	logger.Info().Str("driver", cfg.StoreDriver).Msg("store opened")

	checker := newChecker(cfg)
	if checker == nil {
		logger.Warn().Msg("PVERIFY_CLIENT_ID not set, only cached eligibility checks are served")
	}
	e := newServer(cfg, logger, store, pool, checker)

	errc := make(chan error, 1)
	go func() {
		logger.Info().Str("addr", ":"+cfg.Port).Str("version", version).Msg("listening")
		errc <- e.Start(":" + cfg.Port)
	}()

	select {
	case err := <-errc:
		if !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	case <-ctx.Done():
	}

	logger.Info().Msg("draining connections")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := e.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	logger.Info().Msg("server stopped")
	return nil
}
