package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"

	"github.com/go-chi/httplog/v2"
	"github.com/vadimbarashkov/shortly/internal/auth"
	"github.com/vadimbarashkov/shortly/internal/cache"
	"github.com/vadimbarashkov/shortly/internal/config"
	"github.com/vadimbarashkov/shortly/internal/database/postgres"
	"github.com/vadimbarashkov/shortly/internal/ratelimit"
	"github.com/vadimbarashkov/shortly/internal/service"
	pkgpostgres "github.com/vadimbarashkov/shortly/pkg/postgres"
	"golang.org/x/sync/errgroup"

	api "github.com/vadimbarashkov/shortly/internal/api/http"
)

// Run wires the application together and serves HTTP until ctx is canceled.
func Run(ctx context.Context, cfg *config.Config) error {
	const op = "app.Run"

	db, err := pkgpostgres.New(
		ctx,
		cfg.Postgres.DSN(),
		pkgpostgres.WithConnMaxIdleTime(cfg.Postgres.ConnMaxIdleTime),
		pkgpostgres.WithConnMaxLifetime(cfg.Postgres.ConnMaxLifetime),
		pkgpostgres.WithMaxIdleConns(cfg.Postgres.MaxIdleConns),
		pkgpostgres.WithMaxOpenConns(cfg.Postgres.MaxOpenConns),
	)
	if err != nil {
		return fmt.Errorf("%s: failed to connect to database: %w", op, err)
	}
	defer db.Close()

	if err := pkgpostgres.RunMigrations("file://migrations", cfg.Postgres.DSN()); err != nil {
		return fmt.Errorf("%s: failed to run migrations: %w", op, err)
	}

	redisClient, closeRedis, err := cache.NewRedisClient(ctx, cfg.Redis.Addr(), cfg.Redis.Password, cfg.Redis.DB)
	if err != nil {
		return fmt.Errorf("%s: failed to connect to redis: %w", op, err)
	}
	defer func() {
		if err := closeRedis(); err != nil {
			slog.Error("failed to close redis client", slog.Any("error", err))
		}
	}()

	logger := httplog.NewLogger("shortly", httplog.Options{
		JSON:    cfg.Env == config.EnvProd,
		Concise: cfg.Env != config.EnvProd,
	})

	urlRepo := postgres.NewURLRepository(db)
	redirectCache := cache.NewRedirectCache(redisClient, cfg.Cache.TTL)
	urlSvc := service.NewURLService(urlRepo, redirectCache, logger.Logger, cfg.BaseURL)
	tokens := auth.NewTokenManager(cfg.JWT.Secret, cfg.JWT.TTL)

	limits := api.Limiters{
		Shorten: ratelimit.New(redisClient, logger.Logger, ratelimit.Config{
			Route:  "shorten",
			Window: cfg.RateLimit.Shorten.Window,
			Max:    cfg.RateLimit.Shorten.Max,
		}),
		Redirect: ratelimit.New(redisClient, logger.Logger, ratelimit.Config{
			Route:  "redirect",
			Window: cfg.RateLimit.Redirect.Window,
			Max:    cfg.RateLimit.Redirect.Max,
		}),
	}

	server := &http.Server{
		Addr:           cfg.HTTPServer.Addr(),
		Handler:        api.NewRouter(logger, urlSvc, tokens, limits, cfg.Env),
		ReadTimeout:    cfg.HTTPServer.ReadTimeout,
		WriteTimeout:   cfg.HTTPServer.WriteTimeout,
		IdleTimeout:    cfg.HTTPServer.IdleTimeout,
		MaxHeaderBytes: cfg.HTTPServer.MaxHeaderBytes,
		BaseContext: func(_ net.Listener) context.Context {
			return ctx
		},
	}

	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		var err error

		switch cfg.Env {
		case config.EnvProd:
			err = server.ListenAndServeTLS(cfg.HTTPServer.CertFile, cfg.HTTPServer.KeyFile)
		default:
			err = server.ListenAndServe()
		}

		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("%s: server error occurred: %w", op, err)
		}

		return nil
	})

	g.Go(func() error {
		<-ctx.Done()

		if err := server.Shutdown(context.Background()); err != nil {
			return fmt.Errorf("%s: failed to shutdown server: %w", op, err)
		}

		return nil
	})

	return g.Wait()
}
