// Package app wires the application together and runs it until the
// context is cancelled.
package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"

	"github.com/go-chi/httplog/v2"
	"golang.org/x/sync/errgroup"

	api "github.com/vadimbarashkov/shortify/internal/api/http"
	"github.com/vadimbarashkov/shortify/internal/cache/redis"
	"github.com/vadimbarashkov/shortify/internal/clicksync"
	"github.com/vadimbarashkov/shortify/internal/config"
	"github.com/vadimbarashkov/shortify/internal/database/mongo"
	"github.com/vadimbarashkov/shortify/internal/service"
)

// Run starts the application and blocks until ctx is cancelled or a
// fatal error occurs. The HTTP server and the click syncer run
// concurrently; cancelling ctx shuts both down.
func Run(ctx context.Context, cfg *config.Config) error {
	const op = "app.Run"

	logger := newLogger(cfg.Env)

	client, err := mongo.New(ctx, cfg.Mongo.URI)
	if err != nil {
		return fmt.Errorf("%s: failed to connect to mongodb: %w", op, err)
	}
	defer func() {
		if err := client.Disconnect(context.Background()); err != nil {
			logger.Error("failed to disconnect from mongodb", slog.Any("err", err))
		}
	}()

	urlRepo := mongo.NewURLRepository(client, cfg.Mongo.DB)
	if err := urlRepo.EnsureIndexes(ctx); err != nil {
		return fmt.Errorf("%s: failed to ensure indexes: %w", op, err)
	}

	urlCache, err := redis.New(ctx, cfg.Redis.URL, cfg.Redis.CacheTTL)
	if err != nil {
		return fmt.Errorf("%s: failed to connect to redis: %w", op, err)
	}
	defer func() {
		if err := urlCache.Close(); err != nil {
			logger.Error("failed to close redis client", slog.Any("err", err))
		}
	}()

	syncer := clicksync.NewSyncer(urlRepo, urlCache, cfg.Redis.SyncInterval, logger.Logger)
	urlSvc := service.NewURLService(urlRepo, urlCache, syncer, cfg.ShortCodeLength, logger.Logger)

	server := &http.Server{
		Addr:           cfg.HTTPServer.Addr(),
		Handler:        api.NewRouter(logger, urlSvc, cfg.BaseURL),
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
		return syncer.Run(ctx)
	})

	g.Go(func() error {
		logger.Info("starting server", slog.String("addr", server.Addr))

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

func newLogger(env string) *httplog.Logger {
	opts := httplog.Options{
		LogLevel: slog.LevelInfo,
		Concise:  true,
	}

	switch env {
	case config.EnvProd:
		opts.JSON = true
		opts.Concise = false
	case config.EnvDev:
		opts.LogLevel = slog.LevelDebug
	}

	return httplog.NewLogger("shortify", opts)
}
