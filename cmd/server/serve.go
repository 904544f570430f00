package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"
	"github.com/spf13/cobra"

	"github.com/iliyamo/table-reservation/internal/cache"
	"github.com/iliyamo/table-reservation/internal/config"
	"github.com/iliyamo/table-reservation/internal/database"
	"github.com/iliyamo/table-reservation/internal/handler"
	"github.com/iliyamo/table-reservation/internal/middleware"
	"github.com/iliyamo/table-reservation/internal/queue"
	"github.com/iliyamo/table-reservation/internal/repository"
	"github.com/iliyamo/table-reservation/internal/router"
	"github.com/iliyamo/table-reservation/internal/service"
)

func newServeCmd() *cobra.Command {
	var migrateUp bool

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the reservation HTTP API",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load()
			if err != nil {
				return err
			}
			logger := newLogger(cfg.Env, cfg.LogLevel)

			ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			db, err := database.Open(ctx, cfg.DBUser, cfg.DBPass, cfg.DBHost, cfg.DBPort, cfg.DBName)
			if err != nil {
				return err
			}
			defer db.Close()

			if migrateUp {
				applied, err := database.Migrate(ctx, db)
				if err != nil {
					return err
				}
				logger.Info().Strs("versions", applied).Msg("migrations applied")
			}

			rdb := config.NewRedisClient(ctx)
			if rdb != nil {
				defer rdb.Close()
			}

			opts := []service.Option{
				service.WithUsers(repository.NewUserRepo(db)),
				service.WithLogger(logger.With().Str("component", "reservations").Logger()),
			}

			cacheCfg := config.LoadCacheConfig()
			if cacheCfg.Enabled && rdb != nil {
				opts = append(opts, service.WithCache(cache.NewRedis(rdb, cacheCfg.Prefix), cacheCfg.TTL))
			} else {
				logger.Warn().Msg("reservation cache disabled")
			}

			queueCfg := config.LoadQueueConfig()
			if queueCfg.Enabled {
				pub := queue.NewPublisher(queueCfg.URL, queueCfg.Exchange, logger)
				defer pub.Close()
				opts = append(opts, service.WithEvents(pub))
			}

			svc := service.NewReservationService(repository.NewStore(db), opts...)

			e := echo.New()
			e.HideBanner = true
			e.HidePort = true
			e.Use(echomw.Recover())
			e.Use(middleware.RequestLogger(logger))

			router.RegisterRoutes(e, db)
			router.RegisterAuth(e, handler.NewAuthHandler(cfg, repository.NewUserRepo(db), repository.NewTokenRepo(db)), cfg.JWTSecret)
			router.RegisterReservations(e, handler.NewReservationHandler(svc), cfg.JWTSecret,
				middleware.NewTokenBucket(config.LoadRateLimitConfig(), rdb, logger))
			router.RegisterCache(e, handler.NewCacheHandler(svc.Cache()), cfg.JWTSecret)

			errCh := make(chan error, 1)
			go func() {
				addr := ":" + cfg.Port
				logger.Info().Str("addr", addr).Str("env", cfg.Env).Msg("listening")
				if err := e.Start(addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
					errCh <- err
				}
				close(errCh)
			}()

			select {
			case err := <-errCh:
				return err
			case <-ctx.Done():
			}

			logger.Info().Msg("shutting down")
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()
			return e.Shutdown(shutdownCtx)
		},
	}

	cmd.Flags().BoolVar(&migrateUp, "migrate", true, "apply pending database migrations before serving")
	return cmd
}
