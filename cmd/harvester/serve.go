package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	redis_adapter "github.com/user/feed-harvester/internal/adapter/redis"
	"github.com/user/feed-harvester/internal/delivery/http/handler"
	"github.com/user/feed-harvester/internal/delivery/http/router"
	"github.com/user/feed-harvester/internal/usecase"
)

func newServeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Accept harvest requests over HTTP and run them from a Redis queue",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}
			if cfg.RedisAddr == "" {
				return errors.New("REDIS_ADDR is required for serve")
			}

			ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			a, err := buildApp(ctx, cfg)
			if err != nil {
				return err
			}
			defer a.Close()

			scheduler := usecase.NewScheduler(redis_adapter.NewQueueRepo(a.redis), a.runner, cfg.PostsCount)

			var wg sync.WaitGroup
			wg.Add(1)
			go func() {
				defer wg.Done()
				scheduler.Work(ctx, cfg.PollIntervalDuration())
			}()

			server := &http.Server{
				Addr:         ":" + cfg.ServerPort,
				Handler:      router.New(handler.NewHandler(scheduler)),
				ReadTimeout:  5 * time.Second,
				WriteTimeout: 10 * time.Second,
				IdleTimeout:  120 * time.Second,
			}

			serveErr := make(chan error, 1)
			go func() {
				slog.Info("Starting server", "port", cfg.ServerPort)
				if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
					serveErr <- err
				}
				close(serveErr)
			}()

			select {
			case <-ctx.Done():
			case err := <-serveErr:
				stop()
				wg.Wait()
				return err
			}

			slog.Info("Shutting down server")
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()
			if err := server.Shutdown(shutdownCtx); err != nil {
				slog.Error("Server forced to shutdown", "error", err)
			}
			wg.Wait()
			slog.Info("Server exiting")
			return nil
		},
	}
}
