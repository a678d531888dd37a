package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	goredis "github.com/redis/go-redis/v9"

	"github.com/user/feed-harvester/internal/adapter/chromedp_feed"
	"github.com/user/feed-harvester/internal/adapter/collector"
	"github.com/user/feed-harvester/internal/adapter/csvstore"
	"github.com/user/feed-harvester/internal/adapter/kafka"
	"github.com/user/feed-harvester/internal/adapter/postgres"
	redis_adapter "github.com/user/feed-harvester/internal/adapter/redis"
	"github.com/user/feed-harvester/internal/entity"
	"github.com/user/feed-harvester/internal/repository"
	"github.com/user/feed-harvester/internal/usecase"
	"github.com/user/feed-harvester/pkg/config"
)

// app holds the wired collaborators shared by every subcommand.
type app struct {
	cfg      *config.Config
	records  *csvstore.RecordFile
	store    repository.RecordRepository
	failed   repository.FailedForwardRepository
	uploader *usecase.Uploader
	redis    *goredis.Client
	runner   *usecase.Runner

	closers []func()
}

// buildApp connects the optional stores named in cfg. The records file is
// always used; Postgres, Redis, Kafka and the collector only when configured.
func buildApp(ctx context.Context, cfg *config.Config) (*app, error) {
	a := &app{cfg: cfg, records: csvstore.NewRecordFile(cfg.RecordsPath())}
	sources := []repository.IDSource{a.records}
	sinks := []repository.RecordSink{a.records}
	var seen repository.SeenRepository

	if cfg.PostgresURL != "" {
		pool, err := postgres.Connect(ctx, cfg.PostgresURL)
		if err != nil {
			a.Close()
			return nil, err
		}
		a.closers = append(a.closers, pool.Close)
		recordRepo := postgres.NewRecordRepo(pool)
		a.store = recordRepo
		sources = append(sources, recordRepo)
		sinks = append(sinks, recordRepo)
		a.failed = postgres.NewFailedForwardRepo(pool)
		slog.Info("PostgreSQL connection pool established")
	}

	if cfg.RedisAddr != "" {
		client, err := redis_adapter.Connect(ctx, cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB)
		if err != nil {
			a.Close()
			return nil, err
		}
		a.closers = append(a.closers, func() { _ = client.Close() })
		a.redis = client
		seen = redis_adapter.NewSeenRepo(client)
		slog.Info("Redis connection established")
	}

	if brokers := cfg.KafkaBrokerList(); len(brokers) > 0 {
		publisher := kafka.NewRecordPublisher(brokers, cfg.KafkaTopic)
		a.closers = append(a.closers, func() { _ = publisher.Close() })
		sinks = append(sinks, publisher)
		slog.Info("Publishing records to Kafka", "topic", cfg.KafkaTopic)
	}

	if cfg.ServerURL != "" {
		a.uploader = usecase.NewUploader(
			collector.NewClient(cfg.ServerURL, cfg.TimeoutDuration()),
			a.failed,
			cfg.MaxConcurrency,
		)
	} else {
		slog.Warn("SERVER_URL is not set; records will not be forwarded")
	}

	feeds, err := feedFactory(cfg)
	if err != nil {
		a.Close()
		return nil, err
	}

	a.runner = usecase.NewRunner(usecase.RunnerDeps{
		Feeds:    feeds,
		Sources:  sources,
		Sinks:    sinks,
		Seen:     seen,
		Uploader: a.uploader,
	}, harvestDefaults(cfg))
	return a, nil
}

// Close releases connections in reverse order of creation.
func (a *app) Close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		a.closers[i]()
	}
	a.closers = nil
}

func feedFactory(cfg *config.Config) (usecase.FeedFactory, error) {
	opts := chromedp_feed.Options{
		BaseURL:  cfg.BaseURL,
		Variant:  feedVariant(cfg),
		Headless: cfg.Headless,
		Rotator:  chromedp_feed.NewRotator(cfg.Proxies()),
	}
	if _, err := chromedp_feed.NewFeed(opts); err != nil {
		return nil, err
	}
	return func() repository.FeedRepository {
		feed, _ := chromedp_feed.NewFeed(opts)
		return feed
	}, nil
}

func feedVariant(cfg *config.Config) entity.FeedVariant {
	layout := entity.Layout(cfg.Layout)
	switch layout {
	case entity.LayoutNew, entity.LayoutOld:
	default:
		layout = entity.LayoutAuto
	}
	return entity.FeedVariant{IsGroup: cfg.IsGroup, Layout: layout}
}

func harvestDefaults(cfg *config.Config) usecase.HarvestOptions {
	opts := usecase.HarvestOptions{
		Variant:     feedVariant(cfg),
		TargetCount: cfg.PostsCount,
		Timeout:     cfg.TimeoutDuration(),
		HardTimeout: cfg.HardTimeoutDuration(),
		Cooldown:    cfg.BackoffCooldownDuration(),
		MaxBackoffs: cfg.MaxBackoffs,
		EnrichPause: cfg.EnrichPauseDuration(),
	}
	if cfg.Username != "" {
		opts.Credentials = &entity.Credentials{Username: cfg.Username, Password: cfg.Password}
	}
	return opts
}

// startMetricsServer exposes /metrics on addr until the returned stop is called.
func startMetricsServer(addr string) (stop func()) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	server := &http.Server{Addr: addr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}

	go func() {
		slog.Info("Serving metrics", "addr", addr)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("Metrics server failed", "addr", addr, "error", err)
		}
	}()

	return func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := server.Shutdown(ctx); err != nil {
			slog.Warn("Metrics server shutdown failed", "error", err)
		}
	}
}
