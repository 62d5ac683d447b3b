// cmd/musikmatchd/main.go
package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"musikmatch/internal/common/aws"
	"musikmatch/internal/common/config"
	"musikmatch/internal/common/database"
	"musikmatch/internal/common/logger"
	"musikmatch/internal/common/observability"
	"musikmatch/internal/feed"
	"musikmatch/internal/notify"
	"musikmatch/internal/search"
	"musikmatch/internal/store"
	"musikmatch/pkg/registry"
)

// retryWithBackoff attempts to execute a function with exponential backoff
func retryWithBackoff(operation func() error, maxRetries int, initialDelay time.Duration, log *zap.Logger, operationName string) error {
	var err error
	delay := initialDelay

	for i := 0; i < maxRetries; i++ {
		err = operation()
		if err == nil {
			return nil
		}

		if i < maxRetries-1 {
			log.Warn(fmt.Sprintf("%s failed, retrying...", operationName),
				zap.Error(err),
				zap.Int("attempt", i+1),
				zap.Int("maxRetries", maxRetries),
				zap.Duration("nextRetryIn", delay),
			)
			time.Sleep(delay)
			delay *= 2
		}
	}

	return fmt.Errorf("%s failed after %d attempts: %w", operationName, maxRetries, err)
}

func main() {
	zapLog := logger.New("info", "console")
	defer zapLog.Sync()

	log := logger.NewZapAdapter(zapLog)

	zapLog.Info("Starting musikmatch daemon...")

	cfg, err := config.Load()
	if err != nil {
		zapLog.Fatal("config load failed", zap.Error(err))
	}

	obs := observability.New(cfg.App.Name, cfg.Metrics.JaegerEndpoint)
	defer obs.Shutdown()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// --- Init PostgreSQL with retry ---
	var pg *database.PostgresClient
	err = retryWithBackoff(func() error {
		var err error
		pg, err = database.NewPostgres(cfg.Database.Postgres)
		if err != nil {
			return err
		}
		return pg.Ping(ctx)
	}, 15, 2*time.Second, zapLog, "PostgreSQL connection")
	if err != nil {
		zapLog.Fatal("postgres failed after retries", zap.Error(err))
	}
	defer pg.Close()
	zapLog.Info("PostgreSQL connected successfully")

	// --- Init Redis with retry ---
	var rdb *database.RedisClient
	err = retryWithBackoff(func() error {
		var err error
		rdb, err = database.NewRedis(cfg.Database.Redis)
		if err != nil {
			return err
		}
		return rdb.Ping(ctx)
	}, 10, 2*time.Second, zapLog, "Redis connection")
	if err != nil {
		zapLog.Fatal("redis failed after retries", zap.Error(err))
	}
	defer rdb.Close()
	zapLog.Info("Redis connected successfully")

	// --- Feed schema registry ---
	reg := registry.Default()
	if path := os.Getenv("MUSIKMATCH_REGISTRY"); path != "" {
		reg, err = registry.LoadRegistry(path)
		if err != nil {
			zapLog.Fatal("registry load failed", zap.Error(err))
		}
	}
	validator, err := feed.NewValidator(reg)
	if err != nil {
		zapLog.Fatal("schema compile failed", zap.Error(err))
	}

	source := feed.NewRedis(rdb.GetClient(), cfg.Feed.ChannelPrefix, validator, log)

	// --- Realtime bridge: Postgres NOTIFY -> Redis pub/sub ---
	bridge := feed.NewBridge(
		cfg.Database.Postgres.GetDSN(),
		cfg.Feed.PgChannel,
		config.GetDuration(cfg.Feed.MinReconnect),
		config.GetDuration(cfg.Feed.MaxReconnect),
		source,
		log,
	)
	go func() {
		if err := bridge.Run(ctx); err != nil && ctx.Err() == nil {
			zapLog.Error("realtime bridge stopped", zap.Error(err))
			cancel()
		}
	}()

	// --- Decision notifications, driven by application status changes ---
	if cfg.Notifications.Email.Enabled || cfg.Notifications.SMS.Enabled {
		var emailSender notify.EmailSender
		var smsSender notify.SMSSender

		if cfg.Notifications.Email.Enabled {
			sesClient, err := aws.NewSESClient(ctx, cfg.Notifications.AWS.Region)
			if err != nil {
				zapLog.Fatal("ses client init failed", zap.Error(err))
			}
			emailSender = sesClient
		}
		if cfg.Notifications.SMS.Enabled {
			snsClient, err := aws.NewSNSClient(ctx, cfg.Notifications.AWS.Region)
			if err != nil {
				zapLog.Fatal("sns client init failed", zap.Error(err))
			}
			smsSender = snsClient
		}

		st := store.NewPostgres(pg.GetDB(), rdb.GetClient(), log)
		notifier := notify.NewNotifier(cfg.Notifications, emailSender, smsSender, log)
		watcher := notify.NewDecisionWatcher(source, st, notifier, log)
		go watcher.Run(ctx)
		zapLog.Info("decision notifications enabled",
			zap.Bool("email", cfg.Notifications.Email.Enabled),
			zap.Bool("sms", cfg.Notifications.SMS.Enabled),
		)
	}

	// --- Gig search index, kept in sync from the feed ---
	if cfg.Search.Enabled {
		var esClient *database.ElasticsearchClient
		err = retryWithBackoff(func() error {
			var err error
			esClient, err = database.NewElasticsearch(cfg.Database.Elasticsearch)
			if err != nil {
				return err
			}
			return esClient.Ping()
		}, 15, 2*time.Second, zapLog, "Elasticsearch connection")
		if err != nil {
			zapLog.Fatal("elasticsearch failed after retries", zap.Error(err))
		}
		zapLog.Info("Elasticsearch connected successfully")

		gigIndex := search.NewGigIndex(
			esClient.GetClient(),
			cfg.Database.Elasticsearch.GigIndex,
			config.GetDuration(cfg.Search.Timeout),
			log,
		)
		indexer := search.NewIndexer(gigIndex, source, log)
		go indexer.Run(ctx)
	}

	// --- Metrics endpoint ---
	go func() {
		http.Handle("/metrics", promhttp.Handler())
		zapLog.Info("metrics endpoint listening", zap.String("address", cfg.Metrics.Address))
		if err := http.ListenAndServe(cfg.Metrics.Address, nil); err != nil {
			zapLog.Error("metrics endpoint failed", zap.Error(err))
		}
	}()

	// --- Graceful Shutdown ---
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	select {
	case <-sigCh:
		zapLog.Info("Shutdown signal received, stopping...")
	case <-ctx.Done():
	}
	cancel()

	// Give in-flight feed relays a moment to drain.
	time.Sleep(500 * time.Millisecond)
	zapLog.Info("musikmatch daemon stopped")
}
