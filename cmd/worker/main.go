package main

import (
	"context"
	"log"
	"os/signal"
	"syscall"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"ReceiptPoll/internal/apperr"
	"ReceiptPoll/internal/catalog"
	"ReceiptPoll/internal/config"
	"ReceiptPoll/internal/db"
	"ReceiptPoll/internal/logger"
	"ReceiptPoll/internal/notify"
	"ReceiptPoll/internal/receipt"
	"ReceiptPoll/internal/store"
	"ReceiptPoll/internal/upstream"
	"ReceiptPoll/internal/worker"
)

func main() {
	cfg, err := config.Load("")
	if err != nil {
		log.Fatalf("config load failed: %v", err)
	}
	if cfg.DB.DSN == "" {
		log.Fatal("db.dsn is required for the worker")
	}

	lg, err := logger.New(cfg.Log.Env)
	if err != nil {
		log.Fatalf("logger init failed: %v", err)
	}
	defer func() { _ = lg.Sync() }()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	pool, err := db.Connect(ctx, cfg.DB.DSN)
	if err != nil {
		lg.Fatal("db connect failed", zap.Error(err))
	}
	defer pool.Close()

	api, err := upstream.NewMultiClient(cfg.Upstream.Endpoints, cfg.Upstream.FailoverThreshold, cfg.UpstreamTimeout())
	if err != nil {
		lg.Fatal("upstream init failed", zap.Error(err))
	}

	var rdb *redis.Client
	if cfg.Redis.Addr != "" {
		rdb, err = catalog.NewRedis(ctx, cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB)
		if err != nil {
			lg.Fatal("redis connect failed", zap.Error(err))
		}
		defer rdb.Close()
	}

	publisher, err := notify.New(cfg.Kafka.Brokers, cfg.Kafka.Topic, lg)
	if err != nil {
		lg.Fatal("kafka producer init failed", zap.Error(err))
	}
	defer publisher.Close()

	svc := receipt.NewService(api, catalog.New(api, rdb, cfg.CatalogTTL(), lg), apperr.NewLogSink(lg), lg)

	w := &worker.Worker{
		Store:     store.New(pool),
		Resolver:  svc,
		Publisher: publisher,
		Log:       lg,
		Interval:  cfg.WorkerInterval(),
		Batch:     cfg.Worker.Batch,
	}

	lg.Info("worker started",
		zap.String("upstream", api.BaseURL()),
		zap.Duration("interval", w.Interval),
		zap.Int("batch", w.Batch),
		zap.Strings("kafka_brokers", cfg.Kafka.Brokers),
	)
	w.Run(ctx)
	lg.Info("worker stopped")
}
