package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"ReceiptPoll/internal/apperr"
	"ReceiptPoll/internal/catalog"
	"ReceiptPoll/internal/config"
	"ReceiptPoll/internal/db"
	internalhttp "ReceiptPoll/internal/http"
	"ReceiptPoll/internal/logger"
	"ReceiptPoll/internal/receipt"
	"ReceiptPoll/internal/store"
	"ReceiptPoll/internal/upstream"
)

func main() {
	cfg, err := config.Load("")
	if err != nil {
		log.Fatalf("config load failed: %v", err)
	}

	lg, err := logger.New(cfg.Log.Env)
	if err != nil {
		log.Fatalf("logger init failed: %v", err)
	}
	defer func() { _ = lg.Sync() }()

	ctx := context.Background()

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
	cache := catalog.New(api, rdb, cfg.CatalogTTL(), lg)

	svc := receipt.NewService(api, cache, apperr.NewLogSink(lg), lg)

	var watches internalhttp.WatchStore
	if cfg.DB.DSN != "" {
		pool, err := db.Connect(ctx, cfg.DB.DSN)
		if err != nil {
			lg.Fatal("db connect failed", zap.Error(err))
		}
		defer pool.Close()
		watches = store.New(pool)
	}

	h := internalhttp.NewHandler(svc, watches, lg, cfg.PollInterval())
	if rdb != nil {
		h.Catalog = cache
	}
	h.OnSessionStart = func(ctx context.Context, orderID string) error {
		lg.Debug("receipt session starting", zap.String("order_id", orderID))
		return nil
	}
	srv := internalhttp.NewServer(h)

	httpServer := &http.Server{
		Addr:              cfg.Server.Addr,
		Handler:           srv.Router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		lg.Info("api listening",
			zap.String("addr", cfg.Server.Addr),
			zap.String("upstream", api.BaseURL()),
			zap.Bool("catalog_cache", rdb != nil),
			zap.Bool("watch_store", watches != nil),
		)
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			lg.Fatal("server error", zap.Error(err))
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	<-stop

	ctxShutdown, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	_ = httpServer.Shutdown(ctxShutdown)
}
