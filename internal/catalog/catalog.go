// Package catalog caches the payment-method catalog in Redis in front of the backend.
// Redis is an accelerator only: any cache failure falls through to the source.
package catalog

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"ReceiptPoll/internal/models"
)

const (
	Key        = "receiptpoll:payment_list"
	DefaultTTL = 5 * time.Minute
)

type Source interface {
	GetPaymentList(ctx context.Context) (*models.PaymentCatalog, error)
}

type Cache struct {
	src Source
	rdb *redis.Client
	ttl time.Duration
	log *zap.Logger
}

// NewRedis opens a client and checks it with PING.
func NewRedis(ctx context.Context, addr, password string, db int) (*redis.Client, error) {
	const fn = "catalog.NewRedis"

	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("%s: can't ping redis: %w", fn, err)
	}
	return client, nil
}

// New wraps src. A nil rdb disables caching.
func New(src Source, rdb *redis.Client, ttl time.Duration, log *zap.Logger) *Cache {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &Cache{src: src, rdb: rdb, ttl: ttl, log: log}
}

func (c *Cache) GetPaymentList(ctx context.Context) (*models.PaymentCatalog, error) {
	const fn = "catalog.GetPaymentList"

	if c.rdb != nil {
		cached, err := c.get(ctx)
		switch {
		case err == nil:
			return cached, nil
		case errors.Is(err, redis.Nil):
		default:
			c.log.Warn("catalog cache read failed", zap.String("fn", fn), zap.Error(err))
		}
	}

	out, err := c.src.GetPaymentList(ctx)
	if err != nil {
		return nil, err
	}

	if c.rdb != nil {
		if err := c.set(ctx, out); err != nil {
			c.log.Warn("catalog cache write failed", zap.String("fn", fn), zap.Error(err))
		}
	}
	return out, nil
}

func (c *Cache) Invalidate(ctx context.Context) error {
	const fn = "catalog.Invalidate"

	if c.rdb == nil {
		return nil
	}
	if err := c.rdb.Del(ctx, Key).Err(); err != nil {
		return fmt.Errorf("%s: %w", fn, err)
	}
	return nil
}

func (c *Cache) get(ctx context.Context) (*models.PaymentCatalog, error) {
	raw, err := c.rdb.Get(ctx, Key).Bytes()
	if err != nil {
		return nil, err
	}
	var out models.PaymentCatalog
	if err := json.Unmarshal(raw, &out); err != nil {
		return nil, fmt.Errorf("can't unmarshal catalog: %w", err)
	}
	return &out, nil
}

func (c *Cache) set(ctx context.Context, catalog *models.PaymentCatalog) error {
	raw, err := json.Marshal(catalog)
	if err != nil {
		return fmt.Errorf("can't marshal catalog: %w", err)
	}
	return c.rdb.Set(ctx, Key, raw, c.ttl).Err()
}
