package worker

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"ReceiptPoll/internal/apperr"
	"ReceiptPoll/internal/flow"
	"ReceiptPoll/internal/models"
	"ReceiptPoll/internal/notify"
	"ReceiptPoll/internal/receipt"
)

type WatchStore interface {
	ListActiveWatches(ctx context.Context, limit int) ([]*models.Watch, error)
	TouchWatch(ctx context.Context, watchID string) error
	RecordTransition(ctx context.Context, watchID string, entry *models.JournalEntry, active bool) error
}

type Resolver interface {
	Resolve(ctx context.Context, orderID string, profile flow.Profile) (*receipt.Receipt, error)
}

// Worker re-resolves watched orders on a fixed tick and journals every status change.
type Worker struct {
	Store       WatchStore
	Resolver    Resolver
	Publisher   notify.Publisher
	Log         *zap.Logger
	Interval    time.Duration
	Batch       int
	Concurrency int
}

func (w *Worker) Run(ctx context.Context) {
	ticker := time.NewTicker(w.Interval)
	defer ticker.Stop()

	for {
		if err := w.SyncOnce(ctx); err != nil {
			w.logger().Error("sync error", zap.Error(err))
		}
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}

// SyncOnce handles one batch of active watches. Only a failure to list watches is
// returned; per-watch failures are logged and the batch carries on.
func (w *Worker) SyncOnce(ctx context.Context) error {
	watches, err := w.Store.ListActiveWatches(ctx, w.batch())
	if err != nil {
		return err
	}

	var g errgroup.Group
	g.SetLimit(w.concurrency())
	for _, watch := range watches {
		watch := watch
		g.Go(func() error {
			if err := w.syncWatch(ctx, watch); err != nil {
				w.logger().Warn("watch sync failed",
					zap.String("watch_id", watch.WatchID),
					zap.String("order_id", watch.OrderID),
					zap.String("kind", apperr.Kind(err)),
					zap.Error(err),
				)
			}
			return nil
		})
	}
	return g.Wait()
}

func (w *Worker) syncWatch(ctx context.Context, watch *models.Watch) error {
	profile, err := flow.Lookup(watch.Flow)
	if err != nil {
		return err
	}

	r, err := w.Resolver.Resolve(ctx, watch.OrderID, profile)
	if err != nil {
		if errors.Is(err, apperr.ErrOrderNotFound) {
			return w.Store.TouchWatch(ctx, watch.WatchID)
		}
		return err
	}

	if r.Status == watch.LastStatus {
		return w.Store.TouchWatch(ctx, watch.WatchID)
	}

	entry := &models.JournalEntry{
		OrderID:    watch.OrderID,
		Flow:       watch.Flow,
		FromStatus: watch.LastStatus,
		ToStatus:   r.Status,
		Class:      r.Class.String(),
		ObservedAt: r.ResolvedAt.UTC(),
	}
	if err := w.Store.RecordTransition(ctx, watch.WatchID, entry, !r.Terminal); err != nil {
		return err
	}

	w.logger().Info("status changed",
		zap.String("order_id", watch.OrderID),
		zap.String("flow", watch.Flow),
		zap.String("from", watch.LastStatus),
		zap.String("to", r.Status),
		zap.Bool("terminal", r.Terminal),
	)

	if w.Publisher == nil {
		return nil
	}
	return w.Publisher.PublishStatusChanged(ctx, notify.StatusChanged{
		OrderID:    entry.OrderID,
		Flow:       entry.Flow,
		FromStatus: entry.FromStatus,
		ToStatus:   entry.ToStatus,
		Class:      entry.Class,
		Terminal:   r.Terminal,
		ObservedAt: entry.ObservedAt,
	})
}

func (w *Worker) logger() *zap.Logger {
	if w.Log == nil {
		return zap.NewNop()
	}
	return w.Log
}

func (w *Worker) batch() int {
	if w.Batch <= 0 {
		return 50
	}
	return w.Batch
}

func (w *Worker) concurrency() int {
	if w.Concurrency <= 0 {
		return 4
	}
	return w.Concurrency
}
