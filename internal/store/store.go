package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"ReceiptPoll/internal/models"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

var ErrWatchNotFound = errors.New("watch not found")

type Store struct {
	Pool *pgxpool.Pool
}

func New(pool *pgxpool.Pool) *Store {
	return &Store{Pool: pool}
}

// UpsertWatch registers orderID for background polling under flow. Watching an order
// that is already watched reactivates it and keeps its id.
func (s *Store) UpsertWatch(ctx context.Context, watch *models.Watch) error {
	const fn = "store.UpsertWatch"

	row := s.Pool.QueryRow(ctx, `
		INSERT INTO receipt_watches (watch_id, order_id, flow, active)
		VALUES ($1,$2,$3,true)
		ON CONFLICT (order_id, flow) DO UPDATE SET active=true, updated_at=now()
		RETURNING watch_id, active, created_at, updated_at
	`, watch.WatchID, watch.OrderID, watch.Flow)

	if err := row.Scan(&watch.WatchID, &watch.Active, &watch.CreatedAt, &watch.UpdatedAt); err != nil {
		return fmt.Errorf("%s: %w", fn, err)
	}
	return nil
}

func (s *Store) GetWatch(ctx context.Context, watchID string) (*models.Watch, error) {
	const fn = "store.GetWatch"

	row := s.Pool.QueryRow(ctx, `
		SELECT watch_id, order_id, flow, last_status, active, created_at, updated_at
		FROM receipt_watches WHERE watch_id=$1
	`, watchID)

	w, err := scanWatch(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("%s: %w", fn, ErrWatchNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("%s: %w", fn, err)
	}
	return w, nil
}

// ListActiveWatches returns up to limit active watches, least recently checked first.
func (s *Store) ListActiveWatches(ctx context.Context, limit int) ([]*models.Watch, error) {
	const fn = "store.ListActiveWatches"

	rows, err := s.Pool.Query(ctx, `
		SELECT watch_id, order_id, flow, last_status, active, created_at, updated_at
		FROM receipt_watches
		WHERE active
		ORDER BY updated_at ASC
		LIMIT $1
	`, limit)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", fn, err)
	}
	defer rows.Close()

	var watches []*models.Watch
	for rows.Next() {
		w, err := scanWatch(rows)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", fn, err)
		}
		watches = append(watches, w)
	}
	return watches, rows.Err()
}

// TouchWatch marks a watch as checked without a status change.
func (s *Store) TouchWatch(ctx context.Context, watchID string) error {
	_, err := s.Pool.Exec(ctx, `UPDATE receipt_watches SET updated_at=now() WHERE watch_id=$1`, watchID)
	return err
}

// RecordTransition journals a status change and updates the watch in one transaction.
func (s *Store) RecordTransition(ctx context.Context, watchID string, entry *models.JournalEntry, active bool) error {
	const fn = "store.RecordTransition"

	err := pgx.BeginFunc(ctx, s.Pool, func(tx pgx.Tx) error {
		if _, err := tx.Exec(ctx, `
			INSERT INTO receipt_status_journal (
				order_id, flow, from_status, to_status, class, observed_at
			) VALUES ($1,$2,$3,$4,$5,$6)
		`,
			entry.OrderID,
			entry.Flow,
			entry.FromStatus,
			entry.ToStatus,
			entry.Class,
			entry.ObservedAt,
		); err != nil {
			return err
		}

		res, err := tx.Exec(ctx, `
			UPDATE receipt_watches
			SET last_status=$2, active=$3, updated_at=now()
			WHERE watch_id=$1
		`, watchID, entry.ToStatus, active)
		if err != nil {
			return err
		}
		if res.RowsAffected() == 0 {
			return ErrWatchNotFound
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("%s: %w", fn, err)
	}
	return nil
}

func (s *Store) ListJournal(ctx context.Context, orderID string) ([]*models.JournalEntry, error) {
	const fn = "store.ListJournal"

	rows, err := s.Pool.Query(ctx, `
		SELECT order_id, flow, from_status, to_status, class, observed_at
		FROM receipt_status_journal
		WHERE order_id=$1
		ORDER BY observed_at ASC, id ASC
	`, orderID)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", fn, err)
	}
	defer rows.Close()

	var entries []*models.JournalEntry
	for rows.Next() {
		var e models.JournalEntry
		if err := rows.Scan(
			&e.OrderID,
			&e.Flow,
			&e.FromStatus,
			&e.ToStatus,
			&e.Class,
			&e.ObservedAt,
		); err != nil {
			return nil, fmt.Errorf("%s: %w", fn, err)
		}
		entries = append(entries, &e)
	}
	return entries, rows.Err()
}

func scanWatch(row pgx.Row) (*models.Watch, error) {
	var w models.Watch
	var lastStatus sql.NullString
	if err := row.Scan(
		&w.WatchID,
		&w.OrderID,
		&w.Flow,
		&lastStatus,
		&w.Active,
		&w.CreatedAt,
		&w.UpdatedAt,
	); err != nil {
		return nil, err
	}
	if lastStatus.Valid {
		w.LastStatus = lastStatus.String
	}
	return &w, nil
}
