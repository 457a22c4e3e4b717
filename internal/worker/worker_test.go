package worker

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ReceiptPoll/internal/apperr"
	"ReceiptPoll/internal/flow"
	"ReceiptPoll/internal/models"
	"ReceiptPoll/internal/notify"
	"ReceiptPoll/internal/receipt"
)

type transition struct {
	watchID string
	entry   models.JournalEntry
	active  bool
}

type fakeStore struct {
	mu          sync.Mutex
	watches     []*models.Watch
	listErr     error
	touched     []string
	transitions []transition
}

func (s *fakeStore) ListActiveWatches(_ context.Context, limit int) ([]*models.Watch, error) {
	if s.listErr != nil {
		return nil, s.listErr
	}
	if len(s.watches) > limit {
		return s.watches[:limit], nil
	}
	return s.watches, nil
}

func (s *fakeStore) TouchWatch(_ context.Context, watchID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.touched = append(s.touched, watchID)
	return nil
}

func (s *fakeStore) RecordTransition(_ context.Context, watchID string, entry *models.JournalEntry, active bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.transitions = append(s.transitions, transition{watchID: watchID, entry: *entry, active: active})
	return nil
}

type fakeResolver map[string]string

func (f fakeResolver) Resolve(_ context.Context, orderID string, profile flow.Profile) (*receipt.Receipt, error) {
	raw, ok := f[orderID]
	if !ok {
		return nil, apperr.ErrOrderNotFound
	}
	if raw == "boom" {
		return nil, apperr.ErrTransport
	}
	return &receipt.Receipt{
		OrderID:    orderID,
		Flow:       profile.Name,
		Status:     raw,
		Class:      profile.Policy.Classify(raw),
		Terminal:   profile.Policy.Terminal(raw),
		ResolvedAt: time.Now(),
	}, nil
}

type fakePublisher struct {
	mu     sync.Mutex
	events []notify.StatusChanged
}

func (p *fakePublisher) PublishStatusChanged(_ context.Context, ev notify.StatusChanged) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, ev)
	return nil
}

func (p *fakePublisher) Close() error { return nil }

func TestSyncOnce(t *testing.T) {
	t.Parallel()

	store := &fakeStore{watches: []*models.Watch{
		{WatchID: "w-settled", OrderID: "o-settled", Flow: flow.Event, LastStatus: "PENDING", Active: true},
		{WatchID: "w-same", OrderID: "o-same", Flow: flow.Event, LastStatus: "PENDING", Active: true},
		{WatchID: "w-new", OrderID: "o-new", Flow: flow.Circle, Active: true},
		{WatchID: "w-missing", OrderID: "o-missing", Flow: flow.Event, Active: true},
		{WatchID: "w-down", OrderID: "o-down", Flow: flow.Event, Active: true},
		{WatchID: "w-bad-flow", OrderID: "o-settled", Flow: "subscription", Active: true},
	}}
	resolver := fakeResolver{
		"o-settled": "SETTLEMENT",
		"o-same":    "PENDING",
		"o-new":     "CREATED",
		"o-down":    "boom",
	}
	pub := &fakePublisher{}

	w := &Worker{Store: store, Resolver: resolver, Publisher: pub, Interval: time.Second}
	require.NoError(t, w.SyncOnce(context.Background()))

	byWatch := map[string]transition{}
	for _, tr := range store.transitions {
		byWatch[tr.watchID] = tr
	}
	require.Len(t, byWatch, 2)

	settled := byWatch["w-settled"]
	assert.False(t, settled.active, "terminal status deactivates the watch")
	assert.Equal(t, "PENDING", settled.entry.FromStatus)
	assert.Equal(t, "succeeded", settled.entry.Class)

	created := byWatch["w-new"]
	assert.True(t, created.active)
	assert.Equal(t, "pending", created.entry.Class)

	assert.ElementsMatch(t, []string{"w-same", "w-missing"}, store.touched)
	assert.Len(t, pub.events, 2)
}

func TestSyncOnceListError(t *testing.T) {
	t.Parallel()

	w := &Worker{Store: &fakeStore{listErr: errors.New("db down")}, Resolver: fakeResolver{}}
	assert.EqualError(t, w.SyncOnce(context.Background()), "db down")
}

func TestRunStopsOnCancel(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	w := &Worker{Store: &fakeStore{}, Resolver: fakeResolver{}, Interval: 5 * time.Millisecond}

	go func() {
		w.Run(ctx)
		close(done)
	}()
	cancel()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("worker did not stop")
	}
}
