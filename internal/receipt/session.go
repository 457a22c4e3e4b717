package receipt

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"ReceiptPoll/internal/apperr"
	"ReceiptPoll/internal/flow"
	"ReceiptPoll/internal/models"
	"ReceiptPoll/internal/poller"
)

type Options struct {
	// OnStart runs once before the first fetch. A failure aborts Open.
	OnStart func(ctx context.Context) error
}

// Session keeps one order receipt live for as long as a viewer holds it. The poller
// only reads the order; the catalog, instructions and tournament are side loads that
// publish a fresh receipt when they land.
type Session struct {
	ID      string
	OrderID string

	svc     *Service
	profile flow.Profile
	parts   *partsCache
	poller  *poller.Poller
	sink    *sessionSink
	ctx     context.Context
	cancel  context.CancelFunc

	mu       sync.Mutex
	detail   *models.OrderDetail
	fetchErr error
	subs     map[int]chan *Receipt
	latest   *Receipt
	nextID   int
}

// onceKinds are degraded-receipt reports that would otherwise repeat on every poll.
var onceKinds = map[string]bool{
	apperr.Kind(apperr.ErrMethodUnmatched):       true,
	apperr.Kind(apperr.ErrMalformedInstructions): true,
}

// sessionSink drops reports once the session is closed and reports each of onceKinds
// only once per session.
type sessionSink struct {
	inner  apperr.Sink
	closed atomic.Bool

	mu   sync.Mutex
	seen map[string]bool
}

func (s *sessionSink) Report(ctx context.Context, kind string, err error) {
	if s.closed.Load() || s.inner == nil {
		return
	}
	if onceKinds[kind] {
		s.mu.Lock()
		if s.seen[kind] {
			s.mu.Unlock()
			return
		}
		if s.seen == nil {
			s.seen = make(map[string]bool)
		}
		s.seen[kind] = true
		s.mu.Unlock()
	}
	s.inner.Report(ctx, kind, err)
}

// Open starts polling orderID with the profile's mode and interval.
func (s *Service) Open(ctx context.Context, orderID string, profile flow.Profile, opts Options) (*Session, error) {
	const fn = "receipt.Open"

	if opts.OnStart != nil {
		if err := opts.OnStart(ctx); err != nil {
			return nil, fmt.Errorf("%s: start hook: %w", fn, err)
		}
	}

	sideCtx, cancel := context.WithCancel(ctx)
	sess := &Session{
		ID:      uuid.NewString(),
		OrderID: orderID,
		svc:     s,
		profile: profile,
		parts:   &partsCache{},
		sink:    &sessionSink{inner: s.sink},
		ctx:     sideCtx,
		cancel:  cancel,
		subs:    make(map[int]chan *Receipt),
	}

	cfg := profile.PollerConfig()
	cfg.Sink = sess.sink
	cfg.OnUpdate = sess.onUpdate
	sess.poller = poller.New(func(ctx context.Context) (*models.OrderDetail, error) {
		return s.api.GetPaymentDetail(ctx, orderID)
	}, cfg)

	s.log.Info("receipt session opened",
		zap.String("fn", fn),
		zap.String("session_id", sess.ID),
		zap.String("order_id", orderID),
		zap.String("flow", profile.Name),
		zap.String("mode", profile.Mode.String()),
	)

	sess.poller.Start(ctx)
	return sess, nil
}

// Subscribe returns a channel that always holds the newest receipt. Slow readers skip
// intermediate receipts. The channel is closed by Close or by the returned cancel func.
func (s *Session) Subscribe() (<-chan *Receipt, func()) {
	ch := make(chan *Receipt, 1)

	s.mu.Lock()
	id := s.nextID
	s.nextID++
	if s.subs == nil {
		s.mu.Unlock()
		close(ch)
		return ch, func() {}
	}
	s.subs[id] = ch
	if s.latest != nil {
		ch <- s.latest
	}
	s.mu.Unlock()

	return ch, func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		if c, ok := s.subs[id]; ok {
			delete(s.subs, id)
			close(c)
		}
	}
}

// Refresh asks for an immediate re-fetch.
func (s *Session) Refresh() bool {
	return s.poller.Refresh()
}

func (s *Session) Snapshot() poller.Snapshot {
	return s.poller.Snapshot()
}

func (s *Session) Done() <-chan struct{} {
	return s.poller.Done()
}

// Close stops polling, cancels pending side loads and closes every subscriber channel.
func (s *Session) Close() {
	s.sink.closed.Store(true)
	s.cancel()
	s.poller.Stop()

	s.mu.Lock()
	defer s.mu.Unlock()
	for id, ch := range s.subs {
		close(ch)
		delete(s.subs, id)
	}
	s.subs = nil
}

func (s *Session) onUpdate(snap poller.Snapshot) {
	s.mu.Lock()
	if s.subs == nil {
		s.mu.Unlock()
		return
	}
	if snap.Detail != nil {
		s.detail = snap.Detail
	}
	s.fetchErr = snap.Err
	s.publishLocked()
	detail := s.detail
	s.mu.Unlock()

	if detail != nil {
		s.startSideLoads(detail)
	}
}

// startSideLoads fills the missing slots. Each slot is read on its own so a hanging read
// only holds back its own part of the receipt.
func (s *Session) startSideLoads(detail *models.OrderDetail) {
	svc := s.svc
	go func() {
		if svc.loadCatalog(s.ctx, s.parts, s.sink) {
			s.republish()
		}
	}()
	if detail.HowToPayAPI != "" {
		url := detail.HowToPayAPI
		go func() {
			if svc.loadInstructions(s.ctx, url, s.parts, s.sink) {
				s.republish()
			}
		}()
	}
	if s.profile.Name == flow.Tournament {
		go func() {
			if svc.loadTournament(s.ctx, s.OrderID, s.parts, s.sink) {
				s.republish()
			}
		}()
	}
}

func (s *Session) republish() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.subs == nil || s.detail == nil {
		return
	}
	s.publishLocked()
}

// publishLocked assembles from the newest detail and slots and replaces whatever a
// subscriber has not read yet. Without any detail the receipt only carries the error.
func (s *Session) publishLocked() {
	now := s.svc.now()

	var r *Receipt
	if s.detail == nil {
		r = unresolved(s.OrderID, s.profile, now)
	} else {
		r = assemble(context.Background(), s.sink, s.profile, s.detail, s.parts.snapshot(), now)
	}
	if s.fetchErr != nil {
		r.Error = apperr.Kind(s.fetchErr)
	}

	s.latest = r
	for _, ch := range s.subs {
		select {
		case <-ch:
		default:
		}
		ch <- r
	}
}
