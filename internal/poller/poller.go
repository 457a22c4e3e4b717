// Package poller owns the fetch lifecycle of a single order receipt.
package poller

import (
	"context"
	"sync"
	"time"

	"ReceiptPoll/internal/apperr"
	"ReceiptPoll/internal/models"
)

const DefaultInterval = 5 * time.Second

type Mode int

const (
	// SingleShot fetches once on start. Further fetches only happen through Refresh.
	SingleShot Mode = iota
	// PollForever re-arms after every resolution, success or failure, without looking at status.
	PollForever
	// UntilTerminal re-arms until the terminal check reports a final status.
	UntilTerminal
)

func (m Mode) String() string {
	switch m {
	case PollForever:
		return "poll_forever"
	case UntilTerminal:
		return "until_terminal"
	default:
		return "single_shot"
	}
}

type State int

const (
	Idle State = iota
	Fetching
	Resolved
	Failed
	Stopped
)

func (s State) String() string {
	switch s {
	case Fetching:
		return "fetching"
	case Resolved:
		return "resolved"
	case Failed:
		return "failed"
	case Stopped:
		return "stopped"
	default:
		return "idle"
	}
}

type Fetcher func(ctx context.Context) (*models.OrderDetail, error)

type Config struct {
	Mode     Mode
	Interval time.Duration
	// Terminal is consulted in UntilTerminal mode only.
	Terminal func(rawStatus string) bool
	Sink     apperr.Sink
	// OnUpdate runs after every accepted resolution. It must not call Stop.
	OnUpdate func(Snapshot)
}

type Snapshot struct {
	State     State
	Detail    *models.OrderDetail
	Err       error
	Fetches   int
	UpdatedAt time.Time
}

type Poller struct {
	fetch Fetcher
	cfg   Config

	// emitMu serialises result handling against Stop so nothing is emitted once Stop returns.
	emitMu sync.Mutex

	mu       sync.Mutex
	ctx      context.Context
	state    State
	detail   *models.OrderDetail
	lastErr  error
	fetches  int
	updated  time.Time
	inflight bool
	started  bool
	stopped  bool
	timer    *time.Timer
	done     chan struct{}
}

func New(fetch Fetcher, cfg Config) *Poller {
	if cfg.Interval <= 0 {
		cfg.Interval = DefaultInterval
	}
	return &Poller{
		fetch: fetch,
		cfg:   cfg,
		state: Idle,
		done:  make(chan struct{}),
	}
}

// Start moves the poller from Idle to Fetching. Cancelling ctx stops the poller.
// Calling Start twice is a no-op.
func (p *Poller) Start(ctx context.Context) {
	p.mu.Lock()
	if p.started || p.stopped {
		p.mu.Unlock()
		return
	}
	p.started = true
	p.ctx = ctx
	p.mu.Unlock()

	go func() {
		select {
		case <-ctx.Done():
			p.Stop()
		case <-p.done:
		}
	}()

	go p.run()
}

// Refresh forces a fetch now. It reports false when the poller is stopped, not started
// or already fetching.
func (p *Poller) Refresh() bool {
	p.mu.Lock()
	if !p.started || p.stopped || p.inflight {
		p.mu.Unlock()
		return false
	}
	if p.timer != nil {
		p.timer.Stop()
		p.timer = nil
	}
	p.mu.Unlock()

	go p.run()
	return true
}

// Stop clears the pending timer. A fetch already in flight keeps running but its result
// is dropped. No OnUpdate call or Sink report happens after Stop returns.
func (p *Poller) Stop() {
	p.emitMu.Lock()
	defer p.emitMu.Unlock()

	p.mu.Lock()
	defer p.mu.Unlock()

	if p.stopped {
		return
	}
	p.stopped = true
	p.state = Stopped
	if p.timer != nil {
		p.timer.Stop()
		p.timer = nil
	}
	close(p.done)
}

// Done is closed once the poller is stopped.
func (p *Poller) Done() <-chan struct{} {
	return p.done
}

func (p *Poller) Snapshot() Snapshot {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.snapshotLocked()
}

func (p *Poller) snapshotLocked() Snapshot {
	return Snapshot{
		State:     p.state,
		Detail:    p.detail,
		Err:       p.lastErr,
		Fetches:   p.fetches,
		UpdatedAt: p.updated,
	}
}

func (p *Poller) run() {
	p.mu.Lock()
	if p.stopped || p.inflight {
		p.mu.Unlock()
		return
	}
	p.inflight = true
	p.state = Fetching
	p.timer = nil
	// The request outlives Stop; only its result is guarded.
	ctx := context.WithoutCancel(p.ctx)
	p.mu.Unlock()

	detail, err := p.fetch(ctx)

	p.resolve(ctx, detail, err)
}

func (p *Poller) resolve(ctx context.Context, detail *models.OrderDetail, err error) {
	p.emitMu.Lock()
	defer p.emitMu.Unlock()

	p.mu.Lock()
	p.inflight = false
	if p.stopped {
		p.mu.Unlock()
		return
	}

	p.fetches++
	p.updated = time.Now()
	if err != nil {
		// Keep the previous detail on screen.
		p.state = Failed
		p.lastErr = err
	} else {
		p.state = Resolved
		p.lastErr = nil
		if detail != nil {
			p.detail = detail
		}
	}

	if p.shouldRearmLocked(err) {
		p.timer = time.AfterFunc(p.cfg.Interval, p.run)
	}
	snap := p.snapshotLocked()
	p.mu.Unlock()

	if err != nil {
		apperr.Report(ctx, p.cfg.Sink, err)
	}
	if p.cfg.OnUpdate != nil {
		p.cfg.OnUpdate(snap)
	}
}

func (p *Poller) shouldRearmLocked(err error) bool {
	switch p.cfg.Mode {
	case PollForever:
		return true
	case UntilTerminal:
		if err != nil || p.detail == nil || p.cfg.Terminal == nil {
			return true
		}
		return !p.cfg.Terminal(p.detail.TransactionStatus)
	default:
		return false
	}
}
