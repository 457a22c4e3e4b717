package receipt

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"ReceiptPoll/internal/apperr"
	"ReceiptPoll/internal/catalog"
	"ReceiptPoll/internal/flow"
	"ReceiptPoll/internal/models"
)

// API is the slice of the payment backend a receipt needs.
type API interface {
	GetPaymentDetail(ctx context.Context, orderID string) (*models.OrderDetail, error)
	GetHowToPay(ctx context.Context, url string) (*models.HowToPay, error)
	GetTournament(ctx context.Context, id string) (*models.Tournament, error)
}

type Service struct {
	api     API
	catalog catalog.Source
	sink    apperr.Sink
	log     *zap.Logger
	now     func() time.Time
}

func NewService(api API, catalog catalog.Source, sink apperr.Sink, log *zap.Logger) *Service {
	if log == nil {
		log = zap.NewNop()
	}
	if sink == nil {
		sink = apperr.NewLogSink(log)
	}
	return &Service{
		api:     api,
		catalog: catalog,
		sink:    sink,
		log:     log,
		now:     time.Now,
	}
}

// Resolve reads the order, the catalog and the instructions once and assembles a receipt.
// Only a failed order read is returned; the side reads degrade the receipt instead. A failed
// order read cancels the side reads still in flight.
func (s *Service) Resolve(ctx context.Context, orderID string, profile flow.Profile) (*Receipt, error) {
	const fn = "receipt.Resolve"

	c := &partsCache{}
	g, gctx := errgroup.WithContext(ctx)

	var detail *models.OrderDetail
	g.Go(func() error {
		d, err := s.api.GetPaymentDetail(gctx, orderID)
		if err != nil {
			return err
		}
		detail = d
		s.loadInstructions(gctx, d.HowToPayAPI, c, s.sink)
		return nil
	})
	g.Go(func() error {
		s.loadCatalog(gctx, c, s.sink)
		return nil
	})
	if profile.Name == flow.Tournament {
		g.Go(func() error {
			s.loadTournament(gctx, orderID, c, s.sink)
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("%s: %w", fn, err)
	}

	s.log.Debug("receipt resolved",
		zap.String("fn", fn),
		zap.String("order_id", orderID),
		zap.String("flow", profile.Name),
		zap.String("status", detail.TransactionStatus),
	)
	return assemble(ctx, s.sink, profile, detail, c.snapshot(), s.now()), nil
}

// partsCache keeps side reads across polls of one order. The catalog and the tournament
// are read until they succeed once; instructions are read once per distinct URL. At most
// one read per slot is in flight.
type partsCache struct {
	mu             sync.Mutex
	catalog        *models.PaymentCatalog
	catalogBusy    bool
	howToURL       string
	howTo          *models.HowToPay
	howToBusy      bool
	tournament     *models.Tournament
	tournamentBusy bool
}

func (c *partsCache) snapshot() parts {
	c.mu.Lock()
	defer c.mu.Unlock()
	return parts{
		catalog:    c.catalog,
		howToURL:   c.howToURL,
		howTo:      c.howTo,
		tournament: c.tournament,
	}
}

// The load functions report whether they filled their slot.

func (s *Service) loadCatalog(ctx context.Context, c *partsCache, sink apperr.Sink) bool {
	c.mu.Lock()
	if c.catalog != nil || c.catalogBusy || s.catalog == nil {
		c.mu.Unlock()
		return false
	}
	c.catalogBusy = true
	c.mu.Unlock()

	out, err := s.catalog.GetPaymentList(ctx)

	c.mu.Lock()
	c.catalogBusy = false
	if err == nil {
		c.catalog = out
	}
	c.mu.Unlock()

	if err != nil {
		if ctx.Err() == nil {
			apperr.Report(ctx, sink, err)
		}
		return false
	}
	return true
}

func (s *Service) loadInstructions(ctx context.Context, url string, c *partsCache, sink apperr.Sink) bool {
	if url == "" {
		return false
	}
	c.mu.Lock()
	if (c.howTo != nil && c.howToURL == url) || c.howToBusy {
		c.mu.Unlock()
		return false
	}
	c.howToBusy = true
	c.mu.Unlock()

	out, err := s.api.GetHowToPay(ctx, url)

	c.mu.Lock()
	c.howToBusy = false
	if err == nil {
		c.howToURL = url
		c.howTo = out
	}
	c.mu.Unlock()

	if err != nil {
		if ctx.Err() == nil {
			apperr.Report(ctx, sink, err)
		}
		return false
	}
	return true
}

func (s *Service) loadTournament(ctx context.Context, id string, c *partsCache, sink apperr.Sink) bool {
	c.mu.Lock()
	if c.tournament != nil || c.tournamentBusy {
		c.mu.Unlock()
		return false
	}
	c.tournamentBusy = true
	c.mu.Unlock()

	out, err := s.api.GetTournament(ctx, id)

	c.mu.Lock()
	c.tournamentBusy = false
	if err == nil {
		c.tournament = out
	}
	c.mu.Unlock()

	if err != nil {
		if ctx.Err() == nil {
			apperr.Report(ctx, sink, err)
		}
		return false
	}
	return true
}
