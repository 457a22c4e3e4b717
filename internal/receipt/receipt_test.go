package receipt

import (
	"context"
	"errors"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ReceiptPoll/internal/apperr"
	"ReceiptPoll/internal/flow"
	"ReceiptPoll/internal/models"
	"ReceiptPoll/internal/status"
)

type fakeAPI struct {
	mu         sync.Mutex
	detail     func(n int) (*models.OrderDetail, error)
	detailN    int
	howTo      *models.HowToPay
	howToErr   error
	howToCalls atomic.Int32
	tournament *models.Tournament
	tourErr    error
}

func (f *fakeAPI) GetPaymentDetail(_ context.Context, _ string) (*models.OrderDetail, error) {
	f.mu.Lock()
	f.detailN++
	n := f.detailN
	f.mu.Unlock()
	return f.detail(n)
}

func (f *fakeAPI) GetHowToPay(_ context.Context, _ string) (*models.HowToPay, error) {
	f.howToCalls.Add(1)
	return f.howTo, f.howToErr
}

func (f *fakeAPI) GetTournament(_ context.Context, _ string) (*models.Tournament, error) {
	return f.tournament, f.tourErr
}

type fakeCatalog struct {
	out   *models.PaymentCatalog
	err   error
	calls atomic.Int32
	// gate holds the read until closed.
	gate chan struct{}
}

func (f *fakeCatalog) GetPaymentList(ctx context.Context) (*models.PaymentCatalog, error) {
	f.calls.Add(1)
	if f.gate != nil {
		select {
		case <-f.gate:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	return f.out, f.err
}

type recordingSink struct {
	mu    sync.Mutex
	kinds []string
}

func (s *recordingSink) Report(_ context.Context, kind string, _ error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.kinds = append(s.kinds, kind)
}

func (s *recordingSink) Kinds() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.kinds...)
}

func order(status, method string) *models.OrderDetail {
	va := "8808123"
	return &models.OrderDetail{
		Currency:          "IDR",
		GrossAmount:       decimal.NewFromInt(50000),
		OrderID:           "order-1",
		ItemName:          "Seeds Cup",
		PaymentMethod:     method,
		TransactionStatus: status,
		VANumber:          &va,
		HowToPayAPI:       "http://backend/howto",
	}
}

func testCatalog() *models.PaymentCatalog {
	return &models.PaymentCatalog{
		EWallet: []models.PaymentMethod{{
			PaymentMethod:    "GOPAY",
			AdminFee:         decimal.NewFromInt(2000),
			ServiceFee:       decimal.NewFromInt(1000),
			IsPromoAvailable: true,
			PromoPrice:       decimal.NewFromInt(3000),
		}},
		VA: []models.PaymentMethod{{PaymentMethod: "BNI", AdminFee: decimal.NewFromInt(4000)}},
	}
}

func containsKind(kinds []string, kind string) bool {
	for _, k := range kinds {
		if k == kind {
			return true
		}
	}
	return false
}

func mustProfile(t *testing.T, name string) flow.Profile {
	t.Helper()
	p, err := flow.Lookup(name)
	require.NoError(t, err)
	return p
}

func TestResolve(t *testing.T) {
	t.Parallel()

	api := &fakeAPI{
		detail: func(int) (*models.OrderDetail, error) { return order("SETTLEMENT", "GOPAY"), nil },
		howTo:  &models.HowToPay{PaymentInstruction: []models.PaymentInstruction{{Step: []string{`Open "GoPay"`}}}},
	}
	sink := &recordingSink{}
	svc := NewService(api, &fakeCatalog{out: testCatalog()}, sink, nil)

	r, err := svc.Resolve(context.Background(), "order-1", mustProfile(t, flow.Event))
	require.NoError(t, err)

	assert.Equal(t, status.Succeeded, r.Class)
	assert.True(t, r.Terminal)
	require.NotNil(t, r.Method)
	assert.Equal(t, "GOPAY", r.Method.PaymentMethod)
	assert.True(t, r.Fees.BaseAmount.Equal(decimal.NewFromInt(50000)))
	assert.True(t, r.IsVirtualAccount)
	assert.Equal(t, []string{`Open "GoPay"`}, r.Steps)
	require.Len(t, r.Instructions, 1)
	assert.True(t, r.Instructions[0][1].Strong)
	assert.Nil(t, r.Tournament)
	assert.Empty(t, sink.Kinds())
}

func TestResolveFailOpen(t *testing.T) {
	t.Parallel()

	api := &fakeAPI{
		detail:   func(int) (*models.OrderDetail, error) { return order("PENDING", "GOPAY"), nil },
		howToErr: apperr.ErrTransport,
	}
	sink := &recordingSink{}
	svc := NewService(api, &fakeCatalog{err: apperr.ErrTransport}, sink, nil)

	r, err := svc.Resolve(context.Background(), "order-1", mustProfile(t, flow.Circle))
	require.NoError(t, err)

	assert.Equal(t, status.Pending, r.Class)
	assert.Nil(t, r.Method)
	assert.True(t, r.Fees.AdminFee.IsZero())
	assert.Nil(t, r.Steps)
	assert.ElementsMatch(t, []string{"transport", "transport"}, sink.Kinds())
}

func TestResolveReportsUnmatchedAndMalformed(t *testing.T) {
	t.Parallel()

	api := &fakeAPI{
		// BNI is a VA method, the circle flow only looks at e-wallets.
		detail: func(int) (*models.OrderDetail, error) { return order("SUCCESS", "BNI"), nil },
		howTo:  &models.HowToPay{},
	}
	sink := &recordingSink{}
	svc := NewService(api, &fakeCatalog{out: testCatalog()}, sink, nil)

	r, err := svc.Resolve(context.Background(), "order-1", mustProfile(t, flow.Circle))
	require.NoError(t, err)

	assert.Nil(t, r.Method)
	assert.Empty(t, r.Steps)
	assert.Equal(t, []string{"method_unmatched", "malformed_instructions"}, sink.Kinds())
}

func TestResolveDetailFailure(t *testing.T) {
	t.Parallel()

	api := &fakeAPI{detail: func(int) (*models.OrderDetail, error) { return nil, apperr.ErrOrderNotFound }}
	sink := &recordingSink{}
	svc := NewService(api, &fakeCatalog{out: testCatalog()}, sink, nil)

	_, err := svc.Resolve(context.Background(), "order-1", mustProfile(t, flow.Event))
	assert.ErrorIs(t, err, apperr.ErrOrderNotFound)
	// The caller reports a failed order read.
	assert.Empty(t, sink.Kinds())
}

func TestResolveDetailFailureCancelsSideReads(t *testing.T) {
	t.Parallel()

	api := &fakeAPI{detail: func(int) (*models.OrderDetail, error) { return nil, apperr.ErrTransport }}
	sink := &recordingSink{}
	svc := NewService(api, &fakeCatalog{out: testCatalog(), gate: make(chan struct{})}, sink, nil)

	done := make(chan error, 1)
	go func() {
		_, err := svc.Resolve(context.Background(), "order-1", mustProfile(t, flow.Event))
		done <- err
	}()

	select {
	case err := <-done:
		assert.ErrorIs(t, err, apperr.ErrTransport)
	case <-time.After(time.Second):
		t.Fatal("resolve waited on the catalog after the order read failed")
	}
	assert.Empty(t, sink.Kinds())
}

func TestResolveTournament(t *testing.T) {
	t.Parallel()

	play := time.Now().Add(time.Hour)
	api := &fakeAPI{
		detail:     func(int) (*models.OrderDetail, error) { return order("SUCCESS", "GOPAY"), nil },
		tournament: &models.Tournament{ID: "order-1", Name: "Cup", PlayTime: &play},
	}
	svc := NewService(api, &fakeCatalog{out: testCatalog()}, &recordingSink{}, nil)

	r, err := svc.Resolve(context.Background(), "order-1", mustProfile(t, flow.Tournament))
	require.NoError(t, err)
	require.NotNil(t, r.Tournament)
	assert.Equal(t, "Cup", r.Tournament.Name)
	assert.False(t, r.Tournament.Started)
	assert.Equal(t, status.Succeeded, r.Class)
}

func TestResolveTournamentFailureIsReported(t *testing.T) {
	t.Parallel()

	api := &fakeAPI{
		detail:  func(int) (*models.OrderDetail, error) { return order("SUCCESS", "GOPAY"), nil },
		tourErr: errors.New("play service down"),
	}
	sink := &recordingSink{}
	svc := NewService(api, &fakeCatalog{out: testCatalog()}, sink, nil)

	r, err := svc.Resolve(context.Background(), "order-1", mustProfile(t, flow.Tournament))
	require.NoError(t, err)
	require.NotNil(t, r.Tournament)
	assert.True(t, r.Tournament.Started, "default play time is in the past")
	assert.Equal(t, []string{"internal"}, sink.Kinds())
}

func TestTournamentStarted(t *testing.T) {
	t.Parallel()

	now := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	future := now.Add(time.Minute)

	assert.True(t, TournamentStarted(nil, now))
	assert.False(t, TournamentStarted(nil, DefaultPlayTime.Add(-time.Second)))
	assert.False(t, TournamentStarted(&future, now))
	assert.False(t, TournamentStarted(&now, now))
}

func TestSessionStreamsReceipts(t *testing.T) {
	t.Parallel()

	api := &fakeAPI{
		detail: func(n int) (*models.OrderDetail, error) {
			switch {
			case n == 1:
				return order("PENDING", "GOPAY"), nil
			case n == 2:
				return nil, apperr.ErrTransport
			default:
				return order("SETTLEMENT", "GOPAY"), nil
			}
		},
		howTo: &models.HowToPay{PaymentInstruction: []models.PaymentInstruction{{Step: []string{"Pay"}}}},
	}
	cat := &fakeCatalog{out: testCatalog()}
	sink := &recordingSink{}
	svc := NewService(api, cat, sink, nil)

	var started atomic.Bool
	profile := mustProfile(t, flow.Event).WithInterval(5 * time.Millisecond)
	sess, err := svc.Open(context.Background(), "order-1", profile, Options{
		OnStart: func(context.Context) error {
			started.Store(true)
			return nil
		},
	})
	require.NoError(t, err)
	assert.True(t, started.Load())
	assert.NotEmpty(t, sess.ID)

	ch, cancel := sess.Subscribe()
	defer cancel()

	deadline := time.After(2 * time.Second)
	for {
		select {
		case r := <-ch:
			require.NotNil(t, r)
			if r.Class != status.Succeeded || r.Method == nil || len(r.Steps) == 0 {
				continue
			}
			sess.Close()
			assert.Equal(t, int32(1), cat.calls.Load())
			assert.Equal(t, int32(1), api.howToCalls.Load())
			assert.Contains(t, sink.Kinds(), "transport")

			for range ch {
			}
			return
		case <-deadline:
			t.Fatal("no settled receipt received")
		}
	}
}

func TestSessionSlowCatalogDoesNotDelayDetail(t *testing.T) {
	t.Parallel()

	api := &fakeAPI{detail: func(int) (*models.OrderDetail, error) { return order("PENDING", "GOPAY"), nil }}
	cat := &fakeCatalog{out: testCatalog(), gate: make(chan struct{})}
	svc := NewService(api, cat, &recordingSink{}, nil)

	profile := mustProfile(t, flow.Event).WithInterval(time.Hour)
	sess, err := svc.Open(context.Background(), "order-1", profile, Options{})
	require.NoError(t, err)
	defer sess.Close()

	ch, cancel := sess.Subscribe()
	defer cancel()

	select {
	case r := <-ch:
		require.NotNil(t, r.Detail)
		assert.Equal(t, "PENDING", r.Status)
		assert.Nil(t, r.Method)
	case <-time.After(500 * time.Millisecond):
		t.Fatal("order detail held back by the catalog read")
	}

	close(cat.gate)

	deadline := time.After(2 * time.Second)
	for {
		select {
		case r := <-ch:
			if r.Method == nil {
				continue
			}
			assert.Equal(t, "GOPAY", r.Method.PaymentMethod)
			assert.Equal(t, int32(1), cat.calls.Load())
			return
		case <-deadline:
			t.Fatal("catalog never reached the receipt")
		}
	}
}

func TestSessionFirstFetchFailurePublishesError(t *testing.T) {
	t.Parallel()

	api := &fakeAPI{detail: func(int) (*models.OrderDetail, error) { return nil, apperr.ErrTransport }}
	sink := &recordingSink{}
	svc := NewService(api, &fakeCatalog{out: testCatalog()}, sink, nil)

	sess, err := svc.Open(context.Background(), "order-1", mustProfile(t, flow.Circle), Options{})
	require.NoError(t, err)
	defer sess.Close()

	ch, cancel := sess.Subscribe()
	defer cancel()

	select {
	case r := <-ch:
		assert.Nil(t, r.Detail)
		assert.Equal(t, "order-1", r.OrderID)
		assert.Equal(t, "transport", r.Error)
		assert.Equal(t, status.FailedOrUnknown, r.Class)
		assert.Contains(t, Text(r, false), "Last fetch failed: transport")
	case <-time.After(time.Second):
		t.Fatal("no receipt after a failed first fetch")
	}
	assert.Equal(t, []string{"transport"}, sink.Kinds())
}

func TestSessionReportsUnmatchedOnce(t *testing.T) {
	t.Parallel()

	api := &fakeAPI{detail: func(int) (*models.OrderDetail, error) { return order("PENDING", "OVO"), nil }}
	sink := &recordingSink{}
	svc := NewService(api, &fakeCatalog{out: testCatalog()}, sink, nil)

	profile := mustProfile(t, flow.Event).WithInterval(2 * time.Millisecond)
	sess, err := svc.Open(context.Background(), "order-1", profile, Options{})
	require.NoError(t, err)

	require.Eventually(t, func() bool {
		return sess.Snapshot().Fetches >= 5 && containsKind(sink.Kinds(), "method_unmatched")
	}, 2*time.Second, time.Millisecond)
	sess.Close()

	var unmatched int
	for _, kind := range sink.Kinds() {
		if kind == "method_unmatched" {
			unmatched++
		}
	}
	assert.Equal(t, 1, unmatched)
}

func TestSessionStartHookError(t *testing.T) {
	t.Parallel()

	svc := NewService(&fakeAPI{}, &fakeCatalog{}, &recordingSink{}, nil)
	_, err := svc.Open(context.Background(), "order-1", mustProfile(t, flow.Circle), Options{
		OnStart: func(context.Context) error { return errors.New("reset failed") },
	})
	assert.Error(t, err)
}

func TestSubscribeAfterClose(t *testing.T) {
	t.Parallel()

	api := &fakeAPI{detail: func(int) (*models.OrderDetail, error) { return order("PENDING", "GOPAY"), nil }}
	svc := NewService(api, &fakeCatalog{out: testCatalog()}, &recordingSink{}, nil)

	sess, err := svc.Open(context.Background(), "order-1", mustProfile(t, flow.Circle), Options{})
	require.NoError(t, err)
	sess.Close()

	ch, cancel := sess.Subscribe()
	defer cancel()
	_, open := <-ch
	assert.False(t, open)
	assert.False(t, sess.Refresh())
}

func TestText(t *testing.T) {
	t.Parallel()

	api := &fakeAPI{
		detail: func(int) (*models.OrderDetail, error) { return order("PENDING", "GOPAY"), nil },
		howTo:  &models.HowToPay{PaymentInstruction: []models.PaymentInstruction{{Step: []string{`Tap "Pay"`}}}},
	}
	svc := NewService(api, &fakeCatalog{out: testCatalog()}, &recordingSink{}, nil)
	r, err := svc.Resolve(context.Background(), "order-1", mustProfile(t, flow.Event))
	require.NoError(t, err)

	plain := Text(r, false)
	assert.Contains(t, plain, "Order: order-1")
	assert.Contains(t, plain, "Status: pending (PENDING)")
	assert.Contains(t, plain, "VA Number: 8808123")
	assert.Contains(t, plain, "- IDR 3.000")
	assert.Contains(t, plain, "1. Tap Pay")
	assert.NotContains(t, plain, "\x1b[")

	colored := Text(r, true)
	assert.True(t, strings.Contains(colored, "\x1b["))
	assert.Empty(t, Text(nil, false))
}
