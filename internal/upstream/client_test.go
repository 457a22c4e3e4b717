package upstream

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/brianvoe/gofakeit/v6"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ReceiptPoll/internal/apperr"
)

func newBackend(t *testing.T, orderID string) *httptest.Server {
	t.Helper()

	mux := http.NewServeMux()
	mux.HandleFunc("/payment/list", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{
			"type_qris": [{"payment_method": "OTHER_QRIS", "admin_fee": 700}],
			"type_ewallet": [{"payment_method": "GOPAY", "admin_fee": 2000, "service_fee": 1000, "is_promo_available": true, "promo_price": 3000}],
			"type_va": [{"payment_method": "BCA", "admin_fee": 4000}]
		}`))
	})
	mux.HandleFunc("/payment/"+orderID, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{
			"currency": "IDR",
			"grossAmount": 50000,
			"orderId": "` + orderID + `",
			"paymentMethod": "GOPAY",
			"transactionStatus": "PENDING",
			"vaNumber": "8808123",
			"howToPayApi": "http://` + r.Host + `/howto/gopay"
		}`))
	})
	mux.HandleFunc("/howto/gopay", func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"payment_instruction": [{"step": ["Open \"GoPay\"", "Pay"]}]}`))
	})
	mux.HandleFunc("/play/"+orderID, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"id": "` + orderID + `", "name": "Cup", "play_time": "2024-12-31T17:00:00Z"}`))
	})

	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

func TestClientReads(t *testing.T) {
	t.Parallel()

	orderID := gofakeit.UUID()
	srv := newBackend(t, orderID)
	c := NewClient(srv.URL+"/", time.Second)
	ctx := context.Background()

	detail, err := c.GetPaymentDetail(ctx, orderID)
	require.NoError(t, err)
	assert.Equal(t, orderID, detail.OrderID)
	assert.Equal(t, "50000", detail.GrossAmount.String())
	assert.True(t, detail.IsVirtualAccount())

	catalog, err := c.GetPaymentList(ctx)
	require.NoError(t, err)
	require.Len(t, catalog.EWallet, 1)
	assert.True(t, catalog.EWallet[0].IsPromoAvailable)
	assert.Equal(t, "3000", catalog.EWallet[0].PromoPrice.String())

	howTo, err := c.GetHowToPay(ctx, detail.HowToPayAPI)
	require.NoError(t, err)
	require.Len(t, howTo.PaymentInstruction, 1)
	assert.Equal(t, []string{`Open "GoPay"`, "Pay"}, howTo.PaymentInstruction[0].Step)

	tour, err := c.GetTournament(ctx, orderID)
	require.NoError(t, err)
	require.NotNil(t, tour.PlayTime)
	assert.Equal(t, 2024, tour.PlayTime.Year())
}

func TestClientStatusErrors(t *testing.T) {
	t.Parallel()

	srv := newBackend(t, "known")
	c := NewClient(srv.URL, time.Second)

	_, err := c.GetPaymentDetail(context.Background(), "missing")
	require.Error(t, err)
	assert.ErrorIs(t, err, apperr.ErrOrderNotFound)
	assert.ErrorIs(t, err, apperr.ErrTransport)

	var se *StatusError
	require.ErrorAs(t, err, &se)
	assert.Equal(t, http.StatusNotFound, se.Code)

	_, err = c.GetHowToPay(context.Background(), "/relative/path")
	assert.ErrorIs(t, err, apperr.ErrTransport)
}

func TestClientDecodeError(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("not json"))
	}))
	t.Cleanup(srv.Close)

	_, err := NewClient(srv.URL, time.Second).GetPaymentList(context.Background())
	assert.ErrorIs(t, err, apperr.ErrTransport)
}

func TestMultiClientFailover(t *testing.T) {
	t.Parallel()

	var badHits atomic.Int32
	bad := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		badHits.Add(1)
		http.Error(w, "down", http.StatusBadGateway)
	}))
	t.Cleanup(bad.Close)
	good := newBackend(t, "order-1")

	m, err := NewMultiClient([]string{bad.URL, " ", bad.URL + "/", good.URL}, 2, time.Second)
	require.NoError(t, err)
	assert.Equal(t, bad.URL, m.BaseURL())

	ctx := context.Background()
	_, err = m.GetPaymentList(ctx)
	require.Error(t, err)
	var se *StatusError
	require.ErrorAs(t, err, &se)
	assert.Equal(t, http.StatusBadGateway, se.Code)

	// Second failure reaches the threshold, rotates and retries on the next endpoint.
	catalog, err := m.GetPaymentList(ctx)
	require.NoError(t, err)
	assert.Len(t, catalog.VA, 1)
	assert.Equal(t, good.URL, m.BaseURL())
	assert.Equal(t, int32(2), badHits.Load())
}

func TestMultiClientNotFoundDoesNotRotate(t *testing.T) {
	t.Parallel()

	a := newBackend(t, "a")
	b := newBackend(t, "b")

	m, err := NewMultiClient([]string{a.URL, b.URL}, 1, time.Second)
	require.NoError(t, err)

	_, err = m.GetPaymentDetail(context.Background(), "b")
	assert.ErrorIs(t, err, apperr.ErrOrderNotFound)
	assert.Equal(t, a.URL, m.BaseURL())
}

func TestNewMultiClientEmpty(t *testing.T) {
	t.Parallel()

	_, err := NewMultiClient([]string{"", "  "}, 3, time.Second)
	assert.Error(t, err)
}
