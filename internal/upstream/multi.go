package upstream

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"

	"ReceiptPoll/internal/apperr"
	"ReceiptPoll/internal/models"
)

// MultiClient fails over between backend endpoints. The active endpoint is rotated
// after failThreshold consecutive failures and the failing call is retried on the next
// endpoint. A 404 answer is an answer, not an endpoint failure.
type MultiClient struct {
	clients       []*Client
	index         int
	failCount     int
	failThreshold int
	mu            sync.Mutex
}

func NewMultiClient(endpoints []string, failThreshold int, timeout time.Duration) (*MultiClient, error) {
	list := sanitizeEndpoints(endpoints)
	if len(list) == 0 {
		return nil, errors.New("upstream endpoints is empty")
	}
	if failThreshold <= 0 {
		failThreshold = 3
	}
	clients := make([]*Client, 0, len(list))
	for _, ep := range list {
		clients = append(clients, NewClient(ep, timeout))
	}
	return &MultiClient{
		clients:       clients,
		failThreshold: failThreshold,
	}, nil
}

func (m *MultiClient) BaseURL() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.clients[m.index].baseURL
}

func (m *MultiClient) GetPaymentDetail(ctx context.Context, orderID string) (*models.OrderDetail, error) {
	return call(ctx, m, func(c *Client) (*models.OrderDetail, error) {
		return c.GetPaymentDetail(ctx, orderID)
	})
}

func (m *MultiClient) GetPaymentList(ctx context.Context) (*models.PaymentCatalog, error) {
	return call(ctx, m, func(c *Client) (*models.PaymentCatalog, error) {
		return c.GetPaymentList(ctx)
	})
}

// GetHowToPay uses an absolute URL, so any endpoint's http client will do.
func (m *MultiClient) GetHowToPay(ctx context.Context, rawURL string) (*models.HowToPay, error) {
	client, _ := m.currentClient()
	return client.GetHowToPay(ctx, rawURL)
}

func (m *MultiClient) GetTournament(ctx context.Context, id string) (*models.Tournament, error) {
	return call(ctx, m, func(c *Client) (*models.Tournament, error) {
		return c.GetTournament(ctx, id)
	})
}

func call[T any](ctx context.Context, m *MultiClient, do func(*Client) (T, error)) (T, error) {
	var (
		zero    T
		lastErr error
	)
	for attempts := 0; attempts < len(m.clients); attempts++ {
		client, idx := m.currentClient()
		out, err := do(client)
		if err == nil {
			m.resetFailures(idx)
			return out, nil
		}
		lastErr = err
		if errors.Is(err, apperr.ErrOrderNotFound) || ctx.Err() != nil {
			return zero, err
		}
		m.noteFailure(idx)
		if !m.shouldRotate() {
			break
		}
		m.rotate()
	}
	return zero, lastErr
}

func (m *MultiClient) currentClient() (*Client, int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.clients[m.index], m.index
}

func (m *MultiClient) resetFailures(idx int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.index == idx {
		m.failCount = 0
	}
}

func (m *MultiClient) noteFailure(idx int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.index == idx {
		m.failCount++
	}
}

func (m *MultiClient) shouldRotate() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.clients) > 1 && m.failCount >= m.failThreshold
}

func (m *MultiClient) rotate() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.index = (m.index + 1) % len(m.clients)
	m.failCount = 0
}

func sanitizeEndpoints(endpoints []string) []string {
	seen := map[string]struct{}{}
	out := make([]string, 0, len(endpoints))
	for _, ep := range endpoints {
		ep = strings.TrimSpace(ep)
		if ep == "" {
			continue
		}
		ep = strings.TrimRight(ep, "/")
		if _, ok := seen[ep]; ok {
			continue
		}
		seen[ep] = struct{}{}
		out = append(out, ep)
	}
	return out
}
