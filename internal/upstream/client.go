// Package upstream talks to the payment backend that owns order, catalog and tournament data.
package upstream

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"ReceiptPoll/internal/apperr"
	"ReceiptPoll/internal/models"
)

const DefaultTimeout = 10 * time.Second

// StatusError is a non-2xx answer from the backend.
type StatusError struct {
	Code int
	Body string
}

func (e *StatusError) Error() string {
	if e.Body != "" {
		return fmt.Sprintf("upstream http status %d: %s", e.Code, e.Body)
	}
	return fmt.Sprintf("upstream http status %d", e.Code)
}

func (e *StatusError) Unwrap() error {
	if e.Code == http.StatusNotFound {
		return errors.Join(apperr.ErrOrderNotFound, apperr.ErrTransport)
	}
	return apperr.ErrTransport
}

type Client struct {
	baseURL string
	client  *http.Client
}

func NewClient(baseURL string, timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		client:  &http.Client{Timeout: timeout},
	}
}

func (c *Client) BaseURL() string {
	return c.baseURL
}

func (c *Client) GetPaymentDetail(ctx context.Context, orderID string) (*models.OrderDetail, error) {
	const fn = "upstream.GetPaymentDetail"

	var out models.OrderDetail
	if err := c.getJSON(ctx, c.baseURL+"/payment/"+url.PathEscape(orderID), &out); err != nil {
		return nil, fmt.Errorf("%s: %w", fn, err)
	}
	return &out, nil
}

func (c *Client) GetPaymentList(ctx context.Context) (*models.PaymentCatalog, error) {
	const fn = "upstream.GetPaymentList"

	var out models.PaymentCatalog
	if err := c.getJSON(ctx, c.baseURL+"/payment/list", &out); err != nil {
		return nil, fmt.Errorf("%s: %w", fn, err)
	}
	return &out, nil
}

// GetHowToPay fetches the instruction document at the absolute URL carried by the order.
func (c *Client) GetHowToPay(ctx context.Context, rawURL string) (*models.HowToPay, error) {
	const fn = "upstream.GetHowToPay"

	u, err := url.Parse(rawURL)
	if err != nil || !u.IsAbs() {
		return nil, fmt.Errorf("%s: invalid url %q: %w", fn, rawURL, apperr.ErrTransport)
	}
	var out models.HowToPay
	if err := c.getJSON(ctx, u.String(), &out); err != nil {
		return nil, fmt.Errorf("%s: %w", fn, err)
	}
	return &out, nil
}

func (c *Client) GetTournament(ctx context.Context, id string) (*models.Tournament, error) {
	const fn = "upstream.GetTournament"

	var out models.Tournament
	if err := c.getJSON(ctx, c.baseURL+"/play/"+url.PathEscape(id), &out); err != nil {
		return nil, fmt.Errorf("%s: %w", fn, err)
	}
	return &out, nil
}

func (c *Client) getJSON(ctx context.Context, endpoint string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return fmt.Errorf("%w: %w", apperr.ErrTransport, err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %w", apperr.ErrTransport, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return &StatusError{Code: resp.StatusCode, Body: strings.TrimSpace(string(body))}
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("%w: decode: %w", apperr.ErrTransport, err)
	}
	return nil
}
