// Package receipt assembles the receipt view of an order from the upstream reads.
package receipt

import (
	"context"
	"fmt"
	"time"

	"ReceiptPoll/internal/apperr"
	"ReceiptPoll/internal/fees"
	"ReceiptPoll/internal/flow"
	"ReceiptPoll/internal/instructions"
	"ReceiptPoll/internal/models"
	"ReceiptPoll/internal/status"
)

type Receipt struct {
	OrderID          string                   `json:"orderId"`
	Flow             string                   `json:"flow"`
	Detail           *models.OrderDetail      `json:"detail"`
	Status           string                   `json:"status"`
	Class            status.Class             `json:"class"`
	Terminal         bool                     `json:"terminal"`
	Method           *models.PaymentMethod    `json:"method,omitempty"`
	Fees             fees.Breakdown           `json:"fees"`
	Lines            []fees.Line              `json:"lines"`
	Steps            []string                 `json:"steps,omitempty"`
	Instructions     [][]instructions.Segment `json:"instructions,omitempty"`
	IsVirtualAccount bool                     `json:"isVirtualAccount"`
	Tournament       *TournamentInfo          `json:"tournament,omitempty"`
	ResolvedAt       time.Time                `json:"resolvedAt"`
	// Error is the kind of the last failed order read, if any.
	Error            string                   `json:"error,omitempty"`
}

// parts is what the side reads produced for one order. Any field may be missing.
type parts struct {
	catalog    *models.PaymentCatalog
	howToURL   string
	howTo      *models.HowToPay
	tournament *models.Tournament
}

// unresolved is the receipt of an order whose detail has never been read.
func unresolved(orderID string, profile flow.Profile, now time.Time) *Receipt {
	return &Receipt{
		OrderID:    orderID,
		Flow:       profile.Name,
		Class:      profile.Policy.Classify(""),
		ResolvedAt: now,
	}
}

// assemble is pure apart from reporting degraded reads to sink.
func assemble(ctx context.Context, sink apperr.Sink, profile flow.Profile, detail *models.OrderDetail, p parts, now time.Time) *Receipt {
	r := &Receipt{
		OrderID:          detail.OrderID,
		Flow:             profile.Name,
		Detail:           detail,
		Status:           detail.TransactionStatus,
		Class:            profile.Policy.Classify(detail.TransactionStatus),
		Terminal:         profile.Policy.Terminal(detail.TransactionStatus),
		IsVirtualAccount: detail.IsVirtualAccount(),
		ResolvedAt:       now,
	}

	if p.catalog != nil {
		method, ok := fees.SelectPaymentMethod(detail.PaymentMethod, *p.catalog, profile.Categories)
		if ok {
			r.Method = method
		} else {
			apperr.Report(ctx, sink, fmt.Errorf("receipt.assemble: order %s method %q: %w",
				detail.OrderID, detail.PaymentMethod, apperr.ErrMethodUnmatched))
		}
	}
	r.Fees = fees.ComputeFees(*detail, r.Method)
	r.Lines = r.Fees.Lines(detail.Currency)

	if p.howTo != nil && p.howToURL == detail.HowToPayAPI {
		if instructions.Malformed(p.howTo) {
			apperr.Report(ctx, sink, fmt.Errorf("receipt.assemble: %s: %w", p.howToURL, apperr.ErrMalformedInstructions))
		}
		r.Steps = instructions.Steps(p.howTo)
		r.Instructions = instructions.Markup(r.Steps)
	}

	if profile.Name == flow.Tournament {
		r.Tournament = tournamentInfo(p.tournament, now)
	}
	return r
}
