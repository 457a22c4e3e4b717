// Package instructions extracts and marks up the how-to-pay steps of an order.
package instructions

import (
	"strings"

	"ReceiptPoll/internal/models"
)

// Steps returns the steps of the first instruction block. A payload without
// instruction blocks yields nil.
func Steps(h *models.HowToPay) []string {
	if h == nil || len(h.PaymentInstruction) == 0 {
		return nil
	}
	return h.PaymentInstruction[0].Step
}

// Malformed reports a payload that carries no usable instruction block.
func Malformed(h *models.HowToPay) bool {
	return h == nil || len(h.PaymentInstruction) == 0
}

type Segment struct {
	Text   string `json:"text"`
	Strong bool   `json:"strong,omitempty"`
}

// Emphasize splits step on double quotes. Quoted text becomes a Strong segment
// without its quotes. An unterminated quote runs to the end of the step as plain text.
func Emphasize(step string) []Segment {
	parts := strings.Split(step, `"`)
	if len(parts)%2 == 0 {
		last := len(parts) - 1
		parts[last-1] = parts[last-1] + `"` + parts[last]
		parts = parts[:last]
	}

	out := make([]Segment, 0, len(parts))
	for i, p := range parts {
		if p == "" {
			continue
		}
		out = append(out, Segment{Text: p, Strong: i%2 == 1})
	}
	return out
}

// Markup returns Emphasize for every step.
func Markup(steps []string) [][]Segment {
	if len(steps) == 0 {
		return nil
	}
	out := make([][]Segment, len(steps))
	for i, s := range steps {
		out[i] = Emphasize(s)
	}
	return out
}
