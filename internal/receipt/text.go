package receipt

import (
	"fmt"
	"strings"

	"github.com/fatih/color"

	"ReceiptPoll/internal/instructions"
	"ReceiptPoll/internal/status"
)

const width = 40

// Text renders r for a terminal. colored switches on ANSI highlighting of the status
// and of emphasised instruction text.
func Text(r *Receipt, colored bool) string {
	if r == nil {
		return ""
	}

	statusColor := color.New(color.Bold)
	strong := color.New(color.Bold)
	switch r.Class {
	case status.Succeeded:
		statusColor.Add(color.FgGreen)
	case status.Pending:
		statusColor.Add(color.FgYellow)
	default:
		statusColor.Add(color.FgRed)
	}
	if colored {
		statusColor.EnableColor()
		strong.EnableColor()
	} else {
		statusColor.DisableColor()
		strong.DisableColor()
	}

	var lines []string
	lines = append(lines, strings.Repeat("═", width))
	lines = append(lines, center("PAYMENT RECEIPT"))
	lines = append(lines, strings.Repeat("═", width))
	lines = append(lines, fmt.Sprintf("Order: %s", r.OrderID))
	if r.Detail != nil && r.Detail.ItemName != "" {
		lines = append(lines, fmt.Sprintf("Item: %s", r.Detail.ItemName))
	}
	if r.Status != "" {
		lines = append(lines, fmt.Sprintf("Status: %s (%s)", statusColor.Sprint(r.Class.String()), r.Status))
	} else {
		lines = append(lines, fmt.Sprintf("Status: %s", statusColor.Sprint("unknown")))
	}
	if r.Error != "" {
		lines = append(lines, fmt.Sprintf("Last fetch failed: %s", r.Error))
	}
	if r.Detail != nil && r.Detail.PaymentMethod != "" {
		lines = append(lines, fmt.Sprintf("Payment: %s", r.Detail.PaymentMethod))
	}
	if r.IsVirtualAccount && r.Detail != nil && r.Detail.VANumber != nil {
		lines = append(lines, fmt.Sprintf("VA Number: %s", *r.Detail.VANumber))
	}
	lines = append(lines, strings.Repeat("─", width))

	for _, l := range r.Lines {
		if l.Label == "Total" {
			lines = append(lines, strings.Repeat("─", width))
		}
		lines = append(lines, row(l.Label, l.Amount))
	}

	if r.Tournament != nil {
		lines = append(lines, strings.Repeat("─", width))
		started := "not started"
		if r.Tournament.Started {
			started = "started"
		}
		lines = append(lines, fmt.Sprintf("Tournament: %s", started))
	}

	if len(r.Instructions) > 0 {
		lines = append(lines, strings.Repeat("─", width))
		lines = append(lines, "How to pay:")
		for i, step := range r.Instructions {
			lines = append(lines, fmt.Sprintf("%d. %s", i+1, joinSegments(step, strong)))
		}
	}

	lines = append(lines, strings.Repeat("═", width))
	return strings.Join(lines, "\n")
}

func row(label, amount string) string {
	pad := width - len([]rune(label)) - len([]rune(amount))
	if pad < 1 {
		pad = 1
	}
	return label + strings.Repeat(" ", pad) + amount
}

func center(s string) string {
	pad := (width - len(s)) / 2
	if pad < 0 {
		pad = 0
	}
	return strings.Repeat(" ", pad) + s
}

func joinSegments(segs []instructions.Segment, strong *color.Color) string {
	var b strings.Builder
	for _, s := range segs {
		if s.Strong {
			b.WriteString(strong.Sprint(s.Text))
			continue
		}
		b.WriteString(s.Text)
	}
	return b.String()
}
