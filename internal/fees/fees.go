// Package fees selects the catalog descriptor for an order and derives the receipt fee lines.
// Everything here is pure: no I/O, no caching between calls.
package fees

import (
	"github.com/shopspring/decimal"

	"ReceiptPoll/internal/currency"
	"ReceiptPoll/internal/models"
)

type Category string

const (
	CategoryQRIS    Category = "qris"
	CategoryEWallet Category = "ewallet"
	CategoryVA      Category = "va"
)

// SelectPaymentMethod finds the descriptor for method among the listed categories.
// The generic QRIS channel always resolves to the first QRIS entry. For every other
// method exactly one category must match; no match or an ambiguous match returns false.
func SelectPaymentMethod(method string, catalog models.PaymentCatalog, categories []Category) (*models.PaymentMethod, bool) {
	if method == models.QRISMethod {
		if len(catalog.QRIS) == 0 {
			return nil, false
		}
		m := catalog.QRIS[0]
		return &m, true
	}

	var (
		found   *models.PaymentMethod
		matched int
	)
	for _, c := range categories {
		list := listFor(catalog, c)
		for i := range list {
			if list[i].PaymentMethod == method {
				if matched == 0 {
					m := list[i]
					found = &m
				}
				matched++
				break
			}
		}
	}
	if matched != 1 {
		return nil, false
	}
	return found, true
}

func listFor(catalog models.PaymentCatalog, c Category) []models.PaymentMethod {
	switch c {
	case CategoryEWallet:
		return catalog.EWallet
	case CategoryVA:
		return catalog.VA
	default:
		// QRIS is only reachable through the generic channel.
		return nil
	}
}

type Breakdown struct {
	BaseAmount   decimal.Decimal  `json:"baseAmount"`
	AdminFee     decimal.Decimal  `json:"adminFee"`
	ServiceFee   decimal.Decimal  `json:"serviceFee"`
	DiscountFee  *decimal.Decimal `json:"discountFee,omitempty"`
	CoinDiscount *decimal.Decimal `json:"coinDiscount,omitempty"`
	TotalAmount  decimal.Decimal  `json:"totalAmount"`

	gross decimal.Decimal
}

// ComputeFees never fails. A nil method yields zero fees and no discount lines.
func ComputeFees(order models.OrderDetail, method *models.PaymentMethod) Breakdown {
	var admin, service, promo decimal.Decimal
	var discount *decimal.Decimal

	if method != nil {
		admin = method.AdminFee
		service = method.ServiceFee
		if method.IsPromoAvailable {
			promo = method.PromoPrice
			d := promo
			discount = &d
		}
	}

	gross := order.GrossAmount
	fees := admin.Add(service)

	base := decimal.Zero
	if !gross.IsZero() {
		base = gross.Sub(fees).Add(promo)
		if base.IsNegative() {
			base = decimal.Zero
		}
	}

	var coin *decimal.Decimal
	if shortfall := fees.Sub(gross).Sub(promo); shortfall.IsPositive() {
		coin = &shortfall
	}

	return Breakdown{
		BaseAmount:   base,
		AdminFee:     admin,
		ServiceFee:   service,
		DiscountFee:  discount,
		CoinDiscount: coin,
		TotalAmount:  gross,
		gross:        gross,
	}
}

type Line struct {
	Label    string `json:"label"`
	Amount   string `json:"amount"`
	Discount bool   `json:"discount,omitempty"`
}

// Lines renders the display rows. Fee and discount rows only appear for a positive gross
// amount, and a fee row is skipped when that fee is zero.
func (b Breakdown) Lines(cur string) []Line {
	lines := []Line{{Label: "Price", Amount: currency.Format(b.BaseAmount, cur)}}

	if b.gross.IsPositive() {
		if b.AdminFee.IsPositive() {
			lines = append(lines, Line{Label: "Admin Fee", Amount: currency.Format(b.AdminFee, cur)})
		}
		if b.ServiceFee.IsPositive() {
			lines = append(lines, Line{Label: "Service Fee", Amount: currency.Format(b.ServiceFee, cur)})
		}
		if b.DiscountFee != nil {
			lines = append(lines, discountLine("Discount", *b.DiscountFee, cur))
		}
		if b.CoinDiscount != nil {
			lines = append(lines, discountLine("Coin Discount", *b.CoinDiscount, cur))
		}
	}

	return append(lines, Line{Label: "Total", Amount: currency.Format(b.TotalAmount, cur)})
}

func discountLine(label string, amount decimal.Decimal, cur string) Line {
	return Line{Label: label, Amount: "- " + currency.Format(amount, cur), Discount: true}
}
