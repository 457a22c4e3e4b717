package models

import (
	"time"

	"github.com/shopspring/decimal"
)

type TransactionStatus string

const (
	StatusPending    TransactionStatus = "PENDING"
	StatusCreated    TransactionStatus = "CREATED"
	StatusSuccess    TransactionStatus = "SUCCESS"
	StatusSettlement TransactionStatus = "SETTLEMENT"
	StatusSucceeded  TransactionStatus = "SUCCEEDED"
	StatusFailed     TransactionStatus = "FAILED"
	StatusExpired    TransactionStatus = "EXPIRED"
)

// QRISMethod is the generic QRIS channel. QRIS descriptors are not keyed per method.
const QRISMethod = "OTHER_QRIS"

// OrderDetail is the upstream snapshot of one purchase. It is replaced wholesale on every fetch.
type OrderDetail struct {
	Currency          string          `json:"currency"`
	GrossAmount       decimal.Decimal `json:"grossAmount"`
	OrderID           string          `json:"orderId"`
	ItemID            string          `json:"itemId"`
	ItemName          string          `json:"itemName"`
	MerchantID        string          `json:"merchantId"`
	Quantity          int             `json:"quantity,omitempty"`
	TransactionID     string          `json:"transactionId"`
	PaymentMethod     string          `json:"paymentMethod"`
	PaymentGateway    string          `json:"paymentGateway"`
	TransactionStatus string          `json:"transactionStatus"`
	VANumber          *string         `json:"vaNumber,omitempty"`
	HowToPayAPI       string          `json:"howToPayApi,omitempty"`
}

func (o OrderDetail) IsVirtualAccount() bool {
	return o.VANumber != nil
}

type PaymentMethod struct {
	ID                string          `json:"id"`
	PaymentMethod     string          `json:"payment_method"`
	PaymentGateway    string          `json:"payment_gateway"`
	PaymentType       string          `json:"payment_type"`
	LogoURL           string          `json:"logo_url"`
	AdminFee          decimal.Decimal `json:"admin_fee"`
	ServiceFee        decimal.Decimal `json:"service_fee"`
	IsPromoAvailable  bool            `json:"is_promo_available"`
	PromoPrice        decimal.Decimal `json:"promo_price"`
	IsActive          bool            `json:"is_active"`
	IsPriority        bool            `json:"is_priority"`
	MinimumWithdrawal decimal.Decimal `json:"minimum_withdrawal"`
}

type PaymentCatalog struct {
	QRIS    []PaymentMethod `json:"type_qris"`
	EWallet []PaymentMethod `json:"type_ewallet"`
	VA      []PaymentMethod `json:"type_va"`
}

type PaymentInstruction struct {
	Step []string `json:"step"`
}

type HowToPay struct {
	PaymentInstruction []PaymentInstruction `json:"payment_instruction"`
}

type Tournament struct {
	ID       string     `json:"id"`
	Name     string     `json:"name"`
	PlayTime *time.Time `json:"play_time,omitempty"`
}

type Watch struct {
	WatchID    string    `json:"watchId"`
	OrderID    string    `json:"orderId"`
	Flow       string    `json:"flow"`
	LastStatus string    `json:"lastStatus,omitempty"`
	Active     bool      `json:"active"`
	CreatedAt  time.Time `json:"createdAt"`
	UpdatedAt  time.Time `json:"updatedAt"`
}

type JournalEntry struct {
	OrderID    string    `json:"orderId"`
	Flow       string    `json:"flow"`
	FromStatus string    `json:"fromStatus"`
	ToStatus   string    `json:"toStatus"`
	Class      string    `json:"class"`
	ObservedAt time.Time `json:"observedAt"`
}
