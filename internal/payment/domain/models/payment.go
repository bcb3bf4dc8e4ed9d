package models

import "time"

type PaymentStatus string

const (
	PaymentPending    PaymentStatus = "pending"
	PaymentProcessing PaymentStatus = "processing"
	PaymentCompleted  PaymentStatus = "completed"
	PaymentFailed     PaymentStatus = "failed"
	PaymentCancelled  PaymentStatus = "cancelled"
	PaymentRefunded   PaymentStatus = "refunded"
)

// Terminal statuses make later provider callbacks no-ops. The refund path
// is the single exception: it moves completed to refunded.
func (s PaymentStatus) Terminal() bool {
	switch s {
	case PaymentCompleted, PaymentFailed, PaymentCancelled, PaymentRefunded:
		return true
	}
	return false
}

type Provider string

const (
	ProviderInternal    Provider = "internal"
	ProviderWompi       Provider = "wompi"
	ProviderMercadoPago Provider = "mercadopago"
)

func ValidProvider(p Provider) bool {
	switch p {
	case ProviderInternal, ProviderWompi, ProviderMercadoPago:
		return true
	}
	return false
}

var currencies = map[string]bool{
	"COP": true,
	"USD": true,
	"EUR": true,
}

func ValidCurrency(code string) bool {
	return currencies[code]
}

// Payment is one settlement attempt for an order. Amount is integer minor
// units; amount and currency are stored as received, no conversion.
type Payment struct {
	ID              string        `json:"id"`
	OrderID         int64         `json:"order_id"`
	UserID          int64         `json:"user_id"`
	Amount          int64         `json:"amount"`
	Currency        string        `json:"currency"`
	Method          string        `json:"method"`
	Provider        Provider      `json:"provider"`
	Status          PaymentStatus `json:"status"`
	Reference       string        `json:"reference"`
	ProviderTxnID   string        `json:"provider_txn_id,omitempty"`
	ProviderPayload []byte        `json:"-"`
	ErrorMessage    string        `json:"error_message,omitempty"`
	ProcessedAt     *time.Time    `json:"processed_at,omitempty"`
	CreatedAt       time.Time     `json:"created_at"`
	UpdatedAt       time.Time     `json:"updated_at"`
}

type RefundStatus string

const (
	RefundPending   RefundStatus = "pending"
	RefundSucceeded RefundStatus = "succeeded"
	RefundFailed    RefundStatus = "failed"
)

// RefundIntent is the compensating-transaction record for cancel-after-
// capture; the sweep retries it until it settles or exhausts attempts.
type RefundIntent struct {
	ID        string       `json:"id"`
	PaymentID string       `json:"payment_id"`
	OrderID   int64        `json:"order_id"`
	Amount    int64        `json:"amount"`
	Status    RefundStatus `json:"status"`
	Attempts  int          `json:"attempts"`
	LastError string       `json:"last_error,omitempty"`
	Reason    string       `json:"reason,omitempty"`
	CreatedAt time.Time    `json:"created_at"`
	UpdatedAt time.Time    `json:"updated_at"`
}
