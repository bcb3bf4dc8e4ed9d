package dto

import (
	"time"

	"quiklii/internal/payment/domain/models"
)

type InitiatePaymentRequest struct {
	OrderID  int64           `json:"order_id"`
	Amount   int64           `json:"amount"`
	Currency string          `json:"currency"`
	Method   string          `json:"method"`
	Provider models.Provider `json:"provider"`
}

type InitiatePaymentResponse struct {
	PaymentID string               `json:"payment_id"`
	Reference string               `json:"reference"`
	Status    models.PaymentStatus `json:"status"`
}

type RefundRequest struct {
	OrderID int64  `json:"order_id"`
	Reason  string `json:"reason,omitempty"`
}

// StatusChangedEvent is published on every payment status change and fanned
// out to realtime sessions as "payment_status_updated".
type StatusChangedEvent struct {
	PaymentID      string               `json:"payment_id"`
	OrderID        int64                `json:"order_id"`
	UserID         int64                `json:"user_id"`
	PreviousStatus models.PaymentStatus `json:"previous_status"`
	NewStatus      models.PaymentStatus `json:"new_status"`
	Timestamp      time.Time            `json:"timestamp"`
}
