package core

import (
	"context"
	"time"

	"quiklii/internal/payment/domain/dto"
	"quiklii/internal/payment/domain/models"
)

type IPaymentRepo interface {
	Create(ctx context.Context, payment *models.Payment) (*models.Payment, error)
	GetByID(ctx context.Context, paymentID string) (*models.Payment, error)
	GetByReference(ctx context.Context, reference string) (*models.Payment, error)
	// GetCurrentByOrder returns the single non-terminal payment for the
	// order, or NotFound when every attempt has settled.
	GetCurrentByOrder(ctx context.Context, orderID int64) (*models.Payment, error)
	GetLatestByOrder(ctx context.Context, orderID int64) (*models.Payment, error)
	UpdateStatus(ctx context.Context, paymentID string, status models.PaymentStatus, txnID string, payload []byte, errorMessage string, processedAt time.Time) (*models.Payment, error)

	CreateRefundIntent(ctx context.Context, intent *models.RefundIntent) (*models.RefundIntent, error)
	PendingRefundIntents(ctx context.Context, maxAttempts int) ([]models.RefundIntent, error)
	UpdateRefundIntent(ctx context.Context, intent *models.RefundIntent) error
}

type IEventPublisher interface {
	Close() error
	PublishStatusChanged(ctx context.Context, event dto.StatusChangedEvent) error
}

// IOrderGateway is the payment service's view of orders: gate new payment
// attempts on order state, and confirm the order once its payment completes.
type IOrderGateway interface {
	CheckPayable(ctx context.Context, orderID int64) error
	ConfirmOnPayment(ctx context.Context, orderID int64) error
}

// IRefundExecutor performs the provider-side refund for a captured payment.
type IRefundExecutor interface {
	Refund(ctx context.Context, payment *models.Payment, amount int64) error
}
