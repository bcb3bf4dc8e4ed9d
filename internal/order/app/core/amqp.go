package core

import (
	"context"

	"quiklii/internal/order/domain/dto"
)

type IEventPublisher interface {
	Close() error
	PublishStatusChanged(ctx context.Context, event dto.StatusChangedEvent) error
}

// IRefundRequester records a compensating refund intent with the payment
// service when a captured order is cancelled.
type IRefundRequester interface {
	RequestRefund(ctx context.Context, orderID int64, reason string) error
}
