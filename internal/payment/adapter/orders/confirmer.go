package orders

import (
	"context"

	ordercore "quiklii/internal/order/app/core"
	orderservices "quiklii/internal/order/app/services"
	orderdto "quiklii/internal/order/domain/dto"
	ordermodels "quiklii/internal/order/domain/models"
	"quiklii/internal/payment/app/core"
	"quiklii/internal/xpkg/auth"
	"quiklii/internal/xpkg/errs"
	"quiklii/internal/xpkg/logger"
)

// Confirmer is the payment service's gateway into order state. It reuses the
// order service so role checks, CAS, and event emission stay in one place.
type Confirmer struct {
	orders *orderservices.OrderService
	mylog  logger.Logger
}

func NewConfirmer(orderRepo ordercore.IOrderRepo, orderEvents ordercore.IEventPublisher, mylog logger.Logger) core.IOrderGateway {
	svc := orderservices.NewOrderService(orderRepo, orderEvents, noRefunds{}, mylog)
	return &Confirmer{orders: svc, mylog: mylog}
}

// CheckPayable gates a new payment attempt on order state: the order must
// exist and still be pending.
func (c *Confirmer) CheckPayable(ctx context.Context, orderID int64) error {
	order, err := c.orders.Get(ctx, orderID)
	if err != nil {
		return err
	}
	if order.Status != ordermodels.StatusPending {
		return errs.Conflict("order %d is %s and cannot accept a payment", orderID, order.Status)
	}
	return nil
}

func (c *Confirmer) ConfirmOnPayment(ctx context.Context, orderID int64) error {
	system := auth.Claims{Role: auth.RoleSystem}

	// One reload on version conflict; beyond that the state genuinely moved.
	for attempt := 0; attempt < 2; attempt++ {
		order, err := c.orders.Get(ctx, orderID)
		if err != nil {
			return err
		}
		if order.Status == ordermodels.StatusConfirmed {
			return nil
		}

		_, err = c.orders.Transition(ctx, system, orderID, orderdto.TransitionRequest{
			Status:  ordermodels.StatusConfirmed,
			Version: order.Version,
			Note:    "payment completed",
		})
		if err == nil {
			return nil
		}
		if errs.IsKind(err, errs.KindConflict) {
			continue
		}
		return err
	}

	return errs.Conflict("order %d kept moving during payment confirmation", orderID)
}

// noRefunds satisfies the order service's refund dependency; confirmation
// never cancels, so it is unreachable here.
type noRefunds struct{}

func (noRefunds) RequestRefund(context.Context, int64, string) error { return nil }
