package consumer

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"quiklii/internal/notifier/hub"
	orderdto "quiklii/internal/order/domain/dto"
	paymentdto "quiklii/internal/payment/domain/dto"
	"quiklii/internal/xpkg/logger"
	"quiklii/internal/xpkg/rabbitmq"

	amqp "github.com/rabbitmq/amqp091-go"
)

const (
	EventOrderStatusUpdated   = "order_status_updated"
	EventPaymentStatusUpdated = "payment_status_updated"
)

// Consumer feeds broker events into the hub. Every notifier instance runs
// its own queue consumers, so a session is served regardless of which
// process handled the originating mutation.
type Consumer struct {
	rmq      *rabbitmq.RabbitMQ
	h        *hub.Hub
	prefetch int
	mylog    logger.Logger
	wg       sync.WaitGroup
}

func New(rmq *rabbitmq.RabbitMQ, h *hub.Hub, prefetch int, mylog logger.Logger) *Consumer {
	return &Consumer{
		rmq:      rmq,
		h:        h,
		prefetch: prefetch,
		mylog:    mylog,
	}
}

// Run consumes both event streams until ctx is cancelled.
func (c *Consumer) Run(ctx context.Context) error {
	if err := c.rmq.DeclareQueue(rabbitmq.NotifierOrderQueue, rabbitmq.OrderEventsExchange, "order.status.*"); err != nil {
		return fmt.Errorf("declare order events queue: %w", err)
	}
	if err := c.rmq.DeclareQueue(rabbitmq.NotifierPaymentQueue, rabbitmq.PaymentEventsExchange, "payment.status.*"); err != nil {
		return fmt.Errorf("declare payment events queue: %w", err)
	}

	orderCh, err := c.rmq.Consume(ctx, rabbitmq.NotifierOrderQueue, "", c.prefetch)
	if err != nil {
		return fmt.Errorf("consume order events: %w", err)
	}
	paymentCh, err := c.rmq.Consume(ctx, rabbitmq.NotifierPaymentQueue, "", c.prefetch)
	if err != nil {
		return fmt.Errorf("consume payment events: %w", err)
	}

	c.mylog.Action("consumer_started").Info("Consuming status events")
	c.work(ctx, orderCh, paymentCh)
	c.wg.Wait()
	return nil
}

func (c *Consumer) work(ctx context.Context, orderCh, paymentCh <-chan amqp.Delivery) {
	for {
		select {
		case <-ctx.Done():
			c.mylog.Action("consumer_stopped").Info("Stopping event consumption")
			return

		case msg, ok := <-orderCh:
			if !ok {
				return
			}
			c.dispatch(msg, c.routeOrderEvent)

		case msg, ok := <-paymentCh:
			if !ok {
				return
			}
			c.dispatch(msg, c.routePaymentEvent)
		}
	}
}

func (c *Consumer) dispatch(msg amqp.Delivery, route func([]byte) error) {
	c.wg.Add(1)
	go func() {
		defer c.wg.Done()

		if err := route(msg.Body); err != nil {
			c.mylog.Action("event_rejected").Error("Failed to route event", err)
			// Malformed events go to the dead-letter exchange.
			if nackErr := msg.Nack(false, false); nackErr != nil {
				c.mylog.Action("nack_failed").Error("Failed to nack event", nackErr)
			}
			return
		}

		if err := msg.Ack(false); err != nil {
			c.mylog.Action("ack_failed").Error("Failed to ack event", err)
		}
	}()
}

func (c *Consumer) routeOrderEvent(body []byte) error {
	var event orderdto.StatusChangedEvent
	if err := json.Unmarshal(body, &event); err != nil {
		return fmt.Errorf("unmarshal order event: %w", err)
	}

	c.h.Publish(hub.RoomForOrder(event.OrderID), EventOrderStatusUpdated, body)
	c.h.Publish(hub.RoomForUser(event.UserID), EventOrderStatusUpdated, body)

	c.mylog.Action("order_event_routed").Debug("Order status delivered",
		"order_id", event.OrderID, "new_status", event.NewStatus)
	return nil
}

func (c *Consumer) routePaymentEvent(body []byte) error {
	var event paymentdto.StatusChangedEvent
	if err := json.Unmarshal(body, &event); err != nil {
		return fmt.Errorf("unmarshal payment event: %w", err)
	}

	c.h.Publish(hub.RoomForOrder(event.OrderID), EventPaymentStatusUpdated, body)
	c.h.Publish(hub.RoomForUser(event.UserID), EventPaymentStatusUpdated, body)

	c.mylog.Action("payment_event_routed").Debug("Payment status delivered",
		"order_id", event.OrderID, "new_status", event.NewStatus)
	return nil
}
