package broker

import (
	"context"
	"encoding/json"
	"fmt"

	"quiklii/internal/order/app/core"
	"quiklii/internal/order/domain/dto"
	"quiklii/internal/xpkg/logger"
	"quiklii/internal/xpkg/rabbitmq"
)

type Publisher struct {
	rmq   *rabbitmq.RabbitMQ
	mylog logger.Logger
}

func NewPublisher(rmq *rabbitmq.RabbitMQ, mylog logger.Logger) core.IEventPublisher {
	return &Publisher{rmq: rmq, mylog: mylog}
}

func (p *Publisher) Close() error {
	return p.rmq.Close()
}

// PublishStatusChanged routes the event as order.status.<new_status>, so
// consumers can bind to all transitions or to a single status.
func (p *Publisher) PublishStatusChanged(_ context.Context, event dto.StatusChangedEvent) error {
	body, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("marshal status event: %w", err)
	}

	routingKey := fmt.Sprintf("order.status.%s", event.NewStatus)
	if err := p.rmq.Publish(rabbitmq.OrderEventsExchange, routingKey, body); err != nil {
		return fmt.Errorf("publish status event: %w", err)
	}

	p.mylog.Action("status_event_published").Debug("Status update published",
		"order_id", event.OrderID, "new_status", event.NewStatus)
	return nil
}
