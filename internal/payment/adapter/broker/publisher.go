package broker

import (
	"context"
	"encoding/json"
	"fmt"

	"quiklii/internal/payment/app/core"
	"quiklii/internal/payment/domain/dto"
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

func (p *Publisher) PublishStatusChanged(_ context.Context, event dto.StatusChangedEvent) error {
	body, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("marshal payment event: %w", err)
	}

	routingKey := fmt.Sprintf("payment.status.%s", event.NewStatus)
	if err := p.rmq.Publish(rabbitmq.PaymentEventsExchange, routingKey, body); err != nil {
		return fmt.Errorf("publish payment event: %w", err)
	}

	p.mylog.Action("payment_event_published").Debug("Payment update published",
		"payment_id", event.PaymentID, "new_status", event.NewStatus)
	return nil
}
