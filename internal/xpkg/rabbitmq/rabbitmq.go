package rabbitmq

import (
	"context"
	"fmt"
	"sync"
	"time"

	"quiklii/internal/xpkg/config"
	"quiklii/internal/xpkg/errs"
	"quiklii/internal/xpkg/logger"

	amqp "github.com/rabbitmq/amqp091-go"
)

const (
	OrderEventsExchange   = "order_events"
	PaymentEventsExchange = "payment_events"
	DeadLetterExchange    = "dlx"

	NotifierOrderQueue   = "notifier_order_events"
	NotifierPaymentQueue = "notifier_payment_events"
)

type RabbitMQ struct {
	cfg   *config.RabbitMQ
	conn  *amqp.Connection
	ch    *amqp.Channel
	mylog logger.Logger
	mu    sync.Mutex
}

// Connect dials RabbitMQ and declares the exchanges both publishers and the
// notifier rely on. Queue declaration is left to consumers.
func Connect(cfg *config.RabbitMQ, mylog logger.Logger) (*RabbitMQ, error) {
	r := &RabbitMQ{cfg: cfg, mylog: mylog}
	if err := r.connect(); err != nil {
		return nil, err
	}

	mylog.Action("mb_connected").Info("Connected to RabbitMQ")
	return r, nil
}

func (r *RabbitMQ) connect() error {
	conn, err := amqp.Dial(fmt.Sprintf("amqp://%s:%s@%s:%s/%s",
		r.cfg.User, r.cfg.Password, r.cfg.Host, r.cfg.Port, r.cfg.VHost))
	if err != nil {
		return fmt.Errorf("%w: %v", errs.ErrBrokerConn, err)
	}

	ch, err := conn.Channel()
	if err != nil {
		conn.Close()
		return fmt.Errorf("%w: channel: %v", errs.ErrBrokerConn, err)
	}

	err = ch.ExchangeDeclare(
		OrderEventsExchange, // name
		"topic",             // type
		true,                // durable
		false,               // auto-deleted
		false,               // internal
		false,               // no-wait
		nil,                 // arguments
	)
	if err != nil {
		conn.Close()
		return err
	}

	err = ch.ExchangeDeclare(
		PaymentEventsExchange, // name
		"topic",               // type
		true,                  // durable
		false,                 // auto-deleted
		false,                 // internal
		false,                 // no-wait
		nil,                   // arguments
	)
	if err != nil {
		conn.Close()
		return err
	}

	err = ch.ExchangeDeclare(
		DeadLetterExchange, // name
		"fanout",           // type
		true,               // durable
		false,              // auto-deleted
		false,              // internal
		false,              // no-wait
		nil,                // arguments
	)
	if err != nil {
		conn.Close()
		return err
	}

	r.conn = conn
	r.ch = ch
	return nil
}

func (r *RabbitMQ) IsAlive() bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.conn == nil || r.conn.IsClosed() {
		return false
	}
	if r.ch == nil || r.ch.IsClosed() {
		return false
	}
	return true
}

func (r *RabbitMQ) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.ch != nil && !r.ch.IsClosed() {
		if err := r.ch.Close(); err != nil {
			return fmt.Errorf("close rabbitmq channel: %w", err)
		}
	}
	if r.conn != nil && !r.conn.IsClosed() {
		if err := r.conn.Close(); err != nil {
			return fmt.Errorf("close rabbitmq connection: %w", err)
		}
	}
	return nil
}

func (r *RabbitMQ) Publish(exchange, routingKey string, body []byte) error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	return r.ch.PublishWithContext(ctx,
		exchange,   // exchange
		routingKey, // routing key
		false,      // mandatory
		false,      // immediate
		amqp.Publishing{
			DeliveryMode: amqp.Persistent,
			ContentType:  "application/json",
			Body:         body,
			Timestamp:    time.Now(),
		})
}

// DeclareQueue declares a durable queue bound to exchange with the given
// routing key, dead-lettering rejects to the dlx exchange.
func (r *RabbitMQ) DeclareQueue(queue, exchange, routingKey string) error {
	_, err := r.ch.QueueDeclare(
		queue, // name
		true,  // durable
		false, // delete when unused
		false, // exclusive
		false, // no-wait
		amqp.Table{
			"x-dead-letter-exchange": DeadLetterExchange,
		},
	)
	if err != nil {
		return err
	}

	return r.ch.QueueBind(
		queue,      // queue name
		routingKey, // routing key
		exchange,   // exchange
		false,      // no-wait
		nil,        // arguments
	)
}

func (r *RabbitMQ) Consume(ctx context.Context, queue, consumer string, prefetch int) (<-chan amqp.Delivery, error) {
	if err := r.ch.Qos(prefetch, 0, false); err != nil {
		return nil, err
	}
	return r.ch.ConsumeWithContext(ctx, queue, consumer, false, false, false, false, nil)
}
