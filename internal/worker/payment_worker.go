package worker

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"go.uber.org/zap"

	"github.com/flicky/go-storefront-api/internal/apperr"
	"github.com/flicky/go-storefront-api/internal/model"
)

const (
	paymentQueueName = "payments.status"
	dlxExchange      = "payments.dlx"
	dlqQueueName     = "payments.dlq"
	messageTimeout   = 30 * time.Second
)

// EventHandler applies a processor status change. Duplicate deliveries are
// filtered by the handler.
type EventHandler interface {
	HandleProcessorEvent(ctx context.Context, msg model.PaymentStatusMessage) error
}

// acknowledger is the part of amqp.Delivery the worker settles messages with.
type acknowledger interface {
	Ack(multiple bool) error
	Nack(multiple, requeue bool) error
}

// PaymentWorker consumes payment status messages published by the payment
// processor integration and applies them like the webhook does.
type PaymentWorker struct {
	channel  *amqp.Channel
	handler  EventHandler
	log      *zap.Logger
	done     chan struct{}
	finished chan struct{}
}

func NewPaymentWorker(ch *amqp.Channel, handler EventHandler, log *zap.Logger) *PaymentWorker {
	return &PaymentWorker{
		channel:  ch,
		handler:  handler,
		log:      log.Named("payment_worker"),
		done:     make(chan struct{}),
		finished: make(chan struct{}),
	}
}

// SetupRabbitMQ declares the status queue and its dead letter exchange and
// queue. Messages are delivered one at a time.
func SetupRabbitMQ(ch *amqp.Channel) error {
	if err := ch.ExchangeDeclare(dlxExchange, "direct", true, false, false, false, nil); err != nil {
		return fmt.Errorf("declare DLX: %w", err)
	}
	if _, err := ch.QueueDeclare(dlqQueueName, true, false, false, false, nil); err != nil {
		return fmt.Errorf("declare DLQ: %w", err)
	}
	if err := ch.QueueBind(dlqQueueName, paymentQueueName, dlxExchange, false, nil); err != nil {
		return fmt.Errorf("bind DLQ: %w", err)
	}
	if _, err := ch.QueueDeclare(paymentQueueName, true, false, false, false, amqp.Table{
		"x-dead-letter-exchange":    dlxExchange,
		"x-dead-letter-routing-key": paymentQueueName,
	}); err != nil {
		return fmt.Errorf("declare payment queue: %w", err)
	}
	if err := ch.Qos(1, 0, false); err != nil {
		return fmt.Errorf("set QoS: %w", err)
	}
	return nil
}

func (w *PaymentWorker) Start(ctx context.Context) error {
	msgs, err := w.channel.Consume(paymentQueueName, "", false, false, false, false, nil)
	if err != nil {
		return fmt.Errorf("start consuming: %w", err)
	}

	go func() {
		defer close(w.finished)
		for {
			select {
			case msg, ok := <-msgs:
				if !ok {
					return
				}
				w.processMessage(ctx, msg.Body, msg)
			case <-w.done:
				return
			case <-ctx.Done():
				return
			}
		}
	}()

	w.log.Info("payment worker started", zap.String("queue", paymentQueueName))
	return nil
}

// Stop ends consumption and waits for the message in flight.
func (w *PaymentWorker) Stop() {
	close(w.done)
	<-w.finished
}

// processMessage acks applied messages and ones that can never apply, such
// as an unknown payment. Malformed bodies and failures of the store go to the
// dead letter queue, except during shutdown, when a failed message is
// requeued for the next consumer.
//
// A message in flight is not cut short by shutdown: it runs detached from
// ctx, bounded by messageTimeout.
func (w *PaymentWorker) processMessage(ctx context.Context, body []byte, d acknowledger) {
	var msg model.PaymentStatusMessage
	if err := json.Unmarshal(body, &msg); err != nil {
		w.log.Error("unmarshal payment status message", zap.Error(err))
		_ = d.Nack(false, false)
		return
	}

	log := w.log.With(
		zap.String("event_id", msg.EventID),
		zap.String("payment_id", msg.PaymentID.String()),
		zap.String("status", string(msg.Status)),
	)

	msgCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), messageTimeout)
	defer cancel()

	err := w.handler.HandleProcessorEvent(msgCtx, msg)
	switch {
	case err == nil:
		_ = d.Ack(false)
		log.Info("payment status applied")
	case apperr.StatusOf(err) < http.StatusInternalServerError:
		_ = d.Ack(false)
		log.Warn("payment status discarded", zap.Error(err))
	case ctx.Err() != nil:
		log.Warn("apply payment status interrupted by shutdown, requeueing", zap.Error(err))
		_ = d.Nack(false, true)
	default:
		log.Error("apply payment status failed", zap.Error(err))
		_ = d.Nack(false, false) // → DLQ
	}
}
