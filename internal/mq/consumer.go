package mq

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"

	amqp "github.com/rabbitmq/amqp091-go"

	"github.com/shaiso/Critpath/internal/telemetry"
)

// Handler обрабатывает одно сообщение. Ошибка означает неудачу:
// сообщение один раз возвращается в очередь, повторно — уходит в DLQ.
type Handler func(ctx context.Context, msg *Delivery) error

// Delivery — разобранное сообщение и исходная доставка.
type Delivery struct {
	Message Message
	Raw     amqp.Delivery
}

// settlement — чем закончилась обработка доставки.
type settlement string

const (
	settleAck        settlement = "ack"
	settleRequeue    settlement = "requeue"
	settleDeadLetter settlement = "dead_letter"
)

// settle выбирает исход доставки по результату обработчика.
// Повторно доставленное сообщение после неудачи отклоняется без requeue
// и попадает в DLQ через x-dead-letter-exchange очереди.
func settle(err error, redelivered bool) settlement {
	switch {
	case err == nil:
		return settleAck
	case redelivered:
		return settleDeadLetter
	default:
		return settleRequeue
	}
}

// Consumer читает очередь и передаёт сообщения Handler.
// После разрыва соединения подписка восстанавливается по сигналу Reconnected.
type Consumer struct {
	conn     *Connection
	logger   *slog.Logger
	queue    Queue
	tag      string
	handler  Handler
	prefetch int

	mu      sync.Mutex
	cancel  context.CancelFunc
	stopped bool
}

// ConsumerConfig — параметры Consumer.
type ConsumerConfig struct {
	Queue   Queue
	Handler Handler

	// Tag — consumer tag в RabbitMQ. Пустой — брокер сгенерирует сам.
	Tag string

	// Prefetch — сколько неподтверждённых сообщений держит consumer (default: 1).
	Prefetch int
}

// NewConsumer создаёт Consumer. Потребление начинается в Start.
func NewConsumer(conn *Connection, logger *slog.Logger, cfg ConsumerConfig) *Consumer {
	prefetch := cfg.Prefetch
	if prefetch <= 0 {
		prefetch = 1
	}

	return &Consumer{
		conn:     conn,
		logger:   logger.With("queue", cfg.Queue),
		queue:    cfg.Queue,
		tag:      cfg.Tag,
		handler:  cfg.Handler,
		prefetch: prefetch,
	}
}

// Start блокируется до отмены ctx или Stop и возвращает ошибку контекста.
// После Stop сразу возвращает context.Canceled.
func (c *Consumer) Start(ctx context.Context) error {
	c.mu.Lock()
	if c.stopped {
		c.mu.Unlock()
		return context.Canceled
	}
	ctx, cancel := context.WithCancel(ctx)
	c.cancel = cancel
	c.mu.Unlock()
	defer cancel()

	for {
		deliveries, err := c.subscribe()
		if err != nil {
			c.logger.Error("subscribe failed, waiting for reconnect", "error", err)
		} else {
			c.logger.Info("consuming", "prefetch", c.prefetch)
			c.drain(ctx, deliveries)
		}

		if ctx.Err() != nil {
			return ctx.Err()
		}

		// TODO: переоткрывать канал при channel-level ошибке; сейчас подписка
		// восстанавливается только после разрыва всего соединения.
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-c.conn.Reconnected():
			c.logger.Info("resubscribing after reconnect")
		}
	}
}

// Stop отменяет Start. Безопасен для вызова из другой горутины и до Start.
func (c *Consumer) Stop() {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.stopped = true
	if c.cancel != nil {
		c.cancel()
	}
}

func (c *Consumer) subscribe() (<-chan amqp.Delivery, error) {
	var deliveries <-chan amqp.Delivery

	err := c.conn.WithChannel(context.Background(), func(ch *amqp.Channel) error {
		if err := ch.Qos(c.prefetch, 0, false); err != nil {
			return fmt.Errorf("set qos: %w", err)
		}

		d, err := ch.Consume(string(c.queue), c.tag, false, false, false, false, nil)
		if err != nil {
			return fmt.Errorf("consume %s: %w", c.queue, err)
		}
		deliveries = d
		return nil
	})
	return deliveries, err
}

// drain обрабатывает доставки, пока канал открыт и ctx не отменён.
func (c *Consumer) drain(ctx context.Context, deliveries <-chan amqp.Delivery) {
	for {
		select {
		case <-ctx.Done():
			return
		case raw, ok := <-deliveries:
			if !ok {
				c.logger.Warn("delivery channel closed")
				return
			}
			c.handle(ctx, raw)
		}
	}
}

func (c *Consumer) handle(ctx context.Context, raw amqp.Delivery) {
	var msg Message
	if err := json.Unmarshal(raw.Body, &msg); err != nil {
		c.logger.Error("malformed message", "error", err, "body", string(raw.Body))
		c.finish(raw, settleDeadLetter)
		return
	}

	logger := c.logger.With("message_id", msg.ID, "type", msg.Type)
	logger.Debug("message received", "redelivered", raw.Redelivered)

	err := c.handler(ctx, &Delivery{Message: msg, Raw: raw})
	outcome := settle(err, raw.Redelivered)
	if err != nil {
		logger.Error("handler failed", "settlement", outcome, "error", err)
	}
	c.finish(raw, outcome)
}

func (c *Consumer) finish(raw amqp.Delivery, outcome settlement) {
	var err error
	switch outcome {
	case settleAck:
		err = raw.Ack(false)
	case settleRequeue:
		err = raw.Nack(false, true)
	default:
		err = raw.Nack(false, false)
	}
	if err != nil {
		c.logger.Warn("failed to settle delivery", "settlement", outcome, "error", err)
	}
	telemetry.ObserveDelivery(string(c.queue), string(outcome))
}

// ParsePayload декодирует Payload в T. После json.Unmarshal сообщения
// Payload — это map[string]any, поэтому значение проходит через JSON ещё раз.
func ParsePayload[T any](msg *Message) (T, error) {
	var payload T

	data, err := json.Marshal(msg.Payload)
	if err != nil {
		return payload, fmt.Errorf("marshal payload: %w", err)
	}
	if err := json.Unmarshal(data, &payload); err != nil {
		return payload, fmt.Errorf("decode %s payload: %w", msg.Type, err)
	}
	return payload, nil
}
