package mq

import (
	"context"
	"fmt"

	amqp "github.com/rabbitmq/amqp091-go"
)

type (
	Exchange   string
	Queue      string
	RoutingKey string
)

const (
	ExchangeAnalyses Exchange = "critpath.analyses"
	ExchangeDLQ      Exchange = "critpath.dlq"
)

const (
	// QueueAnalysesRequested читают воркеры.
	QueueAnalysesRequested Queue = "analyses.requested"
	// QueueAnalysesCompleted — для внешних подписчиков, critpath её не читает.
	QueueAnalysesCompleted Queue = "analyses.completed"
	// QueueDLQAnalyses — сообщения, дважды упавшие в воркере.
	QueueDLQAnalyses Queue = "dlq.analyses"
)

const (
	RoutingKeyRequested   RoutingKey = "requested"
	RoutingKeyCompleted   RoutingKey = "completed"
	RoutingKeyDLQAnalyses RoutingKey = "analyses"
)

// binding — durable очередь и её привязка к direct-обменнику.
type binding struct {
	queue      Queue
	routingKey RoutingKey
	exchange   Exchange
	args       amqp.Table
}

func topology() []binding {
	deadLetter := amqp.Table{
		"x-dead-letter-exchange":    string(ExchangeDLQ),
		"x-dead-letter-routing-key": string(RoutingKeyDLQAnalyses),
	}

	return []binding{
		{QueueAnalysesRequested, RoutingKeyRequested, ExchangeAnalyses, deadLetter},
		{QueueAnalysesCompleted, RoutingKeyCompleted, ExchangeAnalyses, nil},
		{QueueDLQAnalyses, RoutingKeyDLQAnalyses, ExchangeDLQ, nil},
	}
}

// exchanges возвращает обменники из bindings в порядке первого упоминания.
func exchanges(bindings []binding) []Exchange {
	seen := make(map[Exchange]bool)
	var out []Exchange
	for _, b := range bindings {
		if !seen[b.exchange] {
			seen[b.exchange] = true
			out = append(out, b.exchange)
		}
	}
	return out
}

// SetupTopology объявляет обменники, очереди и привязки. Повторный вызов безопасен.
// Аргументы существующей очереди менять нельзя: RabbitMQ ответит PRECONDITION_FAILED.
func SetupTopology(ctx context.Context, conn *Connection) error {
	bindings := topology()

	return conn.WithChannel(ctx, func(ch *amqp.Channel) error {
		for _, ex := range exchanges(bindings) {
			if err := ch.ExchangeDeclare(string(ex), amqp.ExchangeDirect, true, false, false, false, nil); err != nil {
				return fmt.Errorf("declare exchange %s: %w", ex, err)
			}
		}

		for _, b := range bindings {
			if _, err := ch.QueueDeclare(string(b.queue), true, false, false, false, b.args); err != nil {
				return fmt.Errorf("declare queue %s: %w", b.queue, err)
			}
			if err := ch.QueueBind(string(b.queue), string(b.routingKey), string(b.exchange), false, nil); err != nil {
				return fmt.Errorf("bind %s to %s: %w", b.queue, b.exchange, err)
			}
		}
		return nil
	})
}
