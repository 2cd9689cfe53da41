package mq

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	amqp "github.com/rabbitmq/amqp091-go"
)

// MessageType — тип события, он же поле type в конверте и AMQP Type.
type MessageType string

const (
	MessageTypeAnalysisRequested MessageType = "analysis.requested"
	MessageTypeAnalysisCompleted MessageType = "analysis.completed"
)

// route — куда публикуется событие данного типа.
type route struct {
	exchange Exchange
	key      RoutingKey
}

var routes = map[MessageType]route{
	MessageTypeAnalysisRequested: {ExchangeAnalyses, RoutingKeyRequested},
	MessageTypeAnalysisCompleted: {ExchangeAnalyses, RoutingKeyCompleted},
}

// Message — JSON-конверт события.
type Message struct {
	ID        string      `json:"id"`
	Type      MessageType `json:"type"`
	Payload   any         `json:"payload"`
	Timestamp time.Time   `json:"timestamp"`
}

// NewMessage оборачивает payload в конверт с новым ID.
func NewMessage(msgType MessageType, payload any) *Message {
	return &Message{
		ID:        uuid.NewString(),
		Type:      msgType,
		Payload:   payload,
		Timestamp: time.Now().UTC(),
	}
}

// AnalysisRequestedPayload — анализ создан в статусе QUEUED.
type AnalysisRequestedPayload struct {
	AnalysisID uuid.UUID `json:"analysis_id"`
	ProjectID  uuid.UUID `json:"project_id"`
}

// AnalysisCompletedPayload — анализ перешёл в SUCCEEDED или FAILED.
type AnalysisCompletedPayload struct {
	AnalysisID      uuid.UUID `json:"analysis_id"`
	ProjectID       uuid.UUID `json:"project_id"`
	Status          string    `json:"status"`
	ProjectDuration float64   `json:"project_duration,omitempty"`
	CriticalPath    []string  `json:"critical_path,omitempty"`
	ErrorKind       string    `json:"error_kind,omitempty"`
	Error           string    `json:"error,omitempty"`
}

// publishTimeout ограничивает одну публикацию, если у ctx нет своего дедлайна.
const publishTimeout = 5 * time.Second

// Publisher отправляет события анализов в critpath.analyses.
type Publisher struct {
	conn   *Connection
	logger *slog.Logger
}

func NewPublisher(conn *Connection, logger *slog.Logger) *Publisher {
	return &Publisher{conn: conn, logger: logger}
}

// PublishAnalysisRequested ставит анализ в очередь воркеров.
func (p *Publisher) PublishAnalysisRequested(ctx context.Context, payload AnalysisRequestedPayload) error {
	return p.Publish(ctx, NewMessage(MessageTypeAnalysisRequested, payload))
}

// PublishAnalysisCompleted сообщает внешним подписчикам об итоге анализа.
func (p *Publisher) PublishAnalysisCompleted(ctx context.Context, payload AnalysisCompletedPayload) error {
	return p.Publish(ctx, NewMessage(MessageTypeAnalysisCompleted, payload))
}

// Publish отправляет сообщение по маршруту его типа как persistent.
func (p *Publisher) Publish(ctx context.Context, msg *Message) error {
	rt, ok := routes[msg.Type]
	if !ok {
		return fmt.Errorf("no route for message type %q", msg.Type)
	}

	publishing, err := newPublishing(msg)
	if err != nil {
		return err
	}

	if _, ok := ctx.Deadline(); !ok {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, publishTimeout)
		defer cancel()
	}

	err = p.conn.WithChannel(ctx, func(ch *amqp.Channel) error {
		return ch.PublishWithContext(ctx, string(rt.exchange), string(rt.key), false, false, publishing)
	})
	if err != nil {
		return fmt.Errorf("publish %s: %w", msg.Type, err)
	}

	p.logger.Debug("message published", "type", msg.Type, "message_id", msg.ID, "routing_key", rt.key)
	return nil
}

func newPublishing(msg *Message) (amqp.Publishing, error) {
	body, err := json.Marshal(msg)
	if err != nil {
		return amqp.Publishing{}, fmt.Errorf("encode %s: %w", msg.Type, err)
	}
	return amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent,
		MessageId:    msg.ID,
		Type:         string(msg.Type),
		AppId:        "critpath",
		Timestamp:    msg.Timestamp,
		Body:         body,
	}, nil
}
