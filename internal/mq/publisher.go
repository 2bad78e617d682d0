package mq

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	amqp "github.com/rabbitmq/amqp091-go"
	"go.uber.org/zap"

	"github.com/vostrikal/stream-anomaly-worker/internal/model"
)

// Publisher emits one event per classified sample to a topic exchange.
// Consumers interested only in anomalies filter on the is_anomaly field.
type Publisher struct {
	conn       *Connection
	channel    *amqp.Channel
	exchange   string
	routingKey string
	logger     *zap.Logger
}

// NewPublisher creates a publisher bound to the given exchange and routing key
func NewPublisher(conn *Connection, exchange, routingKey string, logger *zap.Logger) (*Publisher, error) {
	ch, err := conn.Channel()
	if err != nil {
		return nil, fmt.Errorf("failed to create channel: %w", err)
	}

	// Declare exchange
	err = ch.ExchangeDeclare(
		exchange,
		"topic",
		true,  // durable
		false, // auto-deleted
		false, // internal
		false, // no-wait
		nil,   // arguments
	)
	if err != nil {
		ch.Close()
		return nil, fmt.Errorf("failed to declare exchange: %w", err)
	}

	return &Publisher{
		conn:       conn,
		channel:    ch,
		exchange:   exchange,
		routingKey: routingKey,
		logger:     logger,
	}, nil
}

// ClassifiedEvent is the wire form of one classified sample
type ClassifiedEvent struct {
	EventID      string  `json:"event_id"`
	RunID        string  `json:"run_id"`
	Seq          int64   `json:"seq"`
	Value        float64 `json:"value"`
	IsAnomaly    bool    `json:"is_anomaly"`
	WindowMean   float64 `json:"window_mean"`
	WindowStdDev float64 `json:"window_stddev"`
	ObservedAt   string  `json:"observed_at"`
}

// PublishClassified publishes one classified sample
func (p *Publisher) PublishClassified(ctx context.Context, point model.Point) error {
	event := ClassifiedEvent{
		EventID:      uuid.New().String(),
		RunID:        point.RunID.String(),
		Seq:          point.Seq,
		Value:        point.Value,
		IsAnomaly:    point.Anomaly,
		WindowMean:   point.WindowMean,
		WindowStdDev: point.WindowStdDev,
		ObservedAt:   point.ObservedAt.Format(time.RFC3339Nano),
	}

	body, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal event: %w", err)
	}

	err = p.channel.PublishWithContext(
		ctx,
		p.exchange,
		p.routingKey,
		false, // mandatory
		false, // immediate
		amqp.Publishing{
			ContentType:  "application/json",
			Body:         body,
			DeliveryMode: amqp.Persistent,
		},
	)

	if err != nil {
		return fmt.Errorf("failed to publish event: %w", err)
	}

	p.logger.Debug("published classified sample",
		zap.String("event_id", event.EventID),
		zap.Int64("seq", event.Seq),
		zap.Bool("is_anomaly", event.IsAnomaly),
	)

	return nil
}

// Close closes the publisher channel
func (p *Publisher) Close() error {
	if p.channel != nil {
		return p.channel.Close()
	}
	return nil
}
