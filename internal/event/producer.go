package event

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/segmentio/kafka-go"
)

// Kafka topics for portal analytics events.
const (
	TopicSessionOpened = "portal.session.opened"
	TopicSessionClosed = "portal.session.closed"
	TopicCartUpdated   = "portal.cart.updated"
	TopicCartCheckout  = "portal.cart.checkout"
)

// Source identifier for events originating from the portal gateway.
const sourcePortal = "portal-gateway"

// Envelope is the standard event envelope for all portal messages.
type Envelope struct {
	EventID   string          `json:"event_id"`
	EventType string          `json:"event_type"`
	UserID    string          `json:"user_id"`
	Timestamp time.Time       `json:"timestamp"`
	Source    string          `json:"source"`
	Data      json.RawMessage `json:"data"`
}

// CartUpdatedData is the payload for a cart.updated event.
type CartUpdatedData struct {
	ItemCount  int   `json:"item_count"`
	TotalMinor int64 `json:"total_minor"`
	TotalCoin  int64 `json:"total_coin"`
}

// CheckoutData is the payload for a cart.checkout event.
type CheckoutData struct {
	ItemCount  int   `json:"item_count"`
	TotalMinor int64 `json:"total_minor"`
	TotalCoin  int64 `json:"total_coin"`
}

// Producer publishes portal analytics events to Kafka. A nil Producer is
// valid and drops everything: the gateway works without a broker, and no
// store operation may fail because analytics did.
type Producer struct {
	writer *kafka.Writer
	logger *slog.Logger
}

// NewProducer creates a producer for the given brokers. Returns nil when no
// brokers are configured.
func NewProducer(brokers []string, logger *slog.Logger) *Producer {
	if len(brokers) == 0 {
		return nil
	}

	w := &kafka.Writer{
		Addr:         kafka.TCP(brokers...),
		Balancer:     &kafka.LeastBytes{},
		BatchSize:    100,
		BatchTimeout: 10 * time.Millisecond,
		RequiredAcks: kafka.RequireOne,
		Async:        true,
	}

	return &Producer{writer: w, logger: logger}
}

// Publish sends an event to the given topic. Errors are logged, never returned.
func (p *Producer) Publish(ctx context.Context, topic, userID string, data any) {
	if p == nil {
		return
	}

	payload, err := json.Marshal(data)
	if err != nil {
		p.logger.ErrorContext(ctx, "marshal event payload",
			slog.String("topic", topic),
			slog.String("error", err.Error()),
		)
		return
	}

	env := Envelope{
		EventID:   uuid.New().String(),
		EventType: topic,
		UserID:    userID,
		Timestamp: time.Now().UTC(),
		Source:    sourcePortal,
		Data:      payload,
	}

	value, err := json.Marshal(env)
	if err != nil {
		p.logger.ErrorContext(ctx, "marshal event envelope",
			slog.String("topic", topic),
			slog.String("error", err.Error()),
		)
		return
	}

	msg := kafka.Message{
		Topic: topic,
		Key:   []byte(userID),
		Value: value,
		Headers: []kafka.Header{
			{Key: "event_type", Value: []byte(topic)},
			{Key: "source", Value: []byte(sourcePortal)},
		},
	}

	if err := p.writer.WriteMessages(ctx, msg); err != nil {
		p.logger.ErrorContext(ctx, "publish event",
			slog.String("topic", topic),
			slog.String("error", err.Error()),
		)
		return
	}

	p.logger.DebugContext(ctx, "event published",
		slog.String("topic", topic),
		slog.String("user_id", userID),
	)
}

// Ping dials the configured brokers; nil if at least one is reachable.
func (p *Producer) Ping(ctx context.Context) error {
	if p == nil {
		return nil
	}
	conn, err := kafka.DialContext(ctx, "tcp", p.writer.Addr.String())
	if err != nil {
		return fmt.Errorf("kafka ping: %w", err)
	}
	defer conn.Close()
	if _, err := conn.Brokers(); err != nil {
		return fmt.Errorf("kafka ping: %w", err)
	}
	return nil
}

// Close flushes and closes the writer.
func (p *Producer) Close() error {
	if p == nil {
		return nil
	}
	return p.writer.Close()
}
