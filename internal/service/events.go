package service

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	amqp "github.com/rabbitmq/amqp091-go"
	"go.uber.org/zap"

	"github.com/fieldshow/bandcatalog/internal/config"
	"github.com/fieldshow/bandcatalog/pkg/logger"
)

// Catalog event types.
const (
	EventVideoPromoted    = "video.promoted"
	EventCleanupCompleted = "catalog.cleanup"
)

// CatalogEvent notifies downstream consumers (site cache, notification
// service) of a catalog change.
type CatalogEvent struct {
	ID         uuid.UUID  `json:"id"`
	Type       string     `json:"type"`
	VideoID    string     `json:"video_id,omitempty"`
	BandID     *uuid.UUID `json:"band_id,omitempty"`
	Scope      string     `json:"scope,omitempty"`
	Affected   int        `json:"affected,omitempty"`
	DryRun     bool       `json:"dry_run,omitempty"`
	OccurredAt time.Time  `json:"occurred_at"`
}

// NewCatalogEvent builds an event with a fresh ID and timestamp.
func NewCatalogEvent(eventType string) *CatalogEvent {
	return &CatalogEvent{
		ID:         uuid.New(),
		Type:       eventType,
		OccurredAt: time.Now(),
	}
}

// EventPublisher publishes catalog events. Publishing is best effort at the
// call sites: a broker outage must never fail a pipeline job.
type EventPublisher interface {
	Publish(ctx context.Context, event *CatalogEvent) error
	IsHealthy() bool
	Close() error
}

// NopPublisher drops all events. Used when event publishing is disabled.
type NopPublisher struct{}

func (NopPublisher) Publish(context.Context, *CatalogEvent) error { return nil }
func (NopPublisher) IsHealthy() bool                              { return true }
func (NopPublisher) Close() error                                 { return nil }

// MessagePublisher publishes catalog events to a RabbitMQ topic exchange
// with publisher confirms.
type MessagePublisher struct {
	conn    *amqp.Connection
	channel *amqp.Channel
	config  *config.EventsConfig
	mu      sync.RWMutex
}

// NewMessagePublisher connects to the broker and declares the exchange,
// queue and binding.
func NewMessagePublisher(cfg *config.EventsConfig) (*MessagePublisher, error) {
	mp := &MessagePublisher{
		config: cfg,
	}

	if err := mp.connect(); err != nil {
		return nil, err
	}

	return mp, nil
}

func (mp *MessagePublisher) connect() error {
	mp.mu.Lock()
	defer mp.mu.Unlock()

	connURL := fmt.Sprintf("amqp://%s:%s@%s:%d/",
		mp.config.User, mp.config.Password, mp.config.Host, mp.config.Port)

	conn, err := amqp.Dial(connURL)
	if err != nil {
		return fmt.Errorf("failed to connect to RabbitMQ: %w", err)
	}

	ch, err := conn.Channel()
	if err != nil {
		_ = conn.Close()
		return fmt.Errorf("failed to open channel: %w", err)
	}

	// Enable publisher confirms
	if err := ch.Confirm(false); err != nil {
		_ = ch.Close()
		_ = conn.Close()
		return fmt.Errorf("failed to enable publisher confirms: %w", err)
	}

	if err := ch.ExchangeDeclare(
		mp.config.Exchange, // name
		"topic",            // type
		true,               // durable
		false,              // auto-deleted
		false,              // internal
		false,              // no-wait
		nil,                // arguments
	); err != nil {
		_ = ch.Close()
		_ = conn.Close()
		return fmt.Errorf("failed to declare exchange: %w", err)
	}

	_, err = ch.QueueDeclare(
		mp.config.Queue, // name
		true,            // durable
		false,           // delete when unused
		false,           // exclusive
		false,           // no-wait
		amqp.Table{
			"x-message-ttl": 86400000, // 24 hours
			"x-max-length":  100000,   // max 100k messages
		},
	)
	if err != nil {
		_ = ch.Close()
		_ = conn.Close()
		return fmt.Errorf("failed to declare queue: %w", err)
	}

	if err := ch.QueueBind(
		mp.config.Queue,      // queue name
		mp.config.RoutingKey, // routing key
		mp.config.Exchange,   // exchange
		false,
		nil,
	); err != nil {
		_ = ch.Close()
		_ = conn.Close()
		return fmt.Errorf("failed to bind queue: %w", err)
	}

	mp.conn = conn
	mp.channel = ch

	logger.Log.Info("Connected to RabbitMQ",
		zap.String("exchange", mp.config.Exchange),
		zap.String("queue", mp.config.Queue),
	)

	return nil
}

// Publish sends one event and waits for the broker's confirmation.
func (mp *MessagePublisher) Publish(ctx context.Context, event *CatalogEvent) error {
	mp.mu.RLock()
	defer mp.mu.RUnlock()

	if mp.channel == nil {
		return fmt.Errorf("channel is not initialized")
	}

	body, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal event: %w", err)
	}

	confirms := mp.channel.NotifyPublish(make(chan amqp.Confirmation, 1))

	err = mp.channel.PublishWithContext(
		ctx,
		mp.config.Exchange,   // exchange
		mp.config.RoutingKey, // routing key
		true,                 // mandatory
		false,                // immediate
		amqp.Publishing{
			ContentType:  "application/json",
			Body:         body,
			DeliveryMode: amqp.Persistent,
			Timestamp:    event.OccurredAt,
			MessageId:    event.ID.String(),
		},
	)
	if err != nil {
		return fmt.Errorf("failed to publish message: %w", err)
	}

	select {
	case confirm := <-confirms:
		if !confirm.Ack {
			return fmt.Errorf("message was not acknowledged by broker")
		}
	case <-time.After(5 * time.Second):
		return fmt.Errorf("timeout waiting for publish confirmation")
	case <-ctx.Done():
		return ctx.Err()
	}

	logger.Log.Debug("Published catalog event",
		zap.String("eventId", event.ID.String()),
		zap.String("type", event.Type),
		zap.String("routingKey", mp.config.RoutingKey),
	)

	return nil
}

// Close closes the channel and connection.
func (mp *MessagePublisher) Close() error {
	mp.mu.Lock()
	defer mp.mu.Unlock()

	var errs []error
	if mp.channel != nil {
		if err := mp.channel.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	if mp.conn != nil {
		if err := mp.conn.Close(); err != nil {
			errs = append(errs, err)
		}
	}

	if len(errs) > 0 {
		return fmt.Errorf("errors closing publisher: %v", errs)
	}

	logger.Log.Info("Event publisher closed")
	return nil
}

// IsHealthy reports whether the broker connection is live.
func (mp *MessagePublisher) IsHealthy() bool {
	mp.mu.RLock()
	defer mp.mu.RUnlock()

	return mp.conn != nil && !mp.conn.IsClosed() && mp.channel != nil
}
