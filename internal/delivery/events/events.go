// Package events publishes delivery lifecycle events to downstream consumers.
package events

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"dlvery/internal/delivery/models"
)

// TypeStatusChanged is the only event type emitted today.
const TypeStatusChanged = "delivery.status_changed"

// StatusChanged records one accepted transition.
type StatusChanged struct {
	Type           string        `json:"type"`
	DeliveryID     string        `json:"delivery_id"`
	DeliveryNumber string        `json:"delivery_number"`
	From           models.Status `json:"from"`
	To             models.Status `json:"to"`
	Agent          string        `json:"agent,omitempty"`
	Actor          string        `json:"actor,omitempty"`
	Reason         string        `json:"reason,omitempty"`
	SignatureRef   string        `json:"signature_ref,omitempty"`
	RequestID      string        `json:"request_id,omitempty"`
	OccurredAt     time.Time     `json:"occurred_at"`
}

// NewStatusChanged builds the event for d having moved from prev.
func NewStatusChanged(d *models.Delivery, prev models.Status, actor, requestID string, now time.Time) StatusChanged {
	return StatusChanged{
		Type:           TypeStatusChanged,
		DeliveryID:     d.ID.String(),
		DeliveryNumber: d.Number,
		From:           prev,
		To:             d.Status,
		Agent:          d.Agent,
		Actor:          actor,
		Reason:         d.StatusReason,
		SignatureRef:   d.SignatureRef,
		RequestID:      requestID,
		OccurredAt:     now,
	}
}

// producer is the subset of the Kafka producer the publisher needs.
type producer interface {
	Produce(ctx context.Context, topic string, key, value []byte) error
}

// KafkaPublisher writes events as JSON keyed by delivery ID, so all events for
// one delivery land on the same partition in order.
type KafkaPublisher struct {
	producer producer
	topic    string
}

func NewKafkaPublisher(p producer, topic string) *KafkaPublisher {
	return &KafkaPublisher{producer: p, topic: topic}
}

func (p *KafkaPublisher) PublishStatusChanged(ctx context.Context, evt StatusChanged) error {
	payload, err := json.Marshal(evt)
	if err != nil {
		return fmt.Errorf("marshal %s: %w", evt.Type, err)
	}
	return p.producer.Produce(ctx, p.topic, []byte(evt.DeliveryID), payload)
}

// InMemoryPublisher keeps events for inspection and logs them as audit lines.
// Used when no brokers are configured.
type InMemoryPublisher struct {
	mu     sync.Mutex
	events []StatusChanged
	logger *slog.Logger
}

func NewInMemoryPublisher(logger *slog.Logger) *InMemoryPublisher {
	return &InMemoryPublisher{logger: logger}
}

func (p *InMemoryPublisher) PublishStatusChanged(ctx context.Context, evt StatusChanged) error {
	p.mu.Lock()
	p.events = append(p.events, evt)
	p.mu.Unlock()

	if p.logger != nil {
		p.logger.InfoContext(ctx, evt.Type,
			"log_type", "audit",
			"event", evt.Type,
			"delivery_id", evt.DeliveryID,
			"from", evt.From,
			"to", evt.To,
			"actor", evt.Actor,
			"request_id", evt.RequestID,
		)
	}
	return nil
}

// Events returns a copy of everything published so far.
func (p *InMemoryPublisher) Events() []StatusChanged {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]StatusChanged(nil), p.events...)
}
