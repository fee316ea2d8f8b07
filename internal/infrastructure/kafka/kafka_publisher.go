package kafka

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/bibbank/bureau-service/internal/domain/event"
	"github.com/bibbank/bureau-service/internal/domain/port"
	"github.com/bibbank/bureau-service/pkg/events"
	pkgkafka "github.com/bibbank/bureau-service/pkg/kafka"
)

// Message header names set on every published event.
const (
	HeaderEventType     = "event_type"
	HeaderEventID       = "event_id"
	HeaderAggregateType = "aggregate_type"
)

// MessageProducer is satisfied by *pkgkafka.Producer.
type MessageProducer interface {
	Publish(ctx context.Context, topic string, messages ...pkgkafka.Message) error
}

// KafkaEventPublisher implements port.EventPublisher by writing events to Kafka.
type KafkaEventPublisher struct {
	producer MessageProducer
	topic    string
	logger   *slog.Logger
}

var _ port.EventPublisher = (*KafkaEventPublisher)(nil)

// NewKafkaEventPublisher creates a publisher targeting the given Kafka producer and topic.
func NewKafkaEventPublisher(producer MessageProducer, topic string, logger *slog.Logger) *KafkaEventPublisher {
	if logger == nil {
		logger = slog.Default()
	}
	return &KafkaEventPublisher{
		producer: producer,
		topic:    topic,
		logger:   logger,
	}
}

// Publish serialises and sends domain events to Kafka. Events are keyed by
// aggregate id so one session's events stay on one partition.
func (p *KafkaEventPublisher) Publish(ctx context.Context, evts ...event.DomainEvent) error {
	messages := make([]pkgkafka.Message, 0, len(evts))
	for _, evt := range evts {
		msg, err := EncodeEvent(evt)
		if err != nil {
			return err
		}

		p.logger.DebugContext(ctx, "publishing domain event",
			"event_type", evt.EventType(),
			"aggregate_id", evt.AggregateID(),
			"topic", p.topic,
			"payload_size", len(msg.Value),
		)
		messages = append(messages, msg)
	}

	if len(messages) == 0 {
		return nil
	}

	if err := p.producer.Publish(ctx, p.topic, messages...); err != nil {
		return fmt.Errorf("failed to publish events to topic %s: %w", p.topic, err)
	}
	return nil
}

// EncodeEvent wraps evt in its envelope and builds the Kafka message.
func EncodeEvent(evt event.DomainEvent) (pkgkafka.Message, error) {
	env, err := events.NewEnvelope(evt)
	if err != nil {
		return pkgkafka.Message{}, err
	}
	value, err := json.Marshal(env)
	if err != nil {
		return pkgkafka.Message{}, fmt.Errorf("marshal event %s: %w", evt.EventType(), err)
	}
	return pkgkafka.Message{
		Key:   []byte(evt.AggregateID()),
		Value: value,
		Headers: map[string]string{
			HeaderEventType:     evt.EventType(),
			HeaderEventID:       evt.EventID(),
			HeaderAggregateType: evt.AggregateType(),
		},
	}, nil
}
