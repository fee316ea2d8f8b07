package kafka

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	kafkago "github.com/segmentio/kafka-go"
)

// Handler processes a consumed Kafka message.
type Handler func(ctx context.Context, msg Message) error

// Reader is the subset of *kafkago.Reader the consumer drives.
type Reader interface {
	FetchMessage(ctx context.Context) (kafkago.Message, error)
	CommitMessages(ctx context.Context, msgs ...kafkago.Message) error
	Close() error
}

// Consumer fetches from one topic and hands each message to a handler.
// A message is committed only after its handler returns nil.
type Consumer struct {
	reader  Reader
	topic   string
	group   string
	handler Handler
	workers int
	logger  *slog.Logger
}

// ConsumerOption customises a Consumer.
type ConsumerOption func(*Consumer)

// WithWorkers bounds how many handlers run at once. The default is one,
// which handles messages strictly in order.
func WithWorkers(n int) ConsumerOption {
	return func(c *Consumer) {
		if n > 0 {
			c.workers = n
		}
	}
}

// WithReader replaces the kafka-go reader.
func WithReader(r Reader) ConsumerOption {
	return func(c *Consumer) { c.reader = r }
}

// NewConsumer creates a Consumer for topic in cfg.ConsumerGroup.
func NewConsumer(cfg Config, topic string, handler Handler, logger *slog.Logger, opts ...ConsumerOption) (*Consumer, error) {
	if logger == nil {
		logger = slog.Default()
	}
	c := &Consumer{
		topic:   topic,
		group:   cfg.ConsumerGroup,
		handler: handler,
		workers: 1,
		logger:  logger,
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.reader != nil {
		return c, nil
	}

	if len(cfg.Brokers) == 0 {
		return nil, fmt.Errorf("kafka: no brokers configured")
	}
	dialer, err := cfg.dialer()
	if err != nil {
		return nil, err
	}
	c.reader = kafkago.NewReader(kafkago.ReaderConfig{
		Brokers:  cfg.Brokers,
		Topic:    topic,
		GroupID:  cfg.ConsumerGroup,
		MinBytes: 1,
		MaxBytes: 10 * 1024 * 1024,
		Dialer:   dialer,
	})
	return c, nil
}

// Start consumes until ctx is canceled. In-flight handlers are waited for
// before it returns.
func (c *Consumer) Start(ctx context.Context) error {
	c.logger.Info("consumer starting", "topic", c.topic, "group", c.group, "workers", c.workers)

	sem := make(chan struct{}, c.workers)
	var wg sync.WaitGroup
	defer wg.Wait()

	for {
		m, err := c.reader.FetchMessage(ctx)
		if err != nil {
			if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
				c.logger.Info("consumer stopping due to context cancellation")
				return nil
			}
			return fmt.Errorf("fetching message: %w", err)
		}

		select {
		case sem <- struct{}{}:
		case <-ctx.Done():
			return nil
		}
		wg.Add(1)
		go func(m kafkago.Message) {
			defer wg.Done()
			defer func() { <-sem }()
			c.process(ctx, m)
		}(m)
	}
}

func (c *Consumer) process(ctx context.Context, m kafkago.Message) {
	msg := Message{
		Key:     m.Key,
		Value:   m.Value,
		Headers: make(map[string]string, len(m.Headers)),
	}
	for _, h := range m.Headers {
		msg.Headers[h.Key] = string(h.Value)
	}

	if err := c.handler(ctx, msg); err != nil {
		c.logger.Error("handler error",
			"topic", m.Topic,
			"partition", m.Partition,
			"offset", m.Offset,
			"error", err,
		)
		return
	}

	if err := c.reader.CommitMessages(ctx, m); err != nil {
		c.logger.Error("commit error",
			"topic", m.Topic,
			"partition", m.Partition,
			"offset", m.Offset,
			"error", err,
		)
	}
}

// Close closes the reader.
func (c *Consumer) Close() error {
	if err := c.reader.Close(); err != nil {
		return fmt.Errorf("closing kafka reader: %w", err)
	}
	return nil
}
