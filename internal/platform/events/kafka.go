package events

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"github.com/segmentio/kafka-go"
	"github.com/sony/gobreaker/v2"
)

// MessageWriter is the part of *kafka.Writer the publisher uses.
type MessageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// Observer receives delivery outcomes: "published", "failed" or "dropped".
type Observer interface {
	ObserveEvent(result string)
}

type KafkaConfig struct {
	Brokers      []string
	Topic        string
	BufferSize   int
	WriteTimeout time.Duration
}

// KafkaPublisher queues events and writes them to a Kafka topic from a
// background goroutine. When the queue is full the event is dropped and
// counted; when the broker keeps failing the circuit breaker opens and
// writes are skipped until it half-opens again.
type KafkaPublisher struct {
	writer   MessageWriter
	breaker  *gobreaker.CircuitBreaker[struct{}]
	queue    chan Event
	timeout  time.Duration
	logger   zerolog.Logger
	observer Observer

	closeOnce sync.Once
	done      chan struct{}
}

// NewKafkaWriter builds the kafka-go writer for cfg.
func NewKafkaWriter(cfg KafkaConfig) *kafka.Writer {
	return &kafka.Writer{
		Addr:         kafka.TCP(cfg.Brokers...),
		Topic:        cfg.Topic,
		Balancer:     &kafka.Hash{},
		RequiredAcks: kafka.RequireOne,
		BatchTimeout: 50 * time.Millisecond,
	}
}

// ParseBrokers splits a comma separated broker list.
func ParseBrokers(s string) []string {
	var out []string
	for _, b := range strings.Split(s, ",") {
		if b = strings.TrimSpace(b); b != "" {
			out = append(out, b)
		}
	}
	return out
}

func NewKafkaPublisher(w MessageWriter, cfg KafkaConfig, logger zerolog.Logger, observer Observer) *KafkaPublisher {
	if cfg.BufferSize <= 0 {
		cfg.BufferSize = 1024
	}
	if cfg.WriteTimeout <= 0 {
		cfg.WriteTimeout = 5 * time.Second
	}
	p := &KafkaPublisher{
		writer:   w,
		queue:    make(chan Event, cfg.BufferSize),
		timeout:  cfg.WriteTimeout,
		logger:   logger.With().Str("component", "events").Str("topic", cfg.Topic).Logger(),
		observer: observer,
		done:     make(chan struct{}),
	}
	p.breaker = gobreaker.NewCircuitBreaker[struct{}](gobreaker.Settings{
		Name:        "kafka-events",
		MaxRequests: 1,
		Timeout:     30 * time.Second,
		ReadyToTrip: func(c gobreaker.Counts) bool {
			return c.ConsecutiveFailures >= 5
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			p.logger.Warn().Str("breaker", name).Str("from", from.String()).Str("to", to.String()).Msg("circuit breaker state changed")
		},
	})
	go p.run()
	return p
}

// Publish queues e without blocking.
func (p *KafkaPublisher) Publish(e Event) {
	select {
	case p.queue <- e:
	default:
		p.observe("dropped")
		p.logger.Warn().Str("event_type", e.Type).Msg("event queue full, dropping event")
	}
}

func (p *KafkaPublisher) run() {
	defer close(p.done)
	for e := range p.queue {
		p.deliver(e)
	}
}

func (p *KafkaPublisher) deliver(e Event) {
	body, err := json.Marshal(e)
	if err != nil {
		p.observe("failed")
		p.logger.Error().Err(err).Str("event_type", e.Type).Msg("failed to encode event")
		return
	}
	msg := kafka.Message{
		Key:     []byte(e.Type),
		Value:   body,
		Time:    e.OccurredAt,
		Headers: []kafka.Header{{Key: "event_id", Value: []byte(e.ID)}},
	}

	_, err = p.breaker.Execute(func() (struct{}, error) {
		ctx, cancel := context.WithTimeout(context.Background(), p.timeout)
		defer cancel()
		return struct{}{}, p.writer.WriteMessages(ctx, msg)
	})
	if err != nil {
		p.observe("failed")
		if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
			p.logger.Debug().Str("event_type", e.Type).Msg("circuit open, event skipped")
			return
		}
		p.logger.Error().Err(err).Str("event_type", e.Type).Msg("failed to publish event")
		return
	}
	p.observe("published")
}

func (p *KafkaPublisher) observe(result string) {
	if p.observer != nil {
		p.observer.ObserveEvent(result)
	}
}

// Close stops accepting events, flushes the queue and closes the writer.
// Publish must not be called after Close.
func (p *KafkaPublisher) Close(ctx context.Context) error {
	var err error
	p.closeOnce.Do(func() {
		close(p.queue)
		select {
		case <-p.done:
		case <-ctx.Done():
			err = ctx.Err()
		}
		if cerr := p.writer.Close(); cerr != nil && err == nil {
			err = cerr
		}
	})
	return err
}
