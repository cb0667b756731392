package queue

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/segmentio/kafka-go"
	"go.uber.org/zap"
)

// KafkaConfig holds connection settings for the game-finished topic.
type KafkaConfig struct {
	Brokers []string
	Topic   string
	GroupID string
	Buffer  int
}

// KafkaSource consumes game-finished events from a Kafka topic. Malformed
// messages are logged and skipped; read failures back off and retry so a
// broker hiccup does not kill the consumer.
type KafkaSource struct {
	reader *kafka.Reader
	ch     chan GameFinishedEvent
	logger *zap.Logger
}

// NewKafkaSource creates a KafkaSource. The reader commits offsets on an
// interval, which pairs with the orchestrator's idempotent settlement to
// make duplicate delivery harmless.
func NewKafkaSource(cfg KafkaConfig, logger *zap.Logger) *KafkaSource {
	buffer := cfg.Buffer
	if buffer <= 0 {
		buffer = 64
	}
	return &KafkaSource{
		reader: kafka.NewReader(kafka.ReaderConfig{
			Brokers:        cfg.Brokers,
			Topic:          cfg.Topic,
			GroupID:        cfg.GroupID,
			MinBytes:       1,
			MaxBytes:       10e6,
			CommitInterval: time.Second,
		}),
		ch:     make(chan GameFinishedEvent, buffer),
		logger: logger,
	}
}

// Start consumes messages until ctx is cancelled.
func (s *KafkaSource) Start(ctx context.Context) error {
	defer close(s.ch)

	for {
		m, err := s.reader.ReadMessage(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			s.logger.Warn("kafka-read-failed", zap.Error(err))
			EventErrorsTotal.WithLabelValues("read").Inc()
			select {
			case <-time.After(500 * time.Millisecond):
			case <-ctx.Done():
				return ctx.Err()
			}
			continue
		}

		var ev GameFinishedEvent
		err = json.Unmarshal(m.Value, &ev)
		if err != nil {
			s.logger.Warn("invalid-event-payload",
				zap.Error(err),
				zap.String("key", string(m.Key)))
			EventErrorsTotal.WithLabelValues("decode").Inc()
			continue
		}
		if ev.GameID == "" {
			s.logger.Warn("event-missing-game-id", zap.String("key", string(m.Key)))
			EventErrorsTotal.WithLabelValues("decode").Inc()
			continue
		}

		EventsConsumedTotal.Inc()
		select {
		case s.ch <- ev:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

// Events returns the delivery channel.
func (s *KafkaSource) Events() <-chan GameFinishedEvent {
	return s.ch
}

// Close closes the underlying reader.
func (s *KafkaSource) Close() error {
	err := s.reader.Close()
	if err != nil {
		return fmt.Errorf("close kafka reader: %w", err)
	}
	return nil
}
