package messaging

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/SscSPs/ledgerbook/internal/platform/config"
	"github.com/segmentio/kafka-go"
)

// KafkaWriter wraps kafka.Writer methods for testing
type KafkaWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// LedgerEventProducer publishes ledger events to a single topic.
type LedgerEventProducer struct {
	logger *slog.Logger
	writer KafkaWriter
	topic  string
}

// NewLedgerEventProducer ensures the ledger topic exists and returns a synchronous producer for it.
// Writes are synchronous so that the outbox only marks an event published once Kafka acknowledged it.
func NewLedgerEventProducer(logger *slog.Logger, cfg config.KafkaConfig) (*LedgerEventProducer, error) {
	if cfg.LedgerTopic == "" {
		return nil, fmt.Errorf("kafka ledger topic is not configured")
	}
	if len(cfg.Brokers) == 0 {
		return nil, fmt.Errorf("kafka brokers are not configured")
	}

	conn, err := kafka.Dial("tcp", cfg.Brokers[0])
	if err != nil {
		return nil, fmt.Errorf("failed to dial kafka: %w", err)
	}
	defer conn.Close()

	if err := createKafkaTopicIfNotExists(conn, cfg.LedgerTopic, logger); err != nil {
		return nil, fmt.Errorf("failed to ensure ledger topic %s exists: %w", cfg.LedgerTopic, err)
	}

	writer := &kafka.Writer{
		Addr:         kafka.TCP(cfg.Brokers...),
		Topic:        cfg.LedgerTopic,
		Balancer:     &kafka.Hash{},
		RequiredAcks: kafka.RequireAll,
		WriteTimeout: 10 * time.Second,
	}

	return NewLedgerEventProducerWithWriter(logger, writer, cfg.LedgerTopic), nil
}

// NewLedgerEventProducerWithWriter builds a producer around an existing writer.
func NewLedgerEventProducerWithWriter(logger *slog.Logger, writer KafkaWriter, topic string) *LedgerEventProducer {
	return &LedgerEventProducer{logger: logger, writer: writer, topic: topic}
}

// Publish encodes value as JSON and writes it under key. Events for the same
// journal entry share a key and land on one partition; the caller must not
// publish two events of one key concurrently.
func (p *LedgerEventProducer) Publish(ctx context.Context, key string, value interface{}) error {
	jsonValue, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("failed to marshal ledger event: %w", err)
	}

	msg := kafka.Message{
		Key:   []byte(key),
		Value: jsonValue,
	}
	if err := p.writer.WriteMessages(ctx, msg); err != nil {
		p.logger.Error("Failed to publish ledger event", "topic", p.topic, "key", key, "error", err)
		return fmt.Errorf("failed to publish ledger event to %s: %w", p.topic, err)
	}

	p.logger.Debug("Published ledger event", "topic", p.topic, "key", key)
	return nil
}

// Close flushes and closes the underlying writer.
func (p *LedgerEventProducer) Close() error {
	p.logger.Info("Closing ledger event producer", "topic", p.topic)
	if err := p.writer.Close(); err != nil {
		return fmt.Errorf("failed to close kafka writer for topic %s: %w", p.topic, err)
	}
	return nil
}

// createKafkaTopicIfNotExists creates the topic with a single partition when it cannot be found.
func createKafkaTopicIfNotExists(conn *kafka.Conn, topicName string, log *slog.Logger) error {
	var partitions []kafka.Partition
	var err error

	for i := 0; i < 3; i++ {
		partitions, err = conn.ReadPartitions(topicName)
		if err == nil {
			break
		}
		log.Warn("Failed to read partitions, retrying", "topic", topicName, "attempt", i+1, "error", err)
		time.Sleep(time.Second)
	}

	if len(partitions) > 0 {
		log.Info("Kafka topic already exists", "topic", topicName)
		return nil
	}

	log.Info("Creating Kafka topic", "topic", topicName)
	if err := conn.CreateTopics(kafka.TopicConfig{
		Topic:             topicName,
		NumPartitions:     1,
		ReplicationFactor: 1,
	}); err != nil {
		return fmt.Errorf("failed to create kafka topic %s: %w", topicName, err)
	}
	return nil
}
