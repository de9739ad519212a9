package notifications

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"eventhub/pkg/logger"

	"github.com/IBM/sarama"
)

// KafkaSinkConfig contains configuration for the Kafka notification sink
type KafkaSinkConfig struct {
	Brokers           []string
	NotificationTopic string
	RetryMax          int
	Timeout           time.Duration
	RequiredAcks      sarama.RequiredAcks
	CompressionType   sarama.CompressionCodec
	IdempotentWrites  bool
	MaxMessageBytes   int
}

// DefaultKafkaSinkConfig returns a default producer configuration
func DefaultKafkaSinkConfig() *KafkaSinkConfig {
	return &KafkaSinkConfig{
		Brokers:           []string{"localhost:9092"},
		NotificationTopic: "booking-notifications",
		RetryMax:          3,
		Timeout:           10 * time.Second,
		RequiredAcks:      sarama.WaitForAll,
		CompressionType:   sarama.CompressionSnappy,
		IdempotentWrites:  true,
		MaxMessageBytes:   1000000,
	}
}

// KafkaSink publishes notifications to a Kafka topic
type KafkaSink struct {
	producer sarama.SyncProducer
	config   *KafkaSinkConfig
	logger   *logger.Logger
}

// NewKafkaSink connects a sync producer to the configured brokers
func NewKafkaSink(config *KafkaSinkConfig, l *logger.Logger) (*KafkaSink, error) {
	saramaConfig := sarama.NewConfig()

	saramaConfig.Producer.Return.Successes = true
	saramaConfig.Producer.Return.Errors = true
	saramaConfig.Producer.RequiredAcks = config.RequiredAcks
	saramaConfig.Producer.Compression = config.CompressionType
	saramaConfig.Producer.Retry.Max = config.RetryMax
	saramaConfig.Producer.Timeout = config.Timeout
	saramaConfig.Producer.Idempotent = config.IdempotentWrites
	saramaConfig.Producer.MaxMessageBytes = config.MaxMessageBytes

	if config.IdempotentWrites {
		saramaConfig.Net.MaxOpenRequests = 1
	}

	// hash partitioner keeps one recipient on one partition
	saramaConfig.Producer.Partitioner = sarama.NewHashPartitioner

	producer, err := sarama.NewSyncProducer(config.Brokers, saramaConfig)
	if err != nil {
		return nil, fmt.Errorf("failed to create Kafka producer: %w", err)
	}

	l.Info("Kafka notification producer created", slog.Any("brokers", config.Brokers))
	return NewKafkaSinkWithProducer(producer, config, l), nil
}

// NewKafkaSinkWithProducer wraps an existing producer
func NewKafkaSinkWithProducer(producer sarama.SyncProducer, config *KafkaSinkConfig, l *logger.Logger) *KafkaSink {
	return &KafkaSink{producer: producer, config: config, logger: l}
}

// Notify publishes a single notification
func (k *KafkaSink) Notify(ctx context.Context, n *Notification) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	messageBytes, err := n.ToJSON()
	if err != nil {
		return fmt.Errorf("failed to marshal notification: %w", err)
	}

	message := &sarama.ProducerMessage{
		Topic:     k.config.NotificationTopic,
		Key:       sarama.StringEncoder(n.GetPartitionKey()),
		Value:     sarama.ByteEncoder(messageBytes),
		Headers:   k.createHeaders(n),
		Timestamp: n.CreatedAt,
	}

	partition, offset, err := k.producer.SendMessage(message)
	if err != nil {
		return fmt.Errorf("failed to send notification to Kafka: %w", err)
	}

	k.logger.DebugContext(ctx, "Notification published to Kafka",
		slog.String("topic", k.config.NotificationTopic),
		slog.Int("partition", int(partition)),
		slog.Int64("offset", offset),
		slog.String("kind", string(n.Kind)),
		slog.String("recipient", n.RecipientUserID.String()),
	)
	return nil
}

// createHeaders creates Kafka headers for notifications
func (k *KafkaSink) createHeaders(n *Notification) []sarama.RecordHeader {
	return []sarama.RecordHeader{
		{Key: []byte("notification_id"), Value: []byte(n.ID.String())},
		{Key: []byte("kind"), Value: []byte(n.Kind)},
		{Key: []byte("recipient_id"), Value: []byte(n.RecipientUserID.String())},
		{Key: []byte("event_id"), Value: []byte(n.RelatedEventID.String())},
		{Key: []byte("booking_id"), Value: []byte(n.BookingID.String())},
		{Key: []byte("producer"), Value: []byte("eventhub-bookings")},
		{Key: []byte("created_at"), Value: []byte(n.CreatedAt.Format(time.RFC3339))},
	}
}

// Close closes the Kafka producer
func (k *KafkaSink) Close() error {
	if k.producer != nil {
		if err := k.producer.Close(); err != nil {
			return fmt.Errorf("failed to close Kafka producer: %w", err)
		}
		k.logger.Info("Kafka notification producer closed")
	}
	return nil
}
