package notifications

import (
	"context"
	"fmt"
	"time"

	"worldtour/internal/shared/config"
	"worldtour/pkg/logger"

	"github.com/IBM/sarama"
)

// Publisher hands a notification off for delivery
type Publisher interface {
	Publish(ctx context.Context, notification *EmailNotification) error
	Close() error
}

// KafkaPublisher writes notifications to the notification topic
type KafkaPublisher struct {
	producer sarama.SyncProducer
	topic    string
	log      *logger.Logger
}

// NewSaramaProducerConfig is the producer setup shared by the service and tests
func NewSaramaProducerConfig() *sarama.Config {
	saramaConfig := sarama.NewConfig()
	saramaConfig.Producer.Return.Successes = true
	saramaConfig.Producer.Return.Errors = true
	saramaConfig.Producer.RequiredAcks = sarama.WaitForAll
	saramaConfig.Producer.Compression = sarama.CompressionSnappy
	saramaConfig.Producer.Retry.Max = 3
	saramaConfig.Producer.Timeout = 10 * time.Second
	saramaConfig.Producer.Idempotent = true
	saramaConfig.Net.MaxOpenRequests = 1
	saramaConfig.Producer.Partitioner = sarama.NewHashPartitioner
	return saramaConfig
}

func NewKafkaPublisher(cfg config.KafkaConfig) (*KafkaPublisher, error) {
	producer, err := sarama.NewSyncProducer(cfg.Brokers, NewSaramaProducerConfig())
	if err != nil {
		return nil, fmt.Errorf("failed to create Kafka producer: %w", err)
	}
	return NewKafkaPublisherWithProducer(producer, cfg.NotificationTopic), nil
}

func NewKafkaPublisherWithProducer(producer sarama.SyncProducer, topic string) *KafkaPublisher {
	return &KafkaPublisher{producer: producer, topic: topic, log: logger.GetDefault()}
}

func (p *KafkaPublisher) Publish(ctx context.Context, n *EmailNotification) error {
	n.Status = NotificationStatusQueued
	n.UpdatedAt = time.Now().UTC()

	value, err := n.ToJSON()
	if err != nil {
		return fmt.Errorf("failed to marshal notification: %w", err)
	}

	message := &sarama.ProducerMessage{
		Topic:     p.topic,
		Key:       sarama.StringEncoder(n.GetPartitionKey()),
		Value:     sarama.ByteEncoder(value),
		Headers:   headersFor(n),
		Timestamp: n.CreatedAt,
	}

	partition, offset, err := p.producer.SendMessage(message)
	if err != nil {
		n.MarkFailed(err)
		return fmt.Errorf("failed to send notification to Kafka: %w", err)
	}

	p.log.Debug("📤 Notification published",
		"topic", p.topic,
		"partition", partition,
		"offset", offset,
		"type", string(n.Type),
	)
	return nil
}

func headersFor(n *EmailNotification) []sarama.RecordHeader {
	headers := []sarama.RecordHeader{
		{Key: []byte("notification_id"), Value: []byte(n.ID.String())},
		{Key: []byte("notification_type"), Value: []byte(n.Type)},
		{Key: []byte("priority"), Value: []byte(n.Priority)},
		{Key: []byte("producer"), Value: []byte("worldtour-notifications")},
	}
	if n.BookingID != nil {
		headers = append(headers, sarama.RecordHeader{Key: []byte("booking_id"), Value: []byte(n.BookingID.String())})
	}
	return headers
}

func (p *KafkaPublisher) Close() error {
	if err := p.producer.Close(); err != nil {
		return fmt.Errorf("failed to close Kafka producer: %w", err)
	}
	return nil
}

// DirectPublisher delivers in-process when Kafka is disabled
type DirectPublisher struct {
	mailer     Mailer
	maxRetries int
	backoff    time.Duration
}

func NewDirectPublisher(mailer Mailer, maxRetries int) *DirectPublisher {
	return &DirectPublisher{mailer: mailer, maxRetries: maxRetries, backoff: time.Second}
}

func (p *DirectPublisher) Publish(ctx context.Context, n *EmailNotification) error {
	return deliver(ctx, p.mailer, n, p.maxRetries, p.backoff)
}

func (p *DirectPublisher) Close() error {
	return nil
}
