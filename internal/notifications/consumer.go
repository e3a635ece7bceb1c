package notifications

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"worldtour/internal/shared/config"
	"worldtour/pkg/logger"

	"github.com/IBM/sarama"
)

// KafkaConsumer runs a consumer group that mails every notification on the topic
type KafkaConsumer struct {
	group   sarama.ConsumerGroup
	handler *deliveryHandler
	topics  []string
	workers int
	log     *logger.Logger

	cancel context.CancelFunc
	wg     sync.WaitGroup
}

func NewKafkaConsumer(cfg config.KafkaConfig, mailer Mailer) (*KafkaConsumer, error) {
	saramaConfig := sarama.NewConfig()
	saramaConfig.Consumer.Group.Session.Timeout = 30 * time.Second
	saramaConfig.Consumer.Group.Heartbeat.Interval = 3 * time.Second
	saramaConfig.Consumer.Retry.Backoff = 100 * time.Millisecond
	saramaConfig.Consumer.MaxProcessingTime = 5 * time.Minute
	saramaConfig.Consumer.Return.Errors = true
	saramaConfig.Consumer.Offsets.Initial = sarama.OffsetNewest
	saramaConfig.Consumer.Offsets.AutoCommit.Enable = true
	saramaConfig.Consumer.Offsets.AutoCommit.Interval = time.Second

	group, err := sarama.NewConsumerGroup(cfg.Brokers, cfg.ConsumerGroupID, saramaConfig)
	if err != nil {
		return nil, fmt.Errorf("failed to create consumer group: %w", err)
	}

	workers := cfg.Workers
	if workers <= 0 {
		workers = 1
	}
	return &KafkaConsumer{
		group:   group,
		handler: newDeliveryHandler(mailer, cfg.MaxRetries, time.Second),
		topics:  []string{cfg.NotificationTopic},
		workers: workers,
		log:     logger.GetDefault(),
	}, nil
}

func (c *KafkaConsumer) Start(ctx context.Context) {
	ctx, c.cancel = context.WithCancel(ctx)

	go func() {
		for err := range c.group.Errors() {
			c.log.Error("📥 Consumer group error", "error", err.Error())
		}
	}()

	for i := 0; i < c.workers; i++ {
		c.wg.Add(1)
		go func(workerID int) {
			defer c.wg.Done()
			for {
				if err := c.group.Consume(ctx, c.topics, c.handler); err != nil {
					c.log.Warn("📥 Consume failed", "worker", workerID, "error", err.Error())
					select {
					case <-time.After(time.Second):
					case <-ctx.Done():
					}
				}
				if ctx.Err() != nil {
					return
				}
			}
		}(i)
	}
	c.log.Info("📥 Notification consumers started", "workers", c.workers, "topics", c.topics)
}

func (c *KafkaConsumer) Stop() error {
	if c.cancel != nil {
		c.cancel()
	}
	c.wg.Wait()
	if err := c.group.Close(); err != nil {
		return fmt.Errorf("failed to close consumer group: %w", err)
	}
	return nil
}

// deliveryHandler implements sarama.ConsumerGroupHandler
type deliveryHandler struct {
	mailer     Mailer
	maxRetries int
	backoff    time.Duration
	now        func() time.Time
	log        *logger.Logger
}

func newDeliveryHandler(mailer Mailer, maxRetries int, backoff time.Duration) *deliveryHandler {
	return &deliveryHandler{
		mailer:     mailer,
		maxRetries: maxRetries,
		backoff:    backoff,
		now:        time.Now,
		log:        logger.GetDefault(),
	}
}

func (h *deliveryHandler) Setup(sarama.ConsumerGroupSession) error   { return nil }
func (h *deliveryHandler) Cleanup(sarama.ConsumerGroupSession) error { return nil }

func (h *deliveryHandler) ConsumeClaim(session sarama.ConsumerGroupSession, claim sarama.ConsumerGroupClaim) error {
	for {
		select {
		case message, ok := <-claim.Messages():
			if !ok {
				return nil
			}
			if err := h.processMessage(session.Context(), message); err != nil {
				h.log.ErrorWithContext(session.Context(), "failed to deliver notification", err, map[string]interface{}{
					"partition": message.Partition,
					"offset":    message.Offset,
				})
			}
			// failed deliveries are not redelivered; the error above is the record
			session.MarkMessage(message, "")
		case <-session.Context().Done():
			return nil
		}
	}
}

func (h *deliveryHandler) processMessage(ctx context.Context, message *sarama.ConsumerMessage) error {
	var n EmailNotification
	if err := json.Unmarshal(message.Value, &n); err != nil {
		return fmt.Errorf("failed to unmarshal notification: %w", err)
	}
	if n.IsExpired(h.now()) {
		h.log.Info("📥 Skipping expired notification", "notification_id", n.ID.String())
		return nil
	}
	return deliver(ctx, h.mailer, &n, h.maxRetries, h.backoff)
}
