package outbox

import (
	"context"
	"time"

	"github.com/IBM/sarama"
	"github.com/quickbite/order_fulfillment/internal/domain/models"
	"github.com/quickbite/order_fulfillment/pkg/logger"
)

type pendingPublisher interface {
	PublishPending(ctx context.Context, limit int, send func(messages []models.OutboxMessage) error) (int, error)
}

type messageSender interface {
	SendMessages(msgs []*sarama.ProducerMessage) error
}

// Publisher bridges the outbox table and the log. It holds no volatile
// state and tolerates unbounded restarts: anything unpublished is picked
// up again on the next tick.
type Publisher struct {
	log      logger.Logger
	producer messageSender
	repo     pendingPublisher

	eventsTopic string
	sagaTopic   string

	pollInterval time.Duration
	batchSize    int
}

func NewPublisher(
	log logger.Logger,
	producer messageSender,
	repo pendingPublisher,
	eventsTopic string,
	sagaTopic string,
	pollInterval time.Duration,
	batchSize int,
) *Publisher {
	return &Publisher{
		log:          log,
		producer:     producer,
		repo:         repo,
		eventsTopic:  eventsTopic,
		sagaTopic:    sagaTopic,
		pollInterval: pollInterval,
		batchSize:    batchSize,
	}
}

// Run polls until ctx is cancelled. Transient store or broker errors are
// logged and the loop keeps ticking; nothing is ever propagated upward.
func (p *Publisher) Run(ctx context.Context) error {
	const op = "workers.outbox.Run"

	p.log.Info(op, "poll_interval", p.pollInterval.String(), "batch_size", p.batchSize)

	ticker := time.NewTicker(p.pollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			published, err := p.publishBatch(ctx)
			if err != nil {
				p.log.Error(op, "error", err.Error())
				continue
			}

			if published > 0 {
				p.log.Info(op, "published", published)
			}
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

func (p *Publisher) publishBatch(ctx context.Context) (int, error) {
	return p.repo.PublishPending(ctx, p.batchSize, func(messages []models.OutboxMessage) error {
		saramaMessages := make([]*sarama.ProducerMessage, 0, len(messages))

		for _, msg := range messages {
			saramaMessages = append(saramaMessages, &sarama.ProducerMessage{
				Topic: p.topicFor(msg.EventType),
				Key:   sarama.StringEncoder(msg.OrderID.String()),
				Value: sarama.ByteEncoder(msg.Payload),
			})
		}

		return p.producer.SendMessages(saramaMessages)
	})
}

// topicFor routes lifecycle events to the events topic and payment or
// inventory signals to the saga topic.
func (p *Publisher) topicFor(eventType models.EventType) string {
	switch eventType {
	case models.EventPaymentConfirmed, models.EventPaymentFailed,
		models.EventInventoryReserved, models.EventInventoryFailed:
		return p.sagaTopic
	default:
		return p.eventsTopic
	}
}
