package consumer

import (
	"context"
	"errors"

	"github.com/IBM/sarama"
	"github.com/quickbite/order_fulfillment/pkg/logger"
)

// MessageHandler processes a single claimed message. It must never return
// an error for a poisoned message: consumption continues regardless, so
// handlers are expected to dead-letter and swallow their own failures.
type MessageHandler interface {
	HandleMessage(ctx context.Context, msg *sarama.ConsumerMessage)
}

// Group wraps a sarama consumer group: messages are keyed by order id, so
// within one partition handling for a given order is serialized, while
// multiple group members balance partitions between them.
type Group struct {
	log    logger.Logger
	group  sarama.ConsumerGroup
	topics []string

	handler MessageHandler
}

func NewGroup(
	log logger.Logger,
	brokerList []string,
	groupID string,
	topics []string,
	handler MessageHandler,
) (*Group, error) {
	cfg := sarama.NewConfig()
	cfg.Consumer.Group.Rebalance.GroupStrategies = []sarama.BalanceStrategy{
		sarama.NewBalanceStrategyRange(),
	}
	cfg.Consumer.Offsets.Initial = sarama.OffsetOldest

	group, err := sarama.NewConsumerGroup(brokerList, groupID, cfg)
	if err != nil {
		return nil, err
	}

	return &Group{
		log:     log,
		group:   group,
		topics:  topics,
		handler: handler,
	}, nil
}

// Run consumes until ctx is cancelled. Consume returns between
// rebalances, so it is called in a loop.
func (g *Group) Run(ctx context.Context) error {
	const op = "kafka.consumer.Run"

	for {
		if err := g.group.Consume(ctx, g.topics, &groupHandler{ctx: ctx, handler: g.handler}); err != nil {
			if errors.Is(err, sarama.ErrClosedConsumerGroup) {
				return nil
			}
			g.log.Error(op, "error", err.Error())
		}

		if ctx.Err() != nil {
			return ctx.Err()
		}
	}
}

func (g *Group) Close() error {
	return g.group.Close()
}

type groupHandler struct {
	ctx     context.Context
	handler MessageHandler
}

func (h *groupHandler) Setup(sarama.ConsumerGroupSession) error   { return nil }
func (h *groupHandler) Cleanup(sarama.ConsumerGroupSession) error { return nil }

func (h *groupHandler) ConsumeClaim(session sarama.ConsumerGroupSession, claim sarama.ConsumerGroupClaim) error {
	for {
		select {
		case msg, ok := <-claim.Messages():
			if !ok {
				return nil
			}

			h.handler.HandleMessage(h.ctx, msg)
			session.MarkMessage(msg, "")
		case <-session.Context().Done():
			return nil
		}
	}
}
