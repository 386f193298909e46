package kafka

import (
	"context"
	"encoding/json"
	"errors"

	"github.com/IBM/sarama"
	generalDomain "github.com/sakashimaa/pos-engine/pkg/domain"
	"github.com/sakashimaa/pos-engine/pkg/kafka"
	"github.com/sakashimaa/pos-engine/pkg/mylogger"
	outboxUtils "github.com/sakashimaa/pos-engine/pkg/outbox/utils"
	"github.com/sakashimaa/pos-engine/services/pos/internal/domain"
	"github.com/sakashimaa/pos-engine/services/pos/internal/repository"
	"github.com/sakashimaa/pos-engine/services/pos/internal/service"
	"go.uber.org/zap"
)

var Topics = []string{
	generalDomain.TopicPaymentEvents,
	generalDomain.TopicCatalogEvents,
}

// Consumer applies settlement facts to orders and evicts cached catalog
// entries when the menu changes.
type Consumer struct {
	service service.OrderService
	catalog repository.CatalogInvalidator
	pool    outboxUtils.TxBeginner
	logger  *zap.Logger
}

// NewConsumer accepts a nil catalog when the cache is disabled; catalog events
// are then acknowledged and dropped.
func NewConsumer(
	service service.OrderService,
	catalog repository.CatalogInvalidator,
	pool outboxUtils.TxBeginner,
	logger *zap.Logger,
) *Consumer {
	return &Consumer{
		service: service,
		catalog: catalog,
		pool:    pool,
		logger:  logger,
	}
}

func (c *Consumer) Start(ctx context.Context, brokers []string, groupID string) error {
	consumerGroup := kafka.NewConsumerGroup(
		brokers,
		groupID,
		Topics,
		c.processMessage,
		c.logger,
	)

	return consumerGroup.Run(ctx)
}

type eventWrapper struct {
	Event   string          `json:"event"`
	EventID int64           `json:"event_id"`
	Payload json.RawMessage `json:"payload"`
}

type orderRef struct {
	OrderID int64 `json:"order_id"`
}

func (c *Consumer) processMessage(ctx context.Context, msg *sarama.ConsumerMessage) error {
	mylogger.Debug(
		ctx,
		c.logger,
		"Processing message",
		zap.String("topic", msg.Topic),
		zap.Int64("offset", msg.Offset),
	)

	var wrapper eventWrapper
	if err := json.Unmarshal(msg.Value, &wrapper); err != nil {
		// A malformed message will never parse; acknowledge it instead of
		// blocking the partition.
		mylogger.Error(ctx, c.logger, "Error unmarshalling wrapper", zap.String("topic", msg.Topic), zap.Error(err))
		return nil
	}

	handle := func() error { return c.dispatch(ctx, msg.Topic, &wrapper) }

	if wrapper.EventID == 0 {
		mylogger.Warn(ctx, c.logger, "Event without id, processing without deduplication", zap.String("event_type", wrapper.Event))
		return handle()
	}

	return outboxUtils.ProcessWithDeduplication(
		ctx,
		c.pool,
		c.logger,
		outboxUtils.EventKey(msg.Topic, wrapper.EventID),
		handle,
	)
}

func (c *Consumer) dispatch(ctx context.Context, topic string, wrapper *eventWrapper) error {
	switch wrapper.Event {
	case generalDomain.EventPaymentSucceeded:
		var event generalDomain.PaymentSucceededEvent
		if err := json.Unmarshal(wrapper.Payload, &event); err != nil {
			mylogger.Error(ctx, c.logger, "Failed to unmarshal payload", zap.Error(err))
			return nil
		}

		return c.settled(ctx, wrapper.Event, event.OrderID, c.service.MarkOrderPaid(ctx, event.OrderID))
	case generalDomain.EventPaymentFailed, generalDomain.EventOrderCancelled:
		var ref orderRef
		if err := json.Unmarshal(wrapper.Payload, &ref); err != nil {
			mylogger.Error(ctx, c.logger, "Failed to unmarshal payload", zap.Error(err))
			return nil
		}

		return c.settled(ctx, wrapper.Event, ref.OrderID, c.service.MarkOrderCancelled(ctx, ref.OrderID))
	case generalDomain.EventProductUpdated:
		var event generalDomain.ProductUpdatedEvent
		if err := json.Unmarshal(wrapper.Payload, &event); err != nil {
			mylogger.Error(ctx, c.logger, "Failed to unmarshal payload", zap.Error(err))
			return nil
		}

		if c.catalog == nil {
			return nil
		}
		return c.catalog.InvalidateProduct(ctx, event.ProductID)
	case generalDomain.EventComboUpdated:
		var event generalDomain.ComboUpdatedEvent
		if err := json.Unmarshal(wrapper.Payload, &event); err != nil {
			mylogger.Error(ctx, c.logger, "Failed to unmarshal payload", zap.Error(err))
			return nil
		}

		if c.catalog == nil {
			return nil
		}
		return c.catalog.InvalidateCombo(ctx, event.ComboID)
	default:
		mylogger.Warn(ctx, c.logger, "Ignored event type", zap.String("topic", topic), zap.String("event_type", wrapper.Event))
	}

	return nil
}

// settled drops errors that redelivery cannot fix, such as an unknown order
// or a PAID order told to cancel, so the event is recorded as processed.
func (c *Consumer) settled(ctx context.Context, event string, orderID int64, err error) error {
	if err == nil {
		return nil
	}

	if errors.Is(err, domain.ErrNotFound) || errors.Is(err, domain.ErrInvalidState) {
		mylogger.Warn(
			ctx,
			c.logger,
			"Settlement event rejected",
			zap.String("event_type", event),
			zap.Int64("order_id", orderID),
			zap.Error(err),
		)

		return nil
	}

	mylogger.Error(ctx, c.logger, "Failed to apply settlement event", zap.Int64("order_id", orderID), zap.Error(err))
	return err
}
