package tests

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	generalDomain "github.com/sakashimaa/pos-engine/pkg/domain"
	"github.com/sakashimaa/pos-engine/services/pos/internal/domain"
	"github.com/shopspring/decimal"
)

func (s *IntegrationTestSuite) TestOutbox_PublishesOrderAndTableEvents() {
	view, err := s.TableService.Seat(s.Ctx, tableOne, nil)
	s.Require().NoError(err)
	orderID := view.Order.ID

	_, err = s.OrderService.CompleteOrder(s.Ctx, orderID)
	s.Require().NoError(err)

	eventsQuery := `
		SELECT event_type
		FROM outbox
		ORDER BY id
	`
	rows, err := s.DbPool.Query(s.Ctx, eventsQuery)
	s.Require().NoError(err)

	var types []string
	for rows.Next() {
		var eventType string
		s.Require().NoError(rows.Scan(&eventType))
		types = append(types, eventType)
	}
	rows.Close()
	s.Require().NoError(rows.Err())

	s.Equal([]string{
		generalDomain.EventOrderCreated,
		generalDomain.EventTableSeated,
		generalDomain.EventOrderCompleted,
	}, types)

	pendingQuery := `
		SELECT COUNT(*)
		FROM outbox
		WHERE published_at IS NULL
	`

	s.Require().Eventually(func() bool {
		var pending int
		if err := s.DbPool.QueryRow(s.Ctx, pendingQuery).Scan(&pending); err != nil {
			return false
		}
		return pending == 0
	}, 10*time.Second, 100*time.Millisecond)

	var aggregateID string
	err = s.DbPool.QueryRow(s.Ctx, `SELECT aggregate_id FROM outbox WHERE event_type = $1`, generalDomain.EventOrderCompleted).
		Scan(&aggregateID)
	s.Require().NoError(err)
	s.Equal(fmt.Sprintf("%d", orderID), aggregateID)
}

func (s *IntegrationTestSuite) TestOutbox_RollbackLeavesNoEvent() {
	_, err := s.TableService.Seat(s.Ctx, tableRetired, nil)
	s.Require().ErrorIs(err, domain.ErrTableInactive)

	var events int
	s.Require().NoError(s.DbPool.QueryRow(s.Ctx, `SELECT COUNT(*) FROM outbox`).Scan(&events))
	s.Zero(events)
}

// The topic outlives SetupTest, so every consumed message lives in this one
// test to keep replays from touching the next test's orders.
func (s *IntegrationTestSuite) TestConsumer_SettlementAndCacheEviction() {
	paid, err := s.TableService.Seat(s.Ctx, tableOne, nil)
	s.Require().NoError(err)
	paidID := paid.Order.ID

	untouched := s.newDraft()
	cancelled := s.newDraft()

	product, err := s.Catalog.GetProduct(s.Ctx, nil, latteID)
	s.Require().NoError(err)
	s.Equal("59.00", product.UnitPrice.StringFixed(2))

	// Both subscribed topics must exist before the group joins.
	s.produce(generalDomain.TopicCatalogEvents, "combo", 100, generalDomain.EventComboUpdated,
		generalDomain.ComboUpdatedEvent{ComboID: breakfastID})

	s.produce(generalDomain.TopicPaymentEvents, "settlement", 101, generalDomain.EventPaymentSucceeded,
		generalDomain.PaymentSucceededEvent{OrderID: paidID, PaymentID: 1, Amount: "0.00", PaidAt: time.Now()})

	// Same event id again with a different payload; deduplication must drop it.
	s.produce(generalDomain.TopicPaymentEvents, "settlement", 101, generalDomain.EventPaymentFailed,
		generalDomain.PaymentFailedEvent{OrderID: untouched.ID, PaymentID: 2, Amount: "0.00", FailedAt: time.Now()})

	s.produce(generalDomain.TopicPaymentEvents, "settlement", 102, generalDomain.EventOrderCancelled,
		generalDomain.OrderCancelledEvent{OrderID: cancelled.ID, Reason: "guest left"})

	consumerCtx, cancel := context.WithCancel(s.Ctx)
	defer cancel()

	go func() {
		_ = s.Consumer.Start(consumerCtx, s.KafkaBrokers, "pos-test-"+uuid.NewString())
	}()

	s.Require().Eventually(func() bool {
		return s.orderStatus(cancelled.ID) == domain.OrderStatusCancelled
	}, 30*time.Second, 200*time.Millisecond)

	s.Equal(domain.OrderStatusPaid, s.orderStatus(paidID))
	s.Equal(domain.OrderStatusDraft, s.orderStatus(untouched.ID))

	var processed int
	err = s.DbPool.QueryRow(s.Ctx, `SELECT COUNT(*) FROM processed_events WHERE event_key LIKE $1`, generalDomain.TopicPaymentEvents+":%").
		Scan(&processed)
	s.Require().NoError(err)
	s.Equal(2, processed)

	released, err := s.TableService.EndDining(s.Ctx, tableOne)
	s.Require().NoError(err)
	s.Equal(domain.TableStatusAvailable, released.Status)

	_, err = s.DbPool.Exec(s.Ctx, `UPDATE products SET unit_price = 62.00 WHERE id = $1`, latteID)
	s.Require().NoError(err)

	s.produce(generalDomain.TopicCatalogEvents, "product", 103, generalDomain.EventProductUpdated,
		generalDomain.ProductUpdatedEvent{ProductID: latteID})

	s.Require().Eventually(func() bool {
		exists, err := s.Redis.Exists(s.Ctx, "pos:product:1").Result()
		return err == nil && exists == 0
	}, 30*time.Second, 200*time.Millisecond)

	product, err = s.Catalog.GetProduct(s.Ctx, nil, latteID)
	s.Require().NoError(err)
	s.True(product.UnitPrice.Equal(decimal.RequireFromString("62.00")))
}

func (s *IntegrationTestSuite) produce(topic, key string, eventID int64, event string, payload any) {
	message := map[string]any{
		"event":    event,
		"event_id": eventID,
		"payload":  payload,
	}
	s.Require().NoError(s.TestProducer.ProduceMessage(s.Ctx, topic, key, message))
}
