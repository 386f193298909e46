package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	generalDomain "github.com/sakashimaa/pos-engine/pkg/domain"
	"github.com/sakashimaa/pos-engine/pkg/mylogger"
	"github.com/sakashimaa/pos-engine/pkg/outbox/worker"
	"github.com/sakashimaa/pos-engine/services/pos/internal/domain"
	"github.com/sakashimaa/pos-engine/services/pos/internal/metrics"
	"github.com/sakashimaa/pos-engine/services/pos/internal/repository"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

type CreateOrderInput struct {
	OrderType domain.OrderType
	Note      string
	Lines     []domain.LineSpec
}

// OrderService builds orders line by line and drives their lifecycle. Every
// mutating call runs in one transaction that also rewrites the order total.
type OrderService interface {
	CreateOrder(ctx context.Context, input CreateOrderInput) (*domain.Order, error)
	GetOrder(ctx context.Context, orderID int64) (*domain.Order, error)
	AddLine(ctx context.Context, orderID int64, spec domain.LineSpec) (*domain.Order, error)
	UpdateLine(ctx context.Context, orderID, lineID int64, spec domain.LineSpec) (*domain.Order, error)
	RemoveLine(ctx context.Context, orderID, lineID int64) (*domain.Order, error)
	CompleteOrder(ctx context.Context, orderID int64) (*domain.Order, error)
	MarkOrderPaid(ctx context.Context, orderID int64) error
	MarkOrderCancelled(ctx context.Context, orderID int64) error
}

type orderService struct {
	pool       TxBeginner
	logger     *zap.Logger
	orderRepo  repository.OrderRepository
	outboxRepo worker.OutboxRepository
	pricer     *linePricer
	metrics    *metrics.Metrics
	tracer     trace.Tracer
}

func NewOrderService(
	pool TxBeginner,
	logger *zap.Logger,
	orderRepo repository.OrderRepository,
	catalog repository.CatalogRepository,
	outboxRepo worker.OutboxRepository,
	m *metrics.Metrics,
) OrderService {
	return &orderService{
		pool:       pool,
		logger:     logger,
		orderRepo:  orderRepo,
		outboxRepo: outboxRepo,
		pricer:     &linePricer{catalog: catalog},
		metrics:    m,
		tracer:     otel.Tracer("order_service"),
	}
}

func (s *orderService) CreateOrder(ctx context.Context, input CreateOrderInput) (*domain.Order, error) {
	ctx, span := s.tracer.Start(ctx, "OrderService.CreateOrder")
	defer span.End()

	if input.OrderType == "" {
		input.OrderType = domain.OrderTypeDineIn
	}
	if !input.OrderType.Valid() {
		return nil, domain.ErrInvalidOrderType
	}

	span.SetAttributes(
		attribute.String("order_type", string(input.OrderType)),
		attribute.Int("line_count", len(input.Lines)),
	)

	for i, spec := range input.Lines {
		if err := spec.Validate(); err != nil {
			mylogger.Warn(ctx, s.logger, "Initial order line invalid", zap.Int("line_index", i), zap.Error(err))
			return nil, err
		}
	}

	var result *domain.Order
	err := withTx(ctx, s.pool, s.logger, func(tx pgx.Tx) error {
		order, err := createDraftOrder(ctx, tx, s.orderRepo, s.outboxRepo, input.OrderType, input.Note)
		if err != nil {
			return err
		}

		for i, spec := range input.Lines {
			p, err := s.pricer.price(ctx, tx, spec)
			if err != nil {
				mylogger.Warn(ctx, s.logger, "Initial order line rejected", zap.Int("line_index", i), zap.Error(err))
				return err
			}

			if err := s.insertPriced(ctx, tx, order.ID, p); err != nil {
				return err
			}
		}

		if _, err := s.orderRepo.RecalculateTotal(ctx, tx, order.ID); err != nil {
			return err
		}

		result, err = s.orderRepo.GetOrder(ctx, tx, order.ID)
		return err
	})
	if err != nil {
		span.RecordError(err)
		return nil, err
	}

	s.metrics.ObserveOrderCreated()

	mylogger.Info(
		ctx,
		s.logger,
		"Order created",
		zap.Int64("order_id", result.ID),
		zap.String("total_amount", result.TotalAmount.StringFixed(2)),
	)

	return result, nil
}

// createDraftOrder inserts an empty DRAFT order and queues OrderCreated.
func createDraftOrder(
	ctx context.Context,
	tx pgx.Tx,
	orderRepo repository.OrderRepository,
	outboxRepo worker.OutboxRepository,
	orderType domain.OrderType,
	note string,
) (*domain.Order, error) {
	order := &domain.Order{
		Status:    domain.OrderStatusDraft,
		OrderType: orderType,
		Note:      note,
	}
	order.CalculateTotal()

	if err := orderRepo.CreateOrder(ctx, tx, order); err != nil {
		return nil, err
	}

	err := emitEvent(ctx, tx, outboxRepo, generalDomain.TopicOrderEvents, "Order", order.ID, generalDomain.EventOrderCreated,
		&generalDomain.OrderCreatedEvent{
			OrderID:     order.ID,
			OrderType:   string(order.OrderType),
			TotalAmount: order.TotalAmount.StringFixed(2),
		})
	if err != nil {
		return nil, err
	}

	return order, nil
}

func (s *orderService) GetOrder(ctx context.Context, orderID int64) (*domain.Order, error) {
	ctx, span := s.tracer.Start(ctx, "OrderService.GetOrder")
	defer span.End()

	return s.orderRepo.GetOrder(ctx, nil, orderID)
}

func (s *orderService) AddLine(ctx context.Context, orderID int64, spec domain.LineSpec) (*domain.Order, error) {
	ctx, span := s.tracer.Start(ctx, "OrderService.AddLine")
	defer span.End()

	span.SetAttributes(
		attribute.Int64("order_id", orderID),
		attribute.String("kind", string(spec.Kind)),
	)

	order, err := s.mutate(ctx, orderID, spec.Validate, func(tx pgx.Tx) error {
		p, err := s.pricer.price(ctx, tx, spec)
		if err != nil {
			return err
		}

		return s.insertPriced(ctx, tx, orderID, p)
	})
	s.metrics.ObserveLineMutation("add", err)
	if err != nil {
		span.RecordError(err)
		mylogger.Warn(ctx, s.logger, "Add line failed", zap.Int64("order_id", orderID), zap.Error(err))
		return nil, err
	}

	return order, nil
}

func (s *orderService) UpdateLine(ctx context.Context, orderID, lineID int64, spec domain.LineSpec) (*domain.Order, error) {
	ctx, span := s.tracer.Start(ctx, "OrderService.UpdateLine")
	defer span.End()

	span.SetAttributes(
		attribute.Int64("order_id", orderID),
		attribute.Int64("line_id", lineID),
	)

	order, err := s.mutate(ctx, orderID, spec.Validate, func(tx pgx.Tx) error {
		existing, err := s.orderRepo.GetLine(ctx, tx, orderID, lineID)
		if err != nil {
			return err
		}

		if existing.Kind == domain.LineKindComboMember {
			return domain.ErrComboMemberImmutable
		}
		if existing.Kind != spec.Kind {
			return domain.ErrLineKindMismatch
		}

		p, err := s.pricer.price(ctx, tx, spec)
		if err != nil {
			return err
		}

		p.line.ID = existing.ID
		p.line.OrderID = orderID
		if err := s.orderRepo.UpdateLine(ctx, tx, &p.line); err != nil {
			return err
		}

		if existing.Kind != domain.LineKindCombo {
			return nil
		}

		if err := s.orderRepo.DeleteChildLines(ctx, tx, existing.ID); err != nil {
			return err
		}

		return s.insertMembers(ctx, tx, orderID, existing.ID, p.members)
	})
	s.metrics.ObserveLineMutation("update", err)
	if err != nil {
		span.RecordError(err)
		mylogger.Warn(ctx, s.logger, "Update line failed", zap.Int64("order_id", orderID), zap.Int64("line_id", lineID), zap.Error(err))
		return nil, err
	}

	return order, nil
}

func (s *orderService) RemoveLine(ctx context.Context, orderID, lineID int64) (*domain.Order, error) {
	ctx, span := s.tracer.Start(ctx, "OrderService.RemoveLine")
	defer span.End()

	span.SetAttributes(
		attribute.Int64("order_id", orderID),
		attribute.Int64("line_id", lineID),
	)

	order, err := s.mutate(ctx, orderID, nil, func(tx pgx.Tx) error {
		existing, err := s.orderRepo.GetLine(ctx, tx, orderID, lineID)
		if err != nil {
			return err
		}

		switch existing.Kind {
		case domain.LineKindComboMember:
			return domain.ErrComboMemberImmutable
		case domain.LineKindCombo:
			if err := s.orderRepo.DeleteChildLines(ctx, tx, existing.ID); err != nil {
				return err
			}
		}

		return s.orderRepo.DeleteLine(ctx, tx, existing.ID)
	})
	s.metrics.ObserveLineMutation("remove", err)
	if err != nil {
		span.RecordError(err)
		mylogger.Warn(ctx, s.logger, "Remove line failed", zap.Int64("order_id", orderID), zap.Int64("line_id", lineID), zap.Error(err))
		return nil, err
	}

	return order, nil
}

// mutate runs change against a DRAFT order held under a row lock, then
// recomputes the total and returns the order as committed.
func (s *orderService) mutate(
	ctx context.Context,
	orderID int64,
	validate func() error,
	change func(tx pgx.Tx) error,
) (*domain.Order, error) {
	if validate != nil {
		if err := validate(); err != nil {
			return nil, err
		}
	}

	var result *domain.Order
	err := withTx(ctx, s.pool, s.logger, func(tx pgx.Tx) error {
		order, err := s.orderRepo.LockOrder(ctx, tx, orderID)
		if err != nil {
			return err
		}

		if !order.Status.IsMutable() {
			return fmt.Errorf("order %d is %s: %w", orderID, order.Status, domain.ErrOrderNotMutable)
		}

		if err := change(tx); err != nil {
			return err
		}

		if _, err := s.orderRepo.RecalculateTotal(ctx, tx, orderID); err != nil {
			return err
		}

		result, err = s.orderRepo.GetOrder(ctx, tx, orderID)
		return err
	})
	if err != nil {
		return nil, err
	}

	return result, nil
}

func (s *orderService) insertPriced(ctx context.Context, tx pgx.Tx, orderID int64, p *pricedLine) error {
	p.line.OrderID = orderID
	if err := s.orderRepo.InsertLine(ctx, tx, &p.line); err != nil {
		return err
	}

	return s.insertMembers(ctx, tx, orderID, p.line.ID, p.members)
}

func (s *orderService) insertMembers(ctx context.Context, tx pgx.Tx, orderID, parentLineID int64, members []domain.OrderLine) error {
	for i := range members {
		members[i].OrderID = orderID
		members[i].Member.ParentLineID = parentLineID

		if err := s.orderRepo.InsertLine(ctx, tx, &members[i]); err != nil {
			return err
		}
	}

	return nil
}

func (s *orderService) CompleteOrder(ctx context.Context, orderID int64) (*domain.Order, error) {
	ctx, span := s.tracer.Start(ctx, "OrderService.CompleteOrder")
	defer span.End()

	span.SetAttributes(attribute.Int64("order_id", orderID))

	var result *domain.Order
	err := withTx(ctx, s.pool, s.logger, func(tx pgx.Tx) error {
		order, err := s.orderRepo.LockOrder(ctx, tx, orderID)
		if err != nil {
			return err
		}

		if order.Status != domain.OrderStatusDraft {
			return fmt.Errorf("order %d is %s: %w", orderID, order.Status, domain.ErrOrderNotMutable)
		}

		if _, err := s.orderRepo.UpdateStatus(ctx, tx, orderID, domain.OrderStatusCompleted, domain.OrderStatusDraft); err != nil {
			return err
		}

		result, err = s.orderRepo.GetOrder(ctx, tx, orderID)
		if err != nil {
			return err
		}

		return emitEvent(ctx, tx, s.outboxRepo, generalDomain.TopicOrderEvents, "Order", orderID, generalDomain.EventOrderCompleted,
			&generalDomain.OrderCompletedEvent{
				OrderID:     result.ID,
				OrderType:   string(result.OrderType),
				TotalAmount: result.TotalAmount.StringFixed(2),
				Items:       eventItems(result.Lines),
				CompletedAt: time.Now().UTC(),
			})
	})
	if err != nil {
		span.RecordError(err)
		mylogger.Warn(ctx, s.logger, "Complete order failed", zap.Int64("order_id", orderID), zap.Error(err))
		return nil, err
	}

	s.metrics.ObserveStatusChange(domain.OrderStatusCompleted)

	mylogger.Info(
		ctx,
		s.logger,
		"Order completed",
		zap.Int64("order_id", orderID),
		zap.String("total_amount", result.TotalAmount.StringFixed(2)),
	)

	return result, nil
}

func eventItems(lines []domain.OrderLine) []generalDomain.OrderLineItem {
	items := make([]generalDomain.OrderLineItem, 0, len(lines))
	for i := range lines {
		line := &lines[i]
		items = append(items, generalDomain.OrderLineItem{
			LineID:       line.ID,
			Kind:         string(line.Kind),
			ParentLineID: line.ParentLineID(),
			ProductID:    line.ProductID(),
			ComboID:      line.ComboID(),
			Name:         line.Name(),
			Quantity:     line.Quantity,
			Subtotal:     line.Subtotal.StringFixed(2),
		})
	}
	return items
}

func (s *orderService) MarkOrderPaid(ctx context.Context, orderID int64) error {
	return s.settle(ctx, orderID, domain.OrderStatusPaid)
}

func (s *orderService) MarkOrderCancelled(ctx context.Context, orderID int64) error {
	return s.settle(ctx, orderID, domain.OrderStatusCancelled)
}

// settle applies an externally decided PAID or CANCELLED status. Repeating the
// same status is a no-op so redelivered events are harmless.
func (s *orderService) settle(ctx context.Context, orderID int64, to domain.OrderStatus) error {
	ctx, span := s.tracer.Start(ctx, "OrderService.settle")
	defer span.End()

	span.SetAttributes(
		attribute.Int64("order_id", orderID),
		attribute.String("status", string(to)),
	)

	changed := false
	err := withTx(ctx, s.pool, s.logger, func(tx pgx.Tx) error {
		order, err := s.orderRepo.LockOrder(ctx, tx, orderID)
		if err != nil {
			return err
		}

		switch order.Status {
		case to:
			return nil
		case domain.OrderStatusPaid, domain.OrderStatusCancelled:
			return fmt.Errorf("order %d is %s, cannot become %s: %w", orderID, order.Status, to, domain.ErrStatusCrossover)
		}

		changed, err = s.orderRepo.UpdateStatus(ctx, tx, orderID, to, domain.OrderStatusDraft, domain.OrderStatusCompleted)
		return err
	})
	if err != nil {
		span.RecordError(err)

		if errors.Is(err, domain.ErrOrderNotFound) {
			mylogger.Warn(ctx, s.logger, "Order not found", zap.Int64("order_id", orderID))
		} else {
			mylogger.Error(ctx, s.logger, "Failed to settle order", zap.Int64("order_id", orderID), zap.Error(err))
		}

		return err
	}

	if changed {
		s.metrics.ObserveStatusChange(to)
		mylogger.Info(ctx, s.logger, "Order settled", zap.Int64("order_id", orderID), zap.String("status", string(to)))
	}

	return nil
}
