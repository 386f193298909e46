package service

import (
	"context"
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

// TableService binds dining tables to orders. A table never owns its order:
// releasing or moving a table leaves the order row untouched.
type TableService interface {
	// Seat occupies an AVAILABLE table. With a nil orderID a new DINE_IN draft
	// is created in the same transaction.
	Seat(ctx context.Context, tableID int64, orderID *int64) (*domain.TableView, error)
	Transfer(ctx context.Context, fromTableID, toTableID int64) (*domain.TransferResult, error)
	EndDining(ctx context.Context, tableID int64) (*domain.DiningTable, error)
	GetTable(ctx context.Context, tableID int64) (*domain.TableView, error)
	ListTables(ctx context.Context, filter domain.ListTablesFilter) ([]domain.TableView, error)
}

type tableService struct {
	pool       TxBeginner
	logger     *zap.Logger
	tableRepo  repository.TableRepository
	orderRepo  repository.OrderRepository
	outboxRepo worker.OutboxRepository
	metrics    *metrics.Metrics
	tracer     trace.Tracer
}

func NewTableService(
	pool TxBeginner,
	logger *zap.Logger,
	tableRepo repository.TableRepository,
	orderRepo repository.OrderRepository,
	outboxRepo worker.OutboxRepository,
	m *metrics.Metrics,
) TableService {
	return &tableService{
		pool:       pool,
		logger:     logger,
		tableRepo:  tableRepo,
		orderRepo:  orderRepo,
		outboxRepo: outboxRepo,
		metrics:    m,
		tracer:     otel.Tracer("table_service"),
	}
}

func (s *tableService) Seat(ctx context.Context, tableID int64, orderID *int64) (*domain.TableView, error) {
	ctx, span := s.tracer.Start(ctx, "TableService.Seat")
	defer span.End()

	span.SetAttributes(attribute.Int64("table_id", tableID))

	var (
		seated *domain.DiningTable
		order  *domain.Order
	)
	err := withTx(ctx, s.pool, s.logger, func(tx pgx.Tx) error {
		table, err := s.tableRepo.LockTable(ctx, tx, tableID)
		if err != nil {
			return err
		}

		if !table.IsActive {
			return domain.ErrTableInactive
		}
		if table.IsOccupied() {
			return domain.ErrTableOccupied
		}

		newOrder := orderID == nil
		if newOrder {
			order, err = createDraftOrder(ctx, tx, s.orderRepo, s.outboxRepo, domain.OrderTypeDineIn, "")
			if err != nil {
				return err
			}
		} else {
			order, err = s.orderRepo.LockOrder(ctx, tx, *orderID)
			if err != nil {
				return err
			}

			if order.Status != domain.OrderStatusDraft {
				return domain.ErrOrderNotDraft
			}

			alreadySeated, err := s.tableRepo.IsOrderSeated(ctx, tx, order.ID)
			if err != nil {
				return err
			}
			if alreadySeated {
				return domain.ErrOrderAlreadySeated
			}
		}

		seated, err = s.tableRepo.Occupy(ctx, tx, tableID, order.ID)
		if err != nil {
			return err
		}

		// Locking leaves lines unloaded; the summary needs them.
		if !newOrder {
			order, err = s.orderRepo.GetOrder(ctx, tx, order.ID)
			if err != nil {
				return err
			}
		}

		return emitEvent(ctx, tx, s.outboxRepo, generalDomain.TopicTableEvents, "DiningTable", tableID, generalDomain.EventTableSeated,
			&generalDomain.TableSeatedEvent{
				TableID:     seated.ID,
				TableNumber: seated.TableNumber,
				OrderID:     order.ID,
				NewOrder:    newOrder,
				SeatedAt:    time.Now().UTC(),
			})
	})
	s.metrics.ObserveTableOperation("seat", err)
	if err != nil {
		span.RecordError(err)
		mylogger.Warn(ctx, s.logger, "Seat failed", zap.Int64("table_id", tableID), zap.Error(err))
		return nil, err
	}

	if orderID == nil {
		s.metrics.ObserveOrderCreated()
	}

	mylogger.Info(
		ctx,
		s.logger,
		"Table seated",
		zap.Int64("table_id", tableID),
		zap.Int64("order_id", order.ID),
	)

	return &domain.TableView{
		DiningTable: *seated,
		Order: &domain.OrderSummary{
			ID:          order.ID,
			Status:      order.Status,
			TotalAmount: order.TotalAmount,
			LineCount:   countVisibleLines(order.Lines),
		},
	}, nil
}

func countVisibleLines(lines []domain.OrderLine) int {
	n := 0
	for _, l := range lines {
		if l.Kind != domain.LineKindComboMember {
			n++
		}
	}
	return n
}

func (s *tableService) Transfer(ctx context.Context, fromTableID, toTableID int64) (*domain.TransferResult, error) {
	ctx, span := s.tracer.Start(ctx, "TableService.Transfer")
	defer span.End()

	span.SetAttributes(
		attribute.Int64("from_table_id", fromTableID),
		attribute.Int64("to_table_id", toTableID),
	)

	if fromTableID == toTableID {
		return nil, domain.ErrSameTable
	}

	var result *domain.TransferResult
	err := withTx(ctx, s.pool, s.logger, func(tx pgx.Tx) error {
		tables, err := s.tableRepo.LockTables(ctx, tx, fromTableID, toTableID)
		if err != nil {
			return err
		}

		source, ok := tables[fromTableID]
		if !ok {
			return domain.ErrSourceNotFound
		}
		if !source.IsOccupied() {
			return domain.ErrSourceNotOccupied
		}
		if source.CurrentOrderID == nil {
			return domain.ErrSourceNoOrder
		}

		target, ok := tables[toTableID]
		if !ok {
			return domain.ErrTargetNotFound
		}
		if !target.IsActive {
			return domain.ErrTargetInactive
		}
		if target.IsOccupied() {
			return domain.ErrTargetOccupied
		}

		orderID := *source.CurrentOrderID

		// The source must let go first: current_order_id is unique.
		from, err := s.tableRepo.Release(ctx, tx, fromTableID, orderID)
		if err != nil {
			return err
		}

		to, err := s.tableRepo.Occupy(ctx, tx, toTableID, orderID)
		if err != nil {
			return err
		}

		result = &domain.TransferResult{From: from, To: to, OrderID: orderID}

		return emitEvent(ctx, tx, s.outboxRepo, generalDomain.TopicTableEvents, "DiningTable", toTableID, generalDomain.EventTableTransferred,
			&generalDomain.TableTransferredEvent{
				FromTableID:   fromTableID,
				ToTableID:     toTableID,
				OrderID:       orderID,
				TransferredAt: time.Now().UTC(),
			})
	})
	s.metrics.ObserveTableOperation("transfer", err)
	if err != nil {
		span.RecordError(err)
		mylogger.Warn(
			ctx,
			s.logger,
			"Transfer failed",
			zap.Int64("from_table_id", fromTableID),
			zap.Int64("to_table_id", toTableID),
			zap.Error(err),
		)
		return nil, err
	}

	mylogger.Info(
		ctx,
		s.logger,
		"Table transferred",
		zap.Int64("from_table_id", fromTableID),
		zap.Int64("to_table_id", toTableID),
		zap.Int64("order_id", result.OrderID),
	)

	return result, nil
}

func (s *tableService) EndDining(ctx context.Context, tableID int64) (*domain.DiningTable, error) {
	ctx, span := s.tracer.Start(ctx, "TableService.EndDining")
	defer span.End()

	span.SetAttributes(attribute.Int64("table_id", tableID))

	var released *domain.DiningTable
	err := withTx(ctx, s.pool, s.logger, func(tx pgx.Tx) error {
		table, err := s.tableRepo.LockTable(ctx, tx, tableID)
		if err != nil {
			return err
		}

		if !table.IsOccupied() || table.CurrentOrderID == nil {
			return domain.ErrTableNotOccupied
		}

		orderID := *table.CurrentOrderID

		status, err := s.orderRepo.GetOrderStatus(ctx, tx, orderID)
		if err != nil {
			return err
		}

		if !status.IsSettled() {
			return domain.ErrOrderNotSettled
		}

		released, err = s.tableRepo.Release(ctx, tx, tableID, orderID)
		if err != nil {
			return err
		}

		return emitEvent(ctx, tx, s.outboxRepo, generalDomain.TopicTableEvents, "DiningTable", tableID, generalDomain.EventTableReleased,
			&generalDomain.TableReleasedEvent{
				TableID:     tableID,
				OrderID:     orderID,
				OrderStatus: string(status),
				ReleasedAt:  time.Now().UTC(),
			})
	})
	s.metrics.ObserveTableOperation("end_dining", err)
	if err != nil {
		span.RecordError(err)
		mylogger.Warn(ctx, s.logger, "End dining failed", zap.Int64("table_id", tableID), zap.Error(err))
		return nil, err
	}

	mylogger.Info(ctx, s.logger, "Table released", zap.Int64("table_id", tableID))

	return released, nil
}

func (s *tableService) GetTable(ctx context.Context, tableID int64) (*domain.TableView, error) {
	ctx, span := s.tracer.Start(ctx, "TableService.GetTable")
	defer span.End()

	return s.tableRepo.GetTable(ctx, tableID)
}

func (s *tableService) ListTables(ctx context.Context, filter domain.ListTablesFilter) ([]domain.TableView, error) {
	ctx, span := s.tracer.Start(ctx, "TableService.ListTables")
	defer span.End()

	return s.tableRepo.ListTables(ctx, filter)
}
