package repository

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/sakashimaa/pos-engine/pkg/mylogger"
	"github.com/sakashimaa/pos-engine/services/pos/internal/domain"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

type TableRepository interface {
	// LockTable reads the table row FOR UPDATE.
	LockTable(ctx context.Context, tx pgx.Tx, tableID int64) (*domain.DiningTable, error)
	// LockTables locks every existing row among ids in ascending id order, so
	// two transfers over the same pair cannot deadlock. Missing ids are absent
	// from the result.
	LockTables(ctx context.Context, tx pgx.Tx, ids ...int64) (map[int64]*domain.DiningTable, error)
	IsOrderSeated(ctx context.Context, tx pgx.Tx, orderID int64) (bool, error)
	// Occupy binds orderID to an AVAILABLE table. It is a compare-and-set: a
	// table that is no longer AVAILABLE yields ErrTableOccupied.
	Occupy(ctx context.Context, tx pgx.Tx, tableID, orderID int64) (*domain.DiningTable, error)
	// Release clears the binding of an OCCUPIED table holding orderID.
	Release(ctx context.Context, tx pgx.Tx, tableID, orderID int64) (*domain.DiningTable, error)
	GetTable(ctx context.Context, tableID int64) (*domain.TableView, error)
	ListTables(ctx context.Context, filter domain.ListTablesFilter) ([]domain.TableView, error)
}

type tableRepo struct {
	pool   *pgxpool.Pool
	logger *zap.Logger
	tracer trace.Tracer
}

func NewTableRepository(pool *pgxpool.Pool, logger *zap.Logger) TableRepository {
	return &tableRepo{
		pool:   pool,
		logger: logger,
		tracer: otel.Tracer("table_repository"),
	}
}

const tableColumns = `id, table_number, is_active, status, current_order_id, updated_at`

func scanTable(row pgx.Row) (*domain.DiningTable, error) {
	var t domain.DiningTable
	if err := row.Scan(
		&t.ID,
		&t.TableNumber,
		&t.IsActive,
		&t.Status,
		&t.CurrentOrderID,
		&t.UpdatedAt,
	); err != nil {
		return nil, err
	}
	return &t, nil
}

func (r *tableRepo) LockTable(ctx context.Context, tx pgx.Tx, tableID int64) (*domain.DiningTable, error) {
	ctx, span := r.tracer.Start(ctx, "TableRepository.LockTable")
	defer span.End()

	span.SetAttributes(attribute.Int64("table_id", tableID))

	query := `SELECT ` + tableColumns + ` FROM dining_tables WHERE id = $1 FOR UPDATE`

	table, err := scanTable(tx.QueryRow(ctx, query, tableID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrTableNotFound
		}

		span.RecordError(err)
		return nil, fmt.Errorf("failed to lock table: %w", err)
	}

	return table, nil
}

func (r *tableRepo) LockTables(ctx context.Context, tx pgx.Tx, ids ...int64) (map[int64]*domain.DiningTable, error) {
	ctx, span := r.tracer.Start(ctx, "TableRepository.LockTables")
	defer span.End()

	span.SetAttributes(attribute.Int64Slice("table_ids", ids))

	query := `SELECT ` + tableColumns + ` FROM dining_tables WHERE id = ANY($1) ORDER BY id FOR UPDATE`

	rows, err := tx.Query(ctx, query, ids)
	if err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("failed to lock tables: %w", err)
	}
	defer rows.Close()

	tables := make(map[int64]*domain.DiningTable, len(ids))
	for rows.Next() {
		table, err := scanTable(rows)
		if err != nil {
			span.RecordError(err)
			return nil, fmt.Errorf("failed to scan table: %w", err)
		}
		tables[table.ID] = table
	}

	if err := rows.Err(); err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("failed to iterate tables: %w", err)
	}

	return tables, nil
}

func (r *tableRepo) IsOrderSeated(ctx context.Context, tx pgx.Tx, orderID int64) (bool, error) {
	ctx, span := r.tracer.Start(ctx, "TableRepository.IsOrderSeated")
	defer span.End()

	span.SetAttributes(attribute.Int64("order_id", orderID))

	query := `SELECT EXISTS (SELECT 1 FROM dining_tables WHERE current_order_id = $1)`

	var seated bool
	if err := tx.QueryRow(ctx, query, orderID).Scan(&seated); err != nil {
		span.RecordError(err)
		return false, fmt.Errorf("failed to check order binding: %w", err)
	}

	return seated, nil
}

func (r *tableRepo) Occupy(ctx context.Context, tx pgx.Tx, tableID, orderID int64) (*domain.DiningTable, error) {
	ctx, span := r.tracer.Start(ctx, "TableRepository.Occupy")
	defer span.End()

	span.SetAttributes(
		attribute.Int64("table_id", tableID),
		attribute.Int64("order_id", orderID),
	)

	query := `
		UPDATE dining_tables
		SET status = 'OCCUPIED', current_order_id = $2, updated_at = NOW()
		WHERE id = $1 AND status = 'AVAILABLE' AND is_active
		RETURNING ` + tableColumns

	table, err := scanTable(tx.QueryRow(ctx, query, tableID, orderID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			mylogger.Warn(
				ctx,
				r.logger,
				"Table no longer available",
				zap.Int64("table_id", tableID),
			)

			return nil, domain.ErrTableOccupied
		}

		var pgError *pgconn.PgError
		if errors.As(err, &pgError) && pgError.Code == pgUniqueViolation {
			return nil, domain.ErrOrderAlreadySeated
		}

		span.RecordError(err)
		return nil, fmt.Errorf("failed to occupy table: %w", err)
	}

	return table, nil
}

func (r *tableRepo) Release(ctx context.Context, tx pgx.Tx, tableID, orderID int64) (*domain.DiningTable, error) {
	ctx, span := r.tracer.Start(ctx, "TableRepository.Release")
	defer span.End()

	span.SetAttributes(
		attribute.Int64("table_id", tableID),
		attribute.Int64("order_id", orderID),
	)

	query := `
		UPDATE dining_tables
		SET status = 'AVAILABLE', current_order_id = NULL, updated_at = NOW()
		WHERE id = $1 AND status = 'OCCUPIED' AND current_order_id = $2
		RETURNING ` + tableColumns

	table, err := scanTable(tx.QueryRow(ctx, query, tableID, orderID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrTableNotOccupied
		}

		span.RecordError(err)
		return nil, fmt.Errorf("failed to release table: %w", err)
	}

	return table, nil
}

const tableViewQuery = `
	SELECT t.id, t.table_number, t.is_active, t.status, t.current_order_id, t.updated_at,
		o.status, o.total_amount::text,
		(SELECT COUNT(*) FROM order_lines l WHERE l.order_id = o.id AND l.kind <> 'COMBO_MEMBER')
	FROM dining_tables t
	LEFT JOIN orders o ON o.id = t.current_order_id
`

func scanTableView(row pgx.Row) (*domain.TableView, error) {
	var (
		view        domain.TableView
		orderStatus *string
		orderTotal  *string
		lineCount   int
	)

	if err := row.Scan(
		&view.ID,
		&view.TableNumber,
		&view.IsActive,
		&view.Status,
		&view.CurrentOrderID,
		&view.UpdatedAt,
		&orderStatus,
		&orderTotal,
		&lineCount,
	); err != nil {
		return nil, err
	}

	if view.CurrentOrderID != nil && orderStatus != nil {
		total, err := parseMoney("total_amount", deref(orderTotal))
		if err != nil {
			return nil, err
		}

		view.Order = &domain.OrderSummary{
			ID:          *view.CurrentOrderID,
			Status:      domain.OrderStatus(*orderStatus),
			TotalAmount: total,
			LineCount:   lineCount,
		}
	}

	return &view, nil
}

func (r *tableRepo) GetTable(ctx context.Context, tableID int64) (*domain.TableView, error) {
	ctx, span := r.tracer.Start(ctx, "TableRepository.GetTable")
	defer span.End()

	span.SetAttributes(attribute.Int64("table_id", tableID))

	view, err := scanTableView(r.pool.QueryRow(ctx, tableViewQuery+` WHERE t.id = $1`, tableID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrTableNotFound
		}

		span.RecordError(err)
		return nil, fmt.Errorf("failed to query table: %w", err)
	}

	return view, nil
}

func (r *tableRepo) ListTables(ctx context.Context, filter domain.ListTablesFilter) ([]domain.TableView, error) {
	ctx, span := r.tracer.Start(ctx, "TableRepository.ListTables")
	defer span.End()

	var (
		conditions []string
		args       []any
	)

	if filter.OnlyActive {
		conditions = append(conditions, "t.is_active")
	}
	if filter.Status != "" {
		args = append(args, string(filter.Status))
		conditions = append(conditions, fmt.Sprintf("t.status = $%d", len(args)))
	}

	query := tableViewQuery
	if len(conditions) > 0 {
		query += " WHERE " + strings.Join(conditions, " AND ")
	}
	query += " ORDER BY t.table_number"

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		span.RecordError(err)

		mylogger.Error(
			ctx,
			r.logger,
			"Failed to list tables",
			zap.Error(err),
		)

		return nil, fmt.Errorf("failed to list tables: %w", err)
	}
	defer rows.Close()

	var views []domain.TableView
	for rows.Next() {
		view, err := scanTableView(rows)
		if err != nil {
			span.RecordError(err)
			return nil, fmt.Errorf("failed to scan table: %w", err)
		}
		views = append(views, *view)
	}

	if err := rows.Err(); err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("failed to iterate tables: %w", err)
	}

	span.SetAttributes(attribute.Int("result_count", len(views)))

	return views, nil
}
