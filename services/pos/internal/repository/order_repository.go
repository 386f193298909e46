package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/sakashimaa/pos-engine/pkg/mylogger"
	"github.com/sakashimaa/pos-engine/services/pos/internal/domain"
	"github.com/shopspring/decimal"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

type OrderRepository interface {
	CreateOrder(ctx context.Context, tx pgx.Tx, order *domain.Order) error
	// LockOrder reads the order row FOR UPDATE, without lines.
	LockOrder(ctx context.Context, tx pgx.Tx, orderID int64) (*domain.Order, error)
	// GetOrderStatus reads the status FOR SHARE.
	GetOrderStatus(ctx context.Context, tx pgx.Tx, orderID int64) (domain.OrderStatus, error)
	GetOrder(ctx context.Context, q Querier, orderID int64) (*domain.Order, error)
	UpdateStatus(ctx context.Context, tx pgx.Tx, orderID int64, to domain.OrderStatus, from ...domain.OrderStatus) (bool, error)

	InsertLine(ctx context.Context, tx pgx.Tx, line *domain.OrderLine) error
	GetLine(ctx context.Context, tx pgx.Tx, orderID, lineID int64) (*domain.OrderLine, error)
	UpdateLine(ctx context.Context, tx pgx.Tx, line *domain.OrderLine) error
	DeleteLine(ctx context.Context, tx pgx.Tx, lineID int64) error
	DeleteChildLines(ctx context.Context, tx pgx.Tx, parentLineID int64) error
	// RecalculateTotal sets the order total to the sum of its line subtotals.
	RecalculateTotal(ctx context.Context, tx pgx.Tx, orderID int64) (decimal.Decimal, error)
}

type orderRepo struct {
	pool   *pgxpool.Pool
	logger *zap.Logger
	tracer trace.Tracer
}

func NewOrderRepository(pool *pgxpool.Pool, logger *zap.Logger) OrderRepository {
	return &orderRepo{
		pool:   pool,
		logger: logger,
		tracer: otel.Tracer("order_repository"),
	}
}

const orderColumns = `id, status, order_type, total_amount::text, note, created_at, updated_at`

const lineColumns = `
	id, order_id, parent_line_id, kind, product_id, product_name, combo_id, combo_name,
	unit_price::text, options_amount::text, quantity, subtotal::text, chosen_options
`

func scanOrder(row pgx.Row) (*domain.Order, error) {
	var (
		order domain.Order
		total string
	)
	if err := row.Scan(
		&order.ID,
		&order.Status,
		&order.OrderType,
		&total,
		&order.Note,
		&order.CreatedAt,
		&order.UpdatedAt,
	); err != nil {
		return nil, err
	}

	amount, err := parseMoney("total_amount", total)
	if err != nil {
		return nil, err
	}
	order.TotalAmount = amount

	return &order, nil
}

func scanLine(row pgx.Row) (*domain.OrderLine, error) {
	var (
		line          domain.OrderLine
		parentLineID  *int64
		kind          string
		productID     *int64
		productName   *string
		comboID       *int64
		comboName     *string
		unitPrice     string
		optionsAmount string
		subtotal      string
		chosen        []byte
	)

	if err := row.Scan(
		&line.ID,
		&line.OrderID,
		&parentLineID,
		&kind,
		&productID,
		&productName,
		&comboID,
		&comboName,
		&unitPrice,
		&optionsAmount,
		&line.Quantity,
		&subtotal,
		&chosen,
	); err != nil {
		return nil, err
	}

	var err error
	line.Kind = domain.LineKind(kind)
	if line.Subtotal, err = parseMoney("subtotal", subtotal); err != nil {
		return nil, err
	}

	price, err := parseMoney("unit_price", unitPrice)
	if err != nil {
		return nil, err
	}

	switch line.Kind {
	case domain.LineKindSingle:
		single := &domain.SingleLine{
			ProductID:   deref(productID),
			ProductName: deref(productName),
			UnitPrice:   price,
		}
		if single.OptionsAmount, err = parseMoney("options_amount", optionsAmount); err != nil {
			return nil, err
		}
		if len(chosen) > 0 {
			if err := json.Unmarshal(chosen, &single.Options); err != nil {
				return nil, fmt.Errorf("decode chosen_options of line %d: %w", line.ID, err)
			}
		}
		line.Single = single
	case domain.LineKindCombo:
		line.Combo = &domain.ComboLine{
			ComboID:    deref(comboID),
			ComboName:  deref(comboName),
			ComboPrice: price,
		}
	case domain.LineKindComboMember:
		line.Member = &domain.ComboMemberLine{
			ParentLineID: deref(parentLineID),
			ComboID:      deref(comboID),
			ProductID:    deref(productID),
			ProductName:  deref(productName),
		}
	default:
		return nil, fmt.Errorf("unknown line kind %q on line %d", kind, line.ID)
	}

	return &line, nil
}

func deref[T any](p *T) T {
	if p == nil {
		return *new(T)
	}
	return *p
}

func (r *orderRepo) CreateOrder(ctx context.Context, tx pgx.Tx, order *domain.Order) error {
	ctx, span := r.tracer.Start(ctx, "OrderRepository.CreateOrder")
	defer span.End()

	span.SetAttributes(
		attribute.String("order_type", string(order.OrderType)),
	)

	query := `
		INSERT INTO orders (status, order_type, total_amount, note, created_at, updated_at)
		VALUES ($1, $2, $3::numeric, $4, NOW(), NOW())
		RETURNING id, created_at, updated_at
	`

	if err := tx.QueryRow(
		ctx,
		query,
		string(order.Status),
		string(order.OrderType),
		order.TotalAmount.String(),
		order.Note,
	).Scan(
		&order.ID,
		&order.CreatedAt,
		&order.UpdatedAt,
	); err != nil {
		span.RecordError(err)

		mylogger.Error(
			ctx,
			r.logger,
			"Failed to insert order",
			zap.Error(err),
		)

		return fmt.Errorf("failed to insert order: %w", err)
	}

	return nil
}

func (r *orderRepo) LockOrder(ctx context.Context, tx pgx.Tx, orderID int64) (*domain.Order, error) {
	ctx, span := r.tracer.Start(ctx, "OrderRepository.LockOrder")
	defer span.End()

	span.SetAttributes(attribute.Int64("order_id", orderID))

	query := `SELECT ` + orderColumns + ` FROM orders WHERE id = $1 FOR UPDATE`

	order, err := scanOrder(tx.QueryRow(ctx, query, orderID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrOrderNotFound
		}

		span.RecordError(err)
		return nil, fmt.Errorf("failed to lock order: %w", err)
	}

	return order, nil
}

func (r *orderRepo) GetOrderStatus(ctx context.Context, tx pgx.Tx, orderID int64) (domain.OrderStatus, error) {
	ctx, span := r.tracer.Start(ctx, "OrderRepository.GetOrderStatus")
	defer span.End()

	span.SetAttributes(attribute.Int64("order_id", orderID))

	query := `SELECT status FROM orders WHERE id = $1 FOR SHARE`

	var status string
	if err := tx.QueryRow(ctx, query, orderID).Scan(&status); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return "", domain.ErrOrderNotFound
		}

		span.RecordError(err)
		return "", fmt.Errorf("failed to read order status: %w", err)
	}

	return domain.OrderStatus(status), nil
}

func (r *orderRepo) GetOrder(ctx context.Context, q Querier, orderID int64) (*domain.Order, error) {
	ctx, span := r.tracer.Start(ctx, "OrderRepository.GetOrder")
	defer span.End()

	span.SetAttributes(attribute.Int64("order_id", orderID))

	if q == nil {
		q = r.pool
	}

	query := `SELECT ` + orderColumns + ` FROM orders WHERE id = $1`

	order, err := scanOrder(q.QueryRow(ctx, query, orderID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrOrderNotFound
		}

		span.RecordError(err)
		return nil, fmt.Errorf("failed to query order: %w", err)
	}

	linesQuery := `SELECT ` + lineColumns + ` FROM order_lines WHERE order_id = $1 ORDER BY id`

	rows, err := q.Query(ctx, linesQuery, orderID)
	if err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("failed to query order lines: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		line, err := scanLine(rows)
		if err != nil {
			span.RecordError(err)

			mylogger.Error(
				ctx,
				r.logger,
				"Failed to scan order line",
				zap.Int64("order_id", orderID),
				zap.Error(err),
			)

			return nil, fmt.Errorf("failed to scan order line: %w", err)
		}

		order.Lines = append(order.Lines, *line)
	}

	if err := rows.Err(); err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("failed to iterate order lines: %w", err)
	}

	span.SetAttributes(attribute.Int("line_count", len(order.Lines)))

	return order, nil
}

func (r *orderRepo) UpdateStatus(
	ctx context.Context,
	tx pgx.Tx,
	orderID int64,
	to domain.OrderStatus,
	from ...domain.OrderStatus,
) (bool, error) {
	ctx, span := r.tracer.Start(ctx, "OrderRepository.UpdateStatus")
	defer span.End()

	span.SetAttributes(
		attribute.Int64("order_id", orderID),
		attribute.String("status", string(to)),
	)

	allowed := make([]string, 0, len(from))
	for _, s := range from {
		allowed = append(allowed, string(s))
	}

	query := `
		UPDATE orders
		SET status = $1, updated_at = NOW()
		WHERE id = $2 AND status = ANY($3)
	`

	commandTag, err := tx.Exec(ctx, query, string(to), orderID, allowed)
	if err != nil {
		span.RecordError(err)

		mylogger.Error(
			ctx,
			r.logger,
			"Failed to update order status",
			zap.Int64("order_id", orderID),
			zap.Error(err),
		)

		return false, fmt.Errorf("failed to update order status: %w", err)
	}

	return commandTag.RowsAffected() > 0, nil
}

func (r *orderRepo) InsertLine(ctx context.Context, tx pgx.Tx, line *domain.OrderLine) error {
	ctx, span := r.tracer.Start(ctx, "OrderRepository.InsertLine")
	defer span.End()

	span.SetAttributes(
		attribute.Int64("order_id", line.OrderID),
		attribute.String("kind", string(line.Kind)),
	)

	args, err := lineArgs(line)
	if err != nil {
		return err
	}

	query := `
		INSERT INTO order_lines (
			order_id, parent_line_id, kind, product_id, product_name, combo_id, combo_name,
			unit_price, options_amount, quantity, subtotal, chosen_options
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8::numeric, $9::numeric, $10, $11::numeric, $12)
		RETURNING id
	`

	if err := tx.QueryRow(ctx, query, args...).Scan(&line.ID); err != nil {
		span.RecordError(err)

		mylogger.Error(
			ctx,
			r.logger,
			"Failed to insert order line",
			zap.Int64("order_id", line.OrderID),
			zap.Error(err),
		)

		return fmt.Errorf("failed to insert order line: %w", err)
	}

	return nil
}

// lineArgs flattens a line into the column order shared by insert and update.
func lineArgs(line *domain.OrderLine) ([]any, error) {
	var (
		parentLineID  *int64
		productID     *int64
		productName   *string
		comboID       *int64
		comboName     *string
		unitPrice     = decimal.Zero
		optionsAmount = decimal.Zero
		chosen        = []byte("[]")
	)

	switch line.Kind {
	case domain.LineKindSingle:
		productID = &line.Single.ProductID
		productName = &line.Single.ProductName
		unitPrice = line.Single.UnitPrice
		optionsAmount = line.Single.OptionsAmount
		if len(line.Single.Options) > 0 {
			encoded, err := json.Marshal(line.Single.Options)
			if err != nil {
				return nil, fmt.Errorf("encode chosen options: %w", err)
			}
			chosen = encoded
		}
	case domain.LineKindCombo:
		comboID = &line.Combo.ComboID
		comboName = &line.Combo.ComboName
		unitPrice = line.Combo.ComboPrice
	case domain.LineKindComboMember:
		parentLineID = &line.Member.ParentLineID
		comboID = &line.Member.ComboID
		productID = &line.Member.ProductID
		productName = &line.Member.ProductName
	default:
		return nil, fmt.Errorf("unknown line kind %q", line.Kind)
	}

	return []any{
		line.OrderID,
		parentLineID,
		string(line.Kind),
		productID,
		productName,
		comboID,
		comboName,
		unitPrice.String(),
		optionsAmount.String(),
		line.Quantity,
		line.Subtotal.String(),
		chosen,
	}, nil
}

func (r *orderRepo) GetLine(ctx context.Context, tx pgx.Tx, orderID, lineID int64) (*domain.OrderLine, error) {
	ctx, span := r.tracer.Start(ctx, "OrderRepository.GetLine")
	defer span.End()

	span.SetAttributes(
		attribute.Int64("order_id", orderID),
		attribute.Int64("line_id", lineID),
	)

	query := `SELECT ` + lineColumns + ` FROM order_lines WHERE id = $1 AND order_id = $2`

	line, err := scanLine(tx.QueryRow(ctx, query, lineID, orderID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrLineNotFound
		}

		span.RecordError(err)
		return nil, fmt.Errorf("failed to query order line: %w", err)
	}

	return line, nil
}

func (r *orderRepo) UpdateLine(ctx context.Context, tx pgx.Tx, line *domain.OrderLine) error {
	ctx, span := r.tracer.Start(ctx, "OrderRepository.UpdateLine")
	defer span.End()

	span.SetAttributes(
		attribute.Int64("line_id", line.ID),
		attribute.String("kind", string(line.Kind)),
	)

	args, err := lineArgs(line)
	if err != nil {
		return err
	}

	query := `
		UPDATE order_lines
		SET parent_line_id = $2, kind = $3, product_id = $4, product_name = $5,
			combo_id = $6, combo_name = $7, unit_price = $8::numeric,
			options_amount = $9::numeric, quantity = $10, subtotal = $11::numeric,
			chosen_options = $12
		WHERE id = $13 AND order_id = $1
	`

	commandTag, err := tx.Exec(ctx, query, append(args, line.ID)...)
	if err != nil {
		span.RecordError(err)
		return fmt.Errorf("failed to update order line: %w", err)
	}

	if commandTag.RowsAffected() == 0 {
		return domain.ErrLineNotFound
	}

	return nil
}

func (r *orderRepo) DeleteLine(ctx context.Context, tx pgx.Tx, lineID int64) error {
	ctx, span := r.tracer.Start(ctx, "OrderRepository.DeleteLine")
	defer span.End()

	span.SetAttributes(attribute.Int64("line_id", lineID))

	commandTag, err := tx.Exec(ctx, `DELETE FROM order_lines WHERE id = $1`, lineID)
	if err != nil {
		span.RecordError(err)
		return fmt.Errorf("failed to delete order line: %w", err)
	}

	if commandTag.RowsAffected() == 0 {
		return domain.ErrLineNotFound
	}

	return nil
}

func (r *orderRepo) DeleteChildLines(ctx context.Context, tx pgx.Tx, parentLineID int64) error {
	ctx, span := r.tracer.Start(ctx, "OrderRepository.DeleteChildLines")
	defer span.End()

	span.SetAttributes(attribute.Int64("parent_line_id", parentLineID))

	if _, err := tx.Exec(ctx, `DELETE FROM order_lines WHERE parent_line_id = $1`, parentLineID); err != nil {
		span.RecordError(err)
		return fmt.Errorf("failed to delete combo member lines: %w", err)
	}

	return nil
}

func (r *orderRepo) RecalculateTotal(ctx context.Context, tx pgx.Tx, orderID int64) (decimal.Decimal, error) {
	ctx, span := r.tracer.Start(ctx, "OrderRepository.RecalculateTotal")
	defer span.End()

	span.SetAttributes(attribute.Int64("order_id", orderID))

	query := `
		UPDATE orders
		SET total_amount = COALESCE((SELECT SUM(subtotal) FROM order_lines WHERE order_id = $1), 0),
			updated_at = NOW()
		WHERE id = $1
		RETURNING total_amount::text
	`

	var total string
	if err := tx.QueryRow(ctx, query, orderID).Scan(&total); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return decimal.Zero, domain.ErrOrderNotFound
		}

		span.RecordError(err)
		return decimal.Zero, fmt.Errorf("failed to recalculate order total: %w", err)
	}

	return parseMoney("total_amount", total)
}
