package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/sakashimaa/pos-engine/pkg/mylogger"
	"github.com/sakashimaa/pos-engine/services/pos/internal/domain"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

// CatalogRepository is the read-only view of the menu the order engine prices
// against. Inactive groups and values are filtered out here. A nil q reads
// through the pool.
type CatalogRepository interface {
	GetProduct(ctx context.Context, q Querier, id int64) (*domain.Product, error)
	ListActiveOptionGroups(ctx context.Context, q Querier, productID int64) ([]domain.OptionGroup, error)
	ListActiveOptionValues(ctx context.Context, q Querier, groupIDs []int64) ([]domain.OptionValue, error)
	GetCombo(ctx context.Context, q Querier, id int64) (*domain.Combo, error)
	ListComboMembers(ctx context.Context, q Querier, comboID int64) ([]domain.ComboMember, error)
}

type catalogRepo struct {
	pool   *pgxpool.Pool
	logger *zap.Logger
	tracer trace.Tracer
}

func NewCatalogRepository(pool *pgxpool.Pool, logger *zap.Logger) CatalogRepository {
	return &catalogRepo{
		pool:   pool,
		logger: logger,
		tracer: otel.Tracer("catalog_repository"),
	}
}

func (r *catalogRepo) querier(q Querier) Querier {
	if q == nil {
		return r.pool
	}
	return q
}

func (r *catalogRepo) GetProduct(ctx context.Context, q Querier, id int64) (*domain.Product, error) {
	ctx, span := r.tracer.Start(ctx, "CatalogRepository.GetProduct")
	defer span.End()

	span.SetAttributes(attribute.Int64("product_id", id))

	query := `
		SELECT id, name, unit_price::text, is_active
		FROM products
		WHERE id = $1
	`

	var (
		product domain.Product
		price   string
	)
	err := r.querier(q).QueryRow(ctx, query, id).Scan(&product.ID, &product.Name, &price, &product.IsActive)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrProductNotFound
		}

		span.RecordError(err)
		mylogger.Error(ctx, r.logger, "Failed to query product", zap.Int64("product_id", id), zap.Error(err))

		return nil, fmt.Errorf("failed to query product: %w", err)
	}

	product.UnitPrice, err = parseMoney("unit_price", price)
	if err != nil {
		return nil, err
	}

	return &product, nil
}

func (r *catalogRepo) ListActiveOptionGroups(ctx context.Context, q Querier, productID int64) ([]domain.OptionGroup, error) {
	ctx, span := r.tracer.Start(ctx, "CatalogRepository.ListActiveOptionGroups")
	defer span.End()

	span.SetAttributes(attribute.Int64("product_id", productID))

	query := `
		SELECT g.id, g.name
		FROM product_option_groups pg
		JOIN option_groups g ON g.id = pg.group_id
		WHERE pg.product_id = $1 AND g.is_active
		ORDER BY pg.sort_order, g.id
	`

	rows, err := r.querier(q).Query(ctx, query, productID)
	if err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("failed to query option groups: %w", err)
	}
	defer rows.Close()

	var groups []domain.OptionGroup
	for rows.Next() {
		var g domain.OptionGroup
		if err := rows.Scan(&g.ID, &g.Name); err != nil {
			span.RecordError(err)
			return nil, fmt.Errorf("failed to scan option group: %w", err)
		}
		groups = append(groups, g)
	}

	if err := rows.Err(); err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("failed to iterate option groups: %w", err)
	}

	return groups, nil
}

func (r *catalogRepo) ListActiveOptionValues(ctx context.Context, q Querier, groupIDs []int64) ([]domain.OptionValue, error) {
	ctx, span := r.tracer.Start(ctx, "CatalogRepository.ListActiveOptionValues")
	defer span.End()

	span.SetAttributes(attribute.Int("group_count", len(groupIDs)))

	if len(groupIDs) == 0 {
		return nil, nil
	}

	query := `
		SELECT id, group_id, name, price_adjustment::text
		FROM option_values
		WHERE group_id = ANY($1) AND is_active
		ORDER BY group_id, sort_order, id
	`

	rows, err := r.querier(q).Query(ctx, query, groupIDs)
	if err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("failed to query option values: %w", err)
	}
	defer rows.Close()

	var values []domain.OptionValue
	for rows.Next() {
		var (
			v   domain.OptionValue
			adj string
		)
		if err := rows.Scan(&v.ID, &v.GroupID, &v.Name, &adj); err != nil {
			span.RecordError(err)
			return nil, fmt.Errorf("failed to scan option value: %w", err)
		}

		v.PriceAdjustment, err = parseMoney("price_adjustment", adj)
		if err != nil {
			return nil, err
		}

		values = append(values, v)
	}

	if err := rows.Err(); err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("failed to iterate option values: %w", err)
	}

	return values, nil
}

func (r *catalogRepo) GetCombo(ctx context.Context, q Querier, id int64) (*domain.Combo, error) {
	ctx, span := r.tracer.Start(ctx, "CatalogRepository.GetCombo")
	defer span.End()

	span.SetAttributes(attribute.Int64("combo_id", id))

	query := `
		SELECT id, name, combo_price::text, is_active
		FROM combos
		WHERE id = $1
	`

	var (
		combo domain.Combo
		price string
	)
	err := r.querier(q).QueryRow(ctx, query, id).Scan(&combo.ID, &combo.Name, &price, &combo.IsActive)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrComboNotFound
		}

		span.RecordError(err)
		mylogger.Error(ctx, r.logger, "Failed to query combo", zap.Int64("combo_id", id), zap.Error(err))

		return nil, fmt.Errorf("failed to query combo: %w", err)
	}

	combo.ComboPrice, err = parseMoney("combo_price", price)
	if err != nil {
		return nil, err
	}

	return &combo, nil
}

func (r *catalogRepo) ListComboMembers(ctx context.Context, q Querier, comboID int64) ([]domain.ComboMember, error) {
	ctx, span := r.tracer.Start(ctx, "CatalogRepository.ListComboMembers")
	defer span.End()

	span.SetAttributes(attribute.Int64("combo_id", comboID))

	query := `
		SELECT ci.product_id, p.name, ci.quantity
		FROM combo_items ci
		JOIN products p ON p.id = ci.product_id
		WHERE ci.combo_id = $1
		ORDER BY ci.id
	`

	rows, err := r.querier(q).Query(ctx, query, comboID)
	if err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("failed to query combo members: %w", err)
	}
	defer rows.Close()

	var members []domain.ComboMember
	for rows.Next() {
		var m domain.ComboMember
		if err := rows.Scan(&m.ProductID, &m.ProductName, &m.Quantity); err != nil {
			span.RecordError(err)
			return nil, fmt.Errorf("failed to scan combo member: %w", err)
		}
		members = append(members, m)
	}

	if err := rows.Err(); err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("failed to iterate combo members: %w", err)
	}

	return members, nil
}
