package service

import (
	"context"

	"github.com/sakashimaa/pos-engine/services/pos/internal/domain"
	"github.com/sakashimaa/pos-engine/services/pos/internal/repository"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

// CatalogService answers menu lookups for terminals. Results may lag the store
// by the cache TTL; order pricing never goes through here.
type CatalogService interface {
	GetProduct(ctx context.Context, productID int64) (*domain.ProductView, error)
	GetCombo(ctx context.Context, comboID int64) (*domain.ComboView, error)
}

type catalogService struct {
	catalog repository.CatalogRepository
	logger  *zap.Logger
	tracer  trace.Tracer
}

func NewCatalogService(catalog repository.CatalogRepository, logger *zap.Logger) CatalogService {
	return &catalogService{
		catalog: catalog,
		logger:  logger,
		tracer:  otel.Tracer("catalog_service"),
	}
}

func (s *catalogService) GetProduct(ctx context.Context, productID int64) (*domain.ProductView, error) {
	ctx, span := s.tracer.Start(ctx, "CatalogService.GetProduct")
	defer span.End()

	span.SetAttributes(attribute.Int64("product_id", productID))

	product, err := s.catalog.GetProduct(ctx, nil, productID)
	if err != nil {
		return nil, err
	}

	view := &domain.ProductView{Product: *product}

	groups, err := s.catalog.ListActiveOptionGroups(ctx, nil, productID)
	if err != nil {
		return nil, err
	}
	if len(groups) == 0 {
		return view, nil
	}

	groupIDs := make([]int64, 0, len(groups))
	for _, g := range groups {
		groupIDs = append(groupIDs, g.ID)
	}

	values, err := s.catalog.ListActiveOptionValues(ctx, nil, groupIDs)
	if err != nil {
		return nil, err
	}

	byGroup := make(map[int64][]domain.OptionValue, len(groups))
	for _, v := range values {
		byGroup[v.GroupID] = append(byGroup[v.GroupID], v)
	}

	for _, g := range groups {
		view.OptionGroups = append(view.OptionGroups, domain.OptionGroupView{
			OptionGroup: g,
			Values:      byGroup[g.ID],
		})
	}

	return view, nil
}

func (s *catalogService) GetCombo(ctx context.Context, comboID int64) (*domain.ComboView, error) {
	ctx, span := s.tracer.Start(ctx, "CatalogService.GetCombo")
	defer span.End()

	span.SetAttributes(attribute.Int64("combo_id", comboID))

	combo, err := s.catalog.GetCombo(ctx, nil, comboID)
	if err != nil {
		return nil, err
	}

	members, err := s.catalog.ListComboMembers(ctx, nil, comboID)
	if err != nil {
		return nil, err
	}

	return &domain.ComboView{Combo: *combo, Members: members}, nil
}
