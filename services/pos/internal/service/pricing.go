package service

import (
	"context"
	"math"
	"strings"

	"github.com/sakashimaa/pos-engine/services/pos/internal/domain"
	"github.com/sakashimaa/pos-engine/services/pos/internal/repository"
	"github.com/shopspring/decimal"
)

// pricedLine is a line ready to persist. Combo headers carry their member
// lines, whose ParentLineID is filled in once the header has an id.
type pricedLine struct {
	line    domain.OrderLine
	members []domain.OrderLine
}

type linePricer struct {
	catalog repository.CatalogRepository
}

// price resolves spec against the catalog as seen by tx, so the menu state a
// line is priced from is the one its order commits with.
func (p *linePricer) price(ctx context.Context, tx repository.Querier, spec domain.LineSpec) (*pricedLine, error) {
	if err := spec.Validate(); err != nil {
		return nil, err
	}

	if spec.Kind == domain.LineKindCombo {
		return p.priceCombo(ctx, tx, spec)
	}

	return p.priceSingle(ctx, tx, spec)
}

func (p *linePricer) priceSingle(ctx context.Context, tx repository.Querier, spec domain.LineSpec) (*pricedLine, error) {
	product, err := p.catalog.GetProduct(ctx, tx, spec.ProductID)
	if err != nil {
		return nil, err
	}

	if !product.IsActive {
		return nil, domain.ErrProductInactive
	}

	chosen, optionsAmount, err := p.resolveOptions(ctx, tx, product.ID, spec.Selections)
	if err != nil {
		return nil, err
	}

	qty := decimal.NewFromInt32(spec.Quantity)

	return &pricedLine{
		line: domain.OrderLine{
			Kind:     domain.LineKindSingle,
			Quantity: spec.Quantity,
			Subtotal: product.UnitPrice.Add(optionsAmount).Mul(qty),
			Single: &domain.SingleLine{
				ProductID:     product.ID,
				ProductName:   product.Name,
				UnitPrice:     product.UnitPrice,
				OptionsAmount: optionsAmount,
				Options:       chosen,
			},
		},
	}, nil
}

// resolveOptions matches selections by name against the product's active
// groups and values. Only catalog adjustments are summed; any adjustment the
// caller sent is ignored.
func (p *linePricer) resolveOptions(
	ctx context.Context,
	tx repository.Querier,
	productID int64,
	selections []domain.OptionSelection,
) ([]domain.ChosenOption, decimal.Decimal, error) {
	if len(selections) == 0 {
		return nil, decimal.Zero, nil
	}

	groups, err := p.catalog.ListActiveOptionGroups(ctx, tx, productID)
	if err != nil {
		return nil, decimal.Zero, err
	}

	if len(groups) == 0 {
		return nil, decimal.Zero, domain.ErrNoOptionsAvailable
	}

	groupsByName := make(map[string]domain.OptionGroup, len(groups))
	for _, g := range groups {
		if _, dup := groupsByName[g.Name]; !dup {
			groupsByName[g.Name] = g
		}
	}

	matched := make([]domain.OptionGroup, len(selections))
	groupIDs := make([]int64, 0, len(selections))
	seen := make(map[int64]bool, len(selections))
	for i, sel := range selections {
		name := strings.TrimSpace(sel.GroupName)

		g, ok := groupsByName[name]
		if !ok {
			return nil, decimal.Zero, &domain.OptionError{Err: domain.ErrOptionGroupNotFound, GroupName: name}
		}

		matched[i] = g
		if !seen[g.ID] {
			seen[g.ID] = true
			groupIDs = append(groupIDs, g.ID)
		}
	}

	values, err := p.catalog.ListActiveOptionValues(ctx, tx, groupIDs)
	if err != nil {
		return nil, decimal.Zero, err
	}

	valuesByGroup := make(map[int64]map[string]domain.OptionValue, len(groupIDs))
	for _, v := range values {
		byName, ok := valuesByGroup[v.GroupID]
		if !ok {
			byName = make(map[string]domain.OptionValue)
			valuesByGroup[v.GroupID] = byName
		}
		if _, dup := byName[v.Name]; !dup {
			byName[v.Name] = v
		}
	}

	chosen := make([]domain.ChosenOption, 0, len(selections))
	total := decimal.Zero
	for i, sel := range selections {
		g := matched[i]
		name := strings.TrimSpace(sel.ValueName)

		// A group with no active values matches nothing.
		v, ok := valuesByGroup[g.ID][name]
		if !ok {
			return nil, decimal.Zero, &domain.OptionError{Err: domain.ErrOptionValueNotFound, GroupName: g.Name, ValueName: name}
		}

		chosen = append(chosen, domain.ChosenOption{
			GroupID:         g.ID,
			GroupName:       g.Name,
			ValueID:         v.ID,
			ValueName:       v.Name,
			PriceAdjustment: v.PriceAdjustment,
		})
		total = total.Add(v.PriceAdjustment)
	}

	return chosen, total, nil
}

func (p *linePricer) priceCombo(ctx context.Context, tx repository.Querier, spec domain.LineSpec) (*pricedLine, error) {
	combo, err := p.catalog.GetCombo(ctx, tx, spec.ComboID)
	if err != nil {
		return nil, err
	}

	if !combo.IsActive {
		return nil, domain.ErrComboInactive
	}

	components, err := p.catalog.ListComboMembers(ctx, tx, combo.ID)
	if err != nil {
		return nil, err
	}

	if len(components) == 0 {
		return nil, domain.ErrComboEmpty
	}

	priced := &pricedLine{
		line: domain.OrderLine{
			Kind:     domain.LineKindCombo,
			Quantity: spec.Quantity,
			Subtotal: combo.ComboPrice.Mul(decimal.NewFromInt32(spec.Quantity)),
			Combo: &domain.ComboLine{
				ComboID:    combo.ID,
				ComboName:  combo.Name,
				ComboPrice: combo.ComboPrice,
			},
		},
		members: make([]domain.OrderLine, 0, len(components)),
	}

	for _, c := range components {
		qty := int64(c.Quantity) * int64(spec.Quantity)
		if c.Quantity < 1 || qty > math.MaxInt32 {
			return nil, domain.ErrInvalidQuantity
		}

		priced.members = append(priced.members, domain.OrderLine{
			Kind:     domain.LineKindComboMember,
			Quantity: int32(qty),
			Subtotal: decimal.Zero,
			Member: &domain.ComboMemberLine{
				ComboID:     combo.ID,
				ProductID:   c.ProductID,
				ProductName: c.ProductName,
			},
		})
	}

	return priced, nil
}
