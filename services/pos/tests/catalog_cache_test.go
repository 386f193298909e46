package tests

import (
	"encoding/json"

	"github.com/sakashimaa/pos-engine/services/pos/internal/domain"
)

func (s *IntegrationTestSuite) TestCatalogCache_ServesUntilInvalidated() {
	product, err := s.Catalog.GetProduct(s.Ctx, nil, latteID)
	s.Require().NoError(err)
	s.Equal("Latte", product.Name)

	raw, err := s.Redis.Get(s.Ctx, "pos:product:1").Result()
	s.Require().NoError(err)

	var cached domain.Product
	s.Require().NoError(json.Unmarshal([]byte(raw), &cached))
	s.Equal("59.00", cached.UnitPrice.StringFixed(2))

	_, err = s.DbPool.Exec(s.Ctx, `UPDATE products SET unit_price = 64.00 WHERE id = $1`, latteID)
	s.Require().NoError(err)

	stale, err := s.Catalog.GetProduct(s.Ctx, nil, latteID)
	s.Require().NoError(err)
	s.Equal("59.00", stale.UnitPrice.StringFixed(2))

	s.Require().NoError(s.Catalog.InvalidateProduct(s.Ctx, latteID))

	fresh, err := s.Catalog.GetProduct(s.Ctx, nil, latteID)
	s.Require().NoError(err)
	s.Equal("64.00", fresh.UnitPrice.StringFixed(2))
}

func (s *IntegrationTestSuite) TestCatalogCache_ComboAndMembers() {
	combo, err := s.Catalog.GetCombo(s.Ctx, nil, breakfastID)
	s.Require().NoError(err)
	s.Equal("89.00", combo.ComboPrice.StringFixed(2))

	members, err := s.Catalog.ListComboMembers(s.Ctx, nil, breakfastID)
	s.Require().NoError(err)
	s.Require().Len(members, 2)
	s.Equal(int32(2), members[1].Quantity)

	keys, err := s.Redis.Exists(s.Ctx, "pos:combo:1", "pos:combo:1:members").Result()
	s.Require().NoError(err)
	s.Equal(int64(2), keys)

	s.Require().NoError(s.Catalog.InvalidateCombo(s.Ctx, breakfastID))

	keys, err = s.Redis.Exists(s.Ctx, "pos:combo:1", "pos:combo:1:members").Result()
	s.Require().NoError(err)
	s.Zero(keys)
}

func (s *IntegrationTestSuite) TestCatalogCache_MissingProductNotCached() {
	_, err := s.Catalog.GetProduct(s.Ctx, nil, 404)
	s.Require().ErrorIs(err, domain.ErrProductNotFound)

	exists, err := s.Redis.Exists(s.Ctx, "pos:product:404").Result()
	s.Require().NoError(err)
	s.Zero(exists)
}

// Line prices are snapshots: a later menu change never reprices a line.
func (s *IntegrationTestSuite) TestLinePriceIsSnapshot() {
	order := s.newDraft()
	order, err := s.OrderService.AddLine(s.Ctx, order.ID, latte(1))
	s.Require().NoError(err)

	_, err = s.DbPool.Exec(s.Ctx, `UPDATE products SET unit_price = 99.00 WHERE id = $1`, latteID)
	s.Require().NoError(err)

	order, err = s.OrderService.AddLine(s.Ctx, order.ID, latte(1))
	s.Require().NoError(err)

	s.Equal("59.00", order.Lines[0].Subtotal.StringFixed(2))
	s.Equal("99.00", order.Lines[1].Subtotal.StringFixed(2))
	s.Equal("158.00", order.TotalAmount.StringFixed(2))
}

// Pricing reads the catalog inside the order transaction, so a cached entry
// that predates a menu change never decides a line.
func (s *IntegrationTestSuite) TestPricing_IgnoresCachedProduct() {
	_, err := s.Catalog.GetProduct(s.Ctx, nil, latteID)
	s.Require().NoError(err)

	_, err = s.DbPool.Exec(s.Ctx, `UPDATE products SET is_active = FALSE WHERE id = $1`, latteID)
	s.Require().NoError(err)

	cached, err := s.Catalog.GetProduct(s.Ctx, nil, latteID)
	s.Require().NoError(err)
	s.True(cached.IsActive)

	order := s.newDraft()
	_, err = s.OrderService.AddLine(s.Ctx, order.ID, latte(1))
	s.Require().ErrorIs(err, domain.ErrProductInactive)

	_, err = s.DbPool.Exec(s.Ctx, `UPDATE products SET is_active = TRUE, unit_price = 64.00 WHERE id = $1`, latteID)
	s.Require().NoError(err)

	order, err = s.OrderService.AddLine(s.Ctx, order.ID, latte(1))
	s.Require().NoError(err)
	s.Equal("64.00", order.Lines[0].Subtotal.StringFixed(2))

	cached, err = s.Catalog.GetProduct(s.Ctx, nil, latteID)
	s.Require().NoError(err)
	s.Equal("59.00", cached.UnitPrice.StringFixed(2))
}

func (s *IntegrationTestSuite) TestPricing_IgnoresCachedCombo() {
	_, err := s.Catalog.GetCombo(s.Ctx, nil, breakfastID)
	s.Require().NoError(err)
	_, err = s.Catalog.ListComboMembers(s.Ctx, nil, breakfastID)
	s.Require().NoError(err)

	_, err = s.DbPool.Exec(s.Ctx, `UPDATE combos SET combo_price = 95.00 WHERE id = $1`, breakfastID)
	s.Require().NoError(err)
	_, err = s.DbPool.Exec(s.Ctx, `UPDATE combo_items SET quantity = 3 WHERE combo_id = $1 AND product_id = $2`, breakfastID, croissantID)
	s.Require().NoError(err)

	order := s.newDraft()
	order, err = s.OrderService.AddLine(s.Ctx, order.ID, domain.LineSpec{
		Kind:     domain.LineKindCombo,
		ComboID:  breakfastID,
		Quantity: 1,
	})
	s.Require().NoError(err)

	s.Equal("95.00", order.TotalAmount.StringFixed(2))
	s.Require().Len(order.Lines, 3)
	for _, line := range order.Lines {
		if line.ProductID() == croissantID {
			s.Equal(int32(3), line.Quantity)
		}
	}
}
