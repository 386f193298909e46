package tests

import (
	"sync"

	"github.com/sakashimaa/pos-engine/services/pos/internal/domain"
	"github.com/sakashimaa/pos-engine/services/pos/internal/service"
	"github.com/shopspring/decimal"
)

func (s *IntegrationTestSuite) TestAddLine_ScenarioA() {
	order := s.newDraft()

	updated, err := s.OrderService.AddLine(s.Ctx, order.ID, latte(2, pick("Size", "Large")))
	s.Require().NoError(err)

	s.Require().Len(updated.Lines, 1)
	line := updated.Lines[0]
	s.Equal("10.00", line.Single.OptionsAmount.StringFixed(2))
	s.Equal("138.00", line.Subtotal.StringFixed(2))
	s.Equal("138.00", updated.TotalAmount.StringFixed(2))

	stored, err := s.OrderService.GetOrder(s.Ctx, order.ID)
	s.Require().NoError(err)
	s.Equal("138.00", stored.TotalAmount.StringFixed(2))
	s.Require().Len(stored.Lines[0].Single.Options, 1)
	s.Equal("Large", stored.Lines[0].Single.Options[0].ValueName)

	s.requireTotalsConsistent()
}

func (s *IntegrationTestSuite) TestAddLine_CallerAdjustmentIgnored() {
	order := s.newDraft()

	forged := decimal.RequireFromString("-69.00")
	sel := pick("Size", "Large")
	sel.PriceAdjustment = &forged

	updated, err := s.OrderService.AddLine(s.Ctx, order.ID, latte(1, sel))
	s.Require().NoError(err)

	s.Equal("69.00", updated.TotalAmount.StringFixed(2))
}

func (s *IntegrationTestSuite) TestAddLine_ScenarioE_CompletedOrder() {
	order := s.newDraft()
	order, err := s.OrderService.AddLine(s.Ctx, order.ID, latte(1))
	s.Require().NoError(err)
	_, err = s.OrderService.CompleteOrder(s.Ctx, order.ID)
	s.Require().NoError(err)

	_, err = s.OrderService.AddLine(s.Ctx, order.ID, latte(1))
	s.Require().ErrorIs(err, domain.ErrInvalidState)

	after, err := s.OrderService.GetOrder(s.Ctx, order.ID)
	s.Require().NoError(err)
	s.Len(after.Lines, 1)
	s.Equal("59.00", after.TotalAmount.StringFixed(2))
	s.Equal(domain.OrderStatusCompleted, after.Status)
}

func (s *IntegrationTestSuite) TestAddLine_ScenarioF_UnknownGroup() {
	order := s.newDraft()
	order, err := s.OrderService.AddLine(s.Ctx, order.ID, latte(1))
	s.Require().NoError(err)

	_, err = s.OrderService.AddLine(s.Ctx, order.ID, latte(1, pick("Temperature", "Iced")))
	s.Require().ErrorIs(err, domain.ErrOptionGroupNotFound)

	after, err := s.OrderService.GetOrder(s.Ctx, order.ID)
	s.Require().NoError(err)
	s.Len(after.Lines, 1)
	s.Equal("59.00", after.TotalAmount.StringFixed(2))
}

func (s *IntegrationTestSuite) TestAddLine_InactiveCatalogEntries() {
	order := s.newDraft()

	tests := []struct {
		name    string
		spec    domain.LineSpec
		wantErr error
	}{
		{"inactive product", domain.LineSpec{Kind: domain.LineKindSingle, ProductID: retiredID, Quantity: 1}, domain.ErrProductInactive},
		{"inactive combo", domain.LineSpec{Kind: domain.LineKindCombo, ComboID: oldSetID, Quantity: 1}, domain.ErrComboInactive},
		{"inactive group", latte(1, pick("Topping", "Cream")), domain.ErrOptionGroupNotFound},
		{"inactive value", latte(1, pick("Milk", "Soy")), domain.ErrOptionValueNotFound},
		{"group with no active values", latte(1, pick("Syrup", "Vanilla")), domain.ErrOptionValueNotFound},
		{"product without options", domain.LineSpec{Kind: domain.LineKindSingle, ProductID: croissantID, Quantity: 1, Selections: []domain.OptionSelection{pick("Size", "Large")}}, domain.ErrNoOptionsAvailable},
	}

	for _, tt := range tests {
		s.Run(tt.name, func() {
			_, err := s.OrderService.AddLine(s.Ctx, order.ID, tt.spec)
			s.Require().ErrorIs(err, tt.wantErr)
		})
	}

	var lines int
	s.Require().NoError(s.DbPool.QueryRow(s.Ctx, `SELECT COUNT(*) FROM order_lines WHERE order_id = $1`, order.ID).Scan(&lines))
	s.Zero(lines)
}

func (s *IntegrationTestSuite) TestCombo_ExpandUpdateRemove() {
	order := s.newDraft()

	order, err := s.OrderService.AddLine(s.Ctx, order.ID, domain.LineSpec{Kind: domain.LineKindCombo, ComboID: breakfastID, Quantity: 2})
	s.Require().NoError(err)
	s.Require().Len(order.Lines, 3)
	s.Equal("178.00", order.TotalAmount.StringFixed(2))

	header := order.Lines[0]
	s.Equal(int32(2), order.Lines[1].Quantity)
	s.Equal(int32(4), order.Lines[2].Quantity)
	s.Equal(header.ID, order.Lines[1].Member.ParentLineID)

	order, err = s.OrderService.UpdateLine(s.Ctx, order.ID, header.ID, domain.LineSpec{Kind: domain.LineKindCombo, ComboID: breakfastID, Quantity: 1})
	s.Require().NoError(err)
	s.Require().Len(order.Lines, 3)
	s.Equal("89.00", order.TotalAmount.StringFixed(2))
	s.Equal(int32(2), order.Lines[2].Quantity)

	_, err = s.OrderService.RemoveLine(s.Ctx, order.ID, order.Lines[1].ID)
	s.Require().ErrorIs(err, domain.ErrComboMemberImmutable)

	order, err = s.OrderService.RemoveLine(s.Ctx, order.ID, header.ID)
	s.Require().NoError(err)
	s.Empty(order.Lines)
	s.Equal("0.00", order.TotalAmount.StringFixed(2))

	s.requireTotalsConsistent()
}

func (s *IntegrationTestSuite) TestCreateOrder_WithLines() {
	order, err := s.OrderService.CreateOrder(s.Ctx, service.CreateOrderInput{
		OrderType: domain.OrderTypeTakeaway,
		Lines: []domain.LineSpec{
			latte(1, pick("Milk", "Oat")),
			{Kind: domain.LineKindSingle, ProductID: waterID, Quantity: 3},
		},
	})
	s.Require().NoError(err)

	s.Equal(domain.OrderTypeTakeaway, order.OrderType)
	// 66.50 + 45.00
	s.Equal("111.50", order.TotalAmount.StringFixed(2))
	s.requireTotalsConsistent()
}

func (s *IntegrationTestSuite) TestConcurrentLineMutationsKeepTotal() {
	order := s.newDraft()

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := s.OrderService.AddLine(s.Ctx, order.ID, domain.LineSpec{Kind: domain.LineKindSingle, ProductID: waterID, Quantity: 1})
			s.NoError(err)
		}()
	}
	wg.Wait()

	after, err := s.OrderService.GetOrder(s.Ctx, order.ID)
	s.Require().NoError(err)
	s.Len(after.Lines, 8)
	s.Equal("120.00", after.TotalAmount.StringFixed(2))
	s.requireTotalsConsistent()
}

func (s *IntegrationTestSuite) TestSettlementIsIdempotent() {
	order := s.newDraft()

	s.Require().NoError(s.OrderService.MarkOrderPaid(s.Ctx, order.ID))
	s.Require().NoError(s.OrderService.MarkOrderPaid(s.Ctx, order.ID))
	s.Equal(domain.OrderStatusPaid, s.orderStatus(order.ID))

	err := s.OrderService.MarkOrderCancelled(s.Ctx, order.ID)
	s.Require().ErrorIs(err, domain.ErrStatusCrossover)
	s.Equal(domain.OrderStatusPaid, s.orderStatus(order.ID))
}
