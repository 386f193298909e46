package tests

import (
	"errors"
	"sync"

	"github.com/sakashimaa/pos-engine/services/pos/internal/domain"
)

func (s *IntegrationTestSuite) TestSeat_ScenarioB() {
	view, err := s.TableService.Seat(s.Ctx, tableOne, nil)
	s.Require().NoError(err)

	s.Require().NotNil(view.Order)
	s.Equal(domain.OrderStatusDraft, view.Order.Status)
	s.Equal("0.00", view.Order.TotalAmount.StringFixed(2))

	status, orderID := s.tableState(tableOne)
	s.Equal(domain.TableStatusOccupied, status)
	s.Require().NotNil(orderID)
	s.Equal(view.Order.ID, *orderID)
	s.Equal(domain.OrderStatusDraft, s.orderStatus(*orderID))

	s.requireBindingsConsistent()
}

func (s *IntegrationTestSuite) TestSeat_ExistingOrderOnlyOnce() {
	order := s.newDraft()

	_, err := s.TableService.Seat(s.Ctx, tableOne, &order.ID)
	s.Require().NoError(err)

	_, err = s.TableService.Seat(s.Ctx, tableTwo, &order.ID)
	s.Require().ErrorIs(err, domain.ErrOrderAlreadySeated)

	status, _ := s.tableState(tableTwo)
	s.Equal(domain.TableStatusAvailable, status)
	s.requireBindingsConsistent()
}

func (s *IntegrationTestSuite) TestSeat_ExistingDraftWithLines() {
	order := s.newDraft()
	order, err := s.OrderService.AddLine(s.Ctx, order.ID, latte(2))
	s.Require().NoError(err)
	order, err = s.OrderService.AddLine(s.Ctx, order.ID, domain.LineSpec{Kind: domain.LineKindCombo, ComboID: breakfastID, Quantity: 1})
	s.Require().NoError(err)

	view, err := s.TableService.Seat(s.Ctx, tableOne, &order.ID)
	s.Require().NoError(err)

	s.Require().NotNil(view.Order)
	s.Equal(2, view.Order.LineCount)
	s.Equal(order.TotalAmount.StringFixed(2), view.Order.TotalAmount.StringFixed(2))

	got, err := s.TableService.GetTable(s.Ctx, tableOne)
	s.Require().NoError(err)
	s.Require().NotNil(got.Order)
	s.Equal(view.Order.LineCount, got.Order.LineCount)
}

func (s *IntegrationTestSuite) TestSeat_Rejections() {
	completed := s.newDraft()
	_, err := s.OrderService.CompleteOrder(s.Ctx, completed.ID)
	s.Require().NoError(err)

	_, err = s.TableService.Seat(s.Ctx, 99, nil)
	s.Require().ErrorIs(err, domain.ErrTableNotFound)

	_, err = s.TableService.Seat(s.Ctx, tableRetired, nil)
	s.Require().ErrorIs(err, domain.ErrTableInactive)

	_, err = s.TableService.Seat(s.Ctx, tableOne, &completed.ID)
	s.Require().ErrorIs(err, domain.ErrOrderNotDraft)

	var orders int
	s.Require().NoError(s.DbPool.QueryRow(s.Ctx, `SELECT COUNT(*) FROM orders`).Scan(&orders))
	s.Equal(1, orders)
}

func (s *IntegrationTestSuite) TestSeat_ConcurrentRace() {
	const callers = 10

	var (
		wg       sync.WaitGroup
		mu       sync.Mutex
		wins     int
		occupied int
	)

	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()

			_, err := s.TableService.Seat(s.Ctx, tableOne, nil)

			mu.Lock()
			defer mu.Unlock()
			switch {
			case err == nil:
				wins++
			case errors.Is(err, domain.ErrTableOccupied):
				occupied++
			default:
				s.Failf("unexpected seat error", "%v", err)
			}
		}()
	}
	wg.Wait()

	s.Equal(1, wins)
	s.Equal(callers-1, occupied)

	var orders int
	s.Require().NoError(s.DbPool.QueryRow(s.Ctx, `SELECT COUNT(*) FROM orders`).Scan(&orders))
	s.Equal(1, orders)
	s.requireBindingsConsistent()
}

func (s *IntegrationTestSuite) TestTransfer_ScenarioC() {
	view, err := s.TableService.Seat(s.Ctx, tableOne, nil)
	s.Require().NoError(err)
	orderID := view.Order.ID

	result, err := s.TableService.Transfer(s.Ctx, tableOne, tableTwo)
	s.Require().NoError(err)
	s.Equal(orderID, result.OrderID)

	status, bound := s.tableState(tableOne)
	s.Equal(domain.TableStatusAvailable, status)
	s.Nil(bound)

	status, bound = s.tableState(tableTwo)
	s.Equal(domain.TableStatusOccupied, status)
	s.Require().NotNil(bound)
	s.Equal(orderID, *bound)

	s.requireBindingsConsistent()
}

func (s *IntegrationTestSuite) TestTransfer_Rejections() {
	first, err := s.TableService.Seat(s.Ctx, tableOne, nil)
	s.Require().NoError(err)
	_, err = s.TableService.Seat(s.Ctx, tableTwo, nil)
	s.Require().NoError(err)

	tests := []struct {
		name     string
		from, to int64
		wantErr  error
	}{
		{"source missing", 99, tableThree, domain.ErrSourceNotFound},
		{"source available", tableThree, tableOne, domain.ErrSourceNotOccupied},
		{"target missing", tableOne, 99, domain.ErrTargetNotFound},
		{"target inactive", tableOne, tableRetired, domain.ErrTargetInactive},
		{"target occupied", tableOne, tableTwo, domain.ErrTargetOccupied},
		{"same table", tableOne, tableOne, domain.ErrSameTable},
	}

	for _, tt := range tests {
		s.Run(tt.name, func() {
			_, err := s.TableService.Transfer(s.Ctx, tt.from, tt.to)
			s.Require().ErrorIs(err, tt.wantErr)
		})
	}

	_, bound := s.tableState(tableOne)
	s.Require().NotNil(bound)
	s.Equal(first.Order.ID, *bound)
	s.requireBindingsConsistent()
}

func (s *IntegrationTestSuite) TestEndDining_ScenarioD() {
	view, err := s.TableService.Seat(s.Ctx, tableOne, nil)
	s.Require().NoError(err)

	_, err = s.TableService.EndDining(s.Ctx, tableOne)
	s.Require().ErrorIs(err, domain.ErrOrderNotSettled)

	status, bound := s.tableState(tableOne)
	s.Equal(domain.TableStatusOccupied, status)
	s.Equal(view.Order.ID, *bound)
}

func (s *IntegrationTestSuite) TestEndDining_AfterSettlement() {
	view, err := s.TableService.Seat(s.Ctx, tableOne, nil)
	s.Require().NoError(err)
	orderID := view.Order.ID

	_, err = s.OrderService.AddLine(s.Ctx, orderID, latte(1))
	s.Require().NoError(err)
	s.Require().NoError(s.OrderService.MarkOrderPaid(s.Ctx, orderID))

	released, err := s.TableService.EndDining(s.Ctx, tableOne)
	s.Require().NoError(err)
	s.Equal(domain.TableStatusAvailable, released.Status)
	s.Nil(released.CurrentOrderID)

	s.Equal(domain.OrderStatusPaid, s.orderStatus(orderID))

	_, err = s.TableService.EndDining(s.Ctx, tableOne)
	s.Require().ErrorIs(err, domain.ErrTableNotOccupied)
}

func (s *IntegrationTestSuite) TestListTables() {
	view, err := s.TableService.Seat(s.Ctx, tableOne, nil)
	s.Require().NoError(err)
	_, err = s.OrderService.AddLine(s.Ctx, view.Order.ID, domain.LineSpec{Kind: domain.LineKindCombo, ComboID: breakfastID, Quantity: 1})
	s.Require().NoError(err)

	all, err := s.TableService.ListTables(s.Ctx, domain.ListTablesFilter{})
	s.Require().NoError(err)
	s.Len(all, 4)

	busy, err := s.TableService.ListTables(s.Ctx, domain.ListTablesFilter{Status: domain.TableStatusOccupied})
	s.Require().NoError(err)
	s.Require().Len(busy, 1)
	s.Require().NotNil(busy[0].Order)
	s.Equal("89.00", busy[0].Order.TotalAmount.StringFixed(2))
	s.Equal(1, busy[0].Order.LineCount)

	free, err := s.TableService.ListTables(s.Ctx, domain.ListTablesFilter{OnlyActive: true, Status: domain.TableStatusAvailable})
	s.Require().NoError(err)
	s.Len(free, 2)

	one, err := s.TableService.GetTable(s.Ctx, tableOne)
	s.Require().NoError(err)
	s.Equal("T1", one.TableNumber)
	s.Require().NotNil(one.Order)
}
