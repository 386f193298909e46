package grpc

import (
	"github.com/sakashimaa/pos-engine/services/pos/internal/domain"
	"github.com/sakashimaa/pos-engine/services/pos/internal/service"
)

type Option struct {
	GroupName string `json:"group_name" validate:"required,max=100"`
	ValueName string `json:"value_name" validate:"required,max=100"`
}

type Line struct {
	Kind      string   `json:"kind" validate:"required,oneof=SINGLE COMBO"`
	ProductID int64    `json:"product_id" validate:"omitempty,gt=0"`
	ComboID   int64    `json:"combo_id" validate:"omitempty,gt=0"`
	Quantity  int32    `json:"quantity" validate:"required,gte=1,lte=999"`
	Options   []Option `json:"options" validate:"max=20,dive"`
}

func (l *Line) toSpec() domain.LineSpec {
	spec := domain.LineSpec{
		Kind:      domain.LineKind(l.Kind),
		ProductID: l.ProductID,
		ComboID:   l.ComboID,
		Quantity:  l.Quantity,
	}
	for _, o := range l.Options {
		spec.Selections = append(spec.Selections, domain.OptionSelection{GroupName: o.GroupName, ValueName: o.ValueName})
	}
	return spec
}

type CreateOrderRequest struct {
	OrderType string `json:"order_type" validate:"omitempty,oneof=DINE_IN TAKEAWAY DELIVERY"`
	Note      string `json:"note" validate:"max=500"`
	Lines     []Line `json:"lines" validate:"max=50,dive"`
}

func (r *CreateOrderRequest) toInput() service.CreateOrderInput {
	input := service.CreateOrderInput{OrderType: domain.OrderType(r.OrderType), Note: r.Note}
	for i := range r.Lines {
		input.Lines = append(input.Lines, r.Lines[i].toSpec())
	}
	return input
}

type OrderRequest struct {
	OrderID int64 `json:"order_id" validate:"required,gt=0"`
}

type AddLineRequest struct {
	OrderID int64 `json:"order_id" validate:"required,gt=0"`
	Line    Line  `json:"line"`
}

type UpdateLineRequest struct {
	OrderID int64 `json:"order_id" validate:"required,gt=0"`
	LineID  int64 `json:"line_id" validate:"required,gt=0"`
	Line    Line  `json:"line"`
}

type RemoveLineRequest struct {
	OrderID int64 `json:"order_id" validate:"required,gt=0"`
	LineID  int64 `json:"line_id" validate:"required,gt=0"`
}

type OrderLine struct {
	ID           int64  `json:"id"`
	Kind         string `json:"kind"`
	ParentLineID *int64 `json:"parent_line_id,omitempty"`
	ProductID    int64  `json:"product_id,omitempty"`
	ComboID      int64  `json:"combo_id,omitempty"`
	Name         string `json:"name"`
	Quantity     int32  `json:"quantity"`
	Subtotal     string `json:"subtotal"`
}

type Order struct {
	ID          int64       `json:"id"`
	Status      string      `json:"status"`
	OrderType   string      `json:"order_type"`
	TotalAmount string      `json:"total_amount"`
	Note        string      `json:"note,omitempty"`
	Lines       []OrderLine `json:"lines"`
}

func newOrder(o *domain.Order) *Order {
	out := &Order{
		ID:          o.ID,
		Status:      string(o.Status),
		OrderType:   string(o.OrderType),
		TotalAmount: o.TotalAmount.StringFixed(2),
		Note:        o.Note,
		Lines:       make([]OrderLine, 0, len(o.Lines)),
	}
	for i := range o.Lines {
		l := &o.Lines[i]
		out.Lines = append(out.Lines, OrderLine{
			ID:           l.ID,
			Kind:         string(l.Kind),
			ParentLineID: l.ParentLineID(),
			ProductID:    l.ProductID(),
			ComboID:      l.ComboID(),
			Name:         l.Name(),
			Quantity:     l.Quantity,
			Subtotal:     l.Subtotal.StringFixed(2),
		})
	}
	return out
}

type SeatRequest struct {
	TableID int64  `json:"table_id" validate:"required,gt=0"`
	OrderID *int64 `json:"order_id" validate:"omitempty,gt=0"`
}

type TableRequest struct {
	TableID int64 `json:"table_id" validate:"required,gt=0"`
}

type TransferRequest struct {
	FromTableID int64 `json:"from_table_id" validate:"required,gt=0"`
	ToTableID   int64 `json:"to_table_id" validate:"required,gt=0"`
}

type ListTablesRequest struct {
	OnlyActive bool   `json:"only_active"`
	Status     string `json:"status" validate:"omitempty,oneof=AVAILABLE OCCUPIED"`
}

type OrderSummary struct {
	ID          int64  `json:"id"`
	Status      string `json:"status"`
	TotalAmount string `json:"total_amount"`
	LineCount   int    `json:"line_count"`
}

type Table struct {
	ID             int64         `json:"id"`
	TableNumber    string        `json:"table_number"`
	IsActive       bool          `json:"is_active"`
	Status         string        `json:"status"`
	CurrentOrderID *int64        `json:"current_order_id"`
	Order          *OrderSummary `json:"order,omitempty"`
}

func newTable(t *domain.DiningTable, summary *domain.OrderSummary) *Table {
	out := &Table{
		ID:             t.ID,
		TableNumber:    t.TableNumber,
		IsActive:       t.IsActive,
		Status:         string(t.Status),
		CurrentOrderID: t.CurrentOrderID,
	}
	if summary != nil {
		out.Order = &OrderSummary{
			ID:          summary.ID,
			Status:      string(summary.Status),
			TotalAmount: summary.TotalAmount.StringFixed(2),
			LineCount:   summary.LineCount,
		}
	}
	return out
}

type TransferResponse struct {
	OrderID int64  `json:"order_id"`
	From    *Table `json:"from"`
	To      *Table `json:"to"`
}

type ListTablesResponse struct {
	Tables []*Table `json:"tables"`
}
