package handler

import (
	"time"

	"github.com/sakashimaa/pos-engine/services/pos/internal/domain"
	"github.com/sakashimaa/pos-engine/services/pos/internal/service"
	"github.com/shopspring/decimal"
)

type OptionRequest struct {
	GroupName string `json:"group_name" validate:"required,max=100"`
	ValueName string `json:"value_name" validate:"required,max=100"`
	// Ignored for pricing; the catalog adjustment always wins.
	PriceAdjustment *decimal.Decimal `json:"price_adjustment,omitempty"`
}

type LineRequest struct {
	Kind      string          `json:"kind" validate:"required,oneof=SINGLE COMBO"`
	ProductID int64           `json:"product_id" validate:"omitempty,gt=0"`
	ComboID   int64           `json:"combo_id" validate:"omitempty,gt=0"`
	Quantity  int32           `json:"quantity" validate:"required,gte=1,lte=999"`
	Options   []OptionRequest `json:"options" validate:"max=20,dive"`
}

func (r *LineRequest) toSpec() domain.LineSpec {
	spec := domain.LineSpec{
		Kind:      domain.LineKind(r.Kind),
		ProductID: r.ProductID,
		ComboID:   r.ComboID,
		Quantity:  r.Quantity,
	}

	for _, o := range r.Options {
		spec.Selections = append(spec.Selections, domain.OptionSelection{
			GroupName:       o.GroupName,
			ValueName:       o.ValueName,
			PriceAdjustment: o.PriceAdjustment,
		})
	}

	return spec
}

type CreateOrderRequest struct {
	OrderType string        `json:"order_type" validate:"omitempty,oneof=DINE_IN TAKEAWAY DELIVERY"`
	Note      string        `json:"note" validate:"max=500"`
	Lines     []LineRequest `json:"lines" validate:"max=50,dive"`
}

func (r *CreateOrderRequest) toInput() service.CreateOrderInput {
	input := service.CreateOrderInput{
		OrderType: domain.OrderType(r.OrderType),
		Note:      r.Note,
	}

	for i := range r.Lines {
		input.Lines = append(input.Lines, r.Lines[i].toSpec())
	}

	return input
}

type SeatRequest struct {
	OrderID *int64 `json:"order_id" validate:"omitempty,gt=0"`
}

type TransferRequest struct {
	FromTableID int64 `json:"from_table_id" validate:"required,gt=0"`
	ToTableID   int64 `json:"to_table_id" validate:"required,gt=0"`
}

type OptionResponse struct {
	GroupName       string `json:"group_name"`
	ValueName       string `json:"value_name"`
	PriceAdjustment string `json:"price_adjustment"`
}

type LineResponse struct {
	ID            int64            `json:"id"`
	Kind          string           `json:"kind"`
	ParentLineID  *int64           `json:"parent_line_id,omitempty"`
	ProductID     int64            `json:"product_id,omitempty"`
	ComboID       int64            `json:"combo_id,omitempty"`
	Name          string           `json:"name"`
	Quantity      int32            `json:"quantity"`
	UnitPrice     string           `json:"unit_price,omitempty"`
	OptionsAmount string           `json:"options_amount,omitempty"`
	Subtotal      string           `json:"subtotal"`
	Options       []OptionResponse `json:"options,omitempty"`
}

type OrderResponse struct {
	ID          int64          `json:"id"`
	Status      string         `json:"status"`
	OrderType   string         `json:"order_type"`
	TotalAmount string         `json:"total_amount"`
	Note        string         `json:"note,omitempty"`
	Lines       []LineResponse `json:"lines"`
	CreatedAt   time.Time      `json:"created_at"`
	UpdatedAt   time.Time      `json:"updated_at"`
}

func newOrderResponse(o *domain.Order) OrderResponse {
	resp := OrderResponse{
		ID:          o.ID,
		Status:      string(o.Status),
		OrderType:   string(o.OrderType),
		TotalAmount: o.TotalAmount.StringFixed(2),
		Note:        o.Note,
		Lines:       make([]LineResponse, 0, len(o.Lines)),
		CreatedAt:   o.CreatedAt,
		UpdatedAt:   o.UpdatedAt,
	}

	for i := range o.Lines {
		resp.Lines = append(resp.Lines, newLineResponse(&o.Lines[i]))
	}

	return resp
}

func newLineResponse(l *domain.OrderLine) LineResponse {
	resp := LineResponse{
		ID:           l.ID,
		Kind:         string(l.Kind),
		ParentLineID: l.ParentLineID(),
		ProductID:    l.ProductID(),
		ComboID:      l.ComboID(),
		Name:         l.Name(),
		Quantity:     l.Quantity,
		Subtotal:     l.Subtotal.StringFixed(2),
	}

	switch l.Kind {
	case domain.LineKindSingle:
		resp.UnitPrice = l.Single.UnitPrice.StringFixed(2)
		resp.OptionsAmount = l.Single.OptionsAmount.StringFixed(2)
		for _, o := range l.Single.Options {
			resp.Options = append(resp.Options, OptionResponse{
				GroupName:       o.GroupName,
				ValueName:       o.ValueName,
				PriceAdjustment: o.PriceAdjustment.StringFixed(2),
			})
		}
	case domain.LineKindCombo:
		resp.UnitPrice = l.Combo.ComboPrice.StringFixed(2)
	}

	return resp
}

type OrderSummaryResponse struct {
	ID          int64  `json:"id"`
	Status      string `json:"status"`
	TotalAmount string `json:"total_amount"`
	LineCount   int    `json:"line_count"`
}

type TableResponse struct {
	ID             int64                 `json:"id"`
	TableNumber    string                `json:"table_number"`
	IsActive       bool                  `json:"is_active"`
	Status         string                `json:"status"`
	CurrentOrderID *int64                `json:"current_order_id"`
	UpdatedAt      time.Time             `json:"updated_at"`
	Order          *OrderSummaryResponse `json:"order,omitempty"`
}

func newTableResponse(t *domain.DiningTable, summary *domain.OrderSummary) TableResponse {
	resp := TableResponse{
		ID:             t.ID,
		TableNumber:    t.TableNumber,
		IsActive:       t.IsActive,
		Status:         string(t.Status),
		CurrentOrderID: t.CurrentOrderID,
		UpdatedAt:      t.UpdatedAt,
	}

	if summary != nil {
		resp.Order = &OrderSummaryResponse{
			ID:          summary.ID,
			Status:      string(summary.Status),
			TotalAmount: summary.TotalAmount.StringFixed(2),
			LineCount:   summary.LineCount,
		}
	}

	return resp
}

type TransferResponse struct {
	OrderID int64         `json:"order_id"`
	From    TableResponse `json:"from"`
	To      TableResponse `json:"to"`
}

type OptionValueResponse struct {
	ID              int64  `json:"id"`
	Name            string `json:"name"`
	PriceAdjustment string `json:"price_adjustment"`
}

type OptionGroupResponse struct {
	ID     int64                 `json:"id"`
	Name   string                `json:"name"`
	Values []OptionValueResponse `json:"values"`
}

type ProductResponse struct {
	ID           int64                 `json:"id"`
	Name         string                `json:"name"`
	UnitPrice    string                `json:"unit_price"`
	IsActive     bool                  `json:"is_active"`
	OptionGroups []OptionGroupResponse `json:"option_groups"`
}

func newProductResponse(v *domain.ProductView) ProductResponse {
	resp := ProductResponse{
		ID:           v.ID,
		Name:         v.Name,
		UnitPrice:    v.UnitPrice.StringFixed(2),
		IsActive:     v.IsActive,
		OptionGroups: make([]OptionGroupResponse, 0, len(v.OptionGroups)),
	}

	for _, g := range v.OptionGroups {
		group := OptionGroupResponse{
			ID:     g.ID,
			Name:   g.Name,
			Values: make([]OptionValueResponse, 0, len(g.Values)),
		}
		for _, val := range g.Values {
			group.Values = append(group.Values, OptionValueResponse{
				ID:              val.ID,
				Name:            val.Name,
				PriceAdjustment: val.PriceAdjustment.StringFixed(2),
			})
		}
		resp.OptionGroups = append(resp.OptionGroups, group)
	}

	return resp
}

type ComboMemberResponse struct {
	ProductID   int64  `json:"product_id"`
	ProductName string `json:"product_name"`
	Quantity    int32  `json:"quantity"`
}

type ComboResponse struct {
	ID         int64                 `json:"id"`
	Name       string                `json:"name"`
	ComboPrice string                `json:"combo_price"`
	IsActive   bool                  `json:"is_active"`
	Members    []ComboMemberResponse `json:"members"`
}

func newComboResponse(v *domain.ComboView) ComboResponse {
	resp := ComboResponse{
		ID:         v.ID,
		Name:       v.Name,
		ComboPrice: v.ComboPrice.StringFixed(2),
		IsActive:   v.IsActive,
		Members:    make([]ComboMemberResponse, 0, len(v.Members)),
	}

	for _, m := range v.Members {
		resp.Members = append(resp.Members, ComboMemberResponse{
			ProductID:   m.ProductID,
			ProductName: m.ProductName,
			Quantity:    m.Quantity,
		})
	}

	return resp
}
