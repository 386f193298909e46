package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

type OrderStatus string

const (
	OrderStatusDraft     OrderStatus = "DRAFT"
	OrderStatusCompleted OrderStatus = "COMPLETED"
	OrderStatusPaid      OrderStatus = "PAID"
	OrderStatusCancelled OrderStatus = "CANCELLED"
)

// IsMutable reports whether lines may still be added, changed or removed.
func (s OrderStatus) IsMutable() bool {
	return s == OrderStatusDraft
}

// IsSettled reports whether a table bound to the order may be released.
func (s OrderStatus) IsSettled() bool {
	switch s {
	case OrderStatusCompleted, OrderStatusPaid, OrderStatusCancelled:
		return true
	default:
		return false
	}
}

type OrderType string

const (
	OrderTypeDineIn   OrderType = "DINE_IN"
	OrderTypeTakeaway OrderType = "TAKEAWAY"
	OrderTypeDelivery OrderType = "DELIVERY"
)

func (t OrderType) Valid() bool {
	switch t {
	case OrderTypeDineIn, OrderTypeTakeaway, OrderTypeDelivery:
		return true
	default:
		return false
	}
}

type Order struct {
	ID          int64           `db:"id"`
	Status      OrderStatus     `db:"status"`
	OrderType   OrderType       `db:"order_type"`
	TotalAmount decimal.Decimal `db:"total_amount"`
	Note        string          `db:"note"`
	Lines       []OrderLine     `db:"-"`

	CreatedAt time.Time `db:"created_at"`
	UpdatedAt time.Time `db:"updated_at"`
}

// CalculateTotal sets TotalAmount to the sum of every line subtotal.
func (o *Order) CalculateTotal() {
	total := decimal.Zero
	for _, line := range o.Lines {
		total = total.Add(line.Subtotal)
	}
	o.TotalAmount = total
}

// OrderSummary is the slice of an order shown next to a dining table.
type OrderSummary struct {
	ID          int64
	Status      OrderStatus
	TotalAmount decimal.Decimal
	LineCount   int
}
