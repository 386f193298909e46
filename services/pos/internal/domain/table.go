package domain

import "time"

type TableStatus string

const (
	TableStatusAvailable TableStatus = "AVAILABLE"
	TableStatusOccupied  TableStatus = "OCCUPIED"
)

// DiningTable references an order while OCCUPIED. It never owns the order.
type DiningTable struct {
	ID             int64       `db:"id"`
	TableNumber    string      `db:"table_number"`
	IsActive       bool        `db:"is_active"`
	Status         TableStatus `db:"status"`
	CurrentOrderID *int64      `db:"current_order_id"`

	UpdatedAt time.Time `db:"updated_at"`
}

func (t *DiningTable) IsOccupied() bool {
	return t.Status == TableStatusOccupied
}

// TableView pairs a table with a summary of the order bound to it, if any.
type TableView struct {
	DiningTable
	Order *OrderSummary
}

type ListTablesFilter struct {
	OnlyActive bool
	Status     TableStatus
}

type TransferResult struct {
	From    *DiningTable
	To      *DiningTable
	OrderID int64
}
