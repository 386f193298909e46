package domain

import "time"

const (
	TopicOrderEvents   = "order_events"
	TopicTableEvents   = "table_events"
	TopicPaymentEvents = "payment_events"
	TopicCatalogEvents = "catalog_events"
)

const (
	EventOrderCreated     = "OrderCreated"
	EventOrderCompleted   = "OrderCompleted"
	EventOrderCancelled   = "OrderCancelled"
	EventPaymentSucceeded = "PaymentSucceeded"
	EventPaymentFailed    = "PaymentFailed"
	EventTableSeated      = "TableSeated"
	EventTableTransferred = "TableTransferred"
	EventTableReleased    = "TableReleased"
	EventProductUpdated   = "ProductUpdated"
	EventComboUpdated     = "ComboUpdated"
)

// Amounts travel as decimal strings so no consumer rounds through float64.

type PaymentSucceededEvent struct {
	OrderID   int64     `json:"order_id"`
	PaymentID int64     `json:"payment_id"`
	Amount    string    `json:"amount"`
	PaidAt    time.Time `json:"paid_at"`
}

type PaymentFailedEvent struct {
	OrderID   int64     `json:"order_id"`
	PaymentID int64     `json:"payment_id"`
	Amount    string    `json:"amount"`
	Reason    string    `json:"reason,omitempty"`
	FailedAt  time.Time `json:"failed_at"`
}

type OrderCancelledEvent struct {
	OrderID int64  `json:"order_id"`
	Reason  string `json:"reason,omitempty"`
}

type OrderLineItem struct {
	LineID       int64  `json:"line_id"`
	Kind         string `json:"kind"`
	ParentLineID *int64 `json:"parent_line_id,omitempty"`
	ProductID    int64  `json:"product_id,omitempty"`
	ComboID      int64  `json:"combo_id,omitempty"`
	Name         string `json:"name"`
	Quantity     int32  `json:"quantity"`
	Subtotal     string `json:"subtotal"`
}

type OrderCreatedEvent struct {
	OrderID     int64  `json:"order_id"`
	OrderType   string `json:"order_type"`
	TotalAmount string `json:"total_amount"`
}

type OrderCompletedEvent struct {
	OrderID     int64           `json:"order_id"`
	OrderType   string          `json:"order_type"`
	TotalAmount string          `json:"total_amount"`
	Items       []OrderLineItem `json:"items"`
	CompletedAt time.Time       `json:"completed_at"`
}

type TableSeatedEvent struct {
	TableID     int64     `json:"table_id"`
	TableNumber string    `json:"table_number"`
	OrderID     int64     `json:"order_id"`
	NewOrder    bool      `json:"new_order"`
	SeatedAt    time.Time `json:"seated_at"`
}

type TableTransferredEvent struct {
	FromTableID   int64     `json:"from_table_id"`
	ToTableID     int64     `json:"to_table_id"`
	OrderID       int64     `json:"order_id"`
	TransferredAt time.Time `json:"transferred_at"`
}

type TableReleasedEvent struct {
	TableID     int64     `json:"table_id"`
	OrderID     int64     `json:"order_id"`
	OrderStatus string    `json:"order_status"`
	ReleasedAt  time.Time `json:"released_at"`
}

type ProductUpdatedEvent struct {
	ProductID int64 `json:"product_id"`
}

type ComboUpdatedEvent struct {
	ComboID int64 `json:"combo_id"`
}
