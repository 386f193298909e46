package domain

import "github.com/shopspring/decimal"

type Product struct {
	ID        int64           `json:"id"`
	Name      string          `json:"name"`
	UnitPrice decimal.Decimal `json:"unit_price"`
	IsActive  bool            `json:"is_active"`
}

type OptionGroup struct {
	ID   int64
	Name string
}

type OptionValue struct {
	ID              int64
	GroupID         int64
	Name            string
	PriceAdjustment decimal.Decimal
}

type Combo struct {
	ID         int64           `json:"id"`
	Name       string          `json:"name"`
	ComboPrice decimal.Decimal `json:"combo_price"`
	IsActive   bool            `json:"is_active"`
}

type ComboMember struct {
	ProductID   int64  `json:"product_id"`
	ProductName string `json:"product_name"`
	Quantity    int32  `json:"quantity"`
}

// ProductView is a menu card: the product with the option values a line for
// it may currently choose from.
type ProductView struct {
	Product
	OptionGroups []OptionGroupView
}

type OptionGroupView struct {
	OptionGroup
	Values []OptionValue
}

type ComboView struct {
	Combo
	Members []ComboMember
}
