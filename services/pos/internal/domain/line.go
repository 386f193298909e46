package domain

import (
	"github.com/shopspring/decimal"
)

type LineKind string

const (
	LineKindSingle      LineKind = "SINGLE"
	LineKindCombo       LineKind = "COMBO"
	LineKindComboMember LineKind = "COMBO_MEMBER"
)

const (
	MaxLineQuantity      = 999
	MaxSelectionsPerLine = 20
)

// OrderLine is a tagged variant. Exactly one of Single, Combo or Member is set,
// matching Kind.
type OrderLine struct {
	ID       int64
	OrderID  int64
	Kind     LineKind
	Quantity int32
	Subtotal decimal.Decimal

	Single *SingleLine
	Combo  *ComboLine
	Member *ComboMemberLine
}

type SingleLine struct {
	ProductID     int64
	ProductName   string
	UnitPrice     decimal.Decimal
	OptionsAmount decimal.Decimal
	Options       []ChosenOption
}

type ComboLine struct {
	ComboID    int64
	ComboName  string
	ComboPrice decimal.Decimal
}

type ComboMemberLine struct {
	ParentLineID int64
	ComboID      int64
	ProductID    int64
	ProductName  string
}

// ChosenOption records a resolved selection with the adjustment taken from the
// catalog at the time the line was priced.
type ChosenOption struct {
	GroupID         int64           `json:"group_id"`
	GroupName       string          `json:"group_name"`
	ValueID         int64           `json:"value_id"`
	ValueName       string          `json:"value_name"`
	PriceAdjustment decimal.Decimal `json:"price_adjustment"`
}

// Name is the display name of whatever the line sells.
func (l *OrderLine) Name() string {
	switch l.Kind {
	case LineKindSingle:
		return l.Single.ProductName
	case LineKindCombo:
		return l.Combo.ComboName
	case LineKindComboMember:
		return l.Member.ProductName
	default:
		return ""
	}
}

func (l *OrderLine) ProductID() int64 {
	switch l.Kind {
	case LineKindSingle:
		return l.Single.ProductID
	case LineKindComboMember:
		return l.Member.ProductID
	default:
		return 0
	}
}

func (l *OrderLine) ComboID() int64 {
	switch l.Kind {
	case LineKindCombo:
		return l.Combo.ComboID
	case LineKindComboMember:
		return l.Member.ComboID
	default:
		return 0
	}
}

func (l *OrderLine) ParentLineID() *int64 {
	if l.Kind != LineKindComboMember {
		return nil
	}
	id := l.Member.ParentLineID
	return &id
}

// OptionSelection is a caller's request for one option value. PriceAdjustment
// is accepted for wire compatibility and never used for pricing.
type OptionSelection struct {
	GroupName       string
	ValueName       string
	PriceAdjustment *decimal.Decimal
}

// LineSpec describes a line the caller wants on an order.
type LineSpec struct {
	Kind       LineKind
	ProductID  int64
	ComboID    int64
	Quantity   int32
	Selections []OptionSelection
}

func (s LineSpec) Validate() error {
	if s.Quantity < 1 || s.Quantity > MaxLineQuantity {
		return ErrInvalidQuantity
	}

	switch s.Kind {
	case LineKindSingle:
		if s.ProductID <= 0 {
			return ErrInvalidProductID
		}
	case LineKindCombo:
		if s.ComboID <= 0 {
			return ErrInvalidComboID
		}
		if len(s.Selections) > 0 {
			return ErrComboSelections
		}
	default:
		return ErrInvalidLineKind
	}

	if len(s.Selections) > MaxSelectionsPerLine {
		return ErrTooManySelections
	}

	return nil
}
