package domain

import (
	"errors"
	"fmt"
)

// Categories. Every specific error below wraps exactly one of them.
var (
	ErrNotFound         = errors.New("not found")
	ErrValidation       = errors.New("validation failed")
	ErrInvalidState     = errors.New("invalid state")
	ErrConflict         = errors.New("conflict")
	ErrOptionResolution = errors.New("option resolution failed")
	ErrNotSettled       = errors.New("order not settled")
)

var (
	ErrOrderNotFound   = fmt.Errorf("order %w", ErrNotFound)
	ErrLineNotFound    = fmt.Errorf("order line %w", ErrNotFound)
	ErrTableNotFound   = fmt.Errorf("table %w", ErrNotFound)
	ErrProductNotFound = fmt.Errorf("product %w", ErrNotFound)
	ErrComboNotFound   = fmt.Errorf("combo %w", ErrNotFound)
	ErrSourceNotFound  = fmt.Errorf("source table %w", ErrNotFound)
	ErrTargetNotFound  = fmt.Errorf("target table %w", ErrNotFound)
)

var (
	ErrInvalidQuantity      = fmt.Errorf("%w: quantity must be between 1 and %d", ErrValidation, MaxLineQuantity)
	ErrInvalidLineKind      = fmt.Errorf("%w: line kind must be SINGLE or COMBO", ErrValidation)
	ErrInvalidProductID     = fmt.Errorf("%w: product id is required", ErrValidation)
	ErrInvalidComboID       = fmt.Errorf("%w: combo id is required", ErrValidation)
	ErrComboSelections      = fmt.Errorf("%w: combo lines take no option selections", ErrValidation)
	ErrTooManySelections    = fmt.Errorf("%w: at most %d option selections per line", ErrValidation, MaxSelectionsPerLine)
	ErrInvalidOrderType     = fmt.Errorf("%w: unknown order type", ErrValidation)
	ErrLineKindMismatch     = fmt.Errorf("%w: line kind cannot change", ErrValidation)
	ErrComboMemberImmutable = fmt.Errorf("%w: combo member lines change only with their combo", ErrValidation)
	ErrSameTable            = fmt.Errorf("%w: source and target table are the same", ErrValidation)
)

var (
	ErrOrderNotMutable = fmt.Errorf("%w: order is not in DRAFT", ErrInvalidState)
	ErrOrderNotDraft   = fmt.Errorf("%w: order is not a draft", ErrInvalidState)
	ErrStatusCrossover = fmt.Errorf("%w: order already settled differently", ErrInvalidState)
)

var (
	ErrTableInactive      = fmt.Errorf("%w: table is inactive", ErrConflict)
	ErrTableOccupied      = fmt.Errorf("%w: table is occupied", ErrConflict)
	ErrTableNotOccupied   = fmt.Errorf("%w: table is not occupied", ErrConflict)
	ErrOrderAlreadySeated = fmt.Errorf("%w: order is already seated at another table", ErrConflict)
	ErrProductInactive    = fmt.Errorf("%w: product is inactive", ErrConflict)
	ErrComboInactive      = fmt.Errorf("%w: combo is inactive", ErrConflict)
	ErrComboEmpty         = fmt.Errorf("%w: combo has no components", ErrConflict)
	ErrSourceNotOccupied  = fmt.Errorf("%w: source table is not occupied", ErrConflict)
	ErrSourceNoOrder      = fmt.Errorf("%w: source table has no order", ErrConflict)
	ErrTargetInactive     = fmt.Errorf("%w: target table is inactive", ErrConflict)
	ErrTargetOccupied     = fmt.Errorf("%w: target table is occupied", ErrConflict)
)

var (
	ErrOptionGroupNotFound = fmt.Errorf("%w: option group not found", ErrOptionResolution)
	ErrOptionValueNotFound = fmt.Errorf("%w: option value not found", ErrOptionResolution)
	ErrNoOptionsAvailable  = fmt.Errorf("%w: product has no options available", ErrOptionResolution)
)

var ErrOrderNotSettled = fmt.Errorf("%w: table can be released only after the order is paid, completed or cancelled", ErrNotSettled)

// OptionError names the selection that could not be resolved.
type OptionError struct {
	Err       error
	GroupName string
	ValueName string
}

func (e *OptionError) Error() string {
	if e.ValueName == "" {
		return fmt.Sprintf("%v: %q", e.Err, e.GroupName)
	}
	return fmt.Sprintf("%v: %q/%q", e.Err, e.GroupName, e.ValueName)
}

func (e *OptionError) Unwrap() error {
	return e.Err
}
