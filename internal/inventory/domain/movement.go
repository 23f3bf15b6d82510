package domain

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
)

// MovementType classifies a stock movement
type MovementType string

// Movement types
const (
	MovementIn         MovementType = "in"
	MovementOut        MovementType = "out"
	MovementAdjustment MovementType = "adjustment"
	MovementTransfer   MovementType = "transfer"
	MovementReturn     MovementType = "return"
	MovementDamage     MovementType = "damage"
	MovementExpired    MovementType = "expired"
)

// IsValid reports whether t is a known movement type
func (t MovementType) IsValid() bool {
	switch t {
	case MovementIn, MovementOut, MovementAdjustment, MovementTransfer,
		MovementReturn, MovementDamage, MovementExpired:
		return true
	}
	return false
}

// adds reports whether a non-adjustment movement of this type increases stock
func (t MovementType) adds() bool {
	return t == MovementIn || t == MovementReturn
}

// StockMovement is one append-only entry of the stock ledger. Quantity is the
// magnitude of the change; the direction is QuantityAfter - QuantityBefore.
type StockMovement struct {
	ID             uint                `json:"id" gorm:"primaryKey"`
	ProductID      uint                `json:"product_id" gorm:"not null;index"`
	InventoryID    *uint               `json:"inventory_id,omitempty" gorm:"index"`
	Type           MovementType        `json:"type" gorm:"size:20;not null;index"`
	Quantity       int                 `json:"quantity" gorm:"not null"`
	QuantityBefore int                 `json:"quantity_before" gorm:"not null"`
	QuantityAfter  int                 `json:"quantity_after" gorm:"not null"`
	ReferenceType  *string             `json:"reference_type,omitempty" gorm:"size:50"`
	ReferenceID    *uint               `json:"reference_id,omitempty"`
	Location       string              `json:"location" gorm:"size:100;not null;index"`
	ToLocation     *string             `json:"to_location,omitempty" gorm:"size:100"`
	CostPrice      decimal.NullDecimal `json:"cost_price" gorm:"type:numeric(12,2)"`
	Reason         *string             `json:"reason,omitempty" gorm:"size:255"`
	Notes          *string             `json:"notes,omitempty"`
	UserID         *uint               `json:"user_id,omitempty"`
	CreatedAt      time.Time           `json:"created_at" gorm:"index"`
}

// TableName specifies the table name
func (StockMovement) TableName() string {
	return "stock_movements"
}

// Delta is the signed change this movement recorded
func (m *StockMovement) Delta() int {
	return m.QuantityAfter - m.QuantityBefore
}

// Adjustment describes a requested quantity change. For adjustment movements the
// sign of Quantity picks the direction, or SetQuantity gives an absolute target.
// For every other type only the magnitude of Quantity is used and the type
// decides the direction.
type Adjustment struct {
	Type        MovementType
	Quantity    int
	SetQuantity *int
}

type resolvedChange struct {
	delta     int
	magnitude int
}

func (a Adjustment) resolve(current int) (resolvedChange, error) {
	if !a.Type.IsValid() {
		return resolvedChange{}, Validationf("unknown movement type %q", a.Type)
	}

	if a.SetQuantity != nil {
		if a.Type != MovementAdjustment {
			return resolvedChange{}, Validationf("an absolute quantity is only allowed for adjustment movements")
		}
		if *a.SetQuantity < 0 {
			return resolvedChange{}, Validationf("quantity cannot be negative")
		}
		delta := *a.SetQuantity - current
		return resolvedChange{delta: delta, magnitude: abs(delta)}, nil
	}

	if a.Quantity == 0 {
		return resolvedChange{}, Validationf("quantity must not be zero")
	}

	magnitude := abs(a.Quantity)
	switch {
	case a.Type == MovementAdjustment && a.Quantity > 0, a.Type.adds():
		return resolvedChange{delta: magnitude, magnitude: magnitude}, nil
	default:
		return resolvedChange{delta: -magnitude, magnitude: magnitude}, nil
	}
}

func abs(v int) int {
	if v < 0 {
		return -v
	}
	return v
}

// MovementFilter narrows ledger queries
type MovementFilter struct {
	ProductID   *uint
	InventoryID *uint
	Type        *MovementType
	Location    string
	From        *time.Time
	To          *time.Time
	Limit       int
	Offset      int
}

// MovementRepository appends to and reads the stock ledger. There is no update or
// delete of entries.
type MovementRepository interface {
	Append(ctx context.Context, movement *StockMovement) error
	FindAll(ctx context.Context, filter MovementFilter) ([]StockMovement, int64, error)
	// DetachInventory clears the inventory reference of every entry of a record that is
	// about to be deleted. The entries themselves are kept.
	DetachInventory(ctx context.Context, inventoryID uint) (int64, error)
}

// StockCache holds the last synced product stock level
type StockCache interface {
	GetProductStock(ctx context.Context, productID uint) (int, bool, error)
	SetProductStock(ctx context.Context, productID uint, quantity int) error
	Invalidate(ctx context.Context, productIDs ...uint) error
}
