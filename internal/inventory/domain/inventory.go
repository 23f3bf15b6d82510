package domain

import (
	"context"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// DefaultLocation is used when a record is created without a location
const DefaultLocation = "warehouse"

// Inventory is the stock of one product at one location. AvailableQuantity is
// always Quantity minus ReservedQuantity.
type Inventory struct {
	ID                uint                `json:"id" gorm:"primaryKey"`
	ProductID         uint                `json:"product_id" gorm:"not null;uniqueIndex:idx_inventory_product_location"`
	Location          string              `json:"location" gorm:"size:100;not null;uniqueIndex:idx_inventory_product_location"`
	Quantity          int                 `json:"quantity" gorm:"not null"`
	ReservedQuantity  int                 `json:"reserved_quantity" gorm:"not null"`
	AvailableQuantity int                 `json:"available_quantity" gorm:"not null"`
	LowStockThreshold int                 `json:"low_stock_threshold" gorm:"not null"`
	CostPrice         decimal.NullDecimal `json:"cost_price" gorm:"type:numeric(12,2)"`
	BatchNumber       *string             `json:"batch_number,omitempty" gorm:"size:100"`
	ExpiryDate        *time.Time          `json:"expiry_date,omitempty"`
	CreatedAt         time.Time           `json:"created_at"`
	UpdatedAt         time.Time           `json:"updated_at"`
}

// TableName specifies the table name
func (Inventory) TableName() string {
	return "inventories"
}

// BeforeSave keeps the derived available quantity in step with every write
func (i *Inventory) BeforeSave(*gorm.DB) error {
	i.Recalculate()
	return nil
}

// Recalculate refreshes AvailableQuantity
func (i *Inventory) Recalculate() {
	i.AvailableQuantity = i.Quantity - i.ReservedQuantity
}

// IsLowStock reports whether available stock is at or below a configured threshold
func (i *Inventory) IsLowStock() bool {
	return i.LowStockThreshold > 0 && i.AvailableQuantity <= i.LowStockThreshold
}

// Apply changes the on-hand quantity according to adj and returns the movement that
// records it. Nothing is modified when an error is returned.
func (i *Inventory) Apply(adj Adjustment) (*StockMovement, error) {
	change, err := adj.resolve(i.Quantity)
	if err != nil {
		return nil, err
	}

	after := i.Quantity + change.delta
	if after < 0 {
		return nil, &InsufficientStockError{
			InventoryID: i.ID,
			OnHand:      i.Quantity,
			Requested:   change.magnitude,
		}
	}

	movement := &StockMovement{
		ProductID:      i.ProductID,
		InventoryID:    ptrUint(i.ID),
		Type:           adj.Type,
		Quantity:       change.magnitude,
		QuantityBefore: i.Quantity,
		QuantityAfter:  after,
		Location:       i.Location,
		CostPrice:      i.CostPrice,
	}

	i.Quantity = after
	i.Recalculate()
	return movement, nil
}

// NormalizeLocation trims the location and applies the default
func NormalizeLocation(location string) string {
	location = strings.TrimSpace(location)
	if location == "" {
		return DefaultLocation
	}
	return location
}

func ptrUint(v uint) *uint {
	if v == 0 {
		return nil
	}
	return &v
}

// InventoryFilter narrows inventory listings
type InventoryFilter struct {
	ProductID *uint
	Location  string
	Limit     int
	Offset    int
}

// InventoryRepository defines the contract for inventory data access. Lock methods
// take a row lock and must run inside a transaction.
type InventoryRepository interface {
	Create(ctx context.Context, inventory *Inventory) error
	// CreateIfAbsent inserts the record unless one already exists for its product and
	// location, and reports whether it inserted
	CreateIfAbsent(ctx context.Context, inventory *Inventory) (bool, error)
	FindByID(ctx context.Context, id uint) (*Inventory, error)
	LockByID(ctx context.Context, id uint) (*Inventory, error)
	LockByProductAndLocation(ctx context.Context, productID uint, location string) (*Inventory, error)
	FindAll(ctx context.Context, filter InventoryFilter) ([]Inventory, int64, error)
	FindLowStock(ctx context.Context, limit, offset int) ([]Inventory, error)
	Save(ctx context.Context, inventory *Inventory) error
	Delete(ctx context.Context, id uint) error
	SumAvailableByProduct(ctx context.Context, productID uint) (int, error)
}
