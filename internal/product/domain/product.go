package domain

import (
	"context"
	"errors"
	"time"

	"github.com/shopspring/decimal"
)

// ErrProductNotFound is returned when a product does not exist
var ErrProductNotFound = errors.New("product not found")

// Product is the catalog entry as seen by orders and inventory: its current price,
// whether stock is tracked, and the denormalized stock quantity.
type Product struct {
	ID             uint            `json:"id" gorm:"primaryKey"`
	Name           string          `json:"name" gorm:"not null"`
	SKU            string          `json:"sku" gorm:"size:64;uniqueIndex"`
	Price          decimal.Decimal `json:"price" gorm:"type:numeric(12,2);not null"`
	StockQuantity  int             `json:"stock_quantity" gorm:"not null"`
	TrackInventory bool            `json:"track_inventory" gorm:"not null"`
	CreatedAt      time.Time       `json:"created_at"`
	UpdatedAt      time.Time       `json:"updated_at"`
}

// TableName specifies the table name
func (Product) TableName() string {
	return "products"
}

// IsAvailable checks if product is in stock
func (p *Product) IsAvailable() bool {
	return !p.TrackInventory || p.StockQuantity > 0
}

// ProductRepository defines the contract for product data access
type ProductRepository interface {
	Create(ctx context.Context, product *Product) error
	FindByID(ctx context.Context, id uint) (*Product, error)
	// LockByID reads the product under a row lock; callers must be inside a transaction
	LockByID(ctx context.Context, id uint) (*Product, error)
	FindByIDs(ctx context.Context, ids []uint) (map[uint]Product, error)
	UpdateStockQuantity(ctx context.Context, id uint, quantity int) error
}
