package domain

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
)

// CartItem is one product line in a customer's cart. Price is the snapshot taken when
// the product was added; zero means no snapshot was recorded.
type CartItem struct {
	ID         uint            `json:"id" gorm:"primaryKey"`
	CustomerID uint            `json:"customer_id" gorm:"not null;index"`
	ProductID  uint            `json:"product_id" gorm:"not null"`
	Quantity   int             `json:"quantity" gorm:"not null"`
	Price      decimal.Decimal `json:"price" gorm:"type:numeric(12,2);not null"`
	CreatedAt  time.Time       `json:"created_at"`
	UpdatedAt  time.Time       `json:"updated_at"`
}

// TableName specifies the table name
func (CartItem) TableName() string {
	return "cart_items"
}

// CartRepository defines the contract for cart data access
type CartRepository interface {
	AddItem(ctx context.Context, item *CartItem) error
	ListByCustomer(ctx context.Context, customerID uint) ([]CartItem, error)
	DeleteByCustomer(ctx context.Context, customerID uint) (int64, error)
}
