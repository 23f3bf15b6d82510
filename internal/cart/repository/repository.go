package repository

import (
	"context"

	"gorm.io/gorm"

	"github.com/tair/commerce-core/internal/cart/domain"
	"github.com/tair/commerce-core/pkg/database"
)

type GormCartRepository struct {
	db *gorm.DB
}

func NewGormCartRepository(db *gorm.DB) *GormCartRepository {
	return &GormCartRepository{db: db}
}

func (r *GormCartRepository) AutoMigrate() error {
	return r.db.AutoMigrate(&domain.CartItem{})
}

func (r *GormCartRepository) AddItem(ctx context.Context, item *domain.CartItem) error {
	return database.Conn(ctx, r.db).Create(item).Error
}

func (r *GormCartRepository) ListByCustomer(ctx context.Context, customerID uint) ([]domain.CartItem, error) {
	var items []domain.CartItem
	err := database.Conn(ctx, r.db).
		Where("customer_id = ?", customerID).
		Order("id").
		Find(&items).Error
	return items, err
}

// DeleteByCustomer removes every cart line of the customer and reports how many went
func (r *GormCartRepository) DeleteByCustomer(ctx context.Context, customerID uint) (int64, error) {
	res := database.Conn(ctx, r.db).
		Where("customer_id = ?", customerID).
		Delete(&domain.CartItem{})
	return res.RowsAffected, res.Error
}
