package repository

import (
	"context"

	"gorm.io/gorm"

	"github.com/tair/commerce-core/internal/inventory/domain"
	"github.com/tair/commerce-core/pkg/database"
)

type GormMovementRepository struct {
	db *gorm.DB
}

func NewGormMovementRepository(db *gorm.DB) *GormMovementRepository {
	return &GormMovementRepository{db: db}
}

func (r *GormMovementRepository) Append(ctx context.Context, movement *domain.StockMovement) error {
	return database.Conn(ctx, r.db).Create(movement).Error
}

func (r *GormMovementRepository) FindAll(ctx context.Context, filter domain.MovementFilter) ([]domain.StockMovement, int64, error) {
	query := database.Conn(ctx, r.db).Model(&domain.StockMovement{})
	if filter.ProductID != nil {
		query = query.Where("product_id = ?", *filter.ProductID)
	}
	if filter.InventoryID != nil {
		query = query.Where("inventory_id = ?", *filter.InventoryID)
	}
	if filter.Type != nil {
		query = query.Where("type = ?", *filter.Type)
	}
	if filter.Location != "" {
		query = query.Where("(location = ? OR to_location = ?)", filter.Location, filter.Location)
	}
	if filter.From != nil {
		query = query.Where("created_at >= ?", *filter.From)
	}
	if filter.To != nil {
		query = query.Where("created_at <= ?", *filter.To)
	}

	var total int64
	if err := query.Session(&gorm.Session{}).Count(&total).Error; err != nil {
		return nil, 0, err
	}

	if filter.Limit > 0 {
		query = query.Limit(filter.Limit).Offset(filter.Offset)
	}

	var movements []domain.StockMovement
	if err := query.Order("created_at DESC").Order("id DESC").Find(&movements).Error; err != nil {
		return nil, 0, err
	}
	return movements, total, nil
}

func (r *GormMovementRepository) DetachInventory(ctx context.Context, inventoryID uint) (int64, error) {
	res := database.Conn(ctx, r.db).Model(&domain.StockMovement{}).
		Where("inventory_id = ?", inventoryID).
		Update("inventory_id", nil)
	return res.RowsAffected, res.Error
}
