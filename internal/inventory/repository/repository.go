package repository

import (
	"context"
	"errors"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/tair/commerce-core/internal/inventory/domain"
	"github.com/tair/commerce-core/pkg/database"
)

type GormInventoryRepository struct {
	db *gorm.DB
}

func NewGormInventoryRepository(db *gorm.DB) *GormInventoryRepository {
	return &GormInventoryRepository{db: db}
}

func (r *GormInventoryRepository) AutoMigrate() error {
	return r.db.AutoMigrate(&domain.Inventory{}, &domain.StockMovement{})
}

func (r *GormInventoryRepository) Create(ctx context.Context, inventory *domain.Inventory) error {
	return database.Conn(ctx, r.db).Create(inventory).Error
}

// CreateIfAbsent leaves the transaction usable when the row already exists, which a
// failed plain insert would not on postgres
func (r *GormInventoryRepository) CreateIfAbsent(ctx context.Context, inventory *domain.Inventory) (bool, error) {
	res := database.Conn(ctx, r.db).Clauses(clause.OnConflict{DoNothing: true}).Create(inventory)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected == 1, nil
}

func (r *GormInventoryRepository) FindByID(ctx context.Context, id uint) (*domain.Inventory, error) {
	return first(database.Conn(ctx, r.db).Where("id = ?", id))
}

func (r *GormInventoryRepository) LockByID(ctx context.Context, id uint) (*domain.Inventory, error) {
	return first(database.ForUpdate(database.Conn(ctx, r.db)).Where("id = ?", id))
}

func (r *GormInventoryRepository) LockByProductAndLocation(ctx context.Context, productID uint, location string) (*domain.Inventory, error) {
	return first(database.ForUpdate(database.Conn(ctx, r.db)).
		Where("product_id = ? AND location = ?", productID, location))
}

func first(query *gorm.DB) (*domain.Inventory, error) {
	var inventory domain.Inventory
	err := query.First(&inventory).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, domain.ErrInventoryNotFound
	}
	if err != nil {
		return nil, err
	}
	return &inventory, nil
}

func (r *GormInventoryRepository) FindAll(ctx context.Context, filter domain.InventoryFilter) ([]domain.Inventory, int64, error) {
	query := database.Conn(ctx, r.db).Model(&domain.Inventory{})
	if filter.ProductID != nil {
		query = query.Where("product_id = ?", *filter.ProductID)
	}
	if filter.Location != "" {
		query = query.Where("location = ?", filter.Location)
	}

	var total int64
	if err := query.Session(&gorm.Session{}).Count(&total).Error; err != nil {
		return nil, 0, err
	}

	if filter.Limit > 0 {
		query = query.Limit(filter.Limit).Offset(filter.Offset)
	}

	var inventories []domain.Inventory
	if err := query.Order("product_id").Order("location").Find(&inventories).Error; err != nil {
		return nil, 0, err
	}
	return inventories, total, nil
}

// FindLowStock returns records at or below their threshold. Records without a threshold never qualify.
func (r *GormInventoryRepository) FindLowStock(ctx context.Context, limit, offset int) ([]domain.Inventory, error) {
	query := database.Conn(ctx, r.db).
		Where("low_stock_threshold > 0 AND available_quantity <= low_stock_threshold").
		Order("available_quantity").Order("id")
	if limit > 0 {
		query = query.Limit(limit).Offset(offset)
	}

	var inventories []domain.Inventory
	err := query.Find(&inventories).Error
	return inventories, err
}

func (r *GormInventoryRepository) Save(ctx context.Context, inventory *domain.Inventory) error {
	return database.Conn(ctx, r.db).Save(inventory).Error
}

func (r *GormInventoryRepository) Delete(ctx context.Context, id uint) error {
	res := database.Conn(ctx, r.db).Delete(&domain.Inventory{}, id)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return domain.ErrInventoryNotFound
	}
	return nil
}

func (r *GormInventoryRepository) SumAvailableByProduct(ctx context.Context, productID uint) (int, error) {
	var total int64
	err := database.Conn(ctx, r.db).Model(&domain.Inventory{}).
		Where("product_id = ?", productID).
		Select("COALESCE(SUM(available_quantity), 0)").
		Scan(&total).Error
	return int(total), err
}
