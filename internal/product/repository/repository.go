package repository

import (
	"context"
	"errors"

	"gorm.io/gorm"

	"github.com/tair/commerce-core/internal/product/domain"
	"github.com/tair/commerce-core/pkg/database"
)

type GormProductRepository struct {
	db *gorm.DB
}

func NewGormProductRepository(db *gorm.DB) *GormProductRepository {
	return &GormProductRepository{db: db}
}

func (r *GormProductRepository) AutoMigrate() error {
	return r.db.AutoMigrate(&domain.Product{})
}

func (r *GormProductRepository) Create(ctx context.Context, product *domain.Product) error {
	return database.Conn(ctx, r.db).Create(product).Error
}

func (r *GormProductRepository) FindByID(ctx context.Context, id uint) (*domain.Product, error) {
	return firstProduct(database.Conn(ctx, r.db), id)
}

func (r *GormProductRepository) LockByID(ctx context.Context, id uint) (*domain.Product, error) {
	return firstProduct(database.ForUpdate(database.Conn(ctx, r.db)), id)
}

func firstProduct(query *gorm.DB, id uint) (*domain.Product, error) {
	var product domain.Product
	err := query.Where("id = ?", id).First(&product).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, domain.ErrProductNotFound
	}
	if err != nil {
		return nil, err
	}
	return &product, nil
}

func (r *GormProductRepository) FindByIDs(ctx context.Context, ids []uint) (map[uint]domain.Product, error) {
	out := make(map[uint]domain.Product, len(ids))
	if len(ids) == 0 {
		return out, nil
	}

	var products []domain.Product
	if err := database.Conn(ctx, r.db).Where("id IN ?", ids).Find(&products).Error; err != nil {
		return nil, err
	}
	for _, p := range products {
		out[p.ID] = p
	}
	return out, nil
}

func (r *GormProductRepository) UpdateStockQuantity(ctx context.Context, id uint, quantity int) error {
	res := database.Conn(ctx, r.db).Model(&domain.Product{}).
		Where("id = ?", id).
		Update("stock_quantity", quantity)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return domain.ErrProductNotFound
	}
	return nil
}
