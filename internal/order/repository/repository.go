package repository

import (
	"context"
	"errors"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/tair/commerce-core/internal/order/domain"
	"github.com/tair/commerce-core/pkg/database"
)

type GormOrderRepository struct {
	db *gorm.DB
}

func NewGormOrderRepository(db *gorm.DB) *GormOrderRepository {
	return &GormOrderRepository{db: db}
}

func (r *GormOrderRepository) AutoMigrate() error {
	return r.db.AutoMigrate(&domain.Order{}, &domain.OrderItem{})
}

// Create inserts the order together with its items
func (r *GormOrderRepository) Create(ctx context.Context, order *domain.Order) error {
	return database.Conn(ctx, r.db).Create(order).Error
}

func (r *GormOrderRepository) FindByID(ctx context.Context, id uint) (*domain.Order, error) {
	return r.first(database.Conn(ctx, r.db), "id = ?", id)
}

func (r *GormOrderRepository) FindByNumber(ctx context.Context, number string) (*domain.Order, error) {
	return r.first(database.Conn(ctx, r.db), "order_number = ?", number)
}

func (r *GormOrderRepository) FindByGatewayOrderID(ctx context.Context, gatewayOrderID string) (*domain.Order, error) {
	return r.first(database.Conn(ctx, r.db), "gateway_order_id = ?", gatewayOrderID)
}

func (r *GormOrderRepository) LockByID(ctx context.Context, id uint) (*domain.Order, error) {
	return r.first(database.ForUpdate(database.Conn(ctx, r.db)), "id = ?", id)
}

func (r *GormOrderRepository) LockByGatewayOrderID(ctx context.Context, gatewayOrderID string) (*domain.Order, error) {
	return r.first(database.ForUpdate(database.Conn(ctx, r.db)), "gateway_order_id = ?", gatewayOrderID)
}

func (r *GormOrderRepository) first(db *gorm.DB, query string, arg interface{}) (*domain.Order, error) {
	var order domain.Order
	err := db.Preload("Items").Where(query, arg).First(&order).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, domain.ErrOrderNotFound
	}
	if err != nil {
		return nil, err
	}
	return &order, nil
}

func (r *GormOrderRepository) FindAll(ctx context.Context, filter domain.OrderFilter) ([]domain.Order, int64, error) {
	query := database.Conn(ctx, r.db).Model(&domain.Order{})
	if filter.CustomerID != nil {
		query = query.Where("customer_id = ?", *filter.CustomerID)
	}
	if filter.Status != nil {
		query = query.Where("status = ?", *filter.Status)
	}
	if filter.PaymentStatus != nil {
		query = query.Where("payment_status = ?", *filter.PaymentStatus)
	}

	var total int64
	if err := query.Session(&gorm.Session{}).Count(&total).Error; err != nil {
		return nil, 0, err
	}

	if filter.Limit > 0 {
		query = query.Limit(filter.Limit).Offset(filter.Offset)
	}

	var orders []domain.Order
	err := query.Preload("Items").Order("created_at DESC").Order("id DESC").Find(&orders).Error
	if err != nil {
		return nil, 0, err
	}
	return orders, total, nil
}

// Update persists the order row. Items are immutable once created and are never rewritten here.
func (r *GormOrderRepository) Update(ctx context.Context, order *domain.Order) error {
	return database.Conn(ctx, r.db).Omit(clause.Associations).Save(order).Error
}

// Delete removes the order and its items
func (r *GormOrderRepository) Delete(ctx context.Context, id uint) error {
	conn := database.Conn(ctx, r.db)
	if err := conn.Where("order_id = ?", id).Delete(&domain.OrderItem{}).Error; err != nil {
		return err
	}

	res := conn.Delete(&domain.Order{}, id)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return domain.ErrOrderNotFound
	}
	return nil
}
