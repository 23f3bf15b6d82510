package inventory

import (
	"github.com/google/wire"
	"gorm.io/gorm"

	inventoryhttp "github.com/tair/commerce-core/internal/inventory/delivery/http"
	"github.com/tair/commerce-core/internal/inventory/domain"
	"github.com/tair/commerce-core/internal/inventory/repository"
	"github.com/tair/commerce-core/internal/inventory/usecase/command"
	"github.com/tair/commerce-core/internal/inventory/usecase/query"
	productrepo "github.com/tair/commerce-core/internal/product/repository"
	"github.com/tair/commerce-core/pkg/auth"
	"github.com/tair/commerce-core/pkg/config"
	"github.com/tair/commerce-core/pkg/database"
	"github.com/tair/commerce-core/pkg/httpserver"
)

// ProvideTransactor provides the transaction runner
func ProvideTransactor(db *gorm.DB) database.Transactor {
	return database.NewGormTransactor(db)
}

// ProvideInventoryRepository provides the traced inventory repository
func ProvideInventoryRepository(db *gorm.DB) domain.InventoryRepository {
	return repository.NewTracingInventoryRepository(repository.NewGormInventoryRepository(db))
}

// ProvideMovementRepository provides the traced stock ledger
func ProvideMovementRepository(db *gorm.DB) domain.MovementRepository {
	return repository.NewTracingMovementRepository(repository.NewGormMovementRepository(db))
}

// ProvideProductStore provides the product catalog the stock sync writes to
func ProvideProductStore(db *gorm.DB) command.ProductStore {
	return productrepo.NewTracingProductRepository(productrepo.NewGormProductRepository(db))
}

// ProvideAuthenticator provides the JWT middleware
func ProvideAuthenticator(cfg *config.Config) *httpserver.Authenticator {
	return httpserver.NewAuthenticator(auth.NewTokenValidator(cfg.JWTSecret))
}

// Wire sets
var RepositorySet = wire.NewSet(
	ProvideTransactor,
	ProvideInventoryRepository,
	ProvideMovementRepository,
	ProvideProductStore,
)

var CommandHandlerSet = wire.NewSet(
	command.NewResyncProductStockHandler,
	command.NewUpsertInventoryHandler,
	command.NewAdjustStockHandler,
	command.NewTransferStockHandler,
	command.NewDeleteInventoryHandler,
)

var QueryHandlerSet = wire.NewSet(
	query.NewGetInventoryHandler,
	query.NewListInventoryHandler,
	query.NewListLowStockHandler,
	query.NewListMovementsHandler,
	query.NewGetProductStockHandler,
)

var AllHandlersSet = wire.NewSet(
	RepositorySet,
	CommandHandlerSet,
	QueryHandlerSet,
	ProvideAuthenticator,
	inventoryhttp.NewInventoryHandler,
)
