//go:build wireinject
// +build wireinject

package inventory

import (
	"github.com/google/wire"
	"gorm.io/gorm"

	"github.com/tair/commerce-core/internal/inventory/delivery/http"
	"github.com/tair/commerce-core/internal/inventory/domain"
	"github.com/tair/commerce-core/kafka"
	"github.com/tair/commerce-core/pkg/config"
)

// InitializeHTTPHandler initializes HTTP handler with all dependencies
func InitializeHTTPHandler(db *gorm.DB, cfg *config.Config, publisher kafka.EventPublisher, cache domain.StockCache) (*http.InventoryHandler, error) {
	wire.Build(AllHandlersSet)
	return nil, nil
}
