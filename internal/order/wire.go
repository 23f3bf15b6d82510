//go:build wireinject
// +build wireinject

package order

import (
	"github.com/google/wire"
	"gorm.io/gorm"

	"github.com/tair/commerce-core/kafka"
	"github.com/tair/commerce-core/pkg/config"
)

// InitializeHandlers initializes the order and payment handlers with all dependencies
func InitializeHandlers(db *gorm.DB, cfg *config.Config, publisher kafka.EventPublisher) (*Handlers, error) {
	wire.Build(AllHandlersSet)
	return nil, nil
}
