package order

import (
	"github.com/google/wire"
	"gorm.io/gorm"

	cartrepo "github.com/tair/commerce-core/internal/cart/repository"
	orderhttp "github.com/tair/commerce-core/internal/order/delivery/http"
	"github.com/tair/commerce-core/internal/order/domain"
	"github.com/tair/commerce-core/internal/order/repository"
	"github.com/tair/commerce-core/internal/order/usecase/command"
	"github.com/tair/commerce-core/internal/order/usecase/query"
	paymentdomain "github.com/tair/commerce-core/internal/payment/domain"
	"github.com/tair/commerce-core/internal/payment/gateway"
	paymenthandler "github.com/tair/commerce-core/internal/payment/handler"
	paymentcommand "github.com/tair/commerce-core/internal/payment/usecase/command"
	productrepo "github.com/tair/commerce-core/internal/product/repository"
	"github.com/tair/commerce-core/pkg/auth"
	"github.com/tair/commerce-core/pkg/config"
	"github.com/tair/commerce-core/pkg/database"
	"github.com/tair/commerce-core/pkg/httpserver"
)

// Handlers are the HTTP surfaces of the order service
type Handlers struct {
	Order   *orderhttp.OrderHandler
	Payment *paymenthandler.PaymentHandler
}

// Registrars lists the handlers in route registration order
func (h *Handlers) Registrars() []httpserver.RouteRegistrar {
	return []httpserver.RouteRegistrar{h.Order, h.Payment}
}

// ProvideTransactor provides the transaction runner
func ProvideTransactor(db *gorm.DB) database.Transactor {
	return database.NewGormTransactor(db)
}

// ProvideOrderRepository provides the traced order repository
func ProvideOrderRepository(db *gorm.DB) domain.OrderRepository {
	return repository.NewTracingOrderRepository(repository.NewGormOrderRepository(db))
}

// ProvideProductRepository provides the traced product catalog
func ProvideProductRepository(db *gorm.DB) *productrepo.TracingProductRepository {
	return productrepo.NewTracingProductRepository(productrepo.NewGormProductRepository(db))
}

// ProvideCartStore provides the cart collaborator
func ProvideCartStore(db *gorm.DB) paymentdomain.CartStore {
	return cartrepo.NewGormCartRepository(db)
}

// ProvideGateway provides the payment gateway client
func ProvideGateway(cfg *config.Config) paymentdomain.Gateway {
	return gateway.NewClient(cfg.Gateway)
}

// ProvideGatewayKeyID provides the public gateway key handed to checkout clients
func ProvideGatewayKeyID(cfg *config.Config) paymenthandler.GatewayKeyID {
	return paymenthandler.GatewayKeyID(cfg.Gateway.KeyID)
}

// ProvideAuthenticator provides the JWT middleware
func ProvideAuthenticator(cfg *config.Config) *httpserver.Authenticator {
	return httpserver.NewAuthenticator(auth.NewTokenValidator(cfg.JWTSecret))
}

// Wire sets
var InfrastructureSet = wire.NewSet(
	ProvideTransactor,
	ProvideOrderRepository,
	ProvideProductRepository,
	wire.Bind(new(command.ProductLookup), new(*productrepo.TracingProductRepository)),
	wire.Bind(new(paymentcommand.ProductLookup), new(*productrepo.TracingProductRepository)),
	ProvideCartStore,
	ProvideGateway,
	ProvideGatewayKeyID,
	ProvideAuthenticator,
)

var CommandHandlerSet = wire.NewSet(
	command.NewCreateOrderHandler,
	command.NewTransitionStatusHandler,
	command.NewUpdatePaymentStatusHandler,
	command.NewRefundOrderHandler,
	command.NewDeleteOrderHandler,
	paymentcommand.NewCreatePaymentOrderHandler,
	paymentcommand.NewVerifyPaymentHandler,
	paymentcommand.NewPaymentFailedHandler,
)

var QueryHandlerSet = wire.NewSet(
	query.NewGetOrderHandler,
	query.NewListOrdersHandler,
)

var AllHandlersSet = wire.NewSet(
	InfrastructureSet,
	CommandHandlerSet,
	QueryHandlerSet,
	orderhttp.NewOrderHandler,
	paymenthandler.NewPaymentHandler,
	wire.Struct(new(Handlers), "*"),
)
