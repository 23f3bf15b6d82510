package command

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/suite"
	"gorm.io/gorm"

	cartdomain "github.com/tair/commerce-core/internal/cart/domain"
	cartrepo "github.com/tair/commerce-core/internal/cart/repository"
	orderdomain "github.com/tair/commerce-core/internal/order/domain"
	orderrepo "github.com/tair/commerce-core/internal/order/repository"
	"github.com/tair/commerce-core/internal/payment/domain"
	"github.com/tair/commerce-core/internal/payment/gateway"
	productdomain "github.com/tair/commerce-core/internal/product/domain"
	productrepo "github.com/tair/commerce-core/internal/product/repository"
	"github.com/tair/commerce-core/kafka"
	"github.com/tair/commerce-core/kafka/kafkatest"
	"github.com/tair/commerce-core/pkg/database"
	"github.com/tair/commerce-core/pkg/database/databasetest"
)

const testSecret = "gateway_secret"

type fakeGateway struct {
	err      error
	requests []domain.CreateGatewayOrderRequest
}

func (g *fakeGateway) CreateOrder(_ context.Context, req domain.CreateGatewayOrderRequest) (*domain.GatewayOrder, error) {
	if g.err != nil {
		return nil, g.err
	}
	g.requests = append(g.requests, req)
	return &domain.GatewayOrder{
		ID:       fmt.Sprintf("order_gw%d", len(g.requests)),
		Amount:   req.Amount,
		Currency: req.Currency,
		Receipt:  req.Receipt,
		Status:   "created",
	}, nil
}

func (g *fakeGateway) VerifySignature(orderID, paymentID, signature string) error {
	return gateway.VerifySignature(testSecret, orderID, paymentID, signature)
}

func (g *fakeGateway) Currency() string { return "INR" }

// brokenCart fails to clear carts after the order update was already issued
type brokenCart struct {
	*cartrepo.GormCartRepository
}

func (brokenCart) DeleteByCustomer(context.Context, uint) (int64, error) {
	return 0, errors.New("cart store offline")
}

type PaymentFlowSuite struct {
	suite.Suite

	ctx       context.Context
	db        *gorm.DB
	tx        database.Transactor
	orders    orderdomain.OrderRepository
	carts     *cartrepo.GormCartRepository
	products  *productrepo.GormProductRepository
	gateway   *fakeGateway
	publisher *kafkatest.Recorder
}

func TestPaymentFlowSuite(t *testing.T) {
	suite.Run(t, new(PaymentFlowSuite))
}

func (s *PaymentFlowSuite) SetupTest() {
	s.ctx = context.Background()
	s.db = databasetest.NewSQLite(s.T(),
		&orderdomain.Order{}, &orderdomain.OrderItem{}, &productdomain.Product{}, &cartdomain.CartItem{})
	s.tx = database.NewGormTransactor(s.db)
	s.orders = orderrepo.NewGormOrderRepository(s.db)
	s.carts = cartrepo.NewGormCartRepository(s.db)
	s.products = productrepo.NewGormProductRepository(s.db)
	s.gateway = &fakeGateway{}
	s.publisher = &kafkatest.Recorder{}
}

func (s *PaymentFlowSuite) createHandler() *CreatePaymentOrderHandler {
	return NewCreatePaymentOrderHandler(s.tx, s.orders, s.carts, s.products, s.gateway, s.publisher)
}

func (s *PaymentFlowSuite) verifyHandler(carts domain.CartStore) *VerifyPaymentHandler {
	return NewVerifyPaymentHandler(s.tx, s.orders, carts, s.gateway, s.publisher)
}

// fillCart puts three lines in the customer's cart, one without a price snapshot
func (s *PaymentFlowSuite) fillCart(customerID uint) {
	tee := &productdomain.Product{Name: "Tee", SKU: fmt.Sprintf("TEE-%d", customerID), Price: decimal.RequireFromString("15.00")}
	s.Require().NoError(s.products.Create(s.ctx, tee))

	for _, item := range []cartdomain.CartItem{
		{CustomerID: customerID, ProductID: 1001, Quantity: 2, Price: decimal.RequireFromString("10.25")},
		{CustomerID: customerID, ProductID: 1002, Quantity: 1, Price: decimal.RequireFromString("4.50")},
		{CustomerID: customerID, ProductID: tee.ID, Quantity: 1},
	} {
		item := item
		s.Require().NoError(s.carts.AddItem(s.ctx, &item))
	}
}

func (s *PaymentFlowSuite) checkout(customerID uint) *orderdomain.Order {
	s.fillCart(customerID)
	result, err := s.createHandler().Handle(s.ctx, CreatePaymentOrderCommand{CustomerID: customerID, PaymentMethod: "razorpay"})
	s.Require().NoError(err)
	return result.Order
}

func (s *PaymentFlowSuite) cartSize(customerID uint) int {
	items, err := s.carts.ListByCustomer(s.ctx, customerID)
	s.Require().NoError(err)
	return len(items)
}

func (s *PaymentFlowSuite) reload(id uint) *orderdomain.Order {
	order, err := s.orders.FindByID(s.ctx, id)
	s.Require().NoError(err)
	return order
}

func (s *PaymentFlowSuite) TestCreatePaymentOrder() {
	s.fillCart(1)

	result, err := s.createHandler().Handle(s.ctx, CreatePaymentOrderCommand{CustomerID: 1, PaymentMethod: "razorpay"})
	s.Require().NoError(err)

	order := s.reload(result.Order.ID)
	s.Equal(orderdomain.StatusPending, order.Status)
	s.Equal(orderdomain.PaymentPending, order.PaymentStatus)
	s.True(decimal.RequireFromString("40.00").Equal(order.TotalAmount))
	s.Len(order.Items, 3)
	s.Require().NotNil(order.GatewayOrderID)
	s.Equal(result.GatewayOrder.ID, *order.GatewayOrderID)

	s.Require().Len(s.gateway.requests, 1)
	s.Equal(int64(4000), s.gateway.requests[0].Amount)
	s.Equal(order.OrderNumber, s.gateway.requests[0].Receipt)
	s.Equal("INR", s.gateway.requests[0].Currency)

	s.Equal(3, s.cartSize(1), "the cart is only cleared once payment is confirmed")
	s.Len(s.publisher.OfType(kafka.EventTypeOrderCreated), 1)
}

func (s *PaymentFlowSuite) TestCreatePaymentOrder_EmptyCart() {
	_, err := s.createHandler().Handle(s.ctx, CreatePaymentOrderCommand{CustomerID: 1})

	s.ErrorIs(err, domain.ErrEmptyCart)
	s.Empty(s.gateway.requests)
	s.assertNoOrders()
}

func (s *PaymentFlowSuite) TestCreatePaymentOrder_GatewayUnavailable() {
	s.fillCart(1)
	s.gateway.err = fmt.Errorf("%w: dial tcp: connection refused", domain.ErrGatewayUnavailable)

	_, err := s.createHandler().Handle(s.ctx, CreatePaymentOrderCommand{CustomerID: 1})

	s.ErrorIs(err, domain.ErrGatewayUnavailable)
	s.assertNoOrders()
	s.Equal(3, s.cartSize(1))
}

func (s *PaymentFlowSuite) assertNoOrders() {
	var count int64
	s.Require().NoError(s.db.Model(&orderdomain.Order{}).Count(&count).Error)
	s.Zero(count)
}

func (s *PaymentFlowSuite) TestVerifyPayment_ConfirmsAndClearsCart() {
	order := s.checkout(1)
	s.fillCart(2)
	gatewayOrderID := *order.GatewayOrderID

	confirmed, err := s.verifyHandler(s.carts).Handle(s.ctx, VerifyPaymentCommand{
		GatewayOrderID:   gatewayOrderID,
		GatewayPaymentID: "pay_001",
		Signature:        gateway.Sign(testSecret, gatewayOrderID, "pay_001"),
	})
	s.Require().NoError(err)
	s.Equal(orderdomain.StatusConfirmed, confirmed.Status)

	got := s.reload(order.ID)
	s.Equal(orderdomain.PaymentPaid, got.PaymentStatus)
	s.Equal(orderdomain.StatusConfirmed, got.Status)
	s.NotNil(got.PaidAt)
	s.Zero(s.cartSize(1))
	s.Require().NotNil(got.GatewayPaymentID)
	s.Equal("pay_001", *got.GatewayPaymentID)
	s.Equal(3, s.cartSize(2), "other customers keep their carts")

	events := s.publisher.OfType(kafka.EventTypeOrderPaymentConfirmed)
	s.Require().Len(events, 1)
	s.Equal(int64(3), events[0].(kafka.PaymentConfirmedEvent).CartItemsCleared)
}

func (s *PaymentFlowSuite) TestVerifyPayment_CartFailureRollsBackConfirmation() {
	order := s.checkout(1)
	gatewayOrderID := *order.GatewayOrderID

	_, err := s.verifyHandler(brokenCart{s.carts}).Handle(s.ctx, VerifyPaymentCommand{
		GatewayOrderID:   gatewayOrderID,
		GatewayPaymentID: "pay_001",
		Signature:        gateway.Sign(testSecret, gatewayOrderID, "pay_001"),
	})
	s.Require().Error(err)

	got := s.reload(order.ID)
	s.Equal(orderdomain.PaymentPending, got.PaymentStatus)
	s.Equal(orderdomain.StatusPending, got.Status)
	s.Nil(got.PaidAt)
	s.Nil(got.GatewayPaymentID)
	s.Equal(3, s.cartSize(1))
	s.Empty(s.publisher.OfType(kafka.EventTypeOrderPaymentConfirmed))
}

func (s *PaymentFlowSuite) TestVerifyPayment_BadSignatureCancels() {
	order := s.checkout(1)

	_, err := s.verifyHandler(s.carts).Handle(s.ctx, VerifyPaymentCommand{
		GatewayOrderID:   *order.GatewayOrderID,
		GatewayPaymentID: "pay_001",
		Signature:        "forged",
	})
	s.ErrorIs(err, domain.ErrSignatureVerificationFailed)

	got := s.reload(order.ID)
	s.Equal(orderdomain.PaymentFailed, got.PaymentStatus)
	s.Equal(orderdomain.StatusCancelled, got.Status)
	s.Require().NotNil(got.PaymentError)
	s.Equal(3, s.cartSize(1))
	s.Len(s.publisher.OfType(kafka.EventTypeOrderPaymentFailed), 1)
}

func (s *PaymentFlowSuite) TestVerifyPayment_UnknownOrder() {
	_, err := s.verifyHandler(s.carts).Handle(s.ctx, VerifyPaymentCommand{
		GatewayOrderID: "order_missing", GatewayPaymentID: "pay_1", Signature: "x",
	})

	s.ErrorIs(err, orderdomain.ErrOrderNotFound)
}

func (s *PaymentFlowSuite) TestVerifyPayment_Replay() {
	order := s.checkout(1)
	gatewayOrderID := *order.GatewayOrderID
	cmd := VerifyPaymentCommand{
		GatewayOrderID:   gatewayOrderID,
		GatewayPaymentID: "pay_001",
		Signature:        gateway.Sign(testSecret, gatewayOrderID, "pay_001"),
	}
	handler := s.verifyHandler(s.carts)

	first, err := handler.Handle(s.ctx, cmd)
	s.Require().NoError(err)

	second, err := handler.Handle(s.ctx, cmd)
	s.Require().NoError(err)
	s.Equal(first.PaidAt.Unix(), second.PaidAt.Unix())
	s.Len(s.publisher.OfType(kafka.EventTypeOrderPaymentConfirmed), 1)

	_, err = handler.Handle(s.ctx, VerifyPaymentCommand{
		GatewayOrderID:   gatewayOrderID,
		GatewayPaymentID: "pay_002",
		Signature:        gateway.Sign(testSecret, gatewayOrderID, "pay_002"),
	})
	s.ErrorIs(err, domain.ErrAlreadyPaid)

	_, err = handler.Handle(s.ctx, VerifyPaymentCommand{
		GatewayOrderID: gatewayOrderID, GatewayPaymentID: "pay_003", Signature: "forged",
	})
	s.ErrorIs(err, domain.ErrSignatureVerificationFailed)
	s.Equal(orderdomain.PaymentPaid, s.reload(order.ID).PaymentStatus, "a paid order is never downgraded")
}

func (s *PaymentFlowSuite) TestVerifyPayment_CancelledOrderStaysCancelled() {
	order := s.checkout(1)
	gatewayOrderID := *order.GatewayOrderID
	handler := s.verifyHandler(s.carts)

	_, err := handler.Handle(s.ctx, VerifyPaymentCommand{
		GatewayOrderID: gatewayOrderID, GatewayPaymentID: "pay_1", Signature: "forged",
	})
	s.Require().ErrorIs(err, domain.ErrSignatureVerificationFailed)

	_, err = handler.Handle(s.ctx, VerifyPaymentCommand{
		GatewayOrderID:   gatewayOrderID,
		GatewayPaymentID: "pay_2",
		Signature:        gateway.Sign(testSecret, gatewayOrderID, "pay_2"),
	})
	s.ErrorIs(err, domain.ErrPaymentClosed)
	var closed *domain.PaymentClosedError
	s.Require().ErrorAs(err, &closed)
	s.Equal(orderdomain.StatusCancelled, closed.Status)

	got := s.reload(order.ID)
	s.Equal(orderdomain.StatusCancelled, got.Status)
	s.Equal(orderdomain.PaymentFailed, got.PaymentStatus)
	s.Nil(got.GatewayPaymentID)
	s.Nil(got.PaidAt)
	s.Equal(3, s.cartSize(1))
	s.Empty(s.publisher.OfType(kafka.EventTypeOrderPaymentConfirmed))
}

// refund settles the order's refund directly through the repository
func (s *PaymentFlowSuite) refund(id uint) {
	s.Require().NoError(s.tx.WithinTransaction(s.ctx, func(ctx context.Context) error {
		order, err := s.orders.FindByID(ctx, id)
		if err != nil {
			return err
		}
		if err := order.Refund(nil); err != nil {
			return err
		}
		return s.orders.Update(ctx, order)
	}))
}

func (s *PaymentFlowSuite) TestVerifyPayment_RefundedOrderIsNotRepaid() {
	order := s.checkout(1)
	gatewayOrderID := *order.GatewayOrderID
	cmd := VerifyPaymentCommand{
		GatewayOrderID:   gatewayOrderID,
		GatewayPaymentID: "pay_001",
		Signature:        gateway.Sign(testSecret, gatewayOrderID, "pay_001"),
	}
	handler := s.verifyHandler(s.carts)

	_, err := handler.Handle(s.ctx, cmd)
	s.Require().NoError(err)
	s.refund(order.ID)
	s.Require().NoError(s.carts.AddItem(s.ctx, &cartdomain.CartItem{
		CustomerID: 1, ProductID: 1001, Quantity: 1, Price: decimal.RequireFromString("10.25"),
	}))

	_, err = handler.Handle(s.ctx, cmd)
	s.ErrorIs(err, domain.ErrPaymentClosed)

	got := s.reload(order.ID)
	s.Equal(orderdomain.PaymentRefunded, got.PaymentStatus)
	s.Equal(orderdomain.StatusConfirmed, got.Status)
	s.Equal(1, s.cartSize(1))
	s.Len(s.publisher.OfType(kafka.EventTypeOrderPaymentConfirmed), 1)

	_, err = handler.Handle(s.ctx, VerifyPaymentCommand{
		GatewayOrderID: gatewayOrderID, GatewayPaymentID: "pay_002", Signature: "forged",
	})
	s.ErrorIs(err, domain.ErrSignatureVerificationFailed)
	got = s.reload(order.ID)
	s.Equal(orderdomain.PaymentRefunded, got.PaymentStatus)
	s.Equal(orderdomain.StatusConfirmed, got.Status)
	s.Empty(s.publisher.OfType(kafka.EventTypeOrderPaymentFailed))

	result, err := NewPaymentFailedHandler(s.tx, s.orders, s.publisher).Handle(s.ctx, PaymentFailedCommand{GatewayOrderID: gatewayOrderID})
	s.Require().NoError(err)
	s.True(result.Ignored)
	s.Equal(orderdomain.PaymentRefunded, s.reload(order.ID).PaymentStatus)
}

func (s *PaymentFlowSuite) TestPaymentFailed() {
	order := s.checkout(1)
	handler := NewPaymentFailedHandler(s.tx, s.orders, s.publisher)

	result, err := handler.Handle(s.ctx, PaymentFailedCommand{
		GatewayOrderID:   *order.GatewayOrderID,
		ErrorDescription: "card declined",
	})
	s.Require().NoError(err)
	s.True(result.Found)
	s.False(result.Ignored)

	got := s.reload(order.ID)
	s.Equal(orderdomain.PaymentFailed, got.PaymentStatus)
	s.Equal(orderdomain.StatusCancelled, got.Status)
	s.Require().NotNil(got.PaymentError)
	s.Equal("card declined", *got.PaymentError)
}

func (s *PaymentFlowSuite) TestPaymentFailed_UnknownOrderIsSoft() {
	handler := NewPaymentFailedHandler(s.tx, s.orders, s.publisher)

	result, err := handler.Handle(s.ctx, PaymentFailedCommand{GatewayOrderID: "order_never_stored"})

	s.Require().NoError(err)
	s.False(result.Found)
	s.Nil(result.Order)
	s.Empty(s.publisher.Events())
}

func (s *PaymentFlowSuite) TestPaymentFailed_PaidOrderIsNotDowngraded() {
	order := s.checkout(1)
	gatewayOrderID := *order.GatewayOrderID
	_, err := s.verifyHandler(s.carts).Handle(s.ctx, VerifyPaymentCommand{
		GatewayOrderID:   gatewayOrderID,
		GatewayPaymentID: "pay_001",
		Signature:        gateway.Sign(testSecret, gatewayOrderID, "pay_001"),
	})
	s.Require().NoError(err)

	result, err := NewPaymentFailedHandler(s.tx, s.orders, s.publisher).Handle(s.ctx, PaymentFailedCommand{GatewayOrderID: gatewayOrderID})
	s.Require().NoError(err)
	s.True(result.Ignored)

	got := s.reload(order.ID)
	s.Equal(orderdomain.PaymentPaid, got.PaymentStatus)
	s.Equal(orderdomain.StatusConfirmed, got.Status)
}
