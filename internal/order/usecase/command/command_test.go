package command

import (
	"context"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/suite"
	"gorm.io/gorm"

	"github.com/tair/commerce-core/internal/order/domain"
	"github.com/tair/commerce-core/internal/order/repository"
	productdomain "github.com/tair/commerce-core/internal/product/domain"
	productrepo "github.com/tair/commerce-core/internal/product/repository"
	"github.com/tair/commerce-core/kafka"
	"github.com/tair/commerce-core/kafka/kafkatest"
	"github.com/tair/commerce-core/pkg/database"
	"github.com/tair/commerce-core/pkg/database/databasetest"
)

type OrderCommandSuite struct {
	suite.Suite

	ctx       context.Context
	db        *gorm.DB
	tx        database.Transactor
	repo      domain.OrderRepository
	products  *productrepo.GormProductRepository
	publisher *kafkatest.Recorder
}

func TestOrderCommandSuite(t *testing.T) {
	suite.Run(t, new(OrderCommandSuite))
}

func (s *OrderCommandSuite) SetupTest() {
	s.ctx = context.Background()
	s.db = databasetest.NewSQLite(s.T(), &domain.Order{}, &domain.OrderItem{}, &productdomain.Product{})
	s.tx = database.NewGormTransactor(s.db)
	s.repo = repository.NewGormOrderRepository(s.db)
	s.products = productrepo.NewGormProductRepository(s.db)
	s.publisher = &kafkatest.Recorder{}
}

func (s *OrderCommandSuite) seedOrder(status domain.Status, payment domain.PaymentStatus) *domain.Order {
	order := domain.NewOrder(1, nil, "card", nil, []domain.OrderItem{
		domain.NewOrderItem(1, 2, decimal.RequireFromString("50.00")),
	})
	order.Status = status
	order.PaymentStatus = payment
	s.Require().NoError(s.repo.Create(s.ctx, order))
	return order
}

func (s *OrderCommandSuite) reload(id uint) *domain.Order {
	order, err := s.repo.FindByID(s.ctx, id)
	s.Require().NoError(err)
	return order
}

func (s *OrderCommandSuite) TestTransitionStatus_AllowedPath() {
	order := s.seedOrder(domain.StatusPending, domain.PaymentPending)
	handler := NewTransitionStatusHandler(s.tx, s.repo, s.publisher)
	notes := "picked by warehouse"

	updated, err := handler.Handle(s.ctx, TransitionStatusCommand{
		OrderID: order.ID, Status: domain.StatusProcessing, Notes: &notes, ActorID: 9,
	})
	s.Require().NoError(err)
	s.Equal(domain.StatusProcessing, updated.Status)

	got := s.reload(order.ID)
	s.Equal(domain.StatusProcessing, got.Status)
	s.Require().NotNil(got.Notes)
	s.Equal(notes, *got.Notes)

	events := s.publisher.OfType(kafka.EventTypeOrderStatusChanged)
	s.Require().Len(events, 1)
	changed := events[0].(kafka.OrderStatusChangedEvent)
	s.Equal("pending", changed.From)
	s.Equal("processing", changed.To)
	s.Equal(uint(9), changed.ActorID)
}

func (s *OrderCommandSuite) TestTransitionStatus_NotesKeptWhenOmitted() {
	order := s.seedOrder(domain.StatusPending, domain.PaymentPending)
	notes := "leave at door"
	order.Notes = &notes
	s.Require().NoError(s.repo.Update(s.ctx, order))

	handler := NewTransitionStatusHandler(s.tx, s.repo, s.publisher)
	_, err := handler.Handle(s.ctx, TransitionStatusCommand{OrderID: order.ID, Status: domain.StatusCancelled})
	s.Require().NoError(err)

	got := s.reload(order.ID)
	s.Require().NotNil(got.Notes)
	s.Equal(notes, *got.Notes)
}

func (s *OrderCommandSuite) TestTransitionStatus_RejectedLeavesOrderUnchanged() {
	order := s.seedOrder(domain.StatusDelivered, domain.PaymentPaid)
	handler := NewTransitionStatusHandler(s.tx, s.repo, s.publisher)

	_, err := handler.Handle(s.ctx, TransitionStatusCommand{OrderID: order.ID, Status: domain.StatusPending})

	s.ErrorIs(err, domain.ErrInvalidTransition)
	s.Contains(err.Error(), "delivered")
	s.Contains(err.Error(), "pending")
	s.Equal(domain.StatusDelivered, s.reload(order.ID).Status)
	s.Empty(s.publisher.Events())
}

func (s *OrderCommandSuite) TestTransitionStatus_CancelledIsTerminal() {
	order := s.seedOrder(domain.StatusCancelled, domain.PaymentFailed)
	handler := NewTransitionStatusHandler(s.tx, s.repo, s.publisher)

	for _, target := range domain.Statuses() {
		_, err := handler.Handle(s.ctx, TransitionStatusCommand{OrderID: order.ID, Status: target})
		s.ErrorIs(err, domain.ErrInvalidTransition, "target %s", target)
	}
	s.Equal(domain.StatusCancelled, s.reload(order.ID).Status)
}

func (s *OrderCommandSuite) TestTransitionStatus_UnknownStatusAndOrder() {
	handler := NewTransitionStatusHandler(s.tx, s.repo, s.publisher)

	_, err := handler.Handle(s.ctx, TransitionStatusCommand{OrderID: 1, Status: "archived"})
	s.ErrorIs(err, domain.ErrValidation)

	_, err = handler.Handle(s.ctx, TransitionStatusCommand{OrderID: 404, Status: domain.StatusProcessing})
	s.ErrorIs(err, domain.ErrOrderNotFound)
}

func (s *OrderCommandSuite) TestUpdatePaymentStatus_AnyValue() {
	order := s.seedOrder(domain.StatusProcessing, domain.PaymentPending)
	handler := NewUpdatePaymentStatusHandler(s.tx, s.repo)

	for _, status := range []domain.PaymentStatus{domain.PaymentCompleted, domain.PaymentFailed, domain.PaymentPending} {
		_, err := handler.Handle(s.ctx, UpdatePaymentStatusCommand{OrderID: order.ID, PaymentStatus: status})
		s.Require().NoError(err)
		s.Equal(status, s.reload(order.ID).PaymentStatus)
	}

	_, err := handler.Handle(s.ctx, UpdatePaymentStatusCommand{OrderID: order.ID, PaymentStatus: "settled"})
	s.ErrorIs(err, domain.ErrValidation)
}

func (s *OrderCommandSuite) TestRefund_PendingPaymentIsNotRefundable() {
	order := s.seedOrder(domain.StatusProcessing, domain.PaymentPending)
	handler := NewRefundOrderHandler(s.tx, s.repo, s.publisher)

	_, err := handler.Handle(s.ctx, RefundOrderCommand{OrderID: order.ID})

	s.ErrorIs(err, domain.ErrNotRefundable)
	s.EqualError(err, "Cannot refund order with payment status: pending")
	s.Equal(domain.PaymentPending, s.reload(order.ID).PaymentStatus)
	s.Empty(s.publisher.Events())
}

func (s *OrderCommandSuite) TestRefund_CompletedPayment() {
	order := s.seedOrder(domain.StatusDelivered, domain.PaymentCompleted)
	handler := NewRefundOrderHandler(s.tx, s.repo, s.publisher)

	_, err := handler.Handle(s.ctx, RefundOrderCommand{OrderID: order.ID, ActorID: 3})
	s.Require().NoError(err)

	got := s.reload(order.ID)
	s.Equal(domain.PaymentRefunded, got.PaymentStatus)
	s.Equal(domain.StatusDelivered, got.Status)
	s.True(got.RefundAmount.Valid)
	s.True(decimal.RequireFromString("100").Equal(got.RefundAmount.Decimal))

	events := s.publisher.OfType(kafka.EventTypeOrderRefunded)
	s.Require().Len(events, 1)
	s.Equal("100.00", events[0].(kafka.OrderRefundedEvent).Amount)
}

func (s *OrderCommandSuite) TestRefund_PartialAmount() {
	order := s.seedOrder(domain.StatusShipped, domain.PaymentPaid)
	handler := NewRefundOrderHandler(s.tx, s.repo, s.publisher)
	amount := decimal.RequireFromString("30.00")

	_, err := handler.Handle(s.ctx, RefundOrderCommand{OrderID: order.ID, Amount: &amount})
	s.Require().NoError(err)

	got := s.reload(order.ID)
	s.True(amount.Equal(got.RefundAmount.Decimal))
	s.True(decimal.RequireFromString("100").Equal(got.TotalAmount), "total is not reduced by a refund")
}

func (s *OrderCommandSuite) TestCreateOrder_SnapshotsCurrentPrices() {
	mug := &productdomain.Product{Name: "Mug", SKU: "MUG", Price: decimal.RequireFromString("12.50")}
	pen := &productdomain.Product{Name: "Pen", SKU: "PEN", Price: decimal.RequireFromString("1.25")}
	s.Require().NoError(s.products.Create(s.ctx, mug))
	s.Require().NoError(s.products.Create(s.ctx, pen))

	handler := NewCreateOrderHandler(s.tx, s.repo, s.products, s.publisher)
	order, err := handler.Handle(s.ctx, CreateOrderCommand{
		CustomerID: 5,
		Items: []CreateOrderItem{
			{ProductID: mug.ID, Quantity: 2},
			{ProductID: pen.ID, Quantity: 4},
		},
		PaymentMethod: "cod",
	})
	s.Require().NoError(err)
	s.Regexp(`^ORD-[0-9A-F]{8}$`, order.OrderNumber)

	s.Require().NoError(s.db.Model(mug).Update("price", decimal.NewFromInt(99)).Error)

	got := s.reload(order.ID)
	s.True(decimal.RequireFromString("30.00").Equal(got.TotalAmount))
	s.Require().Len(got.Items, 2)
	for _, item := range got.Items {
		if item.ProductID == mug.ID {
			s.True(decimal.RequireFromString("12.50").Equal(item.Price))
		}
	}
	s.Equal(domain.StatusPending, got.Status)
	s.Len(s.publisher.OfType(kafka.EventTypeOrderCreated), 1)
}

func (s *OrderCommandSuite) TestCreateOrder_Validation() {
	handler := NewCreateOrderHandler(s.tx, s.repo, s.products, s.publisher)

	_, err := handler.Handle(s.ctx, CreateOrderCommand{CustomerID: 1})
	s.ErrorIs(err, domain.ErrValidation)

	_, err = handler.Handle(s.ctx, CreateOrderCommand{CustomerID: 1, Items: []CreateOrderItem{{ProductID: 1, Quantity: 0}}})
	s.ErrorIs(err, domain.ErrValidation)

	_, err = handler.Handle(s.ctx, CreateOrderCommand{CustomerID: 1, Items: []CreateOrderItem{{ProductID: 77, Quantity: 1}}})
	s.ErrorIs(err, domain.ErrValidation)

	_, total, err := s.repo.FindAll(s.ctx, domain.OrderFilter{})
	s.Require().NoError(err)
	s.Zero(total)
}

func (s *OrderCommandSuite) TestDeleteOrder() {
	order := s.seedOrder(domain.StatusPending, domain.PaymentPending)
	handler := NewDeleteOrderHandler(s.tx, s.repo, s.publisher)

	s.Require().NoError(handler.Handle(s.ctx, DeleteOrderCommand{OrderID: order.ID, ActorID: 1}))

	_, err := s.repo.FindByID(s.ctx, order.ID)
	s.ErrorIs(err, domain.ErrOrderNotFound)

	var items int64
	s.Require().NoError(s.db.Model(&domain.OrderItem{}).Where("order_id = ?", order.ID).Count(&items).Error)
	s.Zero(items)
	s.Len(s.publisher.OfType(kafka.EventTypeOrderDeleted), 1)

	s.ErrorIs(handler.Handle(s.ctx, DeleteOrderCommand{OrderID: order.ID}), domain.ErrOrderNotFound)
}
