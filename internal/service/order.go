package service

import (
	"context"
	"fmt"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"sourcing_marketplace/internal/models"
	"sourcing_marketplace/internal/repository"
)

type OrderService interface {
	CreateOrder(ctx context.Context, order *models.Order) error
	GetOrder(ctx context.Context, id string) (*models.Order, error)
	GetAllOrders(ctx context.Context) ([]*models.Order, error)
	SetOrderStatus(ctx context.Context, id string, status models.OrderStatus) error
	SubmitOffer(ctx context.Context, offer *models.Offer) error
	GetOffers(ctx context.Context, orderID string) ([]*models.Offer, error)
}

type orderService struct {
	orders     repository.OrderRepository
	categories repository.CategoryRepository
	logger     *zap.Logger
}

func NewOrderService(orders repository.OrderRepository, categories repository.CategoryRepository, logger *zap.Logger) OrderService {
	return &orderService{orders: orders, categories: categories, logger: logger}
}

func (s *orderService) CreateOrder(ctx context.Context, order *models.Order) error {
	if order.Title == "" {
		return fmt.Errorf("%w: order title cannot be empty", ErrInvalidInput)
	}
	if order.BuyerID == "" {
		return fmt.Errorf("%w: order buyer cannot be empty", ErrInvalidInput)
	}
	if order.Deadline.IsZero() {
		return fmt.Errorf("%w: order deadline cannot be empty", ErrInvalidInput)
	}
	if order.BudgetMin != nil && order.BudgetMax != nil && order.BudgetMin.GreaterThan(*order.BudgetMax) {
		return fmt.Errorf("%w: budget_min cannot exceed budget_max", ErrInvalidInput)
	}
	if order.CategoryID != nil {
		category, err := s.categories.GetByID(ctx, *order.CategoryID)
		if err != nil {
			return err
		}
		if category == nil {
			return fmt.Errorf("%w: unknown category %s", ErrInvalidInput, *order.CategoryID)
		}
	}
	return s.orders.CreateOrder(ctx, order)
}

func (s *orderService) GetOrder(ctx context.Context, id string) (*models.Order, error) {
	if id == "" {
		return nil, fmt.Errorf("%w: order id cannot be empty", ErrInvalidInput)
	}
	order, err := s.orders.GetOrder(ctx, id)
	if err != nil {
		return nil, err
	}
	if order == nil {
		return nil, fmt.Errorf("order %s: %w", id, ErrNotFound)
	}
	return order, nil
}

func (s *orderService) GetAllOrders(ctx context.Context) ([]*models.Order, error) {
	return s.orders.GetAllOrders(ctx)
}

func (s *orderService) SetOrderStatus(ctx context.Context, id string, status models.OrderStatus) error {
	switch status {
	case models.OrderStatusActive, models.OrderStatusCompleted, models.OrderStatusCancelled:
	default:
		return fmt.Errorf("%w: invalid order status %q", ErrInvalidInput, status)
	}
	return s.orders.SetOrderStatus(ctx, id, status)
}

func (s *orderService) SubmitOffer(ctx context.Context, offer *models.Offer) error {
	if offer.OrderID == "" || offer.SupplierID == "" {
		return fmt.Errorf("%w: offer must reference an order and a supplier", ErrInvalidInput)
	}
	if offer.Price.LessThanOrEqual(decimal.Zero) {
		return fmt.Errorf("%w: offer price must be positive", ErrInvalidInput)
	}
	if offer.DeliveryDays <= 0 {
		return fmt.Errorf("%w: offer delivery days must be positive", ErrInvalidInput)
	}

	order, err := s.GetOrder(ctx, offer.OrderID)
	if err != nil {
		return err
	}
	if order.Status != models.OrderStatusActive {
		return fmt.Errorf("%w: order %s is not accepting offers", ErrInvalidInput, order.ID)
	}

	// One offer per supplier per order is enforced by the unique constraint;
	// the violation surfaces here as a wrapped insert error.
	return s.orders.CreateOffer(ctx, offer)
}

func (s *orderService) GetOffers(ctx context.Context, orderID string) ([]*models.Offer, error) {
	if _, err := s.GetOrder(ctx, orderID); err != nil {
		return nil, err
	}
	return s.orders.ListOffersByOrder(ctx, orderID)
}
