package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"sourcing_marketplace/internal/models"
)

type OrderRepository interface {
	CreateOrder(ctx context.Context, order *models.Order) error
	GetOrder(ctx context.Context, id string) (*models.Order, error)
	GetAllOrders(ctx context.Context) ([]*models.Order, error)
	SetOrderStatus(ctx context.Context, id string, status models.OrderStatus) error
	CreateOffer(ctx context.Context, offer *models.Offer) error
	ListOffersByOrder(ctx context.Context, orderID string) ([]*models.Offer, error)
}

type orderRepository struct {
	db     *pgxpool.Pool
	logger *zap.Logger
}

func NewOrderRepository(db *pgxpool.Pool, logger *zap.Logger) OrderRepository {
	return &orderRepository{db: db, logger: logger}
}

const orderColumns = `id, title, description, buyer_id, category_id, budget_min, budget_max, region, deadline, status, created_at`

func scanOrder(row pgx.Row) (*models.Order, error) {
	var o models.Order
	var budgetMin, budgetMax decimal.NullDecimal
	err := row.Scan(&o.ID, &o.Title, &o.Description, &o.BuyerID, &o.CategoryID, &budgetMin, &budgetMax,
		&o.Region, &o.Deadline, &o.Status, &o.CreatedAt)
	if err != nil {
		return nil, err
	}
	if budgetMin.Valid {
		o.BudgetMin = &budgetMin.Decimal
	}
	if budgetMax.Valid {
		o.BudgetMax = &budgetMax.Decimal
	}
	return &o, nil
}

func (r *orderRepository) CreateOrder(ctx context.Context, order *models.Order) error {
	if order.ID == "" {
		order.ID = uuid.New().String()
	}
	order.Status = models.OrderStatusActive

	var budgetMin, budgetMax decimal.NullDecimal
	if order.BudgetMin != nil {
		budgetMin = decimal.NewNullDecimal(*order.BudgetMin)
	}
	if order.BudgetMax != nil {
		budgetMax = decimal.NewNullDecimal(*order.BudgetMax)
	}

	query := `
		INSERT INTO orders (id, title, description, buyer_id, category_id, budget_min, budget_max, region, deadline, status)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		RETURNING created_at
	`
	err := r.db.QueryRow(ctx, query, order.ID, order.Title, order.Description, order.BuyerID,
		order.CategoryID, budgetMin, budgetMax, order.Region, order.Deadline, order.Status).Scan(&order.CreatedAt)
	if err != nil {
		r.logger.Error("failed to create order", zap.Error(err))
		return fmt.Errorf("failed to create order: %w", err)
	}
	return nil
}

func (r *orderRepository) GetOrder(ctx context.Context, id string) (*models.Order, error) {
	query := `SELECT ` + orderColumns + ` FROM orders WHERE id = $1`

	o, err := scanOrder(r.db.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		r.logger.Error("failed to get order", zap.Error(err), zap.String("id", id))
		return nil, fmt.Errorf("failed to get order: %w", err)
	}
	return o, nil
}

func (r *orderRepository) GetAllOrders(ctx context.Context) ([]*models.Order, error) {
	query := `SELECT ` + orderColumns + ` FROM orders ORDER BY created_at DESC`

	rows, err := r.db.Query(ctx, query)
	if err != nil {
		r.logger.Error("failed to list orders", zap.Error(err))
		return nil, fmt.Errorf("failed to list orders: %w", err)
	}
	defer rows.Close()

	var orders []*models.Order
	for rows.Next() {
		o, err := scanOrder(rows)
		if err != nil {
			r.logger.Error("failed to scan order", zap.Error(err))
			continue
		}
		orders = append(orders, o)
	}
	return orders, rows.Err()
}

func (r *orderRepository) SetOrderStatus(ctx context.Context, id string, status models.OrderStatus) error {
	tag, err := r.db.Exec(ctx, `UPDATE orders SET status = $2 WHERE id = $1`, id, status)
	if err != nil {
		return fmt.Errorf("failed to set order status: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("order not found: %s", id)
	}
	return nil
}

func (r *orderRepository) CreateOffer(ctx context.Context, offer *models.Offer) error {
	if offer.ID == "" {
		offer.ID = uuid.New().String()
	}

	query := `
		INSERT INTO offers (id, order_id, supplier_id, price, delivery_days, comment)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING created_at
	`
	err := r.db.QueryRow(ctx, query, offer.ID, offer.OrderID, offer.SupplierID,
		offer.Price, offer.DeliveryDays, offer.Comment).Scan(&offer.CreatedAt)
	if err != nil {
		r.logger.Error("failed to create offer", zap.Error(err), zap.String("order_id", offer.OrderID))
		return fmt.Errorf("failed to create offer: %w", err)
	}
	return nil
}

func (r *orderRepository) ListOffersByOrder(ctx context.Context, orderID string) ([]*models.Offer, error) {
	query := `SELECT id, order_id, supplier_id, price, delivery_days, comment, created_at
		FROM offers WHERE order_id = $1 ORDER BY created_at`

	rows, err := r.db.Query(ctx, query, orderID)
	if err != nil {
		r.logger.Error("failed to list offers", zap.Error(err), zap.String("order_id", orderID))
		return nil, fmt.Errorf("failed to list offers: %w", err)
	}
	defer rows.Close()

	var offers []*models.Offer
	for rows.Next() {
		var o models.Offer
		if err := rows.Scan(&o.ID, &o.OrderID, &o.SupplierID, &o.Price, &o.DeliveryDays, &o.Comment, &o.CreatedAt); err != nil {
			r.logger.Error("failed to scan offer", zap.Error(err))
			continue
		}
		offers = append(offers, &o)
	}
	return offers, rows.Err()
}
