package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"product-order-service/internal/models"
	"product-order-service/internal/store"
	"product-order-service/internal/util"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// ProductReader is the read-only view of the projection used by order operations
type ProductReader interface {
	Get(id string) (models.Product, bool)
	ListAll() []models.Product
	Size() int
}

// OrderService handles order business logic
type OrderService struct {
	products ProductReader
	orders   *store.OrderBook
	logger   *zap.Logger
}

// NewOrderService creates a new order service
func NewOrderService(products ProductReader, orders *store.OrderBook) *OrderService {
	return &OrderService{
		products: products,
		orders:   orders,
		logger:   util.GetLogger(),
	}
}

// CreateOrderRequest represents a request to create an order
type CreateOrderRequest struct {
	ProductID    string `json:"productId" validate:"required"`
	Quantity     int    `json:"quantity" validate:"required,min=1"`
	CustomerName string `json:"customerName,omitempty" validate:"max=200"`
}

// UpdateOrderRequest is a merge patch; nil fields are left unchanged
type UpdateOrderRequest struct {
	Status   *models.OrderStatus `json:"status,omitempty"`
	Quantity *int                `json:"quantity,omitempty" validate:"omitempty,min=1"`
}

// FindAll returns every order
func (s *OrderService) FindAll(ctx context.Context) []models.Order {
	_, span := util.StartSpan(ctx, "OrderService.FindAll")
	defer span.End()

	orders := s.orders.ListAll()
	s.logger.Info("Fetching all orders", zap.Int("count", len(orders)))
	return orders
}

// FindOne retrieves an order by ID
func (s *OrderService) FindOne(ctx context.Context, id string) (models.Order, error) {
	_, span := util.StartSpan(ctx, "OrderService.FindOne")
	defer span.End()

	order, ok := s.orders.FindByID(id)
	if !ok {
		s.logger.Warn("Order not found", zap.String("order_id", id))
		return models.Order{}, util.SpanError(span, fmt.Errorf("%w: order %s", models.ErrNotFound, id))
	}
	return order, nil
}

// Create creates a pending order priced from the projected product
func (s *OrderService) Create(ctx context.Context, req CreateOrderRequest) (models.Order, error) {
	_, span := util.StartSpan(ctx, "OrderService.Create")
	defer span.End()

	if req.Quantity < 1 {
		util.OrdersFailedTotal.WithLabelValues("invalid_quantity").Inc()
		return models.Order{}, util.SpanError(span, fmt.Errorf("%w: quantity must be at least 1", models.ErrInvalidInput))
	}

	product, ok := s.products.Get(req.ProductID)
	if !ok {
		util.OrdersFailedTotal.WithLabelValues("unknown_product").Inc()
		s.logger.Error("Product not found in projection", zap.String("product_id", req.ProductID))
		return models.Order{}, util.SpanError(span, fmt.Errorf("%w: product %s not found, please ensure the product exists",
			models.ErrInvalidInput, req.ProductID))
	}

	now := time.Now()
	order := models.Order{
		ID:           uuid.New().String(),
		ProductID:    req.ProductID,
		Quantity:     req.Quantity,
		TotalPrice:   product.Price.Mul(decimal.NewFromInt(int64(req.Quantity))),
		Status:       models.OrderStatusPending,
		CustomerName: req.CustomerName,
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	if _, err := s.orders.Save(order); err != nil {
		return models.Order{}, util.SpanError(span, fmt.Errorf("failed to create order: %w", err))
	}

	util.OrdersCreatedTotal.Inc()
	s.logger.Info("Order created",
		zap.String("order_id", order.ID),
		zap.String("product_id", product.ID),
		zap.Int("quantity", order.Quantity),
		zap.String("total_price", order.TotalPrice.String()))

	return order, nil
}

// Update merges patch into the order. Any status may replace any other; a
// quantity change keeps the current totalPrice until the next product update.
// The merge runs against the stored order under the order book lock, so it
// cannot interleave with a cascade on the same order.
func (s *OrderService) Update(ctx context.Context, id string, patch UpdateOrderRequest) (models.Order, error) {
	_, span := util.StartSpan(ctx, "OrderService.Update")
	defer span.End()

	order, _, err := s.orders.Update(id, func(order models.Order) (models.Order, bool) {
		if patch.Status != nil {
			order.Status = *patch.Status
		}
		if patch.Quantity != nil {
			order.Quantity = *patch.Quantity
		}
		order.UpdatedAt = time.Now()
		return order, true
	})
	if err != nil {
		if errors.Is(err, models.ErrNotFound) {
			s.logger.Warn("Order not found", zap.String("order_id", id))
			return models.Order{}, util.SpanError(span, err)
		}
		return models.Order{}, util.SpanError(span, fmt.Errorf("failed to update order: %w", err))
	}

	s.logger.Info("Order updated", zap.String("order_id", id), zap.String("status", string(order.Status)))
	return order, nil
}

// Remove deletes an order and returns it
func (s *OrderService) Remove(ctx context.Context, id string) (models.Order, error) {
	ctx, span := util.StartSpan(ctx, "OrderService.Remove")
	defer span.End()

	order, err := s.FindOne(ctx, id)
	if err != nil {
		return models.Order{}, util.SpanError(span, err)
	}

	if !s.orders.Delete(id) {
		return models.Order{}, util.SpanError(span, fmt.Errorf("%w: order %s", models.ErrNotFound, id))
	}

	s.logger.Info("Order deleted", zap.String("order_id", id))
	return order, nil
}

// CacheStats reports the projection and order book sizes
func (s *OrderService) CacheStats() models.CacheStats {
	return models.CacheStats{
		TotalProducts: s.products.Size(),
		TotalOrders:   s.orders.Count(),
		Products:      s.products.ListAll(),
	}
}
