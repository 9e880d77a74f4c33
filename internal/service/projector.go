package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"product-order-service/internal/models"
	"product-order-service/internal/util"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// ProductProjection is the consumer-side product cache written by the projector
type ProductProjection interface {
	Get(id string) (models.Product, bool)
	Upsert(id string, product models.Product)
	Remove(id string) (models.Product, bool)
	ListAll() []models.Product
	Size() int
}

// OrderRepository is the order store as seen by the projector
type OrderRepository interface {
	FindByProduct(productID string, status models.OrderStatus) []models.Order
	Update(id string, mutate func(models.Order) (models.Order, bool)) (models.Order, bool, error)
	Count() int
	CountByStatus(status models.OrderStatus) int
}

// CascadeResult summarises the order writes triggered by one product event.
// Skipped counts matched orders that were no longer pending, or were gone,
// by the time they were written.
type CascadeResult struct {
	Matched int
	Applied int
	Skipped int
	Failed  int
}

// EventProjector keeps the product projection in sync with received events
// and cascades product changes onto pending orders.
//
// Events are applied in delivery order. Neither timestamps nor event IDs are
// used to reject stale events, so an update delivered after a delete
// re-creates the product in the projection.
type EventProjector struct {
	products ProductProjection
	orders   OrderRepository
	logger   *zap.Logger
	now      func() time.Time
}

// NewEventProjector creates a new event projector
func NewEventProjector(products ProductProjection, orders OrderRepository) *EventProjector {
	return &EventProjector{
		products: products,
		orders:   orders,
		logger:   util.GetLogger(),
		now:      time.Now,
	}
}

// WithClock overrides the clock used for order timestamps
func (p *EventProjector) WithClock(now func() time.Time) *EventProjector {
	p.now = now
	return p
}

// Project applies a single product event. Cascade failures are logged and
// counted; they never fail the event.
func (p *EventProjector) Project(ctx context.Context, event *models.ProductEvent) error {
	_, span := util.StartSpan(ctx, "EventProjector.Project")
	defer span.End()

	if event == nil {
		return util.SpanError(span, fmt.Errorf("%w: nil event", models.ErrInvalidInput))
	}

	start := time.Now()
	defer func() {
		util.EventProjectionLatency.Observe(time.Since(start).Seconds())
		util.ProjectedProducts.Set(float64(p.products.Size()))
	}()

	util.ProductEventsReceivedTotal.WithLabelValues(event.EventType).Inc()

	switch event.EventType {
	case models.EventTypeProductCreated:
		p.HandleProductCreated(event)
	case models.EventTypeProductUpdated:
		p.HandleProductUpdated(event)
	case models.EventTypeProductDeleted:
		p.HandleProductDeleted(event)
	default:
		p.logger.Warn("Unknown event type",
			zap.String("event_type", event.EventType),
			zap.String("event_id", event.EventID))
	}
	return nil
}

// HandleProductCreated caches the new product
func (p *EventProjector) HandleProductCreated(event *models.ProductEvent) {
	if event.Product == nil {
		p.logger.Warn("Created event without product snapshot", zap.String("product_id", event.ProductID))
		return
	}

	p.products.Upsert(event.ProductID, *event.Product)
	p.logger.Info("Product created",
		zap.String("product_id", event.ProductID),
		zap.String("name", event.Product.Name))
}

// HandleProductUpdated refreshes the cached product and reprices its pending orders
func (p *EventProjector) HandleProductUpdated(event *models.ProductEvent) CascadeResult {
	if event.Product == nil {
		p.logger.Warn("Updated event without product snapshot", zap.String("product_id", event.ProductID))
		return CascadeResult{}
	}

	product := *event.Product
	p.products.Upsert(event.ProductID, product)
	p.logger.Info("Product updated",
		zap.String("product_id", event.ProductID),
		zap.String("price", product.Price.String()))

	result := p.cascade(event, func(order models.Order) models.Order {
		order.TotalPrice = product.Price.Mul(decimal.NewFromInt(int64(order.Quantity)))
		return order
	})
	util.OrdersRepricedTotal.Add(float64(result.Applied))

	p.logger.Info("Repriced pending orders",
		zap.String("product_id", event.ProductID),
		zap.Int("matched", result.Matched),
		zap.Int("applied", result.Applied),
		zap.Int("skipped", result.Skipped),
		zap.Int("failed", result.Failed))
	return result
}

// HandleProductDeleted drops the cached product and cancels its pending orders
func (p *EventProjector) HandleProductDeleted(event *models.ProductEvent) CascadeResult {
	if product, ok := p.products.Remove(event.ProductID); ok {
		p.logger.Info("Product deleted",
			zap.String("product_id", event.ProductID),
			zap.String("name", product.Name))
	}

	result := p.cascade(event, func(order models.Order) models.Order {
		order.Status = models.OrderStatusCancelled
		return order
	})
	util.OrdersCancelledTotal.Add(float64(result.Applied))

	p.logger.Info("Cancelled pending orders",
		zap.String("product_id", event.ProductID),
		zap.Int("matched", result.Matched),
		zap.Int("applied", result.Applied),
		zap.Int("skipped", result.Skipped),
		zap.Int("failed", result.Failed))
	return result
}

// cascade applies mutate to each order that was pending in the snapshot. The
// status is checked again under the order book lock, so an order moved out of
// PENDING after the snapshot is left alone. A failed write does not stop the rest.
func (p *EventProjector) cascade(event *models.ProductEvent, mutate func(models.Order) models.Order) CascadeResult {
	pending := p.orders.FindByProduct(event.ProductID, models.OrderStatusPending)
	result := CascadeResult{Matched: len(pending)}

	for _, snapshot := range pending {
		updated, applied, err := p.orders.Update(snapshot.ID, func(current models.Order) (models.Order, bool) {
			if current.Status != models.OrderStatusPending {
				return current, false
			}
			next := mutate(current)
			next.UpdatedAt = p.now()
			return next, true
		})

		switch {
		case errors.Is(err, models.ErrNotFound):
			result.Skipped++
			p.logger.Info("Order removed before cascade", zap.String("order_id", snapshot.ID))
			continue
		case err != nil:
			result.Failed++
			util.CascadeFailuresTotal.WithLabelValues(event.EventType).Inc()
			p.logger.Error("Cascade write failed",
				zap.String("event_id", event.EventID),
				zap.String("order_id", snapshot.ID),
				zap.Error(err))
			continue
		case !applied:
			result.Skipped++
			p.logger.Info("Order left pending state before cascade",
				zap.String("order_id", snapshot.ID),
				zap.String("status", string(updated.Status)))
			continue
		}

		result.Applied++
		p.logger.Info("Cascaded order",
			zap.String("order_id", updated.ID),
			zap.String("status", string(updated.Status)),
			zap.String("total_price", updated.TotalPrice.String()))
	}
	return result
}

// Stats reports the projection size and order counts per status
func (p *EventProjector) Stats() models.ProjectionStats {
	return models.ProjectionStats{
		CacheStats: models.CacheStats{
			TotalProducts: p.products.Size(),
			TotalOrders:   p.orders.Count(),
			Products:      p.products.ListAll(),
		},
		PendingOrders:   p.orders.CountByStatus(models.OrderStatusPending),
		CompletedOrders: p.orders.CountByStatus(models.OrderStatusCompleted),
		CancelledOrders: p.orders.CountByStatus(models.OrderStatusCancelled),
	}
}
