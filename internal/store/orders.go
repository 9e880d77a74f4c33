package store

import (
	"fmt"
	"sync"

	"product-order-service/internal/models"
	"product-order-service/internal/util"

	"go.uber.org/zap"
)

// OrderBook is the in-memory order store. It does not enforce the status
// state machine; Save overwrites whatever is stored under the order ID.
type OrderBook struct {
	mu     sync.RWMutex
	orders map[string]models.Order
	order  []string
	logger *zap.Logger
}

// NewOrderBook creates an empty order book
func NewOrderBook() *OrderBook {
	return &OrderBook{
		orders: make(map[string]models.Order),
		logger: util.GetLogger(),
	}
}

// ListAll returns every order in insertion order
func (b *OrderBook) ListAll() []models.Order {
	return b.Find("")
}

// Find returns orders with the given status, or all orders when status is empty
func (b *OrderBook) Find(status models.OrderStatus) []models.Order {
	b.mu.RLock()
	defer b.mu.RUnlock()

	orders := make([]models.Order, 0, len(b.order))
	for _, id := range b.order {
		o := b.orders[id]
		if status == "" || o.Status == status {
			orders = append(orders, o)
		}
	}
	return orders
}

// FindByID retrieves an order by ID
func (b *OrderBook) FindByID(id string) (models.Order, bool) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	o, ok := b.orders[id]
	return o, ok
}

// FindByProduct returns orders referencing productID in insertion order,
// optionally restricted to one status (empty status matches all).
func (b *OrderBook) FindByProduct(productID string, status models.OrderStatus) []models.Order {
	b.mu.RLock()
	defer b.mu.RUnlock()

	var orders []models.Order
	for _, id := range b.order {
		o := b.orders[id]
		if o.ProductID != productID {
			continue
		}
		if status != "" && o.Status != status {
			continue
		}
		orders = append(orders, o)
	}
	return orders
}

// Save upserts an order by ID
func (b *OrderBook) Save(order models.Order) (models.Order, error) {
	if order.ID == "" {
		return models.Order{}, fmt.Errorf("%w: order id is empty", models.ErrInvalidInput)
	}

	b.mu.Lock()
	_, exists := b.orders[order.ID]
	if !exists {
		b.order = append(b.order, order.ID)
	}
	b.orders[order.ID] = order
	b.mu.Unlock()

	if exists {
		b.logger.Info("Updated order", zap.String("order_id", order.ID), zap.String("status", string(order.Status)))
	} else {
		b.logger.Info("Created order", zap.String("order_id", order.ID), zap.String("status", string(order.Status)))
	}
	return order, nil
}

// Update re-reads the order under the write lock and stores whatever mutate
// returns. When mutate reports false nothing is written and the current order
// is returned. mutate must not call back into the book.
func (b *OrderBook) Update(id string, mutate func(models.Order) (models.Order, bool)) (models.Order, bool, error) {
	b.mu.Lock()
	current, ok := b.orders[id]
	if !ok {
		b.mu.Unlock()
		return models.Order{}, false, fmt.Errorf("%w: order %s", models.ErrNotFound, id)
	}

	updated, apply := mutate(current)
	if !apply {
		b.mu.Unlock()
		return current, false, nil
	}
	if updated.ID != id {
		b.mu.Unlock()
		return current, false, fmt.Errorf("%w: order id %s cannot change to %s", models.ErrInvalidInput, id, updated.ID)
	}
	b.orders[id] = updated
	b.mu.Unlock()

	b.logger.Info("Updated order", zap.String("order_id", id), zap.String("status", string(updated.Status)))
	return updated, true, nil
}

// Delete removes an order and reports whether it existed
func (b *OrderBook) Delete(id string) bool {
	b.mu.Lock()
	_, ok := b.orders[id]
	if ok {
		delete(b.orders, id)
		b.order = removeID(b.order, id)
	}
	b.mu.Unlock()

	if ok {
		b.logger.Info("Deleted order", zap.String("order_id", id))
	}
	return ok
}

// Count returns the number of stored orders
func (b *OrderBook) Count() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.orders)
}

// CountByStatus returns the number of orders in the given status
func (b *OrderBook) CountByStatus(status models.OrderStatus) int {
	b.mu.RLock()
	defer b.mu.RUnlock()

	n := 0
	for _, o := range b.orders {
		if o.Status == status {
			n++
		}
	}
	return n
}
