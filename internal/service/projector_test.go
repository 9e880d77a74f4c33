package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"product-order-service/internal/models"
	"product-order-service/internal/store"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var fixedNow = time.Date(2025, 11, 21, 10, 30, 0, 0, time.UTC)

type fixture struct {
	projection *store.ProductStore
	orders     *store.OrderBook
	projector  *EventProjector
	service    *OrderService
}

func newFixture() *fixture {
	projection := store.NewProductStore()
	orders := store.NewOrderBook()
	return &fixture{
		projection: projection,
		orders:     orders,
		projector:  NewEventProjector(projection, orders).WithClock(func() time.Time { return fixedNow }),
		service:    NewOrderService(projection, orders),
	}
}

func productEvent(eventType, id, price string) *models.ProductEvent {
	event := &models.ProductEvent{
		BaseEvent: models.BaseEvent{
			EventID:   eventType + "-" + id + "-" + price,
			EventType: eventType,
			Timestamp: fixedNow,
		},
		ProductID: id,
	}
	if price != "" {
		event.Product = &models.Product{
			ID:    id,
			Name:  "Laptop",
			Price: decimal.RequireFromString(price),
			Stock: 10,
		}
	}
	return event
}

func assertPrice(t *testing.T, want string, got decimal.Decimal) {
	t.Helper()
	assert.True(t, decimal.RequireFromString(want).Equal(got), "want %s, got %s", want, got.String())
}

func (f *fixture) project(t *testing.T, event *models.ProductEvent) {
	t.Helper()
	require.NoError(t, f.projector.Project(context.Background(), event))
}

func (f *fixture) order(t *testing.T, productID string, qty int) models.Order {
	t.Helper()
	o, err := f.service.Create(context.Background(), CreateOrderRequest{ProductID: productID, Quantity: qty})
	require.NoError(t, err)
	return o
}

func (f *fixture) get(t *testing.T, id string) models.Order {
	t.Helper()
	o, ok := f.orders.FindByID(id)
	require.True(t, ok)
	return o
}

func TestProjectCreatedCachesProduct(t *testing.T) {
	f := newFixture()

	f.project(t, productEvent(models.EventTypeProductCreated, "p1", "100.00"))

	p, ok := f.projection.Get("p1")
	require.True(t, ok)
	assertPrice(t, "100.00", p.Price)
}

func TestProjectCreatedWithoutProductIsNoop(t *testing.T) {
	f := newFixture()

	f.project(t, productEvent(models.EventTypeProductCreated, "p1", ""))

	assert.Equal(t, 0, f.projection.Size())
}

func TestPriceCascadeRepricesOnlyPendingOrders(t *testing.T) {
	f := newFixture()
	f.project(t, productEvent(models.EventTypeProductCreated, "p1", "100.00"))

	o := f.order(t, "p1", 2)
	assertPrice(t, "200.00", o.TotalPrice)

	o2 := f.order(t, "p1", 1)
	completed := models.OrderStatusCompleted
	_, err := f.service.Update(context.Background(), o2.ID, UpdateOrderRequest{Status: &completed})
	require.NoError(t, err)

	result := f.projector.HandleProductUpdated(productEvent(models.EventTypeProductUpdated, "p1", "150.00"))

	assert.Equal(t, CascadeResult{Matched: 1, Applied: 1}, result)
	repriced := f.get(t, o.ID)
	assertPrice(t, "300.00", repriced.TotalPrice)
	assert.Equal(t, models.OrderStatusPending, repriced.Status)
	assert.Equal(t, fixedNow, repriced.UpdatedAt)

	untouched := f.get(t, o2.ID)
	assertPrice(t, "100.00", untouched.TotalPrice)
	assert.Equal(t, models.OrderStatusCompleted, untouched.Status)

	p, ok := f.projection.Get("p1")
	require.True(t, ok)
	assertPrice(t, "150.00", p.Price)
}

func TestUpdateWithoutPendingOrdersIsNormal(t *testing.T) {
	f := newFixture()
	f.project(t, productEvent(models.EventTypeProductCreated, "p1", "100.00"))

	result := f.projector.HandleProductUpdated(productEvent(models.EventTypeProductUpdated, "p1", "120.00"))

	assert.Equal(t, CascadeResult{}, result)
}

func TestUpdatedWithoutProductIsNoop(t *testing.T) {
	f := newFixture()
	f.project(t, productEvent(models.EventTypeProductCreated, "p1", "100.00"))
	o := f.order(t, "p1", 2)

	f.project(t, productEvent(models.EventTypeProductUpdated, "p1", ""))

	p, _ := f.projection.Get("p1")
	assertPrice(t, "100.00", p.Price)
	assertPrice(t, "200.00", f.get(t, o.ID).TotalPrice)
}

func TestDeletionCascadeCancelsPendingOrders(t *testing.T) {
	f := newFixture()
	f.project(t, productEvent(models.EventTypeProductCreated, "p1", "100.00"))
	o := f.order(t, "p1", 2)
	confirmed := f.order(t, "p1", 1)
	status := models.OrderStatusConfirmed
	_, err := f.service.Update(context.Background(), confirmed.ID, UpdateOrderRequest{Status: &status})
	require.NoError(t, err)

	f.project(t, productEvent(models.EventTypeProductDeleted, "p1", ""))

	assert.False(t, f.projection.Has("p1"))
	assert.Equal(t, models.OrderStatusCancelled, f.get(t, o.ID).Status)
	assert.Equal(t, models.OrderStatusConfirmed, f.get(t, confirmed.ID).Status)
	assert.Equal(t, 2, f.orders.Count())
}

func TestDeleteOfUnknownProductIsIdempotent(t *testing.T) {
	f := newFixture()

	result := f.projector.HandleProductDeleted(productEvent(models.EventTypeProductDeleted, "ghost", ""))
	again := f.projector.HandleProductDeleted(productEvent(models.EventTypeProductDeleted, "ghost", ""))

	assert.Equal(t, CascadeResult{}, result)
	assert.Equal(t, CascadeResult{}, again)
	assert.Equal(t, 0, f.projection.Size())
}

func TestReplayingUpdateLeavesSameState(t *testing.T) {
	f := newFixture()
	f.project(t, productEvent(models.EventTypeProductCreated, "p1", "100.00"))
	a := f.order(t, "p1", 2)
	b := f.order(t, "p1", 5)

	event := productEvent(models.EventTypeProductUpdated, "p1", "150.00")

	f.project(t, event)
	productsOnce := f.projection.ListAll()
	ordersOnce := f.orders.ListAll()

	f.project(t, event)
	productsTwice := f.projection.ListAll()
	ordersTwice := f.orders.ListAll()

	require.Len(t, productsTwice, len(productsOnce))
	assert.Equal(t, productsOnce[0].Price.String(), productsTwice[0].Price.String())
	require.Len(t, ordersTwice, len(ordersOnce))
	for i := range ordersOnce {
		assert.Equal(t, ordersOnce[i].ID, ordersTwice[i].ID)
		assert.Equal(t, ordersOnce[i].Status, ordersTwice[i].Status)
		assert.Equal(t, ordersOnce[i].TotalPrice.String(), ordersTwice[i].TotalPrice.String())
		assert.Equal(t, ordersOnce[i].UpdatedAt, ordersTwice[i].UpdatedAt)
	}
	assertPrice(t, "300.00", f.get(t, a.ID).TotalPrice)
	assertPrice(t, "750.00", f.get(t, b.ID).TotalPrice)
}

// Delivery order decides the outcome: a stale update after a delete brings the product back.
func TestOutOfOrderUpdateResurrectsDeletedProduct(t *testing.T) {
	f := newFixture()
	f.project(t, productEvent(models.EventTypeProductCreated, "p1", "100.00"))
	o := f.order(t, "p1", 1)

	f.project(t, productEvent(models.EventTypeProductDeleted, "p1", ""))
	f.project(t, productEvent(models.EventTypeProductUpdated, "p1", "90.00"))

	p, ok := f.projection.Get("p1")
	require.True(t, ok)
	assertPrice(t, "90.00", p.Price)
	cancelled := f.get(t, o.ID)
	assert.Equal(t, models.OrderStatusCancelled, cancelled.Status)
	assertPrice(t, "100.00", cancelled.TotalPrice)
}

func TestUnknownEventTypeIsIgnored(t *testing.T) {
	f := newFixture()

	err := f.projector.Project(context.Background(), productEvent("product.archived", "p1", "100.00"))

	assert.NoError(t, err)
	assert.Equal(t, 0, f.projection.Size())
}

func TestProjectRejectsNilEvent(t *testing.T) {
	f := newFixture()

	err := f.projector.Project(context.Background(), nil)

	assert.ErrorIs(t, err, models.ErrInvalidInput)
}

type flakyOrders struct {
	*store.OrderBook
	failFor string
}

func (r *flakyOrders) Update(id string, mutate func(models.Order) (models.Order, bool)) (models.Order, bool, error) {
	if id == r.failFor {
		return models.Order{}, false, errors.New("disk on fire")
	}
	return r.OrderBook.Update(id, mutate)
}

// racingOrders runs between a cascade's pending snapshot and its writes,
// standing in for a request that lands on the same order mid-cascade.
type racingOrders struct {
	*store.OrderBook
	between func()
}

func (r *racingOrders) FindByProduct(productID string, status models.OrderStatus) []models.Order {
	snapshot := r.OrderBook.FindByProduct(productID, status)
	if r.between != nil {
		r.between()
	}
	return snapshot
}

func TestDeletionCascadeKeepsOrderCompletedMidCascade(t *testing.T) {
	f := newFixture()
	f.project(t, productEvent(models.EventTypeProductCreated, "p1", "100.00"))
	done := f.order(t, "p1", 2)
	open := f.order(t, "p1", 1)

	completed := models.OrderStatusCompleted
	projector := NewEventProjector(f.projection, &racingOrders{OrderBook: f.orders, between: func() {
		_, err := f.service.Update(context.Background(), done.ID, UpdateOrderRequest{Status: &completed})
		require.NoError(t, err)
	}}).WithClock(func() time.Time { return fixedNow })

	result := projector.HandleProductDeleted(productEvent(models.EventTypeProductDeleted, "p1", ""))

	assert.Equal(t, CascadeResult{Matched: 2, Applied: 1, Skipped: 1}, result)
	assert.Equal(t, models.OrderStatusCompleted, f.get(t, done.ID).Status)
	assert.Equal(t, models.OrderStatusCancelled, f.get(t, open.ID).Status)
}

func TestPriceCascadeKeepsOrderCompletedMidCascade(t *testing.T) {
	f := newFixture()
	f.project(t, productEvent(models.EventTypeProductCreated, "p1", "100.00"))
	done := f.order(t, "p1", 2)

	completed := models.OrderStatusCompleted
	projector := NewEventProjector(f.projection, &racingOrders{OrderBook: f.orders, between: func() {
		_, err := f.service.Update(context.Background(), done.ID, UpdateOrderRequest{Status: &completed})
		require.NoError(t, err)
	}})

	result := projector.HandleProductUpdated(productEvent(models.EventTypeProductUpdated, "p1", "150.00"))

	assert.Equal(t, CascadeResult{Matched: 1, Skipped: 1}, result)
	got := f.get(t, done.ID)
	assert.Equal(t, models.OrderStatusCompleted, got.Status)
	assertPrice(t, "200.00", got.TotalPrice)
}

func TestPriceCascadeUsesQuantityPatchedMidCascade(t *testing.T) {
	f := newFixture()
	f.project(t, productEvent(models.EventTypeProductCreated, "p1", "100.00"))
	o := f.order(t, "p1", 2)

	qty := 5
	projector := NewEventProjector(f.projection, &racingOrders{OrderBook: f.orders, between: func() {
		_, err := f.service.Update(context.Background(), o.ID, UpdateOrderRequest{Quantity: &qty})
		require.NoError(t, err)
	}})

	projector.HandleProductUpdated(productEvent(models.EventTypeProductUpdated, "p1", "10.00"))

	got := f.get(t, o.ID)
	assert.Equal(t, 5, got.Quantity)
	assertPrice(t, "50.00", got.TotalPrice)
}

func TestCascadeSkipsOrderRemovedMidCascade(t *testing.T) {
	f := newFixture()
	f.project(t, productEvent(models.EventTypeProductCreated, "p1", "100.00"))
	gone := f.order(t, "p1", 1)
	kept := f.order(t, "p1", 1)

	projector := NewEventProjector(f.projection, &racingOrders{OrderBook: f.orders, between: func() {
		_, err := f.service.Remove(context.Background(), gone.ID)
		require.NoError(t, err)
	}})

	result := projector.HandleProductDeleted(productEvent(models.EventTypeProductDeleted, "p1", ""))

	assert.Equal(t, CascadeResult{Matched: 2, Applied: 1, Skipped: 1}, result)
	_, ok := f.orders.FindByID(gone.ID)
	assert.False(t, ok)
	assert.Equal(t, models.OrderStatusCancelled, f.get(t, kept.ID).Status)
}

func TestCascadeContinuesAfterFailedWrite(t *testing.T) {
	f := newFixture()
	f.project(t, productEvent(models.EventTypeProductCreated, "p1", "100.00"))
	first := f.order(t, "p1", 1)
	second := f.order(t, "p1", 1)
	third := f.order(t, "p1", 1)

	projector := NewEventProjector(f.projection, &flakyOrders{OrderBook: f.orders, failFor: second.ID}).
		WithClock(func() time.Time { return fixedNow })

	result := projector.HandleProductDeleted(productEvent(models.EventTypeProductDeleted, "p1", ""))

	assert.Equal(t, CascadeResult{Matched: 3, Applied: 2, Failed: 1}, result)
	assert.Equal(t, models.OrderStatusCancelled, f.get(t, first.ID).Status)
	assert.Equal(t, models.OrderStatusPending, f.get(t, second.ID).Status)
	assert.Equal(t, models.OrderStatusCancelled, f.get(t, third.ID).Status)
}

func TestProjectSucceedsDespiteCascadeFailure(t *testing.T) {
	f := newFixture()
	f.project(t, productEvent(models.EventTypeProductCreated, "p1", "100.00"))
	o := f.order(t, "p1", 1)

	projector := NewEventProjector(f.projection, &flakyOrders{OrderBook: f.orders, failFor: o.ID})

	err := projector.Project(context.Background(), productEvent(models.EventTypeProductUpdated, "p1", "50.00"))

	assert.NoError(t, err)
	assertPrice(t, "100.00", f.get(t, o.ID).TotalPrice)
}

func TestProjectorStats(t *testing.T) {
	f := newFixture()
	f.project(t, productEvent(models.EventTypeProductCreated, "p1", "100.00"))
	f.project(t, productEvent(models.EventTypeProductCreated, "p2", "10.00"))
	f.order(t, "p1", 1)
	done := f.order(t, "p2", 1)
	completed := models.OrderStatusCompleted
	_, err := f.service.Update(context.Background(), done.ID, UpdateOrderRequest{Status: &completed})
	require.NoError(t, err)
	f.order(t, "p2", 3)
	f.project(t, productEvent(models.EventTypeProductDeleted, "p2", ""))

	stats := f.projector.Stats()

	assert.Equal(t, 1, stats.TotalProducts)
	assert.Equal(t, 3, stats.TotalOrders)
	assert.Equal(t, 1, stats.PendingOrders)
	assert.Equal(t, 1, stats.CompletedOrders)
	assert.Equal(t, 1, stats.CancelledOrders)
	require.Len(t, stats.Products, 1)
	assert.Equal(t, "p1", stats.Products[0].ID)
}
