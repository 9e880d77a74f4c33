package service

import (
	"context"
	"fmt"
	"sync"
	"time"

	"product-order-service/internal/models"
	"product-order-service/internal/store"
	"product-order-service/internal/util"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// Publisher emits product events to the transport
type Publisher interface {
	Publish(ctx context.Context, topic string, event *models.ProductEvent) error
}

// ProductCatalog owns the authoritative product records. Every mutation is
// applied first and then announced; a failed announcement is reported to the
// caller but the mutation stays in place.
type ProductCatalog struct {
	mu        sync.Mutex
	store     *store.ProductStore
	publisher Publisher
	topic     string
	logger    *zap.Logger
}

// NewProductCatalog creates a new product catalog
func NewProductCatalog(store *store.ProductStore, publisher Publisher, topic string) *ProductCatalog {
	return &ProductCatalog{
		store:     store,
		publisher: publisher,
		topic:     topic,
		logger:    util.GetLogger(),
	}
}

// CreateProductRequest represents a request to create a product
type CreateProductRequest struct {
	Name        string           `json:"name" validate:"required"`
	Description string           `json:"description,omitempty"`
	Price       *decimal.Decimal `json:"price"`
	Stock       *int             `json:"stock" validate:"required,gte=0"`
	Category    string           `json:"category,omitempty"`
}

// UpdateProductRequest is a merge patch; nil fields are left unchanged
type UpdateProductRequest struct {
	Name        *string          `json:"name,omitempty" validate:"omitempty,min=1"`
	Description *string          `json:"description,omitempty"`
	Price       *decimal.Decimal `json:"price,omitempty"`
	Stock       *int             `json:"stock,omitempty" validate:"omitempty,gte=0"`
	Category    *string          `json:"category,omitempty"`
}

// FindAll returns every product
func (c *ProductCatalog) FindAll(ctx context.Context) []models.Product {
	products := c.store.ListAll()
	c.logger.Info("Fetching all products", zap.Int("count", len(products)))
	return products
}

// FindOne retrieves a product by ID
func (c *ProductCatalog) FindOne(ctx context.Context, id string) (models.Product, error) {
	product, ok := c.store.Get(id)
	if !ok {
		c.logger.Warn("Product not found", zap.String("product_id", id))
		return models.Product{}, fmt.Errorf("%w: product %s", models.ErrNotFound, id)
	}
	return product, nil
}

// Create stores a new product and publishes product.created.
// On ErrPublishFailure the returned product is stored.
func (c *ProductCatalog) Create(ctx context.Context, req CreateProductRequest) (models.Product, error) {
	ctx, span := util.StartSpan(ctx, "ProductCatalog.Create")
	defer span.End()

	if req.Price == nil || req.Stock == nil {
		return models.Product{}, util.SpanError(span, fmt.Errorf("%w: price and stock are required", models.ErrInvalidInput))
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	now := time.Now()
	product := models.Product{
		ID:          uuid.New().String(),
		Name:        req.Name,
		Description: req.Description,
		Price:       *req.Price,
		Stock:       *req.Stock,
		Category:    req.Category,
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	c.store.Upsert(product.ID, product)
	return product, util.SpanError(span, c.publish(ctx, models.EventTypeProductCreated, product))
}

// Update merges patch into the product and publishes product.updated.
// On ErrPublishFailure the returned product is stored.
func (c *ProductCatalog) Update(ctx context.Context, id string, patch UpdateProductRequest) (models.Product, error) {
	ctx, span := util.StartSpan(ctx, "ProductCatalog.Update")
	defer span.End()

	c.mu.Lock()
	defer c.mu.Unlock()

	product, err := c.FindOne(ctx, id)
	if err != nil {
		return models.Product{}, util.SpanError(span, err)
	}

	if patch.Name != nil {
		product.Name = *patch.Name
	}
	if patch.Description != nil {
		product.Description = *patch.Description
	}
	if patch.Price != nil {
		product.Price = *patch.Price
	}
	if patch.Stock != nil {
		product.Stock = *patch.Stock
	}
	if patch.Category != nil {
		product.Category = *patch.Category
	}
	product.UpdatedAt = time.Now()

	c.store.Upsert(id, product)
	return product, util.SpanError(span, c.publish(ctx, models.EventTypeProductUpdated, product))
}

// Remove deletes the product and publishes product.deleted with its last snapshot.
// On ErrPublishFailure the product is already gone.
func (c *ProductCatalog) Remove(ctx context.Context, id string) (models.Product, error) {
	ctx, span := util.StartSpan(ctx, "ProductCatalog.Remove")
	defer span.End()

	c.mu.Lock()
	defer c.mu.Unlock()

	product, ok := c.store.Remove(id)
	if !ok {
		c.logger.Warn("Product not found", zap.String("product_id", id))
		return models.Product{}, util.SpanError(span, fmt.Errorf("%w: product %s", models.ErrNotFound, id))
	}

	return product, util.SpanError(span, c.publish(ctx, models.EventTypeProductDeleted, product))
}

func (c *ProductCatalog) publish(ctx context.Context, eventType string, product models.Product) error {
	snapshot := product
	event := &models.ProductEvent{
		BaseEvent: models.BaseEvent{
			EventID:   uuid.New().String(),
			EventType: eventType,
			Timestamp: time.Now(),
		},
		ProductID: product.ID,
		Product:   &snapshot,
	}

	if err := c.publisher.Publish(ctx, c.topic, event); err != nil {
		util.ProductEventsPublishFailedTotal.WithLabelValues(eventType).Inc()
		c.logger.Error("Failed to publish product event",
			zap.String("event_type", eventType),
			zap.String("product_id", product.ID),
			zap.Error(err))
		return fmt.Errorf("%w: %s for product %s: %v", models.ErrPublishFailure, eventType, product.ID, err)
	}

	util.ProductEventsPublishedTotal.WithLabelValues(eventType).Inc()
	c.logger.Info("Event published", util.EventFields(event.EventID, eventType, product.ID)...)
	return nil
}
