package store

import (
	"sync"

	"product-order-service/internal/models"
	"product-order-service/internal/util"

	"go.uber.org/zap"
)

// ProductStore is a concurrency-safe product map keyed by product ID.
// The catalog uses one as its authoritative store; the order side keeps another
// as the projection, which only the event projector writes to.
type ProductStore struct {
	mu       sync.RWMutex
	products map[string]models.Product
	order    []string
	logger   *zap.Logger
}

// NewProductStore creates an empty product store
func NewProductStore() *ProductStore {
	return &ProductStore{
		products: make(map[string]models.Product),
		logger:   util.GetLogger(),
	}
}

// Get returns the product stored under id
func (s *ProductStore) Get(id string) (models.Product, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	p, ok := s.products[id]
	return p, ok
}

// Has reports whether id is present
func (s *ProductStore) Has(id string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.products[id]
	return ok
}

// Upsert stores product under id, replacing any previous value
func (s *ProductStore) Upsert(id string, product models.Product) {
	s.mu.Lock()
	if _, ok := s.products[id]; !ok {
		s.order = append(s.order, id)
	}
	s.products[id] = product
	s.mu.Unlock()

	s.logger.Info("Stored product",
		zap.String("product_id", id),
		zap.String("name", product.Name),
		zap.String("price", product.Price.String()))
}

// Remove deletes id and returns the removed product. Missing ids are a no-op.
func (s *ProductStore) Remove(id string) (models.Product, bool) {
	s.mu.Lock()
	p, ok := s.products[id]
	if ok {
		delete(s.products, id)
		s.order = removeID(s.order, id)
	}
	s.mu.Unlock()

	if ok {
		s.logger.Info("Removed product", zap.String("product_id", id), zap.String("name", p.Name))
	}
	return p, ok
}

// ListAll returns all products in insertion order
func (s *ProductStore) ListAll() []models.Product {
	s.mu.RLock()
	defer s.mu.RUnlock()

	products := make([]models.Product, 0, len(s.order))
	for _, id := range s.order {
		products = append(products, s.products[id])
	}
	return products
}

// Size returns the number of stored products
func (s *ProductStore) Size() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.products)
}

func removeID(ids []string, id string) []string {
	for i, v := range ids {
		if v == id {
			return append(ids[:i], ids[i+1:]...)
		}
	}
	return ids
}
