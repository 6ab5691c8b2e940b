package repositories

import (
	"context"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"

	"kedai/internal/apperrors"
	"kedai/internal/models"
)

// MockProductRepository is an in-memory implementation of ProductRepository.
type MockProductRepository struct {
	s *MemoryStore
}

// NewMockProductRepository creates a new instance of MockProductRepository.
func NewMockProductRepository(store *MemoryStore) *MockProductRepository {
	return &MockProductRepository{s: store}
}

// GetAll returns products matching filter, ordered by name.
func (r *MockProductRepository) GetAll(_ context.Context, filter ProductFilter) ([]models.Product, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	search := strings.ToLower(strings.TrimSpace(filter.Search))
	productList := make([]models.Product, 0, len(r.s.products))
	for _, p := range r.s.products {
		if filter.Category != "" && p.Category != filter.Category {
			continue
		}
		if filter.Featured && !p.Featured {
			continue
		}
		if search != "" &&
			!strings.Contains(strings.ToLower(p.Name), search) &&
			!strings.Contains(strings.ToLower(p.Description), search) {
			continue
		}
		productList = append(productList, cloneProduct(p))
	}
	sort.Slice(productList, func(i, j int) bool { return productList[i].Name < productList[j].Name })

	if filter.Offset > 0 {
		if filter.Offset >= len(productList) {
			return []models.Product{}, nil
		}
		productList = productList[filter.Offset:]
	}
	if filter.Limit > 0 && filter.Limit < len(productList) {
		productList = productList[:filter.Limit]
	}
	return productList, nil
}

// GetByID returns a product by its ID.
func (r *MockProductRepository) GetByID(_ context.Context, id string) (*models.Product, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	product, ok := r.s.products[id]
	if !ok {
		return nil, apperrors.NotFound("product", id)
	}
	product = cloneProduct(product)
	return &product, nil
}

// Create adds a new product.
func (r *MockProductRepository) Create(_ context.Context, product *models.Product) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	if product.ID == "" {
		product.ID = uuid.New().String()
	}
	now := time.Now()
	product.CreatedAt = now
	product.UpdatedAt = now
	for i := range product.Sizes {
		product.Sizes[i].ProductID = product.ID
	}
	r.s.products[product.ID] = cloneProduct(*product)
	return nil
}

// Update modifies an existing product.
func (r *MockProductRepository) Update(_ context.Context, product *models.Product) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	existing, ok := r.s.products[product.ID]
	if !ok {
		return apperrors.NotFound("product", product.ID)
	}
	product.CreatedAt = existing.CreatedAt
	product.UpdatedAt = time.Now()
	for i := range product.Sizes {
		product.Sizes[i].ProductID = product.ID
	}
	r.s.products[product.ID] = cloneProduct(*product)
	return nil
}

// Delete removes a product by its ID.
func (r *MockProductRepository) Delete(_ context.Context, id string) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	if _, ok := r.s.products[id]; !ok {
		return apperrors.NotFound("product", id)
	}
	delete(r.s.products, id)
	return nil
}
