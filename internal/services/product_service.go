package services

import (
	"context"

	"kedai/internal/apperrors"
	"kedai/internal/models"
	"kedai/internal/repositories"
)

// ProductService handles business logic related to products.
type ProductService struct {
	repo repositories.ProductRepository
}

// NewProductService creates a new ProductService.
func NewProductService(repo repositories.ProductRepository) *ProductService {
	return &ProductService{
		repo: repo,
	}
}

// GetAllProducts retrieves products matching filter.
func (s *ProductService) GetAllProducts(ctx context.Context, filter repositories.ProductFilter) ([]models.Product, error) {
	if filter.Category != "" && !filter.Category.Valid() {
		return nil, apperrors.Invalid("category", "unknown category %q", filter.Category)
	}
	return s.repo.GetAll(ctx, filter)
}

// GetProductByID retrieves a single product by its ID.
func (s *ProductService) GetProductByID(ctx context.Context, id string) (*models.Product, error) {
	return s.repo.GetByID(ctx, id)
}

// CreateProduct creates a new product.
func (s *ProductService) CreateProduct(ctx context.Context, product *models.Product) error {
	if err := checkProduct(product); err != nil {
		return err
	}
	return s.repo.Create(ctx, product)
}

// UpdateProduct updates an existing product. Past orders keep the name and
// price they were placed with.
func (s *ProductService) UpdateProduct(ctx context.Context, product *models.Product) error {
	if err := checkProduct(product); err != nil {
		return err
	}
	return s.repo.Update(ctx, product)
}

// DeleteProduct deletes a product by its ID.
func (s *ProductService) DeleteProduct(ctx context.Context, id string) error {
	return s.repo.Delete(ctx, id)
}

func checkProduct(p *models.Product) error {
	if !p.Category.Valid() {
		return apperrors.Invalid("category", "unknown category %q", p.Category)
	}
	if p.BasePrice < 0 {
		return apperrors.Invalid("price", "must not be negative")
	}
	if p.BasePrice > models.MaxPrice {
		return apperrors.Invalid("price", "must not exceed %d", models.MaxPrice)
	}
	seen := make(map[string]bool, len(p.Sizes))
	for _, size := range p.Sizes {
		if size.Price < 0 {
			return apperrors.Invalid("sizes", "price of %q must not be negative", size.Name)
		}
		if size.Price > models.MaxPrice {
			return apperrors.Invalid("sizes", "price of %q must not exceed %d", size.Name, models.MaxPrice)
		}
		if seen[size.Name] {
			return apperrors.Invalid("sizes", "duplicate size %q", size.Name)
		}
		seen[size.Name] = true
	}
	return nil
}
