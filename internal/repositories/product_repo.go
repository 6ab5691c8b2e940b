package repositories

import (
	"context"

	"kedai/internal/models"
)

// ProductFilter narrows a catalog listing. Zero values do not filter.
type ProductFilter struct {
	Category models.Category
	Featured bool
	Search   string
	Limit    int
	Offset   int
}

// ProductRepository defines the interface for product data access.
type ProductRepository interface {
	GetAll(ctx context.Context, filter ProductFilter) ([]models.Product, error)
	GetByID(ctx context.Context, id string) (*models.Product, error)
	Create(ctx context.Context, product *models.Product) error
	Update(ctx context.Context, product *models.Product) error
	Delete(ctx context.Context, id string) error
}
