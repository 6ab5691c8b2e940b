package repositories

import (
	"context"
	"strings"

	"github.com/go-faster/errors"
	"github.com/google/uuid"
	"gorm.io/gorm"

	"kedai/internal/apperrors"
	"kedai/internal/models"
)

// GORMProductRepository is a GORM implementation of ProductRepository.
type GORMProductRepository struct {
	db *gorm.DB
}

// NewGORMProductRepository creates a new instance of GORMProductRepository.
func NewGORMProductRepository(db *gorm.DB) *GORMProductRepository {
	return &GORMProductRepository{
		db: db,
	}
}

// GetAll retrieves products matching filter, ordered by name.
func (r *GORMProductRepository) GetAll(ctx context.Context, filter ProductFilter) ([]models.Product, error) {
	q := r.db.WithContext(ctx).Model(&models.Product{}).Preload("Sizes", func(db *gorm.DB) *gorm.DB {
		return db.Order("id")
	})
	if filter.Category != "" {
		q = q.Where("category = ?", filter.Category)
	}
	if filter.Featured {
		q = q.Where("featured = ?", true)
	}
	if s := strings.TrimSpace(filter.Search); s != "" {
		like := "%" + strings.ToLower(s) + "%"
		q = q.Where("LOWER(name) LIKE ? OR LOWER(description) LIKE ?", like, like)
	}
	if filter.Limit > 0 {
		q = q.Limit(filter.Limit)
	}
	if filter.Offset > 0 {
		q = q.Offset(filter.Offset)
	}

	var products []models.Product
	if err := q.Order("name").Find(&products).Error; err != nil {
		return nil, errors.Wrap(err, "list products")
	}
	return products, nil
}

// GetByID retrieves a single product by its ID from the database.
func (r *GORMProductRepository) GetByID(ctx context.Context, id string) (*models.Product, error) {
	var product models.Product
	err := r.db.WithContext(ctx).Preload("Sizes", func(db *gorm.DB) *gorm.DB {
		return db.Order("id")
	}).First(&product, "id = ?", id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.NotFound("product", id)
		}
		return nil, errors.Wrapf(err, "get product %s", id)
	}
	return &product, nil
}

// Create creates a new product and its sizes.
func (r *GORMProductRepository) Create(ctx context.Context, product *models.Product) error {
	if product.ID == "" {
		product.ID = uuid.New().String()
	}
	if err := r.db.WithContext(ctx).Create(product).Error; err != nil {
		return errors.Wrap(err, "create product")
	}
	return nil
}

// Update overwrites a product and replaces its size list.
func (r *GORMProductRepository) Update(ctx context.Context, product *models.Product) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Model(&models.Product{}).Where("id = ?", product.ID).Updates(map[string]any{
			"name":        product.Name,
			"description": product.Description,
			"base_price":  product.BasePrice,
			"image":       product.Image,
			"category":    product.Category,
			"featured":    product.Featured,
		})
		if res.Error != nil {
			return errors.Wrap(res.Error, "update product")
		}
		if res.RowsAffected == 0 {
			return apperrors.NotFound("product", product.ID)
		}

		if err := tx.Where("product_id = ?", product.ID).Delete(&models.ProductSize{}).Error; err != nil {
			return errors.Wrap(err, "clear product sizes")
		}
		for i := range product.Sizes {
			product.Sizes[i].ID = 0
			product.Sizes[i].ProductID = product.ID
		}
		if len(product.Sizes) > 0 {
			if err := tx.Create(&product.Sizes).Error; err != nil {
				return errors.Wrap(err, "create product sizes")
			}
		}
		return nil
	})
}

// Delete deletes a product by its ID from the database.
func (r *GORMProductRepository) Delete(ctx context.Context, id string) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("product_id = ?", id).Delete(&models.ProductSize{}).Error; err != nil {
			return errors.Wrap(err, "delete product sizes")
		}
		res := tx.Delete(&models.Product{}, "id = ?", id)
		if res.Error != nil {
			return errors.Wrap(res.Error, "delete product")
		}
		if res.RowsAffected == 0 {
			return apperrors.NotFound("product", id)
		}
		return nil
	})
}
