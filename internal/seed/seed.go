// Package seed loads the starter catalog and bootstraps an admin account.
package seed

import (
	"context"

	"github.com/go-faster/errors"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"kedai/internal/apperrors"
	"kedai/internal/models"
	"kedai/internal/repositories"
)

// sizes builds the usual small/large pair.
func sizes(small string, smallPrice int64, large string, largePrice int64) []models.ProductSize {
	return []models.ProductSize{{Name: small, Price: smallPrice}, {Name: large, Price: largePrice}}
}

// Catalog returns the starter menu.
func Catalog() []models.Product {
	const img = "https://images.unsplash.com/"
	return []models.Product{
		{Name: "Espresso", Description: "Rich and bold Italian espresso", BasePrice: 25000, Category: models.CategoryCoffee, Featured: true,
			Image: img + "photo-1510591509098-f4fdc6d0ff04?w=800&q=80", Sizes: sizes("Single", 25000, "Double", 35000)},
		{Name: "Cappuccino", Description: "Creamy espresso with steamed milk foam", BasePrice: 35000, Category: models.CategoryCoffee, Featured: true,
			Image: img + "photo-1572442388796-11668a67e53d?w=800&q=80", Sizes: sizes("Regular", 35000, "Large", 42000)},
		{Name: "Caffe Latte", Description: "Smooth espresso with silky steamed milk", BasePrice: 38000, Category: models.CategoryCoffee, Featured: true,
			Image: img + "photo-1561882468-9110e03e0f78?w=800&q=80", Sizes: sizes("Regular", 38000, "Large", 45000)},
		{Name: "Americano", Description: "Espresso diluted with hot water", BasePrice: 28000, Category: models.CategoryCoffee,
			Image: img + "photo-1514432324607-a09d9b4aefdd?w=800&q=80", Sizes: sizes("Regular", 28000, "Large", 35000)},
		{Name: "Mocha", Description: "Espresso with chocolate and steamed milk", BasePrice: 42000, Category: models.CategoryCoffee,
			Image: img + "photo-1607260550778-aa9d29444ce1?w=800&q=80", Sizes: sizes("Regular", 42000, "Large", 50000)},
		{Name: "Cold Brew", Description: "Smooth cold-steeped coffee", BasePrice: 40000, Category: models.CategoryCoffee,
			Image: img + "photo-1517487881594-2787fef5ebf7?w=800&q=80"},
		{Name: "Green Tea Latte", Description: "Creamy matcha green tea", BasePrice: 38000, Category: models.CategoryTea, Featured: true,
			Image: img + "photo-1515823064-d6e0c04616a7?w=800&q=80", Sizes: sizes("Regular", 38000, "Large", 45000)},
		{Name: "Earl Grey Tea", Description: "Classic black tea with bergamot", BasePrice: 25000, Category: models.CategoryTea,
			Image: img + "photo-1597318112693-13670f1d0c27?w=800&q=80"},
		{Name: "Jasmine Tea", Description: "Fragrant green tea with jasmine flowers", BasePrice: 25000, Category: models.CategoryTea,
			Image: img + "photo-1556679343-c7306c1976bc?w=800&q=80"},
		{Name: "Thai Tea", Description: "Sweet and creamy Thai-style tea", BasePrice: 32000, Category: models.CategoryTea,
			Image: img + "photo-1623909472779-648c496ce1d5?w=800&q=80"},
		{Name: "Croissant", Description: "Buttery French pastry", BasePrice: 28000, Category: models.CategorySnacks,
			Image: img + "photo-1555507036-ab1f4038808a?w=800&q=80"},
		{Name: "Chocolate Cake", Description: "Rich chocolate layer cake", BasePrice: 35000, Category: models.CategorySnacks, Featured: true,
			Image: img + "photo-1578985545062-69928b1d9587?w=800&q=80"},
		{Name: "Blueberry Muffin", Description: "Moist muffin with fresh blueberries", BasePrice: 25000, Category: models.CategorySnacks,
			Image: img + "photo-1607958996333-41aef7caefaa?w=800&q=80"},
		{Name: "Chicken Sandwich", Description: "Fresh chicken and vegetable sandwich", BasePrice: 45000, Category: models.CategorySnacks,
			Image: img + "photo-1528735602780-2552fd46c7af?w=800&q=80"},
	}
}

// Products inserts the starter menu unless the catalog already has products.
// It returns the number of products created.
func Products(ctx context.Context, repo repositories.ProductRepository, logger *zap.Logger) (int, error) {
	existing, err := repo.GetAll(ctx, repositories.ProductFilter{Limit: 1})
	if err != nil {
		return 0, errors.Wrap(err, "check catalog")
	}
	if len(existing) > 0 {
		logger.Info("Catalog already seeded, skipping")
		return 0, nil
	}

	products := Catalog()
	for i := range products {
		if err := repo.Create(ctx, &products[i]); err != nil {
			return i, errors.Wrapf(err, "seed product %s", products[i].Name)
		}
	}
	logger.Info("Seeded catalog", zap.Int("products", len(products)))
	return len(products), nil
}

// Admin ensures an admin account exists. An existing user with the same
// username is left untouched.
func Admin(ctx context.Context, repo repositories.UserRepository, username, email, password string, logger *zap.Logger) error {
	_, err := repo.GetByUsername(ctx, username)
	if err == nil {
		return nil
	}
	if !errors.Is(err, apperrors.ErrNotFound) {
		return errors.Wrap(err, "look up admin")
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return errors.Wrap(err, "hash admin password")
	}
	admin := &models.User{
		Username: username,
		Email:    email,
		Password: string(hash),
		Role:     models.RoleAdmin,
	}
	if err := repo.Create(ctx, admin); err != nil {
		return errors.Wrap(err, "create admin")
	}
	logger.Info("Created admin account", zap.String("username", username))
	return nil
}
