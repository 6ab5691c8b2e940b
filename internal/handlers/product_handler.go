package handlers

import (
	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"kedai/internal/models"
	"kedai/internal/repositories"
	"kedai/internal/services"
)

const maxPageSize = 100

// ProductHandler handles HTTP requests for the catalog.
type ProductHandler struct {
	service  *services.ProductService
	validate *validator.Validate
	logger   *zap.Logger
}

// NewProductHandler creates a new ProductHandler.
func NewProductHandler(service *services.ProductService, validate *validator.Validate, logger *zap.Logger) *ProductHandler {
	return &ProductHandler{
		service:  service,
		validate: validate,
		logger:   logger,
	}
}

// RegisterRoutes registers the product routes. Reads are public, writes are
// admin only.
func (h *ProductHandler) RegisterRoutes(router fiber.Router, guards Guards) {
	productRoutes := router.Group("/products")
	productRoutes.Get("/", h.HandleGetProducts)
	productRoutes.Get("/:id", h.HandleGetProductByID)
	productRoutes.Post("/", guards.Auth, guards.Admin, h.HandleCreateProduct)
	productRoutes.Put("/:id", guards.Auth, guards.Admin, h.HandleUpdateProduct)
	productRoutes.Delete("/:id", guards.Auth, guards.Admin, h.HandleDeleteProduct)
}

// HandleGetProducts lists products filtered by category, featured flag and a
// search term.
func (h *ProductHandler) HandleGetProducts(c *fiber.Ctx) error {
	filter := repositories.ProductFilter{
		Category: models.Category(c.Query("category")),
		Featured: c.QueryBool("featured"),
		Search:   c.Query("search"),
		Limit:    c.QueryInt("limit", 0),
		Offset:   c.QueryInt("offset", 0),
	}
	if filter.Limit < 0 || filter.Offset < 0 {
		return fail(c, fiber.StatusBadRequest, "limit and offset must not be negative", nil)
	}
	if filter.Limit > maxPageSize {
		filter.Limit = maxPageSize
	}

	products, err := h.service.GetAllProducts(c.UserContext(), filter)
	if err != nil {
		return respondError(c, h.logger, "Could not retrieve products", err)
	}
	return success(c, fiber.StatusOK, products)
}

// HandleGetProductByID retrieves a single product by its ID.
func (h *ProductHandler) HandleGetProductByID(c *fiber.Ctx) error {
	product, err := h.service.GetProductByID(c.UserContext(), c.Params("id"))
	if err != nil {
		return respondError(c, h.logger, "Could not retrieve product", err)
	}
	return success(c, fiber.StatusOK, product)
}

// HandleCreateProduct creates a new product.
func (h *ProductHandler) HandleCreateProduct(c *fiber.Ctx) error {
	var product models.Product
	if err := c.BodyParser(&product); err != nil {
		return invalidBody(c, err)
	}
	product.ID = ""
	if err := h.validate.Struct(product); err != nil {
		return validationFailed(c, err)
	}

	if err := h.service.CreateProduct(c.UserContext(), &product); err != nil {
		return respondError(c, h.logger, "Could not create product", err)
	}
	h.logger.Info("Product created", zap.String("product_id", product.ID), zap.String("name", product.Name))
	return success(c, fiber.StatusCreated, product)
}

// HandleUpdateProduct replaces an existing product.
func (h *ProductHandler) HandleUpdateProduct(c *fiber.Ctx) error {
	var product models.Product
	if err := c.BodyParser(&product); err != nil {
		return invalidBody(c, err)
	}
	product.ID = ""
	if err := h.validate.Struct(product); err != nil {
		return validationFailed(c, err)
	}
	product.ID = c.Params("id")

	if err := h.service.UpdateProduct(c.UserContext(), &product); err != nil {
		return respondError(c, h.logger, "Could not update product", err)
	}
	return success(c, fiber.StatusOK, product)
}

// HandleDeleteProduct deletes a product by its ID.
func (h *ProductHandler) HandleDeleteProduct(c *fiber.Ctx) error {
	if err := h.service.DeleteProduct(c.UserContext(), c.Params("id")); err != nil {
		return respondError(c, h.logger, "Could not delete product", err)
	}
	return c.SendStatus(fiber.StatusNoContent)
}
