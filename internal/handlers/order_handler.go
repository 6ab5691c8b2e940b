package handlers

import (
	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"kedai/internal/middleware"
	"kedai/internal/services"
)

// OrderHandler handles HTTP requests for orders.
type OrderHandler struct {
	service  *services.OrderService
	validate *validator.Validate
	logger   *zap.Logger
}

// NewOrderHandler creates a new OrderHandler.
func NewOrderHandler(service *services.OrderService, validate *validator.Validate, logger *zap.Logger) *OrderHandler {
	return &OrderHandler{
		service:  service,
		validate: validate,
		logger:   logger,
	}
}

// RegisterRoutes registers the order routes.
func (h *OrderHandler) RegisterRoutes(router fiber.Router, guards Guards) {
	orderRoutes := router.Group("/orders")
	orderRoutes.Post("/", guards.Optional, h.HandleCreateOrder)
	orderRoutes.Get("/", guards.Auth, h.HandleGetOrders)
	orderRoutes.Get("/:id", h.HandleGetOrderByID)
	orderRoutes.Patch("/:id/status", guards.Auth, guards.Admin, h.HandleUpdateOrderStatus)
}

// HandleCreateOrder places an order. Prices come from the catalog; the owner
// is the authenticated caller, or nobody for a guest order.
func (h *OrderHandler) HandleCreateOrder(c *fiber.Ctx) error {
	var req services.CreateOrderInput
	if err := c.BodyParser(&req); err != nil {
		return invalidBody(c, err)
	}
	if err := h.validate.Struct(req); err != nil {
		return validationFailed(c, err)
	}
	if identity, ok := middleware.CurrentIdentity(c); ok {
		req.UserID = identity.UserID
	}

	order, err := h.service.CreateOrder(c.UserContext(), req)
	if err != nil {
		return respondError(c, h.logger, "Could not create order", err)
	}
	return success(c, fiber.StatusCreated, order)
}

// HandleGetOrders lists orders, newest first. Non-admin callers only see
// their own orders.
func (h *OrderHandler) HandleGetOrders(c *fiber.Ctx) error {
	identity, _ := middleware.CurrentIdentity(c)
	in := services.ListOrdersInput{
		UserID: c.Query("user_id"),
		Status: c.Query("status"),
	}
	if !identity.IsAdmin() {
		in.UserID = identity.UserID
	}

	orders, err := h.service.ListOrders(c.UserContext(), in)
	if err != nil {
		return respondError(c, h.logger, "Could not retrieve orders", err)
	}
	return success(c, fiber.StatusOK, orders)
}

// HandleGetOrderByID retrieves a single order by its ID.
func (h *OrderHandler) HandleGetOrderByID(c *fiber.Ctx) error {
	order, err := h.service.GetOrderByID(c.UserContext(), c.Params("id"))
	if err != nil {
		return respondError(c, h.logger, "Could not retrieve order", err)
	}
	return success(c, fiber.StatusOK, order)
}

// UpdateStatusRequest is the body of a status change.
type UpdateStatusRequest struct {
	Status string `json:"status" validate:"required"`
}

// HandleUpdateOrderStatus moves an order through its lifecycle.
func (h *OrderHandler) HandleUpdateOrderStatus(c *fiber.Ctx) error {
	var req UpdateStatusRequest
	if err := c.BodyParser(&req); err != nil {
		return invalidBody(c, err)
	}
	if err := h.validate.Struct(req); err != nil {
		return validationFailed(c, err)
	}

	order, err := h.service.UpdateOrderStatus(c.UserContext(), c.Params("id"), req.Status)
	if err != nil {
		return respondError(c, h.logger, "Could not update order status", err)
	}
	return success(c, fiber.StatusOK, order)
}
