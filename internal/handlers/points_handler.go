package handlers

import (
	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"kedai/internal/middleware"
	"kedai/internal/services"
)

// PointsHandler serves the loyalty balance and ledger.
type PointsHandler struct {
	service *services.PointsService
	logger  *zap.Logger
}

// NewPointsHandler creates a new PointsHandler.
func NewPointsHandler(service *services.PointsService, logger *zap.Logger) *PointsHandler {
	return &PointsHandler{service: service, logger: logger}
}

// RegisterRoutes registers the points routes and the admin reconcile route.
func (h *PointsHandler) RegisterRoutes(router fiber.Router, guards Guards) {
	pointsRoutes := router.Group("/points", guards.Auth)
	pointsRoutes.Get("/history", h.HandleHistory)
	pointsRoutes.Get("/balance", h.HandleBalance)

	router.Post("/admin/users/:id/points/reconcile", guards.Auth, guards.Admin, h.HandleReconcile)
}

// HandleHistory returns the caller's ledger, newest first. Admins may pass
// user_id to read another user's ledger.
func (h *PointsHandler) HandleHistory(c *fiber.Ctx) error {
	history, err := h.service.History(c.UserContext(), h.subject(c), c.QueryInt("limit", 0))
	if err != nil {
		return respondError(c, h.logger, "Could not retrieve points history", err)
	}
	return success(c, fiber.StatusOK, history)
}

// HandleBalance returns the running balance next to the ledger total.
func (h *PointsHandler) HandleBalance(c *fiber.Ctx) error {
	audit, err := h.service.Balance(c.UserContext(), h.subject(c))
	if err != nil {
		return respondError(c, h.logger, "Could not retrieve points balance", err)
	}
	return success(c, fiber.StatusOK, audit)
}

// HandleReconcile realigns a user's balance with the ledger.
func (h *PointsHandler) HandleReconcile(c *fiber.Ctx) error {
	audit, err := h.service.Reconcile(c.UserContext(), c.Params("id"))
	if err != nil {
		return respondError(c, h.logger, "Could not reconcile points", err)
	}
	return success(c, fiber.StatusOK, audit)
}

func (h *PointsHandler) subject(c *fiber.Ctx) string {
	identity, _ := middleware.CurrentIdentity(c)
	if target := c.Query("user_id"); target != "" && identity.IsAdmin() {
		return target
	}
	return identity.UserID
}
