package services

import (
	"context"
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/go-faster/errors"
	"go.uber.org/zap"

	"kedai/internal/apperrors"
	"kedai/internal/events"
	"kedai/internal/models"
	"kedai/internal/repositories"
)

// maxTransitionAttempts bounds retries of a status change that lost a race.
// A retry re-reads the order, so a duplicate completion becomes a no-op.
const maxTransitionAttempts = 3

// MaxItemQuantity caps the quantity of a single order line.
const MaxItemQuantity = 1000

// CreateOrderItem is one requested line. The price is always taken from the
// catalog.
type CreateOrderItem struct {
	ProductID string `json:"product_id" validate:"required"`
	Quantity  int    `json:"quantity" validate:"required,gt=0,lte=1000"`
	Size      string `json:"size" validate:"omitempty,max=50"`
}

// CreateOrderInput is the input of CreateOrder. UserID is empty for guests.
type CreateOrderInput struct {
	Items        []CreateOrderItem `json:"items" validate:"required,min=1,dive"`
	CustomerName string            `json:"customer_name" validate:"required,max=100"`
	Notes        string            `json:"notes" validate:"omitempty,max=500"`
	UserID       string            `json:"-"`
}

// ListOrdersInput filters ListOrders. Status is a raw wire token.
type ListOrdersInput struct {
	UserID string
	Status string
}

// OrderService handles business logic related to orders.
type OrderService struct {
	orderRepo   repositories.OrderRepository
	productRepo repositories.ProductRepository
	userRepo    repositories.UserRepository
	publisher   events.Publisher
	logger      *zap.Logger
}

// NewOrderService creates a new OrderService. publisher may be nil.
func NewOrderService(
	orderRepo repositories.OrderRepository,
	productRepo repositories.ProductRepository,
	userRepo repositories.UserRepository,
	publisher events.Publisher,
	logger *zap.Logger,
) *OrderService {
	return &OrderService{
		orderRepo:   orderRepo,
		productRepo: productRepo,
		userRepo:    userRepo,
		publisher:   publisher,
		logger:      logger,
	}
}

// CreateOrder prices every line from the catalog, computes the total and
// stores the order as pending.
func (s *OrderService) CreateOrder(ctx context.Context, in CreateOrderInput) (*models.Order, error) {
	if len(in.Items) == 0 {
		return nil, apperrors.Invalid("items", "at least one item is required")
	}
	customerName := strings.TrimSpace(in.CustomerName)
	if customerName == "" {
		return nil, apperrors.Invalid("customer_name", "is required")
	}

	var userID *string
	if in.UserID != "" {
		if _, err := s.userRepo.GetByID(ctx, in.UserID); err != nil {
			return nil, err
		}
		uid := in.UserID
		userID = &uid
	}

	items := make([]models.OrderItem, 0, len(in.Items))
	var total int64
	for i, req := range in.Items {
		if req.ProductID == "" {
			return nil, apperrors.Invalid(fmt.Sprintf("items[%d].product_id", i), "is required")
		}
		if req.Quantity <= 0 {
			return nil, apperrors.Invalid(fmt.Sprintf("items[%d].quantity", i), "must be greater than 0")
		}
		if req.Quantity > MaxItemQuantity {
			return nil, apperrors.Invalid(fmt.Sprintf("items[%d].quantity", i), "must not exceed %d", MaxItemQuantity)
		}

		product, err := s.productRepo.GetByID(ctx, req.ProductID)
		if err != nil {
			return nil, err
		}
		unitPrice, ok := product.UnitPrice(req.Size)
		if !ok {
			return nil, apperrors.Invalid(fmt.Sprintf("items[%d].size", i), "%q is not a size of %s", req.Size, product.Name)
		}

		if unitPrice < 0 {
			return nil, errors.Wrapf(apperrors.ErrConsistency, "product %s has negative price %d", product.ID, unitPrice)
		}
		quantity := int64(req.Quantity)
		if unitPrice != 0 && quantity > math.MaxInt64/unitPrice {
			return nil, apperrors.Invalid(fmt.Sprintf("items[%d].quantity", i), "line total overflows")
		}
		lineTotal := unitPrice * quantity
		if total > math.MaxInt64-lineTotal {
			return nil, apperrors.Invalid(fmt.Sprintf("items[%d].quantity", i), "order total overflows")
		}
		items = append(items, models.OrderItem{
			ProductID:   product.ID,
			ProductName: product.Name,
			Image:       product.Image,
			Category:    product.Category,
			Size:        req.Size,
			Quantity:    req.Quantity,
			UnitPrice:   unitPrice,
			Total:       lineTotal,
		})
		total += lineTotal
	}

	order := &models.Order{
		UserID:       userID,
		CustomerName: customerName,
		Notes:        strings.TrimSpace(in.Notes),
		Items:        items,
		Total:        total,
		Status:       models.StatusPending,
	}
	if err := s.orderRepo.Create(ctx, order); err != nil {
		return nil, errors.Wrap(err, "store order")
	}

	s.logger.Info("Order created",
		zap.String("order_id", order.ID),
		zap.Int64("total", order.Total),
		zap.Int("items", len(order.Items)),
		zap.Bool("guest", order.IsGuest()),
	)
	s.publish(ctx, events.OrderCreated, events.OrderCreatedEvent{
		OrderID:      order.ID,
		UserID:       deref(order.UserID),
		CustomerName: order.CustomerName,
		Total:        order.Total,
		Items:        len(order.Items),
		Status:       string(order.Status),
		OccurredAt:   time.Now(),
	})
	return order, nil
}

// GetOrderByID retrieves a single order by its ID.
func (s *OrderService) GetOrderByID(ctx context.Context, id string) (*models.Order, error) {
	if strings.TrimSpace(id) == "" {
		return nil, apperrors.Invalid("id", "is required")
	}
	return s.orderRepo.GetByID(ctx, id)
}

// ListOrders returns orders matching in, newest first.
func (s *OrderService) ListOrders(ctx context.Context, in ListOrdersInput) ([]models.Order, error) {
	filter := repositories.OrderFilter{UserID: in.UserID}
	if in.Status != "" {
		status, err := models.ParseOrderStatus(in.Status)
		if err != nil {
			return nil, err
		}
		filter.Status = status
	}
	return s.orderRepo.List(ctx, filter)
}

// UpdateOrderStatus moves an order to status. Entering completed credits the
// owner's loyalty points exactly once; the repository applies the status,
// the balance increment and the ledger entry as one unit.
func (s *OrderService) UpdateOrderStatus(ctx context.Context, id, status string) (*models.Order, error) {
	if strings.TrimSpace(id) == "" {
		return nil, apperrors.Invalid("id", "is required")
	}
	to, err := models.ParseOrderStatus(status)
	if err != nil {
		return nil, err
	}

	var change *repositories.StatusChange
	for attempt := 1; ; attempt++ {
		change, err = s.orderRepo.UpdateStatus(ctx, id, to, s.accrue)
		if err == nil {
			break
		}
		if !errors.Is(err, apperrors.ErrConflict) || attempt >= maxTransitionAttempts {
			return nil, err
		}
		s.logger.Warn("Order status update conflicted, retrying",
			zap.String("order_id", id),
			zap.Int("attempt", attempt),
			zap.Error(err),
		)
	}

	order := change.Order
	if change.Transition.Noop {
		s.logger.Debug("Order already in requested status", zap.String("order_id", id), zap.String("status", string(to)))
		return order, nil
	}

	s.logger.Info("Order status updated",
		zap.String("order_id", order.ID),
		zap.String("from", string(change.Transition.From)),
		zap.String("to", string(change.Transition.To)),
	)
	s.publish(ctx, events.OrderStatusChanged, events.OrderStatusChangedEvent{
		OrderID:    order.ID,
		UserID:     deref(order.UserID),
		From:       string(change.Transition.From),
		To:         string(change.Transition.To),
		OccurredAt: order.UpdatedAt,
	})

	if award := change.Award; award != nil {
		s.logger.Info("Loyalty points awarded",
			zap.String("order_id", order.ID),
			zap.String("user_id", award.UserID),
			zap.Int64("points", award.Points),
		)
		s.publish(ctx, events.PointsEarned, events.PointsEarnedEvent{
			EntryID:    award.ID,
			UserID:     award.UserID,
			OrderID:    order.ID,
			Points:     award.Points,
			OccurredAt: award.CreatedAt,
		})
	}
	return order, nil
}

// accrue is the AccrualFunc handed to the repository.
func (s *OrderService) accrue(order *models.Order) (int64, string, error) {
	points, err := CalculatePoints(order.Items)
	if err != nil {
		return 0, "", err
	}
	return points, fmt.Sprintf("Earned %d points from order %s (%s)", points, shortID(order.ID), order.CustomerName), nil
}

func (s *OrderService) publish(ctx context.Context, routingKey string, event any) {
	if s.publisher == nil {
		return
	}
	if err := s.publisher.Publish(ctx, routingKey, event); err != nil {
		s.logger.Warn("Failed to publish event", zap.String("routing_key", routingKey), zap.Error(err))
	}
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
