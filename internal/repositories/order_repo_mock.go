package repositories

import (
	"context"
	"sort"
	"time"

	"github.com/google/uuid"

	"kedai/internal/apperrors"
	"kedai/internal/models"
)

// MockOrderRepository is an in-memory implementation of OrderRepository.
type MockOrderRepository struct {
	s *MemoryStore
}

// NewMockOrderRepository creates a new instance of MockOrderRepository.
func NewMockOrderRepository(store *MemoryStore) *MockOrderRepository {
	return &MockOrderRepository{s: store}
}

// Create adds a new order.
func (r *MockOrderRepository) Create(_ context.Context, order *models.Order) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	if order.ID == "" {
		order.ID = uuid.New().String()
	}
	if order.CreatedAt.IsZero() {
		order.CreatedAt = time.Now()
	}
	order.UpdatedAt = order.CreatedAt
	for i := range order.Items {
		order.Items[i].ID = uint(i + 1)
		order.Items[i].OrderID = order.ID
	}
	r.s.orders[order.ID] = cloneOrder(*order)
	return nil
}

// GetByID returns an order by its ID.
func (r *MockOrderRepository) GetByID(_ context.Context, id string) (*models.Order, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	order, ok := r.s.orders[id]
	if !ok {
		return nil, apperrors.NotFound("order", id)
	}
	order = cloneOrder(order)
	return &order, nil
}

// List returns orders matching filter, newest first.
func (r *MockOrderRepository) List(_ context.Context, filter OrderFilter) ([]models.Order, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	orderList := make([]models.Order, 0, len(r.s.orders))
	for _, o := range r.s.orders {
		if filter.UserID != "" && (o.UserID == nil || *o.UserID != filter.UserID) {
			continue
		}
		if filter.Status != "" && o.Status != filter.Status {
			continue
		}
		orderList = append(orderList, cloneOrder(o))
	}
	sort.Slice(orderList, func(i, j int) bool { return orderList[i].CreatedAt.After(orderList[j].CreatedAt) })
	return orderList, nil
}

// UpdateStatus applies a status change and any resulting accrual under the
// store lock. Every check runs before the first write, so a failure leaves
// the store untouched.
func (r *MockOrderRepository) UpdateStatus(_ context.Context, id string, to models.OrderStatus, accrue AccrualFunc) (*StatusChange, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	stored, ok := r.s.orders[id]
	if !ok {
		return nil, apperrors.NotFound("order", id)
	}
	order := cloneOrder(stored)

	plan, err := models.PlanTransition(order.Status, to)
	if err != nil {
		return nil, err
	}
	change := &StatusChange{Order: &order, Transition: plan}
	if plan.Noop {
		return change, nil
	}

	order.Status = plan.To
	order.UpdatedAt = time.Now()

	var points int64
	var description string
	if plan.Accrues() && !order.IsGuest() && accrue != nil {
		points, description, err = accrue(&order)
		if err != nil {
			return nil, err
		}
		if points > 0 {
			if _, ok := r.s.users[*order.UserID]; !ok {
				return nil, apperrors.NotFound("user", *order.UserID)
			}
			if r.s.hasEarnedLocked(order.ID) {
				return nil, apperrors.Conflict("points already recorded for order %s", order.ID)
			}
		}
	}

	r.s.orders[id] = cloneOrder(order)
	if points > 0 {
		if err := r.s.addPointsLocked(*order.UserID, points); err != nil {
			return nil, err
		}
		award, err := r.s.recordEarnedLocked(*order.UserID, points, description, order.ID)
		if err != nil {
			return nil, err
		}
		change.Award = award
	}
	return change, nil
}
