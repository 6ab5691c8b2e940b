package repositories

import (
	"context"

	"kedai/internal/models"
)

// OrderFilter narrows an order listing. Empty fields do not filter.
type OrderFilter struct {
	UserID string
	Status models.OrderStatus
}

// AccrualFunc computes the award for an order that has just completed. It
// runs inside the repository's transaction and must not do I/O.
type AccrualFunc func(order *models.Order) (points int64, description string, err error)

// StatusChange is the committed result of UpdateStatus.
type StatusChange struct {
	Order      *models.Order
	Transition models.Transition
	// Award is the ledger entry written by this call, if any.
	Award *models.PointsHistory
}

// OrderRepository defines the interface for order data access.
//
// UpdateStatus owns the transaction boundary for a status change: it reads
// the current status under a lock, checks the transition table, writes the
// new status conditionally on the status it read and, when the order enters
// completed, runs accrue and writes the balance increment and ledger entry
// in the same unit.
type OrderRepository interface {
	Create(ctx context.Context, order *models.Order) error
	GetByID(ctx context.Context, id string) (*models.Order, error)
	List(ctx context.Context, filter OrderFilter) ([]models.Order, error)
	UpdateStatus(ctx context.Context, id string, to models.OrderStatus, accrue AccrualFunc) (*StatusChange, error)
}
