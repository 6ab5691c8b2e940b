package repositories

import (
	"context"
	"time"

	"github.com/go-faster/errors"
	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"kedai/internal/apperrors"
	"kedai/internal/models"
)

// GORMOrderRepository is a GORM implementation of OrderRepository.
type GORMOrderRepository struct {
	db *gorm.DB
}

// NewGORMOrderRepository creates a new instance of GORMOrderRepository.
func NewGORMOrderRepository(db *gorm.DB) *GORMOrderRepository {
	return &GORMOrderRepository{db: db}
}

// Create persists the order header and its items in one transaction.
func (r *GORMOrderRepository) Create(ctx context.Context, order *models.Order) error {
	if order.ID == "" {
		order.ID = uuid.New().String()
	}
	if err := r.db.WithContext(ctx).Create(order).Error; err != nil {
		return errors.Wrap(err, "create order")
	}
	return nil
}

// GetByID returns the order with its items.
func (r *GORMOrderRepository) GetByID(ctx context.Context, id string) (*models.Order, error) {
	var order models.Order
	err := r.db.WithContext(ctx).Preload("Items", orderItems).First(&order, "id = ?", id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.NotFound("order", id)
		}
		return nil, errors.Wrapf(err, "get order %s", id)
	}
	return &order, nil
}

// List returns orders matching filter, newest first.
func (r *GORMOrderRepository) List(ctx context.Context, filter OrderFilter) ([]models.Order, error) {
	q := r.db.WithContext(ctx).Model(&models.Order{}).Preload("Items", orderItems)
	if filter.UserID != "" {
		q = q.Where("user_id = ?", filter.UserID)
	}
	if filter.Status != "" {
		q = q.Where("status = ?", filter.Status)
	}

	var orders []models.Order
	if err := q.Order("created_at DESC").Find(&orders).Error; err != nil {
		return nil, errors.Wrap(err, "list orders")
	}
	return orders, nil
}

// UpdateStatus applies a status change and any resulting accrual atomically.
func (r *GORMOrderRepository) UpdateStatus(ctx context.Context, id string, to models.OrderStatus, accrue AccrualFunc) (*StatusChange, error) {
	var change *StatusChange
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var order models.Order
		if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).First(&order, "id = ?", id).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return apperrors.NotFound("order", id)
			}
			return errors.Wrapf(err, "lock order %s", id)
		}
		if err := tx.Where("order_id = ?", id).Order("id").Find(&order.Items).Error; err != nil {
			return errors.Wrapf(err, "load items of order %s", id)
		}

		plan, err := models.PlanTransition(order.Status, to)
		if err != nil {
			return err
		}
		change = &StatusChange{Order: &order, Transition: plan}
		if plan.Noop {
			return nil
		}

		now := time.Now()
		res := tx.Model(&models.Order{}).
			Where("id = ? AND status = ?", id, plan.From).
			Updates(map[string]any{"status": plan.To, "updated_at": now})
		if res.Error != nil {
			return errors.Wrapf(res.Error, "update status of order %s", id)
		}
		if res.RowsAffected == 0 {
			return apperrors.Conflict("order %s left status %s concurrently", id, plan.From)
		}
		order.Status = plan.To
		order.UpdatedAt = now

		if !plan.Accrues() || order.IsGuest() || accrue == nil {
			return nil
		}
		points, description, err := accrue(&order)
		if err != nil {
			return err
		}
		if points <= 0 {
			return nil
		}

		if err := NewGORMUserRepository(tx).AddLoyaltyPoints(ctx, *order.UserID, points); err != nil {
			return err
		}
		award, err := NewGORMPointsRepository(tx).RecordEarned(ctx, *order.UserID, points, description, order.ID)
		if err != nil {
			return err
		}
		change.Award = award
		return nil
	})
	if err != nil {
		return nil, err
	}
	return change, nil
}

func orderItems(db *gorm.DB) *gorm.DB {
	return db.Order("id")
}
