package repositories

import (
	"context"

	"github.com/go-faster/errors"
	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"kedai/internal/apperrors"
	"kedai/internal/models"
)

// GORMPointsRepository is a GORM implementation of PointsRepository. Built on
// a transaction handle it writes inside that transaction.
type GORMPointsRepository struct {
	db *gorm.DB
}

// NewGORMPointsRepository creates a new instance of GORMPointsRepository.
func NewGORMPointsRepository(db *gorm.DB) *GORMPointsRepository {
	return &GORMPointsRepository{db: db}
}

// RecordEarned appends an earned entry.
func (r *GORMPointsRepository) RecordEarned(ctx context.Context, userID string, points int64, description, orderID string) (*models.PointsHistory, error) {
	entry, err := newEarnedEntry(userID, points, description, orderID)
	if err != nil {
		return nil, err
	}
	if err := r.db.WithContext(ctx).Create(entry).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return nil, apperrors.Conflict("points already recorded for order %s", orderID)
		}
		return nil, errors.Wrap(err, "record earned points")
	}
	return entry, nil
}

// ListByUser returns up to limit entries, newest first.
func (r *GORMPointsRepository) ListByUser(ctx context.Context, userID string, limit int) ([]models.PointsHistory, error) {
	if limit <= 0 {
		limit = DefaultHistoryLimit
	}
	var history []models.PointsHistory
	err := r.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("created_at DESC").
		Limit(limit).
		Find(&history).Error
	if err != nil {
		return nil, errors.Wrapf(err, "list points history for user %s", userID)
	}
	return history, nil
}

// Audit sums the ledger next to the balance and optionally corrects drift.
// The user row is locked only when fix is set.
func (r *GORMPointsRepository) Audit(ctx context.Context, userID string, fix bool) (*PointsAudit, error) {
	var audit *PointsAudit
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		query := tx
		if fix {
			query = tx.Clauses(clause.Locking{Strength: "UPDATE"})
		}
		var user models.User
		if err := query.First(&user, "id = ?", userID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return apperrors.NotFound("user", userID)
			}
			return errors.Wrapf(err, "load user %s", userID)
		}

		var total int64
		err := tx.Model(&models.PointsHistory{}).
			Select("COALESCE(SUM(CASE WHEN type = ? THEN -points ELSE points END), 0)", models.PointsRedeemed).
			Where("user_id = ?", userID).
			Scan(&total).Error
		if err != nil {
			return errors.Wrapf(err, "sum ledger for user %s", userID)
		}

		audit = &PointsAudit{
			UserID:      userID,
			Balance:     user.LoyaltyPoints,
			LedgerTotal: total,
			Drift:       user.LoyaltyPoints - total,
		}
		if !fix || audit.Drift == 0 {
			return nil
		}
		if err := NewGORMUserRepository(tx).AddLoyaltyPoints(ctx, userID, -audit.Drift); err != nil {
			return err
		}
		audit.Corrected = true
		return nil
	})
	if err != nil {
		return nil, err
	}
	return audit, nil
}

func newEarnedEntry(userID string, points int64, description, orderID string) (*models.PointsHistory, error) {
	if userID == "" {
		return nil, apperrors.Invalid("user_id", "required")
	}
	if points <= 0 {
		return nil, apperrors.Invalid("points", "must be positive, got %d", points)
	}
	entry := &models.PointsHistory{
		ID:          uuid.New().String(),
		UserID:      userID,
		Type:        models.PointsEarned,
		Points:      points,
		Description: description,
	}
	if orderID != "" {
		entry.OrderID = &orderID
	}
	return entry, nil
}
