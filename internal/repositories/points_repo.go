package repositories

import (
	"context"

	"kedai/internal/models"
)

// DefaultHistoryLimit caps a history listing when the caller gives no limit.
const DefaultHistoryLimit = 50

// PointsAudit compares a user's denormalized balance with the ledger.
type PointsAudit struct {
	UserID      string `json:"user_id"`
	Balance     int64  `json:"balance"`
	LedgerTotal int64  `json:"ledger_total"`
	Drift       int64  `json:"drift"`
	Corrected   bool   `json:"corrected"`
}

// PointsRepository is the append-only loyalty ledger.
type PointsRepository interface {
	// RecordEarned appends one earned entry. points must be positive.
	RecordEarned(ctx context.Context, userID string, points int64, description, orderID string) (*models.PointsHistory, error)
	// ListByUser returns the newest entries first.
	ListByUser(ctx context.Context, userID string, limit int) ([]models.PointsHistory, error)
	// Audit reads the balance and the ledger total in one transaction. The
	// user row is locked only when fix is set.
	// With fix set, a drift is removed by incrementing the balance.
	Audit(ctx context.Context, userID string, fix bool) (*PointsAudit, error)
}
