package services

import (
	"context"
	"encoding/json"
	"strings"

	"github.com/go-faster/errors"
	"go.uber.org/zap"

	"kedai/internal/apperrors"
	"kedai/internal/events"
	"kedai/internal/models"
	"kedai/internal/repositories"
)

// maxHistoryLimit caps how many ledger entries one call may return.
const maxHistoryLimit = 200

// PointsService answers loyalty balance and history queries and audits the
// balance against the ledger.
type PointsService struct {
	ledger repositories.PointsRepository
	logger *zap.Logger
}

// NewPointsService creates a new PointsService.
func NewPointsService(ledger repositories.PointsRepository, logger *zap.Logger) *PointsService {
	return &PointsService{ledger: ledger, logger: logger}
}

// History returns the user's ledger entries, newest first. A non-positive
// limit selects the default of 50.
func (s *PointsService) History(ctx context.Context, userID string, limit int) ([]models.PointsHistory, error) {
	if strings.TrimSpace(userID) == "" {
		return nil, apperrors.Invalid("user_id", "is required")
	}
	if limit <= 0 {
		limit = repositories.DefaultHistoryLimit
	}
	if limit > maxHistoryLimit {
		limit = maxHistoryLimit
	}
	return s.ledger.ListByUser(ctx, userID, limit)
}

// Balance reports the running balance next to the ledger total.
func (s *PointsService) Balance(ctx context.Context, userID string) (*repositories.PointsAudit, error) {
	if strings.TrimSpace(userID) == "" {
		return nil, apperrors.Invalid("user_id", "is required")
	}
	return s.ledger.Audit(ctx, userID, false)
}

// Reconcile brings the running balance back in line with the ledger.
func (s *PointsService) Reconcile(ctx context.Context, userID string) (*repositories.PointsAudit, error) {
	if strings.TrimSpace(userID) == "" {
		return nil, apperrors.Invalid("user_id", "is required")
	}
	audit, err := s.ledger.Audit(ctx, userID, true)
	if err != nil {
		return nil, err
	}
	if audit.Corrected {
		s.logger.Warn("Loyalty balance reconciled",
			zap.String("user_id", userID),
			zap.Int64("balance", audit.Balance),
			zap.Int64("ledger_total", audit.LedgerTotal),
			zap.Int64("drift", audit.Drift),
		)
	}
	return audit, nil
}

// HandlePointsEarned is the consumer for points.earned events. It only
// detects drift; correcting it is left to an explicit Reconcile.
func (s *PointsService) HandlePointsEarned(ctx context.Context, body []byte) error {
	var event events.PointsEarnedEvent
	if err := json.Unmarshal(body, &event); err != nil {
		// Malformed payloads cannot succeed on redelivery.
		s.logger.Warn("Dropping malformed points event", zap.Error(err))
		return nil
	}

	audit, err := s.Balance(ctx, event.UserID)
	if err != nil {
		if errors.Is(err, apperrors.ErrNotFound) || errors.Is(err, apperrors.ErrValidation) {
			s.logger.Warn("Points event for unknown user", zap.String("user_id", event.UserID), zap.Error(err))
			return nil
		}
		return errors.Wrap(err, "audit points")
	}
	if audit.Drift != 0 {
		s.logger.Warn("Loyalty balance drifted from ledger",
			zap.String("user_id", audit.UserID),
			zap.String("order_id", event.OrderID),
			zap.Int64("balance", audit.Balance),
			zap.Int64("ledger_total", audit.LedgerTotal),
			zap.Int64("drift", audit.Drift),
		)
	}
	return nil
}
