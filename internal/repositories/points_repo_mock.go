package repositories

import (
	"context"
	"sort"
	"time"

	"kedai/internal/apperrors"
	"kedai/internal/models"
)

// MockPointsRepository is an in-memory implementation of PointsRepository.
type MockPointsRepository struct {
	s *MemoryStore
}

// NewMockPointsRepository creates a new instance of MockPointsRepository.
func NewMockPointsRepository(store *MemoryStore) *MockPointsRepository {
	return &MockPointsRepository{s: store}
}

// RecordEarned appends an earned entry.
func (r *MockPointsRepository) RecordEarned(_ context.Context, userID string, points int64, description, orderID string) (*models.PointsHistory, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	return r.s.recordEarnedLocked(userID, points, description, orderID)
}

// ListByUser returns up to limit entries, newest first.
func (r *MockPointsRepository) ListByUser(_ context.Context, userID string, limit int) ([]models.PointsHistory, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	if limit <= 0 {
		limit = DefaultHistoryLimit
	}
	history := make([]models.PointsHistory, 0)
	for _, h := range r.s.ledger {
		if h.UserID == userID {
			history = append(history, cloneEntry(h))
		}
	}
	// The ledger is append-only, so reversing insertion order keeps entries
	// with equal timestamps newest first.
	for i, j := 0, len(history)-1; i < j; i, j = i+1, j-1 {
		history[i], history[j] = history[j], history[i]
	}
	sort.SliceStable(history, func(i, j int) bool { return history[i].CreatedAt.After(history[j].CreatedAt) })
	if len(history) > limit {
		history = history[:limit]
	}
	return history, nil
}

// Audit compares the balance with the ledger under the store lock.
func (r *MockPointsRepository) Audit(_ context.Context, userID string, fix bool) (*PointsAudit, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	u, ok := r.s.users[userID]
	if !ok {
		return nil, apperrors.NotFound("user", userID)
	}
	var total int64
	for _, h := range r.s.ledger {
		if h.UserID == userID {
			total += h.Delta()
		}
	}
	audit := &PointsAudit{
		UserID:      userID,
		Balance:     u.LoyaltyPoints,
		LedgerTotal: total,
		Drift:       u.LoyaltyPoints - total,
	}
	if fix && audit.Drift != 0 {
		if err := r.s.addPointsLocked(userID, -audit.Drift); err != nil {
			return nil, err
		}
		audit.Corrected = true
	}
	return audit, nil
}

func (s *MemoryStore) recordEarnedLocked(userID string, points int64, description, orderID string) (*models.PointsHistory, error) {
	entry, err := newEarnedEntry(userID, points, description, orderID)
	if err != nil {
		return nil, err
	}
	if orderID != "" && s.hasEarnedLocked(orderID) {
		return nil, apperrors.Conflict("points already recorded for order %s", orderID)
	}
	entry.CreatedAt = time.Now()
	s.ledger = append(s.ledger, *entry)
	return entry, nil
}

func (s *MemoryStore) hasEarnedLocked(orderID string) bool {
	for _, h := range s.ledger {
		if h.Type == models.PointsEarned && h.OrderID != nil && *h.OrderID == orderID {
			return true
		}
	}
	return false
}
