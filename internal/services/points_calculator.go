package services

import (
	"github.com/go-faster/errors"

	"kedai/internal/apperrors"
	"kedai/internal/models"
)

const (
	// SpendPerPoint is the amount, in minor currency units, that earns one
	// point. Rounding is per line, not per order.
	SpendPerPoint = 1000
	// CoffeeMultiplier scales the points of coffee lines.
	CoffeeMultiplier = 2
)

// ErrNegativeTotal is returned for a line item with a negative total, which
// would otherwise produce negative points.
var ErrNegativeTotal = errors.Wrap(apperrors.ErrConsistency, "order item total is negative")

// CalculatePoints returns the loyalty points earned by items:
// floor(total/SpendPerPoint) per line, doubled for coffee, summed.
func CalculatePoints(items []models.OrderItem) (int64, error) {
	var points int64
	for i, item := range items {
		if item.Total < 0 {
			return 0, errors.Wrapf(ErrNegativeTotal, "item %d (%s): %d", i, item.ProductID, item.Total)
		}
		base := item.Total / SpendPerPoint
		if item.Category == models.CategoryCoffee {
			base *= CoffeeMultiplier
		}
		points += base
	}
	return points, nil
}
