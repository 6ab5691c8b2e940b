package repositories

import (
	"sync"

	"kedai/internal/models"
)

// MemoryStore is the shared state behind the in-memory repositories. A single
// lock guards every map, so a status change, its balance increment and its
// ledger entry are applied as one unit.
type MemoryStore struct {
	mu       sync.RWMutex
	products map[string]models.Product
	orders   map[string]models.Order
	users    map[string]models.User
	ledger   []models.PointsHistory
}

// NewMemoryStore creates an empty store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		products: make(map[string]models.Product),
		orders:   make(map[string]models.Order),
		users:    make(map[string]models.User),
	}
}

func cloneProduct(p models.Product) models.Product {
	p.Sizes = append([]models.ProductSize(nil), p.Sizes...)
	return p
}

func cloneOrder(o models.Order) models.Order {
	o.Items = append([]models.OrderItem(nil), o.Items...)
	if o.UserID != nil {
		uid := *o.UserID
		o.UserID = &uid
	}
	return o
}

func cloneEntry(h models.PointsHistory) models.PointsHistory {
	if h.OrderID != nil {
		oid := *h.OrderID
		h.OrderID = &oid
	}
	return h
}
