package models

import "time"

// Category classifies catalog products. Values are the lowercase tokens used
// on the wire.
type Category string

const (
	CategoryCoffee Category = "coffee"
	CategoryTea    Category = "tea"
	CategorySnacks Category = "snacks"
)

// MaxPrice caps catalog prices, in the smallest currency unit.
const MaxPrice = 100_000_000

// Valid reports whether c is one of the known categories.
func (c Category) Valid() bool {
	switch c {
	case CategoryCoffee, CategoryTea, CategorySnacks:
		return true
	}
	return false
}

// Product represents a product in the catalog. Prices are integer amounts in
// the smallest currency unit.
type Product struct {
	ID          string        `json:"id" gorm:"primaryKey;type:varchar(36)" validate:"omitempty,uuid"`
	Name        string        `json:"name" gorm:"type:varchar(100);not null" validate:"required,min=2,max=100"`
	Description string        `json:"description" gorm:"type:text" validate:"omitempty,max=500"`
	BasePrice   int64         `json:"price" gorm:"not null;check:base_price >= 0" validate:"gte=0,lte=100000000"`
	Image       string        `json:"image" gorm:"type:varchar(500)" validate:"omitempty,url"`
	Category    Category      `json:"category" gorm:"type:varchar(20);not null;index" validate:"required,oneof=coffee tea snacks"`
	Featured    bool          `json:"featured" gorm:"not null;default:false"`
	Sizes       []ProductSize `json:"sizes,omitempty" gorm:"foreignKey:ProductID;constraint:OnDelete:CASCADE" validate:"dive"`
	CreatedAt   time.Time     `json:"created_at"`
	UpdatedAt   time.Time     `json:"updated_at"`
}

// ProductSize is a named size variant with its own price.
type ProductSize struct {
	ID        uint   `json:"-" gorm:"primaryKey"`
	ProductID string `json:"-" gorm:"type:varchar(36);index;not null"`
	Name      string `json:"name" gorm:"type:varchar(50);not null" validate:"required,max=50"`
	Price     int64  `json:"price" gorm:"not null;check:price >= 0" validate:"gte=0,lte=100000000"`
}

// UnitPrice resolves the price charged for one unit. An empty size selects
// the base price; a non-empty size must name one of the product's sizes.
func (p *Product) UnitPrice(size string) (int64, bool) {
	if size == "" {
		return p.BasePrice, true
	}
	for _, s := range p.Sizes {
		if s.Name == size {
			return s.Price, true
		}
	}
	return 0, false
}
