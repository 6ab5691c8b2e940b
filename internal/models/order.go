package models

import "time"

// OrderItem is one line of an order. Product name, image, category and unit
// price are copied from the catalog when the order is placed, so later
// catalog edits do not rewrite order history.
type OrderItem struct {
	ID          uint     `json:"-" gorm:"primaryKey"`
	OrderID     string   `json:"-" gorm:"type:varchar(36);index;not null"`
	ProductID   string   `json:"product_id" gorm:"type:varchar(36);not null"`
	ProductName string   `json:"product_name" gorm:"type:varchar(100);not null"`
	Image       string   `json:"image,omitempty" gorm:"type:varchar(500)"`
	Category    Category `json:"category" gorm:"type:varchar(20);not null"`
	Size        string   `json:"size,omitempty" gorm:"type:varchar(50)"`
	Quantity    int      `json:"quantity" gorm:"not null;check:quantity > 0"`
	UnitPrice   int64    `json:"unit_price" gorm:"not null"`
	Total       int64    `json:"total" gorm:"not null"`
}

// Order represents a customer order. UserID is nil for guest orders.
type Order struct {
	ID           string      `json:"id" gorm:"primaryKey;type:varchar(36)"`
	UserID       *string     `json:"user_id,omitempty" gorm:"type:varchar(36);index"`
	CustomerName string      `json:"customer_name" gorm:"type:varchar(100);not null"`
	Notes        string      `json:"notes,omitempty" gorm:"type:text"`
	Items        []OrderItem `json:"items" gorm:"foreignKey:OrderID;constraint:OnDelete:CASCADE"`
	Total        int64       `json:"total" gorm:"not null"`
	Status       OrderStatus `json:"status" gorm:"type:varchar(20);not null;index"`
	CreatedAt    time.Time   `json:"created_at" gorm:"index"`
	UpdatedAt    time.Time   `json:"updated_at"`
}

// ItemsTotal sums the line totals.
func (o *Order) ItemsTotal() int64 {
	var sum int64
	for _, item := range o.Items {
		sum += item.Total
	}
	return sum
}

// IsGuest reports whether the order has no owning user.
func (o *Order) IsGuest() bool {
	return o.UserID == nil || *o.UserID == ""
}
