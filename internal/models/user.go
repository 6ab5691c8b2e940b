package models

import "time"

// Role is the access level of a user.
type Role string

const (
	RoleUser  Role = "USER"
	RoleAdmin Role = "ADMIN"
)

// User represents a user of the store. LoyaltyPoints is the denormalized
// running balance; it is only ever changed by an atomic increment.
type User struct {
	ID            string    `json:"id" gorm:"primaryKey;type:varchar(36)" validate:"omitempty,uuid"`
	Username      string    `json:"username" gorm:"uniqueIndex;type:varchar(100)" validate:"required,min=3,max=100"`
	Email         string    `json:"email" gorm:"uniqueIndex;type:varchar(255)" validate:"required,email"`
	Name          string    `json:"name" gorm:"type:varchar(100)" validate:"omitempty,max=100"`
	Phone         string    `json:"phone" gorm:"type:varchar(30)" validate:"omitempty,max=30"`
	Password      string    `json:"-" gorm:"type:varchar(255)" validate:"required,min=6"`
	Role          Role      `json:"role" gorm:"type:varchar(10);not null;default:USER"`
	LoyaltyPoints int64     `json:"loyalty_points" gorm:"not null;default:0"`
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`
}
