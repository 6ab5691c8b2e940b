package models

import "time"

// PointsType tells whether a ledger entry adds to or takes from a balance.
type PointsType string

const (
	PointsEarned   PointsType = "earned"
	PointsRedeemed PointsType = "redeemed"
)

// PointsHistory is one immutable row of the loyalty ledger. Points is a
// non-negative magnitude; Type carries the sign.
type PointsHistory struct {
	ID          string     `json:"id" gorm:"primaryKey;type:varchar(36)"`
	UserID      string     `json:"user_id" gorm:"type:varchar(36);not null;index"`
	Type        PointsType `json:"type" gorm:"type:varchar(10);not null;uniqueIndex:idx_points_order_type"`
	Points      int64      `json:"points" gorm:"not null;check:points >= 0"`
	Description string     `json:"description" gorm:"type:varchar(255)"`
	OrderID     *string    `json:"order_id,omitempty" gorm:"type:varchar(36);uniqueIndex:idx_points_order_type"`
	CreatedAt   time.Time  `json:"created_at" gorm:"index"`
}

// TableName keeps the ledger table name stable.
func (PointsHistory) TableName() string { return "points_history" }

// Delta returns the signed contribution of the entry to a balance.
func (h PointsHistory) Delta() int64 {
	if h.Type == PointsRedeemed {
		return -h.Points
	}
	return h.Points
}
