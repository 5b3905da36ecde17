package models

import "time"

// Wallet carries a member's reward balances.
type Wallet struct {
	MemberID      string    `gorm:"column:member_id;type:text;primaryKey"`
	EXP           int64     `gorm:"column:exp;not null;default:0"`
	ActivityPoint int64     `gorm:"column:activity_point;not null;default:0"`
	Credit        int64     `gorm:"column:credit;not null;default:0"`
	UpdatedAt     time.Time `gorm:"column:updated_at;autoUpdateTime"`
}

func (Wallet) TableName() string { return "wallets" }
