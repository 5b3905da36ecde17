package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/cody-community/cody-backend/pkg/enums"
)

// RewardLog records an immutable balance change applied to a wallet.
type RewardLog struct {
	ID         uuid.UUID            `gorm:"column:id;type:uuid;primaryKey"`
	MemberID   string               `gorm:"column:member_id;type:text;not null"`
	Currency   enums.RewardCurrency `gorm:"column:currency;type:text;not null"`
	Delta      int64                `gorm:"column:delta;not null"`
	SourceType enums.RewardSource   `gorm:"column:source_type;type:text;not null"`
	SourceID   *string              `gorm:"column:source_id;type:text"`
	ChannelID  string               `gorm:"column:channel_id;type:text;not null"`
	CreatedAt  time.Time            `gorm:"column:created_at;autoCreateTime"`
}

func (RewardLog) TableName() string { return "reward_logs" }
