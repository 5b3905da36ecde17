package models

import (
	"time"

	"github.com/cody-community/cody-backend/pkg/enums"
)

// MentorAssignment is the single, immutable mentor decision of a mentee.
// MentorID is nil exactly when Status is SKIPPED.
type MentorAssignment struct {
	MenteeID  string                 `gorm:"column:mentee_id;type:text;primaryKey"`
	MentorID  *string                `gorm:"column:mentor_id;type:text"`
	Status    enums.AssignmentStatus `gorm:"column:status;type:text;not null"`
	ChannelID string                 `gorm:"column:channel_id;type:text;not null"`
	DecidedAt time.Time              `gorm:"column:decided_at;not null"`
}

func (MentorAssignment) TableName() string { return "mentor_assignments" }
