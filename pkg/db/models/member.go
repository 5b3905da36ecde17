package models

import (
	"strings"
	"time"

	"github.com/cody-community/cody-backend/pkg/enums"
)

// Member is the onboarding record of a community participant, keyed by the
// platform-assigned identifier.
type Member struct {
	MemberID      string     `gorm:"column:member_id;type:text;primaryKey"`
	DisplayName   *string    `gorm:"column:display_name;type:text"`
	AgeVerifiedAt *time.Time `gorm:"column:age_verified_at"`
	Rank          enums.Rank `gorm:"column:rank;type:text;not null"`
	CreatedAt     time.Time  `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt     time.Time  `gorm:"column:updated_at;autoUpdateTime"`
}

func (Member) TableName() string { return "members" }

// HasDisplayName reports whether a non-blank display name is recorded.
func (m Member) HasDisplayName() bool {
	return m.DisplayName != nil && strings.TrimSpace(*m.DisplayName) != ""
}

// IsAgeVerified reports whether an age verification timestamp is recorded.
func (m Member) IsAgeVerified() bool {
	return m.AgeVerifiedAt != nil
}
