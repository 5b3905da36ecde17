package members

import (
	"context"
	"time"

	"gorm.io/gorm"

	"github.com/cody-community/cody-backend/internal/repo"
	"github.com/cody-community/cody-backend/pkg/db/models"
	"github.com/cody-community/cody-backend/pkg/enums"
)

// Repository persists onboarding records.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	Ensure(ctx context.Context, memberID string) error
	FindByID(ctx context.Context, memberID string) (*models.Member, error)
	LockByID(ctx context.Context, memberID string) (*models.Member, error)
	SetDisplayName(ctx context.Context, memberID string, name *string) error
	MarkAgeVerified(ctx context.Context, memberID string, at time.Time) error
	CompareAndSwapRank(ctx context.Context, memberID string, from, to enums.Rank) (bool, error)
	ResetOnboarding(ctx context.Context, memberID string) error
}

type repository struct {
	repo.Base
}

// NewRepository returns a members repository bound to the provided database.
func NewRepository(db *gorm.DB) Repository {
	return &repository{Base: repo.NewBase(db)}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{Base: repo.NewBase(tx)}
}

// Ensure creates the member and wallet rows with defaults when absent.
func (r *repository) Ensure(ctx context.Context, memberID string) error {
	return r.CreateIfAbsent(ctx,
		&models.Member{MemberID: memberID, Rank: enums.RankNone},
		&models.Wallet{MemberID: memberID},
	)
}

// FindByID returns gorm.ErrRecordNotFound when the member is unknown.
func (r *repository) FindByID(ctx context.Context, memberID string) (*models.Member, error) {
	var member models.Member
	if err := r.DB(ctx).Where("member_id = ?", memberID).First(&member).Error; err != nil {
		return nil, err
	}
	return &member, nil
}

// LockByID reads the member and holds its row lock for the rest of the transaction.
func (r *repository) LockByID(ctx context.Context, memberID string) (*models.Member, error) {
	var member models.Member
	if err := r.ForUpdate(ctx).Where("member_id = ?", memberID).First(&member).Error; err != nil {
		return nil, err
	}
	return &member, nil
}

func (r *repository) SetDisplayName(ctx context.Context, memberID string, name *string) error {
	return r.UpdateOne(ctx, &models.Member{}, map[string]any{"display_name": name}, "member_id = ?", memberID)
}

// MarkAgeVerified records the first verification only; later calls keep the original timestamp.
func (r *repository) MarkAgeVerified(ctx context.Context, memberID string, at time.Time) error {
	return r.DB(ctx).Model(&models.Member{}).
		Where("member_id = ? AND age_verified_at IS NULL", memberID).
		Update("age_verified_at", at).Error
}

// CompareAndSwapRank moves the rank from `from` to `to` and reports whether this caller won.
func (r *repository) CompareAndSwapRank(ctx context.Context, memberID string, from, to enums.Rank) (bool, error) {
	return r.UpdateIf(ctx, &models.Member{}, map[string]any{"rank": to}, "member_id = ? AND rank = ?", memberID, from)
}

// ResetOnboarding returns the record to its first-contact state.
func (r *repository) ResetOnboarding(ctx context.Context, memberID string) error {
	return r.DB(ctx).Model(&models.Member{}).
		Where("member_id = ?", memberID).
		Updates(map[string]any{
			"display_name":    nil,
			"age_verified_at": nil,
			"rank":            enums.RankNone,
		}).Error
}
