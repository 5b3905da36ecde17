package ledger

import (
	"context"
	"fmt"

	"gorm.io/gorm"

	"github.com/cody-community/cody-backend/internal/repo"
	"github.com/cody-community/cody-backend/pkg/db/models"
	"github.com/cody-community/cody-backend/pkg/enums"
	"github.com/cody-community/cody-backend/pkg/pagination"
)

// Repository manages persistence for wallets and reward logs.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	FindWallet(ctx context.Context, memberID string) (*models.Wallet, error)
	ApplyDelta(ctx context.Context, memberID string, currency enums.RewardCurrency, delta int64) error
	CreateLog(ctx context.Context, entry *models.RewardLog) error
	ListLogs(ctx context.Context, memberID string, limit int, after *pagination.Cursor) ([]models.RewardLog, error)
}

type repository struct {
	repo.Base
}

// NewRepository returns a ledger repository bound to the provided database.
func NewRepository(db *gorm.DB) Repository {
	return &repository{Base: repo.NewBase(db)}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{Base: repo.NewBase(tx)}
}

// FindWallet returns gorm.ErrRecordNotFound when the member has no wallet.
func (r *repository) FindWallet(ctx context.Context, memberID string) (*models.Wallet, error) {
	var wallet models.Wallet
	if err := r.DB(ctx).Where("member_id = ?", memberID).First(&wallet).Error; err != nil {
		return nil, err
	}
	return &wallet, nil
}

func (r *repository) ApplyDelta(ctx context.Context, memberID string, currency enums.RewardCurrency, delta int64) error {
	column, err := balanceColumn(currency)
	if err != nil {
		return err
	}
	return r.UpdateOne(ctx, &models.Wallet{}, map[string]any{column: gorm.Expr(column+" + ?", delta)}, "member_id = ?", memberID)
}

func (r *repository) CreateLog(ctx context.Context, entry *models.RewardLog) error {
	return r.DB(ctx).Create(entry).Error
}

// ListLogs returns logs newest first, strictly after the cursor when one is given.
func (r *repository) ListLogs(ctx context.Context, memberID string, limit int, after *pagination.Cursor) ([]models.RewardLog, error) {
	query := r.DB(ctx).Where("member_id = ?", memberID)
	if after != nil {
		query = query.Where("(created_at < ? OR (created_at = ? AND id < ?))", after.CreatedAt, after.CreatedAt, after.ID)
	}
	var logs []models.RewardLog
	if err := query.Order("created_at DESC, id DESC").Limit(limit).Find(&logs).Error; err != nil {
		return nil, err
	}
	return logs, nil
}

func balanceColumn(currency enums.RewardCurrency) (string, error) {
	switch currency {
	case enums.RewardCurrencyEXP:
		return "exp", nil
	case enums.RewardCurrencyCredit:
		return "credit", nil
	default:
		return "", fmt.Errorf("invalid reward currency %q", currency)
	}
}
