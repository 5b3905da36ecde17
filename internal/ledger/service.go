package ledger

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/cody-community/cody-backend/pkg/db/models"
	"github.com/cody-community/cody-backend/pkg/enums"
	pkgerrors "github.com/cody-community/cody-backend/pkg/errors"
	"github.com/cody-community/cody-backend/pkg/pagination"
)

// DefaultChannelID is recorded when a reward has no originating channel.
const DefaultChannelID = "SYSTEM"

// Service defines the reward bookkeeping used by onboarding.
type Service interface {
	GrantStarter(ctx context.Context, tx *gorm.DB, input GrantInput) ([]models.RewardLog, error)
	Wallet(ctx context.Context, memberID string) (*models.Wallet, error)
	History(ctx context.Context, memberID string, params pagination.Params) (*HistoryPage, error)
}

// HistoryPage is one newest-first slice of a member's reward logs.
type HistoryPage struct {
	Items      []models.RewardLog
	NextCursor string
}

// GrantInput captures a reward applied to a single member.
type GrantInput struct {
	MemberID  string
	ChannelID string
	EXP       int64
	Credit    int64
}

type service struct {
	repo Repository
}

// NewService wires a ledger service with the provided repository.
func NewService(repo Repository) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("ledger repository required")
	}
	return &service{repo: repo}, nil
}

// GrantStarter credits the onboarding reward inside the caller's transaction.
// Zero amounts write nothing.
func (s *service) GrantStarter(ctx context.Context, tx *gorm.DB, input GrantInput) ([]models.RewardLog, error) {
	memberID := strings.TrimSpace(input.MemberID)
	if memberID == "" {
		return nil, fmt.Errorf("member id is required")
	}
	if input.EXP < 0 || input.Credit < 0 {
		return nil, fmt.Errorf("starter grant amounts must not be negative")
	}
	channelID := strings.TrimSpace(input.ChannelID)
	if channelID == "" {
		channelID = DefaultChannelID
	}

	repo := s.repo.WithTx(tx)
	amounts := []struct {
		currency enums.RewardCurrency
		delta    int64
	}{
		{currency: enums.RewardCurrencyEXP, delta: input.EXP},
		{currency: enums.RewardCurrencyCredit, delta: input.Credit},
	}

	var entries []models.RewardLog
	for _, amount := range amounts {
		if amount.delta == 0 {
			continue
		}
		if err := repo.ApplyDelta(ctx, memberID, amount.currency, amount.delta); err != nil {
			return nil, pkgerrors.WrapStorage(err, "apply starter grant")
		}
		entry := models.RewardLog{
			ID:         uuid.New(),
			MemberID:   memberID,
			Currency:   amount.currency,
			Delta:      amount.delta,
			SourceType: enums.RewardSourceStarterGrant,
			ChannelID:  channelID,
		}
		if err := repo.CreateLog(ctx, &entry); err != nil {
			return nil, pkgerrors.WrapStorage(err, "record starter grant")
		}
		entries = append(entries, entry)
	}
	return entries, nil
}

func (s *service) Wallet(ctx context.Context, memberID string) (*models.Wallet, error) {
	wallet, err := s.repo.FindWallet(ctx, memberID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "wallet not found")
		}
		return nil, pkgerrors.WrapStorage(err, "load wallet")
	}
	return wallet, nil
}

func (s *service) History(ctx context.Context, memberID string, params pagination.Params) (*HistoryPage, error) {
	memberID = strings.TrimSpace(memberID)
	if memberID == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "member id is required")
	}
	after, err := pagination.Parse(params.Cursor)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid cursor")
	}

	limit := pagination.NormalizeLimit(params.Limit)
	logs, err := s.repo.ListLogs(ctx, memberID, pagination.LimitWithBuffer(params.Limit), after)
	if err != nil {
		return nil, pkgerrors.WrapStorage(err, "list reward logs")
	}

	page := &HistoryPage{Items: logs}
	if len(logs) > limit {
		page.Items = logs[:limit]
		last := page.Items[limit-1]
		page.NextCursor = pagination.Encode(pagination.Cursor{CreatedAt: last.CreatedAt, ID: last.ID})
	}
	return page, nil
}
