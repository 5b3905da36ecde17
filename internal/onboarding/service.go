package onboarding

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"

	"github.com/cody-community/cody-backend/internal/ledger"
	"github.com/cody-community/cody-backend/internal/members"
	"github.com/cody-community/cody-backend/internal/mentorship"
	"github.com/cody-community/cody-backend/internal/rankroles"
	"github.com/cody-community/cody-backend/pkg/db/models"
	"github.com/cody-community/cody-backend/pkg/enums"
	pkgerrors "github.com/cody-community/cody-backend/pkg/errors"
	"github.com/cody-community/cody-backend/pkg/logger"
	"github.com/cody-community/cody-backend/pkg/metrics"
)

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
	WithReadTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type decisionClearer interface {
	ClearDecision(ctx context.Context, tx *gorm.DB, menteeID string) error
}

type rewardGranter interface {
	GrantStarter(ctx context.Context, tx *gorm.DB, input ledger.GrantInput) ([]models.RewardLog, error)
}

// Service evaluates onboarding prerequisites and drives the rank ladder.
type Service interface {
	Evaluate(ctx context.Context, memberID string) (Snapshot, error)
	TryComplete(ctx context.Context, input TryCompleteInput) (*CompletionResult, error)
	HandleRejoin(ctx context.Context, memberID string) (*RejoinResult, error)
	Advance(ctx context.Context, input AdvanceInput) (*AdvanceResult, error)
	SyncRoles(ctx context.Context, memberID string) (*rankroles.Result, error)
}

// RewardPolicy is the starter grant applied on promotion to STARTER.
type RewardPolicy struct {
	EXP              int64
	Credit           int64
	DefaultChannelID string
}

// ServiceParams wires the coordinator.
type ServiceParams struct {
	Tx          txRunner
	Members     members.Repository
	Assignments mentorship.Repository
	Decisions   decisionClearer
	Rewards     rewardGranter
	Policy      RewardPolicy
	// Roles is optional; without it no role reconciliation is attempted.
	Roles   rankroles.Reconciler
	Metrics *metrics.OnboardingMetrics
	Logger  *logger.Logger
}

type TryCompleteInput struct {
	MemberID  string
	ChannelID string
	SyncRoles bool
}

// CompletionResult reports the outcome of a completion attempt. A failed role
// sync does not fail the attempt; it is reported in RoleSyncError.
type CompletionResult struct {
	Completed     bool               `json:"completed"`
	Promoted      bool               `json:"promoted"`
	Rank          enums.Rank         `json:"rank"`
	Snapshot      Snapshot           `json:"snapshot"`
	Rewards       []models.RewardLog `json:"rewards,omitempty"`
	RoleSync      *rankroles.Result  `json:"role_sync,omitempty"`
	RoleSyncError error              `json:"-"`
}

// RejoinResult reports whether re-entry reset the record. Snapshot is the
// verdict observed before any reset.
type RejoinResult struct {
	Reset         bool              `json:"reset"`
	Rank          enums.Rank        `json:"rank"`
	Snapshot      Snapshot          `json:"snapshot"`
	RoleSync      *rankroles.Result `json:"role_sync,omitempty"`
	RoleSyncError error             `json:"-"`
}

type AdvanceInput struct {
	MemberID  string
	Target    enums.Rank
	SyncRoles bool
}

type AdvanceResult struct {
	Previous      enums.Rank        `json:"previous"`
	Rank          enums.Rank        `json:"rank"`
	RoleSync      *rankroles.Result `json:"role_sync,omitempty"`
	RoleSyncError error             `json:"-"`
}

type service struct {
	tx          txRunner
	members     members.Repository
	assignments mentorship.Repository
	decisions   decisionClearer
	rewards     rewardGranter
	policy      RewardPolicy
	roles       rankroles.Reconciler
	metrics     *metrics.OnboardingMetrics
	logg        *logger.Logger
}

// NewService validates the coordinator dependencies.
func NewService(params ServiceParams) (Service, error) {
	if params.Tx == nil {
		return nil, fmt.Errorf("transaction runner required")
	}
	if params.Members == nil {
		return nil, fmt.Errorf("members repository required")
	}
	if params.Assignments == nil {
		return nil, fmt.Errorf("mentorship repository required")
	}
	if params.Decisions == nil {
		return nil, fmt.Errorf("decision clearer required")
	}
	if params.Rewards == nil {
		return nil, fmt.Errorf("reward granter required")
	}
	if params.Policy.EXP < 0 || params.Policy.Credit < 0 {
		return nil, fmt.Errorf("starter rewards must not be negative")
	}
	if params.Policy.DefaultChannelID == "" {
		params.Policy.DefaultChannelID = ledger.DefaultChannelID
	}
	return &service{
		tx:          params.Tx,
		members:     params.Members,
		assignments: params.Assignments,
		decisions:   params.Decisions,
		rewards:     params.Rewards,
		policy:      params.Policy,
		roles:       params.Roles,
		metrics:     params.Metrics,
		logg:        params.Logger,
	}, nil
}

// Evaluate reads the three prerequisite facts under one read transaction.
// An unknown member has no name or age fact, but a decision row still counts.
func (s *service) Evaluate(ctx context.Context, memberID string) (Snapshot, error) {
	id, err := members.NormalizeID(memberID)
	if err != nil {
		return Snapshot{}, err
	}

	var snap Snapshot
	err = s.tx.WithReadTx(ctx, func(tx *gorm.DB) error {
		member, err := s.members.WithTx(tx).FindByID(ctx, id)
		if err != nil {
			if !errors.Is(err, gorm.ErrRecordNotFound) {
				return pkgerrors.WrapStorage(err, "load member")
			}
			member = nil
		}
		decision, err := s.assignments.WithTx(tx).FindByMentee(ctx, id)
		if err != nil {
			return pkgerrors.WrapStorage(err, "load mentor decision")
		}
		snap = Evaluate(member, decision)
		return nil
	})
	if err != nil {
		return Snapshot{}, pkgerrors.WrapStorage(err, "evaluate onboarding")
	}
	return snap, nil
}

// TryComplete promotes a complete NONE member to STARTER. The rank moves by
// compare-and-swap inside the same transaction as the snapshot read, so at
// most one caller observes promoted=true.
func (s *service) TryComplete(ctx context.Context, input TryCompleteInput) (*CompletionResult, error) {
	start := time.Now()
	defer func() { s.metrics.ObserveDuration("try_complete", time.Since(start)) }()

	id, err := members.NormalizeID(input.MemberID)
	if err != nil {
		return nil, err
	}
	channelID := input.ChannelID
	if channelID == "" {
		channelID = s.policy.DefaultChannelID
	}

	result := &CompletionResult{}
	err = s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		memberRepo := s.members.WithTx(tx)
		member, snap, err := s.lockedSnapshot(ctx, tx, id)
		if err != nil {
			return err
		}
		result.Snapshot = snap
		result.Rank = member.Rank
		if !snap.Complete {
			return nil
		}
		result.Completed = true
		if member.Rank != enums.RankNone {
			return nil
		}

		won, err := memberRepo.CompareAndSwapRank(ctx, id, enums.RankNone, enums.RankStarter)
		if err != nil {
			return pkgerrors.WrapStorage(err, "promote member")
		}
		if !won {
			current, err := memberRepo.FindByID(ctx, id)
			if err != nil {
				return pkgerrors.WrapStorage(err, "reload member")
			}
			result.Rank = current.Rank
			return nil
		}

		rewards, err := s.rewards.GrantStarter(ctx, tx, ledger.GrantInput{
			MemberID:  id,
			ChannelID: channelID,
			EXP:       s.policy.EXP,
			Credit:    s.policy.Credit,
		})
		if err != nil {
			return err
		}
		result.Promoted = true
		result.Rank = enums.RankStarter
		result.Rewards = rewards
		return nil
	})
	if err != nil {
		return nil, pkgerrors.WrapStorage(err, "complete onboarding")
	}

	if result.Promoted {
		s.metrics.IncPromotion()
		s.info(ctx, id, "member promoted to starter")
	}
	if input.SyncRoles && result.Completed {
		result.RoleSync, result.RoleSyncError = s.reconcile(ctx, id, result.Rank)
	}
	return result, nil
}

// HandleRejoin resets an incomplete member to the first-contact state and
// clears their mentor decision in one transaction. A complete member is left
// untouched. Either way roles are reconciled to the resulting rank.
func (s *service) HandleRejoin(ctx context.Context, memberID string) (*RejoinResult, error) {
	id, err := members.NormalizeID(memberID)
	if err != nil {
		return nil, err
	}

	result := &RejoinResult{}
	err = s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		member, snap, err := s.lockedSnapshot(ctx, tx, id)
		if err != nil {
			return err
		}
		result.Snapshot = snap
		result.Rank = member.Rank
		if snap.Complete {
			return nil
		}
		if err := s.members.WithTx(tx).ResetOnboarding(ctx, id); err != nil {
			return pkgerrors.WrapStorage(err, "reset onboarding")
		}
		if err := s.decisions.ClearDecision(ctx, tx, id); err != nil {
			return err
		}
		result.Reset = true
		result.Rank = enums.RankNone
		return nil
	})
	if err != nil {
		return nil, pkgerrors.WrapStorage(err, "handle rejoin")
	}

	if result.Reset {
		s.metrics.IncReset()
		s.info(ctx, id, "incomplete member rejoined; onboarding reset")
	}
	result.RoleSync, result.RoleSyncError = s.reconcile(ctx, id, result.Rank)
	return result, nil
}

// Advance moves a member who already holds STARTER or above to a strictly
// higher rank. Backward and sideways moves are rejected.
func (s *service) Advance(ctx context.Context, input AdvanceInput) (*AdvanceResult, error) {
	id, err := members.NormalizeID(input.MemberID)
	if err != nil {
		return nil, err
	}
	if !input.Target.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("invalid rank %q", input.Target))
	}

	result := &AdvanceResult{}
	err = s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.members.WithTx(tx)
		member, err := repo.LockByID(ctx, id)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return pkgerrors.New(pkgerrors.CodeNotFound, "member not found")
			}
			return pkgerrors.WrapStorage(err, "lock member")
		}
		details := map[string]any{"current": member.Rank, "target": input.Target}
		if !member.Rank.AtLeast(enums.RankStarter) {
			return pkgerrors.New(pkgerrors.CodeStateConflict, "member has not completed onboarding").WithDetails(details)
		}
		if !input.Target.Above(member.Rank) {
			return pkgerrors.New(pkgerrors.CodeStateConflict, "rank can only move forward").WithDetails(details)
		}
		won, err := repo.CompareAndSwapRank(ctx, id, member.Rank, input.Target)
		if err != nil {
			return pkgerrors.WrapStorage(err, "advance rank")
		}
		if !won {
			return pkgerrors.New(pkgerrors.CodeStateConflict, "rank changed concurrently").WithDetails(details)
		}
		result.Previous = member.Rank
		result.Rank = input.Target
		return nil
	})
	if err != nil {
		return nil, pkgerrors.WrapStorage(err, "advance rank")
	}

	if input.SyncRoles {
		result.RoleSync, result.RoleSyncError = s.reconcile(ctx, id, result.Rank)
	}
	return result, nil
}

// SyncRoles reconciles the member's roles against the stored rank.
func (s *service) SyncRoles(ctx context.Context, memberID string) (*rankroles.Result, error) {
	id, err := members.NormalizeID(memberID)
	if err != nil {
		return nil, err
	}
	if s.roles == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "rank role sync is not configured")
	}
	member, err := s.members.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "member not found")
		}
		return nil, pkgerrors.WrapStorage(err, "load member")
	}
	return s.roles.Reconcile(ctx, id, member.Rank)
}

// lockedSnapshot creates the record when absent, then evaluates it while
// holding the member row lock.
func (s *service) lockedSnapshot(ctx context.Context, tx *gorm.DB, memberID string) (*models.Member, Snapshot, error) {
	repo := s.members.WithTx(tx)
	if err := repo.Ensure(ctx, memberID); err != nil {
		return nil, Snapshot{}, pkgerrors.WrapStorage(err, "ensure member")
	}
	member, err := repo.LockByID(ctx, memberID)
	if err != nil {
		return nil, Snapshot{}, pkgerrors.WrapStorage(err, "lock member")
	}
	decision, err := s.assignments.WithTx(tx).FindByMentee(ctx, memberID)
	if err != nil {
		return nil, Snapshot{}, pkgerrors.WrapStorage(err, "load mentor decision")
	}
	return member, Evaluate(member, decision), nil
}

func (s *service) reconcile(ctx context.Context, memberID string, rank enums.Rank) (*rankroles.Result, error) {
	if s.roles == nil {
		return nil, nil
	}
	result, err := s.roles.Reconcile(ctx, memberID, rank)
	if err != nil && s.logg != nil {
		s.logg.Error(s.logg.WithMemberID(ctx, memberID), "rank role sync failed", err)
	}
	return result, err
}

func (s *service) info(ctx context.Context, memberID, msg string) {
	if s.logg == nil {
		return
	}
	s.logg.Info(s.logg.WithMemberID(ctx, memberID), msg)
}
