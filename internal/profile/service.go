package profile

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"

	"github.com/cody-community/cody-backend/internal/ledger"
	"github.com/cody-community/cody-backend/internal/members"
	"github.com/cody-community/cody-backend/internal/mentorship"
	"github.com/cody-community/cody-backend/internal/onboarding"
	"github.com/cody-community/cody-backend/pkg/enums"
	pkgerrors "github.com/cody-community/cody-backend/pkg/errors"
)

// MentorState describes a member's mentor decision for display.
type MentorState string

const (
	MentorAssigned  MentorState = "ASSIGNED"
	MentorSkipped   MentorState = "SKIPPED"
	MentorUndecided MentorState = "UNDECIDED"
)

type readTxRunner interface {
	WithReadTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

// Balances mirrors the member's wallet.
type Balances struct {
	EXP           int64 `json:"exp"`
	ActivityPoint int64 `json:"activity_point"`
	Credit        int64 `json:"credit"`
}

// Profile is the "my info" read model.
type Profile struct {
	MemberID      string              `json:"member_id"`
	DisplayName   *string             `json:"display_name"`
	Rank          enums.Rank          `json:"rank"`
	AgeVerified   bool                `json:"age_verified"`
	AgeVerifiedAt *time.Time          `json:"age_verified_at,omitempty"`
	Mentor        MentorState         `json:"mentor"`
	MentorID      *string             `json:"mentor_id,omitempty"`
	ActiveMentees int64               `json:"active_mentees"`
	Balances      Balances            `json:"balances"`
	Onboarding    onboarding.Snapshot `json:"onboarding"`
	JoinedAt      time.Time           `json:"joined_at"`
}

// Service assembles member profiles.
type Service interface {
	Get(ctx context.Context, memberID string) (*Profile, error)
}

type service struct {
	tx          readTxRunner
	members     members.Repository
	assignments mentorship.Repository
	wallets     ledger.Repository
}

// NewService wires the profile read model.
func NewService(tx readTxRunner, memberRepo members.Repository, assignments mentorship.Repository, wallets ledger.Repository) (Service, error) {
	if tx == nil {
		return nil, fmt.Errorf("transaction runner required")
	}
	if memberRepo == nil || assignments == nil || wallets == nil {
		return nil, fmt.Errorf("members, mentorship and ledger repositories required")
	}
	return &service{tx: tx, members: memberRepo, assignments: assignments, wallets: wallets}, nil
}

// Get reads the record, decision, mentee count and wallet from one snapshot.
func (s *service) Get(ctx context.Context, memberID string) (*Profile, error) {
	id, err := members.NormalizeID(memberID)
	if err != nil {
		return nil, err
	}

	var out *Profile
	err = s.tx.WithReadTx(ctx, func(tx *gorm.DB) error {
		member, err := s.members.WithTx(tx).FindByID(ctx, id)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return pkgerrors.New(pkgerrors.CodeNotFound, "member not found")
			}
			return pkgerrors.WrapStorage(err, "load member")
		}
		assignments := s.assignments.WithTx(tx)
		decision, err := assignments.FindByMentee(ctx, id)
		if err != nil {
			return pkgerrors.WrapStorage(err, "load mentor decision")
		}
		mentees, err := assignments.CountActiveByMentor(ctx, id)
		if err != nil {
			return pkgerrors.WrapStorage(err, "count active mentees")
		}

		profile := &Profile{
			MemberID:      member.MemberID,
			DisplayName:   member.DisplayName,
			Rank:          member.Rank,
			AgeVerified:   member.IsAgeVerified(),
			AgeVerifiedAt: member.AgeVerifiedAt,
			Mentor:        MentorUndecided,
			ActiveMentees: mentees,
			Onboarding:    onboarding.Evaluate(member, decision),
			JoinedAt:      member.CreatedAt,
		}
		if decision != nil {
			profile.Mentor = MentorSkipped
			if decision.Status == enums.AssignmentStatusActive {
				profile.Mentor = MentorAssigned
				profile.MentorID = decision.MentorID
			}
		}

		wallet, err := s.wallets.WithTx(tx).FindWallet(ctx, id)
		switch {
		case errors.Is(err, gorm.ErrRecordNotFound):
		case err != nil:
			return pkgerrors.WrapStorage(err, "load wallet")
		default:
			profile.Balances = Balances{EXP: wallet.EXP, ActivityPoint: wallet.ActivityPoint, Credit: wallet.Credit}
		}
		out = profile
		return nil
	})
	if err != nil {
		return nil, pkgerrors.WrapStorage(err, "load profile")
	}
	return out, nil
}
