package mentorship

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"gorm.io/gorm"

	"github.com/cody-community/cody-backend/internal/members"
	"github.com/cody-community/cody-backend/pkg/db"
	"github.com/cody-community/cody-backend/pkg/db/models"
	"github.com/cody-community/cody-backend/pkg/enums"
	pkgerrors "github.com/cody-community/cody-backend/pkg/errors"
	"github.com/cody-community/cody-backend/pkg/metrics"
)

const (
	DefaultCapacity  = 3
	DefaultChannelID = "SYSTEM"

	kindAssign = "assign"
	kindSkip   = "skip"
)

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

// Service is the assignment store together with its eligibility and capacity guard.
// Every write runs as one transaction: the checks and the insert commit together or not at all.
type Service interface {
	DecideMentor(ctx context.Context, input DecideMentorInput) (*models.MentorAssignment, error)
	DecideSkip(ctx context.Context, input DecideSkipInput) (*models.MentorAssignment, error)
	GetDecision(ctx context.Context, menteeID string) (*models.MentorAssignment, error)
	// ClearDecision deletes the mentee's decision if present. A nil tx runs on the base connection.
	ClearDecision(ctx context.Context, tx *gorm.DB, menteeID string) error
	CountActiveMentees(ctx context.Context, mentorID string) (int64, error)
}

// Config holds the guard policy.
type Config struct {
	Capacity int
	MinRank  enums.Rank
}

// DecideMentorInput names the mentor chosen by a mentee.
type DecideMentorInput struct {
	MenteeID  string
	MentorID  string
	ChannelID string
}

// DecideSkipInput records that a mentee chose to go without a mentor.
type DecideSkipInput struct {
	MenteeID  string
	ChannelID string
}

type service struct {
	repo    Repository
	members members.Repository
	tx      txRunner
	cfg     Config
	metrics *metrics.OnboardingMetrics
	now     func() time.Time
}

// NewService wires the guard. Zero config values fall back to capacity 3 and minimum rank MEMBER.
func NewService(repo Repository, memberRepo members.Repository, tx txRunner, cfg Config, recorder *metrics.OnboardingMetrics) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("mentorship repository required")
	}
	if memberRepo == nil {
		return nil, fmt.Errorf("members repository required")
	}
	if tx == nil {
		return nil, fmt.Errorf("transaction runner required")
	}
	if cfg.Capacity <= 0 {
		cfg.Capacity = DefaultCapacity
	}
	if cfg.MinRank == "" {
		cfg.MinRank = enums.RankMember
	}
	if !cfg.MinRank.IsValid() {
		return nil, fmt.Errorf("invalid minimum mentor rank %q", cfg.MinRank)
	}
	return &service{
		repo:    repo,
		members: memberRepo,
		tx:      tx,
		cfg:     cfg,
		metrics: recorder,
		now:     time.Now,
	}, nil
}

func (s *service) DecideMentor(ctx context.Context, input DecideMentorInput) (*models.MentorAssignment, error) {
	menteeID, err := members.NormalizeID(input.MenteeID)
	if err != nil {
		return nil, err
	}
	mentorID := strings.TrimSpace(input.MentorID)
	if mentorID == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "mentor id is required")
	}
	if mentorID == menteeID {
		s.observe(kindAssign, pkgerrors.CodeSelfMentor)
		return nil, pkgerrors.New(pkgerrors.CodeSelfMentor, "members cannot mentor themselves")
	}

	assignment := &models.MentorAssignment{
		MenteeID:  menteeID,
		MentorID:  &mentorID,
		Status:    enums.AssignmentStatusActive,
		ChannelID: channelOrDefault(input.ChannelID),
	}

	err = s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		if err := s.members.WithTx(tx).Ensure(ctx, menteeID); err != nil {
			return pkgerrors.WrapStorage(err, "ensure mentee")
		}
		if err := s.ensureUndecided(ctx, repo, menteeID); err != nil {
			return err
		}

		// The mentor row lock serializes every decision naming this mentor, so the
		// count below cannot go stale before the insert commits.
		mentor, err := s.members.WithTx(tx).LockByID(ctx, mentorID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return pkgerrors.New(pkgerrors.CodeMentorNotFound, "mentor is not a known member").
					WithDetails(map[string]any{"mentor_id": mentorID})
			}
			return pkgerrors.WrapStorage(err, "lock mentor")
		}
		if !mentor.Rank.AtLeast(s.cfg.MinRank) {
			return pkgerrors.New(pkgerrors.CodeMentorRankTooLow, "mentor rank is below the required minimum").
				WithDetails(map[string]any{"mentor_id": mentorID, "rank": mentor.Rank, "min_rank": s.cfg.MinRank})
		}

		active, err := repo.CountActiveByMentor(ctx, mentorID)
		if err != nil {
			return pkgerrors.WrapStorage(err, "count active mentees")
		}
		if active >= int64(s.cfg.Capacity) {
			return pkgerrors.New(pkgerrors.CodeMentorCapacityFull, "mentor has no free mentee slots").
				WithDetails(map[string]any{"mentor_id": mentorID, "active": active, "capacity": s.cfg.Capacity})
		}

		return s.insert(ctx, repo, assignment)
	})
	err = pkgerrors.WrapStorage(err, "decide mentor")
	s.observe(kindAssign, outcomeOf(err))
	if err != nil {
		return nil, err
	}
	return assignment, nil
}

func (s *service) DecideSkip(ctx context.Context, input DecideSkipInput) (*models.MentorAssignment, error) {
	menteeID, err := members.NormalizeID(input.MenteeID)
	if err != nil {
		return nil, err
	}

	assignment := &models.MentorAssignment{
		MenteeID:  menteeID,
		Status:    enums.AssignmentStatusSkipped,
		ChannelID: channelOrDefault(input.ChannelID),
	}

	err = s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		if err := s.members.WithTx(tx).Ensure(ctx, menteeID); err != nil {
			return pkgerrors.WrapStorage(err, "ensure mentee")
		}
		if err := s.ensureUndecided(ctx, repo, menteeID); err != nil {
			return err
		}
		return s.insert(ctx, repo, assignment)
	})
	err = pkgerrors.WrapStorage(err, "decide skip")
	s.observe(kindSkip, outcomeOf(err))
	if err != nil {
		return nil, err
	}
	return assignment, nil
}

func (s *service) GetDecision(ctx context.Context, menteeID string) (*models.MentorAssignment, error) {
	id, err := members.NormalizeID(menteeID)
	if err != nil {
		return nil, err
	}
	assignment, err := s.repo.FindByMentee(ctx, id)
	if err != nil {
		return nil, pkgerrors.WrapStorage(err, "load mentor decision")
	}
	return assignment, nil
}

func (s *service) ClearDecision(ctx context.Context, tx *gorm.DB, menteeID string) error {
	id, err := members.NormalizeID(menteeID)
	if err != nil {
		return err
	}
	if _, err := s.repo.WithTx(tx).DeleteByMentee(ctx, id); err != nil {
		return pkgerrors.WrapStorage(err, "clear mentor decision")
	}
	return nil
}

func (s *service) CountActiveMentees(ctx context.Context, mentorID string) (int64, error) {
	id, err := members.NormalizeID(mentorID)
	if err != nil {
		return 0, err
	}
	count, err := s.repo.CountActiveByMentor(ctx, id)
	if err != nil {
		return 0, pkgerrors.WrapStorage(err, "count active mentees")
	}
	return count, nil
}

func (s *service) ensureUndecided(ctx context.Context, repo Repository, menteeID string) error {
	existing, err := repo.FindByMentee(ctx, menteeID)
	if err != nil {
		return pkgerrors.WrapStorage(err, "load mentor decision")
	}
	if existing != nil {
		return alreadyDecided(existing)
	}
	return nil
}

// insert relies on the mentee_id primary key to reject a decision that
// committed between the existence check and this write.
func (s *service) insert(ctx context.Context, repo Repository, assignment *models.MentorAssignment) error {
	assignment.DecidedAt = s.now().UTC()
	if err := repo.Insert(ctx, assignment); err != nil {
		if db.IsUniqueViolation(err, "") {
			return pkgerrors.Wrap(pkgerrors.CodeAlreadyDecided, err, "mentor decision already recorded").
				WithDetails(map[string]any{"mentee_id": assignment.MenteeID})
		}
		return pkgerrors.WrapStorage(err, "insert mentor decision")
	}
	return nil
}

func (s *service) observe(kind string, outcome pkgerrors.Code) {
	s.metrics.ObserveDecision(kind, string(outcome))
}

func alreadyDecided(existing *models.MentorAssignment) error {
	details := map[string]any{
		"mentee_id": existing.MenteeID,
		"status":    existing.Status,
	}
	if existing.MentorID != nil {
		details["mentor_id"] = *existing.MentorID
	}
	return pkgerrors.New(pkgerrors.CodeAlreadyDecided, "mentor decision already made").WithDetails(details)
}

func outcomeOf(err error) pkgerrors.Code {
	if err == nil {
		return "ok"
	}
	return pkgerrors.CodeOf(err)
}

func channelOrDefault(channelID string) string {
	if trimmed := strings.TrimSpace(channelID); trimmed != "" {
		return trimmed
	}
	return DefaultChannelID
}
