package members

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"gorm.io/gorm"

	"github.com/cody-community/cody-backend/pkg/db/models"
	pkgerrors "github.com/cody-community/cody-backend/pkg/errors"
)

// MaxDisplayNameLength bounds a stored display name, in runes.
const MaxDisplayNameLength = 32

// Service owns the onboarding record and the two prerequisite write paths
// reported by the display-name and age-verification collaborators.
type Service interface {
	EnsureMember(ctx context.Context, memberID string) (*models.Member, error)
	Get(ctx context.Context, memberID string) (*models.Member, error)
	SetDisplayName(ctx context.Context, memberID, name string) (*models.Member, error)
	MarkAgeVerified(ctx context.Context, memberID string) (*models.Member, error)
}

type service struct {
	repo Repository
	now  func() time.Time
}

// NewService wires a members service with the provided repository.
func NewService(repo Repository) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("members repository required")
	}
	return &service{repo: repo, now: time.Now}, nil
}

func (s *service) EnsureMember(ctx context.Context, memberID string) (*models.Member, error) {
	id, err := NormalizeID(memberID)
	if err != nil {
		return nil, err
	}
	if err := s.repo.Ensure(ctx, id); err != nil {
		return nil, pkgerrors.WrapStorage(err, "ensure member")
	}
	return s.load(ctx, id)
}

func (s *service) Get(ctx context.Context, memberID string) (*models.Member, error) {
	id, err := NormalizeID(memberID)
	if err != nil {
		return nil, err
	}
	return s.load(ctx, id)
}

func (s *service) SetDisplayName(ctx context.Context, memberID, name string) (*models.Member, error) {
	trimmed := strings.TrimSpace(name)
	if trimmed == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "display name is required")
	}
	if utf8.RuneCountInString(trimmed) > MaxDisplayNameLength {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("display name must be at most %d characters", MaxDisplayNameLength))
	}

	member, err := s.EnsureMember(ctx, memberID)
	if err != nil {
		return nil, err
	}
	if err := s.repo.SetDisplayName(ctx, member.MemberID, &trimmed); err != nil {
		return nil, pkgerrors.WrapStorage(err, "set display name")
	}
	return s.load(ctx, member.MemberID)
}

func (s *service) MarkAgeVerified(ctx context.Context, memberID string) (*models.Member, error) {
	member, err := s.EnsureMember(ctx, memberID)
	if err != nil {
		return nil, err
	}
	if member.IsAgeVerified() {
		return member, nil
	}
	if err := s.repo.MarkAgeVerified(ctx, member.MemberID, s.now().UTC()); err != nil {
		return nil, pkgerrors.WrapStorage(err, "mark age verified")
	}
	return s.load(ctx, member.MemberID)
}

func (s *service) load(ctx context.Context, memberID string) (*models.Member, error) {
	member, err := s.repo.FindByID(ctx, memberID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "member not found")
		}
		return nil, pkgerrors.WrapStorage(err, "load member")
	}
	return member, nil
}

// NormalizeID trims a platform member id and rejects blanks.
func NormalizeID(memberID string) (string, error) {
	id := strings.TrimSpace(memberID)
	if id == "" {
		return "", pkgerrors.New(pkgerrors.CodeValidation, "member id is required")
	}
	return id, nil
}
