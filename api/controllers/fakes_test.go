package controllers

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"

	"github.com/go-chi/chi/v5"
	"gorm.io/gorm"

	"github.com/cody-community/cody-backend/internal/mentorship"
	"github.com/cody-community/cody-backend/internal/onboarding"
	"github.com/cody-community/cody-backend/internal/rankroles"
	"github.com/cody-community/cody-backend/pkg/db/models"
	"github.com/cody-community/cody-backend/pkg/logger"
)

type testMembersService struct {
	setDisplayNameFn  func(ctx context.Context, memberID, name string) (*models.Member, error)
	markAgeVerifiedFn func(ctx context.Context, memberID string) (*models.Member, error)
}

func (s *testMembersService) EnsureMember(ctx context.Context, memberID string) (*models.Member, error) {
	return &models.Member{MemberID: memberID}, nil
}

func (s *testMembersService) Get(ctx context.Context, memberID string) (*models.Member, error) {
	return &models.Member{MemberID: memberID}, nil
}

func (s *testMembersService) SetDisplayName(ctx context.Context, memberID, name string) (*models.Member, error) {
	if s.setDisplayNameFn != nil {
		return s.setDisplayNameFn(ctx, memberID, name)
	}
	return &models.Member{MemberID: memberID, DisplayName: &name}, nil
}

func (s *testMembersService) MarkAgeVerified(ctx context.Context, memberID string) (*models.Member, error) {
	if s.markAgeVerifiedFn != nil {
		return s.markAgeVerifiedFn(ctx, memberID)
	}
	return &models.Member{MemberID: memberID}, nil
}

type testMentorshipService struct {
	decideMentorFn func(ctx context.Context, input mentorship.DecideMentorInput) (*models.MentorAssignment, error)
	decideSkipFn   func(ctx context.Context, input mentorship.DecideSkipInput) (*models.MentorAssignment, error)
	getDecisionFn  func(ctx context.Context, menteeID string) (*models.MentorAssignment, error)
}

func (s *testMentorshipService) DecideMentor(ctx context.Context, input mentorship.DecideMentorInput) (*models.MentorAssignment, error) {
	if s.decideMentorFn != nil {
		return s.decideMentorFn(ctx, input)
	}
	return nil, nil
}

func (s *testMentorshipService) DecideSkip(ctx context.Context, input mentorship.DecideSkipInput) (*models.MentorAssignment, error) {
	if s.decideSkipFn != nil {
		return s.decideSkipFn(ctx, input)
	}
	return nil, nil
}

func (s *testMentorshipService) GetDecision(ctx context.Context, menteeID string) (*models.MentorAssignment, error) {
	if s.getDecisionFn != nil {
		return s.getDecisionFn(ctx, menteeID)
	}
	return nil, nil
}

func (s *testMentorshipService) ClearDecision(ctx context.Context, tx *gorm.DB, menteeID string) error {
	return nil
}

func (s *testMentorshipService) CountActiveMentees(ctx context.Context, mentorID string) (int64, error) {
	return 0, nil
}

type testOnboardingService struct {
	evaluateFn    func(ctx context.Context, memberID string) (onboarding.Snapshot, error)
	tryCompleteFn func(ctx context.Context, input onboarding.TryCompleteInput) (*onboarding.CompletionResult, error)
	rejoinFn      func(ctx context.Context, memberID string) (*onboarding.RejoinResult, error)
	advanceFn     func(ctx context.Context, input onboarding.AdvanceInput) (*onboarding.AdvanceResult, error)
	syncRolesFn   func(ctx context.Context, memberID string) (*rankroles.Result, error)
	completions   []onboarding.TryCompleteInput
}

func (s *testOnboardingService) Evaluate(ctx context.Context, memberID string) (onboarding.Snapshot, error) {
	if s.evaluateFn != nil {
		return s.evaluateFn(ctx, memberID)
	}
	return onboarding.Snapshot{}, nil
}

func (s *testOnboardingService) TryComplete(ctx context.Context, input onboarding.TryCompleteInput) (*onboarding.CompletionResult, error) {
	s.completions = append(s.completions, input)
	if s.tryCompleteFn != nil {
		return s.tryCompleteFn(ctx, input)
	}
	return &onboarding.CompletionResult{Rank: "NONE"}, nil
}

func (s *testOnboardingService) HandleRejoin(ctx context.Context, memberID string) (*onboarding.RejoinResult, error) {
	if s.rejoinFn != nil {
		return s.rejoinFn(ctx, memberID)
	}
	return &onboarding.RejoinResult{}, nil
}

func (s *testOnboardingService) Advance(ctx context.Context, input onboarding.AdvanceInput) (*onboarding.AdvanceResult, error) {
	if s.advanceFn != nil {
		return s.advanceFn(ctx, input)
	}
	return &onboarding.AdvanceResult{}, nil
}

func (s *testOnboardingService) SyncRoles(ctx context.Context, memberID string) (*rankroles.Result, error) {
	if s.syncRolesFn != nil {
		return s.syncRolesFn(ctx, memberID)
	}
	return &rankroles.Result{MemberID: memberID}, nil
}

func testLogger() *logger.Logger {
	return logger.New(logger.Options{ServiceName: "test", Output: io.Discard})
}

// memberRequest builds a request carrying the {memberId} route parameter.
func memberRequest(method, memberID, body string) *http.Request {
	var reader io.Reader
	if body != "" {
		reader = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, "/api/v1/members/"+url.PathEscape(memberID), reader)
	routeCtx := chi.NewRouteContext()
	routeCtx.URLParams.Add("memberId", memberID)
	return req.WithContext(context.WithValue(req.Context(), chi.RouteCtxKey, routeCtx))
}
