package mentorship

import (
	"context"
	"fmt"
	"sync"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cody-community/cody-backend/internal/members"
	"github.com/cody-community/cody-backend/internal/repo/repotest"
	"github.com/cody-community/cody-backend/pkg/db"
	"github.com/cody-community/cody-backend/pkg/db/models"
	"github.com/cody-community/cody-backend/pkg/enums"
	pkgerrors "github.com/cody-community/cody-backend/pkg/errors"
	"github.com/cody-community/cody-backend/pkg/metrics"
)

func newGuard(t *testing.T, client *db.Client, cfg Config) Service {
	t.Helper()
	svc, err := NewService(
		NewRepository(client.DB()),
		members.NewRepository(client.DB()),
		client,
		cfg,
		metrics.NewOnboardingMetrics(prometheus.NewRegistry()),
	)
	require.NoError(t, err)
	return svc
}

func countRows(t *testing.T, client *db.Client, query string, args ...any) int64 {
	t.Helper()
	var count int64
	require.NoError(t, client.DB().Model(&models.MentorAssignment{}).Where(query, args...).Count(&count).Error)
	return count
}

func TestNewServiceValidatesDependencies(t *testing.T) {
	client := repotest.NewSQLite(t)
	repo := NewRepository(client.DB())
	memberRepo := members.NewRepository(client.DB())

	_, err := NewService(nil, memberRepo, client, Config{}, nil)
	require.Error(t, err)
	_, err = NewService(repo, nil, client, Config{}, nil)
	require.Error(t, err)
	_, err = NewService(repo, memberRepo, nil, Config{}, nil)
	require.Error(t, err)
	_, err = NewService(repo, memberRepo, client, Config{MinRank: "ADMIN"}, nil)
	require.Error(t, err)

	svc, err := NewService(repo, memberRepo, client, Config{}, nil)
	require.NoError(t, err)
	impl := svc.(*service)
	assert.Equal(t, DefaultCapacity, impl.cfg.Capacity)
	assert.Equal(t, enums.RankMember, impl.cfg.MinRank)
}

func TestDecideMentorRankEligibility(t *testing.T) {
	cases := []struct {
		rank    enums.Rank
		allowed bool
	}{
		{rank: enums.RankNone, allowed: false},
		{rank: enums.RankStarter, allowed: false},
		{rank: enums.RankMember, allowed: true},
		{rank: enums.RankCrew, allowed: true},
		{rank: enums.RankCore, allowed: true},
	}

	for _, tc := range cases {
		t.Run(string(tc.rank), func(t *testing.T) {
			client := repotest.NewSQLite(t)
			seedMember(t, client, "mentor", tc.rank)
			svc := newGuard(t, client, Config{})

			assignment, err := svc.DecideMentor(context.Background(), DecideMentorInput{MenteeID: "mentee", MentorID: "mentor"})
			if tc.allowed {
				require.NoError(t, err)
				assert.Equal(t, enums.AssignmentStatusActive, assignment.Status)
				assert.Equal(t, DefaultChannelID, assignment.ChannelID)
				assert.False(t, assignment.DecidedAt.IsZero())
				return
			}
			require.True(t, pkgerrors.HasCode(err, pkgerrors.CodeMentorRankTooLow), "got %v", err)
			assert.Equal(t, int64(0), countRows(t, client, "mentee_id = ?", "mentee"))
		})
	}
}

func TestDecideMentorUnknownMentor(t *testing.T) {
	client := repotest.NewSQLite(t)
	svc := newGuard(t, client, Config{})

	_, err := svc.DecideMentor(context.Background(), DecideMentorInput{MenteeID: "mentee", MentorID: "ghost"})
	require.True(t, pkgerrors.HasCode(err, pkgerrors.CodeMentorNotFound), "got %v", err)
	assert.Equal(t, int64(0), countRows(t, client, "1 = 1"))
}

func TestDecideMentorRejectsSelf(t *testing.T) {
	client := repotest.NewSQLite(t)
	seedMember(t, client, "m-1", enums.RankCore)
	svc := newGuard(t, client, Config{})

	_, err := svc.DecideMentor(context.Background(), DecideMentorInput{MenteeID: "m-1", MentorID: " m-1 "})
	require.True(t, pkgerrors.HasCode(err, pkgerrors.CodeSelfMentor), "got %v", err)

	_, err = svc.DecideMentor(context.Background(), DecideMentorInput{MenteeID: "m-1", MentorID: ""})
	require.True(t, pkgerrors.HasCode(err, pkgerrors.CodeValidation), "got %v", err)
}

func TestDecisionIsImmutable(t *testing.T) {
	client := repotest.NewSQLite(t)
	seedMember(t, client, "mentor", enums.RankMember)
	svc := newGuard(t, client, Config{})
	ctx := context.Background()

	_, err := svc.DecideSkip(ctx, DecideSkipInput{MenteeID: "mentee", ChannelID: "c-9"})
	require.NoError(t, err)

	_, err = svc.DecideMentor(ctx, DecideMentorInput{MenteeID: "mentee", MentorID: "mentor"})
	require.True(t, pkgerrors.HasCode(err, pkgerrors.CodeAlreadyDecided), "got %v", err)
	_, err = svc.DecideSkip(ctx, DecideSkipInput{MenteeID: "mentee"})
	require.True(t, pkgerrors.HasCode(err, pkgerrors.CodeAlreadyDecided), "got %v", err)

	decision, err := svc.GetDecision(ctx, "mentee")
	require.NoError(t, err)
	require.NotNil(t, decision)
	assert.Equal(t, enums.AssignmentStatusSkipped, decision.Status)
	assert.Nil(t, decision.MentorID)
	assert.Equal(t, "c-9", decision.ChannelID)
}

func TestAlreadyDecidedTakesPrecedenceOverEligibility(t *testing.T) {
	client := repotest.NewSQLite(t)
	seedMember(t, client, "low", enums.RankStarter)
	svc := newGuard(t, client, Config{})
	ctx := context.Background()

	_, err := svc.DecideSkip(ctx, DecideSkipInput{MenteeID: "mentee"})
	require.NoError(t, err)

	_, err = svc.DecideMentor(ctx, DecideMentorInput{MenteeID: "mentee", MentorID: "low"})
	require.True(t, pkgerrors.HasCode(err, pkgerrors.CodeAlreadyDecided), "got %v", err)
}

func TestDecideMentorCapacityFull(t *testing.T) {
	client := repotest.NewSQLite(t)
	seedMember(t, client, "mentor", enums.RankCrew)
	svc := newGuard(t, client, Config{})
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		_, err := svc.DecideMentor(ctx, DecideMentorInput{MenteeID: fmt.Sprintf("mentee-%d", i), MentorID: "mentor"})
		require.NoError(t, err)
	}

	_, err := svc.DecideMentor(ctx, DecideMentorInput{MenteeID: "mentee-3", MentorID: "mentor"})
	require.True(t, pkgerrors.HasCode(err, pkgerrors.CodeMentorCapacityFull), "got %v", err)
	typed := pkgerrors.As(err)
	require.NotNil(t, typed)
	details, ok := typed.Details().(map[string]any)
	require.True(t, ok)
	assert.Equal(t, int64(3), details["active"])

	assert.Equal(t, int64(0), countRows(t, client, "mentee_id = ?", "mentee-3"))
	active, err := svc.CountActiveMentees(ctx, "mentor")
	require.NoError(t, err)
	assert.Equal(t, int64(3), active)

	// a skipped mentee still gets in because skips do not use mentor capacity
	_, err = svc.DecideSkip(ctx, DecideSkipInput{MenteeID: "mentee-3"})
	require.NoError(t, err)
}

func TestDecideMentorHonoursConfiguredPolicy(t *testing.T) {
	client := repotest.NewSQLite(t)
	seedMember(t, client, "mentor", enums.RankMember)
	svc := newGuard(t, client, Config{Capacity: 1, MinRank: enums.RankMember})
	ctx := context.Background()

	_, err := svc.DecideMentor(ctx, DecideMentorInput{MenteeID: "a", MentorID: "mentor"})
	require.NoError(t, err)
	_, err = svc.DecideMentor(ctx, DecideMentorInput{MenteeID: "b", MentorID: "mentor"})
	require.True(t, pkgerrors.HasCode(err, pkgerrors.CodeMentorCapacityFull), "got %v", err)

	strict := newGuard(t, client, Config{MinRank: enums.RankCore})
	_, err = strict.DecideMentor(ctx, DecideMentorInput{MenteeID: "c", MentorID: "mentor"})
	require.True(t, pkgerrors.HasCode(err, pkgerrors.CodeMentorRankTooLow), "got %v", err)
}

func TestConcurrentDecisionsNeverExceedCapacity(t *testing.T) {
	assertCapacityHoldsUnderConcurrency(t, repotest.NewSQLite(t))
}

// assertCapacityHoldsUnderConcurrency races six mentees for one mentor with three slots.
func assertCapacityHoldsUnderConcurrency(t *testing.T, client *db.Client) {
	t.Helper()
	seedMember(t, client, "mentor", enums.RankMember)
	svc := newGuard(t, client, Config{})

	const callers = 6
	var (
		wg       sync.WaitGroup
		mu       sync.Mutex
		accepted int
		full     int
	)
	start := make(chan struct{})
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			<-start
			_, err := svc.DecideMentor(context.Background(), DecideMentorInput{
				MenteeID: fmt.Sprintf("mentee-%d", i),
				MentorID: "mentor",
			})
			mu.Lock()
			defer mu.Unlock()
			switch {
			case err == nil:
				accepted++
			case pkgerrors.HasCode(err, pkgerrors.CodeMentorCapacityFull):
				full++
			default:
				t.Errorf("unexpected error: %v", err)
			}
		}(i)
	}
	close(start)
	wg.Wait()

	assert.Equal(t, 3, accepted)
	assert.Equal(t, callers-3, full)
	assert.Equal(t, int64(3), countRows(t, client, "mentor_id = ? AND status = ?", "mentor", enums.AssignmentStatusActive))
}

func TestConcurrentDecisionsForSameMenteeKeepOneRow(t *testing.T) {
	assertOneDecisionPerMentee(t, repotest.NewSQLite(t))
}

// assertOneDecisionPerMentee races a mentee's assign and skip calls against each other.
func assertOneDecisionPerMentee(t *testing.T, client *db.Client) {
	t.Helper()
	seedMember(t, client, "mentor-a", enums.RankMember)
	seedMember(t, client, "mentor-b", enums.RankCrew)
	svc := newGuard(t, client, Config{})

	var (
		wg      sync.WaitGroup
		mu      sync.Mutex
		success int
		decided int
	)
	start := make(chan struct{})
	attempt := func(fn func() error) {
		defer wg.Done()
		<-start
		err := fn()
		mu.Lock()
		defer mu.Unlock()
		switch {
		case err == nil:
			success++
		case pkgerrors.HasCode(err, pkgerrors.CodeAlreadyDecided):
			decided++
		default:
			t.Errorf("unexpected error: %v", err)
		}
	}

	ctx := context.Background()
	wg.Add(3)
	go attempt(func() error {
		_, err := svc.DecideMentor(ctx, DecideMentorInput{MenteeID: "mentee", MentorID: "mentor-a"})
		return err
	})
	go attempt(func() error {
		_, err := svc.DecideMentor(ctx, DecideMentorInput{MenteeID: "mentee", MentorID: "mentor-b"})
		return err
	})
	go attempt(func() error {
		_, err := svc.DecideSkip(ctx, DecideSkipInput{MenteeID: "mentee"})
		return err
	})
	close(start)
	wg.Wait()

	assert.Equal(t, 1, success)
	assert.Equal(t, 2, decided)
	assert.Equal(t, int64(1), countRows(t, client, "mentee_id = ?", "mentee"))
}

func TestDecideCreatesMissingMenteeRecord(t *testing.T) {
	client := repotest.NewSQLite(t)
	seedMember(t, client, "mentor", enums.RankMember)
	svc := newGuard(t, client, Config{})
	memberRepo := members.NewRepository(client.DB())
	ctx := context.Background()

	_, err := svc.DecideSkip(ctx, DecideSkipInput{MenteeID: "ghost-skip"})
	require.NoError(t, err)
	_, err = svc.DecideMentor(ctx, DecideMentorInput{MenteeID: "ghost-assign", MentorID: "mentor"})
	require.NoError(t, err)

	for _, id := range []string{"ghost-skip", "ghost-assign"} {
		member, err := memberRepo.FindByID(ctx, id)
		require.NoError(t, err, id)
		assert.Equal(t, enums.RankNone, member.Rank)

		var wallets int64
		require.NoError(t, client.DB().Model(&models.Wallet{}).Where("member_id = ?", id).Count(&wallets).Error)
		assert.Equal(t, int64(1), wallets, id)
	}
}

func TestClearDecisionIsIdempotent(t *testing.T) {
	client := repotest.NewSQLite(t)
	svc := newGuard(t, client, Config{})
	ctx := context.Background()

	_, err := svc.DecideSkip(ctx, DecideSkipInput{MenteeID: "mentee"})
	require.NoError(t, err)

	require.NoError(t, svc.ClearDecision(ctx, nil, "mentee"))
	require.NoError(t, svc.ClearDecision(ctx, nil, "mentee"))

	decision, err := svc.GetDecision(ctx, "mentee")
	require.NoError(t, err)
	assert.Nil(t, decision)

	// a cleared mentee may decide again
	_, err = svc.DecideSkip(ctx, DecideSkipInput{MenteeID: "mentee"})
	require.NoError(t, err)
}
