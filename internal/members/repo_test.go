package members

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/cody-community/cody-backend/internal/repo/repotest"
	"github.com/cody-community/cody-backend/pkg/db/models"
	"github.com/cody-community/cody-backend/pkg/enums"
)

func TestRepositoryEnsureIsIdempotent(t *testing.T) {
	client := repotest.NewSQLite(t)
	r := NewRepository(client.DB())
	ctx := context.Background()

	require.NoError(t, r.Ensure(ctx, "m-1"))
	name := "Kim"
	require.NoError(t, r.SetDisplayName(ctx, "m-1", &name))
	require.NoError(t, r.Ensure(ctx, "m-1"))

	member, err := r.FindByID(ctx, "m-1")
	require.NoError(t, err)
	assert.Equal(t, enums.RankNone, member.Rank)
	require.NotNil(t, member.DisplayName)
	assert.Equal(t, "Kim", *member.DisplayName, "second ensure must not overwrite existing fields")

	var wallets int64
	require.NoError(t, client.DB().Model(&models.Wallet{}).Where("member_id = ?", "m-1").Count(&wallets).Error)
	assert.Equal(t, int64(1), wallets)
}

func TestRepositoryFindByIDMissing(t *testing.T) {
	r := NewRepository(repotest.NewSQLite(t).DB())
	_, err := r.FindByID(context.Background(), "ghost")
	require.ErrorIs(t, err, gorm.ErrRecordNotFound)
}

func TestRepositorySetDisplayNameUnknownMember(t *testing.T) {
	r := NewRepository(repotest.NewSQLite(t).DB())
	name := "Kim"
	err := r.SetDisplayName(context.Background(), "ghost", &name)
	require.ErrorIs(t, err, gorm.ErrRecordNotFound)
}

func TestRepositoryMarkAgeVerifiedKeepsFirstTimestamp(t *testing.T) {
	r := NewRepository(repotest.NewSQLite(t).DB())
	ctx := context.Background()
	require.NoError(t, r.Ensure(ctx, "m-1"))

	first := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	require.NoError(t, r.MarkAgeVerified(ctx, "m-1", first))
	require.NoError(t, r.MarkAgeVerified(ctx, "m-1", first.Add(time.Hour)))

	member, err := r.FindByID(ctx, "m-1")
	require.NoError(t, err)
	require.NotNil(t, member.AgeVerifiedAt)
	assert.True(t, member.AgeVerifiedAt.Equal(first))
}

func TestRepositoryCompareAndSwapRankSingleWinner(t *testing.T) {
	client := repotest.NewSQLite(t)
	r := NewRepository(client.DB())
	ctx := context.Background()
	require.NoError(t, r.Ensure(ctx, "m-1"))

	const callers = 8
	var (
		wg   sync.WaitGroup
		mu   sync.Mutex
		wins int
	)
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			swapped, err := r.CompareAndSwapRank(ctx, "m-1", enums.RankNone, enums.RankStarter)
			assert.NoError(t, err)
			if swapped {
				mu.Lock()
				wins++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, 1, wins)
	member, err := r.FindByID(ctx, "m-1")
	require.NoError(t, err)
	assert.Equal(t, enums.RankStarter, member.Rank)
}

func TestRepositoryResetOnboardingInsideTx(t *testing.T) {
	client := repotest.NewSQLite(t)
	r := NewRepository(client.DB())
	ctx := context.Background()
	require.NoError(t, r.Ensure(ctx, "m-1"))
	name := "Kim"
	require.NoError(t, r.SetDisplayName(ctx, "m-1", &name))
	require.NoError(t, r.MarkAgeVerified(ctx, "m-1", time.Now()))
	_, err := r.CompareAndSwapRank(ctx, "m-1", enums.RankNone, enums.RankStarter)
	require.NoError(t, err)

	require.NoError(t, client.WithTx(ctx, func(tx *gorm.DB) error {
		locked, err := r.WithTx(tx).LockByID(ctx, "m-1")
		if err != nil {
			return err
		}
		assert.Equal(t, enums.RankStarter, locked.Rank)
		return r.WithTx(tx).ResetOnboarding(ctx, "m-1")
	}))

	member, err := r.FindByID(ctx, "m-1")
	require.NoError(t, err)
	assert.Nil(t, member.DisplayName)
	assert.Nil(t, member.AgeVerifiedAt)
	assert.Equal(t, enums.RankNone, member.Rank)
}
