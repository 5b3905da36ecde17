package mentorship

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cody-community/cody-backend/internal/members"
	"github.com/cody-community/cody-backend/internal/repo/repotest"
	"github.com/cody-community/cody-backend/pkg/db"
	"github.com/cody-community/cody-backend/pkg/db/models"
	"github.com/cody-community/cody-backend/pkg/enums"
)

func seedMember(t *testing.T, client *db.Client, memberID string, rank enums.Rank) {
	t.Helper()
	ctx := context.Background()
	repo := members.NewRepository(client.DB())
	require.NoError(t, repo.Ensure(ctx, memberID))
	if rank != enums.RankNone {
		require.NoError(t, client.DB().Model(&models.Member{}).
			Where("member_id = ?", memberID).
			Update("rank", rank).Error)
	}
}

func TestRepositoryInsertFindCountDelete(t *testing.T) {
	client := repotest.NewSQLite(t)
	seedMember(t, client, "mentor", enums.RankMember)
	seedMember(t, client, "mentee-1", enums.RankNone)
	seedMember(t, client, "mentee-2", enums.RankNone)
	r := NewRepository(client.DB())
	ctx := context.Background()

	missing, err := r.FindByMentee(ctx, "mentee-1")
	require.NoError(t, err)
	assert.Nil(t, missing)

	mentorID := "mentor"
	require.NoError(t, r.Insert(ctx, &models.MentorAssignment{
		MenteeID:  "mentee-1",
		MentorID:  &mentorID,
		Status:    enums.AssignmentStatusActive,
		ChannelID: "c-1",
		DecidedAt: time.Now().UTC(),
	}))
	require.NoError(t, r.Insert(ctx, &models.MentorAssignment{
		MenteeID:  "mentee-2",
		Status:    enums.AssignmentStatusSkipped,
		ChannelID: DefaultChannelID,
		DecidedAt: time.Now().UTC(),
	}))

	found, err := r.FindByMentee(ctx, "mentee-1")
	require.NoError(t, err)
	require.NotNil(t, found)
	assert.Equal(t, enums.AssignmentStatusActive, found.Status)
	require.NotNil(t, found.MentorID)
	assert.Equal(t, "mentor", *found.MentorID)

	count, err := r.CountActiveByMentor(ctx, "mentor")
	require.NoError(t, err)
	assert.Equal(t, int64(1), count)

	deleted, err := r.DeleteByMentee(ctx, "mentee-1")
	require.NoError(t, err)
	assert.Equal(t, int64(1), deleted)
	deleted, err = r.DeleteByMentee(ctx, "mentee-1")
	require.NoError(t, err)
	assert.Equal(t, int64(0), deleted)
}

func TestRepositoryRejectsSecondRowForMentee(t *testing.T) {
	client := repotest.NewSQLite(t)
	seedMember(t, client, "mentee-1", enums.RankNone)
	r := NewRepository(client.DB())
	ctx := context.Background()

	row := func() *models.MentorAssignment {
		return &models.MentorAssignment{
			MenteeID:  "mentee-1",
			Status:    enums.AssignmentStatusSkipped,
			ChannelID: DefaultChannelID,
			DecidedAt: time.Now().UTC(),
		}
	}
	require.NoError(t, r.Insert(ctx, row()))
	err := r.Insert(ctx, row())
	require.Error(t, err)
	assert.True(t, db.IsUniqueViolation(err, ""), "got %v", err)
}

func TestRepositoryRejectsDecisionForUnknownMentee(t *testing.T) {
	client := repotest.NewSQLite(t)
	r := NewRepository(client.DB())

	err := r.Insert(context.Background(), &models.MentorAssignment{
		MenteeID:  "ghost",
		Status:    enums.AssignmentStatusSkipped,
		ChannelID: DefaultChannelID,
		DecidedAt: time.Now().UTC(),
	})
	require.Error(t, err, "mentee must reference a member row")
}
