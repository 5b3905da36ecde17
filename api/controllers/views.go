package controllers

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/cody-community/cody-backend/internal/members"
	"github.com/cody-community/cody-backend/internal/onboarding"
	"github.com/cody-community/cody-backend/internal/rankroles"
	"github.com/cody-community/cody-backend/pkg/db/models"
	"github.com/cody-community/cody-backend/pkg/enums"
	pkgerrors "github.com/cody-community/cody-backend/pkg/errors"
	"github.com/cody-community/cody-backend/pkg/types"
)

type memberView struct {
	MemberID      string     `json:"member_id"`
	DisplayName   *string    `json:"display_name"`
	AgeVerified   bool       `json:"age_verified"`
	AgeVerifiedAt *time.Time `json:"age_verified_at,omitempty"`
	Rank          enums.Rank `json:"rank"`
}

func toMemberView(m *models.Member) *memberView {
	if m == nil {
		return nil
	}
	return &memberView{
		MemberID:      m.MemberID,
		DisplayName:   m.DisplayName,
		AgeVerified:   m.IsAgeVerified(),
		AgeVerifiedAt: m.AgeVerifiedAt,
		Rank:          m.Rank,
	}
}

type decisionView struct {
	MenteeID  string                 `json:"mentee_id"`
	MentorID  *string                `json:"mentor_id"`
	Status    enums.AssignmentStatus `json:"status"`
	ChannelID string                 `json:"channel_id"`
	DecidedAt time.Time              `json:"decided_at"`
}

func toDecisionView(a *models.MentorAssignment) *decisionView {
	if a == nil {
		return nil
	}
	return &decisionView{
		MenteeID:  a.MenteeID,
		MentorID:  a.MentorID,
		Status:    a.Status,
		ChannelID: a.ChannelID,
		DecidedAt: a.DecidedAt,
	}
}

// roleSyncView carries a reconciliation outcome next to the primary result.
type roleSyncView struct {
	RoleSync      *rankroles.Result `json:"role_sync,omitempty"`
	RoleSyncError *types.APIError   `json:"role_sync_error,omitempty"`
}

func toRoleSyncView(result *rankroles.Result, err error) roleSyncView {
	view := roleSyncView{RoleSync: result}
	if err != nil {
		code := pkgerrors.CodeOf(err)
		meta := pkgerrors.MetadataFor(code)
		view.RoleSyncError = &types.APIError{
			Code:      string(code),
			Message:   meta.PublicMessage,
			Retryable: meta.Retryable,
		}
	}
	return view
}

type completionView struct {
	Completed bool                `json:"completed"`
	Promoted  bool                `json:"promoted"`
	Rank      enums.Rank          `json:"rank"`
	Snapshot  onboarding.Snapshot `json:"snapshot"`
	Rewards   int                 `json:"rewards_granted"`
	roleSyncView
}

func toCompletionView(result *onboarding.CompletionResult) *completionView {
	if result == nil {
		return nil
	}
	return &completionView{
		Completed:    result.Completed,
		Promoted:     result.Promoted,
		Rank:         result.Rank,
		Snapshot:     result.Snapshot,
		Rewards:      len(result.Rewards),
		roleSyncView: toRoleSyncView(result.RoleSync, result.RoleSyncError),
	}
}

// memberIDParam reads and normalizes the {memberId} route parameter.
func memberIDParam(r *http.Request) (string, error) {
	return members.NormalizeID(chi.URLParam(r, "memberId"))
}
