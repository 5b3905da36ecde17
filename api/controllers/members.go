package controllers

import (
	"net/http"

	"github.com/cody-community/cody-backend/api/responses"
	"github.com/cody-community/cody-backend/api/validators"
	"github.com/cody-community/cody-backend/internal/members"
	"github.com/cody-community/cody-backend/internal/onboarding"
	"github.com/cody-community/cody-backend/pkg/db/models"
	pkgerrors "github.com/cody-community/cody-backend/pkg/errors"
	"github.com/cody-community/cody-backend/pkg/logger"
)

type displayNameRequest struct {
	Name      string `json:"name" validate:"required,notblank,max=64"`
	ChannelID string `json:"channelId" validate:"omitempty,max=64"`
}

type ageVerificationRequest struct {
	ChannelID string `json:"channelId" validate:"omitempty,max=64"`
}

type prerequisiteResponse struct {
	Member     *memberView     `json:"member"`
	Onboarding *completionView `json:"onboarding"`
}

// SetDisplayName records the display-name prerequisite and retries completion.
func SetDisplayName(svc members.Service, coordinator onboarding.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil || coordinator == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "members service unavailable"))
			return
		}
		memberID, err := memberIDParam(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var req displayNameRequest
		if err := validators.DecodeJSONBody(w, r, &req); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		member, err := svc.SetDisplayName(r.Context(), memberID, req.Name)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		writePrerequisite(w, r, coordinator, logg, member, req.ChannelID)
	}
}

// MarkAgeVerified records the age-verification prerequisite and retries completion.
func MarkAgeVerified(svc members.Service, coordinator onboarding.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil || coordinator == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "members service unavailable"))
			return
		}
		memberID, err := memberIDParam(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var req ageVerificationRequest
		if err := validators.DecodeOptionalJSONBody(w, r, &req); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		member, err := svc.MarkAgeVerified(r.Context(), memberID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		writePrerequisite(w, r, coordinator, logg, member, req.ChannelID)
	}
}

// MemberRejoined handles the re-entry event for a member.
func MemberRejoined(coordinator onboarding.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if coordinator == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "onboarding service unavailable"))
			return
		}
		memberID, err := memberIDParam(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		result, err := coordinator.HandleRejoin(r.Context(), memberID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, struct {
			Reset    bool                `json:"reset"`
			Rank     string              `json:"rank"`
			Snapshot onboarding.Snapshot `json:"snapshot"`
			roleSyncView
		}{
			Reset:        result.Reset,
			Rank:         result.Rank.String(),
			Snapshot:     result.Snapshot,
			roleSyncView: toRoleSyncView(result.RoleSync, result.RoleSyncError),
		})
	}
}

// writePrerequisite runs completion after a prerequisite write and renders
// the refreshed record together with the completion result.
func writePrerequisite(w http.ResponseWriter, r *http.Request, coordinator onboarding.Service, logg *logger.Logger, member *models.Member, channelID string) {
	result, err := coordinator.TryComplete(r.Context(), onboarding.TryCompleteInput{
		MemberID:  member.MemberID,
		ChannelID: channelID,
		SyncRoles: true,
	})
	if err != nil {
		responses.WriteError(r.Context(), logg, w, err)
		return
	}
	view := toMemberView(member)
	view.Rank = result.Rank
	responses.WriteSuccess(w, prerequisiteResponse{
		Member:     view,
		Onboarding: toCompletionView(result),
	})
}
