package controllers

import (
	"net/http"

	"github.com/cody-community/cody-backend/api/responses"
	"github.com/cody-community/cody-backend/api/validators"
	"github.com/cody-community/cody-backend/internal/onboarding"
	"github.com/cody-community/cody-backend/pkg/enums"
	pkgerrors "github.com/cody-community/cody-backend/pkg/errors"
	"github.com/cody-community/cody-backend/pkg/logger"
)

type completeRequest struct {
	ChannelID string `json:"channelId" validate:"omitempty,max=64"`
	SyncRoles *bool  `json:"syncRoles"`
}

type advanceRequest struct {
	Rank      string `json:"rank" validate:"required,notblank"`
	SyncRoles *bool  `json:"syncRoles"`
}

// GetOnboarding returns the member's current completion snapshot.
func GetOnboarding(coordinator onboarding.Service, logg *logger.Logger) http.HandlerFunc {
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
		snap, err := coordinator.Evaluate(r.Context(), memberID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, snap)
	}
}

// CompleteOnboarding triggers a completion attempt. Roles are synced unless
// syncRoles is explicitly false.
func CompleteOnboarding(coordinator onboarding.Service, logg *logger.Logger) http.HandlerFunc {
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
		var req completeRequest
		if err := validators.DecodeOptionalJSONBody(w, r, &req); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		result, err := coordinator.TryComplete(r.Context(), onboarding.TryCompleteInput{
			MemberID:  memberID,
			ChannelID: req.ChannelID,
			SyncRoles: req.SyncRoles == nil || *req.SyncRoles,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, toCompletionView(result))
	}
}

// AdvanceRank moves a member forward on the ladder past STARTER.
func AdvanceRank(coordinator onboarding.Service, logg *logger.Logger) http.HandlerFunc {
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
		var req advanceRequest
		if err := validators.DecodeJSONBody(w, r, &req); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		target, err := enums.ParseRank(req.Rank)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid rank"))
			return
		}

		result, err := coordinator.Advance(r.Context(), onboarding.AdvanceInput{
			MemberID:  memberID,
			Target:    target,
			SyncRoles: req.SyncRoles == nil || *req.SyncRoles,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, struct {
			Previous enums.Rank `json:"previous"`
			Rank     enums.Rank `json:"rank"`
			roleSyncView
		}{
			Previous:     result.Previous,
			Rank:         result.Rank,
			roleSyncView: toRoleSyncView(result.RoleSync, result.RoleSyncError),
		})
	}
}

// ReconcileRankRoles converges the member's role set onto the stored rank.
// A partial failure is returned as ROLE_SYNC_PARTIAL with the pass summary.
func ReconcileRankRoles(coordinator onboarding.Service, logg *logger.Logger) http.HandlerFunc {
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
		result, err := coordinator.SyncRoles(r.Context(), memberID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, result)
	}
}
