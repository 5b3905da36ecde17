package controllers

import (
	"net/http"

	"github.com/cody-community/cody-backend/api/responses"
	"github.com/cody-community/cody-backend/api/validators"
	"github.com/cody-community/cody-backend/internal/mentorship"
	"github.com/cody-community/cody-backend/internal/onboarding"
	pkgerrors "github.com/cody-community/cody-backend/pkg/errors"
	"github.com/cody-community/cody-backend/pkg/logger"
)

type decideMentorRequest struct {
	MentorID  string `json:"mentorId" validate:"required,notblank,max=64"`
	ChannelID string `json:"channelId" validate:"omitempty,max=64"`
}

type skipMentorRequest struct {
	ChannelID string `json:"channelId" validate:"omitempty,max=64"`
}

type decisionResponse struct {
	Decision   *decisionView   `json:"decision"`
	Onboarding *completionView `json:"onboarding"`
}

// DecideMentor records a mentor choice through the capacity and eligibility
// guard, then retries completion for the mentee.
func DecideMentor(svc mentorship.Service, coordinator onboarding.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil || coordinator == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "mentorship service unavailable"))
			return
		}
		menteeID, err := memberIDParam(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var req decideMentorRequest
		if err := validators.DecodeJSONBody(w, r, &req); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		ctx := r.Context()
		if logg != nil {
			ctx = logg.WithMentorID(logg.WithMemberID(ctx, menteeID), req.MentorID)
		}
		assignment, err := svc.DecideMentor(ctx, mentorship.DecideMentorInput{
			MenteeID:  menteeID,
			MentorID:  req.MentorID,
			ChannelID: req.ChannelID,
		})
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		writeDecision(w, r.WithContext(ctx), coordinator, logg, decisionInput{menteeID: menteeID, channelID: req.ChannelID, view: toDecisionView(assignment)})
	}
}

// SkipMentor records that the mentee goes without a mentor.
func SkipMentor(svc mentorship.Service, coordinator onboarding.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil || coordinator == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "mentorship service unavailable"))
			return
		}
		menteeID, err := memberIDParam(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var req skipMentorRequest
		if err := validators.DecodeOptionalJSONBody(w, r, &req); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		assignment, err := svc.DecideSkip(r.Context(), mentorship.DecideSkipInput{MenteeID: menteeID, ChannelID: req.ChannelID})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		writeDecision(w, r, coordinator, logg, decisionInput{menteeID: menteeID, channelID: req.ChannelID, view: toDecisionView(assignment)})
	}
}

// GetMentorDecision returns the mentee's decision, or null when undecided.
func GetMentorDecision(svc mentorship.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "mentorship service unavailable"))
			return
		}
		menteeID, err := memberIDParam(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		assignment, err := svc.GetDecision(r.Context(), menteeID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, map[string]any{
			"decided":  assignment != nil,
			"decision": toDecisionView(assignment),
		})
	}
}

type decisionInput struct {
	menteeID  string
	channelID string
	view      *decisionView
}

func writeDecision(w http.ResponseWriter, r *http.Request, coordinator onboarding.Service, logg *logger.Logger, in decisionInput) {
	result, err := coordinator.TryComplete(r.Context(), onboarding.TryCompleteInput{
		MemberID:  in.menteeID,
		ChannelID: in.channelID,
		SyncRoles: true,
	})
	if err != nil {
		responses.WriteError(r.Context(), logg, w, err)
		return
	}
	responses.WriteSuccessStatus(w, http.StatusCreated, decisionResponse{
		Decision:   in.view,
		Onboarding: toCompletionView(result),
	})
}
