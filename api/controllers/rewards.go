package controllers

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/cody-community/cody-backend/api/responses"
	"github.com/cody-community/cody-backend/internal/ledger"
	"github.com/cody-community/cody-backend/pkg/enums"
	pkgerrors "github.com/cody-community/cody-backend/pkg/errors"
	"github.com/cody-community/cody-backend/pkg/logger"
	"github.com/cody-community/cody-backend/pkg/pagination"
)

type rewardView struct {
	ID         uuid.UUID            `json:"id"`
	Currency   enums.RewardCurrency `json:"currency"`
	Delta      int64                `json:"delta"`
	SourceType enums.RewardSource   `json:"source_type"`
	ChannelID  string               `json:"channel_id"`
	CreatedAt  time.Time            `json:"created_at"`
}

type rewardHistoryView struct {
	Items      []rewardView `json:"items"`
	NextCursor string       `json:"next_cursor,omitempty"`
}

// ListRewards pages through a member's reward logs, newest first.
func ListRewards(svc ledger.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "ledger service unavailable"))
			return
		}
		memberID, err := memberIDParam(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		query := r.URL.Query()
		params := pagination.Params{Cursor: query.Get("cursor")}
		if raw := strings.TrimSpace(query.Get("limit")); raw != "" {
			limit, err := strconv.Atoi(raw)
			if err != nil || limit <= 0 {
				responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeValidation, "limit must be a positive integer"))
				return
			}
			params.Limit = limit
		}

		page, err := svc.History(r.Context(), memberID, params)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		view := rewardHistoryView{Items: make([]rewardView, 0, len(page.Items)), NextCursor: page.NextCursor}
		for _, entry := range page.Items {
			view.Items = append(view.Items, rewardView{
				ID:         entry.ID,
				Currency:   entry.Currency,
				Delta:      entry.Delta,
				SourceType: entry.SourceType,
				ChannelID:  entry.ChannelID,
				CreatedAt:  entry.CreatedAt,
			})
		}
		responses.WriteSuccess(w, view)
	}
}
