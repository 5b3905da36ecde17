package controllers

import (
	"net/http"

	"github.com/cody-community/cody-backend/api/responses"
	"github.com/cody-community/cody-backend/internal/profile"
	pkgerrors "github.com/cody-community/cody-backend/pkg/errors"
	"github.com/cody-community/cody-backend/pkg/logger"
)

func GetProfile(svc profile.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "profile service unavailable"))
			return
		}
		memberID, err := memberIDParam(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		result, err := svc.Get(r.Context(), memberID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, result)
	}
}
