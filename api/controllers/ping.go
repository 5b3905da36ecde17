package controllers

import (
	"net/http"

	"github.com/cody-community/cody-backend/api/middleware"
	"github.com/cody-community/cody-backend/api/responses"
)

func PublicPing() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		responses.WriteSuccess(w, map[string]string{"scope": "public", "status": "ok"})
	}
}

// PrivatePing echoes the authenticated calling service.
func PrivatePing() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		payload := map[string]string{"scope": "service", "status": "ok"}
		if service := middleware.ServiceFromContext(r.Context()); service != "" {
			payload["service"] = service
		}
		if guild := middleware.GuildIDFromContext(r.Context()); guild != "" {
			payload["guild_id"] = guild
		}
		responses.WriteSuccess(w, payload)
	}
}
