package middleware

import (
	"context"
	"net/http"
	"strings"

	"github.com/cody-community/cody-backend/api/responses"
	pkgAuth "github.com/cody-community/cody-backend/pkg/auth"
	"github.com/cody-community/cody-backend/pkg/config"
	pkgerrors "github.com/cody-community/cody-backend/pkg/errors"
	"github.com/cody-community/cody-backend/pkg/logger"
)

// ServiceAuth validates a collaborator's bearer token and seeds the request
// context with the calling service. When guildID is set, tokens scoped to a
// different guild are rejected.
func ServiceAuth(cfg config.JWTConfig, guildID string, logg *logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			raw := strings.TrimSpace(r.Header.Get("Authorization"))
			if raw == "" {
				responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeUnauthorized, "missing credentials"))
				return
			}

			token := raw
			if strings.HasPrefix(strings.ToLower(token), "bearer ") {
				token = strings.TrimSpace(token[7:])
			}
			if token == "" {
				responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeUnauthorized, "missing credentials"))
				return
			}

			claims, err := pkgAuth.ParseServiceToken(cfg, token)
			if err != nil {
				responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeUnauthorized, err, "invalid token"))
				return
			}

			if guildID != "" && claims.GuildID != "" && claims.GuildID != guildID {
				responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeForbidden, "token issued for another guild"))
				return
			}

			ctx := context.WithValue(r.Context(), ctxService, claims.Service)
			if claims.GuildID != "" {
				ctx = context.WithValue(ctx, ctxGuildID, claims.GuildID)
			}

			if logg != nil {
				ctx = logg.WithCaller(ctx, claims.Service)
				if claims.GuildID != "" {
					ctx = logg.WithGuildID(ctx, claims.GuildID)
				}
			}

			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
