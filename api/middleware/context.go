package middleware

import (
	"context"

	"github.com/cody-community/cody-backend/api/responses"
)

type contextKey string

const (
	ctxService contextKey = "service"
	ctxGuildID contextKey = "guild_id"
)

// ServiceFromContext returns the authenticated calling service.
func ServiceFromContext(ctx context.Context) string {
	if ctx == nil {
		return ""
	}
	if v, ok := ctx.Value(ctxService).(string); ok {
		return v
	}
	return ""
}

func GuildIDFromContext(ctx context.Context) string {
	if ctx == nil {
		return ""
	}
	if v, ok := ctx.Value(ctxGuildID).(string); ok {
		return v
	}
	return ""
}

// WithService injects the calling service into the context.
func WithService(ctx context.Context, service string) context.Context {
	if ctx == nil {
		ctx = context.Background()
	}
	return context.WithValue(ctx, ctxService, service)
}

// RequestIDFromContext returns the id assigned by RequestID, if any.
func RequestIDFromContext(ctx context.Context) string {
	return responses.RequestID(ctx)
}
