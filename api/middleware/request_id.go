package middleware

import (
	"net/http"
	"regexp"

	"github.com/google/uuid"

	"github.com/cody-community/cody-backend/api/responses"
	"github.com/cody-community/cody-backend/pkg/logger"
)

const requestIDHeader = "X-Request-Id"

// Callers such as the gateway bot may forward their own correlation id. Anything
// that could not safely land in a log line is replaced.
var requestIDRe = regexp.MustCompile(`^[A-Za-z0-9._:-]{1,64}$`)

func RequestID(logg *logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			reqID := r.Header.Get(requestIDHeader)
			if !requestIDRe.MatchString(reqID) {
				reqID = uuid.NewString()
			}
			w.Header().Set(requestIDHeader, reqID)

			ctx := responses.WithRequestID(r.Context(), reqID)
			if logg != nil {
				ctx = logg.WithRequestID(ctx, reqID)
			}
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
