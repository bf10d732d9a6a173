package middleware

import (
	"net/http"

	"expertly/pkg/auth"
	apperrors "expertly/pkg/errors"
	httputil "expertly/pkg/http"
	"expertly/pkg/logger"
)

type TokenParser interface {
	Parse(token string) (auth.Principal, error)
}

// Authenticate resolves the bearer token into an auth.Principal on the request context.
func Authenticate(tokens TokenParser, log *logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			raw, err := auth.BearerToken(r.Header.Get("Authorization"))
			if err != nil {
				_ = httputil.WriteError(w, apperrors.Unauthorized("Authorization header required"))
				return
			}

			principal, err := tokens.Parse(raw)
			if err != nil {
				log.Warn("Rejected bearer token",
					"request_id", RequestIDFromContext(r.Context()),
					"path", r.URL.Path,
					"error", err,
				)
				_ = httputil.WriteError(w, apperrors.Unauthorized("Invalid or expired token"))
				return
			}

			ctx := auth.NewContext(r.Context(), principal)
			ctx = logger.WithContext(ctx, logger.FromContext(ctx, log).With(
				"principal_kind", string(principal.Kind),
				"principal_id", principal.ID,
			))
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
