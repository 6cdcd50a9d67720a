package middleware

import (
	"context"
	"log/slog"
	"net/http"
	"strings"

	id "kycgate/pkg/domain"
	dErrors "kycgate/pkg/domain-errors"
	"kycgate/pkg/platform/httputil"
	"kycgate/pkg/requestcontext"
)

// APIKeyHeader carries the tenant credential.
const APIKeyHeader = "X-API-Key"

// TenantAuthenticator resolves an API key to an active tenant.
// Unknown or inactive keys must yield a CodeUnauthorized error.
type TenantAuthenticator interface {
	Authenticate(ctx context.Context, apiKey string) (id.TenantID, error)
}

// RequireTenant rejects requests without a valid tenant API key and attaches the
// tenant ID to the context.
func RequireTenant(auth TenantAuthenticator, logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()
			requestID := requestcontext.RequestID(ctx)

			apiKey := strings.TrimSpace(r.Header.Get(APIKeyHeader))
			if apiKey == "" {
				logger.WarnContext(ctx, "unauthorized access - missing api key",
					"request_id", requestID,
				)
				httputil.WriteError(w, dErrors.New(dErrors.CodeUnauthorized, "API key required"))
				return
			}

			tenantID, err := auth.Authenticate(ctx, apiKey)
			if err != nil {
				if dErrors.HasCode(err, dErrors.CodeUnauthorized) {
					logger.WarnContext(ctx, "unauthorized access - invalid api key",
						"request_id", requestID,
					)
					httputil.WriteError(w, dErrors.New(dErrors.CodeUnauthorized, "Invalid API key"))
					return
				}
				logger.ErrorContext(ctx, "tenant authentication failed",
					"request_id", requestID,
					"error", err,
				)
				httputil.WriteError(w, err)
				return
			}

			ctx = requestcontext.WithTenantID(ctx, tenantID)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
