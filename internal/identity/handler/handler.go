package handler

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"kycgate/internal/identity/service"
	id "kycgate/pkg/domain"
	dErrors "kycgate/pkg/domain-errors"
	"kycgate/pkg/platform/httputil"
	"kycgate/pkg/requestcontext"
)

// Service defines the identity operations the handler exposes.
type Service interface {
	Resolve(ctx context.Context, tenantID id.TenantID, clientUserID, email, phone string) (*service.Resolution, error)
	GetByClientUserID(ctx context.Context, tenantID id.TenantID, clientUserID string) (*service.Resolution, error)
}

type Handler struct {
	service Service
	logger  *slog.Logger
}

func New(service Service, logger *slog.Logger) *Handler {
	return &Handler{service: service, logger: logger}
}

// Register mounts user endpoints. The router must already carry the tenant guard.
func (h *Handler) Register(r chi.Router) {
	r.Post("/user", h.HandleCreateOrGet)
	r.Get("/user/{clientUserId}", h.HandleGet)
}

// HandleCreateOrGet handles POST /user.
func (h *Handler) HandleCreateOrGet(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)

	tenantID := requestcontext.TenantID(ctx)
	if tenantID.IsNil() {
		httputil.WriteError(w, dErrors.New(dErrors.CodeUnauthorized, "API key required"))
		return
	}

	req, ok := httputil.DecodeAndPrepare[CreateUserRequest](w, r, h.logger, ctx, requestID)
	if !ok {
		return
	}

	res, err := h.service.Resolve(ctx, tenantID, req.ClientUserID, req.Email, req.Phone)
	if err != nil {
		h.logger.ErrorContext(ctx, "failed to resolve user",
			"request_id", requestID,
			"tenant_id", tenantID,
			"error", err,
		)
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, FromResolution(res))
}

// HandleGet handles GET /user/{clientUserId}.
func (h *Handler) HandleGet(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	tenantID := requestcontext.TenantID(ctx)
	if tenantID.IsNil() {
		httputil.WriteError(w, dErrors.New(dErrors.CodeUnauthorized, "API key required"))
		return
	}

	res, err := h.service.GetByClientUserID(ctx, tenantID, chi.URLParam(r, "clientUserId"))
	if err != nil {
		if !dErrors.CodeOf(err).IsClientError() {
			h.logger.ErrorContext(ctx, "failed to load user",
				"request_id", requestcontext.RequestID(ctx),
				"tenant_id", tenantID,
				"error", err,
			)
		}
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, FromResolution(res))
}
