package handler

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	identity "kycgate/internal/identity/models"
	"kycgate/internal/kyc/models"
	id "kycgate/pkg/domain"
	dErrors "kycgate/pkg/domain-errors"
	"kycgate/pkg/platform/httputil"
	"kycgate/pkg/requestcontext"
)

// Service defines the reconciler operations the handler exposes.
type Service interface {
	StartVerification(ctx context.Context, userID id.UserID) (*models.Session, error)
	RefreshStatus(ctx context.Context, userID id.UserID) (*models.Session, error)
	AdminOverride(ctx context.Context, userID id.UserID, next models.Status) (*models.Session, error)
	SandboxEnabled() bool
}

// LinkFinder resolves a tenant's own user id to the shared user.
type LinkFinder interface {
	FindLink(ctx context.Context, tenantID id.TenantID, clientUserID string) (*identity.ClientUser, error)
}

// Handler wires verification endpoints to the session reconciler.
type Handler struct {
	service Service
	links   LinkFinder
	logger  *slog.Logger
}

func New(service Service, links LinkFinder, logger *slog.Logger) *Handler {
	return &Handler{
		service: service,
		links:   links,
		logger:  logger,
	}
}

// Register mounts verification endpoints. The router must already carry the tenant guard.
func (h *Handler) Register(r chi.Router) {
	r.Get("/kyc/start/{clientUserId}", h.HandleStart)
	r.Get("/kyc/status/{clientUserId}", h.HandleStatus)
	r.Patch("/kyc/status/{clientUserId}", h.HandleOverride)
}

// HandleStart handles GET /kyc/start/{clientUserId}.
func (h *Handler) HandleStart(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)
	start := time.Now()

	clientUserID, link, ok := h.resolveLink(w, r)
	if !ok {
		return
	}

	session, err := h.service.StartVerification(ctx, link.UserID)
	if err != nil {
		h.logFailure(ctx, "failed to start kyc", requestID, clientUserID, err)
		httputil.WriteError(w, upstreamContext(err, "Failed to get KYC URL"))
		return
	}

	h.logger.InfoContext(ctx, "kyc start served",
		"request_id", requestID,
		"client_user_id", clientUserID,
		"kyc_status", session.Status,
		"duration_ms", time.Since(start).Milliseconds(),
	)
	httputil.WriteJSON(w, http.StatusOK, FromSession(clientUserID, session))
}

// HandleStatus handles GET /kyc/status/{clientUserId}.
func (h *Handler) HandleStatus(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)

	clientUserID, link, ok := h.resolveLink(w, r)
	if !ok {
		return
	}

	session, err := h.service.RefreshStatus(ctx, link.UserID)
	if err != nil {
		h.logFailure(ctx, "failed to refresh kyc status", requestID, clientUserID, err)
		httputil.WriteError(w, upstreamContext(err, "Failed to get KYC Status"))
		return
	}
	httputil.WriteJSON(w, http.StatusOK, FromSession(clientUserID, session))
}

// HandleOverride handles PATCH /kyc/status/{clientUserId}. Sandbox only: outside it
// the request is refused before the user or body is looked at.
func (h *Handler) HandleOverride(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)

	if !h.service.SandboxEnabled() {
		httputil.WriteError(w, dErrors.New(dErrors.CodeForbidden, "status override is only available in sandbox mode"))
		return
	}

	clientUserID, link, ok := h.resolveLink(w, r)
	if !ok {
		return
	}

	req, ok := httputil.DecodeAndPrepare[OverrideStatusRequest](w, r, h.logger, ctx, requestID)
	if !ok {
		return
	}

	session, err := h.service.AdminOverride(ctx, link.UserID, req.ParsedStatus())
	if err != nil {
		h.logFailure(ctx, "failed to override kyc status", requestID, clientUserID, err)
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, FromSession(clientUserID, session))
}

func (h *Handler) resolveLink(w http.ResponseWriter, r *http.Request) (string, *identity.ClientUser, bool) {
	ctx := r.Context()
	tenantID := requestcontext.TenantID(ctx)
	if tenantID.IsNil() {
		httputil.WriteError(w, dErrors.New(dErrors.CodeUnauthorized, "API key required"))
		return "", nil, false
	}

	clientUserID := chi.URLParam(r, "clientUserId")
	link, err := h.links.FindLink(ctx, tenantID, clientUserID)
	if err != nil {
		if !dErrors.HasCode(err, dErrors.CodeNotFound) {
			h.logFailure(ctx, "failed to resolve client user", requestcontext.RequestID(ctx), clientUserID, err)
		}
		httputil.WriteError(w, err)
		return "", nil, false
	}
	return clientUserID, link, true
}

func (h *Handler) logFailure(ctx context.Context, msg, requestID, clientUserID string, err error) {
	level := slog.LevelError
	if dErrors.CodeOf(err).IsClientError() {
		level = slog.LevelWarn
	}
	h.logger.Log(ctx, level, msg,
		"request_id", requestID,
		"client_user_id", clientUserID,
		"error", err,
	)
}

// upstreamContext prefixes provider failures with the operation that failed.
func upstreamContext(err error, prefix string) error {
	code := dErrors.CodeOf(err)
	if code != dErrors.CodeUpstreamRejected && code != dErrors.CodeUpstreamUnavailable {
		return err
	}
	msg := "Unknown error"
	var de *dErrors.Error
	if errors.As(err, &de) && de.Message != "" {
		msg = de.Message
	}
	return dErrors.Wrap(err, code, prefix+": "+msg)
}
