package handler

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/suite"

	"kycgate/internal/platform/middleware"
	"kycgate/internal/tenant/models"
	"kycgate/internal/tenant/secrets"
	"kycgate/internal/tenant/service"
	tenantstore "kycgate/internal/tenant/store/tenant"
	dErrors "kycgate/pkg/domain-errors"
	"kycgate/pkg/testutil"
)

// The handler runs behind the real tenant guard so the API key flow is covered end to end.
type HandlerSuite struct {
	suite.Suite
	router  chi.Router
	service *service.Service
	tenant  *models.Tenant
}

func TestHandlerSuite(t *testing.T) {
	suite.Run(t, new(HandlerSuite))
}

func (s *HandlerSuite) SetupTest() {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	svc, err := service.New(tenantstore.NewInMemory(), secrets.Generate, service.WithLogger(logger))
	s.Require().NoError(err)
	s.service = svc

	s.tenant, err = svc.CreateTenant(context.Background(), "Acme")
	s.Require().NoError(err)

	s.router = chi.NewRouter()
	s.router.Group(func(r chi.Router) {
		r.Use(middleware.RequireTenant(svc, logger))
		New(svc, logger).Register(r)
	})
}

func (s *HandlerSuite) get(apiKey string) *http.Request {
	req := testutil.NewRequestWithBody(http.MethodGet, "/client", "")
	if apiKey != "" {
		req.Header.Set(middleware.APIKeyHeader, apiKey)
	}
	return req
}

func (s *HandlerSuite) TestGetClient() {
	rr := testutil.DoRequest(s.router, s.get(s.tenant.APIKey))
	s.Require().Equal(http.StatusOK, rr.Code, rr.Body.String())

	resp := testutil.UnmarshalResponse[ClientResponse](s.T(), rr)
	s.Equal(s.tenant.ID.String(), resp.ClientID)
	s.Equal("Acme", resp.ClientName)
	s.True(resp.IsActive)
	s.NotContains(rr.Body.String(), s.tenant.APIKey)
}

func (s *HandlerSuite) TestGetClient_MissingKey() {
	rr := testutil.DoRequest(s.router, s.get(""))
	testutil.AssertStatusAndError(s.T(), rr, http.StatusUnauthorized, string(dErrors.CodeUnauthorized))
	s.Contains(rr.Body.String(), "API key required")
}

func (s *HandlerSuite) TestGetClient_InvalidKey() {
	rr := testutil.DoRequest(s.router, s.get("kg_unknown"))
	testutil.AssertStatusAndError(s.T(), rr, http.StatusUnauthorized, string(dErrors.CodeUnauthorized))
	s.Contains(rr.Body.String(), "Invalid API key")
}

func (s *HandlerSuite) TestGetClient_InactiveTenant() {
	_, err := s.service.DeactivateTenant(context.Background(), s.tenant.ID)
	s.Require().NoError(err)

	rr := testutil.DoRequest(s.router, s.get(s.tenant.APIKey))
	testutil.AssertStatusAndError(s.T(), rr, http.StatusUnauthorized, string(dErrors.CodeUnauthorized))
}

func (s *HandlerSuite) TestGetClient_WithoutGuard() {
	router := chi.NewRouter()
	New(s.service, slog.New(slog.NewTextHandler(io.Discard, nil))).Register(router)

	rr := testutil.DoRequest(router, s.get(""))
	testutil.AssertStatusAndError(s.T(), rr, http.StatusUnauthorized, string(dErrors.CodeUnauthorized))
}
