package onramp

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"

	"kycgate/internal/kyc/providers"
)

const (
	testAPIKey = "test-api-key"
	testSecret = "test-secret"
)

type ClientSuite struct {
	suite.Suite
	server  *httptest.Server
	handler http.HandlerFunc
	calls   atomic.Int32
	client  *Client
	lastReq map[string]any
}

func TestClientSuite(t *testing.T) {
	suite.Run(t, new(ClientSuite))
}

func (s *ClientSuite) SetupTest() {
	s.calls.Store(0)
	s.lastReq = nil
	s.handler = nil
	s.server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		s.calls.Add(1)
		s.verifySignedRequest(r)
		s.handler(w, r)
	}))
	s.client = New(s.server.URL, testAPIKey, testSecret, 2*time.Second,
		WithClock(func() time.Time { return time.UnixMilli(1700000000000) }))
}

func (s *ClientSuite) TearDownTest() {
	s.server.Close()
}

// verifySignedRequest checks the authentication headers the provider validates.
func (s *ClientSuite) verifySignedRequest(r *http.Request) {
	s.Equal(http.MethodPost, r.Method)
	s.Equal("application/json", r.Header.Get("Content-Type"))
	s.Equal(testAPIKey, r.Header.Get("apiKey"))
	s.Equal("1700000000000", r.Header.Get("timestamp"))
	s.True(Verify(r.Header.Get("payload"), r.Header.Get("signature"), testSecret), "signature must verify")

	raw, err := io.ReadAll(r.Body)
	s.Require().NoError(err)
	s.Require().NoError(json.Unmarshal(raw, &s.lastReq))
	s.NotContains(s.lastReq, "signature")
	s.NotContains(s.lastReq, "apiKey")
}

func (s *ClientSuite) reply(status int, body string) {
	s.handler = func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		_, _ = io.WriteString(w, body)
	}
}

func (s *ClientSuite) profile() providers.CustomerProfile {
	return providers.CustomerProfile{
		ClientCustomerID: "user-1",
		Email:            "a@x.com",
		Phone:            "+911234567890",
	}
}

func (s *ClientSuite) TestCreateOrFindCustomer() {
	s.Run("new customer", func() {
		var path string
		s.handler = func(w http.ResponseWriter, r *http.Request) {
			path = r.URL.Path
			_, _ = io.WriteString(w, `{"status":1,"code":200,"data":{"kycUrl":"https://kyc.example/abc","clientCustomerId":"user-1","customerId":"cust-9","signature":"x"}}`)
		}

		result, err := s.client.CreateOrFindCustomer(context.Background(), s.profile(), "")
		s.Require().NoError(err)
		s.Equal(providers.NewCustomer, result.Kind)
		s.Equal("cust-9", result.ProviderID)
		s.Equal("https://kyc.example/abc", result.Link)

		s.Equal("/onramp/api/v2/whiteLabel/kyc/url", path)
		s.Equal("+91-1234567890", s.lastReq["phoneNumber"])
		s.Equal("INDIVIDUAL", s.lastReq["type"])
		s.Equal("user-1", s.lastReq["clientCustomerId"])
		s.Equal("a@x.com", s.lastReq["email"])
		s.NotContains(s.lastReq, "customerId", "empty customer id is omitted")
	})

	s.Run("resume sends existing customer id", func() {
		s.reply(http.StatusOK, `{"data":{"kycUrl":"https://kyc.example/def","customerId":"cust-9"}}`)

		result, err := s.client.CreateOrFindCustomer(context.Background(), s.profile(), "cust-9")
		s.Require().NoError(err)
		s.Equal("cust-9", s.lastReq["customerId"])
		s.Equal("https://kyc.example/def", result.Link)
	})

	s.Run("error body with customer id is an existing customer", func() {
		s.reply(http.StatusBadRequest, `{"status":0,"code":400,"error":"customer already exists","customerId":"cust-7"}`)

		result, err := s.client.CreateOrFindCustomer(context.Background(), s.profile(), "")
		s.Require().NoError(err)
		s.Equal(providers.ExistingCustomer, result.Kind)
		s.Equal("cust-7", result.ProviderID)
		s.Empty(result.Link)
	})

	s.Run("server error with customer id is still an existing customer", func() {
		s.reply(http.StatusInternalServerError, `{"error":"dup","customerId":"cust-8"}`)

		result, err := s.client.CreateOrFindCustomer(context.Background(), s.profile(), "")
		s.Require().NoError(err)
		s.Equal(providers.ExistingCustomer, result.Kind)
	})

	s.Run("client error without customer id is rejected", func() {
		s.reply(http.StatusBadRequest, `{"status":0,"code":400,"error":"invalid email"}`)

		_, err := s.client.CreateOrFindCustomer(context.Background(), s.profile(), "")
		s.Require().Error(err)
		s.Equal(providers.ErrorRejected, providers.GetCategory(err))
		s.Contains(err.Error(), "Failed to get KYC URL: invalid email")
	})

	s.Run("client error without message", func() {
		s.reply(http.StatusForbidden, `not json`)

		_, err := s.client.CreateOrFindCustomer(context.Background(), s.profile(), "")
		s.Require().Error(err)
		s.Contains(err.Error(), "Failed to get KYC URL: Unknown error")
	})

	s.Run("server error without customer id is unavailable", func() {
		s.reply(http.StatusBadGateway, `{"error":"upstream"}`)

		_, err := s.client.CreateOrFindCustomer(context.Background(), s.profile(), "")
		s.Require().Error(err)
		s.Equal(providers.ErrorUnavailable, providers.GetCategory(err))
		s.True(providers.IsRetryable(err))
	})

	s.Run("undecodable success body is bad data", func() {
		s.reply(http.StatusOK, `{"data":`)

		_, err := s.client.CreateOrFindCustomer(context.Background(), s.profile(), "")
		s.Require().Error(err)
		s.Equal(providers.ErrorBadData, providers.GetCategory(err))
	})
}

func (s *ClientSuite) TestCreateOrFindCustomer_InvalidPhoneMakesNoCall() {
	s.reply(http.StatusOK, `{}`)
	profile := s.profile()
	profile.Phone = "911234567890"

	_, err := s.client.CreateOrFindCustomer(context.Background(), profile, "")
	s.Require().Error(err)
	s.Equal(providers.ErrorInvalidInput, providers.GetCategory(err))
	s.Equal(int32(0), s.calls.Load())
}

func (s *ClientSuite) TestFetchStatus() {
	s.Run("maps response fields", func() {
		var path string
		s.handler = func(w http.ResponseWriter, r *http.Request) {
			path = r.URL.Path
			_, _ = io.WriteString(w, `{"status":1,"code":200,"data":{"status":"BASIC_KYC_COMPLETED","countryISO":"IN","currentKycVerificationStep":"AADHAAR","previousSuccessfulKycStep":"PAN"}}`)
		}

		st, err := s.client.FetchStatus(context.Background(), "cust-9")
		s.Require().NoError(err)
		s.Equal("/onramp/api/v2/whiteLabel/kyc/status", path)
		s.Equal("cust-9", s.lastReq["customerId"])
		s.Equal("BASIC_KYC_COMPLETED", st.Status)
		s.Equal("IN", st.CountryISO)
		s.Equal("PAN", st.PreviousSuccessfulStep)
	})

	s.Run("rejection carries provider message", func() {
		s.reply(http.StatusNotFound, `{"error":"customer not found"}`)

		_, err := s.client.FetchStatus(context.Background(), "cust-missing")
		s.Require().Error(err)
		s.Equal(providers.ErrorRejected, providers.GetCategory(err))
		s.Contains(err.Error(), "Failed to get KYC Status: customer not found")
	})
}

func (s *ClientSuite) TestFetchStatus_EmptyIDMakesNoCall() {
	s.reply(http.StatusOK, `{}`)

	_, err := s.client.FetchStatus(context.Background(), "")
	s.Require().Error(err)
	s.Equal(providers.ErrorInvalidInput, providers.GetCategory(err))
	s.Equal(int32(0), s.calls.Load())
}

func TestClient_NetworkFailureIsUnavailable(t *testing.T) {
	server := httptest.NewServer(http.NotFoundHandler())
	baseURL := server.URL
	server.Close()

	client := New(baseURL, testAPIKey, testSecret, time.Second)
	_, err := client.FetchStatus(context.Background(), "cust-1")
	require.Error(t, err)
	assert.Equal(t, providers.ErrorUnavailable, providers.GetCategory(err))
}

func TestClient_TimeoutIsClassified(t *testing.T) {
	release := make(chan struct{})
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-release:
		case <-r.Context().Done():
		}
	}))
	defer server.Close()
	defer close(release)

	client := New(server.URL, testAPIKey, testSecret, 50*time.Millisecond)
	_, err := client.FetchStatus(context.Background(), "cust-1")
	require.Error(t, err)
	assert.Equal(t, providers.ErrorTimeout, providers.GetCategory(err))
}

func TestNew_TrimsBaseURL(t *testing.T) {
	c := New("https://api-test.onramp.money/", testAPIKey, testSecret, 0)
	assert.Equal(t, "https://api-test.onramp.money/onramp/api", c.baseURL)
	assert.Equal(t, ProviderName, c.Name())
}
