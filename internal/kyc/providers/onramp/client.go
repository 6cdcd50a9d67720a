// Package onramp is the Provider implementation for the onramp.money white-label KYC API.
//
// Every request is authenticated with headers only: apiKey, payload (base64 of the
// signed envelope), signature (hex HMAC-SHA512 of payload) and timestamp. A non-2xx
// answer to kyc/url that names a customerId means the person is already registered;
// it is returned as an ExistingCustomer result, not an error.
package onramp

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"kycgate/internal/kyc/providers"
)

const (
	// ProviderName is persisted on sessions created through this client.
	ProviderName = "onramp"

	apiPrefix      = "/onramp/api"
	kycURLPath     = "/v2/whiteLabel/kyc/url"
	kycStatusPath  = "/v2/whiteLabel/kyc/status"
	customerType   = "INDIVIDUAL"
	maxBodyBytes   = 1 << 20
	defaultTimeout = 15 * time.Second
)

// Client calls the provider API.
type Client struct {
	baseURL    string
	apiKey     string
	secret     string
	httpClient *http.Client
	tracer     trace.Tracer
	now        func() time.Time
}

// Option configures the Client.
type Option func(*Client)

// WithHTTPClient replaces the HTTP client (its transport is used as-is).
func WithHTTPClient(c *http.Client) Option {
	return func(cl *Client) {
		cl.httpClient = c
	}
}

// WithClock overrides the signing clock.
func WithClock(now func() time.Time) Option {
	return func(cl *Client) {
		cl.now = now
	}
}

// New builds a client for baseURL (the provider host, without the /onramp/api prefix).
func New(baseURL, apiKey, secret string, timeout time.Duration, opts ...Option) *Client {
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	c := &Client{
		baseURL: strings.TrimRight(baseURL, "/") + apiPrefix,
		apiKey:  apiKey,
		secret:  secret,
		httpClient: &http.Client{
			Timeout:   timeout,
			Transport: otelhttp.NewTransport(http.DefaultTransport),
		},
		tracer: otel.Tracer("kycgate/internal/kyc/providers/onramp"),
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func (c *Client) Name() string {
	return ProviderName
}

type kycURLRequest struct {
	ClientCustomerID string `json:"clientCustomerId"`
	PhoneNumber      string `json:"phoneNumber"`
	Type             string `json:"type"`
	Email            string `json:"email"`
	CustomerID       string `json:"customerId,omitempty"`
}

type kycURLResponse struct {
	Status int `json:"status"`
	Code   int `json:"code"`
	Data   struct {
		KycURL           string `json:"kycUrl"`
		ClientCustomerID string `json:"clientCustomerId"`
		CustomerID       string `json:"customerId"`
		Signature        string `json:"signature"`
	} `json:"data"`
}

type kycStatusRequest struct {
	CustomerID string `json:"customerId"`
}

type kycStatusResponse struct {
	Status int `json:"status"`
	Code   int `json:"code"`
	Data   struct {
		Status                     string `json:"status"`
		CountryISO                 string `json:"countryISO"`
		CurrentKycVerificationStep string `json:"currentKycVerificationStep"`
		PreviousSuccessfulKycStep  string `json:"previousSuccessfulKycStep"`
		FailedReason               string `json:"failedReason"`
	} `json:"data"`
}

// errorBody is the provider's non-2xx body.
type errorBody struct {
	Status     int    `json:"status"`
	Code       int    `json:"code"`
	Error      string `json:"error"`
	CustomerID string `json:"customerId"`
}

// CreateOrFindCustomer requests a KYC link for profile.
func (c *Client) CreateOrFindCustomer(ctx context.Context, profile providers.CustomerProfile, existingProviderID string) (*providers.CustomerResult, error) {
	ctx, span := c.tracer.Start(ctx, "onramp.CreateOrFindCustomer",
		trace.WithAttributes(attribute.Bool("kyc.resume", existingProviderID != "")))
	defer span.End()

	phone, err := FormatPhone(profile.Phone)
	if err != nil {
		return nil, providers.NewProviderError(providers.ErrorInvalidInput, ProviderName, "invalid phone number format", err)
	}

	status, body, err := c.post(ctx, kycURLPath, kycURLRequest{
		ClientCustomerID: profile.ClientCustomerID,
		PhoneNumber:      phone,
		Type:             customerType,
		Email:            profile.Email,
		CustomerID:       existingProviderID,
	})
	if err != nil {
		recordError(span, err)
		return nil, err
	}

	result, err := parseKycURLResponse(status, body)
	if err != nil {
		recordError(span, err)
		return nil, err
	}
	span.SetAttributes(attribute.String("kyc.result", result.Kind.String()))
	return result, nil
}

// FetchStatus returns the provider's status for providerID.
func (c *Client) FetchStatus(ctx context.Context, providerID string) (*providers.ProviderStatus, error) {
	if providerID == "" {
		return nil, providers.NewProviderError(providers.ErrorInvalidInput, ProviderName, "Customer ID is required to get KYC status", nil)
	}
	ctx, span := c.tracer.Start(ctx, "onramp.FetchStatus")
	defer span.End()

	status, body, err := c.post(ctx, kycStatusPath, kycStatusRequest{CustomerID: providerID})
	if err != nil {
		recordError(span, err)
		return nil, err
	}
	result, err := parseKycStatusResponse(status, body)
	if err != nil {
		recordError(span, err)
		return nil, err
	}
	span.SetAttributes(attribute.String("kyc.provider_status", result.Status))
	return result, nil
}

// post sends a signed request. A transport failure is an error; any HTTP status is
// returned to the caller for interpretation.
func (c *Client) post(ctx context.Context, path string, body any) (int, []byte, error) {
	raw, err := json.Marshal(body)
	if err != nil {
		return 0, nil, providers.NewProviderError(providers.ErrorInternal, ProviderName, "encode request", err)
	}
	sig, err := Sign(body, c.secret, c.now())
	if err != nil {
		return 0, nil, providers.NewProviderError(providers.ErrorInternal, ProviderName, "sign request", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(raw))
	if err != nil {
		return 0, nil, providers.NewProviderError(providers.ErrorInternal, ProviderName, "build request", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	req.Header.Set("apiKey", c.apiKey)
	req.Header.Set("payload", sig.Payload)
	req.Header.Set("signature", sig.Signature)
	req.Header.Set("timestamp", sig.Timestamp)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return 0, nil, classifyTransportError(err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return 0, nil, classifyTransportError(err)
	}
	return resp.StatusCode, respBody, nil
}

func parseKycURLResponse(status int, body []byte) (*providers.CustomerResult, error) {
	if status >= 200 && status < 300 {
		var ok kycURLResponse
		if err := json.Unmarshal(body, &ok); err != nil {
			return nil, providers.NewProviderError(providers.ErrorBadData, ProviderName, "decode kyc url response", err)
		}
		return &providers.CustomerResult{
			Kind:       providers.NewCustomer,
			ProviderID: ok.Data.CustomerID,
			Link:       ok.Data.KycURL,
		}, nil
	}

	eb := decodeErrorBody(body)
	if eb.CustomerID != "" {
		return &providers.CustomerResult{
			Kind:       providers.ExistingCustomer,
			ProviderID: eb.CustomerID,
		}, nil
	}
	return nil, classifyStatus(status, "Failed to get KYC URL: "+errorMessage(eb))
}

func parseKycStatusResponse(status int, body []byte) (*providers.ProviderStatus, error) {
	if status < 200 || status >= 300 {
		return nil, classifyStatus(status, "Failed to get KYC Status: "+errorMessage(decodeErrorBody(body)))
	}
	var ok kycStatusResponse
	if err := json.Unmarshal(body, &ok); err != nil {
		return nil, providers.NewProviderError(providers.ErrorBadData, ProviderName, "decode kyc status response", err)
	}
	return &providers.ProviderStatus{
		Status:                  ok.Data.Status,
		CountryISO:              ok.Data.CountryISO,
		CurrentVerificationStep: ok.Data.CurrentKycVerificationStep,
		PreviousSuccessfulStep:  ok.Data.PreviousSuccessfulKycStep,
		FailedReason:            ok.Data.FailedReason,
	}, nil
}

func decodeErrorBody(body []byte) errorBody {
	var eb errorBody
	_ = json.Unmarshal(body, &eb)
	return eb
}

func errorMessage(eb errorBody) string {
	if eb.Error == "" {
		return "Unknown error"
	}
	return eb.Error
}

func classifyStatus(status int, message string) error {
	if status >= 500 {
		return providers.NewProviderError(providers.ErrorUnavailable, ProviderName, message, fmt.Errorf("http status %d", status))
	}
	return providers.NewProviderError(providers.ErrorRejected, ProviderName, message, fmt.Errorf("http status %d", status))
}

func classifyTransportError(err error) error {
	if errors.Is(err, context.DeadlineExceeded) {
		return providers.NewProviderError(providers.ErrorTimeout, ProviderName, "provider request timed out", err)
	}
	var netErr interface{ Timeout() bool }
	if errors.As(err, &netErr) && netErr.Timeout() {
		return providers.NewProviderError(providers.ErrorTimeout, ProviderName, "provider request timed out", err)
	}
	return providers.NewProviderError(providers.ErrorUnavailable, ProviderName, "provider unreachable", err)
}

func recordError(span trace.Span, err error) {
	span.RecordError(err)
	span.SetStatus(codes.Error, string(providers.GetCategory(err)))
}
