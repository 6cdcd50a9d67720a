package e2e

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

const apiKeyHeader = "X-API-Key"

// TestContext carries the HTTP client and the last response across the steps of
// one scenario.
type TestContext struct {
	BaseURL string
	// DefaultAPIKey is the bootstrap tenant key the server under test was started with.
	DefaultAPIKey string

	client     *http.Client
	apiKey     string
	lastStatus int
	lastBody   []byte
	lastHeader http.Header
	vars       map[string]string
}

func NewTestContext(baseURL, apiKey string) *TestContext {
	tc := &TestContext{
		BaseURL:       strings.TrimRight(baseURL, "/"),
		DefaultAPIKey: apiKey,
		client:        &http.Client{Timeout: 30 * time.Second},
	}
	tc.Reset()
	return tc
}

// Reset clears per-scenario state.
func (tc *TestContext) Reset() {
	tc.apiKey = tc.DefaultAPIKey
	tc.lastStatus = 0
	tc.lastBody = nil
	tc.lastHeader = nil
	tc.vars = map[string]string{}
}

func (tc *TestContext) SetAPIKey(key string) { tc.apiKey = key }

func (tc *TestContext) GetAPIKey() string { return tc.apiKey }

// Remember stores a value under name; scenarios use it for generated ids.
func (tc *TestContext) Remember(name, value string) { tc.vars[name] = value }

func (tc *TestContext) Recall(name string) string { return tc.vars[name] }

func (tc *TestContext) GET(path string, headers map[string]string) error {
	return tc.Do(http.MethodGet, path, nil, headers)
}

func (tc *TestContext) POST(path string, body interface{}) error {
	return tc.Do(http.MethodPost, path, body, nil)
}

func (tc *TestContext) PATCH(path string, body interface{}) error {
	return tc.Do(http.MethodPatch, path, body, nil)
}

// Do sends a request with the current API key unless headers override it. An
// empty X-API-Key header value sends no key at all.
func (tc *TestContext) Do(method, path string, body interface{}, headers map[string]string) error {
	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("marshal request body: %w", err)
		}
		reader = bytes.NewReader(raw)
	}
	req, err := http.NewRequest(method, tc.BaseURL+path, reader)
	if err != nil {
		return err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if tc.apiKey != "" {
		req.Header.Set(apiKeyHeader, tc.apiKey)
	}
	for k, v := range headers {
		if v == "" {
			req.Header.Del(k)
			continue
		}
		req.Header.Set(k, v)
	}

	resp, err := tc.client.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	tc.lastBody, err = io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("read response body: %w", err)
	}
	tc.lastStatus = resp.StatusCode
	tc.lastHeader = resp.Header
	return nil
}

func (tc *TestContext) GetLastResponseStatus() int { return tc.lastStatus }

func (tc *TestContext) GetLastResponseBody() []byte { return tc.lastBody }

func (tc *TestContext) GetLastResponseHeader(name string) string {
	if tc.lastHeader == nil {
		return ""
	}
	return tc.lastHeader.Get(name)
}

// GetResponseField returns a top-level field of the last JSON response.
func (tc *TestContext) GetResponseField(field string) (interface{}, error) {
	var body map[string]interface{}
	if err := json.Unmarshal(tc.lastBody, &body); err != nil {
		return nil, fmt.Errorf("response is not a JSON object: %w (body: %s)", err, tc.lastBody)
	}
	v, ok := body[field]
	if !ok {
		return nil, fmt.Errorf("response has no field %q (body: %s)", field, tc.lastBody)
	}
	return v, nil
}

func (tc *TestContext) ResponseContains(field string) bool {
	_, err := tc.GetResponseField(field)
	return err == nil
}
