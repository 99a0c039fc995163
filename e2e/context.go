package e2e

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"time"
)

// TestContext holds the HTTP client and the last response of a scenario.
type TestContext struct {
	BaseURL     string
	Token       string
	HTTPClient  *http.Client
	LastStatus  int
	LastBody    []byte
	CurrentCall string
}

// NewTestContext reads E2E_BASE_URL and E2E_TOKEN from the environment.
func NewTestContext() *TestContext {
	base := os.Getenv("E2E_BASE_URL")
	if base == "" {
		base = "http://localhost:8080"
	}
	return &TestContext{
		BaseURL:    strings.TrimRight(base, "/"),
		Token:      os.Getenv("E2E_TOKEN"),
		HTTPClient: &http.Client{Timeout: 10 * time.Second},
	}
}

// Reset clears per-scenario state.
func (tc *TestContext) Reset() {
	tc.LastStatus = 0
	tc.LastBody = nil
	tc.CurrentCall = ""
}

func (tc *TestContext) POST(path string, body any) error {
	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("marshal body: %w", err)
		}
		reader = bytes.NewReader(raw)
	}
	return tc.do(http.MethodPost, path, reader, true)
}

func (tc *TestContext) GET(path string) error {
	return tc.do(http.MethodGet, path, nil, true)
}

// GETAnonymous sends a request without the bearer token.
func (tc *TestContext) GETAnonymous(path string) error {
	return tc.do(http.MethodGet, path, nil, false)
}

func (tc *TestContext) do(method, path string, body io.Reader, auth bool) error {
	req, err := http.NewRequestWithContext(context.Background(), method, tc.BaseURL+path, body)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if auth && tc.Token != "" {
		req.Header.Set("Authorization", "Bearer "+tc.Token)
	}
	resp, err := tc.HTTPClient.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	tc.LastStatus = resp.StatusCode
	tc.LastBody, err = io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("read response: %w", err)
	}
	return nil
}

func (tc *TestContext) GetLastStatus() int { return tc.LastStatus }

// GetResponseField returns a top-level field of the last JSON response.
func (tc *TestContext) GetResponseField(field string) (any, error) {
	var body map[string]any
	if err := json.Unmarshal(tc.LastBody, &body); err != nil {
		return nil, fmt.Errorf("response is not a JSON object: %s", tc.LastBody)
	}
	v, ok := body[field]
	if !ok {
		return nil, fmt.Errorf("field %q not in response: %s", field, tc.LastBody)
	}
	return v, nil
}

func (tc *TestContext) GetLastBody() []byte { return tc.LastBody }

func (tc *TestContext) GetCurrentCall() string { return tc.CurrentCall }

func (tc *TestContext) SetCurrentCall(callID string) { tc.CurrentCall = callID }
