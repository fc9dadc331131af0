// Package apiclient implements the assistant's remote API over HTTP.
package apiclient

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"bugomattic/api/internal/search"
)

const maxResponseBytes = 8 << 20

// APIError is a non-2xx response from the API.
type APIError struct {
	Status  int
	Code    string
	Message string
}

func (e *APIError) Error() string {
	if e.Code == "" {
		return fmt.Sprintf("api returned %d", e.Status)
	}
	return fmt.Sprintf("api returned %d %s: %s", e.Status, e.Code, e.Message)
}

type Client struct {
	baseURL string
	http    *http.Client
}

// New returns a client for the API rooted at baseURL. A nil httpClient uses a
// client with a 10 second timeout.
func New(baseURL string, httpClient *http.Client) *Client {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 10 * time.Second}
	}
	return &Client{baseURL: strings.TrimRight(baseURL, "/"), http: httpClient}
}

// LoadReportingConfig returns the raw reporting config document.
func (c *Client) LoadReportingConfig(ctx context.Context) (json.RawMessage, error) {
	body, err := c.do(ctx, http.MethodGet, "/api/reporting-config", nil)
	if err != nil {
		return nil, err
	}
	if !json.Valid(body) {
		return nil, fmt.Errorf("reporting config is not valid JSON")
	}
	return json.RawMessage(body), nil
}

func (c *Client) LoadAvailableRepoFilters(ctx context.Context) ([]string, error) {
	body, err := c.do(ctx, http.MethodGet, "/api/repos", nil)
	if err != nil {
		return nil, err
	}
	var payload struct {
		Repos []string `json:"repos"`
	}
	if err := json.Unmarshal(body, &payload); err != nil {
		return nil, fmt.Errorf("decode repos: %w", err)
	}
	if payload.Repos == nil {
		payload.Repos = []string{}
	}
	return payload.Repos, nil
}

func (c *Client) SearchIssues(ctx context.Context, term string, filters search.Filters) ([]search.Issue, error) {
	request := map[string]any{
		"term":   term,
		"repos":  filters.Repos,
		"status": filters.Status,
		"sort":   filters.Sort,
	}
	body, err := c.do(ctx, http.MethodPost, "/api/issues/search", request)
	if err != nil {
		return nil, err
	}
	var payload struct {
		Issues []search.Issue `json:"issues"`
	}
	if err := json.Unmarshal(body, &payload); err != nil {
		return nil, fmt.Errorf("decode issues: %w", err)
	}
	if payload.Issues == nil {
		payload.Issues = []search.Issue{}
	}
	return payload.Issues, nil
}

func (c *Client) do(ctx context.Context, method, path string, payload any) ([]byte, error) {
	var reader io.Reader
	if payload != nil {
		encoded, err := json.Marshal(payload)
		if err != nil {
			return nil, err
		}
		reader = bytes.NewReader(encoded)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "application/json")
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return nil, err
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		apiErr := &APIError{Status: resp.StatusCode}
		var envelope struct {
			Code  string `json:"code"`
			Error string `json:"error"`
		}
		if json.Unmarshal(body, &envelope) == nil {
			apiErr.Code = envelope.Code
			apiErr.Message = envelope.Error
		}
		return nil, apiErr
	}
	return body, nil
}
