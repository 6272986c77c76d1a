// Package costapi is the HTTP client for the subscription cost API.
package costapi

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/j-veylop/cost-dashboard-tui/internal/filters"
	"github.com/j-veylop/cost-dashboard-tui/internal/logger"
	"github.com/j-veylop/cost-dashboard-tui/internal/models"
)

// ErrNotFound is returned when the API answers 404.
var ErrNotFound = errors.New("not found")

// Report formats accepted by GenerateReport.
const (
	FormatCSV  = "csv"
	FormatJSON = "json"
)

// APIError is a non-2xx response from the cost API.
type APIError struct {
	Detail     string
	StatusCode int
	RetryAfter int
}

func (e *APIError) Error() string {
	var b strings.Builder
	fmt.Fprintf(&b, "cost api returned %d", e.StatusCode)
	if e.StatusCode == http.StatusTooManyRequests {
		b.WriteString(" Too Many Requests")
	}
	if e.Detail != "" {
		b.WriteString(": ")
		b.WriteString(e.Detail)
	}
	if e.RetryAfter > 0 {
		fmt.Fprintf(&b, " (Retry-After: %d)", e.RetryAfter)
	}
	return b.String()
}

// Is matches ErrNotFound for 404 responses.
func (e *APIError) Is(target error) bool {
	return target == ErrNotFound && e.StatusCode == http.StatusNotFound
}

// NetworkError wraps a transport failure.
type NetworkError struct {
	Err error
}

func (e *NetworkError) Error() string {
	return "Network Error: " + e.Err.Error()
}

func (e *NetworkError) Unwrap() error {
	return e.Err
}

// Recorder receives one record per API call.
type Recorder interface {
	RecordAPICall(call models.APICall)
}

// Config holds configuration for the client.
type Config struct {
	BaseURL string
	Token   string
	Timeout time.Duration
}

// Client talks to the cost API.
type Client struct {
	httpClient *http.Client
	recorder   Recorder
	baseURL    string
	token      string
}

// New creates a client. recorder may be nil.
func New(cfg Config, recorder Recorder) *Client {
	if cfg.Timeout <= 0 {
		cfg.Timeout = 60 * time.Second
	}
	return &Client{
		httpClient: &http.Client{Timeout: cfg.Timeout},
		recorder:   recorder,
		baseURL:    strings.TrimRight(cfg.BaseURL, "/"),
		token:      cfg.Token,
	}
}

// BaseURL returns the API root the client talks to.
func (c *Client) BaseURL() string {
	return c.baseURL
}

type batchRequest struct {
	filters.Params
	SubscriptionIDs []string `json:"subscription_ids"`
}

// FetchBatchCosts fetches costs for several subscriptions in one request.
// Results carrying a non-empty Error describe per-subscription failures.
func (c *Client) FetchBatchCosts(ctx context.Context, ids []string, params filters.Params) ([]models.SubscriptionCostResult, error) {
	body, err := json.Marshal(batchRequest{SubscriptionIDs: ids, Params: params})
	if err != nil {
		return nil, fmt.Errorf("failed to encode batch request: %w", err)
	}

	subID := ""
	if len(ids) == 1 {
		subID = ids[0]
	}

	var results []models.SubscriptionCostResult
	if err := c.do(ctx, http.MethodPost, "/cost/subscriptions/batch-costs", nil, body, subID, &results); err != nil {
		return nil, err
	}
	return results, nil
}

// FetchSubscriptions lists the subscriptions visible to the caller.
func (c *Client) FetchSubscriptions(ctx context.Context) ([]models.Subscription, error) {
	var subs []models.Subscription
	if err := c.do(ctx, http.MethodGet, "/cost/subscriptions", nil, nil, "", &subs); err != nil {
		return nil, err
	}
	return subs, nil
}

// FetchSubscriptionCosts fetches one subscription using params plus the tag
// filters found in fs.
func (c *Client) FetchSubscriptionCosts(ctx context.Context, id string, params filters.Params, fs []filters.Filter) (*models.SubscriptionCostResult, error) {
	q := params.Values()
	filters.AddTagValues(q, fs)

	var result models.SubscriptionCostResult
	path := "/cost/subscriptions/" + url.PathEscape(id) + "/costs"
	if err := c.do(ctx, http.MethodGet, path, q, nil, id, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

// FetchResourceGroupCosts fetches the cost details of one resource group.
func (c *Client) FetchResourceGroupCosts(ctx context.Context, id, rg string, params filters.Params) (*models.ResourceGroupCostDetails, error) {
	var details models.ResourceGroupCostDetails
	path := "/cost/subscriptions/" + url.PathEscape(id) + "/resourcegroups/" + url.PathEscape(rg) + "/costs"
	if err := c.do(ctx, http.MethodGet, path, params.Values(), nil, id, &details); err != nil {
		return nil, err
	}
	return &details, nil
}

// FetchAvailableTags lists the tags seen on a subscription. Failures are
// logged and reported as an empty list.
func (c *Client) FetchAvailableTags(ctx context.Context, id string) []models.TagDetails {
	var tags []models.TagDetails
	path := "/cost/subscriptions/" + url.PathEscape(id) + "/available-tags"
	if err := c.do(ctx, http.MethodGet, path, nil, nil, id, &tags); err != nil {
		logger.Warn("failed to fetch available tags", "subscription", id, "error", err)
		return []models.TagDetails{}
	}
	if tags == nil {
		tags = []models.TagDetails{}
	}
	return tags
}

// GenerateReport asks the API to build a downloadable report.
func (c *Client) GenerateReport(ctx context.Context, id string, params filters.Params, format string) (*models.ReportResponse, error) {
	if format == "" {
		format = FormatCSV
	}
	q := params.Values()
	q.Set("file_format", format)

	var report models.ReportResponse
	path := "/cost/subscriptions/" + url.PathEscape(id) + "/costs/generate-report"
	if err := c.do(ctx, http.MethodPost, path, q, nil, id, &report); err != nil {
		return nil, err
	}
	return &report, nil
}

func (c *Client) do(ctx context.Context, method, path string, query url.Values, body []byte, subID string, out any) error {
	endpoint := c.baseURL + path
	if len(query) > 0 {
		endpoint += "?" + query.Encode()
	}

	var reader io.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	}
	req, err := http.NewRequestWithContext(ctx, method, endpoint, reader)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	start := time.Now()
	call := models.APICall{
		Timestamp:      start,
		Endpoint:       path,
		Method:         method,
		SubscriptionID: subID,
	}
	defer func() {
		call.DurationMs = time.Since(start).Milliseconds()
		if c.recorder != nil {
			c.recorder.RecordAPICall(call)
		}
	}()

	resp, err := c.httpClient.Do(req)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			call.Error = ctxErr.Error()
			return ctxErr
		}
		nerr := &NetworkError{Err: err}
		call.Error = nerr.Error()
		return nerr
	}
	defer func() {
		if err := resp.Body.Close(); err != nil {
			logger.Error("failed to close response body", "error", err)
		}
	}()
	call.StatusCode = resp.StatusCode

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		nerr := &NetworkError{Err: fmt.Errorf("failed to read response: %w", err)}
		call.Error = nerr.Error()
		return nerr
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		apiErr := &APIError{
			StatusCode: resp.StatusCode,
			Detail:     errorDetail(data),
			RetryAfter: parseRetryAfter(resp.Header.Get("Retry-After")),
		}
		call.Error = apiErr.Error()
		return apiErr
	}

	if out == nil || len(bytes.TrimSpace(data)) == 0 {
		return nil
	}
	if err := json.Unmarshal(data, out); err != nil {
		call.Error = err.Error()
		return fmt.Errorf("failed to parse response: %w", err)
	}
	return nil
}

// errorDetail extracts the detail or message field of an error body, falling
// back to the raw text.
func errorDetail(data []byte) string {
	var payload struct {
		Detail  json.RawMessage `json:"detail"`
		Message string          `json:"message"`
	}
	if err := json.Unmarshal(data, &payload); err == nil {
		if len(payload.Detail) > 0 {
			var s string
			if json.Unmarshal(payload.Detail, &s) == nil {
				return s
			}
			return string(payload.Detail)
		}
		if payload.Message != "" {
			return payload.Message
		}
	}
	text := strings.TrimSpace(string(data))
	if len(text) > 200 {
		text = text[:200]
	}
	return text
}

func parseRetryAfter(v string) int {
	n, err := strconv.Atoi(strings.TrimSpace(v))
	if err != nil || n < 0 {
		return 0
	}
	return n
}
