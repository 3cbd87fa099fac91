// Package client implements the HTTP client for the Opera revenue
// reporting API: fetching revenue data, submitting CSV uploads and
// checking upload job status.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"os"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/operasoftware/revenueapi-go/internal/models"
)

const (
	// DefaultAPIURL is the production endpoint.
	DefaultAPIURL = "https://revenueapi.osp.opera.software"

	// DefaultAPIVersion selects the API version segment of the URL.
	DefaultAPIVersion = "v1"

	// DefaultTimeout bounds a single HTTP round trip. It is independent
	// of the overall wait budget of the upload workflow.
	DefaultTimeout = 30 * time.Second

	// MaxUploadSize is the largest CSV payload the API accepts (30 MiB).
	MaxUploadSize = 30 << 20

	dateFormat = "2006-01-02"
)

// Config carries the construction parameters for a Client. User and
// Token are required; the rest fall back to the package defaults.
type Config struct {
	User       string
	Token      string
	APIURL     string
	APIVersion string
	Timeout    time.Duration

	// HTTPClient overrides the underlying transport, mainly for tests.
	HTTPClient *http.Client
}

// Client is an authenticated client for one revenue API endpoint.
// Credentials and endpoint are immutable after construction. A Client
// is safe for concurrent use.
type Client struct {
	user       string
	token      string
	apiURL     string
	version    string
	httpClient *http.Client
}

// New creates a Client from cfg.
func New(cfg Config) (*Client, error) {
	if cfg.User == "" || cfg.Token == "" {
		return nil, fmt.Errorf("%w: user and token are required", ErrValidation)
	}
	apiURL := cfg.APIURL
	if apiURL == "" {
		apiURL = DefaultAPIURL
	}
	version := cfg.APIVersion
	if version == "" {
		version = DefaultAPIVersion
	}
	httpClient := cfg.HTTPClient
	if httpClient == nil {
		timeout := cfg.Timeout
		if timeout <= 0 {
			timeout = DefaultTimeout
		}
		httpClient = &http.Client{Timeout: timeout}
	}
	return &Client{
		user:       cfg.User,
		token:      cfg.Token,
		apiURL:     strings.TrimRight(apiURL, "/"),
		version:    strings.Trim(version, "/"),
		httpClient: httpClient,
	}, nil
}

// FetchData retrieves revenue records for the date range and source and
// returns them as an ordered dataset. start must not be after end and
// source must be non-empty.
func (c *Client) FetchData(ctx context.Context, start, end time.Time, source string) (*models.Dataset, error) {
	if source == "" {
		return nil, fmt.Errorf("%w: source must not be empty", ErrValidation)
	}
	if start.After(end) {
		return nil, fmt.Errorf("%w: start date %s is after end date %s",
			ErrValidation, start.Format(dateFormat), end.Format(dateFormat))
	}

	query := url.Values{}
	query.Set("start_date", start.Format(dateFormat))
	query.Set("end_date", end.Format(dateFormat))
	query.Set("source", source)

	var resp struct {
		Data          string `json:"data"`
		AvailableDays string `json:"available_days"`
	}
	if err := c.doJSON(ctx, http.MethodGet, "fetch_data", query, nil, &resp); err != nil {
		return nil, err
	}

	ds, err := models.ParseCSV(strings.NewReader(resp.Data))
	if err != nil {
		return nil, fmt.Errorf("%w: fetched data is not valid CSV: %v", ErrParse, err)
	}
	slog.Debug("fetched revenue data",
		"source", source, "rows", len(ds.Rows), "available_days", resp.AvailableDays)
	return ds, nil
}

// UploadDailyData submits a CSV payload for reportDate and returns the
// id of the asynchronous job the API created for it. The payload must
// be non-empty and at most MaxUploadSize bytes. A rejection at
// submission time never produces a job id.
func (c *Client) UploadDailyData(ctx context.Context, csvPayload string, reportDate time.Time) (string, error) {
	if csvPayload == "" {
		return "", fmt.Errorf("%w: csv payload must not be empty", ErrValidation)
	}
	if len(csvPayload) > MaxUploadSize {
		return "", fmt.Errorf("%w: csv payload is too big (>%dMiB)", ErrValidation, MaxUploadSize>>20)
	}

	body := map[string]string{"csv": csvPayload}
	if !reportDate.IsZero() {
		body["date"] = reportDate.Format(dateFormat)
	}

	var resp struct {
		JobID string `json:"job_id"`
		Error string `json:"error"`
	}
	if err := c.doJSON(ctx, http.MethodPost, "upload_daily_data", nil, body, &resp); err != nil {
		return "", err
	}
	if resp.JobID == "" {
		// The API answered 200 without creating a job.
		return "", fmt.Errorf("%w: upload was not started: %s", ErrValidation, resp.Error)
	}
	slog.Debug("upload submitted", "job_id", resp.JobID)
	return resp.JobID, nil
}

// CheckJobStatus queries the current status of a previously submitted
// upload job. It is read-only and has no side effects on the job.
func (c *Client) CheckJobStatus(ctx context.Context, jobID string) (JobStatus, error) {
	if jobID == "" {
		return StatusUndefined, fmt.Errorf("%w: job id must not be empty", ErrValidation)
	}

	query := url.Values{}
	query.Set("job_id", jobID)

	var resp struct {
		Status string `json:"status"`
	}
	if err := c.doJSON(ctx, http.MethodGet, "check_job_status", query, nil, &resp); err != nil {
		return StatusUndefined, err
	}
	if resp.Status == "" {
		return StatusUndefined, fmt.Errorf("%w: status response carries no status field", ErrParse)
	}
	return ParseJobStatus(resp.Status), nil
}

// ReadCSVFile loads an upload payload from disk, enforcing the same
// size limit the API applies.
func ReadCSVFile(path string) (string, error) {
	info, err := os.Stat(path)
	if err != nil {
		return "", fmt.Errorf("%w: could not find csv file %s: %v", ErrValidation, path, err)
	}
	if info.Size() > MaxUploadSize {
		return "", fmt.Errorf("%w: file %s is too big (>%dMiB)", ErrValidation, path, MaxUploadSize>>20)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("read csv file: %w", err)
	}
	return string(data), nil
}

// doJSON performs one authenticated request against an API method and
// decodes the JSON response into out.
func (c *Client) doJSON(ctx context.Context, httpMethod, apiMethod string, query url.Values, body, out any) error {
	endpoint := fmt.Sprintf("%s/%s/%s", c.apiURL, c.version, apiMethod)
	if len(query) > 0 {
		endpoint += "?" + query.Encode()
	}

	var reqBody io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("marshal request body: %w", err)
		}
		reqBody = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, httpMethod, endpoint, reqBody)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.SetBasicAuth(c.user, c.token)
	req.Header.Set("Accept", "application/json")
	req.Header.Set("X-Request-Id", uuid.New().String())
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %s %s: %v", ErrRemote, httpMethod, apiMethod, err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("%w: read response body: %v", ErrRemote, err)
	}

	if err := statusError(resp.StatusCode, respBody); err != nil {
		return fmt.Errorf("%s %s: %w", httpMethod, apiMethod, err)
	}

	if out != nil {
		if err := json.Unmarshal(respBody, out); err != nil {
			return fmt.Errorf("%w: %s %s returned non-JSON body: %v", ErrParse, httpMethod, apiMethod, err)
		}
	}
	return nil
}

// statusError maps a non-200 HTTP status onto an error kind.
func statusError(code int, body []byte) error {
	switch {
	case code == http.StatusOK:
		return nil
	case code == http.StatusUnauthorized || code == http.StatusForbidden:
		return fmt.Errorf("%w: status %d: %s", ErrAuth, code, snippet(body))
	case code == http.StatusNotFound:
		return fmt.Errorf("%w: status %d: %s", ErrNotFound, code, snippet(body))
	case code == http.StatusBadRequest || code == http.StatusUnprocessableEntity:
		return fmt.Errorf("%w: status %d: %s", ErrValidation, code, snippet(body))
	default:
		return fmt.Errorf("%w: status %d: %s", ErrRemote, code, snippet(body))
	}
}

// snippet truncates a response body for error messages.
func snippet(body []byte) string {
	const maxLen = 512
	s := strings.TrimSpace(string(body))
	if len(s) > maxLen {
		return s[:maxLen] + "..."
	}
	return s
}
