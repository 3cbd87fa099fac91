package client_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/operasoftware/revenueapi-go/internal/client"
)

func newTestClient(t *testing.T, handler http.HandlerFunc) *client.Client {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	c, err := client.New(client.Config{
		User:   "test_user",
		Token:  "test_token",
		APIURL: server.URL,
	})
	require.NoError(t, err)
	return c
}

func date(t *testing.T, s string) time.Time {
	t.Helper()
	d, err := time.Parse("2006-01-02", s)
	require.NoError(t, err)
	return d
}

func TestNewRequiresCredentials(t *testing.T) {
	_, err := client.New(client.Config{User: "u"})
	require.ErrorIs(t, err, client.ErrValidation)

	_, err = client.New(client.Config{Token: "t"})
	require.ErrorIs(t, err, client.ErrValidation)
}

func TestFetchData(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/fetch_data", r.URL.Path)
		assert.Equal(t, "2021-01-01", r.URL.Query().Get("start_date"))
		assert.Equal(t, "2021-01-02", r.URL.Query().Get("end_date"))
		assert.Equal(t, "test_source", r.URL.Query().Get("source"))

		user, token, ok := r.BasicAuth()
		assert.True(t, ok, "request must carry basic auth")
		assert.Equal(t, "test_user", user)
		assert.Equal(t, "test_token", token)
		assert.NotEmpty(t, r.Header.Get("X-Request-Id"))

		json.NewEncoder(w).Encode(map[string]string{
			"data":           "date,revenue\n2021-01-01,1000\n2021-01-02,1500",
			"available_days": "2021-01-01,2021-01-02",
		})
	})

	ds, err := c.FetchData(context.Background(), date(t, "2021-01-01"), date(t, "2021-01-02"), "test_source")
	require.NoError(t, err)
	assert.Equal(t, []string{"date", "revenue"}, ds.Columns)
	require.Len(t, ds.Rows, 2)
	assert.Equal(t, "1000", ds.Rows[0]["revenue"])
	assert.Equal(t, "2021-01-02", ds.Rows[1]["date"])
}

func TestFetchDataRejectsInvertedRange(t *testing.T) {
	calls := 0
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) { calls++ })

	_, err := c.FetchData(context.Background(), date(t, "2021-02-01"), date(t, "2021-01-01"), "test_source")
	require.ErrorIs(t, err, client.ErrValidation)
	assert.Zero(t, calls, "no request may be issued for an invalid range")
}

func TestFetchDataRejectsEmptySource(t *testing.T) {
	calls := 0
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) { calls++ })

	_, err := c.FetchData(context.Background(), date(t, "2021-01-01"), date(t, "2021-01-02"), "")
	require.ErrorIs(t, err, client.ErrValidation)
	assert.Zero(t, calls)
}

func TestFetchDataNonJSONBody(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("<html>not json</html>"))
	})

	_, err := c.FetchData(context.Background(), date(t, "2021-01-01"), date(t, "2021-01-02"), "s")
	require.ErrorIs(t, err, client.ErrParse)
}

func TestUploadDailyData(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/v1/upload_daily_data", r.URL.Path)
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))

		var body map[string]string
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, "date,revenue\n2021-01-01,1000", body["csv"])
		assert.Equal(t, "2021-01-01", body["date"])

		json.NewEncoder(w).Encode(map[string]string{"job_id": "12345"})
	})

	jobID, err := c.UploadDailyData(context.Background(), "date,revenue\n2021-01-01,1000", date(t, "2021-01-01"))
	require.NoError(t, err)
	assert.Equal(t, "12345", jobID)
}

func TestUploadDailyDataWithoutJobID(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]string{"error": "column mismatch"})
	})

	_, err := c.UploadDailyData(context.Background(), "data", time.Time{})
	require.ErrorIs(t, err, client.ErrValidation)
	assert.Contains(t, err.Error(), "column mismatch")
}

func TestUploadDailyDataRejectsEmptyPayload(t *testing.T) {
	calls := 0
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) { calls++ })

	_, err := c.UploadDailyData(context.Background(), "", time.Time{})
	require.ErrorIs(t, err, client.ErrValidation)
	assert.Zero(t, calls)
}

func TestUploadDailyDataRejectsOversizedPayload(t *testing.T) {
	calls := 0
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) { calls++ })

	payload := strings.Repeat("a", client.MaxUploadSize+1)
	_, err := c.UploadDailyData(context.Background(), payload, time.Time{})
	require.ErrorIs(t, err, client.ErrValidation)
	assert.Zero(t, calls)
}

func TestCheckJobStatus(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/check_job_status", r.URL.Path)
		assert.Equal(t, "12345", r.URL.Query().Get("job_id"))
		json.NewEncoder(w).Encode(map[string]string{"status": "running"})
	})

	status, err := c.CheckJobStatus(context.Background(), "12345")
	require.NoError(t, err)
	assert.Equal(t, client.StatusRunning, status)
}

func TestCheckJobStatusRejectsEmptyJobID(t *testing.T) {
	calls := 0
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) { calls++ })

	_, err := c.CheckJobStatus(context.Background(), "")
	require.ErrorIs(t, err, client.ErrValidation)
	assert.Zero(t, calls)
}

func TestCheckJobStatusMissingStatusField(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("{}"))
	})

	_, err := c.CheckJobStatus(context.Background(), "12345")
	require.ErrorIs(t, err, client.ErrParse)
}

func TestStatusCodeMapping(t *testing.T) {
	tests := []struct {
		name string
		code int
		want error
	}{
		{"unauthorized", http.StatusUnauthorized, client.ErrAuth},
		{"forbidden", http.StatusForbidden, client.ErrAuth},
		{"not found", http.StatusNotFound, client.ErrNotFound},
		{"bad request", http.StatusBadRequest, client.ErrValidation},
		{"unprocessable", http.StatusUnprocessableEntity, client.ErrValidation},
		{"server error", http.StatusInternalServerError, client.ErrRemote},
		{"unavailable", http.StatusServiceUnavailable, client.ErrRemote},
		{"teapot", http.StatusTeapot, client.ErrRemote},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
				http.Error(w, "nope", tt.code)
			})
			_, err := c.CheckJobStatus(context.Background(), "12345")
			require.ErrorIs(t, err, tt.want)
		})
	}
}

func TestTransportFailureIsRemoteError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	server.Close() // connection refused from now on

	c, err := client.New(client.Config{User: "u", Token: "t", APIURL: server.URL})
	require.NoError(t, err)

	_, err = c.CheckJobStatus(context.Background(), "12345")
	require.ErrorIs(t, err, client.ErrRemote)
}

func TestParseJobStatus(t *testing.T) {
	tests := []struct {
		in   string
		want client.JobStatus
	}{
		{"pending", client.StatusRunning},
		{"running", client.StatusRunning},
		{"success", client.StatusSucceeded},
		{"succeeded", client.StatusSucceeded},
		{"failed", client.StatusFailed},
		{"undefined", client.StatusUndefined},
		{"garbage", client.StatusUndefined},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, client.ParseJobStatus(tt.in), "status %q", tt.in)
	}

	assert.False(t, client.StatusRunning.Terminal())
	assert.True(t, client.StatusSucceeded.Terminal())
	assert.True(t, client.StatusFailed.Terminal())
	assert.True(t, client.StatusUndefined.Terminal())
}

func TestReadCSVFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "revenue.csv")
	require.NoError(t, os.WriteFile(path, []byte("date,revenue\n2021-01-01,1000"), 0644))

	content, err := client.ReadCSVFile(path)
	require.NoError(t, err)
	assert.Equal(t, "date,revenue\n2021-01-01,1000", content)
}

func TestReadCSVFileMissing(t *testing.T) {
	_, err := client.ReadCSVFile(filepath.Join(t.TempDir(), "nonexistent.csv"))
	require.ErrorIs(t, err, client.ErrValidation)
}
