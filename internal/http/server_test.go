package http

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"image/png"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"cofipei/internal/charts"
	"cofipei/internal/core"
	"cofipei/internal/log"
	"cofipei/internal/services"
)

const scenarioBody = `{
	"data": [
		{"category": "Rent", "type": "expense", "value": 1000},
		{"category": "Food", "type": "expense", "value": 200},
		{"category": "Salary", "type": "income", "value": 3000}
	],
	"start_date": "2024-01-01",
	"end_date": "2024-01-31"
}`

type fakeReports struct {
	records []core.ReportRecord
	err     error
	limit   int
}

func (f *fakeReports) ListRecent(_ context.Context, limit int) ([]core.ReportRecord, error) {
	f.limit = limit
	if f.err != nil {
		return nil, f.err
	}
	if len(f.records) > limit {
		return f.records[:limit], nil
	}
	return f.records, nil
}

type sizer int

func (s sizer) Size() int { return int(s) }

func testLogger() *log.Logger {
	return log.New(log.Config{Output: io.Discard})
}

func newTestServer(t *testing.T, opts Options) *Server {
	t.Helper()
	logger := testLogger()
	renderer := charts.NewGoChart(charts.Config{PanelWidth: 300, PanelHeight: 300, Logger: logger})
	svc := services.NewChartService(renderer, services.Options{Logger: logger})

	opts.Logger = logger
	srv := NewServer(svc, opts)
	t.Cleanup(func() { _ = srv.Shutdown(context.Background()) })
	return srv
}

func do(srv *Server, method, path, body string) *httptest.ResponseRecorder {
	var r io.Reader
	if body != "" {
		r = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, r)
	rr := httptest.NewRecorder()
	srv.Handler.ServeHTTP(rr, req)
	return rr
}

func detail(t *testing.T, rr *httptest.ResponseRecorder) string {
	t.Helper()
	var body ErrorBody
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &body), rr.Body.String())
	return body.Detail
}

func TestGenerateChart_Success(t *testing.T) {
	srv := newTestServer(t, Options{})

	rr := do(srv, http.MethodPost, "/generate-chart", scenarioBody)
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
	assert.Equal(t, "application/json", rr.Header().Get("Content-Type"))
	assert.NotEmpty(t, rr.Header().Get("X-Request-ID"))

	var resp core.ChartResponse
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &resp))
	assert.Equal(t, "2024-01-01", resp.Period.StartDate)
	assert.Equal(t, "2024-01-31", resp.Period.EndDate)
	assert.Equal(t, "1200", resp.TotalExpenses.String())
	assert.Equal(t, "3000", resp.TotalIncome.String())

	img, err := resp.DecodeImage()
	require.NoError(t, err)
	cfg, err := png.DecodeConfig(bytes.NewReader(img))
	require.NoError(t, err)
	assert.Equal(t, 600, cfg.Width)
	assert.Equal(t, 300, cfg.Height)
}

func TestGenerateChart_EmptyData(t *testing.T) {
	srv := newTestServer(t, Options{})

	rr := do(srv, http.MethodPost, "/generate-chart", `{"data": [], "start_date": "2024-02-01", "end_date": "2024-02-29"}`)
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())

	var resp core.ChartResponse
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &resp))
	assert.Equal(t, "0", resp.TotalExpenses.String())
	assert.Equal(t, "0", resp.TotalIncome.String())

	img, err := resp.DecodeImage()
	require.NoError(t, err)
	_, err = png.Decode(bytes.NewReader(img))
	assert.NoError(t, err)
}

func TestGenerateChart_ValidationErrors(t *testing.T) {
	tests := []struct {
		name       string
		body       string
		wantStatus int
		wantDetail string
	}{
		{
			name:       "zero value",
			body:       `{"data": [{"category": "A", "type": "expense", "value": 0}], "start_date": "2024-01-01", "end_date": "2024-01-31"}`,
			wantStatus: http.StatusUnprocessableEntity,
			wantDetail: "value",
		},
		{
			name:       "negative value",
			body:       `{"data": [{"category": "A", "type": "income", "value": -5}], "start_date": "2024-01-01", "end_date": "2024-01-31"}`,
			wantStatus: http.StatusUnprocessableEntity,
			wantDetail: "value",
		},
		{
			name:       "bad date",
			body:       `{"data": [], "start_date": "not-a-date", "end_date": "2024-01-31"}`,
			wantStatus: http.StatusUnprocessableEntity,
			wantDetail: "start_date",
		},
		{
			name:       "missing dates",
			body:       `{"data": []}`,
			wantStatus: http.StatusUnprocessableEntity,
			wantDetail: "start_date",
		},
		{
			name:       "amount overflows float",
			body:       `{"data": [{"category": "A", "type": "income", "value": 1e400}], "start_date": "2024-01-01", "end_date": "2024-01-31"}`,
			wantStatus: http.StatusUnprocessableEntity,
			wantDetail: "amount out of range",
		},
		{
			name:       "amount scale too fine",
			body:       `{"data": [{"category": "A", "type": "expense", "value": 1e-50000000}], "start_date": "2024-01-01", "end_date": "2024-01-31"}`,
			wantStatus: http.StatusUnprocessableEntity,
			wantDetail: "amount out of range",
		},
		{
			name:       "trailing data",
			body:       `{"data": [], "start_date": "2024-01-01", "end_date": "2024-01-31"} {}`,
			wantStatus: http.StatusBadRequest,
			wantDetail: "unexpected data after JSON object",
		},
		{
			name:       "malformed json",
			body:       `{"data": [`,
			wantStatus: http.StatusBadRequest,
			wantDetail: "malformed",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := newTestServer(t, Options{})

			rr := do(srv, http.MethodPost, "/generate-chart", tt.body)
			assert.Equal(t, tt.wantStatus, rr.Code)
			assert.Contains(t, detail(t, rr), tt.wantDetail)
		})
	}
}

func TestGenerateChart_BodyTooLarge(t *testing.T) {
	srv := newTestServer(t, Options{MaxBodyBytes: 128})

	rr := do(srv, http.MethodPost, "/generate-chart", scenarioBody)
	assert.Equal(t, http.StatusRequestEntityTooLarge, rr.Code)
}

func TestGenerateChart_MethodNotAllowed(t *testing.T) {
	srv := newTestServer(t, Options{})

	rr := do(srv, http.MethodGet, "/generate-chart", "")
	assert.Equal(t, http.StatusMethodNotAllowed, rr.Code)
	assert.Equal(t, "POST", rr.Header().Get("Allow"))
}

func TestGenerateChart_RateLimited(t *testing.T) {
	srv := newTestServer(t, Options{RateLimitPerMinute: 1})

	first := do(srv, http.MethodPost, "/generate-chart", `{"data": [], "start_date": "2024-01-01", "end_date": "2024-01-31"}`)
	require.Equal(t, http.StatusOK, first.Code)

	second := do(srv, http.MethodPost, "/generate-chart", `{"data": [], "start_date": "2024-01-01", "end_date": "2024-01-31"}`)
	assert.Equal(t, http.StatusTooManyRequests, second.Code)
	assert.NotEmpty(t, second.Header().Get("Retry-After"))
	assert.Contains(t, detail(t, second), "rate limit")

	// Health endpoints are not rate limited.
	assert.Equal(t, http.StatusOK, do(srv, http.MethodGet, "/healthz", "").Code)
}

func TestGenerateChart_RequestIDPropagation(t *testing.T) {
	srv := newTestServer(t, Options{})

	req := httptest.NewRequest(http.MethodPost, "/generate-chart", strings.NewReader(scenarioBody))
	req.Header.Set("X-Request-ID", "client-req-42")
	rr := httptest.NewRecorder()
	srv.Handler.ServeHTTP(rr, req)

	require.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, "client-req-42", rr.Header().Get("X-Request-ID"))
}

func TestSecurityHeaders(t *testing.T) {
	srv := newTestServer(t, Options{})

	rr := do(srv, http.MethodGet, "/healthz", "")
	assert.Equal(t, "nosniff", rr.Header().Get("X-Content-Type-Options"))
	assert.NotEmpty(t, rr.Header().Get("Content-Security-Policy"))
}

func TestHealthAndReady(t *testing.T) {
	srv := newTestServer(t, Options{ImageCache: sizer(3)})

	health := do(srv, http.MethodGet, "/healthz", "")
	require.Equal(t, http.StatusOK, health.Code)
	assert.Contains(t, health.Body.String(), `"status":"ok"`)

	ready := do(srv, http.MethodGet, "/readyz", "")
	require.Equal(t, http.StatusOK, ready.Code)

	var body struct {
		Status string         `json:"status"`
		Checks map[string]any `json:"checks"`
	}
	require.NoError(t, json.Unmarshal(ready.Body.Bytes(), &body))
	assert.Equal(t, "ready", body.Status)
	assert.Equal(t, "ok", body.Checks["renderer"])
	assert.Contains(t, body.Checks, "image_cache")
}

func TestReady_FailingCheck(t *testing.T) {
	srv := newTestServer(t, Options{
		ReadyChecks: map[string]ReadyCheck{
			"report_log": func(context.Context) error { return errors.New("database is locked") },
		},
	})

	rr := do(srv, http.MethodGet, "/readyz", "")
	assert.Equal(t, http.StatusServiceUnavailable, rr.Code)
	assert.Contains(t, rr.Body.String(), "database is locked")
	assert.Contains(t, rr.Body.String(), "not_ready")
}

func TestReady_ShuttingDown(t *testing.T) {
	srv := newTestServer(t, Options{})
	require.NoError(t, srv.Shutdown(context.Background()))

	rr := do(srv, http.MethodGet, "/readyz", "")
	assert.Equal(t, http.StatusServiceUnavailable, rr.Code)
	assert.Contains(t, rr.Body.String(), "shutting_down")

	// A second shutdown is a no-op.
	assert.NoError(t, srv.Shutdown(context.Background()))
}

func TestMetrics(t *testing.T) {
	srv := newTestServer(t, Options{ImageCache: sizer(2)})

	do(srv, http.MethodPost, "/generate-chart", scenarioBody)
	do(srv, http.MethodPost, "/generate-chart", `{"data": [{"category": "A", "type": "expense", "value": 0}], "start_date": "2024-01-01", "end_date": "2024-01-31"}`)

	rr := do(srv, http.MethodGet, "/metrics", "")
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, "text/plain; charset=utf-8", rr.Header().Get("Content-Type"))

	body := rr.Body.String()
	assert.Contains(t, body, "# TYPE http_requests_total counter")
	assert.Contains(t, body, "charts_generated_total 1\n")
	assert.Contains(t, body, "validation_failures_total 1\n")
	assert.Contains(t, body, "chart_cache_entries 2\n")
	assert.Contains(t, body, "uptime_seconds")
}

func TestReports(t *testing.T) {
	now := time.Date(2024, 2, 1, 12, 0, 0, 0, time.UTC)
	period := core.DateRange{
		Start: core.NewDate(2024, 1, 1),
		End:   core.NewDate(2024, 1, 31),
	}
	summary := core.Summary{TransactionCount: 2}
	lister := &fakeReports{records: []core.ReportRecord{
		core.NewReportRecord("r1", "req-1", period, summary, 100, false, now),
		core.NewReportRecord("r2", "", period, summary, 120, true, now),
	}}
	srv := newTestServer(t, Options{Reports: lister})

	rr := do(srv, http.MethodGet, "/reports?limit=1", "")
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
	assert.Equal(t, 1, lister.limit)

	var resp ReportsResponse
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &resp))
	require.Equal(t, 1, resp.Count)
	assert.Equal(t, "r1", resp.Reports[0].ID)

	assert.Equal(t, http.StatusBadRequest, do(srv, http.MethodGet, "/reports?limit=abc", "").Code)
	assert.Equal(t, http.StatusMethodNotAllowed, do(srv, http.MethodPost, "/reports", "").Code)
}

func TestReports_Errors(t *testing.T) {
	disabled := newTestServer(t, Options{})
	assert.Equal(t, http.StatusNotFound, do(disabled, http.MethodGet, "/reports", "").Code)

	failing := newTestServer(t, Options{Reports: &fakeReports{err: errors.New("disk I/O error")}})
	rr := do(failing, http.MethodGet, "/reports", "")
	assert.Equal(t, http.StatusInternalServerError, rr.Code)
	assert.Equal(t, "failed to list reports", detail(t, rr))
}

func TestNotFound(t *testing.T) {
	srv := newTestServer(t, Options{})

	rr := do(srv, http.MethodGet, "/nope", "")
	assert.Equal(t, http.StatusNotFound, rr.Code)
	assert.Equal(t, "not found", detail(t, rr))
}
