package http

import (
	"context"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"cofipei/internal/core"
	"cofipei/internal/log"
	"cofipei/internal/storage"
)

// ReportsResponse is the GET /reports body.
type ReportsResponse struct {
	Reports []core.ReportView `json:"reports"`
	Count   int               `json:"count"`
}

func (s *Server) handleGenerateChart(w http.ResponseWriter, r *http.Request) {
	if resp := RequirePOST(r); resp != nil {
		s.write(w, r, resp)
		return
	}

	payload, err := DecodeChartPayload(w, r, s.maxBodyBytes)
	if err != nil {
		s.write(w, r, ErrorFor(err))
		return
	}

	result, err := s.generator.Generate(r.Context(), payload)
	if err != nil {
		s.write(w, r, ErrorFor(err))
		return
	}

	s.write(w, r, NewJSONResponse().JSON(result))
}

func (s *Server) handleReports(w http.ResponseWriter, r *http.Request) {
	if resp := RequireGET(r); resp != nil {
		s.write(w, r, resp)
		return
	}
	if s.reports == nil {
		s.write(w, r, NotFoundError("report log is disabled"))
		return
	}

	limit, err := ParseLimit(r, storage.DefaultListLimit, storage.MaxListLimit)
	if err != nil {
		s.write(w, r, ErrorResponse(http.StatusBadRequest, err.Error()))
		return
	}

	records, err := s.reports.ListRecent(r.Context(), limit)
	if err != nil {
		log.FromContext(r.Context()).ErrorContext(r.Context(), "Failed to list chart reports",
			log.FieldOperation, log.OpList,
			log.FieldErrorType, log.ErrorTypeDatabase,
			log.FieldError, err)
		s.write(w, r, ErrorResponse(http.StatusInternalServerError, "failed to list reports"))
		return
	}

	views := make([]core.ReportView, 0, len(records))
	for _, rec := range records {
		views = append(views, rec.View())
	}
	s.write(w, r, NewJSONResponse().JSON(ReportsResponse{Reports: views, Count: len(views)}))
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	s.write(w, r, NewJSONResponse().JSON(map[string]any{
		"status":    "ok",
		"timestamp": time.Now().Format(time.RFC3339),
		"uptime":    time.Since(s.started).Round(time.Second).String(),
	}))
}

func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), readyTimeout)
	defer cancel()

	status := "ready"
	httpStatus := http.StatusOK
	checks := map[string]any{
		"renderer": "ok",
	}

	if s.shuttingDown.Load() {
		status = "shutting_down"
		httpStatus = http.StatusServiceUnavailable
	}

	for name, check := range s.readyChecks {
		if err := check(ctx); err != nil {
			checks[name] = fmt.Sprintf("failed: %v", err)
			status = "not_ready"
			httpStatus = http.StatusServiceUnavailable
			continue
		}
		checks[name] = "ok"
	}

	if s.imageCache != nil {
		checks["image_cache"] = map[string]any{
			"entries": s.imageCache.Size(),
			"status":  "ok",
		}
	}
	checks["rate_limiter"] = map[string]any{
		"active_clients": s.rateLimiter.ActiveClients(),
		"status":         "ok",
	}

	s.write(w, r, NewJSONResponse().Status(httpStatus).JSON(map[string]any{
		"status":    status,
		"timestamp": time.Now().Format(time.RFC3339),
		"checks":    checks,
	}))
}

func (s *Server) handleMetrics(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")

	traceMetrics := s.traceMiddleware.GetMetrics()
	chartMetrics := s.generator.Metrics()
	rateLimitMetrics := s.rateLimiter.GetMetrics()
	securityMetrics := s.securityDetector.GetMetrics()

	w.WriteHeader(http.StatusOK)

	metric := func(name, kind, help string, value any) {
		fmt.Fprintf(w, "# HELP %s %s\n", name, help)
		fmt.Fprintf(w, "# TYPE %s %s\n", name, kind)
		fmt.Fprintf(w, "%s %v\n\n", name, value)
	}

	metric("http_requests_total", "counter", "Total number of HTTP requests", traceMetrics.TotalRequests)
	metric("http_client_errors_total", "counter", "HTTP responses with a 4xx status", traceMetrics.ClientErrors)
	metric("http_server_errors_total", "counter", "HTTP responses with a 5xx status", traceMetrics.ServerErrors)
	metric("http_request_duration_avg_ms", "gauge", "Mean request duration in milliseconds", traceMetrics.AverageResponseTime().Milliseconds())
	metric("charts_generated_total", "counter", "Charts generated successfully", chartMetrics.ChartsGenerated)
	metric("chart_cache_hits_total", "counter", "Charts served from the image cache", chartMetrics.CacheHits)
	if s.imageCache != nil {
		metric("chart_cache_entries", "gauge", "Current image cache entries", s.imageCache.Size())
	}
	metric("validation_failures_total", "counter", "Rejected chart requests", chartMetrics.ValidationFailures)
	metric("render_failures_total", "counter", "Chart rendering failures", chartMetrics.RenderFailures)
	metric("side_effect_failures_total", "counter", "Report log or event publish failures", chartMetrics.SideEffectFailures)
	metric("rate_limit_hits_total", "counter", "Requests rejected by the rate limiter", rateLimitMetrics.TotalHits)
	metric("suspicious_requests_total", "counter", "Suspicious requests detected", securityMetrics.SuspiciousRequests)
	metric("active_rate_limit_clients", "gauge", "Currently tracked rate limit clients", rateLimitMetrics.ClientCount)
	metric("uptime_seconds", "gauge", "Process uptime in seconds", strconv.FormatFloat(time.Since(s.started).Seconds(), 'f', 0, 64))
}

func (s *Server) handleNotFound(w http.ResponseWriter, r *http.Request) {
	s.write(w, r, NotFoundError("not found"))
}

func (s *Server) writeRateLimited(w http.ResponseWriter, r *http.Request) {
	s.write(w, r, ErrorResponse(http.StatusTooManyRequests, "rate limit exceeded, try again later"))
}

func (s *Server) write(w http.ResponseWriter, r *http.Request, resp *JSONResponseBuilder) {
	if resp.StatusCode() >= http.StatusInternalServerError {
		s.logger.ErrorContext(r.Context(), "Request failed",
			log.FieldPath, r.URL.Path,
			log.FieldStatusCode, resp.StatusCode())
	}
	if err := resp.Write(w); err != nil {
		s.logger.WarnContext(r.Context(), "Failed to write response", log.FieldError, err)
	}
}
