package http

import (
	"context"
	"fmt"
	"net/http"
	"sync/atomic"
	"time"

	applog "workdash/internal/log"
)

// pinger is implemented by session stores backed by a database.
type pinger interface {
	Ping(ctx context.Context) error
}

// sizer is implemented by in-memory stores and caches.
type sizer interface {
	Size() int
}

func sizeOf(v any) int {
	if s, ok := v.(sizer); ok {
		return s.Size()
	}
	return -1
}

// handleHealth performs basic liveness check
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"status":    "ok",
		"timestamp": time.Now().Format(time.RFC3339),
		"uptime":    time.Since(s.appMetrics.uptime).String(),
	})
}

// handleReady performs readiness check with dependency verification
func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	status := "ready"
	httpStatus := http.StatusOK
	checks := make(map[string]interface{})
	fail := func(name, msg string) {
		checks[name] = msg
		status = "not_ready"
		httpStatus = http.StatusServiceUnavailable
	}

	if s.templates == nil {
		fail("templates", "failed: templates not loaded")
	} else {
		checks["templates"] = "ok"
	}

	switch {
	case s.sessions == nil:
		fail("sessions", "not_configured")
	default:
		if p, ok := s.sessions.(pinger); ok {
			if err := p.Ping(ctx); err != nil {
				applog.FromContext(ctx).WarnContext(ctx, "Session store ping failed",
					applog.FieldError, err, applog.FieldComponent, applog.ComponentStorage)
				fail("sessions", fmt.Sprintf("failed: %v", err))
				break
			}
		}
		checks["sessions"] = map[string]interface{}{
			"status":  "ok",
			"entries": sizeOf(s.sessions),
		}
	}

	checks["sources"] = map[string]interface{}{
		"sample": s.sample != nil,
		"sheets": s.sheets != nil,
	}
	if s.dashboard != nil {
		checks["report_cache"] = map[string]interface{}{
			"entries": sizeOf(s.dashboard.Cache()),
			"status":  "ok",
		}
	}
	checks["rate_limiter"] = map[string]interface{}{
		"active_clients": s.rateLimiter.ActiveClients(),
		"status":         "ok",
	}

	writeJSON(w, httpStatus, map[string]interface{}{
		"status":    status,
		"timestamp": time.Now().Format(time.RFC3339),
		"checks":    checks,
	})
}

// handleMetrics provides application and security metrics in plain text format
func (s *Server) handleMetrics(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")

	securityMetrics := s.securityDetector.GetMetrics()
	rateLimitMetrics := s.rateLimiter.GetMetrics()
	traceMetrics := s.traceMiddleware.GetMetrics()

	imports := atomic.LoadInt64(&s.appMetrics.imports)
	failedImports := atomic.LoadInt64(&s.appMetrics.failedImports)
	downloads := atomic.LoadInt64(&s.appMetrics.downloads)
	uptime := time.Since(s.appMetrics.uptime)

	w.WriteHeader(http.StatusOK)

	// Prometheus text exposition format
	fmt.Fprintf(w, "# HELP http_requests_total Total number of HTTP requests\n")
	fmt.Fprintf(w, "# TYPE http_requests_total counter\n")
	fmt.Fprintf(w, "http_requests_total %d\n\n", traceMetrics.TotalRequests)

	fmt.Fprintf(w, "# HELP http_server_errors_total Responses with a 5xx status\n")
	fmt.Fprintf(w, "# TYPE http_server_errors_total counter\n")
	fmt.Fprintf(w, "http_server_errors_total %d\n\n", traceMetrics.ServerErrors)

	fmt.Fprintf(w, "# HELP http_response_time_avg_microseconds Mean response time\n")
	fmt.Fprintf(w, "# TYPE http_response_time_avg_microseconds gauge\n")
	fmt.Fprintf(w, "http_response_time_avg_microseconds %d\n\n", traceMetrics.AverageResponseTime)

	fmt.Fprintf(w, "# HELP imports_total Table imports by outcome\n")
	fmt.Fprintf(w, "# TYPE imports_total counter\n")
	fmt.Fprintf(w, "imports_total{outcome=\"ok\"} %d\n", imports)
	fmt.Fprintf(w, "imports_total{outcome=\"failed\"} %d\n\n", failedImports)

	fmt.Fprintf(w, "# HELP downloads_total CSV downloads served\n")
	fmt.Fprintf(w, "# TYPE downloads_total counter\n")
	fmt.Fprintf(w, "downloads_total %d\n\n", downloads)

	if n := sizeOf(s.sessions); n >= 0 {
		fmt.Fprintf(w, "# HELP sessions_active Sessions held in memory\n")
		fmt.Fprintf(w, "# TYPE sessions_active gauge\n")
		fmt.Fprintf(w, "sessions_active %d\n\n", n)
	}
	if s.dashboard != nil {
		fmt.Fprintf(w, "# HELP report_cache_entries Cached dashboard reports\n")
		fmt.Fprintf(w, "# TYPE report_cache_entries gauge\n")
		fmt.Fprintf(w, "report_cache_entries %d\n\n", sizeOf(s.dashboard.Cache()))
	}

	fmt.Fprintf(w, "# HELP rate_limit_hits_total Total rate limit hits\n")
	fmt.Fprintf(w, "# TYPE rate_limit_hits_total counter\n")
	fmt.Fprintf(w, "rate_limit_hits_total %d\n\n", rateLimitMetrics.TotalHits)

	fmt.Fprintf(w, "# HELP active_rate_limit_clients Currently tracked rate limit clients\n")
	fmt.Fprintf(w, "# TYPE active_rate_limit_clients gauge\n")
	fmt.Fprintf(w, "active_rate_limit_clients %d\n\n", rateLimitMetrics.ClientCount)

	fmt.Fprintf(w, "# HELP suspicious_requests_total Total suspicious requests detected\n")
	fmt.Fprintf(w, "# TYPE suspicious_requests_total counter\n")
	fmt.Fprintf(w, "suspicious_requests_total %d\n\n", securityMetrics.SuspiciousRequests)

	fmt.Fprintf(w, "# HELP uptime_seconds Application uptime in seconds\n")
	fmt.Fprintf(w, "# TYPE uptime_seconds gauge\n")
	fmt.Fprintf(w, "uptime_seconds %.0f\n", uptime.Seconds())
}
