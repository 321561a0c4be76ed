package http

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"fintrack/internal/auth"
	"fintrack/internal/core"
	"fintrack/internal/metrics"
	"fintrack/internal/report"
)

const headerExportSkipped = "X-Export-Skipped"

type exportKind struct {
	format string
	label  string
}

var (
	exportExcel = exportKind{format: report.FormatTabular, label: "excel"}
	exportPDF   = exportKind{format: report.FormatDocument, label: "pdf"}
)

func (s *Server) handleSummary(w http.ResponseWriter, r *http.Request) {
	uid, _ := auth.UserIDFromContext(r.Context())
	win, err := windowFromQuery(r.URL.Query())
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	sum, err := s.svc.Summaries.Summary(r.Context(), uid, win)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, newSummaryView(sum))
}

func (s *Server) handleExport(kind exportKind) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		uid, _ := auth.UserIDFromContext(r.Context())
		win, err := windowFromQuery(r.URL.Query())
		if err != nil {
			metrics.Exports.WithLabelValues(kind.format, "invalid").Inc()
			writeServiceError(w, r, err)
			return
		}

		art, err := s.svc.Reports.Export(r.Context(), uid, kind.format, win)
		if err != nil {
			metrics.Exports.WithLabelValues(kind.format, exportOutcome(err)).Inc()
			writeServiceError(w, r, err)
			return
		}
		metrics.Exports.WithLabelValues(kind.format, "ok").Inc()
		metrics.ExportSkipped.Add(float64(art.Skipped))

		w.Header().Set("Content-Type", art.MIMEType)
		w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", art.Filename))
		w.Header().Set("Content-Length", strconv.Itoa(len(art.Data)))
		w.Header().Set(headerExportSkipped, strconv.Itoa(art.Skipped))
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write(art.Data)
	}
}

func exportOutcome(err error) string {
	switch {
	case errors.Is(err, core.ErrValidation):
		return "invalid"
	case errors.Is(err, report.ErrResourceExhausted):
		return "exhausted"
	default:
		return "error"
	}
}

func (s *Server) handleCategories(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string][]string{
		"income":  core.SuggestedCategories(core.KindIncome),
		"expense": core.SuggestedCategories(core.KindExpense),
	})
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status":    "ok",
		"timestamp": time.Now().UTC().Format(time.RFC3339),
		"uptime":    time.Since(s.started).Round(time.Second).String(),
	})
}

// handleReady pings the store and reports limiter and security counters.
func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	status, code := "ready", http.StatusOK
	checks := map[string]any{
		"rate_limiter": map[string]any{"active_clients": s.limiter.ActiveClients()},
		"security":     map[string]any{"suspicious_requests": s.detector.SuspiciousCount()},
	}
	if s.ready != nil {
		if err := s.ready.Ping(ctx); err != nil {
			checks["store"] = "failed: " + err.Error()
			status, code = "not_ready", http.StatusServiceUnavailable
		} else {
			checks["store"] = "ok"
		}
	}

	writeJSON(w, code, map[string]any{
		"status":    status,
		"timestamp": time.Now().UTC().Format(time.RFC3339),
		"checks":    checks,
	})
}
