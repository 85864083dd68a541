package handler

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/DukeRupert/presskit/internal/domain"
	"github.com/DukeRupert/presskit/internal/jobs"
	"github.com/DukeRupert/presskit/internal/storage"
)

// UsageCheckRunner triggers an immediate usage pass.
type UsageCheckRunner interface {
	RunNow(ctx context.Context) error
}

// UsageCheckHistory exposes the most recent completed pass.
type UsageCheckHistory interface {
	LastRun() *jobs.UsageCheckRun
}

// AdminHandler handles operator endpoints: manual usage checks and the
// exported usage reports.
type AdminHandler struct {
	runner  UsageCheckRunner
	history UsageCheckHistory
	reports storage.Storage // nil when export is disabled
	logger  *slog.Logger
}

// NewAdminHandler creates a new AdminHandler. reports may be nil.
func NewAdminHandler(runner UsageCheckRunner, history UsageCheckHistory, reports storage.Storage, logger *slog.Logger) *AdminHandler {
	return &AdminHandler{
		runner:  runner,
		history: history,
		reports: reports,
		logger:  logger,
	}
}

// RegisterRoutes registers admin routes behind requireAdmin.
func (h *AdminHandler) RegisterRoutes(mux *http.ServeMux, requireAdmin func(http.Handler) http.Handler) {
	mux.Handle("POST /admin/usage-check", requireAdmin(http.HandlerFunc(h.RunUsageCheck)))
	mux.Handle("GET /admin/usage-check", requireAdmin(http.HandlerFunc(h.LastUsageCheck)))
	mux.Handle("GET /admin/usage-reports", requireAdmin(http.HandlerFunc(h.ListReports)))
	mux.Handle("GET /admin/usage-reports/{year}/{month}/{day}", requireAdmin(http.HandlerFunc(h.GetReport)))
}

// usageCheckResponse is the JSON view of a finished pass.
type usageCheckResponse struct {
	Status       string    `json:"status"`
	StartedAt    time.Time `json:"started_at"`
	FinishedAt   time.Time `json:"finished_at"`
	Tenants      int       `json:"tenants"`
	Succeeded    int       `json:"succeeded"`
	Failed       int       `json:"failed"`
	Notified     int       `json:"notified"`
	Suppressed   int       `json:"suppressed"`
	NotifyFailed int       `json:"notify_failed"`
	ReportKey    string    `json:"report_key,omitempty"`
}

func newUsageCheckResponse(status string, run *jobs.UsageCheckRun) usageCheckResponse {
	return usageCheckResponse{
		Status:       status,
		StartedAt:    run.StartedAt,
		FinishedAt:   run.FinishedAt,
		Tenants:      run.Result.Tenants,
		Succeeded:    run.Result.Succeeded,
		Failed:       run.Result.Failed,
		Notified:     run.Result.Notified,
		Suppressed:   run.Result.Suppressed,
		NotifyFailed: run.Result.NotifyFailed,
		ReportKey:    run.ReportKey,
	}
}

// RunUsageCheck runs a usage pass now and returns its outcome. It waits
// for a scheduled pass that is already in progress.
func (h *AdminHandler) RunUsageCheck(w http.ResponseWriter, r *http.Request) {
	const op = "admin.usage_check"

	// Detach from the request so a dropped connection does not abort the pass.
	ctx, captured := jobs.CaptureRun(context.WithoutCancel(r.Context()))
	err := h.runner.RunNow(ctx)

	status := "ok"
	if err != nil {
		if !errors.Is(err, jobs.ErrTenantsFailed) {
			ErrorResponse(w, r, h.logger, domain.Unavailable(err, op, "Usage check failed"))
			return
		}
		status = "partial"
	}

	run := captured()
	if run == nil {
		InternalErrorResponse(w, r, h.logger, errors.New("usage check finished without a recorded run"))
		return
	}

	writeJSON(w, http.StatusOK, newUsageCheckResponse(status, run))
}

// LastUsageCheck returns the most recent pass, scheduled or manual.
func (h *AdminHandler) LastUsageCheck(w http.ResponseWriter, r *http.Request) {
	run := h.history.LastRun()
	if run == nil {
		NotFoundResponse(w, r, h.logger)
		return
	}

	status := "ok"
	if run.Result.Failed > 0 {
		status = "partial"
	}
	writeJSON(w, http.StatusOK, newUsageCheckResponse(status, run))
}

type reportEntry struct {
	Date string `json:"date"`
	Key  string `json:"key"`
}

// ListReports lists exported usage reports, newest first.
func (h *AdminHandler) ListReports(w http.ResponseWriter, r *http.Request) {
	const op = "admin.list_reports"

	if h.reports == nil {
		NotFoundResponse(w, r, h.logger)
		return
	}

	keys, err := h.reports.List(r.Context(), storage.UsageReportPrefix)
	if err != nil {
		ErrorResponse(w, r, h.logger, domain.Unavailable(err, op, "Unable to list usage reports"))
		return
	}

	entries := make([]reportEntry, 0, len(keys))
	for i := len(keys) - 1; i >= 0; i-- {
		date, ok := reportDate(keys[i])
		if !ok {
			continue
		}
		entries = append(entries, reportEntry{Date: date, Key: keys[i]})
	}

	writeJSON(w, http.StatusOK, map[string]any{"reports": entries})
}

// GetReport streams one day's usage report as CSV.
func (h *AdminHandler) GetReport(w http.ResponseWriter, r *http.Request) {
	const op = "admin.get_report"

	if h.reports == nil {
		NotFoundResponse(w, r, h.logger)
		return
	}

	day, ok := parseReportDay(r.PathValue("year"), r.PathValue("month"), strings.TrimSuffix(r.PathValue("day"), ".csv"))
	if !ok {
		ErrorResponse(w, r, h.logger, domain.Invalid(op, "Invalid report date"))
		return
	}

	key := storage.UsageReportKey(day)
	body, info, err := h.reports.Get(r.Context(), key)
	if err != nil {
		if storage.IsNotFound(err) {
			NotFoundResponse(w, r, h.logger)
			return
		}
		ErrorResponse(w, r, h.logger, domain.Unavailable(err, op, "Unable to load usage report"))
		return
	}
	defer body.Close()

	w.Header().Set("Content-Type", "text/csv; charset=utf-8")
	w.Header().Set("Content-Disposition", `attachment; filename="usage-`+day.Format("2006-01-02")+`.csv"`)
	if info.Size > 0 {
		w.Header().Set("Content-Length", strconv.FormatInt(info.Size, 10))
	}
	w.WriteHeader(http.StatusOK)
	if _, err := io.Copy(w, body); err != nil {
		h.logger.Warn("failed to stream usage report", "key", key, "error", err)
	}
}

// reportDate turns "usage-reports/2026/10/19.csv" into "2026-10-19".
func reportDate(key string) (string, bool) {
	parts := strings.Split(strings.TrimSuffix(strings.TrimPrefix(key, storage.UsageReportPrefix), ".csv"), "/")
	if len(parts) != 3 {
		return "", false
	}
	day, ok := parseReportDay(parts[0], parts[1], parts[2])
	if !ok {
		return "", false
	}
	return day.Format("2006-01-02"), true
}

func parseReportDay(year, month, day string) (time.Time, bool) {
	t, err := time.Parse("2006-01-02", year+"-"+month+"-"+day)
	if err != nil {
		return time.Time{}, false
	}
	return t, true
}
