package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/cafe-pos/api/internal/enum"
	mw "github.com/cafe-pos/api/internal/middleware"
	"github.com/cafe-pos/api/internal/service"
	"github.com/go-chi/chi/v5"
	"github.com/sirupsen/logrus"
)

// ReportsService defines the service methods needed by report handlers.
type ReportsService interface {
	PaymentSummary(ctx context.Context, from, to time.Time) ([]service.MethodSummary, error)
	AuditTotals(ctx context.Context) ([]service.MismatchError, error)
	ReconcileAll(ctx context.Context) ([]service.ReconcileResult, error)
}

// ReportsHandler handles report and maintenance endpoints.
type ReportsHandler struct {
	svc ReportsService
	log *logrus.Logger
}

func NewReportsHandler(svc ReportsService, log *logrus.Logger) *ReportsHandler {
	return &ReportsHandler{svc: svc, log: log}
}

// RegisterRoutes is expected to be mounted at /reports.
func (h *ReportsHandler) RegisterRoutes(r chi.Router) {
	r.With(mw.RequireRole(enum.UserRoleCashier)).Get("/payment-summary", h.PaymentSummary)
	r.With(mw.RequireRole(enum.UserRoleAdmin)).Get("/total-audit", h.TotalAudit)
	r.With(mw.RequireRole(enum.UserRoleAdmin)).Post("/reconcile", h.Reconcile)
}

// --- Response types ---

type totalAuditResponse struct {
	Checked    string                  `json:"checked_at"`
	Mismatches []service.MismatchError `json:"mismatches"`
}

type reconcileResponse struct {
	Tables  []service.ReconcileResult `json:"tables"`
	Changed int                       `json:"changed"`
}

// --- Helpers ---

// parseDateRange parses "from" and "to" query parameters (YYYY-MM-DD).
// Defaults: from = today, to = today. The returned end is exclusive
// (start of the day after "to").
func parseDateRange(r *http.Request) (time.Time, time.Time, string) {
	now := time.Now().UTC()
	today := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)
	from, to := today, today

	if v := r.URL.Query().Get("from"); v != "" {
		t, err := time.Parse("2006-01-02", v)
		if err != nil {
			return time.Time{}, time.Time{}, "invalid from date, expected YYYY-MM-DD"
		}
		from = t
	}
	if v := r.URL.Query().Get("to"); v != "" {
		t, err := time.Parse("2006-01-02", v)
		if err != nil {
			return time.Time{}, time.Time{}, "invalid to date, expected YYYY-MM-DD"
		}
		to = t
	}
	if to.Before(from) {
		return time.Time{}, time.Time{}, "to must not be before from"
	}
	return from, to.AddDate(0, 0, 1), ""
}

// --- Handlers ---

// PaymentSummary handles GET /reports/payment-summary?from=&to=.
func (h *ReportsHandler) PaymentSummary(w http.ResponseWriter, r *http.Request) {
	from, to, msg := parseDateRange(r)
	if msg != "" {
		writeMessage(w, http.StatusBadRequest, msg)
		return
	}
	rows, err := h.svc.PaymentSummary(r.Context(), from, to)
	if err != nil {
		writeError(w, h.log, r, err)
		return
	}
	if rows == nil {
		rows = []service.MethodSummary{}
	}
	writeJSON(w, http.StatusOK, rows)
}

// TotalAudit lists orders whose stored total disagrees with their items.
func (h *ReportsHandler) TotalAudit(w http.ResponseWriter, r *http.Request) {
	mismatches, err := h.svc.AuditTotals(r.Context())
	if err != nil {
		writeError(w, h.log, r, err)
		return
	}
	if mismatches == nil {
		mismatches = []service.MismatchError{}
	}
	if len(mismatches) > 0 {
		h.log.WithField("count", len(mismatches)).Warn("order totals disagree with items")
	}
	writeJSON(w, http.StatusOK, totalAuditResponse{
		Checked:    time.Now().UTC().Format(time.RFC3339),
		Mismatches: mismatches,
	})
}

// Reconcile re-derives every table's status from its orders.
func (h *ReportsHandler) Reconcile(w http.ResponseWriter, r *http.Request) {
	results, err := h.svc.ReconcileAll(r.Context())
	if err != nil {
		writeError(w, h.log, r, err)
		return
	}
	resp := reconcileResponse{Tables: results}
	if resp.Tables == nil {
		resp.Tables = []service.ReconcileResult{}
	}
	for _, res := range results {
		if res.Changed {
			resp.Changed++
		}
	}
	writeJSON(w, http.StatusOK, resp)
}
