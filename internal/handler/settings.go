package handler

import (
	"context"
	"net/http"

	"github.com/cafe-pos/api/internal/enum"
	mw "github.com/cafe-pos/api/internal/middleware"
	"github.com/cafe-pos/api/internal/model"
	"github.com/cafe-pos/api/internal/service"
	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
)

type SettingsService interface {
	Settings(ctx context.Context) (model.Settings, error)
	UpdateSettings(ctx context.Context, u service.SettingsUpdate) (model.Settings, error)
}

type SettingsHandler struct {
	svc SettingsService
	log *logrus.Logger
}

func NewSettingsHandler(svc SettingsService, log *logrus.Logger) *SettingsHandler {
	return &SettingsHandler{svc: svc, log: log}
}

// RegisterRoutes is expected to be mounted at /settings.
func (h *SettingsHandler) RegisterRoutes(r chi.Router) {
	r.Get("/", h.Get)
	r.With(mw.RequireRole(enum.UserRoleAdmin)).Put("/", h.Update)
}

// Omitted fields keep their stored value.
type updateSettingsRequest struct {
	TaxRate           *decimal.Decimal `json:"tax_rate"`
	ServiceChargeRate *decimal.Decimal `json:"service_charge_rate"`
	Currency          *string          `json:"currency"`
	CafeName          *string          `json:"cafe_name"`
	ReceiptFooter     *string          `json:"receipt_footer"`
}

func (h *SettingsHandler) Get(w http.ResponseWriter, r *http.Request) {
	s, err := h.svc.Settings(r.Context())
	if err != nil {
		writeError(w, h.log, r, err)
		return
	}
	writeJSON(w, http.StatusOK, s)
}

func (h *SettingsHandler) Update(w http.ResponseWriter, r *http.Request) {
	var req updateSettingsRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	s, err := h.svc.UpdateSettings(r.Context(), service.SettingsUpdate{
		TaxRate:           req.TaxRate,
		ServiceChargeRate: req.ServiceChargeRate,
		Currency:          req.Currency,
		CafeName:          req.CafeName,
		ReceiptFooter:     req.ReceiptFooter,
	})
	if err != nil {
		writeError(w, h.log, r, err)
		return
	}
	writeJSON(w, http.StatusOK, s)
}
