package handler

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/cafe-pos/api/internal/model"
	"github.com/cafe-pos/api/internal/service"
	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		logrus.WithError(err).Error("encode JSON response")
	}
}

func writeMessage(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

// statusFor maps service errors to HTTP status codes.
func statusFor(err error) int {
	switch {
	case errors.Is(err, service.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, service.ErrInvalidTransition),
		errors.Is(err, service.ErrTableHasOpenOrders),
		errors.Is(err, service.ErrStaleStatus),
		errors.Is(err, service.ErrNothingToPay),
		errors.Is(err, service.ErrAlreadyExists),
		errors.Is(err, model.ErrDuplicate):
		return http.StatusConflict
	case errors.Is(err, service.ErrAmountMismatch),
		errors.Is(err, service.ErrTotalMismatch):
		return http.StatusUnprocessableEntity
	case errors.Is(err, service.ErrEmptyItems),
		errors.Is(err, service.ErrInvalidQuantity),
		errors.Is(err, service.ErrOutOfStock),
		errors.Is(err, service.ErrInvalidStatus),
		errors.Is(err, service.ErrInvalidPaymentMethod),
		errors.Is(err, service.ErrInvalidAmount),
		errors.Is(err, service.ErrInvalidPrice),
		errors.Is(err, service.ErrInvalidRate),
		errors.Is(err, service.ErrInvalidInput):
		return http.StatusBadRequest
	}
	return http.StatusInternalServerError
}

// writeError responds with the mapped status. Internal errors are logged and
// hidden from the client.
func writeError(w http.ResponseWriter, log *logrus.Logger, r *http.Request, err error) {
	status := statusFor(err)
	if status == http.StatusInternalServerError {
		log.WithError(err).WithFields(logrus.Fields{
			"method": r.Method,
			"path":   r.URL.Path,
		}).Error("internal server error")
		writeMessage(w, status, "internal server error")
		return
	}
	writeJSON(w, status, errorBody(err))
}

// errorBody adds structured detail for the errors clients act on.
func errorBody(err error) map[string]interface{} {
	body := map[string]interface{}{"error": err.Error()}
	var amount *service.AmountMismatchError
	if errors.As(err, &amount) {
		body["expected"] = amount.Expected.StringFixed(2)
		body["got"] = amount.Got.StringFixed(2)
	}
	var mismatch *service.MismatchError
	if errors.As(err, &mismatch) {
		body["mismatch"] = mismatch
	}
	var open *service.OpenOrdersError
	if errors.As(err, &open) {
		body["open_orders"] = open.OrderIDs
	}
	return body
}

func decodeJSON(w http.ResponseWriter, r *http.Request, v interface{}) bool {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		writeMessage(w, http.StatusBadRequest, "invalid request body")
		return false
	}
	return true
}

func tableIDParam(w http.ResponseWriter, r *http.Request) (int32, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 32)
	if err != nil || id <= 0 {
		writeMessage(w, http.StatusBadRequest, "invalid table ID")
		return 0, false
	}
	return int32(id), true
}

func uuidParam(w http.ResponseWriter, r *http.Request, name, label string) (uuid.UUID, bool) {
	id, err := uuid.Parse(chi.URLParam(r, name))
	if err != nil {
		writeMessage(w, http.StatusBadRequest, "invalid "+label+" ID")
		return uuid.Nil, false
	}
	return id, true
}
