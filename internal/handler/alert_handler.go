package handler

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/gorilla/mux"
	"go.uber.org/zap"

	"NetSentryAPI/internal/auth"
	"NetSentryAPI/internal/service"
)

const (
	defaultListLimit = 50
	maxListLimit     = 200
)

// AlertHandler is the thin REST boundary over the correlator. It resolves
// the caller's identity from the request context and translates domain
// errors into response codes; all business rules live in the service.
type AlertHandler struct {
	correlator service.IAlertCorrelator
	log        *zap.Logger
}

func NewAlertHandler(correlator service.IAlertCorrelator, log *zap.Logger) *AlertHandler {
	return &AlertHandler{
		correlator: correlator,
		log:        log,
	}
}

func (h *AlertHandler) RegisterRoutes(r *mux.Router) {
	r.HandleFunc("/alerts", h.List).Methods("GET")
	r.HandleFunc("/alerts/statistics", h.Statistics).Methods("GET")
	r.HandleFunc("/alerts/unacknowledged", h.ListUnacknowledged).Methods("GET")
	r.HandleFunc("/alerts/recent", h.ListRecent).Methods("GET")
	r.HandleFunc("/alerts/status/{status}", h.ListByStatus).Methods("GET")
	r.HandleFunc("/alerts/severity/{severity}", h.ListBySeverity).Methods("GET")
	r.HandleFunc("/alerts/source/{source_type}/{source_id}", h.ListBySource).Methods("GET")
	r.HandleFunc("/alerts/{id}/acknowledge", h.Acknowledge).Methods("PUT")
	r.HandleFunc("/alerts/{id}/resolve", h.Resolve).Methods("PUT")
	r.HandleFunc("/alerts/{id}/clear", h.Clear).Methods("PUT")
}

func (h *AlertHandler) List(w http.ResponseWriter, r *http.Request) {
	identity, ok := auth.IdentityFrom(r.Context())
	if !ok {
		respondError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	limit := defaultListLimit
	offset := 0
	if l := r.URL.Query().Get("limit"); l != "" {
		parsed, err := strconv.Atoi(l)
		if err != nil || parsed < 0 {
			respondError(w, http.StatusBadRequest, "limit must be a non-negative integer")
			return
		}
		limit = parsed
		if limit > maxListLimit {
			limit = maxListLimit
		}
	}
	if o := r.URL.Query().Get("offset"); o != "" {
		parsed, err := strconv.Atoi(o)
		if err != nil || parsed < 0 {
			respondError(w, http.StatusBadRequest, "offset must be a non-negative integer")
			return
		}
		offset = parsed
	}

	alerts, err := h.correlator.GetAlerts(r.Context(), identity.UserID, limit, offset)
	if err != nil {
		h.log.Error("failed to list alerts", zap.Error(err))
		respondError(w, http.StatusInternalServerError, err.Error())
		return
	}

	respondJSON(w, http.StatusOK, alerts)
}

func (h *AlertHandler) ListByStatus(w http.ResponseWriter, r *http.Request) {
	identity, ok := auth.IdentityFrom(r.Context())
	if !ok {
		respondError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	alerts, err := h.correlator.GetAlertsByStatus(r.Context(), identity.UserID, mux.Vars(r)["status"])
	if err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}
	respondJSON(w, http.StatusOK, alerts)
}

func (h *AlertHandler) ListBySeverity(w http.ResponseWriter, r *http.Request) {
	identity, ok := auth.IdentityFrom(r.Context())
	if !ok {
		respondError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	alerts, err := h.correlator.GetAlertsBySeverity(r.Context(), identity.UserID, mux.Vars(r)["severity"])
	if err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}
	respondJSON(w, http.StatusOK, alerts)
}

func (h *AlertHandler) ListUnacknowledged(w http.ResponseWriter, r *http.Request) {
	identity, ok := auth.IdentityFrom(r.Context())
	if !ok {
		respondError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	alerts, err := h.correlator.GetUnacknowledged(r.Context(), identity.UserID)
	if err != nil {
		h.log.Error("failed to list unacknowledged alerts", zap.Error(err))
		respondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	respondJSON(w, http.StatusOK, alerts)
}

func (h *AlertHandler) ListRecent(w http.ResponseWriter, r *http.Request) {
	identity, ok := auth.IdentityFrom(r.Context())
	if !ok {
		respondError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	since := time.Now().Add(-24 * time.Hour)
	if s := r.URL.Query().Get("since"); s != "" {
		parsed, err := time.Parse(time.RFC3339, s)
		if err != nil {
			respondError(w, http.StatusBadRequest, "since must be RFC3339")
			return
		}
		since = parsed
	}

	alerts, err := h.correlator.GetAlertsSince(r.Context(), identity.UserID, since)
	if err != nil {
		h.log.Error("failed to list recent alerts", zap.Error(err))
		respondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	respondJSON(w, http.StatusOK, alerts)
}

func (h *AlertHandler) ListBySource(w http.ResponseWriter, r *http.Request) {
	identity, ok := auth.IdentityFrom(r.Context())
	if !ok {
		respondError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	vars := mux.Vars(r)
	alerts, err := h.correlator.GetAlertsBySource(r.Context(), identity.UserID, vars["source_type"], vars["source_id"])
	if err != nil {
		h.log.Error("failed to list alerts by source", zap.Error(err))
		respondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	respondJSON(w, http.StatusOK, alerts)
}

func (h *AlertHandler) Statistics(w http.ResponseWriter, r *http.Request) {
	identity, ok := auth.IdentityFrom(r.Context())
	if !ok {
		respondError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	stats, err := h.correlator.GetStatistics(r.Context(), identity.UserID)
	if err != nil {
		h.log.Error("failed to compute statistics", zap.Error(err))
		respondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	respondJSON(w, http.StatusOK, stats)
}

type acknowledgeRequest struct {
	Comment string `json:"comment"`
}

func (h *AlertHandler) Acknowledge(w http.ResponseWriter, r *http.Request) {
	identity, id, ok := h.mutationTarget(w, r)
	if !ok {
		return
	}

	var req acknowledgeRequest
	if r.Body != nil {
		// An empty body means an empty comment.
		_ = json.NewDecoder(r.Body).Decode(&req)
	}

	alert, err := h.correlator.Acknowledge(r.Context(), id, req.Comment, identity.UserID)
	if err != nil {
		h.respondMutationError(w, "acknowledge", id, err)
		return
	}
	respondJSON(w, http.StatusOK, alert)
}

func (h *AlertHandler) Resolve(w http.ResponseWriter, r *http.Request) {
	identity, id, ok := h.mutationTarget(w, r)
	if !ok {
		return
	}

	alert, err := h.correlator.Resolve(r.Context(), id, identity.UserID)
	if err != nil {
		h.respondMutationError(w, "resolve", id, err)
		return
	}
	respondJSON(w, http.StatusOK, alert)
}

func (h *AlertHandler) Clear(w http.ResponseWriter, r *http.Request) {
	identity, id, ok := h.mutationTarget(w, r)
	if !ok {
		return
	}

	if err := h.correlator.Clear(r.Context(), id, identity.UserID); err != nil {
		h.respondMutationError(w, "clear", id, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *AlertHandler) mutationTarget(w http.ResponseWriter, r *http.Request) (*auth.Identity, int64, bool) {
	identity, ok := auth.IdentityFrom(r.Context())
	if !ok {
		respondError(w, http.StatusUnauthorized, "unauthorized")
		return nil, 0, false
	}

	id, err := strconv.ParseInt(mux.Vars(r)["id"], 10, 64)
	if err != nil {
		respondError(w, http.StatusBadRequest, "invalid alert id")
		return nil, 0, false
	}

	return identity, id, true
}

func (h *AlertHandler) respondMutationError(w http.ResponseWriter, op string, id int64, err error) {
	switch {
	case errors.Is(err, service.ErrNotFound):
		respondError(w, http.StatusNotFound, "alert not found")
	case errors.Is(err, service.ErrInvalidTransition):
		respondError(w, http.StatusConflict, err.Error())
	default:
		h.log.Error("alert mutation failed",
			zap.String("op", op), zap.Int64("alert_id", id), zap.Error(err))
		respondError(w, http.StatusInternalServerError, err.Error())
	}
}
