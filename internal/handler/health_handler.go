package handler

import (
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"go.uber.org/zap"

	"NetSentryAPI/internal/database"
	"NetSentryAPI/internal/mqtt"
	"NetSentryAPI/internal/websocket"
)

type HealthHandler struct {
	db   *database.Database
	mqtt *mqtt.Client
	hub  *websocket.Hub
	log  *zap.Logger
}

func NewHealthHandler(db *database.Database, mqttClient *mqtt.Client, hub *websocket.Hub, log *zap.Logger) *HealthHandler {
	return &HealthHandler{
		db:   db,
		mqtt: mqttClient,
		hub:  hub,
		log:  log,
	}
}

func (h *HealthHandler) RegisterRoutes(r *mux.Router) {
	r.HandleFunc("/health", h.Health).Methods("GET")
}

type healthResponse struct {
	Status     string `json:"status"`
	Database   string `json:"database"`
	Broker     string `json:"broker"`
	WSClients  int    `json:"ws_clients"`
	ServerTime string `json:"server_time"`
}

func (h *HealthHandler) Health(w http.ResponseWriter, r *http.Request) {
	resp := healthResponse{
		Status:     "ok",
		Database:   "up",
		Broker:     "up",
		WSClients:  h.hub.ClientCount(),
		ServerTime: time.Now().UTC().Format(time.RFC3339),
	}
	code := http.StatusOK

	if err := h.db.Health(r.Context()); err != nil {
		h.log.Warn("database health check failed", zap.Error(err))
		resp.Status = "degraded"
		resp.Database = "down"
		code = http.StatusServiceUnavailable
	}

	if !h.mqtt.IsConnected() {
		resp.Status = "degraded"
		resp.Broker = "down"
		code = http.StatusServiceUnavailable
	}

	respondJSON(w, code, resp)
}
