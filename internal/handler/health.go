package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/rs/zerolog/log"
)

// Pinger reports whether the backing store is reachable.
type Pinger interface {
	Ping(ctx context.Context) error
}

type HealthHandler struct {
	db        Pinger
	version   string
	startTime time.Time
}

func NewHealthHandler(db Pinger, version string) *HealthHandler {
	return &HealthHandler{db: db, version: version, startTime: time.Now()}
}

type HealthResponse struct {
	Status        string `json:"status"`
	Version       string `json:"version"`
	Database      string `json:"database"`
	UptimeSeconds int64  `json:"uptime_seconds"`
}

func (h *HealthHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	status := http.StatusOK
	resp := HealthResponse{
		Status:        "healthy",
		Version:       h.version,
		Database:      "up",
		UptimeSeconds: int64(time.Since(h.startTime).Seconds()),
	}

	if err := h.db.Ping(r.Context()); err != nil {
		log.Error().Err(err).Msg("database health check failed")
		status = http.StatusServiceUnavailable
		resp.Status = "degraded"
		resp.Database = "down"
	}

	RespondJSON(w, status, resp)
}
