package api

import (
	"net/http"
	"time"

	"github.com/snarg/meetscribe/internal/media"
)

type HealthResponse struct {
	Status        string            `json:"status"`
	Version       string            `json:"version"`
	UptimeSeconds int64             `json:"uptime_seconds"`
	Checks        map[string]string `json:"checks"`
}

type HealthHandler struct {
	version   string
	startTime time.Time
}

func NewHealthHandler(version string, startTime time.Time) *HealthHandler {
	return &HealthHandler{version: version, startTime: startTime}
}

func (h *HealthHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	checks := map[string]string{"ffmpeg": "ok"}
	status := "ok"
	if !media.CheckFFmpeg() {
		checks["ffmpeg"] = "missing from PATH"
		status = "degraded"
	}

	code := http.StatusOK
	if status != "ok" {
		code = http.StatusServiceUnavailable
	}
	WriteJSON(w, code, HealthResponse{
		Status:        status,
		Version:       h.version,
		UptimeSeconds: int64(time.Since(h.startTime).Seconds()),
		Checks:        checks,
	})
}
