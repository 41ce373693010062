package api

import (
	"net/http"
	"time"

	"github.com/nerrad567/gray-logic-qsys/internal/bridge"
)

// handleHealth reports bridge health. It answers 200 while the bridge is
// degraded so probes can still read the reason.
func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	status, reason := bridge.HealthHealthy, ""
	if s.health != nil {
		status, reason = s.health.Status()
	}

	body := map[string]any{
		"status":         status,
		"version":        s.version,
		"uptime_seconds": int64(time.Since(s.started).Seconds()),
		"cores":          len(s.directory.Cores()),
	}
	if reason != "" {
		body["reason"] = reason
	}
	if s.devices != nil {
		body["devices"] = len(s.devices.Devices())
	}
	writeJSON(w, http.StatusOK, body)
}

// handleListDevices returns every configured device with its binding and
// last published state.
func (s *Server) handleListDevices(w http.ResponseWriter, _ *http.Request) {
	if s.devices == nil {
		writeUnavailable(w, "bridge not running")
		return
	}
	devices := s.devices.Devices()
	writeJSON(w, http.StatusOK, map[string]any{
		"devices": devices,
		"count":   len(devices),
	})
}
