package handler

import (
	"net/http"
	"os"
	"path/filepath"
)

// HealthHandler handles health check requests.
type HealthHandler struct {
	dataDir string
}

// NewHealthHandler creates a new HealthHandler.
func NewHealthHandler(dataDir string) *HealthHandler {
	return &HealthHandler{dataDir: dataDir}
}

// Liveness returns 200 if the service is alive.
func (h *HealthHandler) Liveness(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// Readiness returns 200 if the data directory is writable. Every mutating
// operation needs to persist before it acknowledges, so an unwritable data
// directory means the service cannot safely accept traffic.
func (h *HealthHandler) Readiness(w http.ResponseWriter, r *http.Request) {
	probe := filepath.Join(h.dataDir, ".ready_probe")
	if err := os.WriteFile(probe, []byte("ok"), 0o600); err != nil {
		writeError(w, http.StatusServiceUnavailable, "data directory not writable", err.Error())
		return
	}
	os.Remove(probe)

	writeJSON(w, http.StatusOK, map[string]string{
		"status":   "ready",
		"data_dir": "ok",
	})
}
