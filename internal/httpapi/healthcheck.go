package httpapi

import (
	"log/slog"
	"net/http"
	"os"

	"airquality-server/internal/utils"
)

// DataSource is the file the service reports on.
type DataSource interface {
	Path() string
}

type healthchecker interface {
	handleHealthz(w http.ResponseWriter, r *http.Request)
}

type healthcheckerImpl struct {
	source DataSource
}

func NewHealthchecker(source DataSource) healthchecker {
	return &healthcheckerImpl{source: source}
}

// handleHealthz reports ok only while the data file can be opened for reading.
func (h *healthcheckerImpl) handleHealthz(w http.ResponseWriter, r *http.Request) {
	f, err := os.Open(h.source.Path())
	if err != nil {
		slog.Error("data file not readable", "path", h.source.Path(), "error", err)
		utils.WriteError(w, http.StatusServiceUnavailable, "data file not readable")
		return
	}
	if err := f.Close(); err != nil {
		slog.Warn("close data file", "path", h.source.Path(), "error", err)
	}
	utils.WriteJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func registerHealthcheck(mux *http.ServeMux, source DataSource) {
	healthchecker := NewHealthchecker(source)
	mux.HandleFunc("GET /healthz", healthchecker.handleHealthz)
}
