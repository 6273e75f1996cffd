package restserver

import (
	"fmt"
	"net/http"
	"strconv"

	"github.com/gorilla/mux"
	"github.com/pburkhalter/TEKO-S3-Funkthermometer/internal/storage"
	"github.com/pburkhalter/TEKO-S3-Funkthermometer/internal/types"
	"github.com/pburkhalter/TEKO-S3-Funkthermometer/pkg/responseformat"
)

// Handlers contains all HTTP handlers for the REST server
type Handlers struct {
	controller *Controller
	formatter  *responseformat.Formatter
}

// NewHandlers creates a new handlers instance
func NewHandlers(ctrl *Controller) *Handlers {
	return &Handlers{
		controller: ctrl,
		formatter:  responseformat.NewFormatter(),
	}
}

// GetMeasurements returns the newest measurements of all stations.
func (h *Handlers) GetMeasurements(w http.ResponseWriter, req *http.Request) {
	limit, err := parseLimit(req)
	if err != nil {
		h.formatter.WriteError(w, req, http.StatusBadRequest, err.Error())
		return
	}

	ms, err := h.controller.History.Recent(req.Context(), limit)
	if err != nil {
		h.controller.logger.Errorf("error fetching measurements: %v", err)
		h.formatter.WriteError(w, req, http.StatusInternalServerError, "error fetching measurements")
		return
	}

	h.writeMeasurements(w, req, ms)
}

// GetStationMeasurements returns the newest measurements of one station.
func (h *Handlers) GetStationMeasurements(w http.ResponseWriter, req *http.Request) {
	station, err := types.ParseStation(mux.Vars(req)["station"])
	if err != nil || station == types.StationUndefined {
		h.formatter.WriteError(w, req, http.StatusNotFound, "unknown station")
		return
	}

	limit, err := parseLimit(req)
	if err != nil {
		h.formatter.WriteError(w, req, http.StatusBadRequest, err.Error())
		return
	}

	ms, err := h.controller.History.RecentByStation(req.Context(), station, limit)
	if err != nil {
		h.controller.logger.Errorf("error fetching measurements for %v: %v", station, err)
		h.formatter.WriteError(w, req, http.StatusInternalServerError, "error fetching measurements")
		return
	}

	h.writeMeasurements(w, req, ms)
}

// GetLatest returns the newest measurement of every station that has one.
func (h *Handlers) GetLatest(w http.ResponseWriter, req *http.Request) {
	var latest []types.Measurement
	for _, station := range []types.Station{types.StationT1, types.StationT2} {
		ms, err := h.controller.History.RecentByStation(req.Context(), station, 1)
		if err != nil {
			h.controller.logger.Errorf("error fetching latest measurement for %v: %v", station, err)
			h.formatter.WriteError(w, req, http.StatusInternalServerError, "error fetching measurements")
			return
		}
		latest = append(latest, ms...)
	}

	h.writeMeasurements(w, req, latest)
}

// GetHealth reports the last health check of every storage engine. Any
// unhealthy engine turns the response into a 503.
func (h *Handlers) GetHealth(w http.ResponseWriter, req *http.Request) {
	resp := HealthResponse{Status: storage.StatusHealthy, Engines: []storage.HealthData{}}
	status := http.StatusOK

	if h.controller.Health != nil {
		resp.Engines = h.controller.Health.All()
	}
	for _, e := range resp.Engines {
		if !e.Healthy() {
			resp.Status = storage.StatusUnhealthy
			status = http.StatusServiceUnavailable
		}
	}

	if err := h.formatter.WriteStatus(w, req, status, resp, map[string]string{"Cache-Control": "no-cache"}); err != nil {
		h.controller.logger.Errorf("error writing health response: %v", err)
	}
}

func (h *Handlers) writeMeasurements(w http.ResponseWriter, req *http.Request, ms []types.Measurement) {
	if err := h.formatter.WriteResponse(w, req, transformMeasurements(ms), nil); err != nil {
		h.controller.logger.Errorf("error encoding measurements: %v", err)
	}
}

func parseLimit(req *http.Request) (int, error) {
	v := req.URL.Query().Get("limit")
	if v == "" {
		return defaultLimit, nil
	}

	limit, err := strconv.Atoi(v)
	if err != nil || limit < 1 || limit > maxLimit {
		return 0, fmt.Errorf("limit must be between 1 and %d", maxLimit)
	}
	return limit, nil
}
