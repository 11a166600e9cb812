package http

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/sirupsen/logrus"

	"energy-dashboard/internal/auth"
	"energy-dashboard/internal/battery/application"
	dashboard "energy-dashboard/internal/dashboard/domain"
	dashboardhttp "energy-dashboard/internal/dashboard/interfaces/http"
	"energy-dashboard/internal/observability/metrics"
)

const noDataMessage = "no data available for the simulation"

// ScenarioRunner runs a battery sweep.
type ScenarioRunner interface {
	Run(ctx context.Context, req application.Request) (application.Report, error)
}

// Handler serves GET /api/v1/analysis/battery.
type Handler struct {
	runner ScenarioRunner
	logger logrus.FieldLogger
}

// NewHandler constructs a battery analysis handler.
func NewHandler(runner ScenarioRunner, logger logrus.FieldLogger) (*Handler, error) {
	if runner == nil {
		return nil, errors.New("battery handler: nil runner")
	}
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	return &Handler{runner: runner, logger: logger}, nil
}

// ServeHTTP handles GET /api/v1/analysis/battery?range=&interval=&pricePerKwh=&maxCapacity=&format=.
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	req, err := parseRequest(r)
	if errors.Is(err, auth.ErrSystemMismatch) {
		writeJSON(w, http.StatusForbidden, map[string]string{"error": "system_id does not match token"})
		return
	}
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
		return
	}
	format := r.URL.Query().Get("format")
	switch format {
	case "", "json", "xlsx", "pdf":
	default:
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "format must be json, xlsx or pdf"})
		return
	}

	report, err := h.runner.Run(r.Context(), req)
	switch {
	case err == nil:
	case errors.Is(err, application.ErrNoData):
		writeJSON(w, http.StatusNotFound, map[string]string{"error": noDataMessage})
		return
	case errors.Is(err, application.ErrInvalidRequest):
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
		return
	default:
		h.logger.WithError(err).Warn("battery analysis failed")
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "battery analysis error"})
		return
	}

	switch format {
	case "xlsx":
		h.export(w, format, "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet", report, BuildScenarioXLSX)
	case "pdf":
		h.export(w, format, "application/pdf", report, BuildScenarioPDF)
	default:
		writeJSON(w, http.StatusOK, report)
	}
}

func (h *Handler) export(w http.ResponseWriter, format, contentType string, report application.Report, build func(application.Report) ([]byte, error)) {
	data, err := build(report)
	if err != nil {
		metrics.ObserveExport(format, metrics.ResultError)
		h.logger.WithError(err).WithField("format", format).Warn("battery export failed")
		http.Error(w, "export "+format+" error", http.StatusInternalServerError)
		return
	}
	metrics.ObserveExport(format, metrics.ResultSuccess)
	w.Header().Set("Content-Type", contentType)
	w.Header().Set("Content-Disposition", `attachment; filename="battery-scenarios.`+format+`"`)
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(data)
}

func parseRequest(r *http.Request) (application.Request, error) {
	q := r.URL.Query()
	f, err := dashboardhttp.ParseFilters(r)
	if err != nil {
		return application.Request{}, err
	}
	f.Source = dashboard.SourceDB
	// Without an explicit interval the service picks its own resolution.
	if q.Get("interval") == "" {
		f.Interval = ""
	}
	req := application.Request{Filters: f}
	if raw := q.Get("pricePerKwh"); raw != "" {
		v, err := strconv.ParseFloat(raw, 64)
		if err != nil {
			return req, errors.New("pricePerKwh must be a number")
		}
		req.PricePerKWh = &v
	}
	if raw := q.Get("maxCapacity"); raw != "" {
		v, err := strconv.Atoi(raw)
		if err != nil {
			return req, errors.New("maxCapacity must be an integer")
		}
		req.MaxCapacity = &v
	}
	return req, nil
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}
