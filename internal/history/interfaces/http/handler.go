package http

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/sirupsen/logrus"

	"energy-dashboard/internal/auth"
	history "energy-dashboard/internal/history/domain"
)

// SeriesLoader reconciles a query into a series.
type SeriesLoader interface {
	Reconcile(ctx context.Context, q history.Query) (history.Series, error)
}

type rangeSpec struct {
	span     time.Duration
	interval int
}

// Year uses day buckets rather than calendar months.
var ranges = map[string]rangeSpec{
	"day":   {span: 24 * time.Hour, interval: 60},
	"week":  {span: 7 * 24 * time.Hour, interval: 1440},
	"month": {span: 30 * 24 * time.Hour, interval: 1440},
	"year":  {span: 365 * 24 * time.Hour, interval: 1440},
}

// Handler serves GET /api/v1/history.
type Handler struct {
	loader          SeriesLoader
	defaultSystemID string
	logger          logrus.FieldLogger
	now             func() time.Time
}

// NewHandler constructs a history handler.
func NewHandler(loader SeriesLoader, defaultSystemID string, logger logrus.FieldLogger) (*Handler, error) {
	if loader == nil {
		return nil, errors.New("history handler: nil loader")
	}
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	return &Handler{loader: loader, defaultSystemID: defaultSystemID, logger: logger, now: time.Now}, nil
}

type response struct {
	Range           string                    `json:"range"`
	DashboardSource string                    `json:"dashboardSource"`
	IntervalMinutes int                       `json:"intervalMinutes"`
	From            time.Time                 `json:"from"`
	To              time.Time                 `json:"to"`
	Strategy        history.Strategy          `json:"strategy,omitempty"`
	Points          []history.ReconciledPoint `json:"points"`
	Totals          history.Totals            `json:"totals"`
}

// ServeHTTP handles GET /api/v1/history?range=day|week|month|year&source=db|solax.
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	rangeName := r.URL.Query().Get("range")
	if rangeName == "" {
		rangeName = "day"
	}
	spec, ok := ranges[rangeName]
	if !ok {
		http.Error(w, "range must be one of day, week, month, year", http.StatusBadRequest)
		return
	}
	source := r.URL.Query().Get("source")
	preferred := history.PreferAuto
	switch source {
	case "", "db":
		source = "db"
	case "solax":
		preferred = history.PreferInverter
	default:
		http.Error(w, "source must be db or solax", http.StatusBadRequest)
		return
	}

	systemID, err := auth.ResolveSystemID(r.Context(), r.URL.Query().Get("system_id"))
	if err != nil {
		http.Error(w, "system_id does not match token", http.StatusForbidden)
		return
	}
	if systemID == "" {
		systemID = h.defaultSystemID
	}

	to := h.now().UTC()
	from := to.Add(-spec.span)
	q := history.Query{SystemID: systemID, From: from, To: to, IntervalMinutes: spec.interval, Preferred: preferred}

	resp := response{
		Range:           rangeName,
		DashboardSource: source,
		IntervalMinutes: spec.interval,
		From:            from,
		To:              to,
		Points:          []history.ReconciledPoint{},
	}
	series, err := h.loader.Reconcile(r.Context(), q)
	switch {
	case err == nil:
		resp.Points = series.Points
		resp.Totals = series.Totals
		resp.Strategy = series.Strategy
		if series.Strategy == history.StrategyDerived {
			resp.DashboardSource = "solax"
		}
	case errors.Is(err, history.ErrNoDataInRange):
	default:
		h.logger.WithError(err).WithField("system_id", systemID).Warn("history query failed")
		http.Error(w, "query history error", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(resp)
}
