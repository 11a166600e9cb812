package http

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"energy-dashboard/internal/auth"
	dashboard "energy-dashboard/internal/dashboard/domain"
)

// Loader resolves dashboard filters into a payload.
type Loader interface {
	Load(ctx context.Context, f dashboard.Filters) dashboard.Payload
}

// Handler serves GET /api/v1/dashboard.
type Handler struct {
	loader Loader
}

// NewHandler constructs a dashboard handler.
func NewHandler(loader Loader) (*Handler, error) {
	if loader == nil {
		return nil, errors.New("dashboard handler: nil loader")
	}
	return &Handler{loader: loader}, nil
}

// ServeHTTP handles GET /api/v1/dashboard?range=&source=&interval=&from=&to=.
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	f, err := ParseFilters(r)
	if errors.Is(err, auth.ErrSystemMismatch) {
		http.Error(w, "system_id does not match token", http.StatusForbidden)
		return
	}
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	payload := h.loader.Load(r.Context(), f)
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(payload)
}

// ParseFilters reads dashboard filters from the query string. Unknown
// values fall back to defaults; a custom range needs RFC 3339 from/to.
func ParseFilters(r *http.Request) (dashboard.Filters, error) {
	q := r.URL.Query()
	f := dashboard.Filters{
		Range:    dashboard.NormalizeRange(q.Get("range")),
		Source:   dashboard.NormalizeSource(q.Get("source")),
		Interval: dashboard.NormalizeInterval(q.Get("interval")),
	}
	systemID, err := auth.ResolveSystemID(r.Context(), q.Get("system_id"))
	if err != nil {
		return f, err
	}
	f.SystemID = systemID
	if f.Range != dashboard.RangeCustom {
		return f, nil
	}
	from, err := time.Parse(time.RFC3339, q.Get("from"))
	if err != nil {
		return f, errors.New("from must be RFC 3339")
	}
	to, err := time.Parse(time.RFC3339, q.Get("to"))
	if err != nil {
		return f, errors.New("to must be RFC 3339")
	}
	if !to.After(from) {
		return f, errors.New("from must be before to")
	}
	f.From, f.To = from.UTC(), to.UTC()
	return f, nil
}
