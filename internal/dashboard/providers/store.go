package providers

import (
	"context"
	"errors"
	"fmt"
	"time"

	dashboard "energy-dashboard/internal/dashboard/domain"
	history "energy-dashboard/internal/history/domain"
)

// SeriesLoader reconciles stored readings into one series.
type SeriesLoader interface {
	Reconcile(ctx context.Context, q history.Query) (history.Series, error)
}

// Store serves the dashboard from the reconciled reading tables.
type Store struct {
	loader          SeriesLoader
	defaultSystemID string
	now             func() time.Time
}

// NewStore constructs the store provider.
func NewStore(loader SeriesLoader, defaultSystemID string, now func() time.Time) (*Store, error) {
	if loader == nil {
		return nil, errors.New("store provider: nil loader")
	}
	if now == nil {
		now = time.Now
	}
	return &Store{loader: loader, defaultSystemID: defaultSystemID, now: now}, nil
}

// Name implements dashboard.Provider.
func (s *Store) Name() dashboard.SourceTag { return dashboard.TagDB }

// TryLoad reconciles the filter window. The solax source prefers inverter
// readings over measurements.
func (s *Store) TryLoad(ctx context.Context, f dashboard.Filters) (*dashboard.Payload, error) {
	from, to, err := f.Bounds(s.now())
	if err != nil {
		return nil, fmt.Errorf("%w: %v", dashboard.ErrInvalidPayload, err)
	}
	q := history.Query{
		SystemID:        f.SystemID,
		From:            from,
		To:              to,
		IntervalMinutes: f.Interval.Minutes(),
	}
	if q.SystemID == "" {
		q.SystemID = s.defaultSystemID
	}
	if f.Source == dashboard.SourceSolax {
		q.Preferred = history.PreferInverter
	}

	series, err := s.loader.Reconcile(ctx, q)
	if errors.Is(err, history.ErrNoDataInRange) {
		return nil, dashboard.ErrNoData
	}
	if err != nil {
		return nil, fmt.Errorf("%w: %v", dashboard.ErrProviderUnavailable, err)
	}

	payload := &dashboard.Payload{
		Summary: []dashboard.SummaryItem{
			{Label: "PV production", Value: series.Totals.ProductionKWh, Unit: "kWh"},
			{Label: "Grid export", Value: series.Totals.GridExportKWh, Unit: "kWh"},
			{Label: "Grid import", Value: series.Totals.GridImportKWh, Unit: "kWh"},
		},
		History:     make([]dashboard.HistoryPoint, 0, len(series.Points)),
		RefreshedAt: s.now().UTC(),
		SourceUsed:  dashboard.TagDB,
	}
	for _, p := range series.Points {
		payload.History = append(payload.History, dashboard.HistoryPoint{
			Timestamp:  p.Timestamp,
			Production: p.ProductionKWh,
			Export:     p.GridExportKWh,
			Import:     p.GridImportKWh,
		})
	}
	return payload, nil
}
