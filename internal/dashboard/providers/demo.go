package providers

import (
	"context"
	"math"
	"time"

	dashboard "energy-dashboard/internal/dashboard/domain"
)

// Demo generates a deterministic sinusoidal payload. It always succeeds.
type Demo struct {
	now func() time.Time
}

// NewDemo constructs the demo generator.
func NewDemo(now func() time.Time) *Demo {
	if now == nil {
		now = time.Now
	}
	return &Demo{now: now}
}

// Name implements dashboard.Provider.
func (d *Demo) Name() dashboard.SourceTag { return dashboard.TagDemo }

// TryLoad implements dashboard.Provider.
func (d *Demo) TryLoad(_ context.Context, f dashboard.Filters) (*dashboard.Payload, error) {
	now := d.now().UTC()
	n := f.PointCount(now)
	step := time.Duration(f.Interval.Minutes()) * time.Minute

	history := make([]dashboard.HistoryPoint, n)
	for idx := 0; idx < n; idx++ {
		x := float64(idx)
		history[n-1-idx] = dashboard.HistoryPoint{
			Timestamp:  now.Add(-time.Duration(idx) * step),
			Production: math.Max(0, 40+math.Sin(x/5)*20+float64(idx%7)*2),
			Export:     math.Max(0, 15+math.Cos(x/6)*10),
			Import:     math.Max(0, 10+math.Sin(x/4)*15),
		}
	}
	return &dashboard.Payload{
		Summary: []dashboard.SummaryItem{
			{Label: "PV production", Value: 3456, Unit: "kWh"},
			{Label: "Grid export", Value: 1240, Unit: "kWh"},
			{Label: "Grid import", Value: 890, Unit: "kWh"},
			{Label: "Total savings", Value: 122000, Unit: "Kč"},
		},
		History:     history,
		RefreshedAt: now,
		SourceUsed:  dashboard.TagDemo,
	}, nil
}
