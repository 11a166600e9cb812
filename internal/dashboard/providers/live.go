package providers

import (
	"context"
	"errors"
	"fmt"
	"math"
	"time"

	dashboard "energy-dashboard/internal/dashboard/domain"
	ingest "energy-dashboard/internal/ingest/domain"
	"energy-dashboard/internal/solax"
)

// RealtimeSource reads the current inverter state.
type RealtimeSource interface {
	Configured() bool
	FetchRealtime(ctx context.Context) (solax.Realtime, error)
}

// Live serves the dashboard straight from the inverter cloud.
type Live struct {
	source RealtimeSource
	now    func() time.Time
}

// NewLive constructs the live provider.
func NewLive(source RealtimeSource, now func() time.Time) *Live {
	if now == nil {
		now = time.Now
	}
	return &Live{source: source, now: now}
}

// Name implements dashboard.Provider.
func (l *Live) Name() dashboard.SourceTag { return dashboard.TagSolaxLive }

// TryLoad reads one realtime sample. The history repeats the sampled power
// over every bucket of the window, converted to kWh per bucket.
func (l *Live) TryLoad(ctx context.Context, f dashboard.Filters) (*dashboard.Payload, error) {
	if l.source == nil || !l.source.Configured() {
		return nil, dashboard.ErrSkipped
	}
	rt, err := l.source.FetchRealtime(ctx)
	if err != nil {
		if errors.Is(err, solax.ErrNotConfigured) {
			return nil, dashboard.ErrSkipped
		}
		return nil, fmt.Errorf("%w: %v", dashboard.ErrProviderUnavailable, err)
	}

	power := math.Max(0, rt.Power())
	feed := math.Max(0, rt.FeedIn())
	importPower := math.Max(0, rt.Power()-rt.FeedIn())

	now := l.now()
	interval := f.Interval.Minutes()
	n := f.PointCount(now)
	aligned := ingest.BucketStart(now.UTC(), interval)
	step := time.Duration(interval) * time.Minute

	history := make([]dashboard.HistoryPoint, n)
	for idx := 0; idx < n; idx++ {
		history[n-1-idx] = dashboard.HistoryPoint{
			Timestamp:  aligned.Add(-time.Duration(idx) * step),
			Production: ingest.PowerToEnergyKWh(power, interval),
			Export:     ingest.PowerToEnergyKWh(feed, interval),
			Import:     ingest.PowerToEnergyKWh(importPower, interval),
		}
	}

	refreshed, ok := ingest.Normalize(rt.UploadTime)
	if !ok {
		refreshed = now.UTC()
	}
	return &dashboard.Payload{
		Summary: []dashboard.SummaryItem{
			{Label: "Current production", Value: rt.Power(), Unit: "W"},
			{Label: "Grid feed-in", Value: rt.FeedIn(), Unit: "W"},
			{Label: "Grid import", Value: importPower, Unit: "W"},
			{Label: "Yield today", Value: math.Round(rt.YieldTodayKWh()*1000) / 1000, Unit: "kWh"},
		},
		History:     history,
		RefreshedAt: refreshed,
		SourceUsed:  dashboard.TagSolaxLive,
	}, nil
}
