package dashboard

import (
	"fmt"
	"time"
)

// Range selects the dashboard window.
type Range string

const (
	Range24h      Range = "24h"
	Range7d       Range = "7d"
	Range30d      Range = "30d"
	Range90d      Range = "90d"
	RangeThisYear Range = "thisYear"
	RangeLastYear Range = "lastYear"
	RangeCustom   Range = "custom"
)

// Source selects the provider chain.
type Source string

const (
	SourceAuto  Source = "auto"
	SourceDB    Source = "db"
	SourceSolax Source = "solax"
	SourceLive  Source = "live"
)

// Interval is the bucket width of the history.
type Interval string

const (
	Interval15m Interval = "15m"
	Interval1h  Interval = "1h"
	Interval1d  Interval = "1d"
)

// Filters is the normalized dashboard request.
type Filters struct {
	Range    Range     `json:"range"`
	Source   Source    `json:"source"`
	Interval Interval  `json:"interval"`
	From     time.Time `json:"from,omitzero"`
	To       time.Time `json:"to,omitzero"`
	SystemID string    `json:"systemId,omitempty"`
}

// DefaultFilters mirrors the dashboard's initial state.
func DefaultFilters() Filters {
	return Filters{Range: Range24h, Source: SourceAuto, Interval: Interval1h}
}

// NormalizeRange returns the default range for unknown values.
func NormalizeRange(raw string) Range {
	switch r := Range(raw); r {
	case Range24h, Range7d, Range30d, Range90d, RangeThisYear, RangeLastYear, RangeCustom:
		return r
	}
	return Range24h
}

// NormalizeSource returns auto for unknown values.
func NormalizeSource(raw string) Source {
	switch s := Source(raw); s {
	case SourceDB, SourceSolax, SourceLive, SourceAuto:
		return s
	}
	return SourceAuto
}

// NormalizeInterval returns 1h for unknown values.
func NormalizeInterval(raw string) Interval {
	switch i := Interval(raw); i {
	case Interval15m, Interval1h, Interval1d:
		return i
	}
	return Interval1h
}

// Minutes returns the bucket width in minutes.
func (i Interval) Minutes() int {
	switch i {
	case Interval15m:
		return 15
	case Interval1d:
		return 1440
	default:
		return 60
	}
}

// Bounds resolves the filter window relative to now.
func (f Filters) Bounds(now time.Time) (time.Time, time.Time, error) {
	now = now.UTC()
	switch f.Range {
	case Range24h, "":
		return now.Add(-24 * time.Hour), now, nil
	case Range7d:
		return now.AddDate(0, 0, -7), now, nil
	case Range30d:
		return now.AddDate(0, 0, -30), now, nil
	case Range90d:
		return now.AddDate(0, 0, -90), now, nil
	case RangeThisYear:
		return time.Date(now.Year(), 1, 1, 0, 0, 0, 0, time.UTC), now, nil
	case RangeLastYear:
		return time.Date(now.Year()-1, 1, 1, 0, 0, 0, 0, time.UTC), time.Date(now.Year(), 1, 1, 0, 0, 0, 0, time.UTC), nil
	case RangeCustom:
		if f.From.IsZero() || f.To.IsZero() || !f.To.After(f.From) {
			return time.Time{}, time.Time{}, fmt.Errorf("dashboard: custom range needs from < to")
		}
		return f.From.UTC(), f.To.UTC(), nil
	}
	return time.Time{}, time.Time{}, fmt.Errorf("dashboard: unknown range %q", f.Range)
}

// PointCount is the number of buckets covering the window, at least one.
func (f Filters) PointCount(now time.Time) int {
	from, to, err := f.Bounds(now)
	if err != nil {
		return 1
	}
	n := int(to.Sub(from).Round(time.Minute).Minutes()) / f.Interval.Minutes()
	if n < 1 {
		return 1
	}
	return n
}

// Key identifies filters in the last-good cache.
func (f Filters) Key() string {
	key := fmt.Sprintf("%s|%s|%s|%s", f.SystemID, f.Range, f.Source, f.Interval)
	if f.Range == RangeCustom {
		key += "|" + f.From.UTC().Format(time.RFC3339) + "|" + f.To.UTC().Format(time.RFC3339)
	}
	return key
}
