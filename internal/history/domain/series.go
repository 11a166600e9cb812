package history

import (
	"context"
	"math"
	"sort"
	"time"
)

// Preference selects the primary table.
type Preference string

const (
	PreferAuto         Preference = ""
	PreferMeasurements Preference = "measurements"
	PreferInverter     Preference = "inverter"
)

// Strategy tells how consumption was obtained for a series.
type Strategy string

const (
	StrategyMeasured      Strategy = "measured"
	StrategyDerived       Strategy = "derived"
	StrategyOptimizerOnly Strategy = "optimizer-only"
)

// ZeroFillPolicy decides what happens to optimizer buckets without a flow bucket.
type ZeroFillPolicy int

const (
	// ZeroFillMissing inserts a zero-valued point carrying the optimizer value.
	ZeroFillMissing ZeroFillPolicy = iota
	// SkipMissing drops optimizer buckets that have no flow bucket.
	SkipMissing
)

// ParseZeroFillPolicy reads "zero"/"skip"; anything else is ZeroFillMissing.
func ParseZeroFillPolicy(raw string) ZeroFillPolicy {
	if raw == "skip" {
		return SkipMissing
	}
	return ZeroFillMissing
}

// Query selects a reconciled series.
type Query struct {
	SystemID        string
	From            time.Time
	To              time.Time
	IntervalMinutes int
	Preferred       Preference
}

// FlowBucket is one grouped bucket from a flow table.
type FlowBucket struct {
	Timestamp      time.Time
	Production     float64
	Consumption    float64
	HasConsumption bool
	GridImport     float64
	GridExport     float64
}

// OptimizerBucket is one grouped optimizer bucket.
type OptimizerBucket struct {
	Timestamp time.Time
	TotalKWh  float64
}

// BucketSource groups the reading tables into query buckets.
type BucketSource interface {
	MeasurementBuckets(ctx context.Context, q Query) ([]FlowBucket, error)
	InverterBuckets(ctx context.Context, q Query) ([]FlowBucket, error)
	OptimizerBuckets(ctx context.Context, q Query) ([]OptimizerBucket, error)
}

// ReconciledPoint is one row of the unified series.
type ReconciledPoint struct {
	Timestamp      time.Time `json:"datetime"`
	ProductionKWh  float64   `json:"production"`
	ConsumptionKWh float64   `json:"consumption"`
	GridImportKWh  float64   `json:"import"`
	GridExportKWh  float64   `json:"export"`
	TigoKWh        *float64  `json:"tigo,omitempty"`
}

// Totals sums a series.
type Totals struct {
	ProductionKWh  float64 `json:"production"`
	ConsumptionKWh float64 `json:"consumption"`
	GridImportKWh  float64 `json:"import"`
	GridExportKWh  float64 `json:"export"`
	TigoKWh        float64 `json:"tigo"`
	BalanceKWh     float64 `json:"balance"`
}

// Series is the reconciled result of a query.
type Series struct {
	Points   []ReconciledPoint `json:"points"`
	Totals   Totals            `json:"totals"`
	Strategy Strategy          `json:"strategy"`
}

// DeriveConsumption estimates consumption from inverter flows.
func DeriveConsumption(production, export, imported float64) float64 {
	return math.Max(0, production-export+imported)
}

// Merge joins flow buckets with optimizer buckets on timestamp. Consumption
// is derived for every point when derive is set and never otherwise.
func Merge(flows []FlowBucket, derive bool, optimizer []OptimizerBucket, policy ZeroFillPolicy) []ReconciledPoint {
	byTime := make(map[time.Time]*ReconciledPoint, len(flows)+len(optimizer))
	for _, f := range flows {
		p := &ReconciledPoint{
			Timestamp:      f.Timestamp.UTC(),
			ProductionKWh:  f.Production,
			ConsumptionKWh: f.Consumption,
			GridImportKWh:  f.GridImport,
			GridExportKWh:  f.GridExport,
		}
		if derive {
			p.ConsumptionKWh = DeriveConsumption(f.Production, f.GridExport, f.GridImport)
		}
		byTime[p.Timestamp] = p
	}
	for _, o := range optimizer {
		ts := o.Timestamp.UTC()
		v := o.TotalKWh
		if p, ok := byTime[ts]; ok {
			p.TigoKWh = &v
			continue
		}
		if policy == SkipMissing {
			continue
		}
		byTime[ts] = &ReconciledPoint{Timestamp: ts, TigoKWh: &v}
	}

	points := make([]ReconciledPoint, 0, len(byTime))
	for _, p := range byTime {
		points = append(points, *p)
	}
	sort.Slice(points, func(i, j int) bool { return points[i].Timestamp.Before(points[j].Timestamp) })
	return points
}

// ComputeTotals sums every field of the series.
func ComputeTotals(points []ReconciledPoint) Totals {
	var t Totals
	for _, p := range points {
		t.ProductionKWh += p.ProductionKWh
		t.ConsumptionKWh += p.ConsumptionKWh
		t.GridImportKWh += p.GridImportKWh
		t.GridExportKWh += p.GridExportKWh
		if p.TigoKWh != nil {
			t.TigoKWh += *p.TigoKWh
		}
	}
	t.BalanceKWh = t.ProductionKWh - t.ConsumptionKWh
	return t
}
