package battery

import (
	"math"
	"runtime"

	"golang.org/x/sync/errgroup"
)

const (
	// MaxCapacityKWh bounds the simulated capacities.
	MaxCapacityKWh = 20

	DefaultPricePerKWh = 10000.0
	DefaultImportPrice = 6.5
	DefaultFeedInPrice = 1.5
)

// Sample is one bucket of energy flows in kWh.
type Sample struct {
	ProductionKWh  float64
	ConsumptionKWh float64
}

// Options prices the scenarios. Prices are in Kč.
type Options struct {
	MaxCapacity int
	PricePerKWh float64
	ImportPrice float64
	FeedInPrice float64
}

// DefaultOptions returns the full capacity sweep at default prices.
func DefaultOptions() Options {
	return Options{
		MaxCapacity: MaxCapacityKWh,
		PricePerKWh: DefaultPricePerKWh,
		ImportPrice: DefaultImportPrice,
		FeedInPrice: DefaultFeedInPrice,
	}
}

// Scenario is the outcome for one battery capacity.
type Scenario struct {
	CapacityKWh        int      `json:"capacityKwh"`
	SelfSufficiency    float64  `json:"selfSufficiency"`
	SavingsKc          float64  `json:"savingsKc"`
	ImportKWh          float64  `json:"importKwh"`
	ExportKWh          float64  `json:"exportKwh"`
	ImportReductionKWh float64  `json:"importReductionKwh"`
	ThroughputKWh      float64  `json:"throughputKwh"`
	PaybackYears       *float64 `json:"paybackYears"`
}

// Result is the raw outcome of one simulation pass.
type Result struct {
	ImportKWh      float64
	ExportKWh      float64
	ThroughputKWh  float64
	FinalSoCKWh    float64
	ProductionKWh  float64
	ConsumptionKWh float64
}

// SelfSufficiency is 1 - import/(production+consumption), 0 without flows.
func (r Result) SelfSufficiency() float64 {
	denom := r.ProductionKWh + r.ConsumptionKWh
	if denom <= 0 {
		return 0
	}
	return 1 - r.ImportKWh/denom
}

// Simulate runs the greedy charge/discharge pass for one capacity. Samples
// are processed strictly in order.
func Simulate(series []Sample, capacityKWh float64) Result {
	var (
		res Result
		soc float64
	)
	for _, s := range series {
		res.ProductionKWh += s.ProductionKWh
		res.ConsumptionKWh += s.ConsumptionKWh
		surplus := s.ProductionKWh - s.ConsumptionKWh
		if surplus >= 0 {
			charge := math.Min(surplus, capacityKWh-soc)
			soc += charge
			res.ExportKWh += surplus - charge
		} else {
			needed := -surplus
			discharge := math.Min(needed, soc)
			soc -= discharge
			res.ImportKWh += needed - discharge
		}
		res.ThroughputKWh += math.Abs(surplus)
	}
	res.FinalSoCKWh = soc
	return res
}

// ActiveSamples drops buckets with neither production nor consumption.
func ActiveSamples(series []Sample) []Sample {
	out := make([]Sample, 0, len(series))
	for _, s := range series {
		if s.ProductionKWh == 0 && s.ConsumptionKWh == 0 {
			continue
		}
		out = append(out, s)
	}
	return out
}

// RunScenarios simulates every integer capacity from 0 to
// min(opts.MaxCapacity, MaxCapacityKWh). Capacities run in parallel and the
// result is ordered by capacity. An empty series yields no scenarios.
func RunScenarios(series []Sample, opts Options) []Scenario {
	samples := ActiveSamples(series)
	if len(samples) == 0 {
		return nil
	}
	maxCap := min(max(opts.MaxCapacity, 0), MaxCapacityKWh)
	baseline := Simulate(samples, 0)

	scenarios := make([]Scenario, maxCap+1)
	var g errgroup.Group
	g.SetLimit(runtime.GOMAXPROCS(0))
	for capacity := 0; capacity <= maxCap; capacity++ {
		g.Go(func() error {
			res := baseline
			if capacity > 0 {
				res = Simulate(samples, float64(capacity))
			}
			scenarios[capacity] = scenarioFor(capacity, res, baseline, opts)
			return nil
		})
	}
	_ = g.Wait()
	return scenarios
}

func scenarioFor(capacity int, res, baseline Result, opts Options) Scenario {
	savings := res.ImportKWh*opts.ImportPrice + res.ExportKWh*opts.FeedInPrice
	sc := Scenario{
		CapacityKWh:        capacity,
		SelfSufficiency:    res.SelfSufficiency(),
		SavingsKc:          savings,
		ImportKWh:          res.ImportKWh,
		ExportKWh:          res.ExportKWh,
		ImportReductionKWh: baseline.ImportKWh - res.ImportKWh,
		ThroughputKWh:      res.ThroughputKWh,
	}
	// A zero-capacity battery costs nothing, so it has no payback period.
	if savings > 0 && capacity > 0 {
		payback := float64(capacity) * opts.PricePerKWh / savings
		sc.PaybackYears = &payback
	}
	return sc
}

// Recommend returns the scenario with the highest savings; the first one
// wins ties. ok is false for an empty slice.
func Recommend(scenarios []Scenario) (Scenario, bool) {
	if len(scenarios) == 0 {
		return Scenario{}, false
	}
	best := scenarios[0]
	for _, sc := range scenarios[1:] {
		if sc.SavingsKc > best.SavingsKc {
			best = sc
		}
	}
	return best, true
}
