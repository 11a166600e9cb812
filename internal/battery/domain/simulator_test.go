package battery

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSimulateEndToEndExample(t *testing.T) {
	// 4 kW / 1 kW then 0.5 kW / 2 kW over 15 minute buckets.
	series := []Sample{
		{ProductionKWh: 1.0, ConsumptionKWh: 0.25},
		{ProductionKWh: 0.125, ConsumptionKWh: 0.5},
	}
	first := Simulate(series[:1], 2)
	assert.InDelta(t, 0.75, first.FinalSoCKWh, 1e-9)

	res := Simulate(series, 2)
	assert.InDelta(t, 0.375, res.FinalSoCKWh, 1e-9)
	assert.Zero(t, res.ImportKWh)
	assert.Zero(t, res.ExportKWh)
	assert.InDelta(t, 1.125, res.ThroughputKWh, 1e-9)
}

func TestSimulateCapsCharge(t *testing.T) {
	res := Simulate([]Sample{{ProductionKWh: 5}, {ConsumptionKWh: 4}}, 2)
	assert.InDelta(t, 3, res.ExportKWh, 1e-9)
	assert.InDelta(t, 2, res.ImportKWh, 1e-9)
	assert.Zero(t, res.FinalSoCKWh)
}

func fixtureSeries() []Sample {
	var series []Sample
	for day := 0; day < 3; day++ {
		for hour := 0; hour < 24; hour++ {
			prod := 0.0
			if hour >= 8 && hour < 18 {
				prod = float64(5 - abs(13-hour))
				if prod < 0 {
					prod = 0.5
				}
			}
			cons := 0.6
			if hour >= 18 && hour < 23 {
				cons = 1.8
			}
			series = append(series, Sample{ProductionKWh: prod, ConsumptionKWh: cons})
		}
	}
	return series
}

func abs(v int) int {
	if v < 0 {
		return -v
	}
	return v
}

func TestRunScenariosMonotonicSelfSufficiency(t *testing.T) {
	scenarios := RunScenarios(fixtureSeries(), DefaultOptions())
	require.Len(t, scenarios, MaxCapacityKWh+1)
	for i := range scenarios {
		assert.Equal(t, i, scenarios[i].CapacityKWh)
		if i > 0 {
			assert.GreaterOrEqual(t, scenarios[i].SelfSufficiency, scenarios[i-1].SelfSufficiency-1e-12)
			assert.GreaterOrEqual(t, scenarios[i].ImportReductionKWh, scenarios[i-1].ImportReductionKWh-1e-12)
		}
	}
}

func TestRunScenariosCapacityZero(t *testing.T) {
	series := fixtureSeries()
	scenarios := RunScenarios(series, DefaultOptions())
	require.NotEmpty(t, scenarios)
	zero := scenarios[0]
	base := Simulate(ActiveSamples(series), 0)
	assert.Nil(t, zero.PaybackYears)
	assert.InDelta(t, base.SelfSufficiency(), zero.SelfSufficiency, 1e-12)
	assert.Zero(t, zero.ImportReductionKWh)
	assert.InDelta(t, base.ImportKWh*DefaultImportPrice+base.ExportKWh*DefaultFeedInPrice, zero.SavingsKc, 1e-9)
	assert.NotNil(t, scenarios[5].PaybackYears)
}

func TestRunScenariosBoundsAndEmpty(t *testing.T) {
	assert.Nil(t, RunScenarios([]Sample{{}, {}}, DefaultOptions()))

	opts := DefaultOptions()
	opts.MaxCapacity = 50
	assert.Len(t, RunScenarios(fixtureSeries(), opts), MaxCapacityKWh+1)

	opts.MaxCapacity = 3
	assert.Len(t, RunScenarios(fixtureSeries(), opts), 4)

	opts.MaxCapacity = -1
	assert.Len(t, RunScenarios(fixtureSeries(), opts), 1)
}

func TestRecommendFirstWinsTies(t *testing.T) {
	_, ok := Recommend(nil)
	assert.False(t, ok)

	best, ok := Recommend([]Scenario{
		{CapacityKWh: 0, SavingsKc: 10},
		{CapacityKWh: 1, SavingsKc: 30},
		{CapacityKWh: 2, SavingsKc: 30},
		{CapacityKWh: 3, SavingsKc: 20},
	})
	require.True(t, ok)
	assert.Equal(t, 1, best.CapacityKWh)
}

func TestActiveSamplesDropsIdleBuckets(t *testing.T) {
	got := ActiveSamples([]Sample{{}, {ProductionKWh: 1}, {ConsumptionKWh: 2}, {}})
	assert.Len(t, got, 2)
}
