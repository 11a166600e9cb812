package history

import (
	"testing"
	"time"
)

func TestDeriveConsumption(t *testing.T) {
	if got := DeriveConsumption(10, 3, 1); got != 8 {
		t.Fatalf("DeriveConsumption = %v, want 8", got)
	}
	if got := DeriveConsumption(1, 5, 0); got != 0 {
		t.Fatalf("DeriveConsumption should clamp at 0, got %v", got)
	}
}

func TestMergeZeroFillPolicy(t *testing.T) {
	t0 := time.Date(2024, 6, 1, 10, 0, 0, 0, time.UTC)
	t1 := t0.Add(time.Hour)
	flows := []FlowBucket{{Timestamp: t1, Production: 10, GridExport: 3, GridImport: 1}}
	optimizer := []OptimizerBucket{{Timestamp: t0, TotalKWh: 2}, {Timestamp: t1, TotalKWh: 4}}

	filled := Merge(flows, true, optimizer, ZeroFillMissing)
	if len(filled) != 2 {
		t.Fatalf("expected 2 points, got %d", len(filled))
	}
	if !filled[0].Timestamp.Equal(t0) || filled[0].ProductionKWh != 0 || *filled[0].TigoKWh != 2 {
		t.Fatalf("unexpected zero-filled point: %+v", filled[0])
	}
	if filled[1].ConsumptionKWh != 8 || *filled[1].TigoKWh != 4 {
		t.Fatalf("unexpected merged point: %+v", filled[1])
	}

	skipped := Merge(flows, true, optimizer, SkipMissing)
	if len(skipped) != 1 || !skipped[0].Timestamp.Equal(t1) {
		t.Fatalf("skip policy kept optimizer-only bucket: %+v", skipped)
	}
}

func TestMergeKeepsMeasuredConsumption(t *testing.T) {
	t0 := time.Date(2024, 6, 1, 10, 0, 0, 0, time.UTC)
	points := Merge([]FlowBucket{{Timestamp: t0, Production: 10, Consumption: 2, HasConsumption: true, GridExport: 3, GridImport: 1}}, false, nil, ZeroFillMissing)
	if points[0].ConsumptionKWh != 2 {
		t.Fatalf("measured consumption overwritten: %+v", points[0])
	}
}

func TestComputeTotals(t *testing.T) {
	tigo := 1.5
	totals := ComputeTotals([]ReconciledPoint{
		{ProductionKWh: 5, ConsumptionKWh: 3, GridImportKWh: 1, GridExportKWh: 2, TigoKWh: &tigo},
		{ProductionKWh: 1, ConsumptionKWh: 2},
	})
	want := Totals{ProductionKWh: 6, ConsumptionKWh: 5, GridImportKWh: 1, GridExportKWh: 2, TigoKWh: 1.5, BalanceKWh: 1}
	if totals != want {
		t.Fatalf("totals = %+v, want %+v", totals, want)
	}
}
