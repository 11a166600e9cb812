package ingest

import (
	"testing"
	"time"
)

func TestMapRowsMeasurement(t *testing.T) {
	header := []string{"Datetime_15min", "Výroba FVE (kWh)", "Odběr + Dokup elektřiny z ČEZ (kWh)", "Dodávka do sítě (kWh)"}
	cm, err := ResolveColumns(header, nil, MeasurementAliases())
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	body := [][]string{
		{"2024-06-01 10:00:00", "1,25", "0,5", "0,75"},
		{"2024-06-01 10:15:00", "0", "0", "0"},
		{"garbage", "1", "1", "0"},
		{"", "", "", ""},
		{"2024-06-01 10:30:00", "2", "1", ""},
	}
	mapped, err := MapRows(KindMeasurement, cm, body)
	if err != nil {
		t.Fatalf("map: %v", err)
	}
	if len(mapped.Rows) != 2 || mapped.Skipped != 2 {
		t.Fatalf("rows=%d skipped=%d, want 2 and 2", len(mapped.Rows), mapped.Skipped)
	}
	first := mapped.Rows[0].(MeasurementRow)
	if first.Production != 1.25 || first.Consumption != 0.5 {
		t.Fatalf("unexpected first row: %+v", first)
	}
	if first.GridImport == nil || *first.GridImport != 0.5 {
		t.Fatalf("grid import should default to consumption, got %v", first.GridImport)
	}
	if first.GridExport == nil || *first.GridExport != 0.75 {
		t.Fatalf("grid export = %v", first.GridExport)
	}
	if mapped.Rows[1].(MeasurementRow).GridExport != nil {
		t.Fatalf("empty export cell should stay nil")
	}
}

func TestMapRowsMeasurementDerivesConsumption(t *testing.T) {
	header := []string{"Datetime", "Výroba FVE (kWh)", "Dokup elektřiny z ČEZ (kWh)", "Vybití baterie (kWh)", "Výroba Tigo DC (kWh)"}
	cm, err := ResolveColumns(header, nil, MeasurementAliases())
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	mapped, err := MapRows(KindMeasurement, cm, [][]string{{"2024-06-01 10:00", "3", "1", "0.5", "0.25"}})
	if err != nil {
		t.Fatalf("map: %v", err)
	}
	row := mapped.Rows[0].(MeasurementRow)
	if row.Consumption != 1.75 {
		t.Fatalf("consumption = %v, want 1.75", row.Consumption)
	}
}

func TestMapRowsInverterAndOptimizer(t *testing.T) {
	cm, err := ResolveColumns([]string{"Update time", "Total PV Power (W)", "Grid power (W)"}, nil, InverterAliases())
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	mapped, err := MapRows(KindInverter, cm, [][]string{
		{"2024-06-01 10:00:00", "1200", "-300"},
		{"2024-06-01 10:05:00", "", ""},
	})
	if err != nil {
		t.Fatalf("map: %v", err)
	}
	if len(mapped.Rows) != 1 || mapped.Skipped != 1 {
		t.Fatalf("rows=%d skipped=%d", len(mapped.Rows), mapped.Skipped)
	}
	sample := mapped.Rows[0].Sample()
	if sample.Quantities[ChannelGridImportW] != 300 || sample.Quantities[ChannelPVOutputW] != 1200 {
		t.Fatalf("unexpected sample: %+v", sample)
	}
	if !sample.Timestamp.Equal(time.Date(2024, 6, 1, 10, 0, 0, 0, time.UTC)) {
		t.Fatalf("timestamp = %v", sample.Timestamp)
	}

	cm, err = ResolveColumns([]string{"Datetime", "A1", "A2", "B1"}, nil, OptimizerAliases())
	if err != nil {
		t.Fatalf("resolve optimizer: %v", err)
	}
	mapped, err = MapRows(KindOptimizer, cm, [][]string{{"2024-06-01 10:00", "10", "5", "2"}})
	if err != nil {
		t.Fatalf("map optimizer: %v", err)
	}
	row := mapped.Rows[0].(OptimizerRow)
	if row.Strings[0] != 15 || row.Strings[1] != 2 || row.Total() != 17 {
		t.Fatalf("unexpected optimizer row: %+v", row)
	}
}

func TestParseNumber(t *testing.T) {
	cases := map[string]float64{"1,25": 1.25, " 2.5 ": 2.5, "1 234,5": 1234.5, "1,234.5": 1234.5, "-3": -3}
	for in, want := range cases {
		got, ok := ParseNumber(in)
		if !ok || got != want {
			t.Fatalf("ParseNumber(%q) = %v, %v; want %v", in, got, ok, want)
		}
	}
	if _, ok := ParseNumber("n/a"); ok {
		t.Fatalf("expected failure for n/a")
	}
}
