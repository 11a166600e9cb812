package ingest

import (
	"errors"
	"math"
	"testing"
	"time"
)

func approx(a, b float64) bool { return math.Abs(a-b) < 1e-9 }

func TestBucketStart(t *testing.T) {
	at := func(h, m, s int) time.Time { return time.Date(2024, 3, 10, h, m, s, 0, time.UTC) }
	cases := []struct {
		in       time.Time
		interval int
		want     time.Time
	}{
		{in: at(10, 7, 0), interval: 15, want: at(10, 0, 0)},
		{in: at(10, 0, 0), interval: 15, want: at(10, 0, 0)},
		{in: at(10, 14, 59), interval: 15, want: at(10, 0, 0)},
		{in: at(10, 15, 0), interval: 15, want: at(10, 15, 0)},
		{in: at(10, 59, 0), interval: 60, want: at(10, 0, 0)},
		{in: at(23, 30, 0), interval: 1440, want: at(0, 0, 0)},
	}
	for _, tc := range cases {
		if got := BucketStart(tc.in, tc.interval); !got.Equal(tc.want) {
			t.Fatalf("BucketStart(%v, %d) = %v, want %v", tc.in, tc.interval, got, tc.want)
		}
	}
}

func TestBucketizeMergesPowerOnce(t *testing.T) {
	base := time.Date(2024, 3, 10, 10, 0, 0, 0, time.UTC)
	samples := []RawSample{
		{Timestamp: base.Add(2 * time.Minute), Kind: KindInverter, Quantities: map[Channel]float64{ChannelPVOutputW: 1000, ChannelBatterySoC: 40}},
		{Timestamp: base.Add(9 * time.Minute), Kind: KindInverter, Quantities: map[Channel]float64{ChannelPVOutputW: 500, ChannelBatterySoC: 42}},
		{Timestamp: base.Add(16 * time.Minute), Kind: KindInverter, Quantities: map[Channel]float64{ChannelPVOutputW: 200}},
	}
	got, err := Bucketize(samples, 15, "solax")
	if err != nil {
		t.Fatalf("bucketize: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("expected 2 buckets, got %d", len(got))
	}
	first := got[0]
	if !first.Timestamp.Equal(base) || first.IntervalMinutes != 15 || first.Source != "solax" {
		t.Fatalf("unexpected first bucket: %+v", first)
	}
	if v := first.Energy[ChannelPVOutputW]; !approx(v, 0.375) {
		t.Fatalf("pv energy = %v, want 0.375", v)
	}
	if soc, _ := first.Value(ChannelBatterySoC); soc != 42 {
		t.Fatalf("soc = %v, want last write 42", soc)
	}
	if v := got[1].Energy[ChannelPVOutputW]; !approx(v, 0.05) {
		t.Fatalf("second bucket pv = %v, want 0.05", v)
	}
}

func TestBucketizeKeepsEnergyChannels(t *testing.T) {
	base := time.Date(2024, 3, 10, 10, 0, 0, 0, time.UTC)
	samples := []RawSample{
		MeasurementRow{Timestamp: base, Production: 1.5, Consumption: 0.5}.Sample(),
		MeasurementRow{Timestamp: base.Add(5 * time.Minute), Production: 0.5, Consumption: 0.25}.Sample(),
	}
	got, err := Bucketize(samples, 15, "jan_fait_csv")
	if err != nil {
		t.Fatalf("bucketize: %v", err)
	}
	if len(got) != 1 {
		t.Fatalf("expected one bucket, got %d", len(got))
	}
	if v := got[0].Energy[ChannelProductionKWh]; !approx(v, 2.0) {
		t.Fatalf("production = %v, want 2.0", v)
	}
	if v := got[0].Energy[ChannelConsumptionKWh]; !approx(v, 0.75) {
		t.Fatalf("consumption = %v, want 0.75", v)
	}
}

func TestBucketizeGridSign(t *testing.T) {
	base := time.Date(2024, 3, 10, 10, 0, 0, 0, time.UTC)
	grid := -300.0
	got, err := Bucketize([]RawSample{InverterRow{Timestamp: base, GridPower: &grid}.Sample()}, 15, "solax")
	if err != nil {
		t.Fatalf("bucketize: %v", err)
	}
	if v := got[0].Energy[ChannelGridImportW]; !approx(v, 0.075) {
		t.Fatalf("import = %v, want 0.075", v)
	}
	if v := got[0].Energy[ChannelGridFeedInW]; v != 0 {
		t.Fatalf("feed-in = %v, want 0", v)
	}
}

func TestBucketizeIsDeterministic(t *testing.T) {
	base := time.Date(2024, 3, 10, 10, 0, 0, 0, time.UTC)
	samples := []RawSample{
		{Timestamp: base.Add(time.Hour), Quantities: map[Channel]float64{ChannelPVOutputW: 10}},
		{Timestamp: base, Quantities: map[Channel]float64{ChannelPVOutputW: 20}},
	}
	first, _ := Bucketize(samples, 60, "a")
	second, _ := Bucketize(samples, 60, "a")
	for i := range first {
		if !first[i].Timestamp.Equal(second[i].Timestamp) || first[i].Energy[ChannelPVOutputW] != second[i].Energy[ChannelPVOutputW] {
			t.Fatalf("bucket %d differs between runs", i)
		}
	}
	if !first[0].Timestamp.Before(first[1].Timestamp) {
		t.Fatalf("buckets not ordered: %v", first)
	}
}

func TestBucketizeErrors(t *testing.T) {
	if _, err := Bucketize(nil, 15, "x"); !errors.Is(err, ErrNoValidData) {
		t.Fatalf("expected ErrNoValidData, got %v", err)
	}
	if _, err := Bucketize(nil, 0, "x"); !errors.Is(err, ErrInvalidInterval) {
		t.Fatalf("expected ErrInvalidInterval, got %v", err)
	}
}
