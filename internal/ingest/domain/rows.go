package ingest

import "time"

// ParsedRow is a validated row of one of the known export shapes.
type ParsedRow interface {
	Kind() SourceKind
	At() time.Time
	Sample() RawSample
}

// MeasurementRow is a pre-aggregated energy row (kWh).
type MeasurementRow struct {
	Timestamp   time.Time
	Production  float64
	Consumption float64
	GridImport  *float64
	GridExport  *float64
	Tigo        *float64
}

func (r MeasurementRow) Kind() SourceKind { return KindMeasurement }
func (r MeasurementRow) At() time.Time    { return r.Timestamp }

func (r MeasurementRow) Sample() RawSample {
	q := map[Channel]float64{
		ChannelProductionKWh:  r.Production,
		ChannelConsumptionKWh: r.Consumption,
	}
	putOptional(q, ChannelGridImportKWh, r.GridImport)
	putOptional(q, ChannelGridExportKWh, r.GridExport)
	putOptional(q, ChannelTigoKWh, r.Tigo)
	return RawSample{Timestamp: r.Timestamp, Kind: KindMeasurement, Quantities: q}
}

// InverterRow is one inverter telemetry sample (W, %).
type InverterRow struct {
	Timestamp    time.Time
	PVOutput     *float64
	BatterySoC   *float64
	BatteryPower *float64
	// GridPower is signed: positive feeds in, negative imports.
	GridPower *float64
}

func (r InverterRow) Kind() SourceKind { return KindInverter }
func (r InverterRow) At() time.Time    { return r.Timestamp }

func (r InverterRow) Sample() RawSample {
	q := make(map[Channel]float64, 5)
	putOptional(q, ChannelPVOutputW, r.PVOutput)
	putOptional(q, ChannelBatterySoC, r.BatterySoC)
	putOptional(q, ChannelBatteryPowerW, r.BatteryPower)
	if r.GridPower != nil {
		g := *r.GridPower
		switch {
		case g > 0:
			q[ChannelGridFeedInW] = g
			q[ChannelGridImportW] = 0
		case g < 0:
			q[ChannelGridFeedInW] = 0
			q[ChannelGridImportW] = -g
		default:
			q[ChannelGridFeedInW] = 0
			q[ChannelGridImportW] = 0
		}
	}
	return RawSample{Timestamp: r.Timestamp, Kind: KindInverter, Quantities: q}
}

// OptimizerRow holds per-string readings summed over the panels of each string.
type OptimizerRow struct {
	Timestamp time.Time
	Strings   [4]float64
}

func (r OptimizerRow) Kind() SourceKind { return KindOptimizer }
func (r OptimizerRow) At() time.Time    { return r.Timestamp }

func (r OptimizerRow) Sample() RawSample {
	q := make(map[Channel]float64, 4)
	for i, c := range StringChannels {
		q[c] = r.Strings[i]
	}
	return RawSample{Timestamp: r.Timestamp, Kind: KindOptimizer, Quantities: q}
}

// Total returns the sum of all strings.
func (r OptimizerRow) Total() float64 {
	return r.Strings[0] + r.Strings[1] + r.Strings[2] + r.Strings[3]
}

func putOptional(q map[Channel]float64, c Channel, v *float64) {
	if v != nil {
		q[c] = *v
	}
}
