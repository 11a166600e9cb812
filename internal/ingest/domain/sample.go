package ingest

import "time"

// SourceKind identifies one of the known export shapes.
type SourceKind string

const (
	KindMeasurement SourceKind = "aggregated-measurement"
	KindInverter    SourceKind = "inverter-telemetry"
	KindOptimizer   SourceKind = "optimizer-telemetry"
)

// Channel names a quantity carried by a sample.
type Channel string

const (
	ChannelPVOutputW     Channel = "pv_output_w"
	ChannelGridFeedInW   Channel = "grid_feed_in_w"
	ChannelGridImportW   Channel = "grid_import_w"
	ChannelBatteryPowerW Channel = "battery_power_w"
	ChannelBatterySoC    Channel = "battery_soc_pct"

	ChannelStringA Channel = "string_a_wh"
	ChannelStringB Channel = "string_b_wh"
	ChannelStringC Channel = "string_c_wh"
	ChannelStringD Channel = "string_d_wh"

	ChannelProductionKWh  Channel = "production_kwh"
	ChannelConsumptionKWh Channel = "consumption_kwh"
	ChannelGridImportKWh  Channel = "grid_import_kwh"
	ChannelGridExportKWh  Channel = "grid_export_kwh"
	ChannelTigoKWh        Channel = "tigo_kwh"
)

// StringChannels are the optimizer string channels in A..D order.
var StringChannels = [4]Channel{ChannelStringA, ChannelStringB, ChannelStringC, ChannelStringD}

type channelRule struct {
	state bool
	power bool
}

// Optimizer string values are exported as instantaneous readings and
// converted like inverter power.
var channelRules = map[Channel]channelRule{
	ChannelPVOutputW:     {power: true},
	ChannelGridFeedInW:   {power: true},
	ChannelGridImportW:   {power: true},
	ChannelBatteryPowerW: {power: true},
	ChannelBatterySoC:    {state: true},
	ChannelStringA:       {power: true},
	ChannelStringB:       {power: true},
	ChannelStringC:       {power: true},
	ChannelStringD:       {power: true},
}

// IsState reports whether the channel is merged by last write.
func (c Channel) IsState() bool { return channelRules[c].state }

// IsPower reports whether the channel is converted from power to energy.
func (c Channel) IsPower() bool { return channelRules[c].power }

// RawSample is one parsed row before bucketization.
type RawSample struct {
	Timestamp  time.Time
	Kind       SourceKind
	Quantities map[Channel]float64
}

// BucketedReading is the canonical fixed-interval row.
type BucketedReading struct {
	SystemID        string
	Source          string
	Kind            SourceKind
	Timestamp       time.Time
	IntervalMinutes int
	// Energy holds kWh per bucket, keyed by the channel the value was read from.
	Energy map[Channel]float64
	// State holds last-write values such as state of charge.
	State map[Channel]float64
}

// Value returns the energy or state value for a channel.
func (r BucketedReading) Value(c Channel) (float64, bool) {
	if c.IsState() {
		v, ok := r.State[c]
		return v, ok
	}
	v, ok := r.Energy[c]
	return v, ok
}

// EnergySemantics documents how bucket energy is derived from power samples.
type EnergySemantics string

// SummedPowerTimesInterval multiplies the sum of in-bucket power samples by
// the bucket width. It overestimates when a bucket holds several samples.
const SummedPowerTimesInterval EnergySemantics = "summed-power-times-interval"
