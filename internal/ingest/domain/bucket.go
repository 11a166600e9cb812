package ingest

import (
	"sort"
	"time"
)

// BucketStart floors t to a multiple of the interval counted from the Unix epoch.
func BucketStart(t time.Time, intervalMinutes int) time.Time {
	width := int64(intervalMinutes) * 60
	sec := t.Unix()
	rem := sec % width
	if rem < 0 {
		rem += width
	}
	return time.Unix(sec-rem, 0).UTC()
}

// PowerToEnergyKWh converts summed watts over a bucket into kWh.
func PowerToEnergyKWh(sumW float64, intervalMinutes int) float64 {
	return sumW * float64(intervalMinutes) / 60 / 1000
}

type accumulator struct {
	start time.Time
	kind  SourceKind
	flow  map[Channel]float64
	state map[Channel]float64
}

// Bucketize groups samples into fixed buckets. Flow channels are summed and
// state channels keep the last value in input order. Power channels are
// converted to energy once per bucket after merging.
func Bucketize(samples []RawSample, intervalMinutes int, source string) ([]BucketedReading, error) {
	if intervalMinutes <= 0 {
		return nil, ErrInvalidInterval
	}
	buckets := make(map[time.Time]*accumulator)
	for _, s := range samples {
		if s.Timestamp.IsZero() {
			continue
		}
		start := BucketStart(s.Timestamp, intervalMinutes)
		acc, ok := buckets[start]
		if !ok {
			acc = &accumulator{
				start: start,
				kind:  s.Kind,
				flow:  make(map[Channel]float64),
				state: make(map[Channel]float64),
			}
			buckets[start] = acc
		}
		for c, v := range s.Quantities {
			if c.IsState() {
				acc.state[c] = v
				continue
			}
			acc.flow[c] += v
		}
	}
	if len(buckets) == 0 {
		return nil, ErrNoValidData
	}

	out := make([]BucketedReading, 0, len(buckets))
	for _, acc := range buckets {
		energy := make(map[Channel]float64, len(acc.flow))
		for c, v := range acc.flow {
			if c.IsPower() {
				v = PowerToEnergyKWh(v, intervalMinutes)
			}
			energy[c] = v
		}
		out = append(out, BucketedReading{
			Source:          source,
			Kind:            acc.kind,
			Timestamp:       acc.start,
			IntervalMinutes: intervalMinutes,
			Energy:          energy,
			State:           acc.state,
		})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Timestamp.Before(out[j].Timestamp) })
	return out, nil
}
