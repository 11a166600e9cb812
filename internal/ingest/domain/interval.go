package ingest

import (
	"math"
	"sort"
	"time"
)

const (
	// ShortIntervalMinutes is used for sub-20-minute sampling.
	ShortIntervalMinutes = 15
	// LongIntervalMinutes is used otherwise and when inference has no data.
	LongIntervalMinutes = 60

	shortIntervalCeiling = 20
)

// InferInterval picks the bucket width for a batch from the median spacing of
// consecutive instants. Non-positive deltas are ignored.
func InferInterval(sorted []time.Time) int {
	if len(sorted) < 2 {
		return LongIntervalMinutes
	}
	deltas := make([]int, 0, len(sorted)-1)
	for i := 1; i < len(sorted); i++ {
		minutes := int(math.Round(sorted[i].Sub(sorted[i-1]).Minutes()))
		if minutes > 0 {
			deltas = append(deltas, minutes)
		}
	}
	if len(deltas) == 0 {
		return LongIntervalMinutes
	}
	sort.Ints(deltas)
	if deltas[len(deltas)/2] <= shortIntervalCeiling {
		return ShortIntervalMinutes
	}
	return LongIntervalMinutes
}

// SortedInstants returns the sample timestamps in ascending order.
func SortedInstants(samples []RawSample) []time.Time {
	out := make([]time.Time, 0, len(samples))
	for _, s := range samples {
		out = append(out, s.Timestamp)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Before(out[j]) })
	return out
}
