package loadtest

import (
	"slices"
)

// StepStats aggregates every sample that fell inside one step's interval.
// Latencies are in milliseconds, ErrorPct in percent.
type StepStats struct {
	Index       int
	TargetRPS   int
	Start       int64
	End         int64
	RealizedRPS float64
	P50         float64
	P95         float64
	P99         float64
	ErrorPct    float64
	Requests    int
	Samples     int
}

// Percentile returns the nearest-rank percentile of an ascending slice:
// sorted[floor(p/100*n)], clamped to the last element. No interpolation is
// done, so the result is always an observed sample. Empty input yields 0.
func Percentile(sorted []float64, p float64) float64 {
	n := len(sorted)
	if n == 0 {
		return 0
	}
	idx := int(p / 100 * float64(n))
	if idx < 0 {
		idx = 0
	}
	return sorted[min(idx, n-1)]
}

// AggregateStep pools the buckets whose second lies in [step.Start, step.End].
// ok is false when the interval holds no duration samples.
//
// RealizedRPS divides by the nominal stepDuration, not by the number of
// seconds that actually carried data.
func AggregateStep(trace *Trace, step StepProfile, stepDuration int64) (stats StepStats, ok bool) {
	var (
		durations []float64
		failed    []float64
		requests  int
	)

	for t := step.Start; t <= step.End; t++ {
		if b, found := trace.Buckets[t]; found {
			durations = append(durations, b.Durations...)
			failed = append(failed, b.Failed...)
			requests += b.Requests
		}
		if t == step.End {
			break // End may be MaxInt64
		}
	}

	if len(durations) == 0 {
		return StepStats{}, false
	}

	slices.Sort(durations)

	var errPct float64
	if len(failed) > 0 {
		var sum float64
		for _, f := range failed {
			sum += f
		}
		errPct = sum / float64(len(failed)) * 100
	}

	var realized float64
	if stepDuration > 0 {
		realized = float64(requests) / float64(stepDuration)
	}

	return StepStats{
		Index:       step.Index,
		TargetRPS:   step.TargetRPS,
		Start:       step.Start,
		End:         step.End,
		RealizedRPS: realized,
		P50:         Percentile(durations, 50),
		P95:         Percentile(durations, 95),
		P99:         Percentile(durations, 99),
		ErrorPct:    errPct,
		Requests:    requests,
		Samples:     len(durations),
	}, true
}

// Aggregate computes StepStats for each planned step, in plan order. Steps
// without duration samples are dropped rather than zero-filled.
func Aggregate(trace *Trace, steps []StepProfile, stepDuration int64) []StepStats {
	out := make([]StepStats, 0, len(steps))
	for _, step := range steps {
		if stats, ok := AggregateStep(trace, step, stepDuration); ok {
			out = append(out, stats)
		}
	}
	return out
}
