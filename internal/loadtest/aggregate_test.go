package loadtest

import (
	"math"
	"math/rand"
	"slices"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// traceOf builds a trace from per-second samples.
func traceOf(seconds map[int64]SecondBucket) *Trace {
	trace := NewTrace()
	for sec, b := range seconds {
		bucket := b
		trace.Buckets[sec] = &bucket
	}
	return trace
}

func TestPercentile(t *testing.T) {
	t.Run("empty", func(t *testing.T) {
		assert.Equal(t, 0.0, Percentile(nil, 50))
	})

	t.Run("nearest rank without interpolation", func(t *testing.T) {
		sorted := []float64{10, 20, 30, 900}
		assert.Equal(t, 10.0, Percentile(sorted, 0))
		assert.Equal(t, 30.0, Percentile(sorted, 50))
		assert.Equal(t, 900.0, Percentile(sorted, 95))
		assert.Equal(t, 900.0, Percentile(sorted, 99))
		assert.Equal(t, 900.0, Percentile(sorted, 100))
	})

	t.Run("bounds and monotonicity", func(t *testing.T) {
		rng := rand.New(rand.NewSource(7))
		for i := 0; i < 50; i++ {
			n := 1 + rng.Intn(200)
			values := make([]float64, n)
			for i := range values {
				values[i] = rng.Float64() * 1000
			}
			slices.Sort(values)

			require.Equal(t, values[0], Percentile(values, 0))
			require.Equal(t, values[n-1], Percentile(values, 100))

			prev := Percentile(values, 0)
			for p := 1.0; p <= 100; p++ {
				cur := Percentile(values, p)
				require.GreaterOrEqual(t, cur, prev, "p=%v n=%d", p, n)
				require.Contains(t, values, cur)
				prev = cur
			}
		}
	})
}

func TestAggregateStep_Scenario(t *testing.T) {
	trace := traceOf(map[int64]SecondBucket{
		110: {Durations: []float64{900, 10}, Failed: []float64{0, 0}, Requests: 2},
		125: {Durations: []float64{30}, Failed: []float64{1}, Requests: 1},
		140: {Durations: []float64{20}, Failed: []float64{0}, Requests: 1},
		141: {Durations: []float64{5000}, Failed: []float64{1}, Requests: 1}, // ramp, outside
	})
	step := StepProfile{Index: 0, TargetRPS: 200, Start: 110, End: 140}

	stats, ok := AggregateStep(trace, step, 30)
	require.True(t, ok)

	assert.Equal(t, 25.0, stats.ErrorPct)
	assert.Equal(t, 30.0, stats.P50) // floor(0.5*4) = index 2
	assert.Equal(t, 900.0, stats.P95)
	assert.Equal(t, 900.0, stats.P99)
	assert.Equal(t, 4, stats.Requests)
	assert.Equal(t, 4, stats.Samples)
	assert.InDelta(t, 4.0/30.0, stats.RealizedRPS, 1e-12)
	assert.Equal(t, 200, stats.TargetRPS)
	assert.Equal(t, int64(110), stats.Start)
	assert.Equal(t, int64(140), stats.End)
}

func TestAggregateStep_NoFailureSamples(t *testing.T) {
	trace := traceOf(map[int64]SecondBucket{
		10: {Durations: []float64{5, 7}},
	})

	stats, ok := AggregateStep(trace, StepProfile{Start: 10, End: 10}, 1)
	require.True(t, ok)
	assert.Equal(t, 0.0, stats.ErrorPct)
	assert.Equal(t, 0, stats.Requests)
	assert.Equal(t, 0.0, stats.RealizedRPS)
}

func TestAggregateStep_EndsAtMaxInt64(t *testing.T) {
	trace := traceOf(map[int64]SecondBucket{
		math.MaxInt64 - 1: {Durations: []float64{4}},
		math.MaxInt64:     {Durations: []float64{6}},
	})

	stats, ok := AggregateStep(trace, StepProfile{Start: math.MaxInt64 - 1, End: math.MaxInt64}, 1)
	require.True(t, ok)
	assert.Equal(t, 2, stats.Samples)
	assert.Equal(t, 6.0, stats.P99)
}

func TestAggregate_DropsStepsWithoutDurations(t *testing.T) {
	trace := traceOf(map[int64]SecondBucket{
		0:  {Durations: []float64{1}, Requests: 1},
		20: {Failed: []float64{1}, Requests: 3}, // requests but no durations
		40: {Durations: []float64{3}, Requests: 1},
	})
	steps := []StepProfile{
		{Index: 0, TargetRPS: 10, Start: 0, End: 5},
		{Index: 1, TargetRPS: 20, Start: 18, End: 23},
		{Index: 2, TargetRPS: 30, Start: 38, End: 43},
	}

	stats := Aggregate(trace, steps, 5)
	require.Len(t, stats, 2)
	assert.Equal(t, 10, stats[0].TargetRPS)
	assert.Equal(t, 30, stats[1].TargetRPS)
}

func TestAggregate_Idempotent(t *testing.T) {
	trace := traceOf(map[int64]SecondBucket{
		1: {Durations: []float64{3, 1, 2}, Failed: []float64{0, 1, 0}, Requests: 3},
		2: {Durations: []float64{9, 4}, Failed: []float64{0, 0}, Requests: 2},
		5: {Durations: []float64{8}, Failed: []float64{1}, Requests: 1},
	})
	steps := PlanSteps(StepPlan{StepDuration: 2, RampDuration: 1, StartRPS: 1, StepRPS: 1}, 1, 5)

	first := Aggregate(trace, steps, 2)
	second := Aggregate(trace, steps, 2)
	assert.Equal(t, first, second)

	// the trace itself is not reordered
	assert.Equal(t, []float64{3, 1, 2}, trace.Buckets[1].Durations)
}
